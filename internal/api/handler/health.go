package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/searchscrape/internal/models"
	"github.com/use-agent/searchscrape/internal/proxy"
)

// BrowserPool is the subset of internal/browser.Renderer's surface this
// handler needs.
type BrowserPool interface {
	ActivePages() int
}

// Health returns a handler for GET /health, degrading status once the
// browser pool is more than 80% saturated, per purify api/handler/health.go.
func Health(browser BrowserPool, proxies *proxy.Pool, startTime time.Time, maxBrowserPages int) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "healthy"
		active := 0
		if browser != nil {
			active = browser.ActivePages()
			if maxBrowserPages > 0 && active > int(float64(maxBrowserPages)*0.8) {
				status = "degraded"
			}
		}

		var proxyStatus proxy.Status
		if proxies != nil {
			proxyStatus = proxies.Status()
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:        status,
			Uptime:        time.Since(startTime).Round(time.Second).String(),
			Version:       "0.1.0",
			BrowserActive: active,
			ProxyTotal:    proxyStatus.Total,
			ProxyHealthy:  proxyStatus.Healthy,
		})
	}
}
