package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/use-agent/searchscrape/internal/fetch"
	"github.com/use-agent/searchscrape/internal/models"
	"github.com/use-agent/searchscrape/internal/proxy"
)

// proxyControlRequest is proxy_control's input (spec.md §6).
type proxyControlRequest struct {
	Action   string             `json:"action"` // grab | list | status | switch | test
	Endpoint string             `json:"endpoint,omitempty"`
	Scheme   models.ProxyScheme `json:"scheme,omitempty"`
}

// proxyTestProbeURL is the lightweight target fetched through each pool
// member when action=test, to exercise the same round-robin + health
// bookkeeping a live scrape would.
const proxyTestProbeURL = "https://www.gstatic.com/generate_204"

// ProxyControl returns a handler for POST /proxy, fanning the closed action
// set out to internal/proxy.Pool's methods.
func ProxyControl(pool *proxy.Pool, fetcher *fetch.Fetcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req proxyControlRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		if pool == nil {
			badRequest(c, "proxy pool is not configured")
			return
		}

		switch req.Action {
		case "grab":
			if req.Endpoint == "" {
				badRequest(c, "endpoint is required for action=grab")
				return
			}
			scheme := req.Scheme
			if scheme == "" {
				scheme = models.ProxySchemeHTTP
			}
			pool.Add(req.Endpoint, scheme)
			ok(c, pool.Status())
		case "list":
			ok(c, pool.List())
		case "status":
			ok(c, pool.Status())
		case "switch":
			next, err := pool.Next(nil)
			if err != nil {
				fail(c, models.NewResourceExhausted(err.Error()))
				return
			}
			ok(c, next)
		case "test":
			if fetcher == nil {
				badRequest(c, "fetcher is not configured")
				return
			}
			n := len(pool.List())
			for i := 0; i < n; i++ {
				_, _ = fetcher.Fetch(c.Request.Context(), models.FetchRequest{
					URL:         proxyTestProbeURL,
					ProxyPolicy: models.ProxyRequired,
				})
			}
			ok(c, pool.Status())
		default:
			badRequest(c, "unknown action: "+req.Action)
		}
	}
}
