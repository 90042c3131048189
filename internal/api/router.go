// Package api assembles the gin.Engine for spec.md §6's operation surface,
// grounded on purify's api/router.go middleware chain and route layout,
// generalized from its five routes to this module's nine operations.
package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/searchscrape/internal/api/handler"
	"github.com/use-agent/searchscrape/internal/api/middleware"
	"github.com/use-agent/searchscrape/internal/config"
	"github.com/use-agent/searchscrape/internal/escalation"
	"github.com/use-agent/searchscrape/internal/fetch"
	"github.com/use-agent/searchscrape/internal/memory"
	"github.com/use-agent/searchscrape/internal/proxy"
	"github.com/use-agent/searchscrape/internal/research"
)

// Deps bundles every long-lived component a route needs, wired once by
// cmd/searchd and handed to NewRouter.
type Deps struct {
	Config       *config.Config
	Controller   *escalation.Controller
	Fusion       handler.Fusion
	Embedder     handler.Embedder
	Store        *memory.Store
	Proxies      *proxy.Pool
	Fetcher      *fetch.Fetcher
	Browser      handler.BrowserPool
	Orchestrator *research.Orchestrator
	StartTime    time.Time
}

// NewRouter builds the configured gin.Engine.
//
// Middleware chain:
//
//	Global: Recovery -> Logger
//	API:    Auth (if enabled) -> RateLimit
//
// /health sits outside auth so monitoring probes always work, per purify
// api/router.go.
func NewRouter(d Deps) *gin.Engine {
	gin.SetMode(d.Config.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")
	v1.GET("/health", handler.Health(d.Browser, d.Proxies, d.StartTime, d.Config.AdaptivePool.HardMax))

	protected := v1.Group("")
	if d.Config.Auth.Enabled {
		protected.Use(middleware.Auth(d.Config.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(d.Config.RateLimit))

	protected.POST("/search", handler.SearchWeb(d.Fusion, d.Store, d.Embedder))
	protected.POST("/search/structured", handler.SearchStructured(d.Fusion, d.Store, d.Embedder, d.Controller, 3))

	protected.POST("/scrape", handler.Scrape(d.Controller))
	protected.POST("/scrape/batch", handler.ScrapeBatch(d.Controller))

	protected.POST("/crawl", handler.CrawlWebsite(d.Controller))

	protected.POST("/extract", handler.ExtractStructured(d.Controller))

	protected.POST("/research", handler.DeepResearch(d.Orchestrator))
	protected.POST("/history", handler.ResearchHistory(d.Store, d.Embedder))

	protected.POST("/proxy", handler.ProxyControl(d.Proxies, d.Fetcher))

	return r
}
