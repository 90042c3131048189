// Command searchd runs the search/scrape/research HTTP API, grounded on
// purify's cmd/purify/main.go wiring order (config -> logging -> domain
// components -> router -> graceful shutdown), generalized to this
// module's larger component graph (search fusion, escalation controller,
// research orchestrator, memory store, proxy pool, session store).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/searchscrape/internal/api"
	"github.com/use-agent/searchscrape/internal/blockdetect"
	"github.com/use-agent/searchscrape/internal/browser"
	"github.com/use-agent/searchscrape/internal/cache"
	"github.com/use-agent/searchscrape/internal/config"
	"github.com/use-agent/searchscrape/internal/escalation"
	"github.com/use-agent/searchscrape/internal/extract"
	"github.com/use-agent/searchscrape/internal/fetch"
	"github.com/use-agent/searchscrape/internal/llm"
	"github.com/use-agent/searchscrape/internal/memory"
	"github.com/use-agent/searchscrape/internal/proxy"
	"github.com/use-agent/searchscrape/internal/research"
	"github.com/use-agent/searchscrape/internal/search"
	"github.com/use-agent/searchscrape/internal/session"
)

func main() {
	cfg := config.Load()

	initLogger(cfg.Log)
	slog.Info("searchd starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
	)

	proxies, err := proxy.NewPool(cfg.Proxy)
	if err != nil {
		slog.Error("failed to initialise proxy pool", "error", err)
		os.Exit(1)
	}

	sessions, err := session.NewStore(cfg.Session)
	if err != nil {
		slog.Error("failed to initialise session store", "error", err)
		os.Exit(1)
	}

	fetcher := fetch.NewFetcher(cfg.Scraper, proxies, sessions)

	renderer, err := browser.NewRenderer(cfg.Browser, cfg.Scraper)
	if err != nil {
		slog.Error("failed to initialise browser renderer", "error", err)
		os.Exit(1)
	}
	defer renderer.Close()

	// hitlRenderer stays a nil escalation.HITLRenderer (not a typed-nil
	// *browser.HITLRenderer) when construction fails, so the Controller's
	// own nil check behaves correctly.
	var hitlRenderer escalation.HITLRenderer
	if hitl, hitlErr := browser.NewHITLRenderer(cfg.Browser); hitlErr != nil {
		slog.Warn("HITL renderer unavailable, NEED_HITL escalations will degrade to a plain signal", "error", hitlErr)
	} else {
		hitlRenderer = hitl
	}

	detector := blockdetect.NewDetector(cfg.BlockDetect)
	extractor := extract.NewExtractor(cfg.Extract)
	respCache := cache.New(cfg.Cache)

	memStore, err := memory.NewStore(cfg.Memory)
	if err != nil {
		slog.Error("failed to initialise memory store", "error", err)
		os.Exit(1)
	}

	httpClient := &http.Client{}
	llmClient := llm.NewClient(httpClient)
	embedder := llm.NewEmbedder(llmClient, llm.EmbedParams{
		APIKey:  cfg.Embedding.APIKey,
		Model:   cfg.Embedding.Model,
		BaseURL: cfg.Embedding.BaseURL,
	})

	controller := escalation.New(*cfg, fetcher, renderer, hitlRenderer, detector, proxies, respCache, memStore, extractor, embedder)

	fusion := search.NewFusion(cfg.Search, cfg.Extract, fetcher, detector, renderer)

	orchestrator := research.New(cfg.DeepResearch, fusion, controller, llmClient, memStore, embedder)

	startTime := time.Now()
	router := api.NewRouter(api.Deps{
		Config:       cfg,
		Controller:   controller,
		Fusion:       fusion,
		Embedder:     embedder,
		Store:        memStore,
		Proxies:      proxies,
		Fetcher:      fetcher,
		Browser:      renderer,
		Orchestrator: orchestrator,
		StartTime:    startTime,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: router}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	slog.Info("searchd stopped")
}

func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if cfg.Format == "text" {
		h = slog.NewTextHandler(os.Stdout, opts)
	} else {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(h))
}
