package handler

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/searchscrape/internal/blockdetect"
	"github.com/use-agent/searchscrape/internal/cache"
	"github.com/use-agent/searchscrape/internal/config"
	"github.com/use-agent/searchscrape/internal/escalation"
	"github.com/use-agent/searchscrape/internal/extract"
	"github.com/use-agent/searchscrape/internal/memory"
	"github.com/use-agent/searchscrape/internal/models"
	"github.com/use-agent/searchscrape/internal/proxy"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// articleHTML is rich enough that the extraction pipeline's readability
// score clears the escalation controller's low-confidence threshold, so a
// plain 200 response never escalates to a browser render.
const articleHTML = `<!DOCTYPE html>
<html><head><title>Widgets Explained</title>
<meta name="description" content="A primer on widgets.">
</head><body>
<article>
<h1>Widgets Explained</h1>
<p>Widgets are small reusable components used across the platform. They are configured through a declarative manifest file that lists every dependency a widget needs at runtime.</p>
<p>Each widget declares its inputs and outputs explicitly, which lets the build system validate wiring before anything ships to production. This validation step catches most configuration mistakes early.</p>
<p>Teams that adopt widgets report fewer integration bugs because the manifest format forces them to be explicit about assumptions that used to live only in code comments.</p>
<a href="https://example.com/more">Read more about widgets</a>
<img src="https://example.com/widget.png" alt="a widget diagram">
</article>
</body></html>`

type fakeFetcher struct {
	status int
	body   string
	err    error
}

func (f *fakeFetcher) Fetch(ctx context.Context, req models.FetchRequest) (*models.FetchResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	status := f.status
	if status == 0 {
		status = 200
	}
	return &models.FetchResponse{Status: status, Body: []byte(f.body), FinalURL: req.URL}, nil
}

// newTestController builds a real Escalation Controller around a fake HTTP
// fetcher, with every other tier (browser, HITL, proxy rotation) disabled
// so a plain response resolves without needing a headless browser.
func newTestController(t *testing.T, fetcher *fakeFetcher) *escalation.Controller {
	t.Helper()

	proxies, err := proxy.NewPool(config.ProxyConfig{})
	if err != nil {
		t.Fatalf("proxy.NewPool: %v", err)
	}
	memStore, err := memory.NewStore(config.MemoryConfig{})
	if err != nil {
		t.Fatalf("memory.NewStore: %v", err)
	}

	detector := blockdetect.NewDetector(config.BlockDetectConfig{})
	respCache := cache.New(config.CacheConfig{})
	extractor := extract.NewExtractor(config.ExtractConfig{})

	return escalation.New(config.Config{}, fetcher, nil, nil, detector, proxies, respCache, memStore, extractor, nil)
}

func newTestContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	return c, rec
}
