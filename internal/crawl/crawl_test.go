package crawl

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/searchscrape/internal/models"
)

// stubResolver hands back a fixed record per URL and counts resolve calls.
type stubResolver struct {
	mu    sync.Mutex
	calls int
}

func (s *stubResolver) Resolve(_ context.Context, rawURL string, _ models.RenderPolicy, _ string) (ResolveOutcome, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	content := strings.Repeat(rawURL+" ", 50)
	return ResolveOutcome{
		Record: &models.ExtractedRecord{
			URL:          rawURL,
			Title:        "page",
			CleanContent: content,
			WordCount:    len(strings.Fields(content)),
		},
	}, nil
}

// thinResolver always reports a record below templateWordCountCeiling, so
// its output exercises the DOM-structure template guard rather than the
// text-content one.
type thinResolver struct{}

func (thinResolver) Resolve(_ context.Context, rawURL string, _ models.RenderPolicy, _ string) (ResolveOutcome, error) {
	return ResolveOutcome{
		Record: &models.ExtractedRecord{
			URL:          rawURL,
			Title:        "stub",
			CleanContent: rawURL,
			WordCount:    1,
		},
	}, nil
}

func newTestSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><a href="/a">a</a><a href="/b">b</a></body></html>`)
	})
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>leaf a</body></html>`)
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>leaf b</body></html>`)
	})
	return httptest.NewServer(mux)
}

func TestRunVisitsLinkedPagesWithinScope(t *testing.T) {
	srv := newTestSite(t)
	defer srv.Close()

	resolver := &stubResolver{}
	crawler := New(resolver)

	result, err := crawler.Run(context.Background(), models.CrawlRequest{
		StartURL:      srv.URL + "/",
		MaxDepth:      2,
		MaxPages:      10,
		MaxConcurrent: 2,
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(result.Pages), 2)
	assert.Equal(t, 0, result.Stats.DuplicatesSkipped)
}

func TestRunPageScopeNeverFollowsLinks(t *testing.T) {
	srv := newTestSite(t)
	defer srv.Close()

	resolver := &stubResolver{}
	crawler := New(resolver)

	result, err := crawler.Run(context.Background(), models.CrawlRequest{
		StartURL: srv.URL + "/",
		Scope:    "page",
	})
	require.NoError(t, err)
	assert.Len(t, result.Pages, 1)
}

func TestRunRespectsMaxPages(t *testing.T) {
	srv := newTestSite(t)
	defer srv.Close()

	resolver := &stubResolver{}
	crawler := New(resolver)

	result, err := crawler.Run(context.Background(), models.CrawlRequest{
		StartURL:      srv.URL + "/",
		MaxDepth:      2,
		MaxPages:      1,
		MaxConcurrent: 1,
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(result.Pages), 1)
}

func TestRunSkipsStructurallyIdenticalThinPagesAsTemplateDuplicates(t *testing.T) {
	srv := newTestSite(t)
	defer srv.Close()

	crawler := New(thinResolver{})

	result, err := crawler.Run(context.Background(), models.CrawlRequest{
		StartURL:      srv.URL + "/",
		MaxDepth:      2,
		MaxPages:      10,
		MaxConcurrent: 2,
	})
	require.NoError(t, err)
	// /a and /b both render as <html><body>leaf X</body></html> -- same tag
	// skeleton, different text -- so the thin-page DOM guard, not the
	// text-content guard, is what catches the second one.
	assert.GreaterOrEqual(t, result.Stats.DuplicatesSkipped, 1)
}

func TestInScopeHonorsDomainVsSubdomain(t *testing.T) {
	assert.True(t, inScope("https://www.example.com/x", "example.com", "example.com", "subdomain"))
	assert.False(t, inScope("https://other.com/x", "example.com", "example.com", "subdomain"))
	assert.False(t, inScope("https://www.example.com/x", "example.com", "example.com", "domain"))
	assert.True(t, inScope("https://example.com/x", "example.com", "example.com", "domain"))
}

func TestMatchesAnyExcludesGlobPatterns(t *testing.T) {
	globs := compileGlobs([]string{"/admin/*", "*.pdf"})
	assert.True(t, matchesAny(globs, "https://example.com/admin/settings"))
	assert.True(t, matchesAny(globs, "https://example.com/file.pdf"))
	assert.False(t, matchesAny(globs, "https://example.com/article"))
}
