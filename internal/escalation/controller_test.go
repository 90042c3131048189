package escalation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/searchscrape/internal/blockdetect"
	"github.com/use-agent/searchscrape/internal/cache"
	"github.com/use-agent/searchscrape/internal/config"
	"github.com/use-agent/searchscrape/internal/extract"
	"github.com/use-agent/searchscrape/internal/models"
)

type stubFetcher struct {
	byURL map[string]*models.FetchResponse
	calls []string
}

func (s *stubFetcher) Fetch(_ context.Context, req models.FetchRequest) (*models.FetchResponse, error) {
	s.calls = append(s.calls, req.URL)
	if resp, ok := s.byURL[req.URL]; ok {
		return resp, nil
	}
	return &models.FetchResponse{Status: 200, Body: []byte("<html><body><p>empty</p></body></html>"), FinalURL: req.URL}, nil
}

const richArticleHTML = `<html><head><title>Deep Dive</title><meta property="article:published_time" content="2026-01-01"/></head>
<body><article>
<h1>Deep Dive</h1>
<p>` + longParagraph + `</p>
<p>` + longParagraph + `</p>
<pre><code class="language-go">package main

func main() {}</code></pre>
</article></body></html>`

const longParagraph = `Widgets are configured through a declarative manifest that governs every
downstream stage of the build pipeline, and operators are expected to
understand the manifest schema before promoting any change to production
traffic. This paragraph exists purely to push the word count comfortably
past the extraction score thresholds so the test exercises the confident
path rather than the low-confidence re-attempt path that routes through
the browser renderer tier of the escalation ladder.`

func newTestController(t *testing.T, fetcher *stubFetcher) *Controller {
	t.Helper()
	detector := blockdetect.NewDetector(config.BlockDetectConfig{
		AuthSelectors: []string{".auth-wall"},
		AuthKeywords:  []string{"please sign in"},
	})
	c := cache.New(config.CacheConfig{ShardCount: 2})
	extractor := extract.NewExtractor(config.ExtractConfig{})
	return New(config.Config{}, fetcher, nil, nil, detector, nil, c, nil, extractor, nil)
}

// moderateParagraph clears the word-count component of the extraction
// score (>=50 words) and, combined with the h1 heading, clears
// extractionScoreThreshold outright, so the re-render tests below
// isolate the word-count-with-query branch rather than the
// extraction-score branch.
const moderateParagraph = `Widgets require careful configuration before every deployment cycle
completes successfully across the staging environment. Widgets require careful
configuration before every deployment cycle completes successfully across the
staging environment. Widgets require careful configuration before every
deployment cycle completes successfully across the staging environment.
Widgets require careful configuration before every deployment cycle completes
successfully across the staging environment.`

type stubBrowser struct {
	resp  *models.FetchResponse
	calls int
}

func (s *stubBrowser) Render(_ context.Context, req models.FetchRequest) (*models.FetchResponse, error) {
	s.calls++
	return s.resp, nil
}

func TestResolveReRendersOnThinWordCountWhenQuerySupplied(t *testing.T) {
	thinBody := []byte(`<html><head><title>Stub</title></head><body><article><h1>Stub</h1><p>` + moderateParagraph + `</p></article></body></html>`)
	fetcher := &stubFetcher{byURL: map[string]*models.FetchResponse{
		"https://example.com/thin": {Status: 200, Body: thinBody, FinalURL: "https://example.com/thin"},
	}}
	browser := &stubBrowser{resp: &models.FetchResponse{Status: 200, Body: []byte(richArticleHTML), FinalURL: "https://example.com/thin"}}

	detector := blockdetect.NewDetector(config.BlockDetectConfig{})
	c := cache.New(config.CacheConfig{ShardCount: 2})
	extractor := extract.NewExtractor(config.ExtractConfig{})
	ctrl := New(config.Config{}, fetcher, browser, nil, detector, nil, c, nil, extractor, nil)

	outcome, err := ctrl.Resolve(context.Background(), "https://example.com/thin", models.RenderHTTP, "widget manifest schema", false)
	require.NoError(t, err)
	require.NotNil(t, outcome.Record)
	assert.Equal(t, 1, browser.calls, "a thin word count with a query supplied must trigger one browser re-render")
	assert.Greater(t, outcome.Record.WordCount, lowConfidenceWordCount)
}

func TestResolveSkipsReRenderOnThinWordCountWithoutQuery(t *testing.T) {
	thinBody := []byte(`<html><head><title>Stub</title></head><body><article><h1>Stub</h1><p>` + moderateParagraph + `</p></article></body></html>`)
	fetcher := &stubFetcher{byURL: map[string]*models.FetchResponse{
		"https://example.com/thin": {Status: 200, Body: thinBody, FinalURL: "https://example.com/thin"},
	}}
	browser := &stubBrowser{resp: &models.FetchResponse{Status: 200, Body: []byte(richArticleHTML), FinalURL: "https://example.com/thin"}}

	detector := blockdetect.NewDetector(config.BlockDetectConfig{})
	c := cache.New(config.CacheConfig{ShardCount: 2})
	extractor := extract.NewExtractor(config.ExtractConfig{})
	ctrl := New(config.Config{}, fetcher, browser, nil, detector, nil, c, nil, extractor, nil)

	outcome, err := ctrl.Resolve(context.Background(), "https://example.com/thin", models.RenderHTTP, "", false)
	require.NoError(t, err)
	require.NotNil(t, outcome.Record)
	assert.Equal(t, 0, browser.calls, "no query supplied means the word-count floor never gates a re-render")
}

func TestResolveReturnsCachedRecordOnSecondCall(t *testing.T) {
	fetcher := &stubFetcher{byURL: map[string]*models.FetchResponse{
		"https://example.com/guide": {Status: 200, Body: []byte(richArticleHTML), FinalURL: "https://example.com/guide"},
	}}
	ctrl := newTestController(t, fetcher)

	first, err := ctrl.Resolve(context.Background(), "https://example.com/guide", models.RenderHTTP, "", false)
	require.NoError(t, err)
	require.NotNil(t, first.Record)
	assert.False(t, first.FromCache)

	second, err := ctrl.Resolve(context.Background(), "https://example.com/guide", models.RenderHTTP, "", false)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Len(t, fetcher.calls, 1, "second call must be served from cache, not refetched")
}

func TestResolveAuthWalledReturnsNeedHITLWithoutCaching(t *testing.T) {
	fetcher := &stubFetcher{byURL: map[string]*models.FetchResponse{
		"https://example.com/private": {Status: 200, Body: []byte(`<html><body><div class="auth-wall">please sign in</div></body></html>`), FinalURL: "https://example.com/private"},
	}}
	ctrl := newTestController(t, fetcher)

	outcome, err := ctrl.Resolve(context.Background(), "https://example.com/private", models.RenderHTTP, "", false)
	require.NoError(t, err)
	assert.True(t, outcome.NeedHITL)
	assert.Equal(t, "non_robot_search", outcome.SuggestedAct)
	assert.Nil(t, outcome.Record)

	_, hit := ctrl.cache.GetScrape(cache.ScrapeKey("https://example.com/private"))
	assert.False(t, hit, "auth-walled outcomes must never populate the cache")
}

func TestResolveRewritesGitHubBlobURL(t *testing.T) {
	fetcher := &stubFetcher{byURL: map[string]*models.FetchResponse{
		"https://raw.githubusercontent.com/acme/widget/main/README.md": {
			Status: 200, Body: []byte("# Widget\n\nA small widget library."), FinalURL: "https://raw.githubusercontent.com/acme/widget/main/README.md",
		},
	}}
	ctrl := newTestController(t, fetcher)

	outcome, err := ctrl.Resolve(context.Background(), "https://github.com/acme/widget/blob/main/README.md", models.RenderHTTP, "", false)
	require.NoError(t, err)
	require.NotNil(t, outcome.Record)
	assert.Contains(t, outcome.Record.Warnings, "raw_markdown_url")
	assert.Contains(t, fetcher.calls, "https://raw.githubusercontent.com/acme/widget/main/README.md")
}

func TestResolveBareGitHubRepoFetchesHeadReadme(t *testing.T) {
	fetcher := &stubFetcher{byURL: map[string]*models.FetchResponse{
		"https://raw.githubusercontent.com/acme/widget/HEAD/README.md": {
			Status: 200, Body: []byte("# Widget"), FinalURL: "https://raw.githubusercontent.com/acme/widget/HEAD/README.md",
		},
	}}
	ctrl := newTestController(t, fetcher)

	outcome, err := ctrl.Resolve(context.Background(), "https://github.com/acme/widget", models.RenderHTTP, "", false)
	require.NoError(t, err)
	require.NotNil(t, outcome.Record)
	assert.Contains(t, fetcher.calls, "https://raw.githubusercontent.com/acme/widget/HEAD/README.md")
}
