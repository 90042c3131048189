// Package escalation implements the Escalation Controller: the ladder that
// turns a URL + render policy into an ExtractedRecord, coordinating the
// Cache, HTTP Fetcher, Block Detector, Proxy Pool, Browser Renderer, and
// HITL Renderer. Single-flight coalescing is grounded on Doist-unfurlist's
// inFlight singleflight.Group (collapsing concurrent requests for the same
// URL down to one processURL call).
package escalation

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/use-agent/searchscrape/internal/blockdetect"
	"github.com/use-agent/searchscrape/internal/cache"
	"github.com/use-agent/searchscrape/internal/config"
	"github.com/use-agent/searchscrape/internal/extract"
	"github.com/use-agent/searchscrape/internal/memory"
	"github.com/use-agent/searchscrape/internal/models"
	"github.com/use-agent/searchscrape/internal/proxy"
)

// rawMediaExtensions skip HTML extraction entirely and are returned as a
// single raw paragraph block.
var rawMediaExtensions = map[string]bool{
	".md": true, ".mdx": true, ".rst": true, ".txt": true,
	".csv": true, ".toml": true, ".yaml": true, ".yml": true,
}

const extractionScoreThreshold = 0.4

// lowConfidenceWordCount is the word_count floor below which a record
// extracted for a query-biased call (relevance filtering requested) is
// treated as low-confidence even when its extraction_score clears
// extractionScoreThreshold, per the "word_count below threshold with
// query supplied" branch.
const lowConfidenceWordCount = 120

// HTTPFetcher performs the plain HTTP engine tier; satisfied by
// internal/fetch.Fetcher.
type HTTPFetcher interface {
	Fetch(ctx context.Context, req models.FetchRequest) (*models.FetchResponse, error)
}

// BrowserRenderer performs the headless rendering engine tier; satisfied
// by internal/browser.Renderer.
type BrowserRenderer interface {
	Render(ctx context.Context, req models.FetchRequest) (*models.FetchResponse, error)
}

// HITLRenderer performs the human-in-the-loop engine tier; satisfied by
// internal/browser.HITLRenderer. Left optional: a controller constructed
// without one degrades an auth-wall/captcha outcome straight to
// NEED_HITL without attempting a visible browser itself.
type HITLRenderer interface {
	Render(ctx context.Context, req models.FetchRequest) (*models.FetchResponse, error)
}

// Embedder computes the vector stored alongside a Memory entry. The
// embedding-model inference library is out of scope for this service, so
// this is always caller-supplied (a no-op Embedder disables memory
// semantic recall, not the controller itself).
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Controller drives the full escalation ladder for a single URL.
type Controller struct {
	cfg       config.Config
	fetcher   HTTPFetcher
	browser   BrowserRenderer
	hitl      HITLRenderer
	detector  *blockdetect.Detector
	proxies   *proxy.Pool
	cache     *cache.Cache
	memory    *memory.Store
	extractor *extract.Extractor
	embedder  Embedder

	inFlight singleflight.Group
}

func New(cfg config.Config, fetcher HTTPFetcher, browser BrowserRenderer, hitl HITLRenderer, detector *blockdetect.Detector, proxies *proxy.Pool, store *cache.Cache, mem *memory.Store, extractor *extract.Extractor, embedder Embedder) *Controller {
	return &Controller{
		cfg: cfg, fetcher: fetcher, browser: browser, hitl: hitl,
		detector: detector, proxies: proxies, cache: store, memory: mem,
		extractor: extractor, embedder: embedder,
	}
}

// ExtractConfig exposes the extraction toggles the handler layer needs to
// decide whether post-cache presentation steps (relevance shaving) run at
// all, without giving callers the whole Controller config.
func (c *Controller) ExtractConfig() config.ExtractConfig {
	return c.cfg.Extract
}

// Outcome is what Resolve returns: either a populated Record, or a
// NeedHITL escalation signal with no record and nothing written to cache
// or memory.
type Outcome struct {
	Record       *models.ExtractedRecord
	FromCache    bool
	NeedHITL     bool
	SuggestedAct string
}

// Resolve turns a URL + render policy into an Outcome, exactly-once for
// concurrent callers sharing the same (fingerprint, render-policy) pair.
// query, when non-empty, biases the low-confidence re-render check in
// escalate: a thin record extracted for a query-biased call is retried
// through the Browser Renderer before it ever reaches the cache.
// extractAppState threads scrape_url's extract_app_state option down into
// the HTML Extractor so a large-enough SPA hydration payload can become
// the record's sole content source before that record is ever cached.
func (c *Controller) Resolve(ctx context.Context, rawURL string, policy models.RenderPolicy, query string, extractAppState bool) (Outcome, error) {
	fp := models.Fingerprint(rawURL) + "|" + string(policy)

	v, err, _ := c.inFlight.Do(fp, func() (any, error) {
		return c.resolveOnce(ctx, rawURL, policy, query, extractAppState)
	})
	c.inFlight.Forget(fp)
	if err != nil {
		return Outcome{}, err
	}
	return v.(Outcome), nil
}

func (c *Controller) resolveOnce(ctx context.Context, rawURL string, policy models.RenderPolicy, query string, extractAppState bool) (Outcome, error) {
	key := cache.ScrapeKey(rawURL)
	if record, hit := c.cache.GetScrape(key); hit {
		return Outcome{Record: record, FromCache: true}, nil
	}

	rewritten := rewriteGitHubURL(rawURL)

	if ext, ok := rawMediaExtension(rewritten); ok {
		record, err := c.fetchRawMedia(ctx, rewritten, ext)
		if err != nil {
			return Outcome{}, err
		}
		c.cache.SetScrape(key, record, models.BlockNone)
		c.logMemory(ctx, rewritten, record, models.BlockNone)
		return Outcome{Record: record}, nil
	}

	record, blockKind, needHITL, suggested, err := c.escalate(ctx, rewritten, policy, query, extractAppState)
	if err != nil {
		return Outcome{}, err
	}
	if needHITL {
		return Outcome{NeedHITL: true, SuggestedAct: suggested}, nil
	}

	c.cache.SetScrape(key, record, blockKind)
	c.logMemory(ctx, rewritten, record, blockKind)
	return Outcome{Record: record}, nil
}

func (c *Controller) escalate(ctx context.Context, rawURL string, policy models.RenderPolicy, query string, extractAppState bool) (*models.ExtractedRecord, models.BlockKind, bool, string, error) {
	req := models.FetchRequest{URL: rawURL, RenderPolicy: models.RenderHTTP, ProxyPolicy: models.ProxyOff}
	if policy == models.RenderBrowser {
		req.RenderPolicy = models.RenderBrowser
	}
	req.Defaults()

	resp, fetchErr := c.fetchTier(ctx, req)
	if fetchErr != nil {
		return nil, models.BlockTransportError, false, "", fetchErr
	}

	blockKind, confidence := c.detector.Classify(resp)

	switch blockKind {
	case models.BlockRateLimited, models.BlockSoftBlocked:
		if resp2, ok := c.retryWithRotatedProxy(ctx, req); ok {
			resp = resp2
			blockKind, confidence = c.detector.Classify(resp)
		}
		if blockKind == models.BlockRateLimited || blockKind == models.BlockSoftBlocked {
			if c.browser != nil {
				browserResp, err := c.browser.Render(ctx, req)
				if err == nil {
					resp = browserResp
					blockKind, confidence = c.detector.Classify(resp)
				}
			}
		}
	case models.BlockAuthWalled, models.BlockCaptcha:
		if isGitHub(rawURL) {
			if plainResp, ok := c.tryGitHubPlainPivot(ctx, rawURL, req); ok {
				resp = plainResp
				blockKind, confidence = c.detector.Classify(resp)
			}
		}
		if blockKind == models.BlockAuthWalled || blockKind == models.BlockCaptcha {
			slog.Info("escalation: auth/captcha wall, deferring to HITL", "url", rawURL, "block_kind", blockKind, "confidence", confidence)
			return nil, blockKind, true, "non_robot_search", nil
		}
	}

	record, err := c.extractor.Extract(string(resp.Body), resp.FinalURL, extract.Options{Mode: extract.ModeAuto, ExtractAppState: extractAppState})
	if err != nil {
		return nil, blockKind, false, "", err
	}

	lowConfidence := record.ExtractionScore < extractionScoreThreshold ||
		(query != "" && record.WordCount < lowConfidenceWordCount)

	if lowConfidence && req.RenderPolicy != models.RenderBrowser && c.browser != nil {
		browserReq := req
		browserReq.RenderPolicy = models.RenderBrowser
		if browserResp, err := c.browser.Render(ctx, browserReq); err == nil {
			reRecord, reErr := c.extractor.Extract(string(browserResp.Body), browserResp.FinalURL, extract.Options{Mode: extract.ModeAuto, ExtractAppState: extractAppState})
			if reErr == nil && reRecord.ExtractionScore > record.ExtractionScore {
				record = reRecord
			}
		}
		stillLow := record.ExtractionScore < extractionScoreThreshold ||
			(query != "" && record.WordCount < lowConfidenceWordCount)
		if stillLow {
			record.Warnings = append(record.Warnings, "low_confidence_suggest_hitl")
		}
	}

	return record, blockKind, false, "", nil
}

func (c *Controller) fetchTier(ctx context.Context, req models.FetchRequest) (*models.FetchResponse, error) {
	if req.RenderPolicy == models.RenderBrowser && c.browser != nil {
		return c.browser.Render(ctx, req)
	}
	return c.fetcher.Fetch(ctx, req)
}

func (c *Controller) retryWithRotatedProxy(ctx context.Context, req models.FetchRequest) (*models.FetchResponse, bool) {
	if c.proxies == nil {
		return nil, false
	}
	maxRotations := c.cfg.Proxy.MaxRotationsPerRequest
	if maxRotations <= 0 {
		maxRotations = 3
	}
	tried := make(map[string]bool)
	for i := 0; i < maxRotations; i++ {
		p, err := c.proxies.Next(tried)
		if err != nil {
			return nil, false
		}
		tried[p.Endpoint] = true

		proxyReq := req
		proxyReq.ProxyPolicy = models.ProxyOn
		resp, err := c.fetcher.Fetch(ctx, proxyReq)
		if err != nil {
			continue
		}
		blockKind, _ := c.detector.Classify(resp)
		if blockKind == models.BlockNone {
			return resp, true
		}
	}
	return nil, false
}

func (c *Controller) tryGitHubPlainPivot(ctx context.Context, rawURL string, req models.FetchRequest) (*models.FetchResponse, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, false
	}
	q := u.Query()
	if q.Get("plain") == "1" {
		return nil, false
	}
	q.Set("plain", "1")
	u.RawQuery = q.Encode()

	pivotReq := req
	pivotReq.URL = u.String()
	resp, err := c.fetcher.Fetch(ctx, pivotReq)
	if err != nil {
		return nil, false
	}
	blockKind, _ := c.detector.Classify(resp)
	return resp, blockKind == models.BlockNone
}

func (c *Controller) fetchRawMedia(ctx context.Context, rawURL, ext string) (*models.ExtractedRecord, error) {
	req := models.FetchRequest{URL: rawURL}
	req.Defaults()
	resp, err := c.fetcher.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	text := string(resp.Body)
	wordCount := len(strings.Fields(text))

	return &models.ExtractedRecord{
		URL:             resp.FinalURL,
		Paragraphs:      []string{text},
		CleanContent:    text,
		WordCount:       wordCount,
		ReadingTimeMin:  models.ReadingTimeMinutes(wordCount),
		Domain:          models.RegistrableDomain(hostOf(resp.FinalURL)),
		SourceType:      rawMediaSourceType(ext),
		ExtractionScore: models.ExtractionScore(models.ExtractionScoreInputs{WordCount: wordCount}),
		Warnings:        []string{"raw_markdown_url"},
	}, nil
}

func (c *Controller) logMemory(ctx context.Context, rawURL string, record *models.ExtractedRecord, blockKind models.BlockKind) {
	if c.memory == nil || c.embedder == nil || blockKind.Poisons() {
		return
	}
	vector, err := c.embedder.Embed(ctx, record.CleanContent)
	if err != nil {
		slog.Warn("escalation: embedding failed, skipping memory log", "url", rawURL, "error", err)
		return
	}
	preview := record.CleanContent
	if len(preview) > 280 {
		preview = preview[:280]
	}
	c.memory.LogScrape(ctx, rawURL, record.Title, preview, record.Domain, record, vector, blockKind)
}

func rawMediaSourceType(ext string) models.SourceType {
	if ext == ".md" || ext == ".mdx" || ext == ".rst" {
		return models.SourceDocs
	}
	return models.SourceOther
}

func rawMediaExtension(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	for ext := range rawMediaExtensions {
		if strings.HasSuffix(strings.ToLower(u.Path), ext) {
			return ext, true
		}
	}
	return "", false
}

func isGitHub(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == "github.com" || strings.HasSuffix(host, ".github.com")
}

// rewriteGitHubURL applies the two GitHub-specific rewrites: a blob view
// becomes its raw.githubusercontent.com equivalent, and a bare repo root
// becomes its HEAD README.
func rewriteGitHubURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || strings.ToLower(u.Hostname()) != "github.com" {
		return rawURL
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	switch {
	case len(segments) >= 5 && segments[2] == "blob":
		owner, repo, ref := segments[0], segments[1], segments[3]
		path := strings.Join(segments[4:], "/")
		return fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s/%s", owner, repo, ref, path)
	case len(segments) == 2 && segments[0] != "" && segments[1] != "":
		owner, repo := segments[0], segments[1]
		return fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/HEAD/README.md", owner, repo)
	}
	return rawURL
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
