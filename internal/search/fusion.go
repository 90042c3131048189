package search

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/use-agent/searchscrape/internal/blockdetect"
	"github.com/use-agent/searchscrape/internal/config"
	"github.com/use-agent/searchscrape/internal/models"
)

// corroborationBoost is added to a hit's score for each additional engine
// that independently returned the same URL fingerprint.
const corroborationBoost = 0.15

// minSnippetLength below which a hit's snippet is dropped as a micro-snippet
// rather than surfaced unhelpfully.
const minSnippetLength = 20

// Fusion fans out a query to all enabled engines, merges, scores, and
// returns deduplicated SearchHits per spec.md §4.9.
type Fusion struct {
	cfg        config.SearchConfig
	extractCfg config.ExtractConfig
	fetcher    Fetcher
	detector   *blockdetect.Detector
	browser    BrowserFallback
}

// BrowserFallback re-runs a blocked engine fetch through the Browser
// Renderer; satisfied by internal/browser.Renderer.
type BrowserFallback interface {
	Render(ctx context.Context, req models.FetchRequest) (*models.FetchResponse, error)
}

func NewFusion(cfg config.SearchConfig, extractCfg config.ExtractConfig, fetcher Fetcher, detector *blockdetect.Detector, browser BrowserFallback) *Fusion {
	return &Fusion{cfg: cfg, extractCfg: extractCfg, fetcher: fetcher, detector: detector, browser: browser}
}

type engineResult struct {
	engine string
	hits   []models.SearchHit
}

// Run executes the fan-out + fusion algorithm for one query.
func (f *Fusion) Run(ctx context.Context, query string) ([]models.SearchHit, []string) {
	engines := f.cfg.Engines
	if len(engines) == 0 {
		engines = []string{"google", "bing", "duckduckgo", "brave"}
	}

	timeout := f.cfg.FanoutTimeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}

	results := make(chan engineResult, len(engines))
	var unresponsive []string
	var unresponsiveMu sync.Mutex

	var wg sync.WaitGroup
	for _, name := range engines {
		adapter, ok := Engines[name]
		if !ok {
			continue
		}
		wg.Add(1)
		go func(adapter Engine) {
			defer wg.Done()
			hits := f.runEngine(ctx, adapter, query, timeout)
			if hits == nil {
				unresponsiveMu.Lock()
				unresponsive = append(unresponsive, adapter.Name)
				unresponsiveMu.Unlock()
			}
			results <- engineResult{engine: adapter.Name, hits: hits}
		}(adapter)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	perURL := make(map[string]*mergedHit)
	var order []string
	for r := range results {
		adapter := Engines[r.engine]
		for _, h := range r.hits {
			fp := models.Fingerprint(h.URL)
			m, exists := perURL[fp]
			if !exists {
				m = &mergedHit{hit: h}
				perURL[fp] = m
				order = append(order, fp)
			}
			m.engines = append(m.engines, r.engine)
			if adapter.BaseRankScore > m.baseRank {
				m.baseRank = adapter.BaseRankScore
			}
			if len(h.Snippet) > len(m.hit.Snippet) {
				m.hit.Snippet = h.Snippet
			}
			if m.hit.Title == "" {
				m.hit.Title = h.Title
			}
		}
	}

	limit := f.cfg.PerEngineLimit * len(engines)
	if limit <= 0 {
		limit = 20
	}

	reranking := f.extractCfg.NeuroSiphonEnabled && f.extractCfg.SearchReranking

	var hits []models.SearchHit
	for _, fp := range order {
		m := perURL[fp]
		hit := m.hit
		hit.Engines = dedupStrings(m.engines)

		hygieneSnippet(&hit)
		if len(hit.Snippet) < minSnippetLength {
			continue
		}

		hit.Domain = models.RegistrableDomain(hostOf(hit.URL))
		hit.SourceType = classifyURL(hit.URL)
		hit.Breadcrumbs = breadcrumbs(hit.URL)
		if reranking {
			hit.Score = scoreHit(f.cfg, hit, m.baseRank, len(hit.Engines))
		} else {
			hit.Score = m.baseRank
		}

		hits = append(hits, hit)
	}

	// Without reranking, hits stay in fan-in order (first engine to answer,
	// in cfg.Engines order) rather than being reordered by the corroboration
	// and domain-authority signals scoreHit folds in.
	if reranking {
		sortHitsByScore(hits)
	}
	if len(hits) > limit {
		hits = hits[:limit]
	}

	return hits, unresponsive
}

type mergedHit struct {
	hit      models.SearchHit
	engines  []string
	baseRank float64
}

func (f *Fusion) runEngine(ctx context.Context, adapter Engine, query string, timeout time.Duration) []models.SearchHit {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := models.FetchRequest{
		URL:          adapter.BuildURL(query, 0),
		RenderPolicy: models.RenderHTTP,
		Timeout:      timeout,
		MaxBytes:     2 << 20,
	}
	req.Defaults()

	resp, err := f.fetcher.Fetch(ctx, req)
	if err != nil {
		slog.Warn("search: engine fetch failed", "engine", adapter.Name, "error", err)
		return nil
	}

	blockKind, _ := f.detector.Classify(resp)
	if blockKind != models.BlockNone && f.browser != nil {
		slog.Info("search: engine result page blocked, retrying via browser", "engine", adapter.Name, "block_kind", blockKind)
		renderReq := req
		renderReq.RenderPolicy = models.RenderBrowser
		if rendered, rerr := f.browser.Render(ctx, renderReq); rerr == nil {
			resp = rendered
		}
	}

	return adapter.ParseHTML(string(resp.Body), query)
}

var snippetDatePrefixRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}|[A-Z][a-z]{2} \d{1,2}, \d{4})\s*[—\-·]\s*`)

// hygieneSnippet strips a leading date-prefix garbage pattern from the
// snippet and promotes it to PublishedAt when absent.
func hygieneSnippet(hit *models.SearchHit) {
	if m := snippetDatePrefixRe.FindString(hit.Snippet); m != "" {
		if hit.PublishedAt == "" {
			hit.PublishedAt = strings.TrimSpace(strings.TrimRight(m, "—-· "))
		}
		hit.Snippet = strings.TrimSpace(hit.Snippet[len(m):])
	}
}

func scoreHit(cfg config.SearchConfig, hit models.SearchHit, baseRank float64, engineCount int) float64 {
	base := baseRank
	if base == 0 {
		base = 0.5
	}
	if engineCount > 1 {
		base += float64(engineCount-1) * corroborationBoost
	}
	if weight, ok := cfg.DomainAuthority[hit.Domain]; ok {
		base += weight * 0.3
	}
	if base > 1 {
		base = 1
	}
	return base
}

func dedupStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func sortHitsByScore(hits []models.SearchHit) {
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].Score > hits[j-1].Score; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
}
