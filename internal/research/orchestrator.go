// Package research implements the Deep-Research Orchestrator (spec.md
// §4.13): query expansion, fan-out search + scrape, semantic shaving, an
// optional second hop, and optional LLM synthesis.
package research

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/use-agent/searchscrape/internal/config"
	"github.com/use-agent/searchscrape/internal/escalation"
	"github.com/use-agent/searchscrape/internal/llm"
	"github.com/use-agent/searchscrape/internal/memory"
	"github.com/use-agent/searchscrape/internal/models"
	"github.com/use-agent/searchscrape/internal/relevance"
)

// Fusion fans a sub-query out to the configured search engines; satisfied
// by *internal/search.Fusion.
type Fusion interface {
	Run(ctx context.Context, query string) ([]models.SearchHit, []string)
}

// Embedder turns synthesized text into a vector for memory persistence;
// callers pass the same embedding client wired into internal/escalation.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Orchestrator drives deep_research.
type Orchestrator struct {
	cfg        config.DeepResearchConfig
	fusion     Fusion
	controller *escalation.Controller
	llmClient  *llm.Client
	store      *memory.Store
	embedder   Embedder
}

func New(cfg config.DeepResearchConfig, fusion Fusion, controller *escalation.Controller, llmClient *llm.Client, store *memory.Store, embedder Embedder) *Orchestrator {
	return &Orchestrator{cfg: cfg, fusion: fusion, controller: controller, llmClient: llmClient, store: store, embedder: embedder}
}

type scrapedPage struct {
	url        string
	record     *models.ExtractedRecord
	paragraphs []string
}

// Run executes the seven-step algorithm from spec.md §4.13.
func (o *Orchestrator) Run(ctx context.Context, req models.ResearchRequest) (*models.ResearchResult, error) {
	req.Defaults()
	start := time.Now()

	var warnings []string

	subQueries := expandSubQueries(req.Query, o.cfg.MaxSubQueries)

	candidates := o.gatherCandidates(ctx, subQueries, req.MaxSources)
	if len(candidates) == 0 {
		warnings = append(warnings, "no search results returned for any sub-query")
	}

	// UseProxy is advisory: proxy rotation is the Controller's own
	// block-triggered escalation, not a render tier the caller selects
	// up front, so every hop starts at the plain HTTP render policy.
	renderPolicy := models.RenderHTTP

	visited := make(map[string]bool)
	pages := o.scrapeRound(ctx, candidates, req, renderPolicy, visited, &warnings)

	for hop := 1; hop < req.Depth; hop++ {
		links := nextHopLinks(pages, visited, req.MaxSources)
		if len(links) == 0 {
			break
		}
		more := o.scrapeRound(ctx, links, req, renderPolicy, visited, &warnings)
		if len(more) == 0 {
			break
		}
		pages = append(pages, more...)
	}

	threshold := req.RelevanceThreshold
	extractCfg := o.controller.ExtractConfig()
	semanticShave := extractCfg.NeuroSiphonEnabled && extractCfg.SemanticShave
	chunks, allURLs := shaveAndCollect(pages, req.Query, req.MaxCharsPerSource, threshold, semanticShave)

	var findings []string
	if o.cfg.LLMSynthesis && o.llmClient != nil && o.cfg.LLMBaseURL != "" {
		findings, warnings = o.synthesize(ctx, req.Query, chunks, warnings)
	}
	if len(findings) == 0 {
		findings = extractiveSummary(chunks, o.cfg.SynthesisMaxSources)
	}

	o.logRun(ctx, req.Query, subQueries, allURLs)

	return &models.ResearchResult{
		KeyFindings:     findings,
		AllURLs:         allURLs,
		SubQueries:      subQueries,
		Warnings:        warnings,
		TotalDurationMs: time.Since(start).Milliseconds(),
	}, nil
}

// expandSubQueries generates focused angles on the core query: the concept
// itself, its alternatives/comparisons, and its practical implementation,
// per spec.md §4.13 step 1. Capped at maxSubQueries.
func expandSubQueries(query string, maxSubQueries int) []string {
	query = strings.TrimSpace(query)
	candidates := []string{
		query,
		query + " alternatives comparison",
		query + " implementation example",
		query + " best practices",
		query + " common pitfalls",
	}
	if maxSubQueries <= 0 || maxSubQueries > len(candidates) {
		maxSubQueries = len(candidates)
	}
	return candidates[:maxSubQueries]
}

// gatherCandidates runs every sub-query through fusion concurrently and
// returns a rank-ordered, deduplicated URL list capped at maxSources.
func (o *Orchestrator) gatherCandidates(ctx context.Context, subQueries []string, maxSources int) []string {
	type hitSet struct {
		hits []models.SearchHit
	}
	results := make([]hitSet, len(subQueries))

	var wg sync.WaitGroup
	for i, q := range subQueries {
		wg.Add(1)
		go func(i int, q string) {
			defer wg.Done()
			hits, _ := o.fusion.Run(ctx, q)
			results[i] = hitSet{hits: hits}
		}(i, q)
	}
	wg.Wait()

	seen := make(map[string]bool)
	var ordered []models.SearchHit
	for _, rs := range results {
		for _, h := range rs.hits {
			fp := models.Fingerprint(h.URL)
			if seen[fp] {
				continue
			}
			seen[fp] = true
			ordered = append(ordered, h)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Score > ordered[j].Score })

	if len(ordered) > maxSources {
		ordered = ordered[:maxSources]
	}
	urls := make([]string, len(ordered))
	for i, h := range ordered {
		urls[i] = h.URL
	}
	return urls
}

// scrapeRound resolves each URL concurrently (bounded by MaxConcurrent)
// through the Escalation Controller, semantic-shaving is applied later by
// the caller against the original query.
func (o *Orchestrator) scrapeRound(ctx context.Context, urls []string, req models.ResearchRequest, policy models.RenderPolicy, visited map[string]bool, warnings *[]string) []scrapedPage {
	var toFetch []string
	for _, u := range urls {
		if !visited[u] {
			visited[u] = true
			toFetch = append(toFetch, u)
		}
	}
	if len(toFetch) == 0 {
		return nil
	}

	sem := make(chan struct{}, req.MaxConcurrent)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var pages []scrapedPage

	for _, u := range toFetch {
		wg.Add(1)
		sem <- struct{}{}
		go func(u string) {
			defer wg.Done()
			defer func() { <-sem }()

			outcome, err := o.controller.Resolve(ctx, u, policy, req.Query, false)
			if err != nil {
				slog.Warn("research: scrape failed", "url", u, "error", err)
				mu.Lock()
				*warnings = append(*warnings, fmt.Sprintf("failed to fetch %s: %v", u, err))
				mu.Unlock()
				return
			}
			if outcome.NeedHITL || outcome.Record == nil {
				mu.Lock()
				*warnings = append(*warnings, fmt.Sprintf("%s requires interactive sign-in, skipped", u))
				mu.Unlock()
				return
			}

			mu.Lock()
			pages = append(pages, scrapedPage{url: u, record: outcome.Record})
			mu.Unlock()
		}(u)
	}
	wg.Wait()

	return pages
}

// nextHopLinks collects unvisited, same-page-recommended outbound links
// from the prior round's pages, capped to prevent runaway fetching.
func nextHopLinks(pages []scrapedPage, visited map[string]bool, maxLinks int) []string {
	var links []string
	seen := make(map[string]bool)
	for _, p := range pages {
		if p.record == nil {
			continue
		}
		for _, l := range p.record.Links {
			if l.Href == "" || visited[l.Href] || seen[l.Href] {
				continue
			}
			seen[l.Href] = true
			links = append(links, l.Href)
			if len(links) >= maxLinks {
				return links
			}
		}
	}
	return links
}

// shaveAndCollect runs the Relevance Filter against the original query
// for every scraped page (spec.md §4.13 step 4), clips to
// maxCharsPerSource, and returns the surviving chunks plus the full URL
// list in scrape order.
func shaveAndCollect(pages []scrapedPage, query string, maxCharsPerSource int, threshold float64, semanticShave bool) (chunks []string, urls []string) {
	for _, p := range pages {
		if p.record == nil {
			continue
		}
		urls = append(urls, p.url)

		result := relevance.Filter(p.record, query, maxCharsPerSource, semanticShave)
		if threshold > 0 && !result.Bypassed && p.record.ExtractionScore < threshold {
			continue
		}

		text := strings.Join(result.Paragraphs, "\n\n")
		if len(text) > maxCharsPerSource {
			text = text[:maxCharsPerSource]
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		chunks = append(chunks, fmt.Sprintf("Source: %s\n%s", p.url, text))
	}
	return chunks, urls
}

func (o *Orchestrator) synthesize(ctx context.Context, query string, chunks []string, warnings []string) ([]string, []string) {
	if len(chunks) == 0 {
		return nil, warnings
	}
	params := llm.SynthesisParams{
		APIKey:    o.cfg.LLMAPIKey,
		Model:     o.cfg.LLMModel,
		BaseURL:   o.cfg.LLMBaseURL,
		MaxTokens: o.cfg.SynthesisMaxTokens,
	}
	result, err := o.llmClient.Synthesize(ctx, query, chunks, params)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("LLM synthesis unavailable, falling back to extractive summary: %v", err))
		return nil, warnings
	}
	return splitFindings(result.Answer), warnings
}

// splitFindings breaks a synthesized answer into one finding per
// non-empty line, the shape key_findings expects.
func splitFindings(answer string) []string {
	var findings []string
	for _, line := range strings.Split(answer, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "-•* "))
		if line != "" {
			findings = append(findings, line)
		}
	}
	return findings
}

// extractiveSummary is the fallback path when LLM synthesis is disabled
// or failed: take the leading sentence of each surviving chunk as a
// heuristic finding, per spec.md §4.13 step 6.
func extractiveSummary(chunks []string, maxFindings int) []string {
	if maxFindings <= 0 {
		maxFindings = 8
	}
	var findings []string
	for _, c := range chunks {
		body := c
		if idx := strings.Index(c, "\n"); idx >= 0 {
			body = c[idx+1:]
		}
		sentence := firstSentence(body)
		if sentence == "" {
			continue
		}
		findings = append(findings, sentence)
		if len(findings) >= maxFindings {
			break
		}
	}
	return findings
}

func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	for _, sep := range []string{". ", "! ", "? ", "\n"} {
		if idx := strings.Index(text, sep); idx > 0 {
			return strings.TrimSpace(text[:idx+1])
		}
	}
	if len(text) > 280 {
		return text[:280]
	}
	return text
}

func (o *Orchestrator) logRun(ctx context.Context, query string, subQueries []string, urls []string) {
	if o.store == nil {
		return
	}
	var vector []float32
	if o.embedder != nil {
		if v, err := o.embedder.Embed(ctx, query); err == nil {
			vector = v
		}
	}
	hits := make([]models.SearchHit, len(urls))
	for i, u := range urls {
		hits[i] = models.SearchHit{URL: u}
	}
	o.store.LogSearch(ctx, query, hits, vector)
	_ = subQueries // sub-queries are surfaced in ResearchResult, not persisted separately
}
