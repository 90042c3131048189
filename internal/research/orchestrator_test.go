package research

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/searchscrape/internal/blockdetect"
	"github.com/use-agent/searchscrape/internal/cache"
	"github.com/use-agent/searchscrape/internal/config"
	"github.com/use-agent/searchscrape/internal/escalation"
	"github.com/use-agent/searchscrape/internal/extract"
	"github.com/use-agent/searchscrape/internal/models"
)

type stubFusion struct {
	hitsByQuery map[string][]models.SearchHit
}

func (s *stubFusion) Run(_ context.Context, query string) ([]models.SearchHit, []string) {
	return s.hitsByQuery[query], nil
}

type stubFetcher struct {
	byURL map[string]*models.FetchResponse
}

func (s *stubFetcher) Fetch(_ context.Context, req models.FetchRequest) (*models.FetchResponse, error) {
	if resp, ok := s.byURL[req.URL]; ok {
		return resp, nil
	}
	return &models.FetchResponse{Status: 200, Body: []byte("<html><body><p>empty</p></body></html>"), FinalURL: req.URL}, nil
}

const longParagraph = `Widgets are configured through a declarative manifest that governs every
downstream stage of the build pipeline, and operators are expected to
understand the manifest schema before promoting any change to production
traffic. This paragraph exists purely to push the word count comfortably
past the extraction score threshold; it stays short enough that the
relevance filter passes it through unscored.`

func newTestOrchestrator(t *testing.T, fusion Fusion, fetcher *stubFetcher, cfg config.DeepResearchConfig) *Orchestrator {
	t.Helper()
	detector := blockdetect.NewDetector(config.BlockDetectConfig{})
	c := cache.New(config.CacheConfig{ShardCount: 2})
	extractor := extract.NewExtractor(config.ExtractConfig{})
	controller := escalation.New(config.Config{}, fetcher, nil, nil, detector, nil, c, nil, extractor, nil)
	return New(cfg, fusion, controller, nil, nil, nil)
}

func TestRunReturnsExtractiveSummaryWithoutSynthesis(t *testing.T) {
	fusion := &stubFusion{hitsByQuery: map[string][]models.SearchHit{
		"widgets": {{URL: "https://example.com/widgets", Score: 0.9}},
	}}
	fetcher := &stubFetcher{byURL: map[string]*models.FetchResponse{
		"https://example.com/widgets": {
			Status: 200,
			Body:   []byte(`<html><head><title>Widgets</title></head><body><article><h1>Widgets</h1><p>` + longParagraph + `</p></article></body></html>`),
			FinalURL: "https://example.com/widgets",
		},
	}}
	orch := newTestOrchestrator(t, fusion, fetcher, config.DeepResearchConfig{MaxSubQueries: 1, MaxHops: 1})

	result, err := orch.Run(context.Background(), models.ResearchRequest{Query: "widgets", Depth: 1, MaxSources: 5, MaxConcurrent: 2})
	require.NoError(t, err)
	assert.Contains(t, result.AllURLs, "https://example.com/widgets")
	assert.NotEmpty(t, result.KeyFindings)
	assert.Equal(t, []string{"widgets"}, result.SubQueries)
}

func TestRunSkipsPagesNotInCandidateSet(t *testing.T) {
	fusion := &stubFusion{hitsByQuery: map[string][]models.SearchHit{}}
	orch := newTestOrchestrator(t, fusion, &stubFetcher{}, config.DeepResearchConfig{MaxSubQueries: 1})

	result, err := orch.Run(context.Background(), models.ResearchRequest{Query: "nothing found", Depth: 1, MaxSources: 5, MaxConcurrent: 2})
	require.NoError(t, err)
	assert.Empty(t, result.AllURLs)
	assert.NotEmpty(t, result.Warnings)
}

func TestExpandSubQueriesRespectsMax(t *testing.T) {
	sub := expandSubQueries("rust async runtimes", 2)
	assert.Len(t, sub, 2)
	assert.Equal(t, "rust async runtimes", sub[0])
}

func TestExtractiveSummaryCapsFindings(t *testing.T) {
	chunks := []string{
		"Source: a\nFirst finding sentence. More detail.",
		"Source: b\nSecond finding sentence. More detail.",
		"Source: c\nThird finding sentence. More detail.",
	}
	findings := extractiveSummary(chunks, 2)
	assert.Len(t, findings, 2)
	assert.Equal(t, "First finding sentence.", findings[0])
}
