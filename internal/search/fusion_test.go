package search

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/searchscrape/internal/blockdetect"
	"github.com/use-agent/searchscrape/internal/config"
	"github.com/use-agent/searchscrape/internal/models"
)

type fakeFetcher struct {
	bodies map[string]string
}

func (f *fakeFetcher) Fetch(_ context.Context, req models.FetchRequest) (*models.FetchResponse, error) {
	for engine, body := range f.bodies {
		if containsEngineHint(req.URL, engine) {
			return &models.FetchResponse{Status: 200, Body: []byte(body)}, nil
		}
	}
	return &models.FetchResponse{Status: 200, Body: []byte("")}, nil
}

func containsEngineHint(url, engine string) bool {
	switch engine {
	case "google":
		return strings.Contains(url, "google.com")
	case "bing":
		return strings.Contains(url, "bing.com")
	case "duckduckgo":
		return strings.Contains(url, "duckduckgo.com")
	case "brave":
		return strings.Contains(url, "brave.com")
	}
	return false
}

const googleResultHTML = `<html><body>
<div class="g">
<a href="https://docs.example.com/guide"><h3>Example Guide</h3></a>
<div class="VwiC3b">2026-01-02 — A thorough guide to widgets and how to configure them for production use.</div>
</div>
</body></html>`

const bingResultHTML = `<html><body>
<li class="b_algo">
<h2><a href="https://docs.example.com/guide">Example Guide - Bing</a></h2>
<div class="b_caption"><p>A thorough guide to widgets and how to configure them for production use, from Bing.</p></div>
</li>
</body></html>`

const duckduckgoResultHTML = `<html><body>
<div class="result">
<a class="result__a" href="https://docs.example.com/guide">Example Guide</a>
<a class="result__snippet">A thorough guide to widgets and how to configure them for production use.</a>
</div>
</body></html>`

func TestFusionDedupsAndBoostsCorroboratedHits(t *testing.T) {
	fetcher := &fakeFetcher{bodies: map[string]string{
		"google": googleResultHTML,
		"bing":   bingResultHTML,
	}}
	detector := blockdetect.NewDetector(config.BlockDetectConfig{})
	fusion := NewFusion(config.SearchConfig{
		Engines:         []string{"google", "bing"},
		PerEngineLimit:  10,
		DomainAuthority: map[string]float64{"example.com": 0.5},
	}, config.ExtractConfig{NeuroSiphonEnabled: true, SearchReranking: true}, fetcher, detector, nil)

	hits, unresponsive := fusion.Run(context.Background(), "widget configuration")

	require.Len(t, hits, 1)
	assert.ElementsMatch(t, []string{"google", "bing"}, hits[0].Engines)
	assert.Equal(t, "example.com", hits[0].Domain)
	assert.Equal(t, "docs", string(hits[0].SourceType))
	assert.Greater(t, hits[0].Score, 0.5)
	assert.Empty(t, unresponsive)
}

func TestFusionSkipsRerankingWhenToggleDisabled(t *testing.T) {
	// A single engine (duckduckgo, BaseRankScore 0.9) so neither the
	// corroboration boost nor the domain-authority boost is in play except
	// through scoreHit -- isolating whether reranking ran at all.
	fetcher := &fakeFetcher{bodies: map[string]string{"duckduckgo": duckduckgoResultHTML}}
	detector := blockdetect.NewDetector(config.BlockDetectConfig{})
	cfg := config.SearchConfig{
		Engines:         []string{"duckduckgo"},
		PerEngineLimit:  10,
		DomainAuthority: map[string]float64{"example.com": 0.5},
	}

	disabled := NewFusion(cfg, config.ExtractConfig{NeuroSiphonEnabled: true, SearchReranking: false}, fetcher, detector, nil)
	hits, _ := disabled.Run(context.Background(), "widget configuration")
	require.Len(t, hits, 1)
	assert.Equal(t, 0.9, hits[0].Score, "disabling reranking must leave the hit at its raw engine base rank")

	enabled := NewFusion(cfg, config.ExtractConfig{NeuroSiphonEnabled: true, SearchReranking: true}, fetcher, detector, nil)
	hits, _ = enabled.Run(context.Background(), "widget configuration")
	require.Len(t, hits, 1)
	assert.Greater(t, hits[0].Score, 0.9, "enabling reranking must apply the domain-authority boost on top of base rank")
}

func TestFusionStripsSnippetDatePrefix(t *testing.T) {
	fetcher := &fakeFetcher{bodies: map[string]string{"google": googleResultHTML}}
	detector := blockdetect.NewDetector(config.BlockDetectConfig{})
	fusion := NewFusion(config.SearchConfig{Engines: []string{"google"}, PerEngineLimit: 10}, config.ExtractConfig{NeuroSiphonEnabled: true, SearchReranking: true}, fetcher, detector, nil)

	hits, _ := fusion.Run(context.Background(), "widget")

	require.Len(t, hits, 1)
	assert.Equal(t, "2026-01-02", hits[0].PublishedAt)
	assert.NotContains(t, hits[0].Snippet, "2026-01-02")
}

func TestFusionDropsMicroSnippets(t *testing.T) {
	fetcher := &fakeFetcher{bodies: map[string]string{
		"google": `<html><body><div class="g"><a href="https://example.com/x"><h3>X</h3></a><div class="VwiC3b">ok</div></div></body></html>`,
	}}
	detector := blockdetect.NewDetector(config.BlockDetectConfig{})
	fusion := NewFusion(config.SearchConfig{Engines: []string{"google"}, PerEngineLimit: 10}, config.ExtractConfig{NeuroSiphonEnabled: true, SearchReranking: true}, fetcher, detector, nil)

	hits, _ := fusion.Run(context.Background(), "x")
	assert.Empty(t, hits)
}
