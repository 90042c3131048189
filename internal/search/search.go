// Package search implements the Search Engine Adapters and Fusion stage:
// per-engine HTML result-page scraping, deduplication by URL fingerprint,
// cross-engine corroboration, and domain-authority weighting.
package search

import (
	"context"

	"github.com/use-agent/searchscrape/internal/models"
)

// Fetcher is the plain-fetch surface the search adapters need (satisfied by
// internal/fetch.Fetcher, with its proxy injection). Block detection and the
// browser retry of a blocked result page happen in Fusion, not here.
type Fetcher interface {
	Fetch(ctx context.Context, req models.FetchRequest) (*models.FetchResponse, error)
}

// Engine is one queryable search provider.
type Engine struct {
	Name       string
	BaseRankScore float64
	BuildURL   func(query string, page int) string
	ParseHTML  func(html, query string) []models.SearchHit
}
