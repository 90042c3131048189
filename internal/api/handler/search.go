package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/searchscrape/internal/escalation"
	"github.com/use-agent/searchscrape/internal/memory"
	"github.com/use-agent/searchscrape/internal/models"
)

// Fusion is the subset of internal/search.Fusion's surface this handler
// needs.
type Fusion interface {
	Run(ctx context.Context, query string) ([]models.SearchHit, []string)
}

// Embedder turns text into a vector for memory recall/persistence;
// satisfied by whatever embedding client the caller wires in (embedding
// model inference itself is out of scope, per spec.md §1).
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// recentDuplicateWindowHours bounds how far back search_web looks for a
// query-equivalent prior memory entry (search or scrape) before surfacing a non-blocking
// duplicate_warning, per spec.md scenario S4.
const recentDuplicateWindowHours = 24

// SearchWeb returns a handler for POST /search.
func SearchWeb(fusion Fusion, store *memory.Store, embedder Embedder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		req.Defaults()
		if req.Query == "" {
			badRequest(c, "query is required")
			return
		}

		resp, vector := runSearch(c.Request.Context(), fusion, store, embedder, req)
		ok(c, resp)
		logSearchMemory(c.Request.Context(), store, req.Query, resp.Results, vector)
	}
}

// SearchStructured returns a handler for POST /search/structured: search_web
// plus inlined scraped summaries for the top results, via the Escalation
// Controller.
func SearchStructured(fusion Fusion, store *memory.Store, embedder Embedder, controller *escalation.Controller, inlineCount int) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		req.Defaults()
		if req.Query == "" {
			badRequest(c, "query is required")
			return
		}

		resp, vector := runSearch(c.Request.Context(), fusion, store, embedder, req)

		if inlineCount <= 0 {
			inlineCount = 3
		}
		var scraped []models.ScrapedSummary
		if controller != nil {
			limit := inlineCount
			if limit > len(resp.Results) {
				limit = len(resp.Results)
			}
			for _, hit := range resp.Results[:limit] {
				outcome, err := controller.Resolve(c.Request.Context(), hit.URL, models.RenderHTTP, req.Query, false)
				if err != nil || outcome.Record == nil {
					continue
				}
				summary := outcome.Record.CleanContent
				if len(summary) > 500 {
					summary = summary[:500]
				}
				scraped = append(scraped, models.ScrapedSummary{URL: hit.URL, Title: outcome.Record.Title, Summary: summary})
			}
		}

		c.JSON(http.StatusOK, models.APIResponse{
			Success: true,
			Data:    models.StructuredSearchResponse{SearchResponse: resp, Scraped: scraped},
		})
		logSearchMemory(c.Request.Context(), store, req.Query, resp.Results, vector)
	}
}

func runSearch(ctx context.Context, fusion Fusion, store *memory.Store, embedder Embedder, req models.SearchRequest) (models.SearchResponse, []float32) {
	hits, unresponsive := fusion.Run(ctx, req.Query)
	if req.MaxResults > 0 && len(hits) > req.MaxResults {
		hits = hits[:req.MaxResults]
	}

	resp := models.SearchResponse{
		Results: hits,
		Extras:  models.SearchExtras{UnresponsiveEngines: unresponsive},
	}

	var vector []float32
	if store != nil && embedder != nil {
		if v, err := embedder.Embed(ctx, req.Query); err == nil {
			vector = v
			if dup, found, err := store.FindRecentDuplicate(ctx, vector, recentDuplicateWindowHours); err == nil && found {
				resp.DuplicateWarning = &models.DuplicateWarning{
					Query:      dup.Entry.QueryOrURL,
					LoggedAt:   dup.Entry.Timestamp,
					Similarity: dup.Similarity,
				}
			}
		}
	}

	return resp, vector
}

func logSearchMemory(ctx context.Context, store *memory.Store, query string, hits []models.SearchHit, vector []float32) {
	if store == nil || vector == nil {
		return
	}
	store.LogSearch(ctx, query, hits, vector)
}
