package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/use-agent/searchscrape/internal/memory"
)

// researchHistoryRequest is research_history's input: a semantic query plus
// a result cap and similarity floor (spec.md §6).
type researchHistoryRequest struct {
	Query     string  `json:"query"`
	Limit     int     `json:"limit"`
	Threshold float64 `json:"threshold"`
}

// ResearchHistory returns a handler for POST /history, wrapping
// memory.Store.SearchHistory behind the same Embedder interface search.go
// uses for query embedding.
func ResearchHistory(store *memory.Store, embedder Embedder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req researchHistoryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		if req.Query == "" {
			badRequest(c, "query is required")
			return
		}
		if req.Limit <= 0 {
			req.Limit = 10
		}
		if req.Threshold <= 0 {
			req.Threshold = 0.5
		}
		if store == nil || embedder == nil {
			ok(c, []any{})
			return
		}

		vector, err := embedder.Embed(c.Request.Context(), req.Query)
		if err != nil {
			fail(c, err)
			return
		}
		results, err := store.SearchHistory(c.Request.Context(), vector, req.Limit, req.Threshold)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, results)
	}
}
