package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/use-agent/searchscrape/internal/models"
	"github.com/use-agent/searchscrape/internal/research"
)

// DeepResearch returns a handler for POST /research.
func DeepResearch(orchestrator *research.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ResearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		req.Defaults()
		if req.Query == "" {
			badRequest(c, "query is required")
			return
		}

		result, err := orchestrator.Run(c.Request.Context(), req)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, result)
	}
}
