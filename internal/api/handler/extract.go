package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/searchscrape/internal/escalation"
	"github.com/use-agent/searchscrape/internal/models"
	"github.com/use-agent/searchscrape/internal/schema"
)

// extractStructuredRequest is extract_structured's input: either a URL to
// scrape first, or raw content to project directly, plus the schema and
// Schema Extractor tuning knobs.
type extractStructuredRequest struct {
	URL     string        `json:"url,omitempty"`
	Content string        `json:"content,omitempty"`
	Schema  models.Schema `json:"schema"`

	Strict                   *bool   `json:"strict,omitempty"` // default true
	PlaceholderWordThreshold int     `json:"placeholder_word_threshold,omitempty"`
	PlaceholderEmptyRatio    float64 `json:"placeholder_empty_ratio,omitempty"`
}

// ExtractStructured returns a handler for POST /extract, wiring
// internal/schema.Project against either a freshly scraped record or a
// caller-supplied content blob ("url_or_content" in spec.md §6).
func ExtractStructured(controller *escalation.Controller) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req extractStructuredRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		if req.URL == "" && req.Content == "" {
			badRequest(c, "one of url or content is required")
			return
		}
		if len(req.Schema) == 0 {
			badRequest(c, "schema is required")
			return
		}

		var record *models.ExtractedRecord
		if req.URL != "" {
			outcome, err := controller.Resolve(c.Request.Context(), req.URL, models.RenderHTTP, "", false)
			if err != nil {
				fail(c, err)
				return
			}
			if outcome.NeedHITL {
				needHITL(c, outcome.SuggestedAct)
				return
			}
			record = outcome.Record
		} else {
			record = &models.ExtractedRecord{
				Paragraphs: []string{req.Content},
				WordCount:  len(strings.Fields(req.Content)),
			}
		}

		strict := true
		if req.Strict != nil {
			strict = *req.Strict
		}
		result := schema.Project(record, req.Schema, schema.Options{
			Strict:                   strict,
			PlaceholderWordThreshold: req.PlaceholderWordThreshold,
			PlaceholderEmptyRatio:    req.PlaceholderEmptyRatio,
		})
		ok(c, result)
	}
}
