package handler

import (
	"context"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/searchscrape/internal/escalation"
	"github.com/use-agent/searchscrape/internal/models"
	"github.com/use-agent/searchscrape/internal/payload"
	"github.com/use-agent/searchscrape/internal/relevance"
	"github.com/use-agent/searchscrape/internal/webhook"
)

// Scrape returns a handler for POST /scrape, delegating fetch/extract/cache
// to the Escalation Controller and applying the caller's presentation
// options (relevance filter, field caps, payload cap) at the handler layer,
// the same layering purify's handler/scrape.go uses for its own
// CleanOptions assembly.
func Scrape(controller *escalation.Controller) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		req.Defaults()
		if req.URL == "" {
			badRequest(c, "url is required")
			return
		}

		policy := models.RenderHTTP
		resp, hitl, suggestedAct, err := scrapeOne(c.Request.Context(), controller, req.ScrapeOptions, req.URL, policy)
		if err != nil {
			fail(c, err)
			return
		}
		if hitl {
			needHITL(c, suggestedAct)
			return
		}
		ok(c, resp)
	}
}

// ScrapeBatch returns a handler for POST /scrape/batch: bounded-concurrency
// fan-out over scrapeOne, with an optional webhook notification on
// completion (purify webhook.go's batch.completed event).
func ScrapeBatch(controller *escalation.Controller) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ScrapeBatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		req.Defaults()
		if len(req.URLs) == 0 {
			badRequest(c, "urls is required")
			return
		}

		items := make([]models.ScrapeBatchItem, len(req.URLs))
		sem := make(chan struct{}, req.MaxConcurrent)
		var wg sync.WaitGroup
		for i, u := range req.URLs {
			wg.Add(1)
			sem <- struct{}{}
			go func(i int, u string) {
				defer wg.Done()
				defer func() { <-sem }()
				resp, needHITL, _, err := scrapeOne(c.Request.Context(), controller, req.ScrapeOptions, u, models.RenderHTTP)
				item := models.ScrapeBatchItem{URL: u}
				switch {
				case err != nil:
					item.Error = toErrorDetail(err)
				case needHITL:
					item.NeedHITL = true
				default:
					item.Result = resp
				}
				items[i] = item
			}(i, u)
		}
		wg.Wait()

		if req.WebhookURL != "" {
			webhook.DeliverAsync(req.WebhookURL, "", &webhook.Event{Type: "batch.completed", Data: items})
		}

		ok(c, items)
	}
}

// scrapeOne resolves one URL through the Controller and applies the
// caller's presentation options to the resulting record.
func scrapeOne(ctx context.Context, controller *escalation.Controller, opts models.ScrapeOptions, rawURL string, policy models.RenderPolicy) (*models.ScrapeResponse, bool, string, error) {
	outcome, err := controller.Resolve(ctx, rawURL, policy, opts.Query, opts.ExtractAppState)
	if err != nil {
		return nil, false, "", err
	}
	if outcome.NeedHITL {
		return nil, true, outcome.SuggestedAct, nil
	}

	record := outcome.Record
	extractCfg := controller.ExtractConfig()
	semanticShave := extractCfg.NeuroSiphonEnabled && extractCfg.SemanticShave
	if opts.Query != "" {
		filtered := relevance.Filter(record, opts.Query, opts.MaxChars, semanticShave)
		record.Paragraphs = filtered.Paragraphs
		if !filtered.Bypassed {
			record.CleanContent = joinParagraphs(filtered.Paragraphs)
		}
		if filtered.Truncated {
			record.Warnings = append(record.Warnings, "clean_json_truncated")
		}
	}

	if opts.LinksScoped() && opts.MaxLinks > 0 && len(record.Links) > opts.MaxLinks {
		record.Links = record.Links[:opts.MaxLinks]
	}
	if opts.MaxHeadings > 0 && len(record.Headings) > opts.MaxHeadings {
		record.Headings = record.Headings[:opts.MaxHeadings]
	}
	if opts.MaxImages > 0 && len(record.Images) > opts.MaxImages {
		record.Images = record.Images[:opts.MaxImages]
	}
	if !opts.IncludeRawHTML {
		record.EmbeddedStateJSON = ""
	}

	capResult, err := payload.Cap(record, opts.MaxChars)
	if err != nil {
		return nil, false, "", err
	}

	resp := &models.ScrapeResponse{
		URL:               record.URL,
		Title:             record.Title,
		CleanContent:      record.CleanContent,
		MetaDescription:   record.Meta.Description,
		PublishedAt:       record.Meta.PublishedAt,
		WordCount:         record.WordCount,
		ReadingTimeMin:    record.ReadingTimeMin,
		CodeBlocks:        record.CodeBlocks,
		Links:             record.Links,
		Images:            record.Images,
		Headings:          record.Headings,
		Domain:            record.Domain,
		SourceType:        record.SourceType,
		ExtractionScore:   record.ExtractionScore,
		Truncated:         capResult.Truncated,
		ActualChars:       capResult.ActualChars,
		MaxCharsLimit:     opts.MaxChars,
		Warnings:          append(record.Warnings, capResult.Warnings...),
		EmbeddedStateJSON: record.EmbeddedStateJSON,
	}
	return resp, false, "", nil
}

func joinParagraphs(paragraphs []string) string {
	out := ""
	for i, p := range paragraphs {
		if i > 0 {
			out += "\n\n"
		}
		out += p
	}
	return out
}

func toErrorDetail(err error) *models.ErrorDetail {
	if appErr, ok := err.(*models.AppError); ok {
		return appErr.ToDetail()
	}
	return &models.ErrorDetail{Code: models.ErrCodeInternal, Message: err.Error()}
}
