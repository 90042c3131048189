package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/searchscrape/internal/crawl"
	"github.com/use-agent/searchscrape/internal/escalation"
	"github.com/use-agent/searchscrape/internal/models"
	"github.com/use-agent/searchscrape/internal/webhook"
)

// CrawlWebsite returns a handler for POST /crawl, wiring the Escalation
// Controller into internal/crawl.Crawler through the ResolverFunc adapter
// and firing an optional completion webhook.
func CrawlWebsite(controller *escalation.Controller) gin.HandlerFunc {
	resolver := crawl.ResolverFunc(func(ctx context.Context, rawURL string, policy models.RenderPolicy, query string) (crawl.ResolveOutcome, error) {
		outcome, err := controller.Resolve(ctx, rawURL, policy, query, false)
		if err != nil {
			return crawl.ResolveOutcome{}, err
		}
		return crawl.ResolveOutcome{Record: outcome.Record, NeedHITL: outcome.NeedHITL}, nil
	})
	crawler := crawl.New(resolver)

	return func(c *gin.Context) {
		var req models.CrawlRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		req.Defaults()
		if req.StartURL == "" {
			badRequest(c, "start_url is required")
			return
		}

		result, err := crawler.Run(c.Request.Context(), req)
		if err != nil {
			if req.WebhookURL != "" {
				webhook.DeliverAsync(req.WebhookURL, req.WebhookSecret, &webhook.Event{
					Type: "crawl.failed",
					Data: map[string]string{"start_url": req.StartURL, "error": err.Error()},
				})
			}
			fail(c, err)
			return
		}

		if req.WebhookURL != "" {
			webhook.DeliverAsync(req.WebhookURL, req.WebhookSecret, &webhook.Event{
				Type: "crawl.completed",
				Data: result,
			})
		}
		ok(c, result)
	}
}
