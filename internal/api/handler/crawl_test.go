package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/searchscrape/internal/models"
)

func TestCrawlWebsiteSinglePageScope(t *testing.T) {
	controller := newTestController(t, &fakeFetcher{body: articleHTML})
	handler := CrawlWebsite(controller)

	c, rec := newTestContext(t)
	body, _ := json.Marshal(map[string]any{"start_url": "https://example.com/widgets", "scope": "page"})
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/crawl", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	handler(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var env models.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.True(t, env.Success)

	raw, _ := json.Marshal(env.Data)
	var result models.CrawlResult
	require.NoError(t, json.Unmarshal(raw, &result))
	require.Len(t, result.Pages, 1)
	assert.Equal(t, 1, result.Stats.PagesVisited)
}

func TestCrawlWebsiteRejectsMissingStartURL(t *testing.T) {
	controller := newTestController(t, &fakeFetcher{body: articleHTML})
	handler := CrawlWebsite(controller)

	c, rec := newTestContext(t)
	body, _ := json.Marshal(map[string]any{})
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/crawl", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	handler(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
