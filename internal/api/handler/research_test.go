package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/searchscrape/internal/config"
	"github.com/use-agent/searchscrape/internal/llm"
	"github.com/use-agent/searchscrape/internal/models"
	"github.com/use-agent/searchscrape/internal/research"
)

func TestDeepResearchRunsHeuristicSynthesis(t *testing.T) {
	controller := newTestController(t, &fakeFetcher{body: articleHTML})
	fusion := &fakeFusion{hits: []models.SearchHit{{URL: "https://example.com/widgets"}}}
	orchestrator := research.New(config.DeepResearchConfig{}, fusion, controller, llm.NewClient(nil), nil, nil)
	handler := DeepResearch(orchestrator)

	c, rec := newTestContext(t)
	body, _ := json.Marshal(map[string]any{"query": "how are widgets configured", "depth": 1})
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/research", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	handler(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var env models.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.True(t, env.Success)

	raw, _ := json.Marshal(env.Data)
	var result models.ResearchResult
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.NotEmpty(t, result.AllURLs)
}

func TestDeepResearchRequiresQuery(t *testing.T) {
	controller := newTestController(t, &fakeFetcher{body: articleHTML})
	orchestrator := research.New(config.DeepResearchConfig{}, &fakeFusion{}, controller, llm.NewClient(nil), nil, nil)
	handler := DeepResearch(orchestrator)

	c, rec := newTestContext(t)
	body, _ := json.Marshal(map[string]any{})
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/research", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	handler(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
