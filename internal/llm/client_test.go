package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/searchscrape/internal/models"
)

func TestSynthesizeReturnsAnswerAndUsage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Widgets are configured via manifest [1]."}}],"usage":{"prompt_tokens":100,"completion_tokens":20,"total_tokens":120}}`))
	}))
	defer srv.Close()

	client := NewClient(nil)
	result, err := client.Synthesize(context.Background(), "how are widgets configured?", []string{"widgets use a declarative manifest"}, SynthesisParams{
		APIKey: "test-key", Model: "gpt-4o-mini", BaseURL: srv.URL,
	})

	require.NoError(t, err)
	assert.Contains(t, result.Answer, "manifest")
	assert.Equal(t, 120, result.Usage.TotalTokens)
}

func TestSynthesizeClassifiesAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key"}}`))
	}))
	defer srv.Close()

	client := NewClient(nil)
	_, err := client.Synthesize(context.Background(), "q", nil, SynthesisParams{BaseURL: srv.URL})

	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok)
	assert.Equal(t, models.ErrCodeLLMAuthFailure, appErr.Code)
}

func TestSynthesizeClassifiesRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	client := NewClient(nil)
	_, err := client.Synthesize(context.Background(), "q", nil, SynthesisParams{BaseURL: srv.URL})

	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok)
	assert.Equal(t, models.ErrCodeLLMRateLimited, appErr.Code)
}
