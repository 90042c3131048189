package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/searchscrape/internal/config"
	"github.com/use-agent/searchscrape/internal/models"
)

func TestFetcherRespectsOutboundConcurrency(t *testing.T) {
	cfg := config.ScraperConfig{
		DefaultTimeout:      5 * time.Second,
		OutboundConcurrency: 1,
		PacingProfile:       "fast",
	}
	f := NewFetcher(cfg, nil, nil)
	assert.Len(t, f.sem, 0)
	assert.Equal(t, 1, cap(f.sem))
}

func TestFetcherDefaultsAppliedBeforeFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	cfg := config.ScraperConfig{PacingProfile: "fast", OutboundConcurrency: 4}
	f := NewFetcher(cfg, nil, nil)

	req := models.FetchRequest{URL: srv.URL}
	resp, err := f.Fetch(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "ok", string(resp.Body))
	assert.Equal(t, "http", resp.EngineName)
}
