package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/use-agent/searchscrape/internal/models"
)

// EmbedParams configures one call to an OpenAI-compatible /embeddings
// endpoint, the same BYOK shape as SynthesisParams.
type EmbedParams struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Embedder wraps Client with a fixed EmbedParams, satisfying the narrow
// Embed(ctx, text) ([]float32, error) shape that internal/escalation,
// internal/research, and internal/api/handler each declare locally.
type Embedder struct {
	client *Client
	params EmbedParams
}

// NewEmbedder returns a no-op-safe Embedder; Embed returns an error when
// BaseURL is empty so callers degrade to "memory recall disabled" rather
// than panicking.
func NewEmbedder(client *Client, params EmbedParams) *Embedder {
	return &Embedder{client: client, params: params}
}

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed vectorizes text via POST {base_url}/embeddings.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.params.BaseURL == "" {
		return nil, fmt.Errorf("llm: embedding base url not configured")
	}

	body, err := json.Marshal(embeddingRequest{Model: e.params.Model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("llm: marshal embedding request: %w", err)
	}

	endpoint := strings.TrimRight(e.params.BaseURL, "/") + "/embeddings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("llm: create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.params.APIKey)

	resp, err := e.client.httpClient.Do(req)
	if err != nil {
		return nil, models.NewLLMError(models.ErrCodeLLMFailure, "embedding request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.NewLLMError(models.ErrCodeLLMFailure, "failed to read embedding response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyLLMError(resp.StatusCode, respBody)
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, models.NewLLMError(models.ErrCodeLLMFailure, "failed to parse embedding response", err)
	}
	if len(parsed.Data) == 0 {
		return nil, models.NewLLMError(models.ErrCodeLLMFailure, "embedding response had no data", nil)
	}
	return parsed.Data[0].Embedding, nil
}
