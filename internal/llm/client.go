// Package llm is a lightweight OpenAI-compatible chat-completion client,
// kept near-verbatim from the teacher's llm/openai.go (a thin net/http
// client needs no third-party SDK) and repurposed from schema-guided
// extraction to Deep-Research Orchestrator synthesis — spec.md §1 puts
// "the OpenAI-compatible HTTP client used for final synthesis" out of
// scope as an external collaborator, meaning only the transport-shape
// wiring is ours to build, not a model provider integration.
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

// Client talks to any OpenAI-compatible /chat/completions endpoint.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a new LLM client. Pass nil to use http.DefaultClient.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{httpClient: httpClient}
}

// SynthesisParams holds per-request LLM configuration (BYOK, per
// deep_research.{llm_base_url, llm_api_key, llm_model}).
type SynthesisParams struct {
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
}

// SynthesisResult holds the LLM's narrative answer over the filtered
// research chunks.
type SynthesisResult struct {
	Answer string
	Usage  *models.LLMUsage
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Synthesize sends the original query plus the semantically-shaved source
// chunks gathered by the Deep-Research Orchestrator and returns a narrative
// answer. Callers are expected to fall back to a heuristic extractive
// summary when this returns an error or synthesis is disabled in config
// (spec.md §4.13 step 6) — Synthesize itself always attempts the call.
func (c *Client) Synthesize(ctx context.Context, query string, chunks []string, params SynthesisParams) (*SynthesisResult, error) {
	reqBody := chatRequest{
		Model: params.Model,
		Messages: []chatMessage{
			{Role: "system", Content: synthesisSystemPrompt()},
			{Role: "user", Content: buildSynthesisPrompt(query, chunks)},
		},
		Temperature: 0.2,
		MaxTokens:   params.MaxTokens,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := strings.TrimRight(params.BaseURL, "/") + "/chat/completions"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+params.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, models.NewLLMError(models.ErrCodeLLMFailure, "LLM request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.NewLLMError(models.ErrCodeLLMFailure, "failed to read LLM response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyLLMError(resp.StatusCode, respBody)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, models.NewLLMError(models.ErrCodeLLMFailure, "failed to parse LLM response", err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, models.NewLLMError(models.ErrCodeLLMFailure, "LLM returned no choices", nil)
	}

	return &SynthesisResult{
		Answer: strings.TrimSpace(chatResp.Choices[0].Message.Content),
		Usage: &models.LLMUsage{
			PromptTokens:     chatResp.Usage.PromptTokens,
			CompletionTokens: chatResp.Usage.CompletionTokens,
			TotalTokens:      chatResp.Usage.TotalTokens,
		},
	}, nil
}

func synthesisSystemPrompt() string {
	return `You are a research synthesis assistant. You will be given a research ` +
		`question and a set of source excerpts gathered from the web. Write a ` +
		`concise, well-organized answer grounded only in the excerpts provided. ` +
		`Cite sources by their bracketed index, e.g. [1]. Do not invent facts ` +
		`absent from the excerpts.`
}

func buildSynthesisPrompt(query string, chunks []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Research question: %s\n\nSources:\n", query)
	for i, chunk := range chunks {
		fmt.Fprintf(&b, "[%d] %s\n\n", i+1, chunk)
	}
	return b.String()
}

func classifyLLMError(statusCode int, body []byte) *models.AppError {
	var errResp chatErrorResponse
	msg := "LLM API error"
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		msg = errResp.Error.Message
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return models.NewLLMError(models.ErrCodeLLMAuthFailure, msg, nil)
	case statusCode == http.StatusTooManyRequests:
		return models.NewLLMError(models.ErrCodeLLMRateLimited, msg, nil)
	default:
		return models.NewLLMError(models.ErrCodeLLMFailure, fmt.Sprintf("LLM API returned %d: %s", statusCode, msg), nil)
	}
}
