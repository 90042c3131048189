// Command search-mcp is a thin stdio MCP bridge in front of searchd's HTTP
// API, adapted from purify's cmd/purify-mcp/main.go. MCP transport itself is
// out of scope (see spec.md's exclusions); this exists only as external
// glue so an MCP-speaking agent can reach scrape_url, search_web, and
// deep_research without a bespoke client. It proxies requests synchronously
// since searchd's API (unlike purify's) has no async job/poll model to
// mirror.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func main() {
	apiURL := os.Getenv("SSCRAPE_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("SSCRAPE_API_KEY")

	s := server.NewMCPServer("searchscrape", "1.0.0", server.WithToolCapabilities(false))

	scrapeTool := mcp.NewTool("scrape_url",
		mcp.WithDescription("Scrape a single web page and return cleaned content."),
		mcp.WithString("url", mcp.Required(), mcp.Description("The URL to scrape")),
		mcp.WithString("output_format", mcp.Description("'text', 'json', or 'clean_json' (default)"), mcp.Enum("text", "json", "clean_json")),
		mcp.WithString("query", mcp.Description("Optional query to bias content relevance filtering toward")),
	)
	s.AddTool(scrapeTool, handleScrapeURL(apiURL, apiKey))

	searchTool := mcp.NewTool("search_web",
		mcp.WithDescription("Run a multi-engine web search and return ranked results."),
		mcp.WithString("query", mcp.Required(), mcp.Description("The search query")),
		mcp.WithNumber("max_results", mcp.Description("Maximum number of results to return (default: 10)")),
	)
	s.AddTool(searchTool, handleSearchWeb(apiURL, apiKey))

	researchTool := mcp.NewTool("deep_research",
		mcp.WithDescription("Run a multi-hop research loop over a question: search, scrape, synthesize, and follow links up to the given depth."),
		mcp.WithString("query", mcp.Required(), mcp.Description("The research question")),
		mcp.WithNumber("depth", mcp.Description("Scrape rounds, 1-3: the first plus depth-1 link-following hops (default: 1)")),
	)
	s.AddTool(researchTool, handleDeepResearch(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func apiPost(ctx context.Context, client *http.Client, apiURL, apiKey, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func handleScrapeURL(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 120 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		payload := map[string]any{
			"url":           url,
			"output_format": request.GetString("output_format", ""),
			"query":         request.GetString("query", ""),
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/scrape", payload)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var env apiEnvelope
		if err := json.Unmarshal(respBody, &env); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if !env.Success {
			if env.Error != nil {
				return mcp.NewToolResultError(fmt.Sprintf("[%s] %s", env.Error.Code, env.Error.Message)), nil
			}
			return mcp.NewToolResultError("scrape failed"), nil
		}

		return mcp.NewToolResultText(string(env.Data)), nil
	}
}

func handleSearchWeb(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 60 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError("query is required"), nil
		}

		payload := map[string]any{"query": query}
		if maxResults, ok := request.GetArguments()["max_results"]; ok {
			payload["max_results"] = maxResults
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/search", payload)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var env apiEnvelope
		if err := json.Unmarshal(respBody, &env); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if !env.Success {
			if env.Error != nil {
				return mcp.NewToolResultError(fmt.Sprintf("[%s] %s", env.Error.Code, env.Error.Message)), nil
			}
			return mcp.NewToolResultError("search failed"), nil
		}

		return mcp.NewToolResultText(string(env.Data)), nil
	}
}

func handleDeepResearch(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 600 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError("query is required"), nil
		}

		payload := map[string]any{"query": query}
		if depth, ok := request.GetArguments()["depth"]; ok {
			payload["depth"] = depth
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/research", payload)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var env apiEnvelope
		if err := json.Unmarshal(respBody, &env); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if !env.Success {
			if env.Error != nil {
				return mcp.NewToolResultError(fmt.Sprintf("[%s] %s", env.Error.Code, env.Error.Message)), nil
			}
			return mcp.NewToolResultError("research failed"), nil
		}

		return mcp.NewToolResultText(string(env.Data)), nil
	}
}
