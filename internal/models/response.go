package models

// APIResponse is the transport-level envelope wrapping every operation's
// result, generalizing purify's single-shape ScrapeResponse (Success +
// Content + Metadata) into one envelope reused across this module's much
// wider operation set (search_web, crawl_website, deep_research, ...),
// each with its own Data shape.
type APIResponse struct {
	Success bool         `json:"success"`
	Data    any          `json:"data,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

// NeedHITLResponse is scrape_url/crawl_website's alternate shape when a
// page requires interactive sign-in (spec.md §6).
type NeedHITLResponse struct {
	Status          string `json:"status"`
	SuggestedAction string `json:"suggested_action"`
}

// HealthResponse reports liveness and resource pressure for GET /health,
// generalizing purify's browser-page-pool-only HealthResponse to this
// module's two long-lived pools (browser pages, proxies).
type HealthResponse struct {
	Status        string `json:"status"` // "healthy" or "degraded"
	Uptime        string `json:"uptime"`
	Version       string `json:"version"`
	BrowserActive int    `json:"browser_active_pages"`
	ProxyTotal    int    `json:"proxy_total"`
	ProxyHealthy  int    `json:"proxy_healthy"`
}
