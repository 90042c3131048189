package models

// CrawlRequest is the crawl_website operation's input (spec.md §6).
type CrawlRequest struct {
	StartURL      string `json:"start_url"`
	MaxDepth      int    `json:"max_depth"`
	MaxPages      int    `json:"max_pages"`
	MaxConcurrent int    `json:"max_concurrent"`
	MaxChars      int    `json:"max_chars"`

	// Scope controls which discovered links are followed: "domain" (exact
	// hostname match), "subdomain" (same registrable domain), "page"
	// (starting URL only, no link-following). Default: "subdomain".
	Scope           string   `json:"scope,omitempty"`
	ExcludePatterns []string `json:"exclude_patterns,omitempty"`

	WebhookURL    string `json:"webhook_url,omitempty"`
	WebhookSecret string `json:"webhook_secret,omitempty"`
}

// Defaults clamps a CrawlRequest in place to spec.md's bounds.
func (r *CrawlRequest) Defaults() {
	if r.MaxDepth <= 0 {
		r.MaxDepth = 3
	}
	if r.MaxPages <= 0 {
		r.MaxPages = 100
	}
	if r.MaxConcurrent <= 0 {
		r.MaxConcurrent = 4
	}
	if r.Scope == "" {
		r.Scope = "subdomain"
	}
}

// CrawlStats summarizes one crawl_website run.
type CrawlStats struct {
	PagesVisited      int   `json:"pages_visited"`
	PagesSkipped      int   `json:"pages_skipped"`
	DuplicatesSkipped int   `json:"duplicates_skipped"`
	DurationMs        int64 `json:"duration_ms"`
}

// CrawlResult is crawl_website's output.
type CrawlResult struct {
	Pages []*ExtractedRecord `json:"pages"`
	Stats CrawlStats         `json:"stats"`
}
