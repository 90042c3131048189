package models

// OutputFormat selects scrape_url's response shape (spec.md §6).
type OutputFormat string

const (
	OutputText      OutputFormat = "text"
	OutputJSON      OutputFormat = "json"
	OutputCleanJSON OutputFormat = "clean_json"
)

// QualityMode trades extraction thoroughness for latency.
type QualityMode string

const (
	QualityFast       QualityMode = "fast"
	QualityBalanced   QualityMode = "balanced"
	QualityAggressive QualityMode = "aggressive"
)

// ScrapeOptions is the per-URL option set shared by scrape_url and every
// item of scrape_batch.
type ScrapeOptions struct {
	OutputFormat     OutputFormat `json:"output_format"`
	MaxChars         int          `json:"max_chars"`
	Query            string       `json:"query,omitempty"`
	StrictRelevance  bool         `json:"strict_relevance,omitempty"`
	ContentLinksOnly *bool        `json:"content_links_only,omitempty"` // default on, per spec.md
	MaxLinks         int          `json:"max_links,omitempty"`
	MaxHeadings      int          `json:"max_headings,omitempty"`
	MaxImages        int          `json:"max_images,omitempty"`
	IncludeRawHTML   bool         `json:"include_raw_html,omitempty"`
	UseProxy         bool         `json:"use_proxy,omitempty"`
	QualityMode      QualityMode  `json:"quality_mode,omitempty"`
	ExtractAppState  bool         `json:"extract_app_state,omitempty"`
	UserProfilePath  string       `json:"user_profile_path,omitempty"`
}

// Defaults normalizes a ScrapeOptions in place.
func (r *ScrapeOptions) Defaults() {
	if r.OutputFormat == "" {
		r.OutputFormat = OutputCleanJSON
	}
	if r.MaxChars <= 0 {
		r.MaxChars = 20000
	}
	if r.QualityMode == "" {
		r.QualityMode = QualityBalanced
	}
}

// LinksScoped reports whether link extraction should be confined to the
// main-content subtree, defaulting on when the caller doesn't say.
func (r *ScrapeOptions) LinksScoped() bool {
	if r.ContentLinksOnly == nil {
		return true
	}
	return *r.ContentLinksOnly
}

// ScrapeRequest is scrape_url's input.
type ScrapeRequest struct {
	URL string `json:"url"`
	ScrapeOptions
}

// ScrapeResponse is scrape_url's success shape, matching the JSON-key
// contract spec.md §6 lists verbatim.
type ScrapeResponse struct {
	URL               string      `json:"url"`
	Title             string      `json:"title"`
	CleanContent      string      `json:"clean_content,omitempty"`
	MetaDescription   string      `json:"meta_description,omitempty"`
	PublishedAt       string      `json:"published_at,omitempty"`
	WordCount         int         `json:"word_count"`
	ReadingTimeMin    int         `json:"reading_time_minutes"`
	CodeBlocks        []CodeBlock `json:"code_blocks,omitempty"`
	Links             []Link      `json:"links,omitempty"`
	Images            []Image     `json:"images,omitempty"`
	Headings          []Heading   `json:"headings,omitempty"`
	Domain            string      `json:"domain"`
	SourceType        SourceType  `json:"source_type"`
	ExtractionScore   float64     `json:"extraction_score"`
	Truncated         bool        `json:"truncated"`
	ActualChars       int         `json:"actual_chars"`
	MaxCharsLimit     int         `json:"max_chars_limit"`
	Warnings          []string    `json:"warnings,omitempty"`
	AuthWallReason    string      `json:"auth_wall_reason,omitempty"`
	AuthRiskScore     float64     `json:"auth_risk_score,omitempty"`
	EmbeddedStateJSON string      `json:"embedded_state_json,omitempty"`
	RawMarkdownURL    string      `json:"raw_markdown_url,omitempty"`
}

// ScrapeBatchRequest is scrape_batch's input: a shared option set applied to
// every URL, per spec.md §6 ("urls[], ...per-URL opts, max_concurrent").
type ScrapeBatchRequest struct {
	URLs          []string `json:"urls"`
	MaxConcurrent int      `json:"max_concurrent"`
	WebhookURL    string   `json:"webhook_url,omitempty"`
	ScrapeOptions
}

// Defaults normalizes a ScrapeBatchRequest in place.
func (r *ScrapeBatchRequest) Defaults() {
	if r.MaxConcurrent <= 0 {
		r.MaxConcurrent = 4
	}
	r.ScrapeOptions.Defaults()
}

// ScrapeBatchItem pairs one URL's outcome with its position in the batch.
type ScrapeBatchItem struct {
	URL      string          `json:"url"`
	Result   *ScrapeResponse `json:"result,omitempty"`
	NeedHITL bool            `json:"need_hitl,omitempty"`
	Error    *ErrorDetail    `json:"error,omitempty"`
}
