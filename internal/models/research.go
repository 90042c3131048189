package models

// ResearchRequest is deep_research's input (spec.md §6).
type ResearchRequest struct {
	Query              string  `json:"query"`
	Depth              int     `json:"depth"` // 1..3, number of scrape rounds: the first plus depth-1 link-following hops
	MaxSources         int     `json:"max_sources"`
	MaxCharsPerSource  int     `json:"max_chars_per_source"`
	MaxConcurrent      int     `json:"max_concurrent"`
	UseProxy           bool    `json:"use_proxy,omitempty"`
	RelevanceThreshold float64 `json:"relevance_threshold,omitempty"`
}

// Defaults clamps a ResearchRequest in place to spec.md's bounds.
func (r *ResearchRequest) Defaults() {
	if r.Depth <= 0 {
		r.Depth = 1
	}
	if r.Depth > 3 {
		r.Depth = 3
	}
	if r.MaxSources <= 0 {
		r.MaxSources = 8
	}
	if r.MaxCharsPerSource <= 0 {
		r.MaxCharsPerSource = 4000
	}
	if r.MaxConcurrent <= 0 {
		r.MaxConcurrent = 4
	}
}

// ResearchResult is deep_research's output.
type ResearchResult struct {
	KeyFindings     []string `json:"key_findings"`
	AllURLs         []string `json:"all_urls"`
	SubQueries      []string `json:"sub_queries"`
	Warnings        []string `json:"warnings"`
	TotalDurationMs int64    `json:"total_duration_ms"`
}
