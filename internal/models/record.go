package models

import "math"

// Heading is a single heading extracted from the main-content subtree.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Link is an absolute-URL anchor discovered during extraction.
type Link struct {
	Href string `json:"href"`
	Text string `json:"text"`
}

// Image is an absolute-URL image discovered during extraction.
type Image struct {
	Src string `json:"src"`
	Alt string `json:"alt,omitempty"`
}

// CodeBlock is a fenced/<pre><code> block, byte-for-byte faithful to source.
type CodeBlock struct {
	Language string `json:"language,omitempty"`
	Code     string `json:"code"`
	Context  string `json:"context,omitempty"`
}

// PageMeta holds page-level metadata extracted from <head>.
type PageMeta struct {
	Description string `json:"description,omitempty"`
	Keywords    string `json:"keywords,omitempty"`
	Canonical   string `json:"canonical,omitempty"`
	OGTitle     string `json:"og_title,omitempty"`
	OGImage     string `json:"og_image,omitempty"`
	OGType      string `json:"og_type,omitempty"`
	Author      string `json:"author,omitempty"`
	PublishedAt string `json:"published_at,omitempty"` // ISO-8601 or absent
	Language    string `json:"language,omitempty"`
}

// TokenInfo mirrors the teacher's before/after token-savings report,
// carried forward as ambient NeuroSiphon observability.
type TokenInfo struct {
	OriginalEstimate int     `json:"original_estimate"`
	CleanedEstimate  int     `json:"cleaned_estimate"`
	SavingsPercent   float64 `json:"savings_percent"`
}

// ExtractedRecord is the normalized output of the HTML Extractor.
type ExtractedRecord struct {
	URL               string      `json:"url"`
	Title             string      `json:"title"`
	Meta              PageMeta    `json:"meta"`
	Headings          []Heading   `json:"headings"`
	Paragraphs        []string    `json:"paragraphs"`
	CleanContent      string      `json:"clean_content"`
	CodeBlocks        []CodeBlock `json:"code_blocks"`
	Links             []Link      `json:"links"`
	Images            []Image     `json:"images"`
	EmbeddedStateJSON string      `json:"embedded_state_json,omitempty"`
	WordCount         int         `json:"word_count"`
	ReadingTimeMin    int         `json:"reading_time_min"`
	Domain            string      `json:"domain"`
	SourceType        SourceType  `json:"source_type"`
	ExtractionScore   float64     `json:"extraction_score"`
	Warnings          []string    `json:"warnings"`
	Tokens            TokenInfo   `json:"tokens"`
}

// SourceType is the closed taxonomy from spec.md §6.
type SourceType string

const (
	SourceDocs    SourceType = "docs"
	SourceRepo    SourceType = "repo"
	SourceBlog    SourceType = "blog"
	SourceVideo   SourceType = "video"
	SourceQA      SourceType = "qa"
	SourcePackage SourceType = "package"
	SourceNews    SourceType = "news"
	SourceGaming  SourceType = "gaming"
	SourceOther   SourceType = "other"
)

// ReadingTimeMinutes applies the ceil(word_count/200) rule.
func ReadingTimeMinutes(wordCount int) int {
	if wordCount <= 0 {
		return 0
	}
	return int(math.Ceil(float64(wordCount) / 200.0))
}

// ExtractionScoreInputs carries the boolean/range signals the score formula
// (spec.md §4.5) is computed from.
type ExtractionScoreInputs struct {
	WordCount         int
	HasPublishedAt    bool
	HasCodeBlocks     bool
	HasHeadings       bool
}

// ExtractionScore implements:
//
//	score = 0.3*[word_count >= 50] + 0.2*[published_at present]
//	      + 0.2*[code_blocks non-empty] + 0.15*[headings non-empty]
//	      + 0.15*[500 <= word_count <= 2000]
func ExtractionScore(in ExtractionScoreInputs) float64 {
	var score float64
	if in.WordCount >= 50 {
		score += 0.3
	}
	if in.HasPublishedAt {
		score += 0.2
	}
	if in.HasCodeBlocks {
		score += 0.2
	}
	if in.HasHeadings {
		score += 0.15
	}
	if in.WordCount >= 500 && in.WordCount <= 2000 {
		score += 0.15
	}
	if score > 1 {
		score = 1
	}
	return score
}
