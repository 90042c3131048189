// Package schema implements the Schema Extractor: projects an
// ExtractedRecord onto a caller-supplied declarative Schema with strict
// shape semantics and placeholder-page detection.
package schema

import (
	"strings"

	"github.com/use-agent/searchscrape/internal/models"
)

const (
	defaultPlaceholderWordThreshold = 10
	defaultPlaceholderEmptyRatio    = 0.9
)

// Options controls strictness and placeholder-detection thresholds.
type Options struct {
	Strict                  bool // default true
	PlaceholderWordThreshold int  // default 10
	PlaceholderEmptyRatio    float64 // default 0.9
}

func (o Options) withDefaults() Options {
	if o.PlaceholderWordThreshold == 0 {
		o.PlaceholderWordThreshold = defaultPlaceholderWordThreshold
	}
	if o.PlaceholderEmptyRatio == 0 {
		o.PlaceholderEmptyRatio = defaultPlaceholderEmptyRatio
	}
	return o
}

// Result is the projected field values plus the confidence/warning signals
// spec.md §4.7 requires.
type Result struct {
	Fields     map[string]any
	Confidence float64
	Warnings   []string
}

// Project extracts record's content against schema, honoring strict shape
// semantics: missing array fields become [], missing scalars become nil,
// and metadata keys (_title, _url) are suppressed since an explicit schema
// is present. Callers constructing Options from a request should default
// Strict to true when the caller didn't specify it; Project itself takes
// Strict at face value since a zero-value bool can't distinguish "unset"
// from "explicitly false".
func Project(record *models.ExtractedRecord, sch models.Schema, opts Options) Result {
	opts = opts.withDefaults()

	fields := make(map[string]any, len(sch))
	var nullScalars, totalScalars int

	for name, spec := range sch {
		value := extractField(record, name, spec)
		fields[name] = value

		if spec.Kind == models.FieldScalar {
			totalScalars++
			if value == nil {
				nullScalars++
			}
		}
	}

	var warnings []string
	confidence := 1.0

	if isRawMediaURL(record.URL) {
		warnings = append(warnings, "raw_markdown_url")
		confidence = 0.2
	}

	if isPlaceholderPage(record, totalScalars, nullScalars, opts) {
		confidence = 0.0
		warnings = append(warnings, "placeholder_page")
	}

	return Result{Fields: fields, Confidence: confidence, Warnings: warnings}
}

// isPlaceholderPage implements spec.md §4.7's two-part guard: the page must
// look too short AND have a scalar-field null ratio at or above the
// threshold. A schema consisting only of array fields has totalScalars==0
// and can never trigger this (the ratio is undefined, so it is treated as
// not met).
func isPlaceholderPage(record *models.ExtractedRecord, totalScalars, nullScalars int, opts Options) bool {
	tooShort := record.WordCount < opts.PlaceholderWordThreshold || nonEmptyLineCount(record.CleanContent) <= 1
	if !tooShort || totalScalars == 0 {
		return false
	}
	ratio := float64(nullScalars) / float64(totalScalars)
	return ratio >= opts.PlaceholderEmptyRatio
}

func nonEmptyLineCount(content string) int {
	count := 0
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) != "" {
			count++
		}
	}
	return count
}

// extractField resolves one schema field from the record using direct
// well-known-field aliases, falling back to the pattern library for
// lower-confidence scalar guesses.
func extractField(record *models.ExtractedRecord, name string, spec models.FieldSpec) any {
	switch spec.Kind {
	case models.FieldArray:
		if v := wellKnownArray(record, name); v != nil {
			return v
		}
		return []any{}
	default:
		if v, ok := wellKnownScalar(record, name); ok {
			return v
		}
		if v, ok := patternMatch(record, spec); ok {
			return v
		}
		return nil
	}
}

func wellKnownArray(record *models.ExtractedRecord, name string) []any {
	switch strings.ToLower(name) {
	case "headings":
		out := make([]any, len(record.Headings))
		for i, h := range record.Headings {
			out[i] = h.Text
		}
		return out
	case "links":
		out := make([]any, len(record.Links))
		for i, l := range record.Links {
			out[i] = l.Href
		}
		return out
	case "images":
		out := make([]any, len(record.Images))
		for i, img := range record.Images {
			out[i] = img.Src
		}
		return out
	case "code_blocks", "codeblocks":
		out := make([]any, len(record.CodeBlocks))
		for i, c := range record.CodeBlocks {
			out[i] = c.Code
		}
		return out
	case "paragraphs":
		out := make([]any, len(record.Paragraphs))
		for i, p := range record.Paragraphs {
			out[i] = p
		}
		return out
	default:
		return nil
	}
}

func wellKnownScalar(record *models.ExtractedRecord, name string) (any, bool) {
	switch strings.ToLower(name) {
	case "title":
		if record.Title != "" {
			return record.Title, true
		}
	case "url":
		if record.URL != "" {
			return record.URL, true
		}
	case "description", "meta_description":
		if record.Meta.Description != "" {
			return record.Meta.Description, true
		}
	case "author":
		if record.Meta.Author != "" {
			return record.Meta.Author, true
		}
	case "published_at":
		if record.Meta.PublishedAt != "" {
			return record.Meta.PublishedAt, true
		}
	case "domain":
		if record.Domain != "" {
			return record.Domain, true
		}
	case "word_count":
		return record.WordCount, true
	}
	return nil, false
}
