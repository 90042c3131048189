package relevance

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/use-agent/searchscrape/internal/models"
)

func longRecord(paragraphs []string) *models.ExtractedRecord {
	wordCount := 0
	for _, p := range paragraphs {
		wordCount += len(strings.Fields(p))
	}
	if wordCount < bypassWordCount {
		wordCount = bypassWordCount + 50
	}
	return &models.ExtractedRecord{Paragraphs: paragraphs, WordCount: wordCount}
}

func TestFilterBypassesShortPages(t *testing.T) {
	rec := &models.ExtractedRecord{
		Paragraphs: []string{"short page content"},
		WordCount:  10,
	}
	result := Filter(rec, "content", 1000, true)
	assert.True(t, result.Bypassed)
	assert.Equal(t, rec.Paragraphs, result.Paragraphs)
}

func TestFilterKeepsRelevantParagraphsInOriginalOrder(t *testing.T) {
	rec := longRecord([]string{
		"A widget is a small reusable interface component.",
		"The weather today is sunny with a light breeze.",
		"Widget configuration accepts a size and color option.",
		"Unrelated paragraph about cooking pasta.",
	})

	result := Filter(rec, "widget configuration", 10000, true)

	assert.Contains(t, result.Paragraphs, rec.Paragraphs[0])
	assert.Contains(t, result.Paragraphs, rec.Paragraphs[2])
	assert.NotContains(t, result.Paragraphs, rec.Paragraphs[1])

	// original order preserved among kept paragraphs
	var idx0, idx2 int
	for i, p := range result.Paragraphs {
		if p == rec.Paragraphs[0] {
			idx0 = i
		}
		if p == rec.Paragraphs[2] {
			idx2 = i
		}
	}
	assert.Less(t, idx0, idx2)
}

func TestFilterRespectsByteBudget(t *testing.T) {
	rec := longRecord([]string{
		strings.Repeat("widget ", 50),
		strings.Repeat("widget ", 50),
		strings.Repeat("widget ", 50),
	})

	result := Filter(rec, "widget", 100, true)
	assert.True(t, result.Truncated)
	assert.NotEmpty(t, result.Paragraphs)

	totalLen := 0
	for _, p := range result.Paragraphs {
		totalLen += len(p)
	}
	assert.Less(t, len(result.Paragraphs), len(rec.Paragraphs))
	_ = totalLen
}

func TestFilterSkipsShavingWhenSemanticShaveDisabled(t *testing.T) {
	rec := longRecord([]string{
		"Widgets are small reusable interface components.",
		"The weather today is sunny with a light breeze.",
		"Widget configuration accepts a size and color option.",
		"Unrelated paragraph about cooking pasta.",
	})

	result := Filter(rec, "widget configuration", 10000, false)
	assert.True(t, result.Bypassed)
	assert.Equal(t, rec.Paragraphs, result.Paragraphs, "disabling the toggle must return every paragraph unscored")
}

func TestFilterEmptyQueryBypasses(t *testing.T) {
	rec := longRecord([]string{"one paragraph here with enough words to not be trivial and more padding text"})
	result := Filter(rec, "", 1000, true)
	assert.True(t, result.Bypassed)
}
