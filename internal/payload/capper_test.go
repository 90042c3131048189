package payload

import (
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/searchscrape/internal/models"
)

func bigRecord() *models.ExtractedRecord {
	var images []models.Image
	for i := 0; i < 20; i++ {
		images = append(images, models.Image{Src: "https://example.com/img.png"})
	}
	var links []models.Link
	for i := 0; i < 50; i++ {
		links = append(links, models.Link{Href: "https://example.com/page", Text: "link"})
	}
	var codeBlocks []models.CodeBlock
	for i := 0; i < 5; i++ {
		codeBlocks = append(codeBlocks, models.CodeBlock{Code: strings.Repeat("x", 2000)})
	}
	return &models.ExtractedRecord{
		URL:          "https://example.com/a",
		Title:        "Big page",
		Images:       images,
		Links:        links,
		CodeBlocks:   codeBlocks,
		CleanContent: strings.Repeat("word ", 5000),
	}
}

func TestCapUnderBudgetReturnsUnmodified(t *testing.T) {
	record := &models.ExtractedRecord{URL: "https://example.com", Title: "small"}
	result, err := Cap(record, 100000)
	require.NoError(t, err)
	assert.False(t, result.Truncated)
	assert.Empty(t, result.Warnings)
}

func TestCapDropsImagesFirst(t *testing.T) {
	record := bigRecord()
	result, err := Cap(record, 3000)
	require.NoError(t, err)
	assert.True(t, result.Truncated)
	assert.Contains(t, result.Warnings, "CLEAN_JSON_PAYLOAD_TRUNCATED")

	var decoded models.ExtractedRecord
	require.NoError(t, json.Unmarshal(result.JSON, &decoded))
	assert.Empty(t, decoded.Images)
}

func TestCapOutputNeverExceedsBudgetByMuch(t *testing.T) {
	record := bigRecord()
	result, err := Cap(record, 500)
	require.NoError(t, err)
	assert.True(t, result.Truncated)
	assert.Less(t, result.ActualChars, len(mustMarshal(t, bigRecord())))
}

func TestCapCleanContentClipNeverSplitsAMultiByteRune(t *testing.T) {
	record := &models.ExtractedRecord{
		URL:          "https://example.com/a",
		Title:        "Multibyte",
		CleanContent: strings.Repeat("café sün 日本語 ", 400),
	}
	result, err := Cap(record, 600)
	require.NoError(t, err)
	assert.True(t, result.Truncated)
	assert.True(t, utf8.Valid(result.JSON), "capped JSON must remain valid UTF-8")

	var decoded models.ExtractedRecord
	require.NoError(t, json.Unmarshal(result.JSON, &decoded))
	assert.True(t, utf8.ValidString(decoded.CleanContent))
}

func TestTruncateValidUTF8BacksOffToRuneBoundary(t *testing.T) {
	s := "a日b"
	for n := 0; n <= len(s); n++ {
		got := truncateValidUTF8(s, n)
		assert.True(t, utf8.ValidString(got), "n=%d produced invalid UTF-8: %q", n, got)
	}
}

func mustMarshal(t *testing.T, record *models.ExtractedRecord) []byte {
	t.Helper()
	b, err := json.Marshal(record)
	require.NoError(t, err)
	return b
}
