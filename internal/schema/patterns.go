package schema

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/use-agent/searchscrape/internal/models"
)

var (
	emailRe = regexp.MustCompile(`[\w.+-]+@[\w-]+\.[\w.-]+`)
	phoneRe = regexp.MustCompile(`\+?\d[\d\s().-]{7,}\d`)
	priceRe = regexp.MustCompile(`[$€£]\s?\d+(?:[.,]\d{2})?`)
	isoRe   = regexp.MustCompile(`\d{4}-\d{2}-\d{2}(?:T\d{2}:\d{2}:\d{2}(?:Z|[+-]\d{2}:\d{2})?)?`)
	urlRe   = regexp.MustCompile(`https?://[^\s"'<>]+`)
)

// rawMediaExtensions are the extensions the raw-file auto-warn triggers on;
// their content is already plain text/binary, not an HTML document to clean.
var rawMediaExtensions = []string{
	".md", ".txt", ".json", ".yaml", ".yml", ".csv", ".xml",
}

// isRawMediaURL reports whether the URL's path ends in a raw-text media
// extension, per spec.md §4.7's raw-file auto-warn.
func isRawMediaURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := strings.ToLower(u.Path)
	for _, ext := range rawMediaExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// patternMatch auto-detects well-known scalar shapes (email, phone, price,
// ISO date, URL) from the record's clean content when a schema field's
// TypeHint names one of them; any other or empty TypeHint never matches.
func patternMatch(record *models.ExtractedRecord, spec models.FieldSpec) (string, bool) {
	haystack := record.CleanContent

	var re *regexp.Regexp
	switch strings.ToLower(spec.TypeHint) {
	case "email":
		re = emailRe
	case "phone":
		re = phoneRe
	case "price":
		re = priceRe
	case "date", "iso_date":
		re = isoRe
	case "url":
		re = urlRe
	default:
		return "", false
	}

	if m := re.FindString(haystack); m != "" {
		return m, true
	}
	return "", false
}
