package extract

import (
	"log/slog"
	nurl "net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// minContentLength is the minimum TextContent length, in characters, for a
// readability pass to be considered trustworthy. Below this the pipeline
// falls back to the raw body so output is never silently empty.
const minContentLength = 50

// runReadability applies the Mozilla Readability algorithm. On any failure —
// bad URL, parse error, or too-short output — it returns a fallback Article
// wrapping the raw HTML, so callers never branch on error.
func runReadability(rawHTML, sourceURL string) (readability.Article, bool) {
	parsedURL, err := nurl.Parse(sourceURL)
	if err != nil {
		slog.Warn("readability: invalid source URL, falling back to raw HTML", "url", sourceURL, "error", err)
		return fallbackArticle(rawHTML), false
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		slog.Warn("readability: extraction failed, falling back to raw HTML", "url", sourceURL, "error", err)
		return fallbackArticle(rawHTML), false
	}

	if len(strings.TrimSpace(article.TextContent)) < minContentLength {
		slog.Warn("readability: extracted content too short, falling back to raw HTML", "url", sourceURL, "length", len(article.TextContent))
		return fallbackArticle(rawHTML), false
	}

	return article, true
}

func fallbackArticle(rawHTML string) readability.Article {
	return readability.Article{
		Content:     rawHTML,
		TextContent: rawHTML,
	}
}
