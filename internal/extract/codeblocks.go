package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/use-agent/searchscrape/internal/models"
)

// languageClassRe-style prefixes used by common syntax highlighters to tag
// the language on a <code> element's class attribute.
var languageClassPrefixes = []string{"language-", "lang-", "highlight-"}

// extractCodeBlocks finds <pre><code> (and bare <pre>) blocks in the cleaned
// content, preserving the code byte-for-byte and capturing the preceding
// paragraph/heading as context for downstream relevance scoring.
func extractCodeBlocks(contentHTML string) []models.CodeBlock {
	var blocks []models.CodeBlock

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(contentHTML))
	if err != nil {
		return blocks
	}

	doc.Find("pre").Each(func(_ int, pre *goquery.Selection) {
		code := pre.Find("code").First()
		var raw string
		var lang string
		if code.Length() > 0 {
			raw = code.Text()
			lang = languageFromClass(code)
		} else {
			raw = pre.Text()
		}
		if lang == "" {
			lang = languageFromClass(pre)
		}
		if strings.TrimSpace(raw) == "" {
			return
		}

		blocks = append(blocks, models.CodeBlock{
			Language: lang,
			Code:     raw,
			Context:  precedingContext(pre),
		})
	})

	return blocks
}

func languageFromClass(s *goquery.Selection) string {
	class, _ := s.Attr("class")
	for _, field := range strings.Fields(class) {
		for _, prefix := range languageClassPrefixes {
			if strings.HasPrefix(field, prefix) {
				return strings.TrimPrefix(field, prefix)
			}
		}
	}
	return ""
}

// precedingContext returns the trimmed text of the nearest preceding
// paragraph or heading sibling, truncated to a short snippet.
func precedingContext(pre *goquery.Selection) string {
	prev := pre.Prev()
	for i := 0; i < 3 && prev.Length() > 0; i++ {
		tag := goquery.NodeName(prev)
		if tag == "p" || tag == "h1" || tag == "h2" || tag == "h3" || tag == "h4" {
			text := strings.TrimSpace(prev.Text())
			if text != "" {
				if len(text) > 200 {
					text = text[:200]
				}
				return text
			}
		}
		prev = prev.Prev()
	}
	return ""
}
