package extract

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// filterContent applies include/exclude CSS-selector filtering to raw HTML.
// Excluded elements are removed first; when includeTags is non-empty, only
// the matched elements' outer HTML is kept.
func filterContent(rawHTML string, includeTags, excludeTags []string) string {
	if len(includeTags) == 0 && len(excludeTags) == 0 {
		return rawHTML
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return rawHTML
	}

	for _, selector := range excludeTags {
		doc.Find(selector).Remove()
	}

	if len(includeTags) > 0 {
		combined := strings.Join(includeTags, ", ")
		matches := doc.Find(combined)
		if matches.Length() > 0 {
			var buf strings.Builder
			matches.Each(func(_ int, s *goquery.Selection) {
				if h, err := goquery.OuterHtml(s); err == nil {
					buf.WriteString(h)
				}
			})
			return buf.String()
		}
	}

	result, err := doc.Html()
	if err != nil {
		return rawHTML
	}
	return result
}

// applyCSSSelector returns the concatenated outer HTML of elements matching
// selector, falling back to rawHTML unchanged when nothing matches.
func applyCSSSelector(rawHTML, selector string) (string, error) {
	sel, err := cascadia.Parse(selector)
	if err != nil {
		return "", err
	}

	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", err
	}

	matches := cascadia.QueryAll(doc, sel)
	if len(matches) == 0 {
		return rawHTML, nil
	}

	var buf bytes.Buffer
	for _, node := range matches {
		if err := html.Render(&buf, node); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}
