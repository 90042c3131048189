package extract

import (
	"math"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const pruneScoreThreshold = 0.0

const (
	wTextDensity   = 3.0
	wLinkDensity   = -2.0
	wTagWeight     = 1.5
	wClassIDWeight = 1.0
	wTextLength    = 0.5
	wCodeBlock     = 2.0
)

var positiveClassIDPatterns = []string{
	"content", "article", "post", "entry", "body", "main", "text",
}

var negativeClassIDPatterns = []string{
	"sidebar", "ad", "widget", "nav", "menu", "comment", "footer",
	"header", "banner", "popup", "modal", "cookie", "social", "share",
	"related", "recommend", "promo",
}

// pruneContent extracts main content from raw HTML via a density/tag/class
// scoring pass over each top-level <body> child, used as the fallback
// extraction mode when readability's output is too thin.
func pruneContent(rawHTML string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return rawHTML, err
	}

	body := doc.Find("body")
	if body.Length() == 0 {
		return rawHTML, nil
	}

	var retained []string
	body.Children().Each(func(_ int, el *goquery.Selection) {
		if scoreElement(el) > pruneScoreThreshold {
			if html, err := goquery.OuterHtml(el); err == nil {
				retained = append(retained, html)
			}
		}
	})

	if len(retained) == 0 {
		html, err := body.Html()
		if err != nil {
			return rawHTML, nil
		}
		return html, nil
	}

	return strings.Join(retained, "\n"), nil
}

func scoreElement(el *goquery.Selection) float64 {
	fullHTML, err := goquery.OuterHtml(el)
	if err != nil {
		return 0
	}

	text := strings.TrimSpace(el.Text())
	textLen := len(text)
	totalLen := len(fullHTML)

	textDensity := 0.0
	if totalLen > 0 {
		textDensity = float64(textLen) / float64(totalLen)
	}

	linkTextLen := 0
	el.Find("a").Each(func(_ int, a *goquery.Selection) {
		linkTextLen += len(strings.TrimSpace(a.Text()))
	})
	linkDensity := 0.0
	if textLen > 0 {
		linkDensity = float64(linkTextLen) / float64(textLen)
	}

	tagW := tagWeight(el)
	classIDW := classIDWeight(el)
	textLenScore := math.Log10(float64(textLen) + 1)

	return textDensity*wTextDensity +
		linkDensity*wLinkDensity +
		tagW*wTagWeight +
		classIDW*wClassIDWeight +
		textLenScore*wTextLength +
		codeBlockWeight(el)*wCodeBlock
}

// codeBlockWeight boosts blocks carrying <pre>/<code> elements. Teacher's
// generic density scorer penalizes these as low-text-density boilerplate,
// but doc/reference pages we extract from routinely have code samples that
// are the whole point of the page.
func codeBlockWeight(el *goquery.Selection) float64 {
	if el.Find("pre, code").Length() > 0 {
		return 1.0
	}
	return 0.0
}

func tagWeight(el *goquery.Selection) float64 {
	switch goquery.NodeName(el) {
	case "article", "main", "section":
		return 5.0
	case "nav", "footer", "aside", "header":
		return -5.0
	default:
		return 0.0
	}
}

// stripTagsToText returns the concatenated visible text of an HTML fragment,
// used to compare the pruning and readability candidates by text length
// without pulling in a full markdown conversion.
func stripTagsToText(fragmentHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragmentHTML))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Text())
}

func classIDWeight(el *goquery.Selection) float64 {
	class, _ := el.Attr("class")
	id, _ := el.Attr("id")
	combined := strings.ToLower(class + " " + id)

	score := 0.0
	for _, pat := range positiveClassIDPatterns {
		if strings.Contains(combined, pat) {
			score += 3.0
			break
		}
	}
	for _, pat := range negativeClassIDPatterns {
		if strings.Contains(combined, pat) {
			score -= 3.0
			break
		}
	}
	return score
}
