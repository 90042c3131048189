package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// newMarkdownConverter builds a reusable, goroutine-safe converter tuned for
// LLM-facing output: the base plugin strips script/style/iframe noise, the
// commonmark plugin renders standard Markdown, and the table plugin keeps
// tabular data readable with minimal cell padding.
func newMarkdownConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(
				table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
			),
		),
	)
}

func toMarkdown(conv *converter.Converter, htmlContent, domain string) (string, error) {
	return conv.ConvertString(htmlContent, converter.WithDomain(domain))
}

var inlineLinkRe = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)

// convertToCitations rewrites inline Markdown links into reference-style
// citations, deduplicating repeated URLs to the same reference number.
func convertToCitations(markdown string) string {
	urlToNum := make(map[string]int)
	var refs []string
	counter := 0

	result := inlineLinkRe.ReplaceAllStringFunc(markdown, func(match string) string {
		parts := inlineLinkRe.FindStringSubmatch(match)
		if len(parts) != 3 {
			return match
		}
		text, url := parts[1], parts[2]
		num, exists := urlToNum[url]
		if !exists {
			counter++
			num = counter
			urlToNum[url] = num
			refs = append(refs, fmt.Sprintf("[%d]: %s", num, url))
		}
		return fmt.Sprintf("[%s][%d]", text, num)
	})

	if len(refs) == 0 {
		return markdown
	}
	return result + "\n\n---\n" + strings.Join(refs, "\n")
}
