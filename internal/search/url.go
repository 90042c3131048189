package search

import (
	"net/url"
	"strings"

	"github.com/use-agent/searchscrape/internal/models"
)

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func classifyURL(rawURL string) models.SourceType {
	u, err := url.Parse(rawURL)
	if err != nil {
		return models.SourceOther
	}
	return models.ClassifySourceType(strings.ToLower(u.Hostname()), u.Path)
}

// breadcrumbs splits a URL's path into its non-empty segments, used by the
// fusion stage to surface a lightweight navigation trail alongside a hit.
func breadcrumbs(rawURL string) []string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	var crumbs []string
	for _, seg := range strings.Split(u.Path, "/") {
		if seg != "" {
			crumbs = append(crumbs, seg)
		}
	}
	return crumbs
}
