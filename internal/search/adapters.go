package search

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/use-agent/searchscrape/internal/models"
)

// Engines is the closed, configurable set of supported adapters.
var Engines = map[string]Engine{
	"google": {
		Name:          "google",
		BaseRankScore: 1.0,
		BuildURL: func(query string, page int) string {
			return "https://www.google.com/search?q=" + url.QueryEscape(query) + "&start=" + fmt.Sprint(page*10)
		},
		ParseHTML: parseGoogle,
	},
	"bing": {
		Name:          "bing",
		BaseRankScore: 0.95,
		BuildURL: func(query string, page int) string {
			return "https://www.bing.com/search?q=" + url.QueryEscape(query) + "&first=" + fmt.Sprint(page*10+1)
		},
		ParseHTML: parseBing,
	},
	"duckduckgo": {
		Name:          "duckduckgo",
		BaseRankScore: 0.9,
		BuildURL: func(query string, page int) string {
			return "https://html.duckduckgo.com/html/?q=" + url.QueryEscape(query)
		},
		ParseHTML: parseDuckDuckGo,
	},
	"brave": {
		Name:          "brave",
		BaseRankScore: 0.85,
		BuildURL: func(query string, page int) string {
			return "https://search.brave.com/search?q=" + url.QueryEscape(query) + "&offset=" + fmt.Sprint(page)
		},
		ParseHTML: parseBrave,
	},
}

func unwrapRedirect(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	// Bing/DuckDuckGo/Google sometimes wrap destination URLs behind an
	// internal redirector; unwrap the common "uddg"/"url"/"q" query param.
	for _, key := range []string{"uddg", "url", "q"} {
		if v := u.Query().Get(key); v != "" {
			if decoded, err := url.QueryUnescape(v); err == nil && strings.HasPrefix(decoded, "http") {
				return decoded
			}
		}
	}
	return raw
}

func parseGoogle(html, query string) []models.SearchHit {
	var hits []models.SearchHit
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return hits
	}
	doc.Find("div.g, div[data-sokoban-container]").Each(func(_ int, s *goquery.Selection) {
		link := s.Find("a").First()
		href, _ := link.Attr("href")
		title := strings.TrimSpace(s.Find("h3").First().Text())
		snippet := strings.TrimSpace(s.Find("div[data-sncf], div.VwiC3b, span.aCOpRe").First().Text())
		if href == "" || title == "" {
			return
		}
		hits = append(hits, models.SearchHit{URL: unwrapRedirect(href), Title: title, Snippet: snippet})
	})
	return hits
}

func parseBing(html, query string) []models.SearchHit {
	var hits []models.SearchHit
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return hits
	}
	doc.Find("li.b_algo").Each(func(_ int, s *goquery.Selection) {
		link := s.Find("h2 a").First()
		href, _ := link.Attr("href")
		title := strings.TrimSpace(link.Text())
		snippet := strings.TrimSpace(s.Find("div.b_caption p, p").First().Text())
		if href == "" || title == "" {
			return
		}
		hits = append(hits, models.SearchHit{URL: unwrapRedirect(href), Title: title, Snippet: snippet})
	})
	return hits
}

func parseDuckDuckGo(html, query string) []models.SearchHit {
	var hits []models.SearchHit
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return hits
	}
	doc.Find("div.result, div.web-result").Each(func(_ int, s *goquery.Selection) {
		link := s.Find("a.result__a").First()
		href, _ := link.Attr("href")
		title := strings.TrimSpace(link.Text())
		snippet := strings.TrimSpace(s.Find("a.result__snippet, div.result__snippet").First().Text())
		if href == "" || title == "" {
			return
		}
		hits = append(hits, models.SearchHit{URL: unwrapRedirect(href), Title: title, Snippet: snippet})
	})
	return hits
}

func parseBrave(html, query string) []models.SearchHit {
	var hits []models.SearchHit
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return hits
	}
	doc.Find("div.snippet[data-type='web'], div#results div.snippet").Each(func(_ int, s *goquery.Selection) {
		link := s.Find("a").First()
		href, _ := link.Attr("href")
		title := strings.TrimSpace(s.Find(".title").First().Text())
		snippet := strings.TrimSpace(s.Find(".snippet-description").First().Text())
		if href == "" || title == "" {
			return
		}
		hits = append(hits, models.SearchHit{URL: unwrapRedirect(href), Title: title, Snippet: snippet})
	})
	return hits
}
