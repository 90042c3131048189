package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/use-agent/searchscrape/internal/models"
)

// extractLinks parses rawHTML and returns absolute-URL anchors, deduplicated
// by resolved URL.
func extractLinks(rawHTML, sourceURL string) []models.Link {
	var links []models.Link

	base, err := url.Parse(sourceURL)
	if err != nil {
		return links
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return links
	}

	seen := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists || href == "" {
			return
		}
		resolved, err := base.Parse(href)
		if err != nil || (resolved.Scheme != "http" && resolved.Scheme != "https") {
			return
		}
		abs := resolved.String()
		if _, ok := seen[abs]; ok {
			return
		}
		seen[abs] = struct{}{}
		links = append(links, models.Link{Href: abs, Text: strings.TrimSpace(s.Text())})
	})

	return links
}

// extractImages parses rawHTML and returns absolute-URL images, skipping
// data URIs and deduplicating by resolved URL.
func extractImages(rawHTML, sourceURL string) []models.Image {
	var images []models.Image

	base, err := url.Parse(sourceURL)
	if err != nil {
		return images
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return images
	}

	seen := make(map[string]struct{})
	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		src, exists := s.Attr("src")
		if !exists || src == "" {
			return
		}
		resolved, err := base.Parse(src)
		if err != nil || resolved.Scheme == "data" {
			return
		}
		abs := resolved.String()
		if _, ok := seen[abs]; ok {
			return
		}
		seen[abs] = struct{}{}
		alt, _ := s.Attr("alt")
		images = append(images, models.Image{Src: abs, Alt: strings.TrimSpace(alt)})
	})

	return images
}

// extractPageMeta parses <head> metadata: description, keywords, canonical,
// Open Graph tags, author, and (best-effort) a published-at date.
func extractPageMeta(rawHTML string) models.PageMeta {
	var meta models.PageMeta

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return meta
	}

	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		prop, _ := s.Attr("property")
		content, _ := s.Attr("content")
		if content == "" {
			return
		}
		switch {
		case name == "description":
			meta.Description = content
		case name == "keywords":
			meta.Keywords = content
		case name == "author":
			meta.Author = content
		case prop == "og:title":
			meta.OGTitle = content
		case prop == "og:image":
			meta.OGImage = content
		case prop == "og:type":
			meta.OGType = content
		case prop == "article:published_time":
			meta.PublishedAt = content
		}
	})

	if href, ok := doc.Find(`link[rel="canonical"]`).Attr("href"); ok {
		meta.Canonical = href
	}
	if lang, ok := doc.Find("html").Attr("lang"); ok {
		meta.Language = lang
	}
	if t, ok := doc.Find("time[datetime]").First().Attr("datetime"); meta.PublishedAt == "" && ok {
		meta.PublishedAt = t
	}

	return meta
}

// extractHeadings collects h1-h4 text from the cleaned content fragment, in
// document order.
func extractHeadings(contentHTML string) []models.Heading {
	var headings []models.Heading
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(contentHTML))
	if err != nil {
		return headings
	}
	doc.Find("h1,h2,h3,h4").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		level := 1
		switch goquery.NodeName(s) {
		case "h2":
			level = 2
		case "h3":
			level = 3
		case "h4":
			level = 4
		}
		headings = append(headings, models.Heading{Level: level, Text: text})
	})
	return headings
}

// extractParagraphs collects non-empty <p> text, in document order, used by
// the relevance filter's paragraph-level scoring.
func extractParagraphs(contentHTML string) []string {
	var paragraphs []string
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(contentHTML))
	if err != nil {
		return paragraphs
	}
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	return paragraphs
}
