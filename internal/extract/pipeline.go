// Package extract implements the HTML Extractor: a two-stage cleaning
// pipeline (readability/pruning main-content extraction, then Markdown
// conversion) extended with SPA hydration detection, code-block capture,
// and NeuroSiphon import-nuking, assembled into a models.ExtractedRecord.
// Grounded wholesale on the teacher's cleaner/ package.
package extract

import (
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	readability "github.com/go-shiori/go-readability"

	"github.com/use-agent/searchscrape/internal/config"
	"github.com/use-agent/searchscrape/internal/models"
)

// Mode selects the main-content extraction strategy.
type Mode string

const (
	ModeReadability Mode = "readability"
	ModePruning     Mode = "pruning"
	ModeAuto        Mode = "auto"
	ModeRaw         Mode = "raw"
)

// Options carries the per-request knobs the extraction pipeline accepts.
type Options struct {
	Mode        Mode
	IncludeTags []string
	ExcludeTags []string
	CSSSelector string

	// ExtractAppState, when true, promotes a sufficiently large SPA
	// hydration payload (>= minHydrationWords) to the record's sole
	// content source, clearing code blocks, images, and links that were
	// extracted from the surrounding app shell instead of real content.
	ExtractAppState bool
}

// minHydrationWords is the word-count floor a hydration payload must clear
// before it is trusted as a substitute for normal HTML extraction.
const minHydrationWords = 100

// Extractor runs the cleaning pipeline. The markdown converter is built
// once and reused across requests (goroutine-safe per the upstream library).
type Extractor struct {
	cfg         config.ExtractConfig
	mdConverter *converter.Converter
}

func NewExtractor(cfg config.ExtractConfig) *Extractor {
	return &Extractor{cfg: cfg, mdConverter: newMarkdownConverter()}
}

// Extract runs the full pipeline over rawHTML fetched from sourceURL and
// returns a normalized ExtractedRecord.
func (e *Extractor) Extract(rawHTML, sourceURL string, opts Options) (*models.ExtractedRecord, error) {
	if opts.Mode == "" {
		opts.Mode = ModeAuto
	}

	filtered := rawHTML
	if opts.CSSSelector != "" {
		if sel, err := applyCSSSelector(rawHTML, opts.CSSSelector); err == nil {
			filtered = sel
		}
	}
	filtered = filterContent(filtered, opts.IncludeTags, opts.ExcludeTags)

	embeddedState := ""
	if e.cfg.NeuroSiphonEnabled && e.cfg.SPAFastPath {
		embeddedState = extractEmbeddedState(rawHTML)
	}

	article := e.runExtraction(filtered, sourceURL, opts.Mode)

	clean, err := toMarkdown(e.mdConverter, article.Content, sourceURL)
	if err != nil {
		return nil, models.NewExtractionError("markdown conversion failed", err)
	}
	clean = convertToCitations(clean)

	codeBlocks := extractCodeBlocks(article.Content)
	if e.cfg.NeuroSiphonEnabled && e.cfg.ImportNuking {
		for i := range codeBlocks {
			codeBlocks[i].Code = nukeImports(codeBlocks[i].Code)
		}
	}

	headings := extractHeadings(article.Content)
	paragraphs := extractParagraphs(article.Content)
	links := extractLinks(rawHTML, sourceURL)
	images := extractImages(rawHTML, sourceURL)

	if opts.ExtractAppState && embeddedState != "" {
		if hydrationText := extractGitHubHydrationText(embeddedState); hydrationText != "" {
			if words := strings.Fields(hydrationText); len(words) >= minHydrationWords {
				clean = hydrationText
				paragraphs = []string{hydrationText}
				codeBlocks = nil
				images = nil
				links = nil
				article.TextContent = hydrationText
				if article.Title == "" {
					article.Title = firstLine(hydrationText)
				}
			}
		}
	}

	meta := extractPageMeta(rawHTML)
	if meta.Description == "" {
		meta.Description = article.Excerpt
	}
	if article.Title != "" && meta.OGTitle == "" {
		meta.OGTitle = article.Title
	}

	wordCount := len(strings.Fields(article.TextContent))
	host, domain, path := hostAndPath(sourceURL)
	sourceType := classifySourceType(host, path)

	score := models.ExtractionScore(models.ExtractionScoreInputs{
		WordCount:      wordCount,
		HasPublishedAt: meta.PublishedAt != "",
		HasCodeBlocks:  len(codeBlocks) > 0,
		HasHeadings:    len(headings) > 0,
	})

	var warnings []string
	if wordCount < 50 {
		warnings = append(warnings, "extracted content is very short; extraction may have failed")
	}
	if article.Title == "" {
		warnings = append(warnings, "readability produced no title; used raw HTML fallback")
	}

	return &models.ExtractedRecord{
		URL:               sourceURL,
		Title:             article.Title,
		Meta:              meta,
		Headings:          headings,
		Paragraphs:        paragraphs,
		CleanContent:      clean,
		CodeBlocks:        codeBlocks,
		Links:             links,
		Images:            images,
		EmbeddedStateJSON: embeddedState,
		WordCount:         wordCount,
		ReadingTimeMin:    models.ReadingTimeMinutes(wordCount),
		Domain:            domain,
		SourceType:        sourceType,
		ExtractionScore:   score,
		Warnings:          warnings,
		Tokens:            computeTokenInfo(rawHTML, clean),
	}, nil
}

func (e *Extractor) runExtraction(filteredHTML, sourceURL string, mode Mode) readability.Article {
	switch mode {
	case ModeRaw:
		return fallbackArticle(filteredHTML)
	case ModePruning:
		pruned, err := pruneContent(filteredHTML)
		if err != nil {
			slog.Warn("pruning: extraction failed, falling back to raw HTML", "url", sourceURL, "error", err)
			pruned = filteredHTML
		}
		metaArticle, _ := runReadability(filteredHTML, sourceURL)
		return readability.Article{
			Title:    metaArticle.Title,
			Byline:   metaArticle.Byline,
			Excerpt:  metaArticle.Excerpt,
			SiteName: metaArticle.SiteName,
			Language: metaArticle.Language,
			Content:  pruned,
			TextContent: stripTagsToText(pruned),
		}
	case ModeAuto:
		return e.autoExtract(filteredHTML, sourceURL)
	default:
		article, _ := runReadability(filteredHTML, sourceURL)
		return article
	}
}

// autoExtract runs readability and pruning concurrently and keeps whichever
// produced more text, with a guard against picking a 10x-noisier winner.
func (e *Extractor) autoExtract(rawHTML, sourceURL string) readability.Article {
	var readabilityArticle readability.Article
	var prunedHTML string
	var pruneErr error

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		readabilityArticle, _ = runReadability(rawHTML, sourceURL)
	}()
	go func() {
		defer wg.Done()
		prunedHTML, pruneErr = pruneContent(rawHTML)
	}()
	wg.Wait()

	if pruneErr != nil {
		return readabilityArticle
	}

	prunedText := stripTagsToText(prunedHTML)
	readabilityText := strings.TrimSpace(readabilityArticle.TextContent)

	useReadability := len(readabilityText) >= len(prunedText)
	if useReadability && len(prunedText) > minContentLength && len(readabilityText) > 10*len(prunedText) {
		useReadability = false
	} else if !useReadability && len(readabilityText) > minContentLength && len(prunedText) > 10*len(readabilityText) {
		useReadability = true
	}

	if useReadability {
		return readabilityArticle
	}
	return readability.Article{
		Title:       readabilityArticle.Title,
		Byline:      readabilityArticle.Byline,
		Excerpt:     readabilityArticle.Excerpt,
		SiteName:    readabilityArticle.SiteName,
		Language:    readabilityArticle.Language,
		Content:     prunedHTML,
		TextContent: prunedText,
	}
}

// firstLine returns the first non-empty line of s, used to synthesize a
// title when a hydration payload becomes the sole content source.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// hostAndPath returns the full lowercased hostname (subdomain classification
// needs "docs."/"blog." prefixes), the registrable eTLD+1 domain (the
// record's canonical Domain field), and the URL path.
func hostAndPath(rawURL string) (host, registrableDomain, path string) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", ""
	}
	host = strings.ToLower(u.Hostname())
	return host, models.RegistrableDomain(host), u.Path
}
