// Package crawl implements crawl_website's same-site BFS traversal,
// grounded on RAG-Forge internal/extractor/webpage.go's gocolly/colly/v2
// usage. Colly owns link discovery and traversal bookkeeping (depth,
// per-domain scope; robots.txt is not consulted); it never produces a
// page's ExtractedRecord itself — every visited page's content still runs
// through the Escalation Controller and HTML Extractor, per SPEC_FULL's
// wiring correction (an already-fetched body doesn't compose cleanly with
// colly's own HTTP-driven Collector, so the two fetches are kept separate
// rather than forced together).
package crawl

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"
	"github.com/gocolly/colly/v2"

	"github.com/use-agent/searchscrape/internal/models"
	"github.com/use-agent/searchscrape/internal/simhash"
)

// Resolver turns one URL into an ExtractedRecord; satisfied by
// internal/escalation.Controller.Resolve (narrowed to avoid an import
// cycle, since escalation has no reason to know about crawl).
type Resolver interface {
	Resolve(ctx context.Context, rawURL string, policy models.RenderPolicy, query string) (ResolveOutcome, error)
}

// ResolveOutcome mirrors escalation.Outcome's fields this package needs.
type ResolveOutcome struct {
	Record   *models.ExtractedRecord
	NeedHITL bool
}

// ResolverFunc adapts a plain function — typically a closure around
// escalation.Controller.Resolve, whose own Outcome type this package never
// imports to avoid a dependency cycle — into a Resolver at wiring time.
type ResolverFunc func(ctx context.Context, rawURL string, policy models.RenderPolicy, query string) (ResolveOutcome, error)

func (f ResolverFunc) Resolve(ctx context.Context, rawURL string, policy models.RenderPolicy, query string) (ResolveOutcome, error) {
	return f(ctx, rawURL, policy, query)
}

// Crawler drives crawl_website.
type Crawler struct {
	resolver Resolver
}

func New(resolver Resolver) *Crawler {
	return &Crawler{resolver: resolver}
}

const nearDuplicateThreshold = 3

// domNearDuplicateThreshold gates the structural template-page guard: two
// thin pages (see templateWordCountCeiling) whose DOM tag-shingle
// fingerprints sit this close are almost certainly the same auto-generated
// skeleton (e.g. a paginated stub or an empty search-results shell) even
// though their text content differs too much to trip the text-level guard.
const domNearDuplicateThreshold = 1

// templateWordCountCeiling bounds the DOM-structure guard to genuinely thin
// pages; richer pages legitimately share navigation/footer markup without
// being duplicates of each other.
const templateWordCountCeiling = 40

// Run performs the bounded BFS crawl described by req.
func (c *Crawler) Run(ctx context.Context, req models.CrawlRequest) (*models.CrawlResult, error) {
	req.Defaults()
	start := time.Now()

	startHost, scopeDomain, err := scopeOf(req.StartURL, req.Scope)
	if err != nil {
		return nil, err
	}

	excludes := compileGlobs(req.ExcludePatterns)

	collector := colly.NewCollector(
		colly.MaxDepth(req.MaxDepth),
		colly.Async(true),
	)
	_ = collector.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: req.MaxConcurrent})

	var (
		mu            sync.Mutex
		visited       = make(map[string]bool)
		pages         []*models.ExtractedRecord
		seenHashes    []uint64
		seenTemplates []uint64
		skipped       int
		duplicates    int
	)

	collector.OnHTML("a[href]", func(e *colly.HTMLElement) {
		if req.Scope == "page" {
			return
		}
		link := e.Request.AbsoluteURL(e.Attr("href"))
		if link == "" || !inScope(link, startHost, scopeDomain, req.Scope) || matchesAny(excludes, link) {
			return
		}

		mu.Lock()
		atCapacity := len(visited) >= req.MaxPages
		mu.Unlock()
		if atCapacity {
			return
		}

		_ = e.Request.Visit(link)
	})

	collector.OnRequest(func(r *colly.Request) {
		mu.Lock()
		full := len(visited) >= req.MaxPages
		already := visited[r.URL.String()]
		if !full && !already {
			visited[r.URL.String()] = true
		}
		mu.Unlock()
		if full || already {
			r.Abort()
		}
	})

	collector.OnResponse(func(r *colly.Response) {
		pageURL := r.Request.URL.String()
		outcome, resolveErr := c.resolver.Resolve(ctx, pageURL, models.RenderHTTP, "")
		if resolveErr != nil {
			slog.Warn("crawl: page resolve failed", "url", pageURL, "error", resolveErr)
			mu.Lock()
			skipped++
			mu.Unlock()
			return
		}
		if outcome.NeedHITL || outcome.Record == nil {
			mu.Lock()
			skipped++
			mu.Unlock()
			return
		}

		record := outcome.Record
		if req.MaxChars > 0 && len(record.CleanContent) > req.MaxChars {
			record.CleanContent = record.CleanContent[:req.MaxChars]
		}

		fp := simhash.Fingerprint(record.CleanContent)

		mu.Lock()
		defer mu.Unlock()
		for _, prior := range seenHashes {
			if simhash.Similar(fp, prior, nearDuplicateThreshold) {
				duplicates++
				return
			}
		}

		// Thin pages rarely diverge enough in text to trip the guard above
		// even when they're the same auto-generated skeleton (empty search
		// results, a paginated stub with no rows yet). Fingerprint the raw
		// DOM colly just fetched and compare against other thin pages only;
		// richer pages legitimately share chrome without being duplicates.
		if record.WordCount < templateWordCountCeiling {
			domFP := simhash.FingerprintDOM(string(r.Body))
			for _, prior := range seenTemplates {
				if simhash.Similar(domFP, prior, domNearDuplicateThreshold) {
					duplicates++
					return
				}
			}
			seenTemplates = append(seenTemplates, domFP)
		}

		seenHashes = append(seenHashes, fp)
		pages = append(pages, record)
	})

	collector.OnError(func(r *colly.Response, visitErr error) {
		slog.Warn("crawl: colly visit failed", "url", r.Request.URL.String(), "error", visitErr)
		mu.Lock()
		skipped++
		mu.Unlock()
	})

	if err := collector.Visit(req.StartURL); err != nil {
		return nil, err
	}
	collector.Wait()

	return &models.CrawlResult{
		Pages: pages,
		Stats: models.CrawlStats{
			PagesVisited:      len(pages),
			PagesSkipped:      skipped,
			DuplicatesSkipped: duplicates,
			DurationMs:        time.Since(start).Milliseconds(),
		},
	}, nil
}

func scopeOf(startURL, scope string) (host, registrableDomain string, err error) {
	u, parseErr := url.Parse(startURL)
	if parseErr != nil {
		return "", "", parseErr
	}
	host = strings.ToLower(u.Hostname())
	return host, models.RegistrableDomain(host), nil
}

func inScope(rawURL, startHost, scopeDomain, scope string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	host := strings.ToLower(u.Hostname())
	switch scope {
	case "domain":
		return host == startHost
	default: // "subdomain"
		return models.RegistrableDomain(host) == scopeDomain
	}
}

func compileGlobs(patterns []string) []glob.Glob {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		if g, err := glob.Compile(p); err == nil {
			globs = append(globs, g)
		}
	}
	return globs
}

func matchesAny(globs []glob.Glob, rawURL string) bool {
	u, err := url.Parse(rawURL)
	path := rawURL
	if err == nil {
		path = u.Path
	}
	for _, g := range globs {
		if g.Match(path) {
			return true
		}
	}
	return false
}
