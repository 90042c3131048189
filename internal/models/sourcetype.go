package models

import "strings"

// ClassifySourceType assigns the closed taxonomy from spec.md §6 using cheap
// domain/path heuristics, shared by the HTML Extractor and the Search
// Fusion stage so a URL always resolves to the same source_type regardless
// of which path discovered it. It never errors: an unmatched page is
// "other".
func ClassifySourceType(host, path string) SourceType {
	switch {
	case hostMatches(host, "github.com", "gitlab.com", "bitbucket.org", "sourcehut.org"):
		return SourceRepo
	case hostMatches(host, "stackoverflow.com", "stackexchange.com", "superuser.com", "serverfault.com"):
		return SourceQA
	case hostMatches(host, "youtube.com", "youtu.be", "vimeo.com"):
		return SourceVideo
	case hostMatches(host, "npmjs.com", "pypi.org", "crates.io", "pkg.go.dev", "rubygems.org"):
		return SourcePackage
	case hostMatches(host, "ign.com", "gamespot.com", "polygon.com", "kotaku.com", "steampowered.com", "store.steampowered.com", "pcgamer.com", "nexusmods.com"):
		return SourceGaming
	case strings.HasPrefix(host, "docs.") || strings.Contains(path, "/docs/") || hostMatches(host, "developer.mozilla.org", "readthedocs.io"):
		return SourceDocs
	case hostMatches(host, "techcrunch.com", "reuters.com", "apnews.com", "bbc.com", "bbc.co.uk"):
		return SourceNews
	case strings.HasPrefix(host, "blog.") || strings.Contains(path, "/blog/"):
		return SourceBlog
	default:
		return SourceOther
	}
}

// hostMatches reports whether host equals one of candidates or is a
// subdomain of one (e.g. "www.github.com" matches "github.com").
func hostMatches(host string, candidates ...string) bool {
	for _, c := range candidates {
		if host == c || strings.HasSuffix(host, "."+c) {
			return true
		}
	}
	return false
}
