// Package relevance implements the Relevance Filter: a BM25-style
// paragraph-level query scorer used to keep only the paragraphs of an
// extracted record that actually answer the caller's query, clipped to a
// byte budget.
package relevance

import (
	"math"
	"regexp"
	"strings"

	"github.com/use-agent/searchscrape/internal/models"
)

const (
	// bypassWordCount is the word-count floor under which filtering is
	// skipped entirely; short pages are returned whole.
	bypassWordCount = 200

	bm25K1 = 1.5
	bm25B  = 0.75
)

var tokenRe = regexp.MustCompile(`[a-z0-9]+`)

// Result is the outcome of filtering a record's paragraphs against a query.
type Result struct {
	Paragraphs []string
	Bypassed   bool
	Truncated  bool
}

func tokenize(s string) []string {
	return tokenRe.FindAllString(strings.ToLower(s), -1)
}

// Filter scores each paragraph in record.Paragraphs against query using
// BM25 over the paragraph set as the document corpus, keeps paragraphs in
// descending score order until byteBudget is exhausted, then restores
// original document order. Bypasses (returns all paragraphs unscored) when
// record.WordCount < 200, per spec.md §4.6, or when semanticShave is false
// (the NeuroSiphon toggle gating this BM25 pass).
func Filter(record *models.ExtractedRecord, query string, byteBudget int, semanticShave bool) Result {
	if !semanticShave || record.WordCount < bypassWordCount || strings.TrimSpace(query) == "" {
		return Result{Paragraphs: record.Paragraphs, Bypassed: true}
	}

	paragraphs := record.Paragraphs
	if len(paragraphs) == 0 {
		return Result{Paragraphs: nil, Bypassed: true}
	}

	queryTerms := tokenize(query)
	if len(queryTerms) == 0 {
		return Result{Paragraphs: paragraphs, Bypassed: true}
	}

	scores := scoreParagraphs(paragraphs, queryTerms)

	order := make([]int, len(paragraphs))
	for i := range order {
		order[i] = i
	}
	// Stable sort by descending score, ties broken by original order.
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && scores[order[j]] > scores[order[j-1]]; j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}

	kept := make(map[int]bool)
	budget := byteBudget
	truncated := false
	for _, idx := range order {
		if scores[idx] <= 0 {
			continue
		}
		size := len(paragraphs[idx])
		if budget > 0 && size > budget && len(kept) > 0 {
			truncated = true
			continue
		}
		kept[idx] = true
		budget -= size
		if budget <= 0 {
			if len(kept) < len(paragraphs) {
				truncated = true
			}
			break
		}
	}

	if len(kept) == 0 {
		// Nothing scored positively; fall back to the leading paragraphs
		// under budget rather than returning an empty result.
		return clipByBudget(paragraphs, byteBudget)
	}

	var result []string
	for i, p := range paragraphs {
		if kept[i] {
			result = append(result, p)
		}
	}
	if len(kept) < len(paragraphs) {
		truncated = true
	}

	return Result{Paragraphs: result, Truncated: truncated}
}

func clipByBudget(paragraphs []string, byteBudget int) Result {
	var result []string
	budget := byteBudget
	for _, p := range paragraphs {
		if budget <= 0 {
			return Result{Paragraphs: result, Truncated: true}
		}
		result = append(result, p)
		budget -= len(p)
	}
	return Result{Paragraphs: result, Truncated: false}
}

// scoreParagraphs computes an Okapi BM25 score for each paragraph against
// queryTerms, treating the paragraph set itself as the reference corpus.
func scoreParagraphs(paragraphs []string, queryTerms []string) []float64 {
	docTermFreq := make([]map[string]int, len(paragraphs))
	docLen := make([]int, len(paragraphs))
	docFreq := make(map[string]int)

	for i, p := range paragraphs {
		terms := tokenize(p)
		docLen[i] = len(terms)
		freq := make(map[string]int, len(terms))
		for _, t := range terms {
			freq[t]++
		}
		docTermFreq[i] = freq
		for t := range freq {
			docFreq[t]++
		}
	}

	n := float64(len(paragraphs))
	avgDocLen := 0.0
	for _, l := range docLen {
		avgDocLen += float64(l)
	}
	if n > 0 {
		avgDocLen /= n
	}

	scores := make([]float64, len(paragraphs))
	for i := range paragraphs {
		var score float64
		for _, term := range queryTerms {
			df := float64(docFreq[term])
			if df == 0 {
				continue
			}
			idf := math.Log(1 + (n-df+0.5)/(df+0.5))
			tf := float64(docTermFreq[i][term])
			denom := tf + bm25K1*(1-bm25B+bm25B*float64(docLen[i])/math.Max(avgDocLen, 1))
			if denom == 0 {
				continue
			}
			score += idf * (tf * (bm25K1 + 1)) / denom
		}
		scores[i] = score
	}
	return scores
}
