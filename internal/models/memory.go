package models

import "time"

// MemoryKind distinguishes the two shapes of memory entry.
type MemoryKind string

const (
	MemoryKindSearch MemoryKind = "search"
	MemoryKindScrape MemoryKind = "scrape"
)

// MemoryEntry is one durable record in the research memory.
type MemoryEntry struct {
	ID            string     `json:"id"`
	Kind          MemoryKind `json:"kind"`
	QueryOrURL    string     `json:"query_or_url"`
	Topic         string     `json:"topic"`
	Summary       string     `json:"summary"`
	FullResult    []byte     `json:"full_result_blob"`
	Timestamp     time.Time  `json:"timestamp"`
	Domain        string     `json:"domain,omitempty"`
	SourceType    SourceType `json:"source_type,omitempty"`
	Embedding     []float32  `json:"embedding_vector"`
	EmbeddingDim  int        `json:"embedding_dim"`
	WordCount     int        `json:"word_count,omitempty"`
	SparseContent bool       `json:"sparse_content,omitempty"`
}

// RecallResult pairs a stored entry with its similarity to the query and the
// machine-readable skip_live_fetch guard agents consume directly.
type RecallResult struct {
	Entry         MemoryEntry `json:"entry"`
	Similarity    float64     `json:"similarity"`
	SkipLiveFetch bool        `json:"skip_live_fetch"`
}

// ComputeSkipLiveFetch implements the spec.md §4.10 guard:
// true only when kind=scrape AND similarity >= 0.60 AND word_count >= 50
// AND no sparse-content warning.
func ComputeSkipLiveFetch(e MemoryEntry, similarity float64) bool {
	return e.Kind == MemoryKindScrape &&
		similarity >= 0.60 &&
		e.WordCount >= 50 &&
		!e.SparseContent
}
