// Package memory implements the Memory Store: a persistent, embedded
// vector database of prior search/scrape outcomes with semantic recall and
// recent-duplicate detection, grounded on kadirpekel-hector's chromem-go
// wiring (pkg/vector/chromem.go), adapted from a generic vector-provider
// abstraction to the two fixed MemoryEntry collections this service needs.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"

	"github.com/use-agent/searchscrape/internal/config"
	"github.com/use-agent/searchscrape/internal/models"
)

func newEntryID() string {
	return uuid.NewString()
}

func now() time.Time {
	return time.Now().UTC()
}

const collectionName = "research_memory"

// Store is the embedded vector-backed Memory Store. Writes are best-effort:
// per spec.md §4.10, a memory failure logs a warning and never fails the
// caller's request.
type Store struct {
	cfg          config.MemoryConfig
	db           *chromem.DB
	mu           sync.Mutex
	collection   *chromem.Collection
	domainCounts map[string]int
}

func identityEmbed(_ context.Context, _ string) ([]float32, error) {
	return nil, fmt.Errorf("memory: embeddings must be precomputed by the caller")
}

// NewStore opens (or creates) the persistent vector database at
// cfg.PersistPath. An empty PersistPath keeps everything in memory only.
func NewStore(cfg config.MemoryConfig) (*Store, error) {
	var db *chromem.DB

	if cfg.PersistPath != "" {
		if err := os.MkdirAll(cfg.PersistPath, 0o755); err != nil {
			return nil, fmt.Errorf("memory: create persist dir: %w", err)
		}
		dbPath := cfg.PersistPath + "/memory.gob"
		if cfg.Compress {
			dbPath += ".gz"
		}
		if _, err := os.Stat(dbPath); err == nil {
			loaded, loadErr := chromem.NewPersistentDB(dbPath, cfg.Compress)
			if loadErr != nil {
				slog.Warn("memory: failed to load existing database, starting fresh", "path", dbPath, "error", loadErr)
				db = chromem.NewDB()
			} else {
				db = loaded
			}
		} else {
			db = chromem.NewDB()
		}
	} else {
		db = chromem.NewDB()
	}

	collection, err := db.GetOrCreateCollection(collectionName, nil, identityEmbed)
	if err != nil {
		return nil, fmt.Errorf("memory: get/create collection: %w", err)
	}

	store := &Store{cfg: cfg, db: db, collection: collection, domainCounts: make(map[string]int)}
	store.loadDomainCounts()
	return store, nil
}

func (s *Store) domainCountsPath() string {
	if s.cfg.PersistPath == "" {
		return ""
	}
	return s.cfg.PersistPath + "/domain_counts.json"
}

func (s *Store) loadDomainCounts() {
	path := s.domainCountsPath()
	if path == "" {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	var counts map[string]int
	if err := json.Unmarshal(data, &counts); err != nil {
		slog.Warn("memory: failed to parse domain_counts.json, starting fresh", "error", err)
		return
	}
	s.domainCounts = counts
}

func (s *Store) persistDomainCounts() {
	path := s.domainCountsPath()
	if path == "" {
		return
	}
	data, err := json.Marshal(s.domainCounts)
	if err != nil {
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		slog.Warn("memory: failed to persist domain_counts.json", "error", err)
	}
}

// LogSearch stores a search-kind entry summarizing a fused result set.
// Memory write failures are logged, never returned, per the store's
// best-effort invariant.
func (s *Store) LogSearch(ctx context.Context, query string, hits []models.SearchHit, embedding []float32) {
	summary := fmt.Sprintf("%d results for %q", len(hits), query)
	blob, _ := json.Marshal(hits)
	s.put(ctx, models.MemoryEntry{
		ID:         newEntryID(),
		Kind:       models.MemoryKindSearch,
		QueryOrURL: query,
		Topic:      query,
		Summary:    summary,
		FullResult: blob,
		Timestamp:  now(),
		Embedding:  embedding,
		WordCount:  len(hits),
	})
}

// LogScrape stores a scrape-kind entry. Per spec.md §4.10, auth-walled
// scrapes must never be written; callers are expected to check
// models.BlockKind.Poisons() before calling this, but a defensive check
// also lives here since a bad call site would otherwise silently poison
// future `skip_live_fetch` decisions.
func (s *Store) LogScrape(ctx context.Context, url, title, preview, domain string, record *models.ExtractedRecord, embedding []float32, blocked models.BlockKind) {
	if blocked.Poisons() {
		slog.Warn("memory: refused to log poisoned scrape", "url", url, "block_kind", blocked)
		return
	}

	blob, _ := json.Marshal(record)
	s.put(ctx, models.MemoryEntry{
		ID:            newEntryID(),
		Kind:          models.MemoryKindScrape,
		QueryOrURL:    url,
		Topic:         title,
		Summary:       preview,
		FullResult:    blob,
		Timestamp:     now(),
		Domain:        domain,
		SourceType:    record.SourceType,
		Embedding:     embedding,
		WordCount:     record.WordCount,
		SparseContent: record.WordCount < 50,
	})
}

func (s *Store) put(ctx context.Context, entry models.MemoryEntry) {
	metadata := map[string]string{
		"kind":           string(entry.Kind),
		"query_or_url":   entry.QueryOrURL,
		"topic":          entry.Topic,
		"summary":        entry.Summary,
		"timestamp":      entry.Timestamp.Format(time.RFC3339),
		"domain":         entry.Domain,
		"source_type":    string(entry.SourceType),
		"word_count":     fmt.Sprint(entry.WordCount),
		"sparse_content": fmt.Sprint(entry.SparseContent),
		"full_result":    string(entry.FullResult),
	}

	doc := chromem.Document{
		ID:        entry.ID,
		Content:   entry.Summary,
		Metadata:  metadata,
		Embedding: entry.Embedding,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.collection.AddDocuments(ctx, []chromem.Document{doc}, runtime.NumCPU()); err != nil {
		slog.Warn("memory: write failed, continuing without persistence", "error", err)
		return
	}

	if entry.Kind == models.MemoryKindScrape && entry.Domain != "" {
		s.domainCounts[entry.Domain]++
		s.persistDomainCounts()
	}

	if err := s.persist(); err != nil {
		slog.Warn("memory: persist failed after write", "error", err)
	}
}

func (s *Store) persist() error {
	if s.cfg.PersistPath == "" {
		return nil
	}
	dbPath := s.cfg.PersistPath + "/memory.gob"
	if s.cfg.Compress {
		dbPath += ".gz"
	}
	//nolint:staticcheck // Export is the documented persistence entrypoint for this version.
	return s.db.Export(dbPath, s.cfg.Compress, "")
}

// SearchHistory embeds the query via queryEmbedding (computed by the
// caller's embedding model, out of scope here), returns the top-K entries
// with cosine similarity >= threshold, and annotates each with
// skip_live_fetch per models.ComputeSkipLiveFetch.
func (s *Store) SearchHistory(ctx context.Context, queryEmbedding []float32, limit int, threshold float64) ([]models.RecallResult, error) {
	if limit <= 0 {
		limit = 10
	}

	s.mu.Lock()
	col := s.collection
	s.mu.Unlock()

	raw, err := col.QueryEmbedding(ctx, queryEmbedding, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("memory: search failed: %w", err)
	}

	var results []models.RecallResult
	for _, r := range raw {
		if r.Similarity < float32(threshold) {
			continue
		}
		entry := entryFromMetadata(r.ID, r.Metadata)
		results = append(results, models.RecallResult{
			Entry:         entry,
			Similarity:    float64(r.Similarity),
			SkipLiveFetch: models.ComputeSkipLiveFetch(entry, float64(r.Similarity)),
		})
	}
	return results, nil
}

// FindRecentDuplicate searches within the last hoursBack window and returns
// the best match with similarity >= 0.9, or ok=false if none qualifies.
func (s *Store) FindRecentDuplicate(ctx context.Context, queryEmbedding []float32, hoursBack int) (models.RecallResult, bool, error) {
	const duplicateThreshold = 0.9

	results, err := s.SearchHistory(ctx, queryEmbedding, 20, duplicateThreshold)
	if err != nil {
		return models.RecallResult{}, false, err
	}

	cutoff := now().Add(-time.Duration(hoursBack) * time.Hour)
	var best models.RecallResult
	found := false
	for _, r := range results {
		if r.Entry.Timestamp.Before(cutoff) {
			continue
		}
		if !found || r.Similarity > best.Similarity {
			best = r
			found = true
		}
	}
	return best, found, nil
}

// GetTopDomains returns the domains most frequently logged via LogScrape,
// ties broken by domain name in ascending order. chromem-go's Collection
// exposes no "list all documents" primitive, so domain frequency is tracked
// separately in domainCounts as writes happen rather than recomputed from
// the vector store.
func (s *Store) GetTopDomains(_ context.Context, limit int) ([]DomainCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]DomainCount, 0, len(s.domainCounts))
	for domain, count := range s.domainCounts {
		out = append(out, DomainCount{Domain: domain, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Domain < out[j].Domain
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// DomainCount is one row of GetTopDomains' aggregation.
type DomainCount struct {
	Domain string
	Count  int
}

func entryFromMetadata(id string, metadata map[string]string) models.MemoryEntry {
	ts, _ := time.Parse(time.RFC3339, metadata["timestamp"])
	wordCount := 0
	fmt.Sscanf(metadata["word_count"], "%d", &wordCount)

	return models.MemoryEntry{
		ID:            id,
		Kind:          models.MemoryKind(metadata["kind"]),
		QueryOrURL:    metadata["query_or_url"],
		Topic:         metadata["topic"],
		Summary:       metadata["summary"],
		FullResult:    []byte(metadata["full_result"]),
		Timestamp:     ts,
		Domain:        metadata["domain"],
		SourceType:    models.SourceType(metadata["source_type"]),
		WordCount:     wordCount,
		SparseContent: metadata["sparse_content"] == "true",
	}
}
