// Package cache implements the bounded in-memory TTL cache for scrape
// results and search result sets (spec.md §4.14), grounded on RAG-Forge's
// internal/cache/sharded_memory.go sharded patrickmn/go-cache wrapper.
package cache

import (
	"hash/fnv"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/use-agent/searchscrape/internal/config"
	"github.com/use-agent/searchscrape/internal/models"
)

// Cache is a sharded, TTL-bounded store for ExtractedRecords and search
// result sets, keyed by models.Fingerprint. Auth-walled and CAPTCHA
// outcomes are never inserted (anti-poisoning, per spec.md's cache
// invariant); callers enforce this by checking models.BlockKind.Poisons()
// before calling Set, mirrored here as a defensive second check on
// SetScrape since that's the one write path a poisoned response could
// reach.
type Cache struct {
	shards     []*gocache.Cache
	shardCount int
	maxEntries int
}

const defaultShardCount = 16

// New builds a Cache from config.CacheConfig, applying the package's
// documented defaults for zero-valued fields.
func New(cfg config.CacheConfig) *Cache {
	shardCount := cfg.ShardCount
	if shardCount <= 0 {
		shardCount = defaultShardCount
	}
	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	cleanup := cfg.CleanupTick
	if cleanup <= 0 {
		cleanup = time.Minute
	}

	c := &Cache{
		shards:     make([]*gocache.Cache, shardCount),
		shardCount: shardCount,
		maxEntries: cfg.MaxEntries,
	}
	for i := range c.shards {
		c.shards[i] = gocache.New(ttl, cleanup)
	}
	return c
}

func (c *Cache) shardFor(key string) *gocache.Cache {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return c.shards[h.Sum64()%uint64(c.shardCount)]
}

// ScrapeKey derives the cache key for an ExtractedRecord from its source
// URL, mirroring purify cache.go's approach of hashing the request shape
// rather than keying on the raw URL string directly.
func ScrapeKey(rawURL string) string {
	return models.Fingerprint(rawURL)
}

// SearchKey derives the cache key for a fused search result set.
func SearchKey(query string) string {
	return "search:" + query
}

// GetScrape returns a previously cached ExtractedRecord, if present and
// unexpired.
func (c *Cache) GetScrape(key string) (*models.ExtractedRecord, bool) {
	shard := c.shardFor(key)
	val, found := shard.Get(key)
	if !found {
		return nil, false
	}
	record, ok := val.(*models.ExtractedRecord)
	return record, ok
}

// SetScrape inserts an ExtractedRecord unless blocked poisons the cache.
func (c *Cache) SetScrape(key string, record *models.ExtractedRecord, blocked models.BlockKind) {
	if blocked.Poisons() {
		return
	}
	if c.atCapacity() {
		c.evictOne()
	}
	c.shardFor(key).SetDefault(key, record)
}

// GetSearch returns a previously cached, fused search result set.
func (c *Cache) GetSearch(key string) ([]models.SearchHit, bool) {
	shard := c.shardFor(key)
	val, found := shard.Get(key)
	if !found {
		return nil, false
	}
	hits, ok := val.([]models.SearchHit)
	return hits, ok
}

// SetSearch inserts a fused search result set. Search results have no
// auth-wall concept of their own (individual hits are public result-page
// metadata), so no poisoning check applies here.
func (c *Cache) SetSearch(key string, hits []models.SearchHit) {
	if c.atCapacity() {
		c.evictOne()
	}
	c.shardFor(key).SetDefault(key, hits)
}

func (c *Cache) atCapacity() bool {
	if c.maxEntries <= 0 {
		return false
	}
	return c.itemCount() >= c.maxEntries
}

func (c *Cache) itemCount() int {
	total := 0
	for _, shard := range c.shards {
		total += shard.ItemCount()
	}
	return total
}

// evictOne drops one arbitrary entry from the largest shard to make room.
// go-cache's map iteration order is randomized, so the first key observed
// is an effectively random eviction choice.
func (c *Cache) evictOne() {
	var largest *gocache.Cache
	for _, shard := range c.shards {
		if largest == nil || shard.ItemCount() > largest.ItemCount() {
			largest = shard
		}
	}
	if largest == nil {
		return
	}
	for key := range largest.Items() {
		largest.Delete(key)
		return
	}
}
