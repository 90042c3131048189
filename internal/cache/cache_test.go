package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/use-agent/searchscrape/internal/config"
	"github.com/use-agent/searchscrape/internal/models"
)

func testCache() *Cache {
	return New(config.CacheConfig{ShardCount: 4, DefaultTTL: time.Minute, CleanupTick: time.Minute})
}

func TestSetScrapeThenGetScrapeRoundTrips(t *testing.T) {
	c := testCache()
	key := ScrapeKey("https://example.com/article")
	record := &models.ExtractedRecord{URL: "https://example.com/article", Title: "Article"}

	c.SetScrape(key, record, models.BlockNone)

	got, ok := c.GetScrape(key)
	assert.True(t, ok)
	assert.Equal(t, "Article", got.Title)
}

func TestSetScrapeRefusesAuthWalledResponses(t *testing.T) {
	c := testCache()
	key := ScrapeKey("https://example.com/gated")
	record := &models.ExtractedRecord{URL: "https://example.com/gated"}

	c.SetScrape(key, record, models.BlockAuthWalled)

	_, ok := c.GetScrape(key)
	assert.False(t, ok, "auth-walled responses must never be cached")
}

func TestSetScrapeRefusesCaptchaResponses(t *testing.T) {
	c := testCache()
	key := ScrapeKey("https://example.com/captcha")
	record := &models.ExtractedRecord{URL: "https://example.com/captcha"}

	c.SetScrape(key, record, models.BlockCaptcha)

	_, ok := c.GetScrape(key)
	assert.False(t, ok)
}

func TestGetScrapeMissReturnsFalse(t *testing.T) {
	c := testCache()
	_, ok := c.GetScrape(ScrapeKey("https://example.com/never-cached"))
	assert.False(t, ok)
}

func TestSearchCacheRoundTrips(t *testing.T) {
	c := testCache()
	key := SearchKey("golang concurrency patterns")
	hits := []models.SearchHit{{URL: "https://example.com/a", Title: "A"}}

	c.SetSearch(key, hits)

	got, ok := c.GetSearch(key)
	assert.True(t, ok)
	assert.Len(t, got, 1)
	assert.Equal(t, "A", got[0].Title)
}

func TestCacheEvictsAtCapacity(t *testing.T) {
	c := New(config.CacheConfig{ShardCount: 1, DefaultTTL: time.Minute, CleanupTick: time.Minute, MaxEntries: 2})

	for i := 0; i < 5; i++ {
		key := ScrapeKey(string(rune('a' + i)))
		c.SetScrape(key, &models.ExtractedRecord{URL: key}, models.BlockNone)
	}

	assert.LessOrEqual(t, c.itemCount(), 2, "cache must not grow unbounded past MaxEntries")
}
