package models

import "time"

// CacheEntry is one slot in the bounded in-memory TTL cache.
type CacheEntry struct {
	Key        string    `json:"key"`
	Value      []byte    `json:"value"`
	InsertedAt time.Time `json:"inserted_at"`
	TTL        time.Duration `json:"ttl"`
}

// Expired reports whether the entry has outlived its TTL as of now.
func (c CacheEntry) Expired(now time.Time) bool {
	return now.After(c.InsertedAt.Add(c.TTL))
}
