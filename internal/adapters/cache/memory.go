// Package cache holds recently served tweets in memory so repeat lookups
// skip the browser entirely.
package cache

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"tweetlens/internal/domain"
)

type entry struct {
	record    *domain.TweetRecord
	expiresAt time.Time
}

// MemoryCache is a TTL cache of tweet records keyed by normalized
// status path. Expired entries are dropped lazily on read.
type MemoryCache struct {
	entries sync.Map
	ttl     time.Duration
}

// New creates a cache whose entries live for ttl.
func New(ttl time.Duration) *MemoryCache {
	return &MemoryCache{ttl: ttl}
}

// NormalizedKey builds the canonical cache key for a status lookup.
// Handles are case-insensitive on the host, so they are lowered here.
func NormalizedKey(username, id string) string {
	return fmt.Sprintf("/%s/status/%s", strings.ToLower(username), id)
}

// Get returns a cached record, or nil when absent or expired.
func (c *MemoryCache) Get(key string) *domain.TweetRecord {
	v, ok := c.entries.Load(key)
	if !ok {
		return nil
	}
	e := v.(entry)
	if time.Now().After(e.expiresAt) {
		c.entries.Delete(key)
		return nil
	}
	return e.record
}

// Set stores a record under key for the cache's TTL.
func (c *MemoryCache) Set(key string, rec *domain.TweetRecord) {
	if rec == nil {
		return
	}
	c.entries.Store(key, entry{record: rec, expiresAt: time.Now().Add(c.ttl)})
}

// Delete removes a key.
func (c *MemoryCache) Delete(key string) {
	c.entries.Delete(key)
}

// Len counts live entries, skipping ones already expired.
func (c *MemoryCache) Len() int {
	n := 0
	now := time.Now()
	c.entries.Range(func(_, v any) bool {
		if now.Before(v.(entry).expiresAt) {
			n++
		}
		return true
	})
	return n
}
