// Package cache memoizes recommendation results by request fingerprint.
package cache

import (
	"fmt"
	"sync/atomic"
	"time"

	"Cyclepulse/internal/cycle"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// DefaultTTL is how long a stored result is served before it is treated as absent.
	DefaultTTL = 30 * time.Minute

	// DefaultSize bounds the number of fingerprints held in memory.
	DefaultSize = 1024
)

type entry struct {
	result    cycle.RecommendationResult
	createdAt time.Time
}

// Stats reports cache usage since construction.
type Stats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// ResultCache stores results with a fixed time-to-live. Expiry is checked on
// read; stale entries stay in place until overwritten, cleared, or pushed out
// by the size bound.
type ResultCache struct {
	entries *lru.Cache[string, entry]
	ttl     time.Duration
	now     func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

// Option customizes a ResultCache.
type Option func(*ResultCache)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *ResultCache) { c.now = now }
}

// New creates a cache holding up to size entries for ttl each.
// Non-positive arguments select the defaults.
func New(size int, ttl time.Duration, opts ...Option) (*ResultCache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	entries, err := lru.New[string, entry](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create result cache: %w", err)
	}

	c := &ResultCache{
		entries: entries,
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get returns the cached result for key if it is younger than the TTL.
func (c *ResultCache) Get(key string) (cycle.RecommendationResult, bool) {
	e, ok := c.entries.Get(key)
	if !ok || c.now().Sub(e.createdAt) >= c.ttl {
		c.misses.Add(1)
		return cycle.RecommendationResult{}, false
	}

	c.hits.Add(1)
	return e.result.Clone(), true
}

// Put overwrites any entry for key with result and a fresh timestamp.
func (c *ResultCache) Put(key string, result cycle.RecommendationResult) {
	c.entries.Add(key, entry{
		result:    result.Clone(),
		createdAt: c.now(),
	})
}

// Clear drops every entry.
func (c *ResultCache) Clear() {
	c.entries.Purge()
}

// Stats returns entry and hit/miss counts.
func (c *ResultCache) Stats() Stats {
	return Stats{
		Entries: c.entries.Len(),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
}

// TTL returns the configured time-to-live.
func (c *ResultCache) TTL() time.Duration {
	return c.ttl
}
