// Package cache memoizes place-search responses under deliberately coarsened
// keys so nearby sessions avoid repeat API spend.
package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sells-group/venue-grouper/internal/model"
)

// Defaults for the in-memory tier.
const (
	DefaultTTL        = 30 * time.Minute
	DefaultMaxEntries = 1000
)

// ResultCache is a concurrent-safe LRU cache of venue candidate lists with
// TTL expiration. Confirmed empty responses are cached too, so known-empty
// areas don't trigger repeat misses.
type ResultCache struct {
	mu         sync.Mutex
	entries    map[string]*entry
	order      []string // LRU order: front=oldest, back=newest
	maxEntries int
	ttl        time.Duration
	hits       atomic.Int64
	misses     atomic.Int64

	// nowFunc allows test injection of time.
	nowFunc func() time.Time
}

type entry struct {
	venues    []model.VenueCandidate
	createdAt time.Time
	expiresAt time.Time
}

// Stats contains cache performance counters.
type Stats struct {
	Entries    int     `json:"entries"`
	MaxEntries int     `json:"max_entries"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRate    float64 `json:"hit_rate"`
}

// New creates a ResultCache with the given capacity and default TTL.
// Non-positive arguments fall back to the package defaults.
func New(maxEntries int, ttl time.Duration) *ResultCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ResultCache{
		entries:    make(map[string]*entry),
		maxEntries: maxEntries,
		ttl:        ttl,
		nowFunc:    time.Now,
	}
}

// Get returns the cached venues for key and whether the key was present and
// unexpired. A cached empty response returns (nil, true).
func (c *ResultCache) Get(key string) ([]model.VenueCandidate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)
		return nil, false
	}

	if c.nowFunc().After(e.expiresAt) {
		delete(c.entries, key)
		c.removeFromOrder(key)
		c.misses.Add(1)
		return nil, false
	}

	// Move to back (most recently used).
	c.removeFromOrder(key)
	c.order = append(c.order, key)
	c.hits.Add(1)
	return e.venues, true
}

// Set stores venues under key, evicting the least recently used entry if at
// capacity. A zero ttl uses the cache default. Storing nil venues records a
// confirmed empty response.
func (c *ResultCache) Set(key string, venues []model.VenueCandidate, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.nowFunc()
	e := &entry{venues: venues, createdAt: now, expiresAt: now.Add(ttl)}

	if _, ok := c.entries[key]; ok {
		c.entries[key] = e
		c.removeFromOrder(key)
		c.order = append(c.order, key)
		return
	}

	for len(c.entries) >= c.maxEntries && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[key] = e
	c.order = append(c.order, key)
}

// Len returns the number of live entries.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns cache performance counters.
func (c *ResultCache) Stats() Stats {
	c.mu.Lock()
	entries := len(c.entries)
	maxEntries := c.maxEntries
	c.mu.Unlock()

	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return Stats{
		Entries:    entries,
		MaxEntries: maxEntries,
		Hits:       hits,
		Misses:     misses,
		HitRate:    hitRate,
	}
}

// removeFromOrder removes a key from the LRU order slice.
func (c *ResultCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
