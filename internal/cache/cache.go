// Package cache provides the in-memory TTL cache shared by the DNS and RDAP
// resolution services. Entries expire by age only; there is no size bound and
// no persistence across restarts, because every consumer treats a miss as a
// normal fetch path.
package cache

import (
	"sync"
	"time"
)

// defaultTTL is the fallback entry lifetime used when a non-positive value is supplied
const defaultTTL = 24 * time.Hour

// entry holds a cached value and the time it was fetched
type entry[V any] struct {
	value     V
	fetchedAt time.Time
}

// Cache is a concurrency-safe TTL cache keyed by lookup subject
type Cache[V any] struct {
	// mu guards concurrent access to the cache data
	mu sync.RWMutex
	// ttl is the time-to-live for cached entries
	ttl time.Duration
	// entries maps lookup keys to their cached values
	entries map[string]entry[V]
}

// New creates a cache with the given TTL, falling back to a default if non-positive
func New[V any](ttl time.Duration) *Cache[V] {
	if ttl <= 0 {
		ttl = defaultTTL
	}

	return &Cache[V]{
		ttl:     ttl,
		entries: make(map[string]entry[V]),
	}
}

// Get returns the cached value for key. A missing entry or one older than the
// TTL reports a miss; stale entries are dropped at read time.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	var zero V

	if !ok {
		return zero, false
	}

	if time.Since(e.fetchedAt) > c.ttl {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()

		return zero, false
	}

	return e.value, true
}

// Set stores value under key, superseding any previous entry
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry[V]{
		value:     value,
		fetchedAt: time.Now(),
	}
}

// Len returns the number of entries currently held, including any not yet
// expired-on-read
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}
