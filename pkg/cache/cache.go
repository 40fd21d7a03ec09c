package cache

import (
	"strings"
	"sync"
	"time"
)

type entry struct {
	data      any
	expiresAt time.Time
}

// Cache is a process-local key/value store with per-entry TTL. Entries are
// expired lazily on read; there is no background sweeper. The key space is
// bounded by (provider, operation, date range) combinations, so unbounded
// growth is not a concern in practice.
//
// A Cache is safe for concurrent use. Concurrent writers to the same key are
// last-write-wins, which is fine because all writers compute the same value
// for a given key.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry

	now func() time.Time
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Key joins the provider, operation, and range bounds into the canonical
// cache key format.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

// Get returns the live value stored at key. Expired entries are removed and
// reported as absent.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; a fresh Set may have raced us.
		if current, still := c.entries[key]; still && c.now().After(current.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.data, true
}

// Set stores data under key for ttl, replacing any previous entry.
func (c *Cache) Set(key string, data any, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = entry{data: data, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
}

// Clear removes every entry whose key starts with prefix. With no prefix it
// wipes the whole store.
func (c *Cache) Clear(prefix ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(prefix) == 0 || prefix[0] == "" {
		c.entries = make(map[string]entry)
		return
	}
	for key := range c.entries {
		if strings.HasPrefix(key, prefix[0]) {
			delete(c.entries, key)
		}
	}
}

// Len reports the number of stored entries, including any not yet lazily
// expired.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
