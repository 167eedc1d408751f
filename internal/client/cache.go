package client

import (
	"strings"
	"sync"
	"time"
)

// DefaultStaleTime is how long a cached query result is served without
// refetching.
const DefaultStaleTime = 5 * time.Minute

// Cache holds query results by key.
//
// KEYS:
// Keys are path-like strings mirroring the API: "cart", "categories",
// "products?categoryId=abc", "products/abc", "orders/xyz". Invalidate("products")
// drops "products" itself and every key under it ("products?..." and
// "products/..."), but not "productsX".
type Cache struct {
	mu        sync.Mutex
	entries   map[string]cacheEntry
	staleTime time.Duration
	now       func() time.Time
}

type cacheEntry struct {
	value     any
	fetchedAt time.Time
}

// NewCache returns an empty cache. A staleTime of zero or less disables
// caching: every Get misses.
func NewCache(staleTime time.Duration) *Cache {
	return &Cache{
		entries:   make(map[string]cacheEntry),
		staleTime: staleTime,
		now:       time.Now,
	}
}

// Get returns the value for key if it is still fresh.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.fetchedAt) >= c.staleTime {
		return nil, false
	}
	return e.value, true
}

func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: value, fetchedAt: c.now()}
}

// Invalidate drops every key equal to or nested under one of prefixes.
func (c *Cache) Invalidate(prefixes ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.entries {
		for _, p := range prefixes {
			if matchesPrefix(key, p) {
				delete(c.entries, key)
				break
			}
		}
	}
}

// InvalidateAll empties the cache.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

// Len is the number of entries, fresh or stale.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func matchesPrefix(key, prefix string) bool {
	if key == prefix {
		return true
	}
	if !strings.HasPrefix(key, prefix) {
		return false
	}
	next := key[len(prefix)]
	return next == '?' || next == '/'
}
