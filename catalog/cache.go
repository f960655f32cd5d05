package catalog

import (
	"sync"
	"time"
)

// productCache is an in-memory cache of resolved image sets per product
// code with a per-entry TTL.
type productCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
}

type cacheEntry struct {
	images  []Image
	fetched time.Time
}

func newProductCache(ttl time.Duration) *productCache {
	return &productCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
	}
}

func (c *productCache) get(code string) ([]Image, bool) {
	c.mu.RLock()
	entry, ok := c.entries[code]
	c.mu.RUnlock()
	if !ok || time.Since(entry.fetched) >= c.ttl {
		return nil, false
	}
	return entry.images, true
}

func (c *productCache) put(code string, images []Image) {
	c.mu.Lock()
	c.entries[code] = cacheEntry{images: images, fetched: time.Now()}
	c.mu.Unlock()
}
