package crawler

import (
	"sync"
	"time"
)

type cacheEntry struct {
	context   string
	links     []string
	createdAt time.Time
}

// pageCache is an optional cross-run cache of extracted pages, keyed by
// normalized URL. It keeps repeat runs over the same link set from
// re-fetching unchanged pages. Safe for concurrent use.
type pageCache struct {
	mu         sync.RWMutex
	store      map[string]*cacheEntry
	ttl        time.Duration
	maxEntries int
}

func newPageCache(ttl time.Duration, maxEntries int) *pageCache {
	return &pageCache{
		store:      make(map[string]*cacheEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
	}
}

// get returns the cached extraction for a URL, expiring stale entries
// lazily.
func (c *pageCache) get(url string) (string, []string, bool) {
	c.mu.RLock()
	e, ok := c.store[url]
	c.mu.RUnlock()
	if !ok {
		return "", nil, false
	}
	if time.Since(e.createdAt) > c.ttl {
		c.mu.Lock()
		delete(c.store, url)
		c.mu.Unlock()
		return "", nil, false
	}
	return e.context, e.links, true
}

func (c *pageCache) set(url, context string, links []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Evict one arbitrary entry at capacity (map iteration is random).
	if len(c.store) >= c.maxEntries {
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}
	c.store[url] = &cacheEntry{context: context, links: links, createdAt: time.Now()}
}
