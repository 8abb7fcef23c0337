package pms

import (
	"sync"
	"time"
)

// listingCache is a small TTL cache for container listings, so a grid
// re-render or a back-navigation does not refetch the same folder. Ratings
// invalidate it wholesale.
type listingCache struct {
	mu    sync.RWMutex
	items map[string]*cacheItem
	ttl   time.Duration
	stats CacheStats
}

// CacheStats
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
}

// cacheItem
type cacheItem struct {
	container *MediaContainer
	expiredAt time.Time
}

// isExpired
func (item *cacheItem) isExpired() bool {
	return time.Now().After(item.expiredAt)
}

// newListingCache
func newListingCache(ttl time.Duration) *listingCache {
	return &listingCache{
		items: make(map[string]*cacheItem),
		ttl:   ttl,
	}
}

func (c *listingCache) get(key string) (*MediaContainer, bool) {
	c.mu.RLock()
	item, ok := c.items[key]
	c.mu.RUnlock()
	if !ok || item.isExpired() {
		c.mu.Lock()
		if !ok {
			c.stats.Misses++
		} else {
			delete(c.items, key)
			c.stats.Misses++
		}
		c.mu.Unlock()
		return nil, false
	}
	c.mu.Lock()
	c.stats.Hits++
	c.mu.Unlock()
	return item.container, true
}

func (c *listingCache) set(key string, container *MediaContainer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = &cacheItem{
		container: container,
		expiredAt: time.Now().Add(c.ttl),
	}
	c.stats.Sets++
}

func (c *listingCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*cacheItem)
}

// Stats
func (c *listingCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}
