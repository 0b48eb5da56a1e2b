package route

import (
	"fmt"
	"sync"
	"time"

	"github.com/example/roadside-dispatch/internal/models"
)

// MemoryCache is a small in-memory route cache keyed by coordinate pair.
type MemoryCache struct {
	mu    sync.RWMutex
	store map[string]cacheEntry
	ttl   time.Duration
}

type cacheEntry struct {
	r  models.RouteResult
	ts time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{store: make(map[string]cacheEntry), ttl: ttl}
}

func cacheKey(a, b models.Coord) string {
	return fmt.Sprintf("%.6f,%.6f->%.6f,%.6f", a.Lat, a.Lon, b.Lat, b.Lon)
}

func (c *MemoryCache) Get(from, to models.Coord) (models.RouteResult, bool) {
	k := cacheKey(from, to)
	c.mu.RLock()
	e, ok := c.store[k]
	c.mu.RUnlock()
	if !ok {
		return models.RouteResult{}, false
	}
	if time.Since(e.ts) > c.ttl {
		c.mu.Lock()
		delete(c.store, k)
		c.mu.Unlock()
		return models.RouteResult{}, false
	}
	return e.r, true
}

func (c *MemoryCache) Set(from, to models.Coord, r models.RouteResult) {
	c.mu.Lock()
	c.store[cacheKey(from, to)] = cacheEntry{r: r, ts: time.Now()}
	c.mu.Unlock()
}
