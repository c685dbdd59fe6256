package cache

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"demand-forecast/internal/domain"
	"demand-forecast/internal/observability"
)

// LRU is a size-bounded in-process cache with optional TTL expiry.
type LRU struct {
	cache *lru.Cache[string, *entry]
	ttl   time.Duration
	now   func() time.Time

	mu     sync.Mutex
	hits   uint64
	misses uint64
}

type entry struct {
	series    *domain.ForecastSeries
	expiresAt time.Time
}

var _ Cache = (*LRU)(nil)

// NewLRU creates an LRU holding at most size series. A zero ttl never expires.
func NewLRU(size int, ttl time.Duration) (*LRU, error) {
	c, err := lru.New[string, *entry](size)
	if err != nil {
		return nil, err
	}
	return &LRU{cache: c, ttl: ttl, now: time.Now}, nil
}

// Get implements Cache. Returned series are copies.
func (c *LRU) Get(_ context.Context, key string) (*domain.ForecastSeries, bool) {
	e, ok := c.cache.Get(key)
	if ok && c.ttl > 0 && c.now().After(e.expiresAt) {
		c.cache.Remove(key)
		ok = false
	}

	c.mu.Lock()
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	c.mu.Unlock()
	observability.RecordCache("lru", ok)

	if !ok {
		return nil, false
	}
	return cloneSeries(e.series), true
}

// Set implements Cache.
func (c *LRU) Set(_ context.Context, key string, series *domain.ForecastSeries) {
	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = c.now().Add(c.ttl)
	}
	c.cache.Add(key, &entry{series: cloneSeries(series), expiresAt: expiresAt})
}

// Len returns the number of cached entries, expired ones included.
func (c *LRU) Len() int {
	return c.cache.Len()
}

// Stats returns hit and miss counts.
func (c *LRU) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Purge drops every entry.
func (c *LRU) Purge() {
	c.cache.Purge()
}
