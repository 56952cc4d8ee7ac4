package data

import (
	"strings"
	"sync"
	"time"

	"github.com/fitdash/metrics"
)

type entry struct {
	value     any
	expiresAt time.Time
}

// Cache is an in-memory TTL cache for decoded API responses.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
	stats   Stats
}

type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Keys      int
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if ok && !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		c.stats.Evictions++
		metrics.CacheEntries.Set(float64(len(c.entries)))
		ok = false
	}
	if !ok {
		c.stats.Misses++
		metrics.RecordCacheLookup(false)
		return nil, false
	}
	c.stats.Hits++
	metrics.RecordCacheLookup(true)
	return e.value, true
}

func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, expiresAt: c.now().Add(c.ttl)}
	metrics.CacheEntries.Set(float64(len(c.entries)))
}

// Purge drops every key starting with prefix and returns how many were removed.
func (c *Cache) Purge(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			removed++
		}
	}
	metrics.CacheEntries.Set(float64(len(c.entries)))
	return removed
}

// DeleteExpired removes entries past their TTL.
func (c *Cache) DeleteExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	c.stats.Evictions += int64(removed)
	metrics.CacheEntries.Set(float64(len(c.entries)))
	return removed
}

func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.stats
	s.Keys = len(c.entries)
	return s
}
