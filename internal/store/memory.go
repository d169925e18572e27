package store

import (
	"context"
	"sync"
	"time"

	"github.com/i474232898/address-forecast/internal/weather"
)

type memoryEntry struct {
	result    weather.Result
	expiresAt time.Time
}

// MemoryCache is a concurrency-safe in-memory implementation of weather.Cache.
// Entries expire individually; Sweep reclaims the ones nobody read again.
type MemoryCache struct {
	mu sync.RWMutex

	// key: cache key, value: stored result with its deadline
	data map[string]memoryEntry

	now func() time.Time
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		data: make(map[string]memoryEntry),
		now:  time.Now,
	}
}

// Read returns the entry for key if it exists and has not expired.
func (c *MemoryCache) Read(_ context.Context, key string) (weather.Result, bool, error) {
	c.mu.RLock()
	entry, ok := c.data[key]
	c.mu.RUnlock()

	if !ok {
		return weather.Result{}, false, nil
	}
	if !c.now().Before(entry.expiresAt) {
		c.mu.Lock()
		// re-check: a concurrent Write may have refreshed it
		if current, still := c.data[key]; still && !c.now().Before(current.expiresAt) {
			delete(c.data, key)
		}
		c.mu.Unlock()
		return weather.Result{}, false, nil
	}
	return entry.result, true, nil
}

// Write stores result under key for ttl, replacing any previous entry.
// A non-positive ttl stores nothing.
func (c *MemoryCache) Write(_ context.Context, key string, result weather.Result, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = memoryEntry{result: result, expiresAt: c.now().Add(ttl)}
	return nil
}

// Sweep drops expired entries and reports how many were removed.
func (c *MemoryCache) Sweep(_ context.Context) (int, error) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.data {
		if !now.Before(entry.expiresAt) {
			delete(c.data, key)
			removed++
		}
	}
	return removed, nil
}

// Len reports the number of stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Close is a no-op; it lets MemoryCache satisfy the same lifecycle as SQLCache.
func (c *MemoryCache) Close() error {
	return nil
}
