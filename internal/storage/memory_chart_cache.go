package storage

import (
	"context"
	"sync"
	"time"

	"github.com/demoscope-io/demoscope/internal/aggregation"
)

var _ aggregation.Cache = (*MemoryChartCache)(nil)

type (
	// MemoryChartCache provides a thread-safe in-memory chart cache with TTL,
	// used by unit tests and by cacheless single-node runs.
	MemoryChartCache struct {
		// entries maps keys to values with their expiry deadlines
		entries map[string]cacheEntry
		// mutex protects concurrent access to entries
		mutex sync.Mutex
		// now is the time source, overridable in tests
		now func() time.Time
	}

	cacheEntry struct {
		value     *aggregation.ChartData
		expiresAt time.Time
	}
)

// MemoryChartCacheOption configures optional MemoryChartCache behavior.
type MemoryChartCacheOption func(*MemoryChartCache)

// WithCacheClock overrides the cache time source, used by tests to drive
// expiry deterministically.
func WithCacheClock(now func() time.Time) MemoryChartCacheOption {
	return func(c *MemoryChartCache) {
		c.now = now
	}
}

// NewMemoryChartCache creates an empty in-memory chart cache.
func NewMemoryChartCache(opts ...MemoryChartCacheOption) *MemoryChartCache {
	c := &MemoryChartCache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

// Get returns the cached chart data for key, with false when absent or
// expired. Expired entries are removed on read.
func (c *MemoryChartCache) Get(_ context.Context, key string) (*aggregation.ChartData, bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}

	if c.now().After(entry.expiresAt) {
		delete(c.entries, key)

		return nil, false, nil
	}

	return entry.value, true, nil
}

// Set stores chart data under key with the given expiry.
func (c *MemoryChartCache) Set(_ context.Context, key string, value *aggregation.ChartData, ttl time.Duration) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[key] = cacheEntry{
		value:     value,
		expiresAt: c.now().Add(ttl),
	}

	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (c *MemoryChartCache) Delete(_ context.Context, key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.entries, key)

	return nil
}
