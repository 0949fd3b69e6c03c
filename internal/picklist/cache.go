package picklist

import (
	"slices"
	"sync"
	"time"

	"github.com/leapstack-labs/leapcrm/pkg/core"
)

// DefaultTTL is how long a cached list stays fresh.
const DefaultTTL = 5 * time.Minute

// CacheKey returns the default cache key for a list type.
func CacheKey(entityType string) string {
	return "picklist_" + entityType
}

type entry struct {
	items     []core.PicklistItem
	fetchedAt time.Time
}

// Cache is the process-wide picklist cache shared by all loaders.
// The lock only guards the map; it is never held across a fetch, so two
// loaders racing on a cold key may both fetch and the last Set wins.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]entry
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithTTL overrides the freshness window.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) { c.ttl = ttl }
}

// WithClock injects the time source.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

// NewCache creates an empty cache.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		ttl:     DefaultTTL,
		now:     time.Now,
		entries: make(map[string]entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a copy of the cached items if the entry is still fresh.
func (c *Cache) Get(key string) ([]core.PicklistItem, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.now().Sub(e.fetchedAt) >= c.ttl {
		return nil, false
	}
	return slices.Clone(e.items), true
}

// Set replaces the entry for key wholesale.
func (c *Cache) Set(key string, items []core.PicklistItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{items: slices.Clone(items), fetchedAt: c.now()}
}

// Invalidate drops the entry for key.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Age returns how long ago key was fetched.
func (c *Cache) Age(key string) (time.Duration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return 0, false
	}
	return c.now().Sub(e.fetchedAt), true
}
