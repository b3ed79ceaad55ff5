package graph

import (
	"context"
	"sync"
)

// DefaultCacheSize bounds each lookup cache inside the client.
const DefaultCacheSize = 10000

// loadingCache is a bounded cache wrapping a fetch function. Entries live
// for the lifetime of one Client and are discarded when it closes. Loads on
// a miss are performed outside the lock and are allowed to race; the last
// writer wins, which is fine for the idempotent lookups cached here.
type loadingCache[K comparable, V any] struct {
	mu      sync.Mutex
	max     int
	entries map[K]V
	order   []K // insertion order, evicted oldest-first at capacity
	loader  func(ctx context.Context, key K) (V, error)
}

func newLoadingCache[K comparable, V any](max int, loader func(ctx context.Context, key K) (V, error)) *loadingCache[K, V] {
	if max <= 0 {
		max = DefaultCacheSize
	}
	return &loadingCache[K, V]{
		max:     max,
		entries: make(map[K]V),
		loader:  loader,
	}
}

// Get returns the cached value, loading it on a miss. Loader errors are not
// cached so a transient failure is retried on the next lookup.
func (c *loadingCache[K, V]) Get(ctx context.Context, key K) (V, error) {
	c.mu.Lock()
	if v, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	v, err := c.loader(ctx, key)
	if err != nil {
		var zero V
		return zero, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		if len(c.entries) >= c.max {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.entries[key] = v
		c.order = append(c.order, key)
	}
	return c.entries[key], nil
}

// Len returns the number of cached entries.
func (c *loadingCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
