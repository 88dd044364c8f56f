// Package ristretto wraps dgraph-io/ristretto as a small in-process TTL
// cache, used to deduplicate redelivered webhook events.
package ristretto

import (
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Cache is an in-process TTL cache keyed by string.
type Cache struct {
	c *ristretto.Cache[string, struct{}]
}

// New creates a cache sized for roughly maxEntries keys.
func New(maxEntries int64) (*Cache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, struct{}]{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{c: c}, nil
}

// Seen reports whether key is present.
func (c *Cache) Seen(key string) bool {
	_, found := c.c.Get(key)
	return found
}

// Mark records key for the given TTL. The write is flushed before returning
// so an immediately redelivered event is caught.
func (c *Cache) Mark(key string, ttl time.Duration) {
	c.c.SetWithTTL(key, struct{}{}, 1, ttl)
	c.c.Wait()
}

// Close shuts down the cache and releases resources.
func (c *Cache) Close() {
	c.c.Close()
}
