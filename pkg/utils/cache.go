package utils

import (
	"sync"
	"time"
)

// TTLCache is a concurrency-safe map whose entries expire after a fixed TTL.
// Expired entries are removed lazily on read or by Purge.
type TTLCache[V any] struct {
	items sync.Map
	ttl   time.Duration
	now   func() time.Time
}

// cacheItem holds the value and its absolute expiry
type cacheItem[V any] struct {
	value     V
	expiresAt time.Time
}

func NewTTLCache[V any](ttl time.Duration) *TTLCache[V] {
	return &TTLCache[V]{ttl: ttl, now: time.Now}
}

// WithClock swaps the time source; tests only.
func (c *TTLCache[V]) WithClock(now func() time.Time) *TTLCache[V] {
	c.now = now
	return c
}

// Set stores a value and restarts its TTL.
func (c *TTLCache[V]) Set(key string, value V) {
	c.items.Store(key, cacheItem[V]{
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	})
}

// Get returns the value if present and not expired.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	var zero V
	raw, ok := c.items.Load(key)
	if !ok {
		return zero, false
	}

	item := raw.(cacheItem[V])
	if c.now().After(item.expiresAt) {
		c.items.Delete(key) // lazy delete
		return zero, false
	}
	return item.value, true
}

// TTL is the lifetime given to each Set.
func (c *TTLCache[V]) TTL() time.Duration {
	return c.ttl
}

func (c *TTLCache[V]) Delete(key string) {
	c.items.Delete(key)
}

// Purge drops every expired entry and reports how many were removed.
func (c *TTLCache[V]) Purge() int {
	now := c.now()
	removed := 0
	c.items.Range(func(key, raw any) bool {
		if now.After(raw.(cacheItem[V]).expiresAt) {
			c.items.Delete(key)
			removed++
		}
		return true
	})
	return removed
}
