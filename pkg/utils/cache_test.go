package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLCacheExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cache := NewTTLCache[string](10 * time.Minute).WithClock(func() time.Time { return now })

	cache.Set("a", "1")
	cache.Set("b", "2")

	v, ok := cache.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	now = now.Add(11 * time.Minute)
	_, ok = cache.Get("a")
	assert.False(t, ok, "expired entry must not be returned")

	assert.Equal(t, 1, cache.Purge(), "only b is left to purge")
	_, ok = cache.Get("b")
	assert.False(t, ok)
}

func TestTTLCacheSetRefreshesTTL(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cache := NewTTLCache[int](time.Minute).WithClock(func() time.Time { return now })

	cache.Set("k", 1)
	now = now.Add(50 * time.Second)
	cache.Set("k", 2)
	now = now.Add(50 * time.Second)

	v, ok := cache.Get("k")
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	cache.Delete("k")
	_, ok = cache.Get("k")
	assert.False(t, ok)
}
