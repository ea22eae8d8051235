package middleware

import (
	"fmt"
	"sync"
	"time"
)

// ==================== CooldownLimiter ====================

// CooldownLimiter lets an action run at most once per interval per key.
// Used for manual order refreshes and catalog syncs, which hit provider APIs.
type CooldownLimiter struct {
	locks sync.Map // key -> *lockEntry
	now   func() time.Time
}

type lockEntry struct {
	lastTime time.Time
	mu       sync.Mutex
}

func NewCooldownLimiter() *CooldownLimiter {
	return &CooldownLimiter{now: time.Now}
}

// CheckResult is the outcome of a cooldown check.
type CheckResult struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Check reports whether key may run now and, if so, starts its cooldown.
func (r *CooldownLimiter) Check(key string, interval time.Duration) CheckResult {
	actual, _ := r.locks.LoadOrStore(key, &lockEntry{})
	entry := actual.(*lockEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	now := r.now()
	elapsed := now.Sub(entry.lastTime)
	if elapsed < interval {
		return CheckResult{Allowed: false, RetryAfter: interval - elapsed}
	}

	entry.lastTime = now
	return CheckResult{Allowed: true}
}

// Reset clears the cooldown of key, e.g. when the guarded action failed before reaching a provider.
func (r *CooldownLimiter) Reset(key string) {
	r.locks.Delete(key)
}

// ==================== keys ====================

type ActionType string

const (
	ActionOrderRefresh ActionType = "order_refresh"
	ActionCatalogSync  ActionType = "catalog_sync"
)

// ScopedKey builds a per-resource key, e.g. "order_refresh:42".
func ScopedKey(action ActionType, scope string) string {
	return fmt.Sprintf("%s:%s", action, scope)
}

// GlobalKey builds the key of an action with no resource scope.
func GlobalKey(action ActionType) string {
	return fmt.Sprintf("global:%s", action)
}

// ==================== default intervals ====================

var DefaultIntervals = map[ActionType]time.Duration{
	ActionOrderRefresh: time.Minute,
	ActionCatalogSync:  10 * time.Minute,
}

func GetInterval(action ActionType) time.Duration {
	if interval, ok := DefaultIntervals[action]; ok {
		return interval
	}
	return time.Minute
}
