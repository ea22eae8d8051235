package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// ==================== cooldown middleware ====================

// Cooldown throttles an action per resource. The scope is read from the
// route parameter param; without one the action is throttled globally.
//
//	orders.POST("/:id/refresh",
//	    middleware.Cooldown(limiter, middleware.ActionOrderRefresh, "id", 0),
//	    orderCtl.Refresh,
//	)
//
// interval 0 uses the default for the action.
func Cooldown(limiter *CooldownLimiter, action ActionType, param string, interval time.Duration) gin.HandlerFunc {
	if interval == 0 {
		interval = GetInterval(action)
	}

	return func(c *gin.Context) {
		key := GlobalKey(action)
		if param != "" {
			scope := c.Param(param)
			if scope == "" {
				scope = c.Query(param)
			}
			if scope != "" {
				key = ScopedKey(action, scope)
			}
		}

		result := limiter.Check(key, interval)
		if !result.Allowed {
			retryAfter := int(result.RetryAfter.Round(time.Second).Seconds())
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": formatRetryMessage(result.RetryAfter),
				"data": gin.H{
					"retry_after": retryAfter,
					"action":      action,
				},
			})
			c.Abort()
			return
		}

		c.Next()

		// nothing reached a provider, so the cooldown is not spent
		if status := c.Writer.Status(); status >= 400 && status < 500 && status != http.StatusTooManyRequests {
			limiter.Reset(key)
		}
	}
}

// ==================== helpers ====================

func formatRetryMessage(d time.Duration) string {
	seconds := int(d.Round(time.Second).Seconds())
	if seconds < 60 {
		return fmt.Sprintf("cooling down, retry in %d seconds", seconds)
	}

	minutes := seconds / 60
	remainingSeconds := seconds % 60
	if remainingSeconds == 0 {
		if minutes == 1 {
			return "cooling down, retry in 1 minute"
		}
		return fmt.Sprintf("cooling down, retry in %d minutes", minutes)
	}
	return fmt.Sprintf("cooling down, retry in %dm%ds", minutes, remainingSeconds)
}
