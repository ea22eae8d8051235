package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ==================== identity ====================

// Identity comes from the surrounding application (gateway or storefront):
// the authenticated user id and the browsing session that owns the cart.
const (
	HeaderUserID    = "X-User-ID"
	HeaderSessionID = "X-Session-ID"
	HeaderRequestID = "X-Request-ID"
	HeaderAdminKey  = "X-Admin-Key"

	ctxUserID    = "user_id"
	ctxSessionID = "session_id"
	ctxRequestID = "request_id"
)

type identityKey struct{}

// RequestIdentity is carried on the request context for logging.
type RequestIdentity struct {
	RequestID string
	UserID    string
	SessionID string
}

func WithIdentity(ctx context.Context, id *RequestIdentity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFrom(ctx context.Context) *RequestIdentity {
	if id, ok := ctx.Value(identityKey{}).(*RequestIdentity); ok {
		return id
	}
	return nil
}

// Identify reads the identity headers into the gin and request contexts.
func Identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := &RequestIdentity{
			RequestID: strings.TrimSpace(c.GetHeader(HeaderRequestID)),
			UserID:    strings.TrimSpace(c.GetHeader(HeaderUserID)),
			SessionID: strings.TrimSpace(c.GetHeader(HeaderSessionID)),
		}
		if id.RequestID == "" {
			id.RequestID = uuid.NewString()
		}
		c.Header(HeaderRequestID, id.RequestID)

		c.Set(ctxRequestID, id.RequestID)
		c.Set(ctxUserID, id.UserID)
		c.Set(ctxSessionID, id.SessionID)
		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

// RequireUser rejects requests without a user id.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetUserID(c) == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing " + HeaderUserID + " header"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireSession rejects requests without a session id.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetSessionID(c) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing " + HeaderSessionID + " header"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAdmin guards operator routes with a shared key. An empty key
// disables them.
func RequireAdmin(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin routes are disabled"})
			c.Abort()
			return
		}
		got := c.GetHeader(HeaderAdminKey)
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid " + HeaderAdminKey + " header"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func GetUserID(c *gin.Context) string    { return c.GetString(ctxUserID) }
func GetSessionID(c *gin.Context) string { return c.GetString(ctxSessionID) }
func GetRequestID(c *gin.Context) string { return c.GetString(ctxRequestID) }

// ==================== access log ====================

// AccessLog writes one structured line per request.
func AccessLog(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", GetRequestID(c)),
		}
		if uid := GetUserID(c); uid != "" {
			fields = append(fields, zap.String("user_id", uid))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			log.Error("request", fields...)
		case status >= 400:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}
