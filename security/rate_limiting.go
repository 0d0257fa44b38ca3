package security

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
)

// RateLimiter counts requests per key in fixed Redis windows. A nil Redis
// client lets every request through.
type RateLimiter struct {
	redis  *redis.Client
	limit  int64
	window time.Duration
}

func NewRateLimiter(redisClient *redis.Client, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		redis:  redisClient,
		limit:  int64(limit),
		window: window,
	}
}

// Allow records one request for key and reports whether it is within the
// limit. Redis failures are logged and allowed.
func (r *RateLimiter) Allow(ctx context.Context, key string) bool {
	if r.redis == nil || r.limit <= 0 {
		return true
	}

	key = "ratelimit:" + key
	count, err := r.redis.Incr(ctx, key).Result()
	if err != nil {
		slog.Warn("Rate limit check failed", "key", key, "error", err)
		return true
	}
	if count == 1 {
		if err := r.redis.Expire(ctx, key, r.window).Err(); err != nil {
			slog.Warn("Rate limit expiry failed", "key", key, "error", err)
		}
	}
	return count <= r.limit
}

// Middleware limits requests per client IP under the given scope.
func (r *RateLimiter) Middleware(scope string) func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		key := fmt.Sprintf("%s:%s", scope, clientIP(e))
		if !r.Allow(e.Request.Context(), key) {
			return apis.NewTooManyRequestsError("Too many attempts. Please try again later.", nil)
		}
		return e.Next()
	}
}

// AntiBotMiddleware rejects requests from user agents that identify as
// crawlers.
func (r *RateLimiter) AntiBotMiddleware(e *core.RequestEvent) error {
	if isSuspiciousUserAgent(e.Request.Header.Get("User-Agent")) {
		return apis.NewForbiddenError("Access denied", nil)
	}
	return e.Next()
}

// clientIP honours the trusted proxy headers configured in the app settings.
func clientIP(e *core.RequestEvent) string {
	if e.App != nil {
		return e.RealIP()
	}
	return e.RemoteIP()
}

func isSuspiciousUserAgent(ua string) bool {
	suspicious := []string{"bot", "crawler", "spider", "scraper"}
	for _, pattern := range suspicious {
		if strings.Contains(strings.ToLower(ua), pattern) {
			return true
		}
	}
	return false
}
