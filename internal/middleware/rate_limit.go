package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"civicconnect/internal/utils"
	"civicconnect/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Limiter decides whether the caller identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimiter is an in-process token bucket per key.
type RateLimiter struct {
	visitors    map[string]*Visitor
	mu          sync.Mutex
	perSecond   float64
	burst       float64
	idle        time.Duration
	lastCleanup time.Time
}

// Visitor represents a visitor's rate limiting data
type Visitor struct {
	tokens   float64
	lastSeen time.Time
}

// NewRateLimiter allows perMinute requests per key with bursts up to burst.
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	if burst <= 0 {
		burst = perMinute
	}
	return &RateLimiter{
		visitors:    make(map[string]*Visitor),
		perSecond:   float64(perMinute) / 60,
		burst:       float64(burst),
		idle:        3 * time.Minute,
		lastCleanup: time.Now(),
	}
}

// Allow takes one token from key's bucket.
func (rl *RateLimiter) Allow(_ context.Context, key string) (bool, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	rl.cleanupLocked(now)

	visitor, exists := rl.visitors[key]
	if !exists {
		visitor = &Visitor{tokens: rl.burst, lastSeen: now}
		rl.visitors[key] = visitor
	}

	// Refill based on elapsed time
	visitor.tokens += now.Sub(visitor.lastSeen).Seconds() * rl.perSecond
	if visitor.tokens > rl.burst {
		visitor.tokens = rl.burst
	}
	visitor.lastSeen = now

	if visitor.tokens >= 1 {
		visitor.tokens--
		return true, nil
	}
	return false, nil
}

// cleanupLocked forgets visitors idle for longer than rl.idle.
func (rl *RateLimiter) cleanupLocked(now time.Time) {
	if now.Sub(rl.lastCleanup) < rl.idle {
		return
	}
	for key, visitor := range rl.visitors {
		if now.Sub(visitor.lastSeen) > rl.idle {
			delete(rl.visitors, key)
		}
	}
	rl.lastCleanup = now
}

// RedisLimiter is a fixed one-minute window counter shared by every instance.
type RedisLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
	prefix string
}

func NewRedisLimiter(client *redis.Client, perMinute int, prefix string) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		limit:  int64(perMinute),
		window: time.Minute,
		prefix: prefix,
	}
}

func (rl *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	windowStart := time.Now().Truncate(rl.window).Unix()
	redisKey := fmt.Sprintf("ratelimit:%s:%s:%d", rl.prefix, key, windowStart)

	pipe := rl.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, rl.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return incr.Val() <= rl.limit, nil
}

// RateLimit rejects callers over their budget with 429. Limiter errors fail open.
func RateLimit(limiter Limiter, limit int) gin.HandlerFunc {
	limitHeader := strconv.Itoa(limit)

	return func(c *gin.Context) {
		key := getClientKey(c)

		allowed, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			logger.WithError(err).Warn("Rate limiter unavailable, allowing request")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", limitHeader)
		if !allowed {
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", "60")

			logger.LogSecurityEvent("rate_limited", c.GetString(ContextUserID), c.ClientIP(), map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			utils.ErrorResponse(c, http.StatusTooManyRequests, "Rate limit exceeded")
			c.Abort()
			return
		}

		c.Next()
	}
}

// getClientKey prefers the authenticated user and falls back to the client IP.
func getClientKey(c *gin.Context) string {
	if userID := c.GetString(ContextUserID); userID != "" {
		return "user:" + userID
	}
	return "ip:" + c.ClientIP()
}
