package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimiterConfig holds configuration for the rate limiter.
type RateLimiterConfig struct {
	RequestsPerSecond float64
	BurstCapacity     int
	Enabled           bool
}

// tokenBucket refills at ARGV[1] tokens per second up to ARGV[2] tokens
// and takes one token per call. Returns 1 when the call is allowed.
var tokenBucket = redis.NewScript(`
	local key = KEYS[1]
	local rate = tonumber(ARGV[1])
	local capacity = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])

	local bucket = redis.call('HMGET', key, 'last_refill', 'tokens')
	local last_refill = tonumber(bucket[1]) or now
	local tokens = tonumber(bucket[2]) or capacity

	local elapsed = math.max(0, now - last_refill)
	tokens = math.min(capacity, tokens + elapsed * rate)

	local allowed = 0
	if tokens >= 1 then
		tokens = tokens - 1
		allowed = 1
	end

	redis.call('HSET', key, 'last_refill', tostring(now), 'tokens', tostring(tokens))
	redis.call('EXPIRE', key, 60)
	return allowed
`)

// RateLimiter limits requests per client IP and route with a token bucket
// kept in Redis, so the limit holds across replicas.
type RateLimiter struct {
	client *redis.Client
	config RateLimiterConfig
	log    *zap.Logger
	now    func() time.Time
}

// NewRateLimiter creates a new Redis-backed rate limiter.
func NewRateLimiter(client *redis.Client, config RateLimiterConfig, log *zap.Logger) *RateLimiter {
	return &RateLimiter{
		client: client,
		config: config,
		log:    log,
		now:    time.Now,
	}
}

// Allow takes one token from the bucket identified by key.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := float64(rl.now().UnixMilli()) / 1000
	allowed, err := tokenBucket.Run(ctx, rl.client, []string{key},
		rl.config.RequestsPerSecond,
		rl.config.BurstCapacity,
		now,
	).Int64()
	if err != nil {
		return false, err
	}
	return allowed == 1, nil
}

// Middleware returns a Gin middleware for rate limiting. A nil limiter or a
// disabled config lets every request through; Redis errors fail open.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl == nil || rl.client == nil || !rl.config.Enabled {
			c.Next()
			return
		}

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		key := fmt.Sprintf("ratelimit:tb:%s:%s:%s", c.Request.Method, route, c.ClientIP())

		allowed, err := rl.Allow(c.Request.Context(), key)
		if err != nil {
			rl.log.Warn("rate limiter redis error, allowing request",
				zap.String("client_ip", c.ClientIP()),
				zap.String("route", route),
				zap.Error(err),
			)
			c.Next()
			return
		}

		if !allowed {
			rl.log.Warn("rate limit exceeded",
				zap.String("client_ip", c.ClientIP()),
				zap.String("route", route),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"detail": fmt.Sprintf("Rate limit exceeded: %.2f requests/second (burst capacity: %d)",
					rl.config.RequestsPerSecond, rl.config.BurstCapacity),
				"error": "rate_limit_exceeded",
			})
			return
		}

		c.Next()
	}
}
