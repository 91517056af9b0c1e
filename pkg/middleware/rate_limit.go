package middleware

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prohmpiriya/jelli-fit/pkg/logger"
	pkgredis "github.com/prohmpiriya/jelli-fit/pkg/redis"
	"github.com/prohmpiriya/jelli-fit/pkg/response"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	// One token is replenished per RefillInterval
	RefillInterval time.Duration
	// Token bucket capacity
	BurstSize int
	// Whether to use Redis for distributed rate limiting
	UseRedis bool
	// Redis client (required if UseRedis is true)
	RedisClient *pkgredis.Client
	// Key prefix for Redis
	KeyPrefix string
	// Cleanup interval for local rate limiter
	CleanupInterval time.Duration
	// Entry TTL for local rate limiter
	EntryTTL time.Duration
	// Clock, overridable in tests
	Now func() time.Time
}

// DefaultRateLimitConfig returns a burst of 20 requests refilled at one
// request per 500ms.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RefillInterval:  500 * time.Millisecond,
		BurstSize:       20,
		KeyPrefix:       "jellifit:ratelimit:",
		CleanupInterval: time.Minute,
		EntryTTL:        time.Minute,
		Now:             time.Now,
	}
}

func (c RateLimitConfig) ratePerSecond() float64 {
	if c.RefillInterval <= 0 {
		return 0
	}
	return float64(time.Second) / float64(c.RefillInterval)
}

// rateLimitEntry tracks rate limit state for a client
type rateLimitEntry struct {
	tokens     float64
	lastUpdate time.Time
	mu         sync.Mutex
}

// LocalRateLimiter implements in-memory token bucket rate limiting
type LocalRateLimiter struct {
	config   RateLimitConfig
	entries  sync.Map
	stop     chan struct{}
	stopOnce sync.Once

	totalAllowed  uint64
	totalRejected uint64
}

// NewLocalRateLimiter creates a local rate limiter and starts its cleanup loop
func NewLocalRateLimiter(config RateLimitConfig) *LocalRateLimiter {
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = time.Minute
	}
	if config.EntryTTL <= 0 {
		config.EntryTTL = time.Minute
	}

	rl := &LocalRateLimiter{
		config: config,
		stop:   make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// Allow takes one token from key's bucket if available
func (rl *LocalRateLimiter) Allow(key string) bool {
	now := rl.config.Now()

	entry, _ := rl.entries.LoadOrStore(key, &rateLimitEntry{
		tokens:     float64(rl.config.BurstSize),
		lastUpdate: now,
	})
	e := entry.(*rateLimitEntry)

	e.mu.Lock()
	defer e.mu.Unlock()

	elapsed := now.Sub(e.lastUpdate).Seconds()
	if elapsed > 0 {
		e.tokens = min(float64(rl.config.BurstSize), e.tokens+elapsed*rl.config.ratePerSecond())
		e.lastUpdate = now
	}

	if e.tokens >= 1 {
		e.tokens--
		atomic.AddUint64(&rl.totalAllowed, 1)
		return true
	}

	atomic.AddUint64(&rl.totalRejected, 1)
	return false
}

// GetStats returns rate limiter statistics
func (rl *LocalRateLimiter) GetStats() (allowed, rejected uint64) {
	return atomic.LoadUint64(&rl.totalAllowed), atomic.LoadUint64(&rl.totalRejected)
}

func (rl *LocalRateLimiter) cleanup() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := rl.config.Now().Add(-rl.config.EntryTTL)
			rl.entries.Range(func(key, value any) bool {
				e := value.(*rateLimitEntry)
				e.mu.Lock()
				if e.lastUpdate.Before(cutoff) {
					rl.entries.Delete(key)
				}
				e.mu.Unlock()
				return true
			})
		case <-rl.stop:
			return
		}
	}
}

// Stop stops the cleanup goroutine
func (rl *LocalRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

const tokenBucketScriptName = "token_bucket"

const tokenBucketScript = `
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local data = redis.call("HMGET", key, "tokens", "last_update")
local tokens = tonumber(data[1]) or burst
local last_update = tonumber(data[2]) or now

local elapsed = math.max(0, now - last_update)
tokens = math.min(burst, tokens + elapsed * rate)

local allowed = 0
if tokens >= 1 then
    tokens = tokens - 1
    allowed = 1
end

redis.call("HMSET", key, "tokens", tokens, "last_update", now)
redis.call("EXPIRE", key, 60)
return {allowed, math.floor(tokens)}
`

// RedisRateLimiter implements Redis-based distributed rate limiting
type RedisRateLimiter struct {
	config RateLimitConfig
}

// NewRedisRateLimiter loads the token bucket script into Redis
func NewRedisRateLimiter(ctx context.Context, config RateLimitConfig) (*RedisRateLimiter, error) {
	if config.RedisClient == nil {
		return nil, fmt.Errorf("redis rate limiter requires a redis client")
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if _, err := config.RedisClient.LoadScript(ctx, tokenBucketScriptName, tokenBucketScript); err != nil {
		return nil, err
	}
	return &RedisRateLimiter{config: config}, nil
}

// Allow checks if a request should be allowed using Redis
func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := float64(rl.config.Now().UnixNano()) / 1e9

	values, err := rl.config.RedisClient.EvalShaByName(ctx, tokenBucketScriptName,
		[]string{rl.config.KeyPrefix + key},
		rl.config.ratePerSecond(),
		float64(rl.config.BurstSize),
		now,
	).Slice()
	if err != nil {
		return false, err
	}
	if len(values) < 1 {
		return false, fmt.Errorf("unexpected result length")
	}

	allowed, _ := values[0].(int64)
	return allowed == 1, nil
}

// RateLimiter creates a per-client rate limiting middleware. A nil redis
// limiter selects the local in-memory bucket.
func RateLimiter(config RateLimitConfig, redisLimiter *RedisRateLimiter) gin.HandlerFunc {
	var localLimiter *LocalRateLimiter
	if redisLimiter == nil {
		localLimiter = NewLocalRateLimiter(config)
	}

	retryAfter := int(config.RefillInterval.Round(time.Second) / time.Second)
	if retryAfter < 1 {
		retryAfter = 1
	}

	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		var allowed bool
		if redisLimiter != nil {
			var err error
			allowed, err = redisLimiter.Allow(c.Request.Context(), clientIP)
			if err != nil {
				// fail open
				logger.Get().WarnContext(c.Request.Context(), "rate limiter redis error", zap.Error(err))
				allowed = true
			}
		} else {
			allowed = localLimiter.Allow(clientIP)
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(config.BurstSize))

		if !allowed {
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(response.GetHTTPStatus(response.ErrCodeTooManyRequests), response.TooManyRequests(""))
			return
		}

		c.Next()
	}
}
