package ratelimit

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"fleet-equipment-api/pkg/redis"

	goredis "github.com/redis/go-redis/v9"
)

// fixedWindowScript counts a request in the caller's current window. The
// window starts at the first request and resets once it has fully elapsed.
// Time comes from the caller so every instance agrees on window boundaries.
var fixedWindowScript = goredis.NewScript(`
	local key = KEYS[1]
	local max = tonumber(ARGV[1])
	local window = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])

	local count = tonumber(redis.call('HGET', key, 'count')) or 0
	local window_start = tonumber(redis.call('HGET', key, 'window_start')) or now

	if now - window_start >= window then
		count = 0
		window_start = now
	end

	local allowed = 0
	if count < max then
		count = count + 1
		allowed = 1
	end

	redis.call('HSET', key, 'count', count, 'window_start', window_start)
	redis.call('PEXPIRE', key, math.max(1, (window_start + window) - now))

	return {allowed, count, (window_start + window) - now}
`)

// RedisRateLimiter implements RateLimiter using Redis as the backend so the
// budget is shared by every API instance.
type RedisRateLimiter struct {
	client redis.Provider
	config *Config
	clock  Clock
	stats  RateLimiterStats
}

// NewRedisRateLimiter creates a new Redis-backed rate limiter
func NewRedisRateLimiter(client redis.Provider, config *Config, clock Clock) *RedisRateLimiter {
	if config == nil {
		config = DefaultConfig()
	}
	if clock == nil {
		clock = time.Now
	}

	return &RedisRateLimiter{
		client: client,
		config: config,
		clock:  clock,
	}
}

// Allow checks if a request should be allowed based on rate limits
func (r *RedisRateLimiter) Allow(ctx context.Context, clientID string, category string) (Result, error) {
	limit := r.config.LimitFor(category)
	if !r.config.Enabled {
		return Result{Allowed: true, Limit: limit.Max, Remaining: limit.Max}, nil
	}

	atomic.AddInt64(&r.stats.TotalRequests, 1)

	key := fmt.Sprintf("%s%s:%s", r.config.RedisKeyPrefix, category, clientID)
	now := r.clock()

	raw, err := fixedWindowScript.Run(ctx, r.client.GetClient(), []string{key},
		limit.Max,
		limit.Window.Milliseconds(),
		now.UnixMilli(),
	).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit check failed: %w", err)
	}
	if len(raw) != 3 {
		return Result{}, fmt.Errorf("unexpected script result format")
	}

	result := Result{
		Allowed:    raw[0] == 1,
		Limit:      limit.Max,
		Remaining:  limit.Max - int(raw[1]),
		ResetAfter: time.Duration(raw[2]) * time.Millisecond,
	}
	if !result.Allowed {
		atomic.AddInt64(&r.stats.BlockedRequests, 1)
		result.Remaining = 0
	}

	return result, nil
}

func (r *RedisRateLimiter) Limit(category string) RateLimit {
	return r.config.LimitFor(category)
}

// GetStats returns current rate limiter statistics. Active clients are
// tracked by Redis key expiry and are not counted here.
func (r *RedisRateLimiter) GetStats() RateLimiterStats {
	return RateLimiterStats{
		TotalRequests:   atomic.LoadInt64(&r.stats.TotalRequests),
		BlockedRequests: atomic.LoadInt64(&r.stats.BlockedRequests),
	}
}
