// Package ratelimiter implements a Redis-backed token bucket shared by every
// process that calls the scoring oracle.
package ratelimiter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// BucketConfig sizes one bucket. RefillRate is tokens per second.
type BucketConfig struct {
	Capacity   int64
	RefillRate float64
}

// NewBucketConfigFromPerMinute allows bursts of perMinute calls, refilled evenly over a minute.
func NewBucketConfigFromPerMinute(perMinute int) BucketConfig {
	if perMinute <= 0 {
		return BucketConfig{}
	}
	return BucketConfig{
		Capacity:   int64(perMinute),
		RefillRate: float64(perMinute) / 60.0,
	}
}

func (c BucketConfig) enabled() bool { return c.Capacity > 0 && c.RefillRate > 0 }

// RedisLuaLimiter evaluates the bucket atomically in a Lua script so replicas share one budget.
type RedisLuaLimiter struct {
	redis   *redis.Client
	script  *redis.Script
	prefix  string
	now     func() time.Time
	mu      sync.RWMutex
	buckets map[string]BucketConfig
}

// NewRedisLuaLimiter returns nil without a client; a nil limiter allows everything.
func NewRedisLuaLimiter(rdb *redis.Client, buckets map[string]BucketConfig) *RedisLuaLimiter {
	if rdb == nil {
		return nil
	}
	b := make(map[string]BucketConfig, len(buckets))
	for k, v := range buckets {
		b[k] = v
	}
	return &RedisLuaLimiter{
		redis:   rdb,
		script:  redis.NewScript(tokenBucketScript),
		prefix:  "rate:",
		now:     time.Now,
		buckets: b,
	}
}

// Lua numbers come back from Redis as integers, so the wait is returned in
// whole milliseconds. Idle buckets expire after twice their full refill time.
const tokenBucketScript = `
local capacity = tonumber(ARGV[1])
local rate     = tonumber(ARGV[2])
local now_ms   = tonumber(ARGV[3])
local cost     = tonumber(ARGV[4])

local state  = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(state[1]) or capacity
local ts     = tonumber(state[2]) or now_ms

local elapsed = (now_ms - ts) / 1000
if elapsed < 0 then elapsed = 0 end
tokens = math.min(capacity, tokens + elapsed * rate)

local allowed, wait_ms = 0, 0
if tokens >= cost then
  tokens = tokens - cost
  allowed = 1
else
  wait_ms = math.ceil((cost - tokens) / rate * 1000)
end

redis.call("HSET", KEYS[1], "tokens", tostring(tokens), "ts", ARGV[3])
redis.call("PEXPIRE", KEYS[1], math.ceil(capacity / rate * 1000) * 2)
return { allowed, wait_ms }
`

// Allow takes cost tokens from the bucket for key. Unknown buckets allow;
// Redis errors allow and are returned so the caller can log them.
func (l *RedisLuaLimiter) Allow(ctx context.Context, key string, cost int64) (bool, time.Duration, error) {
	if l == nil {
		return true, 0, nil
	}
	l.mu.RLock()
	cfg, ok := l.buckets[key]
	l.mu.RUnlock()
	if !ok || !cfg.enabled() {
		return true, 0, nil
	}
	if cost <= 0 {
		cost = 1
	}

	res, err := l.script.Run(ctx, l.redis, []string{l.prefix + key},
		cfg.Capacity, cfg.RefillRate, l.now().UnixMilli(), cost).Int64Slice()
	if err != nil {
		return true, 0, fmt.Errorf("op=ratelimiter.Allow key=%s: %w", key, err)
	}
	if len(res) < 2 {
		slog.Error("rate limiter unexpected script result", slog.String("key", key), slog.Any("result", res))
		return true, 0, nil
	}
	wait := time.Duration(res[1]) * time.Millisecond
	if wait < 0 {
		wait = 0
	}
	return res[0] == 1, wait, nil
}

// SetBucketConfig updates or creates the bucket configuration for the given logical key.
// It is safe for concurrent use.
func (l *RedisLuaLimiter) SetBucketConfig(key string, cfg BucketConfig) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buckets[key] = cfg
}
