// Package inflight guards against two processes computing the same analysis at once.
package inflight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
)

// Locker acquires a per-key lock. The returned release func is never nil.
type Locker interface {
	Acquire(ctx context.Context, key string, wait time.Duration) (release func(), acquired bool, err error)
}

// RedisLock is a best-effort distributed lock built on SET NX PX.
// A holder that crashes loses the lock once the TTL elapses.
type RedisLock struct {
	redis   *redis.Client
	ttl     time.Duration
	poll    time.Duration
	prefix  string
	release *redis.Script
}

const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// NewRedisLock returns nil when rdb is nil so callers can skip locking entirely.
func NewRedisLock(rdb *redis.Client, ttl time.Duration) *RedisLock {
	if rdb == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 90 * time.Second
	}
	return &RedisLock{
		redis:   rdb,
		ttl:     ttl,
		poll:    100 * time.Millisecond,
		prefix:  "inflight:analysis:",
		release: redis.NewScript(releaseScript),
	}
}

func noop() {}

// Acquire tries to take the lock for key, polling until wait elapses.
// acquired is false when another holder kept the lock for the whole wait or Redis failed;
// callers then proceed without the lock since the store upsert is atomic.
func (l *RedisLock) Acquire(ctx context.Context, key string, wait time.Duration) (func(), bool, error) {
	if l == nil || l.redis == nil {
		return noop, true, nil
	}
	redisKey := l.prefix + key
	token := ulid.Make().String()
	deadline := time.Now().Add(wait)

	for {
		ok, err := l.redis.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			slog.Error("inflight lock acquire failed", slog.String("key", key), slog.Any("error", err))
			return noop, false, fmt.Errorf("op=inflight.Acquire: %w", err)
		}
		if ok {
			return l.releaser(redisKey, token), true, nil
		}
		if !time.Now().Before(deadline) {
			return noop, false, nil
		}
		select {
		case <-ctx.Done():
			return noop, false, fmt.Errorf("op=inflight.Acquire: %w", ctx.Err())
		case <-time.After(l.poll):
		}
	}
}

func (l *RedisLock) releaser(redisKey, token string) func() {
	return func() {
		// Release must run even when the request context is already cancelled.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := l.release.Run(ctx, l.redis, []string{redisKey}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			slog.Warn("inflight lock release failed", slog.String("key", redisKey), slog.Any("error", err))
		}
	}
}
