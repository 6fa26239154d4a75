package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Pinger is the minimal interface for a database pool capable of Ping.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RedisPingResult is the minimal return type of a Redis client's Ping.
type RedisPingResult interface {
	Err() error
}

// RedisClient is the minimal interface for a Redis client needed for readiness.
type RedisClient interface {
	Ping(ctx context.Context) RedisPingResult
}

type goRedis struct{ c *redis.Client }

func (g goRedis) Ping(ctx context.Context) RedisPingResult { return g.c.Ping(ctx) }

// WrapRedis adapts a go-redis client for BuildReadinessChecks. A nil client yields nil.
func WrapRedis(c *redis.Client) RedisClient {
	if c == nil {
		return nil
	}
	return goRedis{c: c}
}

// BuildReadinessChecks returns the db and redis readiness checks.
// Redis is optional: without a client the returned redis check is nil and skipped.
func BuildReadinessChecks(pool Pinger, rdb RedisClient) (
	func(ctx context.Context) error,
	func(ctx context.Context) error,
) {
	dbCheck := func(ctx context.Context) error {
		if pool == nil {
			return fmt.Errorf("db not configured")
		}
		return pool.Ping(ctx)
	}
	if rdb == nil {
		return dbCheck, nil
	}
	redisCheck := func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}
	return dbCheck, redisCheck
}
