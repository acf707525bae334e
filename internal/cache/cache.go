// Package cache holds short-lived run state and rate-limit counters in Redis.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Cache is safe for concurrent use.
type Cache interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Ping(ctx context.Context) error
	SetRunStatus(ctx context.Context, runID uuid.UUID, status string, ttl time.Duration) error
	GetRunStatus(ctx context.Context, runID uuid.UUID) (string, bool, error)
	// IncrWithExpiry increments key and starts its expiry window on the
	// first increment. Later increments leave the window untouched.
	IncrWithExpiry(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisCache is the go-redis backed Cache.
type RedisCache struct {
	rdb *redis.Client
}

// NewRedisCache parses a redis:// URL. It does not dial; call Ping to check
// connectivity.
func NewRedisCache(url string) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &RedisCache{rdb: redis.NewClient(opts)}, nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.rdb.Close()
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}
	return b, true, nil
}

func (c *RedisCache) SetRunStatus(ctx context.Context, runID uuid.UUID, status string, ttl time.Duration) error {
	return c.Set(ctx, RunStatusKey(runID), []byte(status), ttl)
}

func (c *RedisCache) GetRunStatus(ctx context.Context, runID uuid.UUID) (string, bool, error) {
	b, ok, err := c.Get(ctx, RunStatusKey(runID))
	return string(b), ok, err
}

func (c *RedisCache) IncrWithExpiry(ctx context.Context, key string, window time.Duration) (int64, error) {
	n, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		if err := c.rdb.Expire(ctx, key, window).Err(); err != nil {
			return n, err
		}
	}
	return n, nil
}
