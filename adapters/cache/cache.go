// Package cache is a small TTL cache over redis, used as a read-through
// layer in front of gift list queries. Cached values are never consulted
// for authorization decisions; visibility filtering always runs on top.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

// ICache defines the cache operations the API layer depends on.
type ICache[T any] interface {
	Get(ctx context.Context, key string) (T, bool, error)
	Set(ctx context.Context, key string, value T, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// RedisCache implements ICache on a redis string key with msgpack
// encoded values.
type RedisCache[T any] struct {
	client  *redis.Client
	options Options
}

// Options holds the configuration of a RedisCache.
type Options struct {
	Prefix string
}

type Option func(*Options)

// WithPrefix sets the key prefix of the cache.
func WithPrefix(prefix string) Option {
	return func(o *Options) {
		o.Prefix = prefix
	}
}

func NewRedisCache[T any](client *redis.Client, opts ...Option) *RedisCache[T] {
	options := Options{}
	for _, opt := range opts {
		opt(&options)
	}
	return &RedisCache[T]{
		client:  client,
		options: options,
	}
}

// Get loads the cached value under key. The second return value reports
// whether the key was present.
func (c *RedisCache[T]) Get(ctx context.Context, key string) (T, bool, error) {
	const op = "cache.RedisCache.Get"
	var result T
	payload, err := c.client.Get(ctx, c.options.Prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return result, false, nil
	}
	if err != nil {
		return result, false, fmt.Errorf("%s: failed to get key: %w", op, err)
	}
	if err := msgpack.Unmarshal(payload, &result); err != nil {
		return result, false, fmt.Errorf("%s: failed to decode cached value: %w", op, err)
	}
	return result, true, nil
}

// Set stores value under key for ttl.
func (c *RedisCache[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	const op = "cache.RedisCache.Set"
	payload, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("%s: failed to encode value: %w", op, err)
	}
	if err := c.client.Set(ctx, c.options.Prefix+key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("%s: failed to set key: %w", op, err)
	}
	return nil
}

// Invalidate drops the cached value under key, if any.
func (c *RedisCache[T]) Invalidate(ctx context.Context, key string) error {
	const op = "cache.RedisCache.Invalidate"
	if err := c.client.Del(ctx, c.options.Prefix+key).Err(); err != nil {
		return fmt.Errorf("%s: failed to delete key: %w", op, err)
	}
	return nil
}
