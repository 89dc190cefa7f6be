package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/trialsync/trialsync/internal/infrastructure/monitoring/logging"
	apperrors "github.com/trialsync/trialsync/pkg/errors"
)

// ErrCacheMiss is returned by Get when the key is absent or expired.
var ErrCacheMiss = apperrors.New(apperrors.ErrCodeNotFound, "cache miss")

// Cache is a typed JSON object cache.
type Cache interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeleteByPrefix(ctx context.Context, prefix string) (int64, error)
	GetOrSet(ctx context.Context, key string, dest any, ttl time.Duration, loader func(ctx context.Context) (any, error)) error
}

type objectCache struct {
	rdb        *redis.Client
	logger     logging.Logger
	prefix     string
	defaultTTL time.Duration
	group      singleflight.Group
}

// CacheOption customizes a Cache.
type CacheOption func(*objectCache)

// WithPrefix overrides the key namespace.
func WithPrefix(prefix string) CacheOption {
	return func(c *objectCache) { c.prefix = prefix }
}

// WithDefaultTTL overrides the TTL applied when Set is called with zero.
func WithDefaultTTL(ttl time.Duration) CacheOption {
	return func(c *objectCache) { c.defaultTTL = ttl }
}

// NewCache builds a Cache on top of an open redis client.
func NewCache(rdb *redis.Client, logger logging.Logger, opts ...CacheOption) Cache {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	c := &objectCache{
		rdb:        rdb,
		logger:     logger.Named("cache"),
		prefix:     "trialsync:",
		defaultTTL: 15 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *objectCache) fullKey(key string) string { return c.prefix + key }

// jitterTTL spreads expirations by +/- 10% so a burst of Sets does not expire
// as a thundering herd.
func (c *objectCache) jitterTTL(ttl time.Duration) time.Duration {
	if ttl == 0 {
		return 0
	}
	jitter := float64(ttl) * 0.1 * (rand.Float64()*2 - 1)
	return ttl + time.Duration(jitter)
}

func (c *objectCache) Get(ctx context.Context, key string, dest any) error {
	data, err := c.rdb.Get(ctx, c.fullKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeCacheError, "reading cache key")
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeSerialization, "decoding cached value")
	}
	return nil
}

func (c *objectCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.defaultTTL
	}
	data, err := json.Marshal(value)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeSerialization, "encoding value for cache")
	}
	if err := c.rdb.Set(ctx, c.fullKey(key), data, c.jitterTTL(ttl)).Err(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeCacheError, "writing cache key")
	}
	return nil
}

func (c *objectCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.fullKey(k)
	}
	if err := c.rdb.Del(ctx, full...).Err(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeCacheError, "deleting cache keys")
	}
	return nil
}

// DeleteByPrefix removes every key under prefix using SCAN, never KEYS.
func (c *objectCache) DeleteByPrefix(ctx context.Context, prefix string) (int64, error) {
	var deleted int64
	iter := c.rdb.Scan(ctx, 0, c.fullKey(prefix)+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return deleted, apperrors.Wrap(err, apperrors.ErrCodeCacheError, "deleting scanned key")
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return deleted, apperrors.Wrap(err, apperrors.ErrCodeCacheError, "scanning cache keys")
	}
	return deleted, nil
}

// GetOrSet returns the cached value for key, or runs loader once per key
// across concurrent callers, caches its result, and decodes it into dest.
// Loader failures propagate without poisoning the cache.
func (c *objectCache) GetOrSet(ctx context.Context, key string, dest any, ttl time.Duration, loader func(ctx context.Context) (any, error)) error {
	if err := c.Get(ctx, key, dest); err == nil {
		return nil
	} else if !errors.Is(err, ErrCacheMiss) {
		c.logger.Warn("cache read failed, falling through to loader",
			logging.String("key", key), logging.Err(err))
	}

	data, err, _ := c.group.Do(key, func() (any, error) {
		value, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.Set(ctx, key, value, ttl); err != nil {
			c.logger.Warn("cache write failed", logging.String("key", key), logging.Err(err))
		}
		return json.Marshal(value)
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(data.([]byte), dest)
}
