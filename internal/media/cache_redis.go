package media

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// cacheKeyPrefix namespaces manifest entries in Redis.
const cacheKeyPrefix = "feed:manifest:"

// Cache is the subset of the Redis client used by CachedSource.
type Cache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CachedSource is a read-through Redis cache in front of another Source.
// Only successful fetches are cached. Redis failures are logged and the
// wrapped source is used directly.
type CachedSource struct {
	next  Source
	cache Cache
	ttl   time.Duration
}

// NewCachedSource wraps next with a Redis cache holding entries for ttl.
func NewCachedSource(next Source, cache Cache, ttl time.Duration) *CachedSource {
	return &CachedSource{next: next, cache: cache, ttl: ttl}
}

// Fetch returns the cached object for key, falling back to the wrapped source.
func (c *CachedSource) Fetch(ctx context.Context, key string) ([]byte, error) {
	ck := cacheKeyPrefix + key
	data, err := c.cache.Get(ctx, ck).Bytes()
	switch {
	case err == nil:
		log.Debug().Str("key", key).Msg("Manifest cache hit")
		return data, nil
	case errors.Is(err, redis.Nil):
	default:
		log.Warn().Err(err).Str("key", key).Msg("Manifest cache read failed")
	}

	data, err = c.next.Fetch(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, ck, data, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Manifest cache write failed")
	}
	return data, nil
}
