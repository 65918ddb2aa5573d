package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"shawty-backend/internal/domain"

	"github.com/redis/go-redis/v9"
)

// ShortCodePrefix is the prefix for short code keys in Redis
const ShortCodePrefix = "url:"

// RedisCache wraps the shared Redis client. It does not own the client.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a cache on top of an already connected client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get retrieves the entry for a given short code
func (r *RedisCache) Get(ctx context.Context, code string) (*domain.CacheEntry, bool, error) {
	val, err := r.client.Get(ctx, ShortCodePrefix+code).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get from Redis: %w", err)
	}

	var entry domain.CacheEntry
	if err := json.Unmarshal(val, &entry); err != nil {
		return nil, false, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	return &entry, true, nil
}

// Set stores the entry for a given short code
func (r *RedisCache) Set(ctx context.Context, code string, entry *domain.CacheEntry, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	val, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	if err := r.client.Set(ctx, ShortCodePrefix+code, val, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in Redis: %w", err)
	}
	return nil
}

// Invalidate removes a short code from cache
func (r *RedisCache) Invalidate(ctx context.Context, code string) error {
	if err := r.client.Del(ctx, ShortCodePrefix+code).Err(); err != nil {
		return fmt.Errorf("failed to delete from Redis: %w", err)
	}
	return nil
}

// GetString reads a raw string value.
func (r *RedisCache) GetString(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get from Redis: %w", err)
	}
	return val, true, nil
}

// SetString writes a raw string value with expiry.
func (r *RedisCache) SetString(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in Redis: %w", err)
	}
	return nil
}

var (
	_ Cache = (*RedisCache)(nil)
	_ KV    = (*RedisCache)(nil)
	_ Cache = Noop{}
	_ KV    = Noop{}
)
