package ratelimit

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter keeps counters in redis so every instance shares them.
type RedisLimiter struct {
	client *redis.Client
}

func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{client: client}
}

// CheckAndIncrement runs INCR and EXPIRE NX in one MULTI block. The expiry is
// only set by the increment that opened the window, and never left unset.
func (r *RedisLimiter) CheckAndIncrement(ctx context.Context, key string, limit Limit) (Decision, error) {
	fullKey := KeyPrefix + key

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, fullKey)
		pipe.ExpireNX(ctx, fullKey, limit.Window)
		ttl = pipe.TTL(ctx, fullKey)
		return nil
	})
	if err != nil {
		return Decision{}, fmt.Errorf("rate limiter store: %w", err)
	}

	left := ttl.Val()
	if left < 0 {
		left = limit.Window
	}
	return decide(incr.Val(), limit, left), nil
}

var _ Limiter = (*RedisLimiter)(nil)
