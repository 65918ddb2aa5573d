package cache

import (
	"context"
	"fmt"
	"time"

	"shawty-backend/internal/config"

	"github.com/redis/go-redis/v9"
)

// NewClient opens the process-wide Redis client shared by the cache, the
// rate limiter and the geolocation memo. The caller closes it at shutdown.
func NewClient(cfg *config.Redis) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}
