package cache

import (
	"context"
	"testing"
	"time"

	"shawty-backend/internal/domain"
	"shawty-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCache_Integration(t *testing.T) {
	client := testutil.NewRedis(t)
	c := NewRedisCache(client)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	entry := &domain.CacheEntry{LinkID: 9, Destination: "https://example.com"}
	require.NoError(t, c.Set(ctx, "abc", entry, time.Minute))

	got, ok, err := c.Get(ctx, "abc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, entry, got)

	ttl, err := client.TTL(ctx, ShortCodePrefix+"abc").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 50*time.Second)

	require.NoError(t, c.Invalidate(ctx, "abc"))
	_, ok, err = c.Get(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.SetString(ctx, "geo:1.1.1.1", "Australia", time.Minute))
	v, ok, err := c.GetString(ctx, "geo:1.1.1.1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Australia", v)
}

func TestRedisCache_Unavailable(t *testing.T) {
	c := NewRedisCache(testutil.UnreachableRedis(t))

	_, ok, err := c.Get(context.Background(), "abc")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Error(t, c.Set(context.Background(), "abc", &domain.CacheEntry{}, time.Minute))
}

func TestTTLFor(t *testing.T) {
	now := time.Now()
	soon := now.Add(10 * time.Minute)
	later := now.Add(5 * time.Hour)

	assert.Equal(t, time.Hour, TTLFor(&domain.Link{}, time.Hour, now))
	assert.Equal(t, 10*time.Minute, TTLFor(&domain.Link{ExpiresAt: &soon}, time.Hour, now))
	assert.Equal(t, time.Hour, TTLFor(&domain.Link{ExpiresAt: &later}, time.Hour, now))
	assert.Equal(t, DefaultTTL, TTLFor(&domain.Link{}, 0, now))
}

func TestNoop(t *testing.T) {
	var c Noop
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "a", &domain.CacheEntry{}, time.Minute))
	_, ok, err := c.Get(ctx, "a")
	assert.NoError(t, err)
	assert.False(t, ok)
}
