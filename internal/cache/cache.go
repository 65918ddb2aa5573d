// Package cache is the cache-aside accelerator in front of the link store.
// Entries are advisory: callers treat every error as a miss.
package cache

import (
	"context"
	"time"

	"shawty-backend/internal/domain"
)

// DefaultTTL is how long a resolved destination stays cached.
const DefaultTTL = time.Hour

// Cache maps short codes to destinations.
type Cache interface {
	// Get returns the cached entry. A miss is (nil, false, nil).
	Get(ctx context.Context, code string) (*domain.CacheEntry, bool, error)
	// Set stores an entry for ttl.
	Set(ctx context.Context, code string, entry *domain.CacheEntry, ttl time.Duration) error
	// Invalidate drops the entry for code, if any.
	Invalidate(ctx context.Context, code string) error
}

// KV is a plain string store with expiry, used for small memos.
type KV interface {
	GetString(ctx context.Context, key string) (string, bool, error)
	SetString(ctx context.Context, key, value string, ttl time.Duration) error
}

// Noop never stores anything. It stands in when redis is disabled.
type Noop struct{}

func (Noop) Get(context.Context, string) (*domain.CacheEntry, bool, error) { return nil, false, nil }

func (Noop) Set(context.Context, string, *domain.CacheEntry, time.Duration) error { return nil }

func (Noop) Invalidate(context.Context, string) error { return nil }

func (Noop) GetString(context.Context, string) (string, bool, error) { return "", false, nil }

func (Noop) SetString(context.Context, string, string, time.Duration) error { return nil }

// TTLFor caps the cache lifetime of a link at its expiry so an entry never
// outlives the link it points to.
func TTLFor(link *domain.Link, base time.Duration, now time.Time) time.Duration {
	if base <= 0 {
		base = DefaultTTL
	}
	if link.ExpiresAt == nil {
		return base
	}
	left := link.ExpiresAt.Sub(now)
	if left < base {
		return left
	}
	return base
}
