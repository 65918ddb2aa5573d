// Package ratelimit implements fixed-window counters keyed by client identity.
package ratelimit

import (
	"context"
	"time"
)

// KeyPrefix namespaces limiter keys in the shared store.
const KeyPrefix = "rate_limit:"

// Limit is a cap of Max events per Window.
type Limit struct {
	Max    int64
	Window time.Duration
}

// Decision is the outcome of one CheckAndIncrement call.
type Decision struct {
	Allowed    bool
	Count      int64
	Remaining  int64
	RetryAfter time.Duration
}

// Limiter counts an event for key and reports whether it fits the limit.
// The counter is incremented even for denied events.
type Limiter interface {
	CheckAndIncrement(ctx context.Context, key string, limit Limit) (Decision, error)
}

func decide(count int64, limit Limit, ttl time.Duration) Decision {
	remaining := limit.Max - count
	if remaining < 0 {
		remaining = 0
	}
	d := Decision{
		Allowed:   count <= limit.Max,
		Count:     count,
		Remaining: remaining,
	}
	if !d.Allowed {
		d.RetryAfter = ttl
	}
	return d
}

// AnonymousKey is the creation counter key for an unauthenticated client.
func AnonymousKey(clientIP string) string {
	return "anon:" + clientIP
}

// UnlockKey is the unlock attempt counter key for a client and a code.
func UnlockKey(code, clientIP string) string {
	return "unlock:" + code + ":" + clientIP
}
