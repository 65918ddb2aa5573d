package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count   int64
	resetAt time.Time
}

// MemoryLimiter is the in-process variant for single-instance setups and tests.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

func (m *MemoryLimiter) CheckAndIncrement(_ context.Context, key string, limit Limit) (Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	w, ok := m.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(limit.Window)}
		m.windows[key] = w
	}
	w.count++

	return decide(w.count, limit, w.resetAt.Sub(now)), nil
}

var _ Limiter = (*MemoryLimiter)(nil)
