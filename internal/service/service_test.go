package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"shawty-backend/internal/analytics"
	"shawty-backend/internal/auth"
	"shawty-backend/internal/cache"
	"shawty-backend/internal/config"
	"shawty-backend/internal/domain"
	"shawty-backend/internal/ratelimit"
	"shawty-backend/internal/repository/memory"
	"shawty-backend/internal/shortcode"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]domain.CacheEntry
	ttls    map[string]time.Duration
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]domain.CacheEntry), ttls: make(map[string]time.Duration)}
}

func (c *fakeCache) Get(_ context.Context, code string) (*domain.CacheEntry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[code]
	if !ok {
		return nil, false, nil
	}
	return &e, true, nil
}

func (c *fakeCache) Set(_ context.Context, code string, entry *domain.CacheEntry, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[code] = *entry
	c.ttls[code] = ttl
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, code)
	return nil
}

func (c *fakeCache) has(code string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[code]
	return ok
}

type mockCache struct {
	mock.Mock
}

func (m *mockCache) Get(ctx context.Context, code string) (*domain.CacheEntry, bool, error) {
	args := m.Called(ctx, code)
	entry, _ := args.Get(0).(*domain.CacheEntry)
	return entry, args.Bool(1), args.Error(2)
}

func (m *mockCache) Set(ctx context.Context, code string, entry *domain.CacheEntry, ttl time.Duration) error {
	return m.Called(ctx, code, entry, ttl).Error(0)
}

func (m *mockCache) Invalidate(ctx context.Context, code string) error {
	return m.Called(ctx, code).Error(0)
}

type mockLimiter struct {
	mock.Mock
}

func (m *mockLimiter) CheckAndIncrement(ctx context.Context, key string, limit ratelimit.Limit) (ratelimit.Decision, error) {
	args := m.Called(ctx, key, limit)
	return args.Get(0).(ratelimit.Decision), args.Error(1)
}

type mockQueue struct {
	mock.Mock
}

func (m *mockQueue) Submit(job analytics.Job) error {
	return m.Called(job).Error(0)
}

type chanQueue struct {
	jobs chan analytics.Job
}

func (q *chanQueue) Submit(job analytics.Job) error {
	select {
	case q.jobs <- job:
		return nil
	default:
		return analytics.ErrQueueFull
	}
}

var (
	testShortener = &config.URLShortener{AliasLength: 6, MaxAttempts: 10, CacheTTL: time.Hour}
	testLimits    = &config.RateLimit{
		AnonymousLimit:  5,
		AnonymousWindow: 30 * 24 * time.Hour,
		UnlockLimit:     3,
		UnlockWindow:    15 * time.Minute,
	}
)

type fixture struct {
	store      *memory.MemStorage
	cache      *fakeCache
	queue      *chanQueue
	links      *LinkService
	redirector *Redirector
}

type fixtureOption func(*fixtureDeps)

type fixtureDeps struct {
	cache   cache.Cache
	limiter ratelimit.Limiter
	queue   EnrichmentQueue
}

func withCache(c cache.Cache) fixtureOption {
	return func(d *fixtureDeps) { d.cache = c }
}

func withLimiter(l ratelimit.Limiter) fixtureOption {
	return func(d *fixtureDeps) { d.limiter = l }
}

func withQueue(q EnrichmentQueue) fixtureOption {
	return func(d *fixtureDeps) { d.queue = q }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	log := zap.NewNop()
	f := &fixture{
		store: memory.New(),
		cache: newFakeCache(),
		queue: &chanQueue{jobs: make(chan analytics.Job, 1024)},
	}
	deps := &fixtureDeps{cache: f.cache, limiter: ratelimit.NewMemoryLimiter(), queue: f.queue}
	for _, opt := range opts {
		opt(deps)
	}

	passwords := auth.NewPasswordServiceWithCost(bcrypt.MinCost)
	allocator := shortcode.NewAllocator(testShortener.AliasLength, testShortener.MaxAttempts, 1000, 0.01)
	gate := NewGate(f.store, deps.cache, passwords, log)
	recorder := NewRecorder(f.store, deps.queue, log)

	f.links = NewLinkService(f.store, deps.cache, deps.limiter, allocator, passwords, nil, testLimits, log)
	f.redirector = NewRedirector(f.store, deps.cache, gate, recorder, deps.limiter, nil, testShortener, testLimits, log)
	return f
}

func (f *fixture) create(t *testing.T, in CreateLinkInput, owner *int64) *domain.Link {
	t.Helper()
	link, err := f.links.Create(context.Background(), in, owner, "203.0.113.1")
	require.NoError(t, err)
	return link
}

func (f *fixture) clicks(t *testing.T, code string) int64 {
	t.Helper()
	link, err := f.store.GetLinkByCode(context.Background(), code)
	require.NoError(t, err)
	return link.Clicks
}

func ptr[T any](v T) *T { return &v }

var errRedisDown = errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")

var meta = ClickMeta{Referrer: "https://news.example", UserAgent: "Mozilla/5.0", ClientIP: "198.51.100.9"}
