package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shawty-backend/internal/cache"
	"shawty-backend/internal/config"
	"shawty-backend/internal/domain"
	"shawty-backend/internal/metrics"
	"shawty-backend/internal/ratelimit"
	"shawty-backend/internal/repository"

	"go.uber.org/zap"
)

// Challenge describes what the unlock page has to ask for.
type Challenge struct {
	Code             string `json:"code"`
	PasswordRequired bool   `json:"password_required"`
}

// Redirector resolves short codes for public traffic.
type Redirector struct {
	storage  repository.Storage
	cache    cache.Cache
	gate     *Gate
	recorder *Recorder
	limiter  ratelimit.Limiter
	metrics  metrics.Recorder
	cacheTTL time.Duration
	unlock   ratelimit.Limit
	log      *zap.Logger
	now      func() time.Time
}

func NewRedirector(
	storage repository.Storage,
	c cache.Cache,
	gate *Gate,
	recorder *Recorder,
	limiter ratelimit.Limiter,
	rec metrics.Recorder,
	cfg *config.URLShortener,
	limits *config.RateLimit,
	log *zap.Logger,
) *Redirector {
	if rec == nil {
		rec = metrics.Noop{}
	}
	return &Redirector{
		storage:  storage,
		cache:    c,
		gate:     gate,
		recorder: recorder,
		limiter:  limiter,
		metrics:  rec,
		cacheTTL: cfg.CacheTTL,
		unlock:   ratelimit.Limit{Max: limits.UnlockLimit, Window: limits.UnlockWindow},
		log:      log,
		now:      time.Now,
	}
}

// Resolve returns the destination for code and records the click.
// Password-protected links return domain.ErrPasswordRequired.
func (r *Redirector) Resolve(ctx context.Context, code string, meta ClickMeta) (string, error) {
	dest, err := r.resolve(ctx, code, meta)
	r.observe(err, metrics.OutcomeRedirect)
	return dest, err
}

func (r *Redirector) resolve(ctx context.Context, code string, meta ClickMeta) (string, error) {
	entry, hit, err := r.cache.Get(ctx, code)
	if err != nil {
		r.log.Warn("cache lookup failed, reading from store", zap.String("short_code", code), zap.Error(err))
	}
	r.metrics.CacheLookup(hit)

	if hit {
		_, err := r.recorder.Record(ctx, entry.LinkID, meta)
		if err == nil {
			return entry.Destination, nil
		}
		if !errors.Is(err, repository.ErrClickRejected) && !errors.Is(err, repository.ErrAliasNotFound) {
			return "", fmt.Errorf("failed to record click: %w", err)
		}
		// stale entry: the link changed state after it was cached
		invalidate(ctx, r.cache, r.log, code)
	}

	link, err := r.load(ctx, code)
	if err != nil {
		return "", err
	}
	if err := r.gate.Evaluate(ctx, link); err != nil {
		return "", err
	}
	if err := r.record(ctx, link, meta); err != nil {
		return "", err
	}

	if link.Cacheable() {
		ttl := cache.TTLFor(link, r.cacheTTL, r.now())
		entry := &domain.CacheEntry{LinkID: link.ID, Destination: link.OriginalURL}
		if err := r.cache.Set(ctx, code, entry, ttl); err != nil {
			r.log.Warn("cache populate failed", zap.String("short_code", code), zap.Error(err))
		}
	}

	return link.OriginalURL, nil
}

// Challenge runs the gate without recording a click, for the unlock page.
func (r *Redirector) Challenge(ctx context.Context, code string) (*Challenge, error) {
	link, err := r.load(ctx, code)
	if err != nil {
		return nil, err
	}
	err = r.gate.Evaluate(ctx, link)
	if err != nil && !errors.Is(err, domain.ErrPasswordRequired) {
		return nil, err
	}
	return &Challenge{Code: link.ShortCode, PasswordRequired: err != nil}, nil
}

// Unlock verifies the password of a protected link, records the click and
// returns the destination. Attempts are throttled per code and client.
func (r *Redirector) Unlock(ctx context.Context, code, password string, meta ClickMeta) (string, error) {
	dest, err := r.unlockLink(ctx, code, password, meta)
	r.observe(err, metrics.OutcomeUnlock)
	return dest, err
}

func (r *Redirector) unlockLink(ctx context.Context, code, password string, meta ClickMeta) (string, error) {
	link, err := r.load(ctx, code)
	if err != nil {
		return "", err
	}
	err = r.gate.Evaluate(ctx, link)
	if err != nil && !errors.Is(err, domain.ErrPasswordRequired) {
		return "", err
	}

	if link.HasPassword() {
		if err := r.throttleUnlock(ctx, code, meta.ClientIP); err != nil {
			return "", err
		}
		if err := r.gate.Confirm(link, password); err != nil {
			return "", err
		}
	}

	if err := r.record(ctx, link, meta); err != nil {
		return "", err
	}
	return link.OriginalURL, nil
}

// throttleUnlock fails open: losing the limiter store must not lock owners
// out of their own links.
func (r *Redirector) throttleUnlock(ctx context.Context, code, clientIP string) error {
	if r.limiter == nil || r.unlock.Max <= 0 {
		return nil
	}
	dec, err := r.limiter.CheckAndIncrement(ctx, ratelimit.UnlockKey(code, clientIP), r.unlock)
	if err != nil {
		r.log.Warn("unlock limiter unavailable, allowing attempt", zap.String("short_code", code), zap.Error(err))
		return nil
	}
	if !dec.Allowed {
		r.metrics.RateLimited("unlock")
		return domain.ErrTooManyAttempts
	}
	return nil
}

func (r *Redirector) load(ctx context.Context, code string) (*domain.Link, error) {
	link, err := r.storage.GetLinkByCode(ctx, code)
	if errors.Is(err, repository.ErrAliasNotFound) {
		return nil, domain.ErrLinkNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load link: %w", err)
	}
	return link, nil
}

// record maps a rejected increment to Gone. A rejection means another
// request used the last click or deactivated the link in between.
func (r *Redirector) record(ctx context.Context, link *domain.Link, meta ClickMeta) error {
	_, err := r.recorder.Record(ctx, link.ID, meta)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrClickRejected):
		r.gate.Retire(ctx, link)
		return domain.ErrLinkGone
	case errors.Is(err, repository.ErrAliasNotFound):
		invalidate(ctx, r.cache, r.log, link.ShortCode)
		return domain.ErrLinkNotFound
	default:
		return fmt.Errorf("failed to record click: %w", err)
	}
}

func (r *Redirector) observe(err error, success string) {
	switch {
	case err == nil:
		r.metrics.Redirect(success)
	case errors.Is(err, domain.ErrLinkNotFound):
		r.metrics.Redirect(metrics.OutcomeNotFound)
	case errors.Is(err, domain.ErrLinkGone):
		r.metrics.Redirect(metrics.OutcomeGone)
	case errors.Is(err, domain.ErrPasswordRequired):
		r.metrics.Redirect(metrics.OutcomeLocked)
	case errors.Is(err, domain.ErrPasswordMismatch), errors.Is(err, domain.ErrTooManyAttempts):
		r.metrics.Redirect(metrics.OutcomeDenied)
	default:
		r.metrics.Redirect(metrics.OutcomeError)
	}
}
