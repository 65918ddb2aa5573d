package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shawty-backend/internal/auth"
	"shawty-backend/internal/cache"
	"shawty-backend/internal/domain"
	"shawty-backend/internal/repository"

	"go.uber.org/zap"
)

// Gate decides whether a link may be followed. Checks run in a fixed order
// and the first failure wins:
//
//  1. inactive                 -> ErrLinkGone
//  2. expired                  -> deactivate, ErrLinkGone
//  3. clicks >= max_clicks     -> deactivate, ErrLinkGone
//  4. password set             -> ErrPasswordRequired
//
// so an expired password-protected link reports Gone and never prompts.
type Gate struct {
	storage   repository.Storage
	cache     cache.Cache
	passwords *auth.PasswordService
	log       *zap.Logger
	now       func() time.Time
}

func NewGate(storage repository.Storage, c cache.Cache, passwords *auth.PasswordService, log *zap.Logger) *Gate {
	return &Gate{
		storage:   storage,
		cache:     c,
		passwords: passwords,
		log:       log,
		now:       time.Now,
	}
}

// Evaluate runs the gate for a freshly loaded link.
func (g *Gate) Evaluate(ctx context.Context, link *domain.Link) error {
	if !link.IsActive {
		return domain.ErrLinkGone
	}
	if link.IsExpired(g.now()) || link.QuotaExhausted() {
		g.Retire(ctx, link)
		return domain.ErrLinkGone
	}
	if link.HasPassword() {
		return domain.ErrPasswordRequired
	}
	return nil
}

// Confirm compares a candidate password with the stored hash.
func (g *Gate) Confirm(link *domain.Link, password string) error {
	if !link.HasPassword() {
		return nil
	}
	err := g.passwords.VerifyPassword(*link.PasswordHash, password)
	if errors.Is(err, auth.ErrPasswordMismatch) {
		return domain.ErrPasswordMismatch
	}
	if err != nil {
		return fmt.Errorf("failed to verify link password: %w", err)
	}
	return nil
}

// Retire marks the link inactive in the store and drops its cache entry.
// The link is reported Gone even when persisting fails; the next request
// will retry the transition.
func (g *Gate) Retire(ctx context.Context, link *domain.Link) {
	link.IsActive = false
	if err := g.storage.Deactivate(ctx, link.ID); err != nil && !errors.Is(err, repository.ErrAliasNotFound) {
		g.log.Error("failed to deactivate link", zap.String("short_code", link.ShortCode), zap.Error(err))
	} else {
		g.log.Info("link deactivated", zap.String("short_code", link.ShortCode))
	}
	invalidate(ctx, g.cache, g.log, link.ShortCode)
}

// invalidate drops a cache entry. Cache failures are logged, never returned.
func invalidate(ctx context.Context, c cache.Cache, log *zap.Logger, code string) {
	if err := c.Invalidate(ctx, code); err != nil {
		log.Warn("cache invalidation failed", zap.String("short_code", code), zap.Error(err))
	}
}
