package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"shawty-backend/internal/auth"
	"shawty-backend/internal/cache"
	"shawty-backend/internal/config"
	"shawty-backend/internal/domain"
	"shawty-backend/internal/metrics"
	"shawty-backend/internal/ratelimit"
	"shawty-backend/internal/repository"
	"shawty-backend/internal/shortcode"

	"go.uber.org/zap"
)

const (
	// DefaultTop is the length of top-N breakdowns in stats.
	DefaultTop = 5
	// MaxPageSize caps link listings.
	MaxPageSize = 100
)

// CreateLinkInput is the body of a shorten request.
type CreateLinkInput struct {
	OriginalURL string     `json:"original_url"`
	CustomAlias *string    `json:"custom_alias,omitempty"`
	Password    *string    `json:"password,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	MaxClicks   *int64     `json:"max_clicks,omitempty"`
}

// LinkService owns link creation and owner management.
type LinkService struct {
	storage   repository.Storage
	cache     cache.Cache
	limiter   ratelimit.Limiter
	allocator *shortcode.Allocator
	passwords *auth.PasswordService
	metrics   metrics.Recorder
	anonLimit ratelimit.Limit
	log       *zap.Logger
	now       func() time.Time
}

func NewLinkService(
	storage repository.Storage,
	c cache.Cache,
	limiter ratelimit.Limiter,
	allocator *shortcode.Allocator,
	passwords *auth.PasswordService,
	rec metrics.Recorder,
	limits *config.RateLimit,
	log *zap.Logger,
) *LinkService {
	if rec == nil {
		rec = metrics.Noop{}
	}
	return &LinkService{
		storage:   storage,
		cache:     c,
		limiter:   limiter,
		allocator: allocator,
		passwords: passwords,
		metrics:   rec,
		anonLimit: ratelimit.Limit{Max: limits.AnonymousLimit, Window: limits.AnonymousWindow},
		log:       log,
		now:       time.Now,
	}
}

// Create shortens a URL. owner is nil for anonymous callers, who are rate
// limited by clientIP. A limiter store failure fails the request.
func (s *LinkService) Create(ctx context.Context, in CreateLinkInput, owner *int64, clientIP string) (*domain.Link, error) {
	if err := validateDestination(in.OriginalURL); err != nil {
		return nil, err
	}
	if in.MaxClicks != nil && *in.MaxClicks <= 0 {
		return nil, domain.ErrInvalidMaxClicks
	}
	custom := in.CustomAlias != nil && *in.CustomAlias != ""
	if custom {
		if err := shortcode.IsValidAlias(*in.CustomAlias); err != nil {
			return nil, err
		}
	}
	withPassword := in.Password != nil && *in.Password != ""
	if withPassword && auth.IsValidPassword(*in.Password) != nil {
		return nil, domain.ErrInvalidPassword
	}

	if owner == nil {
		if err := s.checkAnonymousQuota(ctx, clientIP); err != nil {
			return nil, err
		}
	}

	link := &domain.Link{
		OriginalURL: strings.TrimSpace(in.OriginalURL),
		UserID:      owner,
		ExpiresAt:   in.ExpiresAt,
		MaxClicks:   in.MaxClicks,
		IsActive:    true,
	}
	if withPassword {
		hash, err := s.passwords.HashPassword(*in.Password)
		if errors.Is(err, auth.ErrInvalidPassword) {
			return nil, domain.ErrInvalidPassword
		}
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		link.PasswordHash = &hash
	}

	if custom {
		if err := s.insertCustom(ctx, link, *in.CustomAlias); err != nil {
			return nil, err
		}
	} else if err := s.insertGenerated(ctx, link); err != nil {
		return nil, err
	}

	s.allocator.Add(link.ShortCode)
	s.log.Info("link created",
		zap.String("short_code", link.ShortCode),
		zap.Bool("anonymous", owner == nil),
		zap.Bool("password", link.HasPassword()),
	)
	return link, nil
}

func (s *LinkService) checkAnonymousQuota(ctx context.Context, clientIP string) error {
	dec, err := s.limiter.CheckAndIncrement(ctx, ratelimit.AnonymousKey(clientIP), s.anonLimit)
	if err != nil {
		return fmt.Errorf("rate limiter unavailable: %w", err)
	}
	if !dec.Allowed {
		s.metrics.RateLimited("anonymous")
		s.log.Info("anonymous creation limit reached", zap.String("client_ip", clientIP), zap.Int64("count", dec.Count))
		return domain.ErrRateLimited
	}
	return nil
}

// insertCustom rejects a taken alias outright, no retry.
func (s *LinkService) insertCustom(ctx context.Context, link *domain.Link, alias string) error {
	exists, err := s.storage.AliasExists(ctx, alias)
	if err != nil {
		return fmt.Errorf("failed to check custom alias existence: %w", err)
	}
	if exists {
		return domain.ErrAliasTaken
	}

	link.ShortCode = alias
	err = s.storage.CreateLink(ctx, link)
	if errors.Is(err, repository.ErrAliasExists) {
		return domain.ErrAliasTaken
	}
	if err != nil {
		return fmt.Errorf("failed to save link: %w", err)
	}
	return nil
}

// insertGenerated samples codes until the insert succeeds. A concurrent
// writer may take a code between the check and the insert, so conflicts on
// insert are retried within the same bound.
func (s *LinkService) insertGenerated(ctx context.Context, link *domain.Link) error {
	for attempt := 0; attempt < s.allocator.MaxAttempts(); attempt++ {
		code, err := s.allocator.Allocate(ctx, s.storage.AliasExists)
		if err != nil {
			return err
		}

		link.ShortCode = code
		err = s.storage.CreateLink(ctx, link)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrAliasExists) {
			return fmt.Errorf("failed to save link: %w", err)
		}
		s.allocator.Add(code)
		s.log.Debug("generated code collided on insert", zap.String("short_code", code))
	}
	return domain.ErrCodeSpaceExhausted
}

// CheckAvailability reports whether slug can be used as a custom alias.
func (s *LinkService) CheckAvailability(ctx context.Context, slug string) (bool, error) {
	if shortcode.IsValidAlias(slug) != nil {
		return false, nil
	}
	exists, err := s.storage.AliasExists(ctx, slug)
	if err != nil {
		return false, fmt.Errorf("failed to check alias: %w", err)
	}
	return !exists, nil
}

// List returns the owner's links, newest first.
func (s *LinkService) List(ctx context.Context, owner int64, offset, limit int) ([]*domain.Link, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}
	links, err := s.storage.ListUserLinks(ctx, owner, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	return links, nil
}

// Update applies an owner edit and invalidates the cached destination so
// the next redirect reads the new state.
func (s *LinkService) Update(ctx context.Context, owner int64, code string, patch domain.LinkPatch) (*domain.Link, error) {
	link, err := s.owned(ctx, owner, code)
	if err != nil {
		return nil, err
	}

	if patch.OriginalURL != nil {
		if err := validateDestination(*patch.OriginalURL); err != nil {
			return nil, err
		}
		trimmed := strings.TrimSpace(*patch.OriginalURL)
		patch.OriginalURL = &trimmed
	}
	if patch.MaxClicks != nil && *patch.MaxClicks <= 0 {
		return nil, domain.ErrInvalidMaxClicks
	}
	if patch.IsActive != nil && *patch.IsActive && !link.IsActive {
		return nil, domain.ErrCannotReactivate
	}
	if patch.Empty() {
		return link, nil
	}

	updated, err := s.storage.UpdateLink(ctx, link.ID, patch)
	if errors.Is(err, repository.ErrAliasNotFound) {
		return nil, domain.ErrLinkNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update link: %w", err)
	}

	invalidate(ctx, s.cache, s.log, code)
	return updated, nil
}

// Delete removes the link and its click events.
func (s *LinkService) Delete(ctx context.Context, owner int64, code string) error {
	link, err := s.owned(ctx, owner, code)
	if err != nil {
		return err
	}

	err = s.storage.DeleteLink(ctx, link.ID)
	if errors.Is(err, repository.ErrAliasNotFound) {
		return domain.ErrLinkNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}

	invalidate(ctx, s.cache, s.log, code)
	s.log.Info("link deleted", zap.String("short_code", code), zap.Int64("user_id", owner))
	return nil
}

// Stats returns the click breakdown of one owned link.
func (s *LinkService) Stats(ctx context.Context, owner int64, code string) (*domain.LinkStats, error) {
	link, err := s.owned(ctx, owner, code)
	if err != nil {
		return nil, err
	}
	stats, err := s.storage.GetLinkStats(ctx, link.ID, DefaultTop)
	if errors.Is(err, repository.ErrAliasNotFound) {
		return nil, domain.ErrLinkNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get link stats: %w", err)
	}
	return stats, nil
}

// RangeDays maps a dashboard range name to a number of days. Unknown
// names fall back to a week.
func RangeDays(name string) int {
	switch name {
	case "24h":
		return 1
	case "30d":
		return 30
	case "90d":
		return 90
	default:
		return 7
	}
}

// Dashboard aggregates clicks over all of the owner's links. The chart has
// one point per UTC day in the range, including days without clicks.
func (s *LinkService) Dashboard(ctx context.Context, owner int64, rangeName string) (*domain.Dashboard, error) {
	days := RangeDays(rangeName)
	now := s.now().UTC()
	since := now.AddDate(0, 0, -days)

	dash, err := s.storage.GetOwnerDashboard(ctx, owner, since, DefaultTop)
	if err != nil {
		return nil, fmt.Errorf("failed to get dashboard: %w", err)
	}

	counts := make(map[string]int64, len(dash.ChartData))
	for _, d := range dash.ChartData {
		counts[d.Date] = d.Clicks
	}
	chart := make([]domain.DailyClicks, 0, days+1)
	for i := days; i >= 0; i-- {
		date := now.AddDate(0, 0, -i).Format(time.DateOnly)
		chart = append(chart, domain.DailyClicks{Date: date, Clicks: counts[date]})
	}
	dash.ChartData = chart
	if dash.TopLinks == nil {
		dash.TopLinks = []*domain.Link{}
	}
	return dash, nil
}

// owned loads a link and hides links of other users behind Not-Found.
func (s *LinkService) owned(ctx context.Context, owner int64, code string) (*domain.Link, error) {
	link, err := s.storage.GetLinkByCode(ctx, code)
	if errors.Is(err, repository.ErrAliasNotFound) {
		return nil, domain.ErrLinkNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load link: %w", err)
	}
	if link.UserID == nil || *link.UserID != owner {
		return nil, domain.ErrLinkNotFound
	}
	return link, nil
}

func validateDestination(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return domain.ErrInvalidDestination
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return domain.ErrInvalidDestination
	}
	return nil
}
