package repository

import (
	"context"
	"errors"
	"time"

	"shawty-backend/internal/domain"
)

var (
	ErrAliasNotFound = errors.New("alias not found")
	ErrAliasExists   = errors.New("alias already exists")
	ErrClickNotFound = errors.New("click event not found")
	// ErrClickRejected is returned by RecordClick when the link became inactive
	// or its click quota was used up between the gate check and the increment.
	ErrClickRejected = errors.New("click rejected by link state")
)

// Storage is the authoritative link store.
type Storage interface {
	// Link methods
	CreateLink(ctx context.Context, link *domain.Link) error
	GetLinkByCode(ctx context.Context, code string) (*domain.Link, error)
	AliasExists(ctx context.Context, code string) (bool, error)
	UpdateLink(ctx context.Context, linkID int64, patch domain.LinkPatch) (*domain.Link, error)
	Deactivate(ctx context.Context, linkID int64) error
	DeleteLink(ctx context.Context, linkID int64) error
	ListUserLinks(ctx context.Context, userID int64, offset, limit int) ([]*domain.Link, error)
	ListCodes(ctx context.Context) ([]string, error)

	// Click methods
	RecordClick(ctx context.Context, linkID int64, click *domain.ClickEvent) error
	UpdateClickEnrichment(ctx context.Context, clickID int64, userAgent, country string) error
	GetLinkStats(ctx context.Context, linkID int64, top int) (*domain.LinkStats, error)
	// GetOwnerDashboard returns per-day counts for days that have clicks only.
	GetOwnerDashboard(ctx context.Context, userID int64, since time.Time, top int) (*domain.Dashboard, error)

	Ping(ctx context.Context) error
}
