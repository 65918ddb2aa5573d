package domain

import "time"

// Link is the authoritative record of a short code and its delivery rules.
type Link struct {
	ID           int64      `gorm:"primaryKey;column:id" json:"id"`
	ShortCode    string     `gorm:"column:short_code;size:64;not null;uniqueIndex" json:"short_code"`
	OriginalURL  string     `gorm:"column:original_url;type:text;not null" json:"original_url"`
	UserID       *int64     `gorm:"column:user_id;index" json:"user_id,omitempty"` // nil for anonymous links
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	Clicks       int64      `gorm:"column:clicks;not null;default:0" json:"clicks"`
	PasswordHash *string    `gorm:"column:password_hash" json:"-"`
	ExpiresAt    *time.Time `gorm:"column:expires_at" json:"expires_at,omitempty"`
	MaxClicks    *int64     `gorm:"column:max_clicks" json:"max_clicks,omitempty"`
	IsActive     bool       `gorm:"column:is_active;not null;default:true" json:"is_active"`
}

// TableName возвращает название таблицы для GORM
func (Link) TableName() string {
	return "links"
}

// HasPassword reports whether redirects must be unlocked first.
func (l *Link) HasPassword() bool {
	return l.PasswordHash != nil && *l.PasswordHash != ""
}

// IsExpired reports whether the expiry timestamp is set and already passed.
func (l *Link) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && !now.Before(*l.ExpiresAt)
}

// QuotaExhausted reports whether the click quota does not allow another click.
func (l *Link) QuotaExhausted() bool {
	return l.MaxClicks != nil && l.Clicks >= *l.MaxClicks
}

// Cacheable reports whether the destination may be served from the cache
// without consulting the gate. Password and quota links always go to the store.
func (l *Link) Cacheable() bool {
	return l.IsActive && !l.HasPassword() && l.MaxClicks == nil
}

// LinkPatch is a partial update applied by the link owner. Nil fields are left untouched.
type LinkPatch struct {
	OriginalURL *string
	IsActive    *bool
	MaxClicks   *int64
	ExpiresAt   *time.Time
}

// Empty reports whether the patch changes nothing.
func (p LinkPatch) Empty() bool {
	return p.OriginalURL == nil && p.IsActive == nil && p.MaxClicks == nil && p.ExpiresAt == nil
}

// CacheEntry is what the cache layer keeps for a short code.
type CacheEntry struct {
	LinkID      int64  `json:"link_id"`
	Destination string `json:"destination"`
}
