package domain

import "time"

const (
	// DefaultReferrer is stored when the request carries no Referer header.
	DefaultReferrer = "Direct"
	// CountryPending is stored until the enrichment worker resolves the country.
	CountryPending = "Processing..."
	// CountryUnknown is stored when geolocation fails for any reason.
	CountryUnknown = "Unknown"
)

// ClickEvent представляет клик по сокращенной ссылке
type ClickEvent struct {
	ID        int64     `gorm:"primaryKey;column:id" json:"id"`
	LinkID    int64     `gorm:"column:link_id;not null;index" json:"link_id"`
	Timestamp time.Time `gorm:"column:timestamp;not null;index" json:"timestamp"`
	Referrer  string    `gorm:"column:referrer;size:2048" json:"referrer"`
	UserAgent string    `gorm:"column:user_agent;type:text" json:"user_agent"`
	Country   string    `gorm:"column:country;size:100" json:"country"`

	// Relationships
	Link *Link `gorm:"foreignKey:LinkID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName возвращает название таблицы для GORM
func (ClickEvent) TableName() string {
	return "click_events"
}

// CountItem is one row of a top-N breakdown.
type CountItem struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

// LinkStats aggregates the click events of a single link.
type LinkStats struct {
	ShortCode    string      `json:"short_code"`
	TotalClicks  int64       `json:"total_clicks"`
	TopReferrers []CountItem `json:"top_referrers"`
	TopDevices   []CountItem `json:"top_devices"`
	TopCountries []CountItem `json:"top_countries"`
}

// DailyClicks is one point of the dashboard chart. Date is YYYY-MM-DD in UTC.
type DailyClicks struct {
	Date   string `json:"date"`
	Clicks int64  `json:"clicks"`
}

// Dashboard aggregates the clicks of every link an owner has, restricted to
// a time range.
type Dashboard struct {
	ChartData    []DailyClicks `json:"chart_data"`
	TopReferrers []CountItem   `json:"top_referrers"`
	TopDevices   []CountItem   `json:"top_devices"`
	TopCountries []CountItem   `json:"top_countries"`
	TopLinks     []*Link       `json:"top_links"`
	TotalClicks  int64         `json:"total_clicks"`
}
