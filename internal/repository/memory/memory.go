package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"shawty-backend/internal/domain"
	"shawty-backend/internal/repository"
)

// MemStorage keeps links and clicks in process memory. It serves local
// development and tests; every method takes the single mutex, so the click
// counter increment is as linearizable as the SQL one.
type MemStorage struct {
	mu          sync.RWMutex
	links       map[int64]*domain.Link
	byCode      map[string]int64
	clicks      map[int64]*domain.ClickEvent
	linkCounter int64
	clickCount  int64
}

func New() *MemStorage {
	return &MemStorage{
		links:  make(map[int64]*domain.Link),
		byCode: make(map[string]int64),
		clicks: make(map[int64]*domain.ClickEvent),
	}
}

// --- Link Methods ---

func (s *MemStorage) CreateLink(_ context.Context, link *domain.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byCode[link.ShortCode]; exists {
		return repository.ErrAliasExists
	}
	s.linkCounter++
	now := time.Now()
	link.ID = s.linkCounter
	link.CreatedAt = now
	link.UpdatedAt = now
	stored := copyLink(link)
	s.links[link.ID] = stored
	s.byCode[link.ShortCode] = link.ID
	return nil
}

func (s *MemStorage) GetLinkByCode(_ context.Context, code string) (*domain.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byCode[code]
	if !ok {
		return nil, repository.ErrAliasNotFound
	}
	return copyLink(s.links[id]), nil
}

func (s *MemStorage) AliasExists(_ context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byCode[code]
	return ok, nil
}

func (s *MemStorage) UpdateLink(_ context.Context, linkID int64, patch domain.LinkPatch) (*domain.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.links[linkID]
	if !ok {
		return nil, repository.ErrAliasNotFound
	}
	if patch.OriginalURL != nil {
		link.OriginalURL = *patch.OriginalURL
	}
	if patch.IsActive != nil {
		link.IsActive = *patch.IsActive
	}
	if patch.MaxClicks != nil {
		v := *patch.MaxClicks
		link.MaxClicks = &v
	}
	if patch.ExpiresAt != nil {
		v := *patch.ExpiresAt
		link.ExpiresAt = &v
	}
	link.UpdatedAt = time.Now()
	return copyLink(link), nil
}

func (s *MemStorage) Deactivate(_ context.Context, linkID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.links[linkID]
	if !ok {
		return repository.ErrAliasNotFound
	}
	link.IsActive = false
	return nil
}

func (s *MemStorage) DeleteLink(_ context.Context, linkID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.links[linkID]
	if !ok {
		return repository.ErrAliasNotFound
	}
	for id, c := range s.clicks {
		if c.LinkID == linkID {
			delete(s.clicks, id)
		}
	}
	delete(s.byCode, link.ShortCode)
	delete(s.links, linkID)
	return nil
}

func (s *MemStorage) ListUserLinks(_ context.Context, userID int64, offset, limit int) ([]*domain.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var userLinks []*domain.Link
	for _, link := range s.links {
		if link.UserID != nil && *link.UserID == userID {
			userLinks = append(userLinks, copyLink(link))
		}
	}
	sort.Slice(userLinks, func(i, j int) bool {
		return userLinks[i].ID > userLinks[j].ID
	})
	if offset >= len(userLinks) {
		return []*domain.Link{}, nil
	}
	userLinks = userLinks[offset:]
	if limit > 0 && limit < len(userLinks) {
		userLinks = userLinks[:limit]
	}
	return userLinks, nil
}

func (s *MemStorage) ListCodes(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	codes := make([]string, 0, len(s.byCode))
	for code := range s.byCode {
		codes = append(codes, code)
	}
	return codes, nil
}

// --- Click Methods ---

func (s *MemStorage) RecordClick(_ context.Context, linkID int64, click *domain.ClickEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.links[linkID]
	if !ok {
		return repository.ErrAliasNotFound
	}
	if !link.IsActive || link.QuotaExhausted() {
		return repository.ErrClickRejected
	}
	link.Clicks++

	s.clickCount++
	click.ID = s.clickCount
	click.LinkID = linkID
	if click.Timestamp.IsZero() {
		click.Timestamp = time.Now()
	}
	stored := *click
	s.clicks[click.ID] = &stored
	return nil
}

func (s *MemStorage) UpdateClickEnrichment(_ context.Context, clickID int64, userAgent, country string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	click, ok := s.clicks[clickID]
	if !ok {
		return repository.ErrClickNotFound
	}
	click.UserAgent = userAgent
	click.Country = country
	return nil
}

// GetClick returns a copy of a stored click event.
func (s *MemStorage) GetClick(clickID int64) (domain.ClickEvent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	click, ok := s.clicks[clickID]
	if !ok {
		return domain.ClickEvent{}, false
	}
	return *click, true
}

func (s *MemStorage) GetLinkStats(_ context.Context, linkID int64, top int) (*domain.LinkStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	link, ok := s.links[linkID]
	if !ok {
		return nil, repository.ErrAliasNotFound
	}

	referrers := make(map[string]int64)
	devices := make(map[string]int64)
	countries := make(map[string]int64)
	for _, c := range s.clicks {
		if c.LinkID != linkID {
			continue
		}
		referrers[c.Referrer]++
		devices[c.UserAgent]++
		countries[c.Country]++
	}

	return &domain.LinkStats{
		ShortCode:    link.ShortCode,
		TotalClicks:  link.Clicks,
		TopReferrers: topN(referrers, top),
		TopDevices:   topN(devices, top),
		TopCountries: topN(countries, top),
	}, nil
}

func (s *MemStorage) GetOwnerDashboard(_ context.Context, userID int64, since time.Time, top int) (*domain.Dashboard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var owned []*domain.Link
	for _, link := range s.links {
		if link.UserID != nil && *link.UserID == userID {
			owned = append(owned, link)
		}
	}

	days := make(map[string]int64)
	referrers := make(map[string]int64)
	devices := make(map[string]int64)
	countries := make(map[string]int64)
	dash := &domain.Dashboard{}
	for _, c := range s.clicks {
		link := s.links[c.LinkID]
		if link == nil || link.UserID == nil || *link.UserID != userID || c.Timestamp.Before(since) {
			continue
		}
		days[c.Timestamp.UTC().Format(time.DateOnly)]++
		referrers[c.Referrer]++
		devices[c.UserAgent]++
		countries[c.Country]++
		dash.TotalClicks++
	}

	for date, n := range days {
		dash.ChartData = append(dash.ChartData, domain.DailyClicks{Date: date, Clicks: n})
	}
	sort.Slice(dash.ChartData, func(i, j int) bool {
		return dash.ChartData[i].Date < dash.ChartData[j].Date
	})
	dash.TopReferrers = topN(referrers, top)
	dash.TopDevices = topN(devices, top)
	dash.TopCountries = topN(countries, top)

	sort.Slice(owned, func(i, j int) bool {
		if owned[i].Clicks != owned[j].Clicks {
			return owned[i].Clicks > owned[j].Clicks
		}
		return owned[i].ID > owned[j].ID
	})
	if top > 0 && len(owned) > top {
		owned = owned[:top]
	}
	for _, link := range owned {
		dash.TopLinks = append(dash.TopLinks, copyLink(link))
	}
	return dash, nil
}

func (s *MemStorage) Ping(_ context.Context) error {
	return nil
}

func topN(counts map[string]int64, n int) []domain.CountItem {
	items := make([]domain.CountItem, 0, len(counts))
	for name, v := range counts {
		items = append(items, domain.CountItem{Name: name, Value: v})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Value != items[j].Value {
			return items[i].Value > items[j].Value
		}
		return items[i].Name < items[j].Name
	})
	if n > 0 && len(items) > n {
		items = items[:n]
	}
	return items
}

func copyLink(l *domain.Link) *domain.Link {
	c := *l
	return &c
}

var _ repository.Storage = (*MemStorage)(nil)
