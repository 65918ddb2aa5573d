package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shawty-backend/internal/database"
	"shawty-backend/internal/domain"
	"shawty-backend/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PostgresStorage реализует интерфейс Storage для PostgreSQL
type PostgresStorage struct {
	db  *gorm.DB
	log *zap.Logger
}

// New создает новый экземпляр PostgreSQL storage
func New(db *gorm.DB, log *zap.Logger) *PostgresStorage {
	return &PostgresStorage{
		db:  db,
		log: log,
	}
}

// --- Link Methods ---

// CreateLink сохраняет новую ссылку. Уникальность кода обеспечивает индекс.
func (s *PostgresStorage) CreateLink(ctx context.Context, link *domain.Link) error {
	err := s.db.WithContext(ctx).Create(link).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return repository.ErrAliasExists
	}
	if err != nil {
		s.log.Error("failed to save link", zap.String("short_code", link.ShortCode), zap.Error(err))
		return fmt.Errorf("failed to save link: %w", err)
	}

	s.log.Info("saved new link", zap.String("short_code", link.ShortCode), zap.Int64("link_id", link.ID))
	return nil
}

// GetLinkByCode получает ссылку по коду, включая неактивные
func (s *PostgresStorage) GetLinkByCode(ctx context.Context, code string) (*domain.Link, error) {
	var link domain.Link

	err := s.db.WithContext(ctx).Where("short_code = ?", code).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrAliasNotFound
	}
	if err != nil {
		s.log.Error("failed to get link", zap.String("short_code", code), zap.Error(err))
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	return &link, nil
}

// AliasExists проверяет, существует ли код
func (s *PostgresStorage) AliasExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.Link{}).Where("short_code = ?", code).Count(&count).Error
	if err != nil {
		s.log.Error("failed to check alias existence", zap.String("short_code", code), zap.Error(err))
		return false, fmt.Errorf("failed to check alias: %w", err)
	}

	return count > 0, nil
}

// UpdateLink применяет частичное обновление и возвращает актуальную запись
func (s *PostgresStorage) UpdateLink(ctx context.Context, linkID int64, patch domain.LinkPatch) (*domain.Link, error) {
	updates := make(map[string]interface{})
	if patch.OriginalURL != nil {
		updates["original_url"] = *patch.OriginalURL
	}
	if patch.IsActive != nil {
		updates["is_active"] = *patch.IsActive
	}
	if patch.MaxClicks != nil {
		updates["max_clicks"] = *patch.MaxClicks
	}
	if patch.ExpiresAt != nil {
		updates["expires_at"] = *patch.ExpiresAt
	}

	var link domain.Link
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			result := tx.Model(&domain.Link{}).Where("id = ?", linkID).Updates(updates)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return repository.ErrAliasNotFound
			}
		}
		err := tx.Where("id = ?", linkID).First(&link).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return repository.ErrAliasNotFound
		}
		return err
	})
	if errors.Is(err, repository.ErrAliasNotFound) {
		return nil, err
	}
	if err != nil {
		s.log.Error("failed to update link", zap.Int64("link_id", linkID), zap.Error(err))
		return nil, fmt.Errorf("failed to update link: %w", err)
	}

	s.log.Info("updated link", zap.Int64("link_id", linkID), zap.Int("fields", len(updates)))
	return &link, nil
}

// Deactivate выключает ссылку. Повторный вызов ничего не меняет.
func (s *PostgresStorage) Deactivate(ctx context.Context, linkID int64) error {
	result := s.db.WithContext(ctx).Model(&domain.Link{}).Where("id = ?", linkID).UpdateColumn("is_active", false)
	if result.Error != nil {
		s.log.Error("failed to deactivate link", zap.Int64("link_id", linkID), zap.Error(result.Error))
		return fmt.Errorf("failed to deactivate link: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return repository.ErrAliasNotFound
	}

	s.log.Info("deactivated link", zap.Int64("link_id", linkID))
	return nil
}

// DeleteLink удаляет ссылку вместе с её кликами
func (s *PostgresStorage) DeleteLink(ctx context.Context, linkID int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("link_id = ?", linkID).Delete(&domain.ClickEvent{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&domain.Link{}, linkID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return repository.ErrAliasNotFound
		}
		return nil
	})
	if errors.Is(err, repository.ErrAliasNotFound) {
		return err
	}
	if err != nil {
		s.log.Error("failed to delete link", zap.Int64("link_id", linkID), zap.Error(err))
		return fmt.Errorf("failed to delete link: %w", err)
	}

	s.log.Info("deleted link", zap.Int64("link_id", linkID))
	return nil
}

// ListUserLinks возвращает список ссылок пользователя
func (s *PostgresStorage) ListUserLinks(ctx context.Context, userID int64, offset, limit int) ([]*domain.Link, error) {
	var links []*domain.Link

	q := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC, id DESC").Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&links).Error; err != nil {
		s.log.Error("failed to list user links", zap.Int64("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to list user links: %w", err)
	}

	return links, nil
}

// ListCodes возвращает все занятые коды
func (s *PostgresStorage) ListCodes(ctx context.Context) ([]string, error) {
	var codes []string
	if err := s.db.WithContext(ctx).Model(&domain.Link{}).Pluck("short_code", &codes).Error; err != nil {
		return nil, fmt.Errorf("failed to list codes: %w", err)
	}
	return codes, nil
}

// --- Click Methods ---

// RecordClick атомарно увеличивает счетчик и сохраняет клик в одной транзакции.
// Условие в UPDATE повторяет проверки активности и квоты, поэтому
// параллельные редиректы не превышают max_clicks.
func (s *PostgresStorage) RecordClick(ctx context.Context, linkID int64, click *domain.ClickEvent) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&domain.Link{}).
			Where("id = ? AND is_active = ? AND (max_clicks IS NULL OR clicks < max_clicks)", linkID, true).
			UpdateColumn("clicks", gorm.Expr("clicks + 1"))
		if result.Error != nil {
			return fmt.Errorf("failed to update click count: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&domain.Link{}).Where("id = ?", linkID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return repository.ErrAliasNotFound
			}
			return repository.ErrClickRejected
		}

		click.LinkID = linkID
		if err := tx.Create(click).Error; err != nil {
			return fmt.Errorf("failed to create click: %w", err)
		}
		return nil
	})
	if errors.Is(err, repository.ErrAliasNotFound) || errors.Is(err, repository.ErrClickRejected) {
		return err
	}
	if err != nil {
		s.log.Error("failed to record click", zap.Int64("link_id", linkID), zap.Error(err))
		return err
	}

	s.log.Debug("recorded click", zap.Int64("link_id", linkID), zap.Int64("click_id", click.ID))
	return nil
}

// UpdateClickEnrichment записывает результат обогащения клика
func (s *PostgresStorage) UpdateClickEnrichment(ctx context.Context, clickID int64, userAgent, country string) error {
	result := s.db.WithContext(ctx).Model(&domain.ClickEvent{}).Where("id = ?", clickID).
		Updates(map[string]interface{}{"user_agent": userAgent, "country": country})
	if result.Error != nil {
		return fmt.Errorf("failed to update click: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrClickNotFound
	}
	return nil
}

// GetLinkStats возвращает разбивку кликов ссылки по источникам, устройствам и странам
func (s *PostgresStorage) GetLinkStats(ctx context.Context, linkID int64, top int) (*domain.LinkStats, error) {
	var link domain.Link
	err := s.db.WithContext(ctx).Where("id = ?", linkID).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrAliasNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	byLink := func(db *gorm.DB) *gorm.DB {
		return db.Where("click_events.link_id = ?", linkID)
	}

	stats := &domain.LinkStats{ShortCode: link.ShortCode, TotalClicks: link.Clicks}
	if err := s.fillTops(ctx, byLink, top, &stats.TopReferrers, &stats.TopDevices, &stats.TopCountries); err != nil {
		s.log.Error("failed to get link stats", zap.Int64("link_id", linkID), zap.Error(err))
		return nil, err
	}

	return stats, nil
}

// GetOwnerDashboard собирает статистику по всем ссылкам пользователя начиная с since
func (s *PostgresStorage) GetOwnerDashboard(ctx context.Context, userID int64, since time.Time, top int) (*domain.Dashboard, error) {
	byOwner := func(db *gorm.DB) *gorm.DB {
		return db.Joins("JOIN links ON links.id = click_events.link_id").
			Where("links.user_id = ? AND click_events.timestamp >= ?", userID, since)
	}

	dash := &domain.Dashboard{}

	var days []struct {
		Day    string `gorm:"column:day"`
		Clicks int64  `gorm:"column:clicks"`
	}
	err := byOwner(s.db.WithContext(ctx).Model(&domain.ClickEvent{})).
		Select("to_char(click_events.timestamp AT TIME ZONE 'UTC', 'YYYY-MM-DD') as day, count(*) as clicks").
		Group("day").
		Order("day ASC").
		Find(&days).Error
	if err != nil {
		s.log.Error("failed to get click chart", zap.Int64("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to get click chart: %w", err)
	}
	for _, d := range days {
		dash.ChartData = append(dash.ChartData, domain.DailyClicks{Date: d.Day, Clicks: d.Clicks})
		dash.TotalClicks += d.Clicks
	}

	if err := s.fillTops(ctx, byOwner, top, &dash.TopReferrers, &dash.TopDevices, &dash.TopCountries); err != nil {
		s.log.Error("failed to get dashboard tops", zap.Int64("user_id", userID), zap.Error(err))
		return nil, err
	}

	q := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("clicks DESC, id DESC")
	if top > 0 {
		q = q.Limit(top)
	}
	if err := q.Find(&dash.TopLinks).Error; err != nil {
		return nil, fmt.Errorf("failed to get top links: %w", err)
	}

	return dash, nil
}

func (s *PostgresStorage) fillTops(ctx context.Context, scope func(*gorm.DB) *gorm.DB, top int, referrers, devices, countries *[]domain.CountItem) error {
	for column, dst := range map[string]*[]domain.CountItem{
		"referrer":   referrers,
		"user_agent": devices,
		"country":    countries,
	} {
		items, err := s.topBy(ctx, scope, column, top)
		if err != nil {
			return fmt.Errorf("failed to get stats by %s: %w", column, err)
		}
		*dst = items
	}
	return nil
}

func (s *PostgresStorage) topBy(ctx context.Context, scope func(*gorm.DB) *gorm.DB, column string, top int) ([]domain.CountItem, error) {
	var results []struct {
		Name  string `gorm:"column:name"`
		Count int64  `gorm:"column:count"`
	}

	q := scope(s.db.WithContext(ctx).Model(&domain.ClickEvent{})).
		Select(fmt.Sprintf("COALESCE(click_events.%s, 'Unknown') as name, count(*) as count", column)).
		Group("name").
		Order("count DESC, name ASC")
	if top > 0 {
		q = q.Limit(top)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}

	items := make([]domain.CountItem, 0, len(results))
	for _, r := range results {
		items = append(items, domain.CountItem{Name: r.Name, Value: r.Count})
	}
	return items, nil
}

// Ping проверяет доступность базы данных
func (s *PostgresStorage) Ping(ctx context.Context) error {
	return database.HealthCheck(s.db.WithContext(ctx))
}

var _ repository.Storage = (*PostgresStorage)(nil)
