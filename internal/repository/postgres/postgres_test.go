package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"shawty-backend/internal/config"
	"shawty-backend/internal/database"
	"shawty-backend/internal/domain"
	"shawty-backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

func setupStorage(t *testing.T) *PostgresStorage {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcpostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		tcpostgres.WithDatabase("shawty_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	log := zap.NewNop()
	db, err := database.Open(dsn, &config.Database{
		Host:            "testcontainer",
		DBName:          "shawty_test",
		MaxIdleConns:    5,
		MaxOpenConns:    50,
		ConnMaxLifetime: "1h",
	}, log)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = database.Close(db, log)
	})
	require.NoError(t, database.AutoMigrate(db, log))

	return New(db, log)
}

func createLink(t *testing.T, s *PostgresStorage, code string, mutate ...func(*domain.Link)) *domain.Link {
	t.Helper()
	link := &domain.Link{ShortCode: code, OriginalURL: "https://example.com/" + code, IsActive: true}
	for _, m := range mutate {
		m(link)
	}
	require.NoError(t, s.CreateLink(context.Background(), link))
	return link
}

func TestPostgresStorage(t *testing.T) {
	s := setupStorage(t)
	ctx := context.Background()

	t.Run("create_get_conflict", func(t *testing.T) {
		link := createLink(t, s, "pg-abc")
		assert.NotZero(t, link.ID)

		got, err := s.GetLinkByCode(ctx, "pg-abc")
		require.NoError(t, err)
		assert.Equal(t, link.OriginalURL, got.OriginalURL)
		assert.True(t, got.IsActive)

		err = s.CreateLink(ctx, &domain.Link{ShortCode: "pg-abc", OriginalURL: "https://other", IsActive: true})
		assert.ErrorIs(t, err, repository.ErrAliasExists)

		_, err = s.GetLinkByCode(ctx, "pg-missing")
		assert.ErrorIs(t, err, repository.ErrAliasNotFound)
	})

	t.Run("concurrent_clicks_are_not_lost", func(t *testing.T) {
		link := createLink(t, s, "pg-hot")

		const n = 40
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				click := &domain.ClickEvent{Timestamp: time.Now(), Referrer: domain.DefaultReferrer, Country: domain.CountryPending}
				assert.NoError(t, s.RecordClick(ctx, link.ID, click))
			}()
		}
		wg.Wait()

		got, err := s.GetLinkByCode(ctx, "pg-hot")
		require.NoError(t, err)
		assert.Equal(t, int64(n), got.Clicks)
	})

	t.Run("quota_enforced_atomically", func(t *testing.T) {
		max := int64(3)
		link := createLink(t, s, "pg-quota", func(l *domain.Link) { l.MaxClicks = &max })

		var wg sync.WaitGroup
		var mu sync.Mutex
		accepted := 0
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := s.RecordClick(ctx, link.ID, &domain.ClickEvent{Timestamp: time.Now()})
				if err == nil {
					mu.Lock()
					accepted++
					mu.Unlock()
					return
				}
				assert.ErrorIs(t, err, repository.ErrClickRejected)
			}()
		}
		wg.Wait()

		assert.Equal(t, 3, accepted)
		got, err := s.GetLinkByCode(ctx, "pg-quota")
		require.NoError(t, err)
		assert.Equal(t, int64(3), got.Clicks)
	})

	t.Run("deactivate_is_idempotent", func(t *testing.T) {
		link := createLink(t, s, "pg-off")

		require.NoError(t, s.Deactivate(ctx, link.ID))
		require.NoError(t, s.Deactivate(ctx, link.ID))

		got, err := s.GetLinkByCode(ctx, "pg-off")
		require.NoError(t, err)
		assert.False(t, got.IsActive)
		assert.ErrorIs(t, s.RecordClick(ctx, link.ID, &domain.ClickEvent{Timestamp: time.Now()}), repository.ErrClickRejected)
	})

	t.Run("update_enrich_stats_delete", func(t *testing.T) {
		owner := int64(42)
		link := createLink(t, s, "pg-stats", func(l *domain.Link) { l.UserID = &owner })

		url := "https://updated.example.com"
		updated, err := s.UpdateLink(ctx, link.ID, domain.LinkPatch{OriginalURL: &url})
		require.NoError(t, err)
		assert.Equal(t, url, updated.OriginalURL)

		click := &domain.ClickEvent{Timestamp: time.Now(), Referrer: domain.DefaultReferrer, UserAgent: "raw", Country: domain.CountryPending}
		require.NoError(t, s.RecordClick(ctx, link.ID, click))
		require.NoError(t, s.UpdateClickEnrichment(ctx, click.ID, "Firefox on Linux", "France"))

		stats, err := s.GetLinkStats(ctx, link.ID, 5)
		require.NoError(t, err)
		assert.Equal(t, int64(1), stats.TotalClicks)
		require.Len(t, stats.TopCountries, 1)
		assert.Equal(t, "France", stats.TopCountries[0].Name)
		assert.Equal(t, "Firefox on Linux", stats.TopDevices[0].Name)

		links, err := s.ListUserLinks(ctx, owner, 0, 10)
		require.NoError(t, err)
		require.Len(t, links, 1)

		require.NoError(t, s.DeleteLink(ctx, link.ID))
		_, err = s.GetLinkByCode(ctx, "pg-stats")
		assert.ErrorIs(t, err, repository.ErrAliasNotFound)
		assert.ErrorIs(t, s.UpdateClickEnrichment(ctx, click.ID, "x", "y"), repository.ErrClickNotFound)
		assert.ErrorIs(t, s.DeleteLink(ctx, link.ID), repository.ErrAliasNotFound)
	})

	t.Run("owner_dashboard", func(t *testing.T) {
		owner := int64(77)
		a := createLink(t, s, "pg-dash-a", func(l *domain.Link) { l.UserID = &owner })
		b := createLink(t, s, "pg-dash-b", func(l *domain.Link) { l.UserID = &owner })
		createLink(t, s, "pg-dash-x")

		now := time.Now().UTC()
		for _, c := range []struct {
			id int64
			at time.Time
		}{{a.ID, now}, {a.ID, now}, {b.ID, now.AddDate(0, 0, -2)}, {a.ID, now.AddDate(0, 0, -30)}} {
			require.NoError(t, s.RecordClick(ctx, c.id, &domain.ClickEvent{Timestamp: c.at, Referrer: "https://t.co", Country: "Brazil"}))
		}

		dash, err := s.GetOwnerDashboard(ctx, owner, now.AddDate(0, 0, -7), 5)
		require.NoError(t, err)
		assert.Equal(t, int64(3), dash.TotalClicks)
		require.Len(t, dash.ChartData, 2)
		assert.Equal(t, now.Format(time.DateOnly), dash.ChartData[1].Date)
		assert.Equal(t, int64(2), dash.ChartData[1].Clicks)
		assert.Equal(t, []domain.CountItem{{Name: "https://t.co", Value: 3}}, dash.TopReferrers)
		require.Len(t, dash.TopLinks, 2)
		assert.Equal(t, "pg-dash-a", dash.TopLinks[0].ShortCode)
	})

	t.Run("ping_and_codes", func(t *testing.T) {
		require.NoError(t, s.Ping(ctx))
		codes, err := s.ListCodes(ctx)
		require.NoError(t, err)
		assert.Contains(t, codes, "pg-abc")
	})
}
