package service

import (
	"context"
	"testing"
	"time"

	"shawty-backend/internal/domain"
	"shawty-backend/internal/ratelimit"
	"shawty-backend/internal/shortcode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCreate_GeneratedCode(t *testing.T) {
	f := newFixture(t)
	link := f.create(t, CreateLinkInput{OriginalURL: " https://example.com/a "}, nil)

	assert.Len(t, link.ShortCode, 6)
	assert.NoError(t, shortcode.IsValidAlias(link.ShortCode))
	assert.Equal(t, "https://example.com/a", link.OriginalURL)
	assert.True(t, link.IsActive)
	assert.Nil(t, link.UserID)
}

func TestCreate_GeneratedCodesAreUnique(t *testing.T) {
	f := newFixture(t)
	owner := int64(1)
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		link := f.create(t, CreateLinkInput{OriginalURL: "https://example.com"}, &owner)
		assert.False(t, seen[link.ShortCode], "duplicate code %s", link.ShortCode)
		seen[link.ShortCode] = true
	}
}

func TestCreate_CustomAlias(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := int64(1)

	link := f.create(t, CreateLinkInput{OriginalURL: "https://example.com", CustomAlias: ptr("my-link_1")}, &owner)
	assert.Equal(t, "my-link_1", link.ShortCode)

	tests := []struct {
		alias string
		want  error
	}{
		{"my-link_1", domain.ErrAliasTaken},
		{"has space", domain.ErrInvalidAlias},
		{"slash/no", domain.ErrInvalidAlias},
		{"admin", domain.ErrReservedAlias},
		{"Admin", domain.ErrReservedAlias},
		{"LOGIN", domain.ErrReservedAlias},
		{"api", domain.ErrReservedAlias},
	}
	for _, tt := range tests {
		t.Run(tt.alias, func(t *testing.T) {
			_, err := f.links.Create(ctx, CreateLinkInput{OriginalURL: "https://example.com", CustomAlias: &tt.alias}, &owner, "")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := int64(1)

	for _, dest := range []string{"", "example.com", "ftp://example.com/file", "javascript:alert(1)", "https://"} {
		_, err := f.links.Create(ctx, CreateLinkInput{OriginalURL: dest}, &owner, "")
		assert.ErrorIsf(t, err, domain.ErrInvalidDestination, "destination %q", dest)
	}

	_, err := f.links.Create(ctx, CreateLinkInput{OriginalURL: "https://example.com", MaxClicks: ptr(int64(0))}, &owner, "")
	assert.ErrorIs(t, err, domain.ErrInvalidMaxClicks)

	long := string(make([]byte, 100))
	_, err = f.links.Create(ctx, CreateLinkInput{OriginalURL: "https://example.com", Password: &long}, &owner, "")
	assert.ErrorIs(t, err, domain.ErrInvalidPassword)
}

func TestCreate_AnonymousRateLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := CreateLinkInput{OriginalURL: "https://example.com"}

	for i := 0; i < 5; i++ {
		_, err := f.links.Create(ctx, in, nil, "198.51.100.1")
		require.NoErrorf(t, err, "creation %d", i+1)
	}
	_, err := f.links.Create(ctx, in, nil, "198.51.100.1")
	assert.ErrorIs(t, err, domain.ErrRateLimited)

	_, err = f.links.Create(ctx, in, nil, "198.51.100.2")
	assert.NoError(t, err, "other identities are unaffected")

	owner := int64(9)
	_, err = f.links.Create(ctx, in, &owner, "198.51.100.1")
	assert.NoError(t, err, "authenticated creation is not limited")
}

func TestCreate_RateLimiterDownFailsClosed(t *testing.T) {
	l := &mockLimiter{}
	l.On("CheckAndIncrement", mock.Anything, "anon:198.51.100.1", mock.Anything).Return(ratelimit.Decision{}, errRedisDown)
	f := newFixture(t, withLimiter(l))

	_, err := f.links.Create(context.Background(), CreateLinkInput{OriginalURL: "https://example.com"}, nil, "198.51.100.1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrRateLimited)
	assert.ErrorIs(t, err, errRedisDown)

	codes, err := f.store.ListCodes(context.Background())
	require.NoError(t, err)
	assert.Empty(t, codes)
}

func TestCreate_InvalidInputDoesNotConsumeQuota(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		_, err := f.links.Create(ctx, CreateLinkInput{OriginalURL: "https://example.com", CustomAlias: ptr("admin")}, nil, "198.51.100.5")
		assert.ErrorIs(t, err, domain.ErrReservedAlias)
	}
	_, err := f.links.Create(ctx, CreateLinkInput{OriginalURL: "https://example.com"}, nil, "198.51.100.5")
	assert.NoError(t, err)
}

func TestCheckAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := int64(1)
	f.create(t, CreateLinkInput{OriginalURL: "https://example.com", CustomAlias: ptr("taken")}, &owner)

	for slug, want := range map[string]bool{"taken": false, "free": true, "dashboard": false, "bad slug": false} {
		got, err := f.links.CheckAvailability(ctx, slug)
		require.NoError(t, err)
		assert.Equalf(t, want, got, "slug %q", slug)
	}
}

func TestUpdate_CacheCoherence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := int64(4)
	link := f.create(t, CreateLinkInput{OriginalURL: "https://old.example"}, &owner)

	_, err := f.redirector.Resolve(ctx, link.ShortCode, meta)
	require.NoError(t, err)
	require.True(t, f.cache.has(link.ShortCode))

	updated, err := f.links.Update(ctx, owner, link.ShortCode, domain.LinkPatch{OriginalURL: ptr("https://new.example")})
	require.NoError(t, err)
	assert.Equal(t, "https://new.example", updated.OriginalURL)
	assert.False(t, f.cache.has(link.ShortCode))

	dest, err := f.redirector.Resolve(ctx, link.ShortCode, meta)
	require.NoError(t, err)
	assert.Equal(t, "https://new.example", dest)
}

func TestUpdate_DeactivateAndQuota(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := int64(4)
	link := f.create(t, CreateLinkInput{OriginalURL: "https://example.com"}, &owner)
	_, err := f.redirector.Resolve(ctx, link.ShortCode, meta)
	require.NoError(t, err)

	_, err = f.links.Update(ctx, owner, link.ShortCode, domain.LinkPatch{MaxClicks: ptr(int64(-1))})
	assert.ErrorIs(t, err, domain.ErrInvalidMaxClicks)
	_, err = f.links.Update(ctx, owner, link.ShortCode, domain.LinkPatch{OriginalURL: ptr("nope")})
	assert.ErrorIs(t, err, domain.ErrInvalidDestination)

	_, err = f.links.Update(ctx, owner, link.ShortCode, domain.LinkPatch{IsActive: ptr(false)})
	require.NoError(t, err)
	_, err = f.redirector.Resolve(ctx, link.ShortCode, meta)
	assert.ErrorIs(t, err, domain.ErrLinkGone)

	_, err = f.links.Update(ctx, owner, link.ShortCode, domain.LinkPatch{IsActive: ptr(true)})
	assert.ErrorIs(t, err, domain.ErrCannotReactivate)
}

func TestOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner, stranger := int64(1), int64(2)
	link := f.create(t, CreateLinkInput{OriginalURL: "https://example.com"}, &owner)
	anon := f.create(t, CreateLinkInput{OriginalURL: "https://example.com"}, nil)

	_, err := f.links.Update(ctx, stranger, link.ShortCode, domain.LinkPatch{IsActive: ptr(false)})
	assert.ErrorIs(t, err, domain.ErrLinkNotFound)
	assert.ErrorIs(t, f.links.Delete(ctx, stranger, link.ShortCode), domain.ErrLinkNotFound)
	_, err = f.links.Stats(ctx, stranger, link.ShortCode)
	assert.ErrorIs(t, err, domain.ErrLinkNotFound)
	assert.ErrorIs(t, f.links.Delete(ctx, owner, anon.ShortCode), domain.ErrLinkNotFound, "anonymous links have no owner")
	assert.ErrorIs(t, f.links.Delete(ctx, owner, "missing"), domain.ErrLinkNotFound)
}

func TestDelete_RemovesLinkAndCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := int64(1)
	link := f.create(t, CreateLinkInput{OriginalURL: "https://example.com"}, &owner)
	_, err := f.redirector.Resolve(ctx, link.ShortCode, meta)
	require.NoError(t, err)
	job := <-f.queue.jobs

	require.NoError(t, f.links.Delete(ctx, owner, link.ShortCode))
	assert.False(t, f.cache.has(link.ShortCode))
	_, ok := f.store.GetClick(job.ClickID)
	assert.False(t, ok, "click events are deleted with the link")

	_, err = f.redirector.Resolve(ctx, link.ShortCode, meta)
	assert.ErrorIs(t, err, domain.ErrLinkNotFound)
}

func TestListAndStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := int64(1)
	first := f.create(t, CreateLinkInput{OriginalURL: "https://example.com/1"}, &owner)
	f.create(t, CreateLinkInput{OriginalURL: "https://example.com/2"}, &owner)

	links, err := f.links.List(ctx, owner, 0, 0)
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "https://example.com/2", links[0].OriginalURL, "newest first")

	for _, ref := range []string{"", "", "https://t.co"} {
		m := meta
		m.Referrer = ref
		_, err := f.redirector.Resolve(ctx, first.ShortCode, m)
		require.NoError(t, err)
	}

	stats, err := f.links.Stats(ctx, owner, first.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalClicks)
	assert.Equal(t, domain.CountItem{Name: domain.DefaultReferrer, Value: 2}, stats.TopReferrers[0])
	assert.Equal(t, domain.CountItem{Name: domain.CountryPending, Value: 3}, stats.TopCountries[0])
}

func TestDashboard_FillsEmptyDays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := int64(1)
	link := f.create(t, CreateLinkInput{OriginalURL: "https://example.com"}, &owner)
	_, err := f.redirector.Resolve(ctx, link.ShortCode, meta)
	require.NoError(t, err)

	dash, err := f.links.Dashboard(ctx, owner, "7d")
	require.NoError(t, err)
	require.Len(t, dash.ChartData, 8)
	last := dash.ChartData[len(dash.ChartData)-1]
	assert.Equal(t, time.Now().UTC().Format(time.DateOnly), last.Date)
	assert.Equal(t, int64(1), last.Clicks)
	assert.Zero(t, dash.ChartData[0].Clicks)
	assert.Equal(t, int64(1), dash.TotalClicks)
	require.Len(t, dash.TopLinks, 1)

	empty, err := f.links.Dashboard(ctx, 99, "bogus")
	require.NoError(t, err)
	assert.Len(t, empty.ChartData, 8)
	assert.NotNil(t, empty.TopLinks)
}

func TestRangeDays(t *testing.T) {
	assert.Equal(t, 1, RangeDays("24h"))
	assert.Equal(t, 7, RangeDays("7d"))
	assert.Equal(t, 30, RangeDays("30d"))
	assert.Equal(t, 90, RangeDays("90d"))
	assert.Equal(t, 7, RangeDays(""))
}
