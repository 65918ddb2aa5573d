package shortcode

import (
	"context"
	"errors"
	"strings"
	"testing"

	"shawty-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_ProducesValidAliases(t *testing.T) {
	for i := 0; i < 500; i++ {
		code, err := Generate(DefaultLength)
		require.NoError(t, err)
		assert.Len(t, code, DefaultLength)
		if IsReserved(code) {
			continue
		}
		assert.NoError(t, IsValidAlias(code), code)
	}
}

func TestIsValidAlias(t *testing.T) {
	tests := []struct {
		alias string
		want  error
	}{
		{"my-link_1", nil},
		{"ABCxyz", nil},
		{"", domain.ErrInvalidAlias},
		{"has space", domain.ErrInvalidAlias},
		{"slash/path", domain.ErrInvalidAlias},
		{"émoji", domain.ErrInvalidAlias},
		{strings.Repeat("a", MaxAliasLength+1), domain.ErrInvalidAlias},
		{"admin", domain.ErrReservedAlias},
		{"ADMIN", domain.ErrReservedAlias},
		{"Api", domain.ErrReservedAlias},
		{"login", domain.ErrReservedAlias},
		{"Unlock", domain.ErrReservedAlias},
	}

	for _, tt := range tests {
		t.Run(tt.alias, func(t *testing.T) {
			err := IsValidAlias(tt.alias)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAllocator_RetriesUntilFree(t *testing.T) {
	a := NewAllocator(6, 10, 0, 0)

	calls := 0
	code, err := a.Allocate(context.Background(), func(ctx context.Context, code string) (bool, error) {
		calls++
		return calls < 3, nil
	})

	require.NoError(t, err)
	assert.Len(t, code, 6)
	assert.Equal(t, 3, calls)
}

func TestAllocator_BoundedRetries(t *testing.T) {
	a := NewAllocator(6, 4, 0, 0)

	calls := 0
	_, err := a.Allocate(context.Background(), func(ctx context.Context, code string) (bool, error) {
		calls++
		return true, nil
	})

	assert.ErrorIs(t, err, domain.ErrCodeSpaceExhausted)
	assert.LessOrEqual(t, calls, 4)
}

func TestAllocator_PropagatesStoreError(t *testing.T) {
	a := NewAllocator(6, 4, 0, 0)
	boom := errors.New("db down")

	_, err := a.Allocate(context.Background(), func(ctx context.Context, code string) (bool, error) {
		return false, boom
	})

	assert.ErrorIs(t, err, boom)
}

func TestAllocator_FilterSkipsLookupForUnseenCodes(t *testing.T) {
	a := NewAllocator(6, 4, 1000, 0.001)
	a.Add("taken1", "taken2")

	_, err := a.Allocate(context.Background(), func(ctx context.Context, code string) (bool, error) {
		t.Fatalf("lookup should be skipped for unseen code %q", code)
		return false, nil
	})
	// A false positive on a random 6-symbol code is possible but vanishingly rare
	// with two entries in a 1000 slot filter.
	require.NoError(t, err)
}
