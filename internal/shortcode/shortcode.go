// Package shortcode generates and validates short codes.
package shortcode

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"shawty-backend/internal/domain"
	"shawty-backend/pkg/random"

	"github.com/bits-and-blooms/bloom/v3"
)

const (
	// DefaultLength is the length of generated codes.
	DefaultLength = 6
	// DefaultMaxAttempts bounds the collision retry loop.
	DefaultMaxAttempts = 10
	// MaxAliasLength matches the column size of links.short_code.
	MaxAliasLength = 64
)

var aliasPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

var reserved = map[string]struct{}{
	"admin": {}, "verify": {}, "login": {}, "dashboard": {}, "api": {}, "auth": {},
	"check": {}, "unlock": {}, "shorten": {}, "analytics": {}, "settings": {},
	"register": {}, "links": {}, "urls": {}, "health": {}, "ready": {}, "metrics": {},
	"swagger": {},
}

// Generate returns a code of the given length drawn uniformly from the 62
// alphanumeric symbols.
func Generate(length int) (string, error) {
	if length <= 0 {
		length = DefaultLength
	}
	return random.NewRandomString(length)
}

// IsReserved reports whether s collides with a route or reserved word, ignoring case.
func IsReserved(s string) bool {
	_, ok := reserved[strings.ToLower(s)]
	return ok
}

// IsValidAlias checks the character class, length and reserved-word rules.
func IsValidAlias(s string) error {
	if len(s) == 0 || len(s) > MaxAliasLength || !aliasPattern.MatchString(s) {
		return domain.ErrInvalidAlias
	}
	if IsReserved(s) {
		return domain.ErrReservedAlias
	}
	return nil
}

// ExistsFunc reports whether a code is already owned by a link.
type ExistsFunc func(ctx context.Context, code string) (bool, error)

// Allocator picks unused codes. Codes the filter has never seen skip the
// existence lookup; the store's unique index stays the final authority.
type Allocator struct {
	length      int
	maxAttempts int

	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

// NewAllocator creates an allocator. A zero capacity disables the filter.
func NewAllocator(length, maxAttempts int, capacity uint, fpRate float64) *Allocator {
	if length <= 0 {
		length = DefaultLength
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	a := &Allocator{length: length, maxAttempts: maxAttempts}
	if capacity > 0 {
		a.filter = bloom.NewWithEstimates(capacity, fpRate)
	}
	return a
}

// Allocate samples codes until exists reports a free one. It gives up with
// domain.ErrCodeSpaceExhausted after maxAttempts samples.
func (a *Allocator) Allocate(ctx context.Context, exists ExistsFunc) (string, error) {
	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		code, err := Generate(a.length)
		if err != nil {
			return "", fmt.Errorf("failed to generate code: %w", err)
		}
		if IsReserved(code) {
			continue
		}
		if !a.mightExist(code) {
			return code, nil
		}
		taken, err := exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check code existence: %w", err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", domain.ErrCodeSpaceExhausted
}

// Add records codes known to be taken.
func (a *Allocator) Add(codes ...string) {
	if a.filter == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, c := range codes {
		a.filter.AddString(c)
	}
}

// MaxAttempts returns the retry bound.
func (a *Allocator) MaxAttempts() int {
	return a.maxAttempts
}

func (a *Allocator) mightExist(code string) bool {
	if a.filter == nil {
		return true
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.filter.TestString(code)
}
