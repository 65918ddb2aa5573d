package random

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRandomString(t *testing.T) {
	s, err := NewRandomString(6)
	require.NoError(t, err)
	assert.Len(t, s, 6)
	for _, r := range s {
		assert.True(t, strings.ContainsRune(Alphabet, r), "unexpected symbol %q", r)
	}
}

func TestNewRandomString_InvalidLength(t *testing.T) {
	_, err := NewRandomString(0)
	assert.Error(t, err)
}

func TestNewRandomString_CoversAlphabet(t *testing.T) {
	seen := make(map[rune]bool)
	for i := 0; i < 2000; i++ {
		s, err := NewRandomString(8)
		require.NoError(t, err)
		for _, r := range s {
			seen[r] = true
		}
	}
	assert.Len(t, seen, len(Alphabet))
}
