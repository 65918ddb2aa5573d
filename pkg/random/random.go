package random

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Alphabet is the set of symbols short codes are drawn from.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

var alphabetLen = big.NewInt(int64(len(Alphabet)))

// NewRandomString returns a string of the given length where every symbol is
// drawn uniformly from Alphabet.
func NewRandomString(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid length %d", length)
	}

	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", fmt.Errorf("failed to read random source: %w", err)
		}
		b[i] = Alphabet[n.Int64()]
	}
	return string(b), nil
}
