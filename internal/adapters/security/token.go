package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
)

// RandomTokenGenerator mints URL-safe opaque tokens of Size random bytes
// (32 when unset).
type RandomTokenGenerator struct {
	Size int
}

// NewToken returns a fresh token.
func (g RandomTokenGenerator) NewToken() (string, error) {
	size := g.Size
	if size <= 0 {
		size = 32
	}
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("token: entropy read failed: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// NumericCodeGenerator mints zero-padded decimal codes of Digits digits
// (6 when unset, at most 18), used for emailed password reset codes.
type NumericCodeGenerator struct {
	Digits int
}

// NewCode returns a uniformly random code.
func (g NumericCodeGenerator) NewCode() (string, error) {
	digits := g.Digits
	if digits <= 0 || digits > 18 {
		digits = 6
	}
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("code: entropy read failed: %w", err)
	}
	return fmt.Sprintf("%0*d", digits, n.Int64()), nil
}
