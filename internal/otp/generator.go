package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// GenerateCode returns a fixed-length numeric code drawn uniformly from the
// full code space (leading zeros included), using the crypto random source.
func GenerateCode(length int) (string, error) {
	if length <= 0 || length > 10 {
		return "", fmt.Errorf("invalid otp length %d", length)
	}
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", length, n), nil
}
