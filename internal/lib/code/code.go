// Package code generates the short numeric verification codes handed to
// users over Discord DM. Codes are drawn uniformly from the full
// [0, 10^length) space with crypto/rand; the first digit may be zero, so
// codes are fixed-width strings, not integers.
//
// A 6-digit space holds a million values. With codes expiring after an
// hour and /verify rate-limited per IP, the odds of guessing a live code
// are small enough for this use; raise length in config if the live set
// grows.
package code

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	MinLength = 4
	MaxLength = 12
)

// Generate returns a fixed-width numeric code of the given length.
func Generate(length int) (string, error) {
	const op = "lib.code.Generate"

	if length < MinLength || length > MaxLength {
		return "", fmt.Errorf("%s: length %d out of range [%d, %d]", op, length, MinLength, MaxLength)
	}

	space := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)

	n, err := rand.Int(rand.Reader, space)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return fmt.Sprintf("%0*d", length, n), nil
}
