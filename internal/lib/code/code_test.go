package code

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateLength(t *testing.T) {
	for _, length := range []int{4, 6, 8, 12} {
		c, err := Generate(length)
		require.NoError(t, err)
		assert.Len(t, c, length)

		for _, r := range c {
			assert.True(t, r >= '0' && r <= '9', "code %q contains non-digit %q", c, r)
		}
	}
}

func TestGenerateLengthOutOfRange(t *testing.T) {
	_, err := Generate(3)
	assert.Error(t, err)

	_, err = Generate(13)
	assert.Error(t, err)
}

func TestGenerateVaries(t *testing.T) {
	seen := make(map[string]struct{})

	for i := 0; i < 20; i++ {
		c, err := Generate(8)
		require.NoError(t, err)
		seen[c] = struct{}{}
	}

	// 20 draws from a 10^8 space should essentially never repeat.
	assert.Greater(t, len(seen), 15)
}
