package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	for _, n := range []int{1, 8, 27, 64} {
		token, err := Generate(n)
		require.NoError(t, err)
		assert.Len(t, token, n)
	}

	a, _ := Generate(16)
	b, _ := Generate(16)
	assert.NotEqual(t, a, b)

	_, err := Generate(0)
	assert.ErrorIs(t, err, ErrInvalidLength)
}

func TestNonce(t *testing.T) {
	nonce, err := Nonce()
	require.NoError(t, err)
	assert.Len(t, nonce, NonceLength)
	assert.Regexp(t, `^[A-Za-z0-9_-]+$`, nonce)
}
