package cryptox_test

import (
	"testing"

	"github.com/latticehq/lattice-auth/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	t.Run("tokens are unique and URL-safe", func(t *testing.T) {
		seen := make(map[string]struct{})
		for range 100 {
			tok, err := cryptox.GenerateToken(cryptox.TokenSize256)
			require.NoError(t, err)
			require.Len(t, tok, 43) // 32 bytes base64url without padding
			require.NotContains(t, tok, "+")
			require.NotContains(t, tok, "/")
			require.NotContains(t, tok, "=")

			_, dup := seen[tok]
			require.False(t, dup, "duplicate token generated")
			seen[tok] = struct{}{}
		}
	})

	t.Run("rejects non-positive sizes", func(t *testing.T) {
		_, err := cryptox.GenerateToken(0)
		require.Error(t, err)

		_, err = cryptox.GenerateToken(-1)
		require.Error(t, err)
	})
}

func TestFingerprintToken(t *testing.T) {
	t.Parallel()

	a := cryptox.FingerprintToken("token-a")
	b := cryptox.FingerprintToken("token-b")

	require.NotEqual(t, a, b)
	require.Equal(t, a, cryptox.FingerprintToken("token-a"), "fingerprint must be deterministic")
	require.Len(t, a, 43)
}

func TestHashAndVerifyPassword(t *testing.T) {
	t.Parallel()

	hash, err := cryptox.HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.NotEqual(t, "correct horse battery staple", hash)

	require.NoError(t, cryptox.VerifyPassword("correct horse battery staple", hash))
	require.ErrorIs(t, cryptox.VerifyPassword("wrong", hash), cryptox.ErrPasswordMismatch)
	require.ErrorIs(t, cryptox.VerifyPassword("anything", "not-a-hash"), cryptox.ErrPasswordMismatch)
}
