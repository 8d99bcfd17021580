package cryptox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	token, err := GenerateToken(TokenSize256)
	require.NoError(t, err)
	require.Len(t, token, 43)

	other, err := GenerateToken(TokenSize256)
	require.NoError(t, err)
	require.NotEqual(t, token, other, "tokens should be unique")

	for _, size := range []int{0, -1} {
		token, err := GenerateToken(size)
		require.Error(t, err)
		require.Empty(t, token)
	}
}

func TestFingerprintToken(t *testing.T) {
	fp := FingerprintToken("invite-token")
	require.Len(t, fp, 43)
	require.Equal(t, fp, FingerprintToken("invite-token"), "fingerprint must be deterministic")
	require.NotEqual(t, fp, FingerprintToken("invite-token2"))

	require.True(t, MatchFingerprint("invite-token", fp))
	require.False(t, MatchFingerprint("invite-tokem", fp))
	require.False(t, MatchFingerprint("invite-token", ""))
}

func TestTokenPrefix(t *testing.T) {
	require.Equal(t, "abcdefgh", TokenPrefix("abcdefghijklmnop"))
	require.Equal(t, "abc", TokenPrefix("abc"))
	require.Empty(t, TokenPrefix(""))
}
