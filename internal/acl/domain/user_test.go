package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeEmail(t *testing.T) {
	require.Equal(t, "alice@example.com", NormalizeEmail("  Alice@Example.COM "))
}

func TestValidEmail(t *testing.T) {
	for _, ok := range []string{"alice@example.com", " Bob@Example.com ", "a.b+tag@sub.example.org"} {
		require.True(t, ValidEmail(ok), ok)
	}
	for _, bad := range []string{"", "alice", "@example.com", "alice@", "Alice <alice@example.com>", "a@b@c"} {
		require.False(t, ValidEmail(bad), bad)
	}
}

func TestHasPassword(t *testing.T) {
	empty := ""
	hash := "$argon2id$..."
	require.False(t, (&User{}).HasPassword())
	require.False(t, (&User{PasswordHash: &empty}).HasPassword())
	require.True(t, (&User{PasswordHash: &hash}).HasPassword())
}
