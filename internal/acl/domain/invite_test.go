package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInviteState(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	later := now.Add(time.Hour)
	earlier := now.Add(-time.Hour)
	user := "01HUSER"

	t.Run("pending before expiry", func(t *testing.T) {
		inv := AccountInvite{ExpiresAt: later}
		require.Equal(t, InviteStatePending, inv.State(now))
		require.True(t, inv.IsPending(now))
	})

	t.Run("expired at the horizon", func(t *testing.T) {
		inv := AccountInvite{ExpiresAt: now}
		require.Equal(t, InviteStateExpired, inv.State(now))
	})

	t.Run("revoked regardless of remaining time", func(t *testing.T) {
		inv := AccountInvite{ExpiresAt: later, RevokedAt: &earlier}
		require.Equal(t, InviteStateRevoked, inv.State(now))
	})

	t.Run("claimed stays claimed after expiry", func(t *testing.T) {
		inv := AccountInvite{ExpiresAt: earlier, ClaimedAt: &earlier, ClaimedBy: &user}
		require.Equal(t, InviteStateClaimed, inv.State(now))
		require.False(t, inv.IsPending(now))
	})
}
