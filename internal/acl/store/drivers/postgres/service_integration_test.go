//go:build integration

package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/projectacl/internal/acl/domain"
	"github.com/aussiebroadwan/projectacl/internal/acl/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

const raceRounds = 10

func newIntegrationServices(t *testing.T, st *Store) (*service.ShareService, *service.InviteService) {
	t.Helper()
	deps := service.Deps{Store: st, Metrics: service.NewMetrics(prometheus.NewRegistry())}
	shares := &service.ShareService{Deps: deps}
	invites := &service.InviteService{Deps: deps, Shares: shares, TTL: time.Hour}
	return shares, invites
}

// race runs a and b at the same moment and returns their errors.
func race(a, b func() error) (errA, errB error) {
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		<-start
		errA = a()
	}()
	go func() {
		defer wg.Done()
		<-start
		errB = b()
	}()
	close(start)
	wg.Wait()
	return errA, errB
}

func requireRole(t *testing.T, st *Store, userID string, want domain.Role) {
	t.Helper()
	role, err := st.Shares().GetActiveRole(context.Background(), "p1", userID)
	require.NoError(t, err)
	require.Equal(t, want, role, userID)
}

func TestIntegrationChangeRoleRacingTransferKeepsOwner(t *testing.T) {
	st := newIntegrationStore(t, 5*time.Second)
	seedProject(t, st)
	shares, _ := newIntegrationServices(t, st)
	ctx := context.Background()

	for round := range raceRounds {
		// owner is the sole owner; alice collaborates.
		_, err := shares.GrantOrUpdateShare(ctx, "p1", "owner", domain.RoleOwner, "owner")
		require.NoError(t, err)
		_, err = shares.GrantOrUpdateShare(ctx, "p1", "alice", domain.RoleCollaborate, "owner")
		require.NoError(t, err)

		transferErr, changeErr := race(
			func() error {
				return shares.TransferOwnership(ctx, "p1", "owner", "alice", "owner")
			},
			func() error {
				_, err := shares.ChangeRole(ctx, "p1", "alice", domain.RoleView, "owner")
				return err
			},
		)
		require.NoError(t, transferErr, "round %d", round)
		if changeErr != nil {
			require.ErrorIs(t, changeErr, service.ErrLastOwnerViolation, "round %d", round)
		}

		// Whichever ran first, the transfer leaves alice owning the project.
		n, err := st.Shares().CountOwners(ctx, "p1")
		require.NoError(t, err)
		require.Equal(t, 1, n, "round %d", round)
		requireRole(t, st, "alice", domain.RoleOwner)
		requireRole(t, st, "owner", domain.RoleCollaborate)
	}
}

func TestIntegrationOwnersRevokingEachOther(t *testing.T) {
	st := newIntegrationStore(t, 5*time.Second)
	seedProject(t, st)
	shares, _ := newIntegrationServices(t, st)
	ctx := context.Background()

	for round := range raceRounds {
		_, err := shares.GrantOrUpdateShare(ctx, "p1", "owner", domain.RoleOwner, "owner")
		require.NoError(t, err)
		_, err = shares.GrantOrUpdateShare(ctx, "p1", "alice", domain.RoleOwner, "owner")
		require.NoError(t, err)

		revokeAlice, revokeOwner := race(
			func() error { return shares.RevokeShare(ctx, "p1", "alice", "owner") },
			func() error { return shares.RevokeShare(ctx, "p1", "owner", "alice") },
		)

		var survivor string
		switch {
		case revokeAlice == nil:
			require.ErrorIs(t, revokeOwner, service.ErrLastOwnerViolation, "round %d", round)
			survivor = "owner"
		case revokeOwner == nil:
			require.ErrorIs(t, revokeAlice, service.ErrLastOwnerViolation, "round %d", round)
			survivor = "alice"
		default:
			t.Fatalf("round %d: both revokes failed: %v, %v", round, revokeAlice, revokeOwner)
		}

		n, err := st.Shares().CountOwners(ctx, "p1")
		require.NoError(t, err)
		require.Equal(t, 1, n, "round %d", round)
		requireRole(t, st, survivor, domain.RoleOwner)
	}
}

func TestIntegrationClaimRacingRevoke(t *testing.T) {
	st := newIntegrationStore(t, 5*time.Second)
	seedProject(t, st)
	_, invites := newIntegrationServices(t, st)
	ctx := context.Background()
	role := domain.RoleOperate

	for round := range raceRounds {
		issued, err := invites.CreateInvite(ctx, service.CreateInviteParams{
			Email: "alice@example.com", InvitedBy: "owner", ProjectID: "p1", Role: &role,
		})
		require.NoError(t, err)

		claimErr, revokeErr := race(
			func() error {
				_, err := invites.ClaimInvite(ctx, issued.Token, service.Claimant{UserID: "alice"})
				return err
			},
			func() error {
				_, err := invites.RevokeInvite(ctx, issued.Invite.ID, "owner")
				return err
			},
		)

		inv, err := st.Invites().GetInviteByID(ctx, issued.Invite.ID)
		require.NoError(t, err)

		switch {
		case claimErr == nil:
			require.ErrorIs(t, revokeErr, service.ErrAlreadyTerminal, "round %d", round)
			require.Equal(t, domain.InviteStateClaimed, inv.State(time.Now()), "round %d", round)
		case revokeErr == nil:
			require.ErrorIs(t, claimErr, service.ErrInviteRevoked, "round %d", round)
			require.Equal(t, domain.InviteStateRevoked, inv.State(time.Now()), "round %d", round)
		default:
			t.Fatalf("round %d: claim and revoke both failed: %v, %v", round, claimErr, revokeErr)
		}
		require.False(t, inv.ClaimedAt != nil && inv.RevokedAt != nil, "round %d", round)
	}
}
