package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/projectacl/internal/acl/domain"
	"github.com/aussiebroadwan/projectacl/internal/acl/store"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := DSN(filepath.Join(t.TempDir(), "acl.db"), 2*time.Second)

	st, err := NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func ptr[T any](v T) *T { return &v }

func seed(t *testing.T, st *Store, now time.Time) {
	t.Helper()
	ctx := context.Background()

	team := "team-1"
	for i, id := range []string{"carol", "alice", "bob"} {
		require.NoError(t, st.Users().CreateUser(ctx, domain.User{
			ID:           id,
			Email:        id + "@Example.com",
			LegacyTeamID: &team,
			Active:       true,
			CreatedAt:    now.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, st.Projects().CreateProject(ctx, domain.Project{
		ID: "p1", Name: "Alpha", CreatedBy: ptr("carol"), LegacyTeamID: &team, CreatedAt: now,
	}))
	require.NoError(t, st.Shares().InsertShare(ctx, domain.ProjectShare{
		ID: "s1", ProjectID: "p1", UserID: "carol", Role: domain.RoleOwner, CreatedAt: now, UpdatedAt: now,
	}))
}

func TestApplyMigrationsIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.ApplyMigrations())
	require.NoError(t, st.Ping(context.Background()))
}

func TestUsersAndLegacyMembers(t *testing.T) {
	st := newTestStore(t)
	now := time.Now().UTC().Truncate(time.Second)
	seed(t, st, now)
	ctx := context.Background()

	u, err := st.Users().GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, "alice", u.ID)
	require.True(t, u.Active)
	require.False(t, u.HasPassword())

	_, err = st.Users().GetUserByID(ctx, "nobody")
	require.ErrorIs(t, err, store.ErrNotFound)

	err = st.Users().CreateUser(ctx, domain.User{ID: "dup", Email: "ALICE@example.com", Active: true, CreatedAt: now})
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	members, err := st.Legacy().ListTeamMembers(ctx, "team-1")
	require.NoError(t, err)
	require.Len(t, members, 3)
	require.Equal(t, []string{"carol", "alice", "bob"}, []string{members[0].ID, members[1].ID, members[2].ID})
}

func TestSharesLifecycle(t *testing.T) {
	st := newTestStore(t)
	now := time.Now().UTC().Truncate(time.Second)
	seed(t, st, now)
	ctx := context.Background()

	err := st.Shares().InsertShare(ctx, domain.ProjectShare{
		ID: "s2", ProjectID: "p1", UserID: "carol", Role: domain.RoleView, CreatedAt: now, UpdatedAt: now,
	})
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	require.NoError(t, st.Shares().InsertShare(ctx, domain.ProjectShare{
		ID: "s2", ProjectID: "p1", UserID: "alice", Role: domain.RoleView,
		GrantedBy: ptr("carol"), CreatedAt: now.Add(time.Minute), UpdatedAt: now.Add(time.Minute),
	}))

	later := now.Add(time.Hour)
	require.NoError(t, st.Shares().UpdateShareRole(ctx, "p1", "alice", domain.RoleCollaborate, ptr("carol"), later))

	share, err := st.Shares().GetShare(ctx, "p1", "alice")
	require.NoError(t, err)
	require.Equal(t, domain.RoleCollaborate, share.Role)
	require.Equal(t, later, share.UpdatedAt)
	require.Equal(t, now.Add(time.Minute), share.CreatedAt)
	require.Equal(t, "carol", *share.GrantedBy)

	owners, err := st.Shares().LockOwners(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, []string{"carol"}, owners)

	n, err := st.Shares().CountOwners(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	collabs, err := st.Shares().ListCollaborators(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, collabs, 2)
	require.Equal(t, "carol@example.com", collabs[0].Email)

	shared, err := st.Shares().ListSharedWithUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, shared, 1)
	require.Equal(t, "Alpha", shared[0].Name)

	require.NoError(t, st.Shares().DeleteShare(ctx, "p1", "alice"))
	require.ErrorIs(t, st.Shares().DeleteShare(ctx, "p1", "alice"), store.ErrNotFound)
	require.ErrorIs(t, st.Shares().UpdateShareRole(ctx, "p1", "alice", domain.RoleView, nil, later), store.ErrNotFound)
}

func TestDeletedProjectGrantsNothing(t *testing.T) {
	st := newTestStore(t)
	now := time.Now().UTC().Truncate(time.Second)
	seed(t, st, now)
	ctx := context.Background()

	role, err := st.Shares().GetActiveRole(ctx, "p1", "carol")
	require.NoError(t, err)
	require.Equal(t, domain.RoleOwner, role)

	require.NoError(t, st.Projects().MarkProjectDeleted(ctx, "p1", now))
	require.ErrorIs(t, st.Projects().MarkProjectDeleted(ctx, "p1", now), store.ErrNotFound)

	_, err = st.Shares().GetActiveRole(ctx, "p1", "carol")
	require.ErrorIs(t, err, store.ErrNotFound)

	ids, err := st.Projects().ListActiveProjectIDs(ctx)
	require.NoError(t, err)
	require.Empty(t, ids)

	p, err := st.Projects().GetProjectByID(ctx, "p1")
	require.NoError(t, err)
	require.True(t, p.IsDeleted())
}

func TestInviteTransitions(t *testing.T) {
	st := newTestStore(t)
	now := time.Now().UTC().Truncate(time.Second)
	seed(t, st, now)
	ctx := context.Background()

	role := domain.RoleOperate
	newInvite := func(id, hash string, expires time.Time) domain.AccountInvite {
		return domain.AccountInvite{
			ID: id, TokenHash: hash, TokenPrefix: "abcdefgh", Email: "dave@example.com",
			InvitedBy: "carol", ProjectID: ptr("p1"), Role: &role,
			ExpiresAt: expires, CreatedAt: now,
		}
	}
	require.NoError(t, st.Invites().CreateInvite(ctx, newInvite("i1", "h1", now.Add(time.Hour))))
	require.NoError(t, st.Invites().CreateInvite(ctx, newInvite("i2", "h2", now.Add(time.Hour))))
	require.NoError(t, st.Invites().CreateInvite(ctx, newInvite("i3", "h3", now.Add(-48*time.Hour))))
	require.ErrorIs(t, st.Invites().CreateInvite(ctx, newInvite("i4", "h1", now)), store.ErrAlreadyExists)

	open, err := st.Invites().ListOpenInvitesByEmail(ctx, "dave@example.com")
	require.NoError(t, err)
	require.Len(t, open, 3)

	err = st.WithTx(ctx, func(tx store.Tx) error {
		inv, err := tx.Invites().GetInviteByTokenHashForUpdate(ctx, "h1")
		if err != nil {
			return err
		}
		require.Equal(t, domain.InviteStatePending, inv.State(now))
		ok, err := tx.Invites().MarkInviteClaimed(ctx, inv.ID, "alice", now)
		require.True(t, ok)
		return err
	})
	require.NoError(t, err)

	ok, err := st.Invites().MarkInviteClaimed(ctx, "i1", "bob", now)
	require.NoError(t, err)
	require.False(t, ok)
	ok, err = st.Invites().MarkInviteRevoked(ctx, "i1", now)
	require.NoError(t, err)
	require.False(t, ok)

	claimed, err := st.Invites().GetInviteByID(ctx, "i1")
	require.NoError(t, err)
	require.Equal(t, domain.InviteStateClaimed, claimed.State(now.Add(24*time.Hour)))
	require.Equal(t, "alice", *claimed.ClaimedBy)

	n, err := st.Invites().RevokeOpenProjectInvites(ctx, "p1", now)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	open, err = st.Invites().ListOpenInvitesByProject(ctx, "p1")
	require.NoError(t, err)
	require.Empty(t, open)

	n, err = st.Invites().DeleteDeadInvites(ctx, now.Add(time.Minute))
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	_, err = st.Invites().GetInviteByID(ctx, "i1")
	require.NoError(t, err)
	_, err = st.Invites().GetInviteByIDForUpdate(ctx, "i2")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestAuditRoundTrip(t *testing.T) {
	st := newTestStore(t)
	now := time.Now().UTC().Truncate(time.Second)
	seed(t, st, now)
	ctx := context.Background()

	require.NoError(t, st.AuditEvents().Append(ctx, domain.AuditEvent{
		ID: "01A", Action: domain.AuditShareGranted, ActorID: ptr("carol"), ProjectID: ptr("p1"),
		SubjectUserID: ptr("alice"), Detail: map[string]string{"role": "view"}, CreatedAt: now,
	}))
	require.NoError(t, st.AuditEvents().Append(ctx, domain.AuditEvent{
		ID: "01B", Action: domain.AuditProjectDeleted, ActorID: ptr("carol"), ProjectID: ptr("p1"), CreatedAt: now,
	}))

	events, err := st.AuditEvents().ListByProject(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, domain.AuditShareGranted, events[0].Action)
	require.Equal(t, "view", events[0].Detail["role"])
	require.Nil(t, events[1].Detail)
}

func TestWithTxRollback(t *testing.T) {
	st := newTestStore(t)
	now := time.Now().UTC().Truncate(time.Second)
	seed(t, st, now)
	ctx := context.Background()

	err := st.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Shares().DeleteShare(ctx, "p1", "carol"); err != nil {
			return err
		}
		_, err := tx.Tx(ctx)
		return err
	})
	require.Error(t, err)

	n, err := st.Shares().CountOwners(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, 1, n)
}
