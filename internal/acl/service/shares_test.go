package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/projectacl/internal/acl/domain"
)

func TestLastOwnerCannotLeave(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	ctx := context.Background()

	err := env.shares.RevokeShare(ctx, "p1", "olivia", "olivia")
	require.ErrorIs(t, err, ErrLastOwnerViolation)

	_, err = env.shares.ChangeRole(ctx, "p1", "olivia", domain.RoleCollaborate, "olivia")
	require.ErrorIs(t, err, ErrLastOwnerViolation)

	_, err = env.shares.GrantOrUpdateShare(ctx, "p1", "olivia", domain.RoleView, "olivia")
	require.ErrorIs(t, err, ErrLastOwnerViolation)

	role, ok := env.role(t, "olivia", "p1")
	require.True(t, ok)
	require.Equal(t, domain.RoleOwner, role)

	// A second owner lifts the restriction.
	_, err = env.shares.GrantOrUpdateShare(ctx, "p1", "bob", domain.RoleOwner, "olivia")
	require.NoError(t, err)

	require.NoError(t, env.shares.RevokeShare(ctx, "p1", "olivia", "bob"))
	_, ok = env.role(t, "olivia", "p1")
	require.False(t, ok)

	n, err := env.store.Shares().CountOwners(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	// bob is now the last owner again.
	_, err = env.shares.ChangeRole(ctx, "p1", "bob", domain.RoleView, "bob")
	require.ErrorIs(t, err, ErrLastOwnerViolation)
}

func TestChangeRoleWithSecondOwner(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	env.addShare(t, "p1", "bob", domain.RoleOwner)
	ctx := context.Background()

	share, err := env.shares.ChangeRole(ctx, "p1", "olivia", domain.RoleCollaborate, "bob")
	require.NoError(t, err)
	require.Equal(t, domain.RoleCollaborate, share.Role)
	require.Equal(t, "bob", *share.GrantedBy)

	require.Contains(t, env.auditActions(t, "p1"), domain.AuditShareChanged)
}

func TestGrantOrUpdateShareIsUpsert(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	env.advance(time.Minute)
	ctx := context.Background()

	first, err := env.shares.GrantOrUpdateShare(ctx, "p1", "bob", domain.RoleOperate, "olivia")
	require.NoError(t, err)

	again, err := env.shares.GrantOrUpdateShare(ctx, "p1", "bob", domain.RoleOperate, "olivia")
	require.NoError(t, err)
	require.Equal(t, first.ID, again.ID)

	updated, err := env.shares.GrantOrUpdateShare(ctx, "p1", "bob", domain.RoleCollaborate, "olivia")
	require.NoError(t, err)
	require.Equal(t, first.ID, updated.ID)
	require.Equal(t, domain.RoleCollaborate, updated.Role)

	collaborators, err := env.shares.ListCollaborators(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, collaborators, 2)
	require.Equal(t, "olivia", collaborators[0].UserID)
	require.Equal(t, "bob", collaborators[1].UserID)
	require.Equal(t, domain.RoleCollaborate, collaborators[1].Role)

	shared, err := env.shares.ListSharedWithMe(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, shared, 1)
	require.Equal(t, "p1", shared[0].ProjectID)
}

func TestGrantSameRoleLeavesShareUntouched(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	env.addShare(t, "p1", "bob", domain.RoleOwner)
	ctx := context.Background()

	first, err := env.shares.GrantOrUpdateShare(ctx, "p1", "mallory", domain.RoleOperate, "olivia")
	require.NoError(t, err)
	events := len(env.auditActions(t, "p1"))

	env.advance(time.Hour)
	again, err := env.shares.GrantOrUpdateShare(ctx, "p1", "mallory", domain.RoleOperate, "bob")
	require.NoError(t, err)
	require.True(t, first.UpdatedAt.Equal(again.UpdatedAt))
	require.Equal(t, "olivia", *again.GrantedBy)
	require.Len(t, env.auditActions(t, "p1"), events)

	stored, err := env.store.Shares().GetShare(ctx, "p1", "mallory")
	require.NoError(t, err)
	require.True(t, first.UpdatedAt.Equal(stored.UpdatedAt))
	require.Equal(t, "olivia", *stored.GrantedBy)
}

func TestShareErrors(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	ctx := context.Background()

	err := env.shares.RevokeShare(ctx, "p1", "bob", "olivia")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = env.shares.ChangeRole(ctx, "p1", "bob", domain.RoleView, "olivia")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = env.shares.GrantOrUpdateShare(ctx, "missing", "bob", domain.RoleView, "olivia")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = env.shares.GrantOrUpdateShare(ctx, "p1", "ghost", domain.RoleView, "olivia")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = env.shares.GrantOrUpdateShare(ctx, "p1", "bob", domain.Role(0), "olivia")
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestTransferOwnership(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	ctx := context.Background()

	err := env.shares.TransferOwnership(ctx, "p1", "bob", "mallory", "bob")
	require.ErrorIs(t, err, ErrNotAuthorized)

	require.NoError(t, env.shares.TransferOwnership(ctx, "p1", "olivia", "bob", "olivia"))

	role, _ := env.role(t, "bob", "p1")
	require.Equal(t, domain.RoleOwner, role)
	role, _ = env.role(t, "olivia", "p1")
	require.Equal(t, domain.RoleCollaborate, role)

	require.Contains(t, env.auditActions(t, "p1"), domain.AuditOwnershipTransferred)
}

func TestDeleteProject(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	env.addShare(t, "p1", "bob", domain.RoleView)
	ctx := context.Background()

	issued, err := env.invites.CreateInvite(ctx, CreateInviteParams{
		Email: "new@example.com", InvitedBy: "olivia", ProjectID: "p1", Role: ptr(domain.RoleView),
	})
	require.NoError(t, err)

	require.NoError(t, env.shares.DeleteProject(ctx, "p1", "olivia"))

	_, ok := env.role(t, "olivia", "p1")
	require.False(t, ok)
	_, ok = env.role(t, "bob", "p1")
	require.False(t, ok)

	inv, err := env.invites.GetInvite(ctx, issued.Invite.ID)
	require.NoError(t, err)
	require.Equal(t, domain.InviteStateRevoked, inv.State(env.now))

	ids, err := env.store.Projects().ListActiveProjectIDs(ctx)
	require.NoError(t, err)
	require.NotContains(t, ids, "p1")

	require.Contains(t, env.auditActions(t, "p1"), domain.AuditProjectDeleted)

	err = env.shares.DeleteProject(ctx, "p1", "olivia")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = env.shares.GrantOrUpdateShare(ctx, "p1", "bob", domain.RoleView, "olivia")
	require.ErrorIs(t, err, ErrNotFound)
}
