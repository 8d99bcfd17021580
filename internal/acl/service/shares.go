package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/projectacl/internal/acl/domain"
	"github.com/aussiebroadwan/projectacl/internal/acl/store"
	"github.com/aussiebroadwan/projectacl/pkg/idx"
	"github.com/aussiebroadwan/projectacl/pkg/slogx"
)

// ShareService is the only writer of project_shares.
type ShareService struct {
	Deps
}

// GrantOrUpdateShare upserts the (project, user) share. An existing row with
// a different role has its role, granted_by and updated_at replaced. When the
// row already holds role nothing is written: granted_by and updated_at keep
// the values of the grant that set the role, and no audit event is recorded.
// Demoting an existing owner through this path is subject to the last-owner
// check.
func (s *ShareService) GrantOrUpdateShare(
	ctx context.Context,
	projectID, userID string,
	role domain.Role,
	grantedBy string,
) (domain.ProjectShare, error) {
	log := slogx.FromContext(ctx)

	if projectID == "" || userID == "" || !role.Valid() {
		return domain.ProjectShare{}, ErrInvalidRequest
	}

	var share domain.ProjectShare
	err := s.inTx(ctx, "grant share", func(tx store.Tx) error {
		var err error
		share, err = s.GrantOrUpdateShareTx(ctx, tx, projectID, userID, role, grantedBy)
		return err
	})
	s.Metrics.mutation("grant_share", err)
	if err != nil {
		log.Warn("grant share failed",
			slog.String("project_id", projectID),
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
		return domain.ProjectShare{}, err
	}

	log.Info("share granted",
		slog.String("project_id", projectID),
		slog.String("user_id", userID),
		slog.String("role", role.String()),
		slog.String("granted_by", grantedBy),
	)
	return share, nil
}

// GrantOrUpdateShareTx is GrantOrUpdateShare inside the caller's transaction.
func (s *ShareService) GrantOrUpdateShareTx(
	ctx context.Context,
	tx store.Tx,
	projectID, userID string,
	role domain.Role,
	grantedBy string,
) (domain.ProjectShare, error) {
	if !role.Valid() {
		return domain.ProjectShare{}, ErrInvalidRequest
	}
	if _, err := requireActiveProject(ctx, tx, projectID); err != nil {
		return domain.ProjectShare{}, err
	}
	if _, err := tx.Users().GetUserByID(ctx, userID); err != nil {
		return domain.ProjectShare{}, storeErr("load grantee", err)
	}

	now := s.now()
	existing, err := lockShare(ctx, tx, projectID, userID)
	switch {
	case isNotFound(err):
		return s.insertShare(ctx, tx, projectID, userID, role, grantedBy, now, nil)
	case err != nil:
		return domain.ProjectShare{}, storeErr("load share", err)
	case existing.Role == role:
		return existing, nil
	}
	return s.applyRoleChange(ctx, tx, existing, role, grantedBy, now)
}

// EnsureShareTx inserts the share only when (project, user) has none. An
// existing row is left exactly as it is, whatever its role.
func (s *ShareService) EnsureShareTx(
	ctx context.Context,
	tx store.Tx,
	projectID, userID string,
	role domain.Role,
	grantedBy string,
	detail map[string]string,
) (bool, error) {
	_, err := tx.Shares().GetShare(ctx, projectID, userID)
	if err == nil {
		return false, nil
	}
	if !isNotFound(err) {
		return false, storeErr("load share", err)
	}
	if _, err := s.insertShare(ctx, tx, projectID, userID, role, grantedBy, s.now(), detail); err != nil {
		return false, err
	}
	return true, nil
}

// ChangeRole moves an existing share to newRole.
func (s *ShareService) ChangeRole(
	ctx context.Context,
	projectID, userID string,
	newRole domain.Role,
	actor string,
) (domain.ProjectShare, error) {
	log := slogx.FromContext(ctx)

	if projectID == "" || userID == "" || !newRole.Valid() {
		return domain.ProjectShare{}, ErrInvalidRequest
	}

	var share domain.ProjectShare
	err := s.inTx(ctx, "change role", func(tx store.Tx) error {
		if _, err := requireActiveProject(ctx, tx, projectID); err != nil {
			return err
		}
		existing, err := lockShare(ctx, tx, projectID, userID)
		if err != nil {
			return storeErr("load share", err)
		}
		if existing.Role == newRole {
			share = existing
			return nil
		}
		share, err = s.applyRoleChange(ctx, tx, existing, newRole, actor, s.now())
		return err
	})
	s.Metrics.mutation("change_role", err)
	if err != nil {
		log.Warn("change role failed",
			slog.String("project_id", projectID),
			slog.String("user_id", userID),
			slog.String("role", newRole.String()),
			slog.Any("error", err),
		)
		return domain.ProjectShare{}, err
	}

	log.Info("share role changed",
		slog.String("project_id", projectID),
		slog.String("user_id", userID),
		slog.String("role", newRole.String()),
		slog.String("actor", actor),
	)
	return share, nil
}

// RevokeShare deletes the (project, user) share. The last owner cannot be
// revoked; deleting the project is the only way to drop it.
func (s *ShareService) RevokeShare(ctx context.Context, projectID, userID, actor string) error {
	log := slogx.FromContext(ctx)

	if projectID == "" || userID == "" {
		return ErrInvalidRequest
	}

	err := s.inTx(ctx, "revoke share", func(tx store.Tx) error {
		if _, err := requireActiveProject(ctx, tx, projectID); err != nil {
			return err
		}
		existing, err := lockShare(ctx, tx, projectID, userID)
		if err != nil {
			return storeErr("load share", err)
		}
		if existing.Role.IsOwner() {
			if err := requireOtherOwner(ctx, tx, projectID, userID); err != nil {
				return err
			}
		}
		if err := tx.Shares().DeleteShare(ctx, projectID, userID); err != nil {
			return storeErr("delete share", err)
		}

		now := s.now()
		return appendAudit(ctx, tx, domain.AuditEvent{
			Action:        domain.AuditShareRevoked,
			ActorID:       optional(actor),
			ProjectID:     &projectID,
			SubjectUserID: &userID,
			Detail:        map[string]string{"role": existing.Role.String()},
			CreatedAt:     now,
		})
	})
	s.Metrics.mutation("revoke_share", err)
	if err != nil {
		log.Warn("revoke share failed",
			slog.String("project_id", projectID),
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
		return err
	}

	log.Info("share revoked",
		slog.String("project_id", projectID),
		slog.String("user_id", userID),
		slog.String("actor", actor),
	)
	return nil
}

func (s *ShareService) ListCollaborators(ctx context.Context, projectID string) ([]domain.Collaborator, error) {
	out, err := s.Store.Shares().ListCollaborators(ctx, projectID)
	if err != nil {
		return nil, storeErr("list collaborators", err)
	}
	return out, nil
}

// ListPendingInvites returns the project's invites that are still claimable.
func (s *ShareService) ListPendingInvites(ctx context.Context, projectID string) ([]domain.AccountInvite, error) {
	open, err := s.Store.Invites().ListOpenInvitesByProject(ctx, projectID)
	if err != nil {
		return nil, storeErr("list invites", err)
	}
	return pendingOnly(open, s.now()), nil
}

// ListSharedWithMe lists the non-deleted projects shared with userID.
func (s *ShareService) ListSharedWithMe(ctx context.Context, userID string) ([]domain.SharedProject, error) {
	out, err := s.Store.Shares().ListSharedWithUser(ctx, userID)
	if err != nil {
		return nil, storeErr("list shared projects", err)
	}
	return out, nil
}

func (s *ShareService) insertShare(
	ctx context.Context,
	tx store.Tx,
	projectID, userID string,
	role domain.Role,
	grantedBy string,
	now time.Time,
	detail map[string]string,
) (domain.ProjectShare, error) {
	share := domain.ProjectShare{
		ID:        idx.NewAt(now).String(),
		ProjectID: projectID,
		UserID:    userID,
		Role:      role,
		GrantedBy: optional(grantedBy),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.Shares().InsertShare(ctx, share); err != nil {
		// A concurrent grant inserted the row first; a retry takes the
		// update path instead.
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.ProjectShare{}, fmt.Errorf("insert share: %w", store.ErrConflict)
		}
		return domain.ProjectShare{}, storeErr("insert share", err)
	}

	d := map[string]string{"role": role.String()}
	for k, v := range detail {
		d[k] = v
	}
	err := appendAudit(ctx, tx, domain.AuditEvent{
		Action:        domain.AuditShareGranted,
		ActorID:       optional(grantedBy),
		ProjectID:     &projectID,
		SubjectUserID: &userID,
		Detail:        d,
		CreatedAt:     now,
	})
	return share, err
}

func (s *ShareService) applyRoleChange(
	ctx context.Context,
	tx store.Tx,
	existing domain.ProjectShare,
	role domain.Role,
	actor string,
	now time.Time,
) (domain.ProjectShare, error) {
	if existing.Role.IsOwner() && !role.IsOwner() {
		if err := requireOtherOwner(ctx, tx, existing.ProjectID, existing.UserID); err != nil {
			return domain.ProjectShare{}, err
		}
	}

	if err := tx.Shares().UpdateShareRole(ctx, existing.ProjectID, existing.UserID, role, optional(actor), now); err != nil {
		return domain.ProjectShare{}, storeErr("update share", err)
	}

	err := appendAudit(ctx, tx, domain.AuditEvent{
		Action:        domain.AuditShareChanged,
		ActorID:       optional(actor),
		ProjectID:     &existing.ProjectID,
		SubjectUserID: &existing.UserID,
		Detail:        map[string]string{"from": existing.Role.String(), "to": role.String()},
		CreatedAt:     now,
	})
	if err != nil {
		return domain.ProjectShare{}, err
	}

	existing.Role = role
	existing.GrantedBy = optional(actor)
	existing.UpdatedAt = now
	return existing, nil
}

// lockShare locks the project's owner rows and then the (project, user)
// share, and returns the share as it stands under those locks. Every path
// that reads a share before rewriting it goes through here so the locks
// are always taken in the same order.
func lockShare(ctx context.Context, tx store.Tx, projectID, userID string) (domain.ProjectShare, error) {
	if _, err := tx.Shares().LockOwners(ctx, projectID); err != nil {
		return domain.ProjectShare{}, err
	}
	return tx.Shares().GetShareForUpdate(ctx, projectID, userID)
}

// requireOtherOwner locks the project's owner rows and fails unless an owner
// other than userID holds one. The locks are held until the transaction
// ends, so a concurrent demotion of that other owner waits and then sees
// userID gone.
func requireOtherOwner(ctx context.Context, tx store.Tx, projectID, userID string) error {
	owners, err := tx.Shares().LockOwners(ctx, projectID)
	if err != nil {
		return storeErr("lock owners", err)
	}
	for _, o := range owners {
		if o != userID {
			return nil
		}
	}
	return ErrLastOwnerViolation
}

func pendingOnly(invites []domain.AccountInvite, now time.Time) []domain.AccountInvite {
	out := make([]domain.AccountInvite, 0, len(invites))
	for _, inv := range invites {
		if inv.IsPending(now) {
			out = append(out, inv)
		}
	}
	return out
}
