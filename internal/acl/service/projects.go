package service

import (
	"context"
	"log/slog"
	"slices"
	"strconv"

	"github.com/aussiebroadwan/projectacl/internal/acl/domain"
	"github.com/aussiebroadwan/projectacl/internal/acl/store"
	"github.com/aussiebroadwan/projectacl/pkg/slogx"
)

// TransferOwnership makes toUserID an owner and demotes fromUserID to
// Collaborate in one transaction. fromUserID must currently own the project.
func (s *ShareService) TransferOwnership(ctx context.Context, projectID, fromUserID, toUserID, actor string) error {
	log := slogx.FromContext(ctx)

	if projectID == "" || fromUserID == "" || toUserID == "" || fromUserID == toUserID {
		return ErrInvalidRequest
	}

	err := s.inTx(ctx, "transfer ownership", func(tx store.Tx) error {
		if _, err := requireActiveProject(ctx, tx, projectID); err != nil {
			return err
		}

		owners, err := tx.Shares().LockOwners(ctx, projectID)
		if err != nil {
			return storeErr("lock owners", err)
		}
		if !slices.Contains(owners, fromUserID) {
			return ErrNotAuthorized
		}

		if _, err := s.GrantOrUpdateShareTx(ctx, tx, projectID, toUserID, domain.RoleOwner, actor); err != nil {
			return err
		}

		from, err := tx.Shares().GetShareForUpdate(ctx, projectID, fromUserID)
		if err != nil {
			return storeErr("load share", err)
		}
		if _, err := s.applyRoleChange(ctx, tx, from, domain.RoleCollaborate, actor, s.now()); err != nil {
			return err
		}

		return appendAudit(ctx, tx, domain.AuditEvent{
			Action:        domain.AuditOwnershipTransferred,
			ActorID:       optional(actor),
			ProjectID:     &projectID,
			SubjectUserID: &toUserID,
			Detail:        map[string]string{"from": fromUserID, "to": toUserID},
			CreatedAt:     s.now(),
		})
	})
	s.Metrics.mutation("transfer_ownership", err)
	if err != nil {
		log.Warn("ownership transfer failed",
			slog.String("project_id", projectID),
			slog.String("from", fromUserID),
			slog.String("to", toUserID),
			slog.Any("error", err),
		)
		return err
	}

	log.Info("ownership transferred",
		slog.String("project_id", projectID),
		slog.String("from", fromUserID),
		slog.String("to", toUserID),
	)
	return nil
}

// DeleteProject soft-deletes the project, removes every share and revokes
// its open invites. This is the one transaction allowed to leave a project
// without an owner.
func (s *ShareService) DeleteProject(ctx context.Context, projectID, actor string) error {
	log := slogx.FromContext(ctx)

	if projectID == "" {
		return ErrInvalidRequest
	}

	var removed, revoked int64
	err := s.inTx(ctx, "delete project", func(tx store.Tx) error {
		if _, err := requireActiveProject(ctx, tx, projectID); err != nil {
			return err
		}
		if _, err := tx.Shares().LockOwners(ctx, projectID); err != nil {
			return storeErr("lock owners", err)
		}

		now := s.now()
		var err error
		if removed, err = tx.Shares().DeleteProjectShares(ctx, projectID); err != nil {
			return storeErr("delete shares", err)
		}
		if revoked, err = tx.Invites().RevokeOpenProjectInvites(ctx, projectID, now); err != nil {
			return storeErr("revoke invites", err)
		}
		if err := tx.Projects().MarkProjectDeleted(ctx, projectID, now); err != nil {
			return storeErr("mark project deleted", err)
		}

		return appendAudit(ctx, tx, domain.AuditEvent{
			Action:    domain.AuditProjectDeleted,
			ActorID:   optional(actor),
			ProjectID: &projectID,
			Detail: map[string]string{
				"shares_removed":  strconv.FormatInt(removed, 10),
				"invites_revoked": strconv.FormatInt(revoked, 10),
			},
			CreatedAt: now,
		})
	})
	s.Metrics.mutation("delete_project", err)
	if err != nil {
		log.Warn("project deletion failed",
			slog.String("project_id", projectID),
			slog.Any("error", err),
		)
		return err
	}

	log.Info("project deleted",
		slog.String("project_id", projectID),
		slog.String("actor", actor),
		slog.Int64("shares_removed", removed),
		slog.Int64("invites_revoked", revoked),
	)
	return nil
}
