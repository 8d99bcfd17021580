package sqlrepo

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/projectacl/internal/acl/domain"
)

type invitesRepo struct{ *Repos }

const inviteColumns = `id, token_hash, token_prefix, email, invited_by, project_id, role,
	claimed_by, claimed_at, expires_at, revoked_at, created_at`

func scanInvite(row interface{ Scan(...any) error }) (domain.AccountInvite, error) {
	var (
		inv       domain.AccountInvite
		projectID sql.NullString
		role      sql.NullString
		claimedBy sql.NullString
		claimedAt sql.NullTime
		revokedAt sql.NullTime
	)
	err := row.Scan(
		&inv.ID, &inv.TokenHash, &inv.TokenPrefix, &inv.Email, &inv.InvitedBy, &projectID, &role,
		&claimedBy, &claimedAt, &inv.ExpiresAt, &revokedAt, &inv.CreatedAt,
	)
	if err != nil {
		return domain.AccountInvite{}, err
	}
	inv.ProjectID = stringPtr(projectID)
	if role.Valid {
		parsed, err := domain.ParseRole(role.String)
		if err != nil {
			return domain.AccountInvite{}, err
		}
		inv.Role = &parsed
	}
	inv.ClaimedBy = stringPtr(claimedBy)
	inv.ClaimedAt = timePtr(claimedAt)
	inv.RevokedAt = timePtr(revokedAt)
	inv.ExpiresAt = inv.ExpiresAt.UTC()
	inv.CreatedAt = inv.CreatedAt.UTC()
	return inv, nil
}

func (r *invitesRepo) CreateInvite(ctx context.Context, inv domain.AccountInvite) error {
	var role sql.NullString
	if inv.Role != nil {
		role = sql.NullString{String: inv.Role.String(), Valid: true}
	}
	_, err := r.exec(ctx,
		`INSERT INTO account_invites (id, token_hash, token_prefix, email, invited_by, project_id, role,
			claimed_by, claimed_at, expires_at, revoked_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, NULL, NULL, ?, NULL, ?)`,
		inv.ID, inv.TokenHash, inv.TokenPrefix, inv.Email, inv.InvitedBy, nullString(inv.ProjectID), role,
		inv.ExpiresAt.UTC(), inv.CreatedAt.UTC(),
	)
	return err
}

func (r *invitesRepo) GetInviteByID(ctx context.Context, id string) (domain.AccountInvite, error) {
	inv, err := scanInvite(r.queryRow(ctx, `SELECT `+inviteColumns+` FROM account_invites WHERE id = ?`, id))
	return inv, r.d.mapErr(err)
}

func (r *invitesRepo) GetInviteByIDForUpdate(ctx context.Context, id string) (domain.AccountInvite, error) {
	inv, err := scanInvite(r.queryRow(ctx,
		`SELECT `+inviteColumns+` FROM account_invites WHERE id = ?`+r.d.ForUpdate, id))
	return inv, r.d.mapErr(err)
}

func (r *invitesRepo) GetInviteByTokenHashForUpdate(ctx context.Context, hash string) (domain.AccountInvite, error) {
	inv, err := scanInvite(r.queryRow(ctx,
		`SELECT `+inviteColumns+` FROM account_invites WHERE token_hash = ?`+r.d.ForUpdate, hash))
	return inv, r.d.mapErr(err)
}

func (r *invitesRepo) MarkInviteClaimed(ctx context.Context, id, userID string, at time.Time) (bool, error) {
	res, err := r.exec(ctx,
		`UPDATE account_invites SET claimed_at = ?, claimed_by = ?
		 WHERE id = ? AND claimed_at IS NULL AND revoked_at IS NULL`,
		at.UTC(), userID, id,
	)
	if err != nil {
		return false, err
	}
	n, err := r.affected(res)
	return n == 1, err
}

func (r *invitesRepo) MarkInviteRevoked(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.exec(ctx,
		`UPDATE account_invites SET revoked_at = ?
		 WHERE id = ? AND claimed_at IS NULL AND revoked_at IS NULL`,
		at.UTC(), id,
	)
	if err != nil {
		return false, err
	}
	n, err := r.affected(res)
	return n == 1, err
}

func (r *invitesRepo) RevokeOpenProjectInvites(ctx context.Context, projectID string, at time.Time) (int64, error) {
	res, err := r.exec(ctx,
		`UPDATE account_invites SET revoked_at = ?
		 WHERE project_id = ? AND claimed_at IS NULL AND revoked_at IS NULL`,
		at.UTC(), projectID,
	)
	if err != nil {
		return 0, err
	}
	return r.affected(res)
}

func (r *invitesRepo) listOpen(ctx context.Context, where string, arg string) ([]domain.AccountInvite, error) {
	var out []domain.AccountInvite
	err := r.queryAll(ctx,
		`SELECT `+inviteColumns+` FROM account_invites
		 WHERE `+where+` = ? AND claimed_at IS NULL AND revoked_at IS NULL
		 ORDER BY created_at, id`,
		func(rows *sql.Rows) error {
			inv, err := scanInvite(rows)
			if err != nil {
				return err
			}
			out = append(out, inv)
			return nil
		}, arg)
	return out, err
}

func (r *invitesRepo) ListOpenInvitesByProject(ctx context.Context, projectID string) ([]domain.AccountInvite, error) {
	return r.listOpen(ctx, "project_id", projectID)
}

func (r *invitesRepo) ListOpenInvitesByEmail(ctx context.Context, email string) ([]domain.AccountInvite, error) {
	return r.listOpen(ctx, "email", email)
}

func (r *invitesRepo) DeleteDeadInvites(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.exec(ctx,
		`DELETE FROM account_invites
		 WHERE claimed_at IS NULL AND (expires_at < ? OR revoked_at < ?)`,
		cutoff.UTC(), cutoff.UTC(),
	)
	if err != nil {
		return 0, err
	}
	return r.affected(res)
}
