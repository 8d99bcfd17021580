package sqlrepo

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/projectacl/internal/acl/domain"
	"github.com/aussiebroadwan/projectacl/internal/acl/store"
)

type sharesRepo struct{ *Repos }

func (r *sharesRepo) GetShare(ctx context.Context, projectID, userID string) (domain.ProjectShare, error) {
	return r.getShare(ctx, projectID, userID, "")
}

func (r *sharesRepo) GetShareForUpdate(ctx context.Context, projectID, userID string) (domain.ProjectShare, error) {
	return r.getShare(ctx, projectID, userID, r.d.ForUpdate)
}

func (r *sharesRepo) getShare(ctx context.Context, projectID, userID, lock string) (domain.ProjectShare, error) {
	var (
		s         domain.ProjectShare
		role      string
		grantedBy sql.NullString
	)
	err := r.queryRow(ctx,
		`SELECT id, project_id, user_id, role, granted_by, created_at, updated_at
		 FROM project_shares WHERE project_id = ? AND user_id = ?`+lock,
		projectID, userID,
	).Scan(&s.ID, &s.ProjectID, &s.UserID, &role, &grantedBy, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return domain.ProjectShare{}, r.d.mapErr(err)
	}
	if s.Role, err = domain.ParseRole(role); err != nil {
		return domain.ProjectShare{}, err
	}
	s.GrantedBy = stringPtr(grantedBy)
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return s, nil
}

func (r *sharesRepo) GetActiveRole(ctx context.Context, projectID, userID string) (domain.Role, error) {
	var role string
	err := r.queryRow(ctx,
		`SELECT s.role FROM project_shares s
		 JOIN projects p ON p.id = s.project_id
		 WHERE s.project_id = ? AND s.user_id = ? AND p.deleted_at IS NULL`,
		projectID, userID,
	).Scan(&role)
	if err != nil {
		return 0, r.d.mapErr(err)
	}
	return domain.ParseRole(role)
}

func (r *sharesRepo) InsertShare(ctx context.Context, s domain.ProjectShare) error {
	_, err := r.exec(ctx,
		`INSERT INTO project_shares (id, project_id, user_id, role, granted_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.ProjectID, s.UserID, s.Role.String(), nullString(s.GrantedBy), s.CreatedAt.UTC(), s.UpdatedAt.UTC(),
	)
	return err
}

func (r *sharesRepo) UpdateShareRole(
	ctx context.Context,
	projectID, userID string,
	role domain.Role,
	grantedBy *string,
	at time.Time,
) error {
	res, err := r.exec(ctx,
		`UPDATE project_shares SET role = ?, granted_by = ?, updated_at = ?
		 WHERE project_id = ? AND user_id = ?`,
		role.String(), nullString(grantedBy), at.UTC(), projectID, userID,
	)
	if err != nil {
		return err
	}
	return r.requireOne(res)
}

func (r *sharesRepo) DeleteShare(ctx context.Context, projectID, userID string) error {
	res, err := r.exec(ctx,
		`DELETE FROM project_shares WHERE project_id = ? AND user_id = ?`, projectID, userID)
	if err != nil {
		return err
	}
	return r.requireOne(res)
}

func (r *sharesRepo) DeleteProjectShares(ctx context.Context, projectID string) (int64, error) {
	res, err := r.exec(ctx, `DELETE FROM project_shares WHERE project_id = ?`, projectID)
	if err != nil {
		return 0, err
	}
	return r.affected(res)
}

func (r *sharesRepo) LockOwners(ctx context.Context, projectID string) ([]string, error) {
	var owners []string
	err := r.queryAll(ctx,
		`SELECT user_id FROM project_shares WHERE project_id = ? AND role = 'owner' ORDER BY user_id`+r.d.ForUpdate,
		func(rows *sql.Rows) error {
			var id string
			if err := rows.Scan(&id); err != nil {
				return err
			}
			owners = append(owners, id)
			return nil
		}, projectID)
	return owners, err
}

func (r *sharesRepo) CountOwners(ctx context.Context, projectID string) (int, error) {
	var n int
	err := r.queryRow(ctx,
		`SELECT COUNT(*) FROM project_shares WHERE project_id = ? AND role = 'owner'`, projectID,
	).Scan(&n)
	return n, r.d.mapErr(err)
}

func (r *sharesRepo) ListCollaborators(ctx context.Context, projectID string) ([]domain.Collaborator, error) {
	var out []domain.Collaborator
	err := r.queryAll(ctx,
		`SELECT s.user_id, u.email, s.role, s.granted_by, s.created_at, s.updated_at
		 FROM project_shares s JOIN users u ON u.id = s.user_id
		 WHERE s.project_id = ?
		 ORDER BY s.created_at, s.user_id`,
		func(rows *sql.Rows) error {
			var (
				c         domain.Collaborator
				role      string
				grantedBy sql.NullString
			)
			if err := rows.Scan(&c.UserID, &c.Email, &role, &grantedBy, &c.CreatedAt, &c.UpdatedAt); err != nil {
				return err
			}
			parsed, err := domain.ParseRole(role)
			if err != nil {
				return err
			}
			c.Role = parsed
			c.GrantedBy = stringPtr(grantedBy)
			out = append(out, c)
			return nil
		}, projectID)
	return out, err
}

func (r *sharesRepo) ListSharedWithUser(ctx context.Context, userID string) ([]domain.SharedProject, error) {
	var out []domain.SharedProject
	err := r.queryAll(ctx,
		`SELECT p.id, p.name, s.role, s.created_at
		 FROM project_shares s JOIN projects p ON p.id = s.project_id
		 WHERE s.user_id = ? AND p.deleted_at IS NULL
		 ORDER BY s.created_at, p.id`,
		func(rows *sql.Rows) error {
			var (
				sp   domain.SharedProject
				role string
			)
			if err := rows.Scan(&sp.ProjectID, &sp.Name, &role, &sp.SharedAt); err != nil {
				return err
			}
			parsed, err := domain.ParseRole(role)
			if err != nil {
				return err
			}
			sp.Role = parsed
			out = append(out, sp)
			return nil
		}, userID)
	return out, err
}

func (r *Repos) requireOne(res sql.Result) error {
	n, err := r.affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
