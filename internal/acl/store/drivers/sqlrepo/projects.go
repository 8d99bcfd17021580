package sqlrepo

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/projectacl/internal/acl/domain"
	"github.com/aussiebroadwan/projectacl/internal/acl/store"
)

type projectsRepo struct{ *Repos }

func (r *projectsRepo) GetProjectByID(ctx context.Context, id string) (domain.Project, error) {
	var (
		p         domain.Project
		createdBy sql.NullString
		team      sql.NullString
		deletedAt sql.NullTime
	)
	err := r.queryRow(ctx,
		`SELECT id, name, created_by, legacy_team_id, deleted_at, created_at FROM projects WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &createdBy, &team, &deletedAt, &p.CreatedAt)
	if err != nil {
		return domain.Project{}, r.d.mapErr(err)
	}
	p.CreatedBy = stringPtr(createdBy)
	p.LegacyTeamID = stringPtr(team)
	p.DeletedAt = timePtr(deletedAt)
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}

func (r *projectsRepo) CreateProject(ctx context.Context, p domain.Project) error {
	_, err := r.exec(ctx,
		`INSERT INTO projects (id, name, created_by, legacy_team_id, deleted_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, nullString(p.CreatedBy), nullString(p.LegacyTeamID), nullTime(p.DeletedAt), p.CreatedAt.UTC(),
	)
	return err
}

func (r *projectsRepo) ListActiveProjectIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.queryAll(ctx, `SELECT id FROM projects WHERE deleted_at IS NULL ORDER BY id`,
		func(rows *sql.Rows) error {
			var id string
			if err := rows.Scan(&id); err != nil {
				return err
			}
			ids = append(ids, id)
			return nil
		})
	return ids, err
}

func (r *projectsRepo) MarkProjectDeleted(ctx context.Context, id string, at time.Time) error {
	res, err := r.exec(ctx,
		`UPDATE projects SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, at.UTC(), id)
	if err != nil {
		return err
	}
	n, err := r.affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
