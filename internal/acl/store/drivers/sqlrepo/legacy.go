package sqlrepo

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/projectacl/internal/acl/domain"
)

type legacyRepo struct{ *Repos }

func (r *legacyRepo) ListTeamMembers(ctx context.Context, teamID string) ([]domain.User, error) {
	var out []domain.User
	err := r.queryAll(ctx,
		`SELECT `+userColumns+` FROM users WHERE legacy_team_id = ? ORDER BY created_at, id`,
		func(rows *sql.Rows) error {
			u, err := scanUser(rows)
			if err != nil {
				return err
			}
			out = append(out, u)
			return nil
		}, teamID)
	return out, err
}
