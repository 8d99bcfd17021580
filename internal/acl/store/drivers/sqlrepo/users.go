package sqlrepo

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/projectacl/internal/acl/domain"
)

type usersRepo struct{ *Repos }

const userColumns = `id, email, password_hash, legacy_team_id, active, created_at`

func scanUser(row interface{ Scan(...any) error }) (domain.User, error) {
	var (
		u        domain.User
		password sql.NullString
		team     sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Email, &password, &team, &u.Active, &u.CreatedAt); err != nil {
		return domain.User{}, err
	}
	u.PasswordHash = stringPtr(password)
	u.LegacyTeamID = stringPtr(team)
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	u, err := scanUser(r.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	return u, r.d.mapErr(err)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	u, err := scanUser(r.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	return u, r.d.mapErr(err)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.exec(ctx,
		`INSERT INTO users (id, email, password_hash, legacy_team_id, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, domain.NormalizeEmail(u.Email), nullString(u.PasswordHash), nullString(u.LegacyTeamID),
		u.Active, u.CreatedAt.UTC(),
	)
	return err
}
