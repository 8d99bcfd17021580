// Package sqlrepo holds the ACL repositories shared by the database/sql
// drivers. Each driver supplies a Dialect describing its placeholders, row
// locking and error classification.
package sqlrepo

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/projectacl/internal/acl/store"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Dialect struct {
	// Dollar placeholders ($1, $2, ...) instead of '?'.
	Dollar bool

	// ForUpdate is appended to locking selects. Empty for drivers that
	// serialise writers at BEGIN.
	ForUpdate string

	// Classify maps driver errors onto store.ErrAlreadyExists and
	// store.ErrConflict. Unrecognised errors are returned unchanged.
	Classify func(error) error
}

// Rebind rewrites '?' placeholders for the dialect. Queries in this package
// never contain literal question marks.
func (d Dialect) Rebind(q string) string {
	if !d.Dollar {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}

func (d Dialect) mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if d.Classify != nil {
		return d.Classify(err)
	}
	return err
}

// Repos bundles the repositories bound to one DBTX.
type Repos struct {
	db DBTX
	d  Dialect
}

func New(db DBTX, d Dialect) *Repos { return &Repos{db: db, d: d} }

func (r *Repos) Users() store.Users             { return &usersRepo{r} }
func (r *Repos) Projects() store.Projects       { return &projectsRepo{r} }
func (r *Repos) Shares() store.Shares           { return &sharesRepo{r} }
func (r *Repos) Invites() store.Invites         { return &invitesRepo{r} }
func (r *Repos) AuditEvents() store.AuditEvents { return &auditRepo{r} }
func (r *Repos) Legacy() store.Legacy           { return &legacyRepo{r} }

func (r *Repos) exec(ctx context.Context, q string, args ...any) (sql.Result, error) {
	res, err := r.db.ExecContext(ctx, r.d.Rebind(q), args...)
	return res, r.d.mapErr(err)
}

func (r *Repos) queryRow(ctx context.Context, q string, args ...any) *sql.Row {
	return r.db.QueryRowContext(ctx, r.d.Rebind(q), args...)
}

// queryAll runs q and hands every row to scan. Rows are always drained and
// closed before returning so the connection is free for the next statement.
func (r *Repos) queryAll(ctx context.Context, q string, scan func(*sql.Rows) error, args ...any) error {
	rows, err := r.db.QueryContext(ctx, r.d.Rebind(q), args...)
	if err != nil {
		return r.d.mapErr(err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return r.d.mapErr(rows.Err())
}

func (r *Repos) affected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, r.d.mapErr(err)
	}
	return n, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	v := nt.Time.UTC()
	return &v
}
