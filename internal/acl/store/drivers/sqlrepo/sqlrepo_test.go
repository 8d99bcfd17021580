package sqlrepo

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/aussiebroadwan/projectacl/internal/acl/store"
	"github.com/stretchr/testify/require"
)

func TestRebind(t *testing.T) {
	t.Parallel()

	q := `SELECT id FROM project_shares WHERE project_id = ? AND user_id = ?`

	require.Equal(t, q, Dialect{}.Rebind(q))
	require.Equal(t,
		`SELECT id FROM project_shares WHERE project_id = $1 AND user_id = $2`,
		Dialect{Dollar: true}.Rebind(q))
	require.Equal(t, `SELECT 1`, Dialect{Dollar: true}.Rebind(`SELECT 1`))
}

func TestMapErr(t *testing.T) {
	t.Parallel()

	errDriver := errors.New("driver says no")
	d := Dialect{Classify: func(err error) error {
		if errors.Is(err, errDriver) {
			return store.ErrConflict
		}
		return err
	}}

	require.NoError(t, d.mapErr(nil))
	require.ErrorIs(t, d.mapErr(sql.ErrNoRows), store.ErrNotFound)
	require.ErrorIs(t, d.mapErr(errDriver), store.ErrConflict)

	other := errors.New("other")
	require.Equal(t, other, d.mapErr(other))
	require.Equal(t, other, Dialect{}.mapErr(other))
}

func TestNullHelpers(t *testing.T) {
	t.Parallel()

	require.False(t, nullString(nil).Valid)
	require.Nil(t, stringPtr(sql.NullString{}))

	s := "u1"
	ns := nullString(&s)
	require.True(t, ns.Valid)
	require.Equal(t, "u1", *stringPtr(ns))

	require.False(t, nullTime(nil).Valid)
	require.Nil(t, timePtr(sql.NullTime{}))
}
