package sqlite

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/projectacl/internal/acl/store"
	"github.com/aussiebroadwan/projectacl/internal/acl/store/drivers/sqlrepo"
)

// txStore binds the shared repositories to one BEGIN IMMEDIATE transaction.
type txStore struct {
	*sqlrepo.Repos

	tx *sql.Tx
}

func newTx(tx *sql.Tx) *txStore {
	return &txStore{Repos: sqlrepo.New(tx, dialect), tx: tx}
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

// Close and Ping act on the pool, which a transaction does not own.
func (t *txStore) Close() error                   { return nil }
func (t *txStore) Ping(ctx context.Context) error { return nil }

// Nesting would deadlock on the single sqlite connection.
func (t *txStore) Tx(ctx context.Context) (store.Tx, error) { return nil, sql.ErrTxDone }

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

func (t *txStore) ApplyMigrations() error { return nil }
