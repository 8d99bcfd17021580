package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/projectacl/internal/acl/store"
	"github.com/aussiebroadwan/projectacl/internal/acl/store/drivers/sqlrepo"
	"github.com/lib/pq"
)

// Options tunes the connection pool and lock waits.
type Options struct {
	MaxConns    int
	MinConns    int
	MaxLifetime time.Duration

	// LockTimeout bounds how long a statement waits for a row lock before
	// the transaction fails with store.ErrConflict. Zero leaves the server
	// default.
	LockTimeout time.Duration
}

type Store struct {
	*sqlrepo.Repos

	db   *sql.DB
	opts Options
}

func NewStore(dsn string, opts Options) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	if opts.MaxConns > 0 {
		db.SetMaxOpenConns(opts.MaxConns)
	}
	if opts.MinConns > 0 {
		db.SetMaxIdleConns(opts.MinConns)
	}
	if opts.MaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.MaxLifetime)
	}

	return NewStoreFromDB(db, opts), nil
}

// NewStoreFromDB wraps an existing pool. The Store takes ownership of db.
func NewStoreFromDB(db *sql.DB, opts Options) *Store {
	return &Store{
		Repos: sqlrepo.New(db, dialect),
		db:    db,
		opts:  opts,
	}
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Tx starts a READ COMMITTED transaction. Reads that precede a write lock
// their rows explicitly with FOR UPDATE.
func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, classify(err)
	}

	if s.opts.LockTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = %d", s.opts.LockTimeout.Milliseconds())
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return nil, classify(err)
		}
	}

	return newTx(tx), nil
}

// WithTx executes fn within a transaction, automatically handling commit/rollback.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return classify(tx.Commit())
}

var dialect = sqlrepo.Dialect{
	Dollar:    true,
	ForUpdate: " FOR UPDATE",
	Classify:  classify,
}

// SQLSTATE codes treated as retryable.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeUniqueViolation      = "23505"
)

func classify(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case codeUniqueViolation:
		return fmt.Errorf("%w: %v", store.ErrAlreadyExists, err)
	case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
		return fmt.Errorf("%w: %v", store.ErrConflict, err)
	}
	return err
}
