package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/projectacl/internal/acl/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrConflict marks a lock timeout, deadlock or serialization failure.
	// The whole transaction may be retried.
	ErrConflict = errors.New("store: transient conflict")
)

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres) implement it. Repositories hang off the Store so a Tx-scoped
// Store exposes the same repositories bound to the transaction, and nobody
// can accidentally open a transaction inside a transaction.
type Store interface {
	Users() Users
	Projects() Projects
	Shares() Shares
	Invites() Invites
	AuditEvents() AuditEvents
	Legacy() Legacy

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction: rolled back if fn returns an error,
	// committed otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail expects an already normalised email.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	CreateUser(ctx context.Context, u domain.User) error
}

type Projects interface {
	// GetProjectByID returns the project including soft-deleted ones.
	GetProjectByID(ctx context.Context, id string) (domain.Project, error)

	CreateProject(ctx context.Context, p domain.Project) error

	// ListActiveProjectIDs returns ids of non-deleted projects ordered by id.
	ListActiveProjectIDs(ctx context.Context) ([]string, error)

	// MarkProjectDeleted sets deleted_at. Returns ErrNotFound when the
	// project does not exist or is already deleted.
	MarkProjectDeleted(ctx context.Context, id string, at time.Time) error
}

type Shares interface {
	// GetShare returns the share for (project, user).
	GetShare(ctx context.Context, projectID, userID string) (domain.ProjectShare, error)

	// GetShareForUpdate is the locking variant every read-then-write path
	// uses, after LockOwners, so owner rows are always locked first.
	GetShareForUpdate(ctx context.Context, projectID, userID string) (domain.ProjectShare, error)

	// GetActiveRole returns the role for (project, user) when the project is
	// not deleted. This is the resolver's only query.
	GetActiveRole(ctx context.Context, projectID, userID string) (domain.Role, error)

	// InsertShare fails with ErrAlreadyExists on a (project, user) clash.
	InsertShare(ctx context.Context, s domain.ProjectShare) error

	// UpdateShareRole sets role, granted_by and updated_at.
	UpdateShareRole(ctx context.Context, projectID, userID string, role domain.Role, grantedBy *string, at time.Time) error

	DeleteShare(ctx context.Context, projectID, userID string) error

	// DeleteProjectShares removes every share of a project (project deletion only).
	DeleteProjectShares(ctx context.Context, projectID string) (int64, error)

	// LockOwners returns the user ids holding Owner on the project and, on
	// drivers with row locks, locks those rows until the transaction ends.
	LockOwners(ctx context.Context, projectID string) ([]string, error)

	CountOwners(ctx context.Context, projectID string) (int, error)

	ListCollaborators(ctx context.Context, projectID string) ([]domain.Collaborator, error)
	ListSharedWithUser(ctx context.Context, userID string) ([]domain.SharedProject, error)
}

type Invites interface {
	CreateInvite(ctx context.Context, inv domain.AccountInvite) error

	GetInviteByID(ctx context.Context, id string) (domain.AccountInvite, error)

	// GetInviteByTokenHashForUpdate looks the invite up by fingerprint and
	// locks the row for the rest of the transaction.
	GetInviteByTokenHashForUpdate(ctx context.Context, hash string) (domain.AccountInvite, error)

	// GetInviteByIDForUpdate is the locking variant used by revocation.
	GetInviteByIDForUpdate(ctx context.Context, id string) (domain.AccountInvite, error)

	// MarkInviteClaimed is a compare-and-set: it only transitions an invite
	// whose claimed_at and revoked_at are still null. Returns false when
	// another transaction got there first.
	MarkInviteClaimed(ctx context.Context, id, userID string, at time.Time) (bool, error)

	// MarkInviteRevoked is the compare-and-set counterpart for revocation.
	MarkInviteRevoked(ctx context.Context, id string, at time.Time) (bool, error)

	// RevokeOpenProjectInvites revokes every unclaimed, unrevoked invite for a project.
	RevokeOpenProjectInvites(ctx context.Context, projectID string, at time.Time) (int64, error)

	// ListOpenInvitesByProject returns unclaimed, unrevoked invites; expiry is
	// left to the caller so the clock has one source.
	ListOpenInvitesByProject(ctx context.Context, projectID string) ([]domain.AccountInvite, error)
	ListOpenInvitesByEmail(ctx context.Context, email string) ([]domain.AccountInvite, error)

	// DeleteDeadInvites removes invites that expired or were revoked before
	// cutoff and were never claimed.
	DeleteDeadInvites(ctx context.Context, cutoff time.Time) (int64, error)
}

type AuditEvents interface {
	Append(ctx context.Context, e domain.AuditEvent) error
	ListByProject(ctx context.Context, projectID string) ([]domain.AuditEvent, error)
}

// Legacy exposes the pre-ACL single-team model. Only the backfill and the
// shadow comparison read it; authorization never does.
type Legacy interface {
	// ListTeamMembers returns the users whose legacy team is teamID, ordered
	// by created_at then id.
	ListTeamMembers(ctx context.Context, teamID string) ([]domain.User, error)
}
