package service

import "errors"

// Errors surfaced to callers. Storage errors are translated into these
// before leaving the package.
var (
	ErrNotAuthorized          = errors.New("not authorized")
	ErrNotFound               = errors.New("not found")
	ErrLastOwnerViolation     = errors.New("project must keep at least one owner")
	ErrInviteExpired          = errors.New("invite has expired")
	ErrInviteRevoked          = errors.New("invite has been revoked")
	ErrInviteAlreadyClaimed   = errors.New("invite has already been claimed")
	ErrEmailMismatch          = errors.New("account email does not match invite")
	ErrAlreadyTerminal        = errors.New("invite is no longer pending")
	ErrInvalidRequest         = errors.New("invalid request")
	ErrTransientStoreConflict = errors.New("transient store conflict, retry later")
	ErrBackfillValidation     = errors.New("backfill validation failed")
)
