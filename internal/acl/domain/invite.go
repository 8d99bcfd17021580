package domain

import "time"

// InviteState is derived from the stored timestamps and the clock; only
// Claimed and Revoked are stored transitions.
type InviteState string

const (
	InviteStatePending InviteState = "pending"
	InviteStateClaimed InviteState = "claimed"
	InviteStateRevoked InviteState = "revoked"
	InviteStateExpired InviteState = "expired"
)

// AccountInvite is a single-use, time-bounded credential binding an email to
// an optional project grant. The raw token is never stored.
type AccountInvite struct {
	ID          string
	TokenHash   string
	TokenPrefix string // non-secret, for audit display
	Email       string // normalised lowercase
	InvitedBy   string
	ProjectID   *string
	Role        *Role // set iff ProjectID is set
	ClaimedBy   *string
	ClaimedAt   *time.Time
	ExpiresAt   time.Time
	RevokedAt   *time.Time
	CreatedAt   time.Time
}

// State evaluates the invite at now. Stored terminal transitions win over
// passive expiry: a claimed invite stays claimed after its horizon passes.
func (i *AccountInvite) State(now time.Time) InviteState {
	switch {
	case i.ClaimedAt != nil:
		return InviteStateClaimed
	case i.RevokedAt != nil:
		return InviteStateRevoked
	case !now.Before(i.ExpiresAt):
		return InviteStateExpired
	default:
		return InviteStatePending
	}
}

// IsPending reports whether the invite can still be claimed or revoked.
func (i *AccountInvite) IsPending(now time.Time) bool {
	return i.State(now) == InviteStatePending
}

// HasProjectGrant reports whether claiming materialises a share.
func (i *AccountInvite) HasProjectGrant() bool {
	return i.ProjectID != nil && i.Role != nil
}
