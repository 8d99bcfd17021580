package domain

import (
	"net/mail"
	"strings"
	"time"
)

// User is the external identity the ACL refers to. Only the fields the
// resolver, invites and backfill need are modelled.
type User struct {
	ID           string
	Email        string  // unique, normalised lowercase
	PasswordHash *string // argon2 encoded; nil when the account has no password
	LegacyTeamID *string // pre-ACL single-team membership, read only by backfill and shadow reads
	Active       bool
	CreatedAt    time.Time
}

// HasPassword reports whether a password credential exists.
func (u *User) HasPassword() bool { return u.PasswordHash != nil && *u.PasswordHash != "" }

// NormalizeEmail is the single canonical form used for storage and matching.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether email, once normalised, is a bare address
// (no display name, exactly one '@', non-empty local and domain parts).
func ValidEmail(email string) bool {
	email = NormalizeEmail(email)
	if email == "" || len(email) > 254 {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return false
	}
	local, domain, ok := strings.Cut(email, "@")
	return ok && local != "" && domain != "" && !strings.Contains(domain, "@")
}
