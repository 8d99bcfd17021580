package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRole is returned when a role value is outside the closed set.
var ErrInvalidRole = errors.New("domain: invalid role")

// Role is a per-project permission level. Higher values are strict
// supersets of the capabilities of lower ones, so "at least X" checks are a
// single integer comparison. The zero value is not a valid role.
type Role int

const (
	RoleView Role = iota + 1
	RoleOperate
	RoleCollaborate
	RoleOwner
)

var roleNames = map[Role]string{
	RoleView:        "view",
	RoleOperate:     "operate",
	RoleCollaborate: "collaborate",
	RoleOwner:       "owner",
}

// ParseRole converts the persisted/wire form of a role. Unknown values are
// an error rather than "no access".
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "view":
		return RoleView, nil
	case "operate":
		return RoleOperate, nil
	case "collaborate":
		return RoleCollaborate, nil
	case "owner":
		return RoleOwner, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
}

// Valid reports whether r is one of the four defined roles.
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// AtLeast reports whether r grants everything min grants.
func (r Role) AtLeast(min Role) bool {
	return r.Valid() && r >= min
}

// IsOwner is the equality gate used for sharing management, deletion and
// ownership transfer.
func (r Role) IsOwner() bool { return r == RoleOwner }

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("role(%d)", int(r))
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRole, int(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
