// Package jwtx verifies the access tokens minted by the auth service. The
// ACL service never signs tokens; it only needs the subject.
package jwtx

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the subset of the access token the ACL service reads.
type Claims struct {
	jwt.RegisteredClaims

	Scopes   []string `json:"scopes,omitempty"`
	Username string   `json:"username,omitempty"`
}

// UserID is the authenticated principal.
func (c *Claims) UserID() string { return c.Subject }
