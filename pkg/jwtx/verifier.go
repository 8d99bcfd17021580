package jwtx

import (
	"errors"
	"time"
)

// Verifier validates a bearer token and returns its claims.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// VerifyOptions are the expectations every accepted token must meet.
type VerifyOptions struct {
	// Issuer the token must carry. Empty means "don't care".
	Issuer string

	// Audience the token must contain. Empty means "don't care".
	Audience string

	// Leeway absorbs clock skew on exp and nbf.
	Leeway time.Duration
}

var (
	ErrMalformed  = errors.New("jwtx: malformed token")
	ErrUnknownKID = errors.New("jwtx: unknown kid")
	ErrInvalid    = errors.New("jwtx: invalid token")
	ErrNoSubject  = errors.New("jwtx: token has no subject")
)
