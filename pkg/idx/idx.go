// Package idx issues the ULID identifiers used for shares, invites, users
// and audit events. IDs sort by creation time, so audit listings ordered by
// id are chronological.
package idx

import (
	"crypto/rand"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

type ID string

const Zero ID = ""

// ErrInvalid reports a malformed ULID string.
var ErrInvalid = errors.New("idx: invalid ulid")

// Source hands out IDs from a monotonic entropy source. IDs drawn within the
// same millisecond still sort in draw order.
type Source struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewSource() *Source {
	return &Source{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// At returns an ID stamped with t.
func (s *Source) At(t time.Time) ID {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := ulid.New(ulid.Timestamp(t.UTC()), s.entropy)
	if err != nil {
		// Only reachable when the monotonic window is exhausted within one
		// millisecond, which needs 2^80 draws.
		panic("idx: " + err.Error())
	}
	return ID(u.String())
}

var (
	defaultOnce   sync.Once
	defaultSource *Source
)

func global() *Source {
	defaultOnce.Do(func() { defaultSource = NewSource() })
	return defaultSource
}

// New returns an ID stamped with the current time.
func New() ID { return global().At(time.Now()) }

// NewAt returns an ID stamped with t. Services pass their injected clock
// here so IDs agree with created_at columns.
func NewAt(t time.Time) ID { return global().At(t) }

// Parse validates s as a canonical ULID.
func Parse(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, ErrInvalid
	}
	if _, err := ulid.ParseStrict(s); err != nil {
		return Zero, ErrInvalid
	}
	return ID(s), nil
}

// Valid reports whether s parses as a ULID. Path parameters are checked with
// it before touching the store.
func Valid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

func (id ID) IsZero() bool   { return id == Zero }
func (id ID) String() string { return string(id) }

// Time is the millisecond timestamp embedded in the ID, or the zero time
// for malformed IDs.
func (id ID) Time() time.Time {
	u, err := ulid.ParseStrict(string(id))
	if err != nil {
		return time.Time{}
	}
	return ulid.Time(u.Time()).UTC()
}
