package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/projectacl/internal/acl/store"
	"github.com/aussiebroadwan/projectacl/pkg/slogx"
	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds how often a transaction aborted by store.ErrConflict
// is re-run before ErrTransientStoreConflict is returned.
type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

var DefaultRetryPolicy = RetryPolicy{
	MaxRetries:      3,
	InitialInterval: 20 * time.Millisecond,
	MaxInterval:     200 * time.Millisecond,
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	if p == (RetryPolicy{}) {
		p = DefaultRetryPolicy
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, p.MaxRetries), ctx)
}

// inTx runs fn in a fresh transaction, re-running the whole transaction on
// store.ErrConflict. fn must not leak state between attempts.
func inTx(
	ctx context.Context,
	st store.Store,
	policy RetryPolicy,
	metrics *Metrics,
	op string,
	fn func(tx store.Tx) error,
) error {
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := st.WithTx(ctx, fn)
		if err == nil {
			return nil
		}
		if errors.Is(err, store.ErrConflict) {
			metrics.conflict(op)
			slogx.FromContext(ctx).Debug("transaction conflict, retrying",
				slog.String("operation", op),
				slog.Int("attempt", attempt),
				slog.Any("error", err),
			)
			return err
		}
		return backoff.Permanent(err)
	}, policy.backOff(ctx))

	if errors.Is(err, store.ErrConflict) {
		return fmt.Errorf("%s: %w", op, ErrTransientStoreConflict)
	}
	return err
}

// storeErr translates a store sentinel into the service taxonomy. Anything
// unrecognised is wrapped and passed through.
func storeErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, store.ErrConflict):
		return err
	case isServiceErr(err):
		return err
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func isServiceErr(err error) bool {
	return isOneOf(err,
		ErrNotAuthorized, ErrNotFound, ErrLastOwnerViolation, ErrInviteExpired,
		ErrInviteRevoked, ErrInviteAlreadyClaimed, ErrEmailMismatch,
		ErrAlreadyTerminal, ErrInvalidRequest, ErrTransientStoreConflict,
	)
}

func isOneOf(err error, targets ...error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}
