// Package service implements the ACL core: the permission resolver, share
// management, the invite lifecycle and the legacy backfill. Every mutation
// runs in one store transaction and appends its audit event in that same
// transaction.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/projectacl/internal/acl/domain"
	"github.com/aussiebroadwan/projectacl/internal/acl/store"
	"github.com/aussiebroadwan/projectacl/pkg/idx"
)

// Deps are the collaborators shared by the mutating services.
type Deps struct {
	Store   store.Store
	Metrics *Metrics
	Retry   RetryPolicy

	// Now is the clock; nil means time.Now. Tests pin it.
	Now func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

func (d *Deps) inTx(ctx context.Context, op string, fn func(tx store.Tx) error) error {
	return inTx(ctx, d.Store, d.Retry, d.Metrics, op, fn)
}

func appendAudit(ctx context.Context, tx store.Tx, e domain.AuditEvent) error {
	e.ID = idx.NewAt(e.CreatedAt).String()
	if err := tx.AuditEvents().Append(ctx, e); err != nil {
		return storeErr("append audit event", err)
	}
	return nil
}

// requireActiveProject fails with ErrNotFound for missing or deleted projects.
func requireActiveProject(ctx context.Context, tx store.Tx, projectID string) (domain.Project, error) {
	p, err := tx.Projects().GetProjectByID(ctx, projectID)
	if err != nil {
		return domain.Project{}, storeErr("load project", err)
	}
	if p.IsDeleted() {
		return domain.Project{}, ErrNotFound
	}
	return p, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func isNotFound(err error) bool { return errors.Is(err, store.ErrNotFound) }
