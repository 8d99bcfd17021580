package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/projectacl/internal/acl/domain"
	"github.com/aussiebroadwan/projectacl/internal/acl/store"
	"github.com/aussiebroadwan/projectacl/pkg/slogx"
)

// Authorizer is the read-only permission surface handlers depend on.
type Authorizer interface {
	ResolveRole(ctx context.Context, userID, projectID string) (domain.Role, bool, error)
	RequireMinRole(ctx context.Context, userID, projectID string, min domain.Role) error
	IsOwner(ctx context.Context, userID, projectID string) error
}

// Resolver answers "what role does this user hold on this project" from
// project_shares alone. Deleted projects grant nothing.
type Resolver struct {
	Store store.Store
}

var _ Authorizer = (*Resolver)(nil)

// ResolveRole reports the user's role; ok is false when there is no share.
func (r *Resolver) ResolveRole(ctx context.Context, userID, projectID string) (domain.Role, bool, error) {
	if userID == "" || projectID == "" {
		return 0, false, nil
	}
	role, err := r.Store.Shares().GetActiveRole(ctx, projectID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("resolve role: %w", err)
	}
	return role, true, nil
}

func (r *Resolver) RequireMinRole(ctx context.Context, userID, projectID string, min domain.Role) error {
	role, ok, err := r.ResolveRole(ctx, userID, projectID)
	if err != nil {
		return err
	}
	return checkMinRole(role, ok, min)
}

func (r *Resolver) IsOwner(ctx context.Context, userID, projectID string) error {
	return r.RequireMinRole(ctx, userID, projectID, domain.RoleOwner)
}

func checkMinRole(role domain.Role, ok bool, min domain.Role) error {
	if !ok || !role.AtLeast(min) {
		return ErrNotAuthorized
	}
	return nil
}

// ShadowResolver answers every question from the ACL exactly as Resolver
// does, and additionally evaluates the legacy rule (user and project share
// a legacy team) to log and count disagreements ahead of removing the
// legacy columns. The legacy answer never influences the result.
type ShadowResolver struct {
	ACL     *Resolver
	Store   store.Store
	Metrics *Metrics
}

var _ Authorizer = (*ShadowResolver)(nil)

func (s *ShadowResolver) ResolveRole(ctx context.Context, userID, projectID string) (domain.Role, bool, error) {
	role, ok, err := s.ACL.ResolveRole(ctx, userID, projectID)
	if err != nil {
		return role, ok, err
	}
	s.compare(ctx, userID, projectID, ok)
	return role, ok, nil
}

func (s *ShadowResolver) RequireMinRole(ctx context.Context, userID, projectID string, min domain.Role) error {
	role, ok, err := s.ResolveRole(ctx, userID, projectID)
	if err != nil {
		return err
	}
	return checkMinRole(role, ok, min)
}

func (s *ShadowResolver) IsOwner(ctx context.Context, userID, projectID string) error {
	return s.RequireMinRole(ctx, userID, projectID, domain.RoleOwner)
}

func (s *ShadowResolver) compare(ctx context.Context, userID, projectID string, aclAccess bool) {
	log := slogx.FromContext(ctx)

	legacy, err := s.legacyAccess(ctx, userID, projectID)
	if err != nil {
		log.Debug("shadow legacy check skipped", slog.Any("error", err))
		return
	}
	if legacy == aclAccess {
		return
	}

	direction := "legacy_only"
	if aclAccess {
		direction = "acl_only"
	}
	s.Metrics.shadowMismatch(direction)
	log.Warn("legacy team check disagrees with acl",
		slog.String("user_id", userID),
		slog.String("project_id", projectID),
		slog.Bool("legacy_access", legacy),
		slog.Bool("acl_access", aclAccess),
	)
}

func (s *ShadowResolver) legacyAccess(ctx context.Context, userID, projectID string) (bool, error) {
	if userID == "" || projectID == "" {
		return false, nil
	}
	p, err := s.Store.Projects().GetProjectByID(ctx, projectID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if p.IsDeleted() || p.LegacyTeamID == nil {
		return false, nil
	}

	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return u.Active && u.LegacyTeamID != nil && *u.LegacyTeamID == *p.LegacyTeamID, nil
}
