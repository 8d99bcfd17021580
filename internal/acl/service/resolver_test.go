package service

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/projectacl/internal/acl/domain"
)

func TestResolverMinimumRole(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	env.addShare(t, "p1", "bob", domain.RoleOperate)
	ctx := context.Background()

	require.NoError(t, env.resolver.RequireMinRole(ctx, "bob", "p1", domain.RoleView))
	require.NoError(t, env.resolver.RequireMinRole(ctx, "bob", "p1", domain.RoleOperate))
	require.ErrorIs(t, env.resolver.RequireMinRole(ctx, "bob", "p1", domain.RoleCollaborate), ErrNotAuthorized)
	require.ErrorIs(t, env.resolver.IsOwner(ctx, "bob", "p1"), ErrNotAuthorized)
	require.NoError(t, env.resolver.IsOwner(ctx, "olivia", "p1"))

	// No share at all is the same as too little.
	require.ErrorIs(t, env.resolver.RequireMinRole(ctx, "mallory", "p1", domain.RoleView), ErrNotAuthorized)
	require.ErrorIs(t, env.resolver.RequireMinRole(ctx, "bob", "missing", domain.RoleView), ErrNotAuthorized)

	_, ok, err := env.resolver.ResolveRole(ctx, "", "p1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestShadowResolverCountsMismatches(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	env.addShare(t, "p1", "mallory", domain.RoleView)
	ctx := context.Background()

	shadow := &ShadowResolver{ACL: env.resolver, Store: env.store, Metrics: env.metrics}

	// olivia: team member with a share, both sides agree.
	require.NoError(t, shadow.IsOwner(ctx, "olivia", "p1"))

	// bob: legacy team grants access, the ACL does not. The ACL answer wins.
	_, ok, err := shadow.ResolveRole(ctx, "bob", "p1")
	require.NoError(t, err)
	require.False(t, ok)

	// mallory: shared explicitly without being on the team.
	require.NoError(t, shadow.RequireMinRole(ctx, "mallory", "p1", domain.RoleView))

	require.Equal(t, float64(1), testutil.ToFloat64(env.metrics.ShadowMismatchesTotal.WithLabelValues("legacy_only")))
	require.Equal(t, float64(1), testutil.ToFloat64(env.metrics.ShadowMismatchesTotal.WithLabelValues("acl_only")))
}
