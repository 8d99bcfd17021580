package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/projectacl/internal/acl/domain"
	"github.com/aussiebroadwan/projectacl/internal/acl/store"
	"github.com/aussiebroadwan/projectacl/internal/acl/store/drivers/sqlite"
)

type fakeHasher struct{}

func (fakeHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

type testEnv struct {
	store    store.Store
	metrics  *Metrics
	now      time.Time
	shares   *ShareService
	invites  *InviteService
	backfill *Backfill
	resolver *Resolver
}

func (e *testEnv) clock() time.Time { return e.now }

func (e *testEnv) advance(d time.Duration) { e.now = e.now.Add(d) }

var fastRetry = RetryPolicy{MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(sqlite.DSN(filepath.Join(t.TempDir(), "acl.db"), 2*time.Second))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	return newTestEnvWithStore(t, st)
}

func newTestEnvWithStore(t *testing.T, st store.Store) *testEnv {
	t.Helper()

	env := &testEnv{
		store:   st,
		metrics: NewMetrics(prometheus.NewRegistry()),
		now:     time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	deps := Deps{Store: st, Metrics: env.metrics, Retry: fastRetry, Now: env.clock}

	env.shares = &ShareService{Deps: deps}
	env.invites = &InviteService{Deps: deps, Shares: env.shares, Passwords: fakeHasher{}, TTL: 24 * time.Hour}
	env.backfill = &Backfill{Deps: deps, Shares: env.shares, Workers: 2}
	env.resolver = &Resolver{Store: st}
	return env
}

func ptr[T any](v T) *T { return &v }

func (e *testEnv) addUser(t *testing.T, id, email string, team *string, active bool, createdAt time.Time) {
	t.Helper()
	require.NoError(t, e.store.Users().CreateUser(context.Background(), domain.User{
		ID:           id,
		Email:        email,
		LegacyTeamID: team,
		Active:       active,
		CreatedAt:    createdAt,
	}))
}

func (e *testEnv) addProject(t *testing.T, id string, createdBy, team *string) {
	t.Helper()
	require.NoError(t, e.store.Projects().CreateProject(context.Background(), domain.Project{
		ID:           id,
		Name:         "project " + id,
		CreatedBy:    createdBy,
		LegacyTeamID: team,
		CreatedAt:    e.now,
	}))
}

func (e *testEnv) addShare(t *testing.T, projectID, userID string, role domain.Role) {
	t.Helper()
	require.NoError(t, e.store.Shares().InsertShare(context.Background(), domain.ProjectShare{
		ID:        projectID + "-" + userID,
		ProjectID: projectID,
		UserID:    userID,
		Role:      role,
		CreatedAt: e.now,
		UpdatedAt: e.now,
	}))
}

// seed creates project p1 owned by olivia. bob shares olivia's legacy team
// without a share; mallory has no team.
func (e *testEnv) seed(t *testing.T) {
	t.Helper()
	team := "team-1"
	e.addUser(t, "olivia", "olivia@example.com", &team, true, e.now)
	e.addUser(t, "bob", "bob@example.com", &team, true, e.now.Add(time.Minute))
	e.addUser(t, "mallory", "b@example.com", nil, true, e.now.Add(2*time.Minute))
	e.addProject(t, "p1", ptr("olivia"), &team)
	e.addShare(t, "p1", "olivia", domain.RoleOwner)
}

func (e *testEnv) role(t *testing.T, userID, projectID string) (domain.Role, bool) {
	t.Helper()
	role, ok, err := e.resolver.ResolveRole(context.Background(), userID, projectID)
	require.NoError(t, err)
	return role, ok
}

func (e *testEnv) auditActions(t *testing.T, projectID string) []domain.AuditAction {
	t.Helper()
	events, err := e.store.AuditEvents().ListByProject(context.Background(), projectID)
	require.NoError(t, err)
	out := make([]domain.AuditAction, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Action)
	}
	return out
}
