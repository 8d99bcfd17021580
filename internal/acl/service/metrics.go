package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the ACL counters exported on /metrics. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	MutationsTotal         *prometheus.CounterVec
	InviteClaimsTotal      *prometheus.CounterVec
	StoreConflictsTotal    *prometheus.CounterVec
	ShadowMismatchesTotal  *prometheus.CounterVec
	BackfillProjectsTotal  *prometheus.CounterVec
	HousekeepingPurgeTotal prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		MutationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "acl_mutations_total",
				Help: "ACL mutations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		InviteClaimsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "acl_invite_claims_total",
				Help: "Invite claim attempts by outcome",
			},
			[]string{"outcome"},
		),
		StoreConflictsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "acl_store_conflicts_total",
				Help: "Transactions aborted by lock or serialization conflicts",
			},
			[]string{"operation"},
		),
		ShadowMismatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "acl_shadow_mismatches_total",
				Help: "Legacy team checks that disagree with the ACL",
			},
			[]string{"direction"},
		),
		BackfillProjectsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "acl_backfill_projects_total",
				Help: "Projects processed by the legacy backfill",
			},
			[]string{"outcome"},
		),
		HousekeepingPurgeTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "acl_housekeeping_invites_purged_total",
				Help: "Dead invites deleted by housekeeping",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.MutationsTotal,
			m.InviteClaimsTotal,
			m.StoreConflictsTotal,
			m.ShadowMismatchesTotal,
			m.BackfillProjectsTotal,
			m.HousekeepingPurgeTotal,
		)
	}
	return m
}

func (m *Metrics) mutation(op string, err error) {
	if m == nil {
		return
	}
	m.MutationsTotal.WithLabelValues(op, outcome(err)).Inc()
}

func (m *Metrics) claim(err error) {
	if m == nil {
		return
	}
	m.InviteClaimsTotal.WithLabelValues(outcome(err)).Inc()
}

func (m *Metrics) conflict(op string) {
	if m == nil {
		return
	}
	m.StoreConflictsTotal.WithLabelValues(op).Inc()
}

func (m *Metrics) shadowMismatch(direction string) {
	if m == nil {
		return
	}
	m.ShadowMismatchesTotal.WithLabelValues(direction).Inc()
}

func (m *Metrics) backfillProject(outcome string) {
	if m == nil {
		return
	}
	m.BackfillProjectsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) purged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.HousekeepingPurgeTotal.Add(float64(n))
}

// outcome collapses an error into a low-cardinality label.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case isOneOf(err, ErrNotAuthorized):
		return "not_authorized"
	case isOneOf(err, ErrNotFound):
		return "not_found"
	case isOneOf(err, ErrLastOwnerViolation):
		return "last_owner"
	case isOneOf(err, ErrInviteExpired):
		return "expired"
	case isOneOf(err, ErrInviteRevoked):
		return "revoked"
	case isOneOf(err, ErrInviteAlreadyClaimed, ErrAlreadyTerminal):
		return "already_terminal"
	case isOneOf(err, ErrEmailMismatch):
		return "email_mismatch"
	case isOneOf(err, ErrInvalidRequest):
		return "invalid"
	case isOneOf(err, ErrTransientStoreConflict):
		return "conflict"
	default:
		return "error"
	}
}
