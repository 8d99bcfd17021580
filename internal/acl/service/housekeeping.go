package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/projectacl/internal/acl/store"
)

const (
	DefaultHousekeepingInterval = time.Hour
	DefaultInviteRetention      = 30 * 24 * time.Hour
)

// HousekeepingService periodically deletes invites that expired or were
// revoked longer than Retention ago. Claimed invites are kept as the
// record of who admitted whom.
type HousekeepingService struct {
	Store     store.Store
	Logger    *slog.Logger
	Metrics   *Metrics
	Interval  time.Duration
	Retention time.Duration

	// Now is the clock; nil means time.Now.
	Now func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService applies defaults for non-positive interval and
// retention.
func NewHousekeepingService(
	st store.Store,
	logger *slog.Logger,
	metrics *Metrics,
	interval, retention time.Duration,
) *HousekeepingService {
	if interval <= 0 {
		interval = DefaultHousekeepingInterval
	}
	if retention <= 0 {
		retention = DefaultInviteRetention
	}
	return &HousekeepingService{
		Store:     st,
		Logger:    logger,
		Metrics:   metrics,
		Interval:  interval,
		Retention: retention,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start runs the worker in the background. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started",
		slog.Duration("interval", s.Interval),
		slog.Duration("retention", s.Retention),
	)
}

// Stop blocks until any in-progress cleanup has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup runs one purge and returns how many invites were deleted.
func (s *HousekeepingService) Cleanup(ctx context.Context) int64 {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	cutoff := now.UTC().Add(-s.Retention)

	n, err := s.Store.Invites().DeleteDeadInvites(ctx, cutoff)
	if err != nil {
		s.Logger.Error("failed to delete dead invites", slog.Any("error", err))
		return 0
	}
	s.Metrics.purged(n)
	s.Logger.Info("housekeeping cleanup completed",
		slog.Int64("invites_deleted", n),
		slog.Time("cutoff", cutoff),
	)
	return n
}
