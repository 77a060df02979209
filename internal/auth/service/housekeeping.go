package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/latticehq/lattice-auth/internal/auth/store"
)

// HousekeepingService periodically deletes rows no decision path can reach
// anymore: expired refresh tokens and sessions revoked longer ago than the
// retention window. Live rows are never touched, so a missed run only delays
// cleanup, never changes behaviour.
type HousekeepingService struct {
	Store     store.Store
	Logger    *slog.Logger
	Interval  time.Duration
	Retention time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping worker. Zero interval
// defaults to 1 hour; zero retention defaults to 30 days of revoked-session
// history for audit visibility.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval, retention time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}

	return &HousekeepingService{
		Store:     st,
		Logger:    logger,
		Interval:  interval,
		Retention: retention,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop to shut down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started",
		"interval", s.Interval,
		"retention", s.Retention,
	)
}

// Stop gracefully shuts down the worker, waiting for any in-progress sweep.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Sweep immediately on startup
	s.sweep()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

// sweep performs one cleanup pass. Each deletion is independent; a failure
// in one does not stop the others.
func (s *HousekeepingService) sweep() {
	ctx := context.Background()
	now := time.Now().UTC()

	if err := s.Store.Sessions().DeleteRevokedSessionsBefore(ctx, now.Add(-s.Retention)); err != nil {
		s.Logger.Error("failed to delete old revoked sessions", "error", err)
	}

	// Tokens expired longer ago than the retention window. Cascades to any
	// session still referencing them, which keeps recently-expired sessions
	// visible in the session list until the window passes.
	if err := s.Store.RefreshTokens().DeleteExpiredRefreshTokens(ctx, now.Add(-s.Retention)); err != nil {
		s.Logger.Error("failed to delete expired refresh tokens", "error", err)
	}

	s.Logger.Debug("housekeeping sweep completed")
}
