package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/backoffice/internal/admin/store"
)

const (
	DefaultHousekeepingInterval = time.Hour
	DefaultPendingEnrollmentTTL = 24 * time.Hour
)

// HousekeepingService periodically removes expired login challenges and
// enrollments that were never confirmed.
type HousekeepingService struct {
	Challenges  store.Challenges
	Credentials store.Credentials
	Logger      *slog.Logger
	Interval    time.Duration
	PendingTTL  time.Duration
	Now         func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService fills in defaults for non-positive durations.
func NewHousekeepingService(challenges store.Challenges, credentials store.Credentials, logger *slog.Logger, interval, pendingTTL time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = DefaultHousekeepingInterval
	}
	if pendingTTL <= 0 {
		pendingTTL = DefaultPendingEnrollmentTTL
	}

	return &HousekeepingService{
		Challenges:  challenges,
		Credentials: credentials,
		Logger:      logger,
		Interval:    interval,
		PendingTTL:  pendingTTL,
		Now:         time.Now,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Start runs the worker in the background. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until an in-progress cleanup has finished.
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

// Cleanup runs one pass. Each deletion is independent; a failure in one
// does not stop the other.
func (s *HousekeepingService) Cleanup(ctx context.Context) {
	now := s.Now()

	challenges, err := s.Challenges.DeleteExpiredChallenges(ctx, now)
	if err != nil {
		s.Logger.Error("failed to delete expired login challenges", "error", err)
	}

	pending, err := s.Credentials.DeletePendingCredentialsBefore(ctx, now.Add(-s.PendingTTL))
	if err != nil {
		s.Logger.Error("failed to delete stale pending credentials", "error", err)
	}

	s.Logger.Info("housekeeping cleanup completed",
		"expired_challenges", challenges,
		"stale_enrollments", pending,
	)
}
