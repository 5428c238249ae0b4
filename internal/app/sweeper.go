package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"kbhub/internal/service"
)

// sweepSchedule runs the retention sweep nightly.
const sweepSchedule = "0 3 * * *"

// Sweeper periodically purges terminal invites past the retention window.
type Sweeper struct {
	cron      *cron.Cron
	invites   *service.InviteService
	retention time.Duration
	logger    *slog.Logger
}

// NewSweeper creates a retention sweeper over the invite service.
func NewSweeper(invites *service.InviteService, retention time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		cron:      cron.New(),
		invites:   invites,
		retention: retention,
		logger:    logger,
	}
}

// Start registers the nightly sweep and starts the scheduler. One sweep runs
// immediately so a long-stopped server catches up on startup.
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(sweepSchedule, s.sweep); err != nil {
		return err
	}
	s.cron.Start()
	go s.sweep()
	s.logger.Info("invite retention sweeper started", "schedule", sweepSchedule, "retention", s.retention)
	return nil
}

// Stop gracefully stops the scheduler.
func (s *Sweeper) Stop() {
	s.cron.Stop()
	s.logger.Info("invite retention sweeper stopped")
}

func (s *Sweeper) sweep() {
	purged, err := s.invites.PurgeStale(context.Background(), s.retention)
	if err != nil {
		s.logger.Warn("invite retention sweep failed", "error", err)
		return
	}
	if purged > 0 {
		s.logger.Info("purged stale invites", "count", purged)
	}
}
