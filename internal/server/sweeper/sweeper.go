// Package sweeper deletes expired link records on a schedule, decoupled
// from individual redemption attempts.
package sweeper

import (
	"context"
	"time"

	"github.com/secretlink/secretlink/internal/logging"
	"github.com/secretlink/secretlink/internal/server/repositories/links"
)

// Sweeper periodically removes expired rows from the link ledger.
type Sweeper struct {
	repo     links.Repository
	logger   logging.Logger
	interval time.Duration
}

func New(repo links.Repository, logger logging.Logger, interval time.Duration) *Sweeper {
	return &Sweeper{repo: repo, logger: logger, interval: interval}
}

// Run performs one sweep immediately, then repeats every interval until ctx
// is cancelled. A non-positive interval means the startup sweep only.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info(ctx, "expired link cleanup starting", "interval", s.interval.String())
	s.sweep(ctx)

	if s.interval <= 0 {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "expired link cleanup stopping")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep runs a single cleanup pass. Storage faults are logged and left for
// the next tick; retrying here would just pile onto an unavailable backend.
func (s *Sweeper) sweep(ctx context.Context) {
	deleted, err := s.repo.DeleteExpired(ctx, time.Now().UTC())
	if err != nil {
		s.logger.Error(ctx, "expired link cleanup failed", "error", err.Error())
		return
	}
	if deleted > 0 {
		s.logger.Info(ctx, "deleted expired links", "count", deleted)
	} else {
		s.logger.Debug(ctx, "no expired links found")
	}
}
