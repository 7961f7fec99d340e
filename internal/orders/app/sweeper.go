package app

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSweepInterval matches the once-a-minute expiry check.
const DefaultSweepInterval = time.Minute

type staleChecker interface {
	CheckStaleReservations(ctx context.Context) (SweepResult, error)
}

// Sweeper runs the staleness check on a fixed interval.
type Sweeper struct {
	checker  staleChecker
	interval time.Duration
	logger   *slog.Logger
}

func NewSweeper(checker staleChecker, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{checker: checker, interval: interval, logger: logger}
}

// Run sweeps once immediately and then on every tick until ctx is done.
// Sweep errors are logged and do not stop the loop.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "reservation sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	result, err := s.checker.CheckStaleReservations(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "reservation sweep failed", "error", err)
		return
	}
	if len(result.Cancelled) > 0 {
		s.logger.DebugContext(ctx, "reservation sweep finished", "cancelled", len(result.Cancelled))
	}
}
