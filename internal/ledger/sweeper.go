package ledger

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper drives the periodic deposit sweep.
type Sweeper struct {
	logger     *zap.Logger
	accountant *Accountant
	interval   time.Duration
}

// NewSweeper creates a sweeper ticking at the given interval.
func NewSweeper(logger *zap.Logger, accountant *Accountant, interval time.Duration) *Sweeper {
	return &Sweeper{logger: logger, accountant: accountant, interval: interval}
}

// Run blocks until the context is canceled, sweeping all pending
// deposit wallets on each tick.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("Starting deposit sweeper", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stopping deposit sweeper...")
			return
		case <-ticker.C:
			if _, err := s.accountant.SweepAll(ctx); err != nil {
				s.logger.Error("Deposit sweep failed", zap.Error(err))
			}
		}
	}
}
