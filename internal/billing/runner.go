package billing

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Runner drives the periodic subscription re-evaluation over all users.
type Runner struct {
	logger   *zap.Logger
	governor *Governor
	interval time.Duration
}

// NewRunner creates a runner ticking at the given interval.
func NewRunner(logger *zap.Logger, governor *Governor, interval time.Duration) *Runner {
	return &Runner{logger: logger, governor: governor, interval: interval}
}

// Run blocks until the context is canceled, re-evaluating every user
// on each tick.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("Starting billing runner", zap.Duration("interval", r.interval))

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Stopping billing runner...")
			return
		case <-ticker.C:
			if err := r.governor.CheckAll(ctx); err != nil {
				r.logger.Error("Billing check failed", zap.Error(err))
			}
		}
	}
}
