package papertrade

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Monitor drives the periodic close-check over open trades.
type Monitor struct {
	logger   *zap.Logger
	engine   *Engine
	interval time.Duration
}

// NewMonitor creates a monitor ticking at the given interval.
func NewMonitor(logger *zap.Logger, engine *Engine, interval time.Duration) *Monitor {
	return &Monitor{logger: logger, engine: engine, interval: interval}
}

// Run blocks, invoking the close-check on every tick until the context
// is canceled. Ticks are independent: a slow pass does not stop the
// next one from running, the guarded close keeps that safe.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("Starting trade monitor", zap.Duration("interval", m.interval))

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Stopping trade monitor...")
			return
		case <-ticker.C:
			if err := m.engine.CheckOpenTrades(ctx); err != nil {
				m.logger.Error("Trade check failed", zap.Error(err))
			}
		}
	}
}
