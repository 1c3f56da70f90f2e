package papertrade

import (
	"context"
	"fmt"
	"sync"
	"time"

	"signal-trade-bot-go/internal/config"
	"signal-trade-bot-go/internal/models"
	"signal-trade-bot-go/internal/scorer"

	"go.uber.org/zap"
)

// PriceLookup resolves the current reference price of a ticker.
type PriceLookup interface {
	LookupPrice(ctx context.Context, ticker string) (float64, error)
}

// Notifier delivers fire-and-forget fill notifications. Failures are
// the notifier's problem; the engine never checks them.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// Engine owns the paper-trade lifecycle: it opens a simulated position
// when a scan's signal scores above the admission threshold, and the
// periodic close-check transitions positions to CLOSED when the price
// crosses the take-profit or stop-loss boundary.
type Engine struct {
	logger   *zap.Logger
	cfg      *config.Trading
	prices   PriceLookup
	store    TradeStore
	notifier Notifier
}

// NewEngine creates a new paper-trade engine.
func NewEngine(logger *zap.Logger, cfg *config.Trading, prices PriceLookup, store TradeStore, notifier Notifier) *Engine {
	return &Engine{
		logger:   logger,
		cfg:      cfg,
		prices:   prices,
		store:    store,
		notifier: notifier,
	}
}

// ProcessScan opens a paper trade for a ticker scan whose signal
// scores above the threshold. Contract-address-only scans are not
// traded. Failures are logged and swallowed; a missed entry is not an
// error the ingestion path needs to care about.
func (e *Engine) ProcessScan(ctx context.Context, scan *models.Scan) {
	if scan.Ticker == "" {
		return
	}

	score := scorer.ScoreSignal(scan.Ticker, scan.ContractAddress)
	e.logger.Debug("Scored signal",
		zap.String("ticker", scan.Ticker),
		zap.Int("score", score))

	if score <= e.cfg.ScoreThreshold {
		return
	}

	if err := e.openTrade(ctx, scan.Ticker, score); err != nil {
		e.logger.Error("Failed to open paper trade",
			zap.String("ticker", scan.Ticker), zap.Error(err))
	}
}

func (e *Engine) openTrade(ctx context.Context, ticker string, score int) error {
	price, err := e.prices.LookupPrice(ctx, ticker)
	if err != nil {
		return fmt.Errorf("price lookup: %w", err)
	}

	trade := &models.PaperTrade{
		Ticker:     ticker,
		EntryPrice: price,
		Size:       e.cfg.TradeNotional / price,
		Status:     models.TradeStatusOpen,
		OpenedAt:   time.Now().Unix(),
	}
	if err := e.store.Create(ctx, trade); err != nil {
		return err
	}

	e.logger.Info("Opened paper trade",
		zap.String("ticker", ticker),
		zap.Float64("entry_price", price),
		zap.Float64("size", trade.Size),
		zap.Int("score", score))

	equity, err := e.totalEquity(ctx)
	if err != nil {
		// The fill already happened; a broken equity figure only
		// degrades the notification.
		e.logger.Warn("Failed to compute total equity", zap.Error(err))
		equity = e.cfg.InitialBalance
	}

	e.notifier.Notify(ctx, fmt.Sprintf("PAPER TRADE: BUY %s @ $%.2f | PnL: $0 | Total Equity: $%.2f",
		ticker, price, equity))
	return nil
}

// totalEquity is the initial capital plus the realized PnL of every
// closed trade.
func (e *Engine) totalEquity(ctx context.Context) (float64, error) {
	realized, err := e.store.RealizedPnL(ctx)
	if err != nil {
		return 0, err
	}
	return e.cfg.InitialBalance + realized, nil
}

// CheckOpenTrades sweeps every OPEN trade, fetching the current price
// concurrently per ticker so one slow lookup does not hold up the
// rest. A lookup failure skips that trade until the next pass; the
// close itself is a guarded update, so an overlapping sweep can never
// close the same trade twice.
func (e *Engine) CheckOpenTrades(ctx context.Context) error {
	trades, err := e.store.ListByStatus(ctx, models.TradeStatusOpen)
	if err != nil {
		return fmt.Errorf("could not list open trades: %w", err)
	}
	if len(trades) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	for _, t := range trades {
		wg.Add(1)
		go func(trade models.PaperTrade) {
			defer wg.Done()
			e.checkTrade(ctx, trade)
		}(t)
	}
	wg.Wait()

	return nil
}

func (e *Engine) checkTrade(ctx context.Context, trade models.PaperTrade) {
	price, err := e.prices.LookupPrice(ctx, trade.Ticker)
	if err != nil {
		e.logger.Warn("Price lookup failed, will retry next pass",
			zap.String("ticker", trade.Ticker),
			zap.Uint("trade_id", trade.ID),
			zap.Error(err))
		return
	}

	pnlPercent := (price - trade.EntryPrice) / trade.EntryPrice * 100

	// Take-profit is evaluated before stop-loss.
	var reason string
	switch {
	case pnlPercent >= e.cfg.TakeProfitPct:
		reason = "TAKE PROFIT"
	case pnlPercent <= e.cfg.StopLossPct:
		reason = "STOP LOSS"
	default:
		return
	}

	pnl := (price - trade.EntryPrice) * trade.Size

	closed, err := e.store.Close(ctx, trade.ID, price, pnl)
	if err != nil {
		e.logger.Error("Failed to close trade",
			zap.Uint("trade_id", trade.ID), zap.Error(err))
		return
	}
	if !closed {
		// Another pass got here first.
		e.logger.Debug("Trade already closed by a concurrent pass",
			zap.Uint("trade_id", trade.ID))
		return
	}

	e.logger.Info("Closed paper trade",
		zap.String("ticker", trade.Ticker),
		zap.Uint("trade_id", trade.ID),
		zap.String("reason", reason),
		zap.Float64("close_price", price),
		zap.Float64("pnl", pnl))

	e.notifier.Notify(ctx, fmt.Sprintf("PAPER TRADE: SELL %s (%s) @ $%.2f | PnL: $%.2f",
		trade.Ticker, reason, price, pnl))
}
