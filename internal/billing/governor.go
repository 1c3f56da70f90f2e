package billing

import (
	"context"
	"fmt"
	"time"

	"signal-trade-bot-go/internal/config"
	"signal-trade-bot-go/internal/models"

	"go.uber.org/zap"
)

// BalanceReader reads the funding balance of a deposit address.
type BalanceReader interface {
	LookupBalance(ctx context.Context, address, assetID string) (float64, error)
}

// Transferor moves funds between accounts; used here to collect the
// subscription cost into the operator's address.
type Transferor interface {
	Transfer(ctx context.Context, from, to, assetID string, amount float64) (txID string, err error)
}

// UserStore is the persistence surface the governor needs.
type UserStore interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	// SetSubscription writes status (and optionally a new end
	// timestamp when end > 0) for the user.
	SetSubscription(ctx context.Context, userID string, status string, end int64) error
}

// Governor decides ACTIVE vs PAUSED per user. The status field is a
// cache of this decision: it is recomputed from (now, subscription
// end, wallet funding) on every check, so calling the governor
// repeatedly with unchanged inputs is a no-op.
type Governor struct {
	logger   *zap.Logger
	cfg      *config.Billing
	users    UserStore
	balances BalanceReader
	payments Transferor
	now      func() time.Time
}

// NewGovernor creates a subscription governor.
func NewGovernor(logger *zap.Logger, cfg *config.Billing, users UserStore, balances BalanceReader, payments Transferor) *Governor {
	return &Governor{
		logger:   logger,
		cfg:      cfg,
		users:    users,
		balances: balances,
		payments: payments,
		now:      time.Now,
	}
}

// CheckAll re-evaluates every user. Per-user failures are logged and
// do not stop the sweep.
func (g *Governor) CheckAll(ctx context.Context) error {
	users, err := g.users.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("could not list users: %w", err)
	}

	for _, user := range users {
		g.CheckSubscription(ctx, &user)
	}
	return nil
}

// CheckSubscription runs the transition function for one user:
//
//  1. subscription still running -> ensure ACTIVE
//  2. expired, funded           -> collect cost, renew, ACTIVE
//  3. expired, underfunded or
//     collection failed          -> PAUSED
//
// A balance-read failure changes nothing; the user is re-checked on
// the next cycle.
func (g *Governor) CheckSubscription(ctx context.Context, user *models.User) {
	l := g.logger.With(zap.String("user_id", user.TelegramID))

	now := g.now().Unix()

	if user.SubscriptionEnd > now {
		g.setStatus(ctx, l, user, models.SubscriptionActive, 0)
		return
	}

	l.Debug("Subscription expired, checking funds")

	if user.DepositAddress == "" {
		l.Info("No deposit wallet, pausing")
		g.setStatus(ctx, l, user, models.SubscriptionPaused, 0)
		return
	}

	balance, err := g.balances.LookupBalance(ctx, user.DepositAddress, g.cfg.AssetID)
	if err != nil {
		// Transient read failure: leave the cached status alone and
		// retry on the next cycle.
		l.Warn("Balance lookup failed, will retry next cycle", zap.Error(err))
		return
	}

	if balance < g.cfg.SubscriptionCost {
		l.Info("Insufficient funds for renewal, pausing",
			zap.Float64("balance", balance),
			zap.Float64("cost", g.cfg.SubscriptionCost))
		g.setStatus(ctx, l, user, models.SubscriptionPaused, 0)
		return
	}

	txID, err := g.payments.Transfer(ctx, user.DepositAddress, g.cfg.CollectionAddress, g.cfg.AssetID, g.cfg.SubscriptionCost)
	if err != nil {
		// Funded but the collection failed (gas, network). PAUSED is
		// the recoverable state: the next cycle retries the transfer.
		l.Warn("Subscription collection failed, pausing", zap.Error(err))
		g.setStatus(ctx, l, user, models.SubscriptionPaused, 0)
		return
	}

	newEnd := now + int64(g.cfg.PeriodDays)*24*60*60
	l.Info("Subscription renewed",
		zap.String("tx_id", txID),
		zap.Int64("new_end", newEnd))
	g.setStatus(ctx, l, user, models.SubscriptionActive, newEnd)
}

// setStatus persists the decision, skipping the write when nothing
// changed to avoid persistence churn on every check.
func (g *Governor) setStatus(ctx context.Context, l *zap.Logger, user *models.User, status string, end int64) {
	if user.SubscriptionStatus == status && end == 0 {
		return
	}

	if err := g.users.SetSubscription(ctx, user.TelegramID, status, end); err != nil {
		l.Error("Failed to persist subscription status",
			zap.String("status", status), zap.Error(err))
		return
	}

	user.SubscriptionStatus = status
	if end > 0 {
		user.SubscriptionEnd = end
	}
	l.Info("Subscription status updated", zap.String("status", status))
}
