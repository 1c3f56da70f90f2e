package ledger

import (
	"context"
	"fmt"

	"signal-trade-bot-go/internal/config"
	"signal-trade-bot-go/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PayoutSender initiates an external payout from the pooled trading
// wallet to a destination address.
type PayoutSender interface {
	SendPayout(ctx context.Context, destination string, amount float64) (txID string, err error)
}

// SweepReport summarizes one sweep pass over pending deposit wallets.
type SweepReport struct {
	ID         string
	TotalSwept float64
	TotalFees  float64
	Credited   int
	Failed     []SweepFailure
}

// SweepFailure records a wallet that could not be credited this pass.
type SweepFailure struct {
	UserID string
	Reason string
}

// WithdrawReceipt describes the result of a withdrawal request. When
// PayoutPending is true the ledger debit is durably recorded but the
// external payout did not confirm; the payout is retried out of band
// rather than silently rolling back the debit.
type WithdrawReceipt struct {
	ID            string
	UserID        string
	Amount        float64
	Destination   string
	TxID          string
	PayoutPending bool
}

// Accountant converts swept deposits into internal virtual-balance
// credits and debits that balance on withdrawal.
type Accountant struct {
	logger  *zap.Logger
	cfg     *config.Ledger
	store   Store
	wallets WalletStore
	payouts PayoutSender
}

// NewAccountant creates a ledger accountant.
func NewAccountant(logger *zap.Logger, cfg *config.Ledger, store Store, wallets WalletStore, payouts PayoutSender) *Accountant {
	return &Accountant{
		logger:  logger,
		cfg:     cfg,
		store:   store,
		wallets: wallets,
		payouts: payouts,
	}
}

// SweepAll runs Sweep over every wallet with a pending balance.
func (a *Accountant) SweepAll(ctx context.Context) (*SweepReport, error) {
	wallets, err := a.wallets.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list pending wallets: %w", err)
	}
	return a.Sweep(ctx, wallets), nil
}

// Sweep credits each wallet's pending deposit to the owner's ledger
// entry, net of the sweep fee, then zeroes the wallet so re-running
// the sweep credits nothing twice. One wallet failing does not stop
// the others.
func (a *Accountant) Sweep(ctx context.Context, wallets []models.DepositWallet) *SweepReport {
	report := &SweepReport{ID: uuid.NewString()}
	l := a.logger.With(zap.String("sweep_id", report.ID))
	l.Info("Starting deposit sweep", zap.Int("wallets", len(wallets)))

	for _, wallet := range wallets {
		if wallet.PendingBalance <= 0 {
			continue
		}

		amount := wallet.PendingBalance
		fee := amount * a.cfg.SweepFeeRate
		net := amount - fee

		if err := a.store.Credit(ctx, wallet.UserID, net); err != nil {
			l.Error("Failed to credit ledger, skipping wallet",
				zap.String("user_id", wallet.UserID), zap.Error(err))
			report.Failed = append(report.Failed, SweepFailure{
				UserID: wallet.UserID,
				Reason: err.Error(),
			})
			continue
		}

		if err := a.wallets.ClearPending(ctx, wallet.ID); err != nil {
			// The credit stands; an uncleared wallet means the next
			// sweep double-credits, which is the worse failure, so
			// flag it loudly.
			l.Error("Credited ledger but failed to clear wallet",
				zap.String("user_id", wallet.UserID),
				zap.Uint("wallet_id", wallet.ID),
				zap.Error(err))
			report.Failed = append(report.Failed, SweepFailure{
				UserID: wallet.UserID,
				Reason: fmt.Sprintf("credited but not cleared: %v", err),
			})
			continue
		}

		l.Info("Swept deposit",
			zap.String("user_id", wallet.UserID),
			zap.Float64("amount", amount),
			zap.Float64("fee", fee),
			zap.Float64("net", net))

		report.TotalSwept += amount
		report.TotalFees += fee
		report.Credited++
	}

	l.Info("Sweep complete",
		zap.Float64("total_swept", report.TotalSwept),
		zap.Float64("total_fees", report.TotalFees),
		zap.Int("credited", report.Credited),
		zap.Int("failed", len(report.Failed)))

	return report
}

// Withdraw debits the user's virtual balance and initiates an external
// payout to their deposit address. The debit is durably recorded
// before the payout is attempted; a payout failure leaves the receipt
// pending instead of reverting the debit.
func (a *Accountant) Withdraw(ctx context.Context, userID string, amount float64) (*WithdrawReceipt, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("withdrawal amount must be positive, got %f", amount)
	}

	destination, err := a.wallets.DepositAddressForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve payout destination: %w", err)
	}

	if err := a.store.Debit(ctx, userID, amount); err != nil {
		return nil, err
	}

	receipt := &WithdrawReceipt{
		ID:          uuid.NewString(),
		UserID:      userID,
		Amount:      amount,
		Destination: destination,
	}

	txID, err := a.payouts.SendPayout(ctx, destination, amount)
	if err != nil {
		a.logger.Error("Payout failed after debit, leaving withdrawal pending",
			zap.String("withdrawal_id", receipt.ID),
			zap.String("user_id", userID),
			zap.Float64("amount", amount),
			zap.Error(err))
		receipt.PayoutPending = true
		return receipt, nil
	}

	receipt.TxID = txID
	a.logger.Info("Withdrawal paid out",
		zap.String("withdrawal_id", receipt.ID),
		zap.String("user_id", userID),
		zap.Float64("amount", amount),
		zap.String("tx_id", txID))

	return receipt, nil
}
