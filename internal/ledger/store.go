package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"signal-trade-bot-go/internal/models"

	"gorm.io/gorm"
)

// ErrInsufficientFunds is returned by a debit that exceeds the user's
// virtual balance. The balance is left untouched.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrStaleEntry is returned internally when an optimistic update lost
// a race; callers retry.
var errStaleEntry = errors.New("stale ledger entry")

// Store is the ledger persistence surface. Credit and Debit are the
// only two ways a balance moves.
type Store interface {
	Balance(ctx context.Context, userID string) (float64, error)
	Credit(ctx context.Context, userID string, amount float64) error
	Debit(ctx context.Context, userID string, amount float64) error
	List(ctx context.Context) ([]models.LedgerEntry, error)
}

// WalletStore exposes the external deposit wallets the sweep drains.
type WalletStore interface {
	ListPending(ctx context.Context) ([]models.DepositWallet, error)
	ClearPending(ctx context.Context, walletID uint) error
	DepositAddressForUser(ctx context.Context, userID string) (string, error)
}

const maxUpdateRetries = 5

// GormStore implements Store with optimistic versioning: every update
// is conditional on the version it read, and retries on a lost race.
// Concurrent credits therefore never lose updates even though the
// storage has no atomic increment.
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

// NewGormStore creates a ledger store backed by the given database.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Balance(ctx context.Context, userID string) (float64, error) {
	var entry models.LedgerEntry
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read ledger entry for %s: %w", userID, err)
	}
	return entry.Balance, nil
}

func (s *GormStore) List(ctx context.Context) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	if err := s.db.WithContext(ctx).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	return entries, nil
}

// Credit adds amount to the user's balance, creating the entry on
// first credit.
func (s *GormStore) Credit(ctx context.Context, userID string, amount float64) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %f", amount)
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := s.apply(ctx, userID, amount, true)
		if !errors.Is(err, errStaleEntry) {
			return err
		}
	}
	return fmt.Errorf("credit for %s kept losing version races", userID)
}

// Debit subtracts amount, failing with ErrInsufficientFunds when the
// balance cannot cover it.
func (s *GormStore) Debit(ctx context.Context, userID string, amount float64) error {
	if amount <= 0 {
		return fmt.Errorf("debit amount must be positive, got %f", amount)
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := s.apply(ctx, userID, -amount, false)
		if !errors.Is(err, errStaleEntry) {
			return err
		}
	}
	return fmt.Errorf("debit for %s kept losing version races", userID)
}

// apply performs one optimistic read-modify-write attempt.
func (s *GormStore) apply(ctx context.Context, userID string, delta float64, createMissing bool) error {
	var entry models.LedgerEntry
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&entry).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		if !createMissing {
			return ErrInsufficientFunds
		}
		entry = models.LedgerEntry{
			UserID:      userID,
			Balance:     delta,
			Version:     1,
			LastUpdated: time.Now().Unix(),
		}
		if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
			// A concurrent first credit may have created the row.
			return errStaleEntry
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read ledger entry for %s: %w", userID, err)
	}

	newBalance := entry.Balance + delta
	if newBalance < 0 {
		return ErrInsufficientFunds
	}

	res := s.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("user_id = ? AND version = ?", userID, entry.Version).
		Updates(map[string]interface{}{
			"balance":      newBalance,
			"version":      entry.Version + 1,
			"last_updated": time.Now().Unix(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update ledger entry for %s: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return errStaleEntry
	}
	return nil
}

// GormWalletStore implements WalletStore on the bot database.
type GormWalletStore struct {
	db *gorm.DB
}

var _ WalletStore = (*GormWalletStore)(nil)

// NewGormWalletStore creates a deposit-wallet store.
func NewGormWalletStore(db *gorm.DB) *GormWalletStore {
	return &GormWalletStore{db: db}
}

func (s *GormWalletStore) ListPending(ctx context.Context) ([]models.DepositWallet, error) {
	var wallets []models.DepositWallet
	if err := s.db.WithContext(ctx).Where("pending_balance > 0").Find(&wallets).Error; err != nil {
		return nil, fmt.Errorf("failed to list pending wallets: %w", err)
	}
	return wallets, nil
}

func (s *GormWalletStore) ClearPending(ctx context.Context, walletID uint) error {
	err := s.db.WithContext(ctx).
		Model(&models.DepositWallet{}).
		Where("id = ?", walletID).
		Update("pending_balance", 0).Error
	if err != nil {
		return fmt.Errorf("failed to clear pending balance for wallet %d: %w", walletID, err)
	}
	return nil
}

func (s *GormWalletStore) DepositAddressForUser(ctx context.Context, userID string) (string, error) {
	var wallet models.DepositWallet
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error
	if err != nil {
		return "", fmt.Errorf("no deposit wallet for user %s: %w", userID, err)
	}
	return wallet.Address, nil
}
