package papertrade

import (
	"context"
	"fmt"
	"time"

	"signal-trade-bot-go/internal/models"

	"gorm.io/gorm"
)

// TradeStore is the persistence surface the engine needs: create,
// list by status, and a guarded close. No deletion, trades are
// permanent records.
type TradeStore interface {
	Create(ctx context.Context, trade *models.PaperTrade) error
	ListByStatus(ctx context.Context, status string) ([]models.PaperTrade, error)
	// Close transitions the trade to CLOSED and records the realized
	// PnL. It reports false when the trade was no longer OPEN, so a
	// concurrent pass can detect that it lost the race.
	Close(ctx context.Context, tradeID uint, closePrice, pnl float64) (bool, error)
	RealizedPnL(ctx context.Context) (float64, error)
}

// GormTradeStore implements TradeStore on the bot database.
type GormTradeStore struct {
	db *gorm.DB
}

var _ TradeStore = (*GormTradeStore)(nil)

// NewGormTradeStore creates a trade store backed by the given database.
func NewGormTradeStore(db *gorm.DB) *GormTradeStore {
	return &GormTradeStore{db: db}
}

func (s *GormTradeStore) Create(ctx context.Context, trade *models.PaperTrade) error {
	if err := s.db.WithContext(ctx).Create(trade).Error; err != nil {
		return fmt.Errorf("failed to create trade: %w", err)
	}
	return nil
}

func (s *GormTradeStore) ListByStatus(ctx context.Context, status string) ([]models.PaperTrade, error) {
	var trades []models.PaperTrade
	if err := s.db.WithContext(ctx).Where("status = ?", status).Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("failed to list %s trades: %w", status, err)
	}
	return trades, nil
}

// Close uses a conditional update keyed on the OPEN status, so two
// overlapping monitor passes cannot both close (and double-count) the
// same trade.
func (s *GormTradeStore) Close(ctx context.Context, tradeID uint, closePrice, pnl float64) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.PaperTrade{}).
		Where("id = ? AND status = ?", tradeID, models.TradeStatusOpen).
		Updates(map[string]interface{}{
			"status":      models.TradeStatusClosed,
			"pnl":         pnl,
			"close_price": closePrice,
			"closed_at":   time.Now().Unix(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to close trade %d: %w", tradeID, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *GormTradeStore) RealizedPnL(ctx context.Context) (float64, error) {
	var total float64
	err := s.db.WithContext(ctx).
		Model(&models.PaperTrade{}).
		Where("status = ?", models.TradeStatusClosed).
		Select("COALESCE(SUM(pnl), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum realized pnl: %w", err)
	}
	return total, nil
}
