package ingest

import (
	"context"
	"errors"
	"fmt"

	"signal-trade-bot-go/internal/market"
	"signal-trade-bot-go/internal/models"

	"gorm.io/gorm"
)

// ScanStore persists scan records. Scans are immutable once written,
// except for the best-effort enrichment fields.
type ScanStore interface {
	CreateScan(ctx context.Context, scan *models.Scan) error
	SetEnrichment(ctx context.Context, scanID uint, meta *market.TokenMetadata) error
	SetPriceAtCapture(ctx context.Context, scanID uint, price float64) error
	ScansByUser(ctx context.Context, userID string) ([]models.Scan, error)
}

// Directory keeps the user and group tables in sync with message
// authors and the chats they post in.
type Directory interface {
	UpsertUser(ctx context.Context, user *models.User) error
	UpsertGroup(ctx context.Context, group *models.Group) error
}

// GormScanStore implements ScanStore and Directory on the bot database.
type GormScanStore struct {
	db *gorm.DB
}

var (
	_ ScanStore = (*GormScanStore)(nil)
	_ Directory = (*GormScanStore)(nil)
)

// NewGormScanStore creates a scan store backed by the given database.
func NewGormScanStore(db *gorm.DB) *GormScanStore {
	return &GormScanStore{db: db}
}

func (s *GormScanStore) CreateScan(ctx context.Context, scan *models.Scan) error {
	if err := s.db.WithContext(ctx).Create(scan).Error; err != nil {
		return fmt.Errorf("failed to create scan: %w", err)
	}
	return nil
}

func (s *GormScanStore) SetEnrichment(ctx context.Context, scanID uint, meta *market.TokenMetadata) error {
	err := s.db.WithContext(ctx).
		Model(&models.Scan{}).
		Where("id = ?", scanID).
		Updates(map[string]interface{}{
			"market_cap": meta.MarketCap,
			"liquidity":  meta.Liquidity,
			"pair_age":   meta.PairAge,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to enrich scan %d: %w", scanID, err)
	}
	return nil
}

func (s *GormScanStore) SetPriceAtCapture(ctx context.Context, scanID uint, price float64) error {
	err := s.db.WithContext(ctx).
		Model(&models.Scan{}).
		Where("id = ?", scanID).
		Update("price_at_capture", price).Error
	if err != nil {
		return fmt.Errorf("failed to set capture price on scan %d: %w", scanID, err)
	}
	return nil
}

func (s *GormScanStore) ScansByUser(ctx context.Context, userID string) ([]models.Scan, error) {
	var scans []models.Scan
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id asc").
		Find(&scans).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list scans for %s: %w", userID, err)
	}
	return scans, nil
}

// UpsertUser creates the author on first sight and refreshes the
// mutable profile fields afterwards. Fields the message did not carry
// are left alone, so a bare message never erases a known profile.
func (s *GormScanStore) UpsertUser(ctx context.Context, user *models.User) error {
	var existing models.User
	err := s.db.WithContext(ctx).Where("telegram_id = ?", user.TelegramID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
			return fmt.Errorf("failed to create user %s: %w", user.TelegramID, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up user %s: %w", user.TelegramID, err)
	}

	updates := map[string]interface{}{}
	if user.Username != "" {
		updates["username"] = user.Username
	}
	if user.FirstName != "" {
		updates["first_name"] = user.FirstName
	}
	if len(updates) == 0 {
		return nil
	}

	err = s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("telegram_id = ?", user.TelegramID).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to update user %s: %w", user.TelegramID, err)
	}
	return nil
}

// UpsertGroup records the chat a message came from, refreshing title
// and type when the message carries them.
func (s *GormScanStore) UpsertGroup(ctx context.Context, group *models.Group) error {
	var existing models.Group
	err := s.db.WithContext(ctx).Where("telegram_id = ?", group.TelegramID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := s.db.WithContext(ctx).Create(group).Error; err != nil {
			return fmt.Errorf("failed to create group %s: %w", group.TelegramID, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up group %s: %w", group.TelegramID, err)
	}

	updates := map[string]interface{}{}
	if group.Title != "" {
		updates["title"] = group.Title
	}
	if group.Type != "" {
		updates["type"] = group.Type
	}
	if len(updates) == 0 {
		return nil
	}

	err = s.db.WithContext(ctx).
		Model(&models.Group{}).
		Where("telegram_id = ?", group.TelegramID).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to update group %s: %w", group.TelegramID, err)
	}
	return nil
}
