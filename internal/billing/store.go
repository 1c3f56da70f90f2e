package billing

import (
	"context"
	"fmt"

	"signal-trade-bot-go/internal/models"

	"gorm.io/gorm"
)

// GormUserStore implements UserStore on the bot database.
type GormUserStore struct {
	db *gorm.DB
}

var _ UserStore = (*GormUserStore)(nil)

// NewGormUserStore creates a user store backed by the given database.
func NewGormUserStore(db *gorm.DB) *GormUserStore {
	return &GormUserStore{db: db}
}

func (s *GormUserStore) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (s *GormUserStore) SetSubscription(ctx context.Context, userID string, status string, end int64) error {
	updates := map[string]interface{}{"subscription_status": status}
	if end > 0 {
		updates["subscription_end"] = end
	}

	err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("telegram_id = ?", userID).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to update subscription for %s: %w", userID, err)
	}
	return nil
}
