package models

import "gorm.io/gorm"

const (
	// SubscriptionActive means the user's paid period has not lapsed,
	// or lapsed and was successfully renewed.
	SubscriptionActive = "ACTIVE"
	// SubscriptionPaused means the period lapsed and the deposit wallet
	// could not cover a renewal.
	SubscriptionPaused = "PAUSED"
)

// User is an account record. SubscriptionStatus is a cache of the last
// governor decision, recomputed on every check from (now,
// SubscriptionEnd, wallet funding); it is never an independent source
// of truth.
type User struct {
	gorm.Model
	TelegramID string `gorm:"uniqueIndex;not null"`
	Username   string
	FirstName  string

	DepositAddress     string
	SubscriptionEnd    int64  `gorm:"default:0"`
	SubscriptionStatus string `gorm:"default:ACTIVE"`
}
