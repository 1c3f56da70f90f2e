package models

import "gorm.io/gorm"

// LedgerEntry is a user's internal virtual balance, independent of any
// on-chain wallet balance. The balance only moves through the
// accountant's credit and debit operations; Version supports the
// optimistic-concurrency update those operations use, so a concurrent
// credit is never lost to a stale write.
type LedgerEntry struct {
	gorm.Model
	UserID      string  `gorm:"uniqueIndex;not null"`
	Balance     float64 `gorm:"not null;default:0"`
	Version     uint    `gorm:"not null;default:0"`
	LastUpdated int64
}
