package models

import "gorm.io/gorm"

// DepositWallet is an external per-user deposit address with the
// pending (not yet swept) balance observed on it. The sweep zeroes
// PendingBalance after crediting the ledger, which is what makes a
// repeated sweep of the same wallet a no-op.
type DepositWallet struct {
	gorm.Model
	UserID         string `gorm:"index;not null"`
	Address        string `gorm:"uniqueIndex;not null"`
	PendingBalance float64
}
