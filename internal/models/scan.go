package models

import "gorm.io/gorm"

// Scan records one occurrence of a ticker or contract-address mention
// in an ingested message. Exactly one of Ticker or ContractAddress is
// set. Scans are append-only; enrichment fields are filled best-effort
// after creation and the row is never deleted.
type Scan struct {
	gorm.Model
	UserID          string `gorm:"index;not null"`
	GroupID         string `gorm:"index"`
	Ticker          string
	ContractAddress string
	CapturedAt      int64 `gorm:"not null"`

	// Best-effort enrichment from the market-data lookup.
	MarketCap      float64
	Liquidity      float64
	PairAge        string
	PriceAtCapture float64
}
