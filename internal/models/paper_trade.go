package models

import "gorm.io/gorm"

const (
	// TradeStatusOpen marks a simulated position that is still held.
	TradeStatusOpen = "OPEN"
	// TradeStatusClosed is terminal; a closed trade never re-opens.
	TradeStatusClosed = "CLOSED"
)

// PaperTrade is a simulated position opened on a qualifying signal.
// PnL stays zero while the trade is OPEN and is written exactly once,
// on the OPEN -> CLOSED transition.
type PaperTrade struct {
	gorm.Model
	Ticker     string  `gorm:"index;not null"`
	EntryPrice float64 `gorm:"not null"`
	Size       float64 `gorm:"not null"`
	Status     string  `gorm:"index;not null;default:OPEN"`
	PnL        float64 `gorm:"column:pnl"`
	ClosePrice float64
	OpenedAt   int64
	ClosedAt   int64
}
