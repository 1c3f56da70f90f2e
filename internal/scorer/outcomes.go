package scorer

import (
	"context"
	"fmt"

	"signal-trade-bot-go/internal/models"
)

// PriceLookup resolves the current reference price of a ticker.
type PriceLookup interface {
	LookupPrice(ctx context.Context, ticker string) (float64, error)
}

// PriceOutcomes resolves a scan's realized return by comparing the
// current price against the price captured when the scan was enriched.
type PriceOutcomes struct {
	prices PriceLookup
}

// NewPriceOutcomes creates an outcome lookup backed by a price feed.
func NewPriceOutcomes(prices PriceLookup) *PriceOutcomes {
	return &PriceOutcomes{prices: prices}
}

// ScanReturnPct returns the percentage move since the scan was
// captured. Scans without a ticker or without a captured price report
// ErrUnscoreable, which the scorer skips rather than treating as a
// lookup failure; contract-address scans always land here.
func (p *PriceOutcomes) ScanReturnPct(ctx context.Context, scan models.Scan) (float64, error) {
	if scan.Ticker == "" {
		return 0, fmt.Errorf("scan %d has no ticker: %w", scan.ID, ErrUnscoreable)
	}
	if scan.PriceAtCapture <= 0 {
		return 0, fmt.Errorf("scan %d has no captured price: %w", scan.ID, ErrUnscoreable)
	}

	current, err := p.prices.LookupPrice(ctx, scan.Ticker)
	if err != nil {
		return 0, fmt.Errorf("price lookup for %s: %w", scan.Ticker, err)
	}

	return (current - scan.PriceAtCapture) / scan.PriceAtCapture * 100, nil
}
