package scorer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"signal-trade-bot-go/internal/models"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeHistory struct {
	scans []models.Scan
	err   error
}

func (f *fakeHistory) ScansByUser(_ context.Context, _ string) ([]models.Scan, error) {
	return f.scans, f.err
}

// fakeOutcomes maps scan ID to a fixed return percentage.
type fakeOutcomes struct {
	returns     map[uint]float64
	unscoreable map[uint]bool
	err         error
}

func (f *fakeOutcomes) ScanReturnPct(_ context.Context, scan models.Scan) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	if f.unscoreable[scan.ID] {
		return 0, ErrUnscoreable
	}
	return f.returns[scan.ID], nil
}

func scanWithID(id uint, liquidity float64) models.Scan {
	s := models.Scan{Ticker: "$SOL", Liquidity: liquidity}
	s.ID = id
	return s
}

func TestScoreSignal(t *testing.T) {
	t.Run("SOL example scores in admission band", func(t *testing.T) {
		score := ScoreSignal("$SOL", "")
		assert.GreaterOrEqual(t, score, 85)
		assert.LessOrEqual(t, score, 95)
	})

	t.Run("Empty signal scores zero", func(t *testing.T) {
		assert.Equal(t, 0, ScoreSignal("", ""))
	})

	t.Run("Deterministic", func(t *testing.T) {
		first := ScoreSignal("$PEPE", "0xabc")
		for i := 0; i < 5; i++ {
			assert.Equal(t, first, ScoreSignal("$PEPE", "0xabc"))
		}
	})

	t.Run("Always within bounds", func(t *testing.T) {
		for _, ticker := range []string{"$AB", "$BTC", "$ETH", "$DOGE", "$LONGTICKER"} {
			score := ScoreSignal(ticker, "")
			assert.GreaterOrEqual(t, score, 0, ticker)
			assert.LessOrEqual(t, score, 100, ticker)
		}
	})
}

func TestScoreUser(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name     string
		history  *fakeHistory
		outcomes *fakeOutcomes
		expected int
	}{
		{
			name:     "Empty history is neutral",
			history:  &fakeHistory{},
			outcomes: &fakeOutcomes{},
			expected: NeutralScore,
		},
		{
			name:     "Single scan is neutral",
			history:  &fakeHistory{scans: []models.Scan{scanWithID(1, 0)}},
			outcomes: &fakeOutcomes{returns: map[uint]float64{1: 50}},
			expected: NeutralScore,
		},
		{
			name:     "History lookup failure is neutral",
			history:  &fakeHistory{err: errors.New("db down")},
			outcomes: &fakeOutcomes{},
			expected: NeutralScore,
		},
		{
			name: "Outcome lookup failure is neutral",
			history: &fakeHistory{scans: []models.Scan{
				scanWithID(1, 0), scanWithID(2, 0),
			}},
			outcomes: &fakeOutcomes{err: errors.New("feed down")},
			expected: NeutralScore,
		},
		{
			name: "Zero variance contributes no Sharpe",
			history: &fakeHistory{scans: []models.Scan{
				scanWithID(1, 0), scanWithID(2, 0), scanWithID(3, 0),
			}},
			outcomes: &fakeOutcomes{returns: map[uint]float64{1: 10, 2: 10, 3: 10}},
			// winRate 100, sharpe 0, volume 0 -> 0.4*100
			expected: 40,
		},
		{
			name: "All losing scans",
			history: &fakeHistory{scans: []models.Scan{
				scanWithID(1, 0), scanWithID(2, 0),
			}},
			outcomes: &fakeOutcomes{returns: map[uint]float64{1: -5, 2: -5}},
			// winRate 0, sharpe 0 (zero variance), volume 0
			expected: 0,
		},
		{
			name: "Mixed outcomes",
			history: &fakeHistory{scans: []models.Scan{
				scanWithID(1, 0), scanWithID(2, 0),
			}},
			outcomes: &fakeOutcomes{returns: map[uint]float64{1: 10, 2: -5}},
			// winRate 50, mean 2.5, stdDev 7.5, sharpe (2.5-2)/7.5
			expected: 20,
		},
		{
			name: "Deep liquidity lifts the score",
			history: &fakeHistory{scans: []models.Scan{
				scanWithID(1, 1e7), scanWithID(2, 1e7),
			}},
			outcomes: &fakeOutcomes{returns: map[uint]float64{1: 10, 2: 10}},
			// winRate 100, sharpe 0, volume 100
			expected: 60,
		},
		{
			name: "Unscoreable scans are skipped, not neutralizing",
			history: &fakeHistory{scans: []models.Scan{
				scanWithID(1, 0), scanWithID(2, 0), scanWithID(3, 0),
			}},
			outcomes: &fakeOutcomes{
				returns:     map[uint]float64{1: 10, 2: -5},
				unscoreable: map[uint]bool{3: true},
			},
			// Same series as the mixed case once scan 3 drops out.
			expected: 20,
		},
		{
			name: "Fewer than two scoreable scans is neutral",
			history: &fakeHistory{scans: []models.Scan{
				scanWithID(1, 0), scanWithID(2, 0),
			}},
			outcomes: &fakeOutcomes{
				returns:     map[uint]float64{1: 10},
				unscoreable: map[uint]bool{2: true},
			},
			expected: NeutralScore,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewScorer(tc.history, tc.outcomes, zap.NewNop())
			assert.Equal(t, tc.expected, s.ScoreUser(ctx, "user-1"))
		})
	}
}

func TestScoreUserWithPriceOutcomes(t *testing.T) {
	// A history mixing ticker scans with contract-address scans must
	// still score: CA scans have no price outcome and drop out of the
	// return series instead of pinning the user at neutral.
	tickerScan := func(id uint, capture float64) models.Scan {
		s := models.Scan{Ticker: "$SOL", PriceAtCapture: capture}
		s.ID = id
		return s
	}
	addressScan := func(id uint) models.Scan {
		s := models.Scan{ContractAddress: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"}
		s.ID = id
		return s
	}

	history := &fakeHistory{scans: []models.Scan{
		tickerScan(1, 100), addressScan(2), tickerScan(3, 100),
	}}
	s := NewScorer(history, NewPriceOutcomes(&fakePrices{price: 200}), zap.NewNop())

	// Both ticker scans returned +100%: winRate 100 -> 40, zero
	// variance -> no Sharpe, no liquidity -> no volume.
	assert.Equal(t, 40, s.ScoreUser(context.Background(), "user-1"))
}

type fakePrices struct {
	price float64
	err   error
}

func (f *fakePrices) LookupPrice(_ context.Context, _ string) (float64, error) {
	return f.price, f.err
}

func TestPriceOutcomes(t *testing.T) {
	ctx := context.Background()

	t.Run("Return since capture", func(t *testing.T) {
		scan := models.Scan{Ticker: "$SOL", PriceAtCapture: 100}
		out := NewPriceOutcomes(&fakePrices{price: 120})

		ret, err := out.ScanReturnPct(ctx, scan)
		assert.NoError(t, err)
		assert.InDelta(t, 20.0, ret, 1e-9)
	})

	t.Run("Missing ticker is unscoreable", func(t *testing.T) {
		out := NewPriceOutcomes(&fakePrices{price: 120})
		_, err := out.ScanReturnPct(ctx, models.Scan{ContractAddress: "0xabc"})
		assert.ErrorIs(t, err, ErrUnscoreable)
	})

	t.Run("Missing captured price is unscoreable", func(t *testing.T) {
		out := NewPriceOutcomes(&fakePrices{price: 120})
		_, err := out.ScanReturnPct(ctx, models.Scan{Ticker: "$SOL"})
		assert.ErrorIs(t, err, ErrUnscoreable)
	})

	t.Run("Lookup failure propagates as a real error", func(t *testing.T) {
		out := NewPriceOutcomes(&fakePrices{err: fmt.Errorf("rate limited")})
		_, err := out.ScanReturnPct(ctx, models.Scan{Ticker: "$SOL", PriceAtCapture: 100})
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnscoreable)
	})
}
