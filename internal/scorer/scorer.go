package scorer

import (
	"context"
	"errors"
	"hash/fnv"
	"math"

	"signal-trade-bot-go/internal/models"

	"go.uber.org/zap"
)

// NeutralScore is returned whenever there is not enough history, or a
// lookup fails, to compute a meaningful reputation.
const NeutralScore = 50

// ErrUnscoreable marks a scan that structurally cannot have an
// outcome: a contract-address scan, or a ticker scan whose capture
// price never landed. Such scans are skipped when scoring a history
// rather than collapsing the whole history to neutral.
var ErrUnscoreable = errors.New("scan has no scoreable outcome")

// riskFreeRate is the annualized risk-free return used in the Sharpe
// component, expressed in the same percentage units as scan returns.
const riskFreeRate = 2.0

// ScanHistory is a read-only view over a user's recorded scans.
type ScanHistory interface {
	ScansByUser(ctx context.Context, userID string) ([]models.Scan, error)
}

// OutcomeLookup resolves the realized return (in percent) of a
// historical scan. Outcomes are looked up, not stored, so the same
// history can be re-scored as more price data arrives.
type OutcomeLookup interface {
	ScanReturnPct(ctx context.Context, scan models.Scan) (float64, error)
}

// Scorer produces 0-100 predictive-quality scores for individual
// signals and for a user's whole scan history.
type Scorer struct {
	history  ScanHistory
	outcomes OutcomeLookup
	logger   *zap.Logger
}

// NewScorer creates a scorer over the given history and outcome lookups.
func NewScorer(history ScanHistory, outcomes OutcomeLookup, logger *zap.Logger) *Scorer {
	return &Scorer{history: history, outcomes: outcomes, logger: logger}
}

// ScoreSignal returns the admission score for a just-seen signal. It
// runs on the hot ingestion path, so it is a pure function of the
// signal text: an FNV-1a hash mapped into [55, 95]. When both a ticker
// and an address are present the two components are averaged.
func ScoreSignal(ticker, address string) int {
	if ticker == "" && address == "" {
		return 0
	}
	if ticker != "" && address != "" {
		return (hashScore(ticker) + hashScore(address)) / 2
	}
	if ticker != "" {
		return hashScore(ticker)
	}
	return hashScore(address)
}

func hashScore(s string) int {
	h := fnv.New32a()
	h.Write([]byte(s))
	return 55 + int(h.Sum32()%41)
}

// ScoreUser computes a user's reputation score as a weighted blend of
// win rate, Sharpe ratio and a liquidity proxy over their scan
// history. Scans without a scoreable outcome (ErrUnscoreable) are
// skipped; a genuine lookup failure, or fewer than two scoreable
// scans, yields the neutral score. Reputation scoring never errors
// the caller.
func (s *Scorer) ScoreUser(ctx context.Context, userID string) int {
	scans, err := s.history.ScansByUser(ctx, userID)
	if err != nil {
		s.logger.Warn("Failed to load scan history, returning neutral score",
			zap.String("user_id", userID), zap.Error(err))
		return NeutralScore
	}
	if len(scans) <= 1 {
		return NeutralScore
	}

	returns := make([]float64, 0, len(scans))
	for _, scan := range scans {
		ret, err := s.outcomes.ScanReturnPct(ctx, scan)
		if errors.Is(err, ErrUnscoreable) {
			continue
		}
		if err != nil {
			s.logger.Warn("Outcome lookup failed, returning neutral score",
				zap.String("user_id", userID), zap.Uint("scan_id", scan.ID), zap.Error(err))
			return NeutralScore
		}
		returns = append(returns, ret)
	}
	if len(returns) <= 1 {
		return NeutralScore
	}

	winRate := winRatePct(returns)
	sharpe := sharpeRatio(returns)
	volume := avgVolumeScore(scans)

	score := 0.4*winRate + 0.4*sharpe + 0.2*volume
	return clamp(int(math.Round(score)))
}

// winRatePct is the percentage of scans whose outcome was profitable.
func winRatePct(returns []float64) float64 {
	profitable := 0
	for _, r := range returns {
		if r > 0 {
			profitable++
		}
	}
	return float64(profitable) / float64(len(returns)) * 100
}

// sharpeRatio is (mean - riskFree) / stdDev over the return series,
// defined as 0 for a zero-variance series rather than dividing by zero.
func sharpeRatio(returns []float64) float64 {
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))
	stdDev := math.Sqrt(variance)

	if stdDev == 0 {
		return 0
	}
	return (mean - riskFreeRate) / stdDev
}

// avgVolumeScore is a liquidity proxy: log-scaled pool liquidity of
// each scan averaged across the history. Scans without enrichment
// contribute zero.
func avgVolumeScore(scans []models.Scan) float64 {
	total := 0.0
	for _, scan := range scans {
		if scan.Liquidity <= 0 {
			continue
		}
		// $1 -> 0, $10M -> ~100, capped.
		total += math.Min(100, math.Log10(scan.Liquidity)*100/7)
	}
	return total / float64(len(scans))
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
