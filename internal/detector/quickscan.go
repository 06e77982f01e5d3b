package detector

import (
	"math"
	"time"

	"github.com/marketsentinel/sentinel/internal/domain"
)

// Severity bands for quick-scan skew scores.
const (
	SeverityBalanced = "balanced"
	SeverityModerate = "moderate"
	SeverityHigh     = "high"
	SeverityExtreme  = "extreme"
)

// AnalyzeSnapshot scores a market from its outcome prices alone, with
// no trade history. On a two-outcome market it agrees with OutcomeSkew
// because the top price is the top volume share of an efficient book.
// Returns nil when the snapshot carries no prices.
func AnalyzeSnapshot(snapshot domain.MarketSnapshot) *domain.QuickScan {
	if len(snapshot.Prices) == 0 || snapshot.ID == "" {
		return nil
	}

	outcome, price := snapshot.TopOutcome()
	score := clampScore(math.Abs(price-0.5) * 20)

	return &domain.QuickScan{
		MarketID:   snapshot.ID,
		Platform:   snapshot.Platform,
		Question:   snapshot.Question,
		TopOutcome: outcome,
		TopPrice:   price,
		SkewScore:  score,
		Severity:   severity(score),
		Volume:     snapshot.Volume,
		ScannedAt:  time.Now().UTC(),
	}
}

func severity(score float64) string {
	switch {
	case score >= 9:
		return SeverityExtreme
	case score >= 7:
		return SeverityHigh
	case score >= 4:
		return SeverityModerate
	default:
		return SeverityBalanced
	}
}
