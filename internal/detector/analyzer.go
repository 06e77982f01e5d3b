package detector

import (
	"time"

	"github.com/google/uuid"

	"github.com/marketsentinel/sentinel/internal/domain"
)

// maxWhalesReported bounds the whale list carried on an analysis.
const maxWhalesReported = 10

// Analyze runs every indicator over a market's trade history and
// aggregates the results. Returns nil when there is nothing to score:
// no trades, or a snapshot without an ID.
func Analyze(snapshot domain.MarketSnapshot, trades []domain.Trade) *domain.InsiderAnalysis {
	if len(trades) == 0 || snapshot.ID == "" {
		return nil
	}

	whaleScore, whales := WhaleAccumulation(trades)
	scores := map[string]domain.IndicatorScore{
		domain.IndicatorConcentration: Concentration(trades),
		domain.IndicatorVelocity:      Velocity(trades),
		domain.IndicatorOutcomeSkew:   OutcomeSkew(trades),
		domain.IndicatorPriceMovement: PriceMovement(trades),
		domain.IndicatorWhale:         whaleScore,
	}
	if len(whales) > maxWhalesReported {
		whales = whales[:maxWhalesReported]
	}

	var total float64
	for _, t := range trades {
		total += t.Value()
	}

	return &domain.InsiderAnalysis{
		ID:                 uuid.NewString(),
		MarketID:           snapshot.ID,
		Platform:           snapshot.Platform,
		Question:           snapshot.Question,
		Indicators:         scores,
		InsiderProbability: InsiderProbability(scores),
		RiskScore:          RiskScore(scores),
		Whales:             whales,
		OutcomeVolumes:     OutcomeVolumes(trades),
		TradeCount:         len(trades),
		TotalVolume:        total,
		ComputedAt:         time.Now().UTC(),
	}
}
