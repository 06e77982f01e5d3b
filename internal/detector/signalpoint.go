package detector

import (
	"github.com/marketsentinel/sentinel/internal/domain"
)

// minSignalTrades is the shortest prefix worth scoring; anything less
// produces indicator noise rather than a signal.
const minSignalTrades = 10

// FindSignalPoint walks growing prefixes of a market's trade history
// and returns the moment the aggregated suspicion peaked. Price
// movement is excluded from the aggregate because partial prefixes
// exaggerate it. Ties keep the earliest prefix, so the reported signal
// is the first time the peak was reached. Returns nil when the history
// is too short to score.
func FindSignalPoint(trades []domain.Trade) *domain.SignalPoint {
	if len(trades) < minSignalTrades {
		return nil
	}

	sorted := sortedByTime(trades)

	var best *domain.SignalPoint
	for i := minSignalTrades; i <= len(sorted); i++ {
		prefix := sorted[:i]
		whaleScore, _ := WhaleAccumulation(prefix)
		scores := map[string]domain.IndicatorScore{
			domain.IndicatorConcentration: Concentration(prefix),
			domain.IndicatorVelocity:      Velocity(prefix),
			domain.IndicatorOutcomeSkew:   OutcomeSkew(prefix),
			domain.IndicatorWhale:         whaleScore,
		}
		prob := InsiderProbability(scores)
		if best == nil || prob > best.Probability {
			best = &domain.SignalPoint{
				Timestamp:   prefix[i-1].Timestamp,
				Probability: prob,
				TradeIndex:  i,
			}
		}
	}
	return best
}
