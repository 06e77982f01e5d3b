package detector

import (
	"math"

	"github.com/marketsentinel/sentinel/internal/domain"
)

// indicatorWeights is the fixed contribution of each indicator to the
// aggregated probability. The weights sum to 1.
var indicatorWeights = map[string]float64{
	domain.IndicatorConcentration: 0.25,
	domain.IndicatorVelocity:      0.15,
	domain.IndicatorOutcomeSkew:   0.20,
	domain.IndicatorPriceMovement: 0.15,
	domain.IndicatorWhale:         0.25,
}

// InsiderProbability folds indicator scores into a probability in
// [0,1]. Missing indicators contribute nothing, so a sparse score set
// can only lower the result.
func InsiderProbability(scores map[string]domain.IndicatorScore) float64 {
	var weighted float64
	for name, w := range indicatorWeights {
		if s, ok := scores[name]; ok {
			weighted += s.Score * w
		}
	}
	return math.Min(weighted/10, 1)
}

// RiskScore is the quick-risk aggregate over the three indicators that
// need no price or per-account history depth.
func RiskScore(scores map[string]domain.IndicatorScore) float64 {
	sum := scores[domain.IndicatorConcentration].Score +
		scores[domain.IndicatorVelocity].Score +
		scores[domain.IndicatorOutcomeSkew].Score
	return sum / 3
}
