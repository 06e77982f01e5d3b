package backtest

import (
	"sort"

	"github.com/marketsentinel/sentinel/internal/domain"
)

var indicatorNames = []string{
	domain.IndicatorConcentration,
	domain.IndicatorVelocity,
	domain.IndicatorOutcomeSkew,
	domain.IndicatorPriceMovement,
	domain.IndicatorWhale,
}

// Effectiveness measures which indicators separated correct from
// incorrect outcome predictions. Only resolved results count. The
// delta stays zero unless an indicator has samples on both sides, so
// a lopsided sample cannot fake a discriminating indicator. Results
// are ranked by delta, best discriminator first.
func Effectiveness(results []domain.BacktestResult) []domain.IndicatorEffectiveness {
	out := make([]domain.IndicatorEffectiveness, 0, len(indicatorNames))
	for _, name := range indicatorNames {
		var correct, incorrect []float64
		for _, r := range results {
			if r.PredictedCorrectly == nil {
				continue
			}
			score, ok := r.Indicators[name]
			if !ok {
				continue
			}
			if *r.PredictedCorrectly {
				correct = append(correct, score.Score)
			} else {
				incorrect = append(incorrect, score.Score)
			}
		}

		eff := domain.IndicatorEffectiveness{
			Indicator:      name,
			MeanCorrect:    mean(correct),
			MeanIncorrect:  mean(incorrect),
			CorrectCount:   len(correct),
			IncorrectCount: len(incorrect),
		}
		if len(correct) > 0 && len(incorrect) > 0 {
			eff.Delta = eff.MeanCorrect - eff.MeanIncorrect
		}
		out = append(out, eff)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Delta > out[j].Delta
	})
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
