package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketsentinel/sentinel/internal/domain"
)

func result(correct *bool, scores map[string]float64) domain.BacktestResult {
	indicators := make(map[string]domain.IndicatorScore, len(scores))
	for name, s := range scores {
		indicators[name] = domain.IndicatorScore{Score: s}
	}
	return domain.BacktestResult{
		Indicators:         indicators,
		PredictedCorrectly: correct,
	}
}

func boolPtr(b bool) *bool { return &b }

func TestEffectivenessRanksByDelta(t *testing.T) {
	results := []domain.BacktestResult{
		result(boolPtr(true), map[string]float64{
			domain.IndicatorConcentration: 8,
			domain.IndicatorVelocity:      2,
		}),
		result(boolPtr(true), map[string]float64{
			domain.IndicatorConcentration: 6,
			domain.IndicatorVelocity:      4,
		}),
		result(boolPtr(false), map[string]float64{
			domain.IndicatorConcentration: 2,
			domain.IndicatorVelocity:      5,
		}),
	}

	effs := Effectiveness(results)
	require.Len(t, effs, 5)

	// Concentration separates best: 7 vs 2.
	assert.Equal(t, domain.IndicatorConcentration, effs[0].Indicator)
	assert.InDelta(t, 7.0, effs[0].MeanCorrect, 1e-9)
	assert.InDelta(t, 2.0, effs[0].MeanIncorrect, 1e-9)
	assert.InDelta(t, 5.0, effs[0].Delta, 1e-9)
	assert.Equal(t, 2, effs[0].CorrectCount)
	assert.Equal(t, 1, effs[0].IncorrectCount)

	// Velocity hurts: 3 vs 5.
	last := effs[len(effs)-1]
	assert.Equal(t, domain.IndicatorVelocity, last.Indicator)
	assert.InDelta(t, -2.0, last.Delta, 1e-9)
}

func TestEffectivenessNeedsBothSides(t *testing.T) {
	results := []domain.BacktestResult{
		result(boolPtr(true), map[string]float64{domain.IndicatorWhale: 9}),
		result(boolPtr(true), map[string]float64{domain.IndicatorWhale: 7}),
	}
	effs := Effectiveness(results)
	for _, e := range effs {
		if e.Indicator == domain.IndicatorWhale {
			assert.InDelta(t, 8.0, e.MeanCorrect, 1e-9)
			assert.Zero(t, e.Delta)
		}
	}
}

func TestEffectivenessIgnoresUnresolved(t *testing.T) {
	results := []domain.BacktestResult{
		result(nil, map[string]float64{domain.IndicatorConcentration: 10}),
	}
	effs := Effectiveness(results)
	for _, e := range effs {
		assert.Zero(t, e.CorrectCount)
		assert.Zero(t, e.IncorrectCount)
		assert.Zero(t, e.Delta)
	}
}
