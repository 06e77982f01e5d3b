package detector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketsentinel/sentinel/internal/domain"
)

func TestInsiderProbability(t *testing.T) {
	full := map[string]domain.IndicatorScore{
		domain.IndicatorConcentration: {Score: 10},
		domain.IndicatorVelocity:      {Score: 10},
		domain.IndicatorOutcomeSkew:   {Score: 10},
		domain.IndicatorPriceMovement: {Score: 10},
		domain.IndicatorWhale:         {Score: 10},
	}
	assert.InDelta(t, 1.0, InsiderProbability(full), 1e-9)

	assert.Zero(t, InsiderProbability(nil))

	only := map[string]domain.IndicatorScore{
		domain.IndicatorConcentration: {Score: 10},
	}
	assert.InDelta(t, 0.25, InsiderProbability(only), 1e-9)
}

func TestRiskScore(t *testing.T) {
	scores := map[string]domain.IndicatorScore{
		domain.IndicatorConcentration: {Score: 6},
		domain.IndicatorVelocity:      {Score: 3},
		domain.IndicatorOutcomeSkew:   {Score: 9},
		// Movement and whale scores must not leak into the risk mean.
		domain.IndicatorPriceMovement: {Score: 10},
		domain.IndicatorWhale:         {Score: 10},
	}
	assert.InDelta(t, 6.0, RiskScore(scores), 1e-9)
}

func TestAnalyze(t *testing.T) {
	snapshot := domain.MarketSnapshot{
		ID:       "mkt-1",
		Platform: domain.PlatformPolymarket,
		Question: "Will it happen?",
	}
	var trades []domain.Trade
	for i := 0; i < 8; i++ {
		trades = append(trades, mkTrade("0xwhale", "Yes", 0.6, 200, baseTime.Add(time.Duration(i)*5*time.Minute)))
	}
	trades = append(trades, mkTrade("0xother", "No", 0.4, 50, baseTime.Add(time.Hour)))

	a := Analyze(snapshot, trades)
	require.NotNil(t, a)
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "mkt-1", a.MarketID)
	assert.Equal(t, domain.PlatformPolymarket, a.Platform)
	assert.Len(t, a.Indicators, 5)
	assert.GreaterOrEqual(t, a.InsiderProbability, 0.0)
	assert.LessOrEqual(t, a.InsiderProbability, 1.0)
	expectedRisk := (a.Score(domain.IndicatorConcentration) +
		a.Score(domain.IndicatorVelocity) +
		a.Score(domain.IndicatorOutcomeSkew)) / 3
	assert.InDelta(t, expectedRisk, a.RiskScore, 1e-9)
	assert.Equal(t, 9, a.TradeCount)
	assert.InDelta(t, 8*120+20, a.TotalVolume, 1e-9)
	require.Len(t, a.Whales, 1)
	assert.Equal(t, "0xwhale", a.Whales[0].Address)
	assert.InDelta(t, 1600.0, a.OutcomeVolumes["Yes"], 1e-9)
	assert.InDelta(t, 50.0, a.OutcomeVolumes["No"], 1e-9)
}

func TestAnalyzeNothingToScore(t *testing.T) {
	assert.Nil(t, Analyze(domain.MarketSnapshot{ID: "mkt-1"}, nil))
	assert.Nil(t, Analyze(domain.MarketSnapshot{}, []domain.Trade{mkTrade("0xa", "Yes", 0.5, 10, baseTime)}))
}
