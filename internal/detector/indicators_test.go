package detector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketsentinel/sentinel/internal/domain"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func mkTrade(addr, outcome string, price, size float64, at time.Time) domain.Trade {
	return domain.Trade{
		ID:        addr + at.Format(time.RFC3339Nano),
		MarketID:  "mkt-1",
		Platform:  domain.PlatformPolymarket,
		Outcome:   outcome,
		Price:     price,
		Size:      size,
		Maker:     addr,
		Timestamp: at,
	}
}

func TestConcentrationSingleAddress(t *testing.T) {
	trades := []domain.Trade{
		mkTrade("0xaa", "Yes", 0.5, 100, baseTime),
		mkTrade("0xaa", "Yes", 0.6, 200, baseTime.Add(time.Minute)),
	}
	got := Concentration(trades)
	assert.Equal(t, 10.0, got.Score)
	assert.InDelta(t, 1.0, got.Details["herfindahl"], 1e-9)
	assert.Equal(t, 1.0, got.Details["unique_addresses"])
}

func TestConcentrationEvenSplit(t *testing.T) {
	var trades []domain.Trade
	for i, addr := range []string{"0xa", "0xb", "0xc", "0xd"} {
		trades = append(trades, mkTrade(addr, "Yes", 0.5, 100, baseTime.Add(time.Duration(i)*time.Minute)))
	}
	got := Concentration(trades)
	assert.InDelta(t, 2.5, got.Score, 1e-9) // H = 4 * 0.25^2
	assert.InDelta(t, 0.75, got.Details["top3_ratio"], 1e-9)
}

func TestConcentrationDegenerateInput(t *testing.T) {
	assert.Zero(t, Concentration(nil).Score)
	assert.Nil(t, Concentration(nil).Details)

	// Trades with no addresses or zero size carry no signal.
	zeroSize := []domain.Trade{
		mkTrade("0xaa", "Yes", 0.5, 0, baseTime),
		mkTrade("", "Yes", 0.5, 100, baseTime),
	}
	assert.Zero(t, Concentration(zeroSize).Score)
}

func TestVelocity(t *testing.T) {
	var trades []domain.Trade
	for i := 0; i < 21; i++ {
		trades = append(trades, mkTrade("0xa", "Yes", 0.5, 10, baseTime.Add(time.Duration(i)*3*time.Minute)))
	}
	got := Velocity(trades)
	// 21 trades over exactly one hour.
	assert.InDelta(t, 21.0, got.Details["trades_per_hour"], 1e-9)
	assert.InDelta(t, 2.1, got.Score, 1e-9)
	assert.Equal(t, 21.0, got.Details["trades_24h"])
}

func TestVelocityBurstUsesTimeFloor(t *testing.T) {
	trades := []domain.Trade{
		mkTrade("0xa", "Yes", 0.5, 10, baseTime),
		mkTrade("0xb", "Yes", 0.5, 10, baseTime.Add(time.Second)),
		mkTrade("0xc", "Yes", 0.5, 10, baseTime.Add(2*time.Second)),
	}
	got := Velocity(trades)
	// Span floors at 0.1h, so 3 trades rate at 30/h, score 3.
	assert.InDelta(t, 3.0, got.Score, 1e-9)
}

func TestVelocityTooFewTrades(t *testing.T) {
	one := []domain.Trade{mkTrade("0xa", "Yes", 0.5, 10, baseTime)}
	assert.Zero(t, Velocity(one).Score)
	assert.Nil(t, Velocity(one).Details)
}

func TestOutcomeSkew(t *testing.T) {
	tests := []struct {
		name      string
		yesVolume float64
		noVolume  float64
		want      float64
	}{
		{"even split", 500, 500, 0},
		{"three quarters", 750, 250, 5},
		{"one sided", 1000, 0, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var trades []domain.Trade
			if tt.yesVolume > 0 {
				trades = append(trades, mkTrade("0xa", "Yes", 1, tt.yesVolume, baseTime))
			}
			if tt.noVolume > 0 {
				trades = append(trades, mkTrade("0xb", "No", 1, tt.noVolume, baseTime))
			}
			got := OutcomeSkew(trades)
			assert.InDelta(t, tt.want, got.Score, 1e-9)
		})
	}
}

func TestOutcomeVolumes(t *testing.T) {
	trades := []domain.Trade{
		mkTrade("0xa", "Yes", 0.5, 100, baseTime),
		mkTrade("0xb", "Yes", 0.5, 100, baseTime),
		mkTrade("0xc", "No", 0.25, 100, baseTime),
		mkTrade("0xd", "", 0.9, 100, baseTime), // no outcome, skipped
	}
	got := OutcomeVolumes(trades)
	require.Len(t, got, 2)
	assert.InDelta(t, 200.0, got["Yes"], 1e-9)
	assert.InDelta(t, 100.0, got["No"], 1e-9)
	assert.Nil(t, OutcomeVolumes(nil))
}

func TestPriceMovement(t *testing.T) {
	trades := []domain.Trade{
		mkTrade("0xa", "Yes", 0.50, 10, baseTime),
		mkTrade("0xb", "Yes", 0.52, 10, baseTime.Add(time.Minute)),
		mkTrade("0xc", "Yes", 0.51, 10, baseTime.Add(2*time.Minute)),
	}
	got := PriceMovement(trades)
	// changes 0.04 and 0.0192, mean 0.0296, sample stdev 0.0147.
	assert.InDelta(t, 2.215, got.Score, 0.01)
	assert.Equal(t, 2.0, got.Details["num_moves"])
}

func TestPriceMovementFlat(t *testing.T) {
	var trades []domain.Trade
	for i := 0; i < 5; i++ {
		trades = append(trades, mkTrade("0xa", "Yes", 0.5, 10, baseTime.Add(time.Duration(i)*time.Minute)))
	}
	assert.Zero(t, PriceMovement(trades).Score)
}

func TestPriceMovementTooFewTrades(t *testing.T) {
	trades := []domain.Trade{
		mkTrade("0xa", "Yes", 0.1, 10, baseTime),
		mkTrade("0xb", "Yes", 0.9, 10, baseTime.Add(time.Minute)),
	}
	assert.Zero(t, PriceMovement(trades).Score)
}

func TestWhaleAccumulation(t *testing.T) {
	trades := []domain.Trade{
		// Whale: two fills, 500 shares total, inside one hour.
		mkTrade("0xwhale", "Yes", 0.5, 250, baseTime),
		mkTrade("0xwhale", "Yes", 0.5, 250, baseTime.Add(30*time.Minute)),
		// One-off account, never an accumulation pattern.
		mkTrade("0xonce", "No", 0.5, 9000, baseTime),
	}
	score, whales := WhaleAccumulation(trades)
	require.Len(t, whales, 1)
	assert.Equal(t, "0xwhale", whales[0].Address)
	assert.InDelta(t, 500.0, whales[0].Position, 1e-9)
	// Sub-hour accumulation floors the window at one hour.
	assert.InDelta(t, 500.0, whales[0].AccumulationSpeed, 1e-9)
	assert.InDelta(t, 5.0, score.Score, 1e-9)
}

func TestWhaleAccumulationRanking(t *testing.T) {
	trades := []domain.Trade{
		mkTrade("0xslow", "Yes", 1, 100, baseTime),
		mkTrade("0xslow", "Yes", 1, 100, baseTime.Add(10*time.Hour)),
		mkTrade("0xfast", "Yes", 1, 300, baseTime),
		mkTrade("0xfast", "Yes", 1, 300, baseTime.Add(time.Hour)),
	}
	score, whales := WhaleAccumulation(trades)
	require.Len(t, whales, 2)
	assert.Equal(t, "0xfast", whales[0].Address)
	assert.InDelta(t, 600.0, whales[0].AccumulationSpeed, 1e-9)
	assert.InDelta(t, 6.0, score.Score, 1e-9)
}

func TestWhaleAccumulationNoRepeats(t *testing.T) {
	trades := []domain.Trade{
		mkTrade("0xa", "Yes", 0.5, 100, baseTime),
		mkTrade("0xb", "Yes", 0.5, 100, baseTime),
	}
	score, whales := WhaleAccumulation(trades)
	assert.Zero(t, score.Score)
	assert.Nil(t, whales)
}

// The volume basis for concentration, skew, and whale accumulation is
// shares traded, never price times size. A longshot position must weigh
// the same as an even-odds one.
func TestVolumeBasisIsShares(t *testing.T) {
	base := baseTime

	// Equal notional on both sides ($90 each), very different share counts.
	mixed := []domain.Trade{
		mkTrade("0xhi", "Yes", 0.9, 100, base),
		mkTrade("0xlo", "No", 0.1, 900, base.Add(time.Minute)),
	}

	conc := Concentration(mixed)
	// Shares split 100/900, so H = 0.1^2 + 0.9^2 = 0.82.
	assert.InDelta(t, 0.82, conc.Details["herfindahl"], 1e-9)
	assert.InDelta(t, 8.2, conc.Score, 1e-9)

	skew := OutcomeSkew(mixed)
	// No holds 90% of the shares: |0.9 - 0.5| * 20 = 8.
	assert.InDelta(t, 0.9, skew.Details["largest_share"], 1e-9)
	assert.InDelta(t, 8.0, skew.Score, 1e-9)

	// 1000 shares in an hour at ten cents maxes the whale score even
	// though only $100 changed hands.
	var cheap []domain.Trade
	for i := 0; i < 10; i++ {
		cheap = append(cheap, mkTrade("0xwhale", "Yes", 0.10, 100, base.Add(time.Duration(i)*6*time.Minute)))
	}
	score, whales := WhaleAccumulation(cheap)
	require.Len(t, whales, 1)
	assert.InDelta(t, 1000.0, whales[0].Position, 1e-9)
	assert.InDelta(t, 1000.0, whales[0].AccumulationSpeed, 1e-9)
	assert.Equal(t, 10.0, score.Score)
}

func TestScoresClamped(t *testing.T) {
	// A monster whale should still cap at 10.
	trades := []domain.Trade{
		mkTrade("0xwhale", "Yes", 1, 1e6, baseTime),
		mkTrade("0xwhale", "Yes", 1, 1e6, baseTime.Add(time.Minute)),
	}
	score, _ := WhaleAccumulation(trades)
	assert.Equal(t, 10.0, score.Score)

	assert.Equal(t, 0.0, clampScore(-3))
	assert.Equal(t, 10.0, clampScore(42))
}
