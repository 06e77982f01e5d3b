package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketsentinel/sentinel/internal/domain"
)

func TestAnalyzeSnapshot(t *testing.T) {
	tests := []struct {
		name         string
		prices       []float64
		wantScore    float64
		wantSeverity string
	}{
		{"even", []float64{0.5, 0.5}, 0, SeverityBalanced},
		{"moderate", []float64{0.72, 0.28}, 4.4, SeverityModerate},
		{"high", []float64{0.87, 0.13}, 7.4, SeverityHigh},
		{"extreme", []float64{0.99, 0.01}, 9.8, SeverityExtreme},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := domain.MarketSnapshot{
				ID:       "mkt-1",
				Platform: domain.PlatformKalshi,
				Question: "q",
				Outcomes: []string{"Yes", "No"},
				Prices:   tt.prices,
			}
			got := AnalyzeSnapshot(snap)
			require.NotNil(t, got)
			assert.InDelta(t, tt.wantScore, got.SkewScore, 1e-9)
			assert.Equal(t, tt.wantSeverity, got.Severity)
			assert.Equal(t, "Yes", got.TopOutcome)
		})
	}
}

func TestAnalyzeSnapshotNoPrices(t *testing.T) {
	assert.Nil(t, AnalyzeSnapshot(domain.MarketSnapshot{ID: "mkt-1"}))
	assert.Nil(t, AnalyzeSnapshot(domain.MarketSnapshot{Prices: []float64{0.5}}))
}

// On a two-outcome market, scanning the book prices and scoring the
// volume distribution must agree when volume tracks price.
func TestQuickScanMatchesOutcomeSkew(t *testing.T) {
	snap := domain.MarketSnapshot{
		ID:       "mkt-1",
		Outcomes: []string{"Yes", "No"},
		Prices:   []float64{0.8, 0.2},
	}
	trades := []domain.Trade{
		mkTrade("0xa", "Yes", 1, 800, baseTime),
		mkTrade("0xb", "No", 1, 200, baseTime),
	}
	qs := AnalyzeSnapshot(snap)
	require.NotNil(t, qs)
	skew := OutcomeSkew(trades)
	assert.InDelta(t, skew.Score, qs.SkewScore, 1e-9)
}
