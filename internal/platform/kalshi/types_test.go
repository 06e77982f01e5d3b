package kalshi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketsentinel/sentinel/internal/domain"
)

func TestToSnapshotNormalizesCents(t *testing.T) {
	m := KalshiMarket{
		Ticker:    "FED-26MAR",
		Title:     "Will the Fed cut in March?",
		Status:    "open",
		YesBid:    62,
		YesAsk:    64,
		LastPrice: 63,
		Volume:    15000,
		Volume24H: 1200,
		CloseTime: "2026-03-18T20:00:00Z",
	}

	snap := m.ToSnapshot()
	assert.Equal(t, domain.PlatformKalshi, snap.Platform)
	assert.Equal(t, []string{"Yes", "No"}, snap.Outcomes)
	require.Len(t, snap.Prices, 2)
	assert.InDelta(t, 0.63, snap.Prices[0], 1e-9)
	assert.InDelta(t, 0.37, snap.Prices[1], 1e-9)
	assert.True(t, snap.Active)
	assert.False(t, snap.Resolved)
	require.NotNil(t, snap.CloseTime)
}

func TestToSnapshotFallsBackToLastPrice(t *testing.T) {
	m := KalshiMarket{Ticker: "X", LastPrice: 91, Status: "open"}
	snap := m.ToSnapshot()
	assert.InDelta(t, 0.91, snap.Prices[0], 1e-9)
}

func TestToSnapshotSettled(t *testing.T) {
	m := KalshiMarket{Ticker: "X", Status: "settled", Result: "no", LastPrice: 1}
	snap := m.ToSnapshot()
	assert.True(t, snap.Resolved)
	assert.Equal(t, "kalshi", snap.ResolutionSource)
	assert.Equal(t, "No", snap.ResolvedOutcome)
	assert.False(t, snap.Active)
}
