package manifold

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketsentinel/sentinel/internal/domain"
)

func TestAPIMarketToSnapshot(t *testing.T) {
	closeMillis := time.Now().Add(48 * time.Hour).UnixMilli()
	m := APIMarket{
		ID:            "mf-1",
		Question:      "Will it ship this quarter?",
		OutcomeType:   "BINARY",
		Probability:   0.93,
		Volume:        8200,
		Volume24Hours: 640,
		UniqueBettors: 41,
		CloseTime:     closeMillis,
	}

	snap := m.ToSnapshot()
	assert.Equal(t, domain.PlatformManifold, snap.Platform)
	require.Len(t, snap.Prices, 2)
	assert.InDelta(t, 0.93, snap.Prices[0], 1e-9)
	assert.InDelta(t, 0.07, snap.Prices[1], 1e-9)
	assert.Equal(t, 41, snap.UniqueBettors)
	assert.True(t, snap.Active)
}

func TestAPIMarketToSnapshotResolved(t *testing.T) {
	m := APIMarket{
		ID:           "mf-2",
		OutcomeType:  "BINARY",
		IsResolved:   true,
		Resolution:   "YES",
		ResolutionTs: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC).UnixMilli(),
	}
	snap := m.ToSnapshot()
	assert.True(t, snap.Resolved)
	assert.Equal(t, "manifold", snap.ResolutionSource)
	assert.Equal(t, "Yes", snap.ResolvedOutcome)
	require.NotNil(t, snap.ResolvedAt)
	assert.False(t, snap.Active)
}
