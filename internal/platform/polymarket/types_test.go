package polymarket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketsentinel/sentinel/internal/domain"
)

func TestAPIMarketToSnapshot(t *testing.T) {
	raw := []byte(`{
		"id": "123",
		"question": "Will X win?",
		"slug": "will-x-win",
		"active": "true",
		"closed": false,
		"outcomes": "[\"Yes\",\"No\"]",
		"outcomePrices": "[\"0.83\",\"0.17\"]",
		"clobTokenIds": "[\"111\",\"222\"]",
		"volume": "125000.5",
		"liquidity": 4000,
		"endDate": "2026-06-01T00:00:00Z",
		"resolutionSource": "",
		"resolvedBy": ""
	}`)

	var m APIMarket
	require.NoError(t, json.Unmarshal(raw, &m))

	snap := m.ToSnapshot()
	assert.Equal(t, "123", snap.ID)
	assert.Equal(t, domain.PlatformPolymarket, snap.Platform)
	assert.Equal(t, []string{"Yes", "No"}, snap.Outcomes)
	assert.Equal(t, []string{"111", "222"}, snap.TokenIDs)
	require.Len(t, snap.Prices, 2)
	assert.InDelta(t, 0.83, snap.Prices[0], 1e-9)
	assert.InDelta(t, 125000.5, snap.Volume, 1e-9)
	assert.InDelta(t, 4000.0, snap.Liquidity, 1e-9)
	assert.True(t, snap.Active)
	assert.False(t, snap.Resolved)
	require.NotNil(t, snap.CloseTime)
	assert.Equal(t, 2026, snap.CloseTime.Year())
}

func TestAPIMarketToSnapshotResolved(t *testing.T) {
	m := APIMarket{
		ID:               "77",
		Question:         "Resolved?",
		ResolutionSource: "uma",
		ResolvedBy:       "Yes",
		Closed:           true,
	}
	snap := m.ToSnapshot()
	assert.True(t, snap.Resolved)
	assert.Equal(t, "uma", snap.ResolutionSource)
	assert.Equal(t, "Yes", snap.ResolvedOutcome)
	assert.False(t, snap.Active)
}

func TestAPIMarketMalformedListFields(t *testing.T) {
	m := APIMarket{ID: "9", Outcomes: "not json", OutcomePrices: "", ClobTokenIDs: "{"}
	snap := m.ToSnapshot()
	assert.Nil(t, snap.Outcomes)
	assert.Nil(t, snap.Prices)
	assert.Nil(t, snap.TokenIDs)
	assert.Equal(t, "Unknown", snap.Question)
}

func TestAPITradeToTrade(t *testing.T) {
	ts := time.Date(2026, 1, 5, 8, 30, 0, 0, time.UTC)
	at := APITrade{
		ProxyWallet:     "0xabc",
		Side:            "BUY",
		Size:            200,
		Price:           0.41,
		Timestamp:       ts.Unix(),
		Outcome:         "Yes",
		TransactionHash: "0xdeadbeef",
	}
	tr := at.ToTrade("tok-1")
	assert.Equal(t, "0xdeadbeef_"+"1767601800", tr.ID) // no upstream ID, txhash fallback
	assert.Equal(t, "tok-1", tr.TokenID)
	assert.Equal(t, "buy", tr.Side)
	assert.Equal(t, "0xabc", tr.Address())
	assert.InDelta(t, 82.0, tr.Value(), 1e-9)
	assert.Equal(t, ts, tr.Timestamp)

	at.ID = "trade-9"
	assert.Equal(t, "trade-9", at.ToTrade("tok-1").ID)
}
