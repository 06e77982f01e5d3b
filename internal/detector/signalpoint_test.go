package detector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketsentinel/sentinel/internal/domain"
)

func TestFindSignalPointTooFewTrades(t *testing.T) {
	var trades []domain.Trade
	for i := 0; i < 9; i++ {
		trades = append(trades, mkTrade("0xa", "Yes", 0.5, 10, baseTime.Add(time.Duration(i)*time.Minute)))
	}
	assert.Nil(t, FindSignalPoint(trades))
}

func TestFindSignalPointEarliestOnPlateau(t *testing.T) {
	// Distinct single-trade accounts on one outcome: concentration
	// falls as the prefix grows, so the first prefix is the peak.
	var trades []domain.Trade
	for i := 0; i < 15; i++ {
		addr := string(rune('a'+i)) + "-account"
		trades = append(trades, mkTrade(addr, "Yes", 0.5, 10, baseTime.Add(time.Duration(i)*time.Minute)))
	}
	sp := FindSignalPoint(trades)
	require.NotNil(t, sp)
	assert.Equal(t, 10, sp.TradeIndex)
	assert.Equal(t, baseTime.Add(9*time.Minute), sp.Timestamp)
}

func TestFindSignalPointDetectsBurst(t *testing.T) {
	var trades []domain.Trade
	// Twelve quiet, balanced trades over twelve hours.
	for i := 0; i < 12; i++ {
		addr := string(rune('a'+i)) + "-retail"
		outcome := "Yes"
		if i%2 == 1 {
			outcome = "No"
		}
		trades = append(trades, mkTrade(addr, outcome, 0.5, 10, baseTime.Add(time.Duration(i)*time.Hour)))
	}
	burstStart := baseTime.Add(13 * time.Hour)
	// Then a single account hammers one side.
	for i := 0; i < 8; i++ {
		trades = append(trades, mkTrade("0xinsider", "Yes", 0.55, 2000, burstStart.Add(time.Duration(i)*time.Minute)))
	}

	sp := FindSignalPoint(trades)
	require.NotNil(t, sp)
	assert.Greater(t, sp.TradeIndex, 12)
	assert.False(t, sp.Timestamp.Before(burstStart))
	assert.Greater(t, sp.Probability, 0.3)
}

func TestFindSignalPointUnsortedInput(t *testing.T) {
	var trades []domain.Trade
	for i := 11; i >= 0; i-- {
		trades = append(trades, mkTrade("0xa", "Yes", 0.5, 10, baseTime.Add(time.Duration(i)*time.Minute)))
	}
	sp := FindSignalPoint(trades)
	require.NotNil(t, sp)
	// The reported timestamp must come from the time-ordered prefix.
	assert.Equal(t, baseTime.Add(time.Duration(sp.TradeIndex-1)*time.Minute), sp.Timestamp)
}
