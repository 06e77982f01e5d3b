package report

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketsentinel/sentinel/internal/domain"
)

func sampleAnalysis() domain.InsiderAnalysis {
	return domain.InsiderAnalysis{
		ID:       "a1",
		MarketID: "mkt-1",
		Platform: domain.PlatformPolymarket,
		Question: "Will the bill pass?",
		Indicators: map[string]domain.IndicatorScore{
			domain.IndicatorConcentration: {Score: 8.2},
			domain.IndicatorVelocity:      {Score: 3.1},
			domain.IndicatorOutcomeSkew:   {Score: 9.0},
			domain.IndicatorPriceMovement: {Score: 1.4},
			domain.IndicatorWhale:         {Score: 7.7},
		},
		InsiderProbability: 0.64,
		RiskScore:          6.8,
		Whales: []domain.WhalePosition{
			{Address: "0x1234567890abcdef", Position: 12000, TradeCount: 14, AccumulationSpeed: 3000},
		},
		TradeCount:  210,
		TotalVolume: 52000,
		ComputedAt:  time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestWriteScanReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteScanReport(&buf, []domain.InsiderAnalysis{sampleAnalysis()}))

	out := buf.String()
	assert.Contains(t, out, "Will the bill pass?")
	assert.Contains(t, out, "Insider probability: 64%")
	assert.Contains(t, out, "Outcome skew")
	assert.Contains(t, out, "0x123456..cdef")
	assert.Contains(t, out, "12000 shares over 14 trades (3000/h)")
}

func TestWriteScanReportEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteScanReport(&buf, nil))
	assert.Contains(t, buf.String(), "No markets analyzed")
}

func TestWriteBacktestReportCountsVerdicts(t *testing.T) {
	yes, no := true, false
	results := []domain.BacktestResult{
		{Question: "A", Platform: domain.PlatformPolymarket, SignalProbability: 0.9,
			PredictedOutcome: "Yes", PredictedCorrectly: &yes, PriceMovePct: 12},
		{Question: "B", Platform: domain.PlatformKalshi, SignalProbability: 0.7,
			PredictedOutcome: "No", PredictedCorrectly: &no, PriceMovePct: -4},
		{Question: "C", Platform: domain.PlatformManifold, SignalProbability: 0.6,
			PredictedOutcome: "Yes"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteBacktestReport(&buf, results, []domain.IndicatorEffectiveness{
		{Indicator: domain.IndicatorWhale, Delta: 2.5, MeanCorrect: 8, MeanIncorrect: 5.5, CorrectCount: 1, IncorrectCount: 1},
	}))

	out := buf.String()
	assert.Contains(t, out, "Backtested 3 markets: 1 correct, 1 incorrect, 1 unresolved")
	assert.Contains(t, out, "Hit rate on resolved markets: 50%")
	assert.Contains(t, out, "Whale accumulation")
	assert.Contains(t, out, "delta +2.50")
}

func TestExportAnalysesCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportAnalysesCSV(&buf, []domain.InsiderAnalysis{sampleAnalysis()}))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	header := rows[0]
	assert.Equal(t, "market_id", header[0])
	assert.Equal(t, "whale", header[11])

	row := rows[1]
	assert.Equal(t, "mkt-1", row[0])
	assert.Equal(t, "0.6400", row[3])
	assert.Equal(t, "8.2000", row[7])
}

func TestExportBacktestsCSVNilVerdict(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportBacktestsCSV(&buf, []domain.BacktestResult{
		{MarketID: "m", Platform: domain.PlatformPolymarket, SignalTime: time.Unix(0, 0)},
	}))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "", rows[1][12], "unresolved markets leave the verdict column empty")
}

func TestScoreBar(t *testing.T) {
	assert.Equal(t, "[----------]", scoreBar(0))
	assert.Equal(t, "[#####-----]", scoreBar(5))
	assert.Equal(t, "[##########]", scoreBar(10))
	assert.Equal(t, "[##########]", scoreBar(42))
}

func TestQuickScanReportTruncatesQuestions(t *testing.T) {
	long := strings.Repeat("q", 80)
	var buf bytes.Buffer
	require.NoError(t, WriteQuickScanReport(&buf, []domain.QuickScan{
		{Platform: domain.PlatformManifold, TopOutcome: "Yes", TopPrice: 0.97, Severity: "extreme", Question: long},
	}))
	assert.Contains(t, buf.String(), strings.Repeat("q", 57)+"...")
	assert.NotContains(t, buf.String(), strings.Repeat("q", 61))
}
