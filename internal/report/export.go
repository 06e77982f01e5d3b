package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/marketsentinel/sentinel/internal/domain"
)

// ExportJSON writes any report payload as indented JSON.
func ExportJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("report: export json: %w", err)
	}
	return nil
}

// ExportAnalysesCSV writes one row per analysis with the per-indicator
// scores broken out into columns.
func ExportAnalysesCSV(w io.Writer, analyses []domain.InsiderAnalysis) error {
	cw := csv.NewWriter(w)

	header := []string{
		"market_id", "platform", "question",
		"insider_probability", "risk_score", "trade_count", "total_volume",
		"concentration", "velocity", "outcome_skew", "price_movement", "whale",
		"computed_at",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("report: csv header: %w", err)
	}

	for _, a := range analyses {
		record := []string{
			a.MarketID,
			string(a.Platform),
			a.Question,
			formatFloat(a.InsiderProbability),
			formatFloat(a.RiskScore),
			strconv.Itoa(a.TradeCount),
			formatFloat(a.TotalVolume),
			formatFloat(a.Score(domain.IndicatorConcentration)),
			formatFloat(a.Score(domain.IndicatorVelocity)),
			formatFloat(a.Score(domain.IndicatorOutcomeSkew)),
			formatFloat(a.Score(domain.IndicatorPriceMovement)),
			formatFloat(a.Score(domain.IndicatorWhale)),
			a.ComputedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("report: csv record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("report: csv flush: %w", err)
	}
	return nil
}

// ExportBacktestsCSV writes one row per backtest result.
func ExportBacktestsCSV(w io.Writer, results []domain.BacktestResult) error {
	cw := csv.NewWriter(w)

	header := []string{
		"market_id", "platform", "question", "signal_time", "signal_probability",
		"trades_before", "trades_after", "pre_price", "post_price",
		"price_move_pct", "predicted_outcome", "actual_outcome", "predicted_correctly",
		"time_to_resolution_hours",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("report: csv header: %w", err)
	}

	for _, r := range results {
		correct := ""
		if r.PredictedCorrectly != nil {
			correct = strconv.FormatBool(*r.PredictedCorrectly)
		}
		record := []string{
			r.MarketID,
			string(r.Platform),
			r.Question,
			r.SignalTime.UTC().Format(time.RFC3339),
			formatFloat(r.SignalProbability),
			strconv.Itoa(r.TradesBefore),
			strconv.Itoa(r.TradesAfter),
			formatFloat(r.PreSignalPrice),
			formatFloat(r.PostSignalPrice),
			formatFloat(r.PriceMovePct),
			r.PredictedOutcome,
			r.ActualOutcome,
			correct,
			formatFloat(r.TimeToResolutionHours),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("report: csv record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("report: csv flush: %w", err)
	}
	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}
