// Package report renders scan, monitor, and backtest results for humans
// (plain text) and for downstream tooling (JSON and CSV exports).
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/marketsentinel/sentinel/internal/domain"
)

// indicatorOrder fixes the display order of indicators in text reports.
var indicatorOrder = []string{
	domain.IndicatorConcentration,
	domain.IndicatorVelocity,
	domain.IndicatorOutcomeSkew,
	domain.IndicatorPriceMovement,
	domain.IndicatorWhale,
}

var indicatorLabels = map[string]string{
	domain.IndicatorConcentration: "Trade concentration",
	domain.IndicatorVelocity:      "Trade velocity",
	domain.IndicatorOutcomeSkew:   "Outcome skew",
	domain.IndicatorPriceMovement: "Price movement",
	domain.IndicatorWhale:         "Whale accumulation",
}

// WriteScanReport renders ranked analyses as a plain-text report.
func WriteScanReport(w io.Writer, analyses []domain.InsiderAnalysis) error {
	if len(analyses) == 0 {
		_, err := fmt.Fprintln(w, "No markets analyzed.")
		return err
	}

	for i, a := range analyses {
		fmt.Fprintf(w, "%d. %s\n", i+1, a.Question)
		fmt.Fprintf(w, "   Platform: %s  Market: %s\n", a.Platform, a.MarketID)
		fmt.Fprintf(w, "   Insider probability: %.0f%%  Risk score: %.1f/10\n",
			a.InsiderProbability*100, a.RiskScore)
		fmt.Fprintf(w, "   Trades: %d  Volume: $%.0f\n", a.TradeCount, a.TotalVolume)

		for _, name := range indicatorOrder {
			score, ok := a.Indicators[name]
			if !ok {
				continue
			}
			fmt.Fprintf(w, "   %-20s %s %.1f\n", indicatorLabels[name], scoreBar(score.Score), score.Score)
		}

		if len(a.Whales) > 0 {
			top := a.Whales[0]
			fmt.Fprintf(w, "   Top whale: %s  %.0f shares over %d trades (%.0f/h)\n",
				shortAddr(top.Address), top.Position, top.TradeCount, top.AccumulationSpeed)
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

// WriteQuickScanReport renders quick-scan results as a plain-text table.
func WriteQuickScanReport(w io.Writer, scans []domain.QuickScan) error {
	if len(scans) == 0 {
		_, err := fmt.Fprintln(w, "No skewed markets found.")
		return err
	}

	fmt.Fprintf(w, "%-10s %-8s %-6s %-9s %s\n", "PLATFORM", "OUTCOME", "PRICE", "SEVERITY", "QUESTION")
	for _, s := range scans {
		q := s.Question
		if len(q) > 60 {
			q = q[:57] + "..."
		}
		fmt.Fprintf(w, "%-10s %-8s %-6.2f %-9s %s\n",
			s.Platform, s.TopOutcome, s.TopPrice, s.Severity, q)
	}
	return nil
}

// WriteBacktestReport renders backtest results and the indicator
// effectiveness ranking as a plain-text report.
func WriteBacktestReport(w io.Writer, results []domain.BacktestResult, effectiveness []domain.IndicatorEffectiveness) error {
	if len(results) == 0 {
		_, err := fmt.Fprintln(w, "No markets produced a backtest signal.")
		return err
	}

	correct, incorrect, unresolved := 0, 0, 0
	for _, r := range results {
		switch {
		case r.PredictedCorrectly == nil:
			unresolved++
		case *r.PredictedCorrectly:
			correct++
		default:
			incorrect++
		}
	}

	fmt.Fprintf(w, "Backtested %d markets: %d correct, %d incorrect, %d unresolved\n",
		len(results), correct, incorrect, unresolved)
	if correct+incorrect > 0 {
		fmt.Fprintf(w, "Hit rate on resolved markets: %.0f%%\n",
			100*float64(correct)/float64(correct+incorrect))
	}
	fmt.Fprintln(w)

	sorted := make([]domain.BacktestResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SignalProbability > sorted[j].SignalProbability
	})

	for _, r := range sorted {
		verdict := "unresolved"
		if r.PredictedCorrectly != nil {
			if *r.PredictedCorrectly {
				verdict = "correct"
			} else {
				verdict = "incorrect"
			}
		}
		fmt.Fprintf(w, "%s [%s]\n", r.Question, r.Platform)
		fmt.Fprintf(w, "   signal %.0f%% at %s, price %.2f -> %.2f (%+.1f%%), predicted %q: %s\n",
			r.SignalProbability*100,
			r.SignalTime.Format("2006-01-02 15:04"),
			r.PreSignalPrice, r.PostSignalPrice, r.PriceMovePct,
			r.PredictedOutcome, verdict)
	}

	if len(effectiveness) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Indicator effectiveness (mean score on correct minus incorrect predictions):")
		for _, e := range effectiveness {
			fmt.Fprintf(w, "   %-20s delta %+.2f (correct %.2f x%d, incorrect %.2f x%d)\n",
				indicatorLabels[e.Indicator], e.Delta,
				e.MeanCorrect, e.CorrectCount, e.MeanIncorrect, e.IncorrectCount)
		}
	}
	return nil
}

// scoreBar renders a 0-10 score as a ten-cell bar.
func scoreBar(score float64) string {
	filled := int(score + 0.5)
	if filled < 0 {
		filled = 0
	}
	if filled > 10 {
		filled = 10
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", 10-filled) + "]"
}

// shortAddr truncates long account addresses for display.
func shortAddr(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:8] + ".." + addr[len(addr)-4:]
}
