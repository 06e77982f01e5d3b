package handler

import (
	"log/slog"
	"net/http"

	"github.com/marketsentinel/sentinel/internal/backtest"
	"github.com/marketsentinel/sentinel/internal/domain"
	"github.com/marketsentinel/sentinel/internal/report"
)

// BacktestHandler serves stored backtest results and the indicator
// effectiveness ranking derived from them.
type BacktestHandler struct {
	backtests domain.BacktestStore
	logger    *slog.Logger
}

// NewBacktestHandler creates a BacktestHandler with the given store and logger.
func NewBacktestHandler(backtests domain.BacktestStore, logger *slog.Logger) *BacktestHandler {
	return &BacktestHandler{
		backtests: backtests,
		logger:    logHandler(logger, "backtests"),
	}
}

// ListBacktests returns recent backtest results.
// GET /api/backtests?limit=50&offset=0
func (h *BacktestHandler) ListBacktests(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	results, err := h.backtests.ListRecent(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list backtests failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list backtests")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"backtests": results,
		"limit":     opts.Limit,
		"offset":    opts.Offset,
	})
}

// ExportBacktests streams recent backtest results as CSV (default) or JSON.
// GET /api/backtests/export?format=csv
func (h *BacktestHandler) ExportBacktests(w http.ResponseWriter, r *http.Request) {
	results, err := h.backtests.ListRecent(r.Context(), domain.ListOpts{Limit: exportLimit})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: export backtests failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to export backtests")
		return
	}

	switch r.URL.Query().Get("format") {
	case "json":
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if err := report.ExportJSON(w, results); err != nil {
			h.logger.ErrorContext(r.Context(), "handler: write backtests json failed",
				slog.String("error", err.Error()),
			)
		}
	default:
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="backtests.csv"`)
		if err := report.ExportBacktestsCSV(w, results); err != nil {
			h.logger.ErrorContext(r.Context(), "handler: write backtests csv failed",
				slog.String("error", err.Error()),
			)
		}
	}
}

// GetMarketBacktests returns all backtest results for one market.
// GET /api/backtests/{market_id}
func (h *BacktestHandler) GetMarketBacktests(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "market_id")
	if marketID == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	results, err := h.backtests.ListByMarket(r.Context(), marketID, parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list market backtests failed",
			slog.String("market_id", marketID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list backtests")
		return
	}
	if len(results) == 0 {
		writeError(w, http.StatusNotFound, "no backtests for market")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"backtests": results})
}

// effectivenessWindow bounds how many recent results feed the
// effectiveness ranking.
const effectivenessWindow = 1000

// GetEffectiveness ranks indicators by how well they separated correct
// from incorrect predictions across recent backtests.
// GET /api/backtests/effectiveness
func (h *BacktestHandler) GetEffectiveness(w http.ResponseWriter, r *http.Request) {
	results, err := h.backtests.ListRecent(r.Context(), domain.ListOpts{Limit: effectivenessWindow})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: load backtests for effectiveness failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to compute effectiveness")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sample_size":   len(results),
		"effectiveness": backtest.Effectiveness(results),
	})
}
