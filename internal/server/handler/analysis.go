package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/marketsentinel/sentinel/internal/domain"
	"github.com/marketsentinel/sentinel/internal/report"
)

// AnalysisHandler serves insider analysis endpoints.
type AnalysisHandler struct {
	analyses domain.AnalysisStore
	logger   *slog.Logger
}

// NewAnalysisHandler creates an AnalysisHandler with the given store and logger.
func NewAnalysisHandler(analyses domain.AnalysisStore, logger *slog.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		analyses: analyses,
		logger:   logHandler(logger, "analyses"),
	}
}

// ListAnalyses returns recent analyses. When min_probability is supplied
// the results are filtered and ranked by probability instead.
// GET /api/analyses?limit=50&offset=0&min_probability=0.7
func (h *AnalysisHandler) ListAnalyses(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	var (
		analyses []domain.InsiderAnalysis
		err      error
	)
	if v := r.URL.Query().Get("min_probability"); v != "" {
		minProb, parseErr := strconv.ParseFloat(v, 64)
		if parseErr != nil || minProb < 0 || minProb > 1 {
			writeError(w, http.StatusBadRequest, "min_probability must be a number in [0,1]")
			return
		}
		analyses, err = h.analyses.ListAbove(r.Context(), minProb, opts)
	} else {
		analyses, err = h.analyses.ListRecent(r.Context(), opts)
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list analyses failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list analyses")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"analyses": analyses,
		"limit":    opts.Limit,
		"offset":   opts.Offset,
	})
}

// exportLimit bounds how many rows the export endpoints return.
const exportLimit = 1000

// ExportAnalyses streams recent analyses as CSV (default) or JSON.
// GET /api/analyses/export?format=csv
func (h *AnalysisHandler) ExportAnalyses(w http.ResponseWriter, r *http.Request) {
	analyses, err := h.analyses.ListRecent(r.Context(), domain.ListOpts{Limit: exportLimit})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: export analyses failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to export analyses")
		return
	}

	switch r.URL.Query().Get("format") {
	case "json":
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if err := report.ExportJSON(w, analyses); err != nil {
			h.logger.ErrorContext(r.Context(), "handler: write analyses json failed",
				slog.String("error", err.Error()),
			)
		}
	default:
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="analyses.csv"`)
		if err := report.ExportAnalysesCSV(w, analyses); err != nil {
			h.logger.ErrorContext(r.Context(), "handler: write analyses csv failed",
				slog.String("error", err.Error()),
			)
		}
	}
}

// GetMarketAnalysis returns the latest analysis for one market.
// GET /api/analyses/{market_id}
func (h *AnalysisHandler) GetMarketAnalysis(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "market_id")
	if marketID == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	analysis, err := h.analyses.GetLatestByMarket(r.Context(), marketID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no analysis for market")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get analysis failed",
			slog.String("market_id", marketID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get analysis")
		return
	}

	writeJSON(w, http.StatusOK, analysis)
}
