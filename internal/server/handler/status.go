package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// MarketCounter reports how many markets are tracked.
type MarketCounter interface {
	Count(ctx context.Context) (int64, error)
}

// StatusHandler reports runtime information about the running process.
type StatusHandler struct {
	mode      string
	startedAt time.Time
	markets   MarketCounter
	logger    *slog.Logger
}

// NewStatusHandler creates a StatusHandler. markets may be nil when no
// database is configured.
func NewStatusHandler(mode string, markets MarketCounter, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{
		mode:      mode,
		startedAt: time.Now(),
		markets:   markets,
		logger:    logHandler(logger, "status"),
	}
}

type statusResponse struct {
	Mode          string  `json:"mode"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	StartedAt     string  `json:"started_at"`
	Markets       *int64  `json:"markets,omitempty"`
}

// GetStatus returns the process mode, uptime, and tracked market count.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Mode:          h.mode,
		UptimeSeconds: time.Since(h.startedAt).Seconds(),
		StartedAt:     h.startedAt.UTC().Format(time.RFC3339),
	}

	if h.markets != nil {
		count, err := h.markets.Count(r.Context())
		if err != nil {
			h.logger.WarnContext(r.Context(), "handler: market count unavailable",
				slog.String("error", err.Error()),
			)
		} else {
			resp.Markets = &count
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
