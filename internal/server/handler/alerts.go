package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/marketsentinel/sentinel/internal/domain"
)

// AlertStream reads the durable alert history kept by the signal bus.
type AlertStream interface {
	StreamRead(ctx context.Context, stream, lastID string, count int) ([]domain.StreamMessage, error)
}

// alertReplayDefault and alertReplayMax bound one replay page.
const (
	alertReplayDefault = 50
	alertReplayMax     = 500
)

// AlertHandler serves recent alerts out of the bus history so clients
// that connect late, or drop off the WebSocket feed, can catch up.
type AlertHandler struct {
	bus    AlertStream
	stream string
	logger *slog.Logger
}

// NewAlertHandler creates an AlertHandler reading the named stream.
func NewAlertHandler(bus AlertStream, stream string, logger *slog.Logger) *AlertHandler {
	return &AlertHandler{
		bus:    bus,
		stream: stream,
		logger: logHandler(logger, "alerts"),
	}
}

type alertEntry struct {
	ID    string          `json:"id"`
	Alert json.RawMessage `json:"alert"`
}

type listAlertsResponse struct {
	Alerts []alertEntry `json:"alerts"`
	// Next is the cursor to pass as after= for the following page.
	// Empty when this page was empty.
	Next string `json:"next,omitempty"`
}

// ListAlerts replays alert history in stream order.
// GET /api/alerts?after=<stream id>&limit=100
func (h *AlertHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	after := q.Get("after")
	if after == "" {
		after = "0"
	}

	limit := alertReplayDefault
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > alertReplayMax {
		limit = alertReplayMax
	}

	msgs, err := h.bus.StreamRead(r.Context(), h.stream, after, limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: alert replay failed",
			slog.String("after", after),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read alerts")
		return
	}

	resp := listAlertsResponse{Alerts: make([]alertEntry, 0, len(msgs))}
	for _, m := range msgs {
		// Payloads are the marshaled alerts appended by the scanner
		// and monitor; pass them through untouched.
		resp.Alerts = append(resp.Alerts, alertEntry{ID: m.ID, Alert: json.RawMessage(m.Payload)})
		resp.Next = m.ID
	}

	writeJSON(w, http.StatusOK, resp)
}
