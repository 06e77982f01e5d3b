package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketsentinel/sentinel/internal/domain"
)

type fakeAlertStream struct {
	msgs   []domain.StreamMessage
	err    error
	stream string
	lastID string
	count  int
}

func (f *fakeAlertStream) StreamRead(_ context.Context, stream, lastID string, count int) ([]domain.StreamMessage, error) {
	f.stream, f.lastID, f.count = stream, lastID, count
	return f.msgs, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestListAlertsReplaysHistory(t *testing.T) {
	bus := &fakeAlertStream{msgs: []domain.StreamMessage{
		{ID: "1700000000000-0", Payload: []byte(`{"market_id":"mkt-1","kind":"scan"}`)},
		{ID: "1700000000001-0", Payload: []byte(`{"market_id":"mkt-2","kind":"monitor"}`)},
	}}
	h := NewAlertHandler(bus, "alerts:stream", discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/alerts", nil)
	rec := httptest.NewRecorder()
	h.ListAlerts(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alerts:stream", bus.stream)
	assert.Equal(t, "0", bus.lastID)
	assert.Equal(t, 50, bus.count)

	var resp struct {
		Alerts []struct {
			ID    string          `json:"id"`
			Alert json.RawMessage `json:"alert"`
		} `json:"alerts"`
		Next string `json:"next"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Alerts, 2)
	assert.Equal(t, "1700000000000-0", resp.Alerts[0].ID)
	assert.JSONEq(t, `{"market_id":"mkt-1","kind":"scan"}`, string(resp.Alerts[0].Alert))
	assert.Equal(t, "1700000000001-0", resp.Next)
}

func TestListAlertsCursorAndLimit(t *testing.T) {
	bus := &fakeAlertStream{}
	h := NewAlertHandler(bus, "alerts:stream", discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/alerts?after=1700000000001-0&limit=9999", nil)
	rec := httptest.NewRecorder()
	h.ListAlerts(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1700000000001-0", bus.lastID)
	assert.Equal(t, 500, bus.count)

	var resp struct {
		Alerts []json.RawMessage `json:"alerts"`
		Next   string            `json:"next"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Alerts)
	assert.Empty(t, resp.Next)
}

func TestListAlertsRejectsBadLimit(t *testing.T) {
	h := NewAlertHandler(&fakeAlertStream{}, "alerts:stream", discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/alerts?limit=nope", nil)
	rec := httptest.NewRecorder()
	h.ListAlerts(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListAlertsReadFailure(t *testing.T) {
	h := NewAlertHandler(&fakeAlertStream{err: domain.ErrContextDone}, "alerts:stream", discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/alerts", nil)
	rec := httptest.NewRecorder()
	h.ListAlerts(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
