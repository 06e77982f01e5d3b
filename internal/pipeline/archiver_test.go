package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextCronTime(t *testing.T) {
	after := time.Date(2026, 1, 15, 12, 30, 45, 0, time.UTC)

	tests := []struct {
		name string
		expr string
		want time.Time
	}{
		{
			name: "every minute",
			expr: "* * * * *",
			want: time.Date(2026, 1, 15, 12, 31, 0, 0, time.UTC),
		},
		{
			name: "monthly at 3am on the 1st",
			expr: "0 3 1 * *",
			want: time.Date(2026, 2, 1, 3, 0, 0, 0, time.UTC),
		},
		{
			name: "daily at midnight",
			expr: "0 0 * * *",
			want: time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "list of minutes",
			expr: "15,45 * * * *",
			want: time.Date(2026, 1, 15, 12, 45, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := nextCronTime(tt.expr, after)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCronRejectsBadExpressions(t *testing.T) {
	for _, expr := range []string{"", "* * *", "a * * * *", "* * * * * *"} {
		_, err := parseCron(expr)
		assert.Error(t, err, "expr %q", expr)
	}
}

type fakeBlobArchiver struct {
	counts map[string]int64
	calls  []string
}

func (f *fakeBlobArchiver) ArchiveTrades(_ context.Context, _ time.Time) (int64, error) {
	f.calls = append(f.calls, "trades")
	return f.counts["trades"], nil
}

func (f *fakeBlobArchiver) ArchiveAnalyses(_ context.Context, _ time.Time) (int64, error) {
	f.calls = append(f.calls, "analyses")
	return f.counts["analyses"], nil
}

func (f *fakeBlobArchiver) ArchiveBacktests(_ context.Context, _ time.Time) (int64, error) {
	f.calls = append(f.calls, "backtests")
	return f.counts["backtests"], nil
}

type fakePurger struct {
	deleted int64
	called  bool
}

func (f *fakePurger) DeleteBefore(_ context.Context, _ time.Time) (int64, error) {
	f.called = true
	return f.deleted, nil
}

func TestArchiverRunPurgesOnlyArchivedTables(t *testing.T) {
	blob := &fakeBlobArchiver{counts: map[string]int64{
		"trades":    120,
		"analyses":  0,
		"backtests": 7,
	}}
	trades := &fakePurger{deleted: 120}
	analyses := &fakePurger{}
	backtests := &fakePurger{deleted: 7}

	arch := NewArchiver(blob, trades, analyses, backtests, 90, testLogger())

	require.NoError(t, arch.Run(context.Background()))
	assert.Equal(t, []string{"trades", "analyses", "backtests"}, blob.calls)

	assert.True(t, trades.called)
	assert.False(t, analyses.called, "empty archives must not trigger a purge")
	assert.True(t, backtests.called)
}
