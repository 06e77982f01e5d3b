package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/marketsentinel/sentinel/internal/domain"
)

// Narrow store interfaces required by the archiver. The Postgres stores
// satisfy these through their ListBefore methods; the archiver does not
// need the full domain store interfaces.

// TradeArchiveStore provides read access to trades for archival purposes.
type TradeArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.Trade, error)
}

// AnalysisArchiveStore provides read access to analyses for archival purposes.
type AnalysisArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.InsiderAnalysis, error)
}

// BacktestArchiveStore provides read access to backtest results for archival
// purposes.
type BacktestArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.BacktestResult, error)
}

// ArchiveImpl implements domain.Archiver by querying the domain stores for
// old records, serializing them to JSONL, and uploading the result to S3.
//
// Deletion of the archived records from the primary store is intentionally
// NOT performed here -- that is a separate, explicit step to be executed
// after the archive has been verified.
type ArchiveImpl struct {
	writer    domain.BlobWriter
	trades    TradeArchiveStore
	analyses  AnalysisArchiveStore
	backtests BacktestArchiveStore
	audit     domain.AuditStore
}

// NewArchiver creates a new ArchiveImpl.
func NewArchiver(
	writer domain.BlobWriter,
	trades TradeArchiveStore,
	analyses AnalysisArchiveStore,
	backtests BacktestArchiveStore,
	audit domain.AuditStore,
) *ArchiveImpl {
	return &ArchiveImpl{
		writer:    writer,
		trades:    trades,
		analyses:  analyses,
		backtests: backtests,
		audit:     audit,
	}
}

var _ domain.Archiver = (*ArchiveImpl)(nil)

// ArchiveTrades queries all trades before the cutoff, serializes them to
// JSONL, and uploads the file to S3 at archive/trades/YYYY-MM.jsonl. The
// archival event is recorded in the audit log and the count of archived
// records is returned.
func (a *ArchiveImpl) ArchiveTrades(ctx context.Context, before time.Time) (int64, error) {
	trades, err := a.trades.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades query: %w", err)
	}
	return uploadArchive(ctx, a.writer, a.audit, "trades", before, trades)
}

// ArchiveAnalyses queries all analyses computed before the cutoff and
// uploads them to S3 at archive/analyses/YYYY-MM.jsonl.
func (a *ArchiveImpl) ArchiveAnalyses(ctx context.Context, before time.Time) (int64, error) {
	analyses, err := a.analyses.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive analyses query: %w", err)
	}
	return uploadArchive(ctx, a.writer, a.audit, "analyses", before, analyses)
}

// ArchiveBacktests queries all backtest results computed before the cutoff
// and uploads them to S3 at archive/backtests/YYYY-MM.jsonl.
func (a *ArchiveImpl) ArchiveBacktests(ctx context.Context, before time.Time) (int64, error) {
	results, err := a.backtests.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive backtests query: %w", err)
	}
	return uploadArchive(ctx, a.writer, a.audit, "backtests", before, results)
}

// uploadArchive serializes the records to JSONL, uploads them, and records
// the archival event in the audit log. Empty slices are a no-op.
func uploadArchive[T any](
	ctx context.Context,
	writer domain.BlobWriter,
	audit domain.AuditStore,
	kind string,
	before time.Time,
	records []T,
) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(records)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive %s marshal: %w", kind, err)
	}

	path := archivePath(kind, before)
	if err := writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive %s upload: %w", kind, err)
	}

	count := int64(len(records))

	if err := audit.Log(ctx, "archive."+kind, map[string]any{
		"path":   path,
		"count":  count,
		"before": before.Format(time.RFC3339),
	}); err != nil {
		return count, fmt.Errorf("s3blob: archive %s audit log: %w", kind, err)
	}
	return count, nil
}

// archivePath builds the S3 key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/trades/2026-01.jsonl
//	archive/analyses/2026-01.jsonl
//	archive/backtests/2026-01.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON (JSONL).
// Each element is marshalled as a single compact JSON line followed by '\n'.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
