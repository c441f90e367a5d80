package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"compras/internal/amqp"
	"compras/internal/core"
	"compras/internal/export"
	"compras/internal/metrics"
	"compras/internal/sheets"
)

// PeriodSource loads what the mirror needs from the ledger
type PeriodSource interface {
	ListPeriods(ctx context.Context) ([]core.Period, error)
	ListByPeriod(ctx context.Context, period core.Period) ([]core.PurchaseRecord, error)
}

// SnapshotRunner takes a database snapshot
type SnapshotRunner interface {
	Run(ctx context.Context, now time.Time) (string, error)
}

// MirrorWorker keeps a spreadsheet copy of every period up to date.
// Each ledger event rewrites the whole tab of the affected period, so
// redelivered or out of order events converge on the same result.
type MirrorWorker struct {
	source   PeriodSource
	writer   sheets.PeriodWriter
	snapshot SnapshotRunner
	now      func() time.Time
}

// NewMirrorWorker creates a worker. snapshot may be nil; when set, every
// created event also refreshes today's snapshot.
func NewMirrorWorker(source PeriodSource, writer sheets.PeriodWriter, snapshot SnapshotRunner) *MirrorWorker {
	return &MirrorWorker{
		source:   source,
		writer:   writer,
		snapshot: snapshot,
		now:      time.Now,
	}
}

// HandleRecordEvent processes a single ledger event from AMQP
func (w *MirrorWorker) HandleRecordEvent(ctx context.Context, event *amqp.RecordEvent) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"id", event.ID,
		"action", event.Action,
		"period", event.Period)

	period, err := core.ParsePeriod(event.Period)
	if err != nil {
		return fmt.Errorf("event period: %w", err)
	}

	if err := w.MirrorPeriod(ctx, period); err != nil {
		return err
	}

	if event.Action == amqp.ActionCreated && w.snapshot != nil {
		// The mirror is already written; a failed snapshot must not requeue the event.
		if path, err := w.snapshot.Run(ctx, w.now()); err != nil {
			slog.ErrorContext(ctx, "Snapshot after create failed", "id", event.ID, "error", err)
		} else {
			slog.InfoContext(ctx, "Snapshot refreshed", "path", path)
		}
	}
	return nil
}

// MirrorPeriod rewrites the spreadsheet tab of period from the ledger
func (w *MirrorWorker) MirrorPeriod(ctx context.Context, period core.Period) error {
	records, err := w.source.ListByPeriod(ctx, period)
	if err != nil {
		metrics.MirrorRuns.WithLabelValues(metrics.OutcomeFailure).Inc()
		return fmt.Errorf("load period %s: %w", period, err)
	}

	if err := w.writer.WritePeriod(ctx, period, Rows(records)); err != nil {
		metrics.MirrorRuns.WithLabelValues(metrics.OutcomeFailure).Inc()
		return fmt.Errorf("mirror period %s: %w", period, err)
	}

	metrics.MirrorRuns.WithLabelValues(metrics.OutcomeSuccess).Inc()
	slog.InfoContext(ctx, "Period mirrored", "period", period, "records", len(records))
	return nil
}

// StartupMirror rewrites every known period. It recovers from events lost
// while the worker was down.
func (w *MirrorWorker) StartupMirror(ctx context.Context) error {
	periods, err := w.source.ListPeriods(ctx)
	if err != nil {
		return fmt.Errorf("list periods for startup mirror: %w", err)
	}
	if len(periods) == 0 {
		slog.InfoContext(ctx, "No periods to mirror on startup")
		return nil
	}

	synced, failed := 0, 0
	for _, p := range periods {
		if err := w.MirrorPeriod(ctx, p); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror period during startup", "period", p, "error", err)
			failed++
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Startup mirror completed",
		"total", len(periods),
		"synced", synced,
		"errors", failed)
	return nil
}

// Rows is the sheet content for a period: header, one row per record, totals
func Rows(records []core.PurchaseRecord) [][]string {
	rows := make([][]string, 0, len(records)+2)
	rows = append(rows, export.Header)
	for _, r := range records {
		rows = append(rows, export.Row(r))
	}
	return append(rows, export.TotalsRow(records))
}
