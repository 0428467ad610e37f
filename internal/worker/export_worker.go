package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"scorecard/internal/amqp"
	"scorecard/internal/cache"
	"scorecard/internal/exporter"
	applog "scorecard/internal/log"
)

const (
	defaultDedupeSize = 1024
	defaultDedupeTTL  = time.Hour
)

// ErrNoExporter is returned when a worker is built without an export target.
var ErrNoExporter = errors.New("worker: no exporter configured")

// Stats counts export requests handled by a worker.
type Stats struct {
	Handled    int64
	Failed     int64
	Duplicates int64
}

// ExportWorker writes queued snapshots to the configured export targets.
type ExportWorker struct {
	exporter  exporter.SnapshotExporter
	processed *cache.LRUCache[string]
	logger    *applog.Logger
	events    *applog.StructuredLogger

	handled    atomic.Int64
	failed     atomic.Int64
	duplicates atomic.Int64
}

// NewExportWorker builds a worker. A nil processed cache gets a default one
// that remembers message IDs for an hour.
func NewExportWorker(exp exporter.SnapshotExporter, processed *cache.LRUCache[string], logger *slog.Logger) (*ExportWorker, error) {
	if exp == nil {
		return nil, ErrNoExporter
	}
	if processed == nil {
		processed = cache.NewLRUCache[string](defaultDedupeSize, defaultDedupeTTL)
	}
	l := applog.FromSlog(logger, applog.ComponentWorker)
	return &ExportWorker{
		exporter:  exp,
		processed: processed,
		logger:    l,
		events:    applog.NewStructuredLogger(l),
	}, nil
}

// HandleExportRequest exports the snapshot carried by msg. Messages already
// handled are acknowledged without exporting again. Partial failures are
// logged; an error is returned only when no target accepted the snapshot.
func (w *ExportWorker) HandleExportRequest(ctx context.Context, msg *amqp.ExportRequested) error {
	if msg == nil {
		return errors.New("nil export request")
	}
	if ref, seen := w.processed.Get(msg.ID); seen {
		w.duplicates.Add(1)
		w.logger.InfoContext(ctx, "Skipping duplicate export request",
			"message_id", msg.ID,
			applog.FieldExportRef, ref)
		return nil
	}

	snap := msg.Snapshot
	w.logger.InfoContext(ctx, "Processing export request",
		"message_id", msg.ID,
		applog.FieldScorecardID, snap.ScorecardID,
		applog.FieldRevision, snap.Revision)

	ref, err := w.exporter.Export(ctx, snap)
	if err != nil && ref == "" {
		w.failed.Add(1)
		w.events.LogError(ctx, "Export request failed", err, applog.OpExport, applog.LogFields{
			applog.FieldScorecardID: snap.ScorecardID,
			applog.FieldRevision:    snap.Revision,
		})
		return fmt.Errorf("export scorecard %s: %w", snap.ScorecardID, err)
	}
	if err != nil {
		w.logger.WarnContext(ctx, "Export partially failed",
			applog.FieldScorecardID, snap.ScorecardID,
			applog.FieldExportRef, ref,
			"error", err)
	}

	w.processed.Set(msg.ID, ref)
	w.handled.Add(1)
	w.events.LogExport(ctx, snap.ScorecardID, snap.Revision, "worker", ref)
	return nil
}

// Stats returns the current counters.
func (w *ExportWorker) Stats() Stats {
	return Stats{
		Handled:    w.handled.Load(),
		Failed:     w.failed.Load(),
		Duplicates: w.duplicates.Load(),
	}
}

// RunMaintenance evicts expired message IDs and logs counters every interval
// until ctx is done.
func (w *ExportWorker) RunMaintenance(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			evicted := w.processed.CleanExpired()
			st := w.Stats()
			w.logger.InfoContext(ctx, "Export worker stats",
				"handled", st.Handled,
				"failed", st.Failed,
				"duplicates", st.Duplicates,
				"dedupe_size", w.processed.Size(),
				"dedupe_evicted", evicted)
		}
	}
}
