// Package storage archives exported scorecard snapshots in SQLite.
// The archive is append-only; scorecards are never restored from it.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"scorecard/internal/core"
	"scorecard/internal/exporter"
)

var (
	_ exporter.SnapshotExporter = (*SQLiteRepository)(nil)
	_ exporter.ExportLister     = (*SQLiteRepository)(nil)
)

var ErrExportNotFound = errors.New("export not found")

const refPrefix = "export:"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection keeps writes serialized.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Export archives the snapshot and both of its ledgers.
func (r *SQLiteRepository) Export(ctx context.Context, s core.Snapshot) (string, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	rec := exporter.RecordOf("", s)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO exports (scorecard_id, name, revision, taken_at, total_budget_cents,
			mix_allocated, mix_balanced, initiative_cost_cents, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ScorecardID, s.Name, s.Revision, s.TakenAt.UTC().Format(time.RFC3339Nano),
		cents(rec.TotalBudget), rec.MixAllocated, rec.MixBalanced, cents(rec.InitiativeCost),
		string(payload))
	if err != nil {
		return "", fmt.Errorf("insert export: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("export id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO export_allocations (export_id, ledger, position, entry_key, percentage, amount_cents)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare allocation insert: %w", err)
	}
	defer stmt.Close()
	for ledger, entries := range map[string][]core.AllocationEntry{
		"mix":         s.Mix.Entries,
		"initiatives": s.Initiatives.Entries,
	} {
		for pos, e := range entries {
			if _, err := stmt.ExecContext(ctx, id, ledger, pos, e.Key, e.Percentage, cents(e.Amount)); err != nil {
				return "", fmt.Errorf("insert allocation %s/%s: %w", ledger, e.Key, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit export: %w", err)
	}

	ref := refPrefix + strconv.FormatInt(id, 10)
	slog.InfoContext(ctx, "Scorecard archived to SQLite",
		"ref", ref,
		"scorecard_id", s.ScorecardID,
		"revision", s.Revision,
		"mix_entries", len(s.Mix.Entries),
		"initiative_entries", len(s.Initiatives.Entries))
	return ref, nil
}

// ListExports returns the archive records of a scorecard, newest first.
func (r *SQLiteRepository) ListExports(ctx context.Context, scorecardID string) ([]exporter.Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, scorecard_id, name, revision, taken_at, total_budget_cents,
			mix_allocated, mix_balanced, initiative_cost_cents
		FROM exports WHERE scorecard_id = ? ORDER BY id DESC`, scorecardID)
	if err != nil {
		return nil, fmt.Errorf("list exports: %w", err)
	}
	defer rows.Close()

	var out []exporter.Record
	for rows.Next() {
		var (
			id                     int64
			rec                    exporter.Record
			takenAt                string
			budgetCents, costCents int64
		)
		if err := rows.Scan(&id, &rec.ScorecardID, &rec.Name, &rec.Revision, &takenAt,
			&budgetCents, &rec.MixAllocated, &rec.MixBalanced, &costCents); err != nil {
			return nil, fmt.Errorf("scan export: %w", err)
		}
		rec.Ref = refPrefix + strconv.FormatInt(id, 10)
		rec.TakenAt, _ = time.Parse(time.RFC3339Nano, takenAt)
		rec.TotalBudget = fromCents(budgetCents)
		rec.InitiativeCost = fromCents(costCents)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Allocations returns the archived entries of one ledger ("mix" or
// "initiatives") for the export identified by ref, in ledger order.
func (r *SQLiteRepository) Allocations(ctx context.Context, ref, ledger string) ([]core.AllocationEntry, error) {
	id, err := parseRef(ref)
	if err != nil {
		return nil, err
	}
	var exists int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM exports WHERE id = ?", id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("lookup export: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", ErrExportNotFound, ref)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT entry_key, percentage, amount_cents FROM export_allocations
		WHERE export_id = ? AND ledger = ? ORDER BY position`, id, ledger)
	if err != nil {
		return nil, fmt.Errorf("list allocations: %w", err)
	}
	defer rows.Close()

	out := []core.AllocationEntry{}
	for rows.Next() {
		var e core.AllocationEntry
		var amount int64
		if err := rows.Scan(&e.Key, &e.Percentage, &amount); err != nil {
			return nil, fmt.Errorf("scan allocation: %w", err)
		}
		e.Amount = fromCents(amount)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func parseRef(ref string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(ref, refPrefix), 10, 64)
	if err != nil || !strings.HasPrefix(ref, refPrefix) {
		return 0, fmt.Errorf("%w: %q", ErrExportNotFound, ref)
	}
	return id, nil
}

func cents(v float64) int64 {
	return core.RoundCents(v).Shift(2).IntPart()
}

func fromCents(c int64) float64 {
	return float64(c) / 100
}
