// Package exporter defines where finalized scorecard snapshots are sent.
package exporter

import (
	"context"
	"time"

	"scorecard/internal/core"
)

// Ports for outbound adapters.
type (
	// SnapshotExporter hands a finalized snapshot to an external sink and
	// returns a sink-specific reference to what was written.
	SnapshotExporter interface {
		Export(ctx context.Context, s core.Snapshot) (ref string, err error)
	}

	// SuggestionReader lists the channel names offered when editing a profile.
	SuggestionReader interface {
		ChannelSuggestions(ctx context.Context) ([]string, error)
	}

	// ExportLister returns previously exported snapshots of a scorecard, newest first.
	ExportLister interface {
		ListExports(ctx context.Context, scorecardID string) ([]Record, error)
	}
)

// Record summarizes one export.
type Record struct {
	Ref            string    `json:"ref"`
	ScorecardID    string    `json:"scorecard_id"`
	Name           string    `json:"name"`
	Revision       int64     `json:"revision"`
	TakenAt        time.Time `json:"taken_at"`
	TotalBudget    float64   `json:"total_budget"`
	MixAllocated   float64   `json:"mix_allocated"`
	MixBalanced    bool      `json:"mix_balanced"`
	InitiativeCost float64   `json:"initiative_cost"`
}

// RecordOf summarizes s under ref.
func RecordOf(ref string, s core.Snapshot) Record {
	return Record{
		Ref:            ref,
		ScorecardID:    s.ScorecardID,
		Name:           s.Name,
		Revision:       s.Revision,
		TakenAt:        s.TakenAt,
		TotalBudget:    s.Profile.TotalBudget,
		MixAllocated:   s.Mix.TotalAllocated,
		MixBalanced:    s.Mix.Balanced,
		InitiativeCost: core.AmountOf(s.Initiatives.TotalAllocated, s.Initiatives.TotalBudget),
	}
}

// Func adapts a function to SnapshotExporter.
type Func func(ctx context.Context, s core.Snapshot) (string, error)

func (f Func) Export(ctx context.Context, s core.Snapshot) (string, error) { return f(ctx, s) }
