package exporter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"scorecard/internal/core"
)

// DefaultConcurrency bounds how many targets export at once.
const DefaultConcurrency = 4

// ErrNoTargets is returned when a dispatcher has nothing to export to.
var ErrNoTargets = errors.New("exporter: no export targets configured")

// Target is a named sink.
type Target struct {
	Name     string
	Exporter SnapshotExporter
}

// Dispatcher fans a snapshot out to every target concurrently. It is itself a
// SnapshotExporter whose reference lists each target's reference.
type Dispatcher struct {
	targets []Target
	timeout time.Duration
	limit   int
	logger  *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithTimeout bounds each export call.
func WithTimeout(d time.Duration) DispatcherOption {
	return func(x *Dispatcher) { x.timeout = d }
}

// WithConcurrency bounds how many targets export at once. Non-positive values
// are ignored.
func WithConcurrency(n int) DispatcherOption {
	return func(x *Dispatcher) {
		if n > 0 {
			x.limit = n
		}
	}
}

// WithLogger sets the logger used for per-target results.
func WithLogger(l *slog.Logger) DispatcherOption {
	return func(x *Dispatcher) { x.logger = l }
}

// NewDispatcher skips targets with a nil exporter.
func NewDispatcher(targets []Target, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{limit: DefaultConcurrency, logger: slog.Default()}
	for _, t := range targets {
		if t.Exporter != nil {
			d.targets = append(d.targets, t)
		}
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Targets returns the target names in configuration order.
func (d *Dispatcher) Targets() []string {
	names := make([]string, len(d.targets))
	for i, t := range d.targets {
		names[i] = t.Name
	}
	return names
}

// Dispatch exports to all targets and returns the references that succeeded.
// Failures are joined; one failing target does not cancel the others.
func (d *Dispatcher) Dispatch(ctx context.Context, s core.Snapshot) (map[string]string, error) {
	if len(d.targets) == 0 {
		return nil, ErrNoTargets
	}
	var (
		mu   sync.Mutex
		refs = make(map[string]string, len(d.targets))
		errs []error
	)
	// The group only bounds fan-out. Failures are collected in errs so a
	// failing target never stops the others, and every closure returns nil.
	var g errgroup.Group
	g.SetLimit(d.limit)
	for _, t := range d.targets {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", t.Name, err))
				mu.Unlock()
				return nil
			}
			tctx := ctx
			if d.timeout > 0 {
				var cancel context.CancelFunc
				tctx, cancel = context.WithTimeout(ctx, d.timeout)
				defer cancel()
			}
			ref, err := t.Exporter.Export(tctx, s)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				d.logger.WarnContext(ctx, "Export failed",
					"exporter", t.Name,
					"scorecard_id", s.ScorecardID,
					"error", err)
				errs = append(errs, fmt.Errorf("%s: %w", t.Name, err))
				return nil
			}
			d.logger.InfoContext(ctx, "Export completed",
				"exporter", t.Name,
				"scorecard_id", s.ScorecardID,
				"revision", s.Revision,
				"ref", ref)
			refs[t.Name] = ref
			return nil
		})
	}
	g.Wait()
	return refs, errors.Join(errs...)
}

// Export implements SnapshotExporter. The reference is "name=ref" pairs
// joined by ";" in name order.
func (d *Dispatcher) Export(ctx context.Context, s core.Snapshot) (string, error) {
	refs, err := d.Dispatch(ctx, s)
	return JoinRefs(refs), err
}

// JoinRefs renders refs as sorted "name=ref" pairs.
func JoinRefs(refs map[string]string) string {
	names := make([]string, 0, len(refs))
	for name := range refs {
		names = append(names, name)
	}
	slices.Sort(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + "=" + refs[name]
	}
	return strings.Join(parts, ";")
}
