package scorecard

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"scorecard/internal/core"
	"scorecard/internal/exporter"
	"scorecard/internal/generator"
	applog "scorecard/internal/log"
)

var (
	ErrNotFound   = errors.New("scorecard not found")
	ErrNoExporter = errors.New("no exporter configured")
)

// Summary is the list view of a scorecard.
type Summary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Revision    int64     `json:"revision"`
	CreatedAt   time.Time `json:"created_at"`
	TotalBudget float64   `json:"total_budget"`
	MixBalanced bool      `json:"mix_balanced"`
	Benchmarks  int       `json:"benchmarks"`
	Initiatives int       `json:"initiatives"`
}

// Detail is the full editable state of a scorecard, including the expanded
// flag of each benchmark.
type Detail struct {
	Summary
	Profile     core.BrandProfile   `json:"profile"`
	Mix         core.LedgerSnapshot `json:"marketing_mix"`
	Benchmarks  []core.Benchmark    `json:"benchmarks"`
	Initiatives core.LedgerSnapshot `json:"initiatives"`
}

type slot struct {
	mu sync.Mutex
	sc *Scorecard
}

// Service is the in-memory workspace of scorecards. Each scorecard has its own
// lock so edits to different scorecards do not contend.
type Service struct {
	mu    sync.RWMutex
	items map[string]*slot
	seq   int

	generator generator.Generator
	exporter  exporter.SnapshotExporter
	log       *applog.Logger
	events    *applog.StructuredLogger
	cardOpts  []Option
	newID     func() string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithGenerator sets the initiative generator. The default is generator.Template.
func WithGenerator(g generator.Generator) ServiceOption {
	return func(s *Service) {
		if g != nil {
			s.generator = g
		}
	}
}

// WithExporter sets where Export sends snapshots.
func WithExporter(e exporter.SnapshotExporter) ServiceOption {
	return func(s *Service) { s.exporter = e }
}

func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.log = applog.FromSlog(l, applog.ComponentScorecard) }
}

// WithBalanceEpsilon sets the balance tolerance of new scorecards.
func WithBalanceEpsilon(eps float64) ServiceOption {
	return func(s *Service) { s.cardOpts = append(s.cardOpts, WithEpsilon(eps)) }
}

// WithServiceClock sets the time source of new scorecards.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.cardOpts = append(s.cardOpts, WithClock(now)) }
}

// WithIDFunc overrides scorecard ID generation.
func WithIDFunc(fn func() string) ServiceOption {
	return func(s *Service) { s.newID = fn }
}

func NewService(opts ...ServiceOption) *Service {
	s := &Service{
		items:     make(map[string]*slot),
		generator: generator.Template{},
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = applog.FromSlog(nil, applog.ComponentScorecard)
	}
	s.events = applog.NewStructuredLogger(s.log)
	return s
}

// Create adds a scorecard. A blank name becomes "Scorecard N".
func (s *Service) Create(ctx context.Context, name string) Summary {
	s.mu.Lock()
	s.seq++
	if name == "" {
		name = fmt.Sprintf("Scorecard %d", s.seq)
	}
	sc := New(s.newID(), name, s.cardOpts...)
	s.items[sc.ID] = &slot{sc: sc}
	s.mu.Unlock()

	s.log.InfoContext(ctx, "Scorecard created",
		applog.FieldScorecardID, sc.ID,
		"name", sc.Name)
	return summarize(sc)
}

// CreateFromPlan builds a scorecard from a plan and adds it to the workspace.
func (s *Service) CreateFromPlan(ctx context.Context, p *Plan) (Summary, error) {
	sc, err := p.Build(s.newID(), s.cardOpts...)
	if err != nil {
		return Summary{}, err
	}
	s.mu.Lock()
	s.seq++
	if sc.Name == "" {
		sc.Name = fmt.Sprintf("Scorecard %d", s.seq)
	}
	s.items[sc.ID] = &slot{sc: sc}
	s.mu.Unlock()

	s.log.InfoContext(ctx, "Scorecard created from plan",
		applog.FieldScorecardID, sc.ID,
		"name", sc.Name,
		applog.FieldRevision, sc.Revision)
	return summarize(sc), nil
}

func summarize(sc *Scorecard) Summary {
	n := 0
	for _, b := range sc.benchmarks {
		n += len(b.Initiatives)
	}
	return Summary{
		ID:          sc.ID,
		Name:        sc.Name,
		Revision:    sc.Revision,
		CreatedAt:   sc.CreatedAt,
		TotalBudget: sc.profile.TotalBudget,
		MixBalanced: sc.mix.IsBalanced(),
		Benchmarks:  len(sc.benchmarks),
		Initiatives: n,
	}
}

func (s *Service) slot(id string) (*slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sl, ok := s.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return sl, nil
}

// Get returns the summary of one scorecard.
func (s *Service) Get(id string) (Summary, error) {
	var out Summary
	err := s.View(id, func(sc *Scorecard) error {
		out = summarize(sc)
		return nil
	})
	return out, err
}

// Detail returns the full state of one scorecard.
func (s *Service) Detail(id string) (Detail, error) {
	var out Detail
	err := s.View(id, func(sc *Scorecard) error {
		out = Detail{
			Summary:     summarize(sc),
			Profile:     sc.Profile(),
			Mix:         sc.mix.Snapshot(),
			Benchmarks:  sc.Benchmarks(),
			Initiatives: sc.initiatives.Snapshot(),
		}
		return nil
	})
	return out, err
}

// List returns summaries ordered by creation time.
func (s *Service) List() []Summary {
	s.mu.RLock()
	slots := make([]*slot, 0, len(s.items))
	for _, sl := range s.items {
		slots = append(slots, sl)
	}
	s.mu.RUnlock()

	out := make([]Summary, 0, len(slots))
	for _, sl := range slots {
		sl.mu.Lock()
		out = append(out, summarize(sl.sc))
		sl.mu.Unlock()
	}
	slices.SortFunc(out, func(a, b Summary) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return out
}

// Delete removes a scorecard.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	_, ok := s.items[id]
	delete(s.items, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.log.InfoContext(ctx, "Scorecard deleted", applog.FieldScorecardID, id)
	return nil
}

// View runs fn with the scorecard locked. fn must not mutate it.
func (s *Service) View(id string, fn func(*Scorecard) error) error {
	sl, err := s.slot(id)
	if err != nil {
		return err
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return fn(sl.sc)
}

// Update runs fn with the scorecard locked.
func (s *Service) Update(id string, fn func(*Scorecard) error) error {
	return s.View(id, fn)
}

// Snapshot returns the finalized view of a scorecard.
func (s *Service) Snapshot(id string) (core.Snapshot, error) {
	var snap core.Snapshot
	err := s.View(id, func(sc *Scorecard) error {
		snap = sc.Snapshot()
		return nil
	})
	return snap, err
}

// SetChannelAllocation sets a channel's share and logs the resulting mix total.
func (s *Service) SetChannelAllocation(ctx context.Context, id, channel string, pct float64) (core.AllocationEntry, core.LedgerSnapshot, error) {
	var (
		entry core.AllocationEntry
		mix   core.LedgerSnapshot
		rev   int64
	)
	err := s.Update(id, func(sc *Scorecard) error {
		e, err := sc.SetChannelAllocation(channel, pct)
		if err != nil {
			return err
		}
		entry, mix, rev = e, sc.mix.Snapshot(), sc.Revision
		return nil
	})
	if err != nil {
		return core.AllocationEntry{}, core.LedgerSnapshot{}, err
	}
	s.events.LogAllocation(ctx, id, rev, channel, entry.Percentage, mix.TotalBudget, mix.TotalAllocated, mix.Balanced)
	return entry, mix, nil
}

// Generate replaces a benchmark's initiatives with generated suggestions. The
// generator runs without holding the scorecard lock.
func (s *Service) Generate(ctx context.Context, id, benchmarkID string) ([]core.InitiativeLine, error) {
	var req generator.Request
	err := s.View(id, func(sc *Scorecard) error {
		i, err := sc.benchmarkIndex(benchmarkID)
		if err != nil {
			return err
		}
		b := sc.benchmarks[i]
		req = generator.Request{
			BenchmarkTitle: b.Title,
			MetricName:     b.MetricName,
			Goal:           b.Goal,
			Industry:       sc.profile.Industry,
			Products:       sc.profile.Products,
			TotalBudget:    sc.profile.TotalBudget,
			Personnel:      slices.Clone(sc.profile.Personnel),
			Channels:       slices.Clone(sc.profile.Channels),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	start := time.Now()
	gen, err := s.generator.Generate(ctx, req)
	if err != nil {
		s.events.LogError(ctx, "Initiative generation failed", err, applog.OpGenerate, applog.LogFields{
			applog.FieldScorecardID: id,
			applog.FieldBenchmarkID: benchmarkID,
		})
		return nil, fmt.Errorf("generate initiatives: %w", err)
	}

	var lines []core.InitiativeLine
	err = s.Update(id, func(sc *Scorecard) error {
		var err error
		lines, err = sc.ReplaceInitiatives(benchmarkID, gen, req.TotalBudget)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "Initiatives generated",
		applog.FieldScorecardID, id,
		applog.FieldBenchmarkID, benchmarkID,
		"count", len(lines),
		applog.FieldDuration, time.Since(start).Milliseconds())
	return lines, nil
}

// Export hands the current snapshot to the configured exporter.
func (s *Service) Export(ctx context.Context, id string) (string, core.Snapshot, error) {
	if s.exporter == nil {
		return "", core.Snapshot{}, ErrNoExporter
	}
	snap, err := s.Snapshot(id)
	if err != nil {
		return "", core.Snapshot{}, err
	}
	ref, err := s.exporter.Export(ctx, snap)
	if err != nil {
		s.events.LogError(ctx, "Scorecard export failed", err, applog.OpExport,
			applog.NewFields().WithScorecard(id, snap.Revision))
		return ref, snap, fmt.Errorf("export scorecard: %w", err)
	}
	s.events.LogExport(ctx, id, snap.Revision, "service", ref)
	return ref, snap, nil
}
