// Package scorecard owns the state of marketing scorecards: a brand profile,
// the marketing-mix ledger keyed by channel and the initiative ledger keyed by
// initiative ID. Both ledgers follow the profile's total budget.
package scorecard

import (
	"fmt"
	"slices"
	"time"

	"scorecard/internal/core"
)

// Scorecard is not safe for concurrent use. Service serializes access.
type Scorecard struct {
	ID        string
	Name      string
	CreatedAt time.Time
	Revision  int64

	profile     core.BrandProfile
	mix         *core.Ledger
	initiatives *core.Ledger
	benchmarks  []core.Benchmark
	now         func() time.Time
}

// BenchmarkFields carries optional benchmark updates; nil fields are left alone.
type BenchmarkFields struct {
	Title      *string `json:"title,omitempty"`
	Timeline   *string `json:"timeline,omitempty"`
	MetricName *string `json:"metric_name,omitempty"`
	Benchmark  *string `json:"benchmark,omitempty"`
	Goal       *string `json:"goal,omitempty"`
	Notes      *string `json:"notes,omitempty"`
}

// InitiativeFields carries optional initiative updates; nil fields are left alone.
// Cost and Percent both write the initiative ledger; Percent wins when both are set.
type InitiativeFields struct {
	Name       *string          `json:"name,omitempty"`
	Difficulty *core.Difficulty `json:"difficulty,omitempty"`
	Personnel  []string         `json:"personnel,omitempty"`
	Status     *string          `json:"status,omitempty"`
	Cost       *float64         `json:"cost,omitempty"`
	Percent    *float64         `json:"budget_percent,omitempty"`
}

// Option configures a Scorecard.
type Option func(*Scorecard)

// WithClock overrides the time source used for snapshots.
func WithClock(now func() time.Time) Option {
	return func(s *Scorecard) { s.now = now }
}

// WithEpsilon sets the balance tolerance of both ledgers.
func WithEpsilon(eps float64) Option {
	return func(s *Scorecard) {
		s.mix = core.NewLedger(s.profile.TotalBudget, core.WithEpsilon(eps))
		s.initiatives = core.NewLedger(s.profile.TotalBudget, core.WithEpsilon(eps))
	}
}

// New returns a scorecard with a default brand profile and one collapsed benchmark,
// mirroring a freshly opened form.
func New(id, name string, opts ...Option) *Scorecard {
	profile := core.NewBrandProfile()
	s := &Scorecard{
		ID:          id,
		Name:        name,
		profile:     profile,
		mix:         core.NewLedger(profile.TotalBudget),
		initiatives: core.NewLedger(profile.TotalBudget),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	b := core.NewBenchmark()
	b.Timeline = fmt.Sprintf("%d Q1", s.now().Year())
	s.benchmarks = []core.Benchmark{b}
	s.CreatedAt = s.now()
	return s
}

// Profile returns a copy of the brand profile.
func (s *Scorecard) Profile() core.BrandProfile {
	p := s.profile
	p.Personnel = slices.Clone(p.Personnel)
	p.Segments = slices.Clone(p.Segments)
	p.Channels = slices.Clone(p.Channels)
	return p
}

// Mix exposes the marketing-mix ledger for read access.
func (s *Scorecard) Mix() *core.Ledger { return s.mix }

// InitiativeLedger exposes the initiative ledger for read access.
func (s *Scorecard) InitiativeLedger() *core.Ledger { return s.initiatives }

func (s *Scorecard) touch() { s.Revision++ }

// SetTotalBudget updates the profile budget and both ledgers.
func (s *Scorecard) SetTotalBudget(v float64) {
	s.mix.SetTotalBudget(v)
	s.initiatives.SetTotalBudget(v)
	s.profile.TotalBudget = s.mix.TotalBudget()
	s.touch()
}

// SetDetails replaces the free-text fields of the profile.
func (s *Scorecard) SetDetails(name, products, industry, logo string) error {
	next := s.profile
	next.Name, next.Products, next.Industry, next.Logo = name, products, industry, logo
	if err := next.Validate(); err != nil {
		return err
	}
	s.profile = next
	s.touch()
	return nil
}

// AddChannel adds a channel to the profile and a 0% entry to the mix.
func (s *Scorecard) AddChannel(name string) bool {
	list, ok := core.AddItem(s.profile.Channels, name)
	if !ok {
		return false
	}
	s.profile.Channels = list
	s.mix.SyncKeys(list)
	s.touch()
	return true
}

// RemoveChannel drops a channel and its mix entry. Absent channels are a no-op.
func (s *Scorecard) RemoveChannel(name string) bool {
	list, ok := core.RemoveItem(s.profile.Channels, name)
	if !ok {
		return false
	}
	s.profile.Channels = list
	s.mix.SyncKeys(list)
	s.touch()
	return true
}

func (s *Scorecard) AddPersonnel(name string) bool {
	list, ok := core.AddItem(s.profile.Personnel, name)
	if ok {
		s.profile.Personnel = list
		s.touch()
	}
	return ok
}

func (s *Scorecard) RemovePersonnel(name string) bool {
	list, ok := core.RemoveItem(s.profile.Personnel, name)
	if ok {
		s.profile.Personnel = list
		s.touch()
	}
	return ok
}

func (s *Scorecard) AddSegment(name string) bool {
	list, ok := core.AddItem(s.profile.Segments, name)
	if ok {
		s.profile.Segments = list
		s.touch()
	}
	return ok
}

func (s *Scorecard) RemoveSegment(name string) bool {
	list, ok := core.RemoveItem(s.profile.Segments, name)
	if ok {
		s.profile.Segments = list
		s.touch()
	}
	return ok
}

// SetChannelAllocation sets a channel's share of the budget.
func (s *Scorecard) SetChannelAllocation(channel string, pct float64) (core.AllocationEntry, error) {
	if !s.mix.Has(channel) {
		return core.AllocationEntry{}, fmt.Errorf("%w: %s", core.ErrUnknownChannel, channel)
	}
	e := s.mix.UpsertEntry(channel, pct)
	s.touch()
	return e, nil
}

// Benchmarks returns a deep copy of the benchmarks in display order.
func (s *Scorecard) Benchmarks() []core.Benchmark {
	out := make([]core.Benchmark, len(s.benchmarks))
	for i, b := range s.benchmarks {
		b.Initiatives = slices.Clone(b.Initiatives)
		for j := range b.Initiatives {
			b.Initiatives[j].Personnel = slices.Clone(b.Initiatives[j].Personnel)
		}
		out[i] = b
	}
	return out
}

// AddBenchmark appends an expanded, empty benchmark.
func (s *Scorecard) AddBenchmark() core.Benchmark {
	b := core.NewBenchmark()
	b.Expanded = true
	s.benchmarks = append(s.benchmarks, b)
	s.touch()
	return b
}

func (s *Scorecard) benchmarkIndex(id string) (int, error) {
	i := slices.IndexFunc(s.benchmarks, func(b core.Benchmark) bool { return b.ID == id })
	if i < 0 {
		return -1, fmt.Errorf("%w: %s", core.ErrUnknownBenchmark, id)
	}
	return i, nil
}

// UpdateBenchmark applies the non-nil fields to the benchmark.
func (s *Scorecard) UpdateBenchmark(id string, f BenchmarkFields) (core.Benchmark, error) {
	i, err := s.benchmarkIndex(id)
	if err != nil {
		return core.Benchmark{}, err
	}
	b := s.benchmarks[i]
	assign(&b.Title, f.Title)
	assign(&b.Timeline, f.Timeline)
	assign(&b.MetricName, f.MetricName)
	assign(&b.Benchmark, f.Benchmark)
	assign(&b.Goal, f.Goal)
	assign(&b.Notes, f.Notes)
	if err := b.Validate(); err != nil {
		return core.Benchmark{}, err
	}
	s.benchmarks[i] = b
	s.touch()
	return b, nil
}

func assign(dst, src *string) {
	if src != nil {
		*dst = *src
	}
}

// ToggleBenchmark flips the expanded flag.
func (s *Scorecard) ToggleBenchmark(id string) (bool, error) {
	i, err := s.benchmarkIndex(id)
	if err != nil {
		return false, err
	}
	s.benchmarks[i].Expanded = !s.benchmarks[i].Expanded
	s.touch()
	return s.benchmarks[i].Expanded, nil
}

// DeleteBenchmark removes the benchmark and its initiatives' ledger entries.
// Unknown IDs are a no-op.
func (s *Scorecard) DeleteBenchmark(id string) {
	i, err := s.benchmarkIndex(id)
	if err != nil {
		return
	}
	for _, in := range s.benchmarks[i].Initiatives {
		s.initiatives.RemoveEntry(in.ID)
	}
	s.benchmarks = slices.Delete(s.benchmarks, i, i+1)
	s.touch()
}

func (s *Scorecard) initiativeIndex(bid, iid string) (int, int, error) {
	bi, err := s.benchmarkIndex(bid)
	if err != nil {
		return -1, -1, err
	}
	ii := slices.IndexFunc(s.benchmarks[bi].Initiatives, func(in core.Initiative) bool { return in.ID == iid })
	if ii < 0 {
		return -1, -1, fmt.Errorf("%w: %s", core.ErrUnknownInitiative, iid)
	}
	return bi, ii, nil
}

// AddInitiative appends a blank initiative at 0% of the budget.
func (s *Scorecard) AddInitiative(bid string) (core.Initiative, error) {
	bi, err := s.benchmarkIndex(bid)
	if err != nil {
		return core.Initiative{}, err
	}
	in := core.NewInitiative()
	s.benchmarks[bi].Initiatives = append(s.benchmarks[bi].Initiatives, in)
	s.initiatives.UpsertEntry(in.ID, 0)
	s.touch()
	return in, nil
}

// UpdateInitiative applies the non-nil fields to the initiative.
func (s *Scorecard) UpdateInitiative(bid, iid string, f InitiativeFields) (core.InitiativeLine, error) {
	bi, ii, err := s.initiativeIndex(bid, iid)
	if err != nil {
		return core.InitiativeLine{}, err
	}
	in := s.benchmarks[bi].Initiatives[ii]
	if f.Name != nil {
		in.Name = *f.Name
	}
	if f.Difficulty != nil {
		in.Difficulty = core.ClampDifficulty(*f.Difficulty)
	}
	if f.Personnel != nil {
		in.Personnel = slices.Clone(f.Personnel)
	}
	if f.Status != nil {
		st, err := core.ParseStatus(*f.Status)
		if err != nil {
			return core.InitiativeLine{}, err
		}
		in.Status = st
	}
	if err := in.Validate(); err != nil {
		return core.InitiativeLine{}, err
	}
	s.benchmarks[bi].Initiatives[ii] = in
	switch {
	case f.Percent != nil:
		s.initiatives.UpsertEntry(iid, *f.Percent)
	case f.Cost != nil:
		s.initiatives.UpsertEntry(iid, core.PercentageOf(*f.Cost, s.initiatives.TotalBudget()))
	}
	s.touch()
	return s.line(in), nil
}

// SetInitiativeCost records cost as a share of the current budget.
func (s *Scorecard) SetInitiativeCost(bid, iid string, cost float64) (core.InitiativeLine, error) {
	return s.UpdateInitiative(bid, iid, InitiativeFields{Cost: &cost})
}

// SetInitiativePercent records the initiative's share of the budget directly.
func (s *Scorecard) SetInitiativePercent(bid, iid string, pct float64) (core.InitiativeLine, error) {
	return s.UpdateInitiative(bid, iid, InitiativeFields{Percent: &pct})
}

// DeleteInitiative removes the initiative and its ledger entry. Unknown IDs are a no-op.
func (s *Scorecard) DeleteInitiative(bid, iid string) {
	bi, ii, err := s.initiativeIndex(bid, iid)
	if err != nil {
		return
	}
	s.benchmarks[bi].Initiatives = slices.Delete(s.benchmarks[bi].Initiatives, ii, ii+1)
	s.initiatives.RemoveEntry(iid)
	s.touch()
}

// ReplaceInitiatives swaps a benchmark's initiatives for generated suggestions.
// Costs are converted to shares of sizedFor, the budget the generator was given.
func (s *Scorecard) ReplaceInitiatives(bid string, gen []core.GeneratedInitiative, sizedFor float64) ([]core.InitiativeLine, error) {
	bi, err := s.benchmarkIndex(bid)
	if err != nil {
		return nil, err
	}
	for _, in := range s.benchmarks[bi].Initiatives {
		s.initiatives.RemoveEntry(in.ID)
	}
	next := make([]core.Initiative, 0, len(gen))
	lines := make([]core.InitiativeLine, 0, len(gen))
	for _, g := range gen {
		in := core.NewInitiative()
		in.Name = g.Name
		in.Difficulty = core.ClampDifficulty(g.Difficulty)
		in.Personnel = slices.Clone(g.Personnel)
		if in.Personnel == nil {
			in.Personnel = []string{}
		}
		s.initiatives.UpsertEntry(in.ID, core.PercentageOf(g.Cost, sizedFor))
		next = append(next, in)
		lines = append(lines, s.line(in))
	}
	s.benchmarks[bi].Initiatives = next
	s.touch()
	return lines, nil
}

func (s *Scorecard) line(in core.Initiative) core.InitiativeLine {
	e, _ := s.initiatives.Entry(in.ID)
	return core.InitiativeLine{Initiative: in, Cost: e.Amount, BudgetPercent: e.Percentage}
}

// Snapshot returns the finalized view handed to report and export collaborators.
func (s *Scorecard) Snapshot() core.Snapshot {
	benchmarks := make([]core.BenchmarkLine, 0, len(s.benchmarks))
	for _, b := range s.benchmarks {
		lines := make([]core.InitiativeLine, 0, len(b.Initiatives))
		for _, in := range b.Initiatives {
			in.Personnel = slices.Clone(in.Personnel)
			lines = append(lines, s.line(in))
		}
		benchmarks = append(benchmarks, core.BenchmarkLine{
			ID:          b.ID,
			Title:       b.Title,
			Timeline:    b.Timeline,
			MetricName:  b.MetricName,
			Benchmark:   b.Benchmark,
			Goal:        b.Goal,
			Notes:       b.Notes,
			Initiatives: lines,
		})
	}
	return core.Snapshot{
		ScorecardID: s.ID,
		Name:        s.Name,
		Revision:    s.Revision,
		TakenAt:     s.now().UTC(),
		Profile:     s.Profile(),
		Mix:         s.mix.Snapshot(),
		Benchmarks:  benchmarks,
		Initiatives: s.initiatives.Snapshot(),
	}
}
