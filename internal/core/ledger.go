package core

import (
	"iter"
	"math"
	"slices"

	"github.com/shopspring/decimal"
)

// DefaultBalanceEpsilon is the tolerance used by IsBalanced when none is configured.
const DefaultBalanceEpsilon = 1e-6

const fullAllocation = 100

type (
	// AllocationEntry is a named share of a ledger's total budget.
	// Amount is always derived from Percentage and the budget at read time.
	AllocationEntry struct {
		Key        string  `json:"key"`
		Percentage float64 `json:"percentage"`
		Amount     float64 `json:"amount"`
	}

	// ChartPoint is one slice of the allocation chart.
	ChartPoint struct {
		Key   string  `json:"key"`
		Value float64 `json:"value"`
	}

	// LedgerSnapshot is a point-in-time copy of a ledger handed to collaborators.
	LedgerSnapshot struct {
		TotalBudget    float64           `json:"total_budget"`
		Entries        []AllocationEntry `json:"entries"`
		TotalAllocated float64           `json:"total_allocated"`
		Balanced       bool              `json:"balanced"`
	}

	// Ledger owns a total budget and an ordered set of percentage allocations.
	// It is not safe for concurrent use; owners serialize access.
	Ledger struct {
		totalBudget float64
		epsilon     float64
		order       []string
		percents    map[string]float64
	}

	// LedgerOption configures a Ledger.
	LedgerOption func(*Ledger)
)

// WithEpsilon sets the tolerance IsBalanced uses. Non-positive values are ignored.
func WithEpsilon(eps float64) LedgerOption {
	return func(l *Ledger) {
		if eps > 0 && !math.IsNaN(eps) && !math.IsInf(eps, 0) {
			l.epsilon = eps
		}
	}
}

// NewLedger creates an empty ledger for the given total budget.
func NewLedger(totalBudget float64, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		totalBudget: clampBudget(totalBudget),
		epsilon:     DefaultBalanceEpsilon,
		percents:    make(map[string]float64),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// TotalBudget returns the current total budget.
func (l *Ledger) TotalBudget() float64 {
	return l.totalBudget
}

// Epsilon returns the balance tolerance.
func (l *Ledger) Epsilon() float64 {
	return l.epsilon
}

// SetTotalBudget replaces the total budget. Negative input is clamped to 0.
// Every entry's amount follows the new total; percentages are untouched.
func (l *Ledger) SetTotalBudget(v float64) {
	l.totalBudget = clampBudget(v)
}

// UpsertEntry sets the percentage for key, clamped to [0, 100].
// New keys are appended; existing keys keep their position.
func (l *Ledger) UpsertEntry(key string, percentage float64) AllocationEntry {
	p := ClampPercentage(percentage)
	if _, ok := l.percents[key]; !ok {
		l.order = append(l.order, key)
	}
	l.percents[key] = p
	return l.entry(key, p)
}

// RemoveEntry deletes key. Removing an absent key is a no-op.
func (l *Ledger) RemoveEntry(key string) {
	if _, ok := l.percents[key]; !ok {
		return
	}
	delete(l.percents, key)
	if i := slices.Index(l.order, key); i >= 0 {
		l.order = slices.Delete(l.order, i, i+1)
	}
}

// SyncKeys reconciles the ledger with an owning list. Keys missing from keys are
// removed, new keys start at 0% and the resulting order follows keys.
func (l *Ledger) SyncKeys(keys []string) {
	next := make(map[string]float64, len(keys))
	order := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, dup := next[k]; dup {
			continue
		}
		next[k] = l.percents[k]
		order = append(order, k)
	}
	l.percents = next
	l.order = order
}

// Has reports whether key has an entry.
func (l *Ledger) Has(key string) bool {
	_, ok := l.percents[key]
	return ok
}

// Entry returns the entry for key with its amount derived from the current budget.
func (l *Ledger) Entry(key string) (AllocationEntry, bool) {
	p, ok := l.percents[key]
	if !ok {
		return AllocationEntry{}, false
	}
	return l.entry(key, p), true
}

// Entries returns all entries in ledger order.
func (l *Ledger) Entries() []AllocationEntry {
	out := make([]AllocationEntry, 0, len(l.order))
	for _, k := range l.order {
		out = append(out, l.entry(k, l.percents[k]))
	}
	return out
}

// Keys returns the entry keys in ledger order.
func (l *Ledger) Keys() []string {
	return slices.Clone(l.order)
}

// Len returns the number of entries.
func (l *Ledger) Len() int {
	return len(l.order)
}

// TotalAllocated returns the sum of all entry percentages.
func (l *Ledger) TotalAllocated() float64 {
	return l.allocated().InexactFloat64()
}

// IsBalanced reports whether the allocations sum to 100 within the ledger epsilon.
func (l *Ledger) IsBalanced() bool {
	diff := l.allocated().Sub(decimal.NewFromInt(fullAllocation)).Abs()
	return diff.LessThanOrEqual(decimal.NewFromFloat(l.epsilon))
}

// allocated sums the percentages in decimal so that values such as
// 33.333333 * 3 add up to exactly 99.999999.
func (l *Ledger) allocated() decimal.Decimal {
	sum := decimal.Zero
	for _, k := range l.order {
		sum = sum.Add(decimal.NewFromFloat(l.percents[k]))
	}
	return sum
}

// ChartSeries yields the non-zero allocations in ledger order. The sequence reads
// the live ledger, so each iteration reflects the state at the time it runs.
func (l *Ledger) ChartSeries() iter.Seq[ChartPoint] {
	return func(yield func(ChartPoint) bool) {
		for _, k := range l.order {
			p := l.percents[k]
			if p <= 0 {
				continue
			}
			if !yield(ChartPoint{Key: k, Value: p}) {
				return
			}
		}
	}
}

// Snapshot returns a read-only copy of the ledger state.
func (l *Ledger) Snapshot() LedgerSnapshot {
	return LedgerSnapshot{
		TotalBudget:    l.totalBudget,
		Entries:        l.Entries(),
		TotalAllocated: l.TotalAllocated(),
		Balanced:       l.IsBalanced(),
	}
}

// Clone returns an independent copy of the ledger.
func (l *Ledger) Clone() *Ledger {
	c := &Ledger{
		totalBudget: l.totalBudget,
		epsilon:     l.epsilon,
		order:       slices.Clone(l.order),
		percents:    make(map[string]float64, len(l.percents)),
	}
	for k, v := range l.percents {
		c.percents[k] = v
	}
	return c
}

func (l *Ledger) entry(key string, p float64) AllocationEntry {
	return AllocationEntry{Key: key, Percentage: p, Amount: AmountOf(p, l.totalBudget)}
}

// ClampPercentage bounds p to [0, 100]. NaN becomes 0.
func ClampPercentage(p float64) float64 {
	if math.IsNaN(p) {
		return 0
	}
	return math.Max(0, math.Min(fullAllocation, p))
}

// AmountOf returns the share of budget represented by percentage.
func AmountOf(percentage, budget float64) float64 {
	return percentage / fullAllocation * budget
}

// PercentageOf converts an amount of budget into a percentage, clamped to [0, 100].
// A zero budget yields 0.
func PercentageOf(amount, budget float64) float64 {
	if budget <= 0 {
		return 0
	}
	return ClampPercentage(amount / budget * fullAllocation)
}

func clampBudget(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// Chart returns the non-zero allocations of the snapshot in order.
func (s LedgerSnapshot) Chart() []ChartPoint {
	out := make([]ChartPoint, 0, len(s.Entries))
	for _, e := range s.Entries {
		if e.Percentage > 0 {
			out = append(out, ChartPoint{Key: e.Key, Value: e.Percentage})
		}
	}
	return out
}
