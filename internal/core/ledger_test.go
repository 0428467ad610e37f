package core

import (
	"math"
	"slices"
	"testing"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(1, math.Abs(b))
}

func TestUpsertEntryDerivesAmount(t *testing.T) {
	cases := []struct {
		budget, pct, want float64
	}{
		{1000, 25, 250},
		{50000, 60, 30000},
		{0, 40, 0},
		{12345.67, 33.3, 4111.10811},
		{99.99, 100, 99.99},
		{1000, 0, 0},
	}
	for i, tc := range cases {
		l := NewLedger(tc.budget)
		got := l.UpsertEntry("k", tc.pct)
		if !approx(got.Amount, tc.want) {
			t.Fatalf("case %d: amount=%v want %v", i, got.Amount, tc.want)
		}
		e, ok := l.Entry("k")
		if !ok || !approx(e.Amount, tc.pct/100*tc.budget) {
			t.Fatalf("case %d: entry=%+v ok=%v", i, e, ok)
		}
	}
}

func TestUpsertEntryClamps(t *testing.T) {
	l := NewLedger(1000)
	if e := l.UpsertEntry("a", 150); e.Percentage != 100 || e.Amount != 1000 {
		t.Fatalf("expected clamp to 100, got %+v", e)
	}
	if e := l.UpsertEntry("b", -5); e.Percentage != 0 || e.Amount != 0 {
		t.Fatalf("expected clamp to 0, got %+v", e)
	}
	if e := l.UpsertEntry("c", math.NaN()); e.Percentage != 0 {
		t.Fatalf("expected NaN to clamp to 0, got %+v", e)
	}
}

func TestUpsertEntryKeepsOrder(t *testing.T) {
	l := NewLedger(100)
	l.UpsertEntry("a", 10)
	l.UpsertEntry("b", 20)
	l.UpsertEntry("c", 30)
	l.UpsertEntry("a", 40)
	if got := l.Keys(); !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Fatalf("unexpected order: %v", got)
	}
	if e, _ := l.Entry("a"); e.Percentage != 40 {
		t.Fatalf("expected a replaced in place, got %+v", e)
	}
}

func TestSetTotalBudgetPropagates(t *testing.T) {
	l := NewLedger(1000)
	l.UpsertEntry("A", 50)
	l.UpsertEntry("B", 50)
	l.SetTotalBudget(2000)
	for _, k := range []string{"A", "B"} {
		e, _ := l.Entry(k)
		if e.Amount != 1000 || e.Percentage != 50 {
			t.Fatalf("%s: unexpected entry %+v", k, e)
		}
	}
}

func TestSetTotalBudgetRejectsNegative(t *testing.T) {
	l := NewLedger(-10)
	if l.TotalBudget() != 0 {
		t.Fatalf("expected 0 budget, got %v", l.TotalBudget())
	}
	l.UpsertEntry("a", 50)
	l.SetTotalBudget(-500)
	if e, _ := l.Entry("a"); e.Amount != 0 || e.Amount < 0 {
		t.Fatalf("negative budget produced amount %v", e.Amount)
	}
	l.SetTotalBudget(math.Inf(1))
	if l.TotalBudget() != 0 {
		t.Fatalf("expected infinite budget to clamp to 0, got %v", l.TotalBudget())
	}
}

func TestIsBalanced(t *testing.T) {
	cases := []struct {
		name string
		pcts []float64
		want bool
	}{
		{"exact", []float64{60, 40}, true},
		{"within epsilon", []float64{99.999999}, true},
		{"thirds", []float64{33.333333, 33.333333, 33.333333}, true},
		{"under", []float64{50, 40}, false},
		{"over", []float64{60, 60}, false},
		{"empty", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := NewLedger(1000)
			for i, p := range tc.pcts {
				l.UpsertEntry(string(rune('a'+i)), p)
			}
			if got := l.IsBalanced(); got != tc.want {
				t.Fatalf("IsBalanced()=%v want %v (total %v)", got, tc.want, l.TotalAllocated())
			}
		})
	}
}

func TestWithEpsilon(t *testing.T) {
	l := NewLedger(100, WithEpsilon(0.5))
	l.UpsertEntry("a", 99.6)
	if !l.IsBalanced() {
		t.Fatalf("expected balanced with epsilon 0.5")
	}
	l = NewLedger(100, WithEpsilon(-1))
	if l.Epsilon() != DefaultBalanceEpsilon {
		t.Fatalf("expected default epsilon, got %v", l.Epsilon())
	}
}

func TestOverAllocationIsAccepted(t *testing.T) {
	l := NewLedger(1000)
	l.UpsertEntry("a", 80)
	l.UpsertEntry("b", 70)
	if l.TotalAllocated() != 150 {
		t.Fatalf("expected aggregate 150, got %v", l.TotalAllocated())
	}
	if l.IsBalanced() {
		t.Fatalf("expected imbalance to be reported")
	}
}

func TestRemoveEntryIdempotent(t *testing.T) {
	l := NewLedger(1000)
	l.UpsertEntry("a", 30)
	l.UpsertEntry("b", 70)
	l.RemoveEntry("a")
	first := l.Snapshot()
	l.RemoveEntry("a")
	second := l.Snapshot()
	if !slices.Equal(first.Entries, second.Entries) || first.TotalAllocated != second.TotalAllocated {
		t.Fatalf("second removal changed state: %+v vs %+v", first, second)
	}
	if l.Len() != 1 || l.Has("a") {
		t.Fatalf("unexpected entries after removal: %v", l.Keys())
	}
	l.RemoveEntry("missing")
}

func TestChartSeriesExcludesZero(t *testing.T) {
	l := NewLedger(1000)
	l.UpsertEntry("A", 0)
	l.UpsertEntry("B", 30)
	got := slices.Collect(l.ChartSeries())
	want := []ChartPoint{{Key: "B", Value: 30}}
	if !slices.Equal(got, want) {
		t.Fatalf("chart=%v want %v", got, want)
	}
	// Restartable: a second pass sees the current state.
	l.UpsertEntry("A", 10)
	got = slices.Collect(l.ChartSeries())
	if len(got) != 2 || got[0].Key != "A" {
		t.Fatalf("second pass chart=%v", got)
	}
	if snap := l.Snapshot().Chart(); !slices.Equal(snap, got) {
		t.Fatalf("snapshot chart %v differs from series %v", snap, got)
	}
}

func TestChartSeriesEarlyStop(t *testing.T) {
	l := NewLedger(1000)
	l.UpsertEntry("a", 10)
	l.UpsertEntry("b", 20)
	l.UpsertEntry("c", 30)
	n := 0
	for range l.ChartSeries() {
		n++
		break
	}
	if n != 1 {
		t.Fatalf("expected early stop after 1, got %d", n)
	}
}

func TestSyncKeys(t *testing.T) {
	l := NewLedger(1000)
	l.UpsertEntry("a", 10)
	l.UpsertEntry("b", 20)
	l.SyncKeys([]string{"c", "b", "c"})
	if got := l.Keys(); !slices.Equal(got, []string{"c", "b"}) {
		t.Fatalf("unexpected keys %v", got)
	}
	if e, _ := l.Entry("b"); e.Percentage != 20 {
		t.Fatalf("expected b kept at 20, got %+v", e)
	}
	if e, _ := l.Entry("c"); e.Percentage != 0 {
		t.Fatalf("expected c added at 0, got %+v", e)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	l := NewLedger(1000)
	l.UpsertEntry("a", 10)
	c := l.Clone()
	c.UpsertEntry("a", 90)
	c.SetTotalBudget(5)
	if e, _ := l.Entry("a"); e.Percentage != 10 || l.TotalBudget() != 1000 {
		t.Fatalf("clone mutated original: %+v budget=%v", e, l.TotalBudget())
	}
}

func TestPercentageOf(t *testing.T) {
	if got := PercentageOf(250, 1000); got != 25 {
		t.Fatalf("expected 25, got %v", got)
	}
	if got := PercentageOf(5000, 1000); got != 100 {
		t.Fatalf("expected clamp to 100, got %v", got)
	}
	if got := PercentageOf(10, 0); got != 0 {
		t.Fatalf("expected 0 for zero budget, got %v", got)
	}
}

func TestLedgerMarketingMixScenario(t *testing.T) {
	l := NewLedger(50000)
	l.UpsertEntry("Social Media", 60)
	l.UpsertEntry("Retail", 40)

	if l.TotalAllocated() != 100 || !l.IsBalanced() {
		t.Fatalf("expected balanced 100, got %v", l.TotalAllocated())
	}
	social, _ := l.Entry("Social Media")
	retail, _ := l.Entry("Retail")
	if !approx(social.Amount, 30000) || !approx(retail.Amount, 20000) {
		t.Fatalf("unexpected amounts %v / %v", social.Amount, retail.Amount)
	}

	l.SetTotalBudget(100000)
	social, _ = l.Entry("Social Media")
	retail, _ = l.Entry("Retail")
	if !approx(social.Amount, 60000) || !approx(retail.Amount, 40000) {
		t.Fatalf("unexpected amounts after budget change %v / %v", social.Amount, retail.Amount)
	}
	if social.Percentage != 60 || retail.Percentage != 40 {
		t.Fatalf("percentages changed: %v / %v", social.Percentage, retail.Percentage)
	}
}
