package scorecard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"scorecard/internal/core"
	"scorecard/internal/exporter"
	"scorecard/internal/generator"
)

func newTestService(opts ...ServiceOption) *Service {
	n := 0
	base := []ServiceOption{
		WithServiceClock(fixedClock()),
		WithIDFunc(func() string {
			n++
			return fmt.Sprintf("sc-%d", n)
		}),
	}
	return NewService(append(base, opts...)...)
}

func TestServiceCreateNamesAndList(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	a := svc.Create(ctx, "")
	b := svc.Create(ctx, "Spring launch")
	c := svc.Create(ctx, "")

	if a.Name != "Scorecard 1" || b.Name != "Spring launch" || c.Name != "Scorecard 3" {
		t.Fatalf("unexpected names %q %q %q", a.Name, b.Name, c.Name)
	}
	list := svc.List()
	if len(list) != 3 {
		t.Fatalf("expected 3 scorecards, got %d", len(list))
	}
	if list[0].Name != "Scorecard 1" || list[1].Name != "Scorecard 3" {
		t.Fatalf("unexpected order %+v", list)
	}
	if a.TotalBudget != core.DefaultTotalBudget || a.Benchmarks != 1 || a.MixBalanced {
		t.Fatalf("unexpected summary %+v", a)
	}
}

func TestServiceNotFound(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	if _, err := svc.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := svc.Delete(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Snapshot("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Generate(ctx, "nope", "bm"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestServiceDetail(t *testing.T) {
	svc := newTestService()
	sum := svc.Create(context.Background(), "Detail")
	err := svc.Update(sum.ID, func(sc *Scorecard) error {
		sc.AddChannel("Retail")
		_, err := sc.SetChannelAllocation("Retail", 100)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	d, err := svc.Detail(sum.ID)
	if err != nil {
		t.Fatal(err)
	}
	if d.Revision != 2 || !d.MixBalanced || len(d.Profile.Channels) != 1 {
		t.Fatalf("unexpected detail %+v", d)
	}
	if len(d.Benchmarks) != 1 || d.Benchmarks[0].Expanded {
		t.Fatalf("expected one collapsed default benchmark, got %+v", d.Benchmarks)
	}
	if d.Mix.Entries[0].Amount != core.DefaultTotalBudget {
		t.Fatalf("unexpected mix %+v", d.Mix)
	}
	if _, err := svc.Detail("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestServiceDelete(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	s := svc.Create(ctx, "")
	if err := svc.Delete(ctx, s.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(svc.List()) != 0 {
		t.Fatal("expected empty workspace")
	}
}

func TestServiceSetChannelAllocation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	s := svc.Create(ctx, "")
	err := svc.Update(s.ID, func(sc *Scorecard) error {
		sc.AddChannel("Social Media")
		sc.AddChannel("Retail")
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, _, err := svc.SetChannelAllocation(ctx, s.ID, "Social Media", 60); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e, mix, err := svc.SetChannelAllocation(ctx, s.ID, "Retail", 40)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Amount != 20000 || mix.TotalAllocated != 100 || !mix.Balanced {
		t.Fatalf("unexpected allocation %+v mix %+v", e, mix)
	}
	if _, _, err := svc.SetChannelAllocation(ctx, s.ID, "Billboards", 10); !errors.Is(err, core.ErrUnknownChannel) {
		t.Fatalf("expected ErrUnknownChannel, got %v", err)
	}
	got, _ := svc.Get(s.ID)
	if !got.MixBalanced || got.Revision != 4 {
		t.Fatalf("unexpected summary %+v", got)
	}
}

func TestServiceGenerateWithTemplate(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	s := svc.Create(ctx, "")

	var bid string
	_ = svc.Update(s.ID, func(sc *Scorecard) error {
		for _, p := range []string{"Ana", "Ben", "Cy", "Dee"} {
			sc.AddPersonnel(p)
		}
		bid = sc.Benchmarks()[0].ID
		metric := "Website Traffic"
		_, err := sc.UpdateBenchmark(bid, BenchmarkFields{MetricName: &metric})
		return err
	})

	lines, err := svc.Generate(ctx, s.ID, bid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 initiatives, got %d", len(lines))
	}
	if lines[0].Cost != 10000 || lines[0].BudgetPercent != 20 {
		t.Fatalf("unexpected first line %+v", lines[0])
	}
	if !strings.Contains(lines[0].Name, "Website Traffic") {
		t.Fatalf("expected metric name in %q", lines[0].Name)
	}

	snap, _ := svc.Snapshot(s.ID)
	if snap.Initiatives.TotalAllocated != 45 || snap.InitiativeCount() != 3 {
		t.Fatalf("unexpected initiative ledger %+v", snap.Initiatives)
	}
}

func TestServiceGenerateBudgetChangedWhileGenerating(t *testing.T) {
	ctx := context.Background()
	var svc *Service
	var id string
	svc = newTestService(WithGenerator(generator.Func(func(_ context.Context, req generator.Request) ([]core.GeneratedInitiative, error) {
		if err := svc.Update(id, func(sc *Scorecard) error {
			sc.SetTotalBudget(100000)
			return nil
		}); err != nil {
			return nil, err
		}
		return []core.GeneratedInitiative{{Name: "Podcast", Cost: req.TotalBudget / 5, Difficulty: 1}}, nil
	})))
	s := svc.Create(ctx, "")
	id = s.ID
	snap, _ := svc.Snapshot(id)

	lines, err := svc.Generate(ctx, id, snap.Benchmarks[0].ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lines[0].BudgetPercent != 20 || lines[0].Cost != 20000 {
		t.Fatalf("expected the generated 20%% share to follow the new budget, got %+v", lines[0])
	}
}

func TestServiceGenerateErrors(t *testing.T) {
	boom := errors.New("model unavailable")
	svc := newTestService(WithGenerator(generator.Func(func(context.Context, generator.Request) ([]core.GeneratedInitiative, error) {
		return nil, boom
	})))
	ctx := context.Background()
	s := svc.Create(ctx, "")

	if _, err := svc.Generate(ctx, s.ID, "missing"); !errors.Is(err, core.ErrUnknownBenchmark) {
		t.Fatalf("expected ErrUnknownBenchmark, got %v", err)
	}
	snap, _ := svc.Snapshot(s.ID)
	if _, err := svc.Generate(ctx, s.ID, snap.Benchmarks[0].ID); !errors.Is(err, boom) {
		t.Fatalf("expected generator error, got %v", err)
	}
	after, _ := svc.Snapshot(s.ID)
	if after.Revision != snap.Revision {
		t.Fatalf("failed generation changed revision %d -> %d", snap.Revision, after.Revision)
	}
}

func TestServiceExport(t *testing.T) {
	ctx := context.Background()
	if _, _, err := newTestService().Export(ctx, "x"); !errors.Is(err, ErrNoExporter) {
		t.Fatalf("expected ErrNoExporter, got %v", err)
	}

	var got core.Snapshot
	svc := newTestService(WithExporter(exporter.Func(func(_ context.Context, s core.Snapshot) (string, error) {
		got = s
		return "mem:1", nil
	})))
	s := svc.Create(ctx, "Acme")
	ref, snap, err := svc.Export(ctx, s.ID)
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected export %q %v", ref, err)
	}
	if got.ScorecardID != s.ID || snap.Name != "Acme" {
		t.Fatalf("unexpected snapshot %+v", got)
	}
	if _, _, err := svc.Export(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestServiceCreateFromPlan(t *testing.T) {
	p, err := LoadPlan(strings.NewReader(`
name: Acme
profile:
  total_budget: 1000
  channels: [Retail]
mix:
  - channel: Retail
    percentage: 100
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	svc := newTestService()
	s, err := svc.CreateFromPlan(context.Background(), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Name != "Acme" || !s.MixBalanced || s.TotalBudget != 1000 {
		t.Fatalf("unexpected summary %+v", s)
	}
}

func TestServiceConcurrentAllocations(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	s := svc.Create(ctx, "")
	channels := []string{"A", "B", "C", "D"}
	_ = svc.Update(s.ID, func(sc *Scorecard) error {
		for _, c := range channels {
			sc.AddChannel(c)
		}
		return nil
	})

	var wg sync.WaitGroup
	for _, c := range channels {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				_, _, _ = svc.SetChannelAllocation(ctx, s.ID, c, 25)
			}
		}()
	}
	wg.Wait()

	snap, _ := svc.Snapshot(s.ID)
	if !snap.Mix.Balanced || snap.Revision != int64(len(channels)+200) {
		t.Fatalf("unexpected mix %+v revision %d", snap.Mix, snap.Revision)
	}
}
