package scorecard

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scorecard/internal/core"
)

const samplePlan = `
name: Acme 2025
profile:
  name: Acme
  total_budget: 50000
  personnel: [Ann, Bob]
  industry: Retail
  segments: [SMB]
  channels: [Retail]
mix:
  - channel: Social Media
    percentage: 60
  - channel: Retail
    percentage: 40
benchmarks:
  - title: Awareness
    timeline: 2025 Q2
    metric_name: Followers
    goal: 10k
    initiatives:
      - name: Podcast
        cost: "$5,000.00"
        difficulty: 2
        personnel: [Ann]
        status: approved
      - name: Flyers
        budget_percent: 4
`

func TestLoadPlanAndBuild(t *testing.T) {
	p, err := LoadPlan(strings.NewReader(samplePlan))
	if err != nil {
		t.Fatal(err)
	}
	s, err := p.Build("sc-plan", WithClock(fixedClock()))
	if err != nil {
		t.Fatal(err)
	}
	if s.Name != "Acme 2025" || s.Profile().Industry != "Retail" {
		t.Fatalf("unexpected scorecard %q %+v", s.Name, s.Profile())
	}
	if got := s.Mix().Keys(); len(got) != 2 || got[0] != "Retail" || got[1] != "Social Media" {
		t.Fatalf("unexpected mix keys %v", got)
	}
	if !s.Mix().IsBalanced() {
		t.Fatalf("expected balanced mix, got %v", s.Mix().TotalAllocated())
	}

	snap := s.Snapshot()
	if len(snap.Benchmarks) != 1 || snap.Benchmarks[0].Title != "Awareness" || snap.Benchmarks[0].Timeline != "2025 Q2" {
		t.Fatalf("unexpected benchmarks %+v", snap.Benchmarks)
	}
	lines := snap.Benchmarks[0].Initiatives
	if len(lines) != 2 {
		t.Fatalf("expected 2 initiatives, got %d", len(lines))
	}
	if lines[0].Cost != 5000 || lines[0].BudgetPercent != 10 || lines[0].Status != core.StatusApproved || lines[0].Difficulty != 2 {
		t.Fatalf("unexpected first initiative %+v", lines[0])
	}
	if lines[1].Cost != 2000 || lines[1].Status != core.StatusPending {
		t.Fatalf("unexpected second initiative %+v", lines[1])
	}
}

func TestLoadPlanDefaultsBudget(t *testing.T) {
	p, err := LoadPlan(strings.NewReader("name: Empty\n"))
	if err != nil {
		t.Fatal(err)
	}
	if p.Profile.TotalBudget != core.DefaultTotalBudget {
		t.Fatalf("expected default budget, got %v", p.Profile.TotalBudget)
	}
	s, err := p.Build("sc-empty")
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Benchmarks()) != 1 {
		t.Fatalf("expected default benchmark kept")
	}
}

func TestLoadPlanRejects(t *testing.T) {
	cases := map[string]string{
		"unknown field": "name: x\nbudget: 10\n",
		"empty":         "",
	}
	for name, doc := range cases {
		if _, err := LoadPlan(strings.NewReader(doc)); !errors.Is(err, ErrInvalidPlan) {
			t.Fatalf("%s: expected ErrInvalidPlan, got %v", name, err)
		}
	}

	p, err := LoadPlan(strings.NewReader("benchmarks:\n  - title: A\n    initiatives:\n      - name: X\n        cost: abc\n"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Build("sc-bad"); err == nil {
		t.Fatalf("expected invalid cost to fail")
	}
}

func TestLoadPlanFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	if err := os.WriteFile(path, []byte(samplePlan), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPlanFile(path); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPlanFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected missing file error")
	}
}
