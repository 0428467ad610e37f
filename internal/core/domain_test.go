package core

import (
	"strings"
	"testing"
)

func TestNewEntitiesDefaults(t *testing.T) {
	p := NewBrandProfile()
	if p.TotalBudget != DefaultTotalBudget || p.Channels == nil {
		t.Fatalf("unexpected profile defaults: %+v", p)
	}
	b := NewBenchmark()
	if !strings.HasPrefix(b.ID, "BM-") || b.Title != "New Benchmark" || b.Expanded {
		t.Fatalf("unexpected benchmark defaults: %+v", b)
	}
	i := NewInitiative()
	if !strings.HasPrefix(i.ID, "IN-") || i.Status != StatusPending || i.Difficulty != DifficultyEasy {
		t.Fatalf("unexpected initiative defaults: %+v", i)
	}
	if NewInitiative().ID == i.ID {
		t.Fatalf("expected unique initiative ids")
	}
}

func TestParseStatus(t *testing.T) {
	cases := []struct {
		in   string
		want InitiativeStatus
		ok   bool
	}{
		{"PENDING", StatusPending, true},
		{"approved", StatusApproved, true},
		{" Rejected ", StatusRejected, true},
		{"done", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseStatus(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.want, got, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestClampDifficulty(t *testing.T) {
	for in, want := range map[Difficulty]Difficulty{-1: 1, 0: 1, 1: 1, 2: 2, 3: 3, 9: 3} {
		if got := ClampDifficulty(in); got != want {
			t.Fatalf("ClampDifficulty(%d)=%d want %d", in, got, want)
		}
	}
}

func TestAddRemoveItem(t *testing.T) {
	list, ok := AddItem(nil, "  Alice ")
	if !ok || len(list) != 1 || list[0] != "Alice" {
		t.Fatalf("unexpected add: %v %v", list, ok)
	}
	if _, ok := AddItem(list, "Alice"); ok {
		t.Fatalf("expected duplicate to be ignored")
	}
	if _, ok := AddItem(list, "   "); ok {
		t.Fatalf("expected blank to be ignored")
	}
	list, _ = AddItem(list, "Bob")
	out, ok := RemoveItem(list, "Alice")
	if !ok || len(out) != 1 || out[0] != "Bob" {
		t.Fatalf("unexpected remove: %v %v", out, ok)
	}
	if len(list) != 2 {
		t.Fatalf("remove mutated input: %v", list)
	}
	if _, ok := RemoveItem(out, "Alice"); ok {
		t.Fatalf("expected second removal to be a no-op")
	}
}

func TestBenchmarkValidate(t *testing.T) {
	good := NewBenchmark()
	good.Initiatives = append(good.Initiatives, NewInitiative())
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Benchmark{
		{Title: ""},
		{Title: strings.Repeat("x", 201)},
		{Title: "ok", Goal: strings.Repeat("x", 2001)},
		{Title: "ok", Initiatives: []Initiative{{Difficulty: 4, Status: StatusPending}}},
		{Title: "ok", Initiatives: []Initiative{{Difficulty: 1, Status: "DONE"}}},
	}
	for i, b := range bads {
		if err := b.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestBrandProfileValidate(t *testing.T) {
	p := NewBrandProfile()
	p.Channels = []string{"Retail"}
	if err := p.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	p.Segments = []string{" "}
	if err := p.Validate(); err != ErrEmptyName {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
}
