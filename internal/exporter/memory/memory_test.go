package memory

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"scorecard/internal/core"
)

func TestMemoryStoreExportAndList(t *testing.T) {
	s := New([]string{"Retail", " Retail", "", "Social Media"})
	got, err := s.ChannelSuggestions(context.Background())
	if err != nil || !slices.Equal(got, []string{"Retail", "Social Media"}) {
		t.Fatalf("unexpected suggestions %v err=%v", got, err)
	}

	ctx := context.Background()
	ref1, err := s.Export(ctx, core.Snapshot{ScorecardID: "sc-1", Revision: 1})
	if err != nil || ref1 != "mem:1" {
		t.Fatalf("unexpected export: ref=%q err=%v", ref1, err)
	}
	s.Export(ctx, core.Snapshot{ScorecardID: "sc-2"})
	s.Export(ctx, core.Snapshot{ScorecardID: "sc-1", Revision: 5})

	recs, _ := s.ListExports(ctx, "sc-1")
	if len(recs) != 2 || recs[0].Revision != 5 || recs[1].Ref != "mem:1" {
		t.Fatalf("unexpected records %+v", recs)
	}
	if snap, ok := s.Snapshot("mem:2"); !ok || snap.ScorecardID != "sc-2" {
		t.Fatalf("unexpected snapshot lookup %+v %v", snap, ok)
	}
	if s.Len() != 3 {
		t.Fatalf("expected 3 exports, got %d", s.Len())
	}
	if _, err := s.Export(ctx, core.Snapshot{}); err == nil {
		t.Fatalf("expected error for snapshot without id")
	}
}

func TestNewFromFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "seed_channels.txt"), []byte("# channels\nPodcasts\n\nRetail\nPodcasts\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, _ := NewFromFiles(dir).ChannelSuggestions(context.Background())
	if !slices.Equal(got, []string{"Podcasts", "Retail"}) {
		t.Fatalf("unexpected suggestions %v", got)
	}

	got, _ = NewFromFiles(t.TempDir()).ChannelSuggestions(context.Background())
	if !slices.Equal(got, core.ChannelSuggestions) {
		t.Fatalf("expected built-in suggestions, got %v", got)
	}
}
