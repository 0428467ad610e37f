// Package memory keeps exported snapshots in process memory.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"scorecard/internal/core"
	"scorecard/internal/exporter"
)

var (
	_ exporter.SnapshotExporter = (*Store)(nil)
	_ exporter.SuggestionReader = (*Store)(nil)
	_ exporter.ExportLister     = (*Store)(nil)
)

type Store struct {
	mu       sync.Mutex
	channels []string
	items    []entry
}

type entry struct {
	record   exporter.Record
	snapshot core.Snapshot
}

// New creates a store offering the given channel suggestions, deduplicated.
func New(channels []string) *Store {
	return &Store{channels: dedupe(channels)}
}

// NewFromFiles reads channel suggestions from base/seed_channels.txt, one per
// line, falling back to the built-in list.
func NewFromFiles(base string) *Store {
	channels := readLines(filepath.Join(base, "seed_channels.txt"))
	if len(channels) == 0 {
		channels = core.ChannelSuggestions
	}
	return New(channels)
}

// Export stores the snapshot and returns a synthetic reference.
func (s *Store) Export(_ context.Context, snap core.Snapshot) (string, error) {
	if snap.ScorecardID == "" {
		return "", fmt.Errorf("memory: snapshot without scorecard id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ref := fmt.Sprintf("mem:%d", len(s.items)+1)
	s.items = append(s.items, entry{record: exporter.RecordOf(ref, snap), snapshot: snap})
	return ref, nil
}

// ChannelSuggestions returns a copy of the configured suggestions.
func (s *Store) ChannelSuggestions(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.channels), nil
}

// ListExports returns records for scorecardID, newest first.
func (s *Store) ListExports(_ context.Context, scorecardID string) ([]exporter.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []exporter.Record
	for i := len(s.items) - 1; i >= 0; i-- {
		if s.items[i].record.ScorecardID == scorecardID {
			out = append(out, s.items[i].record)
		}
	}
	return out, nil
}

// Snapshot returns the snapshot stored under ref.
func (s *Store) Snapshot(ref string) (core.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.items {
		if e.record.Ref == ref {
			return e.snapshot, true
		}
	}
	return core.Snapshot{}, false
}

// Len reports how many snapshots were exported.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

// dedupe trims values and drops blanks and repeats, keeping input order.
func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
