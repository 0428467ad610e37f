package exporter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"scorecard/internal/core"
)

func TestDispatchFansOut(t *testing.T) {
	snap := core.Snapshot{ScorecardID: "sc-1", Revision: 4}
	d := NewDispatcher([]Target{
		{Name: "a", Exporter: Func(func(_ context.Context, s core.Snapshot) (string, error) {
			return "ref-a-" + s.ScorecardID, nil
		})},
		{Name: "b", Exporter: Func(func(context.Context, core.Snapshot) (string, error) {
			return "", errors.New("unavailable")
		})},
		{Name: "nil"},
	})
	if got := d.Targets(); len(got) != 2 {
		t.Fatalf("expected nil exporter skipped, got %v", got)
	}
	refs, err := d.Dispatch(context.Background(), snap)
	if err == nil || !strings.Contains(err.Error(), "b: unavailable") {
		t.Fatalf("expected joined error, got %v", err)
	}
	if refs["a"] != "ref-a-sc-1" || len(refs) != 1 {
		t.Fatalf("unexpected refs %v", refs)
	}
}

func TestDispatchNoTargets(t *testing.T) {
	if _, err := NewDispatcher(nil).Dispatch(context.Background(), core.Snapshot{}); !errors.Is(err, ErrNoTargets) {
		t.Fatalf("expected ErrNoTargets, got %v", err)
	}
}

func TestDispatchTimeout(t *testing.T) {
	slow := Func(func(ctx context.Context, _ core.Snapshot) (string, error) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Second):
			return "late", nil
		}
	})
	d := NewDispatcher([]Target{{Name: "slow", Exporter: slow}}, WithTimeout(10*time.Millisecond))
	if _, err := d.Export(context.Background(), core.Snapshot{}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestDispatchConcurrencyLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	track := Func(func(context.Context, core.Snapshot) (string, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return "ok", nil
	})
	var targets []Target
	for i := range 5 {
		targets = append(targets, Target{Name: fmt.Sprintf("t%d", i), Exporter: track})
	}

	refs, err := NewDispatcher(targets, WithConcurrency(2)).Dispatch(context.Background(), core.Snapshot{})
	if err != nil || len(refs) != 5 {
		t.Fatalf("expected 5 refs, got %v (err=%v)", refs, err)
	}
	if got := peak.Load(); got > 2 {
		t.Fatalf("expected at most 2 concurrent exports, saw %d", got)
	}
}

func TestDispatchCanceledContext(t *testing.T) {
	called := false
	d := NewDispatcher([]Target{{Name: "a", Exporter: Func(func(context.Context, core.Snapshot) (string, error) {
		called = true
		return "ref", nil
	})}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	refs, err := d.Dispatch(ctx, core.Snapshot{})
	if !errors.Is(err, context.Canceled) || len(refs) != 0 || called {
		t.Fatalf("expected canceled dispatch to skip targets, got refs=%v err=%v called=%v", refs, err, called)
	}
}

func TestJoinRefs(t *testing.T) {
	if got := JoinRefs(map[string]string{"sqlite": "export:3", "memory": "mem:1"}); got != "memory=mem:1;sqlite=export:3" {
		t.Fatalf("unexpected joined refs %q", got)
	}
	if got := JoinRefs(nil); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestRecordOf(t *testing.T) {
	inits := core.NewLedger(1000)
	inits.UpsertEntry("IN-1", 25)
	snap := core.Snapshot{
		ScorecardID: "sc-1",
		Profile:     core.BrandProfile{TotalBudget: 1000},
		Initiatives: inits.Snapshot(),
	}
	r := RecordOf("x", snap)
	if r.InitiativeCost != 250 || r.TotalBudget != 1000 || r.Ref != "x" {
		t.Fatalf("unexpected record %+v", r)
	}
}
