// Package generator proposes initiatives for a benchmark.
package generator

import (
	"context"
	"fmt"
	"math"
	"strings"

	"scorecard/internal/core"
)

// Request describes the benchmark an initiative set is generated for.
type Request struct {
	BenchmarkTitle string
	MetricName     string
	Goal           string
	Industry       string
	Products       string
	TotalBudget    float64
	Personnel      []string
	Channels       []string
}

// Generator proposes initiatives. Implementations may call remote services.
type Generator interface {
	Generate(ctx context.Context, req Request) ([]core.GeneratedInitiative, error)
}

// Func adapts a function to Generator.
type Func func(ctx context.Context, req Request) ([]core.GeneratedInitiative, error)

func (f Func) Generate(ctx context.Context, req Request) ([]core.GeneratedInitiative, error) {
	return f(ctx, req)
}

type suggestion struct {
	format     string
	share      float64
	difficulty core.Difficulty
	from, to   int
}

var suggestions = []suggestion{
	{"Increase %s through targeted campaigns", 0.20, core.DifficultyMedium, 0, 2},
	{"Optimize %s with data-driven strategies", 0.15, core.DifficultyHard, 1, 3},
	{"Enhance %s via customer feedback implementation", 0.10, core.DifficultyEasy, 2, 4},
}

// Template returns the same three suggestions for every benchmark, sized against
// the total budget and staffed from consecutive slices of the personnel list.
type Template struct{}

func (Template) Generate(ctx context.Context, req Request) ([]core.GeneratedInitiative, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	metric := strings.TrimSpace(req.MetricName)
	budget := max(req.TotalBudget, 0)
	out := make([]core.GeneratedInitiative, 0, len(suggestions))
	for _, s := range suggestions {
		out = append(out, core.GeneratedInitiative{
			Name:       fmt.Sprintf(s.format, metric),
			Cost:       math.Floor(budget*s.share + 0.5),
			Difficulty: s.difficulty,
			Personnel:  window(req.Personnel, s.from, s.to),
		})
	}
	return out, nil
}

// window returns a copy of list[from:to] bounded by the list length.
func window(list []string, from, to int) []string {
	from, to = min(from, len(list)), min(to, len(list))
	out := make([]string, to-from)
	copy(out, list[from:to])
	return out
}
