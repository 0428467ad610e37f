package scorecard

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"scorecard/internal/core"
)

// ErrInvalidPlan wraps every decode failure of a plan document.
var ErrInvalidPlan = errors.New("invalid plan")

// Plan is a scorecard described in YAML.
//
//	name: Acme 2025
//	profile:
//	  name: Acme
//	  total_budget: 50000
//	  personnel: [Ann, Bob]
//	mix:
//	  - channel: Social Media
//	    percentage: 60
//	benchmarks:
//	  - title: Awareness
//	    metric_name: Followers
//	    initiatives:
//	      - name: Podcast
//	        cost: "$5,000.00"
//	        difficulty: 2
type Plan struct {
	Name       string            `yaml:"name"`
	Profile    core.BrandProfile `yaml:"profile"`
	Mix        []PlanAllocation  `yaml:"mix"`
	Benchmarks []PlanBenchmark   `yaml:"benchmarks"`
}

type PlanAllocation struct {
	Channel    string  `yaml:"channel"`
	Percentage float64 `yaml:"percentage"`
}

type PlanBenchmark struct {
	Title       string           `yaml:"title"`
	Timeline    string           `yaml:"timeline"`
	MetricName  string           `yaml:"metric_name"`
	Benchmark   string           `yaml:"benchmark"`
	Goal        string           `yaml:"goal"`
	Notes       string           `yaml:"notes"`
	Initiatives []PlanInitiative `yaml:"initiatives"`
}

// PlanInitiative takes either a cost (any format ParseAmount accepts) or a
// budget percentage. The percentage wins when both are present.
type PlanInitiative struct {
	Name          string          `yaml:"name"`
	Cost          string          `yaml:"cost"`
	BudgetPercent *float64        `yaml:"budget_percent"`
	Difficulty    core.Difficulty `yaml:"difficulty"`
	Personnel     []string        `yaml:"personnel"`
	Status        string          `yaml:"status"`
}

// LoadPlan decodes a single YAML document. Unknown fields are rejected.
func LoadPlan(r io.Reader) (*Plan, error) {
	p := &Plan{Profile: core.NewBrandProfile()}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(p); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidPlan)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}
	return p, nil
}

// LoadPlanFile reads a plan from path.
func LoadPlanFile(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("plan: read %s: %w", path, err)
	}
	return LoadPlan(bytes.NewReader(data))
}

// Build materializes the plan as a new scorecard. Mix channels missing from the
// profile are added to it. When the plan lists benchmarks they replace the
// default one.
func (p *Plan) Build(id string, opts ...Option) (*Scorecard, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = p.Profile.Name
	}
	s := New(id, name, opts...)
	s.SetTotalBudget(p.Profile.TotalBudget)
	if err := s.SetDetails(p.Profile.Name, p.Profile.Products, p.Profile.Industry, p.Profile.Logo); err != nil {
		return nil, fmt.Errorf("plan: profile: %w", err)
	}
	for _, v := range p.Profile.Personnel {
		s.AddPersonnel(v)
	}
	for _, v := range p.Profile.Segments {
		s.AddSegment(v)
	}
	for _, v := range p.Profile.Channels {
		s.AddChannel(v)
	}
	for _, a := range p.Mix {
		channel := strings.TrimSpace(a.Channel)
		s.AddChannel(channel)
		if _, err := s.SetChannelAllocation(channel, a.Percentage); err != nil {
			return nil, fmt.Errorf("plan: mix: %w", err)
		}
	}

	if len(p.Benchmarks) == 0 {
		return s, nil
	}
	placeholder := s.benchmarks[0].ID
	for i, pb := range p.Benchmarks {
		if err := s.applyBenchmark(pb); err != nil {
			return nil, fmt.Errorf("plan: benchmark %d: %w", i+1, err)
		}
	}
	s.DeleteBenchmark(placeholder)
	return s, nil
}

func (s *Scorecard) applyBenchmark(pb PlanBenchmark) error {
	b := s.AddBenchmark()
	fields := BenchmarkFields{
		Title:      &pb.Title,
		MetricName: &pb.MetricName,
		Benchmark:  &pb.Benchmark,
		Goal:       &pb.Goal,
		Notes:      &pb.Notes,
	}
	if pb.Timeline != "" {
		fields.Timeline = &pb.Timeline
	}
	if _, err := s.UpdateBenchmark(b.ID, fields); err != nil {
		return err
	}
	for _, pi := range pb.Initiatives {
		in, err := s.AddInitiative(b.ID)
		if err != nil {
			return err
		}
		f := InitiativeFields{Name: &pi.Name, Personnel: pi.Personnel, Percent: pi.BudgetPercent}
		if pi.Difficulty != 0 {
			d := pi.Difficulty
			f.Difficulty = &d
		}
		if pi.Status != "" {
			f.Status = &pi.Status
		}
		if pi.Cost != "" {
			cost, err := core.ParseAmount(pi.Cost)
			if err != nil {
				return fmt.Errorf("initiative %q: %w", pi.Name, err)
			}
			c := cost.InexactFloat64()
			f.Cost = &c
		}
		if _, err := s.UpdateInitiative(b.ID, in.ID, f); err != nil {
			return fmt.Errorf("initiative %q: %w", pi.Name, err)
		}
	}
	return nil
}
