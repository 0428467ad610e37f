package core

import "time"

type (
	// InitiativeLine is an initiative with its budget share resolved.
	InitiativeLine struct {
		Initiative
		Cost          float64 `json:"cost"`
		BudgetPercent float64 `json:"budget_percent"`
	}

	BenchmarkLine struct {
		ID          string           `json:"id"`
		Title       string           `json:"title"`
		Timeline    string           `json:"timeline"`
		MetricName  string           `json:"metric_name"`
		Benchmark   string           `json:"benchmark"`
		Goal        string           `json:"goal"`
		Notes       string           `json:"notes"`
		Initiatives []InitiativeLine `json:"initiatives"`
	}

	// Snapshot is the finalized, read-only view of a scorecard handed to
	// rendering and export collaborators.
	Snapshot struct {
		ScorecardID string          `json:"scorecard_id"`
		Name        string          `json:"name"`
		Revision    int64           `json:"revision"`
		TakenAt     time.Time       `json:"taken_at"`
		Profile     BrandProfile    `json:"profile"`
		Mix         LedgerSnapshot  `json:"marketing_mix"`
		Benchmarks  []BenchmarkLine `json:"benchmarks"`
		Initiatives LedgerSnapshot  `json:"initiatives"`
	}
)

// InitiativeCount returns the number of initiatives across all benchmarks.
func (s Snapshot) InitiativeCount() int {
	n := 0
	for _, b := range s.Benchmarks {
		n += len(b.Initiatives)
	}
	return n
}
