package http

import (
	"fmt"
	"net/http"

	"scorecard/internal/core"
	applog "scorecard/internal/log"
	"scorecard/internal/scorecard"
)

func (s *Server) handleAddBenchmark(w http.ResponseWriter, r *http.Request) {
	id := pathValue(r, "id")
	var b core.Benchmark
	err := s.svc.Update(id, func(sc *scorecard.Scorecard) error {
		b = sc.AddBenchmark()
		return nil
	})
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	s.invalidateReports(id)
	NewResponse().Status(http.StatusCreated).JSON(b).Write(w)
}

// handleUpdateBenchmark applies a partial update; absent fields are kept.
func (s *Server) handleUpdateBenchmark(w http.ResponseWriter, r *http.Request) {
	id, bid := pathValue(r, "id"), pathValue(r, "bid")
	var fields scorecard.BenchmarkFields
	if err := NewRequestBodyParser(w, r).Decode(&fields); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	var b core.Benchmark
	err := s.svc.Update(id, func(sc *scorecard.Scorecard) error {
		var err error
		b, err = sc.UpdateBenchmark(bid, fields)
		return err
	})
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	s.invalidateReports(id)
	NewResponse().JSON(b).Write(w)
}

// handleDeleteBenchmark removes a benchmark and releases its initiatives'
// budget shares. Unknown benchmarks are a no-op.
func (s *Server) handleDeleteBenchmark(w http.ResponseWriter, r *http.Request) {
	id, bid := pathValue(r, "id"), pathValue(r, "bid")
	err := s.svc.Update(id, func(sc *scorecard.Scorecard) error {
		sc.DeleteBenchmark(bid)
		return nil
	})
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	s.invalidateReports(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggleBenchmark(w http.ResponseWriter, r *http.Request) {
	id, bid := pathValue(r, "id"), pathValue(r, "bid")
	var expanded bool
	err := s.svc.Update(id, func(sc *scorecard.Scorecard) error {
		var err error
		expanded, err = sc.ToggleBenchmark(bid)
		return err
	})
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	NewResponse().JSON(map[string]any{"id": bid, "expanded": expanded}).Write(w)
}

// handleGenerateInitiatives replaces a benchmark's initiatives with
// generated suggestions.
func (s *Server) handleGenerateInitiatives(w http.ResponseWriter, r *http.Request) {
	id, bid := pathValue(r, "id"), pathValue(r, "bid")
	lines, err := s.svc.Generate(r.Context(), id, bid)
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			ErrorResponse(http.StatusBadGateway, "initiative generation failed").Write(w)
			return
		}
		ErrorFor(err).Write(w)
		return
	}
	s.invalidateReports(id)
	NewResponse().JSON(map[string]any{"benchmark_id": bid, "initiatives": lines}).Write(w)
}

func (s *Server) handleAddInitiative(w http.ResponseWriter, r *http.Request) {
	id, bid := pathValue(r, "id"), pathValue(r, "bid")
	var in core.Initiative
	err := s.svc.Update(id, func(sc *scorecard.Scorecard) error {
		var err error
		in, err = sc.AddInitiative(bid)
		return err
	})
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	s.invalidateReports(id)
	NewResponse().Status(http.StatusCreated).JSON(core.InitiativeLine{Initiative: in}).Write(w)
}

// initiativeRequest is the PATCH body of an initiative. Cost and
// budget_percent accept numbers or amount strings such as "$5,000.00".
type initiativeRequest struct {
	Name       *string          `json:"name"`
	Difficulty *core.Difficulty `json:"difficulty"`
	Personnel  []string         `json:"personnel"`
	Status     *string          `json:"status"`
	Cost       any              `json:"cost"`
	Percent    any              `json:"budget_percent"`
}

func (req initiativeRequest) fields() (scorecard.InitiativeFields, error) {
	f := scorecard.InitiativeFields{
		Name:       req.Name,
		Difficulty: req.Difficulty,
		Personnel:  req.Personnel,
		Status:     req.Status,
	}
	if req.Difficulty != nil && !req.Difficulty.Valid() {
		return f, core.ErrInvalidDifficulty
	}
	var err error
	if f.Cost, err = optionalAmount("cost", req.Cost); err != nil {
		return f, err
	}
	if f.Percent, err = optionalAmount("budget_percent", req.Percent); err != nil {
		return f, err
	}
	return f, nil
}

func optionalAmount(name string, v any) (*float64, error) {
	if v == nil {
		return nil, nil
	}
	f, err := amountValue(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &f, nil
}

func (s *Server) handleUpdateInitiative(w http.ResponseWriter, r *http.Request) {
	id, bid, iid := pathValue(r, "id"), pathValue(r, "bid"), pathValue(r, "iid")
	var req initiativeRequest
	if err := NewRequestBodyParser(w, r).Decode(&req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	fields, err := req.fields()
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}

	var (
		line   core.InitiativeLine
		ledger core.LedgerSnapshot
		rev    int64
	)
	err = s.svc.Update(id, func(sc *scorecard.Scorecard) error {
		var err error
		if line, err = sc.UpdateInitiative(bid, iid, fields); err != nil {
			return err
		}
		ledger, rev = sc.InitiativeLedger().Snapshot(), sc.Revision
		return nil
	})
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	s.invalidateReports(id)
	if fields.Cost != nil || fields.Percent != nil {
		applog.NewStructuredLogger(applog.FromContext(r.Context())).LogAllocation(r.Context(),
			id, rev, iid, line.BudgetPercent, ledger.TotalBudget, ledger.TotalAllocated, ledger.Balanced)
	}
	NewResponse().JSON(map[string]any{
		"initiative":  line,
		"initiatives": ledger,
	}).Write(w)
}

// handleDeleteInitiative removes an initiative and its budget share. Unknown
// initiatives are a no-op.
func (s *Server) handleDeleteInitiative(w http.ResponseWriter, r *http.Request) {
	id, bid, iid := pathValue(r, "id"), pathValue(r, "bid"), pathValue(r, "iid")
	err := s.svc.Update(id, func(sc *scorecard.Scorecard) error {
		sc.DeleteInitiative(bid, iid)
		return nil
	})
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	s.invalidateReports(id)
	w.WriteHeader(http.StatusNoContent)
}
