package http

import (
	"bytes"
	"mime"
	"net/http"
	"strings"

	"scorecard/internal/core"
	applog "scorecard/internal/log"
	"scorecard/internal/scorecard"
)

// listKind names the string lists of a brand profile.
type listKind string

const (
	listChannels  listKind = "channels"
	listPersonnel listKind = "personnel"
	listSegments  listKind = "segments"
)

func (k listKind) add(sc *scorecard.Scorecard, name string) bool {
	switch k {
	case listChannels:
		return sc.AddChannel(name)
	case listPersonnel:
		return sc.AddPersonnel(name)
	default:
		return sc.AddSegment(name)
	}
}

func (k listKind) remove(sc *scorecard.Scorecard, name string) bool {
	switch k {
	case listChannels:
		return sc.RemoveChannel(name)
	case listPersonnel:
		return sc.RemovePersonnel(name)
	default:
		return sc.RemoveSegment(name)
	}
}

func (k listKind) items(p core.BrandProfile) []string {
	switch k {
	case listChannels:
		return p.Channels
	case listPersonnel:
		return p.Personnel
	default:
		return p.Segments
	}
}

// isYAML reports whether the request carries a YAML plan.
func isYAML(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mt == "application/yaml" || mt == "application/x-yaml" || mt == "text/yaml"
}

// handleCreateScorecard creates an empty scorecard from {"name": ...} or a
// full one from a YAML plan body.
func (s *Server) handleCreateScorecard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	parser := NewRequestBodyParser(w, r)

	if isYAML(r) {
		if parser.err != nil {
			BadRequestError(parser.err.Error()).Write(w)
			return
		}
		plan, err := scorecard.LoadPlan(bytes.NewReader(parser.GetRaw()))
		if err != nil {
			UnprocessableEntityError(err.Error()).Write(w)
			return
		}
		sum, err := s.svc.CreateFromPlan(ctx, plan)
		if err != nil {
			ErrorFor(err).Write(w)
			return
		}
		NewResponse().Status(http.StatusCreated).
			Header("Location", "/scorecards/"+sum.ID).
			JSON(sum).Write(w)
		return
	}

	if err := parser.Parse(); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	name := parser.Get("name")
	if len(name) > 200 {
		ErrorFor(core.ErrNameTooLong).Write(w)
		return
	}
	sum := s.svc.Create(ctx, name)
	NewResponse().Status(http.StatusCreated).
		Header("Location", "/scorecards/"+sum.ID).
		JSON(sum).Write(w)
}

func (s *Server) handleListScorecards(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]any{"scorecards": s.svc.List()}).Write(w)
}

func (s *Server) handleGetScorecard(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.Detail(pathValue(r, "id"))
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	NewResponse().JSON(d).Write(w)
}

func (s *Server) handleDeleteScorecard(w http.ResponseWriter, r *http.Request) {
	id := pathValue(r, "id")
	if err := s.svc.Delete(r.Context(), id); err != nil {
		ErrorFor(err).Write(w)
		return
	}
	s.invalidateReports(id)
	w.WriteHeader(http.StatusNoContent)
}

// handleSetBudget accepts {"total_budget": 50000} or {"total_budget": "$50,000.00"}.
// Both ledgers follow the new budget; negative values clamp to zero.
func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	id := pathValue(r, "id")
	parser := NewRequestBodyParser(w, r)
	if err := parser.Parse(); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	budget, err := parser.GetAmount("total_budget")
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	var mix, initiatives core.LedgerSnapshot
	err = s.svc.Update(id, func(sc *scorecard.Scorecard) error {
		sc.SetTotalBudget(budget)
		mix, initiatives = sc.Mix().Snapshot(), sc.InitiativeLedger().Snapshot()
		return nil
	})
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	s.invalidateReports(id)
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Total budget updated",
		applog.FieldScorecardID, id,
		applog.FieldTotalBudget, mix.TotalBudget)
	NewResponse().JSON(map[string]any{
		"total_budget":  mix.TotalBudget,
		"marketing_mix": mix,
		"initiatives":   initiatives,
	}).Write(w)
}

// handleSetProfile replaces the free-text profile fields. Lists and the
// budget have their own endpoints.
func (s *Server) handleSetProfile(w http.ResponseWriter, r *http.Request) {
	id := pathValue(r, "id")
	parser := NewRequestBodyParser(w, r)
	if err := parser.Parse(); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	var profile core.BrandProfile
	err := s.svc.Update(id, func(sc *scorecard.Scorecard) error {
		if err := sc.SetDetails(parser.Get("name"), parser.Get("products"), parser.Get("industry"), parser.Get("logo")); err != nil {
			return err
		}
		profile = sc.Profile()
		return nil
	})
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	s.invalidateReports(id)
	NewResponse().JSON(profile).Write(w)
}

// handleAddListItem adds {"name": ...} to a profile list. Adding a channel
// also opens a 0% entry in the marketing mix.
func (s *Server) handleAddListItem(kind listKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := pathValue(r, "id")
		parser := NewRequestBodyParser(w, r)
		if err := parser.Parse(); err != nil {
			BadRequestError(err.Error()).Write(w)
			return
		}
		name := parser.Get("name")
		if name == "" {
			ErrorFor(core.ErrEmptyName).Write(w)
			return
		}
		if len(name) > 200 {
			ErrorFor(core.ErrNameTooLong).Write(w)
			return
		}

		var (
			added   bool
			profile core.BrandProfile
			mix     core.LedgerSnapshot
		)
		err := s.svc.Update(id, func(sc *scorecard.Scorecard) error {
			added = kind.add(sc, name)
			profile, mix = sc.Profile(), sc.Mix().Snapshot()
			return nil
		})
		if err != nil {
			ErrorFor(err).Write(w)
			return
		}
		if !added {
			ErrorResponse(http.StatusConflict, strings.TrimSuffix(string(kind), "s")+" already present: "+name).Write(w)
			return
		}
		s.invalidateReports(id)
		body := map[string]any{string(kind): kind.items(profile)}
		if kind == listChannels {
			body["marketing_mix"] = mix
		}
		NewResponse().Status(http.StatusCreated).JSON(body).Write(w)
	}
}

// handleRemoveListItem removes a profile list item. Removing an absent item
// succeeds without changing the scorecard.
func (s *Server) handleRemoveListItem(kind listKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := pathValue(r, "id")
		name := pathValue(r, "name")
		var removed bool
		err := s.svc.Update(id, func(sc *scorecard.Scorecard) error {
			removed = kind.remove(sc, name)
			return nil
		})
		if err != nil {
			ErrorFor(err).Write(w)
			return
		}
		if removed {
			s.invalidateReports(id)
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// mixView is the marketing mix with its chart series.
type mixView struct {
	core.LedgerSnapshot
	Chart []core.ChartPoint `json:"chart"`
}

func newMixView(l core.LedgerSnapshot) mixView {
	chart := l.Chart()
	if chart == nil {
		chart = []core.ChartPoint{}
	}
	return mixView{LedgerSnapshot: l, Chart: chart}
}

func (s *Server) handleGetMix(w http.ResponseWriter, r *http.Request) {
	var mix core.LedgerSnapshot
	err := s.svc.View(pathValue(r, "id"), func(sc *scorecard.Scorecard) error {
		mix = sc.Mix().Snapshot()
		return nil
	})
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	NewResponse().JSON(newMixView(mix)).Write(w)
}

// handleSetAllocation sets a channel's share from {"percentage": 60}. Values
// outside [0, 100] are clamped; an unbalanced mix is reported, not rejected.
func (s *Server) handleSetAllocation(w http.ResponseWriter, r *http.Request) {
	id := pathValue(r, "id")
	channel := pathValue(r, "channel")
	parser := NewRequestBodyParser(w, r)
	if err := parser.Parse(); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	pct, err := parser.GetAmount("percentage")
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	entry, mix, err := s.svc.SetChannelAllocation(r.Context(), id, channel, pct)
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	s.invalidateReports(id)
	NewResponse().JSON(map[string]any{
		"entry":         entry,
		"marketing_mix": newMixView(mix),
	}).Write(w)
}
