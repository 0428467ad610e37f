package http

import (
	"errors"
	"net/http"
	"strings"

	"scorecard/internal/exporter"
	applog "scorecard/internal/log"
	"scorecard/internal/report"
	"scorecard/internal/scorecard"
)

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.Snapshot(pathValue(r, "id"))
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	NewResponse().JSON(snap).Write(w)
}

// handleReport renders the text report of the current revision. Reports are
// cached per revision.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	id := pathValue(r, "id")
	snap, err := s.svc.Snapshot(id)
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	key := reportKey(id, snap.Revision)
	text, ok := s.reports.Get(key)
	if ok {
		s.appMetrics.reportHits.Add(1)
	} else {
		s.appMetrics.reportMisses.Add(1)
		text = report.Render(snap)
		s.reports.Set(key, text)
	}
	NewResponse().
		Header("X-Scorecard-Revision", key[strings.LastIndexByte(key, '@')+1:]).
		Text(text).Write(w)
}

// handleExport sends the current snapshot to the configured exporter. A
// partial failure still returns the refs that succeeded.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := pathValue(r, "id")
	ref, snap, err := s.svc.Export(ctx, id)
	switch {
	case err == nil:
		s.appMetrics.exports.Add(1)
		NewResponse().Status(http.StatusAccepted).JSON(map[string]any{
			"scorecard_id": id,
			"revision":     snap.Revision,
			"ref":          ref,
		}).Write(w)
	case errors.Is(err, scorecard.ErrNotFound), errors.Is(err, scorecard.ErrNoExporter):
		ErrorFor(err).Write(w)
	default:
		s.appMetrics.exportFailures.Add(1)
		applog.FromContext(ctx).ErrorContext(ctx, "Export failed",
			applog.FieldScorecardID, id,
			applog.FieldExportRef, ref,
			applog.FieldError, err.Error())
		body := map[string]any{"error": "export failed", "scorecard_id": id}
		if ref != "" {
			body["ref"] = ref
		}
		NewResponse().Status(http.StatusBadGateway).JSON(body).Write(w)
	}
}

// handleListExports lists archived exports, newest first.
func (s *Server) handleListExports(w http.ResponseWriter, r *http.Request) {
	id := pathValue(r, "id")
	if _, err := s.svc.Get(id); err != nil {
		ErrorFor(err).Write(w)
		return
	}
	if s.history == nil {
		ErrorResponse(http.StatusNotImplemented, "export history is not kept by this backend").Write(w)
		return
	}
	records, err := s.history.ListExports(r.Context(), id)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to list exports",
			applog.FieldScorecardID, id,
			applog.FieldError, err.Error())
		InternalServerError("failed to list exports").Write(w)
		return
	}
	if records == nil {
		records = []exporter.Record{}
	}
	NewResponse().JSON(map[string]any{"exports": records}).Write(w)
}
