package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"scorecard/internal/core"
	applog "scorecard/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).Round(time.Second).String(),
	}).Write(w)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.svc == nil {
		checks["workspace"] = "not_configured"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["workspace"] = map[string]any{
			"status":     "ok",
			"scorecards": len(s.svc.List()),
		}
	}

	switch {
	case s.ready == nil:
		checks["backend"] = "ok"
	default:
		if err := s.ready(ctx); err != nil {
			checks["backend"] = fmt.Sprintf("failed: %v", err)
			status, httpStatus = "not_ready", http.StatusServiceUnavailable
			applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", applog.FieldError, err.Error())
		} else {
			checks["backend"] = "ok"
		}
	}

	checks["cache"] = map[string]any{
		"report_entries": s.reports.Size(),
		"status":         "ok",
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.limiter.ActiveClients(),
		"status":         "ok",
	}

	NewResponse().Status(httpStatus).JSON(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.detector.GetMetrics()
	rateLimitMetrics := s.limiter.GetMetrics()
	traceMetrics := s.tracer.GetMetrics()
	uptime := time.Since(s.appMetrics.uptime)

	w.WriteHeader(http.StatusOK)

	metric := func(name, help, kind string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
		fmt.Fprintf(w, "%s %v\n\n", name, value)
	}
	metric("http_requests_total", "Total number of HTTP requests", "counter", traceMetrics.TotalRequests)
	metric("http_error_responses_total", "Responses with a 4xx or 5xx status", "counter", traceMetrics.ErrorResponses)
	metric("http_response_time_microseconds", "Average response time", "gauge", traceMetrics.AverageResponseTime)
	metric("scorecards", "Scorecards in the workspace", "gauge", len(s.svc.List()))
	metric("exports_total", "Successful scorecard exports", "counter", s.appMetrics.exports.Load())
	metric("export_failures_total", "Failed scorecard exports", "counter", s.appMetrics.exportFailures.Load())
	metric("report_cache_hits_total", "Report cache hits", "counter", s.appMetrics.reportHits.Load())
	metric("report_cache_misses_total", "Report cache misses", "counter", s.appMetrics.reportMisses.Load())
	metric("report_cache_entries", "Current report cache entries", "gauge", s.reports.Size())
	metric("rate_limit_hits_total", "Total rate limit hits", "counter", rateLimitMetrics.TotalHits)
	metric("rate_limited_requests_total", "Requests rejected by the rate limiter", "counter", s.appMetrics.rateLimited.Load())
	metric("active_rate_limit_clients", "Currently tracked rate limit clients", "gauge", rateLimitMetrics.ClientCount)
	metric("suspicious_requests_total", "Total suspicious requests detected", "counter", securityMetrics.SuspiciousRequests)
	metric("blocked_requests_total", "Suspicious requests rejected", "counter", securityMetrics.BlockedRequests)
	metric("uptime_seconds", "Application uptime in seconds", "gauge", fmt.Sprintf("%.0f", uptime.Seconds()))
}

// handleChannelSuggestions lists channel names offered when editing a profile.
func (s *Server) handleChannelSuggestions(w http.ResponseWriter, r *http.Request) {
	names := core.ChannelSuggestions
	if s.suggestions != nil {
		list, err := s.suggestions.ChannelSuggestions(r.Context())
		if err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Channel suggestions unavailable, using defaults",
				applog.FieldError, err.Error())
		} else if len(list) > 0 {
			names = list
		}
	}
	NewResponse().JSON(map[string]any{"channels": names}).Write(w)
}
