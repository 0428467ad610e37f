package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"scorecard/internal/cache"
	"scorecard/internal/exporter"
	applog "scorecard/internal/log"
	"scorecard/internal/middleware/ratelimit"
	"scorecard/internal/middleware/security"
	"scorecard/internal/middleware/trace"
	"scorecard/internal/scorecard"
)

// Config wires the server to the scorecard workspace and the export backend.
type Config struct {
	Addr    string
	Service *scorecard.Service

	// Suggestions lists channel names; nil falls back to the built-in list.
	Suggestions exporter.SuggestionReader
	// History lists archived exports; nil disables GET /scorecards/{id}/exports.
	History exporter.ExportLister
	// Ready checks backend dependencies for /readyz.
	Ready func(ctx context.Context) error

	RateLimitPerMinute int
	ReportCacheSize    int
	ReportCacheTTL     time.Duration

	Logger *slog.Logger
}

// Server is the scorecard JSON API.
type Server struct {
	http.Server
	svc         *scorecard.Service
	suggestions exporter.SuggestionReader
	history     exporter.ExportLister
	ready       func(ctx context.Context) error

	log        *applog.Logger
	detector   *security.Detector
	tracer     *trace.Middleware
	limiter    *ratelimit.Limiter
	reports    *cache.LRUCache[string]
	caches     *cache.Manager
	appMetrics *appMetrics
}

// appMetrics tracks application-level counters
type appMetrics struct {
	uptime         time.Time
	rateLimited    atomic.Int64
	exports        atomic.Int64
	exportFailures atomic.Int64
	reportHits     atomic.Int64
	reportMisses   atomic.Int64
}

// NewServer builds the API server and starts its background cache cleanup.
func NewServer(cfg Config) *Server {
	if cfg.ReportCacheSize <= 0 {
		cfg.ReportCacheSize = 256
	}
	if cfg.ReportCacheTTL <= 0 {
		cfg.ReportCacheTTL = 10 * time.Minute
	}
	base := cfg.Logger
	if base == nil {
		base = slog.Default()
	}

	s := &Server{
		Server: http.Server{
			Addr:              cfg.Addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      2 * time.Minute,
			IdleTimeout:       2 * time.Minute,
		},
		svc:         cfg.Service,
		suggestions: cfg.Suggestions,
		history:     cfg.History,
		ready:       cfg.Ready,
		log:         applog.FromSlog(base, applog.ComponentHTTP),
		detector:    security.NewDetector(applog.FromSlog(base, applog.ComponentSecurity)),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: cfg.RateLimitPerMinute,
		}),
		reports:    cache.NewLRUCache[string](cfg.ReportCacheSize, cfg.ReportCacheTTL),
		caches:     cache.NewManager(),
		appMetrics: &appMetrics{uptime: time.Now()},
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, applog.FromSlog(base, applog.ComponentTrace))

	s.caches.Register(s.reports)
	s.caches.StartCleanup(time.Minute)

	s.Handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.HandleFunc("GET /channels/suggestions", s.handleChannelSuggestions)

	mux.HandleFunc("POST /scorecards", s.handleCreateScorecard)
	mux.HandleFunc("GET /scorecards", s.handleListScorecards)
	mux.HandleFunc("GET /scorecards/{id}", s.handleGetScorecard)
	mux.HandleFunc("DELETE /scorecards/{id}", s.handleDeleteScorecard)

	mux.HandleFunc("PUT /scorecards/{id}/budget", s.handleSetBudget)
	mux.HandleFunc("PUT /scorecards/{id}/profile", s.handleSetProfile)
	for _, kind := range []listKind{listChannels, listPersonnel, listSegments} {
		mux.HandleFunc("POST /scorecards/{id}/"+string(kind), s.handleAddListItem(kind))
		mux.HandleFunc("DELETE /scorecards/{id}/"+string(kind)+"/{name}", s.handleRemoveListItem(kind))
	}

	mux.HandleFunc("GET /scorecards/{id}/mix", s.handleGetMix)
	mux.HandleFunc("PUT /scorecards/{id}/mix/{channel}", s.handleSetAllocation)

	mux.HandleFunc("POST /scorecards/{id}/benchmarks", s.handleAddBenchmark)
	mux.HandleFunc("PATCH /scorecards/{id}/benchmarks/{bid}", s.handleUpdateBenchmark)
	mux.HandleFunc("DELETE /scorecards/{id}/benchmarks/{bid}", s.handleDeleteBenchmark)
	mux.HandleFunc("POST /scorecards/{id}/benchmarks/{bid}/toggle", s.handleToggleBenchmark)
	mux.HandleFunc("POST /scorecards/{id}/benchmarks/{bid}/generate", s.handleGenerateInitiatives)

	mux.HandleFunc("POST /scorecards/{id}/benchmarks/{bid}/initiatives", s.handleAddInitiative)
	mux.HandleFunc("PATCH /scorecards/{id}/benchmarks/{bid}/initiatives/{iid}", s.handleUpdateInitiative)
	mux.HandleFunc("DELETE /scorecards/{id}/benchmarks/{bid}/initiatives/{iid}", s.handleDeleteInitiative)

	mux.HandleFunc("GET /scorecards/{id}/snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /scorecards/{id}/report", s.handleReport)
	mux.HandleFunc("POST /scorecards/{id}/export", s.handleExport)
	mux.HandleFunc("GET /scorecards/{id}/exports", s.handleListExports)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limit := s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited)

	// Outermost first: trace, suspicious request detection, rate limit, headers.
	var h http.Handler = mux
	h = headers.Middleware(h)
	h = limit(h)
	h = s.detector.Middleware(h)
	h = s.tracer.Middleware(h)
	return h
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.appMetrics.rateLimited.Add(1)
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldPath, r.URL.Path)
	TooManyRequestsError().Write(w)
}

// Shutdown gracefully shuts down the server and cleans up resources
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	s.caches.Stop()
	return s.Server.Shutdown(ctx)
}

// reportKey scopes cached reports to a scorecard revision so every edit
// produces a new key.
func reportKey(id string, revision int64) string {
	return id + "@" + strconv.FormatInt(revision, 10)
}

func (s *Server) invalidateReports(id string) {
	s.reports.DeletePrefix(id + "@")
}
