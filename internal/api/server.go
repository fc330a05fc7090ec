// Package api serves the dashboard: a JSON API under /api/v1, an HTML page
// at / and the operational endpoints /health and /metrics.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/denguewatch/denguewatch/internal/audit"
	"github.com/denguewatch/denguewatch/internal/dashboard"
	"github.com/denguewatch/denguewatch/internal/db"
	"github.com/denguewatch/denguewatch/internal/geo"
	"github.com/denguewatch/denguewatch/internal/ingest"
	"github.com/denguewatch/denguewatch/internal/logging"
	"github.com/denguewatch/denguewatch/internal/metrics"
	"github.com/denguewatch/denguewatch/internal/records"
)

// Deps are the collaborators a Server renders from and writes through.
// Boundaries, Snapshot, Ping and Stats may be nil.
type Deps struct {
	Store      records.Store
	State      *dashboard.State
	Boundaries *geo.Boundaries
	Snapshot   []records.CaseRecord
	Activity   *audit.Logger
	Metrics    *metrics.Metrics
	Log        *logging.Logger
	Ping       func(ctx context.Context) error
	Stats      func(ctx context.Context) (*db.StoreStats, error)
}

// Options tune presentation and limits.
type Options struct {
	PageSize       int
	ImportPolicy   ingest.Policy
	MaxUploadBytes int64
	// WriteRate and WriteBurst limit mutating requests per client IP.
	// A zero WriteRate disables the limit.
	WriteRate  float64
	WriteBurst int
}

// Server holds all dependencies for the HTTP surface.
type Server struct {
	store    records.Store
	state    *dashboard.State
	loader   *dashboard.Loader
	bounds   *geo.Boundaries
	snapshot []records.CaseRecord
	activity *audit.Logger
	metrics  *metrics.Metrics
	log      *logging.Logger
	ping     func(ctx context.Context) error
	stats    func(ctx context.Context) (*db.StoreStats, error)
	opts     Options
	router   chi.Router
}

// NewServer creates a new API server with all routes configured.
func NewServer(d Deps, opts Options) *Server {
	if opts.PageSize <= 0 {
		opts.PageSize = dashboard.DefaultPageSize
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	s := &Server{
		store:    d.Store,
		state:    d.State,
		loader:   dashboard.NewLoader(d.Store, d.State, d.Log),
		bounds:   d.Boundaries,
		snapshot: d.Snapshot,
		activity: d.Activity,
		metrics:  d.Metrics,
		log:      d.Log,
		ping:     d.Ping,
		stats:    d.Stats,
		opts:     opts,
		router:   chi.NewRouter(),
	}
	s.setupRoutes()
	return s
}

// Handler returns the HTTP handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Loader exposes the refresh path used at startup.
func (s *Server) Loader() *dashboard.Loader {
	return s.loader
}

func (s *Server) setupRoutes() {
	r := s.router
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(securityHeadersMiddleware)
	r.Use(corsMiddleware)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	// One bucket per client IP is shared by every mutating route.
	var limiter *rateLimiter
	if s.opts.WriteRate > 0 {
		limiter = newRateLimiter(s.opts.WriteRate, s.opts.WriteBurst)
	}
	writes := func(r chi.Router) {
		if limiter != nil {
			r.Use(rateLimitMiddleware(limiter))
		}
	}

	// HTML dashboard
	r.Get("/", s.handleIndex)
	r.Group(func(r chi.Router) {
		writes(r)
		r.Post("/ui/records", s.handleFormCreate)
		r.Post("/ui/records/{id}/update", s.handleFormUpdate)
		r.Post("/ui/records/{id}/delete", s.handleFormDelete)
		r.Post("/ui/import", s.handleFormImport)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/records", s.handleListRecords)
		r.Group(func(r chi.Router) {
			writes(r)
			r.Post("/records", s.handleCreateRecord)
			r.Put("/records/{id}", s.handleUpdateRecord)
			r.Delete("/records/{id}", s.handleDeleteRecord)
			r.Post("/records/import", s.handleImport)
			r.Post("/records/refresh", s.handleRefresh)
		})

		r.Get("/stats/totals", s.handleTotals)
		r.Get("/stats/regions", s.handleRegions)
		r.Get("/map", s.handleMap)
		r.Get("/charts/{kind}", s.handleChart)
		r.Get("/snapshot/totals", s.handleSnapshotTotals)
		r.Get("/activity", s.handleListActivity)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.ping != nil {
		if err := s.ping(r.Context()); err != nil {
			s.log.Warn("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	resp := map[string]interface{}{
		"status":  "ok",
		"loaded":  s.state.Loaded(),
		"records": s.state.Len(),
	}
	if s.stats != nil {
		if st, err := s.stats(r.Context()); err != nil {
			s.log.Warn("reading store stats failed", "error", err)
		} else {
			resp["store"] = st
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
