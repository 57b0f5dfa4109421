// Package httpapi exposes the pipeline orchestrator, spider scheduler, and
// streaming layer over HTTP: /healthz, /crawl, /deepsearch, /metrics,
// /stream/crawl, /stream/crawl/sse (spec §6).
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/riptide-engine/riptide/internal/budget"
	"github.com/riptide-engine/riptide/internal/models"
	"github.com/riptide-engine/riptide/internal/pipeline"
	"github.com/riptide-engine/riptide/internal/spider"
	"github.com/riptide-engine/riptide/internal/streamapi"
)

// DependencyChecker reports whether a named dependency is reachable, used
// to populate /healthz's dependencies object.
type DependencyChecker func() bool

// Server wires handlers onto a chi.Router. It holds no state of its own
// beyond what's injected — the orchestrator, spider config, and health
// checks all come from the caller.
type Server struct {
	Orchestrator *pipeline.Orchestrator
	Search       SearchFunc
	StartedAt    time.Time
	Version      string
	Dependencies map[string]DependencyChecker

	// BudgetMgr, when set, is handed to the spider scheduler constructed
	// per-request for options.use_spider=true crawls (spec §4.9, §6).
	BudgetMgr *budget.Manager
	// SpiderConfig is the template a spider-backed /crawl request
	// overlays its per-request depth/strategy onto.
	SpiderConfig spider.Config
}

// SearchFunc resolves a deepsearch query into candidate URLs to crawl; the
// ranking/search-index itself is out of scope (spec §1 Non-goals), so this
// is typically backed by a simple keyword match or an external search API.
type SearchFunc func(ctx context.Context, query string, limit int) []string

func New(orchestrator *pipeline.Orchestrator, search SearchFunc, version string) *Server {
	return &Server{
		Orchestrator: orchestrator,
		Search:       search,
		StartedAt:    time.Now(),
		Version:      version,
		Dependencies: map[string]DependencyChecker{},
		SpiderConfig: spider.DefaultConfig(),
	}
}

// Router builds the chi router with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/healthz", s.handleHealthz)
	r.Post("/crawl", s.handleCrawl)
	r.Post("/deepsearch", s.handleDeepSearch)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Post("/stream/crawl", s.handleStreamNDJSON)
	r.Get("/stream/crawl/sse", s.handleStreamSSE)

	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err as the shared error envelope (spec §6: "all
// endpoints" use {error:{type,message,retryable,status}}).
func writeError(w http.ResponseWriter, err error) {
	riptideErr, ok := err.(*models.RiptideError)
	if !ok {
		riptideErr = models.NewError(models.KindInternal, err.Error(), err)
	}
	writeJSON(w, riptideErr.Status(), map[string]interface{}{"error": riptideErr.Envelope()})
}
