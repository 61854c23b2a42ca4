package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/docanchor/internal/config"
	"github.com/dgallion1/docanchor/internal/library"
	"github.com/dgallion1/docanchor/internal/pipeline"
	"github.com/dgallion1/docanchor/internal/stats"
)

// Server is the HTTP API server for docanchor.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	library      *library.Library
	resolveStats *stats.ResolveStats
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, rs *stats.ResolveStats, log *slog.Logger, cfg config.Config) *Server {
	if rs == nil {
		rs = stats.NewResolveStats(cfg.ResolveStatsWindow)
	}
	s := &Server{
		orchestrator: orch,
		library:      orch.Library(),
		resolveStats: rs,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey))

		r.Post("/api/ingest", s.handleIngest)
		r.Get("/api/ingest/{jobID}/status", s.handleIngestStatus)
		r.Post("/api/ingest/batch", s.handleBatchIngest)

		r.Route("/api/documents", func(r chi.Router) {
			r.Get("/", s.handleListDocuments)
			r.Route("/{docID}", func(r chi.Router) {
				r.Delete("/", s.handleDeleteDocument)
				r.Get("/locations", s.handleLocations)
				r.Post("/anchor", s.handleAnchor)
				r.Get("/resolve", s.handleResolve)
				r.Get("/highlights", s.handleListHighlights)
				r.Post("/highlights", s.handleHighlight)
			})
		})

		r.Route("/api/cfi", func(r chi.Router) {
			r.Post("/parse", s.handleCFIParse)
			r.Post("/compare", s.handleCFICompare)
			r.Post("/sort", s.handleCFISort)
			r.Post("/collapse", s.handleCFICollapse)
		})

		r.Put("/api/bookmarks", s.handlePutBookmark)
		r.Get("/api/bookmarks", s.handleListBookmarks)

		r.Get("/api/stats/resolve", s.handleResolveStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// decodeBody reads a JSON request body of at most 1MB into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		jsonError(w, "invalid json body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}
