// Package server exposes the graph over HTTP. It is a thin adapter: every
// write is an external ingestion through the engine, every read goes through
// the query facade, with a response cache in front.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/hmaier/filmgraph/pkg/cache"
	"github.com/hmaier/filmgraph/pkg/config"
	"github.com/hmaier/filmgraph/pkg/graph"
)

// Server represents the HTTP server
type Server struct {
	config *config.Config
	graph  *graph.Graph
	cache  cache.Cache
	logger zerolog.Logger
	router *chi.Mux
}

// New creates a new server instance
func New(cfg *config.Config, g *graph.Graph, c cache.Cache, logger zerolog.Logger) *Server {
	s := &Server{
		config: cfg,
		graph:  g,
		cache:  c,
		logger: logger,
		router: chi.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/version", s.handleVersion)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/actors", s.handleListActors)
		r.Post("/actors", s.handleCreateActor)
		r.Get("/actors/{slug}", s.handleGetActor)
		r.Put("/actors/{slug}", s.handlePutActor)
		r.Delete("/actors/{slug}", s.handleDeleteActor)

		r.Get("/movies", s.handleListMovies)
		r.Post("/movies", s.handleCreateMovie)
		r.Get("/movies/{slug}", s.handleGetMovie)
		r.Put("/movies/{slug}", s.handlePutMovie)
		r.Delete("/movies/{slug}", s.handleDeleteMovie)

		r.Get("/analytics/hub-actors", s.handleHubActors)
		r.Get("/analytics/age-gross", s.handleAgeGross)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info().Str("addr", addr).Msg("Starting server")
	return http.ListenAndServe(addr, s.router)
}

// Handler returns the HTTP handler (useful for testing)
func (s *Server) Handler() http.Handler {
	return s.router
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": config.Version,
	})
}

// handleVersion returns server version
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"version": config.Version,
	})
}

// Helper functions

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeRaw(w http.ResponseWriter, status int, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(payload)
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Status  int    `json:"status"`
	} `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	var resp errorResponse
	resp.Error.Message = message
	resp.Error.Status = status
	s.writeJSON(w, status, resp)
}

// cacheTTL is the lifetime of cached read responses.
func (s *Server) cacheTTL() time.Duration {
	return time.Duration(s.config.CacheTTL) * time.Second
}
