package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeNotFound(w, r, "route not found")
	})

	r.Get("/health", s.handleHealth)
	r.Get(s.wsPath, s.dashboards.ServeHTTP)

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	// Dashboard page (embedded via go:embed)
	if s.panel != nil {
		r.Handle("/panel/*", http.StripPrefix("/panel", s.panel))
		r.Handle("/panel", http.RedirectHandler("/panel/", http.StatusMovedPermanently))
		r.Handle("/", http.RedirectHandler("/panel/", http.StatusFound))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/status", s.handleStatus)
		r.Get("/readings", s.handleReadings)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
