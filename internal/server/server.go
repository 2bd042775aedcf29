// Package server exposes the latest verified catalogs over a small
// read-only HTTP API for local consumers (UI layers, tooling).
//
// The server only ever reads from the catalog store; it has no way to
// publish, so nothing it serves can bypass the verification pipeline.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/lumivpn/discovery/internal/discovery"
)

// Config holds the server's collaborators.
type Config struct {
	// Store is the source of catalogs; required
	Store *discovery.Store
	// Logger defaults to a no-op logger
	Logger *zerolog.Logger
}

// Server serves the read-only catalog API.
type Server struct {
	store  *discovery.Store
	log    zerolog.Logger
	router chi.Router
}

// New creates the server and mounts its routes.
func New(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("Store is required")
	}

	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}

	s := &Server{store: cfg.Store, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Get("/v1/server_list", s.handleCatalog(discovery.KindServerList))
	r.Get("/v1/organization_list", s.handleCatalog(discovery.KindOrganizationList))

	s.router = r
	return s, nil
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	s.log.Info().Str("addr", addr).Msg("catalog api listening")

	select {
	case err := <-errc:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return ctx.Err()
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCatalog serves the latest verified catalog for one kind, or
// 503 while none has been published yet.
func (s *Server) handleCatalog(kind discovery.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cat, updated, ok := s.store.Latest(kind)
		if !ok {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"error": fmt.Sprintf("%s not available", kind),
			})
			return
		}

		w.Header().Set("Last-Modified", updated.UTC().Format(http.TimeFormat))
		writeJSON(w, http.StatusOK, cat)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// requestLogger logs one line per completed request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}
