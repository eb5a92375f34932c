// Package server exposes the read-only HTTP API over predictions, games
// and teams. All writes happen in the background scheduler; the API only
// serves what the pipeline has already produced.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"polynba/internal/cache"
	"polynba/internal/config"
	"polynba/internal/repository"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"
)

// Server wraps the HTTP server and its router
type Server struct {
	httpServer *http.Server
	router     chi.Router
}

// NewServer builds the router and wires all routes
func NewServer(cfg *config.Config, db *repository.Database, redisCache *cache.RedisCache) *Server {
	h := NewHandler(db, redisCache)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/predictions", h.GetPredictions)
		r.Get("/predictions/{gameID}", h.GetPrediction)
		r.Get("/games", h.GetGames)
		r.Get("/games/{gameID}", h.GetGame)
		r.Get("/teams", h.GetTeams)
	})

	return &Server{
		router: r,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.APIPort),
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Router returns the underlying router, mainly for tests
func (s *Server) Router() http.Handler {
	return s.router
}

// Start begins serving requests and blocks until the server stops
func (s *Server) Start() error {
	log.Info().Str("addr", s.httpServer.Addr).Msg("API server listening")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down API server...")
	return s.httpServer.Shutdown(ctx)
}
