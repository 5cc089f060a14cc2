// Package core provides the API chassis for the Tanaw service: a chi router
// with the cross-cutting middleware chain (request IDs, security headers,
// logging, panic recovery, API key auth) applied before requests reach
// domain-specific handlers.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tanaw/internal/config"
)

// RouteRegistrar mounts a group of domain routes onto the router. Handler
// packages implement this so core never imports them, avoiding cycles.
type RouteRegistrar interface {
	RegisterRoutes(r chi.Router)
}

// Server encapsulates the API dependencies, allowing injection during
// testing and distinct configuration for different environments.
type Server struct {
	Config       *config.Config
	Logger       *slog.Logger
	Validator    *Validator
	HealthProbes []HealthProbe

	// Domain route registrars, mounted under /v1 by MountRoutes.
	V1RouteRegistrars []RouteRegistrar

	router *chi.Mux
}

// NewServer initializes dependencies and prepares the server for route
// mounting. It fails fast on missing critical dependencies.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(),
		router:    chi.NewRouter(),
	}, nil
}

// MountRoutes applies the global middleware chain and mounts the health
// endpoint plus every registered v1 route group. Call once after all
// registrars are added.
func (s *Server) MountRoutes() {
	s.router.Use(RequestIDMiddleware)
	s.router.Use(s.Recoverer)
	s.router.Use(s.SecurityHeadersMiddleware)
	s.router.Use(RequestLogger(s.Logger, []string{"Authorization", "X-Api-Key"}))

	s.router.Get("/health", s.HandleHealth)

	s.router.Route("/v1", func(r chi.Router) {
		r.Use(s.APIKeyMiddleware)
		for _, registrar := range s.V1RouteRegistrars {
			registrar.RegisterRoutes(r)
		}
	})
}

// Handler returns the http.Handler for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration in tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Shutdown performs a graceful termination of server resources.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("server shutdown initiated")
	s.Logger.Info("server shutdown complete")
	return nil
}
