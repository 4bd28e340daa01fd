// Package server assembles the chi router and owns the HTTP server
// lifecycle.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"linkloom/pkg/config"
	"linkloom/pkg/database"
	"linkloom/pkg/handlers"
	"linkloom/pkg/logger"
	"linkloom/pkg/middleware"
	"linkloom/pkg/utils"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	http *http.Server
	log  logger.Logger
}

// New builds the router and the HTTP server around it.
func New(cfg *config.Config, db database.DatabaseInterface, log logger.Logger) *Server {
	router := NewRouter(cfg, db, log)

	s := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return &Server{http: s, log: log}
}

// NewRouter assembles middleware and routes. Exposed separately so tests can
// drive the full stack through httptest.
func NewRouter(cfg *config.Config, db database.DatabaseInterface, log logger.Logger) *chi.Mux {
	jwtService := utils.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	authHandler := handlers.NewAuthHandler(cfg, db, jwtService, log)
	linksHandler := handlers.NewLinksHandler(cfg, db, log)

	router := chi.NewRouter()

	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS(cfg))
	router.Use(chimw.Timeout(25 * time.Second))
	router.Use(chimw.Compress(5))
	router.Use(middleware.ContentTypeJSON)
	router.Use(middleware.MaxBodySize(1 << 20))

	if cfg.IsDevelopment() {
		router.Use(chimw.Heartbeat("/ping"))
	}

	router.Get("/", authHandler.HealthCheck)

	router.Route("/auth", func(r chi.Router) {
		r.Use(middleware.RateLimit(middleware.RateLimitConfig{
			Burst:             10,
			RefillPerIPPerMin: 30,
		}))
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)
	})

	router.Route("/links", func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(jwtService))
		r.Get("/", linksHandler.GetLinks)
		r.Put("/", linksHandler.UpdateLinks)
		r.Delete("/", linksHandler.DeleteLinks)
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteNotFoundResponse(w, fmt.Sprintf("Route not found: %s %s", r.Method, r.URL.Path))
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteErrorResponseWithCode(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			fmt.Sprintf("Method %s not allowed for %s", r.Method, r.URL.Path), "")
	})

	return router
}

// Start runs the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.log.Infof("HTTP server listening on %s", s.http.Addr)
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop shuts the server down gracefully within the context deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("HTTP server shutting down")
	return s.http.Shutdown(ctx)
}
