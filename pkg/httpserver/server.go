package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pricebet/pricebet/internal/ledger"
	"github.com/pricebet/pricebet/internal/mirror"
	"github.com/pricebet/pricebet/internal/snapshot"
	"github.com/pricebet/pricebet/internal/storage"
	"github.com/pricebet/pricebet/pkg/healthprobe"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server provides the market API plus metrics and health endpoints.
type Server struct {
	server        *http.Server
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
}

// Config holds server configuration.
type Config struct {
	Port          string
	Logger        *zap.Logger
	HealthChecker *healthprobe.HealthChecker
	Ledger        ledger.Ledger
	Mirror        *mirror.Mirror
	Publisher     *snapshot.Publisher
	Storage       storage.Storage
}

// New creates a new HTTP server.
func New(cfg *Config) *Server {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// Routes
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/health", cfg.HealthChecker.Health())
	r.Get("/ready", cfg.HealthChecker.Ready())

	// Market API endpoints (if components provided)
	if cfg.Ledger != nil && cfg.Mirror != nil {
		mh := NewMarketsHandler(cfg.Ledger, cfg.Mirror, cfg.Publisher, cfg.Logger)
		r.Get("/api/markets", mh.HandleList)
		r.Get("/api/markets/{id}", mh.HandleGet)
		r.Post("/api/markets", mh.HandleCreate)

		wh := NewWagersHandler(cfg.Ledger, cfg.Mirror, cfg.Storage, cfg.Logger)
		r.Post("/api/markets/{id}/bets", wh.HandleBet)
		r.Post("/api/markets/{id}/switch", wh.HandleSwitch)
		r.Post("/api/markets/{id}/claim", wh.HandleClaim)
		r.Post("/api/markets/{id}/settle", wh.HandleSettle)
		r.Get("/api/markets/{id}/position", wh.HandlePosition)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{
		server:        server,
		logger:        cfg.Logger,
		healthChecker: cfg.HealthChecker,
	}
}

// Start starts the HTTP server.
// This is a blocking call that returns when the server stops or encounters an error.
func (s *Server) Start() error {
	s.logger.Info("http-server-starting", zap.String("addr", s.server.Addr))

	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http-server-shutting-down")

	err := s.server.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.Info("http-server-shutdown-complete")
	return nil
}
