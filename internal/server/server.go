// Package server exposes the dashboard HTTP API and websocket endpoint.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/server/handler"
	"github.com/alanyoungcy/crossarb/internal/server/middleware"
	"github.com/alanyoungcy/crossarb/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	// APIKey protects mutating routes; empty disables auth.
	APIKey string
	// RateLimitPerMin caps requests per client IP per minute; 0 disables.
	RateLimitPerMin int
}

// Handlers aggregates the HTTP handlers the server registers.
type Handlers struct {
	Health        *handler.HealthHandler
	Stats         *handler.StatsHandler
	Markets       *handler.MarketHandler
	Pairs         *handler.PairHandler
	Opportunities *handler.OpportunityHandler
}

// Server is the dashboard HTTP + websocket server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer registers all routes and builds the middleware chain. limiter
// may be nil to run without distributed rate limiting; wsHub may be nil to
// run without the websocket endpoint.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Reads are open; auth (when configured) guards the mutating routes.
	mutating := middleware.Auth(cfg.APIKey)

	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)
	mux.HandleFunc("GET /api/stats", handlers.Stats.GetStats)

	mux.HandleFunc("GET /api/markets", handlers.Markets.ListMarkets)
	mux.HandleFunc("GET /api/markets/{source}/{id}", handlers.Markets.GetMarket)

	mux.HandleFunc("GET /api/pairs", handlers.Pairs.ListPairs)
	mux.Handle("POST /api/pairs/{id}/confirm", mutating(http.HandlerFunc(handlers.Pairs.ConfirmPair)))
	mux.Handle("DELETE /api/pairs/{id}", mutating(http.HandlerFunc(handlers.Pairs.DeletePair)))

	mux.HandleFunc("GET /api/opportunities", handlers.Opportunities.ListLive)
	mux.HandleFunc("GET /api/opportunities/recent", handlers.Opportunities.ListRecent)

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	if limiter != nil && cfg.RateLimitPerMin > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimitPerMin, time.Minute)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           h,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: logger.With(slog.String("component", "server")),
	}
}

// Start listens and blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("server: starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
