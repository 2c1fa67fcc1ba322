// Package server serves generated examples over HTTP for inspection: one-off
// previews, single value noisification and a websocket stream that emits
// examples at a fixed pace.
package server

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/raaihank/stt-pii-datagen/internal/config"
	"github.com/raaihank/stt-pii-datagen/internal/logger"
	"github.com/raaihank/stt-pii-datagen/internal/noise"
	"github.com/raaihank/stt-pii-datagen/internal/pool"
	"github.com/raaihank/stt-pii-datagen/internal/privacy"
	"github.com/raaihank/stt-pii-datagen/internal/synth"
)

// Server represents the preview server
type Server struct {
	config    *config.Config
	logger    *logger.Logger
	detector  *privacy.Detector
	provider  pool.Provider
	assembler *synth.Assembler
	generator *synth.Generator
	limiter   *rateLimiter
	upgrader  websocket.Upgrader
	router    *mux.Router
	server    *http.Server

	activeStreams   atomic.Int64
	streamedRecords atomic.Int64
}

// Stats reports stream activity since the server started.
type Stats struct {
	ActiveStreams   int64 `json:"active_streams"`
	StreamedRecords int64 `json:"streamed_records"`
}

// New creates a new preview server over provider.
func New(cfg *config.Config, provider pool.Provider, log *logger.Logger) (*Server, error) {
	detector, err := privacy.New(cfg.Privacy, log.WithComponent("privacy").Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create privacy detector: %w", err)
	}

	generator := synth.NewGenerator(provider, noise.New(cfg.Noise), cfg.Generation.Fillers, log.WithComponent("synth").Logger)

	s := &Server{
		config:    cfg,
		logger:    log.WithComponent("server"),
		detector:  detector,
		provider:  provider,
		assembler: synth.NewAssembler(provider),
		generator: generator,
		limiter:   newRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst),
		router:    mux.NewRouter(),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.Server.ReadBufferSize,
		WriteBufferSize: cfg.Server.WriteBufferSize,
		CheckOrigin:     s.checkOrigin,
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(s.loggingMiddleware)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/v1").Subrouter()
	api.Use(s.rateLimitMiddleware)
	api.HandleFunc("/splits", s.handleSplits).Methods(http.MethodGet)
	api.HandleFunc("/splits/{split}/examples", s.handleExamples).Methods(http.MethodGet)
	api.HandleFunc("/splits/{split}/stream", s.handleStream).Methods(http.MethodGet)
	api.HandleFunc("/noisify", s.handleNoisify).Methods(http.MethodGet)
}

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting preview server",
		zap.Int("port", s.config.Server.Port),
		zap.Strings("splits", s.provider.Splits()),
		zap.Float64("rate_limit", s.config.Server.RateLimit),
	)
	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping preview server")
	return s.server.Shutdown(ctx)
}

// Stats returns current stream statistics
func (s *Server) Stats() Stats {
	return Stats{
		ActiveStreams:   s.activeStreams.Load(),
		StreamedRecords: s.streamedRecords.Load(),
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return slices.Contains(s.config.Server.AllowedOrigins, "*") ||
		slices.Contains(s.config.Server.AllowedOrigins, origin)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"streams":   s.Stats(),
	})
}
