// Package api exposes the platform's HTTP surface: session lifecycle,
// voice and model catalogs, chat completions, and account endpoints.
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/auth"
	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/chat"
	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/session"
	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/storage"
)

// Config holds the API server configuration.
type Config struct {
	ListenAddr     string
	AllowedOrigins []string
	GuestTier      string
	DefaultModelID string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// Server is the public HTTP API server.
type Server struct {
	config   Config
	sessions *session.Controller
	chat     *chat.Service
	auth     *auth.Service
	store    storage.Store
	router   *mux.Router
	server   *http.Server
	listener net.Listener
	logger   zerolog.Logger
}

// NewServer creates an API server.
func NewServer(cfg Config, sessions *session.Controller, chatSvc *chat.Service, authSvc *auth.Service, store storage.Store, logger zerolog.Logger) *Server {
	if cfg.GuestTier == "" {
		cfg.GuestTier = "guest"
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// Streaming completions hold the response open well past a
		// normal request.
		cfg.WriteTimeout = 5 * time.Minute
	}

	router := mux.NewRouter()

	s := &Server{
		config:   cfg,
		sessions: sessions,
		chat:     chatSvc,
		auth:     authSvc,
		store:    store,
		router:   router,
		logger:   logger.With().Str("component", "api").Logger(),
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Use(LoggingMiddleware(s.logger))
	if len(s.config.AllowedOrigins) > 0 {
		s.router.Use(CORSMiddleware(s.config.AllowedOrigins))
	}

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Every other route runs behind identity resolution; callers
	// without a credential act as guests.
	authed := s.router.PathPrefix("/").Subrouter()
	authed.Use(AuthMiddleware(s.auth, s.config.GuestTier))

	authed.HandleFunc("/sessions/create", s.handleCreateSession).Methods("POST", "OPTIONS")
	authed.HandleFunc("/sessions/{id}", s.handleEndSession).Methods("DELETE", "OPTIONS")

	authed.HandleFunc("/voices", s.handleListVoices).Methods("GET")
	authed.HandleFunc("/models", s.handleListModels).Methods("GET")

	authed.HandleFunc("/v1/chat/completions", s.handleChatCompletions).Methods("POST", "OPTIONS")
	authed.HandleFunc("/chats/{id}/messages", s.handleChatHistory).Methods("GET")

	authed.HandleFunc("/auth/me", s.handleMe).Methods("GET")
	authed.HandleFunc("/auth/logout", s.handleLogout).Methods("POST", "OPTIONS")
	authed.HandleFunc("/usage/today", s.handleTodayUsage).Methods("GET")
}

// Handler returns the server's root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// SetListener sets a pre-bound listener, overriding the configured
// address. Used with systemd socket activation.
func (s *Server) SetListener(l net.Listener) {
	s.listener = l
}

// Start starts the API server.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.config.ListenAddr).Msg("Starting API server")

	go func() {
		var err error
		if s.listener != nil {
			err = s.server.Serve(s.listener)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("API server error")
		}
	}()

	return nil
}

// Stop gracefully shuts down the API server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("Stopping API server")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown api server: %w", err)
	}
	return nil
}
