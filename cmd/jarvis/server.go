package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/access"
	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/api"
	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/auth"
	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/chat"
	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/config"
	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/llm"
	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/metrics"
	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/room"
	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/session"
	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/storage"
	redisstore "github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/storage/redis"
	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/systemd"
	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/tier"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the Jarvis API server",
	Long:  `Start the Jarvis server with the session and chat API and the metrics endpoint.`,
	RunE:  runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	log.Logger = logger

	logger.Info().
		Str("version", version).
		Str("config", configPath).
		Msg("Starting Jarvis server")

	// Check for systemd socket activation
	sdListeners, err := systemd.GetListeners()
	if err != nil {
		return fmt.Errorf("failed to get systemd listeners: %w", err)
	}
	if sdListeners.Activated {
		logger.Info().Msg("Running with systemd socket activation")
	}

	store, err := openStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close storage")
		}
	}()

	logger.Info().
		Str("redis_host", cfg.Storage.Redis.Host).
		Int("redis_port", cfg.Storage.Redis.Port).
		Msg("Storage initialized")

	engine := access.NewEngine(tier.NewCatalog(), store.Sessions(), store.Usage(), logger)

	rooms, err := room.NewLiveKitProvider(room.Config{
		URL:            cfg.Room.URL,
		APIKey:         cfg.Room.APIKey,
		APISecret:      cfg.Room.APISecret,
		RequestTimeout: parseDuration(cfg.Room.RequestTimeout, 10*time.Second),
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize room provider: %w", err)
	}

	relay := session.NewRelay(store.SessionConfigs(), logger)
	controller := session.NewController(engine, relay, rooms, session.ControllerOptions{
		JoinTokenTTL:    parseDuration(cfg.Room.JoinTokenTTL, 30*time.Minute),
		MaxParticipants: cfg.Room.MaxParticipants,
		EmptyTimeout:    parseDuration(cfg.Room.EmptyTimeout, 5*time.Minute),
		DefaultModelID:  cfg.Providers.DefaultModel,
	}, logger)

	authSvc, err := auth.NewService(store.Tokens(), cfg.Auth.JWTSecret,
		parseDuration(cfg.Auth.TokenExpiration, auth.DefaultTokenExpiration), cfg.Auth.ClaimsCacheSize)
	if err != nil {
		return fmt.Errorf("failed to initialize auth service: %w", err)
	}

	llmClient := llm.NewClient(cfg.Providers.LLMBaseURL, cfg.Providers.LLMAPIKey,
		parseDuration(cfg.Providers.HTTPTimeout, 60*time.Second))
	chatSvc := chat.NewService(llmClient, store.Chats(), logger)

	apiServer := api.NewServer(api.Config{
		ListenAddr:     fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.APIPort),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		GuestTier:      cfg.Auth.GuestTier,
		DefaultModelID: cfg.Providers.DefaultModel,
		ReadTimeout:    parseDuration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout:   parseDuration(cfg.Server.WriteTimeout, 5*time.Minute),
	}, controller, chatSvc, authSvc, store, logger)
	if sdListeners.API != nil {
		apiServer.SetListener(sdListeners.API)
	}
	if err := apiServer.Start(); err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}

	metricsServer := metrics.NewServer(fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.MetricsPort), logger)
	if sdListeners.Metrics != nil {
		metricsServer.SetListener(sdListeners.Metrics)
	}
	if err := metricsServer.Start(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	if err := systemd.NotifyReady(); err != nil {
		logger.Warn().Err(err).Msg("Failed to send systemd ready notification")
	}

	logger.Info().
		Int("api_port", cfg.Server.APIPort).
		Int("metrics_port", cfg.Server.MetricsPort).
		Msg("Jarvis server started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info().Msg("Shutdown signal received, gracefully stopping...")

	if err := systemd.NotifyStopping(); err != nil {
		logger.Warn().Err(err).Msg("Failed to send systemd stopping notification")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Error stopping API server")
	}
	if err := metricsServer.Stop(); err != nil {
		logger.Error().Err(err).Msg("Error stopping metrics server")
	}

	logger.Info().Msg("Jarvis stopped")
	return nil
}

func openStorage(cfg config.StorageConfig) (storage.Store, error) {
	return redisstore.Open(cfg.Redis)
}

// setupLogger configures the logger based on configuration
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	if cfg.Format == "text" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// parseDuration parses a duration string with a fallback
func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
