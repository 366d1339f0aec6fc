package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/agent"
	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/config"
	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/llm"
	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/room"
	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/session"
)

var workerRoomName string

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Serve one room as the voice agent",
	Long: `Join a provisioned room as the voice agent, resolve the session
configuration, and run the speech pipeline until the session ends.`,
	RunE: runWorker,
}

func init() {
	workerCmd.Flags().StringVar(&workerRoomName, "room", "", "Room name to serve (overrides worker.room_name)")
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	log.Logger = logger

	roomName := workerRoomName
	if roomName == "" {
		roomName = cfg.Worker.RoomName
	}
	if roomName == "" {
		return fmt.Errorf("no room to serve: set --room or worker.room_name")
	}

	logger.Info().
		Str("version", version).
		Str("room", roomName).
		Msg("Starting Jarvis worker")

	store, err := openStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close storage")
		}
	}()

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
	resolver := agent.NewResolver(rooms, relay, agent.Defaults(cfg.Providers.DefaultModel),
		parseDuration(cfg.Worker.ResolveTimeout, 5*time.Second), logger)

	httpTimeout := parseDuration(cfg.Providers.HTTPTimeout, 60*time.Second)
	httpClient := &http.Client{Timeout: httpTimeout}

	worker := agent.NewWorker(
		rooms,
		resolver,
		&agent.STTClient{URL: cfg.Providers.STTURL, AuthToken: cfg.Providers.STTAPIKey, HTTP: httpClient},
		llm.NewClient(cfg.Providers.LLMBaseURL, cfg.Providers.LLMAPIKey, httpTimeout),
		&agent.TTSClient{URL: cfg.Providers.TTSURL, AuthToken: cfg.Providers.TTSAPIKey, HTTP: httpClient},
		agent.WorkerOptions{
			RoomName:        roomName,
			Identity:        cfg.Worker.Identity,
			ParticipantWait: parseDuration(cfg.Worker.ParticipantWait, 30*time.Second),
			JoinTokenTTL:    parseDuration(cfg.Room.JoinTokenTTL, 30*time.Minute),
		},
		logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := worker.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, agent.ErrNoParticipant) {
			logger.Info().Err(err).Msg("Worker finished")
			return nil
		}
		return fmt.Errorf("worker failed: %w", err)
	}

	logger.Info().Msg("Worker finished")
	return nil
}
