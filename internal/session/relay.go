package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/storage"
)

// ConfigTTL bounds how long a cached session config outlives its
// creation. Any worker that has not picked the config up by then falls
// back to defaults.
const ConfigTTL = 30 * time.Minute

// Relay hands session configuration from the API process to the agent
// worker. The room metadata is the primary channel; the cache entry
// written here is the fallback for rooms whose metadata was lost or
// mangled in transit.
type Relay struct {
	configs storage.SessionConfigStore
	logger  zerolog.Logger
}

// NewRelay returns a relay backed by the given config store.
func NewRelay(configs storage.SessionConfigStore, logger zerolog.Logger) *Relay {
	return &Relay{
		configs: configs,
		logger:  logger.With().Str("component", "session-relay").Logger(),
	}
}

// Publish writes the config to the fallback cache keyed by session id.
func (r *Relay) Publish(ctx context.Context, sessionID string, cfg Config) error {
	payload, err := EncodeConfig(cfg)
	if err != nil {
		return fmt.Errorf("encode session config: %w", err)
	}
	if err := r.configs.Put(ctx, sessionID, payload, ConfigTTL); err != nil {
		return fmt.Errorf("cache session config: %w", err)
	}
	r.logger.Debug().Str("session_id", sessionID).Msg("session config cached")
	return nil
}

// Fetch reads and decodes the cached config for a session. The second
// return is false when the entry is absent, expired, or undecodable.
func (r *Relay) Fetch(ctx context.Context, sessionID string) (Config, bool, error) {
	payload, err := r.configs.Get(ctx, sessionID)
	if errors.Is(err, storage.ErrNotFound) {
		return Config{}, false, nil
	}
	if err != nil {
		return Config{}, false, fmt.Errorf("read cached session config: %w", err)
	}
	cfg, ok := DecodeConfig(payload)
	return cfg, ok, nil
}
