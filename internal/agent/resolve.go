// Package agent is the voice pipeline worker. It joins a provisioned
// room, resolves the session configuration once, and runs the
// speech-to-text, language model, and text-to-speech loop for the
// session.
package agent

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/catalog"
	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/metrics"
	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/room"
	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/session"
)

// Resolution sources, recorded per resolve.
const (
	SourceMetadata = "metadata"
	SourceCache    = "cache"
	SourceDefault  = "default"
)

// Resolver resolves the session configuration for a room. Resolution
// happens exactly once per session; the pipeline is built from the
// result and never reconfigured mid-session.
type Resolver struct {
	rooms    room.Provider
	relay    *session.Relay
	defaults session.Config
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewResolver wires a config resolver. defaults fills any field the
// resolved config leaves empty.
func NewResolver(rooms room.Provider, relay *session.Relay, defaults session.Config, timeout time.Duration, logger zerolog.Logger) *Resolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Resolver{
		rooms:    rooms,
		relay:    relay,
		defaults: defaults,
		timeout:  timeout,
		logger:   logger.With().Str("component", "config-resolver").Logger(),
	}
}

// Resolve returns the session config for roomName. The room metadata is
// authoritative; the cache entry is consulted when the metadata is
// absent or undecodable; hard defaults cover everything else. Lookups
// are individually bounded, and a lookup that cannot complete in time
// counts as not found.
func (r *Resolver) Resolve(ctx context.Context, roomName string) session.Config {
	if cfg, ok := r.fromMetadata(ctx, roomName); ok {
		metrics.ConfigResolutions.WithLabelValues(SourceMetadata).Inc()
		r.logger.Info().Str("room", roomName).Msg("session config resolved from room metadata")
		return r.applyDefaults(cfg)
	}

	if cfg, ok := r.fromCache(ctx, roomName); ok {
		metrics.ConfigResolutions.WithLabelValues(SourceCache).Inc()
		r.logger.Info().Str("room", roomName).Msg("session config resolved from cache")
		return r.applyDefaults(cfg)
	}

	metrics.ConfigResolutions.WithLabelValues(SourceDefault).Inc()
	r.logger.Warn().Str("room", roomName).Msg("session config not found, using defaults")
	return r.defaults
}

func (r *Resolver) fromMetadata(ctx context.Context, roomName string) (session.Config, bool) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rm, err := r.rooms.GetRoom(ctx, roomName)
	if err != nil {
		if !errors.Is(err, room.ErrRoomNotFound) {
			r.logger.Warn().Err(err).Str("room", roomName).Msg("room lookup failed")
		}
		return session.Config{}, false
	}
	return session.DecodeConfig([]byte(rm.Metadata))
}

func (r *Resolver) fromCache(ctx context.Context, roomName string) (session.Config, bool) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cfg, ok, err := r.relay.Fetch(ctx, roomName)
	if err != nil {
		r.logger.Warn().Err(err).Str("room", roomName).Msg("config cache lookup failed")
		return session.Config{}, false
	}
	return cfg, ok
}

func (r *Resolver) applyDefaults(cfg session.Config) session.Config {
	if cfg.ModelID == "" {
		cfg.ModelID = r.defaults.ModelID
	}
	if cfg.Voice.VoiceID == "" {
		cfg.Voice.VoiceID = r.defaults.Voice.VoiceID
	}
	if cfg.Voice.Language == "" {
		cfg.Voice.Language = r.defaults.Voice.Language
	}
	if cfg.Voice.Gender == "" {
		cfg.Voice.Gender = r.defaults.Voice.Gender
	}
	return cfg
}

// Defaults returns the hard default config used when no channel yields
// a usable one. The voice fields come from the catalog's default entry
// so the TTS parameters match what catalog-driven sessions send.
func Defaults(modelID string) session.Config {
	if modelID == "" {
		modelID = catalog.DefaultModelID
	}
	voice, _ := catalog.VoiceByID(catalog.DefaultVoiceID)
	return session.Config{
		ModelID: modelID,
		Voice: session.VoiceSettings{
			VoiceID:  voice.VoiceID,
			Language: voice.Language,
			Gender:   voice.Gender,
		},
	}
}
