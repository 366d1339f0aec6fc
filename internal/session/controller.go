package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/access"
	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/catalog"
	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/metrics"
	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/room"
)

var (
	// ErrNoActiveSession is returned when ending a session for a user who
	// has none.
	ErrNoActiveSession = errors.New("session: no active session")

	// ErrSessionNotOwned is returned when the session id being ended is
	// not among the user's active sessions.
	ErrSessionNotOwned = errors.New("session: not owned by user")
)

// ControllerOptions carries the room and credential parameters applied
// to every session.
type ControllerOptions struct {
	JoinTokenTTL    time.Duration
	MaxParticipants int
	EmptyTimeout    time.Duration
	DefaultModelID  string
}

// Controller drives the session lifecycle end to end: admission through
// the access engine, room provisioning, config hand-off, and teardown
// with usage accounting.
type Controller struct {
	engine *access.Engine
	relay  *Relay
	rooms  room.Provider
	opts   ControllerOptions
	logger zerolog.Logger
}

// NewController wires a lifecycle controller.
func NewController(engine *access.Engine, relay *Relay, rooms room.Provider, opts ControllerOptions, logger zerolog.Logger) *Controller {
	return &Controller{
		engine: engine,
		relay:  relay,
		rooms:  rooms,
		opts:   opts,
		logger: logger.With().Str("component", "session-controller").Logger(),
	}
}

// Record is the caller-facing result of a successful session creation.
type Record struct {
	SessionID    string `json:"session_id"`
	Tier         string `json:"tier"`
	JoinEndpoint string `json:"join_endpoint"`
	JoinToken    string `json:"join_credential"`
}

// Create admits, provisions, and hands off a new session.
//
// modelID and voiceID are optional; empty values resolve to the
// configured defaults. Unknown ids are client errors and fail before
// any state is written. Tier rejections surface as
// *access.LimitExceededError with the reason and suggested action.
func (c *Controller) Create(ctx context.Context, userID, tierName, modelID, voiceID string) (*Record, error) {
	res, err := c.engine.CheckPermission(ctx, userID, tierName)
	if err != nil {
		return nil, err
	}
	if !res.Allowed {
		return nil, &access.LimitExceededError{Reason: res.Reason, Action: res.Action}
	}

	if modelID == "" {
		modelID = c.opts.DefaultModelID
	}
	if modelID == "" {
		modelID = catalog.DefaultModelID
	}
	if _, err := catalog.ModelByID(modelID); err != nil {
		return nil, err
	}
	if voiceID == "" {
		voiceID = catalog.DefaultVoiceID
	}
	voice, err := catalog.VoiceByID(voiceID)
	if err != nil {
		return nil, err
	}

	sessionID := uuid.New().String()

	if err := c.engine.StartSession(ctx, userID, sessionID, tierName); err != nil {
		return nil, err
	}

	cfg := Config{
		ModelID: modelID,
		Voice: VoiceSettings{
			VoiceID:  voice.VoiceID,
			Language: voice.Language,
			Gender:   voice.Gender,
		},
	}
	payload, err := EncodeConfig(cfg)
	if err != nil {
		c.rollback(ctx, userID, sessionID)
		return nil, fmt.Errorf("encode session config: %w", err)
	}

	err = c.rooms.CreateRoom(ctx, sessionID, room.CreateOptions{
		Metadata:        string(payload),
		MaxParticipants: c.opts.MaxParticipants,
		EmptyTimeout:    c.opts.EmptyTimeout,
	})
	if err != nil && !errors.Is(err, room.ErrRoomExists) {
		c.rollback(ctx, userID, sessionID)
		return nil, fmt.Errorf("create room: %w", err)
	}

	// The cache entry is the fallback channel; metadata already carries
	// the config, so a cache write failure is not fatal.
	if err := c.relay.Publish(ctx, sessionID, cfg); err != nil {
		c.logger.Warn().Err(err).Str("session_id", sessionID).Msg("session config cache write failed")
	}

	token, err := c.rooms.MintJoinToken(sessionID, userID, c.opts.JoinTokenTTL)
	if err != nil {
		if derr := c.rooms.DeleteRoom(ctx, sessionID); derr != nil && !errors.Is(derr, room.ErrRoomNotFound) {
			c.logger.Warn().Err(derr).Str("session_id", sessionID).Msg("room cleanup failed")
		}
		c.rollback(ctx, userID, sessionID)
		return nil, fmt.Errorf("mint join token: %w", err)
	}

	metrics.SessionsStarted.WithLabelValues(tierName).Inc()
	c.logger.Info().
		Str("user_id", userID).
		Str("tier", tierName).
		Str("session_id", sessionID).
		Str("model_id", modelID).
		Str("voice_id", voiceID).
		Msg("session created")

	return &Record{
		SessionID:    sessionID,
		Tier:         tierName,
		JoinEndpoint: c.rooms.JoinEndpoint(),
		JoinToken:    token,
	}, nil
}

// End tears down a session and records its duration against the user's
// daily allowance. The session id must belong to the user's active set.
func (c *Controller) End(ctx context.Context, userID, tierName, sessionID string, duration time.Duration) error {
	count, err := c.engine.ActiveSessions(ctx, userID)
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNoActiveSession
	}

	owns, err := c.engine.OwnsSession(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	if !owns {
		return ErrSessionNotOwned
	}

	if duration < 0 {
		duration = 0
	}
	if _, err := c.engine.EndSession(ctx, userID, sessionID, duration); err != nil {
		return err
	}

	if err := c.rooms.DeleteRoom(ctx, sessionID); err != nil && !errors.Is(err, room.ErrRoomNotFound) {
		c.logger.Warn().Err(err).Str("session_id", sessionID).Msg("room delete failed")
	}

	metrics.SessionsEnded.WithLabelValues(tierName).Inc()
	metrics.UsageMinutesConsumed.WithLabelValues(tierName).Add(float64(int64(duration / time.Minute)))
	c.logger.Info().
		Str("user_id", userID).
		Str("session_id", sessionID).
		Dur("duration", duration).
		Msg("session ended")
	return nil
}

// rollback undoes the admission bookkeeping for a session whose
// provisioning failed partway. Best effort; a failure here is logged
// and the session set entry ages out with its TTL.
func (c *Controller) rollback(ctx context.Context, userID, sessionID string) {
	if err := c.engine.CancelSession(ctx, userID, sessionID); err != nil {
		c.logger.Warn().Err(err).
			Str("user_id", userID).
			Str("session_id", sessionID).
			Msg("session rollback failed")
	}
}
