package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/llm"
	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/room"
)

// WorkerOptions configures one worker run.
type WorkerOptions struct {
	RoomName        string
	Identity        string
	ParticipantWait time.Duration
	JoinTokenTTL    time.Duration
}

// Worker serves one room: it joins, resolves the session config once,
// builds the pipeline, and answers each audio turn until the room
// closes.
type Worker struct {
	rooms    room.Provider
	resolver *Resolver
	stt      *STTClient
	llmc     *llm.Client
	tts      *TTSClient
	opts     WorkerOptions
	logger   zerolog.Logger
}

// NewWorker wires a worker.
func NewWorker(rooms room.Provider, resolver *Resolver, stt *STTClient, llmClient *llm.Client, tts *TTSClient, opts WorkerOptions, logger zerolog.Logger) *Worker {
	if opts.Identity == "" {
		opts.Identity = "jarvis-agent"
	}
	if opts.ParticipantWait <= 0 {
		opts.ParticipantWait = 30 * time.Second
	}
	if opts.JoinTokenTTL <= 0 {
		opts.JoinTokenTTL = time.Hour
	}
	return &Worker{
		rooms:    rooms,
		resolver: resolver,
		stt:      stt,
		llmc:     llmClient,
		tts:      tts,
		opts:     opts,
		logger:   logger.With().Str("component", "worker").Str("room", opts.RoomName).Logger(),
	}
}

// Run joins the room and serves it until the context is cancelled, the
// room closes, or no participant shows up in time. The session config
// is resolved exactly once, before joining; the pipeline built from it
// is never reconfigured mid-session.
func (w *Worker) Run(ctx context.Context) error {
	cfg := w.resolver.Resolve(ctx, w.opts.RoomName)
	w.logger.Info().
		Str("model", cfg.ModelID).
		Str("voice", cfg.Voice.VoiceID).
		Msg("session config resolved")

	token, err := w.rooms.MintJoinToken(w.opts.RoomName, w.opts.Identity, w.opts.JoinTokenTTL)
	if err != nil {
		return fmt.Errorf("mint join token: %w", err)
	}

	link, err := Dial(ctx, w.rooms.JoinEndpoint(), w.opts.RoomName, token, w.logger)
	if err != nil {
		return fmt.Errorf("join room: %w", err)
	}
	defer link.Close()

	identity, err := link.WaitForParticipant(ctx, w.opts.ParticipantWait)
	if err != nil {
		if errors.Is(err, ErrNoParticipant) {
			w.logger.Warn().Dur("waited", w.opts.ParticipantWait).Msg("no participant joined, leaving")
		}
		return err
	}
	w.logger.Info().Str("identity", identity).Msg("serving participant")

	pipeline := NewPipeline(w.stt, w.llmc, w.tts, cfg, w.logger)
	return w.serve(ctx, link, pipeline)
}

func (w *Worker) serve(ctx context.Context, link *RoomLink, pipeline *Pipeline) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		ev, err := link.ReadEvent(ctx)
		if err != nil {
			return err
		}

		switch ev.Type {
		case EventAudio:
			reply, err := pipeline.Respond(ctx, ev.Payload)
			if err != nil {
				w.logger.Error().Err(err).Msg("pipeline turn failed")
				continue
			}
			if reply == nil {
				continue
			}
			if err := link.SendAudio(ctx, reply); err != nil {
				return err
			}
		case EventParticipantLeft, EventRoomClosed:
			w.logger.Info().Str("event", ev.Type).Msg("session over")
			return nil
		}
	}
}
