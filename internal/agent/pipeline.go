package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/llm"
	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/session"
)

const agentInstructions = "You are Jarvis, a helpful voice assistant. Keep replies short and conversational; they will be spoken aloud."

// STTClient transcribes audio via an external speech-to-text service.
type STTClient struct {
	URL       string
	AuthToken string
	HTTP      *http.Client
}

// Transcribe posts raw audio and returns the recognized text.
func (c *STTClient) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if c == nil || c.URL == "" {
		return "", fmt.Errorf("stt client not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(audio))
	if err != nil {
		return "", fmt.Errorf("build stt request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	if c.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.AuthToken)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("stt request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		_, _ = io.ReadAll(resp.Body)
		return "", fmt.Errorf("stt returned status %d", resp.StatusCode)
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode stt response: %w", err)
	}
	return out.Text, nil
}

// TTSClient synthesizes speech via an external text-to-speech service.
type TTSClient struct {
	URL       string
	AuthToken string
	HTTP      *http.Client
}

// Synthesize posts text with voice parameters and returns audio bytes.
func (c *TTSClient) Synthesize(ctx context.Context, text string, voice session.VoiceSettings) ([]byte, error) {
	if c == nil || c.URL == "" {
		return nil, fmt.Errorf("tts client not configured")
	}

	body, err := json.Marshal(map[string]string{
		"text":     text,
		"voice_id": voice.VoiceID,
		"language": voice.Language,
		"gender":   voice.Gender,
	})
	if err != nil {
		return nil, fmt.Errorf("encode tts request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build tts request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.AuthToken)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		_, _ = io.ReadAll(resp.Body)
		return nil, fmt.Errorf("tts returned status %d", resp.StatusCode)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read tts response: %w", err)
	}
	return audio, nil
}

// Pipeline is the assembled voice loop for one session: transcription,
// completion, synthesis. It is built once from the resolved config and
// keeps the running conversation as model context.
type Pipeline struct {
	stt     *STTClient
	llmc    *llm.Client
	tts     *TTSClient
	cfg     session.Config
	history []llm.Message
	logger  zerolog.Logger
}

// NewPipeline assembles a pipeline from provider clients and the
// resolved session config.
func NewPipeline(stt *STTClient, llmClient *llm.Client, tts *TTSClient, cfg session.Config, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		stt:  stt,
		llmc: llmClient,
		tts:  tts,
		cfg:  cfg,
		history: []llm.Message{
			{Role: "system", Content: agentInstructions},
		},
		logger: logger.With().Str("component", "pipeline").Logger(),
	}
}

// Config returns the session config the pipeline was built with.
func (p *Pipeline) Config() session.Config {
	return p.cfg
}

// Respond runs one turn: transcribe the user's audio, complete with the
// session's model, synthesize the reply with the session's voice.
func (p *Pipeline) Respond(ctx context.Context, audio []byte) ([]byte, error) {
	start := time.Now()

	text, err := p.stt.Transcribe(ctx, audio)
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}
	if text == "" {
		return nil, nil
	}
	p.history = append(p.history, llm.Message{Role: "user", Content: text})

	reply, err := p.llmc.CreateChatCompletion(ctx, llm.ChatRequest{
		Model:    p.cfg.ModelID,
		Messages: p.history,
	})
	if err != nil {
		return nil, fmt.Errorf("complete: %w", err)
	}
	p.history = append(p.history, llm.Message{Role: "assistant", Content: reply.Content})

	speech, err := p.tts.Synthesize(ctx, reply.Content, p.cfg.Voice)
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}

	p.logger.Debug().
		Str("model", p.cfg.ModelID).
		Str("voice", p.cfg.Voice.VoiceID).
		Dur("turn_duration", time.Since(start)).
		Msg("pipeline turn complete")
	return speech, nil
}
