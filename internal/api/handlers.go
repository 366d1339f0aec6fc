package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/access"
	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/catalog"
	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/chat"
	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/llm"
	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/session"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}

// RejectionResponse is returned when a tier limit blocks a session.
type RejectionResponse struct {
	Reason string `json:"reason"`
	Action string `json:"action"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		http.Error(w, `{"error":"Internal Server Error","message":"Failed to encode response"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(buf.Bytes())
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

type createSessionRequest struct {
	ModelID string `json:"model_id,omitempty"`
	VoiceID string `json:"voice_id,omitempty"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := IdentityFromContext(ctx, s.config.GuestTier)

	var req createSessionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	rec, err := s.sessions.Create(ctx, id.UserID, id.Tier, req.ModelID, req.VoiceID)
	if err != nil {
		var limitErr *access.LimitExceededError
		var tierErr *access.TierNotFoundError
		switch {
		case errors.As(err, &limitErr):
			writeJSON(w, http.StatusForbidden, RejectionResponse{Reason: limitErr.Reason, Action: limitErr.Action})
		case errors.As(err, &tierErr):
			writeError(w, http.StatusBadRequest, tierErr.Error())
		case errors.Is(err, catalog.ErrModelNotFound), errors.Is(err, catalog.ErrVoiceNotFound):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.logger.Error().Err(err).Str("user_id", id.UserID).Msg("Failed to create session")
			writeError(w, http.StatusInternalServerError, "Failed to create session")
		}
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

type endSessionRequest struct {
	DurationSeconds int64 `json:"duration_seconds"`
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := IdentityFromContext(ctx, s.config.GuestTier)
	sessionID := mux.Vars(r)["id"]

	var req endSessionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	err := s.sessions.End(ctx, id.UserID, id.Tier, sessionID, time.Duration(req.DurationSeconds)*time.Second)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNoActiveSession):
			writeError(w, http.StatusBadRequest, "No active session")
		case errors.Is(err, session.ErrSessionNotOwned):
			writeError(w, http.StatusNotFound, "Session not found")
		default:
			s.logger.Error().Err(err).Str("session_id", sessionID).Msg("Failed to end session")
			writeError(w, http.StatusInternalServerError, "Failed to end session")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":           "ended",
		"session_id":       sessionID,
		"duration_seconds": req.DurationSeconds,
	})
}

func (s *Server) handleListVoices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, catalog.AllVoices())
}

func (s *Server) handleListModels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, catalog.AllModels())
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	id := IdentityFromContext(r.Context(), s.config.GuestTier)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id": id.UserID,
		"tier":    id.Tier,
		"guest":   id.Guest,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token, ok := TokenFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	if err := s.auth.Revoke(ctx, token); err != nil {
		s.logger.Error().Err(err).Msg("Failed to revoke token")
		writeError(w, http.StatusInternalServerError, "Failed to log out")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (s *Server) handleTodayUsage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := IdentityFromContext(ctx, s.config.GuestTier)

	date := time.Now().UTC().Format("2006-01-02")
	used, err := s.store.Usage().GetDailyUsage(ctx, id.UserID, date)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", id.UserID).Msg("Failed to read usage")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve usage")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"date":         date,
		"minutes_used": used,
	})
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	chatID := mux.Vars(r)["id"]

	msgs, err := s.chat.History(r.Context(), chatID)
	if err != nil {
		s.logger.Error().Err(err).Str("chat_id", chatID).Msg("Failed to read chat history")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve messages")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"chat_id":  chatID,
		"messages": msgs,
		"count":    len(msgs),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []llm.Message `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
	ChatID      string        `json:"chat_id,omitempty"`
	MessageID   string        `json:"message_id,omitempty"`
}

type completionChunk struct {
	ID        string             `json:"id"`
	Object    string             `json:"object"`
	Created   int64              `json:"created"`
	Model     string             `json:"model"`
	ChatID    string             `json:"chat_id,omitempty"`
	MessageID string             `json:"message_id,omitempty"`
	Choices   []completionChoice `json:"choices"`
}

type completionChoice struct {
	Index        int          `json:"index"`
	Delta        deltaMessage `json:"delta"`
	FinishReason *string      `json:"finish_reason"`
}

type deltaMessage struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// handleChatCompletions streams an OpenAI-compatible completion as
// server-sent events and appends both sides of the exchange to chat
// history.
func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := IdentityFromContext(ctx, s.config.GuestTier)

	var req chatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages is required")
		return
	}
	if req.Model == "" {
		req.Model = s.config.DefaultModelID
	}
	if _, err := catalog.ModelByID(req.Model); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	creq := chat.CompletionRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		UserID:      id.UserID,
		ChatID:      req.ChatID,
		MessageID:   req.MessageID,
	}
	run, err := s.chat.Begin(ctx, creq)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", id.UserID).Msg("Failed to begin chat completion")
		writeError(w, http.StatusInternalServerError, "Failed to start completion")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	writeChunk := func(c completionChunk) error {
		payload, err := json.Marshal(c)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	streamErr := s.chat.Stream(ctx, run, creq, func(delta string) error {
		return writeChunk(completionChunk{
			ID:        run.ID,
			Object:    "chat.completion.chunk",
			Created:   run.Created,
			Model:     req.Model,
			ChatID:    run.ChatID,
			MessageID: run.MessageID,
			Choices:   []completionChoice{{Index: 0, Delta: deltaMessage{Content: delta}, FinishReason: nil}},
		})
	})
	if streamErr != nil {
		// Headers are already out; the best we can do is log and close
		// the stream without the DONE marker.
		s.logger.Error().Err(streamErr).Str("chat_id", run.ChatID).Msg("Chat completion stream failed")
		return
	}

	stop := "stop"
	_ = writeChunk(completionChunk{
		ID:        run.ID,
		Object:    "chat.completion.chunk",
		Created:   run.Created,
		Model:     req.Model,
		ChatID:    run.ChatID,
		MessageID: run.MessageID,
		Choices:   []completionChoice{{Index: 0, Delta: deltaMessage{}, FinishReason: &stop}},
	})
	_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}
