// Package chat runs streaming chat completions and persists the
// transcript to chat history.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/llm"
	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/metrics"
	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/storage"
)

// CompletionRequest describes one streaming completion run.
type CompletionRequest struct {
	Model       string
	Messages    []llm.Message
	MaxTokens   int
	Temperature float64
	UserID      string

	// ChatID names an existing thread; empty creates a new one.
	ChatID string

	// MessageID is the client-supplied id of the incoming user message,
	// used to dedupe retried requests.
	MessageID string
}

// Run identifies one completion in flight.
type Run struct {
	ID        string
	ChatID    string
	MessageID string
	Created   int64
}

// Service streams completions from the model provider and appends both
// sides of the exchange to the chat log.
type Service struct {
	client *llm.Client
	chats  storage.ChatStore
	logger zerolog.Logger
}

// NewService wires a chat completion service.
func NewService(client *llm.Client, chats storage.ChatStore, logger zerolog.Logger) *Service {
	return &Service{
		client: client,
		chats:  chats,
		logger: logger.With().Str("component", "chat").Logger(),
	}
}

// Begin resolves the chat thread for a request, creating one when no id
// is given, and persists the incoming user message. Retries carrying
// the same message id do not duplicate the log entry.
func (s *Service) Begin(ctx context.Context, req CompletionRequest) (Run, error) {
	chatID := req.ChatID
	if chatID == "" {
		id, err := s.chats.CreateChat(ctx, storage.ChatMeta{
			UserID: req.UserID,
			Title:  titleFromMessages(req.Messages),
		})
		if err != nil {
			return Run{}, fmt.Errorf("create chat: %w", err)
		}
		chatID = id
	}

	if last := lastUserMessage(req.Messages); last != nil {
		stored, err := s.chats.AppendMessage(ctx, chatID, storage.ChatMessage{
			ID:        req.MessageID,
			Role:      last.Role,
			Content:   last.Content,
			CreatedAt: time.Now().Unix(),
		})
		if err != nil {
			return Run{}, fmt.Errorf("append user message: %w", err)
		}
		if !stored {
			s.logger.Debug().Str("chat_id", chatID).Str("message_id", req.MessageID).Msg("duplicate message skipped")
		}
	}

	return Run{
		ID:        "chatcmpl-" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12],
		ChatID:    chatID,
		MessageID: uuid.New().String(),
		Created:   time.Now().Unix(),
	}, nil
}

// Stream runs the completion, invoking onDelta per content fragment,
// then appends the assembled assistant reply to the chat log. The reply
// is persisted even when the client disconnects mid-stream, so the
// thread stays consistent with what the model produced.
func (s *Service) Stream(ctx context.Context, run Run, req CompletionRequest, onDelta func(delta string) error) error {
	var reply strings.Builder
	streamErr := s.client.StreamChatCompletion(ctx, llm.ChatRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}, func(delta string) error {
		reply.WriteString(delta)
		return onDelta(delta)
	})

	if reply.Len() > 0 {
		if _, err := s.chats.AppendMessage(context.WithoutCancel(ctx), run.ChatID, storage.ChatMessage{
			ID:        run.MessageID,
			Role:      "assistant",
			Content:   reply.String(),
			CreatedAt: time.Now().Unix(),
		}); err != nil {
			s.logger.Error().Err(err).Str("chat_id", run.ChatID).Msg("failed to persist assistant reply")
		}
	}

	if streamErr != nil {
		return streamErr
	}
	metrics.ChatCompletionsTotal.WithLabelValues(req.Model).Inc()
	return nil
}

// History returns the stored messages of a chat thread, oldest first.
func (s *Service) History(ctx context.Context, chatID string) ([]storage.ChatMessage, error) {
	return s.chats.GetMessages(ctx, chatID)
}

func lastUserMessage(messages []llm.Message) *llm.Message {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return &messages[i]
		}
	}
	return nil
}

// titleFromMessages derives a chat title from the first user message.
func titleFromMessages(messages []llm.Message) string {
	for _, m := range messages {
		if m.Role != "user" {
			continue
		}
		title := strings.TrimSpace(m.Content)
		if len(title) > 60 {
			title = title[:60]
		}
		return title
	}
	return ""
}
