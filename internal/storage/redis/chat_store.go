package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/storage"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type chatStore struct {
	client *redis.Client
}

func chatKey(chatID string) string {
	return fmt.Sprintf("chat:%s", chatID)
}

func chatMessagesKey(chatID string) string {
	return fmt.Sprintf("chat:%s:messages", chatID)
}

// CreateChat creates a chat record and returns its id
func (s *chatStore) CreateChat(ctx context.Context, meta storage.ChatMeta) (string, error) {
	chatID := uuid.New().String()
	now := strconv.FormatInt(time.Now().Unix(), 10)

	fields := map[string]interface{}{
		"created_at": now,
		"updated_at": now,
	}
	if meta.UserID != "" {
		fields["user_id"] = meta.UserID
	}
	if meta.Title != "" {
		fields["title"] = meta.Title
	}

	if err := s.client.HSet(ctx, chatKey(chatID), fields).Err(); err != nil {
		return "", err
	}

	return chatID, nil
}

// AppendMessage appends a message to the chat log, deduplicating on id
func (s *chatStore) AppendMessage(ctx context.Context, chatID string, msg storage.ChatMessage) (bool, error) {
	if msg.ID != "" {
		existing, err := s.GetMessages(ctx, chatID)
		if err != nil {
			return false, err
		}
		for _, m := range existing {
			if m.ID == msg.ID {
				return false, nil
			}
		}
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return false, fmt.Errorf("marshal chat message: %w", err)
	}

	if err := s.client.RPush(ctx, chatMessagesKey(chatID), payload).Err(); err != nil {
		return false, err
	}

	updates := map[string]interface{}{
		"updated_at": strconv.FormatInt(time.Now().Unix(), 10),
	}
	if msg.ID != "" {
		updates["last_message_id"] = msg.ID
	}

	if err := s.client.HSet(ctx, chatKey(chatID), updates).Err(); err != nil {
		return false, err
	}

	return true, nil
}

// GetMessages returns all messages stored for a chat, oldest first
func (s *chatStore) GetMessages(ctx context.Context, chatID string) ([]storage.ChatMessage, error) {
	raw, err := s.client.LRange(ctx, chatMessagesKey(chatID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	messages := make([]storage.ChatMessage, 0, len(raw))
	for _, entry := range raw {
		var msg storage.ChatMessage
		if err := json.Unmarshal([]byte(entry), &msg); err != nil {
			// Skip malformed entries rather than failing the whole read
			continue
		}
		messages = append(messages, msg)
	}

	return messages, nil
}
