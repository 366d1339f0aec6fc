package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/storage"
	"github.com/redis/go-redis/v9"
)

type sessionConfigStore struct {
	client *redis.Client
}

func sessionConfigKey(sessionID string) string {
	return fmt.Sprintf("session_config:%s", sessionID)
}

// Put writes a serialized session config with a bounded expiry
func (s *sessionConfigStore) Put(ctx context.Context, sessionID string, payload []byte, ttl time.Duration) error {
	return s.client.Set(ctx, sessionConfigKey(sessionID), payload, ttl).Err()
}

// Get reads the raw config payload for a session id
func (s *sessionConfigStore) Get(ctx context.Context, sessionID string) ([]byte, error) {
	payload, err := s.client.Get(ctx, sessionConfigKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return payload, nil
}
