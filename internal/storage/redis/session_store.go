package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type sessionStore struct {
	client *redis.Client
}

func sessionSetKey(userID string) string {
	return fmt.Sprintf("user_sessions:%s", userID)
}

// AddSession adds a session id to the user's active set via the
// insert-if-under-capacity script and refreshes the set-level TTL
func (s *sessionStore) AddSession(ctx context.Context, userID, sessionID string, maxSessions int, ttl time.Duration) (bool, error) {
	script := redis.NewScript(addSessionScript)

	keys := []string{sessionSetKey(userID)}
	args := []interface{}{sessionID, maxSessions, int64(ttl.Seconds())}

	added, err := script.Run(ctx, s.client, keys, args...).Int()
	if err != nil {
		return false, err
	}

	return added == 1, nil
}

// RemoveSession removes a session id from the user's active set
func (s *sessionStore) RemoveSession(ctx context.Context, userID, sessionID string) (bool, error) {
	removed, err := s.client.SRem(ctx, sessionSetKey(userID), sessionID).Result()
	if err != nil {
		return false, err
	}

	return removed > 0, nil
}

// CountSessions returns the cardinality of the user's active set
func (s *sessionStore) CountSessions(ctx context.Context, userID string) (int, error) {
	count, err := s.client.SCard(ctx, sessionSetKey(userID)).Result()
	if err != nil {
		return 0, err
	}

	return int(count), nil
}

// HasSession checks membership of a session id in the user's active set
func (s *sessionStore) HasSession(ctx context.Context, userID, sessionID string) (bool, error) {
	return s.client.SIsMember(ctx, sessionSetKey(userID), sessionID).Result()
}

// ListSessions returns the members of the user's active set
func (s *sessionStore) ListSessions(ctx context.Context, userID string) ([]string, error) {
	return s.client.SMembers(ctx, sessionSetKey(userID)).Result()
}
