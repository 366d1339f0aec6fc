package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type tokenStore struct {
	client *redis.Client
}

func blacklistKey(token string) string {
	return fmt.Sprintf("blacklist:%s", token)
}

// Blacklist marks a token as revoked until its own lifetime runs out
func (s *tokenStore) Blacklist(ctx context.Context, token string, ttl time.Duration) error {
	return s.client.Set(ctx, blacklistKey(token), "1", ttl).Err()
}

// IsBlacklisted reports whether a token has been revoked
func (s *tokenStore) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	exists, err := s.client.Exists(ctx, blacklistKey(token)).Result()
	if err != nil {
		return false, err
	}

	return exists == 1, nil
}
