package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/config"
	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/storage"
	"github.com/redis/go-redis/v9"
)

// Store implements the storage.Store interface using Redis
type Store struct {
	client       *redis.Client
	sessionStore *sessionStore
	usageStore   *usageStore
	configStore  *sessionConfigStore
	tokenStore   *tokenStore
	chatStore    *chatStore
}

// Open creates a new Redis-backed storage instance
func Open(cfg config.RedisConfig) (*Store, error) {
	// Parse timeouts
	dialTimeout, err := time.ParseDuration(cfg.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid dial_timeout: %w", err)
	}

	readTimeout, err := time.ParseDuration(cfg.ReadTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid read_timeout: %w", err)
	}

	writeTimeout, err := time.ParseDuration(cfg.WriteTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid write_timeout: %w", err)
	}

	// Determine address
	addr := cfg.Host
	if cfg.Port > 0 {
		addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	}

	// Create Redis client
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  dialTimeout,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	})

	// Ping to verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	// Initialize stores
	store := &Store{
		client:       client,
		sessionStore: &sessionStore{client: client},
		usageStore:   &usageStore{client: client},
		configStore:  &sessionConfigStore{client: client},
		tokenStore:   &tokenStore{client: client},
		chatStore:    &chatStore{client: client},
	}

	return store, nil
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

// Sessions returns the SessionStore implementation
func (s *Store) Sessions() storage.SessionStore {
	return s.sessionStore
}

// Usage returns the UsageStore implementation
func (s *Store) Usage() storage.UsageStore {
	return s.usageStore
}

// SessionConfigs returns the SessionConfigStore implementation
func (s *Store) SessionConfigs() storage.SessionConfigStore {
	return s.configStore
}

// Tokens returns the TokenStore implementation
func (s *Store) Tokens() storage.TokenStore {
	return s.tokenStore
}

// Chats returns the ChatStore implementation
func (s *Store) Chats() storage.ChatStore {
	return s.chatStore
}
