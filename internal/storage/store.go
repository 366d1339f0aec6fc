package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record is missing from storage.
var ErrNotFound = errors.New("storage: record not found")

// Store represents the root storage interface.
type Store interface {
	Close() error
	Sessions() SessionStore
	Usage() UsageStore
	SessionConfigs() SessionConfigStore
	Tokens() TokenStore
	Chats() ChatStore
}

// SessionStore manages each user's set of active session identifiers.
type SessionStore interface {
	// AddSession adds a session id to the user's active set and re-applies
	// the set-level safety-net TTL. When maxSessions > 0 the add is an
	// atomic insert-if-under-capacity: the id is only added while the set
	// holds fewer than maxSessions members. Returns false if the set was
	// already at capacity. Re-adding an id already in the set is a no-op
	// that reports success.
	AddSession(ctx context.Context, userID, sessionID string, maxSessions int, ttl time.Duration) (bool, error)

	// RemoveSession removes a session id from the user's active set.
	// Returns true if the id was a member.
	RemoveSession(ctx context.Context, userID, sessionID string) (bool, error)

	// CountSessions returns the number of active sessions for the user.
	CountSessions(ctx context.Context, userID string) (int, error)

	// HasSession reports whether a session id is in the user's active set.
	HasSession(ctx context.Context, userID, sessionID string) (bool, error)

	// ListSessions returns the active session ids for the user.
	ListSessions(ctx context.Context, userID string) ([]string, error)
}

// UsageStore manages per-user, per-day usage counters.
type UsageStore interface {
	// IncrementDailyUsage adds minutes to the counter for (userID, date)
	// and refreshes the counter's expiry. date is UTC YYYY-MM-DD.
	IncrementDailyUsage(ctx context.Context, userID, date string, minutes int64, ttl time.Duration) error

	// GetDailyUsage returns the minute count for (userID, date). A missing
	// counter reads as zero, not as ErrNotFound: an absent key is how a
	// new day starts.
	GetDailyUsage(ctx context.Context, userID, date string) (int64, error)
}

// SessionConfigStore is the cache-backed fallback channel of the session
// configuration relay.
type SessionConfigStore interface {
	// Put writes the serialized session config keyed by session id with a
	// bounded expiry.
	Put(ctx context.Context, sessionID string, payload []byte, ttl time.Duration) error

	// Get reads the raw payload for a session id. Returns ErrNotFound when
	// absent or expired.
	Get(ctx context.Context, sessionID string) ([]byte, error)
}

// TokenStore manages the credential revocation blacklist.
type TokenStore interface {
	// Blacklist marks a token as revoked for the given duration (usually
	// the token's own remaining lifetime).
	Blacklist(ctx context.Context, token string, ttl time.Duration) error

	// IsBlacklisted reports whether a token has been revoked.
	IsBlacklisted(ctx context.Context, token string) (bool, error)
}

// ChatStore manages the append-only chat message log.
type ChatStore interface {
	// CreateChat creates a chat record and returns its id.
	CreateChat(ctx context.Context, meta ChatMeta) (string, error)

	// AppendMessage appends a message to a chat's log. Returns false when
	// the message id is already present (dedupe).
	AppendMessage(ctx context.Context, chatID string, msg ChatMessage) (bool, error)

	// GetMessages returns all messages stored for a chat, oldest first.
	GetMessages(ctx context.Context, chatID string) ([]ChatMessage, error)
}
