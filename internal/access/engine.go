// Package access implements the tier-based admission control engine: the
// gate that decides whether a new voice session may start, and the
// bookkeeping that keeps per-user session sets and daily usage counters
// honest.
package access

import (
	"context"
	"fmt"
	"time"

	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/metrics"
	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/storage"
	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/tier"
	"github.com/rs/zerolog"
)

const (
	// SessionSetTTL is the safety-net expiry applied to a user's whole
	// active-session set on every start. A crashed worker that never
	// reports session-end cannot block new sessions past this window.
	SessionSetTTL = time.Hour

	// UsageCounterTTL bounds how long a day's usage counter outlives its
	// last write. Combined with date-scoped keys this makes the daily
	// reset implicit: a new UTC day simply starts from an absent key.
	UsageCounterTTL = 24 * time.Hour
)

// Engine validates (user, tier) pairs against the tier catalog and usage
// store, and performs session start/end bookkeeping.
type Engine struct {
	catalog  *tier.Catalog
	sessions storage.SessionStore
	usage    storage.UsageStore
	logger   zerolog.Logger
}

// NewEngine creates a new admission control engine.
func NewEngine(catalog *tier.Catalog, sessions storage.SessionStore, usage storage.UsageStore, logger zerolog.Logger) *Engine {
	return &Engine{
		catalog:  catalog,
		sessions: sessions,
		usage:    usage,
		logger:   logger.With().Str("component", "access").Logger(),
	}
}

// today returns the current UTC calendar day as YYYY-MM-DD.
func today() string {
	return time.Now().UTC().Format("2006-01-02")
}

// CheckPermission reports whether a user may start a new session on the
// given tier. This is a pure check, not a reservation: it has no side
// effects, and a concurrent caller can also pass before either session is
// recorded. A store failure propagates as a hard error, never as "allowed".
func (e *Engine) CheckPermission(ctx context.Context, userID, tierName string) (AccessResult, error) {
	limits, err := e.catalog.Lookup(tierName)
	if err != nil {
		e.logger.Warn().Str("user_id", userID).Str("tier", tierName).Msg("Tier not found")
		return AccessResult{}, &TierNotFoundError{Tier: tierName}
	}

	// Concurrent session check
	activeCount, err := e.sessions.CountSessions(ctx, userID)
	if err != nil {
		return AccessResult{}, fmt.Errorf("count active sessions: %w", err)
	}
	if activeCount >= limits.ConcurrentSessions {
		metrics.AdmissionRejections.WithLabelValues("concurrent_limit").Inc()
		return AccessResult{Allowed: false, Reason: ReasonConcurrentLimit, Action: ActionWait}, nil
	}

	// Daily usage check
	if limits.DailyLimitMinutes != nil {
		usage, err := e.usage.GetDailyUsage(ctx, userID, today())
		if err != nil {
			return AccessResult{}, fmt.Errorf("read daily usage: %w", err)
		}
		if usage >= int64(*limits.DailyLimitMinutes) {
			metrics.AdmissionRejections.WithLabelValues("daily_limit").Inc()
			return AccessResult{Allowed: false, Reason: ReasonDailyLimit, Action: ActionUpgrade}, nil
		}
	}

	return AccessResult{Allowed: true}, nil
}

// StartSession records a session as active for the user. The add is an
// atomic insert-if-under-capacity against the tier's concurrent cap, which
// closes the check-then-act window left open by CheckPermission. The whole
// set's TTL is re-applied so a stale set self-heals rather than being swept
// per element. Adding an id already in the set is a no-op.
func (e *Engine) StartSession(ctx context.Context, userID, sessionID, tierName string) error {
	limits, err := e.catalog.Lookup(tierName)
	if err != nil {
		return &TierNotFoundError{Tier: tierName}
	}

	admitted, err := e.sessions.AddSession(ctx, userID, sessionID, limits.ConcurrentSessions, SessionSetTTL)
	if err != nil {
		return fmt.Errorf("add session: %w", err)
	}
	if !admitted {
		metrics.AdmissionRejections.WithLabelValues("concurrent_limit").Inc()
		return &LimitExceededError{Reason: ReasonConcurrentLimit, Action: ActionWait}
	}

	e.logger.Info().
		Str("user_id", userID).
		Str("session_id", sessionID).
		Str("tier", tierName).
		Msg("Session started")

	return nil
}

// EndSession removes a session from the user's active set and adds the
// elapsed whole minutes to today's usage counter. Removing an absent id is
// not an error; durations under a minute contribute zero. The caller is
// expected to clamp duration to >= 0, but a negative value is treated as
// zero elapsed here as well so end-session always succeeds once a session
// is known active. Returns whether the id was actually a member.
func (e *Engine) EndSession(ctx context.Context, userID, sessionID string, duration time.Duration) (bool, error) {
	removed, err := e.sessions.RemoveSession(ctx, userID, sessionID)
	if err != nil {
		return false, fmt.Errorf("remove session: %w", err)
	}

	if duration < 0 {
		duration = 0
	}
	minutes := int64(duration.Seconds()) / 60

	day := today()
	if err := e.usage.IncrementDailyUsage(ctx, userID, day, minutes, UsageCounterTTL); err != nil {
		return removed, fmt.Errorf("increment daily usage: %w", err)
	}

	e.logger.Info().
		Str("user_id", userID).
		Str("session_id", sessionID).
		Str("date", day).
		Int64("minutes", minutes).
		Bool("was_member", removed).
		Msg("Session ended")

	return removed, nil
}

// CancelSession undoes StartSession's bookkeeping without recording any
// usage. Used to roll back a session whose room was never created.
func (e *Engine) CancelSession(ctx context.Context, userID, sessionID string) error {
	if _, err := e.sessions.RemoveSession(ctx, userID, sessionID); err != nil {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// OwnsSession reports whether sessionID is among the user's active set.
func (e *Engine) OwnsSession(ctx context.Context, userID, sessionID string) (bool, error) {
	owns, err := e.sessions.HasSession(ctx, userID, sessionID)
	if err != nil {
		return false, fmt.Errorf("check session membership: %w", err)
	}
	return owns, nil
}

// ActiveSessions returns the number of active sessions for a user.
func (e *Engine) ActiveSessions(ctx context.Context, userID string) (int, error) {
	return e.sessions.CountSessions(ctx, userID)
}
