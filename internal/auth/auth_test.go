package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/config"
	redisstore "github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/storage/redis"
)

func setupService(t *testing.T, expiration time.Duration) (*Service, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	store, err := redisstore.Open(config.RedisConfig{
		Host:         mr.Addr(),
		DialTimeout:  "5s",
		ReadTimeout:  "3s",
		WriteTimeout: "3s",
	})
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	svc, err := NewService(store.Tokens(), "test-secret", expiration, 16)
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}
	return svc, mr
}

func testUser() User {
	return User{
		ID:    "user-1",
		Email: "jarvis@example.com",
		Name:  "Jarvis User",
		Tier:  "free",
	}
}

func TestIssueAndVerify(t *testing.T) {
	svc, _ := setupService(t, time.Hour)

	token, err := svc.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	claims, err := svc.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.UserID() != "user-1" {
		t.Errorf("UserID = %q", claims.UserID())
	}
	if claims.Tier != "free" {
		t.Errorf("Tier = %q", claims.Tier)
	}
	if claims.Email != "jarvis@example.com" {
		t.Errorf("Email = %q", claims.Email)
	}
}

func TestVerify_RejectsWrongSecret(t *testing.T) {
	svc, mr := setupService(t, time.Hour)

	token, err := svc.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	store, err := redisstore.Open(config.RedisConfig{
		Host:         mr.Addr(),
		DialTimeout:  "5s",
		ReadTimeout:  "3s",
		WriteTimeout: "3s",
	})
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	other, err := NewService(store.Tokens(), "other-secret", time.Hour, 16)
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}
	if _, err := other.Verify(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}
}

func TestVerify_RejectsGarbage(t *testing.T) {
	svc, _ := setupService(t, time.Hour)

	if _, err := svc.Verify(context.Background(), "not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}
}

func TestRevoke_BlocksCachedToken(t *testing.T) {
	svc, _ := setupService(t, time.Hour)
	ctx := context.Background()

	token, err := svc.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	// Populate the claims cache, then revoke. The blacklist check must
	// win over the cache.
	if _, err := svc.Verify(ctx, token); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if err := svc.Revoke(ctx, token); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if _, err := svc.Verify(ctx, token); !errors.Is(err, ErrTokenRevoked) {
		t.Errorf("Expected ErrTokenRevoked, got %v", err)
	}

	// Revoking again is a no-op.
	if err := svc.Revoke(ctx, token); err != nil {
		t.Errorf("Second Revoke failed: %v", err)
	}
}

func TestRevoke_ExpiresWithToken(t *testing.T) {
	svc, mr := setupService(t, time.Hour)
	ctx := context.Background()

	issuedAt := time.Now()
	svc.now = func() time.Time { return issuedAt }

	token, err := svc.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if err := svc.Revoke(ctx, token); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}

	// Once the token itself has expired the blacklist entry is useless
	// and ages out with it. Both clocks move: the service's for the
	// expiry check, miniredis's for the blacklist TTL.
	svc.now = func() time.Time { return issuedAt.Add(2 * time.Hour) }
	mr.FastForward(2 * time.Hour)

	if mr.Exists("blacklist:" + token) {
		t.Error("Expected the blacklist entry to age out with the token")
	}
	if _, err := svc.Verify(ctx, token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken after expiry, got %v", err)
	}
}

func TestVerify_RejectsExpiredCachedToken(t *testing.T) {
	svc, _ := setupService(t, time.Hour)
	ctx := context.Background()

	issuedAt := time.Now()
	svc.now = func() time.Time { return issuedAt }

	token, err := svc.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := svc.Verify(ctx, token); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	// The cached claims must not outlive the token.
	svc.now = func() time.Time { return issuedAt.Add(2 * time.Hour) }
	if _, err := svc.Verify(ctx, token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestGuestIdentity_StablePerCaller(t *testing.T) {
	a := GuestIdentity("203.0.113.7", "Mozilla/5.0")
	b := GuestIdentity("203.0.113.7", "Mozilla/5.0")
	c := GuestIdentity("203.0.113.8", "Mozilla/5.0")

	if a != b {
		t.Errorf("Expected stable identity, got %q and %q", a, b)
	}
	if a == c {
		t.Error("Expected different addresses to yield different identities")
	}
	if len(a) != len("guest_")+8 {
		t.Errorf("Unexpected identity format %q", a)
	}
}
