package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/config"
	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/storage"
)

func setupTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	// Create miniredis instance
	mr := miniredis.RunT(t)

	// miniredis.Addr() returns "host:port", so we use it directly
	cfg := config.RedisConfig{
		Host:         mr.Addr(),
		Port:         0, // Not used when host contains port
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 5,
		DialTimeout:  "5s",
		ReadTimeout:  "3s",
		WriteTimeout: "3s",
	}

	store, err := Open(cfg)
	if err != nil {
		t.Fatalf("Failed to open Redis store: %v", err)
	}

	return store, mr
}

func TestSessionStore_AddAndCount(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	sessions := store.Sessions()

	added, err := sessions.AddSession(ctx, "user-1", "session-a", 2, time.Hour)
	if err != nil {
		t.Fatalf("AddSession failed: %v", err)
	}
	if !added {
		t.Fatal("Expected first session to be admitted")
	}

	count, err := sessions.CountSessions(ctx, "user-1")
	if err != nil {
		t.Fatalf("CountSessions failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 active session, got %d", count)
	}
}

func TestSessionStore_CapacityEnforced(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	sessions := store.Sessions()

	for _, id := range []string{"session-a", "session-b"} {
		added, err := sessions.AddSession(ctx, "user-1", id, 2, time.Hour)
		if err != nil {
			t.Fatalf("AddSession(%s) failed: %v", id, err)
		}
		if !added {
			t.Fatalf("Expected %s to be admitted", id)
		}
	}

	// Third session is over the cap
	added, err := sessions.AddSession(ctx, "user-1", "session-c", 2, time.Hour)
	if err != nil {
		t.Fatalf("AddSession failed: %v", err)
	}
	if added {
		t.Error("Expected session over capacity to be rejected")
	}

	count, _ := sessions.CountSessions(ctx, "user-1")
	if count != 2 {
		t.Errorf("Expected 2 active sessions, got %d", count)
	}
}

func TestSessionStore_AddIsIdempotent(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	sessions := store.Sessions()

	for i := 0; i < 3; i++ {
		added, err := sessions.AddSession(ctx, "user-1", "session-a", 1, time.Hour)
		if err != nil {
			t.Fatalf("AddSession failed: %v", err)
		}
		if !added {
			t.Fatal("Re-adding the same id must report success")
		}
	}

	count, _ := sessions.CountSessions(ctx, "user-1")
	if count != 1 {
		t.Errorf("Expected 1 active session after repeated adds, got %d", count)
	}
}

func TestSessionStore_HasSession(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	sessions := store.Sessions()

	if _, err := sessions.AddSession(ctx, "user-1", "session-a", 2, time.Hour); err != nil {
		t.Fatalf("AddSession failed: %v", err)
	}

	owns, err := sessions.HasSession(ctx, "user-1", "session-a")
	if err != nil {
		t.Fatalf("HasSession failed: %v", err)
	}
	if !owns {
		t.Error("Expected session-a to be a member")
	}

	// Neither a foreign id nor another user's set matches
	owns, err = sessions.HasSession(ctx, "user-1", "session-b")
	if err != nil {
		t.Fatalf("HasSession failed: %v", err)
	}
	if owns {
		t.Error("Expected session-b to not be a member")
	}
	owns, _ = sessions.HasSession(ctx, "user-2", "session-a")
	if owns {
		t.Error("Expected user-2 to not own session-a")
	}
}

func TestSessionStore_RemoveSession(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	sessions := store.Sessions()

	_, _ = sessions.AddSession(ctx, "user-1", "session-a", 0, time.Hour)

	removed, err := sessions.RemoveSession(ctx, "user-1", "session-a")
	if err != nil {
		t.Fatalf("RemoveSession failed: %v", err)
	}
	if !removed {
		t.Error("Expected session-a to be a member")
	}

	// Removing an absent id is not an error
	removed, err = sessions.RemoveSession(ctx, "user-1", "session-a")
	if err != nil {
		t.Fatalf("RemoveSession failed: %v", err)
	}
	if removed {
		t.Error("Expected second removal to report non-membership")
	}
}

func TestSessionStore_SetExpires(t *testing.T) {
	store, mr := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	sessions := store.Sessions()

	_, _ = sessions.AddSession(ctx, "user-1", "session-a", 0, time.Hour)

	// The whole set carries the safety-net expiry
	mr.FastForward(2 * time.Hour)

	count, err := sessions.CountSessions(ctx, "user-1")
	if err != nil {
		t.Fatalf("CountSessions failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected stale set to self-heal, got %d sessions", count)
	}
}

func TestUsageStore_IncrementAndGet(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	usage := store.Usage()

	date := "2024-01-15"

	if err := usage.IncrementDailyUsage(ctx, "user-1", date, 1, 24*time.Hour); err != nil {
		t.Fatalf("IncrementDailyUsage failed: %v", err)
	}
	if err := usage.IncrementDailyUsage(ctx, "user-1", date, 2, 24*time.Hour); err != nil {
		t.Fatalf("IncrementDailyUsage failed: %v", err)
	}

	minutes, err := usage.GetDailyUsage(ctx, "user-1", date)
	if err != nil {
		t.Fatalf("GetDailyUsage failed: %v", err)
	}
	if minutes != 3 {
		t.Errorf("Expected 3 minutes, got %d", minutes)
	}
}

func TestUsageStore_AbsentDayReadsZero(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()

	minutes, err := store.Usage().GetDailyUsage(ctx, "user-1", "2024-01-16")
	if err != nil {
		t.Fatalf("GetDailyUsage failed: %v", err)
	}
	if minutes != 0 {
		t.Errorf("Expected 0 minutes for an absent day, got %d", minutes)
	}
}

func TestUsageStore_CounterExpires(t *testing.T) {
	store, mr := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	usage := store.Usage()

	date := "2024-01-15"
	_ = usage.IncrementDailyUsage(ctx, "user-1", date, 5, 24*time.Hour)

	mr.FastForward(25 * time.Hour)

	minutes, err := usage.GetDailyUsage(ctx, "user-1", date)
	if err != nil {
		t.Fatalf("GetDailyUsage failed: %v", err)
	}
	if minutes != 0 {
		t.Errorf("Expected expired counter to read zero, got %d", minutes)
	}
}

func TestSessionConfigStore_PutAndGet(t *testing.T) {
	store, mr := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	configs := store.SessionConfigs()

	payload := []byte(`{"model_id":"openai/gpt-4o-mini"}`)
	if err := configs.Put(ctx, "session-a", payload, 30*time.Minute); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := configs.Get(ctx, "session-a")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("Expected %s, got %s", payload, got)
	}

	// Entry expires after the bounded TTL
	mr.FastForward(31 * time.Minute)

	if _, err := configs.Get(ctx, "session-a"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after expiry, got %v", err)
	}
}

func TestSessionConfigStore_GetMissing(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	if _, err := store.SessionConfigs().Get(context.Background(), "absent"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestTokenStore_Blacklist(t *testing.T) {
	store, mr := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	tokens := store.Tokens()

	if err := tokens.Blacklist(ctx, "token-1", time.Hour); err != nil {
		t.Fatalf("Blacklist failed: %v", err)
	}

	revoked, err := tokens.IsBlacklisted(ctx, "token-1")
	if err != nil {
		t.Fatalf("IsBlacklisted failed: %v", err)
	}
	if !revoked {
		t.Error("Expected token-1 to be blacklisted")
	}

	revoked, _ = tokens.IsBlacklisted(ctx, "token-2")
	if revoked {
		t.Error("Expected token-2 to not be blacklisted")
	}

	// Blacklist entry lives only as long as the token would have
	mr.FastForward(2 * time.Hour)

	revoked, _ = tokens.IsBlacklisted(ctx, "token-1")
	if revoked {
		t.Error("Expected blacklist entry to expire with the token")
	}
}

func TestChatStore_AppendAndGet(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	chats := store.Chats()

	chatID, err := chats.CreateChat(ctx, storage.ChatMeta{UserID: "user-1", Title: "morning standup"})
	if err != nil {
		t.Fatalf("CreateChat failed: %v", err)
	}

	stored, err := chats.AppendMessage(ctx, chatID, storage.ChatMessage{ID: "m1", Role: "user", Content: "hello"})
	if err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}
	if !stored {
		t.Fatal("Expected first append to store the message")
	}

	// Duplicate message id is skipped
	stored, err = chats.AppendMessage(ctx, chatID, storage.ChatMessage{ID: "m1", Role: "user", Content: "hello"})
	if err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}
	if stored {
		t.Error("Expected duplicate message id to be skipped")
	}

	_, _ = chats.AppendMessage(ctx, chatID, storage.ChatMessage{ID: "m2", Role: "assistant", Content: "hi there"})

	messages, err := chats.GetMessages(ctx, chatID)
	if err != nil {
		t.Fatalf("GetMessages failed: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(messages))
	}
	if messages[0].Content != "hello" || messages[1].Content != "hi there" {
		t.Errorf("Messages out of order: %+v", messages)
	}
}
