package agent

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"

	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/catalog"
	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/config"
	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/room"
	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/session"
	redisstore "github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/storage/redis"
)

type staticRooms struct {
	metadata map[string]string
}

func (p *staticRooms) CreateRoom(_ context.Context, name string, opts room.CreateOptions) error {
	p.metadata[name] = opts.Metadata
	return nil
}

func (p *staticRooms) DeleteRoom(_ context.Context, name string) error {
	delete(p.metadata, name)
	return nil
}

func (p *staticRooms) GetRoom(_ context.Context, name string) (*room.Room, error) {
	meta, ok := p.metadata[name]
	if !ok {
		return nil, room.ErrRoomNotFound
	}
	return &room.Room{Name: name, Metadata: meta}, nil
}

func (p *staticRooms) MintJoinToken(roomName, _ string, _ time.Duration) (string, error) {
	return "token-" + roomName, nil
}

func (p *staticRooms) JoinEndpoint() string { return "ws://rooms.test" }

func setupResolver(t *testing.T) (*Resolver, *staticRooms, *session.Relay) {
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

	rooms := &staticRooms{metadata: make(map[string]string)}
	relay := session.NewRelay(store.SessionConfigs(), zerolog.Nop())
	resolver := NewResolver(rooms, relay, Defaults(""), 2*time.Second, zerolog.Nop())
	return resolver, rooms, relay
}

func TestResolve_MetadataWins(t *testing.T) {
	resolver, rooms, relay := setupResolver(t)
	ctx := context.Background()

	metaCfg := session.Config{ModelID: "openai/gpt-4.1-mini"}
	payload, err := session.EncodeConfig(metaCfg)
	if err != nil {
		t.Fatalf("EncodeConfig failed: %v", err)
	}
	rooms.metadata["room-1"] = string(payload)

	// A conflicting cache entry must be ignored when metadata decodes.
	if err := relay.Publish(ctx, "room-1", session.Config{ModelID: "google/gemini-2.5-flash"}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	got := resolver.Resolve(ctx, "room-1")
	if got.ModelID != "openai/gpt-4.1-mini" {
		t.Errorf("ModelID = %q, want the metadata value", got.ModelID)
	}
}

func TestResolve_DoubleEncodedMetadata(t *testing.T) {
	resolver, rooms, _ := setupResolver(t)

	payload, err := session.EncodeConfig(session.Config{ModelID: "openai/gpt-4.1-mini"})
	if err != nil {
		t.Fatalf("EncodeConfig failed: %v", err)
	}
	wrapped, err := json.Marshal(string(payload))
	if err != nil {
		t.Fatalf("Failed to wrap payload: %v", err)
	}
	rooms.metadata["room-1"] = string(wrapped)

	got := resolver.Resolve(context.Background(), "room-1")
	if got.ModelID != "openai/gpt-4.1-mini" {
		t.Errorf("ModelID = %q", got.ModelID)
	}
}

func TestResolve_MalformedMetadataFallsToCache(t *testing.T) {
	resolver, rooms, relay := setupResolver(t)
	ctx := context.Background()

	rooms.metadata["room-1"] = "{mangled"
	if err := relay.Publish(ctx, "room-1", session.Config{ModelID: "qwen/qwen3-30b-a3b"}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	got := resolver.Resolve(ctx, "room-1")
	if got.ModelID != "qwen/qwen3-30b-a3b" {
		t.Errorf("ModelID = %q, want the cached value", got.ModelID)
	}
}

func TestResolve_NothingFoundUsesDefaults(t *testing.T) {
	resolver, _, _ := setupResolver(t)

	got := resolver.Resolve(context.Background(), "room-unknown")
	want := Defaults("")
	if got != want {
		t.Errorf("Config = %+v, want defaults %+v", got, want)
	}
}

func TestDefaults_ResolveThroughCatalogs(t *testing.T) {
	got := Defaults("")

	// The fallback config must name entries real sessions can also use,
	// with identical TTS parameters.
	if _, err := catalog.ModelByID(got.ModelID); err != nil {
		t.Errorf("Default model %q not in catalog: %v", got.ModelID, err)
	}
	voice, err := catalog.VoiceByID(got.Voice.VoiceID)
	if err != nil {
		t.Fatalf("Default voice %q not in catalog: %v", got.Voice.VoiceID, err)
	}
	if got.Voice.Language != voice.Language || got.Voice.Gender != voice.Gender {
		t.Errorf("Default voice fields %+v differ from catalog entry %+v", got.Voice, voice)
	}
}

func TestResolve_PartialConfigFilledWithDefaults(t *testing.T) {
	resolver, rooms, _ := setupResolver(t)

	// Metadata names a model but no voice.
	rooms.metadata["room-1"] = `{"model_id":"openai/gpt-4.1-mini"}`

	got := resolver.Resolve(context.Background(), "room-1")
	if got.ModelID != "openai/gpt-4.1-mini" {
		t.Errorf("ModelID = %q", got.ModelID)
	}
	if got.Voice.VoiceID != "en-US-Neural2-G" {
		t.Errorf("VoiceID = %q, want the default voice", got.Voice.VoiceID)
	}
}
