package room

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *LiveKitProvider {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := NewLiveKitProvider(Config{
		URL:       srv.URL,
		APIKey:    "test-key",
		APISecret: "test-secret",
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewLiveKitProvider failed: %v", err)
	}

	return p
}

func TestCreateRoom_SendsMetadata(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}

	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	})

	err := p.CreateRoom(context.Background(), "session-1", CreateOptions{
		Metadata:        `{"model_id":"openai/gpt-4o-mini"}`,
		MaxParticipants: 2,
		EmptyTimeout:    5 * time.Minute,
	})
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	if gotPath != "/twirp/livekit.RoomService/CreateRoom" {
		t.Errorf("Unexpected request path: %s", gotPath)
	}
	if gotBody["name"] != "session-1" {
		t.Errorf("Expected room name session-1, got %v", gotBody["name"])
	}
	if !strings.Contains(gotBody["metadata"].(string), "gpt-4o-mini") {
		t.Errorf("Expected metadata to carry the config, got %v", gotBody["metadata"])
	}
	if gotBody["empty_timeout"].(float64) != 300 {
		t.Errorf("Expected empty_timeout 300s, got %v", gotBody["empty_timeout"])
	}
}

func TestCreateRoom_AlreadyExistsMapsToSentinel(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"code":"already_exists","msg":"room already exists"}`))
	})

	err := p.CreateRoom(context.Background(), "session-1", CreateOptions{})
	if !errors.Is(err, ErrRoomExists) {
		t.Errorf("Expected ErrRoomExists, got %v", err)
	}
}

func TestDeleteRoom_NotFoundMapsToSentinel(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":"not_found","msg":"requested room does not exist"}`))
	})

	err := p.DeleteRoom(context.Background(), "session-1")
	if !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("Expected ErrRoomNotFound, got %v", err)
	}
}

func TestGetRoom_ReturnsMetadata(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"rooms":[{"name":"session-1","metadata":"{\"model_id\":\"m\"}","num_participants":1}]}`))
	})

	got, err := p.GetRoom(context.Background(), "session-1")
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if got.Metadata != `{"model_id":"m"}` {
		t.Errorf("Unexpected metadata: %s", got.Metadata)
	}
}

func TestGetRoom_MissingRoom(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"rooms":[]}`))
	})

	_, err := p.GetRoom(context.Background(), "session-1")
	if !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("Expected ErrRoomNotFound, got %v", err)
	}
}

func TestMintJoinToken_GrantsScopedToRoom(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {})

	signed, err := p.MintJoinToken("session-1", "user-1", 30*time.Minute)
	if err != nil {
		t.Fatalf("MintJoinToken failed: %v", err)
	}

	token, err := jwt.Parse(signed, func(token *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	if err != nil {
		t.Fatalf("Failed to parse minted token: %v", err)
	}

	claims := token.Claims.(jwt.MapClaims)
	if claims["sub"] != "user-1" {
		t.Errorf("Expected sub user-1, got %v", claims["sub"])
	}

	video := claims["video"].(map[string]interface{})
	if video["room"] != "session-1" {
		t.Errorf("Expected grant scoped to session-1, got %v", video["room"])
	}
	if video["roomJoin"] != true {
		t.Error("Expected roomJoin grant")
	}
}
