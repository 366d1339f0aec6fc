package room

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/metrics"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// Twirp error codes the provider reports for idempotent-safe conditions.
const (
	twirpCodeAlreadyExists = "already_exists"
	twirpCodeNotFound      = "not_found"
)

// LiveKitProvider talks to a LiveKit-compatible room service over its
// Twirp JSON API and signs access tokens locally.
type LiveKitProvider struct {
	url       string
	apiKey    string
	apiSecret string
	client    *http.Client
	logger    zerolog.Logger
}

// Config holds LiveKit provider settings.
type Config struct {
	URL            string
	APIKey         string
	APISecret      string
	RequestTimeout time.Duration
}

// NewLiveKitProvider creates a provider client.
func NewLiveKitProvider(cfg Config, logger zerolog.Logger) (*LiveKitProvider, error) {
	if cfg.URL == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("room provider configuration is incomplete")
	}

	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &LiveKitProvider{
		url:       strings.TrimRight(cfg.URL, "/"),
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		client:    &http.Client{Timeout: timeout},
		logger:    logger.With().Str("component", "room-provider").Logger(),
	}, nil
}

// twirpError is the provider's JSON error envelope.
type twirpError struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

// videoGrant is the room-scoped permission block embedded in access tokens.
type videoGrant struct {
	Room         string `json:"room,omitempty"`
	RoomJoin     bool   `json:"roomJoin,omitempty"`
	RoomCreate   bool   `json:"roomCreate,omitempty"`
	RoomList     bool   `json:"roomList,omitempty"`
	CanPublish   bool   `json:"canPublish,omitempty"`
	CanSubscribe bool   `json:"canSubscribe,omitempty"`
}

// signToken builds a signed access token carrying the given grant.
func (p *LiveKitProvider) signToken(identity string, grant videoGrant, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   p.apiKey,
		"sub":   identity,
		"name":  identity,
		"nbf":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
		"video": grant,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(p.apiSecret))
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// call performs one Twirp JSON request against the room service.
func (p *LiveKitProvider) call(ctx context.Context, method string, req, resp interface{}) error {
	start := time.Now()
	defer func() {
		metrics.RoomRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	}()

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	adminToken, err := p.signToken("jarvis-backend", videoGrant{RoomCreate: true, RoomList: true}, time.Minute)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/twirp/livekit.RoomService/%s", p.url, method)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+adminToken)

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		metrics.RoomRequestErrors.WithLabelValues(method).Inc()
		return fmt.Errorf("room service %s: %w", method, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 400 {
		data, _ := io.ReadAll(httpResp.Body)

		var terr twirpError
		if err := json.Unmarshal(data, &terr); err == nil {
			switch terr.Code {
			case twirpCodeAlreadyExists:
				return ErrRoomExists
			case twirpCodeNotFound:
				return ErrRoomNotFound
			}
		}

		metrics.RoomRequestErrors.WithLabelValues(method).Inc()
		return fmt.Errorf("room service %s: status %d: %s", method, httpResp.StatusCode, strings.TrimSpace(string(data)))
	}

	if resp != nil {
		if err := json.NewDecoder(httpResp.Body).Decode(resp); err != nil {
			return fmt.Errorf("decode %s response: %w", method, err)
		}
	}

	return nil
}

// CreateRoom creates a room with the session config attached as metadata
func (p *LiveKitProvider) CreateRoom(ctx context.Context, name string, opts CreateOptions) error {
	if name == "" {
		return fmt.Errorf("room name is required")
	}

	req := map[string]interface{}{
		"name":             name,
		"metadata":         opts.Metadata,
		"max_participants": opts.MaxParticipants,
		"empty_timeout":    int(opts.EmptyTimeout.Seconds()),
	}

	if err := p.call(ctx, "CreateRoom", req, nil); err != nil {
		return err
	}

	p.logger.Info().Str("room", name).Msg("Room created")
	return nil
}

// DeleteRoom deletes a room by name
func (p *LiveKitProvider) DeleteRoom(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("room name is required")
	}

	if err := p.call(ctx, "DeleteRoom", map[string]string{"room": name}, nil); err != nil {
		return err
	}

	p.logger.Info().Str("room", name).Msg("Room deleted")
	return nil
}

// GetRoom looks up a single room by name
func (p *LiveKitProvider) GetRoom(ctx context.Context, name string) (*Room, error) {
	var resp struct {
		Rooms []Room `json:"rooms"`
	}

	req := map[string]interface{}{"names": []string{name}}
	if err := p.call(ctx, "ListRooms", req, &resp); err != nil {
		return nil, err
	}

	for i := range resp.Rooms {
		if resp.Rooms[i].Name == name {
			return &resp.Rooms[i], nil
		}
	}

	return nil, ErrRoomNotFound
}

// MintJoinToken issues a short-lived join credential for a participant
func (p *LiveKitProvider) MintJoinToken(roomName, identity string, ttl time.Duration) (string, error) {
	if roomName == "" || identity == "" {
		return "", fmt.Errorf("room name and participant identity are required")
	}

	return p.signToken(identity, videoGrant{
		Room:         roomName,
		RoomJoin:     true,
		CanPublish:   true,
		CanSubscribe: true,
	}, ttl)
}

// JoinEndpoint returns the endpoint participants connect to
func (p *LiveKitProvider) JoinEndpoint() string {
	return p.url
}
