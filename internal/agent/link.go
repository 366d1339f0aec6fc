package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// ErrNoParticipant is returned when no participant joins the room
// within the wait window.
var ErrNoParticipant = errors.New("agent: no participant joined")

// Event is one signaling message from the room provider.
type Event struct {
	Type     string `json:"type"`
	Identity string `json:"identity,omitempty"`
	Payload  []byte `json:"payload,omitempty"`
}

// Signaling event types.
const (
	EventParticipantJoined = "participant_joined"
	EventParticipantLeft   = "participant_left"
	EventAudio             = "audio"
	EventRoomClosed        = "room_closed"
)

// RoomLink is the worker's websocket connection into a room. Audio and
// participant events arrive as JSON messages; synthesized speech goes
// back the same way.
type RoomLink struct {
	conn   *websocket.Conn
	room   string
	logger zerolog.Logger
}

// Dial connects to the room's signaling endpoint with a join token.
func Dial(ctx context.Context, endpoint, roomName, token string, logger zerolog.Logger) (*RoomLink, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("room", roomName)
	q.Set("access_token", token)
	u.RawQuery = q.Encode()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial room (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial room: %w", err)
	}

	return &RoomLink{
		conn:   conn,
		room:   roomName,
		logger: logger.With().Str("component", "room-link").Str("room", roomName).Logger(),
	}, nil
}

// ReadEvent reads the next signaling event, honoring the context
// deadline.
func (l *RoomLink) ReadEvent(ctx context.Context) (Event, error) {
	if dl, ok := ctx.Deadline(); ok {
		_ = l.conn.SetReadDeadline(dl)
		defer l.conn.SetReadDeadline(time.Time{})
	}

	_, data, err := l.conn.ReadMessage()
	if err != nil {
		return Event{}, fmt.Errorf("read event: %w", err)
	}

	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	return ev, nil
}

// SendAudio sends synthesized speech into the room.
func (l *RoomLink) SendAudio(ctx context.Context, audio []byte) error {
	data, err := json.Marshal(Event{Type: EventAudio, Payload: audio})
	if err != nil {
		return fmt.Errorf("encode audio event: %w", err)
	}

	if dl, ok := ctx.Deadline(); ok {
		_ = l.conn.SetWriteDeadline(dl)
		defer l.conn.SetWriteDeadline(time.Time{})
	}
	if err := l.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("send audio: %w", err)
	}
	return nil
}

// WaitForParticipant blocks until a participant joins or the wait
// window elapses.
func (l *RoomLink) WaitForParticipant(ctx context.Context, wait time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	for {
		ev, err := l.ReadEvent(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return "", ErrNoParticipant
			}
			return "", err
		}
		switch ev.Type {
		case EventParticipantJoined:
			l.logger.Info().Str("identity", ev.Identity).Msg("participant joined")
			return ev.Identity, nil
		case EventRoomClosed:
			return "", errors.New("agent: room closed while waiting")
		}
	}
}

// Close closes the signaling connection.
func (l *RoomLink) Close() error {
	_ = l.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return l.conn.Close()
}
