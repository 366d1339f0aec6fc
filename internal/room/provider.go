// Package room wraps the real-time media room provider behind a small
// capability interface: create/delete rooms, look one up, and mint join
// credentials. Provider error codes are mapped to tagged sentinel errors at
// this boundary so core logic never matches on raw provider strings.
package room

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrRoomExists is returned when creating a room that already exists.
	// Callers treat this as success for retry safety.
	ErrRoomExists = errors.New("room: already exists")

	// ErrRoomNotFound is returned when the named room does not exist.
	ErrRoomNotFound = errors.New("room: not found")
)

// Room describes one provider-side room.
type Room struct {
	Name            string `json:"name"`
	Metadata        string `json:"metadata"`
	NumParticipants int    `json:"num_participants"`
}

// CreateOptions carries the provider-side room parameters.
type CreateOptions struct {
	Metadata        string
	MaxParticipants int
	EmptyTimeout    time.Duration
}

// Provider is the room provider capability consumed by the session
// lifecycle controller and the worker.
type Provider interface {
	// CreateRoom creates a room. Returns ErrRoomExists when the name is
	// already taken.
	CreateRoom(ctx context.Context, name string, opts CreateOptions) error

	// DeleteRoom deletes a room. Returns ErrRoomNotFound when the room is
	// already gone.
	DeleteRoom(ctx context.Context, name string) error

	// GetRoom looks up a room by name, primarily to read its metadata.
	GetRoom(ctx context.Context, name string) (*Room, error)

	// MintJoinToken issues a short-lived credential authorizing the given
	// participant to join the named room.
	MintJoinToken(roomName, identity string, ttl time.Duration) (string, error)

	// JoinEndpoint returns the endpoint participants connect to.
	JoinEndpoint() string
}
