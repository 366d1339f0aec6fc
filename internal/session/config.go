// Package session manages the lifecycle of voice sessions: admission,
// room provisioning, configuration hand-off to the agent worker, and
// teardown with usage accounting.
package session

import (
	"bytes"
	"encoding/json"
)

// VoiceSettings describes the synthesis voice a session should use.
type VoiceSettings struct {
	VoiceID  string `json:"voice_id"`
	Language string `json:"language"`
	Gender   string `json:"gender"`
}

// Config is the per-session configuration handed from the API to the
// agent worker. It rides on the room metadata, with a cache entry as
// fallback.
type Config struct {
	ModelID string        `json:"model_id"`
	Voice   VoiceSettings `json:"voice"`
}

// EncodeConfig serializes a session config for transport.
func EncodeConfig(cfg Config) ([]byte, error) {
	return json.Marshal(cfg)
}

// DecodeConfig parses a session config from an untrusted carrier.
//
// Producers have been observed to double-encode the payload, leaving a
// JSON string whose contents are the real document. DecodeConfig
// unwraps at most one such layer and then requires a JSON object.
// Empty input, malformed JSON, or a non-object payload all resolve to
// (zero config, false); the caller falls through to its next source.
func DecodeConfig(raw []byte) (Config, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Config{}, false
	}
	var inner string
	if err := json.Unmarshal(trimmed, &inner); err == nil {
		trimmed = []byte(inner)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil || obj == nil {
		return Config{}, false
	}
	var cfg Config
	if err := json.Unmarshal(trimmed, &cfg); err != nil {
		return Config{}, false
	}
	return cfg, true
}
