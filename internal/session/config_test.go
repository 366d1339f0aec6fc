package session

import (
	"encoding/json"
	"testing"
)

func TestDecodeConfig_RoundTrip(t *testing.T) {
	want := Config{
		ModelID: "openai/gpt-4.1-mini",
		Voice: VoiceSettings{
			VoiceID:  "en-US-Neural2-G",
			Language: "English (US)",
			Gender:   "Female",
		},
	}

	payload, err := EncodeConfig(want)
	if err != nil {
		t.Fatalf("EncodeConfig failed: %v", err)
	}

	got, ok := DecodeConfig(payload)
	if !ok {
		t.Fatal("Expected decode to succeed")
	}
	if got != want {
		t.Errorf("Round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestDecodeConfig_DoubleEncoded(t *testing.T) {
	want := Config{ModelID: "google/gemini-2.5-flash-lite"}

	payload, err := EncodeConfig(want)
	if err != nil {
		t.Fatalf("EncodeConfig failed: %v", err)
	}
	wrapped, err := json.Marshal(string(payload))
	if err != nil {
		t.Fatalf("Failed to wrap payload: %v", err)
	}

	got, ok := DecodeConfig(wrapped)
	if !ok {
		t.Fatal("Expected decode of double-encoded payload to succeed")
	}
	if got != want {
		t.Errorf("Double-encoded decode mismatch: got %+v, want %+v", got, want)
	}
}

func TestDecodeConfig_RejectsBadPayloads(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"malformed", "{not json"},
		{"json null", "null"},
		{"json array", "[1, 2]"},
		{"json number", "42"},
		{"bare string", `"hello"`},
		{"triple encoded", `"\"{\\\"model_id\\\":\\\"x\\\"}\""`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if cfg, ok := DecodeConfig([]byte(tc.raw)); ok {
				t.Errorf("Expected decode to fail, got %+v", cfg)
			}
		})
	}
}

func TestDecodeConfig_EmptyObjectIsValid(t *testing.T) {
	cfg, ok := DecodeConfig([]byte("{}"))
	if !ok {
		t.Fatal("Expected empty object to decode")
	}
	if cfg != (Config{}) {
		t.Errorf("Expected zero config, got %+v", cfg)
	}
}
