// Package catalog holds the static voice and language-model catalogs. Both
// are fixed at build time; lookups by unknown id fail rather than falling
// back to a default.
package catalog

import "errors"

// DefaultVoiceID is used when a session request names no voice.
const DefaultVoiceID = "en-US-Neural2-G"

// ErrVoiceNotFound is returned for a voice id not in the catalog.
var ErrVoiceNotFound = errors.New("catalog: voice not found")

// Voice describes one text-to-speech voice.
type Voice struct {
	VoiceID          string `json:"voice_id"`
	DisplayName      string `json:"display_name"`
	Language         string `json:"language"`
	Type             string `json:"type"`
	Gender           string `json:"gender"`
	AvailableOnGuest bool   `json:"available_on_guest"`
}

var voices = map[string]Voice{
	// Female voices
	"en-US-Wavenet-C": {
		VoiceID:          "en-US-Wavenet-C",
		DisplayName:      "US Female - Wavenet C",
		Language:         "English (US)",
		Type:             "wavenet",
		Gender:           "female",
		AvailableOnGuest: true,
	},
	"en-US-Neural2-G": {
		VoiceID:          "en-US-Neural2-G",
		DisplayName:      "US Female - Neural2 G",
		Language:         "English (US)",
		Type:             "neural2",
		Gender:           "female",
		AvailableOnGuest: false,
	},
	"en-GB-Wavenet-F": {
		VoiceID:          "en-GB-Wavenet-F",
		DisplayName:      "UK Female - Wavenet F",
		Language:         "English (UK)",
		Type:             "wavenet",
		Gender:           "female",
		AvailableOnGuest: true,
	},
	"en-IN-Chirp3-HD-Erinome": {
		VoiceID:          "en-IN-Chirp3-HD-Erinome",
		DisplayName:      "Indian Female - Chirp3 Erinome",
		Language:         "English (India)",
		Type:             "chirp3-hd",
		Gender:           "female",
		AvailableOnGuest: false,
	},

	// Male voices
	"en-US-Wavenet-D": {
		VoiceID:          "en-US-Wavenet-D",
		DisplayName:      "US Male - Wavenet D",
		Language:         "English (US)",
		Type:             "wavenet",
		Gender:           "male",
		AvailableOnGuest: true,
	},
	"en-GB-Neural2-B": {
		VoiceID:          "en-GB-Neural2-B",
		DisplayName:      "UK Male - Neural2 B",
		Language:         "English (UK)",
		Type:             "neural2",
		Gender:           "male",
		AvailableOnGuest: false,
	},
	"en-IN-Chirp3-HD-Tarun": {
		VoiceID:          "en-IN-Chirp3-HD-Tarun",
		DisplayName:      "Indian Male - Chirp3 Tarun",
		Language:         "English (India)",
		Type:             "chirp3-hd",
		Gender:           "male",
		AvailableOnGuest: false,
	},
}

// VoiceByID looks up a voice by its id.
func VoiceByID(voiceID string) (Voice, error) {
	v, ok := voices[voiceID]
	if !ok {
		return Voice{}, ErrVoiceNotFound
	}
	return v, nil
}

// AllVoices returns every voice in the catalog.
func AllVoices() []Voice {
	out := make([]Voice, 0, len(voices))
	for _, v := range voices {
		out = append(out, v)
	}
	return out
}
