package catalog

import "errors"

// DefaultModelID is the model used when a session does not pick one.
// It must resolve through ModelByID.
const DefaultModelID = "google/gemini-2.5-flash-lite"

// ErrModelNotFound is returned for a model id not in the catalog.
var ErrModelNotFound = errors.New("catalog: model not found")

// Model describes one language model offered to sessions.
type Model struct {
	ModelID          string `json:"model_id"`
	DisplayName      string `json:"display_name"`
	AvailableOnGuest bool   `json:"available_on_guest"`
}

var models = map[string]Model{
	"openai/gpt-4.1-mini": {
		ModelID:          "openai/gpt-4.1-mini",
		DisplayName:      "GPT-4.1 Mini (OpenAI)",
		AvailableOnGuest: false,
	},
	"openai/gpt-4o-mini": {
		ModelID:          "openai/gpt-4o-mini",
		DisplayName:      "GPT-4o Mini (OpenAI)",
		AvailableOnGuest: false,
	},
	"openai/gpt-4.1-nano": {
		ModelID:          "openai/gpt-4.1-nano",
		DisplayName:      "GPT-4.1 Nano (OpenAI)",
		AvailableOnGuest: true,
	},
	"google/gemini-2.5-flash": {
		ModelID:          "google/gemini-2.5-flash",
		DisplayName:      "Gemini 2.5 Flash (Google)",
		AvailableOnGuest: true,
	},
	"google/gemini-2.5-flash-lite": {
		ModelID:          "google/gemini-2.5-flash-lite",
		DisplayName:      "Gemini 2.5 Flash Lite (Google)",
		AvailableOnGuest: true,
	},
	"meta-llama/llama-4-maverick": {
		ModelID:          "meta-llama/llama-4-maverick",
		DisplayName:      "LLaMA 4 Maverick (Meta)",
		AvailableOnGuest: false,
	},
	"meta-llama/llama-4-scout": {
		ModelID:          "meta-llama/llama-4-scout",
		DisplayName:      "LLaMA 4 Scout (Meta)",
		AvailableOnGuest: true,
	},
}

// ModelByID looks up a model by its id.
func ModelByID(modelID string) (Model, error) {
	m, ok := models[modelID]
	if !ok {
		return Model{}, ErrModelNotFound
	}
	return m, nil
}

// AllModels returns every model in the catalog.
func AllModels() []Model {
	out := make([]Model, 0, len(models))
	for _, m := range models {
		out = append(out, m)
	}
	return out
}
