// Package plugin runs external output plugins that receive recognized text,
// for example to type it into the focused window or speak it aloud.
package plugin

import "encoding/json"

// Actions a plugin can declare in its manifest.
const (
	// ActionWord delivers each completed word.
	ActionWord = "word"
	// ActionSentence delivers a whole sentence on request.
	ActionSentence = "sentence"
)

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Actions      []string        `json:"actions"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Handles reports whether the plugin declared action.
func (m Manifest) Handles(action string) bool {
	for _, a := range m.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// Request is written to the plugin's stdin as JSON.
type Request struct {
	Action    string          `json:"action"`
	SessionID string          `json:"session_id,omitempty"`
	Text      string          `json:"text"`
	Corrected bool            `json:"corrected,omitempty"` // autocorrect changed the word
	Config    json.RawMessage `json:"config,omitempty"`
	Params    json.RawMessage `json:"params,omitempty"`
}

// Response is read from the plugin's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
