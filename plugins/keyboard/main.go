// Package main is an output plugin for macOS that types recognized text into
// the focused window through System Events.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Request is read from stdin.
type Request struct {
	Action    string          `json:"action"`
	SessionID string          `json:"session_id"`
	Text      string          `json:"text"`
	Corrected bool            `json:"corrected"`
	Config    json.RawMessage `json:"config"`
	Params    json.RawMessage `json:"params"`
}

// Response is written to stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func main() {
	resp := Response{Success: true}
	if err := handle(os.Stdin); err != nil {
		resp = Response{Error: err.Error()}
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}

func handle(r io.Reader) error {
	var req Request
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	script, err := scriptFor(req)
	if err != nil {
		return err
	}
	if out, err := exec.Command("osascript", "-e", script).CombinedOutput(); err != nil {
		return fmt.Errorf("%s: osascript: %w: %s", req.Action, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// scriptFor builds the AppleScript that types req. Words get a trailing
// space so consecutive deliveries read as a sentence.
func scriptFor(req Request) (string, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return "", fmt.Errorf("text is required")
	}

	switch req.Action {
	case "word":
		text += " "
	case "sentence":
	default:
		return "", fmt.Errorf("unknown action: %s", req.Action)
	}
	return `tell application "System Events" to keystroke "` + appleScriptEscaper.Replace(text) + `"`, nil
}

var appleScriptEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)
