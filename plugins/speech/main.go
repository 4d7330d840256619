// Package main is an output plugin for macOS that speaks recognized text
// with the say command.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
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

// Voice selects the system voice and speaking rate.
type Voice struct {
	Voice string `json:"voice"`
	Rate  int    `json:"rate"` // words per minute
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
	args, err := sayArgs(req)
	if err != nil {
		return err
	}
	if out, err := exec.Command("say", args...).CombinedOutput(); err != nil {
		return fmt.Errorf("%s: say: %w: %s", req.Action, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// sayArgs builds the say arguments for req. Params override Config.
func sayArgs(req Request) ([]string, error) {
	if req.Action != "sentence" && req.Action != "word" {
		return nil, fmt.Errorf("unknown action: %s", req.Action)
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, fmt.Errorf("text is required")
	}

	var v Voice
	for _, raw := range []json.RawMessage{req.Config, req.Params} {
		if len(raw) == 0 {
			continue
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("failed to parse voice settings: %w", err)
		}
	}

	var args []string
	if v.Voice != "" {
		args = append(args, "-v", v.Voice)
	}
	if v.Rate > 0 {
		args = append(args, "-r", strconv.Itoa(v.Rate))
	}
	return append(args, "--", text), nil
}
