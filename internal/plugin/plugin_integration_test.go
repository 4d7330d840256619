package plugin

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// bundledPlugins is the repository's plugins directory. The tests below need
// the binaries built in place, e.g.
// go build -o plugins/speech/speech ./plugins/speech
const bundledPlugins = "../../plugins"

// TestBundledPlugins_RejectBadRequests sends requests each plugin refuses
// before it types or speaks anything.
func TestBundledPlugins_RejectBadRequests(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	if runtime.GOOS != "darwin" {
		t.Skip("bundled plugins only work on macOS")
	}

	mgr := NewManager(bundledPlugins)
	if err := mgr.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	exec := NewExecutor(DefaultTimeout)

	tests := []struct {
		plugin string
		req    Request
	}{
		{"speech", Request{Action: ActionSentence}},
		{"speech", Request{Action: "shortcut", Text: "hi"}},
		{"keyboard", Request{Action: ActionWord, Text: "   "}},
		{"keyboard", Request{Action: "shortcut", Text: "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.plugin+"/"+tt.req.Action, func(t *testing.T) {
			p, err := mgr.Get(tt.plugin)
			if err != nil {
				t.Skipf("%s not discovered: %v", tt.plugin, err)
			}
			if _, err := os.Stat(p.Executable); err != nil {
				t.Skipf("%s not built", filepath.Base(p.Executable))
			}

			resp, err := exec.Execute(context.Background(), p, &tt.req)
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			if resp.Success || resp.Error == "" {
				t.Errorf("expected a refusal with a message, got %+v", resp)
			}
		})
	}
}
