package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/autocorrect"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/session"
	"github.com/ayusman/mudra/internal/store"
)

type stack struct {
	app    *app.App
	source *app.StaticSource
	ts     *httptest.Server
	spoken string
}

// newStack wires the service the way the daemon does, with a static hand
// source in place of the camera and a recording sentence plugin.
func newStack(t *testing.T) *stack {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping e2e test on Windows")
	}

	tmpDir := t.TempDir()
	st, err := store.New(filepath.Join(tmpDir, "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })

	spoken := filepath.Join(tmpDir, "spoken.json")
	pluginDir := filepath.Join(tmpDir, "plugins", "recorder")
	if err := os.MkdirAll(pluginDir, 0755); err != nil {
		t.Fatal(err)
	}
	manifest := `{"name":"recorder","version":"1.0.0","executable":"run.sh","actions":["sentence"]}`
	if err := os.WriteFile(filepath.Join(pluginDir, "plugin.json"), []byte(manifest), 0644); err != nil {
		t.Fatal(err)
	}
	script := "#!/bin/sh\ncat > \"" + spoken + "\"\necho '{\"success\":true}'\n"
	if err := os.WriteFile(filepath.Join(pluginDir, "run.sh"), []byte(script), 0755); err != nil {
		t.Fatal(err)
	}

	log := logrus.New()
	log.SetOutput(io.Discard)

	cfg := session.DefaultConfig()
	cfg.Smoother.Debounce = 10 * time.Millisecond

	live := autocorrect.NewLive(autocorrect.NewDefault())
	matcher := gesture.NewTemplateMatcher()
	classifier := gesture.NewClassifier(nil, gesture.WithSecondary(matcher, 0.6))
	plugins := plugin.NewManager(filepath.Join(tmpDir, "plugins"))
	src := &app.StaticSource{}

	a := app.New(app.Config{
		Sessions:   session.NewManager(classifier, live, cfg, session.WithLogger(log)),
		Store:      st,
		Matcher:    matcher,
		Corrector:  live,
		Dictionary: autocorrect.DefaultDictionary(),
		Plugins:    plugins,
		Dispatcher: plugin.NewDispatcher(plugins, plugin.NewExecutor(5*time.Second), log),
		Source:     func(string) (app.HandSource, error) { return src, nil },
		Interval:   10 * time.Millisecond,
		Log:        log,
	})
	if err := a.DiscoverPlugins(); err != nil {
		t.Fatalf("DiscoverPlugins() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		a.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	ts := httptest.NewServer(server.New(server.Config{App: a, Log: log}))
	t.Cleanup(ts.Close)

	return &stack{app: a, source: src, ts: ts, spoken: spoken}
}

func (s *stack) do(t *testing.T, method, path, body string, out interface{}) int {
	t.Helper()
	req, err := http.NewRequest(method, s.ts.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := s.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s error = %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode
}

func (s *stack) waitWord(t *testing.T, id, want string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		var state struct {
			CurrentWord string `json:"current_word"`
		}
		s.do(t, http.MethodGet, "/api/sessions/"+id+"/state", "", &state)
		if state.CurrentWord == want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("current word = %q, want %q", state.CurrentWord, want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestE2E_SpellWordFromCamera(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}
	s := newStack(t)

	var created struct {
		ID string `json:"id"`
	}
	if code := s.do(t, http.MethodPost, "/api/sessions", "", &created); code != http.StatusCreated {
		t.Fatalf("create session status = %d", code)
	}
	id := created.ID

	if code := s.do(t, http.MethodPost, "/api/sessions/"+id+"/detection", "", nil); code != http.StatusOK {
		t.Fatalf("start detection status = %d", code)
	}

	t.Run("SignLetters", func(t *testing.T) {
		s.source.Set([]detector.HandFrame{detector.LetterFrame('H')}, nil)
		s.waitWord(t, id, "h")
		s.source.Set([]detector.HandFrame{detector.LetterFrame('I')}, nil)
		s.waitWord(t, id, "hi")
		s.source.Set(nil, nil)
	})

	t.Run("StopDetection", func(t *testing.T) {
		var out struct {
			Detecting bool `json:"detecting"`
		}
		s.do(t, http.MethodDelete, "/api/sessions/"+id+"/detection", "", &out)
		if out.Detecting || s.app.Detecting(id) {
			t.Error("expected detection stopped")
		}
	})

	t.Run("CompleteAndSpeak", func(t *testing.T) {
		var r struct {
			Sentence string `json:"sentence"`
		}
		s.do(t, http.MethodPost, "/api/sessions/"+id+"/space", "", &r)
		if r.Sentence != "Hi" {
			t.Errorf("sentence = %q, want Hi", r.Sentence)
		}

		if code := s.do(t, http.MethodPost, "/api/sessions/"+id+"/speak", "", nil); code != http.StatusOK {
			t.Fatalf("speak status = %d", code)
		}
		data, err := os.ReadFile(s.spoken)
		if err != nil {
			t.Fatalf("sentence plugin not invoked: %v", err)
		}
		if !strings.Contains(string(data), `"text":"Hi"`) {
			t.Errorf("unexpected plugin request %s", data)
		}
	})

	t.Run("TranscriptPersisted", func(t *testing.T) {
		deadline := time.Now().Add(2 * time.Second)
		for {
			var out struct {
				Transcript []struct {
					Word string `json:"word"`
				} `json:"transcript"`
			}
			s.do(t, http.MethodGet, "/api/sessions/"+id+"/transcript", "", &out)
			if len(out.Transcript) == 1 {
				if out.Transcript[0].Word != "Hi" {
					t.Errorf("word = %q, want Hi", out.Transcript[0].Word)
				}
				return
			}
			if time.Now().After(deadline) {
				t.Fatalf("expected 1 transcript entry, got %d", len(out.Transcript))
			}
			time.Sleep(10 * time.Millisecond)
		}
	})

	t.Run("APIStillWorks", func(t *testing.T) {
		if code := s.do(t, http.MethodGet, "/api/health", "", nil); code != http.StatusOK {
			t.Errorf("health check failed after app operations")
		}
	})
}

func TestE2E_TrainedTemplateRecognizes(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}
	s := newStack(t)

	pose, ok := detector.LetterPose('W')
	if !ok {
		t.Fatal("no pose for W")
	}
	samples := make([]json.RawMessage, 3)
	for i := range samples {
		data, _ := json.Marshal(gesture.NewSample(gesture.Letter('W'), &pose, time.Now()))
		samples[i] = data
	}
	body, _ := json.Marshal(map[string]interface{}{"samples": samples})

	if code := s.do(t, http.MethodPost, "/api/letters/W/samples", string(body), nil); code != http.StatusCreated {
		t.Fatalf("record samples status = %d", code)
	}
	if code := s.do(t, http.MethodPost, "/api/letters/W/train", "", nil); code != http.StatusOK {
		t.Fatalf("train status = %d", code)
	}

	sess := s.app.Sessions().Create()
	var tick struct {
		Tick session.Tick `json:"tick"`
	}
	frame, _ := json.Marshal(map[string]interface{}{"hands": []detector.HandFrame{detector.LetterFrame('W')}})
	s.do(t, http.MethodPost, "/api/sessions/"+sess.ID()+"/frames", string(frame), &tick)

	if tick.Tick.Raw != gesture.Letter('W') {
		t.Errorf("raw = %v, want W", tick.Tick.Raw)
	}
}
