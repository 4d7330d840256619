package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/mudra/internal/autocorrect"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/sentence"
	"github.com/ayusman/mudra/internal/session"
	"github.com/ayusman/mudra/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestApp(t *testing.T, st *store.Store, src SourceFactory) *App {
	t.Helper()
	live := autocorrect.NewLive(autocorrect.NewDefault())
	matcher := gesture.NewTemplateMatcher()
	classifier := gesture.NewClassifier(nil, gesture.WithSecondary(matcher, 0.6))
	return New(Config{
		Sessions:   session.NewManager(classifier, live, session.DefaultConfig(), session.WithLogger(quietLogger())),
		Store:      st,
		Matcher:    matcher,
		Corrector:  live,
		Dictionary: autocorrect.DefaultDictionary(),
		Source:     src,
		Interval:   10 * time.Millisecond,
		Log:        quietLogger(),
	})
}

// eventually polls cond until it holds or two seconds pass.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestApp_DetectionLoop(t *testing.T) {
	src := &StaticSource{}
	src.Set([]detector.HandFrame{detector.LetterFrame('H')}, nil)
	app := newTestApp(t, nil, func(string) (HandSource, error) { return src, nil })
	ctx := context.Background()

	s, err := app.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if err := app.StartDetection(ctx, s.ID()); err != nil {
		t.Fatalf("StartDetection() error = %v", err)
	}
	if err := app.StartDetection(ctx, s.ID()); err != nil {
		t.Fatalf("second StartDetection() error = %v", err)
	}
	if !app.Detecting(s.ID()) {
		t.Error("expected loop to be running")
	}

	eventually(t, func() bool { return s.State().CurrentWord == "h" }, "expected h to be typed by the loop")

	// Holding the sign must not repeat the letter.
	time.Sleep(100 * time.Millisecond)
	if got := s.State().CurrentWord; got != "h" {
		t.Errorf("expected held sign to type once, got %q", got)
	}

	if !app.StopDetection(ctx, s.ID()) {
		t.Error("expected StopDetection to report a running loop")
	}
	if app.StopDetection(ctx, s.ID()) {
		t.Error("expected second StopDetection to report nothing running")
	}
	if app.Detecting(s.ID()) {
		t.Error("expected loop to be stopped")
	}
}

func TestApp_DetectionLoop_SkipsFailedTicks(t *testing.T) {
	src := &StaticSource{}
	src.Set(nil, errors.New("camera unplugged"))
	app := newTestApp(t, nil, func(string) (HandSource, error) { return src, nil })
	ctx := context.Background()

	s, _ := app.CreateSession(ctx)
	if err := app.StartDetection(ctx, s.ID()); err != nil {
		t.Fatalf("StartDetection() error = %v", err)
	}
	defer app.Shutdown()

	time.Sleep(50 * time.Millisecond)
	if got := s.LastTick(); !got.Timestamp.IsZero() {
		t.Errorf("expected no tick while the source fails, got %+v", got)
	}

	src.Set([]detector.HandFrame{detector.LetterFrame('L')}, nil)
	eventually(t, func() bool { return s.State().CurrentWord == "l" }, "expected recovery after the source heals")
}

func TestApp_StartDetection_Errors(t *testing.T) {
	ctx := context.Background()

	app := newTestApp(t, nil, nil)
	if err := app.StartDetection(ctx, "missing"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("expected session.ErrNotFound, got %v", err)
	}

	s, _ := app.CreateSession(ctx)
	if err := app.StartDetection(ctx, s.ID()); !errors.Is(err, ErrNoSource) {
		t.Errorf("expected ErrNoSource, got %v", err)
	}

	busy := newTestApp(t, nil, func(string) (HandSource, error) { return nil, ErrSourceBusy })
	s, _ = busy.CreateSession(ctx)
	if err := busy.StartDetection(ctx, s.ID()); !errors.Is(err, ErrSourceBusy) {
		t.Errorf("expected ErrSourceBusy, got %v", err)
	}
	if busy.Detecting(s.ID()) {
		t.Error("failed start must not leave a loop registered")
	}
}

func TestApp_SessionLifecycle_Persisted(t *testing.T) {
	st := newTestStore(t)
	src := &StaticSource{}
	app := newTestApp(t, st, func(string) (HandSource, error) { return src, nil })
	ctx := context.Background()

	s, err := app.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if _, err := st.Sessions().GetByID(s.ID()); err != nil {
		t.Fatalf("session not persisted: %v", err)
	}

	if err := app.StartDetection(ctx, s.ID()); err != nil {
		t.Fatalf("StartDetection() error = %v", err)
	}
	if err := app.DeleteSession(ctx, s.ID()); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}
	if app.Detecting(s.ID()) {
		t.Error("expected detection stopped with the session")
	}

	rec, err := st.Sessions().GetByID(s.ID())
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if rec.ClosedAt == nil {
		t.Error("expected closed_at to be set")
	}

	if err := app.DeleteSession(ctx, s.ID()); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("expected session.ErrNotFound, got %v", err)
	}
}

func TestApp_Run_PersistsCompletedWords(t *testing.T) {
	st := newTestStore(t)
	app := newTestApp(t, st, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	s, err := app.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	// Run subscribes asynchronously, so keep completing words until one is
	// persisted.
	eventually(t, func() bool {
		s.AddLetter('o')
		s.AddLetter('k')
		s.AddSpace()
		list, err := st.Transcripts().ListBySession(s.ID(), 0)
		return err == nil && len(list) > 0
	}, "expected a completed word to be persisted")

	list, _ := st.Transcripts().ListBySession(s.ID(), 1)
	if w := list[0].Word; w != "Ok" && w != "ok" {
		t.Errorf("unexpected persisted word %q", w)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestApp_HandleEvent_StoresCorrection(t *testing.T) {
	st := newTestStore(t)
	app := newTestApp(t, st, nil)
	s, _ := app.CreateSession(context.Background())

	app.handleEvent(context.Background(), session.Event{
		Type:      session.EventText,
		SessionID: s.ID(),
		Timestamp: time.Now(),
		Text: &sentence.Result{
			Action:    sentence.ActionWordCompleted,
			Sentence:  "Good friend",
			Corrected: "friend",
		},
	})
	// Non-completion events are ignored.
	app.handleEvent(context.Background(), session.Event{
		Type:      session.EventText,
		SessionID: s.ID(),
		Text:      &sentence.Result{Action: sentence.ActionLetterAdded, CurrentWord: "a"},
	})

	list, err := st.Transcripts().ListBySession(s.ID(), 0)
	if err != nil {
		t.Fatalf("ListBySession() error = %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 transcript, got %d", len(list))
	}
	if list[0].Word != "friend" || list[0].Corrected != "friend" || list[0].Sentence != "Good friend" {
		t.Errorf("unexpected transcript %+v", list[0])
	}
}

func TestApp_TrainLetter(t *testing.T) {
	st := newTestStore(t)
	app := newTestApp(t, st, nil)
	letter := gesture.Letter('B')

	if _, err := app.TrainLetter(letter); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound without samples, got %v", err)
	}

	pose, ok := detector.LetterPose('B')
	if !ok {
		t.Fatal("no pose for B")
	}
	var samples []json.RawMessage
	for i := 0; i < 3; i++ {
		data, err := json.Marshal(gesture.NewSample(letter, &pose, time.Now()))
		if err != nil {
			t.Fatal(err)
		}
		samples = append(samples, data)
	}
	if err := st.Samples().Create(letter.String(), samples); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	tmpl, err := app.TrainLetter(letter)
	if err != nil {
		t.Fatalf("TrainLetter() error = %v", err)
	}
	if tmpl.Samples != 3 || len(tmpl.Landmarks) != detector.NumLandmarks {
		t.Errorf("unexpected template %+v", tmpl)
	}
	if app.config.Matcher.Len() != 1 {
		t.Errorf("expected live matcher to hold 1 template, got %d", app.config.Matcher.Len())
	}

	// Retraining replaces rather than duplicates.
	if _, err := app.TrainLetter(letter); err != nil {
		t.Fatalf("retrain error = %v", err)
	}
	if app.config.Matcher.Len() != 1 {
		t.Errorf("expected 1 template after retrain, got %d", app.config.Matcher.Len())
	}

	fresh := newTestApp(t, st, nil)
	if err := fresh.LoadTemplates(); err != nil {
		t.Fatalf("LoadTemplates() error = %v", err)
	}
	if fresh.config.Matcher.Len() != 1 {
		t.Errorf("expected template loaded from store, got %d", fresh.config.Matcher.Len())
	}

	if err := fresh.ForgetLetter(letter); err != nil {
		t.Fatalf("ForgetLetter() error = %v", err)
	}
	if fresh.config.Matcher.Len() != 0 {
		t.Error("expected template removed from matcher")
	}
	if _, err := st.Templates().GetByLetter(letter.String()); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected template deleted, got %v", err)
	}
}

func TestApp_ReloadVocabulary(t *testing.T) {
	st := newTestStore(t)
	app := newTestApp(t, st, nil)

	if err := st.Vocabulary().Add("Mudra"); err != nil {
		t.Fatal(err)
	}
	if err := st.Corrections().Set("sgn", "sign"); err != nil {
		t.Fatal(err)
	}
	if got := app.config.Corrector.Correct("mudraa"); got == "mudra" {
		t.Fatal("custom word known before reload")
	}

	if err := app.ReloadVocabulary(); err != nil {
		t.Fatalf("ReloadVocabulary() error = %v", err)
	}
	if got := app.config.Corrector.Correct("mudraa"); got != "mudra" {
		t.Errorf("expected mudra, got %q", got)
	}
	if got := app.config.Corrector.Correct("sgn"); got != "sign" {
		t.Errorf("expected stored correction, got %q", got)
	}
	if got := app.config.Corrector.Correct("teh"); got != "the" {
		t.Errorf("expected built-in dictionary kept, got %q", got)
	}
}

func TestApp_Speak(t *testing.T) {
	app := newTestApp(t, nil, nil)
	ctx := context.Background()

	if _, err := app.Speak(ctx, "missing"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("expected session.ErrNotFound, got %v", err)
	}

	s, _ := app.CreateSession(ctx)
	s.SetSentence("good night")
	text, err := app.Speak(ctx, s.ID())
	if err != nil {
		t.Fatalf("Speak() error = %v", err)
	}
	if text != "good night" {
		t.Errorf("Speak() = %q", text)
	}
}
