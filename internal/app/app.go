// Package app runs the recognition service: per-session detection loops,
// trained templates, the user vocabulary and transcript persistence.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/mudra/internal/autocorrect"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/observe"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/sentence"
	"github.com/ayusman/mudra/internal/session"
	"github.com/ayusman/mudra/internal/store"
)

const (
	// DefaultInterval is the detection loop period.
	DefaultInterval = 500 * time.Millisecond
	// eventBuffer is the subscription buffer for background consumers.
	eventBuffer = 256
)

// ErrNoSource is returned by StartDetection when no hand source is configured.
var ErrNoSource = errors.New("no hand source configured")

// Config wires the application. Only Sessions is required.
type Config struct {
	Sessions *session.Manager
	Store    *store.Store

	// Matcher receives trained templates. It should be the classifier's
	// secondary predictor.
	Matcher *gesture.TemplateMatcher

	// Corrector is rebuilt from Dictionary plus the stored vocabulary.
	Corrector  *autocorrect.Live
	Dictionary *autocorrect.Dictionary

	Plugins    *plugin.Manager
	Dispatcher *plugin.Dispatcher

	Source   SourceFactory
	Interval time.Duration
	Metrics  *observe.Metrics
	Log      *logrus.Logger
}

// App is the main application that drives detection and persists its output.
type App struct {
	config  Config
	trainer *gesture.Trainer
	log     *logrus.Entry

	mu    sync.Mutex
	loops map[string]*loop
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	if config.Log == nil {
		config.Log = logrus.StandardLogger()
	}
	return &App{
		config:  config,
		trainer: gesture.NewTrainer(),
		log:     config.Log.WithField("component", "app"),
		loops:   make(map[string]*loop),
	}
}

// Sessions returns the session manager.
func (a *App) Sessions() *session.Manager {
	return a.config.Sessions
}

// Store returns the store, which may be nil.
func (a *App) Store() *store.Store {
	return a.config.Store
}

// Corrector returns the live autocorrect engine, which may be nil.
func (a *App) Corrector() *autocorrect.Live {
	return a.config.Corrector
}

// PluginManager returns the plugin manager, which may be nil.
func (a *App) PluginManager() *plugin.Manager {
	return a.config.Plugins
}

// CreateSession starts a session and records it in the store.
func (a *App) CreateSession(ctx context.Context) (*session.Session, error) {
	s := a.config.Sessions.Create()
	if a.config.Store != nil {
		if err := a.config.Store.Sessions().Create(&store.Session{ID: s.ID(), CreatedAt: s.CreatedAt()}); err != nil {
			_ = a.config.Sessions.Delete(s.ID())
			return nil, fmt.Errorf("persist session: %w", err)
		}
	}
	if a.config.Metrics != nil {
		a.config.Metrics.ActiveSessions.Add(ctx, 1)
	}
	return s, nil
}

// DeleteSession stops detection for id, removes the session and marks it
// closed in the store.
func (a *App) DeleteSession(ctx context.Context, id string) error {
	a.StopDetection(ctx, id)
	if err := a.config.Sessions.Delete(id); err != nil {
		return err
	}
	if a.config.Metrics != nil {
		a.config.Metrics.ActiveSessions.Add(ctx, -1)
	}
	if a.config.Store != nil {
		err := a.config.Store.Sessions().Close(id, time.Now())
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("close session: %w", err)
		}
	}
	return nil
}

// LoadTemplates loads every trained letter template from the store into
// the matcher.
func (a *App) LoadTemplates() error {
	if a.config.Store == nil || a.config.Matcher == nil {
		return nil
	}

	stored, err := a.config.Store.Templates().List()
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}

	templates := make([]*gesture.Template, 0, len(stored))
	for _, t := range stored {
		sym, err := gesture.ParseSymbol(t.Letter)
		if err != nil || !sym.IsLetter() {
			a.log.WithField("letter", t.Letter).Warn("skipping template with invalid letter")
			continue
		}
		templates = append(templates, templateFromStore(sym, t))
	}
	a.config.Matcher.SetTemplates(templates)

	a.log.WithField("count", len(templates)).Info("loaded letter templates")
	return nil
}

func templateFromStore(sym gesture.Symbol, t *store.Template) *gesture.Template {
	return &gesture.Template{
		ID:        gesture.TemplateID(sym),
		Symbol:    sym,
		Landmarks: t.Landmarks,
		Tolerance: t.Tolerance,
	}
}

// TrainLetter averages the recorded samples of letter into a template,
// saves it and makes it live.
func (a *App) TrainLetter(letter gesture.Symbol) (*store.Template, error) {
	if a.config.Store == nil {
		return nil, errors.New("training requires a store")
	}

	samples, err := a.config.Store.Samples().GetByLetter(letter.String())
	if err != nil {
		return nil, fmt.Errorf("load samples: %w", err)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("no samples recorded for %s: %w", letter, store.ErrNotFound)
	}

	raw := make([]json.RawMessage, len(samples))
	for i, s := range samples {
		raw[i] = s.Data
	}
	trained, err := a.trainer.TrainTemplate(letter, raw)
	if err != nil {
		return nil, err
	}

	t := &store.Template{
		Letter:    letter.String(),
		Landmarks: trained.Landmarks,
		Tolerance: trained.Tolerance,
		Samples:   len(samples),
	}
	if err := a.config.Store.Templates().Save(t); err != nil {
		return nil, fmt.Errorf("save template: %w", err)
	}

	if a.config.Matcher != nil {
		a.config.Matcher.AddTemplate(trained)
	}
	a.log.WithFields(logrus.Fields{"letter": t.Letter, "samples": t.Samples}).Info("trained letter template")
	return t, nil
}

// ForgetLetter deletes the samples and template of letter.
func (a *App) ForgetLetter(letter gesture.Symbol) error {
	if a.config.Store == nil {
		return nil
	}
	if err := a.config.Store.Samples().DeleteByLetter(letter.String()); err != nil {
		return fmt.Errorf("delete samples: %w", err)
	}
	err := a.config.Store.Templates().Delete(letter.String())
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("delete template: %w", err)
	}
	if a.config.Matcher != nil {
		a.config.Matcher.RemoveTemplate(gesture.TemplateID(letter))
	}
	return nil
}

// ReloadVocabulary rebuilds the autocorrect engine from the base dictionary
// and the stored vocabulary and corrections.
func (a *App) ReloadVocabulary() error {
	if a.config.Corrector == nil {
		return nil
	}

	var opts []autocorrect.Option
	if a.config.Store != nil {
		words, err := a.config.Store.Vocabulary().List()
		if err != nil {
			return fmt.Errorf("load vocabulary: %w", err)
		}
		corrections, err := a.config.Store.Corrections().All()
		if err != nil {
			return fmt.Errorf("load corrections: %w", err)
		}
		opts = append(opts, autocorrect.WithWords(words...), autocorrect.WithCorrections(corrections))
	}

	a.config.Corrector.Store(autocorrect.New(a.config.Dictionary, opts...))
	return nil
}

// DiscoverPlugins scans the plugin directory and loads available plugins.
func (a *App) DiscoverPlugins() error {
	if a.config.Plugins == nil {
		return nil
	}
	if err := a.config.Plugins.Discover(); err != nil {
		return err
	}
	for dir, err := range a.config.Plugins.Skipped() {
		a.log.WithError(err).WithField("plugin_dir", dir).Warn("skipping plugin")
	}
	a.log.WithField("count", len(a.config.Plugins.List())).Info("discovered plugins")
	return nil
}

// Speak sends the session's complete text to the sentence plugins.
func (a *App) Speak(ctx context.Context, id string) (string, error) {
	s, err := a.config.Sessions.Get(id)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(s.CompleteText())
	if text == "" || a.config.Dispatcher == nil {
		return text, nil
	}
	return text, a.config.Dispatcher.Dispatch(ctx, &plugin.Request{
		Action:    plugin.ActionSentence,
		SessionID: id,
		Text:      text,
	})
}

// Run consumes session events until ctx is done: it records metrics,
// persists completed words and feeds the plugin dispatcher. Detection loops
// still running when Run returns are stopped.
func (a *App) Run(ctx context.Context) error {
	events, unsubscribe := a.config.Sessions.Subscribe(eventBuffer)
	defer unsubscribe()

	g, ctx := errgroup.WithContext(ctx)
	if a.config.Dispatcher != nil {
		words, unsubscribeWords := a.config.Sessions.Subscribe(eventBuffer)
		defer unsubscribeWords()
		g.Go(func() error {
			return a.config.Dispatcher.Run(ctx, words)
		})
	}
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev, ok := <-events:
				if !ok {
					return nil
				}
				a.handleEvent(ctx, ev)
			}
		}
	})

	err := g.Wait()
	a.Shutdown()
	return err
}

func (a *App) handleEvent(ctx context.Context, ev session.Event) {
	if a.config.Metrics != nil {
		a.config.Metrics.RecordEvent(ctx, ev)
	}
	if a.config.Store == nil || ev.Type != session.EventText || ev.Text == nil {
		return
	}
	if ev.Text.Action != sentence.ActionWordCompleted {
		return
	}

	tokens := strings.Fields(ev.Text.Sentence)
	if len(tokens) == 0 {
		return
	}
	t := &store.Transcript{
		SessionID: ev.SessionID,
		Word:      tokens[len(tokens)-1],
		Corrected: ev.Text.Corrected,
		Sentence:  ev.Text.Sentence,
		CreatedAt: ev.Timestamp,
	}
	if err := a.config.Store.Transcripts().Append(t); err != nil {
		a.log.WithError(err).WithField("session_id", ev.SessionID).Warn("failed to persist word")
	}
}
