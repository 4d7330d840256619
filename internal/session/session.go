// Package session ties the classifier, smoother and assembler together for
// one signer. A Session serializes every tick and text edit behind a single
// mutex, so a tick is never observed half applied.
package session

import (
	"sync"
	"time"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/sentence"
	"github.com/ayusman/mudra/internal/smoother"
)

// EventType identifies the kind of Event.
type EventType string

const (
	// EventTick is emitted for every classified tick.
	EventTick EventType = "tick"
	// EventText is emitted when the word or sentence buffer changes.
	EventText EventType = "text"
)

// Tick is the per-frame outcome reported to clients.
type Tick struct {
	Symbol     gesture.Symbol `json:"symbol"`
	Raw        gesture.Symbol `json:"raw"`
	Confidence int            `json:"confidence"`
	Source     gesture.Source `json:"source,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Event is published to Manager subscribers.
type Event struct {
	Type      EventType        `json:"type"`
	SessionID string           `json:"session_id"`
	Timestamp time.Time        `json:"timestamp"`
	Tick      *Tick            `json:"tick,omitempty"`
	Text      *sentence.Result `json:"text,omitempty"`
}

// Info summarizes a session for listings.
type Info struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	Confirmed gesture.Symbol `json:"confirmed"`
	State     sentence.State `json:"state"`
}

// Session is one signer's recognition state.
type Session struct {
	id      string
	created time.Time
	clock   func() time.Time
	emit    func(Event)

	classifier *gesture.Classifier

	mu        sync.Mutex
	smoother  *smoother.Smoother
	assembler *sentence.Assembler
	lastTick  Tick
}

func newSession(id string, m *Manager) *Session {
	return &Session{
		id:         id,
		created:    m.clock(),
		clock:      m.clock,
		emit:       m.publish,
		classifier: m.classifier,
		smoother:   smoother.New(m.cfg.Smoother),
		assembler:  sentence.New(m.cfg.Assembler, m.corrector),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// CreatedAt returns when the session was created.
func (s *Session) CreatedAt() time.Time { return s.created }

// Tick classifies one frame's hands, smooths the result and feeds a
// confirmed letter to the assembler. The returned Result is non-nil only
// when a letter was offered to the assembler.
func (s *Session) Tick(hands []detector.HandFrame) (Tick, *sentence.Result) {
	raw := s.classifier.Classify(hands)

	s.mu.Lock()
	now := s.clock()
	out := s.smoother.Update(raw.Symbol, now)
	tick := Tick{
		Symbol:     out,
		Raw:        raw.Symbol,
		Confidence: s.smoother.Confidence(raw.Symbol),
		Source:     raw.Source,
		Timestamp:  now,
	}
	s.lastTick = tick

	var text *sentence.Result
	if out.IsLetter() {
		r := s.assembler.AddLetter(rune(out.Letter()), now)
		text = &r
	}
	s.mu.Unlock()

	s.emit(Event{Type: EventTick, SessionID: s.id, Timestamp: now, Tick: &tick})
	if text != nil && text.Action.Mutated() {
		s.emit(Event{Type: EventText, SessionID: s.id, Timestamp: now, Text: text})
	}
	return tick, text
}

// LastTick returns the most recent tick outcome.
func (s *Session) LastTick() Tick {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTick
}

// Smoother returns a snapshot of the smoothing state.
func (s *Session) Smoother() smoother.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.smoother.Snapshot()
}

// edit runs fn against the assembler under the session lock and publishes
// the result when it changed the buffers.
func (s *Session) edit(fn func(a *sentence.Assembler, now time.Time) sentence.Result) sentence.Result {
	s.mu.Lock()
	now := s.clock()
	r := fn(s.assembler, now)
	s.mu.Unlock()

	if r.Action.Mutated() {
		s.emit(Event{Type: EventText, SessionID: s.id, Timestamp: now, Text: &r})
	}
	return r
}

// AddLetter adds a letter typed outside the camera path.
func (s *Session) AddLetter(letter rune) sentence.Result {
	return s.edit(func(a *sentence.Assembler, now time.Time) sentence.Result {
		return a.AddLetter(letter, now)
	})
}

// AddSpace completes the current word.
func (s *Session) AddSpace() sentence.Result {
	return s.edit(func(a *sentence.Assembler, _ time.Time) sentence.Result {
		return a.AddSpace()
	})
}

// Backspace deletes the last letter, or reopens the last word.
func (s *Session) Backspace() sentence.Result {
	return s.edit(func(a *sentence.Assembler, _ time.Time) sentence.Result {
		return a.Backspace()
	})
}

// Clear empties the buffers and the smoother.
func (s *Session) Clear() sentence.Result {
	return s.edit(func(a *sentence.Assembler, _ time.Time) sentence.Result {
		s.smoother.Reset()
		return a.Clear()
	})
}

// ClearWord empties the current word.
func (s *Session) ClearWord() sentence.Result {
	return s.edit(func(a *sentence.Assembler, _ time.Time) sentence.Result {
		return a.ClearWord()
	})
}

// SetSentence replaces the sentence.
func (s *Session) SetSentence(text string) sentence.Result {
	return s.edit(func(a *sentence.Assembler, _ time.Time) sentence.Result {
		return a.SetSentence(text)
	})
}

// State returns the assembler state.
func (s *Session) State() sentence.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assembler.State()
}

// CompleteText returns the sentence plus the word in progress.
func (s *Session) CompleteText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assembler.CompleteText()
}

// Info returns a summary of the session.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		ID:        s.id,
		CreatedAt: s.created,
		Confirmed: s.smoother.Confirmed(),
		State:     s.assembler.State(),
	}
}
