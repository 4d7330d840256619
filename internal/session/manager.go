package session

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/sentence"
	"github.com/ayusman/mudra/internal/smoother"
)

// ErrNotFound is returned when a session ID is unknown.
var ErrNotFound = errors.New("session not found")

// ErrExists is returned when creating a session with an ID already in use.
var ErrExists = errors.New("session already exists")

// Config holds the per-session pipeline settings.
type Config struct {
	Smoother  smoother.Config  `yaml:"smoother"`
	Assembler sentence.Config `yaml:"assembler"`
}

// DefaultConfig returns the default pipeline settings.
func DefaultConfig() Config {
	return Config{
		Smoother:  smoother.DefaultConfig(),
		Assembler: sentence.DefaultConfig(),
	}
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the time source used for ticks and guards.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *logrus.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log.WithField("component", "session")
		}
	}
}

// Manager owns the live sessions and fans their events out to subscribers.
type Manager struct {
	cfg        Config
	classifier *gesture.Classifier
	corrector  sentence.Corrector
	clock      func() time.Time
	log        *logrus.Entry

	mu       sync.RWMutex
	sessions map[string]*Session

	subMu   sync.RWMutex
	subs    map[int]chan Event
	nextSub int
}

// NewManager creates a Manager. Sessions share classifier and corrector,
// both of which must be safe for concurrent use.
func NewManager(classifier *gesture.Classifier, corrector sentence.Corrector, cfg Config, opts ...Option) *Manager {
	if classifier == nil {
		classifier = gesture.NewClassifier(nil)
	}
	m := &Manager{
		cfg:        cfg,
		classifier: classifier,
		corrector:  corrector,
		clock:      time.Now,
		log:        logrus.StandardLogger().WithField("component", "session"),
		sessions:   make(map[string]*Session),
		subs:       make(map[int]chan Event),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create starts a new session with a random ID.
func (m *Manager) Create() *Session {
	s, _ := m.CreateWithID(uuid.New().String())
	return s
}

// CreateWithID starts a new session under id.
func (m *Manager) CreateWithID(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; ok {
		return nil, ErrExists
	}
	s := newSession(id, m)
	m.sessions[id] = s
	m.log.WithField("session_id", id).Info("session created")
	return s, nil
}

// Get returns the session with id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// List returns all sessions, oldest first.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()

	slices.SortFunc(out, func(a, b *Session) int {
		if c := a.created.Compare(b.created); c != 0 {
			return c
		}
		if a.id < b.id {
			return -1
		}
		if a.id > b.id {
			return 1
		}
		return 0
	})
	return out
}

// Delete removes the session with id.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	m.log.WithField("session_id", id).Info("session deleted")
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Subscribe registers a listener for all session events. Events are dropped
// for a subscriber whose buffer is full. The returned func unsubscribes.
func (m *Manager) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	m.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.subMu.Lock()
			delete(m.subs, id)
			m.subMu.Unlock()
			close(ch)
		})
	}
}

func (m *Manager) publish(ev Event) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for _, ch := range m.subs {
		select {
		case ch <- ev:
		default:
			m.log.WithFields(logrus.Fields{
				"session_id": ev.SessionID,
				"type":       ev.Type,
			}).Debug("subscriber full, event dropped")
		}
	}
}
