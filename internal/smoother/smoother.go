// Package smoother turns a flickering per-frame symbol stream into stable
// confirmed symbols using decaying vote counters and a debounce gate.
package smoother

import (
	"math"
	"time"

	"github.com/ayusman/mudra/internal/gesture"
)

// Phase is the coarse state of a Smoother.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseAccumulating Phase = "accumulating"
	PhaseConfirmed    Phase = "confirmed"
)

// Group is a named set of letters whose hand shapes are easily confused.
type Group struct {
	Name    string `yaml:"name" json:"name"`
	Letters string `yaml:"letters" json:"letters"`
}

// DefaultGroups returns the built-in confusable groups.
func DefaultGroups() []Group {
	return []Group{
		{Name: "closed_fist", Letters: "ACEMNOST"},
		{Name: "finger_pose", Letters: "DKRUVW"},
		{Name: "thumb_overlap", Letters: "DFO"},
	}
}

// Config controls confirmation and debouncing.
type Config struct {
	// MinFrames is the vote count a symbol needs before it can be confirmed.
	MinFrames int `yaml:"min_frames"`
	// Decay is subtracted from every other symbol's counter on each update.
	Decay float64 `yaml:"decay"`
	// Debounce is the minimum time between two confirmed changes, unless both
	// symbols share a confusable group.
	Debounce time.Duration `yaml:"debounce"`
	// NoneImmediate clears the confirmed symbol as soon as the hand leaves
	// instead of voting on None like any other symbol.
	NoneImmediate bool    `yaml:"none_immediate"`
	Groups        []Group `yaml:"groups"`
}

// DefaultConfig returns the default smoothing parameters.
func DefaultConfig() Config {
	return Config{
		MinFrames: 2,
		Decay:     2.0,
		Debounce:  time.Second,
		Groups:    DefaultGroups(),
	}
}

// State is a read-only view of a Smoother.
type State struct {
	Phase      Phase          `json:"phase"`
	Candidate  gesture.Symbol `json:"candidate"`
	Count      float64        `json:"count"`
	Confirmed  gesture.Symbol `json:"confirmed"`
	LastChange time.Time      `json:"last_change"`
}

// Smoother is the per-session confidence state machine. It is not safe for
// concurrent use; callers serialize updates.
type Smoother struct {
	cfg        Config
	groups     map[gesture.Symbol][]string
	counters   map[gesture.Symbol]float64
	last       gesture.Symbol
	lastChange time.Time
	candidate  gesture.Symbol
}

// New creates a Smoother. MinFrames below 1 is treated as 1.
func New(cfg Config) *Smoother {
	if cfg.MinFrames < 1 {
		cfg.MinFrames = 1
	}
	s := &Smoother{
		cfg:      cfg,
		groups:   make(map[gesture.Symbol][]string),
		counters: make(map[gesture.Symbol]float64),
	}
	for _, g := range cfg.Groups {
		for i := 0; i < len(g.Letters); i++ {
			sym := gesture.Letter(g.Letters[i])
			if sym.IsLetter() {
				s.groups[sym] = append(s.groups[sym], g.Name)
			}
		}
	}
	return s
}

// Update feeds one raw classification observed at t and returns what the
// caller should display: the confirmed symbol, or Pending while a different
// symbol is still gathering votes. Pending as input is ignored.
func (s *Smoother) Update(c gesture.Symbol, t time.Time) gesture.Symbol {
	if c == gesture.Pending {
		return s.last
	}

	if c == gesture.None && s.cfg.NoneImmediate {
		clear(s.counters)
		s.candidate = gesture.None
		s.last = gesture.None
		s.lastChange = t
		return gesture.None
	}

	s.candidate = c

	// Step 1: vote
	s.counters[c]++

	// Step 2: decay everything else
	for sym, v := range s.counters {
		if sym != c && v > 0 {
			s.counters[sym] = math.Max(0, v-s.cfg.Decay)
		}
	}

	// Step 3: a confusable neighbour drops the old symbol outright
	grouped := c != s.last && s.sameGroup(c, s.last)
	if grouped {
		s.counters[s.last] = 0
	}

	// Step 4: confirmation
	if s.counters[c] >= float64(s.cfg.MinFrames) {
		if c == s.last {
			return c
		}
		if grouped || t.Sub(s.lastChange) >= s.cfg.Debounce {
			s.last = c
			s.lastChange = t
			return c
		}
		return s.last
	}

	// Step 5: still accumulating
	if c != s.last {
		return gesture.Pending
	}
	return s.last
}

// Confirmed returns the last confirmed symbol.
func (s *Smoother) Confirmed() gesture.Symbol {
	return s.last
}

// Confidence returns how close sym is to confirmation, from 0 to 100.
func (s *Smoother) Confidence(sym gesture.Symbol) int {
	ratio := s.counters[sym] / float64(s.cfg.MinFrames)
	return int(math.Round(math.Min(1, ratio) * 100))
}

// Count returns the current vote counter of sym.
func (s *Smoother) Count(sym gesture.Symbol) float64 {
	return s.counters[sym]
}

// Snapshot returns the current state.
func (s *Smoother) Snapshot() State {
	st := State{
		Candidate:  s.candidate,
		Count:      s.counters[s.candidate],
		Confirmed:  s.last,
		LastChange: s.lastChange,
	}
	switch {
	case s.candidate != s.last && st.Count > 0:
		st.Phase = PhaseAccumulating
	case s.last != gesture.None:
		st.Phase = PhaseConfirmed
	default:
		st.Phase = PhaseIdle
	}
	return st
}

// Reset returns the smoother to its initial state.
func (s *Smoother) Reset() {
	clear(s.counters)
	s.last = gesture.None
	s.candidate = gesture.None
	s.lastChange = time.Time{}
}

func (s *Smoother) sameGroup(a, b gesture.Symbol) bool {
	for _, ga := range s.groups[a] {
		for _, gb := range s.groups[b] {
			if ga == gb {
				return true
			}
		}
	}
	return false
}
