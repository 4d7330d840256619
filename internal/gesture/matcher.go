package gesture

import (
	"math"
	"sort"
	"sync"

	"github.com/ayusman/mudra/internal/detector"
)

// DefaultTolerance is the largest summed landmark distance still counted as a match.
const DefaultTolerance = 2.0

// Template is a trained reference pose for one letter.
type Template struct {
	ID        string
	Symbol    Symbol
	Landmarks []detector.Point3D // wrist-relative, unit hand scale
	Tolerance float64            // non-positive means DefaultTolerance
}

func (t *Template) tolerance() float64 {
	if t.Tolerance <= 0 {
		return DefaultTolerance
	}
	return t.Tolerance
}

// Match is a template within tolerance of the input pose.
type Match struct {
	Template *Template
	Score    float64 // 1/(1+Distance), higher is better
	Distance float64
}

// TemplateMatcher matches hand poses against trained letter templates.
// It implements Predictor and is safe for concurrent use.
type TemplateMatcher struct {
	mu        sync.RWMutex
	templates []*Template
}

// NewTemplateMatcher returns an empty matcher.
func NewTemplateMatcher() *TemplateMatcher {
	return &TemplateMatcher{}
}

// AddTemplate adds t, replacing any template with the same ID.
func (m *TemplateMatcher) AddTemplate(t *Template) {
	if t == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.index(t.ID); i >= 0 {
		m.templates[i] = t
		return
	}
	m.templates = append(m.templates, t)
}

// RemoveTemplate drops the template with the given ID, if present.
func (m *TemplateMatcher) RemoveTemplate(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.index(id); i >= 0 {
		m.templates = append(m.templates[:i], m.templates[i+1:]...)
	}
}

func (m *TemplateMatcher) index(id string) int {
	for i, t := range m.templates {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// SetTemplates replaces every template at once.
func (m *TemplateMatcher) SetTemplates(templates []*Template) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates = append([]*Template(nil), templates...)
}

// Len returns the number of loaded templates.
func (m *TemplateMatcher) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.templates)
}

// Match compares the normalized hand against every template and returns
// those within tolerance, best first. Equal scores keep insertion order.
func (m *TemplateMatcher) Match(hand *detector.HandLandmarks) []Match {
	if hand == nil {
		return nil
	}
	pose := hand.Normalize().Points

	m.mu.RLock()
	defer m.mu.RUnlock()

	var matches []Match
	for _, t := range m.templates {
		d := poseDistance(pose[:], t.Landmarks)
		if d > t.tolerance() {
			continue
		}
		matches = append(matches, Match{Template: t, Score: 1 / (1 + d), Distance: d})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}

// Predict returns the letter of the best matching template and its score,
// or Unknown with zero confidence when nothing matches.
func (m *TemplateMatcher) Predict(hand *detector.HandLandmarks) (Symbol, float64) {
	best := m.Match(hand)
	if len(best) == 0 {
		return Unknown, 0
	}
	return best[0].Template.Symbol, best[0].Score
}

// poseDistance sums the point-to-point distances over the shorter of the
// two poses. An empty pose is infinitely far from everything.
func poseDistance(a, b []detector.Point3D) float64 {
	if len(a) == 0 || len(b) == 0 {
		return math.Inf(1)
	}
	n := min(len(a), len(b))
	var sum float64
	for i := range n {
		sum += a[i].Sub(b[i]).Norm()
	}
	return sum
}
