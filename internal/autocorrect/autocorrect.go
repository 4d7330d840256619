// Package autocorrect fixes fingerspelled words using a correction
// dictionary, known letter-swap patterns and Levenshtein distance.
//
// Correction proceeds in order, stopping at the first stage that applies:
//
//  1. Exact dictionary hit: return the mapped correction.
//  2. Known vocabulary word: return it unchanged.
//  3. Pattern pass: collapse runs of three or more identical letters to two,
//     then try known transpositions such as "ie"/"ei". A candidate is only
//     accepted when it is a vocabulary word.
//  4. Fuzzy pass (words of three letters or more): the closest dictionary key
//     or vocabulary word within ceil(0.4 * len) edits. Keys are compared in
//     sorted order, then vocabulary in its configured order; ties keep the
//     first candidate.
//  5. Otherwise the word is returned lowercased.
package autocorrect

import (
	_ "embed"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/antzucaro/matchr"
	"gopkg.in/yaml.v3"
)

//go:embed dictionary.yaml
var defaultDictionary []byte

// minFuzzyLength is the shortest word the fuzzy pass considers.
const minFuzzyLength = 3

// transpositions are the letter swaps tried by the pattern pass.
var transpositions = [][2]string{
	{"ie", "ei"},
	{"ei", "ie"},
	{"ht", "th"},
	{"hw", "wh"},
	{"ua", "au"},
	{"au", "ua"},
	{"oa", "ao"},
	{"ao", "oa"},
}

// Dictionary is the data an Engine corrects against.
type Dictionary struct {
	Corrections map[string]string `yaml:"corrections"`
	Vocabulary  []string          `yaml:"vocabulary"`
}

// LoadDictionary decodes a YAML dictionary.
func LoadDictionary(r io.Reader) (*Dictionary, error) {
	var d Dictionary
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("autocorrect: decode dictionary: %w", err)
	}
	return &d, nil
}

// DefaultDictionary returns the built-in dictionary.
func DefaultDictionary() *Dictionary {
	d, err := LoadDictionary(strings.NewReader(string(defaultDictionary)))
	if err != nil {
		panic(err)
	}
	return d
}

// Option is a functional option for configuring an [Engine].
type Option func(*Engine)

// WithWords adds words to the vocabulary after the dictionary's own words.
func WithWords(words ...string) Option {
	return func(e *Engine) {
		for _, w := range words {
			e.addWord(w)
		}
	}
}

// WithCorrections adds or overrides dictionary corrections.
func WithCorrections(corrections map[string]string) Option {
	return func(e *Engine) {
		for k, v := range corrections {
			e.addCorrection(k, v)
		}
	}
}

// Engine corrects completed words. All methods are safe for concurrent use;
// the Engine is read-only after construction.
type Engine struct {
	corrections map[string]string
	keys        []string
	vocabulary  []string
	known       map[string]struct{}
}

// New builds an Engine from d and opts. A nil d yields an empty dictionary.
func New(d *Dictionary, opts ...Option) *Engine {
	e := &Engine{
		corrections: make(map[string]string),
		known:       make(map[string]struct{}),
	}
	if d != nil {
		for k, v := range d.Corrections {
			e.addCorrection(k, v)
		}
		for _, w := range d.Vocabulary {
			e.addWord(w)
		}
	}
	for _, o := range opts {
		o(e)
	}

	e.keys = make([]string, 0, len(e.corrections))
	for k := range e.corrections {
		e.keys = append(e.keys, k)
	}
	slices.Sort(e.keys)
	return e
}

// NewDefault builds an Engine from the built-in dictionary.
func NewDefault(opts ...Option) *Engine {
	return New(DefaultDictionary(), opts...)
}

func (e *Engine) addWord(w string) {
	w = strings.ToLower(strings.TrimSpace(w))
	if w == "" {
		return
	}
	if _, ok := e.known[w]; ok {
		return
	}
	e.known[w] = struct{}{}
	e.vocabulary = append(e.vocabulary, w)
}

func (e *Engine) addCorrection(from, to string) {
	from = strings.ToLower(strings.TrimSpace(from))
	to = strings.TrimSpace(to)
	if from == "" || to == "" {
		return
	}
	e.corrections[from] = to
}

// Known reports whether w is a vocabulary word.
func (e *Engine) Known(w string) bool {
	_, ok := e.known[strings.ToLower(w)]
	return ok
}

// Vocabulary returns a copy of the vocabulary in match order.
func (e *Engine) Vocabulary() []string {
	return slices.Clone(e.vocabulary)
}

// Correct returns the corrected form of word.
func (e *Engine) Correct(word string) string {
	w := strings.ToLower(strings.TrimSpace(word))
	if w == "" {
		return w
	}

	if c, ok := e.corrections[w]; ok {
		return c
	}
	if e.Known(w) {
		return w
	}

	collapsed := collapseRuns(w)
	if e.Known(collapsed) {
		return collapsed
	}
	if c, ok := e.swap(collapsed); ok {
		return c
	}

	if c, _, ok := e.FindClosest(collapsed); ok {
		return c
	}
	return w
}

// swap tries each known transposition at every position.
func (e *Engine) swap(w string) (string, bool) {
	for _, t := range transpositions {
		from, to := t[0], t[1]
		for i := 0; i+len(from) <= len(w); i++ {
			if w[i:i+len(from)] != from {
				continue
			}
			candidate := w[:i] + to + w[i+len(from):]
			if e.Known(candidate) {
				return candidate, true
			}
		}
	}
	return "", false
}

// FindClosest returns the correction closest to word by edit distance and
// that distance. It reports false when word is too short or nothing lies
// within the edit budget.
func (e *Engine) FindClosest(word string) (string, int, bool) {
	w := strings.ToLower(word)
	if len(w) < minFuzzyLength {
		return "", 0, false
	}
	budget := (2*len(w) + 4) / 5 // ceil(0.4 * len)

	best, bestDist := "", budget+1
	for _, k := range e.keys {
		if d := matchr.Levenshtein(w, k); d < bestDist {
			best, bestDist = e.corrections[k], d
		}
	}
	for _, v := range e.vocabulary {
		if d := matchr.Levenshtein(w, v); d < bestDist {
			best, bestDist = v, d
		}
	}

	if best == "" {
		return "", 0, false
	}
	return best, bestDist, true
}

// collapseRuns shortens every run of three or more identical letters to two.
func collapseRuns(w string) string {
	var b strings.Builder
	b.Grow(len(w))
	run := 0
	for i := 0; i < len(w); i++ {
		if i > 0 && w[i] == w[i-1] {
			run++
		} else {
			run = 1
		}
		if run <= 2 {
			b.WriteByte(w[i])
		}
	}
	return b.String()
}

// Live holds the current Engine and lets it be replaced while sessions keep
// correcting words, for example after the user vocabulary changes.
type Live struct {
	engine atomic.Pointer[Engine]
}

// NewLive returns a Live holding e.
func NewLive(e *Engine) *Live {
	l := &Live{}
	l.engine.Store(e)
	return l
}

// Store swaps in a new Engine.
func (l *Live) Store(e *Engine) {
	l.engine.Store(e)
}

// Engine returns the current Engine.
func (l *Live) Engine() *Engine {
	return l.engine.Load()
}

// Correct corrects word with the current Engine.
func (l *Live) Correct(word string) string {
	return l.engine.Load().Correct(word)
}
