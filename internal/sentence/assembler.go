// Package sentence accumulates confirmed letters into words and sentences.
package sentence

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Action tags the branch an Assembler operation took.
type Action string

const (
	ActionLetterAdded      Action = "letter_added"
	ActionDebounced        Action = "debounced"
	ActionDuplicateBlocked Action = "duplicate_blocked"
	ActionTriplePrevented  Action = "triple_prevented"
	ActionInvalidLetter    Action = "invalid_letter"
	ActionSpaceIgnored     Action = "space_ignored"
	ActionWordCompleted    Action = "word_completed"
	ActionLetterDeleted    Action = "letter_deleted"
	ActionWordDeleted      Action = "word_deleted"
	ActionBackspaceIgnored Action = "backspace_ignored"
	ActionCleared          Action = "cleared"
	ActionWordCleared      Action = "word_cleared"
	ActionSentenceSet      Action = "sentence_set"
)

// Mutated reports whether the action changed the buffers.
func (a Action) Mutated() bool {
	switch a {
	case ActionDebounced, ActionDuplicateBlocked, ActionTriplePrevented,
		ActionInvalidLetter, ActionSpaceIgnored, ActionBackspaceIgnored:
		return false
	}
	return true
}

// Corrector fixes a completed word before it joins the sentence.
type Corrector interface {
	Correct(word string) string
}

// Config holds the letter acceptance windows.
type Config struct {
	// DupWindow blocks repeating the word's last letter within this window.
	DupWindow time.Duration `yaml:"dup_window"`
	// HoldTime debounces the same letter being accepted twice while held.
	HoldTime time.Duration `yaml:"hold_time"`
}

// DefaultConfig returns the default acceptance windows.
func DefaultConfig() Config {
	return Config{
		DupWindow: 2 * time.Second,
		HoldTime:  1500 * time.Millisecond,
	}
}

// Result is returned by every Assembler operation.
type Result struct {
	CurrentWord string `json:"current_word"`
	Sentence    string `json:"sentence"`
	Action      Action `json:"action"`
	// Corrected is set when a completed word was changed by autocorrect.
	Corrected string `json:"corrected_word,omitempty"`
}

// State is a summary of the buffers.
type State struct {
	CurrentWord string `json:"current_word"`
	Sentence    string `json:"sentence"`
	WordCount   int    `json:"word_count"`
	LetterCount int    `json:"letter_count"`
}

// Assembler owns one session's word and sentence buffers. It is not safe
// for concurrent use.
type Assembler struct {
	cfg       Config
	corrector Corrector

	word       []byte   // lowercase a-z only
	words      []string // completed tokens
	lastLetter byte
	lastTime   time.Time
}

// New creates an Assembler. A nil corrector keeps words as typed.
func New(cfg Config, corrector Corrector) *Assembler {
	return &Assembler{cfg: cfg, corrector: corrector}
}

func (a *Assembler) result(action Action) Result {
	return Result{
		CurrentWord: string(a.word),
		Sentence:    a.sentence(),
		Action:      action,
	}
}

func (a *Assembler) sentence() string {
	return strings.Join(a.words, " ")
}

// AddLetter appends letter to the current word unless a guard rejects it.
func (a *Assembler) AddLetter(letter rune, now time.Time) Result {
	letter = unicode.ToLower(letter)
	if letter < 'a' || letter > 'z' {
		return a.result(ActionInvalidLetter)
	}
	c := byte(letter)
	n := len(a.word)
	since := now.Sub(a.lastTime)

	if a.lastLetter == c && since < a.cfg.HoldTime {
		return a.result(ActionDebounced)
	}
	if n > 0 && a.word[n-1] == c && since < a.cfg.DupWindow {
		return a.result(ActionDuplicateBlocked)
	}
	if n >= 2 && a.word[n-1] == c && a.word[n-2] == c {
		return a.result(ActionTriplePrevented)
	}

	a.word = append(a.word, c)
	a.lastLetter = c
	a.lastTime = now
	return a.result(ActionLetterAdded)
}

// AddSpace completes the current word, running it through the corrector.
func (a *Assembler) AddSpace() Result {
	if len(a.word) == 0 {
		return a.result(ActionSpaceIgnored)
	}

	original := string(a.word)
	corrected := original
	if a.corrector != nil {
		corrected = a.corrector.Correct(original)
	}
	tokens := strings.Fields(corrected)
	if len(tokens) == 0 {
		corrected, tokens = original, []string{original}
	}

	if len(a.words) == 0 {
		tokens[0] = capitalize(tokens[0])
	}
	a.words = append(a.words, tokens...)
	a.word = a.word[:0]

	r := a.result(ActionWordCompleted)
	if corrected != original {
		r.Corrected = corrected
	}
	return r
}

// Backspace deletes the last letter of the current word. With an empty word
// it takes the last sentence token back into the word buffer for editing.
func (a *Assembler) Backspace() Result {
	if n := len(a.word); n > 0 {
		a.word = a.word[:n-1]
		return a.result(ActionLetterDeleted)
	}
	if n := len(a.words); n > 0 {
		last := a.words[n-1]
		a.words = a.words[:n-1]
		a.word = letters(last)
		return a.result(ActionWordDeleted)
	}
	return a.result(ActionBackspaceIgnored)
}

// Clear resets both buffers.
func (a *Assembler) Clear() Result {
	a.word = a.word[:0]
	a.words = nil
	a.lastLetter = 0
	a.lastTime = time.Time{}
	return a.result(ActionCleared)
}

// ClearWord resets only the current word.
func (a *Assembler) ClearWord() Result {
	a.word = a.word[:0]
	return a.result(ActionWordCleared)
}

// SetSentence replaces the sentence with text, normalizing whitespace.
func (a *Assembler) SetSentence(text string) Result {
	a.words = strings.Fields(text)
	return a.result(ActionSentenceSet)
}

// State returns the buffers and their counts.
func (a *Assembler) State() State {
	st := State{
		CurrentWord: string(a.word),
		Sentence:    a.sentence(),
		WordCount:   len(a.words),
		LetterCount: len(a.word),
	}
	if len(a.word) > 0 {
		st.WordCount++
	}
	for _, w := range a.words {
		for _, r := range w {
			if unicode.IsLetter(r) {
				st.LetterCount++
			}
		}
	}
	return st
}

// CompleteText returns the sentence followed by the word in progress.
func (a *Assembler) CompleteText() string {
	s := a.sentence()
	switch {
	case len(a.word) == 0:
		return s
	case s == "":
		return string(a.word)
	}
	return s + " " + string(a.word)
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// letters returns the lowercase a-z letters of s.
func letters(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range strings.ToLower(s) {
		if r >= 'a' && r <= 'z' {
			out = append(out, byte(r))
		}
	}
	return out
}
