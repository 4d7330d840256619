// Package gesture classifies a single hand pose into a fingerspelled letter.
package gesture

import (
	"fmt"
	"strings"
)

// Kind discriminates the variants of a Symbol.
type Kind uint8

const (
	// KindNone means no hand was present.
	KindNone Kind = iota
	// KindUnknown means a hand was present but matched no letter.
	KindUnknown
	// KindLetter is a recognised letter A-Z.
	KindLetter
	// KindPending is emitted by the smoother while a new symbol accumulates.
	KindPending
)

// Symbol is the closed set of classification outcomes. The zero value is None.
// Symbols are comparable and may be used as map keys.
type Symbol struct {
	kind   Kind
	letter byte
}

var (
	None    = Symbol{kind: KindNone}
	Unknown = Symbol{kind: KindUnknown}
	Pending = Symbol{kind: KindPending}
)

// Letter returns the symbol for c. Lowercase input is folded to uppercase and
// anything outside A-Z yields Unknown.
func Letter(c byte) Symbol {
	if c >= 'a' && c <= 'z' {
		c -= 'a' - 'A'
	}
	if c < 'A' || c > 'Z' {
		return Unknown
	}
	return Symbol{kind: KindLetter, letter: c}
}

// Kind returns the variant of s.
func (s Symbol) Kind() Kind { return s.kind }

// IsLetter reports whether s is a letter.
func (s Symbol) IsLetter() bool { return s.kind == KindLetter }

// Letter returns the uppercase letter, or 0 when s is not a letter.
func (s Symbol) Letter() byte {
	if s.kind != KindLetter {
		return 0
	}
	return s.letter
}

func (s Symbol) String() string {
	switch s.kind {
	case KindLetter:
		return string(s.letter)
	case KindUnknown:
		return "unknown"
	case KindPending:
		return "pending"
	default:
		return "none"
	}
}

// ParseSymbol is the inverse of String. Single letters are case-insensitive.
func ParseSymbol(text string) (Symbol, error) {
	switch strings.ToLower(text) {
	case "none", "":
		return None, nil
	case "unknown":
		return Unknown, nil
	case "pending":
		return Pending, nil
	}
	if len(text) == 1 {
		if s := Letter(text[0]); s.IsLetter() {
			return s, nil
		}
	}
	return None, fmt.Errorf("invalid symbol %q", text)
}

// MarshalText implements encoding.TextMarshaler.
func (s Symbol) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Symbol) UnmarshalText(text []byte) error {
	parsed, err := ParseSymbol(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
