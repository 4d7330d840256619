// Package tray provides a macOS system tray interface for the desktop
// fingerspelling session.
package tray

import (
	"context"
	"strings"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/mudra/internal/session"
)

// maxTitle bounds the sentence shown in the menu.
const maxTitle = 40

// Handlers are invoked from the menu. Nil handlers are skipped.
type Handlers struct {
	Toggle   func(enabled bool)
	Clear    func()
	Speak    func()
	Settings func()
	Quit     func()
}

// display is what the menu shows.
type display struct {
	enabled bool
	letter  string
	text    string
}

type menu struct {
	toggle, letter, text           *systray.MenuItem
	speak, clear, settings, quitMI *systray.MenuItem
}

// Tray is the menu bar front end of one session.
type Tray struct {
	h Handlers

	mu    sync.Mutex
	state display
	menu  *menu // nil until systray is ready
}

// New returns a Tray with detection shown as enabled.
func New(h Handlers) *Tray {
	return &Tray{h: h, state: display{enabled: true}}
}

// Run blocks on the systray event loop until Quit.
func (t *Tray) Run() {
	systray.Run(t.ready, func() {})
}

// Quit stops the loop started by Run.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) ready() {
	systray.SetTitle("Mudra")
	systray.SetTooltip("Mudra Fingerspelling")

	m := &menu{}
	m.toggle = systray.AddMenuItem("", "Toggle letter detection")
	systray.AddSeparator()
	m.letter = systray.AddMenuItem("", "Last confirmed letter")
	m.letter.Disable()
	m.text = systray.AddMenuItem("", "Current text")
	m.text.Disable()
	systray.AddSeparator()
	m.speak = systray.AddMenuItem("Speak", "Speak the current text")
	m.clear = systray.AddMenuItem("Clear", "Clear the current text")
	systray.AddSeparator()
	m.settings = systray.AddMenuItem("Open Settings...", "Open settings in browser")
	systray.AddSeparator()
	m.quitMI = systray.AddMenuItem("Quit", "Quit Mudra")

	t.mu.Lock()
	t.menu = m
	t.render()
	t.mu.Unlock()

	go t.clicks(m)
}

func (t *Tray) clicks(m *menu) {
	for {
		select {
		case <-m.toggle.ClickedCh:
			t.Toggle()
		case <-m.speak.ClickedCh:
			call(t.h.Speak)
		case <-m.clear.ClickedCh:
			call(t.h.Clear)
		case <-m.settings.ClickedCh:
			call(t.h.Settings)
		case <-m.quitMI.ClickedCh:
			call(t.h.Quit)
			systray.Quit()
			return
		}
	}
}

func call(fn func()) {
	if fn != nil {
		fn()
	}
}

// Toggle flips detection and reports the new state to the Toggle handler,
// which runs without the tray lock held.
func (t *Tray) Toggle() bool {
	var enabled bool
	t.set(func(d *display) {
		d.enabled = !d.enabled
		enabled = d.enabled
	})
	if t.h.Toggle != nil {
		t.h.Toggle(enabled)
	}
	return enabled
}

// SetEnabled shows detection as running or paused without calling Toggle.
func (t *Tray) SetEnabled(enabled bool) {
	t.set(func(d *display) { d.enabled = enabled })
}

// SetLastLetter shows the most recently confirmed letter.
func (t *Tray) SetLastLetter(letter string) {
	t.set(func(d *display) { d.letter = letter })
}

// SetText shows the assembled text.
func (t *Tray) SetText(text string) {
	t.set(func(d *display) { d.text = text })
}

func (t *Tray) set(update func(*display)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	update(&t.state)
	t.render()
}

// render copies state into the menu titles. Callers hold mu.
func (t *Tray) render() {
	if t.menu == nil {
		return
	}
	t.menu.toggle.SetTitle(toggleTitle(t.state.enabled))
	t.menu.letter.SetTitle(letterTitle(t.state.letter))
	t.menu.text.SetTitle(sentenceTitle(t.state.text))
}

func (t *Tray) snapshot() display {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// IsEnabled reports whether detection is shown as running.
func (t *Tray) IsEnabled() bool { return t.snapshot().enabled }

// LastLetter returns the letter shown in the menu.
func (t *Tray) LastLetter() string { return t.snapshot().letter }

// Text returns the sentence shown in the menu.
func (t *Tray) Text() string { return t.snapshot().text }

// Watch mirrors the events of session id into the menu until ctx is done
// or events is closed.
func (t *Tray) Watch(ctx context.Context, id string, events <-chan session.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.SessionID != id {
				continue
			}
			switch {
			case ev.Type == session.EventTick && ev.Tick != nil && ev.Tick.Symbol.IsLetter():
				t.SetLastLetter(ev.Tick.Symbol.String())
			case ev.Type == session.EventText && ev.Text != nil:
				t.SetText(strings.TrimSpace(ev.Text.Sentence + " " + ev.Text.CurrentWord))
			}
		}
	}
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Detecting"
	}
	return "○ Paused"
}

func letterTitle(letter string) string {
	if letter == "" {
		return "Last: none"
	}
	return "Last: " + letter
}

// sentenceTitle keeps the tail of long text, where new letters appear.
func sentenceTitle(text string) string {
	if text == "" {
		return "Text: (empty)"
	}
	if r := []rune(text); len(r) > maxTitle {
		text = "…" + string(r[len(r)-maxTitle+1:])
	}
	return "Text: " + text
}
