package bus

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/sentence"
	"github.com/ayusman/mudra/internal/session"
)

type published struct {
	subject string
	data    []byte
}

type fakeConn struct {
	mu     sync.Mutex
	msgs   []published
	err    error
	closed bool
}

func (c *fakeConn) Publish(subject string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.msgs = append(c.msgs, published{subject, data})
	return nil
}

func (c *fakeConn) Drain() error { return nil }

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeConn) Status() nats.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nats.CLOSED
	}
	return nats.CONNECTED
}

func (c *fakeConn) messages() []published {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]published(nil), c.msgs...)
}

func TestPublisher_Publish(t *testing.T) {
	conn := &fakeConn{}
	p := NewPublisher(conn, "", nil)

	ev := session.Event{
		Type:      session.EventText,
		SessionID: "abc",
		Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Text:      &sentence.Result{CurrentWord: "h", Action: sentence.ActionLetterAdded},
	}
	if err := p.Publish(ev); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	msgs := conn.messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].subject != "mudra.session.abc.text" {
		t.Errorf("unexpected subject %q", msgs[0].subject)
	}

	var got session.Event
	if err := json.Unmarshal(msgs[0].data, &got); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if got.Text == nil || got.Text.CurrentWord != "h" {
		t.Errorf("unexpected payload %+v", got)
	}
}

func TestPublisher_PublishError(t *testing.T) {
	conn := &fakeConn{err: errors.New("nats: connection closed")}
	p := NewPublisher(conn, "x", nil)

	err := p.Publish(session.Event{Type: session.EventTick, SessionID: "s"})
	if err == nil || !errors.Is(err, conn.err) {
		t.Errorf("expected wrapped publish error, got %v", err)
	}
}

func TestPublisher_Run(t *testing.T) {
	conn := &fakeConn{}
	p := NewPublisher(conn, "signs", nil)

	events := make(chan session.Event, 4)
	tick := &session.Tick{Symbol: gesture.Letter('Y'), Confidence: 100}
	events <- session.Event{Type: session.EventTick, SessionID: "s1", Tick: tick}
	events <- session.Event{Type: session.EventTick, SessionID: "s2", Tick: tick}
	close(events)

	if err := p.Run(context.Background(), events); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	msgs := conn.messages()
	if len(msgs) != 2 || msgs[1].subject != "signs.session.s2.tick" {
		t.Errorf("unexpected messages %+v", msgs)
	}
}

func TestPublisher_RunStopsOnCancel(t *testing.T) {
	p := NewPublisher(&fakeConn{}, "", nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, make(chan session.Event)) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected nil error, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestPublisher_HealthyAndClose(t *testing.T) {
	conn := &fakeConn{}
	p := NewPublisher(conn, "", nil)
	if !p.Healthy() {
		t.Error("expected healthy publisher")
	}
	p.Close()
	if p.Healthy() {
		t.Error("expected unhealthy after close")
	}

	var nilPub *Publisher
	if nilPub.Healthy() {
		t.Error("nil publisher should not be healthy")
	}
	nilPub.Close()
}
