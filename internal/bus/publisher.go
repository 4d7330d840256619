// Package bus mirrors session events onto NATS subjects so other services
// can follow a signer's transcript.
//
// Subjects have the form <prefix>.session.<id>.<type>, for example
// mudra.session.3f1c.text.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/session"
)

// Conn is the part of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subject string, data []byte) error
	Drain() error
	Close()
	Status() nats.Status
}

// Publisher publishes session events.
type Publisher struct {
	conn   Conn
	prefix string
	log    *logrus.Entry
}

// Connect dials the configured NATS server.
func Connect(cfg config.BusConfig, log *logrus.Logger) (*Publisher, error) {
	if cfg.URL == "" {
		return nil, errors.New("no NATS url configured")
	}
	entry := log.WithField("component", "bus")

	nc, err := nats.Connect(cfg.URL,
		nats.Name("mudra"),
		nats.Timeout(cfg.ConnectTimeout),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				entry.WithError(err).Warn("disconnected from NATS")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			entry.WithField("url", c.ConnectedUrl()).Info("reconnected to NATS")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	entry.WithField("url", cfg.URL).Info("connected to NATS")
	return NewPublisher(nc, cfg.SubjectPrefix, log), nil
}

// NewPublisher wraps an existing connection.
func NewPublisher(conn Conn, prefix string, log *logrus.Logger) *Publisher {
	if prefix == "" {
		prefix = "mudra"
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Publisher{conn: conn, prefix: prefix, log: log.WithField("component", "bus")}
}

// Subject returns the subject an event is published on.
func (p *Publisher) Subject(ev session.Event) string {
	return fmt.Sprintf("%s.session.%s.%s", p.prefix, ev.SessionID, ev.Type)
}

// Publish sends one event as JSON.
func (p *Publisher) Publish(ev session.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := p.conn.Publish(p.Subject(ev), data); err != nil {
		return fmt.Errorf("publish %s: %w", p.Subject(ev), err)
	}
	return nil
}

// Run publishes events until ctx is done or events is closed. Publish
// failures are logged and do not stop the loop.
func (p *Publisher) Run(ctx context.Context, events <-chan session.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := p.Publish(ev); err != nil {
				p.log.WithError(err).Warn("event not published")
			}
		}
	}
}

// Healthy reports whether the connection is up.
func (p *Publisher) Healthy() bool {
	return p != nil && p.conn != nil && p.conn.Status() == nats.CONNECTED
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	p.log.Info("closing NATS connection")
	if err := p.conn.Drain(); err != nil {
		p.log.WithError(err).Debug("drain failed")
	}
	p.conn.Close()
}
