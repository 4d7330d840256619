package plugin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/mudra/internal/sentence"
	"github.com/ayusman/mudra/internal/session"
)

// maxParallel caps concurrent plugin processes per dispatch.
const maxParallel = 4

// Dispatcher delivers recognized text to the plugins that handle it.
type Dispatcher struct {
	manager  *Manager
	executor *Executor
	log      *logrus.Entry
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(m *Manager, e *Executor, log *logrus.Logger) *Dispatcher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Dispatcher{manager: m, executor: e, log: log.WithField("component", "plugin")}
}

// Dispatch sends req to every plugin handling req.Action and returns the
// joined failures. A plugin answering success=false counts as a failure.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) error {
	plugins := d.manager.Handlers(req.Action)
	if len(plugins) == 0 {
		return nil
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	g := new(errgroup.Group)
	g.SetLimit(maxParallel)
	for _, p := range plugins {
		g.Go(func() error {
			resp, err := d.executor.Execute(ctx, p, req)
			if err == nil && !resp.Success {
				err = errors.New(resp.Error)
			}
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", p.Manifest.Name, err))
				mu.Unlock()
				return nil
			}
			d.log.WithFields(logrus.Fields{
				"plugin": p.Manifest.Name,
				"action": req.Action,
			}).Debug("plugin delivered")
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

// WordRequest builds the word delivery for a completed-word event. It
// reports false for any other event.
func WordRequest(ev session.Event) (*Request, bool) {
	if ev.Type != session.EventText || ev.Text == nil || ev.Text.Action != sentence.ActionWordCompleted {
		return nil, false
	}

	text := ev.Text.Corrected
	if text == "" {
		tokens := strings.Fields(ev.Text.Sentence)
		if len(tokens) == 0 {
			return nil, false
		}
		text = tokens[len(tokens)-1]
	}
	return &Request{
		Action:    ActionWord,
		SessionID: ev.SessionID,
		Text:      text,
		Corrected: ev.Text.Corrected != "",
	}, true
}

// Run delivers completed words from events until ctx is done or events is
// closed.
func (d *Dispatcher) Run(ctx context.Context, events <-chan session.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			req, ok := WordRequest(ev)
			if !ok {
				continue
			}
			if err := d.Dispatch(ctx, req); err != nil {
				d.log.WithError(err).WithField("session_id", ev.SessionID).Warn("plugin delivery failed")
			}
		}
	}
}
