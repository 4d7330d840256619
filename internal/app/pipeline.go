package app

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/mudra/internal/session"
)

// loop is one session's running detection loop.
type loop struct {
	stopCh chan struct{}
	done   chan struct{}
}

// StartDetection starts the detection loop for a session. Starting a loop
// that is already running is a no-op.
func (a *App) StartDetection(ctx context.Context, id string) error {
	s, err := a.config.Sessions.Get(id)
	if err != nil {
		return err
	}
	if a.config.Source == nil {
		return ErrNoSource
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.loops[id]; ok {
		return nil
	}

	src, err := a.config.Source(id)
	if err != nil {
		return err
	}

	l := &loop{stopCh: make(chan struct{}), done: make(chan struct{})}
	a.loops[id] = l
	go a.runPipeline(l, s, src)

	if a.config.Metrics != nil {
		a.config.Metrics.ActiveLoops.Add(ctx, 1)
	}
	a.log.WithField("session_id", id).Info("detection started")
	return nil
}

// StopDetection stops a session's detection loop and waits for the tick in
// progress to finish. It reports whether a loop was running.
func (a *App) StopDetection(ctx context.Context, id string) bool {
	a.mu.Lock()
	l, ok := a.loops[id]
	delete(a.loops, id)
	a.mu.Unlock()

	if !ok {
		return false
	}
	close(l.stopCh)
	<-l.done

	if a.config.Metrics != nil {
		a.config.Metrics.ActiveLoops.Add(ctx, -1)
	}
	a.log.WithField("session_id", id).Info("detection stopped")
	return true
}

// Detecting reports whether a session's detection loop is running.
func (a *App) Detecting(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.loops[id]
	return ok
}

// Shutdown stops every detection loop.
func (a *App) Shutdown() {
	a.mu.Lock()
	ids := make([]string, 0, len(a.loops))
	for id := range a.loops {
		ids = append(ids, id)
	}
	a.mu.Unlock()

	for _, id := range ids {
		a.StopDetection(context.Background(), id)
	}
}

// runPipeline ticks the session until stopped. The stop signal is only
// observed between ticks, so a tick is never abandoned half applied.
func (a *App) runPipeline(l *loop, s *session.Session, src HandSource) {
	defer close(l.done)
	defer func() {
		if err := src.Close(); err != nil {
			a.log.WithError(err).WithField("session_id", s.ID()).Warn("failed to close hand source")
		}
	}()

	ticker := time.NewTicker(a.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			a.tick(s, src)
		}
	}
}

// tick runs one capture, classify and smooth cycle.
func (a *App) tick(s *session.Session, src HandSource) {
	ctx := context.Background()
	start := time.Now()

	hands, err := src.Hands()
	if err != nil {
		a.log.WithError(err).WithField("session_id", s.ID()).Debug("skipping tick")
		if a.config.Metrics != nil {
			a.config.Metrics.DetectorErrors.Add(ctx, 1)
		}
		return
	}

	t, text := s.Tick(hands)
	if a.config.Metrics != nil {
		a.config.Metrics.TickDuration.Record(ctx, time.Since(start).Seconds())
	}
	if text != nil && text.Action.Mutated() {
		a.log.WithFields(logrus.Fields{
			"session_id": s.ID(),
			"letter":     t.Symbol.String(),
			"word":       text.CurrentWord,
		}).Debug("letter accepted")
	}
}
