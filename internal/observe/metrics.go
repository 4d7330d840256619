// Package observe provides OpenTelemetry metrics for the recognition
// pipeline and a Prometheus bridge for scraping them.
//
// Tests should build [Metrics] with [NewMetrics] over a meter provider with
// a manual reader instead of the global provider.
package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/sentence"
	"github.com/ayusman/mudra/internal/session"
)

const meterName = "github.com/ayusman/mudra"

// Metrics holds the metric instruments. All fields are safe for concurrent
// use.
type Metrics struct {
	// TickDuration tracks how long one detection tick takes, capture included.
	TickDuration metric.Float64Histogram

	// Ticks counts classified ticks. Attributes: kind (letter, none,
	// unknown, pending).
	Ticks metric.Int64Counter

	// TextActions counts assembler outcomes. Attributes: action.
	TextActions metric.Int64Counter

	// WordsCompleted counts completed words. Attributes: corrected (bool).
	WordsCompleted metric.Int64Counter

	// DetectorErrors counts failed captures or detections.
	DetectorErrors metric.Int64Counter

	// ActiveSessions tracks live sessions.
	ActiveSessions metric.Int64UpDownCounter

	// ActiveLoops tracks running detection loops.
	ActiveLoops metric.Int64UpDownCounter

	// HTTPRequestDuration tracks API latency. Attributes: method, route, status.
	HTTPRequestDuration metric.Float64Histogram
}

var latencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5,
}

// NewMetrics creates every instrument from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.TickDuration, err = m.Float64Histogram("mudra.tick.duration",
		metric.WithDescription("Latency of one detection tick."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Ticks, err = m.Int64Counter("mudra.ticks",
		metric.WithDescription("Classified ticks by smoothed symbol kind."),
	); err != nil {
		return nil, err
	}
	if met.TextActions, err = m.Int64Counter("mudra.text.actions",
		metric.WithDescription("Sentence assembler outcomes by action."),
	); err != nil {
		return nil, err
	}
	if met.WordsCompleted, err = m.Int64Counter("mudra.words.completed",
		metric.WithDescription("Completed words, split by whether autocorrect changed them."),
	); err != nil {
		return nil, err
	}
	if met.DetectorErrors, err = m.Int64Counter("mudra.detector.errors",
		metric.WithDescription("Failed frame captures or hand detections."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("mudra.active_sessions",
		metric.WithDescription("Number of live sessions."),
	); err != nil {
		return nil, err
	}
	if met.ActiveLoops, err = m.Int64UpDownCounter("mudra.active_loops",
		metric.WithDescription("Number of running detection loops."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("mudra.http.request.duration",
		metric.WithDescription("Latency of API requests."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// RecordEvent updates the counters for one session event.
func (m *Metrics) RecordEvent(ctx context.Context, ev session.Event) {
	switch ev.Type {
	case session.EventTick:
		if ev.Tick == nil {
			return
		}
		m.Ticks.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kindName(ev.Tick.Symbol))))
	case session.EventText:
		if ev.Text == nil {
			return
		}
		m.TextActions.Add(ctx, 1, metric.WithAttributes(attribute.String("action", string(ev.Text.Action))))
		if ev.Text.Action == sentence.ActionWordCompleted {
			m.WordsCompleted.Add(ctx, 1, metric.WithAttributes(attribute.Bool("corrected", ev.Text.Corrected != "")))
		}
	}
}

func kindName(s gesture.Symbol) string {
	switch s.Kind() {
	case gesture.KindLetter:
		return "letter"
	case gesture.KindUnknown:
		return "unknown"
	case gesture.KindPending:
		return "pending"
	default:
		return "none"
	}
}
