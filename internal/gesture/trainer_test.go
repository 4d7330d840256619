package gesture

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/detector"
)

func TestTrainer_TrainStatic(t *testing.T) {
	trainer := NewTrainer()

	samples := []json.RawMessage{
		json.RawMessage(`{"letter": "A", "landmarks": [{"x": 0.5, "y": 0.5, "z": 0}], "timestamp": 1000}`),
		json.RawMessage(`{"letter": "A", "landmarks": [{"x": 0.6, "y": 0.4, "z": 0}], "timestamp": 2000}`),
	}

	result, err := trainer.TrainStatic(samples)
	if err != nil {
		t.Fatalf("TrainStatic() error = %v", err)
	}

	if len(result) != 1 {
		t.Fatalf("expected 1 landmark, got %d", len(result))
	}

	// Average should be (0.55, 0.45, 0)
	if !floatEqual(result[0].X, 0.55) || !floatEqual(result[0].Y, 0.45) {
		t.Errorf("wrong average: got (%f, %f), expected (0.55, 0.45)", result[0].X, result[0].Y)
	}
}

func TestTrainer_TrainStatic_MultipleLandmarks(t *testing.T) {
	trainer := NewTrainer()

	samples := []json.RawMessage{
		json.RawMessage(`{"letter": "B", "landmarks": [{"x": 0.1, "y": 0.1, "z": 0.1}, {"x": 0.2, "y": 0.2, "z": 0.2}], "timestamp": 1000}`),
		json.RawMessage(`{"letter": "B", "landmarks": [{"x": 0.3, "y": 0.3, "z": 0.3}, {"x": 0.4, "y": 0.4, "z": 0.4}], "timestamp": 2000}`),
	}

	result, err := trainer.TrainStatic(samples)
	if err != nil {
		t.Fatalf("TrainStatic() error = %v", err)
	}

	if len(result) != 2 {
		t.Fatalf("expected 2 landmarks, got %d", len(result))
	}
	if !floatEqual(result[0].X, 0.2) || !floatEqual(result[0].Y, 0.2) || !floatEqual(result[0].Z, 0.2) {
		t.Errorf("wrong first average: got (%f, %f, %f)", result[0].X, result[0].Y, result[0].Z)
	}
	if !floatEqual(result[1].X, 0.3) || !floatEqual(result[1].Y, 0.3) || !floatEqual(result[1].Z, 0.3) {
		t.Errorf("wrong second average: got (%f, %f, %f)", result[1].X, result[1].Y, result[1].Z)
	}
}

func TestTrainer_TrainStatic_EmptySamples(t *testing.T) {
	trainer := NewTrainer()

	_, err := trainer.TrainStatic([]json.RawMessage{})
	if !errors.Is(err, ErrNoSamples) {
		t.Errorf("expected ErrNoSamples, got %v", err)
	}
}

func TestTrainer_TrainStatic_InvalidJSON(t *testing.T) {
	trainer := NewTrainer()

	samples := []json.RawMessage{
		json.RawMessage(`{invalid json}`),
	}

	_, err := trainer.TrainStatic(samples)
	if err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestTrainer_TrainStatic_MismatchedLengths(t *testing.T) {
	trainer := NewTrainer()

	samples := []json.RawMessage{
		json.RawMessage(`{"landmarks": [{"x": 0.1, "y": 0.1, "z": 0}]}`),
		json.RawMessage(`{"landmarks": [{"x": 0.1, "y": 0.1, "z": 0}, {"x": 0.2, "y": 0.2, "z": 0}]}`),
	}

	if _, err := trainer.TrainStatic(samples); err == nil {
		t.Error("expected error for samples of different lengths")
	}
}

func TestTrainer_TrainTemplate(t *testing.T) {
	trainer := NewTrainer()
	pose, _ := detector.LetterPose('W')

	var samples []json.RawMessage
	for i := 0; i < 3; i++ {
		raw, err := json.Marshal(NewSample(Letter('W'), &pose, time.UnixMilli(int64(i))))
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		samples = append(samples, raw)
	}

	template, err := trainer.TrainTemplate(Letter('W'), samples)
	if err != nil {
		t.Fatalf("TrainTemplate() error = %v", err)
	}
	if template.Symbol != Letter('W') || template.ID != TemplateID(Letter('W')) {
		t.Errorf("expected W template with ID %q, got %s/%q", TemplateID(Letter('W')), template.Symbol, template.ID)
	}
	if len(template.Landmarks) != detector.NumLandmarks {
		t.Errorf("expected %d landmarks, got %d", detector.NumLandmarks, len(template.Landmarks))
	}

	matcher := NewTemplateMatcher()
	matcher.AddTemplate(template)
	if sym, _ := matcher.Predict(&pose); sym != Letter('W') {
		t.Errorf("expected trained template to predict W, got %s", sym)
	}

	t.Run("rejects non-letter", func(t *testing.T) {
		if _, err := trainer.TrainTemplate(Unknown, samples); err == nil {
			t.Error("expected error for non-letter symbol")
		}
	})
}

func floatEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
