package gesture

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/mudra/internal/detector"
)

// ErrNoSamples is returned when training is attempted without samples.
var ErrNoSamples = errors.New("no samples provided")

// Trainer averages recorded samples into letter templates.
type Trainer struct{}

// NewTrainer creates a new Trainer instance.
func NewTrainer() *Trainer {
	return &Trainer{}
}

// StaticSample is one recorded pose of a letter as stored by the sample
// repository.
type StaticSample struct {
	Letter    string             `json:"letter"`
	Landmarks []detector.Point3D `json:"landmarks"`
	Timestamp int64              `json:"timestamp"` // unix milliseconds
}

// NewSample records hand as a wrist-relative normalized sample.
func NewSample(letter Symbol, hand *detector.HandLandmarks, at time.Time) StaticSample {
	pose := hand.Normalize().Points
	return StaticSample{
		Letter:    letter.String(),
		Landmarks: pose[:],
		Timestamp: at.UnixMilli(),
	}
}

// decodeSamples parses raw samples and checks they share a landmark count.
func decodeSamples(raw []json.RawMessage) ([][]detector.Point3D, error) {
	if len(raw) == 0 {
		return nil, ErrNoSamples
	}
	poses := make([][]detector.Point3D, len(raw))
	for i, r := range raw {
		var s StaticSample
		if err := json.Unmarshal(r, &s); err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		switch {
		case len(s.Landmarks) == 0:
			return nil, fmt.Errorf("sample %d has no landmarks", i)
		case i > 0 && len(s.Landmarks) != len(poses[0]):
			return nil, fmt.Errorf("sample %d has %d landmarks, expected %d", i, len(s.Landmarks), len(poses[0]))
		}
		poses[i] = s.Landmarks
	}
	return poses, nil
}

// TrainStatic returns the point-wise mean of the samples' landmarks.
func (t *Trainer) TrainStatic(samples []json.RawMessage) ([]detector.Point3D, error) {
	poses, err := decodeSamples(samples)
	if err != nil {
		return nil, err
	}

	mean := make([]detector.Point3D, len(poses[0]))
	for _, pose := range poses {
		for i, p := range pose {
			mean[i].X += p.X
			mean[i].Y += p.Y
			mean[i].Z += p.Z
		}
	}
	inv := 1 / float64(len(poses))
	for i := range mean {
		mean[i] = mean[i].Scale(inv)
	}
	return mean, nil
}

// TrainTemplate averages the samples of one letter into a Template whose ID
// is stable per letter, so retraining replaces the previous template.
func (t *Trainer) TrainTemplate(letter Symbol, samples []json.RawMessage) (*Template, error) {
	if !letter.IsLetter() {
		return nil, fmt.Errorf("cannot train template for %s", letter)
	}
	landmarks, err := t.TrainStatic(samples)
	if err != nil {
		return nil, fmt.Errorf("train %s: %w", letter, err)
	}
	return &Template{
		ID:        TemplateID(letter),
		Symbol:    letter,
		Landmarks: landmarks,
		Tolerance: DefaultTolerance,
	}, nil
}

// TemplateID is the ID of the trained template for letter.
func TemplateID(letter Symbol) string {
	return "letter-" + letter.String()
}
