package gesture

import (
	"math"
	"testing"

	"github.com/ayusman/mudra/internal/detector"
)

func TestClassifier_ReferencePoses(t *testing.T) {
	c := NewClassifier(nil)

	for letter := byte('A'); letter <= 'Z'; letter++ {
		t.Run(string(letter), func(t *testing.T) {
			result := c.Classify([]detector.HandFrame{detector.LetterFrame(letter)})
			if result.Symbol != Letter(letter) {
				t.Errorf("expected %c, got %s", letter, result.Symbol)
			}
			if result.Source != SourceGeometric {
				t.Errorf("expected geometric source, got %s", result.Source)
			}
		})
	}
}

func TestClassifier_PixelsMatchFrames(t *testing.T) {
	c := NewClassifier(nil)

	for _, letter := range []byte("AEMSXKR") {
		pose, _ := detector.LetterPose(letter)
		if got := c.ClassifyPixels(&pose).Symbol; got != Letter(letter) {
			t.Errorf("ClassifyPixels(%c) = %s", letter, got)
		}
	}
}

func TestClassifier_NoHand(t *testing.T) {
	c := NewClassifier(nil)

	if got := c.Classify(nil).Symbol; got != None {
		t.Errorf("expected none for no hands, got %s", got)
	}
	if got := c.ClassifyPixels(nil).Symbol; got != None {
		t.Errorf("expected none for nil landmarks, got %s", got)
	}
}

func TestClassifier_MalformedHand(t *testing.T) {
	c := NewClassifier(nil)

	t.Run("too few landmarks", func(t *testing.T) {
		frame := detector.LetterFrame('A')
		frame.Landmarks = frame.Landmarks[:15]
		if got := c.Classify([]detector.HandFrame{frame}).Symbol; got != Unknown {
			t.Errorf("expected unknown, got %s", got)
		}
	})

	t.Run("missing coordinate", func(t *testing.T) {
		frame := detector.LetterFrame('A')
		frame.Landmarks[detector.ThumbTip].X = math.NaN()
		if got := c.Classify([]detector.HandFrame{frame}).Symbol; got != Unknown {
			t.Errorf("expected unknown, got %s", got)
		}
	})
}

func TestClassifier_OpenPalmIsUnknown(t *testing.T) {
	c := NewClassifier(nil)
	palm := detector.OpenPalmLandmarks()

	if got := c.ClassifyPixels(&palm).Symbol; got != Unknown {
		t.Errorf("expected unknown for open palm, got %s", got)
	}
}

func TestClassifier_OnlyFirstHandIsRead(t *testing.T) {
	c := NewClassifier(nil)
	hands := []detector.HandFrame{detector.LetterFrame('L'), detector.LetterFrame('Y')}

	if got := c.Classify(hands).Symbol; got != Letter('L') {
		t.Errorf("expected L from the first hand, got %s", got)
	}
}

func TestClassifier_TwoDimensionalFallback(t *testing.T) {
	c := NewClassifier(nil)
	frame := detector.LetterFrame('V')
	for i := range frame.Landmarks {
		frame.Landmarks[i].Z = math.NaN()
	}

	if got := c.Classify([]detector.HandFrame{frame}).Symbol; got != Letter('V') {
		t.Errorf("expected V without depth, got %s", got)
	}
}

func TestClassifier_RuleOrder(t *testing.T) {
	c := NewClassifier(nil)

	t.Run("thumb in front wins over thumb position", func(t *testing.T) {
		// An S pose also satisfies the T rule on x; S is checked first.
		pose, _ := detector.LetterPose('S')
		pose.Points[detector.ThumbTip].X = 335
		if got := c.ClassifyPixels(&pose).Symbol; got != Letter('S') {
			t.Errorf("expected S, got %s", got)
		}
	})

	t.Run("hooked index wins over fist", func(t *testing.T) {
		pose, _ := detector.LetterPose('X')
		if got := c.ClassifyPixels(&pose).Symbol; got != Letter('X') {
			t.Errorf("expected X, got %s", got)
		}
	})

	t.Run("thumb on middle knuckle wins over spread", func(t *testing.T) {
		pose, _ := detector.LetterPose('V')
		pose.Points[detector.ThumbTip] = pose.Points[detector.MiddlePIP]
		if got := c.ClassifyPixels(&pose).Symbol; got != Letter('K') {
			t.Errorf("expected K, got %s", got)
		}
	})
}

func scaleAboutWrist(h *detector.HandLandmarks, f float64) {
	wrist := h.Points[detector.Wrist]
	for i := range h.Points {
		h.Points[i].X = wrist.X + (h.Points[i].X-wrist.X)*f
		h.Points[i].Y = wrist.Y + (h.Points[i].Y-wrist.Y)*f
	}
}

func TestClassifier_ScaleByHand(t *testing.T) {
	pose, _ := detector.LetterPose('A')
	scaleAboutWrist(&pose, 3)

	fixed := NewClassifier(nil)
	if got := fixed.ClassifyPixels(&pose).Symbol; got == Letter('A') {
		t.Error("expected fixed pixel thresholds to miss a hand three times the reference size")
	}

	th := DefaultThresholds()
	th.ScaleByHand = true
	scaled := NewClassifier(nil, WithThresholds(th))
	if got := scaled.ClassifyPixels(&pose).Symbol; got != Letter('A') {
		t.Errorf("expected A with hand-scaled thresholds, got %s", got)
	}
}

type fakePredictor struct {
	sym  Symbol
	conf float64
}

func (f fakePredictor) Predict(*detector.HandLandmarks) (Symbol, float64) {
	return f.sym, f.conf
}

func TestClassifier_SecondaryArbitration(t *testing.T) {
	hands := []detector.HandFrame{detector.LetterFrame('U')}

	tests := []struct {
		name      string
		predictor fakePredictor
		want      Symbol
		source    Source
	}{
		{"confident secondary overrides", fakePredictor{Letter('R'), 0.9}, Letter('R'), SourceTemplate},
		{"threshold is inclusive", fakePredictor{Letter('R'), 0.8}, Letter('R'), SourceTemplate},
		{"weak secondary ignored", fakePredictor{Letter('R'), 0.5}, Letter('U'), SourceGeometric},
		{"non-letter secondary ignored", fakePredictor{Unknown, 1}, Letter('U'), SourceGeometric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClassifier(nil, WithSecondary(tt.predictor, 0.8))
			got := c.Classify(hands)
			if got.Symbol != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got.Symbol)
			}
			if got.Source != tt.source {
				t.Errorf("expected source %s, got %s", tt.source, got.Source)
			}
		})
	}
}

func TestDirectionBands(t *testing.T) {
	base := detector.Point3D{X: 100, Y: 100}

	tests := []struct {
		name string
		tip  detector.Point3D
		up   bool
		down bool
		horz bool
		diag bool
	}{
		{"up", detector.Point3D{X: 100, Y: 0}, true, false, false, false},
		{"down", detector.Point3D{X: 100, Y: 200}, false, true, false, false},
		{"right", detector.Point3D{X: 200, Y: 100}, false, false, true, false},
		{"left", detector.Point3D{X: 0, Y: 100}, false, false, true, false},
		{"up-right", detector.Point3D{X: 200, Y: 0}, false, false, false, true},
		{"down-left", detector.Point3D{X: 0, Y: 200}, false, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := direction(base, tt.tip)
			if upward(a) != tt.up || downward(a) != tt.down || horizontal(a) != tt.horz || diagonal(a) != tt.diag {
				t.Errorf("angle %f: up=%v down=%v horizontal=%v diagonal=%v", a, upward(a), downward(a), horizontal(a), diagonal(a))
			}
		})
	}
}
