package capture

import (
	"image"
	"image/color"
	"testing"

	"gocv.io/x/gocv"
)

func TestNewMotionGate(t *testing.T) {
	g := NewMotionGate(1.0, 0)
	defer g.Close()

	if g.maxStill != DefaultMaxStill {
		t.Errorf("maxStill = %d, want %d", g.maxStill, DefaultMaxStill)
	}
	if g.initialized {
		t.Error("gate should not be initialized initially")
	}
}

func TestMotionGate_StillFrames(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	g := NewMotionGate(1.0, 2)
	defer g.Close()

	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	if changed, _ := g.Changed(&frame); !changed {
		t.Fatal("first frame should always be detected")
	}

	// Two still frames are skipped, the third is forced.
	want := []bool{false, false, true, false}
	for i, w := range want {
		changed, pct := g.Changed(&frame)
		if changed != w {
			t.Errorf("frame %d: changed = %v (%.2f%%), want %v", i, changed, pct, w)
		}
	}
}

func TestMotionGate_Motion(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	g := NewMotionGate(1.0, 10)
	defer g.Close()

	black := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer black.Close()
	moved := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer moved.Close()
	gocv.Rectangle(&moved, image.Rect(100, 100, 400, 400), color.RGBA{255, 255, 255, 0}, -1)

	g.Changed(&black)
	changed, pct := g.Changed(&moved)
	if !changed {
		t.Errorf("expected motion, got %.2f%%", pct)
	}

	g.Reset()
	if changed, _ := g.Changed(&moved); !changed {
		t.Error("expected detection after Reset")
	}
}

func TestMotionGate_EmptyFrame(t *testing.T) {
	g := NewMotionGate(1.0, 10)
	defer g.Close()

	if changed, pct := g.Changed(nil); changed || pct != 0 {
		t.Errorf("Changed(nil) = %v, %.2f", changed, pct)
	}
}
