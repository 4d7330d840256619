package detector

import "math"

// Default reference frame the pixel thresholds were tuned against.
const (
	DefaultFrameWidth  = 640
	DefaultFrameHeight = 480
)

// Views holds the two representations the classifier works with.
type Views struct {
	// Unit has x and y in [0,1] and z min-max normalized across the hand.
	Unit HandLandmarks
	// Pixel is Unit scaled by the reference frame size (z by the width).
	Pixel HandLandmarks
}

// Normalizer maps raw estimator landmarks into unit and pixel space.
// It holds no mutable state and is safe for concurrent use.
type Normalizer struct {
	FrameWidth  float64
	FrameHeight float64
	// MirrorX flips the horizontal axis, for selfie-view cameras.
	MirrorX bool
}

// NewNormalizer returns a Normalizer for a frame of the given size.
// Non-positive dimensions fall back to the 640x480 reference frame.
func NewNormalizer(width, height float64, mirrorX bool) *Normalizer {
	if width <= 0 {
		width = DefaultFrameWidth
	}
	if height <= 0 {
		height = DefaultFrameHeight
	}
	return &Normalizer{FrameWidth: width, FrameHeight: height, MirrorX: mirrorX}
}

// Normalize converts a raw hand. It reports false when the hand has fewer
// than 21 landmarks or any x/y coordinate is missing (NaN).
func (n *Normalizer) Normalize(frame HandFrame) (*Views, bool) {
	if len(frame.Landmarks) < NumLandmarks {
		return nil, false
	}

	minZ, maxZ := math.Inf(1), math.Inf(-1)
	for i := 0; i < NumLandmarks; i++ {
		p := frame.Landmarks[i]
		if math.IsNaN(p.X) || math.IsNaN(p.Y) {
			return nil, false
		}
		z := depth(p.Z)
		minZ = math.Min(minZ, z)
		maxZ = math.Max(maxZ, z)
	}
	zRange := maxZ - minZ

	v := &Views{}
	v.Unit.Handedness, v.Unit.Score = frame.Handedness, frame.Score
	v.Pixel.Handedness, v.Pixel.Score = frame.Handedness, frame.Score

	for i := 0; i < NumLandmarks; i++ {
		p := frame.Landmarks[i]

		x := clamp01(p.X + 0.5)
		if n.MirrorX {
			x = 1 - x
		}
		y := clamp01(p.Y + 0.5)

		var z float64
		if zRange > 0 {
			z = (depth(p.Z) - minZ) / zRange
		}

		v.Unit.Points[i] = Point3D{X: x, Y: y, Z: z}
		v.Pixel.Points[i] = Point3D{X: x * n.FrameWidth, Y: y * n.FrameHeight, Z: z * n.FrameWidth}
	}

	return v, true
}

// FrameFromPixels converts pixel-space landmarks back into a raw HandFrame
// for a frame of the given size. It is the inverse of Normalize for hands
// that lie inside the frame.
func FrameFromPixels(h HandLandmarks, width, height float64) HandFrame {
	frame := HandFrame{
		Landmarks:  make([]Point3D, NumLandmarks),
		Handedness: h.Handedness,
		Score:      h.Score,
	}
	for i, p := range h.Points {
		frame.Landmarks[i] = Point3D{
			X: p.X/width - 0.5,
			Y: p.Y/height - 0.5,
			Z: p.Z / width,
		}
	}
	return frame
}

// depth treats a missing z (2D estimators) as zero depth.
func depth(z float64) float64 {
	if math.IsNaN(z) {
		return 0
	}
	return z
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
