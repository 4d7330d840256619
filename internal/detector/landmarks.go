// Package detector provides hand landmark types, the landmark normalizer and
// the hand-pose estimator adapters that feed letter classification.
package detector

import "math"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Point3D represents a 3D point in space with x, y, z coordinates.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandFrame is one hand as delivered by a pose estimator: raw landmarks with
// x and y roughly in [-0.5, 0.5] and z a relative depth. Estimators that only
// produce 2D points report z as NaN.
type HandFrame struct {
	Landmarks  []Point3D `json:"landmarks"`
	Handedness string    `json:"handedness,omitempty"`
	Score      float64   `json:"score"`
}

// HandLandmarks is a complete set of 21 landmarks in a single coordinate space.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// Sub returns p minus q.
func (p Point3D) Sub(q Point3D) Point3D {
	return Point3D{X: p.X - q.X, Y: p.Y - q.Y, Z: p.Z - q.Z}
}

// Scale returns p with every coordinate multiplied by f.
func (p Point3D) Scale(f float64) Point3D {
	return Point3D{X: p.X * f, Y: p.Y * f, Z: p.Z * f}
}

// Norm is the length of p as a vector from the origin.
func (p Point3D) Norm() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
}

// Distance2D returns the Euclidean distance between a and b in the x/y plane.
func Distance2D(a, b Point3D) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// HandScale returns the wrist to middle-MCP distance in the x/y plane.
func (h *HandLandmarks) HandScale() float64 {
	return Distance2D(h.Points[Wrist], h.Points[MiddleMCP])
}

// Normalize returns a copy centred on the wrist with the wrist to middle-MCP
// vector at unit length. Templates are stored in this space. A degenerate
// hand is only translated.
func (h *HandLandmarks) Normalize() *HandLandmarks {
	if h == nil {
		return nil
	}

	out := *h
	origin := h.Points[Wrist]
	for i, p := range h.Points {
		out.Points[i] = p.Sub(origin)
	}

	if size := out.Points[MiddleMCP].Norm(); size >= 1e-10 {
		for i, p := range out.Points {
			out.Points[i] = p.Scale(1 / size)
		}
	}
	return &out
}
