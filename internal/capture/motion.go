package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

const (
	// blurSize is the Gaussian kernel applied before differencing.
	blurSize = 21
	// diffThreshold is the per-pixel intensity change counted as motion.
	diffThreshold = 25
	// DefaultMaxStill is how many consecutive still frames may reuse a
	// previous detection before one is forced.
	DefaultMaxStill = 10
)

// MotionGate decides whether a frame differs enough from the previous one
// to be worth running hand detection on. A held sign barely changes the
// image, so the previous landmarks remain valid for a few frames.
type MotionGate struct {
	mu          sync.Mutex
	threshold   float64
	maxStill    int
	still       int
	prevGray    gocv.Mat
	initialized bool
}

// NewMotionGate creates a gate. threshold is the percentage of pixels that
// must change to count as motion; maxStill caps consecutive skipped frames.
func NewMotionGate(threshold float64, maxStill int) *MotionGate {
	if maxStill <= 0 {
		maxStill = DefaultMaxStill
	}
	return &MotionGate{
		threshold: threshold,
		maxStill:  maxStill,
		prevGray:  gocv.NewMat(),
	}
}

// Changed reports whether frame should be detected afresh, along with the
// percentage of pixels that changed since the previous frame. The first
// frame, and every frame after maxStill skipped ones, reports true.
func (m *MotionGate) Changed(frame *gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()

	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: blurSize, Y: blurSize}, 0, 0, gocv.BorderDefault)

	if !m.initialized {
		blurred.CopyTo(&m.prevGray)
		m.initialized = true
		m.still = 0
		return true, 100
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, m.prevGray, &diff)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(diff, &thresh, diffThreshold, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(thresh)) / float64(thresh.Rows()*thresh.Cols()) * 100.0
	blurred.CopyTo(&m.prevGray)

	if changed > m.threshold || m.still >= m.maxStill {
		m.still = 0
		return true, changed
	}
	m.still++
	return false, changed
}

// Reset drops the baseline so the next frame is always detected.
func (m *MotionGate) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
}

func (m *MotionGate) reset() {
	if !m.prevGray.Empty() {
		m.prevGray.Close()
		m.prevGray = gocv.NewMat()
	}
	m.initialized = false
	m.still = 0
}

// Close releases the baseline frame.
func (m *MotionGate) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
}
