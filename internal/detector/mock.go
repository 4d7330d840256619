package detector

import (
	"slices"
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector returns canned hands regardless of the frame. Tests use it
// in place of the MediaPipe service.
type MockDetector struct {
	mu    sync.Mutex
	hands []HandFrame
	err   error
	calls int
}

// NewMockDetector returns a detector that finds no hands.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets what every later Detect returns.
func (m *MockDetector) SetHands(hands []HandFrame) {
	m.mu.Lock()
	m.hands = hands
	m.mu.Unlock()
}

// SetError makes Detect fail with err; nil restores normal results.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// Calls counts Detect invocations, failed ones included.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockDetector) Detect(*gocv.Mat) ([]HandFrame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return slices.Clone(m.hands), nil
}

func (m *MockDetector) Close() error { return nil }
