package app

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
)

// ErrSourceBusy is returned when a single-user source is already leased.
var ErrSourceBusy = errors.New("hand source already in use")

// HandSource yields the hands visible in the next frame.
type HandSource interface {
	Hands() ([]detector.HandFrame, error)
	Close() error
}

// SourceFactory returns the HandSource a session's detection loop reads.
type SourceFactory func(sessionID string) (HandSource, error)

// CameraSource runs hand detection on camera frames. Only one detection loop
// can read the camera at a time.
type CameraSource struct {
	mu       sync.Mutex
	camera   capture.Camera
	detector detector.Detector
	gate     *capture.MotionGate
	leased   bool
	last     []detector.HandFrame
	haveLast bool
}

// NewCameraSource creates a CameraSource. gate may be nil to detect every
// frame.
func NewCameraSource(cam capture.Camera, det detector.Detector, gate *capture.MotionGate) *CameraSource {
	return &CameraSource{camera: cam, detector: det, gate: gate}
}

// Factory returns a SourceFactory leasing this camera.
func (c *CameraSource) Factory() SourceFactory {
	return func(string) (HandSource, error) {
		return c.Acquire()
	}
}

// Acquire opens the camera and leases it to the caller until the returned
// source is closed.
func (c *CameraSource) Acquire() (HandSource, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.leased {
		return nil, ErrSourceBusy
	}
	if err := c.camera.Open(); err != nil {
		return nil, fmt.Errorf("acquire camera: %w", err)
	}
	c.leased = true
	return &cameraLease{src: c}, nil
}

func (c *CameraSource) hands() ([]detector.HandFrame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	frame, err := c.camera.ReadFrame()
	if err != nil {
		return nil, err
	}
	defer frame.Close()

	if c.gate != nil {
		if changed, _ := c.gate.Changed(frame); !changed && c.haveLast {
			return c.last, nil
		}
	}

	hands, err := c.detector.Detect(frame)
	if err != nil {
		c.haveLast = false
		return nil, fmt.Errorf("detect hands: %w", err)
	}
	c.last, c.haveLast = hands, true
	return hands, nil
}

func (c *CameraSource) release() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.leased {
		return nil
	}
	c.leased = false
	c.last, c.haveLast = nil, false
	if c.gate != nil {
		c.gate.Reset()
	}
	return c.camera.Close()
}

// Close releases the camera, the detector and the motion gate.
func (c *CameraSource) Close() error {
	err := c.release()
	if c.gate != nil {
		c.gate.Close()
	}
	return errors.Join(err, c.detector.Close())
}

type cameraLease struct {
	src  *CameraSource
	once sync.Once
}

func (l *cameraLease) Hands() ([]detector.HandFrame, error) {
	return l.src.hands()
}

func (l *cameraLease) Close() error {
	var err error
	l.once.Do(func() { err = l.src.release() })
	return err
}

// StaticSource returns whatever hands were last set. It backs tests and
// clients that push landmarks instead of using a camera.
type StaticSource struct {
	mu    sync.Mutex
	hands []detector.HandFrame
	err   error
}

// Set replaces the hands returned by subsequent calls.
func (s *StaticSource) Set(hands []detector.HandFrame, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hands, s.err = hands, err
}

func (s *StaticSource) Hands() ([]detector.HandFrame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hands, s.err
}

func (s *StaticSource) Close() error { return nil }
