package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

const (
	serviceScript = "mediapipe_service.py"

	// idleShutdown is how long the Python process may sit unused before it is stopped.
	idleShutdown = 30 * time.Second
)

// ErrNoService is returned when mediapipe_service.py cannot be located.
var ErrNoService = errors.New("detector: " + serviceScript + " not found")

// MediaPipeDetector implements Detector using a Python MediaPipe subprocess.
// The process is started on the first Detect and stopped again after
// idleShutdown without frames.
type MediaPipeDetector struct {
	config Config

	mu   sync.Mutex
	proc *serviceProcess
	idle *time.Timer
}

// NewMediaPipeDetector creates a detector backed by the MediaPipe service
// script. It fails with ErrNoService when the script cannot be found.
func NewMediaPipeDetector(config Config) (*MediaPipeDetector, error) {
	if config.ScriptPath == "" {
		config.ScriptPath = locate(scriptCandidates())
	}
	if config.ScriptPath == "" {
		return nil, ErrNoService
	}
	return &MediaPipeDetector{config: config}, nil
}

// Detect sends frame to the service and returns the hands scoring at least
// MinConfidence, in service order.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) ([]HandFrame, error) {
	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.proc == nil {
		proc, err := startService(d.config)
		if err != nil {
			return nil, err
		}
		d.proc = proc
	}

	hands, err := d.proc.exchange(buf.GetBytes())
	if err != nil {
		// A broken pipe leaves the protocol out of sync; restart next time.
		d.stopLocked()
		return nil, err
	}
	d.armIdle()

	out := make([]HandFrame, 0, len(hands))
	for _, h := range hands {
		if h.Score >= d.config.MinConfidence {
			out = append(out, h.toHandFrame())
		}
	}
	return out, nil
}

// Close stops the Python process if it is running.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stopLocked()
}

func (d *MediaPipeDetector) stopLocked() error {
	if d.idle != nil {
		d.idle.Stop()
		d.idle = nil
	}
	if d.proc == nil {
		return nil
	}
	err := d.proc.stop()
	d.proc = nil
	return err
}

func (d *MediaPipeDetector) armIdle() {
	if d.idle != nil {
		d.idle.Reset(idleShutdown)
		return
	}
	d.idle = time.AfterFunc(idleShutdown, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.stopLocked()
	})
}

// serviceProcess speaks the service protocol: a 4-byte big-endian length
// followed by JPEG bytes on stdin, one JSON line per frame on stdout.
type serviceProcess struct {
	cmd *exec.Cmd
	in  io.WriteCloser
	out *bufio.Reader
	hdr [4]byte
}

func startService(cfg Config) (*serviceProcess, error) {
	python := locate(pythonCandidates())
	if python == "" {
		python = "python3"
	}

	cmd := exec.Command(python, cfg.ScriptPath,
		"--max-hands", strconv.Itoa(cfg.MaxHands),
		"--min-detection-confidence", strconv.FormatFloat(cfg.MinConfidence, 'f', 2, 64),
		"--min-tracking-confidence", strconv.FormatFloat(cfg.MinTrackingConf, 'f', 2, 64),
	)
	cmd.Stderr = os.Stderr

	in, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", serviceScript, err)
	}
	return &serviceProcess{cmd: cmd, in: in, out: bufio.NewReader(out)}, nil
}

func (p *serviceProcess) exchange(jpeg []byte) ([]jsonHand, error) {
	binary.BigEndian.PutUint32(p.hdr[:], uint32(len(jpeg)))
	if _, err := p.in.Write(p.hdr[:]); err != nil {
		return nil, fmt.Errorf("write frame header: %w", err)
	}
	if _, err := p.in.Write(jpeg); err != nil {
		return nil, fmt.Errorf("write frame: %w", err)
	}

	line, err := p.out.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read hands: %w", err)
	}
	var resp struct {
		Hands []jsonHand `json:"hands"`
	}
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("decode hands: %w", err)
	}
	return resp.Hands, nil
}

// stop closes stdin, which the service treats as end of input, and waits.
func (p *serviceProcess) stop() error {
	p.in.Close()
	return p.cmd.Wait()
}

func scriptCandidates() []string {
	paths := []string{
		filepath.Join("scripts", serviceScript),
		filepath.Join("..", "scripts", serviceScript),
	}
	if dir := executableDir(); dir != "" {
		paths = append(paths, filepath.Join(dir, "scripts", serviceScript))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".mudra", "scripts", serviceScript))
	}
	return paths
}

// pythonCandidates lists virtualenv interpreters near the working directory,
// next to the binary and under ~/.mudra.
func pythonCandidates() []string {
	venv := filepath.Join("venv", "bin", "python")
	paths := []string{
		venv,
		filepath.Join("..", venv),
		filepath.Join("..", "..", venv),
	}
	if dir := executableDir(); dir != "" {
		paths = append(paths, filepath.Join(dir, venv))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".mudra", venv))
	}
	return paths
}

func executableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	return filepath.Dir(exe)
}

// locate returns the absolute form of the first existing path, or "".
func locate(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if abs, err := filepath.Abs(p); err == nil {
			return abs
		}
		return p
	}
	return ""
}

// jsonHand is one hand as reported by the service. Points are in image
// space with x and y in [0,1]; z is null when only 2D is available.
type jsonHand struct {
	Points     []jsonPoint `json:"points"`
	Handedness string      `json:"handedness"`
	Score      float64     `json:"score"`
}

type jsonPoint struct {
	X float64  `json:"x"`
	Y float64  `json:"y"`
	Z *float64 `json:"z"`
}

// toHandFrame recenters image coordinates on the origin, the raw landmark
// convention the Normalizer expects.
func (h jsonHand) toHandFrame() HandFrame {
	landmarks := make([]Point3D, len(h.Points))
	for i, p := range h.Points {
		z := math.NaN()
		if p.Z != nil {
			z = *p.Z
		}
		landmarks[i] = Point3D{X: p.X - 0.5, Y: p.Y - 0.5, Z: z}
	}
	return HandFrame{Handedness: h.Handedness, Score: h.Score, Landmarks: landmarks}
}
