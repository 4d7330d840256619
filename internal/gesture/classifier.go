package gesture

import (
	"math"

	"github.com/ayusman/mudra/internal/detector"
)

// Source names which classifier produced a Result.
type Source string

const (
	SourceGeometric Source = "geometric"
	SourceTemplate  Source = "template"
)

// Result is the outcome of classifying one frame.
type Result struct {
	Symbol     Symbol  `json:"symbol"`
	Confidence float64 `json:"confidence"` // raw confidence, 0-1
	Source     Source  `json:"source,omitempty"`
}

// Predictor is an optional secondary classifier working on the same hand.
type Predictor interface {
	// Predict returns the best symbol for hand and a confidence in [0,1].
	Predict(hand *detector.HandLandmarks) (Symbol, float64)
}

// Classifier maps a hand pose to a letter using ordered geometric rules.
// It is stateless and safe for concurrent use.
type Classifier struct {
	normalizer   *detector.Normalizer
	thresholds   Thresholds
	secondary    Predictor
	secondaryMin float64
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithSecondary lets p override the geometric result when its confidence is
// at least minConfidence.
func WithSecondary(p Predictor, minConfidence float64) Option {
	return func(c *Classifier) {
		c.secondary = p
		c.secondaryMin = minConfidence
	}
}

// WithThresholds replaces the default thresholds.
func WithThresholds(t Thresholds) Option {
	return func(c *Classifier) {
		c.thresholds = t
	}
}

// NewClassifier creates a Classifier. A nil normalizer uses the reference
// 640x480 frame.
func NewClassifier(n *detector.Normalizer, opts ...Option) *Classifier {
	if n == nil {
		n = detector.NewNormalizer(0, 0, false)
	}
	c := &Classifier{
		normalizer: n,
		thresholds: DefaultThresholds(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify reads the first hand of a tick. No hand yields None and a hand
// that cannot be normalized yields Unknown.
func (c *Classifier) Classify(hands []detector.HandFrame) Result {
	if len(hands) == 0 {
		return Result{Symbol: None, Source: SourceGeometric}
	}

	views, ok := c.normalizer.Normalize(hands[0])
	if !ok {
		return Result{Symbol: Unknown, Source: SourceGeometric}
	}

	result := c.ClassifyPixels(&views.Pixel)

	if c.secondary != nil {
		if sym, conf := c.secondary.Predict(&views.Pixel); sym.IsLetter() && conf >= c.secondaryMin {
			return Result{Symbol: sym, Confidence: conf, Source: SourceTemplate}
		}
	}
	return result
}

// ClassifyPixels runs the geometric rules on pixel-space landmarks.
func (c *Classifier) ClassifyPixels(hand *detector.HandLandmarks) Result {
	if hand == nil {
		return Result{Symbol: None, Source: SourceGeometric}
	}

	s := newShape(hand, c.thresholds.forHand(hand.HandScale()))
	for _, r := range rules {
		if r.match(s) {
			return Result{Symbol: Letter(r.letter), Confidence: hand.Score, Source: SourceGeometric}
		}
	}
	return Result{Symbol: Unknown, Confidence: hand.Score, Source: SourceGeometric}
}

// Finger slots in the shape arrays.
const (
	index = iota
	middle
	ring
	pinky
)

var fingerMCP = [4]int{detector.IndexMCP, detector.MiddleMCP, detector.RingMCP, detector.PinkyMCP}

// shape is the per-frame feature set every rule reads.
type shape struct {
	p  *[detector.NumLandmarks]detector.Point3D
	th Thresholds

	ext    [4]bool // long and pointing up, away from the palm
	long   [4]bool // long in any direction
	curled [4]bool
	curved [4]bool
	angle  [4]float64

	thumbExt   bool
	thumbAngle float64
}

func newShape(h *detector.HandLandmarks, th Thresholds) *shape {
	s := &shape{p: &h.Points, th: th}
	for f, mcp := range fingerMCP {
		base, tip := h.Points[mcp], h.Points[mcp+3]
		length := detector.Distance2D(tip, base)
		s.long[f] = length > th.FingerExtended
		s.ext[f] = s.long[f] && tip.Y < base.Y
		s.curled[f] = length <= th.Curl
		s.curved[f] = length > th.Curl && length <= th.FingerExtended
		s.angle[f] = direction(base, tip)
	}
	thumbMCP, thumbTip := h.Points[detector.ThumbMCP], h.Points[detector.ThumbTip]
	s.thumbExt = detector.Distance2D(thumbTip, thumbMCP) > th.ThumbExtended
	s.thumbAngle = direction(thumbMCP, thumbTip)
	return s
}

// direction returns the angle from base to tip in degrees, counterclockwise
// from the +x axis with up positive, in [-180, 180].
func direction(base, tip detector.Point3D) float64 {
	return math.Atan2(-(tip.Y - base.Y), tip.X-base.X) * 180 / math.Pi
}

func upward(a float64) bool   { return a >= 67.5 && a <= 112.5 }
func downward(a float64) bool { return a >= -112.5 && a <= -67.5 }

func horizontal(a float64) bool {
	a = math.Abs(a)
	return a <= 22.5 || a >= 157.5
}

func diagonal(a float64) bool {
	a = math.Abs(a)
	return (a > 22.5 && a < 67.5) || (a > 112.5 && a < 157.5)
}

func (s *shape) mcp(f int) detector.Point3D { return s.p[fingerMCP[f]] }
func (s *shape) pip(f int) detector.Point3D { return s.p[fingerMCP[f]+1] }
func (s *shape) tip(f int) detector.Point3D { return s.p[fingerMCP[f]+3] }
func (s *shape) thumbTip() detector.Point3D { return s.p[detector.ThumbTip] }

func (s *shape) fist() bool {
	return s.curled[index] && s.curled[middle] && s.curled[ring] && s.curled[pinky]
}

// thumbBetween reports whether the thumb tip lies between two landmarks on x.
func (s *shape) thumbBetween(a, b int) bool {
	x := s.thumbTip().X
	lo, hi := math.Min(s.p[a].X, s.p[b].X), math.Max(s.p[a].X, s.p[b].X)
	return x >= lo && x <= hi
}

// thumbAcross reports whether the thumb is folded across the palm.
func (s *shape) thumbAcross() bool {
	return s.thumbBetween(detector.IndexMCP, detector.PinkyMCP)
}

func (s *shape) touching(a, b detector.Point3D) bool {
	return detector.Distance2D(a, b) < s.th.Touch
}

// only reports whether exactly the given fingers are extended.
func (s *shape) only(fingers ...int) bool {
	want := [4]bool{}
	for _, f := range fingers {
		want[f] = true
	}
	return s.ext == want
}

func (s *shape) tipGap() float64 {
	return math.Abs(s.tip(index).X - s.tip(middle).X)
}

func (s *shape) crossed() bool {
	tipOrder := s.tip(index).X - s.tip(middle).X
	baseOrder := s.mcp(index).X - s.mcp(middle).X
	return tipOrder*baseOrder < 0 || s.tipGap() < s.th.CrossGap
}

func (s *shape) hooked() bool {
	base, pip, tip := s.mcp(index), s.pip(index), s.tip(index)
	path := detector.Distance2D(tip, pip) + detector.Distance2D(pip, base)
	if path == 0 {
		return false
	}
	return tip.Y < base.Y &&
		base.Y-pip.Y > s.th.HookRise &&
		detector.Distance2D(tip, base)/path < s.th.HookRatio
}

type rule struct {
	letter byte
	match  func(s *shape) bool
}

// rules are evaluated in order and the first match wins. Earlier rules take
// priority over later ones that share an extension pattern.
var rules = []rule{
	{'X', func(s *shape) bool {
		return !s.ext[index] && s.hooked() && s.curled[middle] && s.curled[ring] && s.curled[pinky]
	}},

	// Closed fist, split by where the thumb sits.
	{'A', func(s *shape) bool { return s.fist() && !s.thumbAcross() }},
	{'S', func(s *shape) bool {
		if !s.fist() || !s.thumbAcross() {
			return false
		}
		front := math.Inf(1)
		for f := index; f <= pinky; f++ {
			front = math.Min(front, s.tip(f).Z)
		}
		return s.thumbTip().Z < front
	}},
	{'E', func(s *shape) bool {
		if !s.fist() || !s.thumbAcross() {
			return false
		}
		lowest := math.Inf(-1)
		for f := index; f <= pinky; f++ {
			lowest = math.Max(lowest, s.tip(f).Y)
		}
		return s.thumbTip().Y > lowest
	}},
	{'M', func(s *shape) bool { return s.fist() && s.thumbBetween(detector.RingMCP, detector.PinkyMCP) }},
	{'N', func(s *shape) bool { return s.fist() && s.thumbBetween(detector.MiddleMCP, detector.RingMCP) }},
	{'T', func(s *shape) bool { return s.fist() && s.thumbBetween(detector.IndexMCP, detector.MiddleMCP) }},

	// Circles.
	{'O', func(s *shape) bool {
		return s.curved[index] && !s.ext[middle] && !s.ext[ring] && !s.ext[pinky] &&
			s.touching(s.thumbTip(), s.tip(index))
	}},
	{'C', func(s *shape) bool {
		gap := detector.Distance2D(s.thumbTip(), s.tip(index))
		return s.curved[index] && s.curved[middle] && gap >= s.th.Touch && gap <= s.th.Open && !s.thumbAcross()
	}},
	{'F', func(s *shape) bool {
		return s.only(middle, ring, pinky) && s.touching(s.thumbTip(), s.tip(index))
	}},

	// Raised fingers.
	{'B', func(s *shape) bool { return s.only(index, middle, ring, pinky) && !s.thumbExt }},
	{'W', func(s *shape) bool { return s.only(index, middle, ring) }},
	{'K', func(s *shape) bool { return s.only(index, middle) && s.touching(s.thumbTip(), s.pip(middle)) }},
	{'R', func(s *shape) bool { return s.only(index, middle) && s.crossed() }},
	{'V', func(s *shape) bool { return s.only(index, middle) && s.tipGap() >= s.th.Spread }},
	{'U', func(s *shape) bool { return s.only(index, middle) }},
	{'D', func(s *shape) bool {
		return s.only(index) && upward(s.angle[index]) && s.touching(s.thumbTip(), s.tip(middle))
	}},
	{'L', func(s *shape) bool {
		return s.only(index) && upward(s.angle[index]) && s.thumbExt && horizontal(s.thumbAngle)
	}},
	{'Z', func(s *shape) bool {
		return s.long[index] && diagonal(s.angle[index]) && !s.long[middle] && !s.long[ring] && !s.long[pinky]
	}},
	{'Y', func(s *shape) bool { return s.only(pinky) && s.thumbExt }},
	{'I', func(s *shape) bool { return s.only(pinky) && !s.thumbExt }},

	// Sideways and downward pointing.
	{'J', func(s *shape) bool {
		return s.long[pinky] && horizontal(s.angle[pinky]) && !s.long[index] && !s.long[middle] && !s.long[ring]
	}},
	{'H', func(s *shape) bool {
		return s.long[index] && s.long[middle] && horizontal(s.angle[index]) && horizontal(s.angle[middle])
	}},
	{'G', func(s *shape) bool {
		return s.long[index] && horizontal(s.angle[index]) && !s.long[middle] && s.thumbExt
	}},
	{'P', func(s *shape) bool { return s.long[index] && s.long[middle] && downward(s.angle[middle]) }},
	{'Q', func(s *shape) bool { return s.long[index] && downward(s.angle[index]) && !s.long[middle] }},
}
