package gesture

// Thresholds holds the pixel-space constants the letter rules were tuned
// against on a 640x480 frame.
type Thresholds struct {
	ThumbExtended  float64 `yaml:"thumb_extended"`  // thumb tip to thumb MCP
	FingerExtended float64 `yaml:"finger_extended"` // fingertip to MCP
	Curl           float64 `yaml:"curl"`            // fingertip to MCP at or below which a finger is curled
	Touch          float64 `yaml:"touch"`           // two tips closer than this are touching
	Open           float64 `yaml:"open"`            // widest thumb-index gap still read as a C
	Spread         float64 `yaml:"spread"`          // index-middle tip gap separating V from U
	CrossGap       float64 `yaml:"cross_gap"`       // tips closer than this on x count as crossed
	HookRise       float64 `yaml:"hook_rise"`       // PIP lift above the MCP for a hooked index
	HookRatio      float64 `yaml:"hook_ratio"`      // tip-to-base over joint path length, below which a finger is hooked

	// ScaleByHand multiplies every distance threshold by the ratio of the
	// observed wrist to middle-MCP distance to ReferenceHandScale.
	ScaleByHand        bool    `yaml:"scale_by_hand"`
	ReferenceHandScale float64 `yaml:"reference_hand_scale"`
}

// DefaultThresholds returns the reference constants.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ThumbExtended:      50,
		FingerExtended:     60,
		Curl:               35,
		Touch:              30,
		Open:               110,
		Spread:             40,
		CrossGap:           12,
		HookRise:           15,
		HookRatio:          0.75,
		ReferenceHandScale: 105,
	}
}

// forHand returns the thresholds to use for a hand of the given scale.
func (t Thresholds) forHand(handScale float64) Thresholds {
	if !t.ScaleByHand || t.ReferenceHandScale <= 0 || handScale <= 0 {
		return t
	}
	f := handScale / t.ReferenceHandScale
	t.ThumbExtended *= f
	t.FingerExtended *= f
	t.Curl *= f
	t.Touch *= f
	t.Open *= f
	t.Spread *= f
	t.CrossGap *= f
	t.HookRise *= f
	return t
}
