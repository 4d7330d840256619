package detector

// Reference letter poses of a right hand, palm toward the camera, laid out in
// pixel space of the 640x480 reference frame. They are shared by tests and
// the demo mode of the service.

type fingerPose int

const (
	poseUp fingerPose = iota
	poseCurled
	poseCurved
	poseHorizontal
	poseDown
	poseDiagonal
)

// offsets of PIP, DIP and tip from the MCP for each pose.
var fingerOffsets = map[fingerPose][3]Point3D{
	poseUp:         {{X: 0, Y: -35}, {X: 0, Y: -60}, {X: 0, Y: -85}},
	poseCurled:     {{X: 0, Y: -20}, {X: 0, Y: -5}, {X: 0, Y: 15}},
	poseCurved:     {{X: 15, Y: -30}, {X: 35, Y: -35}, {X: 45, Y: -25}},
	poseHorizontal: {{X: 35, Y: 0}, {X: 60, Y: 0}, {X: 85, Y: 0}},
	poseDown:       {{X: 0, Y: 35}, {X: 0, Y: 60}, {X: 0, Y: 85}},
	poseDiagonal:   {{X: 25, Y: -25}, {X: 45, Y: -45}, {X: 60, Y: -60}},
}

// thumb MCP, IP and tip positions.
var (
	thumbSide      = [3]Point3D{{X: 385, Y: 355}, {X: 415, Y: 355}, {X: 445, Y: 355}}
	thumbAlongside = [3]Point3D{{X: 375, Y: 350}, {X: 370, Y: 325}, {X: 368, Y: 305}}
	thumbFolded    = [3]Point3D{{X: 370, Y: 360}, {X: 345, Y: 345}, {X: 330, Y: 340}}
	thumbLoop      = [3]Point3D{{X: 375, Y: 350}, {X: 385, Y: 315}, {X: 385, Y: 285}}
	thumbCup       = [3]Point3D{{X: 385, Y: 355}, {X: 410, Y: 335}, {X: 420, Y: 310}}
	thumbOnMiddle  = [3]Point3D{{X: 375, Y: 350}, {X: 350, Y: 335}, {X: 330, Y: 315}}
	thumbBetween   = [3]Point3D{{X: 375, Y: 350}, {X: 345, Y: 300}, {X: 318, Y: 262}}
)

type poseBuilder struct {
	h HandLandmarks
}

func newPose() *poseBuilder {
	b := &poseBuilder{h: HandLandmarks{Handedness: "Right", Score: 0.95}}
	b.h.Points[Wrist] = Point3D{X: 320, Y: 400}
	b.h.Points[ThumbCMC] = Point3D{X: 355, Y: 385}
	b.h.Points[IndexMCP] = Point3D{X: 350, Y: 300}
	b.h.Points[MiddleMCP] = Point3D{X: 320, Y: 295}
	b.h.Points[RingMCP] = Point3D{X: 292, Y: 300}
	b.h.Points[PinkyMCP] = Point3D{X: 266, Y: 310}
	return b
}

func (b *poseBuilder) fingers(index, middle, ring, pinky fingerPose) *poseBuilder {
	for i, pose := range []fingerPose{index, middle, ring, pinky} {
		mcp := IndexMCP + 4*i
		base := b.h.Points[mcp]
		for j, off := range fingerOffsets[pose] {
			b.h.Points[mcp+1+j] = Point3D{X: base.X + off.X, Y: base.Y + off.Y}
		}
	}
	return b
}

// joints overrides the PIP, DIP and tip of the finger whose MCP index is given.
func (b *poseBuilder) joints(mcp int, pip, dip, tip Point3D) *poseBuilder {
	b.h.Points[mcp+1] = pip
	b.h.Points[mcp+2] = dip
	b.h.Points[mcp+3] = tip
	return b
}

func (b *poseBuilder) thumb(pts [3]Point3D) *poseBuilder {
	b.h.Points[ThumbMCP] = pts[0]
	b.h.Points[ThumbIP] = pts[1]
	b.h.Points[ThumbTip] = pts[2]
	return b
}

func (b *poseBuilder) thumbTip(p Point3D) *poseBuilder {
	b.h.Points[ThumbMCP] = Point3D{X: 370, Y: 360}
	b.h.Points[ThumbIP] = Point3D{X: 345, Y: 345}
	b.h.Points[ThumbTip] = p
	return b
}

// fingertipDepth sets the z of all four fingertips.
func (b *poseBuilder) fingertipDepth(z float64) *poseBuilder {
	for _, tip := range []int{IndexTip, MiddleTip, RingTip, PinkyTip} {
		b.h.Points[tip].Z = z
	}
	return b
}

var letterPoses = map[byte]func() HandLandmarks{
	'A': func() HandLandmarks {
		return newPose().fingers(poseCurled, poseCurled, poseCurled, poseCurled).thumb(thumbAlongside).h
	},
	'B': func() HandLandmarks { return newPose().fingers(poseUp, poseUp, poseUp, poseUp).thumb(thumbFolded).h },
	'C': func() HandLandmarks {
		return newPose().fingers(poseCurved, poseCurved, poseCurved, poseCurved).thumb(thumbCup).h
	},
	'D': func() HandLandmarks {
		return newPose().fingers(poseUp, poseCurled, poseCurled, poseCurled).thumb(thumbOnMiddle).h
	},
	'E': func() HandLandmarks {
		return newPose().fingers(poseCurled, poseCurled, poseCurled, poseCurled).
			thumbTip(Point3D{X: 315, Y: 335}).fingertipDepth(-20).h
	},
	'F': func() HandLandmarks { return newPose().fingers(poseCurved, poseUp, poseUp, poseUp).thumb(thumbLoop).h },
	'G': func() HandLandmarks {
		return newPose().fingers(poseHorizontal, poseCurled, poseCurled, poseCurled).thumb(thumbSide).h
	},
	'H': func() HandLandmarks {
		return newPose().fingers(poseHorizontal, poseHorizontal, poseCurled, poseCurled).thumb(thumbFolded).h
	},
	'I': func() HandLandmarks {
		return newPose().fingers(poseCurled, poseCurled, poseCurled, poseUp).thumb(thumbAlongside).h
	},
	'J': func() HandLandmarks {
		return newPose().fingers(poseCurled, poseCurled, poseCurled, poseHorizontal).thumb(thumbAlongside).h
	},
	'K': func() HandLandmarks {
		return newPose().fingers(poseUp, poseUp, poseCurled, poseCurled).
			joints(MiddleMCP, Point3D{X: 314, Y: 263}, Point3D{X: 309, Y: 240}, Point3D{X: 305, Y: 215}).
			thumb(thumbBetween).h
	},
	'L': func() HandLandmarks {
		return newPose().fingers(poseUp, poseCurled, poseCurled, poseCurled).thumb(thumbSide).h
	},
	'M': func() HandLandmarks {
		return newPose().fingers(poseCurled, poseCurled, poseCurled, poseCurled).
			thumbTip(Point3D{X: 280, Y: 305}).fingertipDepth(-20).h
	},
	'N': func() HandLandmarks {
		return newPose().fingers(poseCurled, poseCurled, poseCurled, poseCurled).
			thumbTip(Point3D{X: 305, Y: 305}).fingertipDepth(-20).h
	},
	'O': func() HandLandmarks {
		return newPose().fingers(poseCurved, poseCurved, poseCurved, poseCurved).thumb(thumbLoop).h
	},
	'P': func() HandLandmarks {
		return newPose().fingers(poseDown, poseDown, poseCurled, poseCurled).thumb(thumbSide).h
	},
	'Q': func() HandLandmarks {
		return newPose().fingers(poseDown, poseCurled, poseCurled, poseCurled).thumb(thumbSide).h
	},
	'R': func() HandLandmarks {
		return newPose().fingers(poseUp, poseUp, poseCurled, poseCurled).
			joints(IndexMCP, Point3D{X: 340, Y: 265}, Point3D{X: 328, Y: 240}, Point3D{X: 315, Y: 215}).
			joints(MiddleMCP, Point3D{X: 322, Y: 263}, Point3D{X: 324, Y: 240}, Point3D{X: 325, Y: 215}).
			thumb(thumbFolded).h
	},
	'S': func() HandLandmarks {
		return newPose().fingers(poseCurled, poseCurled, poseCurled, poseCurled).
			thumbTip(Point3D{X: 320, Y: 330, Z: -30}).h
	},
	'T': func() HandLandmarks {
		return newPose().fingers(poseCurled, poseCurled, poseCurled, poseCurled).
			thumbTip(Point3D{X: 335, Y: 305}).fingertipDepth(-20).h
	},
	'U': func() HandLandmarks {
		return newPose().fingers(poseUp, poseUp, poseCurled, poseCurled).thumb(thumbFolded).h
	},
	'V': func() HandLandmarks {
		return newPose().fingers(poseUp, poseUp, poseCurled, poseCurled).
			joints(IndexMCP, Point3D{X: 362, Y: 268}, Point3D{X: 372, Y: 243}, Point3D{X: 380, Y: 220}).
			joints(MiddleMCP, Point3D{X: 314, Y: 263}, Point3D{X: 309, Y: 240}, Point3D{X: 305, Y: 215}).
			thumb(thumbFolded).h
	},
	'W': func() HandLandmarks {
		return newPose().fingers(poseUp, poseUp, poseUp, poseCurled).thumb(thumbFolded).h
	},
	'X': func() HandLandmarks {
		return newPose().fingers(poseCurled, poseCurled, poseCurled, poseCurled).
			joints(IndexMCP, Point3D{X: 350, Y: 270}, Point3D{X: 360, Y: 255}, Point3D{X: 362, Y: 275}).
			thumb(thumbFolded).h
	},
	'Y': func() HandLandmarks {
		return newPose().fingers(poseCurled, poseCurled, poseCurled, poseUp).thumb(thumbSide).h
	},
	'Z': func() HandLandmarks {
		return newPose().fingers(poseDiagonal, poseCurled, poseCurled, poseCurled).thumb(thumbFolded).h
	},
}

// LetterPose returns the pixel-space reference pose for an uppercase letter.
func LetterPose(letter byte) (HandLandmarks, bool) {
	build, ok := letterPoses[letter]
	if !ok {
		return HandLandmarks{}, false
	}
	return build(), true
}

// LetterFrame returns the reference pose for letter as a raw HandFrame of
// the 640x480 reference frame. It panics on letters outside A-Z.
func LetterFrame(letter byte) HandFrame {
	pose, ok := LetterPose(letter)
	if !ok {
		panic("detector: no reference pose for " + string(letter))
	}
	return FrameFromPixels(pose, DefaultFrameWidth, DefaultFrameHeight)
}

// OpenPalmLandmarks returns a pixel-space open palm with every finger and the
// thumb extended. It is not a letter.
func OpenPalmLandmarks() HandLandmarks {
	return newPose().fingers(poseUp, poseUp, poseUp, poseUp).thumb(thumbSide).h
}
