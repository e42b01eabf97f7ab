package detector

import (
	"errors"
	"image"
	"math"
	"strings"
)

// ErrNoHandDetected is returned when geometry is requested for a frame without a hand.
// It is recoverable: callers skip per-hand work for that frame.
var ErrNoHandDetected = errors.New("no hand detected")

// BoundingBox is the tight pixel envelope of a hand's landmarks. Bounds are inclusive.
type BoundingBox struct {
	XMin int `json:"xmin"`
	YMin int `json:"ymin"`
	XMax int `json:"xmax"`
	YMax int `json:"ymax"`
}

// Rect converts the box to an image.Rectangle covering every boundary pixel.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.XMin, b.YMin, b.XMax+1, b.YMax+1)
}

// Pad returns the box grown by n pixels on every side.
func (b BoundingBox) Pad(n int) BoundingBox {
	return BoundingBox{XMin: b.XMin - n, YMin: b.YMin - n, XMax: b.XMax + n, YMax: b.YMax + n}
}

// FingerState holds one extension flag per digit: thumb, index, middle, ring, little.
type FingerState [5]bool

// Ints returns the state as a 0/1 vector.
func (f FingerState) Ints() []int {
	out := make([]int, len(f))
	for i, up := range f {
		if up {
			out[i] = 1
		}
	}
	return out
}

// Count returns the number of extended digits.
func (f FingerState) Count() int {
	n := 0
	for _, up := range f {
		if up {
			n++
		}
	}
	return n
}

func (f FingerState) String() string {
	var sb strings.Builder
	for _, up := range f {
		if up {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// PixelHand is one hand mapped into image pixel space.
type PixelHand struct {
	Points     []image.Point
	Box        BoundingBox
	Handedness string
}

// MapLandmarks converts normalized landmarks into pixel coordinates for an image of
// the given size and computes their bounding box. Coordinates are rounded, not
// clamped: a landmark reported off-frame stays off-frame.
func MapLandmarks(hand *HandLandmarks, width, height int) (*PixelHand, error) {
	if hand == nil {
		return nil, ErrNoHandDetected
	}

	points := make([]image.Point, NumLandmarks)
	for i, p := range hand.Points {
		points[i] = image.Point{
			X: int(math.Round(p.X * float64(width))),
			Y: int(math.Round(p.Y * float64(height))),
		}
	}

	box, err := BoundingBoxOf(points)
	if err != nil {
		return nil, err
	}

	return &PixelHand{
		Points:     points,
		Box:        box,
		Handedness: hand.Handedness,
	}, nil
}

// BoundingBoxOf returns the min/max envelope of points.
func BoundingBoxOf(points []image.Point) (BoundingBox, error) {
	if len(points) == 0 {
		return BoundingBox{}, ErrNoHandDetected
	}

	box := BoundingBox{
		XMin: points[0].X, YMin: points[0].Y,
		XMax: points[0].X, YMax: points[0].Y,
	}
	for _, p := range points[1:] {
		box.XMin = min(box.XMin, p.X)
		box.YMin = min(box.YMin, p.Y)
		box.XMax = max(box.XMax, p.X)
		box.YMax = max(box.YMax, p.Y)
	}
	return box, nil
}

// FingersUp reports which digits are extended.
//
// The thumb counts as extended when its tip lies to the right of the joint before
// it (x of landmark 4 > x of landmark 3). That is a left/right test tuned for a
// right hand facing the camera and reads inverted for a mirrored hand. The other
// four digits are extended when the tip is strictly above (smaller y) the joint two
// landmarks before it.
func FingersUp(points []image.Point) (FingerState, error) {
	var state FingerState
	if len(points) < NumLandmarks {
		return state, ErrNoHandDetected
	}

	thumb := TipIDs[0]
	state[0] = points[thumb].X > points[thumb-1].X

	for i := 1; i < len(TipIDs); i++ {
		tip := TipIDs[i]
		state[i] = points[tip].Y < points[tip-2].Y
	}

	return state, nil
}

// FingersUp reports which digits of the hand are extended.
func (h *PixelHand) FingersUp() (FingerState, error) {
	if h == nil {
		return FingerState{}, ErrNoHandDetected
	}
	return FingersUp(h.Points)
}

// IndexTip returns the index fingertip position.
func (h *PixelHand) IndexTip() (image.Point, error) {
	if h == nil || len(h.Points) <= IndexTip {
		return image.Point{}, ErrNoHandDetected
	}
	return h.Points[IndexTip], nil
}
