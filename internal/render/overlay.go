package render

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/handpop/internal/detector"
)

// Overlay geometry.
const (
	BoxPadding       = 20
	TipRingRadius    = 25
	TipRingThickness = 5
	JointRadius      = 15
)

// HUD text anchors.
var (
	ScoreOrigin = image.Pt(10, 50)
	FPSOrigin   = image.Pt(10, 100)
)

// Style holds the overlay colors.
type Style struct {
	Connection color.RGBA
	Landmark   color.RGBA
	Joint      color.RGBA
	Box        color.RGBA
	TipRing    color.RGBA
	Text       color.RGBA
}

// DefaultStyle returns the standard colors.
func DefaultStyle() Style {
	return Style{
		Connection: color.RGBA{R: 224, G: 224, B: 224, A: 255},
		Landmark:   color.RGBA{R: 255, A: 255},
		Joint:      color.RGBA{R: 255, B: 255, A: 255},
		Box:        color.RGBA{G: 255, A: 255},
		TipRing:    color.RGBA{G: 200, A: 255},
		Text:       color.RGBA{B: 255, A: 255},
	}
}

// Scene is everything drawn on one frame.
type Scene struct {
	Hand   *detector.PixelHand // nil when no hand was found
	Target image.Point
	Score  int
	FPS    int
}

// Overlay draws a Scene onto frames.
type Overlay struct {
	style  Style
	sprite *Sprite
}

// NewOverlay returns an Overlay that draws targets with sprite.
func NewOverlay(sprite *Sprite, style Style) *Overlay {
	return &Overlay{style: style, sprite: sprite}
}

// Draw renders the scene in place: hand skeleton and box, target sprite,
// score, fingertip ring, then the frame rate on top.
func (o *Overlay) Draw(frame *gocv.Mat, sc Scene) {
	if sc.Hand != nil {
		o.drawSkeleton(frame, sc.Hand)
	}
	if o.sprite != nil {
		o.sprite.Draw(frame, sc.Target)
	}
	o.drawText(frame, fmt.Sprintf("Score: %d", sc.Score), ScoreOrigin)
	if tip, err := sc.Hand.IndexTip(); err == nil {
		gocv.Circle(frame, tip, TipRingRadius, o.style.TipRing, TipRingThickness)
	}
	o.drawText(frame, fmt.Sprintf("FPS: %d", sc.FPS), FPSOrigin)
}

func (o *Overlay) drawSkeleton(frame *gocv.Mat, hand *detector.PixelHand) {
	if len(hand.Points) < detector.NumLandmarks {
		return
	}

	for _, c := range detector.HandConnections {
		gocv.Line(frame, hand.Points[c[0]], hand.Points[c[1]], o.style.Connection, 2)
	}
	for _, p := range hand.Points {
		gocv.Circle(frame, p, 2, o.style.Landmark, -1)
	}
	for _, p := range hand.Points {
		gocv.Circle(frame, p, JointRadius, o.style.Joint, -1)
	}

	gocv.Rectangle(frame, hand.Box.Pad(BoxPadding).Rect(), o.style.Box, 2)
}

func (o *Overlay) drawText(frame *gocv.Mat, text string, origin image.Point) {
	gocv.PutTextWithParams(frame, text, origin, gocv.FontHersheySimplex, 1, o.style.Text, 2, gocv.LineAA, false)
}
