// Package render draws the game overlay onto camera frames and shows them.
package render

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// SpriteSize is the side length targets are drawn at.
const SpriteSize = 50

// ErrAssetLoad is returned when the target image is missing or cannot be decoded.
var ErrAssetLoad = errors.New("asset load failed")

// Sprite is a square BGR image blitted centered on a point.
type Sprite struct {
	mat gocv.Mat
}

// LoadSprite reads the image at path and resizes it to size x size.
// The caller must Close the sprite.
func LoadSprite(path string, size int) (*Sprite, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: sprite size %d", ErrAssetLoad, size)
	}

	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		img.Close()
		return nil, fmt.Errorf("%w: cannot read %s", ErrAssetLoad, path)
	}
	defer img.Close()

	resized := gocv.NewMat()
	if err := gocv.Resize(img, &resized, image.Pt(size, size), 0, 0, gocv.InterpolationLinear); err != nil {
		resized.Close()
		return nil, fmt.Errorf("%w: resize %s: %w", ErrAssetLoad, path, err)
	}

	return &Sprite{mat: resized}, nil
}

// Size returns the sprite dimensions.
func (s *Sprite) Size() image.Point {
	return image.Pt(s.mat.Cols(), s.mat.Rows())
}

// Draw copies the sprite onto dst so that its center lands on center.
// Parts falling outside dst are clipped.
func (s *Sprite) Draw(dst *gocv.Mat, center image.Point) {
	size := s.Size()
	topLeft := center.Sub(size.Div(2))

	target := image.Rectangle{Min: topLeft, Max: topLeft.Add(size)}
	visible := target.Intersect(image.Rect(0, 0, dst.Cols(), dst.Rows()))
	if visible.Empty() {
		return
	}

	src := s.mat.Region(visible.Sub(topLeft))
	defer src.Close()
	roi := dst.Region(visible)
	defer roi.Close()

	src.CopyTo(&roi)
}

// Close releases the sprite image.
func (s *Sprite) Close() error {
	return s.mat.Close()
}
