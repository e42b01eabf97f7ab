package game

import "image"

// Hit reports whether p touches the target.
//
// The test is an axis-aligned square of half-width Radius, edges included,
// even though the target is drawn as a circle. Corners of the square count.
func Hit(p image.Point, e Entity) bool {
	return abs(p.X-e.Pos.X) <= e.Radius && abs(p.Y-e.Pos.Y) <= e.Radius
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
