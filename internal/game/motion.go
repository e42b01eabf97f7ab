package game

// Advance moves e one step along its velocity and returns the result.
//
// Walls are checked after the move: if the new position touches or passes
// radius from an edge, that velocity component flips for the next step. The
// step that reached the wall is not undone, so x can dip to radius-1 before
// heading back.
func Advance(e Entity, width, height int) Entity {
	e.Pos = e.Pos.Add(e.Vel)

	if e.Pos.X <= e.Radius || e.Pos.X >= width-e.Radius {
		e.Vel.X = -e.Vel.X
	}
	if e.Pos.Y <= e.Radius || e.Pos.Y >= height-e.Radius {
		e.Vel.Y = -e.Vel.Y
	}

	return e
}
