package game

import "image"

// State is the whole mutable game: the target, the score and the frame counter.
// The loop owns it and passes it to Step once per frame.
type State struct {
	Entity Entity
	Score  int
	Frame  int64
}

// NewState spawns the first target.
func NewState(sp *Spawner, radius int) State {
	return State{Entity: sp.Spawn(radius)}
}

// Step runs one frame of game logic: the target moves, then, if a fingertip
// was seen this frame, it is tested against the moved target. A hit scores a
// point and respawns the target. Step reports whether a hit happened.
func (s *State) Step(tip image.Point, hasTip bool, width, height int, sp *Spawner) bool {
	s.Frame++
	s.Entity = Advance(s.Entity, width, height)

	if !hasTip || !Hit(tip, s.Entity) {
		return false
	}

	s.Score++
	s.Entity = sp.Respawn(s.Entity)
	return true
}

// Fit adapts the spawner to the frame size and respawns the target if it is
// no longer inside the spawn area. It reports whether the target moved.
func (s *State) Fit(width, height int, sp *Spawner) bool {
	sp.Fit(width, height, s.Entity.Radius)
	if sp.Area().Contains(s.Entity.Pos) {
		return false
	}
	s.Entity = sp.Respawn(s.Entity)
	return true
}
