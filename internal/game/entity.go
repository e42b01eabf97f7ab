// Package game holds the target physics, hit rule and score for the pop game.
package game

import (
	"fmt"
	"image"
	"math/rand/v2"
)

// Entity is the bouncing target. Vel components are always -1 or +1.
type Entity struct {
	Pos    image.Point
	Vel    image.Point
	Radius int
}

// SpawnArea is the inclusive rectangle new target positions are drawn from.
type SpawnArea struct {
	MinX int `json:"min_x"`
	MinY int `json:"min_y"`
	MaxX int `json:"max_x"`
	MaxY int `json:"max_y"`
}

// Contains reports whether p lies inside the area, edges included.
func (a SpawnArea) Contains(p image.Point) bool {
	return p.X >= a.MinX && p.X <= a.MaxX && p.Y >= a.MinY && p.Y <= a.MaxY
}

// Validate rejects inverted areas.
func (a SpawnArea) Validate() error {
	if a.MinX > a.MaxX || a.MinY > a.MaxY {
		return fmt.Errorf("spawn area (%d,%d)-(%d,%d) is inverted", a.MinX, a.MinY, a.MaxX, a.MaxY)
	}
	return nil
}

// Within rejects areas that put a target closer than radius to a frame edge.
func (a SpawnArea) Within(width, height, radius int) error {
	if a.MinX < radius || a.MinY < radius || a.MaxX > width-radius || a.MaxY > height-radius {
		return fmt.Errorf("spawn area (%d,%d)-(%d,%d) does not fit a %dx%d frame with radius %d",
			a.MinX, a.MinY, a.MaxX, a.MaxY, width, height, radius)
	}
	return nil
}

// Clamp shrinks the area to [radius, width-radius] x [radius, height-radius].
// An axis with no room left collapses to the frame center.
func (a SpawnArea) Clamp(width, height, radius int) SpawnArea {
	a.MinX, a.MaxX = clampSpan(a.MinX, a.MaxX, radius, width-radius, width/2)
	a.MinY, a.MaxY = clampSpan(a.MinY, a.MaxY, radius, height-radius, height/2)
	return a
}

func clampSpan(lo, hi, min, max, center int) (int, int) {
	if min > max {
		return center, center
	}
	lo = clamp(lo, min, max)
	hi = clamp(hi, min, max)
	return lo, hi
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Spawner places targets uniformly at random inside an area.
type Spawner struct {
	base SpawnArea
	area SpawnArea
	rng  *rand.Rand
}

// NewSpawner returns a Spawner drawing from rng. A nil rng uses a randomly seeded source.
func NewSpawner(area SpawnArea, rng *rand.Rand) *Spawner {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Spawner{base: area, area: area, rng: rng}
}

// Area returns the spawn rectangle.
func (s *Spawner) Area() SpawnArea {
	return s.area
}

// Fit clamps the configured area to a frame of the given size and reports
// whether the area in use changed.
func (s *Spawner) Fit(width, height, radius int) bool {
	fitted := s.base.Clamp(width, height, radius)
	if fitted == s.area {
		return false
	}
	s.area = fitted
	return true
}

// Spawn creates a target with a random position and a random diagonal velocity.
func (s *Spawner) Spawn(radius int) Entity {
	return Entity{
		Pos:    s.position(),
		Vel:    image.Pt(s.sign(), s.sign()),
		Radius: radius,
	}
}

// Respawn moves e to a new random position. Velocity and radius are kept.
func (s *Spawner) Respawn(e Entity) Entity {
	e.Pos = s.position()
	return e
}

func (s *Spawner) position() image.Point {
	return image.Pt(
		s.area.MinX+s.rng.IntN(s.area.MaxX-s.area.MinX+1),
		s.area.MinY+s.rng.IntN(s.area.MaxY-s.area.MinY+1),
	)
}

func (s *Spawner) sign() int {
	if s.rng.IntN(2) == 0 {
		return -1
	}
	return 1
}
