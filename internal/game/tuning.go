package game

// Defaults for a 640x480 frame.
const (
	DefaultRadius = 25

	DefaultSpawnMinX = 50
	DefaultSpawnMinY = 50
	DefaultSpawnMaxX = 600
	DefaultSpawnMaxY = 400
)

// DefaultSpawnArea is where targets appear on a 640x480 frame.
var DefaultSpawnArea = SpawnArea{
	MinX: DefaultSpawnMinX,
	MinY: DefaultSpawnMinY,
	MaxX: DefaultSpawnMaxX,
	MaxY: DefaultSpawnMaxY,
}
