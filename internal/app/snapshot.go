package app

import (
	"image"
	"time"
)

// Snapshot is the game state after one frame, copied out for observers.
type Snapshot struct {
	SessionID  string       `json:"session_id,omitempty"`
	Frame      int64        `json:"frame"`
	Score      int          `json:"score"`
	FPS        int          `json:"fps"`
	Target     image.Point  `json:"target"`
	Radius     int          `json:"radius"`
	Fingertip  *image.Point `json:"fingertip,omitempty"`
	Fingers    string       `json:"fingers,omitempty"`
	Handedness string       `json:"handedness,omitempty"`
	Hit        bool         `json:"hit"`
	Paused     bool         `json:"paused"`
	Time       time.Time    `json:"time"`
}

// SnapshotSink receives a Snapshot after every frame. Implementations must
// not block; they run on the game loop.
type SnapshotSink interface {
	PublishSnapshot(Snapshot)
}

// FrameSink receives every rendered frame as JPEG. The slice is not reused.
type FrameSink interface {
	PublishFrame(jpeg []byte)
}
