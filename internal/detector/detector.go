package detector

import (
	"strconv"

	"gocv.io/x/gocv"
)

// Detector is the landmark source: given a color frame it returns zero or more hands.
type Detector interface {
	// Detect analyzes a video frame and returns detected hand landmarks.
	// Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
// Values are handed to the landmark service as-is.
type Config struct {
	// StaticMode treats every frame as an unrelated still image instead of tracking.
	StaticMode bool `json:"static_mode"`

	// MaxHands is the maximum number of hands to detect (default: 2).
	MaxHands int `json:"max_hands"`

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64 `json:"min_detection_confidence"`

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64 `json:"min_tracking_confidence"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		StaticMode:      false,
		MaxHands:        2,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
	}
}

// Args renders the config as command line arguments for the landmark service.
func (c Config) Args() []string {
	args := []string{
		"--max-hands", strconv.Itoa(c.MaxHands),
		"--min-detection", strconv.FormatFloat(c.MinConfidence, 'f', -1, 64),
		"--min-tracking", strconv.FormatFloat(c.MinTrackingConf, 'f', -1, 64),
	}
	if c.StaticMode {
		args = append(args, "--static-mode")
	}
	return args
}
