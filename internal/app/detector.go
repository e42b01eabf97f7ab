package app

import (
	"errors"
	"fmt"
	"os"

	"github.com/ayusman/handpop/internal/config"
	"github.com/ayusman/handpop/internal/detector"
	"github.com/ayusman/handpop/internal/monitoring"
)

// OpenDetector builds the landmark source the config asks for: a recording
// when ReplayPath is set, otherwise the MediaPipe service. When the service
// is not installed the game still runs with a detector that never sees a
// hand. RecordPath wraps the result so every detection is appended to a file.
func OpenDetector(cfg config.Config) (detector.Detector, error) {
	var d detector.Detector

	if cfg.ReplayPath != "" {
		replay, err := detector.OpenReplay(cfg.ReplayPath, cfg.ReplayLoop)
		if err != nil {
			return nil, err
		}
		monitoring.Logf("Replaying %d frames from %s", replay.Len(), cfg.ReplayPath)
		d = replay
	} else if mp, err := detector.NewMediaPipeDetector(cfg.Detector); err == nil {
		monitoring.Logf("Using MediaPipe hand detection")
		d = mp
	} else {
		monitoring.Logf("MediaPipe not available (%v), using mock detector", err)
		d = detector.NewMockDetector()
	}

	if cfg.RecordPath == "" {
		return d, nil
	}

	f, err := os.OpenFile(cfg.RecordPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("open recording: %w", err)
	}
	monitoring.Logf("Recording landmarks to %s", cfg.RecordPath)
	return &recordingFile{RecordingDetector: detector.NewRecordingDetector(d, f), file: f}, nil
}

// recordingFile closes the recording file along with the detector.
type recordingFile struct {
	*detector.RecordingDetector
	file *os.File
}

func (r *recordingFile) Close() error {
	return errors.Join(r.RecordingDetector.Close(), r.file.Close())
}
