package detector

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/handpop/internal/monitoring"
)

// ErrReplayExhausted is returned by a non-looping ReplayDetector after its last frame.
var ErrReplayExhausted = errors.New("replay exhausted")

// frameRecord is one line of a landmark recording. It is the same shape the
// landmark service writes to stdout.
type frameRecord struct {
	Hands []jsonHand `json:"hands"`
}

// ReplayDetector plays back recorded landmark frames, one per Detect call,
// ignoring the image it is given.
type ReplayDetector struct {
	frames [][]HandLandmarks
	index  int
	loop   bool
	mu     sync.Mutex
}

// NewReplayDetector parses a JSON-lines recording. Blank lines are skipped.
func NewReplayDetector(r io.Reader, loop bool) (*ReplayDetector, error) {
	var frames [][]HandLandmarks

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		data := scanner.Bytes()
		if len(data) == 0 {
			continue
		}

		var rec frameRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("parse recording line %d: %w", line, err)
		}

		hands := make([]HandLandmarks, len(rec.Hands))
		for i, h := range rec.Hands {
			if len(h.Points) != NumLandmarks {
				return nil, fmt.Errorf("recording line %d: hand %d has %d points, want %d", line, i, len(h.Points), NumLandmarks)
			}
			hands[i] = h.toHandLandmarks()
		}
		frames = append(frames, hands)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}

	return &ReplayDetector{frames: frames, loop: loop}, nil
}

// OpenReplay loads a recording from a file.
func OpenReplay(path string, loop bool) (*ReplayDetector, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open recording: %w", err)
	}
	defer f.Close()
	return NewReplayDetector(f, loop)
}

// Detect returns the next recorded frame.
func (d *ReplayDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.index >= len(d.frames) {
		if !d.loop || len(d.frames) == 0 {
			return nil, ErrReplayExhausted
		}
		d.index = 0
	}

	hands := d.frames[d.index]
	d.index++
	return hands, nil
}

// Len returns the number of recorded frames.
func (d *ReplayDetector) Len() int {
	return len(d.frames)
}

// Close is a no-op.
func (d *ReplayDetector) Close() error {
	return nil
}

// RecordingDetector forwards to another Detector and appends every result to w
// in the format ReplayDetector reads.
type RecordingDetector struct {
	inner Detector
	w     io.Writer
	mu    sync.Mutex
}

// NewRecordingDetector wraps inner so its output is written to w.
func NewRecordingDetector(inner Detector, w io.Writer) *RecordingDetector {
	return &RecordingDetector{inner: inner, w: w}
}

// Detect runs the wrapped detector and records its hands.
func (d *RecordingDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	hands, err := d.inner.Detect(frame)
	if err != nil {
		return nil, err
	}

	rec := frameRecord{Hands: make([]jsonHand, len(hands))}
	for i, h := range hands {
		rec.Hands[i] = fromHandLandmarks(h)
	}
	line, err := json.Marshal(rec)
	if err != nil {
		monitoring.Logf("Error encoding recording: %v", err)
		return hands, nil
	}

	// A failed write loses a recorded frame, not the detection.
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.w.Write(append(line, '\n')); err != nil {
		monitoring.Logf("Error writing recording: %v", err)
	}
	return hands, nil
}

// Close closes the wrapped detector.
func (d *RecordingDetector) Close() error {
	return d.inner.Close()
}
