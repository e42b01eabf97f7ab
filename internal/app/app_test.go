package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"gocv.io/x/gocv"

	"github.com/ayusman/handpop/internal/capture"
	"github.com/ayusman/handpop/internal/config"
	"github.com/ayusman/handpop/internal/detector"
	"github.com/ayusman/handpop/internal/game"
	"github.com/ayusman/handpop/internal/monitoring"
	"github.com/ayusman/handpop/internal/render"
	"github.com/ayusman/handpop/internal/store"
)

type harness struct {
	app      *App
	camera   *capture.MockCamera
	detector *detector.MockDetector
	display  *render.MockDisplay
	logs     *bytes.Buffer
}

func writeSprite(t *testing.T) string {
	t.Helper()
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 255, 0), 64, 64, gocv.MatTypeCV8UC3)
	defer img.Close()

	path := filepath.Join(t.TempDir(), "target.png")
	if !gocv.IMWrite(path, img) {
		t.Fatalf("IMWrite(%s) failed", path)
	}
	return path
}

// testConfig pins every target to the frame center so a hand pointing there
// hits on every frame.
func testConfig(t *testing.T) config.Config {
	cfg := config.Default()
	cfg.SpritePath = writeSprite(t)
	cfg.Spawn = game.SpawnArea{MinX: 320, MinY: 240, MaxX: 320, MaxY: 240}
	cfg.Seed = 42
	return cfg
}

func newHarness(t *testing.T, cfg config.Config, frames int, loop bool) *harness {
	t.Helper()

	var logs bytes.Buffer
	var logMu sync.Mutex
	prev := monitoring.Logf
	monitoring.SetLogger(func(format string, v ...interface{}) {
		logMu.Lock()
		defer logMu.Unlock()
		fmt.Fprintf(&logs, format+"\n", v...)
	})
	t.Cleanup(func() { monitoring.Logf = prev })

	mats := capture.BlankFrames(frames, 640, 480)
	t.Cleanup(func() {
		for _, m := range mats {
			m.Close()
		}
	})

	h := &harness{
		app:      New(cfg),
		camera:   capture.NewMockCamera(mats, loop),
		detector: detector.NewMockDetector(),
		display:  render.NewMockDisplay(),
		logs:     &logs,
	}
	h.app.SetCamera(h.camera)
	h.app.SetDetector(h.detector)
	h.app.SetDisplay(h.display)
	return h
}

func (h *harness) assertReleased(t *testing.T) {
	t.Helper()
	if h.camera.Closes() == 0 {
		t.Error("camera was not closed")
	}
	if !h.detector.Closed() {
		t.Error("detector was not closed")
	}
	if !h.display.Closed() {
		t.Error("display was not closed")
	}
}

func pointingAtCenter() []detector.HandLandmarks {
	return []detector.HandLandmarks{detector.PointingLandmarks(0.5, 0.5)}
}

func TestRun_FrameExhaustion(t *testing.T) {
	h := newHarness(t, testConfig(t), 3, false)

	err := h.app.Run(context.Background())

	if !errors.Is(err, capture.ErrFrameUnavailable) {
		t.Fatalf("Run() error = %v, want ErrFrameUnavailable", err)
	}
	if got := h.display.Shown(); got != 3 {
		t.Errorf("shown %d frames, want 3", got)
	}
	if got := h.app.Snapshot().Frame; got != 3 {
		t.Errorf("snapshot frame = %d, want 3", got)
	}
	h.assertReleased(t)
}

func TestRun_QuitKey(t *testing.T) {
	h := newHarness(t, testConfig(t), 2, true)
	h.display.PressAt(4, 'q')

	if err := h.app.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v, want nil", err)
	}
	if got := h.display.Shown(); got != 4 {
		t.Errorf("shown %d frames, want 4", got)
	}
	h.assertReleased(t)
}

func TestRun_OtherKeysDoNotQuit(t *testing.T) {
	h := newHarness(t, testConfig(t), 5, false)
	h.display.PressAt(1, 'x')
	h.display.PressAt(2, 'Q')

	err := h.app.Run(context.Background())

	if !errors.Is(err, capture.ErrFrameUnavailable) {
		t.Fatalf("Run() error = %v, want ErrFrameUnavailable", err)
	}
	if got := h.display.Shown(); got != 5 {
		t.Errorf("shown %d frames, want 5", got)
	}
}

func TestRun_MissingSprite(t *testing.T) {
	cfg := testConfig(t)
	cfg.SpritePath = filepath.Join(t.TempDir(), "missing.png")
	h := newHarness(t, cfg, 3, false)

	err := h.app.Run(context.Background())

	if !errors.Is(err, render.ErrAssetLoad) {
		t.Fatalf("Run() error = %v, want ErrAssetLoad", err)
	}
	if got := h.camera.Served(); got != 0 {
		t.Errorf("%d frames read before the sprite failed", got)
	}
	if got := h.detector.Calls(); got != 0 {
		t.Errorf("detector called %d times", got)
	}
	if !h.detector.Closed() {
		t.Error("detector was not closed")
	}
	if !h.display.Closed() {
		t.Error("display was not closed")
	}
}

func TestRun_NoDetector(t *testing.T) {
	h := newHarness(t, testConfig(t), 1, false)
	h.app.SetDetector(nil)

	if err := h.app.Run(context.Background()); err == nil {
		t.Fatal("expected error without a detector")
	}
}

func TestRun_ScoresHits(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	h := newHarness(t, testConfig(t), 5, false)
	h.detector.SetHands(pointingAtCenter())
	h.app.SetStore(s)

	err = h.app.Run(context.Background())
	if !errors.Is(err, capture.ErrFrameUnavailable) {
		t.Fatalf("Run() error = %v, want ErrFrameUnavailable", err)
	}

	snap := h.app.Snapshot()
	if snap.Score != 5 {
		t.Errorf("score = %d, want 5", snap.Score)
	}
	if snap.Fingers != "01000" {
		t.Errorf("fingers = %q, want 01000", snap.Fingers)
	}
	if snap.Fingertip == nil || snap.Fingertip.X != 320 || snap.Fingertip.Y != 240 {
		t.Errorf("fingertip = %v, want (320,240)", snap.Fingertip)
	}
	if !strings.Contains(h.logs.String(), "Target popped at (320, 240), score 1") {
		t.Errorf("hit not logged:\n%s", h.logs.String())
	}

	sessions, err := s.Sessions().List(0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("got %d sessions, want 1", len(sessions))
	}
	sess := sessions[0]
	if sess.ID != snap.SessionID {
		t.Errorf("session id = %s, snapshot has %s", sess.ID, snap.SessionID)
	}
	if sess.Score != 5 || sess.Frames != 5 || sess.EndReason != store.EndFrameUnavailable {
		t.Errorf("session = %+v", sess)
	}

	hits, err := s.Hits().ListBySession(sess.ID)
	if err != nil {
		t.Fatalf("ListBySession() error = %v", err)
	}
	if len(hits) != 5 {
		t.Fatalf("got %d hits, want 5", len(hits))
	}
	for i, hit := range hits {
		if hit.Score != i+1 || hit.Frame != int64(i+1) {
			t.Errorf("hit %d = score %d frame %d", i, hit.Score, hit.Frame)
		}
	}
}

func TestRun_NoHandNoScore(t *testing.T) {
	h := newHarness(t, testConfig(t), 4, false)

	h.app.Run(context.Background())

	snap := h.app.Snapshot()
	if snap.Score != 0 {
		t.Errorf("score = %d, want 0", snap.Score)
	}
	if snap.Fingertip != nil {
		t.Errorf("fingertip = %v, want none", snap.Fingertip)
	}
}

func TestRun_TargetStaysInsideSmallerFrames(t *testing.T) {
	cfg := config.Default()
	cfg.SpritePath = writeSprite(t)
	cfg.Seed = 7
	h := newHarness(t, cfg, 1, false)

	// The camera delivers less than the configured 640x480.
	small := capture.BlankFrames(300, 320, 240)
	t.Cleanup(func() {
		for _, m := range small {
			m.Close()
		}
	})
	h.camera = capture.NewMockCamera(small, false)
	h.app.SetCamera(h.camera)

	sink := &recordingSink{}
	h.app.AddSnapshotSink(sink)
	h.app.Run(context.Background())

	if len(sink.snapshots) != 300 {
		t.Fatalf("got %d snapshots, want 300", len(sink.snapshots))
	}
	r := cfg.Radius
	for _, snap := range sink.snapshots {
		p := snap.Target
		if p.X < r-1 || p.X > 320-r+1 || p.Y < r-1 || p.Y > 240-r+1 {
			t.Fatalf("frame %d: target at %v outside a 320x240 frame", snap.Frame, p)
		}
	}
}

func TestRun_HandIndexBeyondDetectedHands(t *testing.T) {
	cfg := testConfig(t)
	cfg.HandIndex = 1
	h := newHarness(t, cfg, 3, false)
	h.detector.SetHands(pointingAtCenter())

	h.app.Run(context.Background())

	if got := h.app.Snapshot().Score; got != 0 {
		t.Errorf("score = %d, want 0 when the selected hand is missing", got)
	}
}

func TestRun_DetectorErrorIsHandless(t *testing.T) {
	h := newHarness(t, testConfig(t), 3, false)
	h.detector.SetHands(pointingAtCenter())
	h.detector.SetError(errors.New("service crashed"))

	err := h.app.Run(context.Background())

	if !errors.Is(err, capture.ErrFrameUnavailable) {
		t.Fatalf("Run() error = %v, want ErrFrameUnavailable", err)
	}
	if got := h.detector.Calls(); got != 3 {
		t.Errorf("detector called %d times, want 3", got)
	}
	if got := h.app.Snapshot().Score; got != 0 {
		t.Errorf("score = %d, want 0", got)
	}
	if !strings.Contains(h.logs.String(), "service crashed") {
		t.Error("detector error was not logged")
	}
}

func TestRun_Paused(t *testing.T) {
	h := newHarness(t, testConfig(t), 3, false)
	h.detector.SetHands(pointingAtCenter())
	h.app.SetEnabled(false)

	h.app.Run(context.Background())

	snap := h.app.Snapshot()
	if snap.Score != 0 || snap.Frame != 0 {
		t.Errorf("paused game advanced: score %d frame %d", snap.Score, snap.Frame)
	}
	if !snap.Paused {
		t.Error("snapshot should report paused")
	}
	if got := h.display.Shown(); got != 3 {
		t.Errorf("shown %d frames, want 3 while paused", got)
	}
}

func TestRun_ContextCancelled(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	h := newHarness(t, testConfig(t), 1, true)
	h.app.SetStore(s)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := h.app.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	h.assertReleased(t)

	sessions, err := s.Sessions().List(0)
	if err != nil || len(sessions) != 1 {
		t.Fatalf("List() = %d sessions, %v", len(sessions), err)
	}
	if sessions[0].EndReason != store.EndCancelled {
		t.Errorf("end reason = %q, want %q", sessions[0].EndReason, store.EndCancelled)
	}
}

func TestRun_ReplayEnds(t *testing.T) {
	h := newHarness(t, testConfig(t), 1, true)

	recording := `{"hands":[]}` + "\n" + `{"hands":[]}` + "\n"
	replay, err := detector.NewReplayDetector(strings.NewReader(recording), false)
	if err != nil {
		t.Fatalf("NewReplayDetector() error = %v", err)
	}
	h.app.SetDetector(replay)

	if err := h.app.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v, want nil", err)
	}
	if got := h.display.Shown(); got != 2 {
		t.Errorf("shown %d frames, want 2", got)
	}
}

type recordingSink struct {
	mu        sync.Mutex
	snapshots []Snapshot
	frames    [][]byte
}

func (s *recordingSink) PublishSnapshot(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, snap)
}

func (s *recordingSink) PublishFrame(jpeg []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, jpeg)
}

func TestRun_PublishesToSinks(t *testing.T) {
	h := newHarness(t, testConfig(t), 3, false)
	h.detector.SetHands(pointingAtCenter())

	sink := &recordingSink{}
	h.app.AddSnapshotSink(sink)
	h.app.AddFrameSink(sink)

	h.app.Run(context.Background())

	if len(sink.snapshots) != 3 || len(sink.frames) != 3 {
		t.Fatalf("got %d snapshots and %d frames, want 3 each", len(sink.snapshots), len(sink.frames))
	}
	for i, snap := range sink.snapshots {
		if snap.Frame != int64(i+1) || snap.Score != i+1 || !snap.Hit {
			t.Errorf("snapshot %d = %+v", i, snap)
		}
	}
	if sink.snapshots[0].FPS != 0 {
		t.Errorf("first frame FPS = %d, want 0", sink.snapshots[0].FPS)
	}
	for i, f := range sink.frames {
		if len(f) < 2 || f[0] != 0xFF || f[1] != 0xD8 {
			t.Errorf("frame %d is not a JPEG", i)
		}
	}
}

func TestOpenDetector_ReplayAndRecord(t *testing.T) {
	dir := t.TempDir()
	replayPath := filepath.Join(dir, "in.jsonl")
	if err := os.WriteFile(replayPath, []byte(`{"hands":[]}`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.ReplayPath = replayPath
	cfg.RecordPath = filepath.Join(dir, "out.jsonl")

	d, err := OpenDetector(cfg)
	if err != nil {
		t.Fatalf("OpenDetector() error = %v", err)
	}
	if _, err := d.Detect(nil); err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	out, err := os.ReadFile(cfg.RecordPath)
	if err != nil {
		t.Fatalf("read recording: %v", err)
	}
	if got := strings.TrimSpace(string(out)); got != `{"hands":[]}` {
		t.Errorf("recording = %q", got)
	}
}

func TestOpenDetector_MissingReplay(t *testing.T) {
	cfg := config.Default()
	cfg.ReplayPath = filepath.Join(t.TempDir(), "absent.jsonl")

	if _, err := OpenDetector(cfg); err == nil {
		t.Error("expected error for a missing recording")
	}
}
