// Package app runs the pop game: it reads camera frames, finds the hand,
// moves the target and scores hits.
package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"

	"github.com/ayusman/handpop/internal/audio"
	"github.com/ayusman/handpop/internal/capture"
	"github.com/ayusman/handpop/internal/config"
	"github.com/ayusman/handpop/internal/detector"
	"github.com/ayusman/handpop/internal/game"
	"github.com/ayusman/handpop/internal/monitoring"
	"github.com/ayusman/handpop/internal/render"
	"github.com/ayusman/handpop/internal/store"
)

// App owns the game loop and every resource it uses.
type App struct {
	config config.Config

	camera   capture.Camera
	detector detector.Detector
	display  render.Display
	sound    audio.Player
	store    *store.Store
	source   string

	snapshotSinks []SnapshotSink
	frameSinks    []FrameSink

	enabled bool
	last    Snapshot
	mu      sync.RWMutex
}

// New creates an App. Collaborators not set before Run get defaults: the
// configured camera, a HighGUI window and no sound. A detector must be set.
func New(cfg config.Config) *App {
	return &App{
		config:  cfg,
		enabled: true,
		source:  fmt.Sprintf("camera:%d", cfg.CameraID),
	}
}

// SetCamera sets the frame source.
func (a *App) SetCamera(c capture.Camera) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.camera = c
}

// SetDetector sets the hand detector implementation to use.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// SetDisplay sets where rendered frames are shown.
func (a *App) SetDisplay(d render.Display) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.display = d
}

// SetSound sets the hit sound player.
func (a *App) SetSound(p audio.Player) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sound = p
}

// SetStore enables session history. The store is not closed by Run.
func (a *App) SetStore(s *store.Store) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.store = s
}

// SetSource labels the session's frame source in the history.
func (a *App) SetSource(source string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.source = source
}

// AddSnapshotSink registers s to receive a Snapshot after every frame.
func (a *App) AddSnapshotSink(s SnapshotSink) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.snapshotSinks = append(a.snapshotSinks, s)
}

// AddFrameSink registers s to receive every rendered frame as JPEG.
func (a *App) AddFrameSink(s FrameSink) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.frameSinks = append(a.frameSinks, s)
}

// SetEnabled pauses or resumes the game. While paused frames are still shown
// but the target does not move and nothing scores.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether the game is running.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// Snapshot returns the state published after the most recent frame.
func (a *App) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.last
}

// Run plays until the quit key is pressed, the camera stops delivering
// frames, a replay runs out or ctx is cancelled.
//
// A quit key or an exhausted replay returns nil. A camera failure returns an
// error wrapping capture.ErrFrameUnavailable; a missing sprite returns
// render.ErrAssetLoad before any frame is read. Camera, detector, display and
// sound are released on every path.
func (a *App) Run(ctx context.Context) error {
	a.mu.Lock()
	if a.camera == nil {
		a.camera = capture.NewCamera(a.config.CameraID, a.config.FrameWidth, a.config.FrameHeight)
	}
	if a.sound == nil {
		a.sound = audio.Silent{}
	}
	a.mu.Unlock()

	if a.detector == nil {
		return errors.New("no hand detector configured")
	}

	l := &loop{app: a, config: a.config}
	defer l.release()

	sprite, err := render.LoadSprite(a.config.SpritePath, a.config.SpriteSize)
	if err != nil {
		return err
	}
	l.sprite = sprite

	if err := a.camera.Open(); err != nil {
		return fmt.Errorf("%w: %w", capture.ErrFrameUnavailable, err)
	}

	if a.display == nil {
		a.display = render.NewWindow(a.config.WindowTitle)
	}

	var rng *rand.Rand
	if a.config.Seed != 0 {
		rng = rand.New(rand.NewPCG(a.config.Seed, a.config.Seed))
	}
	l.spawner = game.NewSpawner(a.config.Spawn, rng)
	l.state = game.NewState(l.spawner, a.config.Radius)
	l.overlay = render.NewOverlay(sprite, render.DefaultStyle())
	l.fps = render.NewFPSMeter(nil)

	l.beginSession()
	monitoring.Logf("Game started (target at %v)", l.state.Entity.Pos)

	err = l.run(ctx)
	l.endSession(endReason(err))
	if errors.Is(err, errReplayDone) {
		return nil
	}
	return err
}

func endReason(err error) store.EndReason {
	switch {
	case err == nil:
		return store.EndQuit
	case errors.Is(err, errReplayDone):
		return store.EndReplayExhausted
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return store.EndCancelled
	case errors.Is(err, capture.ErrFrameUnavailable):
		return store.EndFrameUnavailable
	default:
		return store.EndError
	}
}

func newSessionID() string {
	return uuid.New().String()
}
