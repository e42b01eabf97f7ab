package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/handpop/internal/capture"
	"github.com/ayusman/handpop/internal/config"
	"github.com/ayusman/handpop/internal/detector"
	"github.com/ayusman/handpop/internal/game"
	"github.com/ayusman/handpop/internal/monitoring"
	"github.com/ayusman/handpop/internal/render"
	"github.com/ayusman/handpop/internal/store"
)

// errReplayDone ends the loop when a landmark recording runs out.
var errReplayDone = errors.New("replay finished")

// loop is the per-run state of App.Run. Only the Run goroutine touches it.
type loop struct {
	app    *App
	config config.Config

	sprite  *render.Sprite
	overlay *render.Overlay
	fps     *render.FPSMeter
	spawner *game.Spawner
	state   game.State

	// Size of the last frame the spawn area was fitted to.
	frameSize image.Point

	sessionID string
	done      bool
}

func (l *loop) run(ctx context.Context) error {
	quitKey := l.config.QuitKeyCode()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		frame, err := l.app.camera.ReadFrame()
		if err != nil {
			monitoring.Logf("Error reading frame: %v", err)
			if !errors.Is(err, capture.ErrFrameUnavailable) {
				err = fmt.Errorf("%w: %w", capture.ErrFrameUnavailable, err)
			}
			return err
		}

		key, err := l.frame(frame)
		frame.Close()
		if err != nil {
			return err
		}
		if key == quitKey {
			return nil
		}
	}
}

// frame processes one camera frame and returns the key pressed while it was shown.
func (l *loop) frame(frame *gocv.Mat) (int, error) {
	width, height := frame.Cols(), frame.Rows()
	l.fitFrame(width, height)

	hands, err := l.app.detector.Detect(frame)
	if errors.Is(err, detector.ErrReplayExhausted) {
		return render.KeyNone, errReplayDone
	}
	if err != nil {
		monitoring.Logf("Error detecting hands: %v", err)
		hands = nil
	}

	var hand *detector.PixelHand
	var fingers detector.FingerState
	var tip image.Point
	if l.config.HandIndex < len(hands) {
		ph, err := detector.MapLandmarks(&hands[l.config.HandIndex], width, height)
		if err == nil {
			if tip, err = ph.IndexTip(); err == nil {
				hand = ph
				fingers, _ = ph.FingersUp()
			}
		}
	}

	enabled := l.app.IsEnabled()
	hit := false
	if enabled {
		hit = l.state.Step(tip, hand != nil, width, height, l.spawner)
	}
	if hit {
		l.onHit(tip)
	}

	fps := l.fps.Tick()
	l.overlay.Draw(frame, render.Scene{
		Hand:   hand,
		Target: l.state.Entity.Pos,
		Score:  l.state.Score,
		FPS:    fps,
	})

	snap := Snapshot{
		SessionID: l.sessionID,
		Frame:     l.state.Frame,
		Score:     l.state.Score,
		FPS:       fps,
		Target:    l.state.Entity.Pos,
		Radius:    l.state.Entity.Radius,
		Hit:       hit,
		Paused:    !enabled,
		Time:      time.Now(),
	}
	if hand != nil {
		snap.Fingertip = &tip
		snap.Fingers = fingers.String()
		snap.Handedness = hand.Handedness
	}
	l.publish(frame, snap)

	l.app.display.Show(frame)
	return l.app.display.PollKey(l.config.KeyDelayMs), nil
}

// fitFrame keeps the spawn area inside the frame the camera actually delivers.
func (l *loop) fitFrame(width, height int) {
	size := image.Pt(width, height)
	if size == l.frameSize {
		return
	}
	l.frameSize = size

	if l.state.Fit(width, height, l.spawner) {
		monitoring.Logf("Frame is %dx%d, target moved to %v", width, height, l.state.Entity.Pos)
	}
}

func (l *loop) onHit(tip image.Point) {
	monitoring.Logf("Target popped at (%d, %d), score %d", tip.X, tip.Y, l.state.Score)
	l.app.sound.PlayHit()

	if l.app.store == nil || l.sessionID == "" {
		return
	}
	err := l.app.store.Hits().Record(&store.Hit{
		SessionID: l.sessionID,
		Frame:     l.state.Frame,
		X:         tip.X,
		Y:         tip.Y,
		Score:     l.state.Score,
	})
	if err != nil {
		monitoring.Logf("Error recording hit: %v", err)
	}
}

func (l *loop) publish(frame *gocv.Mat, snap Snapshot) {
	l.app.mu.Lock()
	l.app.last = snap
	snapshotSinks := l.app.snapshotSinks
	frameSinks := l.app.frameSinks
	l.app.mu.Unlock()

	for _, s := range snapshotSinks {
		s.PublishSnapshot(snap)
	}

	if len(frameSinks) == 0 {
		return
	}
	jpeg, err := render.EncodeJPEG(frame)
	if err != nil {
		monitoring.Logf("Error encoding frame: %v", err)
		return
	}
	for _, s := range frameSinks {
		s.PublishFrame(jpeg)
	}
}

func (l *loop) beginSession() {
	if l.app.store == nil {
		return
	}

	sess := &store.Session{ID: newSessionID(), Source: l.app.source}
	if err := l.app.store.Sessions().Create(sess); err != nil {
		monitoring.Logf("Error creating session, history disabled: %v", err)
		return
	}
	l.sessionID = sess.ID
}

func (l *loop) endSession(reason store.EndReason) {
	monitoring.Logf("Game over (%s): score %d after %d frames", reason, l.state.Score, l.state.Frame)

	if l.app.store == nil || l.sessionID == "" {
		return
	}
	if err := l.app.store.Sessions().Finish(l.sessionID, l.state.Score, l.state.Frame, reason); err != nil {
		monitoring.Logf("Error finishing session %s: %v", l.sessionID, err)
	}
}

// release closes everything Run acquired or was handed. It is safe to call
// once per run regardless of how far startup got.
func (l *loop) release() {
	if l.done {
		return
	}
	l.done = true

	if l.sprite != nil {
		if err := l.sprite.Close(); err != nil {
			monitoring.Logf("Error closing sprite: %v", err)
		}
	}
	if l.app.display != nil {
		if err := l.app.display.Close(); err != nil {
			monitoring.Logf("Error closing display: %v", err)
		}
	}
	if err := l.app.camera.Close(); err != nil {
		monitoring.Logf("Error closing camera: %v", err)
	}
	if err := l.app.detector.Close(); err != nil {
		monitoring.Logf("Error closing detector: %v", err)
	}
	if err := l.app.sound.Close(); err != nil {
		monitoring.Logf("Error closing sound: %v", err)
	}
}
