package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/handpop/internal/app"
	"github.com/ayusman/handpop/internal/capture"
	"github.com/ayusman/handpop/internal/config"
	"github.com/ayusman/handpop/internal/detector"
	"github.com/ayusman/handpop/internal/game"
	"github.com/ayusman/handpop/internal/monitoring"
	"github.com/ayusman/handpop/internal/render"
	"github.com/ayusman/handpop/internal/server"
	"github.com/ayusman/handpop/internal/store"
)

func recording(name string) string {
	return filepath.Join("..", "testdata", "recordings", name)
}

type replayRun struct {
	store *store.Store
	feed  *server.Feed
	app   *app.App
}

// newReplayRun wires a game that reads landmarks from a recording and frames
// from a looping blank camera, so the recording decides when it ends.
func newReplayRun(t *testing.T, name string, cfg config.Config) *replayRun {
	t.Helper()

	prev := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.Logf = prev })

	s, err := store.New(filepath.Join(t.TempDir(), "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	cfg.SpritePath = filepath.Join("..", "testdata", "target.png")
	cfg.ReplayPath = recording(name)

	det, err := app.OpenDetector(cfg)
	if err != nil {
		t.Fatalf("OpenDetector() error = %v", err)
	}

	frames := capture.BlankFrames(1, cfg.FrameWidth, cfg.FrameHeight)
	t.Cleanup(func() { frames[0].Close() })

	feed := server.NewFeed()
	a := app.New(cfg)
	a.SetCamera(capture.NewMockCamera(frames, true))
	a.SetDetector(det)
	a.SetDisplay(render.NewMockDisplay())
	a.SetStore(s)
	a.SetSource("replay:" + name)
	a.AddSnapshotSink(feed)
	a.AddFrameSink(feed)

	return &replayRun{store: s, feed: feed, app: a}
}

func TestE2E_ReplayCompleteWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	cfg := config.Default()
	cfg.Spawn = game.SpawnArea{MinX: 320, MinY: 240, MaxX: 320, MaxY: 240}
	cfg.Seed = 3
	run := newReplayRun(t, "center.jsonl", cfg)

	t.Run("Play", func(t *testing.T) {
		if err := run.app.Run(context.Background()); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if got := run.app.Snapshot().Score; got != 8 {
			t.Errorf("final score = %d, want 8", got)
		}
	})

	ts := httptest.NewServer(server.New(server.Config{Store: run.store, Feed: run.feed}))
	defer ts.Close()
	client := ts.Client()

	var sessionID string

	t.Run("SessionRecorded", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/sessions/best")
		if err != nil {
			t.Fatalf("GET best error = %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}

		var best struct {
			ID        string `json:"id"`
			Source    string `json:"source"`
			Score     int    `json:"score"`
			EndReason string `json:"end_reason"`
		}
		json.NewDecoder(resp.Body).Decode(&best)

		if best.Score != 8 {
			t.Errorf("score = %d, want 8", best.Score)
		}
		if best.Source != "replay:center.jsonl" {
			t.Errorf("source = %q", best.Source)
		}
		if best.EndReason != string(store.EndReplayExhausted) {
			t.Errorf("end_reason = %q, want %q", best.EndReason, store.EndReplayExhausted)
		}
		sessionID = best.ID
	})

	t.Run("HitsInFrameOrder", func(t *testing.T) {
		hits, err := run.store.Hits().ListBySession(sessionID)
		if err != nil {
			t.Fatalf("ListBySession() error = %v", err)
		}
		if len(hits) != 8 {
			t.Fatalf("got %d hits, want 8", len(hits))
		}
		for i, h := range hits {
			if h.Score != i+1 {
				t.Errorf("hit %d score = %d, want %d", i, h.Score, i+1)
			}
			if h.X != 320 || h.Y != 240 {
				t.Errorf("hit %d at (%d, %d), want (320, 240)", i, h.X, h.Y)
			}
		}
	})

	t.Run("LiveStateAfterGame", func(t *testing.T) {
		url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/state"
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			t.Fatalf("Dial() error = %v", err)
		}
		defer conn.Close()
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))

		var snap app.Snapshot
		if err := conn.ReadJSON(&snap); err != nil {
			t.Fatalf("ReadJSON() error = %v", err)
		}
		if snap.SessionID != sessionID || snap.Score != 8 {
			t.Errorf("snapshot = %+v", snap)
		}
	})
}

func TestE2E_EmptyRecordingNeverScores(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	run := newReplayRun(t, "empty.jsonl", config.Default())
	if err := run.app.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	snap := run.app.Snapshot()
	if snap.Score != 0 {
		t.Errorf("score = %d, want 0", snap.Score)
	}
	if snap.Fingertip != nil {
		t.Errorf("fingertip = %v, want none", snap.Fingertip)
	}

	n, err := run.store.Hits().CountBySession(snap.SessionID)
	if err != nil {
		t.Fatalf("CountBySession() error = %v", err)
	}
	if n != 0 {
		t.Errorf("recorded %d hits, want 0", n)
	}
}

func TestE2E_SweepHistoryMatchesScore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	cfg := config.Default()
	cfg.Seed = 17
	run := newReplayRun(t, "sweep.jsonl", cfg)

	if err := run.app.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	sessions, err := run.store.Sessions().List(0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("got %d sessions, want 1", len(sessions))
	}
	sess := sessions[0]
	if !sess.Finished() {
		t.Error("session should be finished")
	}

	hits, err := run.store.Hits().ListBySession(sess.ID)
	if err != nil {
		t.Fatalf("ListBySession() error = %v", err)
	}
	if len(hits) != sess.Score {
		t.Errorf("%d hits recorded for score %d", len(hits), sess.Score)
	}
	// 4 of the 40 recorded frames have no hand.
	if sess.Score > 36 {
		t.Errorf("score %d exceeds frames with a hand", sess.Score)
	}

	// Every hit is where the recorded fingertip was on that frame.
	replay, err := detector.OpenReplay(recording("sweep.jsonl"), false)
	if err != nil {
		t.Fatalf("OpenReplay() error = %v", err)
	}
	tips := make(map[int64][2]int)
	for frame := int64(1); ; frame++ {
		hands, err := replay.Detect(nil)
		if err != nil {
			break
		}
		if len(hands) == 0 {
			continue
		}
		ph, err := detector.MapLandmarks(&hands[0], cfg.FrameWidth, cfg.FrameHeight)
		if err != nil {
			t.Fatalf("MapLandmarks() error = %v", err)
		}
		tip, err := ph.IndexTip()
		if err != nil {
			t.Fatalf("IndexTip() error = %v", err)
		}
		tips[frame] = [2]int{tip.X, tip.Y}
	}
	for _, h := range hits {
		want, ok := tips[h.Frame]
		if !ok {
			t.Errorf("hit on frame %d which has no hand", h.Frame)
			continue
		}
		if h.X != want[0] || h.Y != want[1] {
			t.Errorf("hit on frame %d at (%d, %d), want (%d, %d)", h.Frame, h.X, h.Y, want[0], want[1])
		}
	}
}
