package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/handpop/internal/app"
	"github.com/ayusman/handpop/internal/store"
)

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decodeHealth(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("health Content-Type = %q, want application/json", ct)
	}
	var body map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding health: %v", err)
	}
	return body
}

func TestServer_Health(t *testing.T) {
	t.Run("no feed reports status only", func(t *testing.T) {
		body := decodeHealth(t, get(t, New(Config{}), "/api/health"))
		if body["status"] != "ok" {
			t.Errorf("status = %v, want ok", body["status"])
		}
		if _, ok := body["uptime"]; !ok {
			t.Error("uptime missing")
		}
		for _, key := range []string{"score", "frame"} {
			if _, ok := body[key]; ok {
				t.Errorf("%s present without a feed", key)
			}
		}
	})

	t.Run("feed before the first frame", func(t *testing.T) {
		body := decodeHealth(t, get(t, New(Config{Feed: NewFeed()}), "/api/health"))
		if _, ok := body["score"]; ok {
			t.Errorf("score = %v before any snapshot", body["score"])
		}
	})

	t.Run("feed with a snapshot reports score and frame", func(t *testing.T) {
		feed := NewFeed()
		feed.PublishSnapshot(app.Snapshot{Score: 7, Frame: 99})
		feed.PublishSnapshot(app.Snapshot{Score: 8, Frame: 120})

		body := decodeHealth(t, get(t, New(Config{Feed: feed}), "/api/health"))
		if body["score"] != float64(8) {
			t.Errorf("score = %v, want 8", body["score"])
		}
		if body["frame"] != float64(120) {
			t.Errorf("frame = %v, want 120", body["frame"])
		}
	})

	t.Run("rejects writes", func(t *testing.T) {
		s := New(Config{Feed: NewFeed()})
		for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, httptest.NewRequest(method, "/api/health", nil))
			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("%s /api/health = %d, want %d", method, rec.Code, http.StatusMethodNotAllowed)
			}
		}
	})
}

func TestServer_SessionRoutes(t *testing.T) {
	t.Run("absent without a store", func(t *testing.T) {
		s := New(Config{})
		for _, path := range []string{"/api/sessions", "/api/sessions/best"} {
			if rec := get(t, s, path); rec.Code != http.StatusNotFound {
				t.Errorf("GET %s = %d, want %d", path, rec.Code, http.StatusNotFound)
			}
		}
	})

	t.Run("lists stored sessions", func(t *testing.T) {
		st, err := store.New(filepath.Join(t.TempDir(), "handpop.db"))
		if err != nil {
			t.Fatalf("store.New() error = %v", err)
		}
		defer st.Close()

		if err := st.Sessions().Create(&store.Session{ID: "round-1", Source: "camera:0"}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if err := st.Sessions().Finish("round-1", 4, 300, store.EndQuit); err != nil {
			t.Fatalf("Finish() error = %v", err)
		}

		rec := get(t, New(Config{Store: st}), "/api/sessions")
		if rec.Code != http.StatusOK {
			t.Fatalf("GET /api/sessions = %d, want %d", rec.Code, http.StatusOK)
		}
		var list struct {
			Sessions []struct {
				ID        string `json:"id"`
				Score     int    `json:"score"`
				EndReason string `json:"end_reason"`
			} `json:"sessions"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
			t.Fatalf("decoding sessions: %v", err)
		}
		if len(list.Sessions) != 1 {
			t.Fatalf("got %d sessions, want 1", len(list.Sessions))
		}
		got := list.Sessions[0]
		if got.ID != "round-1" || got.Score != 4 || got.EndReason != string(store.EndQuit) {
			t.Errorf("session = %+v", got)
		}

		if rec := get(t, New(Config{Store: st}), "/api/sessions/round-1"); rec.Code != http.StatusOK {
			t.Errorf("GET /api/sessions/round-1 = %d, want %d", rec.Code, http.StatusOK)
		}
	})
}

func TestServer_LiveRoutesNeedFeed(t *testing.T) {
	s := New(Config{})
	for _, path := range []string{"/api/stream", "/api/state"} {
		if rec := get(t, s, path); rec.Code != http.StatusNotFound {
			t.Errorf("GET %s without feed = %d, want %d", path, rec.Code, http.StatusNotFound)
		}
	}
}

func TestServer_Dashboard(t *testing.T) {
	dir := t.TempDir()
	page := "<html><body><img src=\"/api/stream\"></body></html>"
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte(page), 0o644); err != nil {
		t.Fatalf("writing index.html: %v", err)
	}

	t.Run("serves the dashboard page", func(t *testing.T) {
		rec := get(t, New(Config{StaticDir: dir}), "/")
		if rec.Code != http.StatusOK {
			t.Fatalf("GET / = %d, want %d", rec.Code, http.StatusOK)
		}
		if rec.Body.String() != page {
			t.Errorf("GET / body = %q, want %q", rec.Body.String(), page)
		}
	})

	t.Run("unknown file", func(t *testing.T) {
		if rec := get(t, New(Config{StaticDir: dir}), "/missing.js"); rec.Code != http.StatusNotFound {
			t.Errorf("GET /missing.js = %d, want %d", rec.Code, http.StatusNotFound)
		}
	})

	t.Run("no dashboard without a static dir", func(t *testing.T) {
		if rec := get(t, New(Config{}), "/"); rec.Code != http.StatusNotFound {
			t.Errorf("GET / = %d, want %d", rec.Code, http.StatusNotFound)
		}
	})
}

func TestServer_ListenAndServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- New(Config{Feed: NewFeed()}).ListenAndServe(ctx, "127.0.0.1:0")
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ListenAndServe() = %v, want nil after cancel", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("ListenAndServe did not return after cancel")
	}
}
