package server

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/ayusman/handpop/internal/monitoring"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// StateHandler pushes every game snapshot to WebSocket clients as JSON.
type StateHandler struct {
	feed *Feed
}

// NewStateHandler creates a new StateHandler reading from feed.
func NewStateHandler(feed *Feed) *StateHandler {
	return &StateHandler{feed: feed}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *StateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		monitoring.Logf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	wake, unsubscribe := h.feed.snapshots.subscribe()
	defer unsubscribe()

	// Reads only detect the client closing; incoming messages are ignored.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if snap, ok := h.feed.Snapshot(); ok {
		if err := conn.WriteJSON(snap); err != nil {
			return
		}
	}

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case <-wake:
		}

		snap, _ := h.feed.Snapshot()
		if err := conn.WriteJSON(snap); err != nil {
			return
		}
	}
}
