package server

import (
	"fmt"
	"net/http"
)

// StreamHandler serves the rendered game frames as MJPEG.
type StreamHandler struct {
	feed *Feed
}

// NewStreamHandler creates a new StreamHandler reading from feed.
func NewStreamHandler(feed *Feed) *StreamHandler {
	return &StreamHandler{feed: feed}
}

// ServeHTTP streams a part for every frame the game publishes until the
// client goes away.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	wake, unsubscribe := h.feed.frames.subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	if frame := h.feed.Frame(); frame != nil {
		if err := writePart(w, frame); err != nil {
			return
		}
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-wake:
		}

		frame := h.feed.Frame()
		if frame == nil {
			continue
		}
		if err := writePart(w, frame); err != nil {
			return
		}
	}
}

func writePart(w http.ResponseWriter, jpeg []byte) error {
	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpeg)); err != nil {
		return err
	}
	if _, err := w.Write(jpeg); err != nil {
		return err
	}
	if _, err := fmt.Fprint(w, "\r\n"); err != nil {
		return err
	}

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
