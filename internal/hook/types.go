// Package hook runs external executables when something happens in a game:
// a target is popped or play is paused or resumed.
package hook

import (
	"encoding/json"
	"slices"
	"time"
)

// Event types sent to hooks.
const (
	EventHit     = "hit"
	EventPaused  = "paused"
	EventResumed = "resumed"
)

// Manifest describes a hook and the events it wants.
type Manifest struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	Executable  string          `json:"executable"`
	Events      []string        `json:"events"`
	Config      json.RawMessage `json:"config,omitempty"`
}

// Event is written to a hook's stdin as JSON.
type Event struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id,omitempty"`
	Frame     int64           `json:"frame"`
	Score     int             `json:"score"`
	X         int             `json:"x"`
	Y         int             `json:"y"`
	Time      time.Time       `json:"time"`
	Config    json.RawMessage `json:"config,omitempty"`
}

// Response is what a hook writes to stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Hook is a discovered hook with its manifest and location.
type Hook struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Wants reports whether the hook subscribed to the event type.
func (h *Hook) Wants(eventType string) bool {
	return slices.Contains(h.Manifest.Events, eventType)
}
