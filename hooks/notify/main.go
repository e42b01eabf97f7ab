// Package main provides a desktop notification hook for handpop.
// It announces score milestones and pauses via osascript on macOS and
// notify-send elsewhere.
//
// Build it next to its manifest:
//
//	go build -o hooks/notify/notify ./hooks/notify
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
)

// Event represents the input from the hook dispatcher.
type Event struct {
	Type   string          `json:"type"`
	Frame  int64           `json:"frame"`
	Score  int             `json:"score"`
	X      int             `json:"x"`
	Y      int             `json:"y"`
	Config json.RawMessage `json:"config"`
}

// Response represents the output to the hook dispatcher.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Settings come from the manifest config.
type Settings struct {
	Every int `json:"every"`
}

func main() {
	var ev Event
	if err := json.NewDecoder(os.Stdin).Decode(&ev); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode event: %v", err))
		return
	}

	settings := Settings{Every: 10}
	if len(ev.Config) > 0 {
		if err := json.Unmarshal(ev.Config, &settings); err != nil {
			writeErrorResponse(fmt.Sprintf("bad config: %v", err))
			return
		}
	}

	message := messageFor(ev, settings)
	if message == "" {
		writeSuccessResponse(false)
		return
	}

	if err := notify("handpop", message); err != nil {
		writeErrorResponse(fmt.Sprintf("notify failed: %v", err))
		return
	}
	writeSuccessResponse(true)
}

// messageFor returns the notification text, or "" when the event is not worth
// a notification.
func messageFor(ev Event, s Settings) string {
	switch ev.Type {
	case "hit":
		if s.Every > 0 && ev.Score%s.Every == 0 {
			return "Score " + strconv.Itoa(ev.Score) + "!"
		}
	case "paused":
		return "Paused at " + strconv.Itoa(ev.Score)
	case "resumed":
		return "Back in the game"
	}
	return ""
}

func notify(title, message string) error {
	var cmd *exec.Cmd
	if runtime.GOOS == "darwin" {
		cmd = exec.Command("osascript", "-e",
			fmt.Sprintf("display notification %q with title %q", message, title))
	} else {
		cmd = exec.Command("notify-send", title, message)
	}
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse(notified bool) {
	data, _ := json.Marshal(map[string]bool{"notified": notified})
	json.NewEncoder(os.Stdout).Encode(Response{Success: true, Data: data})
}
