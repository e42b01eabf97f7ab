// Package tray provides a system tray menu for a running handpop game.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/handpop/internal/app"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle    func(enabled bool)
	onDashboard func()
	onQuit      func()
	enabled     bool
	score       int
	best        int
	mu          sync.RWMutex

	// Menu items stored for later updates
	menuToggle *systray.MenuItem
	menuScore  *systray.MenuItem
}

// New creates a new Tray instance with enabled state set to true by default.
func New() *Tray {
	return &Tray{
		enabled: true,
	}
}

// OnToggle sets the callback called when scoring is paused or resumed.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnDashboard sets the callback called when the dashboard menu item is clicked.
func (t *Tray) OnDashboard(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDashboard = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit stops a running tray.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("handpop")
	systray.SetTooltip("handpop: pop the target with your index finger")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Pause or resume scoring")
	systray.AddSeparator()

	t.menuScore = systray.AddMenuItem(scoreTitle(t.score, t.best), "Current and best score")
	t.menuScore.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuDashboard := systray.AddMenuItem("Open Dashboard...", "Open the live view in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit handpop")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuDashboard.ClickedCh:
				t.handleDashboard()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

func (t *Tray) handleToggle() {
	enabled, callback := t.toggle()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

// toggle flips the enabled state and returns it with the registered callback.
func (t *Tray) toggle() (bool, func(bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.enabled = !t.enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(t.enabled))
	}
	return t.enabled, t.onToggle
}

func (t *Tray) handleDashboard() {
	t.mu.RLock()
	callback := t.onDashboard
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// PublishSnapshot updates the score line. It is called from the game loop and
// only touches the menu when the score changes.
func (t *Tray) PublishSnapshot(s app.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s.Score == t.score {
		return
	}
	t.score = s.Score
	if s.Score > t.best {
		t.best = s.Score
	}
	if t.menuScore != nil {
		t.menuScore.SetTitle(scoreTitle(t.score, t.best))
	}
}

// SetBest seeds the best score shown, typically from the session store.
func (t *Tray) SetBest(best int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if best > t.best {
		t.best = best
	}
}

// Score returns the last published score and the best seen.
func (t *Tray) Score() (score, best int) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.score, t.best
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Playing"
	}
	return "○ Paused"
}

func scoreTitle(score, best int) string {
	return fmt.Sprintf("Score: %d (best %d)", score, best)
}
