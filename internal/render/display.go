package render

import (
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// WindowTitle is the title of the game window.
const WindowTitle = "handpop"

// KeyNone is returned by PollKey when no key was pressed.
const KeyNone = -1

// Display shows rendered frames and reports key presses.
type Display interface {
	Show(frame *gocv.Mat)
	PollKey(delayMs int) int
	Close() error
}

// Window is a Display backed by an OpenCV HighGUI window.
type Window struct {
	window *gocv.Window
}

// NewWindow opens a window with the given title.
func NewWindow(title string) *Window {
	return &Window{window: gocv.NewWindow(title)}
}

// Show displays frame.
func (w *Window) Show(frame *gocv.Mat) {
	w.window.IMShow(*frame)
}

// PollKey waits up to delayMs for a key and returns its low byte, or KeyNone.
func (w *Window) PollKey(delayMs int) int {
	key := w.window.WaitKey(delayMs)
	if key < 0 {
		return KeyNone
	}
	return key & 0xFF
}

// Close destroys the window.
func (w *Window) Close() error {
	return w.window.Close()
}

// Headless is a Display with no window. PollKey only paces the loop, so a
// headless game ends through its context.
type Headless struct{}

// NewHeadless returns a Display that shows nothing.
func NewHeadless() Headless {
	return Headless{}
}

func (Headless) Show(frame *gocv.Mat) {}

// PollKey sleeps for delayMs and never reports a key.
func (Headless) PollKey(delayMs int) int {
	if delayMs > 0 {
		time.Sleep(time.Duration(delayMs) * time.Millisecond)
	}
	return KeyNone
}

func (Headless) Close() error { return nil }

// MockDisplay records shown frames and replays scripted key presses.
type MockDisplay struct {
	mu     sync.Mutex
	shown  int
	keys   map[int]int
	polls  int
	closed bool
}

// NewMockDisplay returns a display that never reports a key.
func NewMockDisplay() *MockDisplay {
	return &MockDisplay{keys: make(map[int]int)}
}

// PressAt makes the n-th PollKey call (1-based) return key.
func (d *MockDisplay) PressAt(n int, key int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.keys[n] = key
}

func (d *MockDisplay) Show(frame *gocv.Mat) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shown++
}

func (d *MockDisplay) PollKey(delayMs int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.polls++
	if key, ok := d.keys[d.polls]; ok {
		return key
	}
	return KeyNone
}

func (d *MockDisplay) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Shown returns how many frames have been displayed.
func (d *MockDisplay) Shown() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shown
}

// Closed reports whether Close has been called.
func (d *MockDisplay) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}
