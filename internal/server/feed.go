package server

import (
	"sync"

	"github.com/ayusman/handpop/internal/app"
)

// Feed holds the latest rendered frame and game snapshot and wakes up
// streaming clients when either changes. It is registered with the game
// loop as both a frame and a snapshot sink.
type Feed struct {
	mu       sync.RWMutex
	frame    []byte
	snapshot app.Snapshot
	hasSnap  bool

	frames    notifier
	snapshots notifier
}

// NewFeed creates an empty Feed.
func NewFeed() *Feed {
	return &Feed{
		frames:    notifier{subs: make(map[chan struct{}]struct{})},
		snapshots: notifier{subs: make(map[chan struct{}]struct{})},
	}
}

// PublishFrame stores jpeg as the latest frame.
func (f *Feed) PublishFrame(jpeg []byte) {
	f.mu.Lock()
	f.frame = jpeg
	f.mu.Unlock()
	f.frames.notify()
}

// PublishSnapshot stores s as the latest snapshot.
func (f *Feed) PublishSnapshot(s app.Snapshot) {
	f.mu.Lock()
	f.snapshot = s
	f.hasSnap = true
	f.mu.Unlock()
	f.snapshots.notify()
}

// Frame returns the latest frame, or nil before the first one.
func (f *Feed) Frame() []byte {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.frame
}

// Snapshot returns the latest snapshot and whether one has been published.
func (f *Feed) Snapshot() (app.Snapshot, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.snapshot, f.hasSnap
}

// notifier wakes subscribers without ever blocking the publisher. A slow
// subscriber sees one wake-up for any number of missed publishes.
type notifier struct {
	mu   sync.Mutex
	subs map[chan struct{}]struct{}
}

func (n *notifier) subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	n.mu.Lock()
	n.subs[ch] = struct{}{}
	n.mu.Unlock()

	return ch, func() {
		n.mu.Lock()
		delete(n.subs, ch)
		n.mu.Unlock()
	}
}

func (n *notifier) notify() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for ch := range n.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (n *notifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}
