package hook

import (
	"context"
	"sync"
	"time"

	"github.com/ayusman/handpop/internal/app"
	"github.com/ayusman/handpop/internal/monitoring"
)

// QueueSize is how many events may wait for the worker before new ones are
// dropped.
const QueueSize = 32

// DrainTimeout is how long Close waits for queued events before it kills the
// running hook and discards the rest.
const DrainTimeout = 3 * time.Second

// Dispatcher turns game snapshots into hook events and runs them on a single
// worker goroutine so the game loop never waits on a hook.
type Dispatcher struct {
	manager  *Manager
	executor *Executor
	queue    chan Event
	paused   bool
	dropped  int
	drain    time.Duration
	mu       sync.Mutex
	wg       sync.WaitGroup
	cancel   context.CancelFunc
}

// NewDispatcher starts the worker. Close stops it.
func NewDispatcher(manager *Manager, executor *Executor) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		manager:  manager,
		executor: executor,
		queue:    make(chan Event, QueueSize),
		drain:    DrainTimeout,
		cancel:   cancel,
	}
	d.wg.Add(1)
	go d.work(ctx)
	return d
}

// PublishSnapshot queues a hit event for a popped target and a paused or
// resumed event when play is toggled.
func (d *Dispatcher) PublishSnapshot(s app.Snapshot) {
	d.mu.Lock()
	var events []string
	if s.Paused != d.paused {
		d.paused = s.Paused
		if s.Paused {
			events = append(events, EventPaused)
		} else {
			events = append(events, EventResumed)
		}
	}
	d.mu.Unlock()
	if s.Hit {
		events = append(events, EventHit)
	}

	for _, typ := range events {
		ev := Event{
			Type:      typ,
			SessionID: s.SessionID,
			Frame:     s.Frame,
			Score:     s.Score,
			Time:      s.Time,
		}
		if s.Fingertip != nil {
			ev.X, ev.Y = s.Fingertip.X, s.Fingertip.Y
		}
		d.enqueue(ev)
	}
}

func (d *Dispatcher) enqueue(ev Event) {
	select {
	case d.queue <- ev:
	default:
		d.drop()
	}
}

// SetDrainTimeout changes how long Close waits for queued events.
func (d *Dispatcher) SetDrainTimeout(timeout time.Duration) {
	d.mu.Lock()
	d.drain = timeout
	d.mu.Unlock()
}

func (d *Dispatcher) drop() {
	d.mu.Lock()
	d.dropped++
	d.mu.Unlock()
}

// Dropped returns how many events were discarded, either because the queue
// was full or because Close ran out of time.
func (d *Dispatcher) Dropped() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dropped
}

func (d *Dispatcher) work(ctx context.Context) {
	defer d.wg.Done()
	for ev := range d.queue {
		if ctx.Err() != nil {
			d.drop()
			continue
		}
		for _, h := range d.manager.For(ev.Type) {
			resp, err := d.executor.Execute(ctx, h, ev)
			if err != nil {
				monitoring.Logf("Error running hook: %v", err)
				continue
			}
			if !resp.Success {
				monitoring.Logf("Hook %s rejected %s event: %s", h.Manifest.Name, ev.Type, resp.Error)
			}
		}
	}
}

// Close runs the events already queued and stops the worker. Events still
// waiting after the drain timeout are dropped and the running hook is killed.
// Publishing after Close panics.
func (d *Dispatcher) Close() error {
	close(d.queue)

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	d.mu.Lock()
	timer := time.NewTimer(d.drain)
	d.mu.Unlock()
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		d.cancel()
		<-done
		monitoring.Logf("Hooks did not finish in time, %d events dropped", d.Dropped())
	}
	d.cancel()
	return nil
}
