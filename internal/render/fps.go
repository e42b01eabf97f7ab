package render

import "time"

// FPSMeter reports the instantaneous frame rate from the gap between ticks.
type FPSMeter struct {
	now  func() time.Time
	last time.Time
}

// NewFPSMeter returns a meter reading time from now. A nil now uses time.Now.
func NewFPSMeter(now func() time.Time) *FPSMeter {
	if now == nil {
		now = time.Now
	}
	return &FPSMeter{now: now}
}

// Tick records a frame and returns 1/Δt truncated to an integer.
// The first tick, and any tick with a non-positive gap, reports 0.
func (m *FPSMeter) Tick() int {
	t := m.now()
	prev := m.last
	m.last = t

	if prev.IsZero() {
		return 0
	}
	dt := t.Sub(prev)
	if dt <= 0 {
		return 0
	}
	return int(time.Second / dt)
}
