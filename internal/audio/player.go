// Package audio plays the hit sound.
package audio

import (
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"

	"github.com/ayusman/handpop/internal/monitoring"
)

const sampleRate = beep.SampleRate(44100)

// Player plays game sounds. Implementations must not block the caller.
type Player interface {
	PlayHit()
	Close() error
}

// Silent is a Player that does nothing.
type Silent struct{}

func (Silent) PlayHit()     {}
func (Silent) Close() error { return nil }

// Speaker plays sounds on the default output device through a mixer.
type Speaker struct {
	mu     sync.Mutex
	mixer  *beep.Mixer
	volume float64
	closed bool
}

// NewSpeaker opens the output device. volume is a linear gain in [0, 1].
func NewSpeaker(volume float64) (*Speaker, error) {
	if err := speaker.Init(sampleRate, sampleRate.N(50*time.Millisecond)); err != nil {
		return nil, err
	}

	s := &Speaker{mixer: &beep.Mixer{}, volume: volume}
	speaker.Play(s.mixer)
	return s, nil
}

// Open returns a Speaker when enabled and the device opens, Silent otherwise.
func Open(enabled bool, volume float64) Player {
	if !enabled {
		return Silent{}
	}
	s, err := NewSpeaker(volume)
	if err != nil {
		monitoring.Logf("Audio unavailable (%v), continuing without sound", err)
		return Silent{}
	}
	return s
}

// PlayHit queues the pop sound.
func (s *Speaker) PlayHit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	speaker.Lock()
	s.mixer.Add(NewPop(sampleRate, s.volume))
	speaker.Unlock()
}

// Close silences the mixer and releases the device.
func (s *Speaker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	speaker.Clear()
	speaker.Close()
	return nil
}
