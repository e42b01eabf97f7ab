package audio

import (
	"math"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
)

// Pop sound shape.
const (
	PopDuration  = 120 * time.Millisecond
	popStartFreq = 660.0
	popEndFreq   = 1320.0
	popDecay     = 30.0
)

// pop is an upward sine sweep with an exponential decay.
type pop struct {
	rate  beep.SampleRate
	total int
	pos   int
	phase float64
}

// NewPop returns the hit sound at the given linear volume.
func NewPop(rate beep.SampleRate, volume float64) beep.Streamer {
	p := &pop{rate: rate, total: rate.N(PopDuration)}
	if volume <= 0 {
		return &effects.Volume{Streamer: p, Base: 2, Silent: true}
	}
	return &effects.Volume{Streamer: p, Base: 2, Volume: math.Log2(math.Min(volume, 1))}
}

func (p *pop) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		if p.pos >= p.total {
			return i, i > 0
		}

		progress := float64(p.pos) / float64(p.total)
		freq := popStartFreq + (popEndFreq-popStartFreq)*progress
		t := float64(p.pos) / float64(p.rate)

		v := math.Exp(-t*popDecay) * math.Sin(2*math.Pi*p.phase)
		samples[i][0] = v
		samples[i][1] = v

		p.phase += freq / float64(p.rate)
		p.phase -= math.Floor(p.phase)
		p.pos++
	}
	return len(samples), true
}

func (p *pop) Err() error { return nil }
