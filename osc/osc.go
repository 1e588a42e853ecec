// package osc provides oscillators.
package osc

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NumPartials is the number of harmonics a voice can mix together.
const NumPartials = 8

// Partials are the mix weights of the harmonics of a note, starting with the
// fundamental.
type Partials [NumPartials]float32

// Fundamental only plays the note itself: a plain sine.
var Fundamental = Partials{1}

// ParsePartials reads comma separated harmonic weights, fundamental first.
// Missing harmonics are 0.
func ParsePartials(s string) (Partials, error) {
	var ps Partials
	fields := strings.Split(s, ",")
	if len(fields) > NumPartials {
		return ps, fmt.Errorf("%d partials, at most %d allowed", len(fields), NumPartials)
	}
	for i, f := range fields {
		w, err := strconv.ParseFloat(strings.TrimSpace(f), 32)
		if err != nil || math.IsNaN(w) || math.IsInf(w, 0) {
			return ps, fmt.Errorf("partial %d: bad weight %q", i, f)
		}
		ps[i] = float32(w)
	}
	return ps, nil
}

// Freq turns a MIDI note into a frequency in Hz, in 12 tone equal temperament
// with A4 (note 69) at 440Hz.
func Freq(note uint8) float64 {
	return math.Pow(2.0, (float64(note)-69)/12) * 440
}

// Clock is a phase accumulator counting samples. It wraps around every second
// (every samplerate samples) so it never gets large enough to lose precision.
type Clock float64

// Tick advances the clock by a sample.
func (c *Clock) Tick(samplerate float64) {
	*c = Clock(math.Mod(float64(*c)+1, samplerate))
}

// Rewrap brings the clock back into range after the sample rate changed.
func (c *Clock) Rewrap(samplerate float64) {
	*c = Clock(math.Mod(float64(*c), samplerate))
}

// Sine returns the sum of the weighted harmonics of freq at the given clock
// position. Partials with a zero weight cost nothing.
func Sine(clock Clock, freq, samplerate float64, ps *Partials) float64 {
	var (
		phase = 2 * math.Pi * float64(clock) * freq / samplerate
		out   float64
	)
	for h, w := range ps {
		if w == 0 {
			continue
		}
		out += float64(w) * math.Sin(phase*float64(h+1))
	}
	return out
}
