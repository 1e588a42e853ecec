// package env provides envelope generators.
package env

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/constraints"
)

// ErrInvalid is returned by Validate for envelopes that can't be evaluated.
var ErrInvalid = errors.New("invalid envelope")

// Stage is the part of the envelope a voice is in.
type Stage byte

const (
	Idle Stage = iota
	Attack
	Decay
	Sustain
	Release
)

func (s Stage) String() string {
	return []string{
		Idle:    "x",
		Attack:  "A",
		Decay:   "D",
		Sustain: "S",
		Release: "R",
	}[s]
}

// ADSR is an attack-decay-sustain-release envelope. Unlike a sample counting
// envelope it holds no state: the amplitude is a function of how long the
// note has been held and how long ago it was released, so one ADSR can be
// shared by every voice.
type ADSR struct {
	Attack  time.Duration
	Decay   time.Duration
	Sustain float64 // level, 0 to 1
	Release time.Duration
}

// Default is a short attack piano-ish envelope.
func Default() ADSR {
	return ADSR{
		Attack:  10 * time.Millisecond,
		Decay:   400 * time.Millisecond,
		Sustain: 0.5,
		Release: 600 * time.Millisecond,
	}
}

func (a ADSR) String() string {
	return fmt.Sprintf("ADSR(%v,%v,%.2f,%v)", a.Attack, a.Decay, a.Sustain, a.Release)
}

// Validate checks that all the durations are non-negative and the sustain
// level is between 0 and 1.
func (a ADSR) Validate() error {
	switch {
	case a.Attack < 0:
		return fmt.Errorf("%w: negative attack %v", ErrInvalid, a.Attack)
	case a.Decay < 0:
		return fmt.Errorf("%w: negative decay %v", ErrInvalid, a.Decay)
	case a.Release < 0:
		return fmt.Errorf("%w: negative release %v", ErrInvalid, a.Release)
	case a.Sustain < 0 || a.Sustain > 1:
		return fmt.Errorf("%w: sustain %v outside [0, 1]", ErrInvalid, a.Sustain)
	}
	return nil
}

// Evaluate returns the amplitude of the envelope. t is the number of seconds
// the note was held for: for a note that is still down it is the time since
// the start, for a released note it is the time between the start and the
// release. t2 is the number of seconds since the release and is ignored while
// held is true.
func (a ADSR) Evaluate(t, t2 float64, held bool) float64 {
	var (
		att = a.Attack.Seconds()
		dec = a.Decay.Seconds()
		v   float64
	)
	switch {
	case t < att:
		v = lerp(0, 1, t/att)
	case t < att+dec:
		v = lerp(1, a.Sustain, (t-att)/dec)
	default:
		v = a.Sustain
	}
	if held {
		return v
	}
	rel := a.Release.Seconds()
	if rel <= 0 {
		return 0
	}
	return lerp(v, 0, t2/rel)
}

// Stage reports which part of the envelope the arguments fall in, with the same
// meaning as for Evaluate.
func (a ADSR) Stage(t, t2 float64, held bool) Stage {
	if !held {
		if t2 >= a.Release.Seconds() {
			return Idle
		}
		return Release
	}
	att := a.Attack.Seconds()
	switch {
	case t < att:
		return Attack
	case t < att+a.Decay.Seconds():
		return Decay
	}
	return Sustain
}

// Done reports whether a note released t2 seconds ago is silent for good.
func (a ADSR) Done(t2 float64) bool {
	return t2 >= a.Release.Seconds()
}

// lerp interpolates linearly between a and b. Any c outside of [0, 1] counts
// as 0, so callers only ever see a or somewhere between a and b.
func lerp[T constraints.Float](a, b, c T) T {
	if c < 0 || c > 1 {
		c = 0
	}
	return a*(1-c) + b*c
}
