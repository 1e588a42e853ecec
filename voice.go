package polysynth

import (
	"fmt"

	"github.com/pfcm/polysynth/env"
	"github.com/pfcm/polysynth/osc"
)

// voice is a single note, held or on its way out. Times are engine seconds.
type voice struct {
	key      Key
	freq     float64
	velocity float32
	start    float64
	release  float64
	released bool
}

// amplitude is the envelope level of the voice at time now, not including the
// velocity. A voice past the end of its release is silent even before it is
// reclaimed.
func (v *voice) amplitude(a *env.ADSR, now float64) float64 {
	if !v.released {
		return a.Evaluate(now-v.start, 0, true)
	}
	if a.Done(now - v.release) {
		return 0
	}
	return a.Evaluate(v.release-v.start, now-v.release, false)
}

func (v *voice) state(a *env.ADSR, now float64) VoiceState {
	s := VoiceState{
		Key:      v.key,
		Velocity: v.velocity,
		Start:    v.start,
		Released: v.released,
		Level:    float32(v.amplitude(a, now)) * v.velocity,
	}
	if v.released {
		s.Release = v.release
		s.Stage = a.Stage(v.release-v.start, now-v.release, false)
	} else {
		s.Stage = a.Stage(now-v.start, 0, true)
	}
	return s
}

// VoiceState is a copy of what a voice is doing, for showing to people.
type VoiceState struct {
	Key      Key
	Velocity float32
	Start    float64 // engine seconds
	Release  float64 // engine seconds, only meaningful if Released
	Released bool
	Stage    env.Stage
	Level    float32 // current envelope times velocity
}

func (s VoiceState) String() string {
	return fmt.Sprintf("%v[%v %.2f]", s.Key, s.Stage, s.Level)
}

func newVoice(k Key, velocity float32, now float64) voice {
	return voice{
		key:      k,
		freq:     osc.Freq(uint8(k)),
		velocity: velocity,
		start:    now,
	}
}
