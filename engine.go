package polysynth

import (
	"fmt"

	"github.com/pfcm/polysynth/env"
	"github.com/pfcm/polysynth/internal/buffer"
	"github.com/pfcm/polysynth/osc"
)

// Config holds everything needed to build an Engine.
type Config struct {
	// SampleRate is the initial rate in Hz. The device may change it
	// later with SetSampleRate.
	SampleRate float64
	// HistorySize is how many of the most recent samples are kept for
	// observers.
	HistorySize int
	Envelope    env.ADSR
}

// DefaultConfig is 48kHz with a little under a tenth of a second of history.
func DefaultConfig() Config {
	return Config{
		SampleRate:  48000,
		HistorySize: 4096,
		Envelope:    env.Default(),
	}
}

// Engine is the synthesizer itself. It owns the voices and produces one
// sample at a time. None of its methods are safe for concurrent use; see
// Shared.
type Engine struct {
	rate     float64
	clock    osc.Clock
	time     float64 // seconds since creation
	adsr     env.ADSR
	partials osc.Partials

	// at most one per key, so never more than 128.
	voices []voice

	history *buffer.History[float32] // its Total is the number of samples produced
	last    float32
}

// New creates an Engine from the config.
func New(cfg Config) (*Engine, error) {
	if !(cfg.SampleRate > 0) {
		return nil, fmt.Errorf("%w: sample rate %v", ErrConfig, cfg.SampleRate)
	}
	if err := cfg.Envelope.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	h, err := buffer.NewHistory[float32](cfg.HistorySize)
	if err != nil {
		return nil, fmt.Errorf("%w: history size %d: %w", ErrConfig, cfg.HistorySize, err)
	}
	return &Engine{
		rate:     cfg.SampleRate,
		adsr:     cfg.Envelope,
		partials: osc.Fundamental,
		voices:   make([]voice, 0, int(MaxKey)+1),
		history:  h,
	}, nil
}

// Advance produces the next sample. It takes time proportional to the number
// of voices and doesn't allocate.
func (e *Engine) Advance() float32 {
	e.clock.Tick(e.rate)
	e.time += 1 / e.rate

	var out float64
	for i := range e.voices {
		v := &e.voices[i]
		amp := v.amplitude(&e.adsr, e.time) * float64(v.velocity)
		out += osc.Sine(e.clock, v.freq, e.rate, &e.partials) * amp
	}

	// Reclaim voices that have finished releasing, keeping the rest in
	// place.
	live := e.voices[:0]
	for _, v := range e.voices {
		if v.released && e.adsr.Done(e.time-v.release) {
			continue
		}
		live = append(live, v)
	}
	e.voices = live

	s := float32(out)
	e.history.Push(s)
	e.last = s
	return s
}

// Fill writes one sample per frame into out, copied to every channel of the
// frame. len(out) should be a multiple of channels; any partial frame left at
// the end is silenced.
func (e *Engine) Fill(out []float32, channels int) {
	if channels < 1 {
		channels = 1
	}
	i := 0
	for ; i+channels <= len(out); i += channels {
		s := e.Advance()
		for c := 0; c < channels; c++ {
			out[i+c] = s
		}
	}
	clear(out[i:])
}

// NoteOn starts a note. A key that is already sounding, held or not, is
// replaced rather than doubled up. Velocity is clamped to [0, 1], and NaN
// counts as 0.
func (e *Engine) NoteOn(k Key, velocity float32) error {
	if !k.Valid() {
		return fmt.Errorf("%w: %d", ErrKeyRange, uint8(k))
	}
	if !(velocity > 0) {
		velocity = 0
	}
	velocity = min(1, velocity)
	e.remove(k)
	e.voices = append(e.voices, newVoice(k, velocity, e.time))
	return nil
}

// NoteOff releases the held voice for k. It reports whether there was one;
// releasing a key that isn't down does nothing, since devices can repeat or
// drop events.
func (e *Engine) NoteOff(k Key) bool {
	for i := range e.voices {
		v := &e.voices[i]
		if v.key == k && !v.released {
			v.released = true
			v.release = e.time
			return true
		}
	}
	return false
}

// AllNotesOff releases every held voice and returns how many there were.
func (e *Engine) AllNotesOff() int {
	n := 0
	for i := range e.voices {
		if v := &e.voices[i]; !v.released {
			v.released = true
			v.release = e.time
			n++
		}
	}
	return n
}

func (e *Engine) remove(k Key) {
	for i, v := range e.voices {
		if v.key == k {
			last := len(e.voices) - 1
			e.voices[i] = e.voices[last]
			e.voices = e.voices[:last]
			return
		}
	}
}

// SetSampleRate changes the rate the engine runs at. Voices carry on from
// where they are.
func (e *Engine) SetSampleRate(rate float64) error {
	if !(rate > 0) {
		return fmt.Errorf("%w: sample rate %v", ErrConfig, rate)
	}
	e.rate = rate
	e.clock.Rewrap(rate)
	return nil
}

func (e *Engine) SampleRate() float64 { return e.rate }

// Time is the number of seconds of audio produced so far.
func (e *Engine) Time() float64 { return e.time }

// Produced is the number of samples produced so far.
func (e *Engine) Produced() uint64 { return e.history.Total() }

// LastSample is the sample most recently returned by Advance.
func (e *Engine) LastSample() float32 { return e.last }

// Envelope returns the envelope shared by all the voices.
func (e *Engine) Envelope() env.ADSR { return e.adsr }

// History returns the sample produced i samples ago, where 0 is the most
// recent. The second result is false if that sample has been forgotten or
// never existed.
func (e *Engine) History(i int) (float32, bool) { return e.history.Get(i) }

// HistoryLen is the number of samples available through History.
func (e *Engine) HistoryLen() int { return e.history.Len() }

// Window copies the most recent samples into dst, oldest first. It returns
// how many were copied.
func (e *Engine) Window(dst []float32) int { return e.history.Window(dst) }

// NumVoices is the number of voices currently sounding, including those in
// their release.
func (e *Engine) NumVoices() int { return len(e.voices) }

// Voices appends the state of every voice to dst.
func (e *Engine) Voices(dst []VoiceState) []VoiceState {
	for i := range e.voices {
		dst = append(dst, e.voices[i].state(&e.adsr, e.time))
	}
	return dst
}

// Partial returns the weight of harmonic i, where 0 is the fundamental.
func (e *Engine) Partial(i int) (float32, bool) {
	if i < 0 || i >= len(e.partials) {
		return 0, false
	}
	return e.partials[i], true
}

// SetPartial sets the weight of harmonic i.
func (e *Engine) SetPartial(i int, w float32) error {
	if i < 0 || i >= len(e.partials) {
		return fmt.Errorf("%w: partial %d of %d", ErrParamIndex, i, len(e.partials))
	}
	e.partials[i] = w
	return nil
}

// Partials returns a copy of all the harmonic weights.
func (e *Engine) Partials() osc.Partials { return e.partials }
