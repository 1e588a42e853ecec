package polysynth

import (
	"sync"
	"sync/atomic"
)

// Shared guards an Engine so it can be used from several goroutines. The only
// way to touch the engine is through a function run while holding the lock;
// the event and observer methods are conveniences built on Do. Render and
// Snapshot take the lock themselves so the audio callback and the status
// loop don't allocate a closure every time.
//
// There are three kinds of user. The audio device calls Render, which never
// waits: if anyone else has the lock it plays silence instead. Event sources
// call NoteOn and NoteOff, taking the lock once per event. Observers copy
// out what they need with Snapshot or the small getters, and must not do
// anything slow inside Do.
type Shared struct {
	mu sync.Mutex
	e  *Engine

	dropped atomic.Uint64 // frames replaced by silence
}

// NewShared takes ownership of e. It must not be used directly afterwards.
func NewShared(e *Engine) *Shared {
	return &Shared{e: e}
}

// Do runs f with exclusive access to the engine, waiting as long as it takes.
// f must not keep the engine after it returns.
func (s *Shared) Do(f func(*Engine)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f(s.e)
}

// TryDo runs f with exclusive access to the engine if it can do so without
// waiting, reporting whether f ran.
func (s *Shared) TryDo(f func(*Engine)) bool {
	if !s.mu.TryLock() {
		return false
	}
	defer s.mu.Unlock()
	f(s.e)
	return true
}

// Render fills out with interleaved frames of channels samples, duplicating
// each sample across the frame. It never blocks: if the engine is busy the
// whole buffer is silence and Render returns false.
func (s *Shared) Render(out []float32, channels int) bool {
	if !s.mu.TryLock() {
		clear(out)
		s.dropped.Add(uint64(len(out) / max(1, channels)))
		return false
	}
	defer s.mu.Unlock()
	s.e.Fill(out, channels)
	return true
}

// Dropped is the number of frames Render has replaced with silence.
func (s *Shared) Dropped() uint64 { return s.dropped.Load() }

// SetSampleRate changes the engine's sample rate. Devices should call it
// before they start pulling samples.
func (s *Shared) SetSampleRate(rate float64) (err error) {
	s.Do(func(e *Engine) { err = e.SetSampleRate(rate) })
	return err
}

func (s *Shared) NoteOn(k Key, velocity float32) (err error) {
	s.Do(func(e *Engine) { err = e.NoteOn(k, velocity) })
	return err
}

func (s *Shared) NoteOff(k Key) (released bool) {
	s.Do(func(e *Engine) { released = e.NoteOff(k) })
	return released
}

func (s *Shared) AllNotesOff() (n int) {
	s.Do(func(e *Engine) { n = e.AllNotesOff() })
	return n
}

func (s *Shared) LastSample() (last float32) {
	s.Do(func(e *Engine) { last = e.LastSample() })
	return last
}

// HistoryAt returns the sample produced i samples ago along with the total
// number produced when it was read, so callers can tell which samples they
// have already seen.
func (s *Shared) HistoryAt(i int) (sample float32, total uint64, ok bool) {
	s.Do(func(e *Engine) {
		sample, ok = e.History(i)
		total = e.Produced()
	})
	return sample, total, ok
}

func (s *Shared) Partial(i int) (w float32, ok bool) {
	s.Do(func(e *Engine) { w, ok = e.Partial(i) })
	return w, ok
}

func (s *Shared) SetPartial(i int, w float32) (err error) {
	s.Do(func(e *Engine) { err = e.SetPartial(i, w) })
	return err
}

// Snapshot is a copy of the engine state for observers. Its slices are reused
// between calls to Shared.Snapshot.
type Snapshot struct {
	SampleRate float64
	Time       float64
	Produced   uint64
	Dropped    uint64
	LastSample float32
	Voices     []VoiceState
	// Window holds the most recent samples, oldest first. Snapshot fills
	// it up to its capacity, so allocate it once with the size you want.
	Window []float32
}

// Snapshot copies the engine state into dst.
func (s *Shared) Snapshot(dst *Snapshot) {
	w := dst.Window[:cap(dst.Window)]
	s.mu.Lock()
	dst.SampleRate = s.e.SampleRate()
	dst.Time = s.e.Time()
	dst.Produced = s.e.Produced()
	dst.LastSample = s.e.LastSample()
	dst.Voices = s.e.Voices(dst.Voices[:0])
	n := s.e.Window(w)
	s.mu.Unlock()
	dst.Window = w[:n]
	dst.Dropped = s.Dropped()
}
