package hid

import (
	"sync"
	"time"

	"github.com/pfcm/polysynth"
)

// Span is a note on the piano roll. Times are device timestamps.
type Span struct {
	Key      polysynth.Key
	Velocity byte
	Start    time.Duration
	End      time.Duration
	// Open spans are still held; their End is whatever time they were
	// looked at.
	Open bool
}

// Roll remembers recent notes so they can be drawn as a piano roll. It keeps
// at most a fixed number of finished notes, forgetting the oldest. It is safe
// for concurrent use.
type Roll struct {
	max int

	mu     sync.Mutex
	closed []Span
	open   [int(polysynth.MaxKey) + 1]*Span
	first  time.Duration
	seen   bool
}

// NewRoll makes a Roll that keeps up to max finished notes.
func NewRoll(max int) *Roll {
	return &Roll{max: max}
}

// NoteOn starts a span. A key that is already held is finished first, the same
// way the synth retriggers it.
func (r *Roll) NoteOn(k polysynth.Key, velocity byte, t time.Duration) {
	if !k.Valid() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.seen {
		r.first, r.seen = t, true
	}
	r.finish(k, t)
	r.open[k] = &Span{Key: k, Velocity: velocity, Start: t, Open: true}
}

// NoteOff finishes the span for k, if there is one.
func (r *Roll) NoteOff(k polysynth.Key, t time.Duration) {
	if !k.Valid() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finish(k, t)
}

func (r *Roll) finish(k polysynth.Key, t time.Duration) {
	s := r.open[k]
	if s == nil {
		return
	}
	r.open[k] = nil
	s.End, s.Open = t, false
	if r.max <= 0 {
		return
	}
	if len(r.closed) == r.max {
		n := copy(r.closed, r.closed[1:])
		r.closed = r.closed[:n]
	}
	r.closed = append(r.closed, *s)
}

// Spans appends every remembered note to dst, finished ones first in the order
// they finished, then held ones ending at now.
func (r *Roll) Spans(now time.Duration, dst []Span) []Span {
	r.mu.Lock()
	defer r.mu.Unlock()
	dst = append(dst, r.closed...)
	for _, s := range r.open {
		if s == nil {
			continue
		}
		o := *s
		o.End = now
		dst = append(dst, o)
	}
	return dst
}

// Start is the time of the first note the roll saw.
func (r *Roll) Start() (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.first, r.seen
}

// Range returns the lowest and highest keys among the remembered notes, for
// scaling a drawing.
func (r *Roll) Range() (lo, hi polysynth.Key, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lo, hi = polysynth.MaxKey, 0
	see := func(k polysynth.Key) {
		lo, hi, ok = min(lo, k), max(hi, k), true
	}
	for _, s := range r.closed {
		see(s.Key)
	}
	for _, s := range r.open {
		if s != nil {
			see(s.Key)
		}
	}
	if !ok {
		return 0, 0, false
	}
	return lo, hi, true
}
