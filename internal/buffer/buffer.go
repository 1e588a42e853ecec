// package buffer provides some audio buffer primitives.
package buffer

import (
	"errors"

	"golang.org/x/exp/constraints"
)

// ErrCapacity is returned when asking for a buffer that can't hold anything.
var ErrCapacity = errors.New("buffer capacity must be positive")

// History is a ring buffer that remembers the most recent samples written to
// it, overwriting the oldest when it is full. It never allocates after it has
// been created. It is not safe for concurrent use.
type History[T constraints.Float] struct {
	buf    []T
	writep int // where the next sample goes
	n      int // number of valid samples, up to len(buf)
	total  uint64
}

// NewHistory allocates a History that holds size samples.
func NewHistory[T constraints.Float](size int) (*History[T], error) {
	if size <= 0 {
		return nil, ErrCapacity
	}
	return &History[T]{buf: make([]T, size)}, nil
}

// Push adds a sample, dropping the oldest one if the buffer is full.
func (h *History[T]) Push(s T) {
	h.buf[h.writep] = s
	h.writep++
	if h.writep == len(h.buf) {
		h.writep = 0
	}
	if h.n < len(h.buf) {
		h.n++
	}
	h.total++
}

// Get returns the sample i pushes ago, so Get(0) is the most recent. The second
// result is false if the buffer doesn't go back that far.
func (h *History[T]) Get(i int) (T, bool) {
	if i < 0 || i >= h.n {
		return 0, false
	}
	j := h.writep - 1 - i
	if j < 0 {
		j += len(h.buf)
	}
	return h.buf[j], true
}

// Len is the number of samples currently held.
func (h *History[T]) Len() int { return h.n }

// Cap is the most samples the buffer will hold.
func (h *History[T]) Cap() int { return len(h.buf) }

// Total is the number of samples ever pushed. Total()-Len() samples have been
// overwritten.
func (h *History[T]) Total() uint64 { return h.total }

// Window copies the most recent samples into dst, oldest first, so the last
// element of dst is the most recent sample. If there are fewer samples than
// len(dst) only the start of dst is written. Returns the number of samples
// copied.
func (h *History[T]) Window(dst []T) int {
	n := min(len(dst), h.n)
	start := h.writep - n
	if start < 0 {
		start += len(h.buf)
	}
	copied := copy(dst[:n], h.buf[start:])
	if copied < n {
		// wrapped around the end.
		copy(dst[copied:n], h.buf)
	}
	return n
}
