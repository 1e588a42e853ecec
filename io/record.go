package io

import (
	goio "io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"
)

// Recorder writes audio to a 16 bit wav file in the background, so it can be
// fed from an audio callback. If it falls behind, blocks are dropped rather
// than holding up the caller.
type Recorder struct {
	w        goio.WriteSeeker
	enc      *wav.Encoder
	rate     int
	channels int

	c       chan *[]float32
	done    chan error
	pool    sync.Pool
	dropped atomic.Uint64
	once    sync.Once
	err     error
}

// NewRecorder starts recording to w, which is closed by Close if it is an
// io.Closer.
func NewRecorder(w goio.WriteSeeker, rate, channels int) *Recorder {
	r := &Recorder{
		w:        w,
		enc:      wav.NewEncoder(w, rate, 16, channels, 1),
		rate:     rate,
		channels: channels,
		c:        make(chan *[]float32, 64),
		done:     make(chan error, 1),
		pool: sync.Pool{
			New: func() any {
				b := make([]float32, 0, 4096*channels)
				return &b
			},
		},
	}
	go r.run()
	return r
}

func (r *Recorder) run() {
	var err error
	for b := range r.c {
		if err == nil {
			err = r.enc.Write(float32Buffer(*b, r.rate, r.channels))
		}
		*b = (*b)[:0]
		r.pool.Put(b)
	}
	r.done <- err
}

func float32Buffer(data []float32, rate, channels int) *audio.Float32Buffer {
	return &audio.Float32Buffer{
		Format: &audio.Format{
			SampleRate:  rate,
			NumChannels: channels,
		},
		Data:           data,
		SourceBitDepth: 16,
	}
}

// Write queues interleaved samples to be written. It never blocks; it reports
// false if the samples had to be dropped.
func (r *Recorder) Write(samples []float32) bool {
	b := r.pool.Get().(*[]float32)
	*b = append((*b)[:0], samples...)
	select {
	case r.c <- b:
		return true
	default:
		r.pool.Put(b)
		r.dropped.Add(uint64(len(samples)))
		return false
	}
}

// Dropped is the number of samples Write couldn't keep up with.
func (r *Recorder) Dropped() uint64 { return r.dropped.Load() }

// Close waits for everything queued to be written, then finishes the file.
// Write must not be called during or after Close.
func (r *Recorder) Close() error {
	r.once.Do(func() {
		close(r.c)
		err := <-r.done
		if cerr := r.enc.Close(); err == nil {
			err = cerr
		}
		if c, ok := r.w.(goio.Closer); ok {
			if cerr := c.Close(); err == nil {
				err = cerr
			}
		}
		r.err = err
	})
	return r.err
}

// WriteWAV writes interleaved samples to a new 16 bit wav file at path.
func WriteWAV(path string, samples []float32, rate, channels int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	if err := enc.Write(float32Buffer(samples, rate, channels)); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return f.Close()
}
