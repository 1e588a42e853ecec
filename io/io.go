// package io does audio out.
package io

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/gen2brain/malgo"
)

// Source is something that can be pulled from by an audio device, such as a
// polysynth.Shared. Render must not block.
type Source interface {
	SetSampleRate(float64) error
	Render(out []float32, channels int) bool
}

// Options configure the output device. The zero value uses the device's own
// sample rate, two channels of float32 and the default backend.
type Options struct {
	// SampleRate in Hz, or 0 for whatever the device prefers.
	SampleRate uint32
	Channels   int
	// Format is malgo.FormatF32 or malgo.FormatS16. Unknown is F32.
	Format   malgo.FormatType
	Backends []malgo.Backend
	// Record, if not empty, is a wav file to also write the output to.
	Record string
}

var backends = map[string]malgo.Backend{
	"alsa":       malgo.BackendAlsa,
	"pulseaudio": malgo.BackendPulseaudio,
	"jack":       malgo.BackendJack,
	"coreaudio":  malgo.BackendCoreaudio,
	"wasapi":     malgo.BackendWasapi,
	"null":       malgo.BackendNull,
}

// ParseBackend turns a name like "jack" or "alsa" into a backend.
func ParseBackend(name string) (malgo.Backend, error) {
	b, ok := backends[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("unknown audio backend %q", name)
	}
	return b, nil
}

// ParseFormat turns "f32" or "s16" into a sample format.
func ParseFormat(name string) (malgo.FormatType, error) {
	switch strings.ToLower(name) {
	case "", "f32":
		return malgo.FormatF32, nil
	case "s16":
		return malgo.FormatS16, nil
	}
	return malgo.FormatUnknown, fmt.Errorf("unsupported sample format %q", name)
}

// Stream is an open output device playing a Source. It owns the device: the
// device keeps pulling from the source until Close.
type Stream struct {
	mctx   *malgo.AllocatedContext
	device *malgo.Device
	p      *player
	rate   uint32
}

// Open opens the default output device for src. The source's sample rate is
// set to whatever the device ends up running at before any samples are
// pulled. Call Start to begin playing.
func Open(src Source, opts Options) (_ *Stream, err error) {
	if opts.Channels <= 0 {
		opts.Channels = 2
	}
	if opts.Format != malgo.FormatS16 {
		opts.Format = malgo.FormatF32
	}
	mctx, err := malgo.InitContext(opts.Backends, malgo.ContextConfig{}, func(msg string) {
		fmt.Fprint(os.Stderr, msg)
	})
	if err != nil {
		return nil, err
	}
	s := &Stream{mctx: mctx}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = opts.Format
	cfg.Playback.Channels = uint32(opts.Channels)
	cfg.SampleRate = opts.SampleRate

	s.p = newPlayer(src, opts.Channels, opts.Format)
	device, err := malgo.InitDevice(mctx.Context, cfg, malgo.DeviceCallbacks{
		Data: s.p.data,
	})
	if err != nil {
		return nil, err
	}
	s.device = device
	s.rate = device.SampleRate()
	if err := src.SetSampleRate(float64(s.rate)); err != nil {
		return nil, fmt.Errorf("device sample rate %d: %w", s.rate, err)
	}

	if opts.Record != "" {
		f, err := os.Create(opts.Record)
		if err != nil {
			return nil, err
		}
		s.p.rec = NewRecorder(f, int(s.rate), opts.Channels)
	}
	return s, nil
}

// SampleRate is the rate the device is running at.
func (s *Stream) SampleRate() uint32 { return s.rate }

// Start starts pulling samples.
func (s *Stream) Start() error {
	return s.device.Start()
}

// Close stops the device and releases everything it holds. It is safe to call
// more than once.
func (s *Stream) Close() error {
	var errs []error
	if s.device != nil {
		if s.device.IsStarted() {
			errs = append(errs, s.device.Stop())
		}
		s.device.Uninit()
		s.device = nil
	}
	if s.mctx != nil {
		errs = append(errs, s.mctx.Uninit())
		s.mctx.Free()
		s.mctx = nil
	}
	if s.p != nil && s.p.rec != nil {
		errs = append(errs, s.p.rec.Close())
		s.p.rec = nil
	}
	return errors.Join(errs...)
}

// PlayWithDefaults plays src on the default output device until ctx is
// cancelled.
func PlayWithDefaults(ctx context.Context, src Source, opts Options) error {
	s, err := Open(src, opts)
	if err != nil {
		return err
	}
	if err := s.Start(); err != nil {
		s.Close()
		return err
	}
	fmt.Fprintf(os.Stderr, "Playing at %dHz\n", s.SampleRate())

	<-ctx.Done()

	return s.Close()
}

// player is the device callback. It keeps its buffers between calls so
// nothing is allocated while playing unless the device asks for a bigger
// buffer than it ever has before.
type player struct {
	src      Source
	channels int
	format   malgo.FormatType
	buf      []float32
	rec      *Recorder
}

func newPlayer(src Source, channels int, format malgo.FormatType) *player {
	return &player{
		src:      src,
		channels: channels,
		format:   format,
		buf:      make([]float32, 4096*channels),
	}
}

func (p *player) data(out, _ []byte, framecount uint32) {
	if framecount == 0 {
		return
	}
	// The device can't be told about errors, and a panic here would
	// take the whole program down; play silence and keep going.
	defer func() {
		if r := recover(); r != nil {
			clear(out)
			fmt.Fprintf(os.Stderr, "audio callback: %v\n", r)
		}
	}()
	n := int(framecount) * p.channels
	if n > len(p.buf) {
		p.buf = make([]float32, n)
	}
	buf := p.buf[:n]
	p.src.Render(buf, p.channels)
	encode(out, buf, p.format)
	if p.rec != nil {
		p.rec.Write(buf)
	}
}

// encode writes samples into out in the given format, little endian.
func encode(out []byte, samples []float32, format malgo.FormatType) {
	switch format {
	case malgo.FormatS16:
		for i, f := range samples {
			binary.LittleEndian.PutUint16(out[i*2:], uint16(toS16(f)))
		}
	default:
		for i, f := range samples {
			binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
		}
	}
}

// toS16 converts a sample to 16 bits, clipping anything outside [-1, 1].
func toS16(f float32) int16 {
	f = max(-1, min(1, f))
	return int16(f * math.MaxInt16)
}
