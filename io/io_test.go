package io

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/gen2brain/malgo"

	"github.com/pfcm/polysynth"
)

func TestEncode(t *testing.T) {
	samples := []float32{0, 0.5, -1, 2}

	out := make([]byte, 4*len(samples))
	encode(out, samples, malgo.FormatF32)
	for i, want := range samples {
		got := math.Float32frombits(binary.LittleEndian.Uint32(out[i*4:]))
		if got != want {
			t.Errorf("f32 sample %d = %v, want: %v", i, got, want)
		}
	}

	out = make([]byte, 2*len(samples))
	encode(out, samples, malgo.FormatS16)
	for i, want := range []int16{0, 16383, -32767, 32767} {
		got := int16(binary.LittleEndian.Uint16(out[i*2:]))
		if got != want {
			t.Errorf("s16 sample %d = %v, want: %v", i, got, want)
		}
	}
}

type panicky struct{}

func (panicky) SetSampleRate(float64) error        { return nil }
func (panicky) Render(out []float32, _ int) bool { panic("oh no") }

func TestPlayerSurvivesPanics(t *testing.T) {
	p := newPlayer(panicky{}, 2, malgo.FormatF32)
	out := make([]byte, 4*2*16)
	for i := range out {
		out[i] = 0xFF
	}
	p.data(out, nil, 16)
	for i, b := range out {
		if b != 0 {
			t.Fatalf("out[%d] = %#x after a panic, want silence", i, b)
		}
	}
}

func TestPlayerRendersSynth(t *testing.T) {
	e, err := polysynth.New(polysynth.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	s := polysynth.NewShared(e)
	if err := s.NoteOn(69, 1); err != nil {
		t.Fatal(err)
	}
	// Bigger than the initial buffer, to make sure it grows.
	const frames = 5000
	p := newPlayer(s, 2, malgo.FormatF32)
	out := make([]byte, 4*2*frames)
	p.data(out, nil, frames)

	var snap polysynth.Snapshot
	s.Snapshot(&snap)
	if snap.Produced != frames {
		t.Errorf("Produced = %d, want: %d", snap.Produced, frames)
	}
	last := len(out) - 8
	l := math.Float32frombits(binary.LittleEndian.Uint32(out[last:]))
	r := math.Float32frombits(binary.LittleEndian.Uint32(out[last+4:]))
	if l != snap.LastSample || r != snap.LastSample {
		t.Errorf("last frame = %v, %v, want: %v on both channels", l, r, snap.LastSample)
	}
}

func TestPlayerSilentWhenSynthBusy(t *testing.T) {
	e, _ := polysynth.New(polysynth.DefaultConfig())
	s := polysynth.NewShared(e)
	s.NoteOn(69, 1)
	p := newPlayer(s, 1, malgo.FormatS16)
	out := make([]byte, 2*32)
	for i := range out {
		out[i] = 0xAA
	}
	s.Do(func(*polysynth.Engine) {
		p.data(out, nil, 32)
	})
	for i, b := range out {
		if b != 0 {
			t.Fatalf("out[%d] = %#x while the synth was locked, want silence", i, b)
		}
	}
	if s.Dropped() != 32 {
		t.Errorf("Dropped() = %d, want: 32", s.Dropped())
	}
}

func checkWAV(t *testing.T, path string) []byte {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(b) <= 44 || string(b[:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		n := min(len(b), 12)
		t.Fatalf("%s doesn't look like a wav file: % x", path, b[:n])
	}
	return b
}

func TestRecorder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	r := NewRecorder(f, 48000, 2)
	block := make([]float32, 512)
	for i := range block {
		block[i] = float32(math.Sin(float64(i) / 10))
	}
	for i := 0; i < 4; i++ {
		if !r.Write(block) {
			t.Errorf("Write #%d dropped its samples", i)
		}
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close(): %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("second Close(): %v", err)
	}
	checkWAV(t, path)
}

func TestWriteWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "render.wav")
	samples := make([]float32, 4800)
	for i := range samples {
		samples[i] = float32(math.Sin(2 * math.Pi * 440 * float64(i) / 48000))
	}
	if err := WriteWAV(path, samples, 48000, 1); err != nil {
		t.Fatal(err)
	}
	checkWAV(t, path)
}

func TestParse(t *testing.T) {
	if b, err := ParseBackend("JACK"); err != nil || b != malgo.BackendJack {
		t.Errorf("ParseBackend(JACK) = %v, %v, want: %v, nil", b, err, malgo.BackendJack)
	}
	if _, err := ParseBackend("carrier pigeon"); err == nil {
		t.Error("ParseBackend(carrier pigeon) = nil error")
	}
	for _, c := range []struct {
		name string
		want malgo.FormatType
		ok   bool
	}{
		{"", malgo.FormatF32, true},
		{"f32", malgo.FormatF32, true},
		{"S16", malgo.FormatS16, true},
		{"u8", malgo.FormatUnknown, false},
	} {
		got, err := ParseFormat(c.name)
		if got != c.want || (err == nil) != c.ok {
			t.Errorf("ParseFormat(%q) = %v, %v, want: %v, ok=%v", c.name, got, err, c.want, c.ok)
		}
	}
}
