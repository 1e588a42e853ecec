// package analysis looks at audio after it has been made, for meters and
// displays. Nothing here is fast enough to run in an audio callback.
package analysis

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/ktye/fft"
)

// Analyzer computes magnitude spectra of fixed size blocks.
type Analyzer struct {
	fft    fft.FFT
	window []float64
	gain   float64 // makes a full scale sine come out as 1
	buf    []complex128
	mag    []float64
}

// New makes an Analyzer for blocks of size samples, which must be a power of
// two.
func New(size int) (*Analyzer, error) {
	if size < 2 || size&(size-1) != 0 {
		return nil, fmt.Errorf("analysis size %d is not a power of two", size)
	}
	f, err := fft.New(size)
	if err != nil {
		return nil, err
	}
	// Hann window.
	window := make([]float64, size)
	buf := make([]complex128, size)
	for i := range window {
		window[i] = (1 - math.Cos(2*math.Pi*float64(i)/float64(size))) / 2
		buf[i] = complex(window[i], 0)
	}
	// The DC bin of the window on its own is what a constant 1 comes out
	// as, whatever scaling the transform uses. A sine shows up at half
	// that.
	buf = f.Transform(buf)
	return &Analyzer{
		fft:    f,
		window: window,
		gain:   2 / cmplx.Abs(buf[0]),
		buf:    buf,
		mag:    make([]float64, size/2+1),
	}, nil
}

// Size is the number of samples in a block.
func (a *Analyzer) Size() int { return len(a.window) }

// Spectrum returns the magnitude of each frequency bin from 0 to half the
// sample rate. If samples is shorter than the block it is zero padded; if it
// is longer only the most recent samples (the end) are used. The result is
// reused by the next call.
func (a *Analyzer) Spectrum(samples []float32) []float64 {
	if len(samples) > len(a.buf) {
		samples = samples[len(samples)-len(a.buf):]
	}
	for i := range a.buf {
		var x float64
		if i < len(samples) {
			x = float64(samples[i])
		}
		a.buf[i] = complex(x*a.window[i], 0)
	}
	a.buf = a.fft.Transform(a.buf)
	for i := range a.mag {
		a.mag[i] = cmplx.Abs(a.buf[i]) * a.gain
	}
	return a.mag
}

// BinFreq is the centre frequency of bin i at the given sample rate.
func (a *Analyzer) BinFreq(i int, samplerate float64) float64 {
	return float64(i) * samplerate / float64(len(a.window))
}

// Peak finds the loudest frequency in samples, refined between bins by fitting
// a parabola. Returns 0, 0 for silence.
func (a *Analyzer) Peak(samples []float32, samplerate float64) (freq, mag float64) {
	m := a.Spectrum(samples)
	best := 0
	for i := 1; i < len(m); i++ {
		if m[i] > m[best] {
			best = i
		}
	}
	if m[best] == 0 {
		return 0, 0
	}
	offset := 0.0
	if best > 0 && best < len(m)-1 {
		l, c, r := m[best-1], m[best], m[best+1]
		if d := l - 2*c + r; d != 0 {
			offset = 0.5 * (l - r) / d
		}
	}
	return (float64(best) + offset) * samplerate / float64(len(a.window)), m[best]
}

// RMS is the root mean square level of samples.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
