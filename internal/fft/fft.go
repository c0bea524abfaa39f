// SPDX-License-Identifier: MIT

// Package fft computes the magnitude spectrum of rendered audio. An Analyzer
// is installed as the engine's analysis tap and read by the publishers.
package fft

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"sync"
	"sync/atomic"

	applog "filterplay/internal/log"
	"filterplay/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

var ErrInvalidSize = errors.New("fft size must be a power of 2")

// workspace holds pre-allocated buffers for the transform.
type workspace struct {
	ring      []float64    // ...mono history, written circularly
	input     []float64    // ...windowed input, oldest sample first
	fftOutput []complex128 // ...transform output
	magnitude []float64    // ...scaled magnitudes, read by consumers
	window    []float64    // ...window coefficients
}

// Analyzer keeps the last fftSize frames of the signal (down-mixed to mono)
// and recomputes the spectrum on every block it is given.
//
// Thread Safety:
// - Process runs on the render thread and never blocks: when a reader holds
// the lock the block is skipped
// - Readers copy magnitudes out under a read lock
type Analyzer struct {
	fftSize int
	mask    int
	scale   float64 // Maps a full-scale sine to magnitude ~1.
	fftObj  *fourier.FFT

	mu     sync.RWMutex
	ws     workspace
	head   int
	filled int
	frames uint64 // Spectra computed so far.

	sampleRate atomic.Uint64 // float64 bits
}

// NewAnalyzer pre-allocates all buffers for an fftSize-point transform.
func NewAnalyzer(fftSize int, w WindowFunc) (*Analyzer, error) {
	if fftSize < 2 || !bitint.IsPowerOfTwo(fftSize) {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidSize, fftSize)
	}

	coeffs := make([]float64, fftSize)
	applyWindow(coeffs, w)

	outputSize := fftSize/2 + 1
	a := &Analyzer{
		fftSize: fftSize,
		mask:    fftSize - 1,
		scale:   2 / floats.Sum(coeffs),
		fftObj:  fourier.NewFFT(fftSize),
		ws: workspace{
			ring:      make([]float64, fftSize),
			input:     make([]float64, fftSize),
			fftOutput: make([]complex128, outputSize),
			magnitude: make([]float64, outputSize),
			window:    coeffs,
		},
	}

	applog.Infof("FFT: Initializing Analyzer (Size: %d, Window: %s)", fftSize, w)
	return a, nil
}

// SetSampleRate sets the rate used to label bins. It is called once a
// waveform is loaded.
func (a *Analyzer) SetSampleRate(rate float64) {
	a.sampleRate.Store(math.Float64bits(rate))
}

func (a *Analyzer) SampleRate() float64 {
	return math.Float64frombits(a.sampleRate.Load())
}

// Process feeds one interleaved block. It implements audio.Tap.
func (a *Analyzer) Process(block []float32, channels int) {
	if channels < 1 || len(block) < channels {
		return
	}
	if !a.mu.TryLock() {
		return
	}
	defer a.mu.Unlock()

	frames := len(block) / channels
	inv := 1 / float64(channels)
	for f := range frames {
		var sum float64
		for _, v := range block[f*channels : (f+1)*channels] {
			sum += float64(v)
		}
		a.ws.ring[a.head] = sum * inv
		a.head = (a.head + 1) & a.mask
	}
	a.filled = min(a.filled+frames, a.fftSize)
	if a.filled < a.fftSize {
		return
	}

	for i := range a.fftSize {
		a.ws.input[i] = a.ws.ring[(a.head+i)&a.mask] * a.ws.window[i]
	}
	a.fftObj.Coefficients(a.ws.fftOutput, a.ws.input)
	for i, c := range a.ws.fftOutput {
		a.ws.magnitude[i] = cmplx.Abs(c) * a.scale
	}
	a.frames++
}

// Reset clears the history. The engine calls it whenever playback jumps.
func (a *Analyzer) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	clear(a.ws.ring)
	clear(a.ws.magnitude)
	a.head, a.filled = 0, 0
}

// Magnitudes returns a copy of the latest spectrum.
func (a *Analyzer) Magnitudes() []float64 {
	out := make([]float64, a.Bins())
	_, _ = a.MagnitudesInto(out)
	return out
}

// MagnitudesInto copies the latest spectrum into dst, which must hold
// exactly Bins() values. It returns the number of spectra computed so far so
// callers can tell whether anything changed.
func (a *Analyzer) MagnitudesInto(dst []float64) (uint64, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if len(dst) != len(a.ws.magnitude) {
		return 0, fmt.Errorf("destination slice length %d does not match required length %d", len(dst), len(a.ws.magnitude))
	}
	copy(dst, a.ws.magnitude)
	return a.frames, nil
}

// Size returns the number of points of the transform.
func (a *Analyzer) Size() int { return a.fftSize }

// Bins returns the number of magnitude bins, Size()/2 + 1.
func (a *Analyzer) Bins() int { return a.fftSize/2 + 1 }

// FrequencyForBin returns the centre frequency in Hz of bin i, 0 when i is
// out of range or no sample rate is set.
func (a *Analyzer) FrequencyForBin(i int) float64 {
	if i < 0 || i >= a.Bins() {
		return 0
	}
	return a.fftObj.Freq(i) * a.SampleRate()
}
