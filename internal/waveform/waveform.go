// SPDX-License-Identifier: MIT

// Package waveform holds decoded audio and converts between raw PCM sample
// encodings and normalized float32 samples.
package waveform

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrInvalidLayout     = errors.New("invalid sample layout")
)

// Format is the WAV format tag of a PCM buffer.
type Format uint16

const (
	FormatInt   Format = 1
	FormatFloat Format = 3
)

func (f Format) String() string {
	switch f {
	case FormatInt:
		return "int"
	case FormatFloat:
		return "float"
	default:
		return fmt.Sprintf("format(%d)", uint16(f))
	}
}

// PCM is raw decoded audio as go-audio delivers it: one int per sample,
// interleaved. For 32-bit float data each int carries the IEEE bit pattern.
type PCM struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Format     Format
	Data       []int
}

// Waveform is normalized, interleaved audio. It is not modified after
// construction.
type Waveform struct {
	SampleRate int
	Frames     int
	Channels   int
	Samples    []float32
}

// New wraps interleaved samples.
func New(samples []float32, channels, sampleRate int) (*Waveform, error) {
	if channels < 1 || sampleRate < 1 || len(samples)%channels != 0 {
		return nil, fmt.Errorf("%w: %d samples, %d channels, %d Hz",
			ErrInvalidLayout, len(samples), channels, sampleRate)
	}
	return &Waveform{
		SampleRate: sampleRate,
		Frames:     len(samples) / channels,
		Channels:   channels,
		Samples:    samples,
	}, nil
}

// Duration returns the length in seconds.
func (w *Waveform) Duration() float64 {
	return float64(w.Frames) / float64(w.SampleRate)
}

// Length returns the length as a time.Duration.
func (w *Waveform) Length() time.Duration {
	return time.Duration(w.Duration() * float64(time.Second))
}

// Normalize converts raw PCM to float32 samples. Unsigned 8-bit, signed
// 16-bit, signed 32-bit and 32-bit float are accepted; anything else is
// ErrUnsupportedFormat.
func Normalize(p PCM) (*Waveform, error) {
	var conv func(int) float32
	switch {
	case p.Format == FormatInt && p.BitDepth == 8:
		conv = func(v int) float32 { return float32(v-128) / 128 }
	case p.Format == FormatInt && p.BitDepth == 16:
		conv = func(v int) float32 { return float32(v) / 32768 }
	case p.Format == FormatInt && p.BitDepth == 32:
		conv = func(v int) float32 { return float32(float64(v) / 2147483648) }
	case p.Format == FormatFloat && p.BitDepth == 32:
		conv = func(v int) float32 { return math.Float32frombits(uint32(int32(v))) }
	default:
		return nil, fmt.Errorf("%w: %s %d-bit", ErrUnsupportedFormat, p.Format, p.BitDepth)
	}

	samples := make([]float32, len(p.Data))
	for i, v := range p.Data {
		samples[i] = conv(v)
	}
	return New(samples, p.Channels, p.SampleRate)
}

// Quantize16 converts samples to signed 16-bit values, clipping to [-1, 1]
// first and truncating toward zero.
func Quantize16(dst []int, src []float32) {
	for i, v := range src {
		x := float64(v)
		switch {
		case math.IsNaN(x):
			x = 0
		case x > 1:
			x = 1
		case x < -1:
			x = -1
		}
		dst[i] = int(x * 32767)
	}
}
