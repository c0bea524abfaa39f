// SPDX-License-Identifier: MIT
package dsp

import (
	"errors"
	"math"
	"testing"
)

func TestDesignOrders(t *testing.T) {
	tests := []struct {
		kind    Kind
		cutoffs []float64
		order   int
	}{
		{Lowpass, []float64{0.2}, 5},
		{Highpass, []float64{0.2}, 5},
		{Bandpass, []float64{0.1, 0.4}, 10},
		{None, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			c, err := Design(DefaultOrder, tt.kind, tt.cutoffs...)
			if err != nil {
				t.Fatalf("Design error: %v", err)
			}
			if c.Order() != tt.order {
				t.Errorf("order = %d, want %d", c.Order(), tt.order)
			}
			if c.A[0] != 1 {
				t.Errorf("a[0] = %v, want 1", c.A[0])
			}
		})
	}
}

func TestDesignMagnitudeResponse(t *testing.T) {
	const tol = 1e-4
	halfPower := 1 / math.Sqrt2

	tests := []struct {
		name    string
		kind    Kind
		cutoffs []float64
		w       float64 // normalized to Nyquist
		want    float64
	}{
		{"Lowpass DC", Lowpass, []float64{0.2}, 0, 1},
		{"Lowpass cutoff", Lowpass, []float64{0.2}, 0.2, halfPower},
		{"Lowpass Nyquist", Lowpass, []float64{0.2}, 1, 0},
		{"Highpass DC", Highpass, []float64{0.2}, 0, 0},
		{"Highpass cutoff", Highpass, []float64{0.2}, 0.2, halfPower},
		{"Highpass Nyquist", Highpass, []float64{0.2}, 1, 1},
		{"Bandpass DC", Bandpass, []float64{0.05, 0.5}, 0, 0},
		{"Bandpass Nyquist", Bandpass, []float64{0.05, 0.5}, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Design(DefaultOrder, tt.kind, tt.cutoffs...)
			if err != nil {
				t.Fatalf("Design error: %v", err)
			}
			got := magnitudeAt(c, tt.w*math.Pi)
			if math.Abs(got-tt.want) > tol {
				t.Errorf("|H| at %.2f = %.6f, want %.6f", tt.w, got, tt.want)
			}
		})
	}
}

func TestDesignBandpassPassband(t *testing.T) {
	c, err := Design(DefaultOrder, Bandpass, 0.05, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	// Geometric centre of a wide band sits well inside both skirts.
	centre := math.Sqrt(0.05*0.5) * math.Pi
	if got := magnitudeAt(c, centre); math.Abs(got-1) > 0.01 {
		t.Errorf("passband gain = %.4f, want ~1", got)
	}
}

func TestDesignNarrowBandpass(t *testing.T) {
	// 2000 to 2400 Hz at 44.1 kHz: the skirts overlap across the whole band,
	// so a cascade of separate cuts would lose level here.
	lo, hi := 2000.0/(testSampleRate/2), 2400.0/(testSampleRate/2)
	c, err := Design(DefaultOrder, Bandpass, lo, hi)
	if err != nil {
		t.Fatal(err)
	}

	warp := func(wn float64) float64 { return math.Tan(math.Pi * wn / 2) }
	centre := 2 * math.Atan(math.Sqrt(warp(lo)*warp(hi)))

	tests := []struct {
		name string
		w    float64
		want float64
	}{
		{"Centre", centre, 1},
		{"Lower edge", lo * math.Pi, 1 / math.Sqrt2},
		{"Upper edge", hi * math.Pi, 1 / math.Sqrt2},
		{"DC", 0, 0},
		{"Nyquist", math.Pi, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := magnitudeAt(c, tt.w); math.Abs(got-tt.want) > 1e-3 {
				t.Errorf("|H| = %.5f (%.2f dB), want %.5f", got, 20*math.Log10(got), tt.want)
			}
		})
	}

	t.Run("Sine at centre", func(t *testing.T) {
		const n = 1 << 15
		f := centre / (2 * math.Pi) * testSampleRate
		src := make([]float32, n)
		for i := range src {
			src[i] = float32(math.Sin(2 * math.Pi * f * float64(i) / testSampleRate))
		}
		dst := make([]float32, n)
		Filter(c, dst, src, 1, nil)

		var peak float64
		for _, v := range dst[n/2:] {
			peak = math.Max(peak, math.Abs(float64(v)))
		}
		if math.Abs(peak-1) > 0.01 {
			t.Errorf("centre sine peak = %.4f, want ~1", peak)
		}
	})
}

func TestDesignBandpassOrders(t *testing.T) {
	for _, order := range []int{1, 2, 3, 4, 6} {
		c, err := Design(order, Bandpass, 0.1, 0.3)
		if err != nil {
			t.Fatalf("order %d: %v", order, err)
		}
		if c.Order() != 2*order {
			t.Errorf("order %d: band-pass order = %d, want %d", order, c.Order(), 2*order)
		}
		for _, wn := range []float64{0.1, 0.3} {
			if got := magnitudeAt(c, wn*math.Pi); math.Abs(got-1/math.Sqrt2) > 1e-6 {
				t.Errorf("order %d: |H(%.1f)| = %.6f, want half power", order, wn, got)
			}
		}
	}
}

func TestDesignErrors(t *testing.T) {
	tests := []struct {
		name    string
		order   int
		kind    Kind
		cutoffs []float64
		want    error
	}{
		{"Zero order", 0, Lowpass, []float64{0.2}, ErrInvalidOrder},
		{"Cutoff at zero", 5, Lowpass, []float64{0}, ErrInvalidCutoff},
		{"Cutoff at Nyquist", 5, Highpass, []float64{1}, ErrInvalidCutoff},
		{"NaN cutoff", 5, Lowpass, []float64{math.NaN()}, ErrInvalidCutoff},
		{"Missing cutoff", 5, Lowpass, nil, ErrInvalidCutoff},
		{"Band reversed", 5, Bandpass, []float64{0.4, 0.1}, ErrInvalidCutoff},
		{"Band single", 5, Bandpass, []float64{0.4}, ErrInvalidCutoff},
		{"Unknown kind", 5, Kind(42), []float64{0.2}, ErrUnknownKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Design(tt.order, tt.kind, tt.cutoffs...); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFilteredSineAttenuation(t *testing.T) {
	// 10 kHz through a 1 kHz low-pass: a 5th order Butterworth is ~100 dB
	// down a decade above cutoff.
	c, err := Design(DefaultOrder, Lowpass, 1000.0/(testSampleRate/2))
	if err != nil {
		t.Fatal(err)
	}

	const n = 8192
	src := make([]float32, n)
	for i := range src {
		src[i] = float32(math.Sin(2 * math.Pi * 10000 * float64(i) / testSampleRate))
	}
	dst := make([]float32, n)
	Filter(c, dst, src, 1, nil)

	var peak float64
	for _, v := range dst[n/2:] {
		peak = math.Max(peak, math.Abs(float64(v)))
	}
	if peak > 1e-3 {
		t.Errorf("stop-band peak = %g, want < 1e-3", peak)
	}
}
