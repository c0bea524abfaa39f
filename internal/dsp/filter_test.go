// SPDX-License-Identifier: MIT
package dsp

import (
	"errors"
	"math"
	"testing"

	"filterplay/pkg/utils"
)

const testSampleRate = 44100

func mustDesign(t testing.TB, kind Kind, cutoffs ...float64) Coefficients {
	t.Helper()
	c, err := Design(DefaultOrder, kind, cutoffs...)
	if err != nil {
		t.Fatalf("Design(%s, %v) error: %v", kind, cutoffs, err)
	}
	return c
}

func TestNewCoefficientsNormalizes(t *testing.T) {
	c, err := NewCoefficients([]float64{2, 4}, []float64{2, 1, 0.5})
	if err != nil {
		t.Fatalf("NewCoefficients error: %v", err)
	}

	wantB := []float64{1, 2, 0}
	wantA := []float64{1, 0.5, 0.25}
	for i := range wantB {
		if c.B[i] != wantB[i] || c.A[i] != wantA[i] {
			t.Fatalf("got b=%v a=%v, want b=%v a=%v", c.B, c.A, wantB, wantA)
		}
	}
	if c.Order() != 2 {
		t.Errorf("Order() = %d, want 2", c.Order())
	}
}

func TestNewCoefficientsErrors(t *testing.T) {
	tests := []struct {
		name string
		b, a []float64
		want error
	}{
		{"Empty b", nil, []float64{1}, ErrEmptyCoefficients},
		{"Empty a", []float64{1}, nil, ErrEmptyCoefficients},
		{"Zero a0", []float64{1}, []float64{0, 1}, ErrInvalidLeadingCoefficient},
		{"NaN a0", []float64{1}, []float64{math.NaN()}, ErrInvalidLeadingCoefficient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewCoefficients(tt.b, tt.a); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestIdentityIsCopy(t *testing.T) {
	src := []float32{0.5, -0.25, 1.5, -2}
	dst := make([]float32, len(src))

	z := Filter(Identity(), dst, src, 2, nil)
	for i := range src {
		if dst[i] != src[i] {
			t.Fatalf("identity output[%d] = %v, want %v", i, dst[i], src[i])
		}
	}
	if z.Order() != 0 || z.Channels() != 2 {
		t.Errorf("identity state shape = %dx%d, want 0x2", z.Order(), z.Channels())
	}
}

func TestPaddedIdentityIsRecognized(t *testing.T) {
	c, err := NewCoefficients([]float64{1, 0, 0}, []float64{1})
	if err != nil {
		t.Fatal(err)
	}
	if !c.IsIdentity() {
		t.Error("b=[1,0,0] a=[1] should be an identity filter")
	}
	if Identity().Clone().IsIdentity() != true {
		t.Error("cloned identity lost its identity")
	}
}

func TestGainOnlyFilter(t *testing.T) {
	c, _ := NewCoefficients([]float64{0.5}, []float64{1})
	src := []float32{1, -1, 0.5}
	dst := make([]float32, 3)
	Filter(c, dst, src, 1, nil)

	want := []float32{0.5, -0.5, 0.25}
	for i := range want {
		if dst[i] != want[i] {
			t.Errorf("dst[%d] = %v, want %v", i, dst[i], want[i])
		}
	}
}

// TestOnePoleRecursion checks y[n] = x[n] + 0.5*y[n-1] against a hand
// computed impulse response.
func TestOnePoleRecursion(t *testing.T) {
	c, _ := NewCoefficients([]float64{1}, []float64{1, -0.5})
	src := []float32{1, 0, 0, 0}
	dst := make([]float32, 4)
	Filter(c, dst, src, 1, nil)

	want := []float32{1, 0.5, 0.25, 0.125}
	for i := range want {
		if dst[i] != want[i] {
			t.Errorf("impulse[%d] = %v, want %v", i, dst[i], want[i])
		}
	}
}

func TestBlockContinuity(t *testing.T) {
	const channels = 2
	const frames = 4096

	signal := utils.GenerateComplexWave(frames, channels, testSampleRate)

	filters := []struct {
		name   string
		coeffs Coefficients
	}{
		{"Lowpass", mustDesign(t, Lowpass, 0.1)},
		{"Highpass", mustDesign(t, Highpass, 0.05)},
		{"Bandpass", mustDesign(t, Bandpass, 0.05, 0.3)},
	}

	splits := []int{1, 17, 512, 1000, frames - 1}

	for _, ft := range filters {
		whole := make([]float32, len(signal))
		Filter(ft.coeffs, whole, signal, channels, nil)

		for _, split := range splits {
			parts := make([]float32, len(signal))
			z := Filter(ft.coeffs, parts[:split*channels], signal[:split*channels], channels, nil)
			Filter(ft.coeffs, parts[split*channels:], signal[split*channels:], channels, z)

			for i := range whole {
				if whole[i] != parts[i] {
					t.Fatalf("%s split=%d: sample %d differs: whole=%v parts=%v",
						ft.name, split, i, whole[i], parts[i])
				}
			}
		}
	}
}

func TestChannelsAreIndependent(t *testing.T) {
	c := mustDesign(t, Lowpass, 0.2)

	const frames = 256
	stereo := make([]float32, frames*2)
	mono := make([]float32, frames)
	for i := range frames {
		mono[i] = float32(math.Sin(float64(i) * 0.3))
		stereo[2*i] = mono[i]
		stereo[2*i+1] = 0
	}

	outStereo := make([]float32, len(stereo))
	outMono := make([]float32, len(mono))
	Filter(c, outStereo, stereo, 2, nil)
	Filter(c, outMono, mono, 1, nil)

	for i := range frames {
		if outStereo[2*i] != outMono[i] {
			t.Fatalf("left channel frame %d = %v, want %v", i, outStereo[2*i], outMono[i])
		}
		if outStereo[2*i+1] != 0 {
			t.Fatalf("silent right channel leaked %v at frame %d", outStereo[2*i+1], i)
		}
	}
}

func TestStateReshapesOnMismatch(t *testing.T) {
	z := NewState(2, 1)
	c := mustDesign(t, Lowpass, 0.25)

	src := make([]float32, 8*3)
	z = Filter(c, src, src, 3, z)
	if z.Order() != c.Order() || z.Channels() != 3 {
		t.Errorf("state shape = %dx%d, want %dx3", z.Order(), z.Channels(), c.Order())
	}
}

func TestStateResetZeroes(t *testing.T) {
	c := mustDesign(t, Lowpass, 0.25)
	src := []float32{1, 1, 1, 1}
	z := Filter(c, make([]float32, 4), src, 1, nil)

	z.Reset(c.Order(), 1)
	for i := range c.Order() {
		if z.z[i] != 0 {
			t.Fatalf("delay row %d = %v after Reset, want 0", i, z.z[i])
		}
	}
}

func TestFilterNoAllocsHotPath(t *testing.T) {
	c := mustDesign(t, Bandpass, 0.05, 0.3)
	src := utils.GenerateComplexWave(512, 2, testSampleRate)
	dst := make([]float32, len(src))
	z := NewState(c.Order(), 2)

	allocs := testing.AllocsPerRun(100, func() {
		z = Filter(c, dst, src, 2, z)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in Filter hot path, got %.1f", allocs)
	}
}

func BenchmarkFilterHotPath(b *testing.B) {
	benchmarks := []struct {
		name string
		kind Kind
		wn   []float64
	}{
		{"Identity", None, nil},
		{"Lowpass", Lowpass, []float64{0.2}},
		{"Bandpass", Bandpass, []float64{0.05, 0.3}},
	}

	src := utils.GenerateComplexWave(512, 2, testSampleRate)
	dst := make([]float32, len(src))

	for _, bm := range benchmarks {
		b.Run(bm.name, func(b *testing.B) {
			c := mustDesign(b, bm.kind, bm.wn...)
			z := NewState(c.Order(), 2)

			b.ReportAllocs()
			b.ResetTimer()

			for b.Loop() {
				z = Filter(c, dst, src, 2, z)
			}
		})
	}
}
