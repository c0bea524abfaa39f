// SPDX-License-Identifier: MIT
/*
Package dsp implements the IIR filtering used by the playback engine:
coefficient pairs (b, a), a streaming direct-form-II transposed filter that
carries its delay line across blocks, and Butterworth coefficient design.

Real-Time Safety:
  - Filter performs no allocations once a State of the right shape exists
  - State.Reset re-zeroes in place and only grows when the order or channel
    count exceeds the previous capacity
*/
package dsp

import "math"

// Coefficients is a normalized IIR transfer function. B and A always have the
// same length and A[0] == 1.
type Coefficients struct {
	B []float64
	A []float64
}

// Identity returns the pass-through pair b=[1], a=[1].
func Identity() Coefficients {
	return Coefficients{B: []float64{1}, A: []float64{1}}
}

// NewCoefficients normalizes b and a by a[0] and zero-pads the shorter vector.
func NewCoefficients(b, a []float64) (Coefficients, error) {
	if len(b) == 0 || len(a) == 0 {
		return Coefficients{}, ErrEmptyCoefficients
	}
	a0 := a[0]
	if a0 == 0 || math.IsNaN(a0) || math.IsInf(a0, 0) {
		return Coefficients{}, ErrInvalidLeadingCoefficient
	}

	n := max(len(b), len(a))
	c := Coefficients{B: make([]float64, n), A: make([]float64, n)}
	for i, v := range b {
		c.B[i] = v / a0
	}
	for i, v := range a {
		c.A[i] = v / a0
	}
	return c, nil
}

// Order is the delay-line length, max(len(a), len(b)) - 1.
func (c Coefficients) Order() int {
	n := max(len(c.B), len(c.A))
	if n == 0 {
		return 0
	}
	return n - 1
}

// IsIdentity reports whether the pair is a pure pass-through.
func (c Coefficients) IsIdentity() bool {
	if len(c.B) == 0 || len(c.A) == 0 || c.B[0] != 1 || c.A[0] != 1 {
		return false
	}
	for _, v := range c.B[1:] {
		if v != 0 {
			return false
		}
	}
	for _, v := range c.A[1:] {
		if v != 0 {
			return false
		}
	}
	return true
}

// Clone returns a deep copy, so the caller can hand coefficients to another
// goroutine without sharing backing arrays.
func (c Coefficients) Clone() Coefficients {
	return Coefficients{
		B: append([]float64(nil), c.B...),
		A: append([]float64(nil), c.A...),
	}
}

// State is the filter delay line, laid out as Order rows of Channels values.
type State struct {
	order    int
	channels int
	z        []float64
}

// NewState returns a zeroed delay line for the given order and channel count.
func NewState(order, channels int) *State {
	s := &State{}
	s.Reset(order, channels)
	return s
}

// Reset zeroes the delay line and reshapes it, reusing the backing array
// when it is large enough.
func (s *State) Reset(order, channels int) {
	n := order * channels
	if cap(s.z) < n {
		s.z = make([]float64, n)
	}
	s.z = s.z[:n]
	clear(s.z)
	s.order = order
	s.channels = channels
}

// Order returns the number of delay rows.
func (s *State) Order() int { return s.order }

// Channels returns the number of delay columns.
func (s *State) Channels() int { return s.channels }

// Filter runs src (interleaved, channels wide) through c into dst and returns
// the updated delay line. A nil z, or one whose shape does not match, is
// replaced by a zeroed state first, which models silence before the first
// sample. dst and src may alias. Output is neither clipped nor normalized.
func Filter(c Coefficients, dst, src []float32, channels int, z *State) *State {
	order := c.Order()
	if z == nil {
		z = NewState(order, channels)
	} else if z.order != order || z.channels != channels {
		z.Reset(order, channels)
	}

	if c.IsIdentity() {
		copy(dst, src)
		return z
	}

	b, a := c.B, c.A
	frames := len(src) / channels
	if order == 0 {
		for i := range frames * channels {
			dst[i] = float32(b[0] * float64(src[i]))
		}
		return z
	}
	for ch := range channels {
		for f := range frames {
			i := f*channels + ch
			x := float64(src[i])
			y := b[0]*x + z.z[ch]
			for k := 0; k < order-1; k++ {
				z.z[k*channels+ch] = b[k+1]*x + z.z[(k+1)*channels+ch] - a[k+1]*y
			}
			z.z[(order-1)*channels+ch] = b[order]*x - a[order]*y
			dst[i] = float32(y)
		}
	}
	return z
}
