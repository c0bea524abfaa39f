// SPDX-License-Identifier: MIT
package dsp

import (
	"math"
	"math/cmplx"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
	"gonum.org/v1/gonum/floats"
)

// DefaultOrder is the Butterworth order used for each cut.
const DefaultOrder = 5

// Kind selects the response of a designed filter.
type Kind int

const (
	None Kind = iota
	Lowpass
	Highpass
	Bandpass
)

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case Lowpass:
		return "low-pass"
	case Highpass:
		return "high-pass"
	case Bandpass:
		return "band-pass"
	default:
		return "unknown"
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// normalizedRate turns a normalized cutoff (fraction of Nyquist) into a Hz
// value for the algo-dsp designers: with a sample rate of 2, Nyquist is 1.
const normalizedRate = 2.0

// Design returns the Butterworth transfer function for kind. Cutoffs are
// normalized to Nyquist and must lie in (0, 1): one cutoff for Lowpass and
// Highpass, two ascending cutoffs for Bandpass, none for None.
//
// The band-pass is the low-pass prototype mapped onto the band, giving a
// filter of twice the order with unity gain at the band centre and half
// power at both edges.
func Design(order int, kind Kind, cutoffs ...float64) (Coefficients, error) {
	if kind == None {
		return Identity(), nil
	}
	if order <= 0 {
		return Coefficients{}, ErrInvalidOrder
	}
	for _, wn := range cutoffs {
		if !(wn > 0 && wn < 1) {
			return Coefficients{}, ErrInvalidCutoff
		}
	}

	var sections []biquad.Coefficients
	switch kind {
	case Lowpass:
		if len(cutoffs) != 1 {
			return Coefficients{}, ErrInvalidCutoff
		}
		sections = design.ButterworthLP(cutoffs[0], order, normalizedRate)
	case Highpass:
		if len(cutoffs) != 1 {
			return Coefficients{}, ErrInvalidCutoff
		}
		sections = design.ButterworthHP(cutoffs[0], order, normalizedRate)
	case Bandpass:
		if len(cutoffs) != 2 || cutoffs[0] >= cutoffs[1] {
			return Coefficients{}, ErrInvalidCutoff
		}
		return butterworthBandpass(order, cutoffs[0], cutoffs[1])
	default:
		return Coefficients{}, ErrUnknownKind
	}

	return cascadeToTransfer(sections)
}

// bilinearScale is 2*fs for the bilinear transform at normalizedRate.
const bilinearScale = 2 * normalizedRate

// butterworthBandpass transforms the analog Butterworth prototype of the
// given order to a band-pass between the prewarped edges lo and hi, then
// maps it to z with the bilinear transform. Every section carries one zero
// at DC and one at Nyquist.
func butterworthBandpass(order int, lo, hi float64) (Coefficients, error) {
	w1 := bilinearScale * math.Tan(math.Pi*lo/normalizedRate)
	w2 := bilinearScale * math.Tan(math.Pi*hi/normalizedRate)
	bw, w0 := w2-w1, math.Sqrt(w1*w2)

	// Both band poles of a prototype pole p solve s^2 - p*bw*s + w0^2 = 0.
	bandPoles := func(p complex128) (complex128, complex128) {
		h := p * complex(bw/2, 0)
		r := cmplx.Sqrt(h*h - complex(w0*w0, 0))
		return toZ(h + r), toZ(h - r)
	}

	sections := make([]biquad.Coefficients, 0, order)
	for k := range (order + 1) / 2 {
		if 2*k+1 == order {
			// The real prototype pole yields a conjugate or a real pair.
			d1, d2 := bandPoles(-1)
			sections = append(sections, bandSection(-real(d1+d2), real(d1*d2)))
			continue
		}
		// Upper half-plane pole; its conjugate supplies the mirrored poles.
		p := cmplx.Exp(complex(0, math.Pi*float64(2*k+order+1)/float64(2*order)))
		d1, d2 := bandPoles(p)
		for _, d := range [...]complex128{d1, d2} {
			sections = append(sections, bandSection(-2*real(d), real(d)*real(d)+imag(d)*imag(d)))
		}
	}

	c, err := cascadeToTransfer(sections)
	if err != nil {
		return Coefficients{}, err
	}
	g := magnitudeAt(c, 2*math.Atan(w0/bilinearScale))
	if !(g > 0) || math.IsInf(g, 0) {
		return Coefficients{}, ErrInvalidCutoff
	}
	floats.Scale(1/g, c.B)
	return c, nil
}

func toZ(s complex128) complex128 {
	k := complex(bilinearScale, 0)
	return (k + s) / (k - s)
}

func bandSection(a1, a2 float64) biquad.Coefficients {
	return biquad.Coefficients{B0: 1, B2: -1, A1: a1, A2: a2}
}

// magnitudeAt evaluates |H(e^jw)| for w in radians per sample.
func magnitudeAt(c Coefficients, w float64) float64 {
	var num, den complex128
	for k := range c.B {
		e := cmplx.Exp(complex(0, -w*float64(k)))
		num += complex(c.B[k], 0) * e
		den += complex(c.A[k], 0) * e
	}
	return cmplx.Abs(num / den)
}

// cascadeToTransfer multiplies second-order sections into a single (b, a)
// pair. First-order sections carry B2 = A2 = 0, so trailing all-zero terms
// are trimmed to keep the order exact.
func cascadeToTransfer(sections []biquad.Coefficients) (Coefficients, error) {
	b := []float64{1}
	a := []float64{1}
	for _, s := range sections {
		b = polyMul(b, []float64{s.B0, s.B1, s.B2})
		a = polyMul(a, []float64{1, s.A1, s.A2})
	}

	n := len(b)
	for n > 1 && b[n-1] == 0 && a[n-1] == 0 {
		n--
	}
	b, a = b[:n], a[:n]

	if floats.HasNaN(b) || floats.HasNaN(a) {
		return Coefficients{}, ErrInvalidCutoff
	}
	return NewCoefficients(b, a)
}

func polyMul(p, q []float64) []float64 {
	out := make([]float64, len(p)+len(q)-1)
	for i, pv := range p {
		for j, qv := range q {
			out[i+j] += pv * qv
		}
	}
	return out
}
