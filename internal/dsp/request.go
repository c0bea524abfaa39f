// SPDX-License-Identifier: MIT
package dsp

import (
	"math"
	"strconv"
	"strings"
)

// FilterRequest is the user-facing filter setting: which cuts are enabled and
// their cutoff frequencies in Hz. A low cut alone yields a high-pass filter,
// a high cut alone a low-pass, both a band-pass, neither the identity.
type FilterRequest struct {
	LowEnabled  bool    `yaml:"low_enabled" json:"low_enabled"`
	LowCut      float64 `yaml:"low_cut_hz" json:"low_cut_hz"`
	HighEnabled bool    `yaml:"high_enabled" json:"high_enabled"`
	HighCut     float64 `yaml:"high_cut_hz" json:"high_cut_hz"`
}

// FilterConfig is a validated request together with its derived coefficients.
type FilterConfig struct {
	Request      FilterRequest
	Kind         Kind
	Coefficients Coefficients
}

// IdentityConfig is the configuration with both cuts disabled.
func IdentityConfig() FilterConfig {
	return FilterConfig{Kind: None, Coefficients: Identity()}
}

// ParseRequest builds a request from free-form text fields. Only enabled
// fields are parsed; a field that does not parse is reported as an
// InvalidFrequencyError for its side.
func ParseRequest(lowEnabled, highEnabled bool, low, high string, sampleRate int) (FilterRequest, error) {
	nyquist := float64(sampleRate) / 2
	req := FilterRequest{LowEnabled: lowEnabled, HighEnabled: highEnabled}

	if lowEnabled {
		v, err := strconv.ParseFloat(strings.TrimSpace(low), 64)
		if err != nil {
			return FilterRequest{}, &InvalidFrequencyError{Side: LowCut, Value: low, Nyquist: nyquist}
		}
		req.LowCut = v
	}
	if highEnabled {
		v, err := strconv.ParseFloat(strings.TrimSpace(high), 64)
		if err != nil {
			return FilterRequest{}, &InvalidFrequencyError{Side: HighCut, Value: high, Nyquist: nyquist}
		}
		req.HighCut = v
	}
	return req, nil
}

// Validate checks every enabled cutoff against the Nyquist frequency of
// sampleRate and, with both enabled, that low < high.
func (r FilterRequest) Validate(sampleRate int) error {
	nyquist := float64(sampleRate) / 2
	if r.LowEnabled && !validCutoff(r.LowCut, nyquist) {
		return &InvalidFrequencyError{Side: LowCut, Value: formatHz(r.LowCut), Nyquist: nyquist}
	}
	if r.HighEnabled && !validCutoff(r.HighCut, nyquist) {
		return &InvalidFrequencyError{Side: HighCut, Value: formatHz(r.HighCut), Nyquist: nyquist}
	}
	if r.LowEnabled && r.HighEnabled && r.LowCut >= r.HighCut {
		return ErrInvalidFilterRange
	}
	return nil
}

// Kind returns the response the request asks for.
func (r FilterRequest) Kind() Kind {
	switch {
	case r.LowEnabled && r.HighEnabled:
		return Bandpass
	case r.HighEnabled:
		return Lowpass
	case r.LowEnabled:
		return Highpass
	default:
		return None
	}
}

// Resolve validates r and designs its coefficients for sampleRate. Nothing
// is returned on failure, so callers can apply the result all-or-nothing.
func Resolve(r FilterRequest, sampleRate, order int) (FilterConfig, error) {
	if err := r.Validate(sampleRate); err != nil {
		return FilterConfig{}, err
	}

	nyquist := float64(sampleRate) / 2
	kind := r.Kind()

	var cutoffs []float64
	switch kind {
	case Bandpass:
		cutoffs = []float64{r.LowCut / nyquist, r.HighCut / nyquist}
	case Lowpass:
		cutoffs = []float64{r.HighCut / nyquist}
	case Highpass:
		cutoffs = []float64{r.LowCut / nyquist}
	}

	coeffs, err := Design(order, kind, cutoffs...)
	if err != nil {
		return FilterConfig{}, err
	}
	return FilterConfig{Request: r, Kind: kind, Coefficients: coeffs}, nil
}

func validCutoff(hz, nyquist float64) bool {
	return !math.IsNaN(hz) && hz > 0 && hz < nyquist
}

func formatHz(hz float64) string {
	return strconv.FormatFloat(hz, 'g', -1, 64)
}
