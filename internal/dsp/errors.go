// SPDX-License-Identifier: MIT
package dsp

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCoefficients         = errors.New("coefficient vectors must not be empty")
	ErrInvalidLeadingCoefficient = errors.New("a[0] must be finite and non-zero")
	ErrInvalidCutoff             = errors.New("normalized cutoff must lie in (0, 1)")
	ErrInvalidOrder              = errors.New("filter order must be positive")
	ErrUnknownKind               = errors.New("unknown filter kind")
	ErrInvalidFilterRange        = errors.New("low cut frequency must be less than high cut frequency")
)

// Side names the cutoff an InvalidFrequencyError refers to.
type Side string

const (
	LowCut  Side = "low cut"
	HighCut Side = "high cut"
)

// InvalidFrequencyError reports a cutoff that is not a positive number below
// the Nyquist frequency.
type InvalidFrequencyError struct {
	Side    Side
	Value   string
	Nyquist float64
}

func (e *InvalidFrequencyError) Error() string {
	return fmt.Sprintf("invalid %s frequency %q: must be a number in (0, %g) Hz", e.Side, e.Value, e.Nyquist)
}
