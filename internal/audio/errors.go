// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
)

var (
	ErrNoWaveform     = errors.New("no waveform loaded")
	ErrInvalidState   = errors.New("operation not valid in the current transport state")
	ErrNotPlaying     = errors.New("transport is not playing")
	ErrSeekRange      = errors.New("seek position must be in [0, 1]")
	ErrStreamComplete = errors.New("stream complete")
	ErrNoDevice       = errors.New("no output device")
)

// DeviceError wraps a failure reported by the output device backend.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("audio device %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// CallbackFault is raised when the render callback panics. Value holds the
// recovered panic value.
type CallbackFault struct {
	Value any
}

func (e *CallbackFault) Error() string {
	return fmt.Sprintf("render callback fault: %v", e.Value)
}

func (e *CallbackFault) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
