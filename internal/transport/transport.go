// SPDX-License-Identifier: MIT

// Package transport publishes engine status and the output spectrum to
// external consumers.
package transport

import (
	"errors"

	"filterplay/internal/audio"
	"filterplay/internal/fft"
)

var ErrClosed = errors.New("transport closed")

// Transport defines a generic interface for sending processed data or events.
// Implementations should be thread-safe and must not retain data they cannot
// own: publishers hand over freshly allocated messages.
type Transport interface {
	Send(data any) error
	Close() error
}

// StatusSource is satisfied by *audio.Engine.
type StatusSource interface {
	Status() audio.Status
}

// SpectrumSource is satisfied by *fft.Analyzer.
type SpectrumSource interface {
	Bins() int
	MagnitudesInto(dst []float64) (uint64, error)
	FrequencyForBin(i int) float64
	SampleRate() float64
}

var (
	_ StatusSource   = (*audio.Engine)(nil)
	_ SpectrumSource = (*fft.Analyzer)(nil)
)

// Message types.
const (
	TypeStatus   = "status"
	TypeSpectrum = "spectrum"
)

// StatusMessage carries an engine snapshot.
type StatusMessage struct {
	Type string `json:"type"`
	audio.Status
	Clock string `json:"clock"`
}

// SpectrumMessage carries the latest magnitude spectrum and band levels.
type SpectrumMessage struct {
	Type       string     `json:"type"`
	SampleRate float64    `json:"sample_rate"`
	BinHz      float64    `json:"bin_hz"`
	Magnitudes []float64  `json:"magnitudes"`
	Bands      []fft.Band `json:"bands"`
}
