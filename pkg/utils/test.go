// SPDX-License-Identifier: MIT
package utils

import (
	"math"
	"sync"
)

// MockTransport implements the Transport interface for testing.
type MockTransport struct {
	mu       sync.Mutex
	LastData any
	Sent     int
	Closed   bool
}

// Send records the payload for later inspection instead of transmitting.
func (m *MockTransport) Send(data any) error {
	m.mu.Lock()
	m.LastData = data
	m.Sent++
	m.mu.Unlock()
	return nil
}

// Close marks the transport closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	m.Closed = true
	m.mu.Unlock()
	return nil
}

// Count returns the number of payloads sent so far.
func (m *MockTransport) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Sent
}

// Last returns the most recent payload.
func (m *MockTransport) Last() any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.LastData
}

// GenerateComplexWave returns frames of interleaved samples holding a 440 Hz
// fundamental with two harmonics. Each channel is phase shifted by a quarter
// cycle so channels are distinguishable.
func GenerateComplexWave(frames, channels int, sampleRate float64) []float32 {
	buffer := make([]float32, frames*channels)
	for i := range frames {
		for ch := range channels {
			tm := float64(i)/sampleRate + float64(ch)/(4*440)
			signal := math.Sin(2*math.Pi*440*tm)*0.5 +
				math.Sin(2*math.Pi*880*tm)*0.3 +
				math.Sin(2*math.Pi*1320*tm)*0.2
			buffer[i*channels+ch] = float32(signal * 0.9)
		}
	}
	return buffer
}

// GenerateSineWave returns frames of interleaved samples, every channel
// carrying the same sine at frequency Hz with amplitude 0.9.
func GenerateSineWave(frames, channels int, sampleRate, frequency float64) []float32 {
	buffer := make([]float32, frames*channels)
	for i := range frames {
		v := float32(math.Sin(2*math.Pi*frequency*float64(i)/sampleRate) * 0.9)
		for ch := range channels {
			buffer[i*channels+ch] = v
		}
	}
	return buffer
}

// FindPeakBin returns the index of the largest magnitude within
// [startBin, endBin], clamped to the slice.
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}

	if startBin < 0 {
		startBin = 0
	}

	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]

	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}

	return peakBin
}
