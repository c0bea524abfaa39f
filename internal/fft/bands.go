// SPDX-License-Identifier: MIT
package fft

import "math"

// Band is a named frequency range and its level in the latest spectrum.
type Band struct {
	Name   string  `json:"name"`
	LowHz  float64 `json:"-"`
	HighHz float64 `json:"-"`
	Level  float64 `json:"level"` // RMS of the band's bin magnitudes, clamped to [0, 1].
}

// DefaultBands returns the sub to treble split used by the publishers.
func DefaultBands() []Band {
	return []Band{
		{Name: "sub", LowHz: 20, HighHz: 60},
		{Name: "bass", LowHz: 60, HighHz: 250},
		{Name: "lowMid", LowHz: 250, HighHz: 500},
		{Name: "mid", LowHz: 500, HighHz: 2000},
		{Name: "highMid", LowHz: 2000, HighHz: 4000},
		{Name: "treble", LowHz: 4000, HighHz: math.Inf(1)},
	}
}

// BandLevels sets the Level of each band from magnitudes, using binHz to map
// a bin index to its frequency.
func BandLevels(bands []Band, magnitudes []float64, binHz func(int) float64) {
	for b := range bands {
		var energy float64
		var bins int
		for i, m := range magnitudes {
			if f := binHz(i); f >= bands[b].LowHz && f < bands[b].HighHz {
				energy += m * m
				bins++
			}
		}
		bands[b].Level = 0
		if bins > 0 {
			bands[b].Level = math.Min(1, math.Sqrt(energy/float64(bins)))
		}
	}
}
