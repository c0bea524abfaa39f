// SPDX-License-Identifier: MIT
package audio

import "math"

// peakLevel returns max |x| over block. Clearing the sign bit of an IEEE
// float leaves a bit pattern that orders like the magnitude, so the max is
// taken on integers without branching.
func peakLevel(block []float32) float32 {
	var maxAmplitude int32
	for _, v := range block {
		amplitude := int32(math.Float32bits(v) & 0x7fffffff)
		diff := amplitude - maxAmplitude
		maxAmplitude += (diff & (diff >> 31)) ^ diff
	}
	return math.Float32frombits(uint32(maxAmplitude))
}

// Peak returns the peak amplitude of the last rendered block.
func (e *Engine) Peak() float32 {
	return math.Float32frombits(e.peakBits.Load())
}

// SetGateThreshold adjusts the gate in front of the analysis tap. Blocks
// whose peak does not exceed the threshold are not analysed. The value is a
// linear amplitude in 0.0-1.0; 0 keeps the gate open.
func (e *Engine) SetGateThreshold(threshold float64) {
	if threshold < 0.0 || math.IsNaN(threshold) {
		threshold = 0.0
	}
	if threshold > 1.0 {
		threshold = 1.0
	}
	e.gateThreshold.Store(math.Float32bits(float32(threshold)))
}

func (e *Engine) threshold() float32 {
	return math.Float32frombits(e.gateThreshold.Load())
}

func (e *Engine) gateOpen(peak float32) bool {
	th := e.threshold()
	return th == 0 || peak > th
}
