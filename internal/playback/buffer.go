// SPDX-License-Identifier: MIT

// Package playback reads fixed-size blocks out of a decoded waveform, wrapping
// back to the start when the end is reached.
package playback

import "errors"

var (
	ErrEmptyWaveform   = errors.New("waveform has no frames")
	ErrInvalidChannels = errors.New("channel count must be positive")
	ErrRaggedSamples   = errors.New("sample count is not a multiple of the channel count")
)

// Buffer is a read-only view of interleaved samples. It is safe for
// concurrent readers.
type Buffer struct {
	samples  []float32
	frames   int
	channels int
}

// NewBuffer wraps interleaved samples with the given channel count. The slice
// is not copied and must not be modified afterwards.
func NewBuffer(samples []float32, channels int) (*Buffer, error) {
	if channels <= 0 {
		return nil, ErrInvalidChannels
	}
	if len(samples)%channels != 0 {
		return nil, ErrRaggedSamples
	}
	if len(samples) == 0 {
		return nil, ErrEmptyWaveform
	}
	return &Buffer{
		samples:  samples,
		frames:   len(samples) / channels,
		channels: channels,
	}, nil
}

// Frames returns the number of frames N.
func (b *Buffer) Frames() int { return b.frames }

// Channels returns the channel count C.
func (b *Buffer) Channels() int { return b.channels }

// Wrap reduces position into [0, N).
func (b *Buffer) Wrap(position int) int {
	p := position % b.frames
	if p < 0 {
		p += b.frames
	}
	return p
}

// ReadBlock copies frames frames starting at position (mod N) into dst,
// continuing from frame 0 as often as the block crosses the end. It returns
// position+frames when the block fits and the wrap remainder otherwise.
//
// dst must hold at least frames*C samples.
func (b *Buffer) ReadBlock(position, frames int, dst []float32) int {
	c := b.channels
	pos := b.Wrap(position)
	if pos+frames <= b.frames {
		copy(dst[:frames*c], b.samples[pos*c:(pos+frames)*c])
		return pos + frames
	}

	written := 0
	for written < frames {
		n := min(frames-written, b.frames-pos)
		copy(dst[written*c:(written+n)*c], b.samples[pos*c:(pos+n)*c])
		written += n
		pos += n
		if pos == b.frames {
			pos = 0
		}
	}
	return pos
}

// ReadBlockOnce is the non-looping form of ReadBlock. Frames past the end are
// zero-filled and ended reports whether the end of the buffer was reached.
// A position at or past N is already at the end: the block is silent.
func (b *Buffer) ReadBlockOnce(position, frames int, dst []float32) (next int, ended bool) {
	c := b.channels
	if position >= b.frames {
		clear(dst[:frames*c])
		return b.frames, true
	}
	pos := b.Wrap(position)
	n := min(frames, b.frames-pos)
	copy(dst[:n*c], b.samples[pos*c:(pos+n)*c])
	clear(dst[n*c : frames*c])
	return pos + n, pos+n == b.frames
}
