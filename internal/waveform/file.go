// SPDX-License-Identifier: MIT
package waveform

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ReadFile decodes a WAV file. The header is checked before any sample data
// is read, so unsupported encodings fail fast.
func ReadFile(path string) (*Waveform, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		if d.Err() != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrUnsupportedFormat, path, d.Err())
		}
		return nil, fmt.Errorf("%w: %s is not a valid WAV file", ErrUnsupportedFormat, path)
	}

	format := Format(d.WavAudioFormat)
	depth := int(d.BitDepth)
	if !supported(format, depth) {
		return nil, fmt.Errorf("%w: %s is %s %d-bit", ErrUnsupportedFormat, path, format, depth)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	return Normalize(PCM{
		SampleRate: int(d.SampleRate),
		Channels:   int(d.NumChans),
		BitDepth:   depth,
		Format:     format,
		Data:       buf.Data,
	})
}

// WriteFile writes samples as a 16-bit PCM WAV file.
func WriteFile(path string, samples []float32, channels, sampleRate int) (err error) {
	if channels < 1 || sampleRate < 1 || len(samples)%channels != 0 {
		return fmt.Errorf("%w: %d samples, %d channels, %d Hz",
			ErrInvalidLayout, len(samples), channels, sampleRate)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	enc := wav.NewEncoder(f, sampleRate, 16, channels, int(FormatInt))

	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: channels,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, len(samples)),
		SourceBitDepth: 16,
	}
	Quantize16(buf.Data, samples)

	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return enc.Close()
}

func supported(f Format, depth int) bool {
	switch f {
	case FormatInt:
		return depth == 8 || depth == 16 || depth == 32
	case FormatFloat:
		return depth == 32
	}
	return false
}
