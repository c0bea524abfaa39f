// SPDX-License-Identifier: MIT
package audio

import (
	"context"

	"filterplay/internal/dsp"
	applog "filterplay/internal/log"
	"filterplay/internal/waveform"

	"golang.org/x/sync/errgroup"
)

// saveChunkFrames bounds how much is filtered between cancellation checks.
const saveChunkFrames = 1 << 16

// SaveFiltered filters the whole waveform with the active coefficients from
// a zeroed state and writes it as 16-bit PCM WAV at the original rate. The
// live position and filter state are untouched.
func (e *Engine) SaveFiltered(ctx context.Context, path string) error {
	e.mu.Lock()
	w := e.wave
	coeffs := e.filter.Coefficients.Clone()
	kind := e.filter.Kind
	e.mu.Unlock()

	if w == nil {
		return ErrNoWaveform
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := filterWaveform(ctx, coeffs, w)
		if err != nil {
			return err
		}
		return waveform.WriteFile(path, out, w.Channels, w.SampleRate)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	applog.Infof("Engine: Saved %s-filtered audio to %s", kind, path)
	return nil
}

// filterWaveform runs the filter over w in chunks, checking ctx in between.
func filterWaveform(ctx context.Context, c dsp.Coefficients, w *waveform.Waveform) ([]float32, error) {
	ch := w.Channels
	out := make([]float32, len(w.Samples))

	var z *dsp.State
	for start := 0; start < w.Frames; start += saveChunkFrames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+saveChunkFrames, w.Frames)
		z = dsp.Filter(c, out[start*ch:end*ch], w.Samples[start*ch:end*ch], ch, z)
	}
	return out, nil
}
