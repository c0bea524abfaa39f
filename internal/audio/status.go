// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"time"

	"filterplay/internal/dsp"
)

// Status is a point-in-time snapshot for front-ends and publishers.
type Status struct {
	State      State             `json:"state"`
	Position   float64           `json:"position"`
	Elapsed    time.Duration     `json:"elapsed_ns"`
	Total      time.Duration     `json:"total_ns"`
	Filter     dsp.FilterRequest `json:"filter"`
	Kind       dsp.Kind          `json:"kind"`
	Peak       float32           `json:"peak"`
	Loop       bool              `json:"loop"`
	SampleRate int               `json:"sample_rate"`
	Channels   int               `json:"channels"`
}

// Status returns a consistent snapshot taken under the state lock.
func (e *Engine) Status() Status {
	e.mu.Lock()
	s := Status{
		State:  e.state,
		Filter: e.filter.Request,
		Kind:   e.filter.Kind,
		Loop:   e.loop,
	}
	if e.buf != nil {
		s.Position = float64(e.buf.Wrap(e.pos)) / float64(e.buf.Frames())
		s.SampleRate = e.wave.SampleRate
		s.Channels = e.wave.Channels
		s.Total = e.wave.Length()
	}
	e.mu.Unlock()

	s.Elapsed = time.Duration(s.Position * float64(s.Total))
	s.Peak = e.Peak()
	return s
}

// Clock formats elapsed and total time as "MM:SS / MM:SS".
func (s Status) Clock() string {
	return FormatClock(s.Elapsed) + " / " + FormatClock(s.Total)
}

// FormatClock renders d as MM:SS, truncating fractional seconds. Minutes are
// not wrapped into hours.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d", sec/60, sec%60)
}
