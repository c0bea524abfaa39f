// SPDX-License-Identifier: MIT
/*
Package audio implements a real-time filtered playback engine with:
- Looping (or one-shot) playback of a decoded waveform
- A live-tunable IIR filter carried across render blocks
- PortAudio and oto output backends
- Peak metering with a branchless max and a gate for the analysis tap
- Offline rendering of the filtered waveform to WAV

Thread Safety:
- Control calls and the render callback share one mutex; the critical section
  does no allocation in steady state
- Device start/stop is serialized by a second mutex never taken by render
- The stop request and meter readings are atomic
- Panics in the render callback are recovered and reported as faults
*/
package audio

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"filterplay/internal/config"
	"filterplay/internal/dsp"
	applog "filterplay/internal/log"
	"filterplay/internal/playback"
	"filterplay/internal/waveform"
)

// State is the transport state.
type State int32

const (
	Idle State = iota
	Stopped
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Stopped:
		return "stopped"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Tap receives every rendered block after the state lock is released. It
// runs on the render thread and must not block; block is only valid for the
// duration of the call.
type Tap interface {
	Process(block []float32, channels int)
}

// tapResetter is implemented by taps that keep history across blocks. The
// engine resets them whenever playback jumps.
type tapResetter interface {
	Reset()
}

// Option configures an Engine.
type Option func(*Engine)

// WithTap installs an analysis tap.
func WithTap(t Tap) Option {
	return func(e *Engine) { e.tap = t }
}

const faultQueueSize = 8

type Engine struct {
	// Core configuration.
	config *config.Config
	order  int
	loop   bool
	tap    Tap

	// Device lifecycle, serialized by ctl. The render path never takes ctl.
	ctl    sync.Mutex
	out    Output
	opened bool
	gen    atomic.Uint64

	// Shared with the render callback, guarded by mu.
	mu            sync.Mutex
	state         State
	paused        bool
	wave          *waveform.Waveform
	buf           *playback.Buffer
	pos           int
	filter        dsp.FilterConfig
	filterChanged bool
	z             *dsp.State
	zValid        bool
	scratch       []float32

	stopRequested atomic.Bool

	// Metering, written by render.
	peakBits      atomic.Uint32
	gateThreshold atomic.Uint32 // float32 bits of a linear amplitude

	faults chan error
}

// NewEngine creates an idle engine rendering to out. The configured filter
// request is kept and designed once a waveform supplies a sample rate.
func NewEngine(cfg *config.Config, out Output, opts ...Option) *Engine {
	e := &Engine{
		config: cfg,
		order:  cfg.Filter.Order,
		loop:   cfg.Playback.Loop,
		out:    out,
		state:  Idle,
		filter: dsp.FilterConfig{
			Request:      cfg.Filter.FilterRequest,
			Kind:         cfg.Filter.Kind(),
			Coefficients: dsp.Identity(),
		},
		z:      dsp.NewState(0, 1),
		faults: make(chan error, faultQueueSize),
	}
	e.SetGateThreshold(cfg.Transport.GateThreshold)

	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Faults delivers callback faults. Faults are dropped when nobody drains the
// channel.
func (e *Engine) Faults() <-chan error {
	return e.faults
}

// State returns the transport state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Load installs w, rewinds to the start and re-derives the filter for the new
// sample rate. The previous filter request is kept when it is still valid,
// otherwise the identity filter is used.
func (e *Engine) Load(w *waveform.Waveform) error {
	if w == nil {
		return ErrNoWaveform
	}
	if w.SampleRate <= 0 || w.Channels <= 0 || w.Frames*w.Channels != len(w.Samples) {
		return fmt.Errorf("%w: %d samples as %d frames x %d channels at %d Hz",
			waveform.ErrInvalidLayout, len(w.Samples), w.Frames, w.Channels, w.SampleRate)
	}
	buf, err := playback.NewBuffer(w.Samples, w.Channels)
	if err != nil {
		return err
	}

	e.ctl.Lock()
	defer e.ctl.Unlock()

	e.mu.Lock()
	state := e.state
	req := e.filter.Request
	e.mu.Unlock()
	if state != Idle && state != Stopped {
		return fmt.Errorf("load while %s: %w", state, ErrInvalidState)
	}

	filter, err := dsp.Resolve(req, w.SampleRate, e.order)
	if err != nil {
		applog.Warnf("Engine: Filter %+v invalid at %d Hz (%v), using identity", req, w.SampleRate, err)
		filter = dsp.IdentityConfig()
	}
	scratch := make([]float32, e.config.Audio.FramesPerBuffer*w.Channels)
	z := dsp.NewState(filter.Coefficients.Order(), w.Channels)

	if err := e.releaseOutput(); err != nil {
		applog.Warnf("Engine: Error releasing output: %v", err)
	}

	e.mu.Lock()
	e.wave = w
	e.buf = buf
	e.pos = 0
	e.filter = filter
	e.filterChanged = false
	e.z = z
	e.zValid = false
	e.scratch = scratch
	e.paused = false
	e.state = Stopped
	e.mu.Unlock()
	e.resetTap()

	applog.Infof("Engine: Loaded %d frames, %d ch, %d Hz (%.2fs), filter %s",
		w.Frames, w.Channels, w.SampleRate, w.Duration(), filter.Kind)
	return nil
}

// LoadFile decodes a WAV file and loads it. Decoding errors leave the engine
// unchanged.
func (e *Engine) LoadFile(path string) error {
	if s := e.State(); s != Idle && s != Stopped {
		return fmt.Errorf("load while %s: %w", s, ErrInvalidState)
	}
	w, err := waveform.ReadFile(path)
	if err != nil {
		return err
	}
	return e.Load(w)
}

// Start opens the output and begins playback from the current position.
// It is a no-op while already playing or paused. onFinished, if set, runs on
// its own goroutine once the stream has stopped for any reason.
func (e *Engine) Start(onFinished func()) error {
	e.ctl.Lock()
	defer e.ctl.Unlock()

	e.mu.Lock()
	state := e.state
	var rate, channels int
	if e.wave != nil {
		rate, channels = e.wave.SampleRate, e.wave.Channels
	}
	e.mu.Unlock()

	switch state {
	case Idle:
		return ErrNoWaveform
	case Playing, Paused:
		return nil
	}
	if e.out == nil {
		return &DeviceError{Op: "open", Err: ErrNoDevice}
	}

	if err := e.releaseOutput(); err != nil {
		applog.Warnf("Engine: Error releasing output: %v", err)
	}

	gen := e.gen.Add(1)
	finished := func() { e.handleFinished(gen, onFinished) }

	e.stopRequested.Store(false)
	if err := e.out.Open(float64(rate), channels, e.config.Audio.FramesPerBuffer, e.Render, finished); err != nil {
		return &DeviceError{Op: "open", Err: err}
	}
	e.opened = true

	e.mu.Lock()
	if e.pos >= e.buf.Frames() {
		// A one-shot pass ran to the end: start over.
		e.pos = 0
		e.zValid = false
	}
	e.paused = false
	e.state = Playing
	e.mu.Unlock()

	if err := e.out.Start(); err != nil {
		e.gen.Add(1) // Disown the finished callback of the failed stream.
		e.stopRequested.Store(true)
		if cerr := e.releaseOutput(); cerr != nil {
			applog.Warnf("Engine: Error closing output after failed start: %v", cerr)
		}
		e.mu.Lock()
		e.state = Stopped
		e.mu.Unlock()
		return &DeviceError{Op: "start", Err: err}
	}

	applog.Infof("Engine: Playback started (loop=%v)", e.loop)
	return nil
}

// handleFinished runs when the output reports the end of stream gen.
func (e *Engine) handleFinished(gen uint64, onFinished func()) {
	if e.gen.Load() != gen {
		return
	}
	e.mu.Lock()
	if e.state == Playing || e.state == Paused {
		e.state = Stopped
	}
	e.paused = false
	e.mu.Unlock()

	applog.Debugf("Engine: Stream %d finished", gen)
	if onFinished != nil {
		go onFinished()
	}
}

// Pause silences output and freezes the position.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case Playing:
		e.paused = true
		e.state = Paused
	case Paused:
	default:
		return ErrNotPlaying
	}
	return nil
}

// Resume continues from the paused position.
func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case Paused:
		e.paused = false
		e.state = Playing
	case Playing:
	default:
		return ErrNotPlaying
	}
	return nil
}

// TogglePause flips between Playing and Paused and reports whether the
// engine is now paused.
func (e *Engine) TogglePause() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case Playing:
		e.paused, e.state = true, Paused
	case Paused:
		e.paused, e.state = false, Playing
	default:
		return false, ErrNotPlaying
	}
	return e.paused, nil
}

// Stop ends playback and releases the output. The position is kept. Stop is
// idempotent.
func (e *Engine) Stop() error {
	e.ctl.Lock()
	defer e.ctl.Unlock()

	e.stopRequested.Store(true)

	// The output is stopped without holding mu: a render in flight may be
	// waiting for it.
	err := e.releaseOutput()

	e.mu.Lock()
	if e.state == Playing || e.state == Paused {
		e.state = Stopped
		applog.Infof("Engine: Playback stopped")
	}
	e.paused = false
	e.mu.Unlock()

	if err != nil {
		return &DeviceError{Op: "stop", Err: err}
	}
	return nil
}

// Close stops playback.
func (e *Engine) Close() error {
	return e.Stop()
}

// releaseOutput stops and closes the output if it is open. ctl must be held.
func (e *Engine) releaseOutput() error {
	if !e.opened {
		return nil
	}
	e.opened = false
	stopErr := e.out.Stop()
	if err := e.out.Close(); err != nil {
		return err
	}
	return stopErr
}

// Seek moves playback to fraction of the waveform length and clears the
// filter history.
func (e *Engine) Seek(fraction float64) error {
	if math.IsNaN(fraction) || fraction < 0 || fraction > 1 {
		return fmt.Errorf("%w: got %v", ErrSeekRange, fraction)
	}

	e.mu.Lock()
	if e.buf == nil {
		e.mu.Unlock()
		return ErrNoWaveform
	}
	e.pos = int(fraction * float64(e.buf.Frames()))
	e.zValid = false
	e.mu.Unlock()

	e.resetTap()
	return nil
}

// resetTap drops the tap's history so analysis does not mix audio from
// before and after a jump.
func (e *Engine) resetTap() {
	if r, ok := e.tap.(tapResetter); ok {
		r.Reset()
	}
}

// UpdateFilter validates req against the loaded sample rate and swaps in the
// new coefficients. On error nothing changes.
func (e *Engine) UpdateFilter(req dsp.FilterRequest) error {
	e.ctl.Lock()
	defer e.ctl.Unlock()

	rate, channels, err := e.format()
	if err != nil {
		return err
	}
	return e.applyFilter(req, rate, channels)
}

// UpdateFilterText parses free-form cutoff fields, as typed by a user, and
// applies them like UpdateFilter.
func (e *Engine) UpdateFilterText(lowEnabled, highEnabled bool, low, high string) error {
	e.ctl.Lock()
	defer e.ctl.Unlock()

	rate, channels, err := e.format()
	if err != nil {
		return err
	}
	req, err := dsp.ParseRequest(lowEnabled, highEnabled, low, high, rate)
	if err != nil {
		return err
	}
	return e.applyFilter(req, rate, channels)
}

func (e *Engine) format() (rate, channels int, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.wave == nil {
		return 0, 0, ErrNoWaveform
	}
	return e.wave.SampleRate, e.wave.Channels, nil
}

// applyFilter designs outside mu; only the swap is locked. ctl must be held.
func (e *Engine) applyFilter(req dsp.FilterRequest, rate, channels int) error {
	filter, err := dsp.Resolve(req, rate, e.order)
	if err != nil {
		return err
	}
	z := dsp.NewState(filter.Coefficients.Order(), channels)

	e.mu.Lock()
	e.filter = filter
	e.z = z
	e.filterChanged = true
	e.mu.Unlock()

	applog.Debugf("Engine: Filter set to %s %+v", filter.Kind, req)
	return nil
}

// Filter returns the active filter configuration.
func (e *Engine) Filter() dsp.FilterConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.filter
}

// Position returns the playback position as a fraction in [0, 1).
func (e *Engine) Position() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.buf == nil {
		return 0
	}
	return float64(e.buf.Wrap(e.pos)) / float64(e.buf.Frames())
}

// Duration returns the waveform length in seconds, 0 when nothing is loaded.
func (e *Engine) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.wave == nil {
		return 0
	}
	return e.wave.Duration()
}

// Render produces the next output block. It is the device callback and is
// called on the real-time thread. It returns ErrStreamComplete once a stop
// has been requested and a *CallbackFault if rendering panicked.
func (e *Engine) Render(out []float32) (err error) {
	defer func() {
		if r := recover(); r != nil {
			clear(out)
			err = e.fault(r)
		}
	}()

	if e.stopRequested.Load() {
		return ErrStreamComplete
	}

	n, channels := e.renderBlock(out)
	if n == 0 {
		return nil
	}

	peak := peakLevel(out[:n])
	e.peakBits.Store(math.Float32bits(peak))

	if e.tap != nil && e.gateOpen(peak) {
		e.tap.Process(out[:n], channels)
	}
	return nil
}

// renderBlock fills out under mu and returns the number of samples written
// and the channel count. Paused or unloaded engines emit silence.
func (e *Engine) renderBlock(out []float32) (int, int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.buf == nil || e.paused {
		clear(out)
		e.peakBits.Store(0)
		return 0, 0
	}

	c := e.buf.Channels()
	frames := len(out) / c
	n := frames * c
	if cap(e.scratch) < n {
		e.scratch = make([]float32, n)
	}
	block := e.scratch[:n]

	if e.loop {
		e.pos = e.buf.ReadBlock(e.pos, frames, block)
	} else {
		var ended bool
		e.pos, ended = e.buf.ReadBlockOnce(e.pos, frames, block)
		if ended {
			e.stopRequested.Store(true)
		}
	}

	if e.filterChanged {
		e.zValid = false
		e.filterChanged = false
	}
	if !e.zValid {
		e.z.Reset(e.filter.Coefficients.Order(), c)
		e.zValid = true
	}

	e.z = dsp.Filter(e.filter.Coefficients, out[:n], block, c, e.z)
	clear(out[n:])
	return n, c
}

// fault records a recovered panic and requests the stream to end.
func (e *Engine) fault(r any) error {
	e.stopRequested.Store(true)
	f := &CallbackFault{Value: r}
	applog.Errorf("Engine: %v", f)
	select {
	case e.faults <- f:
	default:
	}
	return f
}
