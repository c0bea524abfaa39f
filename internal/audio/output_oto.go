// SPDX-License-Identifier: MIT
package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	applog "filterplay/internal/log"

	"github.com/ebitengine/oto/v3"
)

// oto allows a single context per process; it is created on first use and
// fixes the sample rate and channel count from then on.
var (
	otoMu       sync.Mutex
	otoCtx      *oto.Context
	otoRate     int
	otoChannels int
)

func otoContext(sampleRate, channels int, buffer time.Duration) (*oto.Context, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx != nil {
		if otoRate != sampleRate || otoChannels != channels {
			return nil, fmt.Errorf("oto context already running at %d Hz/%d ch, cannot switch to %d Hz/%d ch",
				otoRate, otoChannels, sampleRate, channels)
		}
		return otoCtx, nil
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   buffer,
	})
	if err != nil {
		return nil, err
	}
	<-ready

	otoCtx, otoRate, otoChannels = ctx, sampleRate, channels
	return ctx, nil
}

// OtoOutput plays through an oto player pulling from the render function.
type OtoOutput struct {
	mu      sync.Mutex
	player  *oto.Player
	reader  *renderReader
	running bool
	stopCh  chan struct{}
	watchWG sync.WaitGroup
	finish  func()
}

func NewOtoOutput() *OtoOutput {
	return &OtoOutput{}
}

func (o *OtoOutput) Open(sampleRate float64, channels, framesPerBuffer int, render RenderFunc, finished func()) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player != nil {
		return fmt.Errorf("player already open")
	}

	rate := int(sampleRate)
	latency := time.Duration(float64(framesPerBuffer) / sampleRate * float64(time.Second))
	ctx, err := otoContext(rate, channels, latency)
	if err != nil {
		return err
	}

	once := new(sync.Once)
	o.finish = func() {
		once.Do(func() {
			if finished != nil {
				finished()
			}
		})
	}

	o.reader = &renderReader{
		render:   render,
		channels: channels,
		scratch:  make([]float32, framesPerBuffer*channels),
		complete: make(chan struct{}, 1),
	}
	o.player = ctx.NewPlayer(o.reader)
	o.player.SetBufferSize(framesPerBuffer * channels * 4)

	applog.Infof("oto: Opened player (%d Hz, %d ch, %d frames)", rate, channels, framesPerBuffer)
	return nil
}

func (o *OtoOutput) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player == nil {
		return ErrNoDevice
	}
	if o.running {
		return nil
	}
	o.player.Play()
	o.running = true
	o.stopCh = make(chan struct{})

	o.watchWG.Add(1)
	go o.watch(o.stopCh, o.reader.complete, o.finish)
	return nil
}

func (o *OtoOutput) watch(stop, complete <-chan struct{}, finish func()) {
	defer o.watchWG.Done()
	select {
	case <-stop:
		return
	case <-complete:
	}

	o.mu.Lock()
	if o.running {
		o.running = false
		close(o.stopCh)
		o.player.Pause()
	}
	o.mu.Unlock()
	finish()
}

func (o *OtoOutput) Stop() error {
	o.mu.Lock()
	if o.running {
		o.running = false
		close(o.stopCh)
		o.player.Pause()
	}
	finish := o.finish
	o.mu.Unlock()

	o.watchWG.Wait()
	if finish != nil {
		finish()
	}
	return nil
}

func (o *OtoOutput) Close() error {
	_ = o.Stop()

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.player == nil {
		return nil
	}
	err := o.player.Close()
	o.player = nil
	o.reader = nil
	return err
}

// renderReader adapts a RenderFunc to the io.Reader oto pulls from.
type renderReader struct {
	render   RenderFunc
	channels int
	scratch  []float32
	complete chan struct{}
	done     bool
}

func (r *renderReader) Read(p []byte) (int, error) {
	if r.done {
		return 0, io.EOF
	}

	frameBytes := 4 * r.channels
	frames := len(p) / frameBytes
	if frames == 0 {
		return 0, nil
	}
	n := frames * r.channels
	if cap(r.scratch) < n {
		r.scratch = make([]float32, n)
	}
	block := r.scratch[:n]

	if err := r.render(block); err != nil {
		r.done = true
		select {
		case r.complete <- struct{}{}:
		default:
		}
		return 0, io.EOF
	}

	for i, v := range block {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(v))
	}
	return frames * frameBytes, nil
}

var _ Output = (*OtoOutput)(nil)
