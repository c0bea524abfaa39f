// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	applog "filterplay/internal/log"

	"github.com/gordonklaus/portaudio"
)

// paStream is the part of *portaudio.Stream the output drives.
type paStream interface {
	Start() error
	Stop() error
	Close() error
}

// paOpenStream opens a callback stream, replaceable in tests.
var paOpenStream = func(p portaudio.StreamParameters, cb func(out []float32)) (paStream, error) {
	return portaudio.OpenStream(p, cb)
}

// PortAudioOutput plays through a PortAudio callback stream. The stream cannot
// be stopped from inside its own callback, so a watcher goroutine stops it
// once render reports the end.
type PortAudioOutput struct {
	deviceID   int
	lowLatency bool

	mu       sync.Mutex
	stream   paStream
	running  bool
	stopCh   chan struct{}
	complete chan struct{}
	watchWG  sync.WaitGroup

	render RenderFunc
	finish func()
	done   atomic.Bool
}

// NewPortAudioOutput targets deviceID (-1 for the system default).
func NewPortAudioOutput(deviceID int, lowLatency bool) *PortAudioOutput {
	return &PortAudioOutput{deviceID: deviceID, lowLatency: lowLatency}
}

func (o *PortAudioOutput) Open(sampleRate float64, channels, framesPerBuffer int, render RenderFunc, finished func()) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.stream != nil {
		return errors.New("stream already open")
	}

	device, err := OutputDevice(o.deviceID)
	if err != nil {
		return err
	}

	latency := device.DefaultHighOutputLatency
	if o.lowLatency {
		latency = device.DefaultLowOutputLatency
	}

	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: channels,
			Latency:  latency,
		},
		SampleRate:      sampleRate,
		FramesPerBuffer: framesPerBuffer,
	}

	once := new(sync.Once)
	o.render = render
	o.finish = func() {
		once.Do(func() {
			if finished != nil {
				finished()
			}
		})
	}
	o.done.Store(false)
	o.complete = make(chan struct{}, 1)

	stream, err := paOpenStream(params, o.callback)
	if err != nil {
		return err
	}
	o.stream = stream

	applog.Infof("PortAudio: Opened %q (%.0f Hz, %d ch, %d frames, latency %s)",
		device.Name, sampleRate, channels, framesPerBuffer, latency.Round(time.Microsecond))
	return nil
}

func (o *PortAudioOutput) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.stream == nil {
		return ErrNoDevice
	}
	if o.running {
		return nil
	}
	if err := o.stream.Start(); err != nil {
		return err
	}
	o.running = true
	o.stopCh = make(chan struct{})

	o.watchWG.Add(1)
	go o.watch(o.stopCh, o.complete, o.finish)
	return nil
}

// watch stops the stream after render ends it.
func (o *PortAudioOutput) watch(stop, complete <-chan struct{}, finish func()) {
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
		if err := o.stream.Stop(); err != nil {
			applog.Warnf("PortAudio: Error stopping completed stream: %v", err)
		}
	}
	o.mu.Unlock()
	finish()
}

func (o *PortAudioOutput) Stop() error {
	o.mu.Lock()
	var err error
	if o.running {
		o.running = false
		close(o.stopCh)
		err = o.stream.Stop()
	}
	finish := o.finish
	o.mu.Unlock()

	o.watchWG.Wait()
	if finish != nil {
		finish()
	}
	return err
}

func (o *PortAudioOutput) Close() error {
	stopErr := o.Stop()

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stream == nil {
		return stopErr
	}
	err := o.stream.Close()
	o.stream = nil
	if err != nil {
		return err
	}
	return stopErr
}

// callback runs on the PortAudio thread.
func (o *PortAudioOutput) callback(out []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if o.done.Load() {
		clear(out)
		return
	}
	if err := o.render(out); err != nil {
		clear(out)
		o.done.Store(true)
		select {
		case o.complete <- struct{}{}:
		default:
		}
	}
}

var _ Output = (*PortAudioOutput)(nil)
