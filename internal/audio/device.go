// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"

	"filterplay/internal/config"
)

// RenderFunc fills out with interleaved samples. A non-nil error ends the
// stream: the device zero-fills the block and stops calling.
type RenderFunc func(out []float32) error

// Output is a playback backend. Open binds a render function and a finished
// callback; finished runs exactly once per Open, after Stop or after render
// ended the stream.
type Output interface {
	Open(sampleRate float64, channels, framesPerBuffer int, render RenderFunc, finished func()) error
	Start() error
	Stop() error
	Close() error
}

// NewOutput returns the backend selected in cfg.
func NewOutput(cfg *config.Config) (Output, error) {
	switch cfg.Audio.Backend {
	case config.BackendPortAudio:
		return NewPortAudioOutput(cfg.Audio.OutputDevice, cfg.Audio.LowLatency), nil
	case config.BackendOto:
		return NewOtoOutput(), nil
	default:
		return nil, fmt.Errorf("unknown audio backend %q", cfg.Audio.Backend)
	}
}

// Device represents an audio device
type Device struct {
	ID                int
	Name              string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
	LowLatencyMs      float64
	HighLatencyMs     float64
	IsDefaultOutput   bool
}

// HostDevices returns all devices known to PortAudio. PortAudio must be
// initialized.
func HostDevices() ([]Device, error) {
	infos, err := paDevicesFunc()
	if err != nil {
		return nil, err
	}

	var defaultName string
	if def, err := paLibDefaultOutputDeviceFunc(); err == nil && def != nil {
		defaultName = def.Name
	}

	devices := make([]Device, len(infos))
	for i, info := range infos {
		devices[i] = Device{
			ID:                i,
			Name:              info.Name,
			MaxInputChannels:  info.MaxInputChannels,
			MaxOutputChannels: info.MaxOutputChannels,
			DefaultSampleRate: info.DefaultSampleRate,
			LowLatencyMs:      info.DefaultLowOutputLatency.Seconds() * 1000,
			HighLatencyMs:     info.DefaultHighOutputLatency.Seconds() * 1000,
			IsDefaultOutput:   info.Name == defaultName,
		}
	}
	return devices, nil
}

// OutputDevices filters HostDevices down to devices with output channels.
func OutputDevices() ([]Device, error) {
	all, err := HostDevices()
	if err != nil {
		return nil, err
	}
	out := all[:0:0]
	for _, d := range all {
		if d.MaxOutputChannels > 0 {
			out = append(out, d)
		}
	}
	return out, nil
}
