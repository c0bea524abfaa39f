// SPDX-License-Identifier: MIT
package config

import (
	"time"

	"filterplay/internal/dsp"
)

// Core configuration constants that define the boundaries and defaults for
// the playback engine.
const (
	BackendPortAudio = "portaudio"
	BackendOto       = "oto"

	DefaultBackend         = BackendPortAudio
	DefaultDeviceID        = MinDeviceID // System default output device
	DefaultFramesPerBuffer = 512         // Balanced latency/performance
	DefaultLowLatency      = false
	DefaultLogLevel        = "info"
	DefaultFilterOrder     = dsp.DefaultOrder
	DefaultLowCut          = 2000.0
	DefaultHighCut         = 5000.0
	DefaultLoop            = true
	DefaultStatusInterval  = 100 * time.Millisecond
	DefaultFFTSize         = 1024
	DefaultFFTWindow       = "hann"
	DefaultGateThreshold   = 0.001 // Skip analysis below ~0.1% of full scale.
	DefaultWebSocketAddr   = "127.0.0.1:8080"
	DefaultUDPTarget       = "127.0.0.1:9090"
	DefaultUDPSendInterval = 33 * time.Millisecond // ~30Hz

	MinDeviceID        = -1 // -1 represents the system default device
	MinBufferFrames    = 16
	MaxBufferFrames    = 8192
	MaxFilterOrder     = 12
	MinFFTSize         = 64
	MaxFFTSize         = 16384
	MinStatusInterval  = 10 * time.Millisecond
	MinUDPSendInterval = time.Millisecond
)

// Config is the application configuration, loaded from YAML and then
// overridden by environment variables and command line flags.
type Config struct {
	LogLevel  string          `yaml:"log_level"`
	Audio     AudioConfig     `yaml:"audio"`
	Filter    FilterConfig    `yaml:"filter"`
	Playback  PlaybackConfig  `yaml:"playback"`
	Transport TransportConfig `yaml:"transport"`

	// Runtime only, set from the command line.
	Verbose bool   `yaml:"-"`
	Path    string `yaml:"-"` // File the configuration was read from, if any.
}

// AudioConfig selects and tunes the output device.
type AudioConfig struct {
	Backend         string `yaml:"backend"`           // "portaudio" or "oto".
	OutputDevice    int    `yaml:"output_device"`     // PortAudio device index (-1 for default).
	FramesPerBuffer int    `yaml:"frames_per_buffer"` // Frames per render callback.
	LowLatency      bool   `yaml:"low_latency"`       // Request the device's low latency setting.
}

// FilterConfig is the initial filter applied before playback starts.
type FilterConfig struct {
	Order             int `yaml:"order"` // Butterworth order per cut.
	dsp.FilterRequest `yaml:",inline"`
}

// PlaybackConfig controls transport behaviour.
type PlaybackConfig struct {
	Loop           bool          `yaml:"loop"`            // Wrap to the start at the end of the waveform.
	StatusInterval time.Duration `yaml:"status_interval"` // Poll interval for the terminal UI and publishers.
}

// TransportConfig holds settings for publishing status and spectrum data.
type TransportConfig struct {
	WebSocketEnabled bool          `yaml:"websocket_enabled"`
	WebSocketAddress string        `yaml:"websocket_address"`
	UDPEnabled       bool          `yaml:"udp_enabled"`
	UDPTargetAddress string        `yaml:"udp_target_address"`
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`
	FFTSize          int           `yaml:"fft_size"`       // Power of two.
	FFTWindow        string        `yaml:"fft_window"`     // hann, hamming, blackman, ...
	GateThreshold    float64       `yaml:"gate_threshold"` // Linear peak below which blocks are not analysed; 0 analyses all.
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Audio: AudioConfig{
			Backend:         DefaultBackend,
			OutputDevice:    DefaultDeviceID,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      DefaultLowLatency,
		},
		Filter: FilterConfig{
			Order: DefaultFilterOrder,
			FilterRequest: dsp.FilterRequest{
				LowCut:  DefaultLowCut,
				HighCut: DefaultHighCut,
			},
		},
		Playback: PlaybackConfig{
			Loop:           DefaultLoop,
			StatusInterval: DefaultStatusInterval,
		},
		Transport: TransportConfig{
			WebSocketAddress: DefaultWebSocketAddr,
			UDPTargetAddress: DefaultUDPTarget,
			UDPSendInterval:  DefaultUDPSendInterval,
			FFTSize:          DefaultFFTSize,
			FFTWindow:        DefaultFFTWindow,
			GateThreshold:    DefaultGateThreshold,
		},
	}
}
