// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"filterplay/internal/dsp"
	"filterplay/internal/fft"
	applog "filterplay/internal/log"
	"filterplay/pkg/bitint"

	"gopkg.in/yaml.v3"
)

// DefaultPath is searched when no configuration file is given.
const DefaultPath = "filterplay.yaml"

// LoadConfig loads configuration from a YAML file at path. If path is empty,
// DefaultPath is tried, and when it does not exist the built-in defaults are
// used. Environment overrides are applied after the file, then the result is
// validated.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		if _, err := os.Stat(DefaultPath); err != nil {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return cfg, nil
		}
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.Path = path

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks every section. Filter cutoffs are checked for sign and
// ordering only, the Nyquist bound depends on the loaded waveform.
func (c *Config) Validate() error {
	if _, ok := applog.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("log_level %q is not one of debug, info, warn, error, fatal", c.LogLevel)
	}

	switch c.Audio.Backend {
	case BackendPortAudio, BackendOto:
	default:
		return fmt.Errorf("audio.backend %q must be %q or %q", c.Audio.Backend, BackendPortAudio, BackendOto)
	}
	if c.Audio.OutputDevice < MinDeviceID {
		return fmt.Errorf("audio.output_device %d must be >= %d", c.Audio.OutputDevice, MinDeviceID)
	}
	if c.Audio.FramesPerBuffer < MinBufferFrames || c.Audio.FramesPerBuffer > MaxBufferFrames {
		return fmt.Errorf("audio.frames_per_buffer %d must be in [%d, %d]",
			c.Audio.FramesPerBuffer, MinBufferFrames, MaxBufferFrames)
	}

	if c.Filter.Order < 1 || c.Filter.Order > MaxFilterOrder {
		return fmt.Errorf("filter.order %d must be in [1, %d]", c.Filter.Order, MaxFilterOrder)
	}
	if err := validateCut(c.Filter.LowEnabled, c.Filter.LowCut, dsp.LowCut); err != nil {
		return err
	}
	if err := validateCut(c.Filter.HighEnabled, c.Filter.HighCut, dsp.HighCut); err != nil {
		return err
	}
	if c.Filter.LowEnabled && c.Filter.HighEnabled && c.Filter.LowCut >= c.Filter.HighCut {
		return fmt.Errorf("filter: %w", dsp.ErrInvalidFilterRange)
	}

	if c.Playback.StatusInterval < MinStatusInterval {
		return fmt.Errorf("playback.status_interval %s must be at least %s", c.Playback.StatusInterval, MinStatusInterval)
	}

	t := c.Transport
	if t.WebSocketEnabled && !strings.Contains(t.WebSocketAddress, ":") {
		return fmt.Errorf("transport.websocket_address %q appears invalid (missing port?)", t.WebSocketAddress)
	}
	if t.UDPEnabled {
		if !strings.Contains(t.UDPTargetAddress, ":") {
			return fmt.Errorf("transport.udp_target_address %q appears invalid (missing port?)", t.UDPTargetAddress)
		}
		if t.UDPSendInterval < MinUDPSendInterval {
			return fmt.Errorf("transport.udp_send_interval must be at least %s", MinUDPSendInterval)
		}
	}
	if t.FFTSize < MinFFTSize || t.FFTSize > MaxFFTSize {
		return fmt.Errorf("transport.fft_size %d must be in [%d, %d]", t.FFTSize, MinFFTSize, MaxFFTSize)
	}
	if !bitint.IsPowerOfTwo(t.FFTSize) {
		return fmt.Errorf("transport.fft_size %d must be a power of two (try %d)", t.FFTSize, bitint.NextPowerOfTwo(t.FFTSize))
	}
	if math.IsNaN(t.GateThreshold) || t.GateThreshold < 0 || t.GateThreshold > 1 {
		return fmt.Errorf("transport.gate_threshold %v must be in [0, 1]", t.GateThreshold)
	}
	if _, err := fft.ParseWindowFunc(t.FFTWindow); err != nil {
		return fmt.Errorf("transport.fft_window: %w", err)
	}

	return nil
}

func validateCut(enabled bool, hz float64, side dsp.Side) error {
	if !enabled {
		return nil
	}
	if math.IsNaN(hz) || math.IsInf(hz, 0) || hz <= 0 {
		return fmt.Errorf("filter: %w", &dsp.InvalidFrequencyError{
			Side:    side,
			Value:   strconv.FormatFloat(hz, 'g', -1, 64),
			Nyquist: math.Inf(1),
		})
	}
	return nil
}

// applyEnvOverrides applies ENV_* variables on top of the file values.
// Malformed values are logged and ignored.
func (c *Config) applyEnvOverrides() {
	// ENV_{...}
	// General overrides.
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		c.LogLevel = strings.ToLower(strings.TrimSpace(val))
		applog.Debugf("configuration: Overriding log_level from env: %s", c.LogLevel)
	}

	// ENV_AUDIO_{...}
	if val, ok := os.LookupEnv("ENV_AUDIO_BACKEND"); ok {
		c.Audio.Backend = strings.ToLower(strings.TrimSpace(val))
		applog.Debugf("configuration: Overriding audio.backend from env: %s", c.Audio.Backend)
	}
	envInt("ENV_AUDIO_OUTPUT_DEVICE", &c.Audio.OutputDevice)
	envInt("ENV_AUDIO_FRAMES_PER_BUFFER", &c.Audio.FramesPerBuffer)
	envBool("ENV_AUDIO_LOW_LATENCY", &c.Audio.LowLatency)

	// ENV_PLAYBACK_{...}
	envBool("ENV_PLAYBACK_LOOP", &c.Playback.Loop)

	// ENV_WS_{...} and ENV_UDP_{...}
	// Specific to the transport layer.
	envBool("ENV_WS_ENABLED", &c.Transport.WebSocketEnabled)
	if val, ok := os.LookupEnv("ENV_WS_ADDRESS"); ok {
		c.Transport.WebSocketAddress = val
		applog.Debugf("configuration: Overriding transport.websocket_address from env: %s", val)
	}
	envBool("ENV_UDP_ENABLED", &c.Transport.UDPEnabled)
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		c.Transport.UDPTargetAddress = val
		applog.Debugf("configuration: Overriding transport.udp_target_address from env: %s", val)
	}
	if val, ok := os.LookupEnv("ENV_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			c.Transport.UDPSendInterval = dur
			applog.Debugf("configuration: Overriding transport.udp_send_interval from env: %s", dur)
		} else {
			applog.Warnf("configuration: Ignoring ENV_UDP_SEND_INTERVAL=%q: %v", val, err)
		}
	}
}

func envBool(key string, dst *bool) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		applog.Warnf("configuration: Ignoring %s=%q: %v", key, val, err)
		return
	}
	*dst = b
	applog.Debugf("configuration: Overriding %s from env: %v", key, b)
}

func envInt(key string, dst *int) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		applog.Warnf("configuration: Ignoring %s=%q: %v", key, val, err)
		return
	}
	*dst = n
	applog.Debugf("configuration: Overriding %s from env: %d", key, n)
}
