// SPDX-License-Identifier: MIT
package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"filterplay/internal/config"
)

func TestParseArgsPlay(t *testing.T) {
	opts, err := ParseArgs([]string{"song.wav", "--low-cut", "300", "--no-loop", "--backend", "oto", "-b", "1024"})
	if err != nil {
		t.Fatalf("ParseArgs error: %v", err)
	}
	if opts.Command != CommandPlay || opts.Input != "song.wav" {
		t.Errorf("command = %q input = %q", opts.Command, opts.Input)
	}
	if opts.Output != "song-filtered.wav" {
		t.Errorf("default save path = %q", opts.Output)
	}

	cfg := opts.Config
	if !cfg.Filter.LowEnabled || cfg.Filter.LowCut != 300 {
		t.Errorf("low cut = %v/%v, want enabled at 300", cfg.Filter.LowEnabled, cfg.Filter.LowCut)
	}
	if cfg.Filter.HighEnabled {
		t.Error("high cut enabled without a flag")
	}
	if cfg.Playback.Loop {
		t.Error("--no-loop did not disable looping")
	}
	if cfg.Audio.Backend != config.BackendOto || cfg.Audio.FramesPerBuffer != 1024 {
		t.Errorf("audio = %+v", cfg.Audio)
	}
}

func TestParseArgsCommands(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantCommand string
		wantInput   string
		wantOutput  string
	}{
		{"List", []string{"list"}, CommandList, "", ""},
		{"Render", []string{"render", "in.wav", "out.wav", "--high-cut", "4000"}, CommandRender, "in.wav", "out.wav"},
		{"Play with save path", []string{"-o", "keep.wav", "a.wav"}, CommandPlay, "a.wav", "keep.wav"},
		{"Version", []string{"--version"}, "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := ParseArgs(tt.args)
			if err != nil {
				t.Fatalf("ParseArgs error: %v", err)
			}
			if opts.Command != tt.wantCommand || opts.Input != tt.wantInput || opts.Output != tt.wantOutput {
				t.Errorf("got %q %q %q, want %q %q %q",
					opts.Command, opts.Input, opts.Output, tt.wantCommand, tt.wantInput, tt.wantOutput)
			}
		})
	}
}

func TestParseArgsErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"No file", []string{}, "no input file"},
		{"Render missing output", []string{"render", "in.wav"}, "accepts 2 arg(s)"},
		{"Bad backend", []string{"--backend", "alsa", "a.wav"}, "audio.backend"},
		{"Reversed cuts", []string{"--low-cut", "5000", "--high-cut", "100", "a.wav"}, "less than high cut"},
		{"Watch without file", []string{"--watch", "a.wav"}, "--watch needs a configuration file"},
		{"Missing config", []string{"--config", "/nonexistent.yaml", "a.wav"}, "failed to read config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseArgs(tt.args)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseArgsConfigFileAndOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "play.yaml")
	content := "filter:\n  order: 3\n  high_enabled: true\n  high_cut_hz: 8000\ntransport:\n  websocket_enabled: true\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	opts, err := ParseArgs([]string{"--config", path, "--watch", "--order", "4", "--udp-addr", "10.0.0.2:9000", "-v", "a.wav"})
	if err != nil {
		t.Fatalf("ParseArgs error: %v", err)
	}
	cfg := opts.Config
	if cfg.Filter.Order != 4 {
		t.Errorf("order = %d, want the flag value 4", cfg.Filter.Order)
	}
	if !cfg.Filter.HighEnabled || cfg.Filter.HighCut != 8000 {
		t.Errorf("high cut from file lost: %+v", cfg.Filter.FilterRequest)
	}
	if !cfg.Transport.WebSocketEnabled {
		t.Error("websocket setting from file lost")
	}
	if !cfg.Transport.UDPEnabled || cfg.Transport.UDPTargetAddress != "10.0.0.2:9000" {
		t.Errorf("udp = %v %q", cfg.Transport.UDPEnabled, cfg.Transport.UDPTargetAddress)
	}
	if !opts.Watch || cfg.Path != path {
		t.Errorf("watch = %v path = %q", opts.Watch, cfg.Path)
	}
	if !cfg.Verbose || cfg.LogLevel != "debug" {
		t.Errorf("verbose = %v level = %q", cfg.Verbose, cfg.LogLevel)
	}
}

func TestFilteredPath(t *testing.T) {
	tests := []struct{ in, want string }{
		{"song.wav", "song-filtered.wav"},
		{"/music/a.b.WAV", "/music/a.b-filtered.WAV"},
		{"noext", "noext-filtered.wav"},
	}
	for _, tt := range tests {
		if got := FilteredPath(tt.in); got != tt.want {
			t.Errorf("FilteredPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
