// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"filterplay/internal/config"
	"filterplay/pkg/build"

	"github.com/spf13/cobra"
)

// Commands run by main.
const (
	CommandPlay   = "play"
	CommandList   = "list"
	CommandRender = "render"
)

// Options is the parsed command line: the command to run, its arguments, and
// the configuration with flag overrides applied.
type Options struct {
	Command     string
	Input       string // WAV file to play or render.
	Output      string // Destination of filtered audio.
	Interactive bool   // list: pick a device instead of printing.
	Watch       bool   // play: reload the filter when the config file changes.
	Config      *config.Config
}

type flagValues struct {
	configPath      string
	backend         string
	device          int
	framesPerBuffer int
	lowLatency      bool
	lowCut          float64
	highCut         float64
	order           int
	noLoop          bool
	wsAddr          string
	udpAddr         string
	logLevel        string
	verbose         bool
}

// ParseArgs parses args (without the program name). Configuration is loaded
// from --config, or the default file when present, and then overridden by any
// flag given explicitly.
func ParseArgs(args []string) (*Options, error) {
	buildInfo := build.GetBuildFlags()
	opts := &Options{}
	var fv flagValues

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name + " [file]",
		Short:         build.Description,
		Version:       build.Summary(),
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(fv.configPath)
			if err != nil {
				return err
			}
			if err := applyFlags(cmd, &fv, cfg); err != nil {
				return err
			}
			opts.Config = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("no input file: run '%s --help' for usage", buildInfo.Name)
			}
			opts.Command = CommandPlay
			opts.Input = args[0]
			if opts.Output == "" {
				opts.Output = FilteredPath(args[0])
			}
			if opts.Watch && opts.Config.Path == "" {
				return fmt.Errorf("--watch needs a configuration file")
			}
			return nil
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// List command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available output devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Command = CommandList
			return nil
		},
	}
	listCmd.Flags().BoolVarP(&opts.Interactive, "interactive", "i", false,
		"Pick a device interactively and print its ID")
	rootCmd.AddCommand(listCmd)

	// Render command
	renderCmd := &cobra.Command{
		Use:   "render <input> <output>",
		Short: "Filter a WAV file offline and save the result",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Command = CommandRender
			opts.Input, opts.Output = args[0], args[1]
			return nil
		},
	}
	rootCmd.AddCommand(renderCmd)

	// Playback-only flags
	rootCmd.Flags().StringVarP(&opts.Output, "save-to", "o", "",
		"Where 'w' saves filtered audio. Default is <file>-filtered.wav")
	rootCmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false,
		"Re-apply the filter section when the configuration file changes")

	pf := rootCmd.PersistentFlags()

	// Configuration file
	pf.StringVarP(&fv.configPath, "config", "C", "",
		"Configuration file. Default is "+config.DefaultPath+" when present")

	// Audio Device Configuration
	pf.StringVar(&fv.backend, "backend", config.DefaultBackend,
		"Output backend ("+config.BackendPortAudio+" or "+config.BackendOto+")")
	pf.IntVarP(&fv.device, "device", "d", config.DefaultDeviceID,
		"Specify output device ID. Use 'list' command to see available devices.")
	pf.IntVarP(&fv.framesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per buffer (affects latency)")
	pf.BoolVarP(&fv.lowLatency, "low-latency", "l", config.DefaultLowLatency,
		"Use low latency mode for real-time processing")

	// Filter Configuration
	pf.Float64Var(&fv.lowCut, "low-cut", config.DefaultLowCut,
		"Enable the low cut at this frequency in Hz")
	pf.Float64Var(&fv.highCut, "high-cut", config.DefaultHighCut,
		"Enable the high cut at this frequency in Hz")
	pf.IntVar(&fv.order, "order", config.DefaultFilterOrder,
		"Butterworth order of each cut")
	pf.BoolVar(&fv.noLoop, "no-loop", false,
		"Stop at the end of the file instead of looping")

	// Transport Configuration
	pf.StringVar(&fv.wsAddr, "ws-addr", "",
		"Serve status and spectrum over WebSocket on this address")
	pf.StringVar(&fv.udpAddr, "udp-addr", "",
		"Send status and spectrum datagrams to this address")

	// Debug Configuration
	pf.StringVar(&fv.logLevel, "log-level", config.DefaultLogLevel,
		"Log level (debug, info, warn, error)")
	pf.BoolVarP(&fv.verbose, "verbose", "v", false,
		"Show verbose output")

	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	return opts, nil
}

// applyFlags copies explicitly set flags over the loaded configuration and
// validates the result.
func applyFlags(cmd *cobra.Command, fv *flagValues, cfg *config.Config) error {
	changed := cmd.Flags().Changed

	if changed("backend") {
		cfg.Audio.Backend = fv.backend
	}
	if changed("device") {
		cfg.Audio.OutputDevice = fv.device
	}
	if changed("frames-per-buffer") {
		cfg.Audio.FramesPerBuffer = fv.framesPerBuffer
	}
	if changed("low-latency") {
		cfg.Audio.LowLatency = fv.lowLatency
	}
	if changed("low-cut") {
		cfg.Filter.LowEnabled = true
		cfg.Filter.LowCut = fv.lowCut
	}
	if changed("high-cut") {
		cfg.Filter.HighEnabled = true
		cfg.Filter.HighCut = fv.highCut
	}
	if changed("order") {
		cfg.Filter.Order = fv.order
	}
	if changed("no-loop") {
		cfg.Playback.Loop = !fv.noLoop
	}
	if changed("ws-addr") {
		cfg.Transport.WebSocketEnabled = fv.wsAddr != ""
		cfg.Transport.WebSocketAddress = fv.wsAddr
	}
	if changed("udp-addr") {
		cfg.Transport.UDPEnabled = fv.udpAddr != ""
		cfg.Transport.UDPTargetAddress = fv.udpAddr
	}
	if changed("log-level") {
		cfg.LogLevel = fv.logLevel
	}
	if fv.verbose {
		cfg.Verbose = true
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return nil
}

// FilteredPath derives the default save path for input: the same name with
// "-filtered" before the extension.
func FilteredPath(input string) string {
	ext := filepath.Ext(input)
	if ext == "" {
		ext = ".wav"
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + "-filtered" + ext
}
