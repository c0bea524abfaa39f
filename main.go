// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"filterplay/cmd"
	"filterplay/internal/audio"
	"filterplay/internal/config"
	"filterplay/internal/fft"
	applog "filterplay/internal/log"
	"filterplay/internal/transport"
	"filterplay/internal/transport/udp"
	"filterplay/internal/tui"
	"filterplay/pkg/build"

	"golang.org/x/sync/errgroup"
)

// logFileName receives log output while the terminal UI owns the screen.
const logFileName = "filterplay.log"

// main is the entry point for the filtered playback application.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse command line arguments and configuration
//   - Execute one-off commands (list, render)
//
// 2. Concurrent Phase (Hot Path):
//   - Load the file and open the output device
//   - Start publishers, the config watcher and the fault drain
//   - Run the terminal UI
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination signals or UI exit
//   - Stop playback and publishers
//   - Release the audio subsystem
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// ==================== STARTUP PHASE (Cold Path) ====================

	// Development builds carry no ldflags and keep the built-in defaults.
	if err := build.Initialize(); err != nil {
		applog.Debugf("build: %v", err)
	}

	opts, err := cmd.ParseArgs(os.Args[1:])
	if err != nil {
		return err
	}
	if opts.Command == "" {
		return nil // --help or --version
	}
	applog.SetLevelString(opts.Config.LogLevel)

	switch opts.Command {
	case cmd.CommandList:
		return listDevices(opts)
	case cmd.CommandRender:
		return render(opts)
	default:
		return play(opts)
	}
}

func listDevices(opts *cmd.Options) error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	if !opts.Interactive {
		return audio.ListDevices(os.Stdout)
	}
	id, ok, err := tui.PickDevice(audio.OutputDevices)
	if err != nil {
		return err
	}
	if ok {
		fmt.Println(id)
	}
	return nil
}

// render filters a file without opening a device.
func render(opts *cmd.Options) error {
	engine := audio.NewEngine(opts.Config, nil)
	defer engine.Close()

	if err := engine.LoadFile(opts.Input); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := engine.SaveFiltered(ctx, opts.Output); err != nil {
		return err
	}
	f := engine.Filter()
	fmt.Printf("Wrote %s (%s)\n", opts.Output, f.Kind)
	return nil
}

func play(opts *cmd.Options) error {
	cfg := opts.Config

	// The terminal UI owns stdout; logs go to a file next to the system
	// temp files.
	logPath := filepath.Join(os.TempDir(), logFileName)
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	applog.SetOutput(logFile)
	defer applog.SetOutput(os.Stderr)

	if cfg.Audio.Backend == config.BackendPortAudio {
		if err := audio.Initialize(); err != nil {
			return err
		}
		defer audio.Terminate()
	}

	out, err := audio.NewOutput(cfg)
	if err != nil {
		return err
	}

	publishing := cfg.Transport.WebSocketEnabled || cfg.Transport.UDPEnabled
	var engineOpts []audio.Option
	var analyzer *fft.Analyzer
	if publishing {
		window, err := fft.ParseWindowFunc(cfg.Transport.FFTWindow)
		if err != nil {
			return err
		}
		if analyzer, err = fft.NewAnalyzer(cfg.Transport.FFTSize, window); err != nil {
			return err
		}
		engineOpts = append(engineOpts, audio.WithTap(analyzer))
	}

	engine := audio.NewEngine(cfg, out, engineOpts...)
	defer engine.Close()

	if err := engine.LoadFile(opts.Input); err != nil {
		return err
	}
	if analyzer != nil {
		analyzer.SetSampleRate(float64(engine.Status().SampleRate))
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	if publishing {
		closePublishers, err := startPublishers(cfg, engine, analyzer)
		if err != nil {
			return err
		}
		defer closePublishers()
	}

	if opts.Watch {
		g.Go(func() error {
			return config.Watch(ctx, cfg.Path, func(c *config.Config) {
				if c.Filter.Order != cfg.Filter.Order {
					applog.Warnf("configuration: filter.order changes take effect on restart")
				}
				if err := engine.UpdateFilter(c.Filter.FilterRequest); err != nil {
					applog.Warnf("configuration: Keeping the current filter: %v", err)
				}
			})
		})
	}

	// The engine logs each fault as it is raised; the screen shows them too.
	model := tui.NewPlayerModel(engine, opts.Input, opts.Output, cfg.Filter.FilterRequest, cfg.Playback.StatusInterval).
		WithFaults(engine.Faults())
	g.Go(func() error {
		defer stop()
		return tui.RunPlayer(ctx, model)
	})

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	return g.Wait()
}

// startPublishers starts the configured status and spectrum publishers and
// returns a function that shuts them down.
func startPublishers(cfg *config.Config, engine *audio.Engine, analyzer *fft.Analyzer) (func(), error) {
	var closers []func() error
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				applog.Warnf("Transport: Error during shutdown: %v", err)
			}
		}
	}

	if cfg.Transport.WebSocketEnabled {
		ws, err := transport.NewWebSocketTransport(cfg.Transport.WebSocketAddress)
		if err != nil {
			closeAll()
			return nil, err
		}
		pub, err := transport.NewPublisher(cfg.Playback.StatusInterval, ws, engine, analyzer)
		if err != nil {
			ws.Close()
			closeAll()
			return nil, err
		}
		pub.Start()
		closers = append(closers, ws.Close, pub.Close)
		applog.Infof("Transport: WebSocket clients can connect to ws://%s/ws", ws.Addr())
	}

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			closeAll()
			return nil, err
		}
		pub, err := udp.NewPublisher(cfg.Transport.UDPSendInterval, sender, engine, analyzer)
		if err != nil {
			sender.Close()
			closeAll()
			return nil, err
		}
		pub.Start()
		closers = append(closers, sender.Close, pub.Close)
	}

	if applog.Enabled(applog.LevelDebug) {
		pub, err := transport.NewPublisher(cfg.Playback.StatusInterval*10, transport.NewLoggingTransport(), engine, nil)
		if err != nil {
			closeAll()
			return nil, err
		}
		pub.Start()
		closers = append(closers, pub.Close)
	}

	return closeAll, nil
}
