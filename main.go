// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"looper/cmd"
	"looper/internal/audio"
	"looper/internal/config"
	"looper/internal/control"
	applog "looper/internal/log"
	"looper/internal/transport"
	"looper/internal/transport/udp"
	"looper/internal/tui"
	"looper/pkg/build"

	"gopkg.in/yaml.v3"
)

// main is the entry point for the looper host.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Configure runtime settings
//   - Parse command line arguments and load the configuration
//   - Execute one-off commands (list, render) if requested
//
// 2. Concurrent Phase (Hot Path):
//   - Initialize PortAudio and start the duplex stream
//   - Start status transports and recording if enabled
//   - Run the control surface, or wait for a signal when headless
//
// 3. Shutdown Phase (Cold Path):
//   - Stop transports
//   - Stop recording if active
//   - Clean up resources
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	// Development builds carry no linker flags; report and continue.
	if err := build.Initialize(); err != nil {
		applog.Debugf("build: %v", err)
	}

	// Limit OS threads to optimize for real-time audio processing:
	// - One thread dedicated to audio engine (time-critical)
	// - One thread for UI, network and I/O operations
	runtime.GOMAXPROCS(2)

	opts, err := cmd.ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	if opts == nil {
		return
	}

	if err := applog.Configure(opts.Config.LogLevel, opts.Verbose); err != nil {
		applog.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch opts.Command() {
	case cmd.CommandList:
		err = listDevices(opts.Pick)
	case cmd.CommandRender:
		err = render(ctx, opts.Config, opts.Render)
	default:
		err = run(ctx, opts.Config)
	}
	if err != nil {
		applog.Errorf("%v", err)
		stop()
		os.Exit(1)
	}
}

// run hosts the looper on the configured devices until the user quits or
// a termination signal arrives.
func run(ctx context.Context, cfg *config.Config) (err error) {
	// ==================== CONCURRENT PHASE (Hot Path) ====================

	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	store := control.NewStore(audio.InitialParams(cfg))
	engine, err := audio.NewEngine(cfg, store)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, engine.Close())
	}()

	closeTransports, err := startTransports(cfg, store, engine)
	if err != nil {
		return err
	}
	defer closeTransports()

	// CRITICAL: Start of real-time audio processing
	// PortAudio begins calling the stream callback from here on.
	if err := engine.Start(); err != nil {
		return err
	}

	if cfg.Recording.Enabled {
		if err := engine.StartRecording(""); err != nil {
			return err
		}
	}

	if cfg.Headless {
		applog.Infof("Running headless, press Ctrl+C to stop")
		<-ctx.Done()
	} else if err := runUI(store, engine); err != nil {
		return err
	}

	// ==================== SHUTDOWN PHASE (Cold Path) ====================
	applog.Infof("Shutting down")
	return nil
}

// startTransports starts the configured status surfaces and returns a
// function that stops them all.
func startTransports(cfg *config.Config, store *control.Store, source transport.StatusSource) (func(), error) {
	var (
		transports []transport.Transport
		publisher  *udp.UDPPublisher
	)

	closeAll := func() {
		if publisher != nil {
			if err := publisher.Close(); err != nil {
				applog.Warnf("UDP: %v", err)
			}
		}
		for _, t := range transports {
			if err := t.Close(); err != nil {
				applog.Warnf("Transport: %v", err)
			}
		}
	}

	if cfg.Transport.WebSocketEnabled {
		wst := transport.NewWebSocketTransport(cfg.Transport.WebSocketAddr, store)
		if err := wst.Start(); err != nil {
			return nil, err
		}
		transports = append(transports, wst)
		applog.Infof("WebSocket: Serving ws://%s/ws", wst.Addr())
	}

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewUDPSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			closeAll()
			return nil, err
		}
		publisher, err = udp.NewUDPPublisher(cfg.Transport.StatusInterval, sender, source)
		if err != nil {
			sender.Close()
			closeAll()
			return nil, err
		}
		publisher.Start()
	}

	if cfg.Headless && applog.GetLevel() == applog.LevelDebug {
		transports = append(transports, transport.NewLoggingTransport())
	}

	if len(transports) == 0 {
		return closeAll, nil
	}

	broadcaster := transport.NewBroadcaster(source, cfg.Transport.StatusInterval, transports...)
	broadcaster.Start()
	return func() {
		broadcaster.Stop()
		closeAll()
	}, nil
}

// runUI runs the control surface with log output diverted to a file, and
// restores stderr however the surface exits.
func runUI(store *control.Store, engine *audio.Engine) error {
	logFile, err := redirectLog()
	if err != nil {
		return err
	}
	defer func() {
		applog.SetOutput(os.Stderr)
		logFile.Close()
	}()

	return tui.RunLooperUI(store, engine, engine)
}

// redirectLog sends log output to a file while the control surface owns
// the terminal.
func redirectLog() (*os.File, error) {
	path := filepath.Join(os.TempDir(), "looper.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	applog.SetOutput(f)
	return f, nil
}

// listDevices prints the device table, or runs the interactive picker and
// prints the matching config snippet.
func listDevices(pick bool) error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	if !pick {
		return audio.ListDevices(os.Stdout)
	}

	devices, err := audio.GetDevices()
	if err != nil {
		return err
	}
	sel, err := tui.PickDevice(devices)
	if err != nil || sel == nil {
		return err
	}

	snippet := struct {
		Audio map[string]any `yaml:"audio"`
	}{Audio: map[string]any{"sample_rate": sel.SampleRate}}
	if sel.Device.MaxInputChannels > 0 {
		snippet.Audio["input_device"] = sel.Device.ID
	}
	if sel.Device.MaxOutputChannels > 0 {
		snippet.Audio["output_device"] = sel.Device.ID
	}

	out, err := yaml.Marshal(snippet)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}

// render runs a WAV file through the looper offline.
func render(ctx context.Context, cfg *config.Config, args cmd.RenderArgs) error {
	script := &control.Script{Initial: audio.InitialParams(cfg)}
	if args.Script != "" {
		var err error
		if script, err = control.LoadScript(args.Script); err != nil {
			return err
		}
	}

	in, err := os.Open(args.Input)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer in.Close()

	out, err := os.Create(args.Output)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	defer out.Close()

	res, err := audio.Render(in, out, script, audio.RenderOptions{
		MaxSeconds: cfg.Looper.MaxSeconds,
		BlockSize:  cfg.Audio.FramesPerBuffer,
		BitDepth:   args.BitDepth,
		Tail:       args.Tail,
	})
	if err != nil {
		return err
	}

	applog.Infof("Rendered %s to %s (%s, %d Hz, %d bit, final state %s, peak %.1f dBFS)",
		args.Input, args.Output, res.Duration(), res.SampleRate, res.BitDepth,
		res.Final.State, res.Level.PeakDBFS())

	if !args.Play {
		return nil
	}
	if err := audio.Audition(ctx, res.Samples, res.SampleRate); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
