// SPDX-License-Identifier: MIT
package cmd

import (
	"errors"
	"fmt"
	"time"

	"looper/internal/config"
	"looper/pkg/build"

	"github.com/spf13/cobra"
)

// One-off commands selected on the command line.
const (
	CommandRun    = ""
	CommandList   = "list"
	CommandRender = "render"
)

// RenderArgs holds the arguments of the render command.
type RenderArgs struct {
	Input    string
	Output   string
	Script   string
	Play     bool
	Tail     time.Duration
	BitDepth int
}

// Options is the parsed command line: the effective configuration plus the
// command to run.
type Options struct {
	Config     *config.Config
	ConfigPath string
	Verbose    bool
	Pick       bool // interactive device picker for list
	Render     RenderArgs
}

// Command returns the selected one-off command, or CommandRun.
func (o *Options) Command() string {
	return o.Config.Command
}

// ParseArgs parses args (without the program name), loads the configuration
// file and applies the flags that were set on top of it. It returns nil
// options when only help or version output was requested.
func ParseArgs(args []string) (*Options, error) {
	buildInfo := build.Get()
	opts := &Options{}
	flags := config.NewConfig()

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(opts.ConfigPath)
			if err != nil {
				return err
			}
			applyFlags(cmd, cfg, flags)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			opts.Config = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Config.Command = CommandRun
			return nil
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// List command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Config.Command = CommandList
			return nil
		},
	}
	listCmd.Flags().BoolVarP(&opts.Pick, "pick", "p", false,
		"Choose a device interactively and print the matching config")
	rootCmd.AddCommand(listCmd)

	// Render command
	renderCmd := &cobra.Command{
		Use:   "render <in.wav> <out.wav>",
		Short: "Render a WAV file through the looper with a control script",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Render.Input, opts.Render.Output = args[0], args[1]
			if opts.Render.Tail < 0 {
				return errors.New("--tail must not be negative")
			}
			switch opts.Render.BitDepth {
			case 0, 16, 24, 32:
			default:
				return fmt.Errorf("--bit-depth %d must be 16, 24 or 32", opts.Render.BitDepth)
			}
			opts.Config.Command = CommandRender
			return nil
		},
	}
	renderCmd.Flags().StringVar(&opts.Render.Script, "script", "",
		"YAML control script (initial params and timed events)")
	renderCmd.Flags().BoolVar(&opts.Render.Play, "play", false,
		"Play the rendered loop after writing it")
	renderCmd.Flags().DurationVar(&opts.Render.Tail, "tail", 0,
		"Silence appended to the input so the loop keeps playing")
	renderCmd.Flags().IntVar(&opts.Render.BitDepth, "bit-depth", 0,
		"Output bit depth (default: same as input)")
	rootCmd.AddCommand(renderCmd)

	// Configuration
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.ConfigPath, "config", "",
		"Path to a YAML config file (default: looper.yaml or config.yaml if present)")
	pf.BoolVar(&flags.Headless, "headless", false,
		"Run without the terminal control surface until interrupted")

	// Audio Device Configuration
	pf.IntVarP(&flags.Audio.InputDevice, "input-device", "i", config.DefaultDeviceID,
		"Input device ID. Use 'list' command to see available devices.")
	pf.IntVarP(&flags.Audio.OutputDevice, "output-device", "o", config.DefaultDeviceID,
		"Output device ID. Use 'list' command to see available devices.")
	pf.Float64VarP(&flags.Audio.SampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	pf.IntVarP(&flags.Audio.FramesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per buffer (affects latency and control rate)")
	pf.BoolVarP(&flags.Audio.LowLatency, "low-latency", "l", config.DefaultLowLatency,
		"Use low latency mode for real-time processing")

	// Looper Configuration
	pf.Float64VarP(&flags.Looper.MaxSeconds, "max-seconds", "m", config.DefaultMaxSeconds,
		"Loop memory in seconds")

	// Recording Configuration
	pf.BoolVarP(&flags.Recording.Enabled, "record", "r", config.DefaultRecordingEnabled,
		"Record the looper output to WAV")
	pf.StringVar(&flags.Recording.File, "record-file", "",
		"Recording file name. Default is <output_dir>/loop-YYYYMMDD-HHMMSS.wav")

	// Transport Configuration
	pf.BoolVar(&flags.Transport.WebSocketEnabled, "ws", false,
		"Serve status and accept control over WebSocket")
	pf.StringVar(&flags.Transport.WebSocketAddr, "ws-addr", config.DefaultWebSocketAddr,
		"WebSocket listen address")
	pf.BoolVar(&flags.Transport.UDPEnabled, "udp", false,
		"Send binary status packets over UDP")
	pf.StringVar(&flags.Transport.UDPTargetAddress, "udp-addr", config.DefaultUDPTargetAddress,
		"UDP status target address")

	// Debug Configuration
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false,
		"Show verbose output")
	pf.StringVar(&flags.LogLevel, "log-level", config.DefaultLogLevel,
		"Log level (debug, info, warn, error)")

	// Execute the CLI
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	if opts.Config == nil {
		// --help or --version
		return nil, nil
	}

	return opts, nil
}

// applyFlags copies every flag the user set from flags into cfg.
func applyFlags(cmd *cobra.Command, cfg, flags *config.Config) {
	set := cmd.Flags().Changed

	overrides := []struct {
		name  string
		apply func()
	}{
		{"headless", func() { cfg.Headless = flags.Headless }},
		{"input-device", func() { cfg.Audio.InputDevice = flags.Audio.InputDevice }},
		{"output-device", func() { cfg.Audio.OutputDevice = flags.Audio.OutputDevice }},
		{"sample-rate", func() { cfg.Audio.SampleRate = flags.Audio.SampleRate }},
		{"frames-per-buffer", func() { cfg.Audio.FramesPerBuffer = flags.Audio.FramesPerBuffer }},
		{"low-latency", func() { cfg.Audio.LowLatency = flags.Audio.LowLatency }},
		{"max-seconds", func() { cfg.Looper.MaxSeconds = flags.Looper.MaxSeconds }},
		{"record", func() { cfg.Recording.Enabled = flags.Recording.Enabled }},
		{"record-file", func() { cfg.Recording.File = flags.Recording.File }},
		{"ws", func() { cfg.Transport.WebSocketEnabled = flags.Transport.WebSocketEnabled }},
		{"ws-addr", func() { cfg.Transport.WebSocketAddr = flags.Transport.WebSocketAddr }},
		{"udp", func() { cfg.Transport.UDPEnabled = flags.Transport.UDPEnabled }},
		{"udp-addr", func() { cfg.Transport.UDPTargetAddress = flags.Transport.UDPTargetAddress }},
		{"log-level", func() { cfg.LogLevel = flags.LogLevel }},
	}
	for _, o := range overrides {
		if set(o.name) {
			o.apply()
		}
	}
}
