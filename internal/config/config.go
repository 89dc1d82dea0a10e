// SPDX-License-Identifier: MIT
package config

import "time"

// Core configuration constants that define the boundaries and defaults
// for the looper host.
const (
	// Default values for the audio host configuration
	DefaultInputChannels   = 1           // Mono input, only channel 0 is looped
	DefaultOutputChannels  = 2           // Loop output is duplicated to L/R
	DefaultDeviceID        = MinDeviceID // Default to system default device
	DefaultFramesPerBuffer = 512         // Balanced latency/performance
	DefaultLowLatency      = false       // Standard latency mode
	DefaultSampleRate      = 48000       // Sample rate in Hz
	DefaultLogLevel        = "info"      // Quiet operation

	// Default values for the looper
	DefaultMaxSeconds = 8.0 // Loop memory, sample_rate × seconds

	// Default values for the output analysis
	DefaultFFTSize = 2048   // Spectrum frame size (power of 2)
	DefaultWindow  = "hann" // Spectrum window function

	// Default values for recording the loop output
	DefaultRecordingEnabled = false
	DefaultRecordingDir     = "./recordings"
	DefaultBitDepth         = 24

	// Default values for the network surfaces
	DefaultWebSocketAddr    = "127.0.0.1:8080"
	DefaultUDPTargetAddress = "127.0.0.1:9090"
	DefaultStatusInterval   = 33 * time.Millisecond // ~30Hz

	// Hardware and processing limits
	MinDeviceID     = -1     // -1 represents system default device
	MinSampleRate   = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate   = 192000 // Maximum supported sample rate (Hz)
	MaxBufferFrames = 8192   // Maximum frames per buffer (power of 2)
	MaxSeconds      = 600    // Upper bound for loop memory
)

// Config represents the application configuration, loaded from YAML and
// then overridden by environment variables and command line flags.
type Config struct {
	LogLevel  string          `yaml:"log_level"`         // Logging level ("debug", "info", "warn", "error").
	Command   string          `yaml:"command,omitempty"` // One-off command to execute instead of running the host.
	Headless  bool            `yaml:"headless"`          // Run without the terminal control surface.
	Audio     AudioConfig     `yaml:"audio"`             // Audio device settings.
	Looper    LooperConfig    `yaml:"looper"`            // Looper engine settings.
	Analysis  AnalysisConfig  `yaml:"analysis"`          // Output level and spectrum settings.
	Recording RecordingConfig `yaml:"recording"`         // Loop output recording settings.
	Transport TransportConfig `yaml:"transport"`         // Network control and status settings.
}

// AudioConfig holds settings related to audio input/output.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index for input (-1 for default).
	OutputDevice    int     `yaml:"output_device"`     // PortAudio device index for output (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`       // Sample rate in Hz (e.g., 44100, 48000).
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Frames per callback; controls are applied once per buffer.
	LowLatency      bool    `yaml:"low_latency"`       // Request low latency settings from PortAudio.
	InputChannels   int     `yaml:"input_channels"`    // Channels captured; the looper reads channel 0.
	OutputChannels  int     `yaml:"output_channels"`   // Channels the mono loop output is copied to.
}

// LooperConfig holds the loop memory size and the initial control values.
type LooperConfig struct {
	MaxSeconds       float64 `yaml:"max_seconds"`       // Loop memory in seconds.
	Division         float64 `yaml:"division"`          // Initial segment division control [0, 1].
	SegmentSelect    float64 `yaml:"segment"`           // Initial segment select control [0, 1].
	TimeManipulation float64 `yaml:"time_manipulation"` // Initial time manipulation control [0, 1].
}

// AnalysisConfig holds settings for the output spectrum.
type AnalysisConfig struct {
	FFTSize int    `yaml:"fft_size"` // Spectrum frame size, power of 2.
	Window  string `yaml:"window"`   // Window function name (e.g., "hann", "blackman").
}

// RecordingConfig holds settings for capturing the loop output to WAV.
type RecordingConfig struct {
	Enabled   bool   `yaml:"enabled"`    // Record the looper output.
	OutputDir string `yaml:"output_dir"` // Directory for recorded files.
	File      string `yaml:"file"`       // Explicit output file, overrides OutputDir naming.
	BitDepth  int    `yaml:"bit_depth"`  // 16, 24 or 32.
}

// TransportConfig holds settings for the WebSocket and UDP surfaces.
type TransportConfig struct {
	WebSocketEnabled bool          `yaml:"websocket_enabled"`  // Serve /ws for remote control and status.
	WebSocketAddr    string        `yaml:"websocket_addr"`     // Listen address for the WebSocket server.
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Send binary status packets over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target for UDP packets (e.g., "127.0.0.1:9090").
	StatusInterval   time.Duration `yaml:"status_interval"`    // Interval between status updates.
}

// NewConfig creates a Config populated with the built-in defaults.
func NewConfig() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			OutputDevice:    DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      DefaultLowLatency,
			InputChannels:   DefaultInputChannels,
			OutputChannels:  DefaultOutputChannels,
		},
		Looper: LooperConfig{
			MaxSeconds: DefaultMaxSeconds,
		},
		Analysis: AnalysisConfig{
			FFTSize: DefaultFFTSize,
			Window:  DefaultWindow,
		},
		Recording: RecordingConfig{
			Enabled:   DefaultRecordingEnabled,
			OutputDir: DefaultRecordingDir,
			BitDepth:  DefaultBitDepth,
		},
		Transport: TransportConfig{
			WebSocketAddr:    DefaultWebSocketAddr,
			UDPTargetAddress: DefaultUDPTargetAddress,
			StatusInterval:   DefaultStatusInterval,
		},
	}
}

// ArenaSamples returns the loop memory size in samples.
func (c *Config) ArenaSamples() int {
	return int(c.Audio.SampleRate * c.Looper.MaxSeconds)
}
