// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"looper/internal/analysis"
	applog "looper/internal/log"
	"looper/pkg/bitint"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths are tried in order when LoadConfig is given no path.
var DefaultSearchPaths = []string{
	"looper.yaml",
	"config.yaml",
}

// LoadConfig loads configuration from a YAML file specified by path. If path
// is empty, it searches DefaultSearchPaths. If no file is found, it uses the
// built-in defaults. Environment overrides are applied last. The result is
// not validated; callers layer command-line flags on top and then call
// Validate.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		for _, candidate := range DefaultSearchPaths {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		applog.Debugf("configuration: Loaded %s", path)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Validate checks the configuration against the hardware and processing
// limits. All problems are reported together.
func (c *Config) Validate() error {
	var errs []error

	if _, ok := applog.ParseLevel(c.LogLevel); !ok {
		errs = append(errs, fmt.Errorf("log_level %q is not a known level", c.LogLevel))
	}

	// Audio Validation
	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		errs = append(errs, fmt.Errorf("audio.sample_rate %.0f outside [%d, %d]",
			c.Audio.SampleRate, MinSampleRate, MaxSampleRate))
	}
	if !bitint.IsPowerOfTwo(c.Audio.FramesPerBuffer) || c.Audio.FramesPerBuffer > MaxBufferFrames {
		errs = append(errs, fmt.Errorf("audio.frames_per_buffer %d must be a power of two <= %d (try %d)",
			c.Audio.FramesPerBuffer, MaxBufferFrames,
			min(bitint.NearestPowerOfTwo(c.Audio.FramesPerBuffer), MaxBufferFrames)))
	}
	if c.Audio.InputDevice < MinDeviceID || c.Audio.OutputDevice < MinDeviceID {
		errs = append(errs, fmt.Errorf("audio device ids must be >= %d", MinDeviceID))
	}
	if c.Audio.InputChannels < 1 || c.Audio.OutputChannels < 1 {
		errs = append(errs, errors.New("audio.input_channels and audio.output_channels must be >= 1"))
	}

	// Looper Validation
	if c.Looper.MaxSeconds <= 0 || c.Looper.MaxSeconds > MaxSeconds {
		errs = append(errs, fmt.Errorf("looper.max_seconds %.2f outside (0, %d]", c.Looper.MaxSeconds, MaxSeconds))
	}

	// Analysis Validation
	if !bitint.IsPowerOfTwo(c.Analysis.FFTSize) || c.Analysis.FFTSize < 64 {
		errs = append(errs, fmt.Errorf("analysis.fft_size %d must be a power of two >= 64", c.Analysis.FFTSize))
	}
	if _, err := analysis.ParseWindowFunc(c.Analysis.Window); err != nil {
		errs = append(errs, fmt.Errorf("analysis.window: %w", err))
	}

	// Recording Validation
	switch c.Recording.BitDepth {
	case 16, 24, 32:
	default:
		errs = append(errs, fmt.Errorf("recording.bit_depth %d must be 16, 24 or 32", c.Recording.BitDepth))
	}

	// Transport Validation
	if c.Transport.WebSocketEnabled && c.Transport.WebSocketAddr == "" {
		errs = append(errs, errors.New("transport.websocket_addr must be set when the WebSocket server is enabled"))
	}
	if c.Transport.UDPEnabled {
		if !strings.Contains(c.Transport.UDPTargetAddress, ":") {
			errs = append(errs, fmt.Errorf("transport.udp_target_address '%s' appears invalid (missing port?)",
				c.Transport.UDPTargetAddress))
		}
	}
	if (c.Transport.UDPEnabled || c.Transport.WebSocketEnabled) && c.Transport.StatusInterval <= 0 {
		errs = append(errs, errors.New("transport.status_interval must be positive"))
	}

	return errors.Join(errs...)
}

// applyEnvOverrides applies LOOPER_* environment variables on top of the
// loaded values. Unparseable values are ignored with a warning.
func (c *Config) applyEnvOverrides() {
	// LOOPER_LOG_LEVEL
	if val, ok := os.LookupEnv("LOOPER_LOG_LEVEL"); ok {
		c.LogLevel = val
		applog.Infof("configuration: Overriding log_level from env: %s", val)
	}

	// LOOPER_SAMPLE_RATE
	if val, ok := os.LookupEnv("LOOPER_SAMPLE_RATE"); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			c.Audio.SampleRate = f
			applog.Infof("configuration: Overriding audio.sample_rate from env: %.0f", f)
		} else {
			applog.Warnf("configuration: Ignoring LOOPER_SAMPLE_RATE=%q: %v", val, err)
		}
	}

	// LOOPER_MAX_SECONDS
	if val, ok := os.LookupEnv("LOOPER_MAX_SECONDS"); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			c.Looper.MaxSeconds = f
			applog.Infof("configuration: Overriding looper.max_seconds from env: %.2f", f)
		} else {
			applog.Warnf("configuration: Ignoring LOOPER_MAX_SECONDS=%q: %v", val, err)
		}
	}

	// LOOPER_WS_{...}
	if val, ok := os.LookupEnv("LOOPER_WS_ENABLED"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Transport.WebSocketEnabled = b
			applog.Infof("configuration: Overriding transport.websocket_enabled from env: %v", b)
		}
	}
	if val, ok := os.LookupEnv("LOOPER_WS_ADDR"); ok {
		c.Transport.WebSocketAddr = val
		applog.Infof("configuration: Overriding transport.websocket_addr from env: %s", val)
	}

	// LOOPER_UDP_{...}
	if val, ok := os.LookupEnv("LOOPER_UDP_ENABLED"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Transport.UDPEnabled = b
			applog.Infof("configuration: Overriding transport.udp_enabled from env: %v", b)
		}
	}
	if val, ok := os.LookupEnv("LOOPER_UDP_TARGET_ADDRESS"); ok {
		c.Transport.UDPTargetAddress = val
		applog.Infof("configuration: Overriding transport.udp_target_address from env: %s", val)
	}

	// LOOPER_STATUS_INTERVAL
	if val, ok := os.LookupEnv("LOOPER_STATUS_INTERVAL"); ok {
		if d, err := time.ParseDuration(val); err == nil {
			c.Transport.StatusInterval = d
			applog.Infof("configuration: Overriding transport.status_interval from env: %s", d)
		}
	}
}
