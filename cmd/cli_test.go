// SPDX-License-Identifier: MIT
package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"looper/internal/config"

	"github.com/stretchr/testify/require"
)

func TestParseArgs(t *testing.T) {
	t.Chdir(t.TempDir())

	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, o *Options)
	}{
		{
			name: "defaults",
			args: nil,
			check: func(t *testing.T, o *Options) {
				require.Equal(t, CommandRun, o.Command())
				require.Equal(t, config.NewConfig().Audio, o.Config.Audio)
				require.False(t, o.Config.Headless)
			},
		},
		{
			name: "audio and looper flags",
			args: []string{"--headless", "-s", "44100", "-b", "256", "-i", "2", "--max-seconds", "4", "-v"},
			check: func(t *testing.T, o *Options) {
				require.True(t, o.Config.Headless)
				require.True(t, o.Verbose)
				require.Equal(t, 44100.0, o.Config.Audio.SampleRate)
				require.Equal(t, 256, o.Config.Audio.FramesPerBuffer)
				require.Equal(t, 2, o.Config.Audio.InputDevice)
				require.Equal(t, config.DefaultDeviceID, o.Config.Audio.OutputDevice)
				require.Equal(t, 4.0, o.Config.Looper.MaxSeconds)
			},
		},
		{
			name: "transport flags",
			args: []string{"--ws", "--ws-addr", "127.0.0.1:9000", "--udp", "--log-level", "debug"},
			check: func(t *testing.T, o *Options) {
				require.True(t, o.Config.Transport.WebSocketEnabled)
				require.Equal(t, "127.0.0.1:9000", o.Config.Transport.WebSocketAddr)
				require.True(t, o.Config.Transport.UDPEnabled)
				require.Equal(t, config.DefaultUDPTargetAddress, o.Config.Transport.UDPTargetAddress)
				require.Equal(t, "debug", o.Config.LogLevel)
			},
		},
		{
			name: "list",
			args: []string{"list", "--pick"},
			check: func(t *testing.T, o *Options) {
				require.Equal(t, CommandList, o.Command())
				require.True(t, o.Pick)
			},
		},
		{
			name: "render",
			args: []string{"render", "in.wav", "out.wav", "--script", "s.yaml", "--tail", "2s", "--bit-depth", "24", "--play", "-m", "3"},
			check: func(t *testing.T, o *Options) {
				require.Equal(t, CommandRender, o.Command())
				require.Equal(t, RenderArgs{
					Input: "in.wav", Output: "out.wav", Script: "s.yaml",
					Play: true, Tail: 2 * time.Second, BitDepth: 24,
				}, o.Render)
				require.Equal(t, 3.0, o.Config.Looper.MaxSeconds)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := ParseArgs(tt.args)
			require.NoError(t, err)
			require.NotNil(t, o)
			tt.check(t, o)
		})
	}
}

func TestParseArgsErrors(t *testing.T) {
	t.Chdir(t.TempDir())

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"render needs two files", []string{"render", "in.wav"}, "accepts 2 arg(s)"},
		{"bad bit depth", []string{"render", "a.wav", "b.wav", "--bit-depth", "12"}, "must be 16, 24 or 32"},
		{"negative tail", []string{"render", "a.wav", "b.wav", "--tail", "-1s"}, "must not be negative"},
		{"invalid config", []string{"--frames-per-buffer", "500"}, "try 512"},
		{"missing config", []string{"--config", "nope.yaml"}, "failed to read config file"},
		{"unknown flag", []string{"--bogus"}, "unknown flag"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseArgs(tt.args)
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestParseArgsConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "looper.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
audio:
  sample_rate: 96000
looper:
  max_seconds: 2
  division: 0.5
`), 0o644))

	// Found through the default search path; flags still win.
	o, err := ParseArgs([]string{"--max-seconds", "6"})
	require.NoError(t, err)
	require.Equal(t, 96000.0, o.Config.Audio.SampleRate)
	require.Equal(t, 6.0, o.Config.Looper.MaxSeconds)
	require.Equal(t, 0.5, o.Config.Looper.Division)
}

func TestParseArgsFlagsFixInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("LOOPER_MAX_SECONDS", "0")

	path := filepath.Join(dir, "looper.yaml")
	require.NoError(t, os.WriteFile(path, []byte("audio:\n  frames_per_buffer: 500\n"), 0o644))

	_, err := ParseArgs(nil)
	require.ErrorContains(t, err, "max_seconds")

	o, err := ParseArgs([]string{"--max-seconds", "4", "-b", "512"})
	require.NoError(t, err)
	require.Equal(t, 4.0, o.Config.Looper.MaxSeconds)
	require.Equal(t, 512, o.Config.Audio.FramesPerBuffer)
}

func TestParseArgsHelpAndVersion(t *testing.T) {
	t.Chdir(t.TempDir())

	for _, args := range [][]string{{"--help"}, {"--version"}} {
		o, err := ParseArgs(args)
		require.NoError(t, err)
		require.Nil(t, o)
	}
}
