// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"io"
	"strings"

	"looper/internal/config"

	"github.com/charmbracelet/lipgloss"
	"github.com/gordonklaus/portaudio"
)

// PortAudio entry points, replaced in tests.
var (
	paLibInitialize              = portaudio.Initialize
	paLibTerminate               = portaudio.Terminate
	paLibDevicesFunc             = portaudio.Devices
	paLibDefaultInputDeviceFunc  = portaudio.DefaultInputDevice
	paLibDefaultOutputDeviceFunc = portaudio.DefaultOutputDevice
	paDevicesFunc                = paDevices
)

// Device represents an audio device
type Device struct {
	ID                int
	Name              string
	HostAPI           string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
	LowLatencyMs      float64
	HighLatencyMs     float64
}

// Kind describes the directions the device supports.
func (d Device) Kind() string {
	switch {
	case d.MaxInputChannels > 0 && d.MaxOutputChannels > 0:
		return "Input/Output"
	case d.MaxInputChannels > 0:
		return "Input"
	case d.MaxOutputChannels > 0:
		return "Output"
	default:
		return "Unavailable"
	}
}

// Initialize sets up the PortAudio subsystem.
// This must be called before any audio operations and paired with a Terminate() call.
func Initialize() error {
	if err := paLibInitialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return nil
}

// Terminate cleanly shuts down the PortAudio subsystem.
// This should be deferred immediately after Initialize().
func Terminate() error {
	if err := paLibTerminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

// GetDevices returns all available audio devices. PortAudio must be
// initialized.
func GetDevices() ([]Device, error) {
	infos, err := paDevicesFunc()
	if err != nil {
		return nil, err
	}

	devices := make([]Device, len(infos))
	for i, info := range infos {
		devices[i] = Device{
			ID:                i,
			Name:              info.Name,
			MaxInputChannels:  info.MaxInputChannels,
			MaxOutputChannels: info.MaxOutputChannels,
			DefaultSampleRate: info.DefaultSampleRate,
			LowLatencyMs:      info.DefaultLowInputLatency.Seconds() * 1000,
			HighLatencyMs:     info.DefaultHighInputLatency.Seconds() * 1000,
		}
		if info.HostApi != nil {
			devices[i].HostAPI = info.HostApi.Name
		}
	}
	return devices, nil
}

// InputDevice retrieves the audio input device for the given device ID.
// If deviceID is MinDeviceID (-1), returns the system default input device.
func InputDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	return lookupDevice(deviceID, "input", paLibDefaultInputDeviceFunc,
		func(d *portaudio.DeviceInfo) int { return d.MaxInputChannels })
}

// OutputDevice retrieves the audio output device for the given device ID.
// If deviceID is MinDeviceID (-1), returns the system default output device.
func OutputDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	return lookupDevice(deviceID, "output", paLibDefaultOutputDeviceFunc,
		func(d *portaudio.DeviceInfo) int { return d.MaxOutputChannels })
}

func lookupDevice(
	deviceID int,
	direction string,
	defaultDevice func() (*portaudio.DeviceInfo, error),
	channels func(*portaudio.DeviceInfo) int,
) (*portaudio.DeviceInfo, error) {
	devices, err := paDevicesFunc()
	if err != nil {
		return nil, err
	}

	if deviceID == config.MinDeviceID {
		device, err := defaultDevice()
		if err != nil {
			return nil, fmt.Errorf("no default %s device: %w", direction, err)
		}
		return device, nil
	}

	if deviceID < 0 || deviceID >= len(devices) {
		return nil, fmt.Errorf("invalid device ID: %d", deviceID)
	}
	device := devices[deviceID]
	if channels(device) == 0 {
		return nil, fmt.Errorf("device %d (%s) does not support %s", deviceID, device.Name, direction)
	}
	return device, nil
}

var (
	deviceHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#25A065"))
	deviceDimStyle    = lipgloss.NewStyle().Faint(true)
)

// ListDevices writes information about every available audio device to w:
// id, name, direction, channel counts, default sample rate and latency.
func ListDevices(w io.Writer) error {
	devices, err := GetDevices()
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, FormatDevices(devices))
	return err
}

// FormatDevices renders a device listing.
func FormatDevices(devices []Device) string {
	var sb strings.Builder
	sb.WriteString(deviceHeaderStyle.Render("Available Audio Devices"))
	sb.WriteString("\n\n")

	if len(devices) == 0 {
		sb.WriteString("No audio devices found.\n")
		return sb.String()
	}

	for _, d := range devices {
		fmt.Fprintf(&sb, "[%d] %s (%s)\n", d.ID, d.Name, d.Kind())
		details := fmt.Sprintf("    Input channels: %d, Output channels: %d\n", d.MaxInputChannels, d.MaxOutputChannels) +
			fmt.Sprintf("    Default sample rate: %.0f Hz\n", d.DefaultSampleRate) +
			fmt.Sprintf("    Latency: Low=%.2fms, High=%.2fms", d.LowLatencyMs, d.HighLatencyMs)
		if d.HostAPI != "" {
			details += "\n    Host API: " + d.HostAPI
		}
		sb.WriteString(deviceDimStyle.Render(details))
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// paDevices returns all available PortAudio devices, never a nil slice.
func paDevices() ([]*portaudio.DeviceInfo, error) {
	devices, err := paLibDevicesFunc()
	if err != nil {
		return nil, err
	}
	if devices == nil {
		devices = []*portaudio.DeviceInfo{}
	}
	return devices, nil
}
