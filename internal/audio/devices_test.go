// SPDX-License-Identifier: MIT
package audio

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/gordonklaus/portaudio"
)

func setupPortAudio(t *testing.T) {
	t.Helper()
	if err := Initialize(); err != nil {
		t.Skipf("PortAudio unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := Terminate(); err != nil {
			t.Fatalf("Failed to terminate PortAudio: %v", err)
		}
	})
}

// fakeDevices installs a fixed device table for the duration of the test.
func fakeDevices(t *testing.T, infos ...*portaudio.DeviceInfo) {
	t.Helper()
	orig := paDevicesFunc
	t.Cleanup(func() { paDevicesFunc = orig })
	paDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return infos, nil
	}
}

var (
	micInfo = &portaudio.DeviceInfo{
		Name:                    "Mic",
		MaxInputChannels:        2,
		DefaultSampleRate:       48000,
		DefaultLowInputLatency:  3 * time.Millisecond,
		DefaultHighInputLatency: 12 * time.Millisecond,
		HostApi:                 &portaudio.HostApiInfo{Name: "Core Audio"},
	}
	speakerInfo = &portaudio.DeviceInfo{
		Name:              "Speakers",
		MaxOutputChannels: 2,
		DefaultSampleRate: 44100,
	}
)

func TestHostDevices(t *testing.T) {
	setupPortAudio(t)

	devices, err := GetDevices()
	if err != nil {
		t.Fatalf("GetDevices error: %v", err)
	}
	if len(devices) == 0 {
		t.Skip("No audio devices found on system")
	}
	for i, d := range devices {
		if d.ID != i {
			t.Errorf("Device ID mismatch: got %d, want %d", d.ID, i)
		}
		if d.Name == "" {
			t.Errorf("Device %d has empty name", i)
		}
		if d.DefaultSampleRate <= 0 {
			t.Errorf("Device %d has invalid sample rate: %f", i, d.DefaultSampleRate)
		}
	}
}

func TestGetDevices(t *testing.T) {
	fakeDevices(t, micInfo, speakerInfo)

	devices, err := GetDevices()
	if err != nil {
		t.Fatalf("GetDevices error: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("got %d devices, want 2", len(devices))
	}

	mic := devices[0]
	if mic.ID != 0 || mic.HostAPI != "Core Audio" || mic.Kind() != "Input" {
		t.Errorf("unexpected mic: %+v", mic)
	}
	if mic.LowLatencyMs != 3 || mic.HighLatencyMs != 12 {
		t.Errorf("latency = %.2f/%.2f, want 3/12", mic.LowLatencyMs, mic.HighLatencyMs)
	}
	if devices[1].ID != 1 || devices[1].Kind() != "Output" || devices[1].HostAPI != "" {
		t.Errorf("unexpected speaker: %+v", devices[1])
	}
}

func TestGetDevices_paDevicesError(t *testing.T) {
	orig := paDevicesFunc
	defer func() { paDevicesFunc = orig }()
	paDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return nil, fmt.Errorf("mock error")
	}

	_, err := GetDevices()
	if err == nil || !strings.Contains(err.Error(), "mock error") {
		t.Errorf("expected mock error, got %v", err)
	}
}

func TestDeviceKind(t *testing.T) {
	tests := []struct {
		in, out int
		want    string
	}{
		{2, 2, "Input/Output"},
		{1, 0, "Input"},
		{0, 8, "Output"},
		{0, 0, "Unavailable"},
	}
	for _, tt := range tests {
		d := Device{MaxInputChannels: tt.in, MaxOutputChannels: tt.out}
		if got := d.Kind(); got != tt.want {
			t.Errorf("Kind(%d in, %d out) = %q, want %q", tt.in, tt.out, got, tt.want)
		}
	}
}

func TestInputDevice(t *testing.T) {
	fakeDevices(t, micInfo, speakerInfo)

	origDefault := paLibDefaultInputDeviceFunc
	defer func() { paLibDefaultInputDeviceFunc = origDefault }()
	paLibDefaultInputDeviceFunc = func() (*portaudio.DeviceInfo, error) { return micInfo, nil }

	if dev, err := InputDevice(-1); err != nil || dev != micInfo {
		t.Errorf("InputDevice(-1) = %v, %v; want default mic", dev, err)
	}
	if dev, err := InputDevice(0); err != nil || dev != micInfo {
		t.Errorf("InputDevice(0) = %v, %v; want mic", dev, err)
	}

	tests := []struct {
		name   string
		id     int
		substr string
	}{
		{"Negative ID", -2, "invalid device ID"},
		{"Too high ID", 12, "invalid device ID"},
		{"Non-input device", 1, "does not support input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := InputDevice(tt.id)
			if err == nil {
				t.Errorf("Expected error for ID %d", tt.id)
			} else if !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("Error = %q, want substring %q", err.Error(), tt.substr)
			}
		})
	}
}

func TestOutputDevice(t *testing.T) {
	fakeDevices(t, micInfo, speakerInfo)

	if dev, err := OutputDevice(1); err != nil || dev != speakerInfo {
		t.Errorf("OutputDevice(1) = %v, %v; want speakers", dev, err)
	}
	_, err := OutputDevice(0)
	if err == nil || !strings.Contains(err.Error(), "does not support output") {
		t.Errorf("expected output support error, got %v", err)
	}
}

func TestInputDevice_paDevicesError(t *testing.T) {
	orig := paDevicesFunc
	defer func() { paDevicesFunc = orig }()
	paDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return nil, fmt.Errorf("mock error")
	}

	_, err := InputDevice(-1)
	if err == nil || !strings.Contains(err.Error(), "mock error") {
		t.Errorf("expected mock error, got %v", err)
	}
}

func TestInputDevice_paDefaultInputDeviceError(t *testing.T) {
	fakeDevices(t)

	orig := paLibDefaultInputDeviceFunc
	defer func() { paLibDefaultInputDeviceFunc = orig }()
	paLibDefaultInputDeviceFunc = func() (*portaudio.DeviceInfo, error) {
		return nil, fmt.Errorf("mock default input error")
	}

	_, err := InputDevice(-1)
	if err == nil || !strings.Contains(err.Error(), "mock default input error") {
		t.Errorf("expected mock error, got %v", err)
	}
}

func TestOutputDevice_paDefaultOutputDeviceError(t *testing.T) {
	fakeDevices(t)

	orig := paLibDefaultOutputDeviceFunc
	defer func() { paLibDefaultOutputDeviceFunc = orig }()
	paLibDefaultOutputDeviceFunc = func() (*portaudio.DeviceInfo, error) {
		return nil, fmt.Errorf("mock default output error")
	}

	_, err := OutputDevice(-1)
	if err == nil || !strings.Contains(err.Error(), "no default output device") {
		t.Errorf("expected default output error, got %v", err)
	}
}

func TestErrorInitialize(t *testing.T) {
	orig := paLibInitialize
	defer func() { paLibInitialize = orig }()

	paLibInitialize = func() error { return nil }
	if err := Initialize(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	paLibInitialize = func() error { return fmt.Errorf("mock init error") }
	if err := Initialize(); err == nil || !strings.Contains(err.Error(), "mock init error") {
		t.Errorf("expected mock init error, got %v", err)
	}
}

func TestErrorTerminate(t *testing.T) {
	orig := paLibTerminate
	defer func() { paLibTerminate = orig }()

	paLibTerminate = func() error { return nil }
	if err := Terminate(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	paLibTerminate = func() error { return fmt.Errorf("mock term error") }
	if err := Terminate(); err == nil || !strings.Contains(err.Error(), "mock term error") {
		t.Errorf("expected mock term error, got %v", err)
	}
}

func TestNilDevices(t *testing.T) {
	orig := paLibDevicesFunc
	defer func() { paLibDevicesFunc = orig }()
	paLibDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return nil, nil
	}

	devices, err := paDevices()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if devices == nil {
		t.Errorf("expected empty slice, got nil")
	}
	if len(devices) != 0 {
		t.Errorf("expected length 0, got %d", len(devices))
	}
}

func TestPortAudioNotInitialized(t *testing.T) {
	orig := paLibDevicesFunc
	defer func() { paLibDevicesFunc = orig }()
	paLibDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return nil, fmt.Errorf("PortAudio not initialized")
	}

	devices, err := paDevices()
	if err == nil || !strings.Contains(err.Error(), "PortAudio not initialized") {
		t.Errorf("expected 'PortAudio not initialized' error, got %v", err)
	}
	if devices != nil {
		t.Errorf("expected devices to be nil on error, got %v", devices)
	}
}

func TestListDevices(t *testing.T) {
	fakeDevices(t, micInfo, speakerInfo)

	var buf bytes.Buffer
	if err := ListDevices(&buf); err != nil {
		t.Fatalf("ListDevices error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Available Audio Devices", "[0] Mic (Input)", "[1] Speakers (Output)", "48000 Hz", "Core Audio"} {
		if !strings.Contains(out, want) {
			t.Errorf("listing missing %q:\n%s", want, out)
		}
	}

	if got := FormatDevices(nil); !strings.Contains(got, "No audio devices found.") {
		t.Errorf("empty listing = %q", got)
	}
}
