// SPDX-License-Identifier: MIT
package tui

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"looper/internal/audio"
	"looper/internal/control"
	"looper/internal/looper"
	"looper/internal/transport"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

type fixedSource struct {
	status transport.Status
}

func (f *fixedSource) Status() transport.Status { return f.status }

type fakeRecorder struct {
	recording bool
	err       error
	starts    int
}

func (r *fakeRecorder) StartRecording(string) error {
	if r.err != nil {
		return r.err
	}
	r.starts++
	r.recording = true
	return nil
}

func (r *fakeRecorder) StopRecording() error {
	r.recording = false
	return nil
}

func (r *fakeRecorder) Recording() bool { return r.recording }

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m tea.Model, msgs ...tea.Msg) tea.Model {
	t.Helper()
	for _, msg := range msgs {
		m, _ = m.Update(msg)
	}
	return m
}

func TestLooperModelTrigger(t *testing.T) {
	store := control.NewStore(control.Params{})
	m := NewLooperModel(store, nil, nil)

	press(t, m, tea.KeyMsg{Type: tea.KeySpace})
	require.True(t, store.Load().Trigger)
	press(t, m, tea.KeyMsg{Type: tea.KeySpace})
	require.False(t, store.Load().Trigger)
}

func TestLooperModelTimeManipulation(t *testing.T) {
	store := control.NewStore(control.Params{})
	var m tea.Model = NewLooperModel(store, nil, nil)

	want := []looper.TimeManipulation{looper.Reverse, looper.HalfSpeed, looper.DoubleSpeed, looper.DoubleSpeed}
	for _, mode := range want {
		m = press(t, m, tea.KeyMsg{Type: tea.KeyRight})
		require.Equal(t, mode, looper.TimeManipulationFor(store.Load().TimeManipulation))
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyLeft}, tea.KeyMsg{Type: tea.KeyLeft}, tea.KeyMsg{Type: tea.KeyLeft}, tea.KeyMsg{Type: tea.KeyLeft})
	require.Equal(t, looper.Normal, looper.TimeManipulationFor(store.Load().TimeManipulation))
	_ = m
}

func TestLooperModelDivision(t *testing.T) {
	store := control.NewStore(control.Params{})
	var m tea.Model = NewLooperModel(store, nil, nil)

	for _, want := range []int{2, 4, 8, 16, 32, 64, 128, 128} {
		m = press(t, m, tea.KeyMsg{Type: tea.KeyUp})
		require.Equal(t, want, looper.DivisorFor(store.Load().Division))
	}
	for _, want := range []int{64, 32} {
		m = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
		require.Equal(t, want, looper.DivisorFor(store.Load().Division))
	}
}

func TestLooperModelSegmentSelect(t *testing.T) {
	store := control.NewStore(control.Params{})
	src := &fixedSource{status: transport.Status{Looper: looper.Status{Segments: 4}}}
	var m tea.Model = NewLooperModel(store, src, nil)

	segment := func() int {
		return min(int(store.Load().SegmentSelect*4), 3)
	}

	m = press(t, m, runes("]"))
	require.Equal(t, 1, segment())
	m = press(t, m, runes("]"), runes("]"), runes("]"))
	require.Equal(t, 0, segment(), "selection wraps past the last segment")
	m = press(t, m, runes("["))
	require.Equal(t, 3, segment(), "selection wraps before the first segment")
	_ = m
}

func TestLooperModelTickRefreshesStatus(t *testing.T) {
	src := &fixedSource{}
	m := NewLooperModel(control.NewStore(control.Params{}), src, nil)
	require.NotNil(t, m.Init())

	src.status.Looper.State = looper.Playing
	src.status.Looper.Segments = 8
	next, cmd := m.Update(tickMsg(time.Now()))
	require.NotNil(t, cmd, "tick reschedules itself")

	view := next.(LooperModel).View()
	require.Contains(t, view, "PLAYING")
	require.Contains(t, view, "8 × 0 samples")
}

func TestLooperModelRecordAndQuit(t *testing.T) {
	rec := &fakeRecorder{}
	var m tea.Model = NewLooperModel(control.NewStore(control.Params{}), nil, rec)

	m = press(t, m, runes("r"))
	require.True(t, rec.Recording())
	require.Contains(t, m.View(), "REC")
	m = press(t, m, runes("r"))
	require.False(t, rec.Recording())

	rec.err = errors.New("disk full")
	m = press(t, m, runes("r"))
	require.Contains(t, m.View(), "disk full")

	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	require.Equal(t, tea.Quit(), cmd())
}

func TestProgramErr(t *testing.T) {
	require.NoError(t, programErr(nil))
	require.NoError(t, programErr(tea.ErrInterrupted), "an interrupt is a normal quit")
	require.NoError(t, programErr(fmt.Errorf("run: %w", tea.ErrInterrupted)))

	err := errors.New("tty gone")
	require.ErrorIs(t, programErr(err), err)
}

func TestStepHelpers(t *testing.T) {
	require.InDelta(t, 0.125, stepMode(0.9, -5), 1e-9)
	require.InDelta(t, 0.875, stepMode(0, 5), 1e-9)
	require.InDelta(t, 0.0625, stepDivision(0, -1), 1e-9)
	require.InDelta(t, 0.5, stepSegment(0, 1, 1), 1e-9, "a single segment stays selected")
	require.InDelta(t, 0.125, stepSegment(0.99, 4, 1), 1e-9)
}

func TestSegmentMap(t *testing.T) {
	require.Equal(t, 4, strings.Count(segmentMap(4, 2), "░")+strings.Count(segmentMap(4, 2), "█"))
	require.Equal(t, segmentWidth, strings.Count(segmentMap(128, 127), "░")+1)
}

var testDevices = []audio.Device{
	{ID: 0, Name: "Mic", MaxInputChannels: 2, DefaultSampleRate: 48000},
	{ID: 1, Name: "Speakers", MaxOutputChannels: 2, DefaultSampleRate: 44100},
}

func TestDeviceListModelSelect(t *testing.T) {
	var m tea.Model = NewDeviceListModel(testDevices)
	require.Nil(t, m.Init(), "supplied devices are not fetched again")
	require.Equal(t, "Initializing...", m.View())

	m = press(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	require.Contains(t, m.View(), "Audio Device List")
	require.Contains(t, m.View(), "[1] Speakers (Output)")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyEnter})
	require.Contains(t, m.View(), "Configure Device: Speakers")

	// 44100 is preselected; move to 48000 and confirm.
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	require.Nil(t, m.(DeviceListModel).Selection())
	m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	sel := m.(DeviceListModel).Selection()
	require.NotNil(t, sel)
	require.Equal(t, "Speakers", sel.Device.Name)
	require.Equal(t, 48000.0, sel.SampleRate)
}

func TestDeviceListModelBackAndErrors(t *testing.T) {
	var m tea.Model = NewDeviceListModel(testDevices)
	m = press(t, m, tea.WindowSizeMsg{Width: 80, Height: 24}, tea.KeyMsg{Type: tea.KeyEnter}, tea.KeyMsg{Type: tea.KeyEsc})
	require.Contains(t, m.View(), "Audio Device List")

	m = press(t, m, errMsg{errors.New("no host")})
	require.Contains(t, m.View(), "no host")

	empty := press(t, NewDeviceListModel([]audio.Device{}), tea.WindowSizeMsg{Width: 80, Height: 24})
	require.Contains(t, empty.View(), "No audio devices found.")
	empty = press(t, empty, tea.KeyMsg{Type: tea.KeyEnter})
	require.Contains(t, empty.View(), "Audio Device List", "enter with no devices stays on the list")
}
