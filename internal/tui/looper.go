// SPDX-License-Identifier: MIT
package tui

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"strings"
	"time"

	"looper/internal/analysis"
	"looper/internal/control"
	"looper/internal/looper"
	"looper/internal/transport"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	defaultRefresh = 50 * time.Millisecond
	meterWidth     = 32
	segmentWidth   = 64
)

var (
	stateStyles = map[looper.PlaybackState]lipgloss.Style{
		looper.Listening: lipgloss.NewStyle().Foreground(lipgloss.Color("#A0A0A0")).Bold(true),
		looper.Recording: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFDF5")).Background(lipgloss.Color("#C0392B")).Padding(0, 1).Bold(true),
		looper.Playing:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFDF5")).Background(lipgloss.Color("#25A065")).Padding(0, 1).Bold(true),
	}

	labelStyle = lipgloss.NewStyle().Width(10).Foreground(lipgloss.Color("#A0A0A0"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C0392B"))
)

// Recorder is the part of the engine that captures the loop output.
type Recorder interface {
	StartRecording(filename string) error
	StopRecording() error
	Recording() bool
}

type keyMap struct {
	Trigger key.Binding
	Faster  key.Binding
	Slower  key.Binding
	Finer   key.Binding
	Coarser key.Binding
	Next    key.Binding
	Prev    key.Binding
	Record  key.Binding
	Quit    key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Trigger, k.Slower, k.Faster, k.Finer, k.Coarser, k.Prev, k.Next, k.Record, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var defaultKeys = keyMap{
	Trigger: key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "trigger")),
	Slower:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "prev mode")),
	Faster:  key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "next mode")),
	Finer:   key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑", "more segments")),
	Coarser: key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓", "fewer segments")),
	Prev:    key.NewBinding(key.WithKeys("["), key.WithHelp("[", "prev segment")),
	Next:    key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "next segment")),
	Record:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "record")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type tickMsg time.Time

// LooperModel is the terminal control surface. It only writes to the
// control store; the audio goroutine picks changes up on its next block.
type LooperModel struct {
	store    *control.Store
	source   transport.StatusSource
	recorder Recorder
	refresh  time.Duration

	status transport.Status
	keys   keyMap
	help   help.Model
	err    error
	width  int
}

// NewLooperModel creates a control surface writing to store and reading
// status from source. recorder may be nil.
func NewLooperModel(store *control.Store, source transport.StatusSource, recorder Recorder) LooperModel {
	m := LooperModel{
		store:    store,
		source:   source,
		recorder: recorder,
		refresh:  defaultRefresh,
		keys:     defaultKeys,
		help:     help.New(),
	}
	if source != nil {
		m.status = source.Status()
	}
	return m
}

func (m LooperModel) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init starts the status refresh.
func (m LooperModel) Init() tea.Cmd {
	return m.tick()
}

// Update handles key presses and status refreshes.
func (m LooperModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

	case tickMsg:
		if m.source != nil {
			m.status = m.source.Status()
		}
		return m, m.tick()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Trigger):
			m.store.Toggle()
		case key.Matches(msg, m.keys.Faster):
			m.store.Update(func(p *control.Params) { p.TimeManipulation = stepMode(p.TimeManipulation, 1) })
		case key.Matches(msg, m.keys.Slower):
			m.store.Update(func(p *control.Params) { p.TimeManipulation = stepMode(p.TimeManipulation, -1) })
		case key.Matches(msg, m.keys.Finer):
			m.store.Update(func(p *control.Params) { p.Division = stepDivision(p.Division, 1) })
		case key.Matches(msg, m.keys.Coarser):
			m.store.Update(func(p *control.Params) { p.Division = stepDivision(p.Division, -1) })
		case key.Matches(msg, m.keys.Next):
			n := m.status.Looper.Segments
			m.store.Update(func(p *control.Params) { p.SegmentSelect = stepSegment(p.SegmentSelect, n, 1) })
		case key.Matches(msg, m.keys.Prev):
			n := m.status.Looper.Segments
			m.store.Update(func(p *control.Params) { p.SegmentSelect = stepSegment(p.SegmentSelect, n, -1) })
		case key.Matches(msg, m.keys.Record):
			m.err = m.toggleRecording()
		}
		m.status.Params = m.store.Load()
	}

	return m, nil
}

func (m LooperModel) toggleRecording() error {
	if m.recorder == nil {
		return nil
	}
	if m.recorder.Recording() {
		return m.recorder.StopRecording()
	}
	return m.recorder.StartRecording("")
}

// stepMode moves to the centre of the neighbouring time manipulation band.
// Modes are ordered Normal, Reverse, HalfSpeed, DoubleSpeed.
func stepMode(v float64, dir int) float64 {
	idx := int(looper.TimeManipulationFor(v)) + dir
	idx = min(max(idx, 0), len(looper.TimeManipulationThresholds))
	return (float64(idx) + 0.5) * 0.25
}

// stepDivision moves to the centre of the neighbouring divisor band.
func stepDivision(v float64, dir int) float64 {
	idx := bits.Len(uint(looper.DivisorFor(v))) - 1 + dir
	idx = min(max(idx, 0), len(looper.DivisionThresholds))
	return (float64(idx) + 0.5) * 0.125
}

// stepSegment selects the next or previous of n segments, wrapping.
func stepSegment(v float64, n, dir int) float64 {
	n = max(n, 1)
	idx := min(int(math.Floor(v*float64(n))), n-1)
	idx = ((idx+dir)%n + n) % n
	return (float64(idx) + 0.5) / float64(n)
}

// View renders the control surface.
func (m LooperModel) View() string {
	st := m.status.Looper
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Looper"))
	sb.WriteString("  ")
	sb.WriteString(stateStyles[st.State].Render(st.State.String()))
	if m.recorder != nil && m.recorder.Recording() {
		sb.WriteString("  ")
		sb.WriteString(errorStyle.Render("● REC"))
	}
	sb.WriteString("\n\n")

	row := func(label, value string) {
		sb.WriteString(labelStyle.Render(label))
		sb.WriteString(value)
		sb.WriteString("\n")
	}

	row("Mode", st.Mode.String())
	row("Position", fmt.Sprintf("%.1f / %.0f", st.Position, st.RecordedLength))
	row("Segments", fmt.Sprintf("%d × %d samples", st.Segments, st.SegmentSize))
	row("Segment", fmt.Sprintf("%d  %s", st.Segment, segmentMap(st.Segments, st.Segment)))
	row("Level", fmt.Sprintf("%s %6.1f dBFS", meter(m.status.Level), m.status.Level.DBFS()))
	row("Spectrum", spectrum(m.status.Bands))

	if m.err != nil {
		sb.WriteString("\n")
		sb.WriteString(errorStyle.Render(m.err.Error()))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(m.help.View(m.keys))
	return sb.String()
}

// segmentMap draws one cell per segment with the selected one highlighted.
// Large divisions are shortened to fit.
func segmentMap(n, selected int) string {
	if n <= 1 {
		return highlightStyle.Render("█")
	}
	cells := min(n, segmentWidth)
	sel := selected * cells / n

	var sb strings.Builder
	for i := range cells {
		if i == sel {
			sb.WriteString(highlightStyle.Render("█"))
		} else {
			sb.WriteString("░")
		}
	}
	return sb.String()
}

// meter draws a peak bar scaled from -60 dBFS to 0 dBFS.
func meter(l analysis.Level) string {
	frac := (l.PeakDBFS() + 60) / 60
	filled := int(math.Round(min(max(frac, 0), 1) * meterWidth))
	return highlightStyle.Render(strings.Repeat("▮", filled)) + strings.Repeat("·", meterWidth-filled)
}

var sparks = []rune("▁▂▃▄▅▆▇█")

// spectrum draws one character per band.
func spectrum(b analysis.BandLevels) string {
	var sb strings.Builder
	for i, v := range b {
		db := 20 * math.Log10(max(v, 1e-6))
		idx := int((db + 60) / 60 * float64(len(sparks)-1))
		idx = min(max(idx, 0), len(sparks)-1)
		sb.WriteRune(sparks[idx])
		if i < len(b)-1 {
			sb.WriteRune(' ')
		}
	}
	return sb.String()
}

// RunLooperUI runs the control surface until the user quits.
func RunLooperUI(store *control.Store, source transport.StatusSource, recorder Recorder) error {
	p := tea.NewProgram(
		NewLooperModel(store, source, recorder),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return programErr(err)
}

// programErr maps an interrupt (ctrl+c outside the key map, or SIGINT) to a
// normal quit.
func programErr(err error) error {
	if errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	return err
}
