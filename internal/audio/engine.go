// SPDX-License-Identifier: MIT
/*
Package audio hosts the looper on real audio hardware:
- Duplex float32 capture and playback using PortAudio
- Per-block control handoff through a lock-free control.Store
- Output level and spectrum analysis of the loop output
- WAV recording of the loop output through a ring buffer
- Offline rendering of WAV files with a scripted control timeline

Thread Safety:
- The stream callback owns the looper; nothing else touches it
- Pre-allocates buffers to avoid GC in hot path
- Status is published with TryLock so the callback never waits on readers
*/
package audio

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"looper/internal/analysis"
	"looper/internal/config"
	"looper/internal/control"
	applog "looper/internal/log"
	"looper/internal/looper"
	"looper/internal/transport"

	"github.com/gordonklaus/portaudio"
)

// meterChunk is the number of samples folded into the level meter at a time.
const meterChunk = 256

// Engine owns the loop memory and the looper core and drives them from the
// PortAudio callback.
type Engine struct {
	// Core configuration and control.
	config *config.Config
	store  *control.Store
	driver *control.Driver

	// Looper state, owned by the audio callback.
	arena  *looper.Arena
	looper *looper.Looper
	block  []float32 // Mono loop output for one chunk of the callback

	// Output analysis.
	meter     *analysis.Meter
	spectrum  *analysis.Spectrum
	analysers []analysis.Processor

	// Audio devices and stream.
	inputDevice   *portaudio.DeviceInfo
	outputDevice  *portaudio.DeviceInfo
	inputLatency  time.Duration
	outputLatency time.Duration
	stream        *portaudio.Stream
	running       atomic.Bool

	// Latest snapshot for status readers.
	statusMu sync.Mutex
	status   looper.Status
	params   control.Params

	recorder atomic.Pointer[Recorder]
}

// NewEngine resolves the configured devices and allocates the loop memory.
// If store is nil, one is created from the configured initial controls.
// PortAudio must be initialized.
func NewEngine(cfg *config.Config, store *control.Store) (*Engine, error) {
	e, err := newEngine(cfg, store)
	if err != nil {
		return nil, err
	}

	if e.inputDevice, err = InputDevice(cfg.Audio.InputDevice); err != nil {
		return nil, err
	}
	if e.outputDevice, err = OutputDevice(cfg.Audio.OutputDevice); err != nil {
		return nil, err
	}

	if cfg.Audio.LowLatency {
		e.inputLatency = e.inputDevice.DefaultLowInputLatency
		e.outputLatency = e.outputDevice.DefaultLowOutputLatency
	} else {
		e.inputLatency = e.inputDevice.DefaultHighInputLatency
		e.outputLatency = e.outputDevice.DefaultHighOutputLatency
	}

	applog.Infof("Engine: Input '%s', Output '%s', %.0f Hz, %d frames, %.2fs loop memory",
		e.inputDevice.Name, e.outputDevice.Name, cfg.Audio.SampleRate,
		cfg.Audio.FramesPerBuffer, cfg.Looper.MaxSeconds)

	return e, nil
}

// newEngine builds everything that does not need PortAudio.
func newEngine(cfg *config.Config, store *control.Store) (*Engine, error) {
	if store == nil {
		store = control.NewStore(InitialParams(cfg))
	}

	arena, err := looper.ArenaForDuration(cfg.Audio.SampleRate, cfg.Looper.MaxSeconds)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate loop memory: %w", err)
	}

	window, err := analysis.ParseWindowFunc(cfg.Analysis.Window)
	if err != nil {
		return nil, err
	}
	spectrum, err := analysis.NewSpectrum(cfg.Analysis.FFTSize, cfg.Audio.SampleRate, window)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		config:   cfg,
		store:    store,
		driver:   control.NewDriver(store.Load()),
		arena:    arena,
		looper:   looper.New(arena),
		block:    make([]float32, max(cfg.Audio.FramesPerBuffer, 1)),
		meter:    analysis.NewMeter(meterChunk),
		spectrum: spectrum,
	}
	e.analysers = []analysis.Processor{e.meter, e.spectrum}
	e.status = e.looper.Status()
	e.params = store.Load()
	return e, nil
}

// InitialParams returns the control values configured under looper.
func InitialParams(cfg *config.Config) control.Params {
	return control.Params{
		Division:         cfg.Looper.Division,
		SegmentSelect:    cfg.Looper.SegmentSelect,
		TimeManipulation: cfg.Looper.TimeManipulation,
	}
}

// Store returns the control store the engine reads once per block.
func (e *Engine) Store() *control.Store {
	return e.store
}

// Start opens and starts the duplex stream.
func (e *Engine) Start() error {
	if e.stream != nil {
		return errors.New("engine already started")
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: e.config.Audio.InputChannels,
			Device:   e.inputDevice,
			Latency:  e.inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: e.config.Audio.OutputChannels,
			Device:   e.outputDevice,
			Latency:  e.outputLatency,
		},
		FramesPerBuffer: e.config.Audio.FramesPerBuffer,
		SampleRate:      e.config.Audio.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, e.processStream)
	if err != nil {
		return fmt.Errorf("failed to open stream: %w", err)
	}
	e.stream = stream

	if err := e.stream.Start(); err != nil {
		e.stream.Close()
		e.stream = nil
		return fmt.Errorf("failed to start stream: %w", err)
	}
	e.running.Store(true)

	applog.Debugf("Engine: Stream started")
	return nil
}

// Stop stops and closes the stream. Calling Stop on a stopped engine is a
// no-op.
func (e *Engine) Stop() error {
	if e.stream == nil {
		return nil
	}
	e.running.Store(false)

	if err := e.stream.Stop(); err != nil {
		return fmt.Errorf("failed to stop stream: %w", err)
	}
	if err := e.stream.Close(); err != nil {
		return fmt.Errorf("failed to close stream: %w", err)
	}
	e.stream = nil

	applog.Debugf("Engine: Stream stopped")
	return nil
}

// Running reports whether the stream is started.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Close finishes any recording and stops the stream.
func (e *Engine) Close() error {
	var errs []error
	if err := e.StopRecording(); err != nil {
		errs = append(errs, err)
	}
	if err := e.Stop(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// processStream is the PortAudio callback. in and out are interleaved.
// Performance Critical (Hot Path):
// - No allocations, no blocking locks
// - Controls are applied once, before any sample is processed
// - Only input channel 0 is looped; the mono result goes to every output
func (e *Engine) processStream(in, out []float32) {
	params := e.store.Load()
	e.driver.Apply(e.looper, params)

	inCh := max(e.config.Audio.InputChannels, 1)
	outCh := max(e.config.Audio.OutputChannels, 1)
	frames := len(out) / outCh

	for start := 0; start < frames; start += len(e.block) {
		block := e.block[:min(len(e.block), frames-start)]

		for i := range block {
			frame := start + i

			var x float32
			if j := frame * inCh; j < len(in) {
				x = in[j]
			}
			y := e.looper.Process(x)
			block[i] = y

			o := out[frame*outCh : frame*outCh+outCh]
			for c := range o {
				o[c] = y
			}
		}

		for _, a := range e.analysers {
			a.Process(block)
		}
		if r := e.recorder.Load(); r != nil {
			r.Write(block)
		}
	}
	clear(out[frames*outCh:])

	if e.statusMu.TryLock() {
		e.status = e.looper.Status()
		e.params = params
		e.statusMu.Unlock()
	}
}

// Status returns the latest published snapshot. It implements
// transport.StatusSource.
func (e *Engine) Status() transport.Status {
	e.statusMu.Lock()
	status, params := e.status, e.params
	e.statusMu.Unlock()

	return transport.Status{
		Time:   time.Now(),
		Looper: status,
		Level:  e.meter.Level(),
		Bands:  e.spectrum.Levels(),
		Params: params,
	}
}

var _ transport.StatusSource = (*Engine)(nil)
