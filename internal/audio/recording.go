// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	applog "looper/internal/log"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/smallnest/ringbuffer"
)

// recorderBufferSeconds is how much loop output the ring buffer holds while
// the writer goroutine catches up.
const recorderBufferSeconds = 2

// Recorder captures mono float32 blocks into a PCM WAV file. Write runs on
// the audio goroutine and only copies into a ring buffer; a separate
// goroutine drains it into the encoder.
type Recorder struct {
	path string
	file *os.File
	enc  *wav.Encoder
	ring *ringbuffer.RingBuffer

	scratch []byte // Audio-side serialisation buffer
	scale   float64

	frames  atomic.Int64
	dropped atomic.Int64

	done chan struct{}
	err  error
}

// NewRecorder creates path and starts the writer goroutine. blockSize is the
// largest block Write will be given.
func NewRecorder(path string, sampleRate, bitDepth, blockSize int) (*Recorder, error) {
	switch bitDepth {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("unsupported bit depth: %d", bitDepth)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create recording directory: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create recording: %w", err)
	}

	size := max(sampleRate*recorderBufferSeconds, blockSize) * 4
	r := &Recorder{
		path:    path,
		file:    file,
		enc:     wav.NewEncoder(file, sampleRate, bitDepth, 1, 1),
		ring:    ringbuffer.New(size).SetBlocking(true),
		scratch: make([]byte, blockSize*4),
		scale:   pcmScale(bitDepth),
		done:    make(chan struct{}),
	}

	go r.drain(sampleRate, blockSize)
	return r, nil
}

// Path returns the file being written.
func (r *Recorder) Path() string {
	return r.path
}

// Frames returns the number of frames accepted so far.
func (r *Recorder) Frames() int64 {
	return r.frames.Load()
}

// Dropped returns the number of frames lost because the writer fell behind.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Write queues block for encoding. It never waits for the writer: a block
// that does not fit in the ring buffer is dropped whole.
func (r *Recorder) Write(block []float32) {
	if len(block)*4 > len(r.scratch) {
		block = block[:len(r.scratch)/4]
	}
	n := putFloat32LE(r.scratch, block)

	// Single producer: free space can only grow between the check and the write.
	if r.ring.Free() < n {
		r.dropped.Add(int64(len(block)))
		return
	}
	if _, err := r.ring.Write(r.scratch[:n]); err != nil {
		r.dropped.Add(int64(len(block)))
		return
	}
	r.frames.Add(int64(len(block)))
}

// drain moves samples from the ring buffer to the encoder until the writer
// side is closed.
func (r *Recorder) drain(sampleRate, blockSize int) {
	defer close(r.done)

	raw := make([]byte, blockSize*4)
	samples := make([]float32, blockSize)
	buf := &audio.IntBuffer{
		Format: &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:   make([]int, blockSize),
	}

	carry := 0
	for {
		n, err := r.ring.Read(raw[carry:])
		n += carry

		whole := n / 4
		if whole > 0 {
			float32LE(samples[:whole], raw[:whole*4])
			floatToPCM(buf.Data[:whole], samples[:whole], r.scale)
			buf.Data = buf.Data[:whole]
			if werr := r.enc.Write(buf); werr != nil && r.err == nil {
				r.err = fmt.Errorf("failed to write recording: %w", werr)
			}
			buf.Data = buf.Data[:cap(buf.Data)]
		}
		carry = copy(raw, raw[whole*4:n])

		if err != nil {
			if !errors.Is(err, io.EOF) && r.err == nil {
				r.err = fmt.Errorf("failed to read recording buffer: %w", err)
			}
			return
		}
	}
}

// Close flushes everything written so far and finalises the WAV header.
func (r *Recorder) Close() error {
	r.ring.CloseWriter()
	<-r.done

	var errs []error
	if r.err != nil {
		errs = append(errs, r.err)
	}
	if err := r.enc.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to finalise recording: %w", err))
	}
	if err := r.file.Close(); err != nil {
		errs = append(errs, err)
	}

	if d := r.Dropped(); d > 0 {
		applog.Warnf("Recorder: %d frames dropped from %s", d, r.path)
	}
	return errors.Join(errs...)
}

// StartRecording begins capturing the loop output. An empty filename
// records into the configured output directory, or the configured file.
func (e *Engine) StartRecording(filename string) error {
	if e.recorder.Load() != nil {
		return errors.New("already recording")
	}

	if filename == "" {
		filename = e.RecordingPath(time.Now())
	}

	r, err := NewRecorder(filename, int(e.config.Audio.SampleRate),
		e.config.Recording.BitDepth, len(e.block))
	if err != nil {
		return err
	}
	if !e.recorder.CompareAndSwap(nil, r) {
		r.Close()
		os.Remove(filename)
		return errors.New("already recording")
	}

	applog.Infof("Recorder: Recording to %s", filename)
	return nil
}

// StopRecording detaches the recorder and closes the file. It is a no-op
// when not recording.
func (e *Engine) StopRecording() error {
	r := e.recorder.Swap(nil)
	if r == nil {
		return nil
	}

	// A callback still holding r only reaches the ring buffer, which rejects
	// writes once closed.
	err := r.Close()
	applog.Infof("Recorder: Stopped %s (%d frames)", r.Path(), r.Frames())
	return err
}

// Recording reports whether a recorder is attached.
func (e *Engine) Recording() bool {
	return e.recorder.Load() != nil
}

// RecordingPath returns the file a recording started at t would use.
func (e *Engine) RecordingPath(t time.Time) string {
	if e.config.Recording.File != "" {
		return e.config.Recording.File
	}
	return filepath.Join(e.config.Recording.OutputDir,
		fmt.Sprintf("loop-%s.wav", t.Format("20060102-150405")))
}
