// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"looper/internal/analysis"
	"looper/internal/config"
	"looper/internal/control"
	applog "looper/internal/log"
	"looper/internal/looper"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// RenderOptions configures an offline render.
type RenderOptions struct {
	MaxSeconds float64       // Loop memory in seconds
	BlockSize  int           // Frames between control updates when no event is due
	BitDepth   int           // Output bit depth; 0 keeps the input's
	Tail       time.Duration // Silence fed after the input, to hear the loop play out
}

// DefaultRenderOptions mirrors the live host defaults.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{
		MaxSeconds: config.DefaultMaxSeconds,
		BlockSize:  config.DefaultFramesPerBuffer,
	}
}

// RenderResult describes a finished render.
type RenderResult struct {
	Samples    []float32 // Mono loop output
	SampleRate int
	BitDepth   int
	Final      looper.Status
	Level      analysis.Level
}

// Duration returns the length of the rendered audio.
func (r *RenderResult) Duration() time.Duration {
	if r.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(r.Samples)) * time.Second / time.Duration(r.SampleRate)
}

// Render runs channel 0 of the WAV in in through a fresh looper and writes
// the mono result to out. Script events land on their exact frame: blocks
// are split so controls change just before the event's sample. A nil
// script leaves every control at zero.
func Render(in io.ReadSeeker, out io.WriteSeeker, script *control.Script, opts RenderOptions) (*RenderResult, error) {
	if opts.BlockSize <= 0 {
		opts.BlockSize = config.DefaultFramesPerBuffer
	}
	if opts.MaxSeconds <= 0 {
		opts.MaxSeconds = config.DefaultMaxSeconds
	}
	if script == nil {
		script = &control.Script{}
	}

	dec := wav.NewDecoder(in)
	if !dec.IsValidFile() {
		return nil, errors.New("input is not a valid WAV file")
	}
	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode input: %w", err)
	}

	sampleRate := int(dec.SampleRate)
	channels := max(int(dec.NumChans), 1)
	bitDepth := int(dec.BitDepth)
	if sampleRate <= 0 || (bitDepth != 16 && bitDepth != 24 && bitDepth != 32) {
		return nil, fmt.Errorf("unsupported WAV format: %d Hz, %d bit", sampleRate, bitDepth)
	}
	if opts.BitDepth == 0 {
		opts.BitDepth = bitDepth
	}

	inputFrames := len(pcm.Data) / channels
	tailFrames := int(math.Round(opts.Tail.Seconds() * float64(sampleRate)))
	input := make([]float32, inputFrames, inputFrames+tailFrames)
	pcmToFloat(input, pcm.Data, channels, 0, pcmScale(bitDepth))
	input = input[:inputFrames+tailFrames]

	arena, err := looper.ArenaForDuration(float64(sampleRate), opts.MaxSeconds)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate loop memory: %w", err)
	}
	l := looper.New(arena)

	output := process(l, input, script.Cursor(float64(sampleRate)),
		control.NewDriver(script.Initial), opts.BlockSize)

	meter := analysis.NewMeter(meterChunk)
	meter.Process(output)

	outBuf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           make([]int, len(output)),
		SourceBitDepth: opts.BitDepth,
	}
	floatToPCM(outBuf.Data, output, pcmScale(opts.BitDepth))

	enc := wav.NewEncoder(out, sampleRate, opts.BitDepth, 1, 1)
	if err := enc.Write(outBuf); err != nil {
		return nil, fmt.Errorf("failed to write output: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalise output: %w", err)
	}

	result := &RenderResult{
		Samples:    output,
		SampleRate: sampleRate,
		BitDepth:   opts.BitDepth,
		Final:      l.Status(),
		Level:      meter.Level(),
	}
	applog.Debugf("Render: %d frames at %d Hz, final state %s", len(output), sampleRate, result.Final.State)
	return result, nil
}

// process runs input through l, applying cursor params at every block
// boundary and at every scripted event.
func process(l *looper.Looper, input []float32, cursor *control.Cursor, driver *control.Driver, blockSize int) []float32 {
	output := make([]float32, len(input))

	for frame := 0; frame < len(input); {
		// Consume the events due here first so the next one bounds the block.
		params := cursor.Advance(int64(frame))
		end := min(frame+blockSize, len(input))
		if next, ok := cursor.NextFrame(); ok && next < int64(end) {
			end = int(next)
		}

		driver.Apply(l, params)
		for i := frame; i < end; i++ {
			output[i] = l.Process(input[i])
		}
		frame = end
	}
	return output
}
