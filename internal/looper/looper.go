// SPDX-License-Identifier: MIT
/*
Package looper implements the sample-accurate looping engine:
- Records a mono signal into a borrowed fixed-capacity Arena
- Plays the recording back reversed, at half or double speed
- Divides the loop into 1-128 equal segments and loops the selected one

Real-Time Rules:
- Process is called once per sample from the audio callback
- Process never allocates, locks or blocks
- Setters and AdvanceState are called from the same goroutine as Process,
  once per block, before the block's sample loop
- A Looper has no internal synchronisation and must not be shared
*/
package looper

import "math"

// Looper is the recording/playback state machine. The zero value is not
// usable; construct it with New.
type Looper struct {
	arena    *Arena
	capacity float64

	state PlaybackState
	mode  TimeManipulation

	pos     float64 // fractional index, always in [0, capacity)
	recsize float64 // magnitude moved during the last recording pass

	resetPending bool // next Recording sample starts a new pass
	reversed     bool // last recording pass ran backwards

	window    Window
	windowSet bool

	segmentSize int
	selected    float64
}

// New binds arena to a fresh Looper in the Listening state.
func New(arena *Arena) *Looper {
	l := &Looper{}
	l.Init(arena)
	return l
}

// Init binds arena, zero-fills it and resets every piece of transient state.
// Calling Init again re-zeroes the arena.
func (l *Looper) Init(arena *Arena) {
	arena.Zero()
	*l = Looper{
		arena:    arena,
		capacity: float64(arena.Len()),
		state:    Listening,
		mode:     Normal,
	}
}

// AdvanceState moves to the next state of the Listening → Recording →
// Playing cycle. It is called once per trigger edge; entering Recording
// arms the recsize reset, everything else happens lazily in Process.
func (l *Looper) AdvanceState() {
	l.state = l.state.next()
	if l.state == Recording {
		l.resetPending = true
	}
}

// SetTimeManipulation selects the playback/recording increment from a
// control value in [0, 1].
func (l *Looper) SetTimeManipulation(param float64) {
	l.mode = TimeManipulationFor(param)
}

// SetSegmentDivisions derives the segment size from the current recsize.
// While Recording the result reflects the partial recording only.
func (l *Looper) SetSegmentDivisions(param float64) {
	l.segmentSize = int(l.recsize) / DivisorFor(param)
}

// SetSelectedSegment stores the raw selection; the segment index is derived
// from it on every Playing sample.
func (l *Looper) SetSelectedSegment(param float64) {
	l.selected = param
}

// Process consumes one input sample and returns one output sample.
func (l *Looper) Process(input float32) float32 {
	inc := l.mode.Increment()

	switch l.state {
	case Recording:
		return l.record(input, inc)
	case Playing:
		return l.play(inc)
	default:
		return input
	}
}

func (l *Looper) record(input float32, inc float64) float32 {
	l.arena.Set(int(l.pos), input)

	if l.resetPending {
		l.recsize = 0
		l.resetPending = false
	}

	l.pos += inc
	l.recsize += math.Abs(inc)
	if l.recsize >= l.capacity {
		l.recsize = l.capacity
	}
	l.pos = l.wrap(l.pos)

	l.segmentSize = int(l.recsize)
	l.reversed = inc < 0
	l.windowSet = false

	return input
}

func (l *Looper) play(inc float64) float32 {
	if !l.windowSet {
		l.window = l.loopWindow()
		l.pos = l.window.First(l.capacity)
		l.windowSet = true
	}

	sig := l.read(l.pos)
	l.pos += inc
	l.pos = l.clampToSegment(l.pos, inc)
	l.pos = l.wrap(l.pos)

	return sig
}

// read returns the linearly interpolated sample at pos. The upper neighbour
// wraps at capacity.
func (l *Looper) read(pos float64) float32 {
	i := int(pos)
	frac := float32(pos - float64(i))
	a := l.arena.At(i)
	b := l.arena.At((i + 1) % l.arena.Len())
	return a + (b-a)*frac
}

// wrap folds x into [0, capacity).
func (l *Looper) wrap(x float64) float64 {
	return fold(x, l.capacity)
}

// State returns the active playback state.
func (l *Looper) State() PlaybackState { return l.state }

// Mode returns the active time manipulation.
func (l *Looper) Mode() TimeManipulation { return l.mode }

// Position returns the fractional buffer position.
func (l *Looper) Position() float64 { return l.pos }

// RecordedLength returns recsize, the length of the last recording pass.
func (l *Looper) RecordedLength() float64 { return l.recsize }

// SegmentSize returns the segment width in samples as last computed.
func (l *Looper) SegmentSize() int { return l.segmentSize }

// Capacity returns the arena capacity in samples.
func (l *Looper) Capacity() int { return l.arena.Len() }
