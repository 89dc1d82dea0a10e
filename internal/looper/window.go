// SPDX-License-Identifier: MIT
package looper

import "math"

// Window is the region of the arena holding one full recording pass.
// Start is the lowest buffer address of the pass; the region covers
// [Start, Start+Length) modulo capacity and may wrap past the end of the
// arena.
type Window struct {
	Start    float64
	Length   float64
	Reversed bool // recorded with a negative increment
}

// End returns the exclusive upper bound of the window, folded into
// [0, capacity).
func (w Window) End(capacity float64) float64 {
	return fold(w.Start+w.Length, capacity)
}

// First returns the position of the first recorded sample. A reverse pass
// starts at the top of the window and runs down.
func (w Window) First(capacity float64) float64 {
	if w.Reversed && w.Length >= 1 {
		return fold(w.Start+w.Length-1, capacity)
	}
	return w.Start
}

// loopWindow derives the window from the position reached at the end of the
// recording pass. A forward pass ends one increment past its last write; a
// reverse pass ends one sample below its last write.
func (l *Looper) loopWindow() Window {
	start := l.pos - l.recsize
	if l.reversed {
		start = l.pos + 1
	}
	return Window{
		Start:    l.wrap(start),
		Length:   l.recsize,
		Reversed: l.reversed,
	}
}

// effectiveSegmentSize is the segment width used for clamping. A divisor
// larger than recsize floors SegmentSize to zero; such segments are played
// as single samples.
func (l *Looper) effectiveSegmentSize() int {
	return max(l.segmentSize, 1)
}

// numSegments returns floor(recsize / segment size), never less than one.
func (l *Looper) numSegments() int {
	n := int(l.recsize / float64(l.effectiveSegmentSize()))
	return max(n, 1)
}

// segmentIndex derives the selected segment from the raw selection.
func (l *Looper) segmentIndex(n int) int {
	idx := int(math.Floor(l.selected * float64(n)))
	if idx >= n {
		idx = n - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

// segmentBounds returns the start address and width of the selected
// segment. Segment 0 is the first recorded segment: the bottom of a forward
// window, the top of a reverse one.
func (l *Looper) segmentBounds() (start, size float64) {
	size = float64(l.effectiveSegmentSize())
	idx := float64(l.segmentIndex(l.numSegments()))

	if l.window.Reversed {
		start = l.window.Start + l.window.Length - (idx+1)*size
	} else {
		start = l.window.Start + idx*size
	}
	return l.wrap(start), size
}

// clampToSegment keeps pos inside the selected segment. Leaving it forwards
// snaps to the segment start, leaving it backwards snaps to its last sample.
// TODO: crossfade at the snap point to remove the click.
func (l *Looper) clampToSegment(pos, inc float64) float64 {
	start, size := l.segmentBounds()

	if l.wrap(pos-start) < size {
		return pos
	}
	if inc > 0 {
		return start
	}
	return start + size - 1
}

func fold(x, capacity float64) float64 {
	x -= capacity * math.Floor(x/capacity)
	if x < 0 || x >= capacity {
		return 0
	}
	return x
}

// Status is a point-in-time copy of the engine state.
type Status struct {
	State          PlaybackState
	Mode           TimeManipulation
	Position       float64
	RecordedLength float64
	SegmentSize    int
	Segments       int
	Segment        int
	Window         Window
	Capacity       int
}

// Status snapshots the engine. It does not allocate and may be called from
// the audio goroutine.
func (l *Looper) Status() Status {
	n := l.numSegments()
	return Status{
		State:          l.state,
		Mode:           l.mode,
		Position:       l.pos,
		RecordedLength: l.recsize,
		SegmentSize:    l.segmentSize,
		Segments:       n,
		Segment:        l.segmentIndex(n),
		Window:         l.window,
		Capacity:       l.arena.Len(),
	}
}
