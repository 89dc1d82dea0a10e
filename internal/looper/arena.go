// SPDX-License-Identifier: MIT
package looper

import (
	"fmt"
	"math"
)

// Arena is the fixed-capacity sample memory a Looper records into. It is
// allocated once by the host and never resized; the Looper only borrows it.
type Arena struct {
	samples []float32
}

// NewArena allocates a zero-filled arena holding capacity samples.
func NewArena(capacity int) (*Arena, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("arena capacity must be >= 1: %d", capacity)
	}
	return &Arena{samples: make([]float32, capacity)}, nil
}

// ArenaForDuration sizes an arena as sampleRate × seconds, the way the host
// sizes its loop memory (8 seconds by default).
func ArenaForDuration(sampleRate, seconds float64) (*Arena, error) {
	if sampleRate <= 0 || seconds <= 0 {
		return nil, fmt.Errorf("invalid arena duration: %.0f Hz × %.2f s", sampleRate, seconds)
	}
	n := math.Floor(sampleRate * seconds)
	if n > math.MaxInt32 {
		return nil, fmt.Errorf("arena too large: %.0f samples", n)
	}
	return NewArena(int(n))
}

// Len returns the arena capacity in samples.
func (a *Arena) Len() int {
	return len(a.samples)
}

// At returns the sample at i, or 0 when i is out of range.
func (a *Arena) At(i int) float32 {
	if i < 0 || i >= len(a.samples) {
		return 0
	}
	return a.samples[i]
}

// Set stores v at i. Out-of-range writes are dropped.
func (a *Arena) Set(i int, v float32) {
	if i < 0 || i >= len(a.samples) {
		return
	}
	a.samples[i] = v
}

// Zero clears every sample.
func (a *Arena) Zero() {
	clear(a.samples)
}

// Samples exposes the backing slice for read-only inspection (tests, dumps).
func (a *Arena) Samples() []float32 {
	return a.samples
}
