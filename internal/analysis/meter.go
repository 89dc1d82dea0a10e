// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"sync/atomic"

	"gonum.org/v1/gonum/floats"
)

// SilenceDBFS is reported for a level of zero.
const SilenceDBFS = -120.0

// Level is the output level of the most recent block.
type Level struct {
	RMS  float64 `json:"rms"`
	Peak float64 `json:"peak"`
}

// DBFS returns the RMS level in decibels relative to full scale.
func (l Level) DBFS() float64 {
	return toDBFS(l.RMS)
}

// PeakDBFS returns the peak level in decibels relative to full scale.
func (l Level) PeakDBFS() float64 {
	return toDBFS(l.Peak)
}

func toDBFS(v float64) float64 {
	if v <= 0 {
		return SilenceDBFS
	}
	return max(20*math.Log10(v), SilenceDBFS)
}

// Meter computes per-block RMS and peak. Results are stored as float bits in
// atomics so Level can be called from any goroutine.
type Meter struct {
	scratch []float64
	rms     atomic.Uint64
	peak    atomic.Uint64
}

// NewMeter returns a meter that converts up to chunk samples at a time.
// Larger blocks are processed in several passes.
func NewMeter(chunk int) *Meter {
	return &Meter{scratch: make([]float64, max(chunk, 1))}
}

// Process measures block. It does not allocate.
func (m *Meter) Process(block []float32) {
	if len(block) == 0 {
		return
	}

	var sumSquares, peak float64
	for rest := block; len(rest) > 0; {
		n := min(len(rest), len(m.scratch))
		s := m.scratch[:n]
		for i, v := range rest[:n] {
			s[i] = float64(v)
		}
		sumSquares += floats.Dot(s, s)
		peak = max(peak, floats.Max(s), -floats.Min(s))
		rest = rest[n:]
	}

	m.rms.Store(math.Float64bits(math.Sqrt(sumSquares / float64(len(block)))))
	m.peak.Store(math.Float64bits(peak))
}

// Level returns the measurement of the last processed block.
func (m *Meter) Level() Level {
	return Level{
		RMS:  math.Float64frombits(m.rms.Load()),
		Peak: math.Float64frombits(m.peak.Load()),
	}
}

// Reset clears the published level.
func (m *Meter) Reset() {
	m.rms.Store(0)
	m.peak.Store(0)
}
