// SPDX-License-Identifier: MIT
/*
Package control carries listener controls from the surfaces that produce
them (TUI, WebSocket clients, render scripts) to the looper core.

- Params is the per-block parameter set, passed by value
- Store hands Params to the audio goroutine without locks
- Driver applies a Params to a looper once per block
*/
package control

import "math"

// Params holds the four listener controls of the looper. Trigger is a
// toggle: every change of its value advances the playback state once.
// Edges counts the changes made through Change, so flips that cancel out
// between two blocks still advance the state.
type Params struct {
	Trigger          bool    `json:"trigger" yaml:"trigger"`
	Edges            uint64  `json:"edges" yaml:"-"`
	Division         float64 `json:"division" yaml:"division"`
	SegmentSelect    float64 `json:"segment" yaml:"segment"`
	TimeManipulation float64 `json:"time" yaml:"time"`
}

// Normalize clamps every continuous control into [0, 1]. NaN becomes 0.
func (p Params) Normalize() Params {
	p.Division = Unit(p.Division)
	p.SegmentSelect = Unit(p.SegmentSelect)
	p.TimeManipulation = Unit(p.TimeManipulation)
	return p
}

// Unit clamps v into [0, 1].
func Unit(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Scale converts a raw control reading in [lo, hi] into [0, 1].
func Scale(v, lo, hi float64) float64 {
	if hi == lo {
		return 0
	}
	return Unit((v - lo) / (hi - lo))
}
