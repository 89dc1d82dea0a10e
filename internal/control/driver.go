// SPDX-License-Identifier: MIT
package control

import "looper/internal/looper"

// Target is the control surface of the looper core.
type Target interface {
	AdvanceState()
	SetSegmentDivisions(param float64)
	SetSelectedSegment(param float64)
	SetTimeManipulation(param float64)
}

var _ Target = (*looper.Looper)(nil)

// Driver applies Params to a Target once per block. It owns the trigger
// edge detection; the looper itself does no debouncing.
type Driver struct {
	previous bool
	edges    uint64
}

// NewDriver returns a Driver whose trigger history starts at initial, so a
// store created with Trigger set does not fire on the first block.
func NewDriver(initial Params) *Driver {
	return &Driver{previous: initial.Trigger, edges: initial.Edges}
}

// Apply pushes p into t and reports whether the state advanced. It must run
// before the block's sample loop, on the audio goroutine.
//
// Every edge counted since the last block advances the state once. Params
// written without counting fall back to comparing the trigger level.
func (d *Driver) Apply(t Target, p Params) bool {
	n := p.Edges - d.edges
	if n == 0 && p.Trigger != d.previous {
		n = 1
	}
	// The cycle has three states; a burst keeps its phase.
	if n > 3 {
		n = 3 + n%3
	}
	for range n {
		t.AdvanceState()
	}
	d.previous = p.Trigger
	d.edges = p.Edges

	t.SetSegmentDivisions(p.Division)
	t.SetSelectedSegment(p.SegmentSelect)
	t.SetTimeManipulation(p.TimeManipulation)

	return n > 0
}
