// SPDX-License-Identifier: MIT
//
// Package analysis measures the looper output for the control surfaces. The
// processors run inside the audio callback, so Process must not allocate or
// block; readers on other goroutines get snapshots.
package analysis

// Processor is a block analyser fed with the mono looper output.
type Processor interface {
	Process(block []float32)
}

// Compile-time checks for interface implementations.
var (
	_ Processor = (*Meter)(nil)
	_ Processor = (*Spectrum)(nil)
)
