// SPDX-License-Identifier: MIT
package looper

// TimeManipulationThreshold maps every control value strictly above Above
// to Mode.
type TimeManipulationThreshold struct {
	Above float64
	Mode  TimeManipulation
}

// TimeManipulationThresholds is searched from the top down; values at or
// below the last entry select Normal.
var TimeManipulationThresholds = [...]TimeManipulationThreshold{
	{Above: 0.75, Mode: DoubleSpeed},
	{Above: 0.5, Mode: HalfSpeed},
	{Above: 0.25, Mode: Reverse},
}

// DivisionThreshold maps every control value at or below UpTo to Divisor.
type DivisionThreshold struct {
	UpTo    float64
	Divisor int
}

// DivisionThresholds is searched in ascending order; values above the last
// entry select MaxDivisor.
var DivisionThresholds = [...]DivisionThreshold{
	{UpTo: 0.125, Divisor: 1},
	{UpTo: 0.25, Divisor: 2},
	{UpTo: 0.375, Divisor: 4},
	{UpTo: 0.5, Divisor: 8},
	{UpTo: 0.625, Divisor: 16},
	{UpTo: 0.75, Divisor: 32},
	{UpTo: 0.875, Divisor: 64},
}

// MaxDivisor is the finest subdivision of a loop.
const MaxDivisor = 128

// TimeManipulationFor maps a control value in [0, 1] to a mode.
func TimeManipulationFor(param float64) TimeManipulation {
	for _, th := range TimeManipulationThresholds {
		if param > th.Above {
			return th.Mode
		}
	}
	return Normal
}

// DivisorFor maps a control value in [0, 1] to a segment divisor.
func DivisorFor(param float64) int {
	for _, th := range DivisionThresholds {
		if param <= th.UpTo {
			return th.Divisor
		}
	}
	return MaxDivisor
}
