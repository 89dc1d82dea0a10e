// SPDX-License-Identifier: MIT
package looper

// PlaybackState is the active branch of the per-sample dispatch.
type PlaybackState uint8

const (
	Listening PlaybackState = iota
	Recording
	Playing
)

// String returns the display name of the state.
func (s PlaybackState) String() string {
	switch s {
	case Listening:
		return "LISTENING"
	case Recording:
		return "RECORDING"
	case Playing:
		return "PLAYING"
	default:
		return "UNKNOWN"
	}
}

// next returns the successor in the Listening → Recording → Playing cycle.
func (s PlaybackState) next() PlaybackState {
	switch s {
	case Listening:
		return Recording
	case Recording:
		return Playing
	default:
		return Listening
	}
}

// TimeManipulation selects the per-sample position increment.
type TimeManipulation uint8

const (
	Normal TimeManipulation = iota
	Reverse
	HalfSpeed
	DoubleSpeed
)

// String returns the display name of the mode.
func (m TimeManipulation) String() string {
	switch m {
	case Normal:
		return "NORMAL"
	case Reverse:
		return "REVERSE"
	case HalfSpeed:
		return "HALF_SPEED"
	case DoubleSpeed:
		return "DOUBLE_SPEED"
	default:
		return "UNKNOWN"
	}
}

// Increment returns the signed position step for one sample.
func (m TimeManipulation) Increment() float64 {
	switch m {
	case Reverse:
		return -1.0
	case HalfSpeed:
		return 0.5
	case DoubleSpeed:
		return 2.0
	default:
		return 1.0
	}
}
