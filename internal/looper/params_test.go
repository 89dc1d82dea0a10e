// SPDX-License-Identifier: MIT
package looper

import (
	"math"
	"testing"
)

func TestThresholdTablesAreMonotonic(t *testing.T) {
	for i := 1; i < len(TimeManipulationThresholds); i++ {
		if TimeManipulationThresholds[i].Above >= TimeManipulationThresholds[i-1].Above {
			t.Errorf("time manipulation thresholds not descending at %d", i)
		}
	}
	for i := 1; i < len(DivisionThresholds); i++ {
		prev, cur := DivisionThresholds[i-1], DivisionThresholds[i]
		if cur.UpTo <= prev.UpTo {
			t.Errorf("division thresholds not ascending at %d", i)
		}
		if cur.Divisor != prev.Divisor*2 {
			t.Errorf("divisor %d at %d, want %d", cur.Divisor, i, prev.Divisor*2)
		}
	}
	if last := DivisionThresholds[len(DivisionThresholds)-1].Divisor; last*2 != MaxDivisor {
		t.Errorf("last divisor %d does not precede MaxDivisor %d", last, MaxDivisor)
	}
}

func TestDivisorForBoundaries(t *testing.T) {
	tests := []struct {
		param float64
		want  int
	}{
		{-1, 1},
		{0, 1},
		{0.125, 1},
		{0.1251, 2},
		{0.25, 2},
		{0.375, 4},
		{0.5, 8},
		{0.625, 16},
		{0.75, 32},
		{0.875, 64},
		{0.8751, 128},
		{1, 128},
		{math.NaN(), 128},
	}

	for _, tt := range tests {
		if got := DivisorFor(tt.param); got != tt.want {
			t.Errorf("DivisorFor(%v) = %d, want %d", tt.param, got, tt.want)
		}
	}
}

func TestTimeManipulationForNaN(t *testing.T) {
	if got := TimeManipulationFor(math.NaN()); got != Normal {
		t.Errorf("TimeManipulationFor(NaN) = %s, want NORMAL", got)
	}
}

func TestStateStrings(t *testing.T) {
	if Listening.String() != "LISTENING" || Recording.String() != "RECORDING" || Playing.String() != "PLAYING" {
		t.Error("unexpected PlaybackState names")
	}
	if PlaybackState(9).String() != "UNKNOWN" || TimeManipulation(9).String() != "UNKNOWN" {
		t.Error("out of range values should be UNKNOWN")
	}
	if DoubleSpeed.String() != "DOUBLE_SPEED" {
		t.Errorf("DoubleSpeed.String() = %s", DoubleSpeed.String())
	}
}
