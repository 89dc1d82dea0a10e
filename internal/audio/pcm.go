// SPDX-License-Identifier: MIT
package audio

import (
	"encoding/binary"
	"math"
)

// pcmScale returns the full-scale integer value for a signed PCM bit depth.
func pcmScale(bitDepth int) float64 {
	return float64(int64(1)<<(bitDepth-1) - 1)
}

// floatToPCM converts src to signed integers at the given scale, clipping
// anything outside [-1, 1].
func floatToPCM(dst []int, src []float32, scale float64) {
	for i, s := range src {
		v := float64(s)
		switch {
		case v > 1:
			v = 1
		case v < -1:
			v = -1
		case math.IsNaN(v):
			v = 0
		}
		dst[i] = int(math.Round(v * scale))
	}
}

// pcmToFloat converts every channel-th sample of src, starting at offset,
// back into [-1, 1].
func pcmToFloat(dst []float32, src []int, channels, offset int, scale float64) {
	for i := range dst {
		dst[i] = float32(float64(src[i*channels+offset]) / scale)
	}
}

// putFloat32LE serialises src into dst as little-endian IEEE 754 and returns
// the number of bytes written. dst must hold 4*len(src) bytes.
func putFloat32LE(dst []byte, src []float32) int {
	for i, s := range src {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(s))
	}
	return len(src) * 4
}

// float32LE is the inverse of putFloat32LE.
func float32LE(dst []float32, src []byte) int {
	n := min(len(dst), len(src)/4)
	for i := range n {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*4:]))
	}
	return n
}
