// SPDX-License-Identifier: MIT
//
// Package bitint holds the power-of-two helpers used to size audio buffers.
// Hosts deliver blocks in power-of-two frame counts, so configuration rejects
// anything else and suggests the nearest valid size.
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size. Sizes <= 0 map to 1.
//
// The subtraction keeps exact powers of two unchanged: for 8, Len(7) is 3 and
// 1<<3 is 8, where Len(8) would give 16.
//
//	Input  Output
//	4      4
//	5      8
//	0      1
func NextPowerOfTwo(size int) int {
	if size <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// PrevPowerOfTwo returns the largest power of 2 <= size. Sizes <= 0 map to 1.
func PrevPowerOfTwo(size int) int {
	if size <= 1 {
		return 1
	}
	return 1 << (bits.Len(uint(size)) - 1)
}

// NearestPowerOfTwo returns whichever neighbouring power of 2 is closer to
// size, preferring the smaller one on a tie.
func NearestPowerOfTwo(size int) int {
	lo, hi := PrevPowerOfTwo(size), NextPowerOfTwo(size)
	if size-lo <= hi-size {
		return lo
	}
	return hi
}

// IsPowerOfTwo reports whether n is a positive power of 2. A power of two
// has a single bit set, so n&(n-1) clears it to zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
