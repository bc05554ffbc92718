// Package safeconv provides checked integer conversions. The Must
// variants panic on out-of-range input, SafeInt64 clamps instead.
package safeconv

import "math"

// MustUintToInt converts v to int, panicking on overflow. Use only
// where the value is known to fit, such as libgit2 parent counts.
func MustUintToInt(v uint) int {
	if v > math.MaxInt {
		panic("safeconv: uint overflows int")
	}

	return int(v)
}

// MustIntToUint converts v to uint, panicking when v is negative.
func MustIntToUint(v int) uint {
	if v < 0 {
		panic("safeconv: negative int")
	}

	return uint(v)
}

// SafeInt64 converts v to int64, clamping to MaxInt64. Byte sizes
// want a saturated bound rather than a panic.
func SafeInt64(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}

	return int64(v)
}
