// Package safeconv provides integer conversions that panic instead of silently
// wrapping around.
package safeconv

import "math"

// MaxUint32 is the maximum value for uint32 type.
const MaxUint32 = uint32(math.MaxUint32)

// MustIntToUint32 converts int to uint32, panics on bounds violation.
// Use only when bounds violations are logically impossible.
func MustIntToUint32(v int) uint32 {
	if v < 0 || v > int(MaxUint32) {
		panic("safeconv: int to uint32 out of bounds")
	}

	return uint32(v)
}

// MustUint32ToUint8 narrows a packed byte that went through a uint32 column.
func MustUint32ToUint8(v uint32) uint8 {
	if v > math.MaxUint8 {
		panic("safeconv: uint32 to uint8 overflow")
	}

	return uint8(v)
}

// MustIntToUint64 converts a non-negative int to uint64.
func MustIntToUint64(v int) uint64 {
	if v < 0 {
		panic("safeconv: negative int to uint64 conversion")
	}

	return uint64(v)
}
