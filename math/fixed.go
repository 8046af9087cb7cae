// math/fixed.go
// Copyright(c) 2024 vacation contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	"golang.org/x/image/math/fixed"
)

// Round26_6 rounds a 26.6 fixed-point value to an integer with halves
// going away from zero.
func Round26_6(x fixed.Int26_6) int {
	if x >= 0 {
		return int((x + 32) >> 6)
	}
	return -int((-x + 32) >> 6)
}

// Floor26_6 is the arithmetic shift used for advances and kerning
// deltas; it rounds toward negative infinity.
func Floor26_6(x fixed.Int26_6) int {
	return int(x >> 6)
}

// Ceil26_6 rounds toward positive infinity.
func Ceil26_6(x fixed.Int26_6) int {
	return int((x + 63) >> 6)
}

// Float26_6 converts to float32 pixels.
func Float26_6(x fixed.Int26_6) float32 {
	return float32(x) / 64
}
