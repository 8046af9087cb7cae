// math/core.go
// Copyright(c) 2022-2024 vacation contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	gomath "math"

	"golang.org/x/exp/constraints"
)

// A number of utility functions follow; since we mostly use float32, it's
// handy to be able to call these directly rather than with all of the
// casts that are required when using the math package.

func Floor(v float32) float32 {
	return float32(gomath.Floor(float64(v)))
}

// Round rounds to the nearest integer with halves rounded away from
// zero: floor(x+0.5) for non-negative values and the symmetric negation
// for negative ones.
func Round(v float32) int {
	if v < 0 {
		return -int(gomath.Floor(float64(-v) + 0.5))
	}
	return int(gomath.Floor(float64(v) + 0.5))
}

func Clamp[T constraints.Ordered](x T, low T, high T) T {
	if x < low {
		return low
	} else if x > high {
		return high
	}
	return x
}

func Lerp(x, a, b float32) float32 {
	return (1-x)*a + x*b
}
