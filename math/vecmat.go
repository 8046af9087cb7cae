// math/vecmat.go
// Copyright(c) 2022-2024 vacation contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	"github.com/go-gl/mathgl/mgl32"
)

///////////////////////////////////////////////////////////////////////////
// point 2f

// Various useful functions for arithmetic with 2D points/vectors.
// Names are brief in order to avoid clutter when they're used.

// a+b
func Add2f(a [2]float32, b [2]float32) [2]float32 {
	return [2]float32{a[0] + b[0], a[1] + b[1]}
}

// a-b
func Sub2f(a [2]float32, b [2]float32) [2]float32 {
	return [2]float32{a[0] - b[0], a[1] - b[1]}
}

///////////////////////////////////////////////////////////////////////////
// 4x4 matrices

// Ortho2DRightHanded returns the projection for a w x h pixel target with
// the origin at the lower left and y increasing upward, mapping pixel
// coordinates to [-1,1]. Degenerate sizes are clamped to 1.
func Ortho2DRightHanded(w, h float32) mgl32.Mat4 {
	w, h = max(w, 1), max(h, 1)

	m := mgl32.Ident4()
	m.Set(0, 0, 2/w)
	m.Set(1, 1, 2/h)
	m.Set(0, 3, -1)
	m.Set(1, 3, -1)
	return m
}
