// math/geom.go
// Copyright(c) 2022-2024 vacation contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

///////////////////////////////////////////////////////////////////////////
// Extent2D

// Extent2D represents a 2D bounding box with the two vertices at its
// opposite minimum and maximum corners.
type Extent2D struct {
	P0, P1 [2]float32
}

func (e Extent2D) Center() [2]float32 {
	return [2]float32{(e.P0[0] + e.P1[0]) / 2, (e.P0[1] + e.P1[1]) / 2}
}

// Offset returns the extent translated by p.
func (e Extent2D) Offset(p [2]float32) Extent2D {
	return Extent2D{P0: Add2f(e.P0, p), P1: Add2f(e.P1, p)}
}

// Letterbox returns the largest w x h size with the given aspect ratio
// (width/height) that fits inside the display, along with the offset
// that centers it. Sizes are floored and never smaller than 1.
func Letterbox(displayW, displayH int, aspect float32) (w, h, offsetX, offsetY int) {
	var fw, fh float32
	if float32(displayW) > aspect*float32(displayH) {
		fh = float32(displayH)
		fw = fh * aspect
	} else {
		fw = float32(displayW)
		fh = fw / aspect
	}
	w = Clamp(int(Floor(fw)), 1, max(displayW, 1))
	h = Clamp(int(Floor(fh)), 1, max(displayH, 1))
	return w, h, (displayW - w) / 2, (displayH - h) / 2
}
