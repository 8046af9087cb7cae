// renderer/rgb.go
// Copyright(c) 2022-2024 vacation contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package renderer

import (
	"github.com/mmp/vacation/math"
)

///////////////////////////////////////////////////////////////////////////
// RGBA

type RGBA struct {
	R, G, B, A float32
}

var (
	White       = RGBA{1, 1, 1, 1}
	Black       = RGBA{0, 0, 0, 1}
	Transparent = RGBA{}
)

func LerpRGBA(x float32, a, b RGBA) RGBA {
	return RGBA{R: math.Lerp(x, a.R, b.R), G: math.Lerp(x, a.G, b.G),
		B: math.Lerp(x, a.B, b.B), A: math.Lerp(x, a.A, b.A)}
}

// Scale scales the color channels but not alpha.
func (c RGBA) Scale(v float32) RGBA {
	return RGBA{R: c.R * v, G: c.G * v, B: c.B * v, A: c.A}
}

func (c RGBA) WithAlpha(a float32) RGBA {
	c.A = a
	return c
}

// RGBAFromHex converts a packed integer color value to an opaque RGBA
// where the low 8 bits give blue, the next 8 give green, and then the next
// 8 give red.
func RGBAFromHex(c int) RGBA {
	r, g, b := (c>>16)&255, (c>>8)&255, c&255
	return RGBA{R: float32(r) / 255, G: float32(g) / 255, B: float32(b) / 255, A: 1}
}

func (c RGBA) array() [4]float32 {
	return [4]float32{c.R, c.G, c.B, c.A}
}
