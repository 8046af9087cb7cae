// renderer/raster.go
// Copyright(c) 2022-2024 vacation contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package renderer

import (
	"image"
	"image/draw"

	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/mmp/vacation/math"
)

// RenderMode selects how glyphs are rasterized.
type RenderMode int

const (
	// Subpixel renders glyphs at three times the horizontal resolution so
	// that each pixel's red, green, and blue subpixels get their own
	// coverage value in the atlas.
	Subpixel RenderMode = iota
	Grayscale
)

func (m RenderMode) horizontalScale() int {
	if m == Subpixel {
		return 3
	}
	return 1
}

// rasterGlyph is the rasterized coverage mask of a glyph. Rows are stored
// from the top of the glyph down.
type rasterGlyph struct {
	// Width and Height in pixels; the mask itself is texelWidth wide.
	width, height int
	texelWidth    int
	// Offset of the mask's upper left corner from the glyph origin, in
	// pixels, with y increasing upward.
	left, top int
	mask      *image.Alpha
}

type glyphRasterizer struct {
	z    vector.Rasterizer
	mode RenderMode
	// filter enables the 5-tap FIR filter applied to subpixel masks to
	// reduce color fringing.
	filter bool
}

func (gr *glyphRasterizer) rasterize(segs sfnt.Segments) rasterGlyph {
	if len(segs) == 0 {
		return rasterGlyph{}
	}

	b := segs.Bounds()
	x0, y0 := math.Floor26_6(b.Min.X), math.Floor26_6(b.Min.Y)
	x1, y1 := math.Ceil26_6(b.Max.X), math.Ceil26_6(b.Max.Y)
	if x1 <= x0 || y1 <= y0 {
		return rasterGlyph{}
	}

	sx := gr.mode.horizontalScale()
	rg := rasterGlyph{
		width:      x1 - x0,
		height:     y1 - y0,
		texelWidth: sx * (x1 - x0),
		left:       x0,
		top:        -y0,
	}

	gr.z.Reset(rg.texelWidth, rg.height)
	gr.z.DrawOp = draw.Src

	ox, oy := fixed.I(x0), fixed.I(y0)
	pt := func(p fixed.Point26_6) (float32, float32) {
		return float32(sx) * math.Float26_6(p.X-ox), math.Float26_6(p.Y - oy)
	}

	for i, seg := range segs {
		switch seg.Op {
		case sfnt.SegmentOpMoveTo:
			if i > 0 {
				gr.z.ClosePath()
			}
			gr.z.MoveTo(pt(seg.Args[0]))
		case sfnt.SegmentOpLineTo:
			gr.z.LineTo(pt(seg.Args[0]))
		case sfnt.SegmentOpQuadTo:
			bx, by := pt(seg.Args[0])
			cx, cy := pt(seg.Args[1])
			gr.z.QuadTo(bx, by, cx, cy)
		case sfnt.SegmentOpCubeTo:
			bx, by := pt(seg.Args[0])
			cx, cy := pt(seg.Args[1])
			dx, dy := pt(seg.Args[2])
			gr.z.CubeTo(bx, by, cx, cy, dx, dy)
		}
	}
	gr.z.ClosePath()

	rg.mask = image.NewAlpha(gr.z.Bounds())
	gr.z.Draw(rg.mask, rg.mask.Bounds(), image.Opaque, image.Point{})

	if gr.mode == Subpixel && gr.filter {
		lcdFilter(rg.mask)
	}
	return rg
}

// FreeType's default LCD filter weights, which sum to 256.
var lcdFilterWeights = [5]int{0x08, 0x4d, 0x56, 0x4d, 0x08}

// lcdFilter applies the 5-tap filter horizontally to each row of the
// mask. Taps that fall outside the row are treated as zero.
func lcdFilter(m *image.Alpha) {
	w := m.Rect.Dx()
	row := make([]byte, w)
	for y := 0; y < m.Rect.Dy(); y++ {
		pix := m.Pix[y*m.Stride : y*m.Stride+w]
		copy(row, pix)
		for x := range w {
			sum := 0
			for t, wt := range lcdFilterWeights {
				if xx := x + t - 2; xx >= 0 && xx < w {
					sum += wt * int(row[xx])
				}
			}
			pix[x] = byte(min(sum>>8, 255))
		}
	}
}
