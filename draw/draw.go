// draw/draw.go
// Copyright(c) 2022-2024 vacation contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package draw provides screen-space drawing of rectangles and text on
// top of the renderer's immediate-mode batcher.
package draw

import (
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mmp/vacation/log"
	"github.com/mmp/vacation/math"
	"github.com/mmp/vacation/renderer"
)

// Shaders gives the shader ids used for each kind of drawing.
type Shaders struct {
	// Color draws untextured quads using the vertex color.
	Color uint32
	// Text draws glyph quads, modulating the vertex color by the atlas
	// coverage.
	Text uint32
	// Texture draws textured quads.
	Texture uint32
}

// TextStyle specifies the style of text to be drawn.
type TextStyle struct {
	Font  *renderer.Font
	Color renderer.RGBA
	// LineSpacing gives the additional spacing in pixels between lines of
	// text relative to the font's default line spacing.
	LineSpacing int
	// DrawBackground specifies if a filled rectangle should be drawn
	// behind each line of text.
	DrawBackground  bool
	BackgroundColor renderer.RGBA
	// If DropShadow is set, the text is first drawn in ShadowColor,
	// offset by ShadowOffset pixels (x right, y down).
	DropShadow   bool
	ShadowColor  renderer.RGBA
	ShadowOffset [2]float32
}

// Drawer issues drawing commands through an Immediate batcher. Text is
// drawn from the font atlas; atlas pages are uploaded to the renderer
// when they're first used or have changed.
type Drawer struct {
	r       renderer.Renderer
	im      *renderer.Immediate
	atlas   *renderer.Atlas
	shaders Shaders
	lg      *log.Logger

	// Texture bound to unit 0, or zero if unknown.
	texture uint32
}

func NewDrawer(r renderer.Renderer, im *renderer.Immediate, atlas *renderer.Atlas, shaders Shaders,
	lg *log.Logger) *Drawer {
	return &Drawer{r: r, im: im, atlas: atlas, shaders: shaders, lg: lg}
}

// Begin starts drawing into the given command buffer.
func (d *Drawer) Begin(cb *renderer.CommandBuffer) {
	d.im.SetCommandBuffer(cb)
	d.im.Begin()
	d.texture = 0
}

// End flushes any pending quads.
func (d *Drawer) End() {
	d.im.Flush()
}

func (d *Drawer) Immediate() *renderer.Immediate { return d.im }

// Rendering2DRightHanded sets up the viewport and a projection for
// drawing to a w x h pixel target with the origin at the lower left.
func (d *Drawer) Rendering2DRightHanded(w, h int) {
	d.im.Flush()
	cb := d.im.CommandBuffer()
	cb.Viewport(0, 0, w, h)
	cb.LoadProjectionMatrix(math.Ortho2DRightHanded(float32(w), float32(h)))
	cb.LoadModelViewMatrix(mgl32.Ident4())
}

func (d *Drawer) bindTexture(id uint32) {
	if id != d.texture {
		d.im.SetTexture(0, id)
		d.texture = id
	}
}

// Quad draws a filled rectangle with corners (x0, y0) and (x1, y1).
func (d *Drawer) Quad(x0, y0, x1, y1 float32, color renderer.RGBA) {
	d.im.SetShader(d.shaders.Color)
	d.im.Quad([2]float32{x0, y0}, [2]float32{x1, y0}, [2]float32{x1, y1}, [2]float32{x0, y1}, color)
}

// TexturedQuad draws the entire texture stretched over the rectangle.
func (d *Drawer) TexturedQuad(texture uint32, x0, y0, x1, y1 float32, color renderer.RGBA) {
	d.im.SetShader(d.shaders.Texture)
	d.bindTexture(texture)
	d.im.Quad([2]float32{x0, y0}, [2]float32{x1, y0}, [2]float32{x1, y1}, [2]float32{x0, y1}, color)
}

// DrawPreparedText draws the font's most recently prepared text with its
// baseline starting at (x, y) and returns the final pen x position.
func (d *Drawer) DrawPreparedText(f *renderer.Font, x, y float32, color renderer.RGBA) float32 {
	end := f.GenerateQuads(x, y)
	quads := f.Quads()
	if len(quads) == 0 {
		return end
	}

	d.im.SetShader(d.shaders.Text)
	page := -1
	for _, q := range quads {
		if q.Glyph.Page != page {
			// Atlas pages are only appended to, so uploading them now
			// doesn't change quads that are already queued.
			page = q.Glyph.Page
			d.bindTexture(d.atlas.Sync(d.r, page))
		}
		d.im.QuadUV(q.P0, q.P1, q.P2, q.P3, q.UVs(), color)
	}
	return end
}

// Text draws a single line of text with its baseline starting at (x, y)
// and returns the final pen x position.
func (d *Drawer) Text(f *renderer.Font, s string, x, y float32, color renderer.RGBA) float32 {
	f.PrepareText(s)
	return d.DrawPreparedText(f, x, y, color)
}

// TextLines draws possibly multi-line text with p giving the upper-left
// corner of the first line. It returns the position just past the end of
// the last line's top edge.
func (d *Drawer) TextLines(s string, p [2]float32, style TextStyle) [2]float32 {
	f := style.Font
	dy := float32(f.LineSpacing + style.LineSpacing)

	px, py := p[0], p[1]
	for i, line := range strings.Split(s, "\n") {
		if i > 0 {
			py -= dy
		}
		px = p[0]
		baseline := py - float32(f.MaxAscender)

		w := float32(f.PrepareText(line))
		if style.DrawBackground {
			// Additional padding
			padx := float32(1)
			d.Quad(px-padx, py-dy, px+w+padx, py, style.BackgroundColor)
		}
		if style.DropShadow {
			d.DrawPreparedText(f, px+style.ShadowOffset[0], baseline-style.ShadowOffset[1], style.ShadowColor)
		}
		px = d.DrawPreparedText(f, px, baseline, style.Color)
	}
	return [2]float32{px, py}
}

// TextCentered draws the text centered at p.
func (d *Drawer) TextCentered(s string, p [2]float32, style TextStyle) {
	bx, by := style.Font.BoundText(s, style.LineSpacing)
	box := math.Extent2D{P1: [2]float32{float32(bx), float32(by)}}
	box = box.Offset(math.Sub2f(p, box.Center()))
	d.TextLines(s, [2]float32{box.P0[0], box.P1[1]}, style)
}

// ResolveToBackBuffer draws the display's offscreen target into the back
// buffer, which is fbWidth x fbHeight pixels, at the display's offset.
func (d *Drawer) ResolveToBackBuffer(display *renderer.Display, fbWidth, fbHeight int) {
	d.im.Flush()
	cb := d.im.CommandBuffer()
	cb.SetRenderTarget(renderer.RenderTarget{})
	d.Rendering2DRightHanded(fbWidth, fbHeight)
	cb.ClearRGBA(renderer.Black)

	tw, th := display.TargetSize()
	ox, oy := display.Offset()
	x0, y0 := float32(ox), float32(oy)
	d.TexturedQuad(display.Target().Texture, x0, y0, x0+float32(tw), y0+float32(th), renderer.White)
	d.im.Flush()
}
