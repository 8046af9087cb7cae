// renderer/display.go
// Copyright(c) 2022-2024 vacation contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package renderer

import (
	"log/slog"

	"github.com/mmp/vacation/log"
	"github.com/mmp/vacation/math"
)

// Display manages the offscreen render target that everything is drawn
// into before it is resolved to the back buffer, sizing it to match the
// window, possibly letterboxed to a fixed aspect ratio.
type Display struct {
	MaintainAspectRatio bool
	DesiredAspectRatio  float32
	Format              PixelFormat
	// OnResize, if set, is called after the offscreen target has been
	// recreated.
	OnResize func(d *Display)

	r      Renderer
	lg     *log.Logger
	width  int
	height int
	// Offset of the offscreen target inside the back buffer.
	offsetX, offsetY int
	target           RenderTarget
}

func NewDisplay(r Renderer, lg *log.Logger) *Display {
	return &Display{
		DesiredAspectRatio: 16. / 9.,
		Format:             FormatRGBA8,
		r:                  r,
		lg:                 lg,
	}
}

// Resize updates the display size; the offscreen target is recreated
// when its size changes. Zero or negative sizes (e.g., a minimized
// window) are ignored.
func (d *Display) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return nil
	}

	tw, th, ox, oy := width, height, 0, 0
	if d.MaintainAspectRatio && d.DesiredAspectRatio > 0 {
		tw, th, ox, oy = math.Letterbox(width, height, d.DesiredAspectRatio)
	}
	d.width, d.height = width, height
	d.offsetX, d.offsetY = ox, oy

	if d.target.ID != 0 && d.target.Width == tw && d.target.Height == th {
		return nil
	}

	if d.target.ID != 0 {
		d.r.DestroyRenderTarget(d.target)
		d.target = RenderTarget{}
	}
	rt, err := d.r.CreateRenderTarget(tw, th, d.Format)
	if err != nil {
		return err
	}
	d.target = rt

	d.lg.Info("display resized", slog.Int("width", width), slog.Int("height", height),
		slog.Int("target_width", tw), slog.Int("target_height", th))

	if d.OnResize != nil {
		d.OnResize(d)
	}
	return nil
}

func (d *Display) Size() (width, height int) { return d.width, d.height }

func (d *Display) TargetSize() (width, height int) { return d.target.Width, d.target.Height }

func (d *Display) Offset() (x, y int) { return d.offsetX, d.offsetY }

func (d *Display) Target() RenderTarget { return d.target }

func (d *Display) Dispose() {
	if d.target.ID != 0 {
		d.r.DestroyRenderTarget(d.target)
		d.target = RenderTarget{}
	}
}
