// cmd/vacation/app.go
// Copyright(c) 2022-2024 vacation contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/mmp/vacation/draw"
	"github.com/mmp/vacation/log"
	"github.com/mmp/vacation/platform"
	"github.com/mmp/vacation/renderer"
)

var (
	backgroundColor = renderer.RGBAFromHex(0x1c2430)
	textColor       = renderer.RGBAFromHex(0xe8e8e0)
	clockColor      = renderer.RGBAFromHex(0xf0c040)
	shadowColor     = renderer.Black.WithAlpha(0.75)
)

// maxTypedRunes bounds the length of the line that echoes typed input.
const maxTypedRunes = 120

type app struct {
	config *Config
	lg     *log.Logger

	plat     platform.Platform
	r        renderer.Renderer
	display  *renderer.Display
	atlas    *renderer.Atlas
	fonts    *renderer.FontRegistry
	textures *renderer.TextureCatalog
	shaders  *renderer.ShaderCatalog
	drawer   *draw.Drawer

	font *renderer.Font
	// Whether data/textures holds a background image.
	haveBackground bool
	typed          []rune
	stats          renderer.RendererStats
}

func run(config *Config, configFile string, fsys fs.FS, lg *log.Logger) error {
	plat, err := platform.New(&config.Config, lg)
	if err != nil {
		return fmt.Errorf("unable to create window: %w", err)
	}
	defer plat.Dispose()

	r, err := renderer.NewOpenGL2Renderer(lg)
	if err != nil {
		return fmt.Errorf("unable to initialize renderer: %w", err)
	}
	defer r.Dispose()

	a := &app{
		config:   config,
		lg:       lg,
		plat:     plat,
		r:        r,
		atlas:    renderer.NewAtlas(config.Atlas, lg),
		textures: renderer.NewTextureCatalog(fsys, r, lg),
		shaders:  renderer.NewShaderCatalog(fsys, r, lg),
	}
	a.fonts = renderer.NewFontRegistry(fsys, a.atlas, config.Fonts, lg)
	defer a.fonts.Dispose(r)
	defer a.textures.Dispose()
	defer a.shaders.Dispose()

	if err := a.fonts.Preload(context.Background(), []string{config.UIFont}); err != nil {
		lg.Warnf("%s: %v", config.UIFont, err)
	}

	var shaders draw.Shaders
	for _, s := range []struct {
		name string
		id   *uint32
	}{{"color", &shaders.Color}, {"text", &shaders.Text}, {"texture", &shaders.Texture}} {
		id, ok := a.shaders.Get(s.name)
		if !ok {
			return fmt.Errorf("%s: unable to load shader", s.name)
		}
		*s.id = id
	}

	cb := renderer.GetCommandBuffer()
	defer renderer.ReturnCommandBuffer(cb)
	a.drawer = draw.NewDrawer(r, renderer.NewImmediate(cb, lg), a.atlas, shaders, lg)

	a.display = renderer.NewDisplay(r, lg)
	defer a.display.Dispose()
	a.display.MaintainAspectRatio = config.MaintainAspectRatio
	a.display.DesiredAspectRatio = config.DesiredAspectRatio
	a.display.OnResize = a.resized

	_, a.haveBackground = a.textures.Get("background")
	plat.SetWindowTitle("Vacation")

	lastStats := time.Now()
	for !plat.ShouldStop() {
		plat.ProcessEvents()
		a.handleInput()

		if n := a.textures.Hotload() + a.shaders.Hotload(); n > 0 {
			lg.Infof("Reloaded %d textures and shaders", n)
		}

		fb := plat.FramebufferSize()
		if err := a.display.Resize(fb[0], fb[1]); err != nil {
			return err
		}
		if a.display.Target().ID == 0 {
			// Minimized before we ever had a size.
			plat.PostRender()
			continue
		}

		cb.Reset()
		a.drawFrame(cb, fb)
		a.stats.Merge(r.RenderCommandBuffer(cb))
		plat.PostRender()

		if time.Since(lastStats) > time.Minute {
			lg.Info("frame stats", slog.Any("renderer", a.stats), slog.Any("atlas", a.atlas.Stats()),
				slog.Any("immediate", a.drawer.Immediate().Stats()))
			a.stats = renderer.RendererStats{}
			lastStats = time.Now()
		}
	}

	config.SaveIfChanged(configFile, plat, lg)
	return nil
}

// resized loads the UI font at the size that matches the new target
// height.
func (a *app) resized(d *renderer.Display) {
	_, th := d.TargetSize()
	if f := a.fonts.GetFontAtSize(a.config.UIFont, a.config.UIFontSize(th)); f != nil {
		a.font = f
	}
}

func (a *app) handleInput() {
	for _, ch := range a.plat.InputCharacters() {
		a.typed = append(a.typed, ch)
	}
	if n := len(a.typed); n > maxTypedRunes {
		a.typed = a.typed[n-maxTypedRunes:]
	}
}

func (a *app) drawFrame(cb *renderer.CommandBuffer, fb [2]int) {
	d := a.drawer
	d.Begin(cb)

	tw, th := a.display.TargetSize()
	cb.SetRenderTarget(a.display.Target())
	d.Rendering2DRightHanded(tw, th)
	cb.ClearRGBA(backgroundColor)

	if a.haveBackground {
		if id, ok := a.textures.Get("background"); ok {
			d.TexturedQuad(id, 0, 0, float32(tw), float32(th), renderer.White)
		}
	}

	if a.font != nil {
		margin := float32(a.font.LineSpacing)
		style := draw.TextStyle{
			Font:         a.font,
			Color:        clockColor,
			DropShadow:   true,
			ShadowColor:  shadowColor,
			ShadowOffset: [2]float32{1, 1},
		}
		p := d.TextLines(time.Now().Format("15:04:05"), [2]float32{margin, float32(th) - margin}, style)

		style.Color = textColor
		p[0] = margin
		p[1] -= 2 * float32(a.font.LineSpacing)
		p = d.TextLines(a.config.SampleText, p, style)

		if len(a.typed) > 0 {
			style.DrawBackground = true
			style.BackgroundColor = renderer.Black.WithAlpha(0.5)
			p[0] = margin
			p[1] -= 2 * float32(a.font.LineSpacing)
			d.TextLines(string(a.typed), p, style)
		}

		stats := a.drawer.Immediate().Stats()
		d.TextCentered(stats.String(), [2]float32{float32(tw) / 2, 2 * margin},
			draw.TextStyle{Font: a.font, Color: textColor.WithAlpha(0.6)})
	}

	d.ResolveToBackBuffer(a.display, fb[0], fb[1])
	d.End()
}
