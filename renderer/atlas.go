// renderer/atlas.go
// Copyright(c) 2022-2024 vacation contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package renderer

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/mmp/vacation/log"
	"github.com/mmp/vacation/util"
)

// Ratio is an exact rational number used for the shelf packing
// thresholds.
type Ratio struct {
	Num int `json:"num"`
	Den int `json:"den"`
}

// AtlasConfig holds the glyph atlas parameters.
type AtlasConfig struct {
	PageWidth  int `json:"page_width"`
	PageHeight int `json:"page_height"`
	// A line of height H accepts glyphs of height h with
	// Accept*H <= h <= H.
	Accept Ratio `json:"accept_ratio"`
	// New lines are created with height Grow*h, clamped to the space
	// remaining in the page.
	Grow Ratio `json:"grow_ratio"`
	// ArenaBytes bounds the memory used for line and glyph metadata.
	ArenaBytes int `json:"arena_bytes"`
}

func DefaultAtlasConfig() AtlasConfig {
	return AtlasConfig{
		PageWidth:  2048,
		PageHeight: 1024,
		Accept:     Ratio{7, 10},
		Grow:       Ratio{11, 10},
		ArenaBytes: 4 << 20,
	}
}

func (c *AtlasConfig) Validate(e *util.ErrorLogger) {
	e.Push("atlas")
	defer e.Pop()

	if c.PageWidth <= 0 || c.PageHeight <= 0 {
		e.ErrorString("page size %dx%d must be positive", c.PageWidth, c.PageHeight)
	}
	if c.Accept.Den <= 0 || c.Accept.Num < 0 || c.Accept.Num > c.Accept.Den {
		e.ErrorString("accept_ratio %d/%d must be between 0 and 1", c.Accept.Num, c.Accept.Den)
	}
	if c.Grow.Den <= 0 || c.Grow.Num < c.Grow.Den {
		e.ErrorString("grow_ratio %d/%d must be at least 1", c.Grow.Num, c.Grow.Den)
	}
	if c.ArenaBytes <= 0 {
		e.ErrorString("arena_bytes %d must be positive", c.ArenaBytes)
	}
}

// FontLine is a shelf: a horizontal strip of a page with a fixed height
// that glyphs are appended to from left to right.
type FontLine struct {
	Page    int // index of the owning page
	Y       int
	Height  int
	CursorX int
}

// FontPage is a single-channel atlas bitmap and the lines allocated in it.
type FontPage struct {
	Bitmap      *Bitmap
	Texture     uint32
	LineCursorY int
	Lines       []*FontLine
	// Dirty is set when the bitmap has been modified since it was last
	// uploaded; DirtyRect bounds the modified texels.
	Dirty     bool
	DirtyRect image.Rectangle
}

func (p *FontPage) remainingHeight() int {
	return p.Bitmap.Height - p.LineCursorY
}

// Placement is the location of a rectangle in the atlas. Page is -1 for
// zero-area rectangles, which are never stored.
type Placement struct {
	Page          int
	X, Y          int
	Width, Height int
}

func (p Placement) Rect() image.Rectangle {
	return image.Rect(p.X, p.Y, p.X+p.Width, p.Y+p.Height)
}

// Atlas packs glyph bitmaps into pages using shelf packing. Pages are
// only ever appended; nothing is freed until Dispose.
type Atlas struct {
	cfg        AtlasConfig
	pages      []*FontPage
	lineArena  *util.Arena[FontLine]
	glyphArena *util.Arena[Glyph]
	placements int
	usedArea   int
	lg         *log.Logger
}

func NewAtlas(cfg AtlasConfig, lg *log.Logger) *Atlas {
	return &Atlas{
		cfg:        cfg,
		lineArena:  util.NewArena[FontLine](cfg.ArenaBytes),
		glyphArena: util.NewArena[Glyph](cfg.ArenaBytes),
		lg:         lg,
	}
}

func (a *Atlas) Config() AtlasConfig { return a.cfg }

func (a *Atlas) NumPages() int { return len(a.pages) }

func (a *Atlas) Page(i int) *FontPage { return a.pages[i] }

// accepts returns true if a glyph of height h may go in a line of the
// given height.
func (a *Atlas) accepts(lineHeight, h int) bool {
	return h <= lineHeight && h*a.cfg.Accept.Den >= lineHeight*a.cfg.Accept.Num
}

// Allocate returns the location for a w x h rectangle that does not
// overlap any previously-returned rectangle.
func (a *Atlas) Allocate(w, h int) (Placement, error) {
	if w <= 0 || h <= 0 {
		return Placement{Page: -1}, nil
	}
	if w > a.cfg.PageWidth || h > a.cfg.PageHeight {
		return Placement{Page: -1}, fmt.Errorf("%dx%d: %w (%dx%d)", w, h, ErrGlyphTooLarge,
			a.cfg.PageWidth, a.cfg.PageHeight)
	}

	// First look for an existing line with room.
	for _, page := range a.pages {
		for _, line := range page.Lines {
			if a.accepts(line.Height, h) && page.Bitmap.Width-line.CursorX >= w {
				return a.place(line, w, h), nil
			}
		}
	}

	// Otherwise start a new line, preferring the most recent page.
	for i := len(a.pages) - 1; i >= 0; i-- {
		if line := a.newLine(i, w, h); line != nil {
			return a.place(line, w, h), nil
		}
	}

	a.newPage()
	line := a.newLine(len(a.pages)-1, w, h)
	if line == nil {
		panic(fmt.Sprintf("unable to allocate %dx%d in an empty atlas page", w, h))
	}
	return a.place(line, w, h), nil
}

func (a *Atlas) place(line *FontLine, w, h int) Placement {
	p := Placement{Page: line.Page, X: line.CursorX, Y: line.Y, Width: w, Height: h}
	line.CursorX += w
	a.placements++
	a.usedArea += w * h
	return p
}

func (a *Atlas) newLine(pageIndex, w, h int) *FontLine {
	page := a.pages[pageIndex]
	if page.remainingHeight() < h || page.Bitmap.Width < w {
		return nil
	}

	line := a.lineArena.Alloc()
	if line == nil {
		panic(fmt.Sprintf("atlas line arena exhausted after %d lines", a.lineArena.Len()))
	}
	height := min(h*a.cfg.Grow.Num/a.cfg.Grow.Den, page.remainingHeight())
	*line = FontLine{Page: pageIndex, Y: page.LineCursorY, Height: max(height, h)}
	page.Lines = append(page.Lines, line)
	page.LineCursorY += line.Height
	return line
}

func (a *Atlas) newPage() *FontPage {
	page := &FontPage{Bitmap: NewBitmap(a.cfg.PageWidth, a.cfg.PageHeight, FormatR8)}
	a.pages = append(a.pages, page)
	a.lg.Debugf("atlas: created page %d (%dx%d)", len(a.pages)-1, a.cfg.PageWidth, a.cfg.PageHeight)
	return page
}

// newGlyph returns zeroed glyph storage from the atlas's arena.
func (a *Atlas) newGlyph() *Glyph {
	g := a.glyphArena.Alloc()
	if g == nil {
		panic(fmt.Sprintf("atlas glyph arena exhausted after %d glyphs", a.glyphArena.Len()))
	}
	return g
}

// CopyGlyph copies a bitmap whose first row is the top of the image into
// the placement, flipping it vertically so that the atlas's row 0 is at
// the bottom. stride gives the number of bytes between rows of src.
func (a *Atlas) CopyGlyph(pl Placement, src []byte, stride int) {
	if pl.Page < 0 {
		return
	}
	page := a.pages[pl.Page]
	dst := page.Bitmap
	for j := range pl.Height {
		srow := src[(pl.Height-1-j)*stride:]
		d := (pl.Y+j)*dst.Width + pl.X
		copy(dst.Pix[d:d+pl.Width], srow[:pl.Width])
	}

	page.DirtyRect = page.DirtyRect.Union(pl.Rect())
	page.Dirty = true
}

// Sync makes sure the page's texture exists and holds the current
// contents of its bitmap, returning the texture id.
func (a *Atlas) Sync(r Renderer, pageIndex int) uint32 {
	page := a.pages[pageIndex]
	if page.Texture == 0 {
		page.Texture = r.CreateTexture(page.Bitmap, LinearClampSampler)
	} else if page.Dirty {
		r.UpdateTexture(page.Texture, page.Bitmap, page.DirtyRect)
	}
	page.Dirty = false
	page.DirtyRect = image.Rectangle{}
	return page.Texture
}

// Dispose releases the pages' textures along with all of the pages and
// glyph and line storage. Glyphs returned by fonts that use the atlas
// must not be used afterward.
func (a *Atlas) Dispose(r Renderer) {
	for _, page := range a.pages {
		if page.Texture != 0 {
			r.DestroyTexture(page.Texture)
			page.Texture = 0
		}
	}
	a.pages = nil
	a.lineArena.Release()
	a.glyphArena.Release()
	a.placements, a.usedArea = 0, 0
}

// AtlasStats summarizes the atlas's contents.
type AtlasStats struct {
	Pages      int
	Lines      int
	Placements int
	// Utilization is the fraction of the pages' area covered by placed
	// rectangles.
	Utilization float32
	Glyphs      int
}

func (a *Atlas) Stats() AtlasStats {
	s := AtlasStats{Pages: len(a.pages), Placements: a.placements, Glyphs: a.glyphArena.Len()}
	s.Lines = util.ReduceSlice(a.pages, func(p *FontPage, n int) int { return n + len(p.Lines) }, 0)
	total := util.ReduceSlice(a.pages, func(p *FontPage, n int) int { return n + p.Bitmap.Width*p.Bitmap.Height }, 0)
	if total > 0 {
		s.Utilization = float32(a.usedArea) / float32(total)
	}
	return s
}

func (s AtlasStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("pages", s.Pages),
		slog.Int("lines", s.Lines),
		slog.Int("placements", s.Placements),
		slog.Int("glyphs", s.Glyphs),
		slog.Float64("utilization", float64(s.Utilization)))
}
