// renderer/font.go
// Copyright(c) 2022-2024 vacation contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package renderer

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/unicode/norm"

	"github.com/mmp/vacation/log"
	"github.com/mmp/vacation/math"
	"github.com/mmp/vacation/util"
)

// FontIdentifier is used for looking up fonts in a FontRegistry.
type FontIdentifier struct {
	Name string
	Size int
}

func (id FontIdentifier) String() string {
	return fmt.Sprintf("%s@%d", id.Name, id.Size)
}

// Glyph stores the atlas location and layout metrics of a rasterized
// character. Glyphs are created on first use and never change after
// that.
type Glyph struct {
	Rune  rune
	Index sfnt.GlyphIndex
	// Page is the index of the atlas page holding the glyph's bitmap, or
	// -1 if it has none (e.g., for a space).
	Page int
	// Location of the bitmap in the page, in texels.
	X0, Y0 int
	// Width and Height give the glyph's size in pixels. AtlasWidth is the
	// width of its bitmap in texels, which is larger than Width with
	// subpixel rendering.
	Width, Height int
	AtlasWidth    int
	// Advance is the distance to move the pen after the glyph, OffsetX is
	// the offset from the pen to the bitmap's left edge, and Ascent is
	// the distance from the baseline up to the bitmap's top row.
	Advance int
	OffsetX int
	Ascent  int
	// Missing is set when the font has no glyph for Rune and the unknown
	// character glyph is used instead.
	Missing bool
}

// FontQuad is a positioned glyph. P0-P3 are the lower-left, lower-right,
// upper-right, and upper-left corners.
type FontQuad struct {
	P0, P1, P2, P3 [2]float32
	U0, V0, U1, V1 float32
	Glyph          *Glyph
}

// UVs returns the per-corner texture coordinates matching P0-P3.
func (q FontQuad) UVs() [4][2]float32 {
	return [4][2]float32{{q.U0, q.V0}, {q.U1, q.V0}, {q.U1, q.V1}, {q.U0, q.V1}}
}

type preparedGlyph struct {
	glyph *Glyph
	kern  int
}

type textWidth struct {
	width  int
	failed bool
}

// Font is a font at a specific pixel size. Its glyphs are rasterized on
// demand and packed into the registry's shared atlas.
//
// A Font is not safe for concurrent use; the glyph sequence and quads
// returned by PrepareText and GenerateQuads are overwritten by subsequent
// calls.
type Font struct {
	Id FontIdentifier

	// Metrics, in pixels.
	CharacterHeight     int
	LineSpacing         int
	MaxAscender         int
	MaxDescender        int
	TypicalAscender     int
	TypicalDescender    int
	EmWidth             int
	XAdvance            int
	YOffsetForCentering int

	face         *sfnt.Font
	buf          sfnt.Buffer
	ppem         fixed.Int26_6
	hasKerning   bool
	unknownIndex sfnt.GlyphIndex

	atlas  *Atlas
	glyphs *util.HashTable[rune, *Glyph]
	raster glyphRasterizer
	nfc    bool

	prepared []preparedGlyph
	quads    []FontQuad
	failed   bool
	widths   *lru.Cache[string, textWidth]

	lg *log.Logger
}

// newFont sets up a font for the given face at the size in id.
func newFont(id FontIdentifier, face *fontFace, atlas *Atlas, opts FontOptions, lg *log.Logger) (*Font, error) {
	if id.Size <= 0 {
		return nil, fmt.Errorf("%s: invalid font size %d", id.Name, id.Size)
	}

	f := &Font{
		Id:         id,
		face:       face.Font,
		hasKerning: face.kerning,
		ppem:       fixed.I(id.Size),
		atlas:      atlas,
		glyphs:     util.NewHashTable[rune, *Glyph](util.HashRune),
		raster:     glyphRasterizer{mode: opts.RenderMode, filter: opts.LCDFilter},
		nfc:        opts.NormalizeNFC,
		lg:         lg.With(slog.String("font", id.String())),
	}
	if opts.WidthCacheSize > 0 {
		var err error
		if f.widths, err = lru.New[string, textWidth](opts.WidthCacheSize); err != nil {
			return nil, err
		}
	}

	if err := f.loadFont(); err != nil {
		return nil, err
	}
	return f, nil
}

// loadFont computes the font's metrics at its pixel size.
func (f *Font) loadFont() error {
	f.CharacterHeight = f.Id.Size

	m, err := f.face.Metrics(&f.buf, f.ppem, font.HintingNone)
	if err != nil {
		return fmt.Errorf("%s: %w", f.Id, err)
	}
	f.LineSpacing = math.Round26_6(m.Height)

	bounds, err := f.face.Bounds(&f.buf, f.ppem, font.HintingNone)
	if err != nil {
		return fmt.Errorf("%s: %w", f.Id, err)
	}
	// Bounds has y increasing downward.
	f.MaxAscender = math.Round26_6(-bounds.Min.Y)
	f.MaxDescender = math.Round26_6(-bounds.Max.Y)

	if b, _, ok := f.runeBounds('m'); ok {
		f.YOffsetForCentering = math.Round(0.5 * float32(math.Round26_6(-b.Min.Y)))
	}
	if b, adv, ok := f.runeBounds('M'); ok {
		f.EmWidth = math.Round26_6(b.Max.X - b.Min.X)
		f.XAdvance = math.Round26_6(adv)
	}
	if b, _, ok := f.runeBounds('T'); ok {
		f.TypicalAscender = math.Round26_6(-b.Min.Y)
	}
	if b, _, ok := f.runeBounds('g'); ok {
		f.TypicalDescender = math.Round26_6(-b.Max.Y)
	}

	if !f.SetUnknownCharacter(0xfffd) && // replacement character
		!f.SetUnknownCharacter(0x2022) && // bullet
		!f.SetUnknownCharacter('?') {
		f.lg.Errorf("%s: unable to set unknown character", f.Id)
	}

	return nil
}

func (f *Font) runeBounds(r rune) (fixed.Rectangle26_6, fixed.Int26_6, bool) {
	idx, err := f.face.GlyphIndex(&f.buf, r)
	if err != nil || idx == 0 {
		return fixed.Rectangle26_6{}, 0, false
	}
	b, adv, err := f.face.GlyphBounds(&f.buf, idx, f.ppem, font.HintingNone)
	if err != nil {
		return fixed.Rectangle26_6{}, 0, false
	}
	return b, adv, true
}

// SetUnknownCharacter sets the glyph used for characters that the font
// doesn't have. It returns false if the font doesn't have r either.
func (f *Font) SetUnknownCharacter(r rune) bool {
	idx, err := f.face.GlyphIndex(&f.buf, r)
	if err != nil || idx == 0 {
		return false
	}
	f.unknownIndex = idx
	return true
}

func (f *Font) HasKerning() bool { return f.hasKerning }

// ConversionFailed returns true if the most recently prepared or measured
// text had characters that the font couldn't represent.
func (f *Font) ConversionFailed() bool { return f.failed }

// NumGlyphs returns the number of glyphs that have been created.
func (f *Font) NumGlyphs() int { return f.glyphs.Len() }

// MissingCharacters returns the characters requested so far that the
// font has no glyph for, in increasing order.
func (f *Font) MissingCharacters() []rune {
	var missing []rune
	f.glyphs.Range(func(r rune, g *Glyph) bool {
		if g.Missing {
			missing = append(missing, r)
		}
		return true
	})
	slices.Sort(missing)
	return missing
}

// Glyph returns the glyph for r, rasterizing it and adding it to the atlas
// the first time it is requested.
func (f *Font) Glyph(r rune) *Glyph {
	if g, ok := f.glyphs.Find(r); ok {
		return g
	}
	g := f.createGlyph(r)
	f.glyphs.Add(r, g)
	return g
}

func (f *Font) createGlyph(r rune) *Glyph {
	// Control characters that are shown as visible placeholders.
	lookup := r
	switch r {
	case '\t':
		lookup = '→'
	case '\n':
		lookup = '¶'
	}

	g := f.atlas.newGlyph()
	*g = Glyph{Rune: r, Page: -1}

	idx, err := f.face.GlyphIndex(&f.buf, lookup)
	if err != nil || idx == 0 {
		f.lg.Errorf("%s: no glyph for character %U", f.Id, lookup)
		idx = f.unknownIndex
		g.Missing = true
	}
	g.Index = idx

	if adv, err := f.face.GlyphAdvance(&f.buf, idx, f.ppem, font.HintingNone); err == nil {
		g.Advance = math.Floor26_6(adv)
	} else {
		f.lg.Errorf("%s: %U: %v", f.Id, lookup, err)
	}

	segs, err := f.face.LoadGlyph(&f.buf, idx, f.ppem, nil)
	if err != nil {
		f.lg.Errorf("%s: %U: %v", f.Id, lookup, err)
		return g
	}
	rg := f.raster.rasterize(segs)
	g.Width, g.Height, g.AtlasWidth = rg.width, rg.height, rg.texelWidth
	g.OffsetX, g.Ascent = rg.left, rg.top

	pl, err := f.atlas.Allocate(rg.texelWidth, rg.height)
	if err != nil {
		f.lg.Errorf("%s: %U: %v", f.Id, lookup, err)
		return g
	}
	if pl.Page >= 0 {
		f.atlas.CopyGlyph(pl, rg.mask.Pix, rg.mask.Stride)
		g.Page, g.X0, g.Y0 = pl.Page, pl.X, pl.Y
	}
	return g
}

func (f *Font) normalize(s string) string {
	if f.nfc && !norm.NFC.IsNormalString(s) {
		return norm.NFC.String(s)
	}
	return s
}

func (f *Font) kern(prev, cur *Glyph) int {
	if !f.hasKerning || prev == nil {
		return 0
	}
	k, err := f.face.Kern(&f.buf, prev.Index, cur.Index, f.ppem, font.HintingNone)
	if err != nil {
		return 0
	}
	return math.Floor26_6(k)
}

// PrepareText converts the text to a sequence of glyphs, which is
// retained for a subsequent call to GenerateQuads, and returns its width
// in pixels. Invalid UTF-8 is shown using the unknown character.
func (f *Font) PrepareText(s string) int {
	f.failed = false
	f.prepared = f.prepared[:0]

	width := 0
	var prev *Glyph
	for _, r := range f.normalize(s) {
		g := f.Glyph(r)
		k := f.kern(prev, g)
		f.prepared = append(f.prepared, preparedGlyph{glyph: g, kern: k})
		width += g.Advance + k
		if g.Missing {
			f.failed = true
		}
		prev = g
	}
	return width
}

// TextWidth returns the width of the text in pixels, as PrepareText does,
// without changing the prepared glyph sequence.
func (f *Font) TextWidth(s string) int {
	if f.widths != nil {
		if tw, ok := f.widths.Get(s); ok {
			f.failed = tw.failed
			return tw.width
		}
	}

	f.failed = false
	width := 0
	var prev *Glyph
	for _, r := range f.normalize(s) {
		g := f.Glyph(r)
		width += g.Advance + f.kern(prev, g)
		if g.Missing {
			f.failed = true
		}
		prev = g
	}

	if f.widths != nil {
		f.widths.Add(s, textWidth{width: width, failed: f.failed})
	}
	return width
}

// BoundText returns the width and height of possibly multi-line text,
// with the given number of pixels of extra spacing between lines.
func (f *Font) BoundText(s string, spacing int) (int, int) {
	w, h := 0, 0
	for i, line := range strings.Split(s, "\n") {
		w = max(w, f.TextWidth(line))
		if i > 0 {
			h += spacing
		}
		h += f.LineSpacing
	}
	return w, h
}

// GenerateQuads lays out the most recently prepared text with its pen
// starting at (x, y), where y is the baseline and y increases upward. It
// returns the final pen x position. The quads are available from Quads
// until the next call.
func (f *Font) GenerateQuads(x, y float32) float32 {
	f.quads = f.quads[:0]

	sx, sy := x, y
	for _, pg := range f.prepared {
		g := pg.glyph
		sx += float32(pg.kern)

		if g.Page >= 0 {
			page := f.atlas.Page(g.Page)
			pw, ph := float32(page.Bitmap.Width), float32(page.Bitmap.Height)

			sx1 := sx + float32(g.OffsetX)
			sx2 := sx1 + float32(g.Width)
			sy2 := sy + float32(g.Ascent)
			sy1 := sy2 - float32(g.Height)

			f.quads = append(f.quads, FontQuad{
				P0:    [2]float32{sx1, sy1},
				P1:    [2]float32{sx2, sy1},
				P2:    [2]float32{sx2, sy2},
				P3:    [2]float32{sx1, sy2},
				U0:    float32(g.X0) / pw,
				U1:    float32(g.X0+g.AtlasWidth) / pw,
				V0:    float32(g.Y0) / ph,
				V1:    float32(g.Y0+g.Height) / ph,
				Glyph: g,
			})
		}

		sx += float32(g.Advance)
	}
	return sx
}

// Quads returns the quads from the last call to GenerateQuads.
func (f *Font) Quads() []FontQuad {
	return f.quads
}

// Atlas returns the atlas the font's glyphs are stored in.
func (f *Font) Atlas() *Atlas {
	return f.atlas
}

// IsLatin returns true for characters in the Latin blocks through Latin
// Extended-B as well as general punctuation, currency symbols, and number
// forms.
func IsLatin(r rune) bool {
	return r <= 0x24f || (r >= 0x2000 && r <= 0x218f)
}
