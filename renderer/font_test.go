// renderer/font_test.go
// Copyright(c) 2022-2024 vacation contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package renderer

import (
	"slices"
	"testing"
	"testing/fstest"

	"golang.org/x/image/font/gofont/goregular"
)

func testFont(t *testing.T, size int, modify func(o *FontOptions)) *Font {
	t.Helper()

	fsys := fstest.MapFS{"fonts/goregular.ttf": &fstest.MapFile{Data: goregular.TTF}}
	opts := DefaultFontOptions()
	if modify != nil {
		modify(&opts)
	}
	reg := NewFontRegistry(fsys, NewAtlas(DefaultAtlasConfig(), nil), opts, nil)
	f, err := reg.LoadFont("goregular", size)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestFontMetrics(t *testing.T) {
	f := testFont(t, 16, nil)

	if f.CharacterHeight != 16 {
		t.Errorf("character height %d, expected 16", f.CharacterHeight)
	}
	if f.LineSpacing < 16 || f.LineSpacing > 24 {
		t.Errorf("line spacing %d out of range", f.LineSpacing)
	}
	if f.MaxAscender <= 0 || f.MaxDescender >= 0 {
		t.Errorf("unexpected ascender/descender %d %d", f.MaxAscender, f.MaxDescender)
	}
	if f.TypicalAscender <= 0 || f.TypicalAscender > f.MaxAscender {
		t.Errorf("typical ascender %d not in (0, %d]", f.TypicalAscender, f.MaxAscender)
	}
	if f.TypicalDescender >= 0 || f.TypicalDescender < f.MaxDescender {
		t.Errorf("typical descender %d not in [%d, 0)", f.TypicalDescender, f.MaxDescender)
	}
	if f.EmWidth <= 0 || f.XAdvance < f.EmWidth {
		t.Errorf("em width %d, x advance %d", f.EmWidth, f.XAdvance)
	}
	if f.YOffsetForCentering <= 0 || f.YOffsetForCentering > f.TypicalAscender {
		t.Errorf("centering offset %d", f.YOffsetForCentering)
	}
}

func TestFontGlyphCache(t *testing.T) {
	f := testFont(t, 16, nil)

	g := f.Glyph('a')
	if g.Missing || g.Page != 0 || g.Width <= 0 || g.Height <= 0 || g.Advance <= 0 {
		t.Fatalf("unexpected glyph %+v", g)
	}
	if g.AtlasWidth != 3*g.Width {
		t.Errorf("subpixel glyph atlas width %d, expected %d", g.AtlasWidth, 3*g.Width)
	}
	if f.Glyph('a') != g {
		t.Errorf("glyph not cached")
	}
	if f.NumGlyphs() != 1 {
		t.Errorf("expected 1 glyph, got %d", f.NumGlyphs())
	}

	sp := f.Glyph(' ')
	if sp.Page != -1 || sp.Advance <= 0 || sp.Missing {
		t.Errorf("unexpected space glyph %+v", sp)
	}

	if s := f.Atlas().Stats(); s.Placements != 1 || s.Glyphs != 2 {
		t.Errorf("unexpected atlas stats %+v", s)
	}
}

func TestFontGrayscale(t *testing.T) {
	f := testFont(t, 16, func(o *FontOptions) { o.RenderMode = Grayscale })
	g := f.Glyph('W')
	if g.AtlasWidth != g.Width {
		t.Errorf("grayscale atlas width %d != width %d", g.AtlasWidth, g.Width)
	}

	// The mask should have some fully covered texels.
	page := f.Atlas().Page(g.Page)
	maxv := byte(0)
	for y := g.Y0; y < g.Y0+g.Height; y++ {
		for x := g.X0; x < g.X0+g.AtlasWidth; x++ {
			maxv = max(maxv, page.Bitmap.Pix[y*page.Bitmap.Width+x])
		}
	}
	if maxv < 0xf0 {
		t.Errorf("max coverage %d; expected a solid glyph", maxv)
	}
}

func TestFontHelloSingleLine(t *testing.T) {
	f := testFont(t, 32, nil)
	f.PrepareText("Hello")

	// 'H' opens the first line and the remaining glyphs' heights are
	// within its accepted band.
	s := f.Atlas().Stats()
	if s.Pages != 1 || s.Lines != 1 || s.Placements != 4 {
		t.Errorf("expected 1 page, 1 line, 4 placements; got %+v", s)
	}
	page := f.Atlas().Page(0)
	if len(page.Lines) != 1 || page.Lines[0].Y != 0 {
		t.Fatalf("unexpected lines %+v", page.Lines)
	}
	h := f.Glyph('H')
	if page.Lines[0].Height < h.Height {
		t.Errorf("line height %d is less than H's height %d", page.Lines[0].Height, h.Height)
	}
	x := 0
	for _, r := range "Helo" {
		g := f.Glyph(r)
		if g.Y0 != 0 || g.X0 != x {
			t.Errorf("%c at (%d, %d), expected (%d, 0)", r, g.X0, g.Y0, x)
		}
		x += g.AtlasWidth
	}
}

func TestFontHello(t *testing.T) {
	f := testFont(t, 16, nil)

	w := f.PrepareText("Hello")
	expected := 0
	for _, r := range "Hello" {
		expected += f.Glyph(r).Advance
	}
	if !f.HasKerning() && w != expected {
		t.Errorf("width %d, expected sum of advances %d", w, expected)
	}
	if f.ConversionFailed() {
		t.Errorf("unexpected conversion failure")
	}

	a := f.Atlas()
	if a.NumPages() != 1 {
		t.Errorf("expected 1 page, got %d", a.NumPages())
	}
	// "l" is only rasterized once.
	if s := a.Stats(); s.Placements != 4 {
		t.Errorf("expected 4 placements, got %d", s.Placements)
	}

	end := f.GenerateQuads(10, 100)
	quads := f.Quads()
	if len(quads) != 5 {
		t.Fatalf("expected 5 quads, got %d", len(quads))
	}
	if end != float32(10+w) {
		t.Errorf("final pen x %f, expected %d", end, 10+w)
	}
	if quads[2].Glyph != quads[3].Glyph || quads[2].U0 != quads[3].U0 {
		t.Errorf("the two l's should share a glyph")
	}

	for i, q := range quads {
		g := q.Glyph
		if q.P1[0]-q.P0[0] != float32(g.Width) || q.P3[1]-q.P0[1] != float32(g.Height) {
			t.Errorf("%d: quad size doesn't match glyph %+v", i, g)
		}
		if q.P2[1] != 100+float32(g.Ascent) {
			t.Errorf("%d: top %f, expected %f", i, q.P2[1], 100+float32(g.Ascent))
		}
		if q.U1 <= q.U0 || q.V1 <= q.V0 || q.U1 > 1 || q.V1 > 1 {
			t.Errorf("%d: bad texture coordinates %+v", i, q)
		}
		if i > 0 && q.P0[0] < quads[i-1].P0[0] {
			t.Errorf("%d: quads not left to right", i)
		}
	}

	// Different glyphs have disjoint atlas rectangles.
	seen := make(map[*Glyph]bool)
	var rects []Placement
	for _, q := range quads {
		g := q.Glyph
		if seen[g] {
			continue
		}
		seen[g] = true
		pl := Placement{Page: g.Page, X: g.X0, Y: g.Y0, Width: g.AtlasWidth, Height: g.Height}
		for _, r := range rects {
			if r.Rect().Overlaps(pl.Rect()) {
				t.Errorf("%+v overlaps %+v", pl, r)
			}
		}
		rects = append(rects, pl)
	}
}

func TestFontSpacesAndControls(t *testing.T) {
	f := testFont(t, 16, nil)

	w := f.PrepareText("a b")
	f.GenerateQuads(0, 0)
	if n := len(f.Quads()); n != 2 {
		t.Errorf("expected 2 quads, got %d", n)
	}
	// The space's advance still moves the pen.
	if gap := f.Quads()[1].P0[0] - f.Quads()[0].P0[0]; gap <= float32(f.Glyph('a').Advance) {
		t.Errorf("gap %f doesn't include the space's advance", gap)
	}
	if w != f.TextWidth("a b") {
		t.Errorf("PrepareText width %d != TextWidth %d", w, f.TextWidth("a b"))
	}

	nl := f.Glyph('\n')
	if nl.Missing || nl.Page < 0 {
		t.Errorf("newline should be drawn with a visible glyph: %+v", nl)
	}

	if n := f.PrepareText(""); n != 0 {
		t.Errorf("empty string width %d", n)
	}
	if f.GenerateQuads(5, 5) != 5 || len(f.Quads()) != 0 {
		t.Errorf("empty string generated quads")
	}
}

func TestFontUnknownCharacters(t *testing.T) {
	f := testFont(t, 16, nil)

	// Private use area; not in the font.
	w := f.PrepareText("a\ue000b")
	if !f.ConversionFailed() {
		t.Errorf("expected conversion failure")
	}
	g := f.Glyph('\ue000')
	if !g.Missing || g.Advance <= 0 {
		t.Errorf("unexpected unknown glyph %+v", g)
	}
	if w <= f.TextWidth("ab") {
		t.Errorf("unknown character should take up space")
	}

	f.PrepareText("ab")
	if f.ConversionFailed() {
		t.Errorf("conversion failure flag not reset")
	}

	f.TextWidth("\ue000")
	if !f.ConversionFailed() {
		t.Errorf("TextWidth should set the conversion failure flag")
	}
	// Cached width.
	f.TextWidth("ab")
	f.TextWidth("\ue000")
	if !f.ConversionFailed() {
		t.Errorf("cached TextWidth should set the conversion failure flag")
	}

	// Invalid UTF-8 decodes to U+FFFD.
	f.PrepareText("a\xffb")
	f.GenerateQuads(0, 0)
	if n := len(f.Quads()); n != 3 {
		t.Errorf("expected 3 quads for invalid UTF-8, got %d", n)
	}

	missing := f.MissingCharacters()
	if !slices.Contains(missing, '\ue000') || slices.Contains(missing, 'a') || !slices.IsSorted(missing) {
		t.Errorf("unexpected missing characters %q", missing)
	}

	if f.SetUnknownCharacter('\ue001') {
		t.Errorf("SetUnknownCharacter succeeded for a character not in the font")
	}
	if !f.SetUnknownCharacter('?') {
		t.Errorf("SetUnknownCharacter failed for '?'")
	}
}

func TestFontBoundText(t *testing.T) {
	f := testFont(t, 12, nil)

	w, h := f.BoundText("one", 0)
	if w != f.TextWidth("one") || h != f.LineSpacing {
		t.Errorf("single line: got %d x %d", w, h)
	}

	w, h = f.BoundText("a\nmuch longer line\nb", 2)
	if w != f.TextWidth("much longer line") {
		t.Errorf("width %d, expected the longest line's", w)
	}
	if h != 3*f.LineSpacing+4 {
		t.Errorf("height %d, expected %d", h, 3*f.LineSpacing+4)
	}
}

func TestFontNormalization(t *testing.T) {
	f := testFont(t, 16, func(o *FontOptions) { o.NormalizeNFC = true })

	// "e" followed by a combining acute accent composes to U+00E9.
	f.PrepareText("e\u0301")
	f.GenerateQuads(0, 0)
	if n := len(f.Quads()); n != 1 {
		t.Fatalf("expected 1 quad after normalization, got %d", n)
	}
	if r := f.Quads()[0].Glyph.Rune; r != 'é' {
		t.Errorf("got %U, expected U+00E9", r)
	}
}

func TestFontWidthCacheDisabled(t *testing.T) {
	f := testFont(t, 16, func(o *FontOptions) { o.WidthCacheSize = 0 })
	if f.TextWidth("abc") != f.PrepareText("abc") {
		t.Errorf("widths differ with the cache disabled")
	}
}

func TestIsLatin(t *testing.T) {
	for _, test := range []struct {
		r     rune
		latin bool
	}{
		{'a', true},
		{'é', true},
		{'ǿ', true},
		{'\u2014', true},
		{'€', true},
		{'Ω', false},
		{'ж', false},
		{'中', false},
	} {
		if IsLatin(test.r) != test.latin {
			t.Errorf("%U: expected %v", test.r, test.latin)
		}
	}
}

func TestFontTextWidthMatchesQuads(t *testing.T) {
	f := testFont(t, 20, nil)

	for _, s := range []string{"Hello", "AVATAR Tokyo", "  spaced  out ", "x", "", "Ünïcödé"} {
		w := f.TextWidth(s)
		if pw := f.PrepareText(s); pw != w {
			t.Errorf("%q: PrepareText width %d, TextWidth %d", s, pw, w)
		}
		// Measuring again comes from the memo cache.
		if w2 := f.TextWidth(s); w2 != w {
			t.Errorf("%q: cached width %d, expected %d", s, w2, w)
		}
		if end := f.GenerateQuads(5, 0); end-5 != float32(w) {
			t.Errorf("%q: quads span %f, expected %d", s, end-5, w)
		}
	}
}

func TestFontSizesHaveIndependentGlyphs(t *testing.T) {
	fsys := fstest.MapFS{"fonts/goregular.ttf": &fstest.MapFile{Data: goregular.TTF}}
	reg := NewFontRegistry(fsys, NewAtlas(DefaultAtlasConfig(), nil), DefaultFontOptions(), nil)

	small, err := reg.LoadFont("goregular", 16)
	if err != nil {
		t.Fatal(err)
	}
	large, err := reg.LoadFont("goregular", 32)
	if err != nil {
		t.Fatal(err)
	}

	gs, gl := small.Glyph('g'), large.Glyph('g')
	if gs == gl {
		t.Fatalf("fonts of different sizes returned the same glyph")
	}
	if gl.Height <= gs.Height {
		t.Errorf("larger font has glyph height %d <= %d", gl.Height, gs.Height)
	}
	ps := Placement{Page: gs.Page, X: gs.X0, Y: gs.Y0, Width: gs.AtlasWidth, Height: gs.Height}
	pl := Placement{Page: gl.Page, X: gl.X0, Y: gl.Y0, Width: gl.AtlasWidth, Height: gl.Height}
	if ps.Page == pl.Page && ps.Rect().Overlaps(pl.Rect()) {
		t.Errorf("placements %+v and %+v overlap", ps, pl)
	}
	if small.NumGlyphs() != 1 || large.NumGlyphs() != 1 {
		t.Errorf("expected one glyph in each font, got %d and %d", small.NumGlyphs(), large.NumGlyphs())
	}
	if small.Glyph('g') != gs || large.Glyph('g') != gl {
		t.Errorf("glyph caches not stable")
	}
}
