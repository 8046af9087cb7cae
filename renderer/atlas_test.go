// renderer/atlas_test.go
// Copyright(c) 2022-2024 vacation contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package renderer

import (
	"errors"
	"image"
	"math/rand/v2"
	"testing"

	"github.com/mmp/vacation/util"
)

func smallAtlasConfig(w, h int) AtlasConfig {
	cfg := DefaultAtlasConfig()
	cfg.PageWidth, cfg.PageHeight = w, h
	return cfg
}

func TestAtlasShelves(t *testing.T) {
	a := NewAtlas(smallAtlasConfig(100, 100), nil)

	type alloc struct {
		w, h     int
		expected Placement
	}
	for i, al := range []alloc{
		// First glyph: new page, line of height 22 at y=0.
		{10, 20, Placement{Page: 0, X: 0, Y: 0, Width: 10, Height: 20}},
		// 16*10 >= 22*7, so it goes in the same line.
		{10, 16, Placement{Page: 0, X: 10, Y: 0, Width: 10, Height: 16}},
		// 15 is too short for the first line; new line of height 16.
		{10, 15, Placement{Page: 0, X: 0, Y: 22, Width: 10, Height: 15}},
		// Too tall for either line.
		{10, 23, Placement{Page: 0, X: 0, Y: 38, Width: 10, Height: 23}},
		// Fits the band of the first line exactly at its top.
		{5, 22, Placement{Page: 0, X: 20, Y: 0, Width: 5, Height: 22}},
		// Too wide for what's left of the first line.
		{80, 20, Placement{Page: 0, X: 10, Y: 38, Width: 80, Height: 20}},
	} {
		pl, err := a.Allocate(al.w, al.h)
		if err != nil {
			t.Fatalf("%d: unexpected error %v", i, err)
		}
		if pl != al.expected {
			t.Errorf("%d: %dx%d: got %+v, expected %+v", i, al.w, al.h, pl, al.expected)
		}
	}

	if a.NumPages() != 1 {
		t.Errorf("expected 1 page, got %d", a.NumPages())
	}
	lines := a.Page(0).Lines
	heights := []int{22, 16, 25}
	if len(lines) != len(heights) {
		t.Fatalf("expected %d lines, got %d", len(heights), len(lines))
	}
	for i, l := range lines {
		if l.Height != heights[i] {
			t.Errorf("line %d: height %d, expected %d", i, l.Height, heights[i])
		}
	}
	if s := a.Stats(); s.Placements != 6 || s.Lines != 3 || s.Pages != 1 {
		t.Errorf("unexpected stats %+v", s)
	}
}

func TestAtlasAcceptanceBand(t *testing.T) {
	a := NewAtlas(smallAtlasConfig(64, 64), nil)
	for _, test := range []struct {
		line, h int
		accept  bool
	}{
		{10, 10, true},
		{10, 7, true},
		{10, 6, false},
		{10, 11, false},
		{20, 14, true},
		{20, 13, false},
		{11, 8, true},
		{11, 7, false},
	} {
		if got := a.accepts(test.line, test.h); got != test.accept {
			t.Errorf("line %d glyph %d: got %v, expected %v", test.line, test.h, got, test.accept)
		}
	}
}

func TestAtlasNewPages(t *testing.T) {
	a := NewAtlas(smallAtlasConfig(100, 30), nil)

	pl, _ := a.Allocate(10, 20) // page 0, line height 22
	if pl.Page != 0 {
		t.Fatalf("expected page 0, got %d", pl.Page)
	}
	pl, _ = a.Allocate(10, 25) // only 8 rows left in page 0
	if pl.Page != 1 || pl.Y != 0 {
		t.Fatalf("expected new page 1 at y 0, got %+v", pl)
	}
	if h := a.Page(1).Lines[0].Height; h != 27 {
		t.Errorf("expected line height 27, got %d", h)
	}

	// No line accepts a 5-high glyph and page 1 is full, so the new line
	// goes in page 0.
	pl, _ = a.Allocate(10, 5)
	if pl.Page != 0 || pl.Y != 22 {
		t.Errorf("expected page 0 at y 22, got %+v", pl)
	}
	if a.NumPages() != 2 {
		t.Errorf("expected 2 pages, got %d", a.NumPages())
	}
}

func TestAtlasLineHeightClampedToPage(t *testing.T) {
	a := NewAtlas(smallAtlasConfig(50, 21), nil)
	if _, err := a.Allocate(10, 20); err != nil {
		t.Fatal(err)
	}
	if h := a.Page(0).Lines[0].Height; h != 21 {
		t.Errorf("expected line height clamped to 21, got %d", h)
	}
}

func TestAtlasBadRequests(t *testing.T) {
	a := NewAtlas(smallAtlasConfig(32, 32), nil)

	for _, sz := range [][2]int{{0, 10}, {10, 0}, {0, 0}, {-1, 4}} {
		pl, err := a.Allocate(sz[0], sz[1])
		if err != nil || pl.Page != -1 {
			t.Errorf("%v: expected no placement and no error, got %+v, %v", sz, pl, err)
		}
	}
	for _, sz := range [][2]int{{33, 10}, {10, 33}} {
		if _, err := a.Allocate(sz[0], sz[1]); !errors.Is(err, ErrGlyphTooLarge) {
			t.Errorf("%v: expected ErrGlyphTooLarge, got %v", sz, err)
		}
	}
	if a.NumPages() != 0 {
		t.Errorf("expected no pages to be created, got %d", a.NumPages())
	}
}

func TestAtlasRandomPlacements(t *testing.T) {
	a := NewAtlas(smallAtlasConfig(256, 128), nil)
	r := rand.New(rand.NewPCG(1, 2))

	var placed []Placement
	for range 2000 {
		w, h := 1+r.IntN(24), 1+r.IntN(40)
		pl, err := a.Allocate(w, h)
		if err != nil {
			t.Fatal(err)
		}
		if pl.Width != w || pl.Height != h {
			t.Fatalf("%dx%d: placement %+v has the wrong size", w, h, pl)
		}
		placed = append(placed, pl)
	}

	for i, p := range placed {
		page := a.Page(p.Page)
		if !p.Rect().In(page.Bitmap.Bounds()) {
			t.Errorf("%+v: outside of page", p)
		}

		// Each placement must be in a line whose height accepts it.
		found := false
		for _, l := range page.Lines {
			if l.Y == p.Y {
				found = true
				if !a.accepts(l.Height, p.Height) {
					t.Errorf("%+v: not accepted by line of height %d", p, l.Height)
				}
			}
		}
		if !found {
			t.Errorf("%+v: no line at y", p)
		}

		for _, q := range placed[i+1:] {
			if p.Page == q.Page && p.Rect().Overlaps(q.Rect()) {
				t.Fatalf("%+v and %+v overlap", p, q)
			}
		}
	}

	s := a.Stats()
	if s.Placements != len(placed) {
		t.Errorf("expected %d placements, got %d", len(placed), s.Placements)
	}
	if s.Utilization <= 0 || s.Utilization > 1 {
		t.Errorf("utilization %f out of range", s.Utilization)
	}
}

func TestAtlasArenaExhaustion(t *testing.T) {
	cfg := smallAtlasConfig(64, 64)
	cfg.ArenaBytes = 1 // room for a single line and a single glyph
	a := NewAtlas(cfg, nil)

	if _, err := a.Allocate(8, 8); err != nil {
		t.Fatal(err)
	}
	// Same line.
	if _, err := a.Allocate(8, 8); err != nil {
		t.Fatal(err)
	}

	defer func() {
		if recover() == nil {
			t.Errorf("expected panic when the line arena is exhausted")
		}
	}()
	a.Allocate(8, 30)
}

func TestAtlasCopyAndSync(t *testing.T) {
	a := NewAtlas(smallAtlasConfig(16, 16), nil)
	r := NewHeadlessRenderer(nil)

	pl, _ := a.Allocate(2, 3)
	// Rows from the top down; stride 4 with padding.
	src := []byte{
		1, 2, 0xff, 0xff,
		3, 4, 0xff, 0xff,
		5, 6, 0xff, 0xff,
	}
	a.CopyGlyph(pl, src, 4)

	page := a.Page(pl.Page)
	if !page.Dirty || page.DirtyRect != image.Rect(0, 0, 2, 3) {
		t.Errorf("unexpected dirty state %v %v", page.Dirty, page.DirtyRect)
	}
	// Flipped: the atlas's first row holds the glyph's bottom row.
	pix := page.Bitmap.Pix
	for i, expected := range [][3]byte{{5, 6, 0}, {3, 4, 0}, {1, 2, 0}} {
		row := pix[i*16 : i*16+3]
		if [3]byte(row) != expected {
			t.Errorf("row %d: got %v, expected %v", i, row, expected)
		}
	}

	id := a.Sync(r, 0)
	if id == 0 || page.Texture != id || page.Dirty {
		t.Fatalf("Sync didn't create the texture: id %d dirty %v", id, page.Dirty)
	}
	if r.TextureUploads != 1 {
		t.Errorf("expected 1 upload, got %d", r.TextureUploads)
	}

	// Sync of a clean page is a no-op.
	if a.Sync(r, 0) != id || r.TextureUploads != 1 {
		t.Errorf("unexpected upload of a clean page")
	}

	pl2, _ := a.Allocate(2, 3)
	a.CopyGlyph(pl2, []byte{9, 9, 9, 9, 9, 9}, 2)
	if a.Sync(r, 0) != id {
		t.Errorf("texture id changed")
	}
	if r.TextureUploads != 2 {
		t.Errorf("expected 2 uploads, got %d", r.TextureUploads)
	}
	tex := r.Textures[id]
	if tex.Pix[pl2.Y*16+pl2.X] != 9 || tex.Pix[0] != 5 {
		t.Errorf("texture contents don't match the page")
	}

	a.Dispose(r)
	if len(r.Textures) != 0 || page.Texture != 0 {
		t.Errorf("Dispose didn't release page textures")
	}
	if s := a.Stats(); s.Pages != 0 || s.Lines != 0 || s.Placements != 0 || s.Glyphs != 0 || s.Utilization != 0 {
		t.Errorf("Dispose left atlas contents: %+v", s)
	}
}

func TestAtlasConfigValidate(t *testing.T) {
	for _, test := range []struct {
		modify func(c *AtlasConfig)
		valid  bool
	}{
		{func(c *AtlasConfig) {}, true},
		{func(c *AtlasConfig) { c.PageWidth = 0 }, false},
		{func(c *AtlasConfig) { c.Accept = Ratio{11, 10} }, false},
		{func(c *AtlasConfig) { c.Accept = Ratio{1, 0} }, false},
		{func(c *AtlasConfig) { c.Grow = Ratio{9, 10} }, false},
		{func(c *AtlasConfig) { c.Grow = Ratio{1, 1} }, true},
		{func(c *AtlasConfig) { c.ArenaBytes = 0 }, false},
	} {
		cfg := DefaultAtlasConfig()
		test.modify(&cfg)
		var e util.ErrorLogger
		cfg.Validate(&e)
		if e.HaveErrors() == test.valid {
			t.Errorf("%+v: expected valid %v, got errors %q", cfg, test.valid, e.String())
		}
	}
}
