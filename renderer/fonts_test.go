// renderer/fonts_test.go
// Copyright(c) 2022-2024 vacation contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package renderer

import (
	"context"
	"errors"
	"io/fs"
	"slices"
	"testing"
	"testing/fstest"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/mmp/vacation/util"
)

func testFontFS(t *testing.T) fstest.MapFS {
	t.Helper()

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer enc.Close()

	return fstest.MapFS{
		"fonts/goregular.ttf":  &fstest.MapFile{Data: goregular.TTF},
		"fonts/packed.otf.zst": &fstest.MapFile{Data: enc.EncodeAll(goregular.TTF, nil)},
		"fonts/broken.ttf":     &fstest.MapFile{Data: []byte("not a font")},
		"fonts/dir.ttf/x":      &fstest.MapFile{Data: []byte("x")},
	}
}

func TestFontRegistryLoad(t *testing.T) {
	reg := NewFontRegistry(testFontFS(t), NewAtlas(DefaultAtlasConfig(), nil), DefaultFontOptions(), nil)

	f, err := reg.LoadFont("goregular", 14)
	if err != nil {
		t.Fatal(err)
	}
	if f2, _ := reg.LoadFont("goregular", 14); f2 != f {
		t.Errorf("second LoadFont returned a different font")
	}
	if f3 := reg.GetFontAtSize("goregular", 20); f3 == nil || f3 == f {
		t.Errorf("expected a new font for a different size")
	}

	fz, err := reg.LoadFont("packed", 14)
	if err != nil {
		t.Fatalf("zstd font: %v", err)
	}
	if fz.TextWidth("Hello") != f.TextWidth("Hello") {
		t.Errorf("compressed font measures differently")
	}

	expected := []FontIdentifier{{"goregular", 14}, {"goregular", 20}, {"packed", 14}}
	if ids := reg.Fonts(); !slices.Equal(ids, expected) {
		t.Errorf("Fonts() = %v, expected %v", ids, expected)
	}

	// All fonts share the registry's atlas.
	if fz.Atlas() != reg.Atlas() || f.Atlas() != reg.Atlas() {
		t.Errorf("fonts don't share the registry atlas")
	}
}

func TestFontRegistryErrors(t *testing.T) {
	reg := NewFontRegistry(testFontFS(t), NewAtlas(DefaultAtlasConfig(), nil), DefaultFontOptions(), nil)

	_, err := reg.LoadFont("missing", 12)
	if !errors.Is(err, ErrFontNotFound) || !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("missing font: unexpected error %v", err)
	}
	if reg.GetFontAtSize("missing", 12) != nil {
		t.Errorf("expected nil for a missing font")
	}

	// A directory named like a font file is not a font.
	if _, err := reg.LoadFont("dir", 12); !errors.Is(err, ErrFontNotFound) {
		t.Errorf("directory: unexpected error %v", err)
	}

	if _, err := reg.LoadFont("broken", 12); !errors.Is(err, ErrUnsupportedFontFormat) {
		t.Errorf("broken font: unexpected error %v", err)
	}

	if _, err := reg.LoadFont("goregular", 0); err == nil {
		t.Errorf("expected error for zero font size")
	}

	if len(reg.Fonts()) != 0 {
		t.Errorf("no fonts should have been registered: %v", reg.Fonts())
	}
}

func TestFontRegistryBuiltinFallback(t *testing.T) {
	opts := DefaultFontOptions()
	opts.BuiltinFallback = true
	reg := NewFontRegistry(fstest.MapFS{}, NewAtlas(DefaultAtlasConfig(), nil), opts, nil)

	f, err := reg.LoadFont("anything", 16)
	if err != nil {
		t.Fatal(err)
	}
	if f.TextWidth("abc") <= 0 {
		t.Errorf("fallback font has no width")
	}
}

func TestFontRegistryPreload(t *testing.T) {
	reg := NewFontRegistry(testFontFS(t), NewAtlas(DefaultAtlasConfig(), nil), DefaultFontOptions(), nil)

	if err := reg.Preload(context.Background(), []string{"goregular", "packed"}); err != nil {
		t.Fatal(err)
	}
	if len(reg.faces) != 2 {
		t.Errorf("expected 2 parsed faces, got %d", len(reg.faces))
	}
	if len(reg.Fonts()) != 0 {
		t.Errorf("Preload shouldn't create font instances")
	}

	if err := reg.Preload(context.Background(), []string{"goregular", "missing"}); !errors.Is(err, ErrFontNotFound) {
		t.Errorf("expected ErrFontNotFound, got %v", err)
	}
}

func TestFontRegistryDispose(t *testing.T) {
	reg := NewFontRegistry(testFontFS(t), NewAtlas(DefaultAtlasConfig(), nil), DefaultFontOptions(), nil)
	r := NewHeadlessRenderer(nil)

	f, err := reg.LoadFont("goregular", 16)
	if err != nil {
		t.Fatal(err)
	}
	f.PrepareText("xyz")
	reg.Atlas().Sync(r, 0)
	if len(r.Textures) != 1 {
		t.Fatalf("expected 1 texture, got %d", len(r.Textures))
	}

	reg.Dispose(r)
	if len(r.Textures) != 0 {
		t.Errorf("Dispose left %d textures", len(r.Textures))
	}
	if len(reg.Fonts()) != 0 || reg.Atlas().Stats().Glyphs != 0 {
		t.Errorf("Dispose left fonts %v, glyphs %d", reg.Fonts(), reg.Atlas().Stats().Glyphs)
	}
}

func TestFontOptionsValidate(t *testing.T) {
	for _, test := range []struct {
		modify func(o *FontOptions)
		valid  bool
	}{
		{func(o *FontOptions) {}, true},
		{func(o *FontOptions) { o.RenderMode = 7 }, false},
		{func(o *FontOptions) { o.WidthCacheSize = -1 }, false},
		{func(o *FontOptions) { o.Dir = "../fonts" }, false},
		{func(o *FontOptions) { o.Dir = "assets/fonts" }, true},
	} {
		opts := DefaultFontOptions()
		test.modify(&opts)
		var e util.ErrorLogger
		opts.Validate(&e)
		if e.HaveErrors() == test.valid {
			t.Errorf("%+v: expected valid %v, got %q", opts, test.valid, e.String())
		}
	}
}
