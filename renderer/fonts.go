// renderer/fonts.go
// Copyright(c) 2022-2024 vacation contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package renderer

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"
	"sync"

	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/sync/errgroup"

	"github.com/mmp/vacation/log"
	"github.com/mmp/vacation/util"
)

// Font files are searched for with these extensions, in order.
var fontExtensions = []string{".ttf", ".otf", ".ttf.zst", ".otf.zst"}

// FontOptions controls how fonts are found and rendered.
type FontOptions struct {
	// Dir is the directory in the registry's filesystem that holds the
	// font files.
	Dir        string     `json:"dir"`
	RenderMode RenderMode `json:"render_mode"`
	// LCDFilter applies a filter to subpixel-rendered glyphs to reduce
	// color fringes.
	LCDFilter    bool `json:"lcd_filter"`
	NormalizeNFC bool `json:"normalize_nfc"`
	// BuiltinFallback causes the Go Regular font to be used for fonts
	// that aren't found in Dir.
	BuiltinFallback bool `json:"builtin_fallback"`
	// WidthCacheSize is the number of strings for which each font
	// remembers the width; zero disables the cache.
	WidthCacheSize int `json:"width_cache_size"`
}

func DefaultFontOptions() FontOptions {
	return FontOptions{
		Dir:            "fonts",
		RenderMode:     Subpixel,
		LCDFilter:      true,
		WidthCacheSize: 256,
	}
}

func (o *FontOptions) Validate(e *util.ErrorLogger) {
	e.Push("fonts")
	defer e.Pop()

	if o.RenderMode != Subpixel && o.RenderMode != Grayscale {
		e.ErrorString("render_mode %d: must be 0 (subpixel) or 1 (grayscale)", o.RenderMode)
	}
	if o.WidthCacheSize < 0 {
		e.ErrorString("width_cache_size %d must not be negative", o.WidthCacheSize)
	}
	if !fs.ValidPath(path.Clean(o.Dir)) {
		e.ErrorString("dir %q: invalid path", o.Dir)
	}
}

// FontRegistry owns the glyph atlas and all of the fonts that use it.
// There is one Font for each (name, size) pair; fonts are never freed
// until the registry is disposed.
type FontRegistry struct {
	fsys  fs.FS
	opts  FontOptions
	atlas *Atlas
	lg    *log.Logger

	fonts map[FontIdentifier]*Font

	// Parsed font files, by name. Preload may add to it concurrently.
	mu    sync.Mutex
	faces map[string]*fontFace
}

// fontFace is a parsed font file.
type fontFace struct {
	*sfnt.Font
	// kerning records whether the file has a kern or GPOS table.
	kerning bool
}

func NewFontRegistry(fsys fs.FS, atlas *Atlas, opts FontOptions, lg *log.Logger) *FontRegistry {
	return &FontRegistry{
		fsys:  fsys,
		opts:  opts,
		atlas: atlas,
		lg:    lg,
		fonts: make(map[FontIdentifier]*Font),
		faces: make(map[string]*fontFace),
	}
}

func (r *FontRegistry) Atlas() *Atlas { return r.atlas }

// GetFontAtSize returns the named font at the given pixel size, loading
// it if necessary. It returns nil, after logging the error, if the font
// can't be loaded.
func (r *FontRegistry) GetFontAtSize(name string, size int) *Font {
	f, err := r.LoadFont(name, size)
	if err != nil {
		r.lg.Errorf("%s: %v", name, err)
		return nil
	}
	return f
}

// LoadFont returns the named font at the given pixel size, loading it if
// necessary.
func (r *FontRegistry) LoadFont(name string, size int) (*Font, error) {
	id := FontIdentifier{Name: name, Size: size}
	if f, ok := r.fonts[id]; ok {
		return f, nil
	}

	face, err := r.face(name)
	if err != nil {
		return nil, err
	}

	f, err := newFont(id, face, r.atlas, r.opts, r.lg)
	if err != nil {
		return nil, err
	}
	r.fonts[id] = f
	r.lg.Infof("Loaded font %s: line spacing %d, ascender %d, descender %d", id,
		f.LineSpacing, f.MaxAscender, f.MaxDescender)
	return f, nil
}

func (r *FontRegistry) face(name string) (*fontFace, error) {
	r.mu.Lock()
	face, ok := r.faces[name]
	r.mu.Unlock()
	if ok {
		return face, nil
	}

	face, err := r.parseFile(name)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.faces[name] = face
	return face, nil
}

// parseFile reads and parses the font file for the given name.
func (r *FontRegistry) parseFile(name string) (*fontFace, error) {
	p, err := util.FindFile(r.fsys, r.opts.Dir, name, fontExtensions)
	if err != nil {
		if r.opts.BuiltinFallback {
			r.lg.Warnf("%s: font not found in %q; using built-in Go Regular", name, r.opts.Dir)
			return parseFont("Go Regular", goregular.TTF)
		}
		return nil, fmt.Errorf("%s: %w", name, errors.Join(ErrFontNotFound, err))
	}

	b, err := util.ReadFile(r.fsys, p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	return parseFont(p, b)
}

func parseFont(name string, b []byte) (*fontFace, error) {
	face, err := sfnt.Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", name, ErrUnsupportedFontFormat, err)
	}
	return &fontFace{Font: face, kerning: hasKerningTable(b)}, nil
}

// hasKerningTable reports whether the table directory of the font file
// lists a kern or GPOS table. sfnt.Parse has already validated the
// directory.
func hasKerningTable(b []byte) bool {
	if len(b) < 12 {
		return false
	}
	n := int(binary.BigEndian.Uint16(b[4:]))
	for i := range n {
		rec := 12 + 16*i
		if rec+4 > len(b) {
			break
		}
		if tag := string(b[rec : rec+4]); tag == "kern" || tag == "GPOS" {
			return true
		}
	}
	return false
}

// Preload reads and parses the named font files concurrently so that
// later calls to LoadFont don't need to touch the filesystem.
func (r *FontRegistry) Preload(ctx context.Context, names []string) error {
	eg, ctx := errgroup.WithContext(ctx)
	for _, name := range names {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, err := r.face(name)
			return err
		})
	}
	return eg.Wait()
}

// Fonts returns the identifiers of all loaded fonts, sorted by name and
// then size.
func (r *FontRegistry) Fonts() []FontIdentifier {
	var ids []FontIdentifier
	for id := range r.fonts {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b FontIdentifier) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return a.Size - b.Size
	})
	return ids
}

// Dispose releases the atlas and forgets all of the registry's fonts.
// Fonts previously returned by the registry must not be used afterward.
func (r *FontRegistry) Dispose(rend Renderer) {
	r.atlas.Dispose(rend)
	clear(r.fonts)
}
