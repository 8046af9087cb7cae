// renderer/catalog.go
// Copyright(c) 2022-2024 vacation contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package renderer

import (
	"fmt"
	"io/fs"
	"time"

	"github.com/mmp/vacation/log"
	"github.com/mmp/vacation/util"
)

var textureExtensions = []string{".png", ".jpg", ".bmp"}

type catalogEntry struct {
	id      uint32
	path    string
	modTime time.Time
}

func (e *catalogEntry) changed(fsys fs.FS) bool {
	t, err := util.ModTime(fsys, e.path)
	return err == nil && !t.Equal(e.modTime)
}

// TextureCatalog lazily loads textures from the "textures" directory of
// the data filesystem and caches them by name.
type TextureCatalog struct {
	Sampler SamplerState

	fsys    fs.FS
	r       Renderer
	lg      *log.Logger
	entries map[string]*catalogEntry
}

func NewTextureCatalog(fsys fs.FS, r Renderer, lg *log.Logger) *TextureCatalog {
	return &TextureCatalog{
		Sampler: LinearClampSampler,
		fsys:    fsys,
		r:       r,
		lg:      lg,
		entries: make(map[string]*catalogEntry),
	}
}

// Get returns the texture id for the named texture, loading it if
// necessary. Failures are logged and ok is false.
func (tc *TextureCatalog) Get(name string) (id uint32, ok bool) {
	if e, ok := tc.entries[name]; ok {
		return e.id, true
	}

	id, err := tc.load(name)
	if err != nil {
		tc.lg.Errorf("%s: %v", name, err)
		return 0, false
	}
	return id, true
}

func (tc *TextureCatalog) load(name string) (uint32, error) {
	p, err := util.FindFile(tc.fsys, "textures", name, textureExtensions)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrTextureNotFound, err)
	}
	mod, err := util.ModTime(tc.fsys, p)
	if err != nil {
		return 0, err
	}
	b, err := LoadBitmap(tc.fsys, p)
	if err != nil {
		return 0, err
	}

	id := tc.r.CreateTexture(b, tc.Sampler)
	tc.entries[name] = &catalogEntry{id: id, path: p, modTime: mod}
	tc.lg.Infof("%s: loaded texture %dx%d from %s", name, b.Width, b.Height, p)
	return id, nil
}

// Hotload reloads any textures whose files have changed since they were
// loaded. A reloaded texture may have a new id, so callers should call
// Get again afterward. It returns the number reloaded.
func (tc *TextureCatalog) Hotload() int {
	n := 0
	for _, name := range util.SortedMapKeys(tc.entries) {
		e := tc.entries[name]
		if !e.changed(tc.fsys) {
			continue
		}

		b, err := LoadBitmap(tc.fsys, e.path)
		if err != nil {
			tc.lg.Errorf("%s: reload: %v", name, err)
			continue
		}
		e.modTime, _ = util.ModTime(tc.fsys, e.path)
		// Recreate rather than update since the size may have changed.
		tc.r.DestroyTexture(e.id)
		e.id = tc.r.CreateTexture(b, tc.Sampler)
		tc.lg.Infof("%s: reloaded texture", name)
		n++
	}
	return n
}

func (tc *TextureCatalog) Dispose() {
	for _, e := range tc.entries {
		tc.r.DestroyTexture(e.id)
	}
	clear(tc.entries)
}

// ShaderCatalog loads shaders from "shaders/<name>.glsl" in the data
// filesystem.
type ShaderCatalog struct {
	fsys    fs.FS
	r       Renderer
	lg      *log.Logger
	entries map[string]*catalogEntry
}

func NewShaderCatalog(fsys fs.FS, r Renderer, lg *log.Logger) *ShaderCatalog {
	return &ShaderCatalog{
		fsys:    fsys,
		r:       r,
		lg:      lg,
		entries: make(map[string]*catalogEntry),
	}
}

func (sc *ShaderCatalog) Get(name string) (id uint32, ok bool) {
	if e, ok := sc.entries[name]; ok {
		return e.id, true
	}

	id, err := sc.load(name)
	if err != nil {
		sc.lg.Errorf("%s: %v", name, err)
		return 0, false
	}
	return id, true
}

func (sc *ShaderCatalog) read(p, name string) (ShaderSource, time.Time, error) {
	mod, err := util.ModTime(sc.fsys, p)
	if err != nil {
		return ShaderSource{}, mod, err
	}
	text, err := fs.ReadFile(sc.fsys, p)
	if err != nil {
		return ShaderSource{}, mod, err
	}
	src, err := ParseShaderSource(name, string(text))
	return src, mod, err
}

func (sc *ShaderCatalog) load(name string) (uint32, error) {
	p, err := util.FindFile(sc.fsys, "shaders", name, []string{".glsl"})
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrShaderNotFound, err)
	}

	src, mod, err := sc.read(p, name)
	if err != nil {
		return 0, err
	}
	id, err := sc.r.CreateShader(src)
	if err != nil {
		return 0, err
	}

	sc.entries[name] = &catalogEntry{id: id, path: p, modTime: mod}
	return id, nil
}

// Hotload recompiles shaders whose files have changed. If the new
// version fails to parse or compile, the error is logged and the
// previous shader stays in use.
func (sc *ShaderCatalog) Hotload() int {
	n := 0
	for _, name := range util.SortedMapKeys(sc.entries) {
		e := sc.entries[name]
		if !e.changed(sc.fsys) {
			continue
		}

		src, mod, err := sc.read(e.path, name)
		// Don't retry a broken file until it changes again.
		e.modTime = mod
		if err == nil {
			err = sc.r.UpdateShader(e.id, src)
		}
		if err != nil {
			sc.lg.Errorf("%s: reload: %v", name, err)
			continue
		}
		sc.lg.Infof("%s: reloaded shader", name)
		n++
	}
	return n
}

func (sc *ShaderCatalog) Dispose() {
	for _, e := range sc.entries {
		sc.r.DestroyShader(e.id)
	}
	clear(sc.entries)
}
