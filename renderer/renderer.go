// renderer/renderer.go
// Copyright(c) 2022-2024 vacation contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package renderer

import (
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/mmp/vacation/log"
)

var (
	ErrFontNotFound          = errors.New("font not found")
	ErrUnsupportedFontFormat = errors.New("unsupported font format")
	ErrGlyphTooLarge         = errors.New("glyph larger than atlas page")
	ErrTextureNotFound       = errors.New("texture not found")
	ErrShaderNotFound        = errors.New("shader not found")
)

// Also available as a global, though only used by CommandBuffer
var lg *log.Logger

// Renderer defines the interface to a graphics backend. The font, atlas,
// and batching code only talks to the backend through this interface and
// through the commands it encodes in a CommandBuffer.
type Renderer interface {
	// CreateTexture returns an identifier for a texture map initialized
	// with the contents of the provided bitmap.
	CreateTexture(b *Bitmap, sampler SamplerState) uint32

	// UpdateTexture uploads the pixels of b inside the rectangle r to the
	// corresponding texels of an existing texture with the same
	// dimensions as b. An empty rectangle uploads the whole bitmap.
	UpdateTexture(id uint32, b *Bitmap, r image.Rectangle)

	// DestroyTexture frees the resources associated with the given texture id.
	DestroyTexture(id uint32)

	// CreateShader compiles the given shader and returns its identifier.
	CreateShader(src ShaderSource) (uint32, error)

	// UpdateShader replaces the shader with the given id; if compilation
	// fails, the previous shader remains in place.
	UpdateShader(id uint32, src ShaderSource) error

	DestroyShader(id uint32)

	// CreateRenderTarget returns an offscreen color target; its texture
	// can be bound like any other texture.
	CreateRenderTarget(width, height int, format PixelFormat) (RenderTarget, error)

	DestroyRenderTarget(rt RenderTarget)

	// RenderCommandBuffer executes all of the commands encoded in the
	// provided command buffer, returning statistics about what was
	// rendered.
	RenderCommandBuffer(*CommandBuffer) RendererStats

	// Dispose releases resources allocated by the renderer.
	Dispose()
}

type TextureFilter int

const (
	FilterLinear TextureFilter = iota
	FilterPoint
)

type TextureAddress int

const (
	AddressRepeat TextureAddress = iota
	AddressClamp
)

type SamplerState struct {
	Filter  TextureFilter
	Address TextureAddress
}

var (
	LinearClampSampler = SamplerState{Filter: FilterLinear, Address: AddressClamp}
	PointClampSampler  = SamplerState{Filter: FilterPoint, Address: AddressClamp}
)

func (s SamplerState) String() string {
	f := map[TextureFilter]string{FilterLinear: "linear", FilterPoint: "point"}[s.Filter]
	a := map[TextureAddress]string{AddressRepeat: "repeat", AddressClamp: "clamp"}[s.Address]
	return f + "/" + a
}

// RenderTarget is an offscreen buffer that can be rendered to. The zero
// RenderTarget represents the back buffer.
type RenderTarget struct {
	ID            uint32
	Texture       uint32
	Width, Height int
	Format        PixelFormat
}

// RendererStats encapsulates assorted statistics from rendering.
type RendererStats struct {
	Buffers, BufferBytes int
	DrawCalls            int
	Vertices, Triangles  int
	Clears               int
}

func (rs *RendererStats) String() string {
	return fmt.Sprintf("%d buffers (%.2f MB), %d draw calls: %d vertices, %d tris, %d clears",
		rs.Buffers, float32(rs.BufferBytes)/(1024*1024), rs.DrawCalls, rs.Vertices, rs.Triangles, rs.Clears)
}

func (rs *RendererStats) Merge(s RendererStats) {
	rs.Buffers += s.Buffers
	rs.BufferBytes += s.BufferBytes
	rs.DrawCalls += s.DrawCalls
	rs.Vertices += s.Vertices
	rs.Triangles += s.Triangles
	rs.Clears += s.Clears
}

func (rs RendererStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("buffers", rs.Buffers),
		slog.Int("buffer_memory", rs.BufferBytes),
		slog.Int("draw_calls", rs.DrawCalls),
		slog.Int("vertices", rs.Vertices),
		slog.Int("tris", rs.Triangles),
		slog.Int("clears", rs.Clears),
	)
}
