// renderer/headless.go
// Copyright(c) 2022-2024 vacation contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package renderer

import (
	"fmt"
	"image"
	"slices"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mmp/vacation/log"
)

// DrawCall records a draw command executed by a HeadlessRenderer.
type DrawCall struct {
	Shader       uint32
	Texture      uint32 // texture bound to unit 0
	RenderTarget uint32
	Projection   mgl32.Mat4
	ModelView    mgl32.Mat4
	// Passes gives the blending for each draw of the vertices, from the
	// shader's blend mode.
	Passes   []BlendPass
	Vertices []Vertex
}

// HeadlessRenderer implements Renderer without a graphics device. It
// keeps copies of texture contents and records the draw calls in the
// command buffers it executes; it is used for tests and for offline
// tools.
type HeadlessRenderer struct {
	lg     *log.Logger
	nextID uint32

	Textures       map[uint32]*Bitmap
	TextureUploads int
	Shaders        map[uint32]ShaderSource
	RenderTargets  map[uint32]RenderTarget

	DrawCalls []DrawCall
	Stats     RendererStats

	// Current state while executing a command buffer
	shader     uint32
	textures   map[int]uint32
	target     uint32
	projection mgl32.Mat4
	modelView  mgl32.Mat4
	posOffset  int
	posStride  int
}

func NewHeadlessRenderer(l *log.Logger) *HeadlessRenderer {
	if lg == nil {
		lg = l
	}
	return &HeadlessRenderer{
		lg:            l,
		Textures:      make(map[uint32]*Bitmap),
		Shaders:       make(map[uint32]ShaderSource),
		RenderTargets: make(map[uint32]RenderTarget),
		textures:      make(map[int]uint32),
		projection:    mgl32.Ident4(),
		modelView:     mgl32.Ident4(),
	}
}

func (h *HeadlessRenderer) id() uint32 {
	h.nextID++
	return h.nextID
}

func (h *HeadlessRenderer) CreateTexture(b *Bitmap, sampler SamplerState) uint32 {
	id := h.id()
	h.Textures[id] = &Bitmap{Width: b.Width, Height: b.Height, Format: b.Format, Pix: slices.Clone(b.Pix)}
	h.TextureUploads++
	h.lg.Debugf("headless: created texture %d %dx%d %s %s", id, b.Width, b.Height, b.Format, sampler)
	return id
}

func (h *HeadlessRenderer) UpdateTexture(id uint32, b *Bitmap, r image.Rectangle) {
	tex, ok := h.Textures[id]
	if !ok {
		h.lg.Errorf("headless: %d: update of unknown texture", id)
		return
	}
	if tex.Width != b.Width || tex.Height != b.Height || tex.Format != b.Format {
		h.lg.Errorf("headless: %d: bitmap doesn't match texture", id)
		return
	}
	if r.Empty() {
		r = b.Bounds()
	}

	pix, r := b.SubImage(r)
	bpp := b.Format.BytesPerPixel()
	rowBytes := r.Dx() * bpp
	for y := r.Min.Y; y < r.Max.Y; y++ {
		src := pix[(y-r.Min.Y)*rowBytes:]
		copy(tex.Pix[y*tex.Stride()+r.Min.X*bpp:], src[:rowBytes])
	}
	h.TextureUploads++
}

func (h *HeadlessRenderer) DestroyTexture(id uint32) {
	delete(h.Textures, id)
}

func (h *HeadlessRenderer) CreateShader(src ShaderSource) (uint32, error) {
	if src.Vertex == "" || src.Fragment == "" {
		return 0, fmt.Errorf("%s: missing shader stage", src.Name)
	}
	id := h.id()
	h.Shaders[id] = src
	return id, nil
}

func (h *HeadlessRenderer) UpdateShader(id uint32, src ShaderSource) error {
	if _, ok := h.Shaders[id]; !ok {
		return fmt.Errorf("%d: %w", id, ErrShaderNotFound)
	}
	if src.Vertex == "" || src.Fragment == "" {
		return fmt.Errorf("%s: missing shader stage", src.Name)
	}
	h.Shaders[id] = src
	return nil
}

func (h *HeadlessRenderer) DestroyShader(id uint32) {
	delete(h.Shaders, id)
}

func (h *HeadlessRenderer) CreateRenderTarget(width, height int, format PixelFormat) (RenderTarget, error) {
	if width <= 0 || height <= 0 {
		return RenderTarget{}, fmt.Errorf("%dx%d: invalid render target size", width, height)
	}
	rt := RenderTarget{ID: h.id(), Width: width, Height: height, Format: format}
	rt.Texture = h.CreateTexture(NewBitmap(width, height, format), LinearClampSampler)
	h.RenderTargets[rt.ID] = rt
	return rt, nil
}

func (h *HeadlessRenderer) DestroyRenderTarget(rt RenderTarget) {
	h.DestroyTexture(rt.Texture)
	delete(h.RenderTargets, rt.ID)
}

func (h *HeadlessRenderer) RenderCommandBuffer(cb *CommandBuffer) RendererStats {
	var stats RendererStats
	stats.Buffers++
	stats.BufferBytes += 4 * len(cb.Buf)

	r := &commandReader{cb: cb}
	for !r.done() {
		switch cmd := r.ui32(); cmd {
		case RendererLoadProjectionMatrix:
			h.projection = r.mat4()

		case RendererLoadModelViewMatrix:
			h.modelView = r.mat4()

		case RendererClearRGBA:
			for range 4 {
				r.float()
			}
			stats.Clears++

		case RendererScissor, RendererViewport:
			for range 4 {
				r.i32()
			}

		case RendererDisableScissor, RendererResetState:

		case RendererSetRenderTarget:
			h.target = r.ui32()

		case RendererUseShader:
			h.shader = r.ui32()
			if _, ok := h.Shaders[h.shader]; !ok {
				h.lg.Errorf("headless: %d: unknown shader", h.shader)
			}

		case RendererBindTexture:
			unit := int(r.ui32())
			h.textures[unit] = r.ui32()

		case RendererFloatBuffer:
			// Skip over the values; they're accessed via their offsets.
			r.i += int(r.ui32())

		case RendererVertexArray:
			h.posOffset = int(r.ui32())
			r.i32()
			h.posStride = int(r.ui32())

		case RendererRGBA32Array, RendererTexCoordArray:
			// All of the vertex's components are decoded from the
			// position array.
			for range 3 {
				r.ui32()
			}

		case RendererDrawArrays:
			first, count := int(r.i32()), int(r.i32())
			h.DrawCalls = append(h.DrawCalls, DrawCall{
				Shader:       h.shader,
				Texture:      h.textures[0],
				RenderTarget: h.target,
				Projection:   h.projection,
				ModelView:    h.modelView,
				Passes:       h.Shaders[h.shader].Options.Blend.Passes(),
				Vertices:     h.decodeVertices(r, first, count),
			})
			stats.DrawCalls++
			stats.Vertices += count
			stats.Triangles += count / 3

		default:
			h.lg.Errorf("headless: %d: unhandled command", cmd)
			return stats
		}
	}

	h.Stats.Merge(stats)
	return stats
}

func (h *HeadlessRenderer) decodeVertices(r *commandReader, first, count int) []Vertex {
	if h.posStride != vertexStride {
		h.lg.Errorf("headless: %d: unexpected vertex stride", h.posStride)
		return nil
	}
	fpv := vertexStride / 4
	f := r.floatsAt(h.posOffset+first*vertexStride, count*fpv)

	v := make([]Vertex, count)
	for i := range v {
		c := f[i*fpv:]
		v[i] = Vertex{
			Pos:   [3]float32{c[0], c[1], c[2]},
			Color: [4]float32{c[3], c[4], c[5], c[6]},
			UV:    [2]float32{c[7], c[8]},
		}
	}
	return v
}

// Reset clears the recorded draw calls and statistics.
func (h *HeadlessRenderer) Reset() {
	h.DrawCalls = nil
	h.Stats = RendererStats{}
}

func (h *HeadlessRenderer) Dispose() {
	clear(h.Textures)
	clear(h.Shaders)
	clear(h.RenderTargets)
}
