// renderer/immediate.go
// Copyright(c) 2022-2024 vacation contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package renderer

import (
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/mmp/vacation/log"
)

// ImmediateVertexCapacity is the maximum number of vertices the immediate
// renderer accumulates before it must flush.
const ImmediateVertexCapacity = 2400

// Vertex is the vertex layout used by the immediate renderer and the
// "immediate" vertex type of the shader options.
type Vertex struct {
	Pos   [3]float32
	Color [4]float32
	UV    [2]float32
}

const (
	vertexStride      = int(unsafe.Sizeof(Vertex{}))
	vertexColorOffset = int(unsafe.Offsetof(Vertex{}.Color))
	vertexUVOffset    = int(unsafe.Offsetof(Vertex{}.UV))
)

var defaultQuadUVs = [4][2]float32{{0, 0}, {1, 0}, {1, 1}, {0, 1}}

// ImmediateStats reports the work done by an Immediate since it was
// created.
type ImmediateStats struct {
	DrawCalls int
	Vertices  int
	Discarded int
}

func (s ImmediateStats) String() string {
	return fmt.Sprintf("%d draw calls, %d vertices, %d discarded", s.DrawCalls, s.Vertices, s.Discarded)
}

func (s ImmediateStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("draw_calls", s.DrawCalls),
		slog.Int("vertices", s.Vertices),
		slog.Int("discarded", s.Discarded))
}

// Immediate accumulates quads into a fixed-size vertex buffer and emits
// them as a single draw call into a CommandBuffer when the buffer fills
// up or when the caller flushes (e.g., before binding a different
// texture). Quads are always drawn in the order they were submitted.
type Immediate struct {
	cb       *CommandBuffer
	vertices [ImmediateVertexCapacity]Vertex
	n        int
	shader   uint32
	stats    ImmediateStats
	lg       *log.Logger
}

func NewImmediate(cb *CommandBuffer, lg *log.Logger) *Immediate {
	return &Immediate{cb: cb, lg: lg}
}

// CommandBuffer returns the command buffer that flushes are encoded into.
func (im *Immediate) CommandBuffer() *CommandBuffer {
	return im.cb
}

// SetCommandBuffer flushes pending vertices into the current command
// buffer and then directs subsequent flushes to cb.
func (im *Immediate) SetCommandBuffer(cb *CommandBuffer) {
	im.Flush()
	im.cb = cb
	im.shader = 0
}

// Begin starts a new sequence of quads. Anything left over from a
// previous sequence is flushed; vertices that can't be flushed because no
// shader was ever bound for them are discarded.
func (im *Immediate) Begin() {
	im.Flush()
	if im.n > 0 {
		im.lg.Warnf("%d vertices submitted without a shader", im.n)
		im.stats.Discarded += im.n
		im.n = 0
	}
}

// SetShader flushes and then selects the shader used for subsequent
// quads. A shader id of zero unbinds the shader.
func (im *Immediate) SetShader(id uint32) {
	if id == im.shader {
		return
	}
	im.Flush()
	im.shader = id
	if id != 0 {
		im.cb.UseShader(id)
	}
}

func (im *Immediate) Shader() uint32 {
	return im.shader
}

// SetTexture flushes and then binds the texture to the given unit.
func (im *Immediate) SetTexture(unit int, id uint32) {
	im.Flush()
	im.cb.BindTexture(unit, id)
}

// Quad adds a quad with the given corners (in counter-clockwise order)
// and the default texture coordinates spanning the whole texture.
func (im *Immediate) Quad(p0, p1, p2, p3 [2]float32, color RGBA) {
	im.QuadUV(p0, p1, p2, p3, defaultQuadUVs, color)
}

// QuadUV adds a quad with explicit per-corner texture coordinates.
func (im *Immediate) QuadUV(p0, p1, p2, p3 [2]float32, uv [4][2]float32, color RGBA) {
	if im.n+6 > ImmediateVertexCapacity {
		im.Flush()
		if im.n != 0 {
			// Nothing could be drawn since no shader is bound.
			im.lg.Warnf("immediate: discarding %d vertices with no shader bound", im.n)
			im.stats.Discarded += im.n
			im.n = 0
		}
	}

	c := color.array()
	v := im.vertices[im.n : im.n+6]
	v[0] = Vertex{Pos: [3]float32{p0[0], p0[1], 0}, Color: c, UV: uv[0]}
	v[1] = Vertex{Pos: [3]float32{p1[0], p1[1], 0}, Color: c, UV: uv[1]}
	v[2] = Vertex{Pos: [3]float32{p2[0], p2[1], 0}, Color: c, UV: uv[2]}
	v[3] = v[0]
	v[4] = v[2]
	v[5] = Vertex{Pos: [3]float32{p3[0], p3[1], 0}, Color: c, UV: uv[3]}
	im.n += 6
}

// Flush encodes the pending vertices and a draw call for them into the
// command buffer. It does nothing if there are no pending vertices or if
// no shader is bound; in the latter case the vertices remain pending.
func (im *Immediate) Flush() {
	if im.n == 0 || im.shader == 0 {
		return
	}

	offset := im.cb.VertexBuffer(im.vertices[:im.n])
	im.cb.VertexArray(offset, 3, vertexStride)
	im.cb.RGBA32Array(offset+vertexColorOffset, 4, vertexStride)
	im.cb.TexCoordArray(offset+vertexUVOffset, 2, vertexStride)
	im.cb.DrawArrays(0, im.n)

	im.stats.DrawCalls++
	im.stats.Vertices += im.n
	im.n = 0
}

// Pending returns the number of vertices waiting to be flushed.
func (im *Immediate) Pending() int {
	return im.n
}

func (im *Immediate) Stats() ImmediateStats {
	return im.stats
}
