// renderer/commandbuffer.go
// Copyright(c) 2022-2024 vacation contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package renderer

import (
	gomath "math"
	"sync"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// The command buffer stores a series of rendering commands, represented by
// the following values. Each one is followed in the buffer by a number of
// command arguments, after which the next command follows.  Comments
// after each command briefly describe its arguments.
//
// Vertex data is stored directly in the CommandBuffer, following a
// RendererFloatBuffer command; the first argument after it is the number
// of float32 values, which then follow directly. Commands that use the
// vertex data (RendererVertexArray and friends) refer to it by the byte
// offset from the start of the command buffer where it begins, so one
// CommandBuffer cannot refer to vertex data stored in another.
const (
	RendererLoadProjectionMatrix = iota // 16 float32: matrix, column major
	RendererLoadModelViewMatrix         // 16 float32: matrix, column major
	RendererClearRGBA                   // 4 float32: RGBA
	RendererScissor                     // 4 int32: x, y, width, height
	RendererDisableScissor              // no args
	RendererViewport                    // 4 int32: x, y, width, height
	RendererSetRenderTarget             // uint32: render target id (0: back buffer)
	RendererUseShader                   // uint32: shader id
	RendererBindTexture                 // 2 uint32: texture unit, texture id
	RendererFloatBuffer                 // int32 size, then size*float32 values
	RendererVertexArray                 // byte offset to array values, n components, stride (bytes)
	RendererRGBA32Array                 // byte offset to array values, n components, stride (bytes)
	RendererTexCoordArray               // byte offset to array values, n components, stride (bytes)
	RendererDrawArrays                  // 2 int32: first vertex, count (triangles)
	RendererResetState                  // no args
)

// CommandBuffer encodes a sequence of rendering commands in an
// API-agnostic manner; a Renderer then executes them in order.
type CommandBuffer struct {
	Buf []uint32
}

// CommandBuffers are managed using a sync.Pool so that their buf slice
// allocations persist across multiple uses.
var commandBufferPool = sync.Pool{New: func() any { return &CommandBuffer{} }}

func GetCommandBuffer() *CommandBuffer {
	return commandBufferPool.Get().(*CommandBuffer)
}

func ReturnCommandBuffer(cb *CommandBuffer) {
	cb.Reset()
	commandBufferPool.Put(cb)
}

// Reset resets the command buffer's length to zero so that it can be
// reused.
func (cb *CommandBuffer) Reset() {
	cb.Buf = cb.Buf[:0]
}

// growFor ensures that at least n more values can be added to the end of
// the buffer without going past its capacity.
func (cb *CommandBuffer) growFor(n int) {
	if len(cb.Buf)+n > cap(cb.Buf) {
		sz := max(2*cap(cb.Buf), 1024, 2*(len(cb.Buf)+n))
		b := make([]uint32, len(cb.Buf), sz)
		copy(b, cb.Buf)
		cb.Buf = b
	}
}

func (cb *CommandBuffer) appendFloats(floats ...float32) {
	for _, f := range floats {
		// Convert each one to a uint32 since that's the type that is
		// actually stored...
		cb.Buf = append(cb.Buf, gomath.Float32bits(f))
	}
}

func (cb *CommandBuffer) appendInts(ints ...int) {
	for _, i := range ints {
		if i != int(uint32(i)) && i != int(int32(i)) {
			lg.Errorf("%d: attempting to add non-32-bit value to CommandBuffer", i)
		}
		cb.Buf = append(cb.Buf, uint32(i))
	}
}

func (cb *CommandBuffer) LoadProjectionMatrix(m mgl32.Mat4) {
	cb.appendInts(RendererLoadProjectionMatrix)
	cb.appendFloats(m[:]...)
}

func (cb *CommandBuffer) LoadModelViewMatrix(m mgl32.Mat4) {
	cb.appendInts(RendererLoadModelViewMatrix)
	cb.appendFloats(m[:]...)
}

// ClearRGBA adds a command to the command buffer to clear the current
// render target to the specified color.
func (cb *CommandBuffer) ClearRGBA(color RGBA) {
	cb.appendInts(RendererClearRGBA)
	cb.appendFloats(color.R, color.G, color.B, color.A)
}

// Scissor adds a command to the command buffer to set the scissor
// rectangle as specified.
func (cb *CommandBuffer) Scissor(x, y, w, h int) {
	cb.appendInts(RendererScissor, x, y, w, h)
}

func (cb *CommandBuffer) DisableScissor() {
	cb.appendInts(RendererDisableScissor)
}

// Viewport adds a command to the command buffer to set the viewport to the
// specified rectangle.
func (cb *CommandBuffer) Viewport(x, y, w, h int) {
	cb.appendInts(RendererViewport, x, y, w, h)
}

// SetRenderTarget directs subsequent drawing to the given render target;
// the zero RenderTarget selects the back buffer.
func (cb *CommandBuffer) SetRenderTarget(rt RenderTarget) {
	cb.appendInts(RendererSetRenderTarget, int(rt.ID))
}

// UseShader selects the shader program (as returned by the Renderer's
// CreateShader method) used by subsequent draw commands.
func (cb *CommandBuffer) UseShader(id uint32) {
	cb.appendInts(RendererUseShader, int(id))
}

// BindTexture binds the texture to the given texture unit.
func (cb *CommandBuffer) BindTexture(unit int, id uint32) {
	cb.appendInts(RendererBindTexture, unit, int(id))
}

// FloatBuffer stores the provided float32 values in the CommandBuffer and
// returns the byte offset where the first value is stored; this offset
// can then be passed to commands like VertexArray.
func (cb *CommandBuffer) FloatBuffer(buf []float32) int {
	cb.appendInts(RendererFloatBuffer, len(buf))
	offset := 4 * len(cb.Buf)

	n := len(buf)
	if n == 0 {
		return offset
	}
	cb.growFor(n)
	start := len(cb.Buf)
	cb.Buf = cb.Buf[:start+n]
	copy(cb.Buf[start:start+n], unsafe.Slice((*uint32)(unsafe.Pointer(&buf[0])), n))

	return offset
}

// VertexBuffer stores the vertices in the CommandBuffer and returns the
// byte offset of the first one.
func (cb *CommandBuffer) VertexBuffer(v []Vertex) int {
	if len(v) == 0 {
		return cb.FloatBuffer(nil)
	}
	n := len(v) * int(unsafe.Sizeof(Vertex{})) / 4
	return cb.FloatBuffer(unsafe.Slice((*float32)(unsafe.Pointer(&v[0])), n))
}

// VertexArray adds a command to the command buffer that specifies an array
// of vertex positions to use for a subsequent draw command. offset gives
// the byte offset into the current command buffer where the positions
// start (e.g., as returned by VertexBuffer), nComps is the number of
// components per vertex, and stride gives the stride in bytes between
// vertices.
func (cb *CommandBuffer) VertexArray(offset, nComps, stride int) {
	cb.appendInts(RendererVertexArray, offset, nComps, stride)
}

// RGBA32Array adds a command to the command buffer that specifies an
// array of float32 RGBA colors to use for a subsequent draw command. Its
// arguments are analogous to the ones passed to VertexArray.
func (cb *CommandBuffer) RGBA32Array(offset, nComps, stride int) {
	cb.appendInts(RendererRGBA32Array, offset, nComps, stride)
}

// TexCoordArray adds a command to the command buffer that specifies an
// array of per-vertex texture coordinates. Its arguments are analogous
// to the ones passed to VertexArray.
func (cb *CommandBuffer) TexCoordArray(offset, nComps, stride int) {
	cb.appendInts(RendererTexCoordArray, offset, nComps, stride)
}

// DrawArrays adds a command to the command buffer to draw count/3
// triangles using the currently specified arrays, starting at the given
// vertex.
func (cb *CommandBuffer) DrawArrays(first, count int) {
	cb.appendInts(RendererDrawArrays, first, count)
}

// ResetState adds a command to the comment buffer that resets all of the
// assorted graphics state (scissor rectangle, blending, texturing, vertex
// arrays, etc.) to default values.
func (cb *CommandBuffer) ResetState() {
	cb.appendInts(RendererResetState)
}

// commandReader is used by the renderers to decode a CommandBuffer.
type commandReader struct {
	cb *CommandBuffer
	i  int
}

func (r *commandReader) done() bool { return r.i >= len(r.cb.Buf) }

func (r *commandReader) ui32() uint32 {
	v := r.cb.Buf[r.i]
	r.i++
	return v
}

func (r *commandReader) i32() int32 {
	return int32(r.ui32())
}

func (r *commandReader) float() float32 {
	return gomath.Float32frombits(r.ui32())
}

func (r *commandReader) mat4() mgl32.Mat4 {
	var m mgl32.Mat4
	for j := range m {
		m[j] = r.float()
	}
	return m
}

// floatsAt returns n float32 values starting at the given byte offset.
func (r *commandReader) floatsAt(offset, n int) []float32 {
	return unsafe.Slice((*float32)(unsafe.Pointer(&r.cb.Buf[offset/4])), n)
}
