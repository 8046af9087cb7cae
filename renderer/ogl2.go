// renderer/ogl2.go
// Copyright(c) 2022-2024 vacation contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package renderer

import (
	"fmt"
	"image"
	"strings"
	"unsafe"

	"github.com/go-gl/gl/v2.1/gl"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/mmp/vacation/log"
	"github.com/mmp/vacation/util"
)

// Vertex attribute locations used by all shaders with the "immediate"
// vertex type.
const (
	attribPosition = 0
	attribColor    = 1
	attribUV       = 2
)

const maxTextureUnits = 4

type glProgram struct {
	id          uint32
	name        string
	opts        ShaderOptions
	uProjection int32
	uModelView  int32
	uPass       int32
	uTextures   [maxTextureUnits]int32
	passes      []BlendPass
}

type glTexture struct {
	bytes   int
	format  PixelFormat
	sampler SamplerState
}

type OpenGL2Renderer struct {
	lg       *log.Logger
	textures map[uint32]*glTexture
	programs map[uint32]*glProgram
	// Render target ids are framebuffer object ids.
	targets map[uint32]RenderTarget

	program    *glProgram
	projection mgl32.Mat4
	modelView  mgl32.Mat4
}

// NewOpenGL2Renderer initializes OpenGL; the caller must already have
// made an OpenGL context current.
func NewOpenGL2Renderer(l *log.Logger) (Renderer, error) {
	lg = l

	lg.Info("Starting OpenGL2Renderer initialization")
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	lg.Infof("OpenGL vendor %s renderer %s version %s", gl.GoStr(gl.GetString(gl.VENDOR)),
		gl.GoStr(gl.GetString(gl.RENDERER)), gl.GoStr(gl.GetString(gl.VERSION)))

	lg.Info("Finished OpenGL2Renderer initialization")
	return &OpenGL2Renderer{
		lg:         lg,
		textures:   make(map[uint32]*glTexture),
		programs:   make(map[uint32]*glProgram),
		targets:    make(map[uint32]RenderTarget),
		projection: mgl32.Ident4(),
		modelView:  mgl32.Ident4(),
	}, nil
}

func (ogl2 *OpenGL2Renderer) Dispose() {
	for _, rt := range ogl2.targets {
		ogl2.DestroyRenderTarget(rt)
	}
	for texid := range ogl2.textures {
		gl.DeleteTextures(1, &texid)
	}
	for id := range ogl2.programs {
		gl.DeleteProgram(id)
	}
}

func (ogl2 *OpenGL2Renderer) createdTexture(texid uint32, t *glTexture) {
	_, exists := ogl2.textures[texid]
	ogl2.textures[texid] = t

	reduce := func(id uint32, t *glTexture, total int) int { return total + t.bytes }
	total := util.ReduceMap(ogl2.textures, reduce, 0)
	mb := float32(total) / (1024 * 1024)

	if exists {
		ogl2.lg.Infof("Updated tex id %d: %d bytes -> %.2f MiB of textures total", texid, t.bytes, mb)
	} else {
		ogl2.lg.Infof("Created tex id %d: %d bytes -> %.2f MiB of textures total", texid, t.bytes, mb)
	}
}

func glFormat(f PixelFormat) (internal int32, format uint32) {
	switch f {
	case FormatR8:
		return gl.LUMINANCE8, gl.LUMINANCE
	case FormatRGBA8Linear:
		return gl.RGBA8, gl.RGBA
	default:
		return gl.SRGB8_ALPHA8, gl.RGBA
	}
}

func applySampler(s SamplerState) {
	filter := int32(util.Select(s.Filter == FilterPoint, gl.NEAREST, gl.LINEAR))
	wrap := int32(util.Select(s.Address == AddressClamp, gl.CLAMP_TO_EDGE, gl.REPEAT))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, filter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, filter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, wrap)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, wrap)
}

func (ogl2 *OpenGL2Renderer) CreateTexture(b *Bitmap, sampler SamplerState) uint32 {
	var lastTexture int32
	gl.GetIntegerv(gl.TEXTURE_BINDING_2D, &lastTexture)

	var texid uint32
	gl.GenTextures(1, &texid)
	gl.BindTexture(gl.TEXTURE_2D, texid)
	applySampler(sampler)

	internal, format := glFormat(b.Format)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	var pix unsafe.Pointer
	if len(b.Pix) > 0 {
		pix = unsafe.Pointer(&b.Pix[0])
	}
	gl.TexImage2D(gl.TEXTURE_2D, 0, internal, int32(b.Width), int32(b.Height), 0, format,
		gl.UNSIGNED_BYTE, pix)

	gl.BindTexture(gl.TEXTURE_2D, uint32(lastTexture))

	ogl2.createdTexture(texid, &glTexture{bytes: len(b.Pix), format: b.Format, sampler: sampler})
	return texid
}

func (ogl2 *OpenGL2Renderer) UpdateTexture(texid uint32, b *Bitmap, r image.Rectangle) {
	if r.Empty() {
		r = b.Bounds()
	}
	pix, r := b.SubImage(r)
	if len(pix) == 0 {
		return
	}

	var lastTexture int32
	gl.GetIntegerv(gl.TEXTURE_BINDING_2D, &lastTexture)

	gl.BindTexture(gl.TEXTURE_2D, texid)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	_, format := glFormat(b.Format)
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, int32(r.Min.X), int32(r.Min.Y), int32(r.Dx()), int32(r.Dy()),
		format, gl.UNSIGNED_BYTE, unsafe.Pointer(&pix[0]))

	gl.BindTexture(gl.TEXTURE_2D, uint32(lastTexture))
}

func (ogl2 *OpenGL2Renderer) DestroyTexture(texid uint32) {
	gl.DeleteTextures(1, &texid)
	delete(ogl2.textures, texid)
}

func compileShader(kind uint32, src string) (uint32, error) {
	s := gl.CreateShader(kind)
	csrc, free := gl.Strs(src + "\x00")
	gl.ShaderSource(s, 1, csrc, nil)
	free()
	gl.CompileShader(s)

	var status int32
	gl.GetShaderiv(s, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var n int32
		gl.GetShaderiv(s, gl.INFO_LOG_LENGTH, &n)
		info := strings.Repeat("\x00", int(n+1))
		gl.GetShaderInfoLog(s, n, nil, gl.Str(info))
		gl.DeleteShader(s)
		return 0, fmt.Errorf("compile error: %s", strings.TrimRight(info, "\x00"))
	}
	return s, nil
}

func linkProgram(src ShaderSource) (*glProgram, error) {
	vs, err := compileShader(gl.VERTEX_SHADER, src.Vertex)
	if err != nil {
		return nil, fmt.Errorf("%s: vertex shader: %w", src.Name, err)
	}
	defer gl.DeleteShader(vs)
	fs, err := compileShader(gl.FRAGMENT_SHADER, src.Fragment)
	if err != nil {
		return nil, fmt.Errorf("%s: fragment shader: %w", src.Name, err)
	}
	defer gl.DeleteShader(fs)

	id := gl.CreateProgram()
	gl.AttachShader(id, vs)
	gl.AttachShader(id, fs)
	gl.BindAttribLocation(id, attribPosition, gl.Str("a_position\x00"))
	gl.BindAttribLocation(id, attribColor, gl.Str("a_color\x00"))
	gl.BindAttribLocation(id, attribUV, gl.Str("a_uv\x00"))
	gl.LinkProgram(id)
	gl.DetachShader(id, vs)
	gl.DetachShader(id, fs)

	var status int32
	gl.GetProgramiv(id, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var n int32
		gl.GetProgramiv(id, gl.INFO_LOG_LENGTH, &n)
		info := strings.Repeat("\x00", int(n+1))
		gl.GetProgramInfoLog(id, n, nil, gl.Str(info))
		gl.DeleteProgram(id)
		return nil, fmt.Errorf("%s: link error: %s", src.Name, strings.TrimRight(info, "\x00"))
	}

	p := &glProgram{
		id:          id,
		name:        src.Name,
		opts:        src.Options,
		uProjection: gl.GetUniformLocation(id, gl.Str("u_projection\x00")),
		uModelView:  gl.GetUniformLocation(id, gl.Str("u_modelview\x00")),
		uPass:       gl.GetUniformLocation(id, gl.Str("u_pass\x00")),
		passes:      src.Options.Blend.Passes(),
	}
	for i := range p.uTextures {
		p.uTextures[i] = gl.GetUniformLocation(id, gl.Str(fmt.Sprintf("u_texture%d\x00", i)))
	}
	return p, nil
}

func (ogl2 *OpenGL2Renderer) CreateShader(src ShaderSource) (uint32, error) {
	p, err := linkProgram(src)
	if err != nil {
		return 0, err
	}
	ogl2.programs[p.id] = p
	ogl2.lg.Infof("Created shader %q: program %d", src.Name, p.id)
	return p.id, nil
}

// UpdateShader links a new program for the source and then makes the
// existing id refer to it.
func (ogl2 *OpenGL2Renderer) UpdateShader(id uint32, src ShaderSource) error {
	old, ok := ogl2.programs[id]
	if !ok {
		return fmt.Errorf("%d: %w", id, ErrShaderNotFound)
	}
	p, err := linkProgram(src)
	if err != nil {
		return err
	}
	gl.DeleteProgram(old.id)
	// The caller's id stays valid; it now maps to the new program.
	ogl2.programs[id] = p
	return nil
}

func (ogl2 *OpenGL2Renderer) DestroyShader(id uint32) {
	if p, ok := ogl2.programs[id]; ok {
		gl.DeleteProgram(p.id)
		delete(ogl2.programs, id)
	}
}

func (ogl2 *OpenGL2Renderer) CreateRenderTarget(width, height int, format PixelFormat) (RenderTarget, error) {
	if width <= 0 || height <= 0 {
		return RenderTarget{}, fmt.Errorf("%dx%d: invalid render target size", width, height)
	}
	rt := RenderTarget{Width: width, Height: height, Format: format}
	rt.Texture = ogl2.CreateTexture(&Bitmap{Width: width, Height: height, Format: format}, LinearClampSampler)

	gl.GenFramebuffersEXT(1, &rt.ID)
	gl.BindFramebufferEXT(gl.FRAMEBUFFER_EXT, rt.ID)
	gl.FramebufferTexture2DEXT(gl.FRAMEBUFFER_EXT, gl.COLOR_ATTACHMENT0_EXT, gl.TEXTURE_2D, rt.Texture, 0)
	status := gl.CheckFramebufferStatusEXT(gl.FRAMEBUFFER_EXT)
	gl.BindFramebufferEXT(gl.FRAMEBUFFER_EXT, 0)

	if status != gl.FRAMEBUFFER_COMPLETE_EXT {
		gl.DeleteFramebuffersEXT(1, &rt.ID)
		ogl2.DestroyTexture(rt.Texture)
		return RenderTarget{}, fmt.Errorf("%dx%d %s: incomplete framebuffer: 0x%x", width, height, format, status)
	}

	ogl2.targets[rt.ID] = rt
	return rt, nil
}

func (ogl2 *OpenGL2Renderer) DestroyRenderTarget(rt RenderTarget) {
	if rt.ID == 0 {
		return
	}
	gl.DeleteFramebuffersEXT(1, &rt.ID)
	ogl2.DestroyTexture(rt.Texture)
	delete(ogl2.targets, rt.ID)
}

func (ogl2 *OpenGL2Renderer) applyShaderOptions(o ShaderOptions) {
	if o.DepthTest == DepthTestLEqual {
		gl.Enable(gl.DEPTH_TEST)
		gl.DepthFunc(gl.LEQUAL)
	} else {
		gl.Disable(gl.DEPTH_TEST)
	}
	gl.DepthMask(o.DepthWrite)

	switch o.Cull {
	case CullOff:
		gl.Disable(gl.CULL_FACE)
	case CullBack:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.BACK)
	case CullFront:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.FRONT)
	}
}

func glBlendFactor(f BlendFactor) uint32 {
	switch f {
	case BlendZero:
		return gl.ZERO
	case BlendSrcAlpha:
		return gl.SRC_ALPHA
	case BlendOneMinusSrcAlpha:
		return gl.ONE_MINUS_SRC_ALPHA
	case BlendOneMinusSrcColor:
		return gl.ONE_MINUS_SRC_COLOR
	default:
		return gl.ONE
	}
}

// drawArrays issues the draw once per blend pass of the current program.
// OpenGL 2.1 has no dual-source blending, so BlendDual shaders are drawn
// twice, first writing coverage and then color times coverage.
func (ogl2 *OpenGL2Renderer) drawArrays(first, count int32) {
	p := ogl2.program
	if p == nil {
		gl.DrawArrays(gl.TRIANGLES, first, count)
		return
	}
	for _, pass := range p.passes {
		if pass.Enabled {
			gl.Enable(gl.BLEND)
			gl.BlendFunc(glBlendFactor(pass.Src), glBlendFactor(pass.Dst))
		} else {
			gl.Disable(gl.BLEND)
		}
		if p.uPass >= 0 {
			gl.Uniform1i(p.uPass, pass.Pass)
		}
		gl.DrawArrays(gl.TRIANGLES, first, count)
	}
}

func (ogl2 *OpenGL2Renderer) loadMatrices() {
	if p := ogl2.program; p != nil {
		gl.UniformMatrix4fv(p.uProjection, 1, false, &ogl2.projection[0])
		gl.UniformMatrix4fv(p.uModelView, 1, false, &ogl2.modelView[0])
	}
}

func (ogl2 *OpenGL2Renderer) RenderCommandBuffer(cb *CommandBuffer) RendererStats {
	var stats RendererStats
	stats.Buffers++
	stats.BufferBytes += 4 * len(cb.Buf)

	r := &commandReader{cb: cb}
	ptr := func(offset uint32) unsafe.Pointer {
		return unsafe.Pointer(uintptr(unsafe.Pointer(&cb.Buf[0])) + uintptr(offset))
	}

	for !r.done() {
		switch cmd := r.ui32(); cmd {
		case RendererLoadProjectionMatrix:
			ogl2.projection = r.mat4()
			ogl2.loadMatrices()

		case RendererLoadModelViewMatrix:
			ogl2.modelView = r.mat4()
			ogl2.loadMatrices()

		case RendererClearRGBA:
			cr, cg, cbl, ca := r.float(), r.float(), r.float(), r.float()
			gl.ClearColor(cr, cg, cbl, ca)
			gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
			stats.Clears++

		case RendererScissor:
			x, y, w, h := r.i32(), r.i32(), r.i32(), r.i32()
			gl.Enable(gl.SCISSOR_TEST)
			gl.Scissor(x, y, w, h)

		case RendererDisableScissor:
			gl.Disable(gl.SCISSOR_TEST)

		case RendererViewport:
			x, y, w, h := r.i32(), r.i32(), r.i32(), r.i32()
			gl.Viewport(x, y, w, h)

		case RendererSetRenderTarget:
			gl.BindFramebufferEXT(gl.FRAMEBUFFER_EXT, r.ui32())

		case RendererUseShader:
			id := r.ui32()
			p, ok := ogl2.programs[id]
			if !ok {
				ogl2.lg.Errorf("%d: unknown shader", id)
				ogl2.program = nil
				gl.UseProgram(0)
				break
			}
			ogl2.program = p
			gl.UseProgram(p.id)
			ogl2.applyShaderOptions(p.opts)
			for i, loc := range p.uTextures {
				if loc >= 0 {
					gl.Uniform1i(loc, int32(i))
				}
			}
			ogl2.loadMatrices()

		case RendererBindTexture:
			unit, texid := int(r.ui32()), r.ui32()
			gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
			gl.BindTexture(gl.TEXTURE_2D, texid)
			if p, t := ogl2.program, ogl2.textures[texid]; p != nil && t != nil {
				if s := p.opts.Sampler(unit); s != t.sampler && unit < len(p.opts.Samplers) {
					applySampler(s)
					t.sampler = s
				}
			}
			gl.ActiveTexture(gl.TEXTURE0)

		case RendererFloatBuffer:
			// Nothing to do for the moment but skip ahead
			r.i += int(r.ui32())

		case RendererVertexArray:
			offset, nc, stride := r.ui32(), r.i32(), r.i32()
			gl.EnableVertexAttribArray(attribPosition)
			gl.VertexAttribPointer(attribPosition, nc, gl.FLOAT, false, stride, ptr(offset))

		case RendererRGBA32Array:
			offset, nc, stride := r.ui32(), r.i32(), r.i32()
			gl.EnableVertexAttribArray(attribColor)
			gl.VertexAttribPointer(attribColor, nc, gl.FLOAT, false, stride, ptr(offset))

		case RendererTexCoordArray:
			offset, nc, stride := r.ui32(), r.i32(), r.i32()
			gl.EnableVertexAttribArray(attribUV)
			gl.VertexAttribPointer(attribUV, nc, gl.FLOAT, false, stride, ptr(offset))

		case RendererDrawArrays:
			first, count := r.i32(), r.i32()
			ogl2.drawArrays(first, count)

			stats.DrawCalls++
			stats.Vertices += int(count)
			stats.Triangles += int(count / 3)

		case RendererResetState:
			gl.Disable(gl.SCISSOR_TEST)
			gl.Disable(gl.BLEND)
			gl.Disable(gl.DEPTH_TEST)
			gl.Disable(gl.CULL_FACE)
			gl.DisableVertexAttribArray(attribPosition)
			gl.DisableVertexAttribArray(attribColor)
			gl.DisableVertexAttribArray(attribUV)
			gl.UseProgram(0)
			ogl2.program = nil

		default:
			ogl2.lg.Errorf("%d: unhandled command", cmd)
			return stats
		}
	}

	return stats
}
