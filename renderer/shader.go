// renderer/shader.go
// Copyright(c) 2022-2024 vacation contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package renderer

import (
	"bufio"
	"fmt"
	"strings"
)

type DepthTest int

const (
	DepthTestOff DepthTest = iota
	DepthTestLEqual
)

type BlendMode int

const (
	BlendNone BlendMode = iota
	BlendAlpha
	// BlendDual uses dual-source blending; the fragment shader provides
	// per-channel coverage, as needed for subpixel text.
	BlendDual
)

type BlendFactor int

const (
	BlendZero BlendFactor = iota
	BlendOne
	BlendSrcAlpha
	BlendOneMinusSrcAlpha
	BlendOneMinusSrcColor
)

// Values for a shader's u_pass uniform.
const (
	ShaderPassColor    = 0
	ShaderPassCoverage = 1
)

// BlendPass is one draw of a primitive batch: the blend function and the
// value of the shader's u_pass uniform.
type BlendPass struct {
	Enabled  bool
	Src, Dst BlendFactor
	Pass     int32
}

// Passes returns the draws needed for each batch drawn with the blend
// mode. BlendDual takes two: the first scales the destination by one
// minus the per-channel coverage and the second adds color times
// coverage, which together match dual-source blending for any color.
func (m BlendMode) Passes() []BlendPass {
	switch m {
	case BlendAlpha:
		return []BlendPass{{Enabled: true, Src: BlendSrcAlpha, Dst: BlendOneMinusSrcAlpha, Pass: ShaderPassColor}}
	case BlendDual:
		return []BlendPass{
			{Enabled: true, Src: BlendZero, Dst: BlendOneMinusSrcColor, Pass: ShaderPassCoverage},
			{Enabled: true, Src: BlendOne, Dst: BlendOne, Pass: ShaderPassColor},
		}
	default:
		return []BlendPass{{Pass: ShaderPassColor}}
	}
}

type CullMode int

const (
	CullOff CullMode = iota
	CullBack
	CullFront
)

type VertexType int

const (
	VertexImmediate VertexType = iota
)

// ShaderOptions describes the fixed-function state used with a shader.
type ShaderOptions struct {
	DepthTest  DepthTest
	DepthWrite bool
	Blend      BlendMode
	Cull       CullMode
	VertexType VertexType
	// Samplers gives the sampler state for each texture unit, in order.
	Samplers []SamplerState
}

func DefaultShaderOptions() ShaderOptions {
	return ShaderOptions{
		DepthTest:  DepthTestLEqual,
		DepthWrite: true,
		Blend:      BlendNone,
		Cull:       CullBack,
		VertexType: VertexImmediate,
	}
}

// Sampler returns the sampler state for the given texture unit.
func (o ShaderOptions) Sampler(unit int) SamplerState {
	if unit >= 0 && unit < len(o.Samplers) {
		return o.Samplers[unit]
	}
	return LinearClampSampler
}

type optionValue[T any] struct {
	name  string
	value T
}

func lookupOption[T any](key, v string, values []optionValue[T]) (T, error) {
	var names []string
	for _, ov := range values {
		if ov.name == v {
			return ov.value, nil
		}
		names = append(names, ov.name)
	}
	var zero T
	return zero, fmt.Errorf("%s: %q: unsupported value; valid values are %s", key, v,
		strings.Join(names, ", "))
}

var (
	depthTestValues  = []optionValue[DepthTest]{{"off", DepthTestOff}, {"lequal", DepthTestLEqual}}
	depthWriteValues = []optionValue[bool]{{"false", false}, {"true", true}}
	blendValues      = []optionValue[BlendMode]{{"none", BlendNone}, {"alpha", BlendAlpha}, {"dual", BlendDual}}
	cullValues       = []optionValue[CullMode]{{"off", CullOff}, {"back", CullBack}, {"front", CullFront}}
	vertexTypeValues = []optionValue[VertexType]{{"immediate", VertexImmediate}}
	filterValues     = []optionValue[TextureFilter]{{"linear", FilterLinear}, {"point", FilterPoint}}
	addressValues    = []optionValue[TextureAddress]{{"repeat", AddressRepeat}, {"clamp", AddressClamp}}
)

var shaderOptionKeys = map[string]bool{
	"depth_test": true, "depth_write": true, "blend": true,
	"cull_mode": true, "vertex_type": true, "sampler": true,
}

// ParseShaderOptions parses lines of the form "key = value". Lines that
// don't start with a known key are ignored, so the options may be
// embedded in shader source.
func ParseShaderOptions(text string) (ShaderOptions, error) {
	opts := DefaultShaderOptions()

	scanner := bufio.NewScanner(strings.NewReader(text))
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !found {
			if shaderOptionKeys[strings.Fields(line)[0]] {
				return opts, fmt.Errorf("line %d: %s: missing \"=\"", lineno, line)
			}
			continue
		}
		if !shaderOptionKeys[key] {
			continue
		}
		value = strings.TrimSpace(value)

		var err error
		switch key {
		case "depth_test":
			opts.DepthTest, err = lookupOption(key, value, depthTestValues)
		case "depth_write":
			opts.DepthWrite, err = lookupOption(key, value, depthWriteValues)
		case "blend":
			opts.Blend, err = lookupOption(key, value, blendValues)
		case "cull_mode":
			opts.Cull, err = lookupOption(key, value, cullValues)
		case "vertex_type":
			opts.VertexType, err = lookupOption(key, value, vertexTypeValues)
		case "sampler":
			var s SamplerState
			s, err = parseSampler(value)
			opts.Samplers = append(opts.Samplers, s)
		}
		if err != nil {
			return opts, fmt.Errorf("line %d: %w", lineno, err)
		}
	}
	return opts, scanner.Err()
}

func parseSampler(v string) (SamplerState, error) {
	f, a, found := strings.Cut(v, "/")
	if !found {
		return SamplerState{}, fmt.Errorf("sampler: %q: expected <filter>/<address>", v)
	}
	filter, err := lookupOption("sampler filter", strings.TrimSpace(f), filterValues)
	if err != nil {
		return SamplerState{}, err
	}
	address, err := lookupOption("sampler address", strings.TrimSpace(a), addressValues)
	if err != nil {
		return SamplerState{}, err
	}
	return SamplerState{Filter: filter, Address: address}, nil
}

// ShaderSource holds a parsed shader file: an options block followed by
// "#vertex" and "#fragment" sections.
type ShaderSource struct {
	Name     string
	Options  ShaderOptions
	Vertex   string
	Fragment string
}

func ParseShaderSource(name, text string) (ShaderSource, error) {
	src := ShaderSource{Name: name}

	var header, vertex, fragment strings.Builder
	cur := &header
	for line := range strings.Lines(text) {
		switch strings.TrimSpace(line) {
		case "#vertex":
			cur = &vertex
		case "#fragment":
			cur = &fragment
		default:
			cur.WriteString(line)
		}
	}

	if vertex.Len() == 0 {
		return src, fmt.Errorf("%s: no #vertex section", name)
	}
	if fragment.Len() == 0 {
		return src, fmt.Errorf("%s: no #fragment section", name)
	}

	var err error
	if src.Options, err = ParseShaderOptions(header.String()); err != nil {
		return src, fmt.Errorf("%s: %w", name, err)
	}
	src.Vertex, src.Fragment = vertex.String(), fragment.String()
	return src, nil
}
