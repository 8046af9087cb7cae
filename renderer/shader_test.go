// renderer/shader_test.go
// Copyright(c) 2022-2024 vacation contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package renderer

import (
	"slices"
	"strings"
	"testing"
)

func TestParseShaderOptions(t *testing.T) {
	for _, test := range []struct {
		text     string
		expected ShaderOptions
		err      string
	}{
		{
			text:     "",
			expected: DefaultShaderOptions(),
		},
		{
			text: "depth_test = off\ndepth_write=false\n  blend = dual\ncull_mode = front\n",
			expected: ShaderOptions{
				DepthTest:  DepthTestOff,
				DepthWrite: false,
				Blend:      BlendDual,
				Cull:       CullFront,
				VertexType: VertexImmediate,
			},
		},
		{
			text: "uniform sampler2D u_texture0;\nsampler = point/repeat\nsampler = linear/clamp\n",
			expected: ShaderOptions{
				DepthTest:  DepthTestLEqual,
				DepthWrite: true,
				Blend:      BlendNone,
				Cull:       CullBack,
				VertexType: VertexImmediate,
				Samplers:   []SamplerState{{Filter: FilterPoint, Address: AddressRepeat}, LinearClampSampler},
			},
		},
		{
			text: "// a comment mentioning blend\nfoo = bar\n",
			expected: DefaultShaderOptions(),
		},
		{text: "blend = additive\n", err: "valid values are none, alpha, dual"},
		{text: "\n\ncull_mode back\n", err: "line 3"},
		{text: "vertex_type = mesh", err: "immediate"},
		{text: "sampler = linear", err: "<filter>/<address>"},
		{text: "sampler = trilinear/clamp", err: "linear, point"},
		{text: "depth_write = yes", err: "false, true"},
	} {
		opts, err := ParseShaderOptions(test.text)
		if test.err != "" {
			if err == nil || !strings.Contains(err.Error(), test.err) {
				t.Errorf("%q: expected error containing %q, got %v", test.text, test.err, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: unexpected error %v", test.text, err)
			continue
		}
		if opts.DepthTest != test.expected.DepthTest || opts.DepthWrite != test.expected.DepthWrite ||
			opts.Blend != test.expected.Blend || opts.Cull != test.expected.Cull ||
			opts.VertexType != test.expected.VertexType ||
			!slices.Equal(opts.Samplers, test.expected.Samplers) {
			t.Errorf("%q: got %+v, expected %+v", test.text, opts, test.expected)
		}
	}
}

func TestShaderOptionsSampler(t *testing.T) {
	opts := DefaultShaderOptions()
	opts.Samplers = []SamplerState{PointClampSampler}
	if opts.Sampler(0) != PointClampSampler {
		t.Errorf("unit 0: got %s", opts.Sampler(0))
	}
	if opts.Sampler(1) != LinearClampSampler || opts.Sampler(-1) != LinearClampSampler {
		t.Errorf("units without samplers should get the default")
	}
}

func TestParseShaderSource(t *testing.T) {
	text := `blend = alpha
depth_test = off

#vertex
attribute vec3 a_position;
void main() { gl_Position = vec4(a_position, 1.0); }
#fragment
void main() { gl_FragColor = vec4(1.0); }
`
	src, err := ParseShaderSource("color", text)
	if err != nil {
		t.Fatal(err)
	}
	if src.Name != "color" || src.Options.Blend != BlendAlpha || src.Options.DepthTest != DepthTestOff {
		t.Errorf("unexpected source %+v", src)
	}
	if !strings.HasPrefix(src.Vertex, "attribute vec3") || strings.Contains(src.Vertex, "gl_FragColor") {
		t.Errorf("bad vertex section %q", src.Vertex)
	}
	if !strings.Contains(src.Fragment, "gl_FragColor") || strings.Contains(src.Fragment, "#fragment") {
		t.Errorf("bad fragment section %q", src.Fragment)
	}

	for _, bad := range []string{
		"#vertex\nvoid main() {}\n",
		"#fragment\nvoid main() {}\n",
		"blend = bad\n#vertex\nvoid main() {}\n#fragment\nvoid main() {}\n",
	} {
		if _, err := ParseShaderSource("bad", bad); err == nil {
			t.Errorf("%q: expected an error", bad)
		} else if !strings.HasPrefix(err.Error(), "bad: ") {
			t.Errorf("%q: error %q doesn't name the shader", bad, err)
		}
	}
}
