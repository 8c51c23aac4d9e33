package fxc

import (
	"fmt"

	"github.com/gogpu/fxc/effect"
	"github.com/gogpu/fxc/ir"
	"gopkg.in/yaml.v3"
)

// Metadata is the runtime-facing description of a compiled effect: resource
// bindings, the packed uniform layout and the techniques with their pass
// state. It is what a renderer loads next to the SPIR-V binary.
type Metadata struct {
	Source      string              `yaml:"source,omitempty"`
	UniformSize uint32              `yaml:"uniform_size"`
	Uniforms    []UniformMetadata   `yaml:"uniforms,omitempty"`
	Textures    []TextureMetadata   `yaml:"textures,omitempty"`
	Samplers    []SamplerMetadata   `yaml:"samplers,omitempty"`
	EntryPoints []EntryMetadata     `yaml:"entry_points,omitempty"`
	Techniques  []TechniqueMetadata `yaml:"techniques,omitempty"`
}

// UniformMetadata describes one uniform in the constant buffer.
type UniformMetadata struct {
	Name        string         `yaml:"name"`
	Type        string         `yaml:"type"`
	Offset      uint32         `yaml:"offset"`
	Size        uint32         `yaml:"size"`
	Binding     uint32         `yaml:"binding"`
	Default     []string       `yaml:"default,omitempty"`
	Annotations map[string]any `yaml:"annotations,omitempty"`
}

// TextureMetadata describes a texture resource.
type TextureMetadata struct {
	Name        string         `yaml:"name"`
	Semantic    string         `yaml:"semantic,omitempty"`
	Binding     uint32         `yaml:"binding"`
	Width       uint32         `yaml:"width"`
	Height      uint32         `yaml:"height"`
	Depth       uint32         `yaml:"depth,omitempty"`
	Levels      uint32         `yaml:"levels"`
	Format      string         `yaml:"format"`
	SRGB        bool           `yaml:"srgb,omitempty"`
	Annotations map[string]any `yaml:"annotations,omitempty"`
}

// SamplerMetadata describes a sampler resource.
type SamplerMetadata struct {
	Name     string   `yaml:"name"`
	Binding  uint32   `yaml:"binding"`
	Texture  string   `yaml:"texture"`
	Filter   string   `yaml:"filter"`
	Address  []string `yaml:"address,flow"`
	MinLOD   float32  `yaml:"min_lod"`
	MaxLOD   float32  `yaml:"max_lod"`
	LODBias  float32  `yaml:"lod_bias,omitempty"`
	SRGB     bool     `yaml:"srgb,omitempty"`
	Semantic string   `yaml:"semantic,omitempty"`
}

// EntryMetadata names a generated entry point.
type EntryMetadata struct {
	Name     string `yaml:"name"`
	Stage    string `yaml:"stage"`
	Function string `yaml:"function"`
}

// TechniqueMetadata describes a technique and its passes.
type TechniqueMetadata struct {
	Name        string         `yaml:"name"`
	Annotations map[string]any `yaml:"annotations,omitempty"`
	Passes      []PassMetadata `yaml:"passes"`
}

// PassMetadata holds the shaders, render targets and state of one pass.
type PassMetadata struct {
	Name          string   `yaml:"name,omitempty"`
	VertexShader  string   `yaml:"vertex_shader,omitempty"`
	PixelShader   string   `yaml:"pixel_shader,omitempty"`
	RenderTargets []string `yaml:"render_targets,omitempty"`

	ClearRenderTargets bool  `yaml:"clear_render_targets"`
	SRGBWriteEnable    bool  `yaml:"srgb_write_enable,omitempty"`
	ColorWriteMask     uint8 `yaml:"color_write_mask"`

	Blend   *BlendMetadata   `yaml:"blend,omitempty"`
	Stencil *StencilMetadata `yaml:"stencil,omitempty"`
}

// BlendMetadata is present when blending is enabled.
type BlendMetadata struct {
	Op        string `yaml:"op"`
	OpAlpha   string `yaml:"op_alpha"`
	Src       string `yaml:"src"`
	Dest      string `yaml:"dest"`
	SrcAlpha  string `yaml:"src_alpha"`
	DestAlpha string `yaml:"dest_alpha"`
}

// StencilMetadata is present when the stencil test is enabled.
type StencilMetadata struct {
	Func        string `yaml:"func"`
	Ref         uint32 `yaml:"ref"`
	ReadMask    uint8  `yaml:"read_mask"`
	WriteMask   uint8  `yaml:"write_mask"`
	PassOp      string `yaml:"pass_op"`
	FailOp      string `yaml:"fail_op"`
	DepthFailOp string `yaml:"depth_fail_op"`
}

// NewMetadata collects the runtime description of a compiled module.
func NewMetadata(m *effect.Module, source string) *Metadata {
	md := &Metadata{Source: source, UniformSize: m.UniformSize}

	for _, u := range m.Uniforms {
		um := UniformMetadata{
			Name:        u.Name,
			Type:        u.Type.String(),
			Offset:      u.Offset,
			Size:        u.Size,
			Binding:     u.Binding,
			Annotations: annotationValues(u.Annotations),
		}
		if u.Initializer != nil {
			um.Default = constantValues(u.Type, *u.Initializer)
		}
		md.Uniforms = append(md.Uniforms, um)
	}

	for _, t := range m.Textures {
		tm := TextureMetadata{
			Name:        t.Name,
			Semantic:    t.Semantic,
			Binding:     t.Binding,
			Width:       t.Width,
			Height:      t.Height,
			Levels:      t.Levels,
			Format:      t.Format.String(),
			SRGB:        t.SRGB,
			Annotations: annotationValues(t.Annotations),
		}
		if t.Depth > 1 {
			tm.Depth = t.Depth
		}
		md.Textures = append(md.Textures, tm)
	}

	for _, s := range m.Samplers {
		minFilter, magFilter, mipFilter := s.Filter.Modes()
		md.Samplers = append(md.Samplers, SamplerMetadata{
			Name:     s.Name,
			Binding:  s.Binding,
			Texture:  s.TextureName,
			Filter:   fmt.Sprintf("%s/%s/%s", minFilter, magFilter, mipFilter),
			Address:  []string{s.AddressU.String(), s.AddressV.String(), s.AddressW.String()},
			MinLOD:   s.MinLOD,
			MaxLOD:   s.MaxLOD,
			LODBias:  s.LODBias,
			SRGB:     s.SRGB,
			Semantic: s.Semantic,
		})
	}

	functions := make(map[ir.ID]string, len(m.Functions))
	for _, f := range m.Functions {
		functions[f.Definition] = f.Name
	}
	for _, e := range m.EntryPoints {
		md.EntryPoints = append(md.EntryPoints, EntryMetadata{
			Name:     e.Name,
			Stage:    e.Stage.String(),
			Function: functions[e.Function],
		})
	}

	for _, t := range m.Techniques {
		tm := TechniqueMetadata{Name: t.Name, Annotations: annotationValues(t.Annotations)}
		for _, p := range t.Passes {
			tm.Passes = append(tm.Passes, passMetadata(p))
		}
		md.Techniques = append(md.Techniques, tm)
	}
	return md
}

func passMetadata(p *ir.PassInfo) PassMetadata {
	pm := PassMetadata{
		Name:               p.Name,
		VertexShader:       p.VertexShaderName,
		PixelShader:        p.PixelShaderName,
		ClearRenderTargets: p.ClearRenderTargets,
		SRGBWriteEnable:    p.SRGBWriteEnable,
		ColorWriteMask:     p.ColorWriteMask,
	}

	// Trailing empty slots are dropped; interior ones stay as "".
	last := -1
	for i, name := range p.RenderTargetNames {
		if name != "" {
			last = i
		}
	}
	if last >= 0 {
		pm.RenderTargets = append([]string(nil), p.RenderTargetNames[:last+1]...)
	}

	if p.BlendEnable {
		pm.Blend = &BlendMetadata{
			Op:        p.BlendOp.String(),
			OpAlpha:   p.BlendOpAlpha.String(),
			Src:       p.SrcBlend.String(),
			Dest:      p.DestBlend.String(),
			SrcAlpha:  p.SrcBlendAlpha.String(),
			DestAlpha: p.DestBlendAlpha.String(),
		}
	}
	if p.StencilEnable {
		pm.Stencil = &StencilMetadata{
			Func:        p.StencilFunc.String(),
			Ref:         p.StencilRef,
			ReadMask:    p.StencilReadMask,
			WriteMask:   p.StencilWriteMask,
			PassOp:      p.StencilPassOp.String(),
			FailOp:      p.StencilFailOp.String(),
			DepthFailOp: p.StencilDepthFailOp.String(),
		}
	}
	return pm
}

func annotationValues(a ir.Annotations) map[string]any {
	if len(a) == 0 {
		return nil
	}
	out := make(map[string]any, len(a))
	for name, v := range a {
		out[name] = v.Value()
	}
	return out
}

// constantValues renders every component of a constant in source form.
func constantValues(t ir.TypeInfo, c ir.Constant) []string {
	if t.IsArray() && len(c.Elements) > 0 {
		elem := t.Element()
		var out []string
		for _, e := range c.Elements {
			out = append(out, constantValues(elem, e)...)
		}
		return out
	}
	if t.IsStruct() {
		return nil
	}
	out := make([]string, t.Components())
	for i := range out {
		out[i] = c.Text(t, i)
	}
	return out
}

// YAML encodes the metadata document.
func (md *Metadata) YAML() ([]byte, error) {
	data, err := yaml.Marshal(md)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return data, nil
}
