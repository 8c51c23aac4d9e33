package effect

import (
	"strings"

	"github.com/gogpu/fxc/ir"
	"github.com/gogpu/fxc/spirv"
)

// property is one "Name = value;" assignment of a resource or pass block.
// A bare identifier value is kept as ident; anything else must fold to a
// scalar constant.
type property struct {
	name     string
	loc      ir.Location
	ident    string
	typ      ir.TypeInfo
	constant *ir.Constant
}

// parseProperties parses "{ Name = value; ... }".
func (p *Parser) parseProperties() ([]property, bool) {
	p.advance() // {
	var props []property
	for !p.check(TokenRightBrace) && !p.isAtEnd() {
		prop, ok := p.parseProperty()
		if !ok {
			return nil, false
		}
		props = append(props, prop)
	}
	return props, p.expect(TokenRightBrace)
}

func (p *Parser) parseProperty() (property, bool) {
	tok := p.peek()
	if !p.expect(TokenIdent) || !p.expect(TokenEqual) {
		return property{}, false
	}
	prop := property{name: tok.Lexeme, loc: p.peek().Location}

	// A name that does not denote a constant is a symbolic value.
	if p.check(TokenIdent) {
		start := p.current
		name, _, _ := p.parseIdentifier()
		if v := p.symbols.LookupVariable(name); p.check(TokenSemicolon) && (v == nil || v.Constant == nil) {
			prop.ident = name
			p.advance()
			return prop, true
		}
		p.current = start
	}

	mark := p.b.Mark()
	e, ok := p.parseExpression()
	p.b.Truncate(mark)
	if !ok {
		return property{}, false
	}
	if e.constant == nil || !e.typ.IsScalar() {
		return property{}, p.errorf(prop.loc, CodeInvalidValue, "value of '%s' must be a literal scalar expression", prop.name)
	}
	prop.typ, prop.constant = e.typ, e.constant
	return prop, p.expect(TokenSemicolon)
}

func (p *Parser) invalidValue(prop property) bool {
	value := prop.ident
	if prop.constant != nil {
		value = prop.constant.Text(prop.typ, 0)
	}
	return p.errorf(prop.loc, CodeInvalidValue, "invalid value '%s' for property '%s'", value, prop.name)
}

// integer returns the value as a whole number within [lo, hi].
func (prop property) integer(lo, hi int64) (uint32, bool) {
	if prop.constant == nil {
		return 0, false
	}
	var v int64
	switch {
	case prop.typ.IsFloatingPoint():
		f := prop.constant.Float(0)
		if f != float32(int64(f)) {
			return 0, false
		}
		v = int64(f)
	case prop.typ.Signed:
		v = int64(prop.constant.Int(0))
	default:
		v = int64(prop.constant.Uint(0))
	}
	if v < lo || v > hi {
		return 0, false
	}
	return uint32(v), true
}

func (prop property) float() (float32, bool) {
	if prop.constant == nil || prop.typ.IsBoolean() {
		return 0, false
	}
	c := prop.constant.Convert(prop.typ, ir.TypeFloat)
	return c.Float(0), true
}

// flag accepts true, false, 0 and 1.
func (prop property) flag() (bool, bool) {
	if prop.constant != nil && prop.typ.IsBoolean() {
		return prop.constant.Bool(0), true
	}
	v, ok := prop.integer(0, 1)
	return v == 1, ok
}

// enumValue looks the identifier up in a case-sensitive name table.
func enumValue[T any](prop property, names map[string]T) (T, bool) {
	v, ok := names[prop.ident]
	return v, ok && prop.ident != ""
}

var textureFormats = map[string]ir.TextureFormat{
	"R8": ir.FormatR8, "R16F": ir.FormatR16F, "R32F": ir.FormatR32F,
	"RG8": ir.FormatRG8, "RG16": ir.FormatRG16, "RG16F": ir.FormatRG16F, "RG32F": ir.FormatRG32F,
	"RGBA8": ir.FormatRGBA8, "RGBA16": ir.FormatRGBA16, "RGBA16F": ir.FormatRGBA16F, "RGBA32F": ir.FormatRGBA32F,
}

var filterModes = map[string]ir.FilterMode{
	"POINT": ir.FilterPoint, "LINEAR": ir.FilterLinear, "ANISOTROPIC": ir.FilterAnisotropicMode,
}

var addressModes = map[string]ir.AddressMode{
	"CLAMP": ir.AddressClamp, "WRAP": ir.AddressWrap, "REPEAT": ir.AddressWrap,
	"MIRROR": ir.AddressMirror, "BORDER": ir.AddressBorder,
}

var blendFactors = map[string]ir.BlendFactor{
	"ZERO": ir.BlendZero, "ONE": ir.BlendOne,
	"SRCCOLOR": ir.BlendSrcColor, "INVSRCCOLOR": ir.BlendInvSrcColor,
	"SRCALPHA": ir.BlendSrcAlpha, "INVSRCALPHA": ir.BlendInvSrcAlpha,
	"DESTALPHA": ir.BlendDestAlpha, "INVDESTALPHA": ir.BlendInvDestAlpha,
	"DESTCOLOR": ir.BlendDestColor, "INVDESTCOLOR": ir.BlendInvDestColor,
}

var blendOps = map[string]ir.BlendOp{
	"ADD": ir.BlendOpAdd, "SUBTRACT": ir.BlendOpSubtract, "REVSUBTRACT": ir.BlendOpRevSubtract,
	"MIN": ir.BlendOpMin, "MAX": ir.BlendOpMax,
}

var stencilOps = map[string]ir.StencilOp{
	"KEEP": ir.StencilKeep, "ZERO": ir.StencilZero, "REPLACE": ir.StencilReplace,
	"INCRSAT": ir.StencilIncrSat, "DECRSAT": ir.StencilDecrSat, "INVERT": ir.StencilInvert,
	"INCR": ir.StencilIncr, "DECR": ir.StencilDecr,
}

var compareFuncs = map[string]ir.CompareFunc{
	"NEVER": ir.CompareNever, "LESS": ir.CompareLess, "EQUAL": ir.CompareEqual,
	"LESSEQUAL": ir.CompareLessEqual, "GREATER": ir.CompareGreater, "NOTEQUAL": ir.CompareNotEqual,
	"GREATEREQUAL": ir.CompareGreaterEqual, "ALWAYS": ir.CompareAlways,
}

// Resources

func (p *Parser) resourceInfo(d *globalDecl) *ir.VariableInfo {
	info := ir.NewVariableInfo()
	info.Name = p.symbols.Qualify(d.name)
	info.UniqueName = uniqueName(info.Name)
	info.Type = d.typ
	info.Semantic = d.semantic
	info.Annotations = d.annotations
	info.Location = d.loc
	return info
}

// declareResource emits the UniformConstant variable of a texture or
// sampler and binds it.
func (p *Parser) declareResource(d *globalDecl, info *ir.VariableInfo) bool {
	v := &Variable{Name: d.name, Type: d.typ, Location: d.loc, Storage: spirv.StorageClassUniformConstant}
	if !p.symbols.DeclareVariable(v) {
		return p.errorf(d.loc, CodeRedefinition, "redefinition of '%s'", d.name)
	}
	ptr := p.r.ConvertPointerType(d.typ.Value(), spirv.StorageClassUniformConstant)
	v.ID = p.b.AddNode(spirv.SectionVariables, d.loc, spirv.OpVariable, ptr).
		Add(uint32(spirv.StorageClassUniformConstant)).Result
	p.b.AddName(v.ID, info.UniqueName)
	p.bind(v.ID, info)
	info.Definition = v.ID
	p.resources[v.ID] = info
	return true
}

func (p *Parser) declareTexture(d *globalDecl) bool {
	info := p.resourceInfo(d)
	for _, prop := range d.properties {
		var ok bool
		switch prop.name {
		case "Width":
			info.Width, ok = prop.integer(1, 16384)
		case "Height":
			info.Height, ok = prop.integer(1, 16384)
		case "Depth":
			info.Depth, ok = prop.integer(1, 16384)
		case "MipLevels":
			info.Levels, ok = prop.integer(1, 16)
		case "Format":
			info.Format, ok = enumValue(prop, textureFormats)
		case "SRGBTexture":
			info.SRGB, ok = prop.flag()
		default:
			return p.errorf(prop.loc, CodeUnknownProperty, "unrecognized texture property '%s'", prop.name)
		}
		if !ok {
			return p.invalidValue(prop)
		}
	}
	if !p.declareResource(d, info) {
		return false
	}
	p.textures = append(p.textures, info)
	return true
}

func (p *Parser) declareSampler(d *globalDecl) bool {
	info := p.resourceInfo(d)
	minFilter, magFilter, mipFilter := info.Filter.Modes()
	for _, prop := range d.properties {
		var ok bool
		switch prop.name {
		case "Texture":
			var tex *ir.VariableInfo
			if tex, ok = p.lookupTexture(prop.ident); ok {
				info.Texture, info.TextureName = tex.Definition, tex.Name
			}
		case "MinFilter":
			minFilter, ok = enumValue(prop, filterModes)
		case "MagFilter":
			magFilter, ok = enumValue(prop, filterModes)
		case "MipFilter":
			mipFilter, ok = enumValue(prop, filterModes)
		case "AddressU":
			info.AddressU, ok = enumValue(prop, addressModes)
		case "AddressV":
			info.AddressV, ok = enumValue(prop, addressModes)
		case "AddressW":
			info.AddressW, ok = enumValue(prop, addressModes)
		case "MinLOD":
			info.MinLOD, ok = prop.float()
		case "MaxLOD":
			info.MaxLOD, ok = prop.float()
		case "MipLODBias":
			info.LODBias, ok = prop.float()
		case "SRGBTexture":
			info.SRGB, ok = prop.flag()
		default:
			return p.errorf(prop.loc, CodeUnknownProperty, "unrecognized sampler property '%s'", prop.name)
		}
		if !ok {
			return p.invalidValue(prop)
		}
	}
	if info.Texture == 0 {
		return p.errorf(d.loc, CodeMissingTexture, "sampler '%s' is missing required 'Texture' property", d.name)
	}
	info.Filter = ir.CombineFilter(minFilter, magFilter, mipFilter)
	if !p.declareResource(d, info) {
		return false
	}
	p.samplers = append(p.samplers, info)
	return true
}

// lookupTexture resolves a texture by the name a property refers to it by.
func (p *Parser) lookupTexture(name string) (*ir.VariableInfo, bool) {
	if name == "" {
		return nil, false
	}
	v := p.symbols.LookupVariable(name)
	if v == nil || !v.Type.IsImage() {
		return nil, false
	}
	tex, ok := p.resources[v.ID]
	return tex, ok
}

// Techniques

func (p *Parser) parseTechnique() bool {
	loc := p.advance().Location
	tok := p.peek()
	if !p.expect(TokenIdent) {
		return false
	}
	info := &ir.TechniqueInfo{
		Name:        p.symbols.Qualify(tok.Lexeme),
		Annotations: make(ir.Annotations),
		Location:    loc,
	}
	info.UniqueName = uniqueName(info.Name)
	if p.check(TokenLess) && !p.parseAnnotations(info.Annotations) {
		return false
	}
	if !p.expect(TokenLeftBrace) {
		return false
	}

	for !p.check(TokenRightBrace) && !p.isAtEnd() {
		pass, ok := p.parsePass()
		if !ok {
			p.synchronize()
			continue
		}
		info.Passes = append(info.Passes, pass)
	}
	if !p.expect(TokenRightBrace) {
		return false
	}
	for _, other := range p.techniques {
		if other.Name == info.Name {
			p.errorf(tok.Location, CodeRedefinition, "redefinition of technique '%s'", info.Name)
			return true
		}
	}
	p.techniques = append(p.techniques, info)
	return true
}

func (p *Parser) parsePass() (*ir.PassInfo, bool) {
	tok := p.peek()
	if !p.expect(TokenPass) {
		return nil, false
	}
	pass := ir.NewPassInfo("")
	pass.Location = tok.Location
	if name := p.peek(); name.Kind == TokenIdent {
		p.advance()
		pass.Name = name.Lexeme
	}
	if p.check(TokenLess) && !p.parseAnnotations(pass.Annotations) {
		return nil, false
	}
	if !p.check(TokenLeftBrace) {
		return nil, p.unexpected("'{'")
	}
	props, ok := p.parseProperties()
	if !ok {
		return nil, false
	}
	// Invalid values are reported without resynchronizing; the block
	// itself was well formed.
	for _, prop := range props {
		p.applyPassProperty(pass, prop)
	}
	return pass, true
}

func (p *Parser) applyPassProperty(pass *ir.PassInfo, prop property) bool {
	var ok bool
	switch name := prop.name; name {
	case "VertexShader", "PixelShader":
		return p.bindShader(pass, prop, name == "VertexShader")
	case "ClearRenderTargets":
		pass.ClearRenderTargets, ok = prop.flag()
	case "SRGBWriteEnable":
		pass.SRGBWriteEnable, ok = prop.flag()
	case "BlendEnable":
		pass.BlendEnable, ok = prop.flag()
	case "StencilEnable":
		pass.StencilEnable, ok = prop.flag()
	case "ColorWriteMask", "RenderTargetWriteMask":
		var v uint32
		v, ok = prop.integer(0, 0xF)
		pass.ColorWriteMask = uint8(v)
	case "StencilReadMask":
		var v uint32
		v, ok = prop.integer(0, 0xFF)
		pass.StencilReadMask = uint8(v)
	case "StencilWriteMask":
		var v uint32
		v, ok = prop.integer(0, 0xFF)
		pass.StencilWriteMask = uint8(v)
	case "StencilRef":
		pass.StencilRef, ok = prop.integer(0, 0xFF)
	case "BlendOp":
		pass.BlendOp, ok = enumValue(prop, blendOps)
	case "BlendOpAlpha":
		pass.BlendOpAlpha, ok = enumValue(prop, blendOps)
	case "SrcBlend":
		pass.SrcBlend, ok = enumValue(prop, blendFactors)
	case "DestBlend":
		pass.DestBlend, ok = enumValue(prop, blendFactors)
	case "SrcBlendAlpha":
		pass.SrcBlendAlpha, ok = enumValue(prop, blendFactors)
	case "DestBlendAlpha":
		pass.DestBlendAlpha, ok = enumValue(prop, blendFactors)
	case "StencilFunc":
		pass.StencilFunc, ok = enumValue(prop, compareFuncs)
	case "StencilPassOp", "StencilPass":
		pass.StencilPassOp, ok = enumValue(prop, stencilOps)
	case "StencilFailOp", "StencilFail":
		pass.StencilFailOp, ok = enumValue(prop, stencilOps)
	case "StencilDepthFailOp", "StencilZFail":
		pass.StencilDepthFailOp, ok = enumValue(prop, stencilOps)
	default:
		slot, isTarget := renderTargetSlot(name)
		if !isTarget {
			return p.errorf(prop.loc, CodeUnknownProperty, "unrecognized pass property '%s'", name)
		}
		var tex *ir.VariableInfo
		if tex, ok = p.lookupTexture(prop.ident); ok {
			pass.RenderTargets[slot] = tex.Definition
			pass.RenderTargetNames[slot] = tex.Name
		}
	}
	if !ok {
		return p.invalidValue(prop)
	}
	return true
}

// renderTargetSlot maps RenderTarget and RenderTarget0..7 to a slot.
func renderTargetSlot(name string) (int, bool) {
	suffix, found := strings.CutPrefix(name, "RenderTarget")
	if !found {
		return 0, false
	}
	if suffix == "" {
		return 0, true
	}
	if len(suffix) != 1 || suffix[0] < '0' || suffix[0] >= '0'+ir.MaxRenderTargets {
		return 0, false
	}
	return int(suffix[0] - '0'), true
}

// bindShader resolves a shader reference and records the entry point it
// needs. The name must denote exactly one function.
func (p *Parser) bindShader(pass *ir.PassInfo, prop property, vertex bool) bool {
	if prop.ident == "" {
		return p.invalidValue(prop)
	}
	overloads := p.symbols.LookupFunctions(prop.ident)
	switch len(overloads) {
	case 0:
		return p.errorf(prop.loc, CodeUndeclared, "undeclared identifier '%s'", prop.ident)
	case 1:
	default:
		return p.errorf(prop.loc, CodeInvalidValue, "'%s' is overloaded and cannot be used as a shader", prop.ident)
	}
	f := overloads[0]
	for _, param := range f.Parameters {
		if t := param.Type; t.IsImage() || t.IsSampledImage() || t.IsArray() {
			return p.errorf(prop.loc, CodeInvalidValue, "'%s' cannot be used as a shader: parameter '%s' has type '%s'", f.Name, param.Name, t)
		}
	}

	stage := StagePixel
	if vertex {
		stage = StageVertex
		pass.VertexShader, pass.VertexShaderName = f.Definition, f.Name
	} else {
		pass.PixelShader, pass.PixelShaderName = f.Definition, f.Name
	}
	for _, e := range p.entries {
		if e.fn == f && e.stage == stage {
			return true
		}
	}
	p.entries = append(p.entries, entryRequest{fn: f, stage: stage})
	return true
}
