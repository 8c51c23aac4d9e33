package effect

import (
	"sort"

	"github.com/gogpu/fxc/ir"
	"github.com/gogpu/fxc/spirv"
)

// Stage is the pipeline stage a shader entry point runs in.
type Stage uint8

const (
	StageVertex Stage = iota
	StagePixel
)

func (s Stage) String() string {
	if s == StageVertex {
		return "vertex"
	}
	return "pixel"
}

func (s Stage) model() spirv.ExecutionModel {
	if s == StageVertex {
		return spirv.ExecutionModelVertex
	}
	return spirv.ExecutionModelFragment
}

// EntryPoint is a generated shader entry. It wraps the user function
// Function, passing its parameters and results through stage interface
// variables.
type EntryPoint struct {
	Name       string
	Stage      Stage
	Function   ir.ID
	Definition ir.ID
}

type entryRequest struct {
	fn    *ir.FunctionInfo
	stage Stage
}

// Module is the result of a successful compilation: the assembled SPIR-V
// instruction stream and the metadata the runtime needs to drive it.
type Module struct {
	SPIRV *spirv.Module

	Techniques  []*ir.TechniqueInfo
	Structs     map[string]*ir.StructInfo
	Functions   []*ir.FunctionInfo
	Uniforms    []*ir.VariableInfo
	Textures    []*ir.VariableInfo
	Samplers    []*ir.VariableInfo
	EntryPoints []EntryPoint

	// UniformSize is the size in bytes of the packed constant buffer.
	UniformSize uint32
}

// Technique returns the technique with the given name, or nil.
func (m *Module) Technique(name string) *ir.TechniqueInfo {
	for _, t := range m.Techniques {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// Uniform returns the uniform with the given name, or nil.
func (m *Module) Uniform(name string) *ir.VariableInfo {
	for _, u := range m.Uniforms {
		if u.Name == name {
			return u
		}
	}
	return nil
}

// StructNames returns the names of all structs in sorted order.
func (m *Module) StructNames() []string {
	names := make([]string, 0, len(m.Structs))
	for name := range m.Structs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Encode returns the SPIR-V binary of the module.
func (m *Module) Encode(version spirv.Version) []byte {
	return m.SPIRV.Encode(version)
}

// finish emits the entry points and assembles the module.
func (p *Parser) finish() *Module {
	m := &Module{
		Techniques:  p.techniques,
		Structs:     make(map[string]*ir.StructInfo, len(p.structList)),
		Functions:   p.functions,
		Uniforms:    p.uniforms,
		Textures:    p.textures,
		Samplers:    p.samplers,
		UniformSize: p.layout.Size(),
	}
	for _, s := range p.structList {
		m.Structs[s.Name] = s
	}

	names := make(map[string]bool)
	var modes []ir.ID
	for _, req := range p.entries {
		name := uniqueName(req.fn.Name)
		if names[name] {
			name += "_" + req.stage.String()
		}
		names[name] = true

		e := p.entryPoint(req, name)
		m.EntryPoints = append(m.EntryPoints, e)
		if req.stage == StagePixel {
			modes = append(modes, e.Definition)
		}
	}
	for _, id := range modes {
		p.b.AddNodeWithoutResult(spirv.SectionEntries, ir.Location{}, spirv.OpExecutionMode).
			AddIDs(id).Add(uint32(spirv.ExecutionModeOriginUpperLeft))
	}

	m.SPIRV = p.b.Finish()
	return m
}

// entryWriter collects the interface of one generated entry point.
type entryWriter struct {
	p         *Parser
	stage     Stage
	loc       ir.Location
	variables []ir.ID
}

// entryPoint generates a parameterless void function that loads the
// stage inputs, calls the user function and stores its outputs.
func (p *Parser) entryPoint(req entryRequest, name string) EntryPoint {
	f := req.fn
	loc := f.Location
	w := &entryWriter{p: p, stage: req.stage, loc: loc}

	void := p.r.ConvertFunctionType(ir.TypeVoid, nil)
	def := p.b.AddNode(spirv.SectionFunctions, loc, spirv.OpFunction, p.typeID(ir.TypeVoid)).
		Add(uint32(spirv.FunctionControlNone)).AddIDs(void).Result
	p.b.AddName(def, name)
	p.b.AddNode(spirv.SectionFunctions, loc, spirv.OpLabel, 0)
	start := p.b.Len(spirv.SectionTemporary)

	args := make([]ir.ID, len(f.Parameters))
	temps := make([]ir.ID, len(f.Parameters))
	for i, param := range f.Parameters {
		t := param.Type
		if !t.Has(ir.QualifierOut) {
			args[i] = w.input(t.Value(), param.Semantic, t.Qualifiers)
			continue
		}
		ptr := p.r.ConvertPointerType(t.Value(), spirv.StorageClassFunction)
		temps[i] = p.b.AddNode(spirv.SectionFunctions, loc, spirv.OpVariable, ptr).
			Add(uint32(spirv.StorageClassFunction)).Result
		if t.Has(ir.QualifierIn) {
			value := w.input(t.Value(), param.Semantic, t.Qualifiers)
			p.emitWithoutResult(loc, spirv.OpStore).AddIDs(temps[i], value)
		}
		args[i] = temps[i]
	}

	result := p.emit(loc, spirv.OpFunctionCall, p.typeID(f.ReturnType)).AddIDs(f.Definition).AddIDs(args...).Result
	if !f.ReturnType.IsVoid() {
		w.output(f.ReturnType.Value(), f.ReturnSemantic, result)
	}
	for i, param := range f.Parameters {
		if temps[i] == 0 {
			continue
		}
		t := param.Type.Value()
		value := p.emit(loc, spirv.OpLoad, p.typeID(t)).AddIDs(temps[i]).Result
		w.output(t, param.Semantic, value)
	}
	p.emitWithoutResult(loc, spirv.OpReturn)
	p.b.Splice(spirv.SectionTemporary, start, spirv.SectionFunctions)
	p.b.AddNodeWithoutResult(spirv.SectionFunctions, loc, spirv.OpFunctionEnd)

	p.b.AddNodeWithoutResult(spirv.SectionEntries, loc, spirv.OpEntryPoint).
		Add(uint32(req.stage.model())).AddIDs(def).AddString(name).AddIDs(w.variables...)

	return EntryPoint{Name: name, Stage: req.stage, Function: f.Definition, Definition: def}
}

// input loads a stage input of type t. Structs are assembled from one
// input per field.
func (w *entryWriter) input(t ir.TypeInfo, semantic string, q ir.Qualifier) ir.ID {
	p := w.p
	if t.IsStruct() {
		info := p.structs[t.Definition]
		fields := make([]ir.ID, len(info.Fields))
		for i, f := range info.Fields {
			fields[i] = w.input(f.Type.Value(), f.Semantic, f.Type.Qualifiers)
		}
		return p.construct(w.loc, t, fields...)
	}
	v := w.variable(spirv.StorageClassInput, t, semantic, q)
	return p.emit(w.loc, spirv.OpLoad, p.typeID(t)).AddIDs(v).Result
}

// output stores value to stage outputs, one per struct field.
func (w *entryWriter) output(t ir.TypeInfo, semantic string, value ir.ID) {
	p := w.p
	if t.IsStruct() {
		info := p.structs[t.Definition]
		for i, f := range info.Fields {
			ft := f.Type.Value()
			w.output(ft, f.Semantic, p.extract(w.loc, ft, value, uint32(i)))
		}
		return
	}
	v := w.variable(spirv.StorageClassOutput, t, semantic, 0)
	p.emitWithoutResult(w.loc, spirv.OpStore).AddIDs(v, value)
}

// variable declares one interface variable and decorates it from its
// semantic: system values map to built-ins, everything else to a location.
func (w *entryWriter) variable(storage spirv.StorageClass, t ir.TypeInfo, semantic string, q ir.Qualifier) ir.ID {
	p := w.p
	ptr := p.r.ConvertPointerType(t, storage)
	id := p.b.AddNode(spirv.SectionVariables, w.loc, spirv.OpVariable, ptr).Add(uint32(storage)).Result
	if semantic != "" {
		p.b.AddName(id, semantic)
	}
	w.variables = append(w.variables, id)

	input := storage == spirv.StorageClassInput
	if builtin, ok := builtinSemantic(w.stage, input, semantic); ok {
		p.b.AddDecorate(id, spirv.DecorationBuiltIn, uint32(builtin))
		return id
	}

	location, ok := targetSemantic(semantic)
	if !ok || input || w.stage != StagePixel {
		location = p.semanticLocation(semantic)
	}
	p.b.AddDecorate(id, spirv.DecorationLocation, location)

	// Interpolation applies to what the rasterizer feeds the pixel stage.
	if input && w.stage == StagePixel {
		switch {
		case q&ir.QualifierNoInterpolation != 0 || t.IsIntegral() || t.IsBoolean():
			p.b.AddDecorate(id, spirv.DecorationFlat)
		case q&ir.QualifierNoPerspective != 0:
			p.b.AddDecorate(id, spirv.DecorationNoPerspective)
		}
		if q&ir.QualifierCentroid != 0 {
			p.b.AddDecorate(id, spirv.DecorationCentroid)
		}
	}
	return id
}

func builtinSemantic(stage Stage, input bool, semantic string) (spirv.BuiltIn, bool) {
	switch {
	case stage == StagePixel && input && (semantic == "SV_POSITION" || semantic == "VPOS"):
		return spirv.BuiltInFragCoord, true
	case stage == StageVertex && !input && (semantic == "SV_POSITION" || semantic == "POSITION"):
		return spirv.BuiltInPosition, true
	case stage == StageVertex && input && semantic == "SV_VERTEXID":
		return spirv.BuiltInVertexIndex, true
	case stage == StagePixel && !input && (semantic == "SV_DEPTH" || semantic == "DEPTH"):
		return spirv.BuiltInFragDepth, true
	}
	return 0, false
}

// targetSemantic maps SV_TARGETn and COLORn to render target n.
func targetSemantic(semantic string) (uint32, bool) {
	for _, prefix := range []string{"SV_TARGET", "COLOR"} {
		if len(semantic) < len(prefix) || semantic[:len(prefix)] != prefix {
			continue
		}
		n, ok := semanticIndex(semantic[len(prefix):])
		return n, ok && n < ir.MaxRenderTargets
	}
	return 0, false
}

func semanticIndex(digits string) (uint32, bool) {
	if digits == "" {
		return 0, true
	}
	var n uint32
	for i := 0; i < len(digits); i++ {
		c := digits[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + uint32(c-'0')
	}
	return n, true
}

// texcoordLocations is the number of locations reserved for TEXCOORDn.
const texcoordLocations = 16

// semanticLocation returns the location linking a semantic across stages:
// TEXCOORDn uses n, other semantics get the next free location after the
// reserved range, shared by all entry points of the module.
func (p *Parser) semanticLocation(semantic string) uint32 {
	if len(semantic) >= 8 && semantic[:8] == "TEXCOORD" {
		if n, ok := semanticIndex(semantic[8:]); ok && n < texcoordLocations {
			return n
		}
	}
	if location, ok := p.locations[semantic]; ok {
		return location
	}
	location := texcoordLocations + uint32(len(p.locations))
	p.locations[semantic] = location
	return location
}
