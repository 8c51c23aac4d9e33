package effect

import (
	"fmt"
	"strings"

	"github.com/gogpu/fxc/ir"
	"github.com/gogpu/fxc/spirv"
)

// uniqueName turns a qualified name into an identifier.
func uniqueName(name string) string {
	return strings.ReplaceAll(name, "::", "_")
}

// parseSemantic parses an optional ": SEMANTIC" suffix.
func (p *Parser) parseSemantic() (string, bool) {
	if !p.match(TokenColon) {
		return "", true
	}
	tok := p.peek()
	if !p.expect(TokenIdent) {
		return "", false
	}
	return strings.ToUpper(tok.Lexeme), true
}

// Structs

func (p *Parser) parseStruct() bool {
	loc := p.advance().Location

	name := fmt.Sprintf("__anonymous_struct_%d_%d", loc.Line, loc.Column)
	if tok := p.peek(); tok.Kind == TokenIdent {
		p.advance()
		name = tok.Lexeme
	}
	if !p.expect(TokenLeftBrace) {
		return false
	}

	// Definition stays zero while the fields parse, so a field naming the
	// struct itself is reported as recursive.
	info := &ir.StructInfo{Name: name, Location: loc}
	if !p.symbols.DeclareStruct(info) {
		return p.errorf(loc, CodeRedefinition, "redefinition of '%s'", name)
	}

	ok := true
	for !p.check(TokenRightBrace) && !p.isAtEnd() {
		if !p.parseStructFields(info) {
			ok = false
			p.consumeStatement()
		}
	}
	if !p.expect(TokenRightBrace) {
		return false
	}

	id := p.b.AllocID()
	members := make([]ir.ID, len(info.Fields))
	for i, f := range info.Fields {
		members[i] = p.typeID(f.Type)
	}
	info.Definition = id
	info.UniqueName = uniqueName(info.Name)
	p.b.AddNodeWithID(spirv.SectionVariables, loc, spirv.OpTypeStruct, 0, id).AddIDs(members...)
	p.b.AddName(id, info.UniqueName)
	for i, f := range info.Fields {
		p.b.AddMemberName(id, uint32(i), f.Name)
	}
	p.structs[id] = info
	p.structList = append(p.structList, info)
	return ok
}

// parseStructFields parses one field declaration line.
func (p *Parser) parseStructFields(info *ir.StructInfo) bool {
	var t ir.TypeInfo
	if !p.parseType(&t) {
		return false
	}
	if t.IsVoid() || t.IsImage() || t.IsSampledImage() {
		return p.errorf(p.previous().Location, CodeTypeMismatch, "struct members cannot be of type '%s'", t)
	}
	for {
		tok := p.peek()
		if !p.expect(TokenIdent) {
			return false
		}
		ft := t
		if !p.parseArraySuffix(&ft) {
			return false
		}
		if ft.IsUnsizedArray() {
			return p.errorf(tok.Location, CodeArrayNotPositive, "'%s': struct members cannot be unsized arrays", tok.Lexeme)
		}
		semantic, ok := p.parseSemantic()
		if !ok {
			return false
		}
		if info.FieldIndex(tok.Lexeme) >= 0 {
			return p.errorf(tok.Location, CodeRedefinition, "redefinition of '%s'", tok.Lexeme)
		}
		info.Fields = append(info.Fields, ir.StructField{Name: tok.Lexeme, Type: ft, Semantic: semantic})
		if !p.match(TokenComma) {
			break
		}
	}
	return p.expect(TokenSemicolon)
}

// Functions

func (p *Parser) parseFunction(ret ir.TypeInfo) bool {
	nameTok := p.advance()
	loc := nameTok.Location
	p.advance() // (

	info := &ir.FunctionInfo{Name: nameTok.Lexeme, ReturnType: ret, Location: loc}
	if !p.check(TokenRightParen) {
		for {
			param, ok := p.parseParameter()
			if !ok {
				return false
			}
			info.Parameters = append(info.Parameters, param)
			if !p.match(TokenComma) {
				break
			}
		}
	}
	if !p.expect(TokenRightParen) {
		return false
	}
	semantic, ok := p.parseSemantic()
	if !ok {
		return false
	}
	info.ReturnSemantic = semantic
	if ret.IsArray() || ret.IsImage() || ret.IsSampledImage() {
		return p.errorf(loc, CodeTypeMismatch, "'%s': functions cannot return '%s'", info.Name, ret)
	}

	if !p.symbols.DeclareFunction(info) {
		return p.errorf(loc, CodeRedefinition, "redefinition of '%s'", info.Name)
	}
	mangled := make([]string, len(info.Parameters))
	for i, param := range info.Parameters {
		mangled[i] = param.Type.Mangle()
	}
	info.UniqueName = uniqueName(info.Name)
	if len(mangled) > 0 {
		info.UniqueName += "_" + strings.Join(mangled, "")
	}
	info.Definition = p.b.AllocID()
	p.functions = append(p.functions, info)

	return p.parseFunctionBody(info)
}

func (p *Parser) parseParameter() (ir.Parameter, bool) {
	var t ir.TypeInfo
	if !p.parseType(&t) {
		return ir.Parameter{}, false
	}
	tok := p.peek()
	if !p.expect(TokenIdent) {
		return ir.Parameter{}, false
	}
	if !p.parseArraySuffix(&t) {
		return ir.Parameter{}, false
	}
	semantic, ok := p.parseSemantic()
	if !ok {
		return ir.Parameter{}, false
	}
	switch {
	case t.IsVoid():
		return ir.Parameter{}, p.errorf(tok.Location, CodeTypeMismatch, "'%s': function parameters cannot be void", tok.Lexeme)
	case t.IsUnsizedArray():
		return ir.Parameter{}, p.errorf(tok.Location, CodeArrayNotPositive, "'%s': function parameters cannot be unsized arrays", tok.Lexeme)
	case (t.IsImage() || t.IsSampledImage()) && t.Has(ir.QualifierOut):
		return ir.Parameter{}, p.errorf(tok.Location, CodeTypeMismatch, "'%s': resources cannot be output parameters", tok.Lexeme)
	}
	// Parameters without a direction are inputs.
	if !t.Has(ir.QualifierOut) {
		t.Qualifiers |= ir.QualifierIn
	}
	return ir.Parameter{Name: tok.Lexeme, Type: t, Semantic: semantic, Location: tok.Location}, true
}

// parseFunctionBody emits the function header straight into the function
// section, parses the body into the scratch section and splices it in.
func (p *Parser) parseFunctionBody(info *ir.FunctionInfo) bool {
	loc := info.Location
	fnType := p.r.ConvertFunctionType(info.ReturnType.Value(), info.ParameterTypes())
	p.b.AddNodeWithID(spirv.SectionFunctions, loc, spirv.OpFunction, p.typeID(info.ReturnType), info.Definition).
		Add(uint32(spirv.FunctionControlNone)).AddIDs(fnType)
	p.b.AddName(info.Definition, info.UniqueName)

	p.symbols.EnterScope()
	defer p.symbols.LeaveScope()

	params := make([]ir.ID, len(info.Parameters))
	for i, param := range info.Parameters {
		pt := param.Type
		typ := p.typeID(pt)
		if pt.Has(ir.QualifierOut) {
			typ = p.r.ConvertPointerType(pt.Value(), spirv.StorageClassFunction)
		}
		params[i] = p.b.AddNode(spirv.SectionFunctions, param.Location, spirv.OpFunctionParameter, typ).Result
		p.b.AddName(params[i], param.Name)
	}
	p.b.AddNode(spirv.SectionFunctions, loc, spirv.OpLabel, 0)

	p.fn = &functionContext{info: info, bodyStart: p.b.Len(spirv.SectionTemporary)}
	defer func() { p.fn = nil }()

	for i, param := range info.Parameters {
		v := &Variable{Name: param.Name, Type: param.Type, Location: param.Location, Storage: spirv.StorageClassFunction}
		switch {
		case param.Type.Has(ir.QualifierOut):
			v.ID = params[i]
		case param.Type.IsImage() || param.Type.IsSampledImage():
			v.ID, v.Value = params[i], true
		default:
			// Inputs are copied so the body may assign to them.
			v.ID = p.temporary(param.Location, param.Type)
			p.emitWithoutResult(param.Location, spirv.OpStore).AddIDs(v.ID, params[i])
		}
		if !p.symbols.DeclareVariable(v) {
			p.errorf(param.Location, CodeRedefinition, "redefinition of '%s'", param.Name)
		}
	}

	// Errors inside the body are already recorded; only a missing closing
	// brace needs the caller to resynchronize.
	ok := p.parseBlock()

	if !p.fn.terminated {
		if info.ReturnType.IsVoid() {
			p.terminate(loc, spirv.OpReturn)
		} else {
			p.terminate(loc, spirv.OpUnreachable)
		}
	}
	p.b.Splice(spirv.SectionTemporary, p.fn.bodyStart, spirv.SectionFunctions)
	p.b.AddNodeWithoutResult(spirv.SectionFunctions, loc, spirv.OpFunctionEnd)
	return ok
}

// Initializers

// parseInitializer parses the value after '=' in a declaration of type t.
func (p *Parser) parseInitializer(t ir.TypeInfo) (*expression, bool) {
	if p.check(TokenLeftBrace) {
		return p.parseInitializerList(t)
	}
	return p.parseAssignment()
}

// parseInitializerList parses "{ a, b, ... }" for an array, struct or
// numeric type. A trailing comma is allowed.
func (p *Parser) parseInitializerList(t ir.TypeInfo) (*expression, bool) {
	loc := p.advance().Location

	var elems []*expression
	for !p.check(TokenRightBrace) && !p.isAtEnd() {
		var e *expression
		var ok bool
		if p.check(TokenLeftBrace) {
			e, ok = p.parseInitializerList(p.elementType(t, len(elems)))
		} else {
			e, ok = p.parseAssignment()
		}
		if !ok {
			return nil, false
		}
		elems = append(elems, e)
		if !p.match(TokenComma) {
			break
		}
	}
	if !p.expect(TokenRightBrace) {
		return nil, false
	}
	return p.aggregate(loc, t, elems)
}

// elementType returns the type of element i of an aggregate.
func (p *Parser) elementType(t ir.TypeInfo, i int) ir.TypeInfo {
	switch {
	case t.IsArray():
		return t.Element()
	case t.IsStruct():
		if info := p.structs[t.Definition]; info != nil && i < len(info.Fields) {
			return info.Fields[i].Type
		}
	}
	return t.ScalarType()
}

// aggregate builds a value of type t from initializer list elements.
func (p *Parser) aggregate(loc ir.Location, t ir.TypeInfo, elems []*expression) (*expression, bool) {
	t = t.Value()
	var count int
	switch {
	case t.IsArray():
		if t.IsUnsizedArray() {
			t.ArrayLength = int32(len(elems))
		}
		count = int(t.ArrayLength)
	case t.IsStruct():
		info := p.structs[t.Definition]
		if info == nil {
			return nil, p.errorf(loc, CodeTypeMismatch, "cannot initialize '%s' from a list", t)
		}
		count = len(info.Fields)
	case t.IsNumeric():
		return p.constructValue(loc, t, elems)
	default:
		return nil, p.errorf(loc, CodeTypeMismatch, "cannot initialize '%s' from a list", t)
	}
	if len(elems) != count {
		return nil, p.errorf(loc, CodeArgumentCount, "incorrect number of initializers for '%s': expected %d, found %d", t, count, len(elems))
	}

	constant := ir.Constant{Elements: make([]ir.Constant, count)}
	allConstant := true
	for i, e := range elems {
		if !p.implicitConvert(e, p.elementType(t, i)) {
			return nil, false
		}
		if e.constant == nil {
			allConstant = false
			continue
		}
		constant.Elements[i] = *e.constant
	}
	if allConstant {
		return constantExpr(loc, t, constant), true
	}
	ids := make([]ir.ID, count)
	for i, e := range elems {
		ids[i] = p.load(e)
	}
	return valueExpr(loc, t, p.construct(loc, t, ids...)), true
}

// parseConstantInitializer parses an initializer that must fold to a
// constant. Anything emitted while evaluating it is discarded.
func (p *Parser) parseConstantInitializer(name string, t ir.TypeInfo) (*ir.Constant, ir.TypeInfo, bool) {
	loc := p.peek().Location
	mark := p.b.Mark()
	e, ok := p.parseInitializer(t)
	if ok {
		if t.IsUnsizedArray() && e.typ.IsArray() {
			t.ArrayLength = e.typ.ArrayLength
		}
		ok = p.implicitConvert(e, t)
	}
	p.b.Truncate(mark)
	if !ok {
		return nil, t, false
	}
	if e.constant == nil {
		return nil, t, p.errorf(loc, CodeNotConstant, "'%s': initial value must be a literal expression", name)
	}
	return e.constant, t, true
}

// Local variables

func (p *Parser) parseLocalVariables() bool {
	var t ir.TypeInfo
	if !p.parseType(&t) {
		return false
	}
	for {
		tok := p.peek()
		if !p.expect(TokenIdent) {
			return false
		}
		vt := t
		if !p.parseArraySuffix(&vt) {
			return false
		}
		if _, ok := p.parseSemantic(); !ok {
			return false
		}
		if !p.declareLocal(tok, vt) {
			return false
		}
		if !p.match(TokenComma) {
			break
		}
	}
	return p.expect(TokenSemicolon)
}

func (p *Parser) declareLocal(tok Token, t ir.TypeInfo) bool {
	name, loc := tok.Lexeme, tok.Location
	if t.IsVoid() {
		return p.errorf(loc, CodeTypeMismatch, "'%s': variables cannot be void", name)
	}
	v := &Variable{Name: name, Type: t, Location: loc, Storage: spirv.StorageClassFunction}

	switch {
	case t.Has(ir.QualifierStatic) || t.Has(ir.QualifierConst):
		var c *ir.Constant
		if p.match(TokenEqual) {
			var ok bool
			if c, t, ok = p.parseConstantInitializer(name, t); !ok {
				return false
			}
		} else if t.Has(ir.QualifierConst) {
			return p.errorf(loc, CodeNotConstant, "'%s': const variables must have an initial value", name)
		}
		if t.IsUnsizedArray() {
			return p.errorf(loc, CodeArrayNotPositive, "'%s': array dimensions must be specified", name)
		}
		v.Type = t
		if t.Has(ir.QualifierConst) {
			v.Constant = c
		} else {
			v.Storage = spirv.StorageClassPrivate
			v.ID = p.privateVariable(loc, name, t, c)
		}

	default:
		var init *expression
		if p.match(TokenEqual) {
			var ok bool
			if init, ok = p.parseInitializer(t); !ok {
				return false
			}
			if t.IsUnsizedArray() && init.typ.IsArray() {
				t.ArrayLength = init.typ.ArrayLength
			}
		}
		if t.IsUnsizedArray() {
			return p.errorf(loc, CodeArrayNotPositive, "'%s': array dimensions must be specified", name)
		}
		v.Type = t
		if t.IsImage() || t.IsSampledImage() {
			if init == nil || !init.typ.Equal(t.Value()) {
				return p.errorf(loc, CodeTypeMismatch, "'%s': local resources must be initialized with a resource", name)
			}
			v.ID, v.Value = p.load(init), true
			break
		}
		v.ID = p.temporary(loc, t)
		if init != nil {
			if !p.implicitConvert(init, t) {
				return false
			}
			value := p.load(init)
			p.emitWithoutResult(loc, spirv.OpStore).AddIDs(v.ID, value)
		}
	}

	if !p.symbols.DeclareVariable(v) {
		return p.errorf(loc, CodeRedefinition, "redefinition of '%s'", name)
	}
	return true
}

// privateVariable declares a module-level variable in Private storage.
func (p *Parser) privateVariable(loc ir.Location, name string, t ir.TypeInfo, init *ir.Constant) ir.ID {
	ptr := p.r.ConvertPointerType(t.Value(), spirv.StorageClassPrivate)
	var value ir.ID
	if init != nil {
		value = p.r.ConvertConstant(t, *init)
	}
	inst := p.b.AddNode(spirv.SectionVariables, loc, spirv.OpVariable, ptr).Add(uint32(spirv.StorageClassPrivate))
	if value != 0 {
		inst.AddIDs(value)
	}
	p.b.AddName(inst.Result, uniqueName(name))
	return inst.Result
}

// Annotations

// parseAnnotations parses "< [type] name = value; ... >" into into. Later
// entries overwrite earlier ones of the same name.
func (p *Parser) parseAnnotations(into ir.Annotations) bool {
	p.advance() // <
	for !p.check(TokenGreater) && !p.isAtEnd() {
		// The type word is optional; "string" is not a language type.
		if p.check(TokenType) || (p.check(TokenIdent) && p.peekAt(1).Kind == TokenIdent) {
			p.advance()
		}
		name := p.peek()
		if !p.expect(TokenIdent) || !p.expect(TokenEqual) {
			return false
		}
		value, ok := p.parseAnnotationValue()
		if !ok || !p.expect(TokenSemicolon) {
			return false
		}
		into[name.Lexeme] = value
	}
	return p.expect(TokenGreater)
}

func (p *Parser) parseAnnotationValue() (ir.Annotation, bool) {
	if p.check(TokenStringLiteral) {
		var sb strings.Builder
		for p.check(TokenStringLiteral) {
			sb.WriteString(p.advance().String)
		}
		return ir.Annotation{Kind: ir.AnnotationString, String: sb.String()}, true
	}

	loc := p.peek().Location
	mark := p.b.Mark()
	e, ok := p.parseTernary()
	p.b.Truncate(mark)
	if !ok {
		return ir.Annotation{}, false
	}
	if e.constant == nil || !e.typ.IsNumeric() || e.typ.IsArray() {
		return ir.Annotation{}, p.errorf(loc, CodeNotConstant, "annotation value must be a literal expression")
	}
	c := *e.constant
	switch {
	case e.typ.IsBoolean():
		return ir.Annotation{Kind: ir.AnnotationBool, Bool: c.Bool(0)}, true
	case e.typ.IsFloatingPoint():
		return ir.Annotation{Kind: ir.AnnotationFloat, Float: c.Float(0)}, true
	}
	return ir.Annotation{Kind: ir.AnnotationInt, Int: c.Int(0)}, true
}

// Global variables

// globalDecl collects everything parsed for one global declarator.
type globalDecl struct {
	name        string
	loc         ir.Location
	typ         ir.TypeInfo
	semantic    string
	annotations ir.Annotations
	init        *ir.Constant
	properties  []property
}

func (p *Parser) parseGlobalVariables(t ir.TypeInfo) bool {
	for {
		tok := p.peek()
		if !p.expect(TokenIdent) {
			return false
		}
		d := globalDecl{name: tok.Lexeme, loc: tok.Location, typ: t, annotations: make(ir.Annotations)}
		if !p.parseArraySuffix(&d.typ) {
			return false
		}
		var ok bool
		if d.semantic, ok = p.parseSemantic(); !ok {
			return false
		}
		if p.check(TokenLess) && !p.parseAnnotations(d.annotations) {
			return false
		}
		if p.match(TokenEqual) {
			if d.init, d.typ, ok = p.parseConstantInitializer(d.name, d.typ); !ok {
				return false
			}
		}
		if p.check(TokenLeftBrace) {
			if d.properties, ok = p.parseProperties(); !ok {
				return false
			}
		}
		if !p.declareGlobal(&d) {
			return false
		}
		if !p.match(TokenComma) {
			break
		}
	}
	return p.expect(TokenSemicolon)
}

func (p *Parser) declareGlobal(d *globalDecl) bool {
	t := d.typ
	switch {
	case t.IsVoid():
		return p.errorf(d.loc, CodeTypeMismatch, "'%s': variables cannot be void", d.name)
	case (t.IsImage() || t.IsSampledImage()) && t.IsArray():
		return p.errorf(d.loc, CodeTypeMismatch, "'%s': arrays of resources are not supported", d.name)
	case t.IsImage():
		return p.declareTexture(d)
	case t.IsSampledImage():
		return p.declareSampler(d)
	case len(d.properties) > 0:
		return p.errorf(d.properties[0].loc, CodeUnknownProperty, "unrecognized property '%s'", d.properties[0].name)
	}

	v := &Variable{Name: d.name, Type: t, Location: d.loc}
	switch {
	case t.Has(ir.QualifierConst) && !t.Has(ir.QualifierUniform):
		if d.init == nil {
			return p.errorf(d.loc, CodeNotConstant, "'%s': const variables must have an initial value", d.name)
		}
		v.Constant = d.init
		if !p.symbols.DeclareVariable(v) {
			return p.errorf(d.loc, CodeRedefinition, "redefinition of '%s'", d.name)
		}
	case t.Has(ir.QualifierStatic):
		if t.IsUnsizedArray() {
			return p.errorf(d.loc, CodeArrayNotPositive, "'%s': array dimensions must be specified", d.name)
		}
		if !p.symbols.DeclareVariable(v) {
			return p.errorf(d.loc, CodeRedefinition, "redefinition of '%s'", d.name)
		}
		v.Storage = spirv.StorageClassPrivate
		v.ID = p.privateVariable(d.loc, v.Name, t, d.init)
	default:
		return p.declareUniform(d, v)
	}
	return true
}

// declareUniform wraps the variable in its own Block struct in Uniform
// storage and records its place in the packed constant buffer.
func (p *Parser) declareUniform(d *globalDecl, v *Variable) bool {
	t := d.typ
	v.Type.Qualifiers |= ir.QualifierUniform
	if !p.symbols.DeclareVariable(v) {
		return p.errorf(d.loc, CodeRedefinition, "redefinition of '%s'", d.name)
	}
	name := uniqueName(v.Name)

	info := ir.NewVariableInfo()
	info.Name = v.Name
	info.UniqueName = name
	info.Type = t
	info.Semantic = d.semantic
	info.Annotations = d.annotations
	info.Location = d.loc
	info.Initializer = d.init
	info.Offset, info.Size = p.layout.Place(t)

	member := p.typeID(t)
	block := p.b.AllocID()
	p.b.AddNodeWithID(spirv.SectionVariables, d.loc, spirv.OpTypeStruct, 0, block).AddIDs(member)
	p.b.AddDecorate(block, spirv.DecorationBlock)
	p.b.AddMemberDecorate(block, 0, spirv.DecorationOffset, 0)
	p.decorateMatrix(block, 0, t)
	p.decorateLayout(t)
	p.b.AddName(block, "__"+name)
	p.b.AddMemberName(block, 0, name)

	blockType := ir.TypeInfo{Base: ir.BaseStruct, Rows: 1, Cols: 1, Definition: block}
	ptr := p.r.ConvertPointerType(blockType, spirv.StorageClassUniform)
	v.ID = p.b.AddNode(spirv.SectionVariables, d.loc, spirv.OpVariable, ptr).Add(uint32(spirv.StorageClassUniform)).Result
	v.Storage = spirv.StorageClassUniform
	v.Block = true
	p.b.AddName(v.ID, name)
	p.bind(v.ID, info)

	info.Definition = v.ID
	p.uniforms = append(p.uniforms, info)
	return true
}

// bind assigns the next binding in descriptor set 0.
func (p *Parser) bind(id ir.ID, info *ir.VariableInfo) {
	info.Binding = p.bindings
	p.b.AddDecorate(id, spirv.DecorationDescriptorSet, 0)
	p.b.AddDecorate(id, spirv.DecorationBinding, p.bindings)
	p.bindings++
}

func (p *Parser) decorateMatrix(structID ir.ID, member uint32, t ir.TypeInfo) {
	if t.IsMatrix() {
		p.b.AddMemberDecorate(structID, member, spirv.DecorationColMajor)
		p.b.AddMemberDecorate(structID, member, spirv.DecorationMatrixStride, ir.RegisterSize)
	}
}

// decorateLayout adds the explicit layout decorations of the packed
// constant buffer to array and struct types, once per type.
func (p *Parser) decorateLayout(t ir.TypeInfo) {
	if t.IsArray() {
		id := p.typeID(t)
		if !p.strides[id] {
			p.strides[id] = true
			stride := p.layout.SizeOf(t.Element())
			stride = (stride + ir.RegisterSize - 1) / ir.RegisterSize * ir.RegisterSize
			p.b.AddDecorate(id, spirv.DecorationArrayStride, stride)
		}
		p.decorateLayout(t.Element())
		return
	}
	if !t.IsStruct() || p.strides[t.Definition] {
		return
	}
	info := p.structs[t.Definition]
	if info == nil {
		return
	}
	p.strides[t.Definition] = true
	layout := ir.NewUniformLayout(p.structByID)
	for i, f := range info.Fields {
		offset, _ := layout.Place(f.Type)
		p.b.AddMemberDecorate(t.Definition, uint32(i), spirv.DecorationOffset, offset)
		p.decorateMatrix(t.Definition, uint32(i), f.Type)
		p.decorateLayout(f.Type)
	}
}
