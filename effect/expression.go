package effect

import (
	"github.com/gogpu/fxc/ir"
	"github.com/gogpu/fxc/spirv"
)

// expression is the result of parsing an expression. It is either a
// compile-time constant, an SSA value or, when lvalue is set, a pointer
// into storage. A pointer may carry a pending swizzle that selects
// components of the from type on load and store.
type expression struct {
	typ      ir.TypeInfo
	id       ir.ID
	loc      ir.Location
	constant *ir.Constant

	lvalue   bool
	readonly bool
	storage  spirv.StorageClass
	swizzle  []uint32
	from     ir.TypeInfo
}

func constantExpr(loc ir.Location, t ir.TypeInfo, c ir.Constant) *expression {
	return &expression{typ: t.Value(), constant: &c, loc: loc}
}

func valueExpr(loc ir.Location, t ir.TypeInfo, id ir.ID) *expression {
	return &expression{typ: t.Value(), id: id, loc: loc}
}

func pointerExpr(loc ir.Location, t ir.TypeInfo, id ir.ID, storage spirv.StorageClass) *expression {
	return &expression{typ: t.Value(), id: id, loc: loc, lvalue: true, storage: storage}
}

// emit appends an instruction with a result to the code section.
func (p *Parser) emit(loc ir.Location, op spirv.OpCode, typeID ir.ID) *spirv.Instruction {
	return p.b.AddNode(spirv.SectionTemporary, loc, op, typeID)
}

func (p *Parser) emitWithoutResult(loc ir.Location, op spirv.OpCode) *spirv.Instruction {
	return p.b.AddNodeWithoutResult(spirv.SectionTemporary, loc, op)
}

func (p *Parser) typeID(t ir.TypeInfo) ir.ID {
	return p.r.ConvertType(t.Value())
}

func (p *Parser) extract(loc ir.Location, t ir.TypeInfo, value ir.ID, indices ...uint32) ir.ID {
	return p.emit(loc, spirv.OpCompositeExtract, p.typeID(t)).AddIDs(value).Add(indices...).Result
}

func (p *Parser) construct(loc ir.Location, t ir.TypeInfo, parts ...ir.ID) ir.ID {
	return p.emit(loc, spirv.OpCompositeConstruct, p.typeID(t)).AddIDs(parts...).Result
}

// perColumn builds a matrix of type t from one column at a time.
func (p *Parser) perColumn(loc ir.Location, t ir.TypeInfo, column func(c uint32) ir.ID) ir.ID {
	cols := make([]ir.ID, t.Cols)
	for c := range cols {
		cols[c] = column(uint32(c))
	}
	return p.construct(loc, t, cols...)
}

func columnType(t ir.TypeInfo) ir.TypeInfo {
	return t.WithShape(t.Rows, 1)
}

// temporary declares a function-local variable. Outside of a function the
// variable goes to the scratch section, which is discarded.
func (p *Parser) temporary(loc ir.Location, t ir.TypeInfo) ir.ID {
	section := spirv.SectionFunctions
	if p.fn == nil {
		section = spirv.SectionTemporary
	}
	ptr := p.r.ConvertPointerType(t.Value(), spirv.StorageClassFunction)
	return p.b.AddNode(section, loc, spirv.OpVariable, ptr).Add(uint32(spirv.StorageClassFunction)).Result
}

// load returns the SSA value of e.
func (p *Parser) load(e *expression) ir.ID {
	if e.constant != nil {
		return p.r.ConvertConstant(e.typ, *e.constant)
	}
	value := e.id
	if e.lvalue {
		t := e.typ
		if e.swizzle != nil {
			t = e.from
		}
		value = p.emit(e.loc, spirv.OpLoad, p.typeID(t)).AddIDs(e.id).Result
	}
	if e.swizzle != nil {
		value = p.applySwizzle(e.loc, e.from, value, e.swizzle)
	}
	return value
}

// rvalue replaces a pointer expression by its loaded value.
func (p *Parser) rvalue(e *expression) {
	if e.constant != nil || (!e.lvalue && e.swizzle == nil) {
		return
	}
	id := p.load(e)
	*e = expression{typ: e.typ, id: id, loc: e.loc}
}

// store writes value, already of type e.typ, through the pointer e.
func (p *Parser) store(e *expression, value ir.ID) {
	if e.swizzle == nil || e.from.IsScalar() {
		p.emitWithoutResult(e.loc, spirv.OpStore).AddIDs(e.id, value)
		return
	}

	if len(e.swizzle) == 1 {
		ptr := p.r.ConvertPointerType(e.typ, e.storage)
		component := p.emit(e.loc, spirv.OpAccessChain, ptr).AddIDs(e.id, p.r.Int(int32(e.swizzle[0]))).Result
		p.emitWithoutResult(e.loc, spirv.OpStore).AddIDs(component, value)
		return
	}

	n := uint32(e.from.Rows)
	selectors := make([]uint32, n)
	for i := range selectors {
		selectors[i] = uint32(i)
	}
	for j, c := range e.swizzle {
		selectors[c] = n + uint32(j)
	}
	full := p.emit(e.loc, spirv.OpLoad, p.typeID(e.from)).AddIDs(e.id).Result
	merged := p.emit(e.loc, spirv.OpVectorShuffle, p.typeID(e.from)).AddIDs(full, value).Add(selectors...).Result
	p.emitWithoutResult(e.loc, spirv.OpStore).AddIDs(e.id, merged)
}

// checkAssignable reports whether e may be written.
func (p *Parser) checkAssignable(e *expression) bool {
	if !e.lvalue || e.readonly {
		return p.errorf(e.loc, CodeNotLValue, "l-value specifies const object")
	}
	seen := 0
	for _, c := range e.swizzle {
		if seen&(1<<c) != 0 {
			return p.errorf(e.loc, CodeNotLValue, "l-value contains duplicate swizzle components")
		}
		seen |= 1 << c
	}
	return true
}

// Conversions

// convert changes e to type to, splatting scalars, truncating vectors and
// matrices and converting component types including bool. It reports
// false for shapes that cannot be converted.
func (p *Parser) convert(e *expression, to ir.TypeInfo) bool {
	to = to.Value()
	if e.typ.Equal(to) {
		return true
	}
	if !e.typ.IsNumeric() || !to.IsNumeric() || e.typ.IsArray() || to.IsArray() || !shapeConvertible(e.typ, to) {
		return false
	}
	if e.constant != nil {
		c := e.constant.Convert(e.typ, to)
		e.constant = &c
		e.typ = to
		return true
	}

	p.rvalue(e)
	shaped := e.typ.WithShape(to.Rows, to.Cols)
	value := p.reshape(e.loc, e.typ, shaped, e.id)
	e.id = p.castComponents(e.loc, shaped, to, value)
	e.typ = to
	return true
}

func shapeConvertible(from, to ir.TypeInfo) bool {
	switch {
	case from.Rows == to.Rows && from.Cols == to.Cols:
		return true
	case from.Components() == 1 || to.Components() == 1:
		return true
	case from.IsVector() && to.IsVector():
		return from.Rows >= to.Rows
	case from.IsMatrix() && to.IsMatrix():
		return from.Rows >= to.Rows && from.Cols >= to.Cols
	}
	return false
}

// reshape changes the shape of value keeping its component type.
func (p *Parser) reshape(loc ir.Location, from, to ir.TypeInfo, value ir.ID) ir.ID {
	switch {
	case from.Rows == to.Rows && from.Cols == to.Cols:
		return value
	case from.Components() == 1:
		if to.IsMatrix() {
			column := p.splat(loc, columnType(to), value)
			return p.perColumn(loc, to, func(uint32) ir.ID { return column })
		}
		return p.splat(loc, to, value)
	case to.Components() == 1:
		if from.IsMatrix() {
			return p.extract(loc, to, value, 0, 0)
		}
		return p.extract(loc, to, value, 0)
	case from.IsVector():
		return p.shuffle(loc, to, value, int(to.Rows))
	default:
		return p.perColumn(loc, to, func(c uint32) ir.ID {
			column := p.extract(loc, columnType(from), value, c)
			if from.Rows == to.Rows {
				return column
			}
			return p.shuffle(loc, columnType(to), column, int(to.Rows))
		})
	}
}

func (p *Parser) splat(loc ir.Location, t ir.TypeInfo, scalar ir.ID) ir.ID {
	parts := make([]ir.ID, t.Rows)
	for i := range parts {
		parts[i] = scalar
	}
	return p.construct(loc, t, parts...)
}

// shuffle keeps the first n components of vector.
func (p *Parser) shuffle(loc ir.Location, t ir.TypeInfo, vector ir.ID, n int) ir.ID {
	inst := p.emit(loc, spirv.OpVectorShuffle, p.typeID(t)).AddIDs(vector, vector)
	for i := 0; i < n; i++ {
		inst.Add(uint32(i))
	}
	return inst.Result
}

// castComponents converts the component type of value between two types
// of the same shape.
func (p *Parser) castComponents(loc ir.Location, from, to ir.TypeInfo, value ir.ID) ir.ID {
	if from.Base == to.Base && from.Signed == to.Signed {
		return value
	}
	if to.IsMatrix() {
		return p.perColumn(loc, to, func(c uint32) ir.ID {
			column := p.extract(loc, columnType(from), value, c)
			return p.castComponents(loc, columnType(from), columnType(to), column)
		})
	}

	switch {
	case to.IsBoolean():
		op := spirv.OpINotEqual
		if from.IsFloatingPoint() {
			op = spirv.OpFOrdNotEqual
		}
		zero := p.r.ConvertConstant(from, ir.Constant{})
		return p.emit(loc, op, p.typeID(to)).AddIDs(value, zero).Result
	case from.IsBoolean():
		one := p.r.ConvertConstant(to, ir.IntConstant(1).Convert(ir.TypeInt, to))
		zero := p.r.ConvertConstant(to, ir.Constant{})
		return p.emit(loc, spirv.OpSelect, p.typeID(to)).AddIDs(value, one, zero).Result
	}
	id, _ := p.r.AddCast(spirv.SectionTemporary, loc, from, to, value)
	return id
}

// implicitConvert converts e to the type to if the language allows it
// without a cast, warning about truncation and precision loss.
func (p *Parser) implicitConvert(e *expression, to ir.TypeInfo) bool {
	to = to.Value()
	rank := ir.RankConversion(e.typ.Value(), to)
	if !rank.Convertible() {
		return p.errorf(e.loc, CodeTypeMismatch, "cannot implicitly convert from '%s' to '%s'", e.typ, to)
	}
	if rank.IsTruncation() {
		p.warningf(e.loc, CodeImplicitTruncation, "implicit truncation of vector type")
	}
	if e.typ.IsFloatingPoint() && to.IsIntegral() {
		p.warningf(e.loc, CodePrecisionLoss, "conversion from larger type to smaller, possible loss of data")
	}
	if !p.convert(e, to) {
		return p.errorf(e.loc, CodeTypeMismatch, "cannot implicitly convert from '%s' to '%s'", e.typ, to)
	}
	return true
}

// cast applies an explicit conversion.
func (p *Parser) cast(e *expression, to ir.TypeInfo) bool {
	to = to.Value()
	if to.IsStruct() && !to.IsArray() && e.constant != nil && e.constant.IsZero() && e.typ.IsScalar() {
		*e = *constantExpr(e.loc, to, ir.Constant{})
		return true
	}
	if !p.convert(e, to) {
		return p.errorf(e.loc, CodeTypeMismatch, "cannot convert from '%s' to '%s'", e.typ, to)
	}
	return true
}

// condition converts a scalar expression to a bool value.
func (p *Parser) condition(e *expression) (ir.ID, bool) {
	if !e.typ.IsScalar() {
		return 0, p.errorf(e.loc, CodeTypeMismatch, "condition must be a scalar, found '%s'", e.typ)
	}
	p.convert(e, ir.TypeBool)
	return p.load(e), true
}

// Operators

var binaryNames = map[ir.BinaryOperator]string{
	ir.BinaryAdd: "+", ir.BinarySubtract: "-", ir.BinaryMultiply: "*", ir.BinaryDivide: "/",
	ir.BinaryModulo: "%", ir.BinaryEqual: "==", ir.BinaryNotEqual: "!=", ir.BinaryLess: "<",
	ir.BinaryLessEqual: "<=", ir.BinaryGreater: ">", ir.BinaryGreaterEqual: ">=",
	ir.BinaryAnd: "&", ir.BinaryExclusiveOr: "^", ir.BinaryInclusiveOr: "|",
	ir.BinaryLogicalAnd: "&&", ir.BinaryLogicalOr: "||", ir.BinaryShiftLeft: "<<",
	ir.BinaryShiftRight: ">>",
}

// binaryOpCode selects the instruction for op on operands of type t.
func binaryOpCode(op ir.BinaryOperator, t ir.TypeInfo) spirv.OpCode {
	float, signed := t.IsFloatingPoint(), t.Signed
	pick := func(f, s, u spirv.OpCode) spirv.OpCode {
		switch {
		case float:
			return f
		case signed:
			return s
		}
		return u
	}

	switch op {
	case ir.BinaryAdd:
		return pick(spirv.OpFAdd, spirv.OpIAdd, spirv.OpIAdd)
	case ir.BinarySubtract:
		return pick(spirv.OpFSub, spirv.OpISub, spirv.OpISub)
	case ir.BinaryMultiply:
		return pick(spirv.OpFMul, spirv.OpIMul, spirv.OpIMul)
	case ir.BinaryDivide:
		return pick(spirv.OpFDiv, spirv.OpSDiv, spirv.OpUDiv)
	case ir.BinaryModulo:
		return pick(spirv.OpFRem, spirv.OpSRem, spirv.OpUMod)
	case ir.BinaryAnd:
		return spirv.OpBitwiseAnd
	case ir.BinaryInclusiveOr:
		return spirv.OpBitwiseOr
	case ir.BinaryExclusiveOr:
		return spirv.OpBitwiseXor
	case ir.BinaryShiftLeft:
		return spirv.OpShiftLeftLogical
	case ir.BinaryShiftRight:
		return pick(spirv.OpShiftRightArithmetic, spirv.OpShiftRightArithmetic, spirv.OpShiftRightLogical)
	case ir.BinaryLogicalAnd:
		return spirv.OpLogicalAnd
	case ir.BinaryLogicalOr:
		return spirv.OpLogicalOr
	case ir.BinaryEqual:
		if t.IsBoolean() {
			return spirv.OpLogicalEqual
		}
		return pick(spirv.OpFOrdEqual, spirv.OpIEqual, spirv.OpIEqual)
	case ir.BinaryNotEqual:
		if t.IsBoolean() {
			return spirv.OpLogicalNotEqual
		}
		return pick(spirv.OpFOrdNotEqual, spirv.OpINotEqual, spirv.OpINotEqual)
	case ir.BinaryLess:
		return pick(spirv.OpFOrdLessThan, spirv.OpSLessThan, spirv.OpULessThan)
	case ir.BinaryLessEqual:
		return pick(spirv.OpFOrdLessThanEqual, spirv.OpSLessThanEqual, spirv.OpULessThanEqual)
	case ir.BinaryGreater:
		return pick(spirv.OpFOrdGreaterThan, spirv.OpSGreaterThan, spirv.OpUGreaterThan)
	default:
		return pick(spirv.OpFOrdGreaterThanEqual, spirv.OpSGreaterThanEqual, spirv.OpUGreaterThanEqual)
	}
}

// binary applies a binary operator, converting both operands to their
// common type first.
func (p *Parser) binary(loc ir.Location, op ir.BinaryOperator, lhs, rhs *expression) (*expression, bool) {
	invalid := func() (*expression, bool) {
		return nil, p.errorf(loc, CodeInvalidOperands, "binary '%s': no operator for types '%s' and '%s'",
			binaryNames[op], lhs.typ, rhs.typ)
	}
	if !lhs.typ.IsNumeric() || !rhs.typ.IsNumeric() || lhs.typ.IsArray() || rhs.typ.IsArray() {
		return invalid()
	}
	if lhs.typ.IsMatrix() != rhs.typ.IsMatrix() && lhs.typ.Components() > 1 && rhs.typ.Components() > 1 {
		return invalid()
	}

	operand := ir.CommonType(lhs.typ, rhs.typ)
	switch {
	case op.IsLogical():
		operand = ir.TypeBool.WithShape(operand.Rows, operand.Cols)
	case op.IsBitwise() && operand.IsFloatingPoint():
		return invalid()
	case op != ir.BinaryEqual && op != ir.BinaryNotEqual && operand.IsBoolean():
		operand = ir.TypeInt.WithShape(operand.Rows, operand.Cols)
	}
	if operand.IsMatrix() && (op.IsComparison() || op.IsLogical() || op.IsBitwise()) {
		return invalid()
	}

	for _, e := range []*expression{lhs, rhs} {
		if ir.RankConversion(e.typ.Value(), e.typ.WithShape(operand.Rows, operand.Cols)).IsTruncation() {
			p.warningf(e.loc, CodeImplicitTruncation, "implicit truncation of vector type")
		}
		if !p.convert(e, operand) {
			return invalid()
		}
	}

	result := operand
	if op.IsComparison() {
		result = ir.TypeBool.WithShape(operand.Rows, operand.Cols)
	}
	if lhs.constant != nil && rhs.constant != nil {
		if c, ok := ir.FoldBinary(op, operand, *lhs.constant, *rhs.constant); ok {
			return constantExpr(loc, result, c), true
		}
	}

	a, b := p.load(lhs), p.load(rhs)
	code := binaryOpCode(op, operand)
	if operand.IsMatrix() {
		column := columnType(operand)
		id := p.perColumn(loc, result, func(c uint32) ir.ID {
			x := p.extract(loc, column, a, c)
			y := p.extract(loc, column, b, c)
			return p.emit(loc, code, p.typeID(column)).AddIDs(x, y).Result
		})
		return valueExpr(loc, result, id), true
	}
	return valueExpr(loc, result, p.emit(loc, code, p.typeID(result)).AddIDs(a, b).Result), true
}

// unary applies a prefix operator.
func (p *Parser) unary(loc ir.Location, op ir.UnaryOperator, e *expression) (*expression, bool) {
	t := e.typ.Value()
	if !t.IsNumeric() || t.IsArray() || (t.IsMatrix() && op != ir.UnaryNegate) {
		return nil, p.errorf(loc, CodeInvalidOperands, "unary operator: invalid operand type '%s'", t)
	}
	switch op {
	case ir.UnaryLogicalNot:
		t = ir.TypeBool.WithShape(t.Rows, t.Cols)
	case ir.UnaryBitwiseNot:
		if t.IsFloatingPoint() {
			return nil, p.errorf(loc, CodeInvalidOperands, "unary '~': integer operand required, found '%s'", t)
		}
		fallthrough
	default:
		if t.IsBoolean() {
			t = ir.TypeInt.WithShape(t.Rows, t.Cols)
		}
	}
	p.convert(e, t)

	if e.constant != nil {
		if c, ok := ir.FoldUnary(op, t, *e.constant); ok {
			return constantExpr(loc, t, c), true
		}
	}

	code := spirv.OpLogicalNot
	switch {
	case op == ir.UnaryBitwiseNot:
		code = spirv.OpNot
	case op == ir.UnaryNegate && t.IsFloatingPoint():
		code = spirv.OpFNegate
	case op == ir.UnaryNegate:
		code = spirv.OpSNegate
	}
	value := p.load(e)
	if t.IsMatrix() {
		column := columnType(t)
		id := p.perColumn(loc, t, func(c uint32) ir.ID {
			x := p.extract(loc, column, value, c)
			return p.emit(loc, code, p.typeID(column)).AddIDs(x).Result
		})
		return valueExpr(loc, t, id), true
	}
	return valueExpr(loc, t, p.emit(loc, code, p.typeID(t)).AddIDs(value).Result), true
}

// conditional lowers "cond ? a : b" to OpSelect.
func (p *Parser) conditional(loc ir.Location, cond, a, b *expression) (*expression, bool) {
	if !a.typ.IsNumeric() || !b.typ.IsNumeric() || a.typ.IsArray() || b.typ.IsArray() ||
		a.typ.IsMatrix() || b.typ.IsMatrix() {
		return nil, p.errorf(loc, CodeInvalidOperands, "conditional: invalid operand types '%s' and '%s'", a.typ, b.typ)
	}
	if !cond.typ.IsNumeric() || cond.typ.IsArray() || cond.typ.IsMatrix() {
		return nil, p.errorf(cond.loc, CodeTypeMismatch, "conditional: invalid condition type '%s'", cond.typ)
	}

	result := ir.CommonType(a.typ, b.typ)
	if !p.convert(a, result) || !p.convert(b, result) ||
		!p.convert(cond, ir.TypeBool.WithShape(result.Rows, 1)) {
		return nil, p.errorf(loc, CodeInvalidOperands, "conditional: invalid operand types '%s' and '%s'", a.typ, b.typ)
	}

	if cond.constant != nil && a.constant != nil && b.constant != nil {
		var c ir.Constant
		for i := 0; i < result.Components(); i++ {
			if cond.constant.Bool(i) {
				c.Bits[i] = a.constant.Bits[i]
			} else {
				c.Bits[i] = b.constant.Bits[i]
			}
		}
		return constantExpr(loc, result, c), true
	}

	c, x, y := p.load(cond), p.load(a), p.load(b)
	return valueExpr(loc, result, p.emit(loc, spirv.OpSelect, p.typeID(result)).AddIDs(c, x, y).Result), true
}

// assign stores rhs, or lhs op rhs for compound operators, through lhs.
func (p *Parser) assign(loc ir.Location, lhs *expression, op ir.BinaryOperator, compound bool, rhs *expression) (*expression, bool) {
	if !p.checkAssignable(lhs) {
		return nil, false
	}
	value := rhs
	if compound {
		current := *lhs
		var ok bool
		if value, ok = p.binary(loc, op, &current, rhs); !ok {
			return nil, false
		}
	}
	if !p.implicitConvert(value, lhs.typ) {
		return nil, false
	}
	id := p.load(value)
	p.store(lhs, id)
	return valueExpr(loc, lhs.typ, id), true
}

// increment implements prefix and postfix ++ and --.
func (p *Parser) increment(loc ir.Location, e *expression, decrement, postfix bool) (*expression, bool) {
	if !p.checkAssignable(e) {
		return nil, false
	}
	t := e.typ.Value()
	if !t.IsNumeric() || t.IsBoolean() || t.IsArray() || t.IsMatrix() {
		return nil, p.errorf(loc, CodeInvalidOperands, "increment: invalid operand type '%s'", t)
	}

	op := ir.BinaryAdd
	if decrement {
		op = ir.BinarySubtract
	}
	old := p.load(e)
	one := p.r.ConvertConstant(t, ir.IntConstant(1).Convert(ir.TypeInt, t))
	updated := p.emit(loc, binaryOpCode(op, t), p.typeID(t)).AddIDs(old, one).Result
	p.store(e, updated)
	if postfix {
		return valueExpr(loc, t, old), true
	}
	return valueExpr(loc, t, updated), true
}

// Member access

// swizzleIndex maps a swizzle character to its component and set.
func swizzleIndex(c byte) (index uint32, set int, ok bool) {
	switch c {
	case 'x', 'y', 'z':
		return uint32(c - 'x'), 0, true
	case 'w':
		return 3, 0, true
	case 'r':
		return 0, 1, true
	case 'g':
		return 1, 1, true
	case 'b':
		return 2, 1, true
	case 'a':
		return 3, 1, true
	}
	return 0, 0, false
}

// parseSwizzle decodes a swizzle over a value with n components.
func parseSwizzle(name string, n int) ([]uint32, bool) {
	if len(name) == 0 || len(name) > 4 {
		return nil, false
	}
	comps := make([]uint32, len(name))
	firstSet := -1
	for i := 0; i < len(name); i++ {
		index, set, ok := swizzleIndex(name[i])
		if !ok || int(index) >= n || (firstSet >= 0 && set != firstSet) {
			return nil, false
		}
		firstSet = set
		comps[i] = index
	}
	return comps, true
}

func (p *Parser) applySwizzle(loc ir.Location, from ir.TypeInfo, value ir.ID, comps []uint32) ir.ID {
	result := from.WithShape(uint8(len(comps)), 1)
	switch {
	case from.Components() == 1 && len(comps) == 1:
		return value
	case from.Components() == 1:
		return p.splat(loc, result, value)
	case len(comps) == 1:
		return p.extract(loc, result, value, comps[0])
	}
	return p.emit(loc, spirv.OpVectorShuffle, p.typeID(result)).AddIDs(value, value).Add(comps...).Result
}

// member resolves ".name" on a struct field or a vector swizzle.
func (p *Parser) member(e *expression, name string, loc ir.Location) bool {
	t := e.typ
	if t.IsStruct() && !t.IsArray() {
		info := p.structs[t.Definition]
		index := -1
		if info != nil {
			index = info.FieldIndex(name)
		}
		if index < 0 {
			return p.errorf(loc, CodeInvalidMember, "'%s' is not a member of '%s'", name, structName(info))
		}
		field := info.Fields[index].Type.Value()
		switch {
		case e.constant != nil:
			var c ir.Constant
			if index < len(e.constant.Elements) {
				c = e.constant.Elements[index]
			}
			*e = *constantExpr(loc, field, c)
		case e.lvalue:
			ptr := p.r.ConvertPointerType(field, e.storage)
			e.id = p.emit(loc, spirv.OpAccessChain, ptr).AddIDs(e.id, p.r.Int(int32(index))).Result
			e.typ = field
		default:
			e.id = p.extract(loc, field, e.id, uint32(index))
			e.typ = field
		}
		return true
	}

	if !t.IsNumeric() || t.IsArray() || t.IsMatrix() {
		return p.errorf(loc, CodeInvalidMember, "invalid subscript '%s' on type '%s'", name, t)
	}
	comps, ok := parseSwizzle(name, int(t.Rows))
	if !ok {
		return p.errorf(loc, CodeInvalidMember, "invalid swizzle '%s' on type '%s'", name, t)
	}
	result := t.WithShape(uint8(len(comps)), 1)

	switch {
	case e.constant != nil:
		var c ir.Constant
		for i, comp := range comps {
			c.Bits[i] = e.constant.Bits[comp]
		}
		*e = *constantExpr(loc, result, c)
	case e.lvalue:
		if e.swizzle != nil {
			composed := make([]uint32, len(comps))
			for i, comp := range comps {
				composed[i] = e.swizzle[comp]
			}
			comps = composed
		} else {
			e.from = t
		}
		e.swizzle = comps
		e.typ = result
	default:
		e.id = p.applySwizzle(loc, t, e.id, comps)
		e.typ = result
	}
	return true
}

func structName(info *ir.StructInfo) string {
	if info == nil {
		return "struct"
	}
	return info.Name
}

// subscript resolves "e[index]" on arrays, vectors and matrix rows.
func (p *Parser) subscript(e, index *expression, loc ir.Location) bool {
	if !index.typ.IsScalar() {
		return p.errorf(index.loc, CodeInvalidSubscript, "array index must be a scalar, found '%s'", index.typ)
	}
	if !index.typ.IsIntegral() {
		p.convert(index, ir.TypeInt)
	}

	t := e.typ
	var length int
	switch {
	case t.IsArray():
		length = int(t.ArrayLength)
	case t.IsMatrix():
		length = int(t.Rows)
	case t.IsVector():
		length = int(t.Rows)
	default:
		return p.errorf(loc, CodeInvalidSubscript, "subscripted value is not an array, matrix, or vector")
	}
	if index.constant != nil && length > 0 && index.constant.Uint(0) >= uint32(length) {
		return p.errorf(index.loc, CodeInvalidSubscript, "array index out of bounds")
	}

	switch {
	case t.IsArray():
		elem := t.Element().Value()
		switch {
		case e.constant != nil && index.constant != nil:
			var c ir.Constant
			if i := int(index.constant.Uint(0)); i < len(e.constant.Elements) {
				c = e.constant.Elements[i]
			}
			*e = *constantExpr(loc, elem, c)
			return true
		case !e.lvalue && index.constant != nil:
			value := p.load(e)
			*e = *valueExpr(loc, elem, p.extract(loc, elem, value, index.constant.Uint(0)))
			return true
		case !e.lvalue:
			// Dynamic indexing needs a pointer; spill the value.
			value := p.load(e)
			tmp := p.temporary(loc, t)
			p.emitWithoutResult(loc, spirv.OpStore).AddIDs(tmp, value)
			*e = *pointerExpr(loc, t, tmp, spirv.StorageClassFunction)
			e.readonly = true
		}
		ptr := p.r.ConvertPointerType(elem, e.storage)
		i := p.load(index)
		e.id = p.emit(loc, spirv.OpAccessChain, ptr).AddIDs(e.id, i).Result
		e.typ = elem
		return true

	case t.IsVector():
		if e.swizzle != nil {
			p.rvalue(e)
		}
		elem := t.ScalarType()
		switch {
		case e.constant != nil && index.constant != nil:
			*e = *constantExpr(loc, elem, ir.UintConstant(e.constant.Bits[index.constant.Uint(0)]))
		case e.lvalue:
			ptr := p.r.ConvertPointerType(elem, e.storage)
			i := p.load(index)
			e.id = p.emit(loc, spirv.OpAccessChain, ptr).AddIDs(e.id, i).Result
			e.typ = elem
		case index.constant != nil:
			value := p.load(e)
			*e = *valueExpr(loc, elem, p.extract(loc, elem, value, index.constant.Uint(0)))
		default:
			value, i := p.load(e), p.load(index)
			id := p.emit(loc, spirv.OpVectorExtractDynamic, p.typeID(elem)).AddIDs(value, i).Result
			*e = *valueExpr(loc, elem, id)
		}
		return true
	}

	// A matrix subscript selects a row, which is not contiguous in the
	// column-major representation and is assembled component by component.
	row := t.WithShape(t.Cols, 1)
	elem := t.ScalarType()
	if e.constant != nil && index.constant != nil {
		var c ir.Constant
		r := int(index.constant.Uint(0))
		for col := 0; col < int(t.Cols); col++ {
			c.Bits[col] = e.constant.Bits[col*int(t.Rows)+r]
		}
		*e = *constantExpr(loc, row, c)
		return true
	}
	value := p.load(e)
	var dynamic ir.ID
	if index.constant == nil {
		dynamic = p.load(index)
	}
	parts := make([]ir.ID, t.Cols)
	for col := range parts {
		if index.constant != nil {
			parts[col] = p.extract(loc, elem, value, uint32(col), index.constant.Uint(0))
			continue
		}
		column := p.extract(loc, columnType(t), value, uint32(col))
		parts[col] = p.emit(loc, spirv.OpVectorExtractDynamic, p.typeID(elem)).AddIDs(column, dynamic).Result
	}
	*e = *valueExpr(loc, row, p.construct(loc, row, parts...))
	return true
}

// Constructors

// constructValue builds a numeric value of type t from the components of
// args, which are consumed in row-major order.
func (p *Parser) constructValue(loc ir.Location, t ir.TypeInfo, args []*expression) (*expression, bool) {
	if !t.IsNumeric() || t.IsArray() {
		return nil, p.errorf(loc, CodeTypeMismatch, "'%s' has no constructor", t)
	}
	if len(args) == 1 && (args[0].typ.Components() == 1 || (args[0].typ.Rows == t.Rows && args[0].typ.Cols == t.Cols)) {
		e := args[0]
		if !p.cast(e, t) {
			return nil, false
		}
		e.loc = loc
		return e, true
	}

	type component struct {
		constant *uint32
		id       ir.ID
	}
	var comps []component
	allConstant := true
	for _, arg := range args {
		at := arg.typ
		if !at.IsNumeric() || at.IsArray() {
			return nil, p.errorf(arg.loc, CodeTypeMismatch, "cannot use '%s' in a constructor of '%s'", at, t)
		}
		if !p.convert(arg, t.WithShape(at.Rows, at.Cols)) {
			return nil, p.errorf(arg.loc, CodeTypeMismatch, "cannot convert from '%s' to '%s'", at, t)
		}
		at = arg.typ
		var value ir.ID
		if arg.constant == nil {
			allConstant = false
			value = p.load(arg)
		}
		for r := 0; r < int(at.Rows); r++ {
			for c := 0; c < int(at.Cols); c++ {
				switch {
				case arg.constant != nil:
					bits := arg.constant.Bits[c*int(at.Rows)+r]
					comps = append(comps, component{constant: &bits})
				case at.Components() == 1:
					comps = append(comps, component{id: value})
				case at.IsMatrix():
					comps = append(comps, component{id: p.extract(loc, t.ScalarType(), value, uint32(c), uint32(r))})
				default:
					comps = append(comps, component{id: p.extract(loc, t.ScalarType(), value, uint32(r))})
				}
			}
		}
	}
	if len(comps) != t.Components() {
		return nil, p.errorf(loc, CodeArgumentCount, "incorrect number of arguments to numeric-type constructor")
	}

	rows, cols := int(t.Rows), int(t.Cols)
	// k enumerates row-major; storage is column-major.
	storageIndex := func(k int) int { return (k%cols)*rows + k/cols }

	if allConstant {
		var c ir.Constant
		for k, comp := range comps {
			c.Bits[storageIndex(k)] = *comp.constant
		}
		return constantExpr(loc, t, c), true
	}

	ids := make([]ir.ID, len(comps))
	for k, comp := range comps {
		id := comp.id
		if comp.constant != nil {
			id = p.r.ConvertConstant(t.ScalarType(), ir.UintConstant(*comp.constant))
		}
		ids[storageIndex(k)] = id
	}
	if !t.IsMatrix() {
		return valueExpr(loc, t, p.construct(loc, t, ids...)), true
	}
	id := p.perColumn(loc, t, func(c uint32) ir.ID {
		return p.construct(loc, columnType(t), ids[int(c)*rows:int(c+1)*rows]...)
	})
	return valueExpr(loc, t, id), true
}
