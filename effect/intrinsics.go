package effect

import (
	"strings"

	"github.com/gogpu/fxc/ir"
	"github.com/gogpu/fxc/spirv"
)

// call resolves name against the user functions first and the intrinsics
// second, then emits the call.
func (p *Parser) call(loc ir.Location, name string, args []*expression) (*expression, bool) {
	if overloads := p.symbols.LookupFunctions(name); overloads != nil {
		types := make([]ir.TypeInfo, len(args))
		for i, a := range args {
			types[i] = a.typ
		}
		f, err := ResolveOverload(overloads, types)
		switch err {
		case nil:
			return p.callFunction(loc, f, args)
		case ErrAmbiguous:
			return nil, p.errorf(loc, CodeAmbiguous, "ambiguous function call to '%s(%s)'", name, typeList(types))
		case ErrArgumentCount:
			return nil, p.errorf(loc, CodeArgumentCount, "no overload of '%s' takes %d arguments", name, len(args))
		default:
			return nil, p.errorf(loc, CodeNoOverload, "no matching function overload for '%s(%s)'", name, typeList(types))
		}
	}
	if in, ok := intrinsics[name]; ok {
		return p.callIntrinsic(loc, name, in, args)
	}
	return nil, p.errorf(loc, CodeUndeclared, "undeclared identifier '%s'", name)
}

func typeList(types []ir.TypeInfo) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return strings.Join(names, ", ")
}

// callFunction emits a call to a user function. Out parameters are passed
// through temporaries that are copied back to the arguments afterwards.
func (p *Parser) callFunction(loc ir.Location, f *ir.FunctionInfo, args []*expression) (*expression, bool) {
	ids := make([]ir.ID, len(args))
	temps := make([]ir.ID, len(args))

	for i, param := range f.Parameters {
		arg := args[i]
		pt := param.Type.Value()
		if !param.Type.Has(ir.QualifierOut) {
			value := *arg
			if !p.implicitConvert(&value, pt) {
				return nil, false
			}
			ids[i] = p.load(&value)
			continue
		}

		if !p.checkAssignable(arg) {
			return nil, false
		}
		temps[i] = p.temporary(loc, pt)
		if param.Type.Has(ir.QualifierIn) {
			value := *arg
			if !p.implicitConvert(&value, pt) {
				return nil, false
			}
			id := p.load(&value)
			p.emitWithoutResult(loc, spirv.OpStore).AddIDs(temps[i], id)
		}
		ids[i] = temps[i]
	}

	result := p.emit(loc, spirv.OpFunctionCall, p.typeID(f.ReturnType)).AddIDs(f.Definition).AddIDs(ids...).Result

	for i, param := range f.Parameters {
		if temps[i] == 0 {
			continue
		}
		out := pointerExpr(loc, param.Type, temps[i], spirv.StorageClassFunction)
		p.rvalue(out)
		if !p.implicitConvert(out, args[i].typ) {
			return nil, false
		}
		p.store(args[i], p.load(out))
	}
	return valueExpr(loc, f.ReturnType, result), true
}

type intrinsicKind uint8

const (
	// Component-wise over the common type of all arguments.
	intrinsicComponentWise intrinsicKind = iota
	intrinsicDot
	intrinsicCross
	intrinsicLength
	intrinsicDistance
	intrinsicNormalize
	intrinsicReflect
	intrinsicSaturate
	intrinsicMul
	intrinsicTex2D
	intrinsicTex2DLod
)

// intrinsic describes a built-in function. float, sint and uint select the
// GLSL.std.450 instruction for each component type; integer variants of 0
// mean the function only accepts floats.
type intrinsic struct {
	kind  intrinsicKind
	args  int
	float uint32
	sint  uint32
	uint  uint32
}

func floatOnly(args int, op uint32) intrinsic {
	return intrinsic{kind: intrinsicComponentWise, args: args, float: op}
}

var intrinsics = map[string]intrinsic{
	"abs":        {kind: intrinsicComponentWise, args: 1, float: spirv.GLSLstd450FAbs, sint: spirv.GLSLstd450SAbs, uint: spirv.GLSLstd450SAbs},
	"sign":       {kind: intrinsicComponentWise, args: 1, float: spirv.GLSLstd450FSign, sint: spirv.GLSLstd450SSign, uint: spirv.GLSLstd450SSign},
	"min":        {kind: intrinsicComponentWise, args: 2, float: spirv.GLSLstd450FMin, sint: spirv.GLSLstd450SMin, uint: spirv.GLSLstd450UMin},
	"max":        {kind: intrinsicComponentWise, args: 2, float: spirv.GLSLstd450FMax, sint: spirv.GLSLstd450SMax, uint: spirv.GLSLstd450UMax},
	"clamp":      {kind: intrinsicComponentWise, args: 3, float: spirv.GLSLstd450FClamp, sint: spirv.GLSLstd450SClamp, uint: spirv.GLSLstd450UClamp},
	"floor":      floatOnly(1, spirv.GLSLstd450Floor),
	"ceil":       floatOnly(1, spirv.GLSLstd450Ceil),
	"frac":       floatOnly(1, spirv.GLSLstd450Fract),
	"round":      floatOnly(1, spirv.GLSLstd450Round),
	"trunc":      floatOnly(1, spirv.GLSLstd450Trunc),
	"sin":        floatOnly(1, spirv.GLSLstd450Sin),
	"cos":        floatOnly(1, spirv.GLSLstd450Cos),
	"tan":        floatOnly(1, spirv.GLSLstd450Tan),
	"asin":       floatOnly(1, spirv.GLSLstd450Asin),
	"acos":       floatOnly(1, spirv.GLSLstd450Acos),
	"atan":       floatOnly(1, spirv.GLSLstd450Atan),
	"atan2":      floatOnly(2, spirv.GLSLstd450Atan2),
	"exp":        floatOnly(1, spirv.GLSLstd450Exp),
	"exp2":       floatOnly(1, spirv.GLSLstd450Exp2),
	"log":        floatOnly(1, spirv.GLSLstd450Log),
	"log2":       floatOnly(1, spirv.GLSLstd450Log2),
	"pow":        floatOnly(2, spirv.GLSLstd450Pow),
	"sqrt":       floatOnly(1, spirv.GLSLstd450Sqrt),
	"rsqrt":      floatOnly(1, spirv.GLSLstd450InverseSqrt),
	"radians":    floatOnly(1, spirv.GLSLstd450Radians),
	"degrees":    floatOnly(1, spirv.GLSLstd450Degrees),
	"lerp":       floatOnly(3, spirv.GLSLstd450FMix),
	"step":       floatOnly(2, spirv.GLSLstd450Step),
	"smoothstep": floatOnly(3, spirv.GLSLstd450SmoothStep),
	"saturate":   {kind: intrinsicSaturate, args: 1, float: spirv.GLSLstd450FClamp},
	"length":     {kind: intrinsicLength, args: 1, float: spirv.GLSLstd450Length},
	"distance":   {kind: intrinsicDistance, args: 2, float: spirv.GLSLstd450Distance},
	"normalize":  {kind: intrinsicNormalize, args: 1, float: spirv.GLSLstd450Normalize},
	"reflect":    {kind: intrinsicReflect, args: 2, float: spirv.GLSLstd450Reflect},
	"cross":      {kind: intrinsicCross, args: 2, float: spirv.GLSLstd450Cross},
	"dot":        {kind: intrinsicDot, args: 2},
	"mul":        {kind: intrinsicMul, args: 2},
	"tex2D":      {kind: intrinsicTex2D, args: 2},
	"tex2Dlod":   {kind: intrinsicTex2DLod, args: 2},
}

func (p *Parser) extInst(loc ir.Location, t ir.TypeInfo, op uint32, args ...ir.ID) ir.ID {
	return p.emit(loc, spirv.OpExtInst, p.typeID(t)).AddIDs(p.glsl).Add(op).AddIDs(args...).Result
}

// convertAll converts every argument to t and returns their values.
func (p *Parser) convertAll(name string, t ir.TypeInfo, args []*expression) ([]ir.ID, bool) {
	ids := make([]ir.ID, len(args))
	for i, a := range args {
		from := a.typ
		if !p.convert(a, t) {
			return nil, p.errorf(a.loc, CodeNoOverload, "no matching intrinsic overload for '%s' with argument '%s'", name, from)
		}
		ids[i] = p.load(a)
	}
	return ids, true
}

// floatShape returns the float type of t's shape, rejecting matrices and
// arrays.
func floatShape(t ir.TypeInfo) (ir.TypeInfo, bool) {
	if !t.IsNumeric() || t.IsArray() || t.IsMatrix() {
		return ir.TypeInfo{}, false
	}
	return ir.TypeFloat.WithShape(t.Rows, 1), true
}

func (p *Parser) callIntrinsic(loc ir.Location, name string, in intrinsic, args []*expression) (*expression, bool) {
	if len(args) != in.args {
		return nil, p.errorf(loc, CodeArgumentCount, "intrinsic '%s' takes %d arguments, found %d", name, in.args, len(args))
	}
	noOverload := func() (*expression, bool) {
		types := make([]ir.TypeInfo, len(args))
		for i, a := range args {
			types[i] = a.typ
		}
		return nil, p.errorf(loc, CodeNoOverload, "no matching intrinsic overload for '%s(%s)'", name, typeList(types))
	}

	// Common float shape of all arguments.
	common := args[0].typ
	for _, a := range args {
		if !a.typ.IsNumeric() || a.typ.IsArray() {
			if in.kind != intrinsicTex2D && in.kind != intrinsicTex2DLod {
				return noOverload()
			}
			continue
		}
		if a != args[0] {
			common = ir.CommonType(common, a.typ)
		}
	}

	switch in.kind {
	case intrinsicComponentWise:
		t := common
		if t.IsMatrix() {
			return noOverload()
		}
		op := in.float
		switch {
		case t.IsBoolean() && in.sint != 0:
			t, op = ir.TypeInt.WithShape(t.Rows, 1), in.sint
		case t.IsIntegral() && t.Signed && in.sint != 0:
			op = in.sint
		case t.IsIntegral() && !t.Signed && in.uint != 0:
			op = in.uint
		default:
			t = ir.TypeFloat.WithShape(t.Rows, 1)
		}
		ids, ok := p.convertAll(name, t, args)
		if !ok {
			return nil, false
		}
		return valueExpr(loc, t, p.extInst(loc, t, op, ids...)), true

	case intrinsicSaturate:
		t, ok := floatShape(common)
		if !ok {
			return noOverload()
		}
		ids, ok := p.convertAll(name, t, args)
		if !ok {
			return nil, false
		}
		zero := p.r.ConvertConstant(t, ir.Constant{})
		one := p.r.ConvertConstant(t, ir.FloatConstant(1).Convert(ir.TypeFloat, t))
		return valueExpr(loc, t, p.extInst(loc, t, in.float, ids[0], zero, one)), true

	case intrinsicLength, intrinsicDistance:
		t, ok := floatShape(common)
		if !ok {
			return noOverload()
		}
		ids, ok := p.convertAll(name, t, args)
		if !ok {
			return nil, false
		}
		return valueExpr(loc, ir.TypeFloat, p.extInst(loc, ir.TypeFloat, in.float, ids...)), true

	case intrinsicNormalize, intrinsicReflect:
		t, ok := floatShape(common)
		if !ok {
			return noOverload()
		}
		ids, ok := p.convertAll(name, t, args)
		if !ok {
			return nil, false
		}
		return valueExpr(loc, t, p.extInst(loc, t, in.float, ids...)), true

	case intrinsicCross:
		t := ir.Vector(ir.BaseFloat, false, 3)
		ids, ok := p.convertAll(name, t, args)
		if !ok {
			return nil, false
		}
		return valueExpr(loc, t, p.extInst(loc, t, in.float, ids...)), true

	case intrinsicDot:
		t, ok := floatShape(common)
		if !ok {
			return noOverload()
		}
		ids, ok := p.convertAll(name, t, args)
		if !ok {
			return nil, false
		}
		code := spirv.OpDot
		if t.IsScalar() {
			code = spirv.OpFMul
		}
		return valueExpr(loc, ir.TypeFloat, p.emit(loc, code, p.typeID(ir.TypeFloat)).AddIDs(ids...).Result), true

	case intrinsicMul:
		return p.mul(loc, args[0], args[1])

	case intrinsicTex2D, intrinsicTex2DLod:
		return p.sample(loc, name, in.kind == intrinsicTex2DLod, args[0], args[1])
	}
	return noOverload()
}

// mul implements the linear algebra product. Vectors on the left are row
// vectors, on the right column vectors.
func (p *Parser) mul(loc ir.Location, a, b *expression) (*expression, bool) {
	at, bt := a.typ, b.typ
	invalid := func() (*expression, bool) {
		return nil, p.errorf(loc, CodeNoOverload, "no matching intrinsic overload for 'mul(%s, %s)'", at, bt)
	}
	if !at.IsNumeric() || !bt.IsNumeric() || at.IsArray() || bt.IsArray() {
		return invalid()
	}
	float := func(t ir.TypeInfo) ir.TypeInfo { return ir.TypeFloat.WithShape(t.Rows, t.Cols) }
	fa, fb := float(at), float(bt)

	var result ir.TypeInfo
	var code spirv.OpCode
	switch {
	case at.IsScalar() || bt.IsScalar():
		e, ok := p.binary(loc, ir.BinaryMultiply, a, b)
		return e, ok
	case at.IsVector() && bt.IsVector():
		if at.Rows != bt.Rows {
			return invalid()
		}
		result, code = ir.TypeFloat, spirv.OpDot
	case at.IsVector() && bt.IsMatrix():
		if at.Rows != bt.Rows {
			return invalid()
		}
		result, code = ir.TypeFloat.WithShape(bt.Cols, 1), spirv.OpVectorTimesMatrix
	case at.IsMatrix() && bt.IsVector():
		if at.Cols != bt.Rows {
			return invalid()
		}
		result, code = ir.TypeFloat.WithShape(at.Rows, 1), spirv.OpMatrixTimesVector
	default:
		if at.Cols != bt.Rows {
			return invalid()
		}
		result, code = ir.TypeFloat.WithShape(at.Rows, bt.Cols), spirv.OpMatrixTimesMatrix
	}
	if !p.convert(a, fa) || !p.convert(b, fb) {
		return invalid()
	}
	x, y := p.load(a), p.load(b)
	return valueExpr(loc, result, p.emit(loc, code, p.typeID(result)).AddIDs(x, y).Result), true
}

// sample implements tex2D and tex2Dlod on a sampler.
func (p *Parser) sample(loc ir.Location, name string, lod bool, s, coord *expression) (*expression, bool) {
	if !s.typ.IsSampledImage() || s.typ.IsArray() {
		return nil, p.errorf(s.loc, CodeNoOverload, "'%s' expects a sampler as first argument, found '%s'", name, s.typ)
	}
	want := ir.Vector(ir.BaseFloat, false, 2)
	if lod {
		want = ir.Vector(ir.BaseFloat, false, 4)
	}
	if !p.implicitConvert(coord, want) {
		return nil, false
	}

	result := ir.Vector(ir.BaseFloat, false, 4)
	sampler := p.load(s)
	uv := p.load(coord)
	if !lod {
		id := p.emit(loc, spirv.OpImageSampleImplicitLod, p.typeID(result)).AddIDs(sampler, uv).Result
		return valueExpr(loc, result, id), true
	}
	xy := p.shuffle(loc, want.WithShape(2, 1), uv, 2)
	level := p.extract(loc, ir.TypeFloat, uv, 3)
	id := p.emit(loc, spirv.OpImageSampleExplicitLod, p.typeID(result)).
		AddIDs(sampler, xy).Add(uint32(spirv.ImageOperandsLod)).AddIDs(level).Result
	return valueExpr(loc, result, id), true
}
