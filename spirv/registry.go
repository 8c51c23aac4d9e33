package spirv

import (
	"strconv"
	"strings"

	"github.com/gogpu/fxc/ir"
)

type typeKey struct {
	ir.TypeKey
	storage StorageClass
}

type constantKey struct {
	typ      ir.TypeKey
	bits     [ir.MaxComponents]uint32
	elements string
}

// Registry interns types, function types and constants so structurally
// equal definitions share a single id. Everything it emits goes to
// SectionVariables.
type Registry struct {
	b         *Builder
	types     map[typeKey]ir.ID
	constants map[constantKey]ir.ID
	functions map[string]ir.ID
	structs   func(ir.ID) *ir.StructInfo
}

// NewRegistry creates a registry emitting into b. structs resolves the
// field layout of struct types registered by the caller.
func NewRegistry(b *Builder, structs func(ir.ID) *ir.StructInfo) *Registry {
	return &Registry{
		b:         b,
		types:     make(map[typeKey]ir.ID),
		constants: make(map[constantKey]ir.ID),
		functions: make(map[string]ir.ID),
		structs:   structs,
	}
}

// live reports whether a cached id still has a definition. Entries whose
// instruction was discarded by a truncation are emitted again.
func (r *Registry) live(id ir.ID) bool {
	return id != 0 && r.b.Lookup(id) != nil
}

// ConvertType returns the id of the type definition for t, emitting it and
// any element types it depends on the first time it is requested. Pointer
// types use Function storage.
func (r *Registry) ConvertType(t ir.TypeInfo) ir.ID {
	return r.convertType(t, StorageClassFunction)
}

// ConvertPointerType returns the id of a pointer to t in the given storage.
func (r *Registry) ConvertPointerType(t ir.TypeInfo, storage StorageClass) ir.ID {
	t.Pointer = true
	return r.convertType(t, storage)
}

func (r *Registry) convertType(t ir.TypeInfo, storage StorageClass) ir.ID {
	if t.IsStruct() && !t.Pointer && !t.IsArray() {
		return t.Definition
	}

	key := typeKey{TypeKey: t.Key()}
	if t.Pointer {
		key.storage = storage
	}
	if id := r.types[key]; r.live(id) {
		return id
	}

	var inst *Instruction
	switch {
	case t.Pointer:
		elem := t
		elem.Pointer = false
		elemID := r.convertType(elem, storage)
		inst = r.add(OpTypePointer, 0).Add(uint32(storage)).AddIDs(elemID)
	case t.IsArray():
		elemID := r.ConvertType(t.Element())
		if t.IsUnsizedArray() {
			inst = r.add(OpTypeRuntimeArray, 0).AddIDs(elemID)
		} else {
			length := r.ConvertConstant(ir.TypeUint, ir.UintConstant(uint32(t.ArrayLength)))
			inst = r.add(OpTypeArray, 0).AddIDs(elemID, length)
		}
	case t.IsMatrix():
		column := r.ConvertType(t.WithShape(t.Rows, 1))
		inst = r.add(OpTypeMatrix, 0).AddIDs(column).Add(uint32(t.Cols))
	case t.IsVector():
		scalar := r.ConvertType(t.ScalarType())
		inst = r.add(OpTypeVector, 0).AddIDs(scalar).Add(uint32(t.Rows))
	case t.IsBoolean():
		inst = r.add(OpTypeBool, 0)
	case t.IsIntegral():
		signed := uint32(0)
		if t.Signed {
			signed = 1
		}
		inst = r.add(OpTypeInt, 0).Add(32, signed)
	case t.IsFloatingPoint():
		inst = r.add(OpTypeFloat, 0).Add(32)
	case t.IsImage():
		sampled := r.ConvertType(ir.TypeFloat)
		// 2D, not depth, not arrayed, single sampled, used with a sampler.
		inst = r.add(OpTypeImage, 0).AddIDs(sampled).Add(uint32(Dim2D), 0, 0, 0, 1, uint32(ImageFormatRgba8))
	case t.IsSampledImage():
		image := r.ConvertType(ir.TypeTexture)
		inst = r.add(OpTypeSampledImage, 0).AddIDs(image)
	default:
		inst = r.add(OpTypeVoid, 0)
	}

	r.types[key] = inst.Result
	return inst.Result
}

// ConvertFunctionType returns the id of a function type. Parameters
// qualified out are passed as Function pointers.
func (r *Registry) ConvertFunctionType(ret ir.TypeInfo, params []ir.TypeInfo) ir.ID {
	ids := make([]ir.ID, 0, len(params)+1)
	ids = append(ids, r.ConvertType(ret))
	for _, p := range params {
		if p.Has(ir.QualifierOut) {
			ids = append(ids, r.ConvertPointerType(p.Value(), StorageClassFunction))
		} else {
			ids = append(ids, r.ConvertType(p.Value()))
		}
	}

	key := idsKey(ids)
	if id := r.functions[key]; r.live(id) {
		return id
	}
	inst := r.add(OpTypeFunction, 0).AddIDs(ids...)
	r.functions[key] = inst.Result
	return inst.Result
}

// ConvertConstant returns the id of a constant of type t. Zero values of a
// type collapse to a single OpConstantNull; other values are emitted once
// per distinct type and bit pattern.
func (r *Registry) ConvertConstant(t ir.TypeInfo, c ir.Constant) ir.ID {
	t = t.Value()
	t.ArrayLengthExpr = 0
	typeID := r.ConvertType(t)

	key := constantKey{typ: t.Key()}
	if c.IsZero() {
		return r.intern(key, func() *Instruction { return r.add(OpConstantNull, typeID) })
	}

	var elements []ir.ID
	switch {
	case t.IsArray():
		elem := t.Element()
		for i := 0; i < int(t.ArrayLength); i++ {
			var e ir.Constant
			if i < len(c.Elements) {
				e = c.Elements[i]
			}
			elements = append(elements, r.ConvertConstant(elem, e))
		}
	case t.IsStruct():
		var fields []ir.StructField
		if r.structs != nil {
			if info := r.structs(t.Definition); info != nil {
				fields = info.Fields
			}
		}
		for i, f := range fields {
			var e ir.Constant
			if i < len(c.Elements) {
				e = c.Elements[i]
			}
			elements = append(elements, r.ConvertConstant(f.Type, e))
		}
	case t.IsMatrix():
		column := t.WithShape(t.Rows, 1)
		for col := 0; col < int(t.Cols); col++ {
			var v ir.Constant
			copy(v.Bits[:t.Rows], c.Bits[col*int(t.Rows):])
			elements = append(elements, r.ConvertConstant(column, v))
		}
	case t.IsVector():
		for i := 0; i < int(t.Rows); i++ {
			var v ir.Constant
			v.Bits[0] = c.Bits[i]
			elements = append(elements, r.ConvertConstant(t.ScalarType(), v))
		}
	default:
		key.bits[0] = c.Bits[0]
	}

	if elements != nil {
		key.elements = idsKey(elements)
		return r.intern(key, func() *Instruction {
			return r.add(OpConstantComposite, typeID).AddIDs(elements...)
		})
	}
	if t.IsBoolean() {
		return r.intern(key, func() *Instruction { return r.add(OpConstantTrue, typeID) })
	}
	return r.intern(key, func() *Instruction { return r.add(OpConstant, typeID).Add(c.Bits[0]) })
}

func (r *Registry) intern(key constantKey, emit func() *Instruction) ir.ID {
	if id := r.constants[key]; r.live(id) {
		return id
	}
	id := emit().Result
	r.constants[key] = id
	return id
}

// Uint returns the id of a uint constant.
func (r *Registry) Uint(v uint32) ir.ID {
	return r.ConvertConstant(ir.TypeUint, ir.UintConstant(v))
}

// Int returns the id of an int constant.
func (r *Registry) Int(v int32) ir.ID {
	return r.ConvertConstant(ir.TypeInt, ir.IntConstant(v))
}

// Float returns the id of a float constant.
func (r *Registry) Float(v float32) ir.ID {
	return r.ConvertConstant(ir.TypeFloat, ir.FloatConstant(v))
}

// AddCast emits the single conversion from one numeric component type to
// another of the same shape. Equal component types need no instruction
// and value is returned unchanged. Conversions to or from bool are not
// handled here and report false.
func (r *Registry) AddCast(section Section, loc ir.Location, from, to ir.TypeInfo, value ir.ID) (ir.ID, bool) {
	if from.Base == to.Base && from.Signed == to.Signed {
		return value, true
	}
	if from.IsBoolean() || to.IsBoolean() || !from.IsNumeric() || !to.IsNumeric() {
		return 0, false
	}

	var op OpCode
	switch {
	case to.IsFloatingPoint() && from.Signed:
		op = OpConvertSToF
	case to.IsFloatingPoint():
		op = OpConvertUToF
	case from.IsFloatingPoint() && to.Signed:
		op = OpConvertFToS
	case from.IsFloatingPoint():
		op = OpConvertFToU
	default:
		op = OpBitcast
	}

	typeID := r.ConvertType(to.WithShape(from.Rows, from.Cols))
	return r.b.AddNode(section, loc, op, typeID).AddIDs(value).Result, true
}

func (r *Registry) add(op OpCode, typ ir.ID) *Instruction {
	return r.b.AddNode(SectionVariables, ir.Location{}, op, typ)
}

func idsKey(ids []ir.ID) string {
	var sb strings.Builder
	for i, id := range ids {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatUint(uint64(id), 10))
	}
	return sb.String()
}
