package spirv

import (
	"testing"

	"github.com/gogpu/fxc/ir"
)

func countOps(b *Builder, s Section, ops ...OpCode) int {
	n := 0
	for _, inst := range b.Section(s) {
		for _, op := range ops {
			if inst.Op == op {
				n++
			}
		}
	}
	return n
}

func TestRegistry_TypeInterning(t *testing.T) {
	b := NewBuilder()
	r := NewRegistry(b, nil)

	float4 := ir.Vector(ir.BaseFloat, false, 4)
	first := r.ConvertType(float4)
	for i := 0; i < 3; i++ {
		if got := r.ConvertType(float4); got != first {
			t.Fatalf("request %d returned %d, want %d", i, got, first)
		}
	}

	qualified := float4
	qualified.Qualifiers = ir.QualifierConst | ir.QualifierUniform
	if got := r.ConvertType(qualified); got != first {
		t.Errorf("qualified float4 got id %d, want %d", got, first)
	}

	if n := countOps(b, SectionVariables, OpTypeVector); n != 1 {
		t.Errorf("found %d OpTypeVector, want 1", n)
	}
	if n := countOps(b, SectionVariables, OpTypeFloat); n != 1 {
		t.Errorf("found %d OpTypeFloat, want 1", n)
	}
}

func TestRegistry_DistinctTypes(t *testing.T) {
	b := NewBuilder()
	r := NewRegistry(b, nil)

	ids := map[string]ir.ID{
		"int":   r.ConvertType(ir.TypeInt),
		"uint":  r.ConvertType(ir.TypeUint),
		"float": r.ConvertType(ir.TypeFloat),
		"bool":  r.ConvertType(ir.TypeBool),
		"void":  r.ConvertType(ir.TypeVoid),
		"f3":    r.ConvertType(ir.Vector(ir.BaseFloat, false, 3)),
		"f3x3":  r.ConvertType(ir.Matrix(ir.BaseFloat, false, 3, 3)),
		"ptrF":  r.ConvertPointerType(ir.TypeFloat, StorageClassFunction),
		"ptrU":  r.ConvertPointerType(ir.TypeFloat, StorageClassUniform),
	}
	seen := make(map[ir.ID]string)
	for name, id := range ids {
		if other, ok := seen[id]; ok {
			t.Errorf("%s and %s share id %d", name, other, id)
		}
		seen[id] = name
	}
}

func TestRegistry_Matrix(t *testing.T) {
	b := NewBuilder()
	r := NewRegistry(b, nil)

	mat := r.ConvertType(ir.Matrix(ir.BaseFloat, false, 4, 3))
	inst := b.Lookup(mat)
	if inst.Op != OpTypeMatrix {
		t.Fatalf("got %s, want OpTypeMatrix", inst.Op)
	}
	column := b.Lookup(ir.ID(inst.Operands[0]))
	if column.Op != OpTypeVector || column.Operands[1] != 4 {
		t.Errorf("column type is %s with %d components, want 4-component vector", column.Op, column.Operands[1])
	}
	if inst.Operands[1] != 3 {
		t.Errorf("column count = %d, want 3", inst.Operands[1])
	}
}

func TestRegistry_Arrays(t *testing.T) {
	b := NewBuilder()
	r := NewRegistry(b, nil)

	sized := ir.TypeFloat
	sized.ArrayLength = 4
	unsized := ir.TypeFloat
	unsized.ArrayLength = ir.ArrayUnsized

	sizedID := r.ConvertType(sized)
	unsizedID := r.ConvertType(unsized)
	scalarID := r.ConvertType(ir.TypeFloat)

	if sizedID == unsizedID || sizedID == scalarID || unsizedID == scalarID {
		t.Fatalf("array states collapsed: sized=%d unsized=%d scalar=%d", sizedID, unsizedID, scalarID)
	}
	if op := b.Lookup(sizedID).Op; op != OpTypeArray {
		t.Errorf("sized array is %s", op)
	}
	if op := b.Lookup(unsizedID).Op; op != OpTypeRuntimeArray {
		t.Errorf("unsized array is %s", op)
	}

	length := b.Lookup(ir.ID(b.Lookup(sizedID).Operands[1]))
	if length.Op != OpConstant || length.Operands[0] != 4 {
		t.Errorf("array length is not the constant 4")
	}
}

func TestRegistry_ConstantDedup(t *testing.T) {
	b := NewBuilder()
	r := NewRegistry(b, nil)

	zero1 := r.ConvertConstant(ir.TypeFloat, ir.FloatConstant(0))
	zero2 := r.ConvertConstant(ir.TypeFloat, ir.FloatConstant(0))
	two1 := r.Float(2)
	two2 := r.Float(2)

	if zero1 != zero2 || two1 != two2 {
		t.Errorf("constants not interned: 0=%d/%d 2.0=%d/%d", zero1, zero2, two1, two2)
	}
	if zero1 == two1 {
		t.Error("0.0 and 2.0 share an id")
	}
	if n := countOps(b, SectionVariables, OpConstant, OpConstantNull, OpConstantTrue, OpConstantComposite); n != 2 {
		t.Errorf("found %d constant instructions, want 2", n)
	}
	if op := b.Lookup(zero1).Op; op != OpConstantNull {
		t.Errorf("zero is %s, want OpConstantNull", op)
	}

	// The same bit pattern at another type is a different constant.
	if r.Int(0) == zero1 {
		t.Error("int 0 and float 0 share an id")
	}
}

func TestRegistry_CompositeConstants(t *testing.T) {
	b := NewBuilder()
	r := NewRegistry(b, nil)

	float3 := ir.Vector(ir.BaseFloat, false, 3)
	var c ir.Constant
	c.Bits[0] = ir.FloatConstant(1).Bits[0]
	c.Bits[1] = ir.FloatConstant(2).Bits[0]

	id := r.ConvertConstant(float3, c)
	inst := b.Lookup(id)
	if inst.Op != OpConstantComposite || len(inst.Operands) != 3 {
		t.Fatalf("got %s with %d operands", inst.Op, len(inst.Operands))
	}
	if ir.ID(inst.Operands[2]) != r.Float(0) {
		t.Error("zero component should reuse the float null constant")
	}
	if again := r.ConvertConstant(float3, c); again != id {
		t.Errorf("composite re-emitted: %d != %d", again, id)
	}

	if op := b.Lookup(r.ConvertConstant(ir.TypeBool, ir.BoolConstant(true))).Op; op != OpConstantTrue {
		t.Errorf("true is %s", op)
	}
	if op := b.Lookup(r.ConvertConstant(ir.TypeBool, ir.BoolConstant(false))).Op; op != OpConstantNull {
		t.Errorf("false is %s", op)
	}
}

func TestRegistry_StructConstant(t *testing.T) {
	b := NewBuilder()
	info := &ir.StructInfo{
		Name: "S",
		Fields: []ir.StructField{
			{Name: "a", Type: ir.TypeFloat},
			{Name: "b", Type: ir.TypeInt},
		},
	}
	r := NewRegistry(b, func(ir.ID) *ir.StructInfo { return info })

	structID := b.AddNode(SectionVariables, ir.Location{}, OpTypeStruct, 0).
		AddIDs(r.ConvertType(ir.TypeFloat), r.ConvertType(ir.TypeInt)).Result
	info.Definition = structID

	typ := ir.TypeInfo{Base: ir.BaseStruct, Rows: 1, Cols: 1, Definition: structID}
	if r.ConvertType(typ) != structID {
		t.Fatal("struct type should resolve to its definition")
	}

	c := ir.Constant{Elements: []ir.Constant{ir.FloatConstant(1), ir.IntConstant(2)}}
	inst := b.Lookup(r.ConvertConstant(typ, c))
	if inst.Op != OpConstantComposite || inst.Type != structID || len(inst.Operands) != 2 {
		t.Errorf("struct constant is %s of type %d with %d members", inst.Op, inst.Type, len(inst.Operands))
	}
}

func TestRegistry_RecreatesTruncatedEntries(t *testing.T) {
	b := NewBuilder()
	r := NewRegistry(b, nil)

	mark := b.Mark()
	first := r.ConvertType(ir.Vector(ir.BaseFloat, false, 2))
	b.Truncate(mark)

	second := r.ConvertType(ir.Vector(ir.BaseFloat, false, 2))
	if second == first {
		t.Fatal("registry returned an id whose definition was truncated")
	}
	if b.Lookup(second) == nil {
		t.Error("re-emitted type has no definition")
	}
}

func TestRegistry_FunctionType(t *testing.T) {
	b := NewBuilder()
	r := NewRegistry(b, nil)

	out := ir.TypeFloat
	out.Qualifiers = ir.QualifierOut

	a := r.ConvertFunctionType(ir.TypeFloat, []ir.TypeInfo{ir.TypeInt, ir.TypeFloat})
	if r.ConvertFunctionType(ir.TypeFloat, []ir.TypeInfo{ir.TypeInt, ir.TypeFloat}) != a {
		t.Error("function types not interned")
	}
	withOut := r.ConvertFunctionType(ir.TypeFloat, []ir.TypeInfo{ir.TypeInt, out})
	if withOut == a {
		t.Error("out parameter must change the function type")
	}
	param := b.Lookup(ir.ID(b.Lookup(withOut).Operands[2]))
	if param.Op != OpTypePointer || param.Operands[0] != uint32(StorageClassFunction) {
		t.Errorf("out parameter type is %s", param.Op)
	}
}

func TestRegistry_AddCast(t *testing.T) {
	float4 := ir.Vector(ir.BaseFloat, false, 4)
	int4 := ir.Vector(ir.BaseInt, true, 4)
	uint4 := ir.Vector(ir.BaseInt, false, 4)

	tests := []struct {
		name     string
		from, to ir.TypeInfo
		want     OpCode
	}{
		{"int to float", ir.TypeInt, ir.TypeFloat, OpConvertSToF},
		{"uint to float", ir.TypeUint, ir.TypeFloat, OpConvertUToF},
		{"float to int", ir.TypeFloat, ir.TypeInt, OpConvertFToS},
		{"float to uint", ir.TypeFloat, ir.TypeUint, OpConvertFToU},
		{"int to uint", ir.TypeInt, ir.TypeUint, OpBitcast},
		{"vector", int4, float4, OpConvertSToF},
		{"unsigned vector", uint4, float4, OpConvertUToF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder()
			r := NewRegistry(b, nil)
			id, ok := r.AddCast(SectionTemporary, ir.Location{}, tt.from, tt.to, 42)
			if !ok {
				t.Fatal("cast rejected")
			}
			inst := b.Lookup(id)
			if inst.Op != tt.want {
				t.Errorf("emitted %s, want %s", inst.Op, tt.want)
			}
			if inst.Type != r.ConvertType(tt.to) {
				t.Errorf("result type %d, want %d", inst.Type, r.ConvertType(tt.to))
			}
		})
	}

	b := NewBuilder()
	r := NewRegistry(b, nil)
	if id, ok := r.AddCast(SectionTemporary, ir.Location{}, ir.TypeFloat, ir.TypeFloat, 42); !ok || id != 42 || b.Len(SectionTemporary) != 0 {
		t.Error("cast between equal types must be a no-op")
	}
	if _, ok := r.AddCast(SectionTemporary, ir.Location{}, ir.TypeBool, ir.TypeFloat, 42); ok {
		t.Error("bool cast must be left to the caller")
	}
}
