package spirv

import (
	"strings"
	"testing"

	"github.com/gogpu/fxc/ir"
)

// buildFunction emits a minimal void function into b.
func buildFunction(t *testing.T, b *Builder, r *Registry) ir.ID {
	t.Helper()
	void := r.ConvertType(ir.TypeVoid)
	fnType := r.ConvertFunctionType(ir.TypeVoid, nil)
	fn := b.AddNode(SectionFunctions, ir.Location{}, OpFunction, void).
		Add(uint32(FunctionControlNone)).
		AddIDs(fnType)
	b.AddNode(SectionFunctions, ir.Location{}, OpLabel, 0)
	b.AddNodeWithoutResult(SectionFunctions, ir.Location{}, OpReturn)
	b.AddNodeWithoutResult(SectionFunctions, ir.Location{}, OpFunctionEnd)
	return fn.Result
}

func TestValidate_ValidModule(t *testing.T) {
	b := NewBuilder()
	r := NewRegistry(b, nil)
	b.AddNodeWithoutResult(SectionEntries, ir.Location{}, OpCapability).Add(uint32(CapabilityShader))
	b.AddNodeWithoutResult(SectionEntries, ir.Location{}, OpMemoryModel).Add(uint32(AddressingModelLogical), uint32(MemoryModelGLSL450))
	fn := buildFunction(t, b, r)
	b.AddNodeWithoutResult(SectionEntries, ir.Location{}, OpEntryPoint).
		Add(uint32(ExecutionModelFragment)).
		AddIDs(fn).
		AddString("main")
	b.AddName(fn, "main")

	if errs := Validate(b.Finish()); len(errs) != 0 {
		t.Fatalf("unexpected validation errors: %v", errs)
	}
}

func TestValidate_UndefinedID(t *testing.T) {
	b := NewBuilder()
	r := NewRegistry(b, nil)
	buildFunction(t, b, r)
	b.AddName(999, "ghost")

	errs := Validate(b.Finish())
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1: %v", len(errs), errs)
	}
	if !strings.Contains(errs[0].Error(), "999") {
		t.Errorf("error does not name the missing id: %v", errs[0])
	}
}

func TestValidate_MissingTerminator(t *testing.T) {
	b := NewBuilder()
	r := NewRegistry(b, nil)
	void := r.ConvertType(ir.TypeVoid)
	fnType := r.ConvertFunctionType(ir.TypeVoid, nil)
	b.AddNode(SectionFunctions, ir.Location{}, OpFunction, void).Add(0).AddIDs(fnType)
	b.AddNode(SectionFunctions, ir.Location{}, OpLabel, 0)
	b.AddNodeWithoutResult(SectionFunctions, ir.Location{}, OpFunctionEnd)

	errs := Validate(b.Finish())
	if len(errs) == 0 {
		t.Fatal("expected an error for a block without terminator")
	}
}

func TestValidate_DuplicateResult(t *testing.T) {
	m := &Module{
		Bound: 110,
		Instructions: []*Instruction{
			{Op: OpTypeFloat, Result: 100, Operands: []uint32{32}},
			{Op: OpTypeBool, Result: 100},
			{Op: OpTypeInt, Result: 120, Operands: []uint32{32, 1}},
		},
	}
	errs := Validate(m)
	if len(errs) != 2 {
		t.Fatalf("got %d errors, want 2 (duplicate and out of bound): %v", len(errs), errs)
	}
}

func TestValidate_DefinitionOrder(t *testing.T) {
	// %8 is stored at instruction 7 but loaded only at instruction 8; the
	// branch at 9 targets a label further down, which is allowed.
	body := func(store []uint32) *Module {
		return &Module{
			Bound: 11,
			Instructions: []*Instruction{
				{Op: OpTypeVoid, Result: 1},
				{Op: OpTypeFunction, Result: 2, Operands: []uint32{1}},
				{Op: OpTypeFloat, Result: 3, Operands: []uint32{32}},
				{Op: OpTypePointer, Result: 4, Operands: []uint32{uint32(StorageClassFunction), 3}},
				{Op: OpFunction, Type: 1, Result: 5, Operands: []uint32{uint32(FunctionControlNone), 2}},
				{Op: OpLabel, Result: 6},
				{Op: OpVariable, Type: 4, Result: 7, Operands: []uint32{uint32(StorageClassFunction)}},
				{Op: OpStore, Operands: store},
				{Op: OpLoad, Type: 3, Result: 8, Operands: []uint32{7}},
				{Op: OpBranch, Operands: []uint32{10}},
				{Op: OpLabel, Result: 10},
				{Op: OpReturn},
				{Op: OpFunctionEnd},
			},
		}
	}

	tests := []struct {
		name  string
		store []uint32
		want  string
	}{
		{"store of a later load", []uint32{7, 8}, "used before its definition at instruction 8"},
		{"store of the variable itself", []uint32{7, 7}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate(body(tt.store))
			if tt.want == "" {
				if len(errs) != 0 {
					t.Fatalf("unexpected validation errors: %v", errs)
				}
				return
			}
			if len(errs) != 1 {
				t.Fatalf("got %d errors, want 1: %v", len(errs), errs)
			}
			if errs[0].Instruction != 7 || !strings.Contains(errs[0].Error(), tt.want) {
				t.Errorf("error = %v, want %q at instruction 7", errs[0], tt.want)
			}
		})
	}
}
