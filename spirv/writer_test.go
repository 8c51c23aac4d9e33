package spirv

import (
	"encoding/binary"
	"testing"

	"github.com/gogpu/fxc/ir"
)

func TestInstruction_AddString(t *testing.T) {
	tests := []struct {
		in   string
		want []uint32
	}{
		{"", []uint32{0}},
		{"abc", []uint32{0x00636261}},
		{"abcd", []uint32{0x64636261, 0}},
		{"main", []uint32{0x6E69616D, 0}},
	}
	for _, tt := range tests {
		inst := &Instruction{Op: OpName}
		inst.AddString(tt.in)
		if len(inst.Operands) != len(tt.want) {
			t.Fatalf("AddString(%q) produced %d words, want %d", tt.in, len(inst.Operands), len(tt.want))
		}
		for i, w := range tt.want {
			if inst.Operands[i] != w {
				t.Errorf("AddString(%q) word %d = 0x%08X, want 0x%08X", tt.in, i, inst.Operands[i], w)
			}
		}
		if got := decodeString(inst.Operands); got != tt.in {
			t.Errorf("decodeString round trip = %q, want %q", got, tt.in)
		}
	}
}

func TestInstruction_Encode(t *testing.T) {
	inst := &Instruction{Op: OpFAdd, Type: 101, Result: 105}
	inst.AddIDs(102, 103)

	words := inst.Encode(nil)
	want := []uint32{5<<16 | uint32(OpFAdd), 101, 105, 102, 103}
	if len(words) != len(want) {
		t.Fatalf("got %d words, want %d", len(words), len(want))
	}
	for i := range want {
		if words[i] != want[i] {
			t.Errorf("word %d = %d, want %d", i, words[i], want[i])
		}
	}

	store := &Instruction{Op: OpStore}
	store.AddIDs(1, 2)
	if got := store.Encode(nil)[0]; got != 3<<16|uint32(OpStore) {
		t.Errorf("OpStore header = 0x%08X", got)
	}
}

func TestBuilder_IDs(t *testing.T) {
	b := NewBuilder()

	first := b.AddNode(SectionVariables, ir.Location{}, OpTypeFloat, 0).Add(32)
	if first.Result != FirstID {
		t.Errorf("first id = %d, want %d", first.Result, FirstID)
	}
	second := b.AddNode(SectionVariables, ir.Location{}, OpTypeBool, 0)
	if second.Result != FirstID+1 {
		t.Errorf("second id = %d, want %d", second.Result, FirstID+1)
	}

	marker := b.AddNodeWithoutResult(SectionFunctions, ir.Location{}, OpReturn)
	if marker.Result != 0 {
		t.Error("instruction without result got an id")
	}
	if b.Bound() != FirstID+2 {
		t.Errorf("Bound() = %d, want %d", b.Bound(), FirstID+2)
	}

	if got := b.Lookup(first.Result); got != first {
		t.Error("Lookup did not return the defining instruction")
	}
	if s, ok := b.SectionOf(second.Result); !ok || s != SectionVariables {
		t.Errorf("SectionOf = %s, %v", s, ok)
	}
}

func TestBuilder_TruncateRetiresIDs(t *testing.T) {
	b := NewBuilder()
	kept := b.AddNode(SectionVariables, ir.Location{}, OpTypeFloat, 0)

	mark := b.Mark()
	dropped := b.AddNode(SectionVariables, ir.Location{}, OpTypeBool, 0)
	b.AddNode(SectionTemporary, ir.Location{}, OpLabel, 0)
	b.Truncate(mark)

	if b.Len(SectionVariables) != 1 || b.Len(SectionTemporary) != 0 {
		t.Fatalf("sections not truncated: variables=%d temporary=%d", b.Len(SectionVariables), b.Len(SectionTemporary))
	}
	if b.Lookup(dropped.Result) != nil {
		t.Error("truncated id still resolves")
	}
	if b.Lookup(kept.Result) != kept {
		t.Error("kept id no longer resolves")
	}

	// Ids are never handed out twice.
	next := b.AddNode(SectionVariables, ir.Location{}, OpTypeBool, 0)
	if next.Result <= dropped.Result {
		t.Errorf("id %d reused after truncation (dropped %d)", next.Result, dropped.Result)
	}
}

func TestBuilder_Splice(t *testing.T) {
	b := NewBuilder()
	fn := b.AddNode(SectionFunctions, ir.Location{}, OpFunction, 0)

	start := b.Len(SectionTemporary)
	label := b.AddNode(SectionTemporary, ir.Location{}, OpLabel, 0)
	b.AddNodeWithoutResult(SectionTemporary, ir.Location{}, OpReturn)

	b.Splice(SectionTemporary, start, SectionFunctions)

	if b.Len(SectionTemporary) != 0 {
		t.Errorf("temporary section has %d instructions after splice", b.Len(SectionTemporary))
	}
	insts := b.Section(SectionFunctions)
	if len(insts) != 3 || insts[0] != fn || insts[1] != label {
		t.Fatalf("unexpected function section: %d instructions", len(insts))
	}
	if s, _ := b.SectionOf(label.Result); s != SectionFunctions {
		t.Errorf("spliced label is in %s", s)
	}
	if label.Index != 1 {
		t.Errorf("spliced label index = %d, want 1", label.Index)
	}
}

func TestModule_Encode(t *testing.T) {
	b := NewBuilder()
	b.AddNodeWithoutResult(SectionEntries, ir.Location{}, OpCapability).Add(uint32(CapabilityShader))
	b.AddNodeWithoutResult(SectionEntries, ir.Location{}, OpMemoryModel).Add(uint32(AddressingModelLogical), uint32(MemoryModelGLSL450))
	b.AddNode(SectionVariables, ir.Location{}, OpTypeVoid, 0)
	b.AddNode(SectionTemporary, ir.Location{}, OpLabel, 0)

	m := b.Finish()
	if len(m.Instructions) != 3 {
		t.Errorf("module has %d instructions, want 3 (temporary dropped)", len(m.Instructions))
	}

	data := m.Encode(Version1_3)
	if len(data) != (5+2+3+2)*4 {
		t.Fatalf("encoded %d bytes", len(data))
	}
	if magic := binary.LittleEndian.Uint32(data[0:4]); magic != MagicNumber {
		t.Errorf("Invalid magic number: got 0x%08X", magic)
	}
	if version := binary.LittleEndian.Uint32(data[4:8]); version != 1<<16|3<<8 {
		t.Errorf("Invalid version: got 0x%08X", version)
	}
	if bound := binary.LittleEndian.Uint32(data[12:16]); bound != uint32(FirstID+2) {
		t.Errorf("bound = %d, want %d", bound, FirstID+2)
	}
	if schema := binary.LittleEndian.Uint32(data[16:20]); schema != 0 {
		t.Errorf("Schema should be 0, got %d", schema)
	}
}
