package spirv

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/fxc/ir"
)

// Instruction represents a SPIR-V instruction.
type Instruction struct {
	Op       OpCode
	Type     ir.ID // result type, 0 if the instruction has none
	Result   ir.ID // result id, 0 if the instruction has none
	Operands []uint32
	Index    int // position within its section
	Location ir.Location
}

// Add appends literal words or ids to the operand list.
func (i *Instruction) Add(words ...uint32) *Instruction {
	i.Operands = append(i.Operands, words...)
	return i
}

// AddIDs appends id operands.
func (i *Instruction) AddIDs(ids ...ir.ID) *Instruction {
	for _, id := range ids {
		i.Operands = append(i.Operands, uint32(id))
	}
	return i
}

// AddString appends a null-terminated UTF-8 string padded to a word boundary.
func (i *Instruction) AddString(s string) *Instruction {
	bytes := []byte(s)
	bytes = append(bytes, 0)

	// Pad to word boundary
	for len(bytes)%4 != 0 {
		bytes = append(bytes, 0)
	}

	// Convert to words
	for j := 0; j < len(bytes); j += 4 {
		word := uint32(bytes[j]) |
			uint32(bytes[j+1])<<8 |
			uint32(bytes[j+2])<<16 |
			uint32(bytes[j+3])<<24
		i.Operands = append(i.Operands, word)
	}
	return i
}

// WordCount returns the encoded size of the instruction in words.
func (i *Instruction) WordCount() int {
	n := 1 + len(i.Operands)
	if i.Type != 0 {
		n++
	}
	if i.Result != 0 {
		n++
	}
	return n
}

// Encode appends the binary words of the instruction to dst.
func (i *Instruction) Encode(dst []uint32) []uint32 {
	wordCount := uint32(i.WordCount())
	dst = append(dst, (wordCount<<16)|uint32(i.Op))
	if i.Type != 0 {
		dst = append(dst, uint32(i.Type))
	}
	if i.Result != 0 {
		dst = append(dst, uint32(i.Result))
	}
	return append(dst, i.Operands...)
}

// Section names one of the ordered instruction containers of a module.
type Section uint8

const (
	// SectionEntries holds capabilities, imports, the memory model,
	// entry points and execution modes.
	SectionEntries Section = iota
	// SectionStrings holds debug strings, source info and names.
	SectionStrings
	// SectionAnnotations holds decorations.
	SectionAnnotations
	// SectionVariables holds types, constants and global variables.
	SectionVariables
	// SectionFunctions holds function definitions.
	SectionFunctions
	// SectionTemporary is scratch space that never reaches the module.
	SectionTemporary

	sectionCount
)

var sectionNames = [...]string{"entries", "strings", "annotations", "variables", "functions", "temporary"}

func (s Section) String() string {
	if int(s) < len(sectionNames) {
		return sectionNames[s]
	}
	return fmt.Sprintf("section(%d)", s)
}

// FirstID is the first id handed out; ids below it are reserved.
const FirstID ir.ID = 100

type nodeRef struct {
	section Section
	index   int
}

// Mark records the length of every section so speculative output can be
// discarded with Truncate.
type Mark [sectionCount]int

// Builder accumulates instructions into sections and owns the id space.
// Ids are allocated monotonically and never reused, even after Truncate.
type Builder struct {
	sections [sectionCount][]*Instruction
	nextID   ir.ID
	index    map[ir.ID]nodeRef
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		nextID: FirstID,
		index:  make(map[ir.ID]nodeRef),
	}
}

// AllocID reserves an id without emitting an instruction for it yet.
func (b *Builder) AllocID() ir.ID {
	id := b.nextID
	b.nextID++
	return id
}

// Bound returns one past the largest id handed out.
func (b *Builder) Bound() ir.ID {
	return b.nextID
}

// AddNode appends an instruction with a fresh result id to a section.
func (b *Builder) AddNode(section Section, loc ir.Location, op OpCode, typ ir.ID) *Instruction {
	return b.AddNodeWithID(section, loc, op, typ, b.AllocID())
}

// AddNodeWithID appends an instruction defining a previously allocated id.
func (b *Builder) AddNodeWithID(section Section, loc ir.Location, op OpCode, typ, id ir.ID) *Instruction {
	inst := b.append(section, &Instruction{Op: op, Type: typ, Result: id, Location: loc})
	b.index[id] = nodeRef{section: section, index: inst.Index}
	return inst
}

// AddNodeWithoutResult appends an instruction that defines no id.
func (b *Builder) AddNodeWithoutResult(section Section, loc ir.Location, op OpCode) *Instruction {
	return b.append(section, &Instruction{Op: op, Location: loc})
}

func (b *Builder) append(section Section, inst *Instruction) *Instruction {
	inst.Index = len(b.sections[section])
	b.sections[section] = append(b.sections[section], inst)
	return inst
}

// Lookup returns the instruction defining id, or nil.
func (b *Builder) Lookup(id ir.ID) *Instruction {
	ref, ok := b.index[id]
	if !ok {
		return nil
	}
	return b.sections[ref.section][ref.index]
}

// SectionOf reports which section currently holds the definition of id.
func (b *Builder) SectionOf(id ir.ID) (Section, bool) {
	ref, ok := b.index[id]
	return ref.section, ok
}

// Section returns the instructions of a section. The slice must not be
// modified.
func (b *Builder) Section(s Section) []*Instruction {
	return b.sections[s]
}

// Len returns the number of instructions in a section.
func (b *Builder) Len(s Section) int {
	return len(b.sections[s])
}

// Last returns the last instruction of a section, or nil.
func (b *Builder) Last(s Section) *Instruction {
	if n := len(b.sections[s]); n > 0 {
		return b.sections[s][n-1]
	}
	return nil
}

// Mark returns the current length of every section.
func (b *Builder) Mark() Mark {
	var m Mark
	for s := range b.sections {
		m[s] = len(b.sections[s])
	}
	return m
}

// Truncate drops everything appended after m was taken and forgets the
// ids those instructions defined.
func (b *Builder) Truncate(m Mark) {
	for s := range b.sections {
		b.TruncateSection(Section(s), m[s])
	}
}

// TruncateSection shortens a single section to n instructions.
func (b *Builder) TruncateSection(s Section, n int) {
	insts := b.sections[s]
	if n >= len(insts) {
		return
	}
	for _, inst := range insts[n:] {
		if inst.Result != 0 {
			delete(b.index, inst.Result)
		}
	}
	b.sections[s] = insts[:n]
}

// Splice moves the instructions of section from, starting at position
// start, to the end of section to.
func (b *Builder) Splice(from Section, start int, to Section) {
	moved := b.sections[from][start:]
	for _, inst := range moved {
		b.append(to, inst)
		if inst.Result != 0 {
			b.index[inst.Result] = nodeRef{section: to, index: inst.Index}
		}
	}
	b.sections[from] = b.sections[from][:start]
}

// Finish concatenates the sections in module order. The scratch section
// is dropped.
func (b *Builder) Finish() *Module {
	m := &Module{Bound: b.nextID}
	for s := SectionEntries; s < SectionTemporary; s++ {
		m.Instructions = append(m.Instructions, b.sections[s]...)
	}
	return m
}

// Module is an assembled instruction stream ready for encoding.
type Module struct {
	Bound        ir.ID
	Instructions []*Instruction
}

// Words encodes the module including its header.
func (m *Module) Words(version Version) []uint32 {
	words := make([]uint32, 0, 5+len(m.Instructions)*4)
	words = append(words,
		MagicNumber,
		versionToWord(version),
		GeneratorID,
		uint32(m.Bound),
		0, // schema
	)
	for _, inst := range m.Instructions {
		words = inst.Encode(words)
	}
	return words
}

// Encode encodes the module to little-endian SPIR-V binary.
func (m *Module) Encode(version Version) []byte {
	words := m.Words(version)
	buffer := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(buffer[i*4:], w)
	}
	return buffer
}

// versionToWord converts Version to SPIR-V word format.
func versionToWord(v Version) uint32 {
	return (uint32(v.Major) << 16) | (uint32(v.Minor) << 8)
}

// AddName adds a debug name.
func (b *Builder) AddName(id ir.ID, name string) {
	b.AddNodeWithoutResult(SectionStrings, ir.Location{}, OpName).
		AddIDs(id).
		AddString(name)
}

// AddMemberName adds a debug member name.
func (b *Builder) AddMemberName(structID ir.ID, member uint32, name string) {
	b.AddNodeWithoutResult(SectionStrings, ir.Location{}, OpMemberName).
		AddIDs(structID).
		Add(member).
		AddString(name)
}

// AddDecorate adds a decoration.
func (b *Builder) AddDecorate(id ir.ID, decoration Decoration, params ...uint32) {
	b.AddNodeWithoutResult(SectionAnnotations, ir.Location{}, OpDecorate).
		AddIDs(id).
		Add(uint32(decoration)).
		Add(params...)
}

// AddMemberDecorate adds a member decoration.
func (b *Builder) AddMemberDecorate(structID ir.ID, member uint32, decoration Decoration, params ...uint32) {
	b.AddNodeWithoutResult(SectionAnnotations, ir.Location{}, OpMemberDecorate).
		AddIDs(structID).
		Add(member, uint32(decoration)).
		Add(params...)
}
