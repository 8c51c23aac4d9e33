package spirv

import (
	"fmt"

	"github.com/gogpu/fxc/ir"
)

// ValidationError represents a structural problem in an assembled module.
type ValidationError struct {
	Message string
	// Position of the offending instruction in the module, or -1.
	Instruction int
	Op          OpCode
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Instruction >= 0 {
		return fmt.Sprintf("instruction %d (%s): %s", e.Instruction, e.Op, e.Message)
	}
	return e.Message
}

// Validate checks that a module is well formed: result ids are unique and
// below the bound, every referenced id is defined before its use (labels
// and functions excepted), and function bodies consist of labeled blocks
// ending in a terminator.
// It returns nil for a valid module.
func Validate(m *Module) []ValidationError {
	v := &validator{module: m, defined: make(map[ir.ID]int)}
	v.collectDefinitions()
	v.checkReferences()
	v.checkFunctions()
	return v.errors
}

type validator struct {
	module  *Module
	defined map[ir.ID]int
	errors  []ValidationError
}

func (v *validator) errorf(index int, op OpCode, format string, args ...any) {
	v.errors = append(v.errors, ValidationError{
		Message:     fmt.Sprintf(format, args...),
		Instruction: index,
		Op:          op,
	})
}

func (v *validator) collectDefinitions() {
	for i, inst := range v.module.Instructions {
		if inst.Result == 0 {
			continue
		}
		if inst.Result >= v.module.Bound {
			v.errorf(i, inst.Op, "result id %d exceeds bound %d", inst.Result, v.module.Bound)
		}
		if prev, ok := v.defined[inst.Result]; ok {
			v.errorf(i, inst.Op, "result id %d already defined by instruction %d", inst.Result, prev)
			continue
		}
		v.defined[inst.Result] = i
	}
}

func (v *validator) checkReferences() {
	for i, inst := range v.module.Instructions {
		if inst.Type != 0 {
			v.checkUse(i, inst, inst.Type, "result type")
		}
		for _, id := range idOperands(inst) {
			v.checkUse(i, inst, ir.ID(id), "operand id")
		}
	}
}

func (v *validator) checkUse(i int, inst *Instruction, id ir.ID, what string) {
	def, ok := v.defined[id]
	if !ok {
		v.errorf(i, inst.Op, "%s %d is not defined", what, id)
		return
	}
	if def > i && !forwardReference(inst.Op, v.module.Instructions[def].Op) {
		v.errorf(i, inst.Op, "%s %d is used before its definition at instruction %d", what, id, def)
	}
}

// forwardReference reports whether an instruction op may name an id that a
// later instruction def defines. Debug names, decorations and entry points
// precede everything they name; branches and calls may target blocks and
// functions further down.
func forwardReference(op, def OpCode) bool {
	switch op {
	case OpName, OpMemberName, OpDecorate, OpMemberDecorate, OpEntryPoint, OpExecutionMode:
		return true
	}
	return def == OpLabel || def == OpFunction
}

func (v *validator) checkFunctions() {
	inFunction, inBlock := false, false
	for i, inst := range v.module.Instructions {
		switch {
		case inst.Op == OpFunction:
			if inFunction {
				v.errorf(i, inst.Op, "nested function definition")
			}
			inFunction, inBlock = true, false
		case inst.Op == OpFunctionEnd:
			if !inFunction {
				v.errorf(i, inst.Op, "function end outside of a function")
			}
			if inBlock {
				v.errorf(i, inst.Op, "last block is missing a terminator")
			}
			inFunction, inBlock = false, false
		case !inFunction:
			if inst.Op == OpLabel || inst.Op.IsTerminator() {
				v.errorf(i, inst.Op, "control flow outside of a function")
			}
		case inst.Op == OpFunctionParameter:
			if inBlock {
				v.errorf(i, inst.Op, "parameter after the first block")
			}
		case inst.Op == OpLabel:
			if inBlock {
				v.errorf(i, inst.Op, "block starts before the previous one terminates")
			}
			inBlock = true
		case !inBlock:
			v.errorf(i, inst.Op, "instruction outside of a block")
		case inst.Op.IsTerminator():
			inBlock = false
		}
	}
	if inFunction {
		v.errorf(-1, OpNop, "unterminated function at end of module")
	}
}

// idOperands returns the operands of inst that reference other ids.
func idOperands(inst *Instruction) []uint32 {
	ops := inst.Operands
	switch inst.Op {
	case OpCapability, OpMemoryModel, OpExtInstImport, OpString, OpLabel,
		OpReturn, OpKill, OpUnreachable, OpFunctionEnd,
		OpTypeVoid, OpTypeBool, OpTypeInt, OpTypeFloat,
		OpConstant, OpConstantTrue, OpConstantFalse, OpConstantNull:
		return nil
	case OpSource:
		if len(ops) > 2 {
			return ops[2:3]
		}
		return nil
	case OpName, OpMemberName, OpDecorate, OpMemberDecorate, OpExecutionMode,
		OpTypeVector, OpTypeMatrix, OpTypeImage, OpTypeSampledImage, OpTypeRuntimeArray,
		OpSelectionMerge, OpBranch, OpCompositeExtract:
		return ops[:1]
	case OpEntryPoint:
		ids := []uint32{ops[1]}
		return append(ids, ops[2+stringWords(ops[2:]):]...)
	case OpTypePointer:
		return ops[1:2]
	case OpVariable:
		return ops[1:]
	case OpFunction:
		return ops[1:2]
	case OpExtInst:
		return append([]uint32{ops[0]}, ops[2:]...)
	case OpLoopMerge, OpVectorShuffle, OpTypeArray, OpCompositeInsert:
		return ops[:2]
	case OpSwitch:
		ids := []uint32{ops[0], ops[1]}
		for i := 3; i < len(ops); i += 2 {
			ids = append(ids, ops[i])
		}
		return ids
	case OpImageSampleImplicitLod, OpImageSampleExplicitLod:
		ids := []uint32{ops[0], ops[1]}
		if len(ops) > 3 {
			ids = append(ids, ops[3:]...)
		}
		return ids
	default:
		return ops
	}
}

// stringWords returns the number of words occupied by the literal string at
// the start of words.
func stringWords(words []uint32) int {
	for i, w := range words {
		if w>>24 == 0 || w&0xFF == 0 || (w>>8)&0xFF == 0 || (w>>16)&0xFF == 0 {
			return i + 1
		}
	}
	return len(words)
}
