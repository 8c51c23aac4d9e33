package spirv

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
)

type opInfo struct {
	name   string
	typ    bool
	result bool
}

func info(name string, typ, result bool) opInfo { return opInfo{name, typ, result} }

var opInfos = map[OpCode]opInfo{
	OpNop:                    info("OpNop", false, false),
	OpUndef:                  info("OpUndef", true, true),
	OpSource:                 info("OpSource", false, false),
	OpName:                   info("OpName", false, false),
	OpMemberName:             info("OpMemberName", false, false),
	OpString:                 info("OpString", false, true),
	OpLine:                   info("OpLine", false, false),
	OpExtension:              info("OpExtension", false, false),
	OpExtInstImport:          info("OpExtInstImport", false, true),
	OpExtInst:                info("OpExtInst", true, true),
	OpMemoryModel:            info("OpMemoryModel", false, false),
	OpEntryPoint:             info("OpEntryPoint", false, false),
	OpExecutionMode:          info("OpExecutionMode", false, false),
	OpCapability:             info("OpCapability", false, false),
	OpTypeVoid:               info("OpTypeVoid", false, true),
	OpTypeBool:               info("OpTypeBool", false, true),
	OpTypeInt:                info("OpTypeInt", false, true),
	OpTypeFloat:              info("OpTypeFloat", false, true),
	OpTypeVector:             info("OpTypeVector", false, true),
	OpTypeMatrix:             info("OpTypeMatrix", false, true),
	OpTypeImage:              info("OpTypeImage", false, true),
	OpTypeSampler:            info("OpTypeSampler", false, true),
	OpTypeSampledImage:       info("OpTypeSampledImage", false, true),
	OpTypeArray:              info("OpTypeArray", false, true),
	OpTypeRuntimeArray:       info("OpTypeRuntimeArray", false, true),
	OpTypeStruct:             info("OpTypeStruct", false, true),
	OpTypePointer:            info("OpTypePointer", false, true),
	OpTypeFunction:           info("OpTypeFunction", false, true),
	OpConstantTrue:           info("OpConstantTrue", true, true),
	OpConstantFalse:          info("OpConstantFalse", true, true),
	OpConstant:               info("OpConstant", true, true),
	OpConstantComposite:      info("OpConstantComposite", true, true),
	OpConstantNull:           info("OpConstantNull", true, true),
	OpFunction:               info("OpFunction", true, true),
	OpFunctionParameter:      info("OpFunctionParameter", true, true),
	OpFunctionEnd:            info("OpFunctionEnd", false, false),
	OpFunctionCall:           info("OpFunctionCall", true, true),
	OpVariable:               info("OpVariable", true, true),
	OpLoad:                   info("OpLoad", true, true),
	OpStore:                  info("OpStore", false, false),
	OpAccessChain:            info("OpAccessChain", true, true),
	OpDecorate:               info("OpDecorate", false, false),
	OpMemberDecorate:         info("OpMemberDecorate", false, false),
	OpVectorExtractDynamic:   info("OpVectorExtractDynamic", true, true),
	OpVectorShuffle:          info("OpVectorShuffle", true, true),
	OpCompositeConstruct:     info("OpCompositeConstruct", true, true),
	OpCompositeExtract:       info("OpCompositeExtract", true, true),
	OpCompositeInsert:        info("OpCompositeInsert", true, true),
	OpTranspose:              info("OpTranspose", true, true),
	OpImageSampleImplicitLod: info("OpImageSampleImplicitLod", true, true),
	OpImageSampleExplicitLod: info("OpImageSampleExplicitLod", true, true),
	OpConvertFToU:            info("OpConvertFToU", true, true),
	OpConvertFToS:            info("OpConvertFToS", true, true),
	OpConvertSToF:            info("OpConvertSToF", true, true),
	OpConvertUToF:            info("OpConvertUToF", true, true),
	OpBitcast:                info("OpBitcast", true, true),
	OpSNegate:                info("OpSNegate", true, true),
	OpFNegate:                info("OpFNegate", true, true),
	OpIAdd:                   info("OpIAdd", true, true),
	OpFAdd:                   info("OpFAdd", true, true),
	OpISub:                   info("OpISub", true, true),
	OpFSub:                   info("OpFSub", true, true),
	OpIMul:                   info("OpIMul", true, true),
	OpFMul:                   info("OpFMul", true, true),
	OpUDiv:                   info("OpUDiv", true, true),
	OpSDiv:                   info("OpSDiv", true, true),
	OpFDiv:                   info("OpFDiv", true, true),
	OpUMod:                   info("OpUMod", true, true),
	OpSRem:                   info("OpSRem", true, true),
	OpFRem:                   info("OpFRem", true, true),
	OpVectorTimesScalar:      info("OpVectorTimesScalar", true, true),
	OpMatrixTimesScalar:      info("OpMatrixTimesScalar", true, true),
	OpVectorTimesMatrix:      info("OpVectorTimesMatrix", true, true),
	OpMatrixTimesVector:      info("OpMatrixTimesVector", true, true),
	OpMatrixTimesMatrix:      info("OpMatrixTimesMatrix", true, true),
	OpDot:                    info("OpDot", true, true),
	OpAny:                    info("OpAny", true, true),
	OpAll:                    info("OpAll", true, true),
	OpLogicalEqual:           info("OpLogicalEqual", true, true),
	OpLogicalNotEqual:        info("OpLogicalNotEqual", true, true),
	OpLogicalOr:              info("OpLogicalOr", true, true),
	OpLogicalAnd:             info("OpLogicalAnd", true, true),
	OpLogicalNot:             info("OpLogicalNot", true, true),
	OpSelect:                 info("OpSelect", true, true),
	OpIEqual:                 info("OpIEqual", true, true),
	OpINotEqual:              info("OpINotEqual", true, true),
	OpUGreaterThan:           info("OpUGreaterThan", true, true),
	OpSGreaterThan:           info("OpSGreaterThan", true, true),
	OpUGreaterThanEqual:      info("OpUGreaterThanEqual", true, true),
	OpSGreaterThanEqual:      info("OpSGreaterThanEqual", true, true),
	OpULessThan:              info("OpULessThan", true, true),
	OpSLessThan:              info("OpSLessThan", true, true),
	OpULessThanEqual:         info("OpULessThanEqual", true, true),
	OpSLessThanEqual:         info("OpSLessThanEqual", true, true),
	OpFOrdEqual:              info("OpFOrdEqual", true, true),
	OpFOrdNotEqual:           info("OpFOrdNotEqual", true, true),
	OpFOrdLessThan:           info("OpFOrdLessThan", true, true),
	OpFOrdGreaterThan:        info("OpFOrdGreaterThan", true, true),
	OpFOrdLessThanEqual:      info("OpFOrdLessThanEqual", true, true),
	OpFOrdGreaterThanEqual:   info("OpFOrdGreaterThanEqual", true, true),
	OpShiftRightLogical:      info("OpShiftRightLogical", true, true),
	OpShiftRightArithmetic:   info("OpShiftRightArithmetic", true, true),
	OpShiftLeftLogical:       info("OpShiftLeftLogical", true, true),
	OpBitwiseOr:              info("OpBitwiseOr", true, true),
	OpBitwiseXor:             info("OpBitwiseXor", true, true),
	OpBitwiseAnd:             info("OpBitwiseAnd", true, true),
	OpNot:                    info("OpNot", true, true),
	OpLoopMerge:              info("OpLoopMerge", false, false),
	OpSelectionMerge:         info("OpSelectionMerge", false, false),
	OpLabel:                  info("OpLabel", false, true),
	OpBranch:                 info("OpBranch", false, false),
	OpBranchConditional:      info("OpBranchConditional", false, false),
	OpSwitch:                 info("OpSwitch", false, false),
	OpKill:                   info("OpKill", false, false),
	OpReturn:                 info("OpReturn", false, false),
	OpReturnValue:            info("OpReturnValue", false, false),
	OpUnreachable:            info("OpUnreachable", false, false),
}

// String returns the mnemonic of an opcode.
func (op OpCode) String() string {
	if i, ok := opInfos[op]; ok {
		return i.name
	}
	return fmt.Sprintf("Op%d", op)
}

var storageClassNames = map[uint32]string{
	0: "UniformConstant", 1: "Input", 2: "Uniform", 3: "Output",
	6: "Private", 7: "Function",
}

var decorationNames = map[uint32]string{
	2: "Block", 5: "ColMajor", 6: "ArrayStride", 7: "MatrixStride",
	11: "BuiltIn", 13: "NoPerspective", 14: "Flat", 16: "Centroid",
	30: "Location", 33: "Binding", 34: "DescriptorSet", 35: "Offset",
}

var builtinNames = map[uint32]string{
	0: "Position", 15: "FragCoord", 22: "FragDepth", 42: "VertexIndex",
}

var executionModelNames = map[uint32]string{0: "Vertex", 4: "Fragment"}

func lookup(m map[uint32]string, v uint32) string {
	if s, ok := m[v]; ok {
		return s
	}
	return fmt.Sprintf("%d", v)
}

func id(n uint32) string {
	return fmt.Sprintf("%%%d", n)
}

// ErrInvalidModule is returned for input that is not a SPIR-V module.
var ErrInvalidModule = errors.New("invalid SPIR-V module")

// DisassembleBytes renders a little-endian SPIR-V binary as text.
func DisassembleBytes(data []byte) (string, error) {
	if len(data)%4 != 0 {
		return "", fmt.Errorf("%w: size %d is not a multiple of 4", ErrInvalidModule, len(data))
	}
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return Disassemble(words)
}

// Disassemble renders SPIR-V words as text, one instruction per line.
func Disassemble(words []uint32) (string, error) {
	if len(words) < 5 {
		return "", fmt.Errorf("%w: missing header", ErrInvalidModule)
	}
	if words[0] != MagicNumber {
		return "", fmt.Errorf("%w: bad magic 0x%08X", ErrInvalidModule, words[0])
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "; SPIR-V\n")
	fmt.Fprintf(&sb, "; Version: %d.%d\n", (words[1]>>16)&0xFF, (words[1]>>8)&0xFF)
	fmt.Fprintf(&sb, "; Generator: 0x%08X\n", words[2])
	fmt.Fprintf(&sb, "; Bound: %d\n", words[3])
	fmt.Fprintf(&sb, "; Schema: %d\n", words[4])

	for offset := 5; offset < len(words); {
		wordCount := int(words[offset] >> 16)
		op := OpCode(words[offset] & 0xFFFF)
		if wordCount == 0 || offset+wordCount > len(words) {
			return sb.String(), fmt.Errorf("%w: invalid word count %d at word %d", ErrInvalidModule, wordCount, offset)
		}
		writeInstruction(&sb, op, words[offset+1:offset+wordCount])
		offset += wordCount
	}
	return sb.String(), nil
}

func writeInstruction(sb *strings.Builder, op OpCode, ops []uint32) {
	in, known := opInfos[op]
	if !known {
		in = opInfo{name: op.String()}
	}

	var typ, result uint32
	if in.typ && len(ops) > 0 {
		typ, ops = ops[0], ops[1:]
	}
	if in.result && len(ops) > 0 {
		result, ops = ops[0], ops[1:]
	}

	if result != 0 {
		fmt.Fprintf(sb, "%12s = %s", id(result), in.name)
	} else {
		fmt.Fprintf(sb, "%15s%s", "", in.name)
	}
	if typ != 0 {
		fmt.Fprintf(sb, " %s", id(typ))
	}

	args := formatOperands(op, ops)
	if len(args) > 0 {
		sb.WriteByte(' ')
		sb.WriteString(strings.Join(args, " "))
	}
	sb.WriteByte('\n')
}

//nolint:gocyclo,cyclop // one case per operand layout
func formatOperands(op OpCode, ops []uint32) []string {
	var args []string
	ids := func(ws []uint32) {
		for _, w := range ws {
			args = append(args, id(w))
		}
	}
	lits := func(ws []uint32) {
		for _, w := range ws {
			args = append(args, fmt.Sprintf("%d", w))
		}
	}
	str := func(ws []uint32) int {
		n := stringWords(ws)
		args = append(args, fmt.Sprintf("%q", decodeString(ws[:n])))
		return n
	}

	switch op {
	case OpCapability:
		names := map[uint32]string{0: "Matrix", 1: "Shader"}
		args = append(args, lookup(names, ops[0]))
	case OpMemoryModel:
		args = append(args, lookup(map[uint32]string{0: "Logical"}, ops[0]), lookup(map[uint32]string{1: "GLSL450"}, ops[1]))
	case OpExtInstImport, OpString:
		str(ops)
	case OpSource:
		args = append(args, lookup(map[uint32]string{5: "HLSL"}, ops[0]))
		lits(ops[1:2])
		ids(ops[2:])
	case OpName:
		ids(ops[:1])
		str(ops[1:])
	case OpMemberName:
		ids(ops[:1])
		lits(ops[1:2])
		str(ops[2:])
	case OpEntryPoint:
		args = append(args, lookup(executionModelNames, ops[0]), id(ops[1]))
		n := str(ops[2:])
		ids(ops[2+n:])
	case OpExecutionMode:
		ids(ops[:1])
		args = append(args, lookup(map[uint32]string{7: "OriginUpperLeft"}, ops[1]))
		lits(ops[2:])
	case OpDecorate, OpMemberDecorate:
		ids(ops[:1])
		rest := ops[1:]
		if op == OpMemberDecorate {
			lits(rest[:1])
			rest = rest[1:]
		}
		args = append(args, lookup(decorationNames, rest[0]))
		if rest[0] == uint32(DecorationBuiltIn) && len(rest) > 1 {
			args = append(args, lookup(builtinNames, rest[1]))
		} else {
			lits(rest[1:])
		}
	case OpTypeInt, OpTypeFloat:
		lits(ops)
	case OpTypeVector, OpTypeMatrix:
		ids(ops[:1])
		lits(ops[1:])
	case OpTypeImage:
		ids(ops[:1])
		args = append(args, lookup(map[uint32]string{1: "2D"}, ops[1]))
		lits(ops[2:])
	case OpTypePointer:
		args = append(args, lookup(storageClassNames, ops[0]))
		ids(ops[1:])
	case OpConstant:
		lits(ops)
		if len(ops) == 1 {
			args = append(args, fmt.Sprintf("; %g", math.Float32frombits(ops[0])))
		}
	case OpVariable:
		args = append(args, lookup(storageClassNames, ops[0]))
		ids(ops[1:])
	case OpFunction:
		args = append(args, "None")
		ids(ops[1:])
	case OpExtInst:
		ids(ops[:1])
		lits(ops[1:2])
		ids(ops[2:])
	case OpVectorShuffle:
		ids(ops[:2])
		lits(ops[2:])
	case OpCompositeExtract:
		ids(ops[:1])
		lits(ops[1:])
	case OpCompositeInsert:
		ids(ops[:2])
		lits(ops[2:])
	case OpLoopMerge:
		ids(ops[:2])
		args = append(args, "None")
	case OpSelectionMerge:
		ids(ops[:1])
		args = append(args, "None")
	case OpSwitch:
		ids(ops[:2])
		for i := 2; i+1 < len(ops); i += 2 {
			args = append(args, fmt.Sprintf("%d", ops[i]), id(ops[i+1]))
		}
	case OpImageSampleImplicitLod, OpImageSampleExplicitLod:
		ids(ops[:2])
		if len(ops) > 2 {
			args = append(args, "Lod")
			ids(ops[3:])
		}
	default:
		ids(ops)
	}
	return args
}

func decodeString(words []uint32) string {
	var sb strings.Builder
	for _, w := range words {
		for shift := 0; shift < 32; shift += 8 {
			c := byte(w >> shift)
			if c == 0 {
				return sb.String()
			}
			sb.WriteByte(c)
		}
	}
	return sb.String()
}
