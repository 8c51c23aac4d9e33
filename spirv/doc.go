// Package spirv builds SPIR-V modules for the effect compiler.
//
// SPIR-V is the standard intermediate language for GPU shaders,
// used by Vulkan, OpenCL, and other APIs.
//
// # Builder
//
// Builder owns the id space and six ordered sections. Ids start at
// FirstID, grow monotonically and are never reused:
//
//	b := spirv.NewBuilder()
//	inst := b.AddNode(spirv.SectionFunctions, loc, spirv.OpFAdd, floatType)
//	inst.AddIDs(lhs, rhs)
//
// A reverse index maps every result id to its instruction. Mark and
// Truncate discard speculative output; Splice moves a function body
// assembled in SectionTemporary into SectionFunctions.
//
// # Registry
//
// Registry interns types and constants: structurally equal types share one
// id, zero constants of a type collapse into one OpConstantNull and every
// other (type, value) pair is emitted once.
//
//	r := spirv.NewRegistry(b, structs)
//	vec4 := r.ConvertType(ir.Vector(ir.BaseFloat, false, 4))
//	two := r.Float(2)
//
// # Assembly
//
// Finish concatenates the sections into a Module. Module.Encode writes the
// header (magic, version, generator, bound, schema) followed by every
// instruction. Validate checks id definitions and block structure, and
// Disassemble renders binary modules as text.
//
// # References
//
// SPIR-V Specification: https://registry.khronos.org/SPIR-V/specs/unified1/SPIRV.html
package spirv
