// Package ir defines the semantic model shared by the effect front end and
// the SPIR-V builder.
//
// # Types
//
// TypeInfo describes every value type of the effect language: scalars,
// vectors and matrices of bool, int, uint and float, user structs,
// textures and samplers, with optional array length and qualifiers.
// TypeKey is its comparable identity and is what the SPIR-V builder
// interns on.
//
// # Conversions
//
// RankConversion orders implicit conversions for overload resolution and
// CommonType picks the operand type of arithmetic operators. Constant
// holds compile-time values; FoldUnary and FoldBinary evaluate operators
// on them so that constant expressions never reach the IR.
//
// # Metadata
//
// StructInfo, FunctionInfo, VariableInfo, TechniqueInfo and PassInfo are
// the descriptors the runtime reads next to the SPIR-V words: resource
// properties, uniform placement, render state and the shaders each pass
// binds.
package ir
