// Package effect compiles effect source into SPIR-V and technique metadata.
//
// An effect unit declares uniforms, textures, samplers, structs, functions
// and techniques. Techniques group passes; each pass names a vertex and a
// pixel shader function and carries fixed-function state.
//
// # Pipeline
//
// Compilation is a single pass over the token stream:
//
//	Source → Lexer → Tokens → Parser → SPIR-V + metadata
//
// The parser performs semantic analysis while it parses and emits code
// into a spirv.Builder as it goes. There is no intermediate syntax tree.
// Speculative parses rewind the builder with Mark and Truncate.
//
// # Usage
//
//	p := effect.NewParser(source, effect.Config{SourceName: "blur.fx"})
//	if !p.Run() {
//		fmt.Print(p.Errors())
//		return
//	}
//	m := p.Module()
//	words := m.Encode(spirv.Version1_3)
//
// # Diagnostics
//
// Errors never stop the run. After an error the parser skips to the end of
// the enclosing statement or declaration and continues, so one run reports
// as many problems as possible. Every diagnostic carries a numeric code;
// the log renders one line per diagnostic:
//
//	blur.fx(12, 5): error X3004: undeclared identifier 'colour'
//
// # Entry points
//
// Functions referenced by a pass become entry points. For each one the
// compiler generates a parameterless wrapper that loads stage inputs, calls
// the function and stores its results. Semantics select built-ins
// (SV_POSITION, SV_VERTEXID, SV_DEPTH) or interface locations (TEXCOORDn,
// SV_TARGETn).
package effect
