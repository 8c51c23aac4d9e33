package fxc

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// ---------------------------------------------------------------------------
// Test effect sources at different complexity levels
// ---------------------------------------------------------------------------

// effectSmall is a single pass with one uniform and no resources.
const effectSmall = `
uniform float4 Color = float4(1.0, 0.0, 0.0, 1.0);
float4 VS(uint id : SV_VERTEXID) : SV_POSITION {
    float2 uv = float2(id == 2 ? 2.0 : 0.0, id == 1 ? 2.0 : 0.0);
    return float4(uv * 2.0 - 1.0, 0.0, 1.0);
}
float4 PS() : SV_TARGET { return Color; }
technique Fill { pass { VertexShader = VS; PixelShader = PS; } }
`

func loadBenchEffect(b *testing.B, name string) string {
	b.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		b.Fatal(err)
	}
	return string(data)
}

type benchEffect struct {
	name   string
	source string
}

func benchEffects(b *testing.B) []benchEffect {
	b.Helper()
	return []benchEffect{
		{"small_fill", effectSmall},
		{"medium_invert", loadBenchEffect(b, "invert.fx")},
		{"medium_overlay", loadBenchEffect(b, "overlay.fx")},
		{"large_blur", loadBenchEffect(b, "blur.fx")},
	}
}

// ---------------------------------------------------------------------------
// End-to-End: effect compilation benchmarks by complexity
// ---------------------------------------------------------------------------

// BenchmarkCompile benchmarks full effect-to-SPIR-V compilation grouped by
// complexity. Reports allocations and throughput in bytes/sec.
func BenchmarkCompile(b *testing.B) {
	for _, ec := range benchEffects(b) {
		b.Run(ec.name, func(b *testing.B) {
			opts := DefaultOptions()
			opts.Validate = false

			b.ReportAllocs()
			b.SetBytes(int64(len(ec.source)))
			b.ResetTimer()

			var result *Result
			for i := 0; i < b.N; i++ {
				var err error
				result, err = CompileWithOptions(ec.source, opts)
				if err != nil {
					b.Fatalf("compile failed: %v", err)
				}
			}
			runtime.KeepAlive(result)
		})
	}
}

// BenchmarkCompileWithValidation measures the overhead of the validator.
func BenchmarkCompileWithValidation(b *testing.B) {
	for _, ec := range benchEffects(b) {
		b.Run(ec.name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(ec.source)))
			b.ResetTimer()

			var result *Result
			for i := 0; i < b.N; i++ {
				var err error
				result, err = Compile(ec.source)
				if err != nil {
					b.Fatalf("compile failed: %v", err)
				}
			}
			runtime.KeepAlive(result)
		})
	}
}

// ---------------------------------------------------------------------------
// Individual pipeline stage benchmarks (parse, assemble, metadata)
// ---------------------------------------------------------------------------

// BenchmarkParse benchmarks tokenization, analysis and IR emission.
func BenchmarkParse(b *testing.B) {
	for _, ec := range benchEffects(b) {
		b.Run(ec.name, func(b *testing.B) {
			opts := DefaultOptions()
			b.ReportAllocs()
			b.SetBytes(int64(len(ec.source)))
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				m, _, err := Parse(ec.source, opts)
				if err != nil {
					b.Fatalf("parse failed: %v", err)
				}
				runtime.KeepAlive(m)
			}
		})
	}
}

// BenchmarkAssemble benchmarks validation and binary encoding only.
func BenchmarkAssemble(b *testing.B) {
	for _, ec := range benchEffects(b) {
		b.Run(ec.name, func(b *testing.B) {
			opts := DefaultOptions()
			m, _, err := Parse(ec.source, opts)
			if err != nil {
				b.Fatalf("parse failed: %v", err)
			}

			b.ReportAllocs()
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				binary, aErr := Assemble(m, opts)
				if aErr != nil {
					b.Fatalf("assemble failed: %v", aErr)
				}
				runtime.KeepAlive(binary)
			}
		})
	}
}

// BenchmarkMetadata benchmarks collecting and encoding the metadata document.
func BenchmarkMetadata(b *testing.B) {
	source := loadBenchEffect(b, "blur.fx")
	result, err := Compile(source)
	if err != nil {
		b.Fatalf("compile failed: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		data, mErr := NewMetadata(result.Module, "blur.fx").YAML()
		if mErr != nil {
			b.Fatalf("metadata failed: %v", mErr)
		}
		runtime.KeepAlive(data)
	}
}
