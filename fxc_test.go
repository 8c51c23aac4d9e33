package fxc

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/fxc/effect"
	"github.com/gogpu/fxc/spirv"
)

func readTestdata(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// TestCompileInvert tests compilation of a complete post-processing effect.
func TestCompileInvert(t *testing.T) {
	result, err := Compile(readTestdata(t, "invert.fx"))
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	// Check SPIR-V magic number (little-endian: 0x07230203)
	if len(result.Binary) < 20 {
		t.Fatal("SPIR-V output too short (should have at least 5-word header)")
	}
	if magic := binary.LittleEndian.Uint32(result.Binary); magic != spirv.MagicNumber {
		t.Errorf("Invalid SPIR-V magic: got 0x%08x, want 0x%08x", magic, spirv.MagicNumber)
	}
	if version := binary.LittleEndian.Uint32(result.Binary[4:]); version != 0x00010300 {
		t.Errorf("version word = 0x%08x, want 0x00010300", version)
	}
	if len(result.Binary)%4 != 0 {
		t.Errorf("binary size %d is not word aligned", len(result.Binary))
	}
	if len(result.Warnings) != 0 {
		t.Errorf("unexpected warnings:\n%s", result.Warnings.Log())
	}
	if tech := result.Module.Technique("Invert"); tech == nil || len(tech.Passes) != 1 {
		t.Errorf("technique Invert = %+v", tech)
	}

	t.Logf("Generated %d bytes of SPIR-V", len(result.Binary))
}

func TestCompileTargetVersions(t *testing.T) {
	source := readTestdata(t, "overlay.fx")
	tests := []struct {
		version spirv.Version
		word    uint32
	}{
		{spirv.Version1_0, 0x00010000},
		{spirv.Version1_3, 0x00010300},
		{spirv.Version1_5, 0x00010500},
	}
	for _, tt := range tests {
		t.Run(tt.version.String(), func(t *testing.T) {
			opts := DefaultOptions()
			opts.Version = tt.version
			result, err := CompileWithOptions(source, opts)
			if err != nil {
				t.Fatalf("CompileWithOptions failed: %v", err)
			}
			if got := binary.LittleEndian.Uint32(result.Binary[4:]); got != tt.word {
				t.Errorf("version word = 0x%08x, want 0x%08x", got, tt.word)
			}
		})
	}
}

func TestCompileErrors(t *testing.T) {
	opts := DefaultOptions()
	opts.SourceName = "broken.fx"
	_, err := CompileWithOptions("float f() { return missing; }\nfloat g() { return gone; }", opts)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.HasPrefix(err.Error(), "compile broken.fx: broken.fx(1, 20): error X3004") {
		t.Errorf("error = %q", err)
	}
	if !strings.Contains(err.Error(), "and 1 more errors") {
		t.Errorf("error does not count the remaining errors: %q", err)
	}

	var diags effect.Diagnostics
	if !errors.As(err, &diags) {
		t.Fatalf("error %T does not wrap effect.Diagnostics", err)
	}
	if len(diags) != 2 || diags[1].Location.Line != 2 {
		t.Errorf("diagnostics = %v", diags)
	}
}

func TestParseReturnsWarnings(t *testing.T) {
	m, diags, err := Parse("float2 f(float4 v) { return v; }", DefaultOptions())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if m == nil {
		t.Fatal("module is nil")
	}
	if len(diags.Warnings()) != 1 || diags[0].Code != effect.CodeImplicitTruncation {
		t.Errorf("diagnostics = %v", diags)
	}
}

func TestWarningsAsErrors(t *testing.T) {
	source := "#pragma once\nuniform float u;"

	if _, err := Compile(source); err != nil {
		t.Fatalf("warnings failed a default compile: %v", err)
	}

	opts := DefaultOptions()
	opts.WarningsAsErrors = true
	_, err := CompileWithOptions(source, opts)
	if err == nil {
		t.Fatal("expected warnings to fail compilation")
	}
	var diags effect.Diagnostics
	if !errors.As(err, &diags) {
		t.Fatalf("error %T does not wrap effect.Diagnostics", err)
	}
	if len(diags) != 1 || diags[0].Severity != effect.SeverityError || diags[0].Code != effect.CodeUnknownPreprocessor {
		t.Errorf("promoted diagnostics = %v", diags)
	}
}

func TestNestingDepthOption(t *testing.T) {
	source := "void f() { " + strings.Repeat("{ ", 20) + strings.Repeat("} ", 20) + "}"
	opts := DefaultOptions()
	opts.MaxNestingDepth = 8
	if _, err := CompileWithOptions(source, opts); err == nil {
		t.Error("expected nesting error at depth 8")
	}
	if _, err := Compile(source); err != nil {
		t.Errorf("default depth rejected 20 nested blocks: %v", err)
	}
}

func TestAssembleValidation(t *testing.T) {
	bad := &effect.Module{SPIRV: &spirv.Module{
		Bound:        10,
		Instructions: []*spirv.Instruction{{Op: spirv.OpLabel, Result: 5}},
	}}

	_, err := Assemble(bad, DefaultOptions())
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	var verr spirv.ValidationError
	if !errors.As(err, &verr) || verr.Op != spirv.OpLabel {
		t.Errorf("validation error = %v", err)
	}

	opts := DefaultOptions()
	opts.Validate = false
	if _, err := Assemble(bad, opts); err != nil {
		t.Errorf("Assemble without validation failed: %v", err)
	}
}

func TestAssembleDefaultVersion(t *testing.T) {
	m, _, err := Parse("uniform float u;", DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	binary, err := Assemble(m, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if got := binary[5]; got != 3 {
		t.Errorf("minor version byte = %d, want 3", got)
	}
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		input   string
		want    spirv.Version
		wantErr bool
	}{
		{"1.0", spirv.Version1_0, false},
		{"1.3", spirv.Version1_3, false},
		{" 1.5 ", spirv.Version1_5, false},
		{"1.6", spirv.Version{Major: 1, Minor: 6}, false},
		{"1.7", spirv.Version{}, true},
		{"2.0", spirv.Version{}, true},
		{"1", spirv.Version{}, true},
		{"one.three", spirv.Version{}, true},
		{"", spirv.Version{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseVersion(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("version = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadOptions(t *testing.T) {
	opts, err := LoadOptions(filepath.Join("testdata", "options.yaml"))
	if err != nil {
		t.Fatalf("LoadOptions failed: %v", err)
	}
	want := Options{
		Version:          spirv.Version1_5,
		Validate:         false,
		SourceName:       "custom.fx",
		MaxNestingDepth:  64,
		WarningsAsErrors: true,
	}
	if opts != want {
		t.Errorf("options = %+v, want %+v", opts, want)
	}
}

func TestParseOptions(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		check   func(Options) bool
		wantErr bool
	}{
		{"empty keeps defaults", "", func(o Options) bool { return o == DefaultOptions() }, false},
		{"partial", "validate: false\n", func(o Options) bool {
			return !o.Validate && o.Version == spirv.Version1_3 && o.MaxNestingDepth == effect.DefaultMaxNestingDepth
		}, false},
		{"version only", "version: \"1.0\"\n", func(o Options) bool { return o.Version == spirv.Version1_0 && o.Validate }, false},
		{"bad version", "version: \"3.1\"\n", nil, true},
		{"bad depth", "max_nesting_depth: 0\n", nil, true},
		{"bad yaml", "validate: [\n", nil, true},
		{"wrong type", "validate: maybe\n", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := ParseOptions([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil && !tt.check(opts) {
				t.Errorf("options = %+v", opts)
			}
		})
	}
}

func TestLoadOptionsMissingFile(t *testing.T) {
	_, err := LoadOptions(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want os.ErrNotExist", err)
	}
}
