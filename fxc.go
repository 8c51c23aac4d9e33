// Package fxc provides a Pure Go effect compiler.
//
// fxc compiles effect source (uniforms, textures, samplers, shader
// functions and techniques) to a SPIR-V module together with the
// technique metadata a runtime needs to drive it.
//
// Example usage:
//
//	source := `
//	texture BackBufferTex;
//	sampler BackBuffer { Texture = BackBufferTex; };
//	void PostProcessVS(uint id : SV_VERTEXID, out float4 pos : SV_POSITION, out float2 uv : TEXCOORD0) {
//	    uv = float2(id == 2 ? 2.0 : 0.0, id == 1 ? 2.0 : 0.0);
//	    pos = float4(uv * float2(2.0, -2.0) + float2(-1.0, 1.0), 0.0, 1.0);
//	}
//	float4 InvertPS(float4 pos : SV_POSITION, float2 uv : TEXCOORD0) : SV_TARGET {
//	    return 1.0 - tex2D(BackBuffer, uv);
//	}
//	technique Invert { pass { VertexShader = PostProcessVS; PixelShader = InvertPS; } }
//	`
//	result, err := fxc.Compile(source)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile("invert.spv", result.Binary, 0o644)
//
// For lower-level access use the effect and spirv packages directly.
package fxc

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gogpu/fxc/effect"
	"github.com/gogpu/fxc/spirv"
	"gopkg.in/yaml.v3"
)

// ErrValidation is returned when the assembled module fails validation.
var ErrValidation = errors.New("SPIR-V validation failed")

// Options configures effect compilation.
type Options struct {
	// Version is the target SPIR-V version (default: 1.3)
	Version spirv.Version

	// Validate runs the reference validator over the assembled module
	Validate bool

	// SourceName is used in diagnostics and OpSource
	SourceName string

	// MaxNestingDepth bounds nested blocks and expressions (default: 256)
	MaxNestingDepth int

	// WarningsAsErrors fails compilation on any warning
	WarningsAsErrors bool
}

// DefaultOptions returns sensible default options.
func DefaultOptions() Options {
	return Options{
		Version:         spirv.Version1_3,
		Validate:        true,
		MaxNestingDepth: effect.DefaultMaxNestingDepth,
	}
}

// optionsFile is the YAML form of Options. Absent keys keep their defaults.
type optionsFile struct {
	Version          *string `yaml:"version"`
	Validate         *bool   `yaml:"validate"`
	SourceName       *string `yaml:"source_name"`
	MaxNestingDepth  *int    `yaml:"max_nesting_depth"`
	WarningsAsErrors *bool   `yaml:"warnings_as_errors"`
}

// LoadOptions reads options from a YAML file on top of DefaultOptions.
func LoadOptions(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("read options: %w", err)
	}
	opts, err := ParseOptions(data)
	if err != nil {
		return Options{}, fmt.Errorf("%s: %w", path, err)
	}
	return opts, nil
}

// ParseOptions decodes YAML options on top of DefaultOptions.
func ParseOptions(data []byte) (Options, error) {
	var file optionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Options{}, fmt.Errorf("parse options: %w", err)
	}

	opts := DefaultOptions()
	if file.Version != nil {
		v, err := ParseVersion(*file.Version)
		if err != nil {
			return Options{}, err
		}
		opts.Version = v
	}
	if file.Validate != nil {
		opts.Validate = *file.Validate
	}
	if file.SourceName != nil {
		opts.SourceName = *file.SourceName
	}
	if file.MaxNestingDepth != nil {
		if *file.MaxNestingDepth <= 0 {
			return Options{}, fmt.Errorf("max_nesting_depth must be positive, got %d", *file.MaxNestingDepth)
		}
		opts.MaxNestingDepth = *file.MaxNestingDepth
	}
	if file.WarningsAsErrors != nil {
		opts.WarningsAsErrors = *file.WarningsAsErrors
	}
	return opts, nil
}

// ParseVersion parses a "major.minor" SPIR-V version between 1.0 and 1.6.
func ParseVersion(s string) (spirv.Version, error) {
	major, minor, found := strings.Cut(strings.TrimSpace(s), ".")
	if !found {
		return spirv.Version{}, fmt.Errorf("invalid SPIR-V version %q", s)
	}
	maj, err1 := strconv.ParseUint(major, 10, 8)
	mnr, err2 := strconv.ParseUint(minor, 10, 8)
	if err1 != nil || err2 != nil || maj != 1 || mnr > 6 {
		return spirv.Version{}, fmt.Errorf("unsupported SPIR-V version %q", s)
	}
	return spirv.Version{Major: uint8(maj), Minor: uint8(mnr)}, nil
}

// Result is a compiled effect.
type Result struct {
	// Module holds the instruction stream and technique metadata.
	Module *effect.Module

	// Binary is the encoded SPIR-V module.
	Binary []byte

	// Warnings lists the diagnostics that did not fail compilation.
	Warnings effect.Diagnostics
}

// Compile compiles effect source code using default options.
//
// This is the simplest way to compile an effect. For more control, use
// CompileWithOptions or the individual Parse/Assemble functions.
func Compile(source string) (*Result, error) {
	return CompileWithOptions(source, DefaultOptions())
}

// CompileWithOptions compiles effect source code with custom options.
//
// The compilation pipeline is:
//  1. Tokenize and parse the source, emitting IR as declarations are analyzed
//  2. Generate entry points and assemble the module
//  3. Validate the module (if enabled)
//  4. Encode the SPIR-V binary
func CompileWithOptions(source string, opts Options) (*Result, error) {
	m, diags, err := Parse(source, opts)
	if err != nil {
		return nil, err
	}

	binary, err := Assemble(m, opts)
	if err != nil {
		return nil, err
	}

	return &Result{Module: m, Binary: binary, Warnings: diags.Warnings()}, nil
}

// Parse parses and analyzes effect source.
//
// It returns the compiled module and every diagnostic of the run. On
// failure the error wraps the error diagnostics, so errors.As with
// effect.Diagnostics recovers the full list.
func Parse(source string, opts Options) (*effect.Module, effect.Diagnostics, error) {
	p := effect.NewParser(source, effect.Config{
		SourceName:      opts.SourceName,
		MaxNestingDepth: opts.MaxNestingDepth,
	})
	ok := p.Run()
	diags := p.Diagnostics()
	if !ok {
		return nil, diags, fmt.Errorf("compile %s: %w", displayName(opts.SourceName), diags.Errors())
	}
	if opts.WarningsAsErrors && len(diags.Warnings()) > 0 {
		promoted := promoteWarnings(diags.Warnings())
		return nil, diags, fmt.Errorf("compile %s: %w", displayName(opts.SourceName), promoted)
	}
	return p.Module(), diags, nil
}

// Assemble validates the module (if enabled) and encodes it to SPIR-V.
func Assemble(m *effect.Module, opts Options) ([]byte, error) {
	if opts.Validate {
		if errs := spirv.Validate(m.SPIRV); len(errs) > 0 {
			return nil, fmt.Errorf("%w: %w", ErrValidation, errs[0])
		}
	}
	version := opts.Version
	if version == (spirv.Version{}) {
		version = spirv.Version1_3
	}
	return m.Encode(version), nil
}

func promoteWarnings(warnings effect.Diagnostics) effect.Diagnostics {
	out := make(effect.Diagnostics, len(warnings))
	for i, w := range warnings {
		d := *w
		d.Severity = effect.SeverityError
		out[i] = &d
	}
	return out
}

func displayName(name string) string {
	if name == "" {
		return "<input>"
	}
	return name
}
