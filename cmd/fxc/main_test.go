package main

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/fxc/spirv"
)

const brokenEffect = `float4 PS() : SV_TARGET
{
	return colour;
}
`

// writeEffect copies a testdata effect, or writes source, into a temp dir.
func writeEffect(t *testing.T, name, source string) string {
	t.Helper()
	if source == "" {
		data, err := os.ReadFile(filepath.Join("..", "..", "testdata", name))
		if err != nil {
			t.Fatal(err)
		}
		source = string(data)
	}
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func checkSPIRV(t *testing.T, data []byte, minor byte) {
	t.Helper()
	if len(data) < 20 {
		t.Fatalf("SPIR-V output too short: %d bytes", len(data))
	}
	if magic := binary.LittleEndian.Uint32(data); magic != spirv.MagicNumber {
		t.Errorf("magic = 0x%08x", magic)
	}
	if data[5] != minor {
		t.Errorf("minor version = %d, want %d", data[5], minor)
	}
}

func TestVersion(t *testing.T) {
	if version == "" {
		t.Error("version should not be empty")
	}
	out, _, err := execute(t, "--version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, version) {
		t.Errorf("--version output = %q", out)
	}
}

func TestFlagsExist(t *testing.T) {
	cmd := newRootCmd(&bytes.Buffer{}, &bytes.Buffer{})
	for _, name := range []string{
		"config", "spirv-version", "validate", "max-nesting-depth", "werror",
		"output", "metadata", "check", "disasm", "dump", "verbose",
	} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected flag --%s to exist", name)
		}
	}
}

func TestNoArgsPrintsHelp(t *testing.T) {
	out, _, err := execute(t)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Usage:") {
		t.Errorf("expected usage, got %q", out)
	}
}

func TestCompileWritesBinary(t *testing.T) {
	input := writeEffect(t, "invert.fx", "")
	_, errOut, err := execute(t, input)
	if err != nil {
		t.Fatalf("compile failed: %v\n%s", err, errOut)
	}
	if errOut != "" {
		t.Errorf("unexpected stderr output: %q", errOut)
	}

	data, err := os.ReadFile(strings.TrimSuffix(input, ".fx") + ".spv")
	if err != nil {
		t.Fatalf("default output not written: %v", err)
	}
	checkSPIRV(t, data, 3)
}

func TestCompileToStdout(t *testing.T) {
	input := writeEffect(t, "overlay.fx", "")
	out, _, err := execute(t, "-o", "-", input)
	if err != nil {
		t.Fatal(err)
	}
	checkSPIRV(t, []byte(out), 3)
}

func TestCompileErrorsReported(t *testing.T) {
	input := writeEffect(t, "broken.fx", brokenEffect)
	out, errOut, err := execute(t, input)
	if !errors.Is(err, ErrCompile) {
		t.Fatalf("err = %v, want ErrCompile", err)
	}
	if !strings.Contains(errOut, "broken.fx(3, 9): error X3004: undeclared identifier 'colour'") {
		t.Errorf("diagnostic log = %q", errOut)
	}
	if !strings.Contains(errOut, "1 error(s), 0 warning(s)") {
		t.Errorf("summary missing: %q", errOut)
	}
	if out != "" {
		t.Errorf("unexpected stdout: %q", out)
	}
	if _, err := os.Stat(strings.TrimSuffix(input, ".fx") + ".spv"); !os.IsNotExist(err) {
		t.Error("output written for a failed compile")
	}
}

func TestCheckMode(t *testing.T) {
	input := writeEffect(t, "blur.fx", "")
	if _, errOut, err := execute(t, "--check", input); err != nil {
		t.Fatalf("check failed: %v\n%s", err, errOut)
	}
	if _, err := os.Stat(strings.TrimSuffix(input, ".fx") + ".spv"); !os.IsNotExist(err) {
		t.Error("--check wrote an output file")
	}
}

func TestVerboseShowsContext(t *testing.T) {
	input := writeEffect(t, "broken.fx", brokenEffect)
	_, errOut, err := execute(t, "-v", "--check", input)
	if !errors.Is(err, ErrCompile) {
		t.Fatalf("err = %v, want ErrCompile", err)
	}
	for _, want := range []string{"return colour;", "^", "level=DEBUG", "msg=parsing"} {
		if !strings.Contains(errOut, want) {
			t.Errorf("verbose output missing %q:\n%s", want, errOut)
		}
	}
}

func TestWarningsAsErrorsFlag(t *testing.T) {
	input := writeEffect(t, "warn.fx", "float2 f(float4 v) { return v; }\n")
	if _, errOut, err := execute(t, "--check", input); err != nil {
		t.Fatalf("warnings failed the compile: %v", err)
	} else if !strings.Contains(errOut, "warning X3206") {
		t.Errorf("warning not reported: %q", errOut)
	}

	if _, _, err := execute(t, "--check", "-W", input); !errors.Is(err, ErrCompile) {
		t.Errorf("err = %v, want ErrCompile with -W", err)
	}
}

func TestMetadataOutput(t *testing.T) {
	input := writeEffect(t, "blur.fx", "")
	dir := filepath.Dir(input)
	meta := filepath.Join(dir, "blur.yaml")
	spv := filepath.Join(dir, "out.spv")

	if _, errOut, err := execute(t, "-m", meta, "-o", spv, input); err != nil {
		t.Fatalf("compile failed: %v\n%s", err, errOut)
	}
	data, err := os.ReadFile(meta)
	if err != nil {
		t.Fatalf("metadata not written: %v", err)
	}
	for _, want := range []string{"source: blur.fx", "name: GaussianBlur", "- HorizontalTex", "stage: vertex"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("metadata missing %q:\n%s", want, data)
		}
	}
	if _, err := os.Stat(spv); err != nil {
		t.Errorf("binary not written: %v", err)
	}
}

func TestDisasmFlag(t *testing.T) {
	input := writeEffect(t, "invert.fx", "")
	out, _, err := execute(t, "-S", input)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"; SPIR-V", "OpEntryPoint", "OpImageSampleImplicitLod", "\"InvertPS\""} {
		if !strings.Contains(out, want) {
			t.Errorf("disassembly missing %q", want)
		}
	}
	if _, err := os.Stat(strings.TrimSuffix(input, ".fx") + ".spv"); !os.IsNotExist(err) {
		t.Error("-S also wrote a binary")
	}
}

func TestDump(t *testing.T) {
	input := writeEffect(t, "blur.fx", "")
	out, _, err := execute(t, "--dump", input)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Techniques:", `"GaussianBlur"`, `"VSOutput"`, `"FullscreenVS"`, "UniformSize: 16"} {
		if !strings.Contains(out, want) {
			t.Errorf("dump missing %q:\n%s", want, out)
		}
	}
}

func TestCheckAndDisasmExclusive(t *testing.T) {
	input := writeEffect(t, "invert.fx", "")
	if _, _, err := execute(t, "--check", "-S", input); err == nil {
		t.Error("expected an error for --check with -S")
	}
}

func TestConfigFileAndOverrides(t *testing.T) {
	input := writeEffect(t, "invert.fx", "")
	config := filepath.Join(filepath.Dir(input), "fxc.yaml")
	if err := os.WriteFile(config, []byte("version: \"1.5\"\nvalidate: false\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		args  []string
		minor byte
	}{
		{"config only", []string{"-c", config}, 5},
		{"flag overrides config", []string{"-c", config, "--spirv-version", "1.0"}, 0},
		{"flag without config", []string{"--spirv-version", "1.5"}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append(append([]string{}, tt.args...), "-o", "-", input)
			out, errOut, err := execute(t, args...)
			if err != nil {
				t.Fatalf("compile failed: %v\n%s", err, errOut)
			}
			checkSPIRV(t, []byte(out), tt.minor)
		})
	}
}

func TestInvalidOptions(t *testing.T) {
	input := writeEffect(t, "invert.fx", "")
	tests := []struct {
		name string
		args []string
	}{
		{"bad version", []string{"--spirv-version", "9.9"}},
		{"bad depth", []string{"--max-nesting-depth", "0"}},
		{"missing config", []string{"-c", filepath.Join(t.TempDir(), "none.yaml")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, append(tt.args, input)...)
			if err == nil || errors.Is(err, ErrCompile) {
				t.Errorf("err = %v, want an option error", err)
			}
		})
	}
}

func TestDisasmCommand(t *testing.T) {
	input := writeEffect(t, "overlay.fx", "")
	spv := strings.TrimSuffix(input, ".fx") + ".spv"
	if _, _, err := execute(t, input); err != nil {
		t.Fatal(err)
	}

	out, _, err := execute(t, "disasm", spv)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "OpExecutionMode") || !strings.Contains(out, "\"TintPS\"") {
		t.Errorf("disassembly = %q", out)
	}

	bad := filepath.Join(filepath.Dir(input), "bad.spv")
	if err := os.WriteFile(bad, []byte{1, 2, 3}, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := execute(t, "disasm", bad); !errors.Is(err, spirv.ErrInvalidModule) {
		t.Errorf("err = %v, want ErrInvalidModule", err)
	}
}
