// Command fxc is the effect compiler CLI.
//
// Usage:
//
//	fxc [flags] <input.fx>
//	fxc disasm <input.spv>
//
// Examples:
//
//	fxc blur.fx                          # Compile to blur.spv
//	fxc -o - blur.fx > blur.spv          # Compile to stdout
//	fxc -m blur.yaml blur.fx             # Also write technique metadata
//	fxc --check blur.fx                  # Report diagnostics only
//	fxc -S blur.fx                       # Print the disassembly
//	fxc --dump blur.fx                   # Dump techniques, structs and functions
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gogpu/fxc"
	"github.com/gogpu/fxc/effect"
	"github.com/gogpu/fxc/spirv"
	"github.com/sanity-io/litter"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var version = "0.1.0-dev"

// ErrCompile is returned after diagnostics have been reported.
var ErrCompile = errors.New("compilation failed")

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, ErrCompile) {
			fmt.Fprintf(os.Stderr, "fxc: %v\n", err)
		}
		return 1
	}
	return 0
}

// optionFlags holds the flags that map onto fxc.Options.
type optionFlags struct {
	config          string
	spirvVersion    string
	validate        bool
	maxNestingDepth int
	werror          bool
}

func (f *optionFlags) bind(fs *pflag.FlagSet) {
	fs.StringVarP(&f.config, "config", "c", "", "YAML options file")
	fs.StringVar(&f.spirvVersion, "spirv-version", "1.3", "target SPIR-V version")
	fs.BoolVar(&f.validate, "validate", true, "validate the assembled module")
	fs.IntVar(&f.maxNestingDepth, "max-nesting-depth", effect.DefaultMaxNestingDepth, "maximum nesting of blocks and expressions")
	fs.BoolVarP(&f.werror, "werror", "W", false, "treat warnings as errors")
}

// options starts from the config file, or the defaults, and applies every
// flag set on the command line on top.
func (f *optionFlags) options(fs *pflag.FlagSet, input string) (fxc.Options, error) {
	opts := fxc.DefaultOptions()
	if f.config != "" {
		var err error
		if opts, err = fxc.LoadOptions(f.config); err != nil {
			return opts, err
		}
	}
	if fs.Changed("spirv-version") {
		v, err := fxc.ParseVersion(f.spirvVersion)
		if err != nil {
			return opts, err
		}
		opts.Version = v
	}
	if fs.Changed("validate") {
		opts.Validate = f.validate
	}
	if fs.Changed("max-nesting-depth") {
		if f.maxNestingDepth <= 0 {
			return opts, fmt.Errorf("--max-nesting-depth must be positive, got %d", f.maxNestingDepth)
		}
		opts.MaxNestingDepth = f.maxNestingDepth
	}
	if fs.Changed("werror") {
		opts.WarningsAsErrors = f.werror
	}
	if opts.SourceName == "" {
		opts.SourceName = filepath.Base(input)
	}
	return opts, nil
}

// outputFlags selects what the compile command writes.
type outputFlags struct {
	output   string
	metadata string
	check    bool
	disasm   bool
	dump     bool
	verbose  bool
}

func (f *outputFlags) bind(fs *pflag.FlagSet) {
	fs.StringVarP(&f.output, "output", "o", "", "SPIR-V output file, - for stdout (default: <input>.spv)")
	fs.StringVarP(&f.metadata, "metadata", "m", "", "write technique metadata YAML to file, - for stdout")
	fs.BoolVar(&f.check, "check", false, "report diagnostics without writing output")
	fs.BoolVarP(&f.disasm, "disasm", "S", false, "print the disassembly instead of writing a binary")
	fs.BoolVar(&f.dump, "dump", false, "dump techniques, structs and functions")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "log compilation phases and show diagnostic context")
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	var opt optionFlags
	var outf outputFlags

	rootCmd := &cobra.Command{
		Use:   "fxc [flags] <input.fx>",
		Short: "fxc compiles effect files to SPIR-V",
		Long: `fxc compiles effect source files to SPIR-V modules and writes the
technique metadata a renderer needs to drive them: resource bindings,
the packed uniform layout and per-pass state.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			opts, err := opt.options(cmd.Flags(), args[0])
			if err != nil {
				return err
			}
			c := &compiler{
				out:    out,
				errOut: errOut,
				flags:  outf,
				log:    newLogger(errOut, outf.verbose),
			}
			return c.compile(args[0], opts)
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	opt.bind(rootCmd.Flags())
	outf.bind(rootCmd.Flags())
	rootCmd.MarkFlagsMutuallyExclusive("check", "disasm")

	rootCmd.AddCommand(newDisasmCmd(out))
	return rootCmd
}

func newDisasmCmd(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "disasm <input.spv>",
		Short: "Disassemble a SPIR-V binary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			text, err := spirv.DisassembleBytes(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			_, err = io.WriteString(out, text)
			return err
		},
	}
}

type compiler struct {
	out    io.Writer
	errOut io.Writer
	flags  outputFlags
	log    *slog.Logger
}

func (c *compiler) compile(input string, opts fxc.Options) error {
	source, err := os.ReadFile(input)
	if err != nil {
		return err
	}
	c.log.Debug("parsing", "input", input, "bytes", len(source), "spirv", opts.Version.String())

	m, diags, err := fxc.Parse(string(source), opts)
	c.report(diags)
	if err != nil {
		fmt.Fprintf(c.errOut, "fxc: %s: %d error(s), %d warning(s)\n",
			opts.SourceName, len(diags.Errors()), len(diags.Warnings()))
		return ErrCompile
	}
	c.log.Debug("parsed",
		"techniques", len(m.Techniques),
		"functions", len(m.Functions),
		"entry_points", len(m.EntryPoints),
		"instructions", len(m.SPIRV.Instructions),
		"bound", m.SPIRV.Bound)

	if c.flags.check {
		return nil
	}

	binary, err := fxc.Assemble(m, opts)
	if err != nil {
		return err
	}
	c.log.Debug("assembled", "bytes", len(binary), "validated", opts.Validate)

	if c.flags.dump {
		dumpModule(c.out, m)
	}
	if c.flags.metadata != "" {
		if err := c.writeMetadata(m, opts.SourceName); err != nil {
			return err
		}
	}
	if c.flags.disasm {
		text, err := spirv.DisassembleBytes(binary)
		if err != nil {
			return err
		}
		_, err = io.WriteString(c.out, text)
		return err
	}
	if c.flags.dump && c.flags.output == "" {
		return nil
	}
	return c.write(c.outputPath(input), binary, "spirv")
}

// report prints one log line per diagnostic, with source context when
// verbose.
func (c *compiler) report(diags effect.Diagnostics) {
	if len(diags) == 0 {
		return
	}
	if c.flags.verbose {
		fmt.Fprintln(c.errOut, diags.FormatAll())
		return
	}
	fmt.Fprint(c.errOut, diags.Log())
}

func (c *compiler) outputPath(input string) string {
	if c.flags.output != "" {
		return c.flags.output
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + ".spv"
}

func (c *compiler) writeMetadata(m *effect.Module, source string) error {
	data, err := fxc.NewMetadata(m, source).YAML()
	if err != nil {
		return err
	}
	return c.write(c.flags.metadata, data, "metadata")
}

func (c *compiler) write(path string, data []byte, kind string) error {
	if path == "-" {
		_, err := c.out.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", kind, err)
	}
	c.log.Info("wrote "+kind, "path", path, "bytes", len(data))
	return nil
}

// dumpModule prints the module descriptors. The instruction stream is left
// out; use --disasm for it.
func dumpModule(w io.Writer, m *effect.Module) {
	cfg := litter.Options{
		HidePrivateFields: true,
		HideZeroValues:    true,
		StripPackageNames: true,
	}
	view := struct {
		Techniques  any
		Structs     any
		Functions   any
		Uniforms    any
		Textures    any
		Samplers    any
		EntryPoints any
		UniformSize uint32
	}{
		Techniques:  m.Techniques,
		Structs:     m.Structs,
		Functions:   m.Functions,
		Uniforms:    m.Uniforms,
		Textures:    m.Textures,
		Samplers:    m.Samplers,
		EntryPoints: m.EntryPoints,
		UniformSize: m.UniformSize,
	}
	fmt.Fprintln(w, cfg.Sdump(view))
}
