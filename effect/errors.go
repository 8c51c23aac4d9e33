package effect

import (
	"fmt"
	"strings"

	"github.com/gogpu/fxc/ir"
)

// Severity distinguishes diagnostics that fail a run from advisory ones.
type Severity uint8

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Diagnostic codes.
const (
	CodeSyntax              = 3000
	CodeLexical             = 3001
	CodeRedefinition        = 3003
	CodeUndeclared          = 3004
	CodeNotConstant         = 3011
	CodeNoOverload          = 3013
	CodeArgumentCount       = 3014
	CodeTypeMismatch        = 3017
	CodeInvalidMember       = 3018
	CodeInvalidSubscript    = 3019
	CodeInvalidOperands     = 3020
	CodeNotLValue           = 3025
	CodeRecursiveStruct     = 3039
	CodeArrayNotConstant    = 3058
	CodeArrayNotPositive    = 3059
	CodeAmbiguous           = 3067
	CodeReturnMismatch      = 3080
	CodeUnknownProperty     = 3094
	CodeInvalidValue        = 3095
	CodeMissingTexture      = 3096
	CodeNestingTooDeep      = 3505
	CodePrecisionLoss       = 3205
	CodeImplicitTruncation  = 3206
	CodeUnknownPreprocessor = 3570
)

// Diagnostic represents an error or warning with source location information.
type Diagnostic struct {
	Severity Severity
	Code     int
	Message  string
	Location ir.Location
	Source   string // Original source code (for context display)
}

// Error implements the error interface. The format matches one line of the
// diagnostic log.
func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s X%d: %s", d.Location, d.Severity, d.Code, d.Message)
}

// FormatWithContext returns the diagnostic with source context.
// Shows the problematic line with a caret pointing to the location.
func (d *Diagnostic) FormatWithContext() string {
	if d.Source == "" || d.Location.Line == 0 {
		return d.Error()
	}

	lines := strings.Split(d.Source, "\n")
	lineNum := d.Location.Line
	if lineNum < 1 || lineNum > len(lines) {
		return d.Error()
	}

	line := lines[lineNum-1]
	col := d.Location.Column
	if col < 1 {
		col = 1
	}
	if col > len(line)+1 {
		col = len(line) + 1
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s X%d: %s\n", d.Severity, d.Code, d.Message)
	fmt.Fprintf(&sb, "  --> %s\n", d.Location)
	sb.WriteString("   |\n")
	fmt.Fprintf(&sb, "%3d| %s\n", lineNum, line)
	fmt.Fprintf(&sb, "   | %s^\n", strings.Repeat(" ", col-1))

	return sb.String()
}

// Diagnostics represents a list of diagnostics in report order.
type Diagnostics []*Diagnostic

// Error implements the error interface.
func (dl Diagnostics) Error() string {
	errs := dl.Errors()
	switch len(errs) {
	case 0:
		return "no errors"
	case 1:
		return errs[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", errs[0].Error(), len(errs)-1)
}

// Add adds a diagnostic to the list.
func (dl *Diagnostics) Add(d *Diagnostic) {
	*dl = append(*dl, d)
}

// HasErrors returns true if any diagnostic is an error.
func (dl Diagnostics) HasErrors() bool {
	for _, d := range dl {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns the diagnostics of error severity.
func (dl Diagnostics) Errors() Diagnostics {
	return dl.filter(SeverityError)
}

// Warnings returns the diagnostics of warning severity.
func (dl Diagnostics) Warnings() Diagnostics {
	return dl.filter(SeverityWarning)
}

func (dl Diagnostics) filter(s Severity) Diagnostics {
	var out Diagnostics
	for _, d := range dl {
		if d.Severity == s {
			out = append(out, d)
		}
	}
	return out
}

// Log returns the newline-separated diagnostic log, one line per entry.
func (dl Diagnostics) Log() string {
	var sb strings.Builder
	for _, d := range dl {
		sb.WriteString(d.Error())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// FormatAll returns all diagnostics formatted with context.
func (dl Diagnostics) FormatAll() string {
	var sb strings.Builder
	for i, d := range dl {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(d.FormatWithContext())
	}
	return sb.String()
}
