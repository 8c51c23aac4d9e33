package effect

import (
	"fmt"

	"github.com/gogpu/fxc/ir"
	"github.com/gogpu/fxc/spirv"
)

// DefaultMaxNestingDepth bounds statement and expression recursion.
const DefaultMaxNestingDepth = 256

// Config controls a single compilation.
type Config struct {
	// SourceName is reported in diagnostics and OpSource.
	SourceName string

	// MaxNestingDepth limits nested statements and expressions.
	// Zero selects DefaultMaxNestingDepth.
	MaxNestingDepth int
}

// Parser compiles one effect source unit into SPIR-V and metadata. A
// Parser is single-use: Run parses the whole unit once and later calls
// return the same result.
type Parser struct {
	source string
	config Config

	tokens  []Token
	current int

	b           *spirv.Builder
	r           *spirv.Registry
	symbols     *SymbolTable
	diagnostics Diagnostics
	depth       int

	glsl     ir.ID
	fn       *functionContext
	layout   *ir.UniformLayout
	bindings uint32
	strides  map[ir.ID]bool
	// Interface locations of non-TEXCOORD semantics.
	locations map[string]uint32

	structs    map[ir.ID]*ir.StructInfo
	structList []*ir.StructInfo
	functions  []*ir.FunctionInfo
	techniques []*ir.TechniqueInfo
	uniforms   []*ir.VariableInfo
	textures   []*ir.VariableInfo
	samplers   []*ir.VariableInfo
	resources  map[ir.ID]*ir.VariableInfo
	entries    []entryRequest

	ran    bool
	ok     bool
	module *Module
}

// NewParser creates a parser over source.
func NewParser(source string, config Config) *Parser {
	if config.MaxNestingDepth <= 0 {
		config.MaxNestingDepth = DefaultMaxNestingDepth
	}
	lexer := NewLexer(config.SourceName, source)
	p := &Parser{
		source:    source,
		config:    config,
		tokens:    lexer.Tokenize(),
		b:         spirv.NewBuilder(),
		symbols:   NewSymbolTable(),
		strides:   make(map[ir.ID]bool),
		locations: make(map[string]uint32),
		structs:   make(map[ir.ID]*ir.StructInfo),
		resources: make(map[ir.ID]*ir.VariableInfo),
	}
	for _, d := range lexer.Diagnostics() {
		p.diagnostics.Add(d)
	}
	p.r = spirv.NewRegistry(p.b, p.structByID)
	p.layout = ir.NewUniformLayout(p.structByID)
	return p
}

func (p *Parser) structByID(id ir.ID) *ir.StructInfo {
	return p.structs[id]
}

// Run parses the whole unit. It reports whether the unit compiled without
// errors; diagnostics are available either way.
func (p *Parser) Run() bool {
	if p.ran {
		return p.ok
	}
	p.ran = true

	p.begin()
	for !p.isAtEnd() {
		if !p.parseTopLevel() {
			p.synchronize()
		}
	}

	p.ok = !p.diagnostics.HasErrors()
	if p.ok {
		p.module = p.finish()
	}
	return p.ok
}

// Diagnostics returns every diagnostic reported so far.
func (p *Parser) Diagnostics() Diagnostics {
	return p.diagnostics
}

// Errors returns the diagnostic log. It is empty only for a clean run.
func (p *Parser) Errors() string {
	return p.diagnostics.Log()
}

// Module returns the compiled module, or nil if the run failed.
func (p *Parser) Module() *Module {
	return p.module
}

// begin emits the module preamble.
func (p *Parser) begin() {
	p.b.AddNodeWithoutResult(spirv.SectionEntries, ir.Location{}, spirv.OpCapability).
		Add(uint32(spirv.CapabilityShader))
	p.b.AddNodeWithoutResult(spirv.SectionEntries, ir.Location{}, spirv.OpCapability).
		Add(uint32(spirv.CapabilityMatrix))
	p.glsl = p.b.AddNode(spirv.SectionEntries, ir.Location{}, spirv.OpExtInstImport, 0).
		AddString(spirv.GLSLstd450Name).Result
	p.b.AddNodeWithoutResult(spirv.SectionEntries, ir.Location{}, spirv.OpMemoryModel).
		Add(uint32(spirv.AddressingModelLogical), uint32(spirv.MemoryModelGLSL450))

	if p.config.SourceName != "" {
		file := p.b.AddNode(spirv.SectionStrings, ir.Location{}, spirv.OpString, 0).
			AddString(p.config.SourceName).Result
		p.b.AddNodeWithoutResult(spirv.SectionStrings, ir.Location{}, spirv.OpSource).
			Add(uint32(spirv.SourceLanguageHLSL), 500).AddIDs(file)
	}
}

// parseTopLevel parses one top-level construct.
func (p *Parser) parseTopLevel() bool {
	switch p.peek().Kind {
	case TokenSemicolon:
		p.advance()
		return true
	case TokenNamespace:
		return p.parseNamespace()
	case TokenStruct:
		if !p.parseStruct() {
			return false
		}
		return p.expect(TokenSemicolon)
	case TokenTechnique:
		return p.parseTechnique()
	case TokenError:
		return p.lexicalError(p.peek())
	}

	var t ir.TypeInfo
	if !p.parseType(&t) {
		return false
	}
	if p.check(TokenIdent) && p.peekAt(1).Kind == TokenLeftParen {
		return p.parseFunction(t)
	}
	return p.parseGlobalVariables(t)
}

func (p *Parser) parseNamespace() bool {
	p.advance()
	name := p.peek()
	if !p.expect(TokenIdent) || !p.expect(TokenLeftBrace) {
		return false
	}
	p.symbols.EnterNamespace(name.Lexeme)
	defer p.symbols.LeaveNamespace()

	for !p.check(TokenRightBrace) && !p.isAtEnd() {
		if !p.parseTopLevel() {
			p.synchronize()
		}
	}
	return p.expect(TokenRightBrace)
}

// Diagnostics

func (p *Parser) errorf(loc ir.Location, code int, format string, args ...any) bool {
	p.diagnostics.Add(&Diagnostic{
		Severity: SeverityError,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Location: loc,
		Source:   p.source,
	})
	return false
}

func (p *Parser) warningf(loc ir.Location, code int, format string, args ...any) {
	p.diagnostics.Add(&Diagnostic{
		Severity: SeverityWarning,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Location: loc,
		Source:   p.source,
	})
}

func (p *Parser) lexicalError(tok Token) bool {
	return p.errorf(tok.Location, CodeLexical, "invalid token '%s'", tok.Lexeme)
}

// unexpected reports the current token as a syntax error.
func (p *Parser) unexpected(expected string) bool {
	tok := p.peek()
	if tok.Kind == TokenError {
		return p.lexicalError(tok)
	}
	found := tok.Lexeme
	if tok.Kind == TokenEOF {
		found = tok.Kind.String()
	}
	return p.errorf(tok.Location, CodeSyntax, "syntax error: unexpected '%s', expected %s", found, expected)
}

// enter guards recursion depth; every successful call pairs with leave.
func (p *Parser) enter(loc ir.Location) bool {
	if p.depth >= p.config.MaxNestingDepth {
		return p.errorf(loc, CodeNestingTooDeep, "nesting exceeds the maximum depth of %d", p.config.MaxNestingDepth)
	}
	p.depth++
	return true
}

func (p *Parser) leave() { p.depth-- }

// Token cursor

func (p *Parser) advance() Token {
	if !p.isAtEnd() {
		p.current++
	}
	return p.previous()
}

func (p *Parser) peek() Token {
	return p.tokens[p.current]
}

func (p *Parser) peekAt(n int) Token {
	if p.current+n >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.current+n]
}

func (p *Parser) previous() Token {
	if p.current == 0 {
		return p.tokens[0]
	}
	return p.tokens[p.current-1]
}

func (p *Parser) isAtEnd() bool {
	return p.peek().Kind == TokenEOF
}

func (p *Parser) check(kind TokenKind) bool {
	return p.peek().Kind == kind
}

func (p *Parser) match(kind TokenKind) bool {
	if p.check(kind) && !p.isAtEnd() {
		p.advance()
		return true
	}
	return false
}

// expect consumes a token of the given kind or reports a syntax error.
func (p *Parser) expect(kind TokenKind) bool {
	if p.match(kind) {
		return true
	}
	return p.unexpected("'" + kind.String() + "'")
}

// marker is a saved position for a speculative parse.
type marker struct {
	current int
	mark    spirv.Mark
}

// backup saves the cursor and the builder state. Restoring the returned
// marker rewinds both, pruning instructions emitted in between. Markers
// nest, so a speculative parse may contain another.
func (p *Parser) backup() marker {
	return marker{current: p.current, mark: p.b.Mark()}
}

func (p *Parser) restore(m marker) {
	p.current = m.current
	p.b.Truncate(m.mark)
}

// synchronize skips to the end of the broken construct: past the next
// semicolon at the current brace depth or past the brace closing it.
func (p *Parser) synchronize() {
	depth := 0
	for !p.isAtEnd() {
		switch p.advance().Kind {
		case TokenLeftBrace:
			depth++
		case TokenRightBrace:
			depth--
			if depth <= 0 {
				if depth == 0 && p.check(TokenSemicolon) {
					p.advance()
				}
				return
			}
		case TokenSemicolon:
			if depth == 0 {
				return
			}
		}
	}
}

// parseIdentifier parses a possibly namespace-qualified name.
func (p *Parser) parseIdentifier() (string, ir.Location, bool) {
	tok := p.peek()
	if !p.match(TokenIdent) {
		return "", tok.Location, p.unexpected("identifier")
	}
	name := tok.Lexeme
	for p.check(TokenColonColon) && p.peekAt(1).Kind == TokenIdent {
		p.advance()
		name += "::" + p.advance().Lexeme
	}
	return name, tok.Location, true
}
