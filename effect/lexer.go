package effect

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/fxc/ir"
)

// Lexer tokenizes effect source code.
type Lexer struct {
	source string
	name   string
	pos    int
	line   int
	column int
	start  int

	startLine   int
	startColumn int
	lineStart   bool

	tokens      []Token
	diagnostics Diagnostics
}

// NewLexer creates a new lexer for the given source. name is recorded in
// every token location until a #line directive replaces it.
func NewLexer(name, source string) *Lexer {
	return &Lexer{
		source:    source,
		name:      name,
		line:      1,
		column:    1,
		lineStart: true,
	}
}

// Tokenize returns all tokens, terminated by a single TokenEOF. Invalid
// input produces TokenError entries rather than stopping the scan.
func (l *Lexer) Tokenize() []Token {
	for !l.isAtEnd() {
		l.skipWhitespaceAndComments()
		if l.isAtEnd() {
			break
		}
		l.start = l.pos
		l.startLine = l.line
		l.startColumn = l.column
		if l.lineStart && l.peek() == '#' {
			l.directive()
			continue
		}
		l.lineStart = false
		l.scanToken()
	}

	l.start = l.pos
	l.startLine = l.line
	l.startColumn = l.column
	l.tokens = append(l.tokens, Token{Kind: TokenEOF, Location: l.location()})
	return l.tokens
}

// Diagnostics returns the warnings reported while scanning.
func (l *Lexer) Diagnostics() Diagnostics {
	return l.diagnostics
}

func (l *Lexer) location() ir.Location {
	return ir.Location{Source: l.name, Line: l.startLine, Column: l.startColumn}
}

func (l *Lexer) scanToken() {
	c := l.advance()

	switch c {
	case '(':
		l.addToken(TokenLeftParen)
	case ')':
		l.addToken(TokenRightParen)
	case '{':
		l.addToken(TokenLeftBrace)
	case '}':
		l.addToken(TokenRightBrace)
	case '[':
		l.addToken(TokenLeftBracket)
	case ']':
		l.addToken(TokenRightBracket)
	case ',':
		l.addToken(TokenComma)
	case ';':
		l.addToken(TokenSemicolon)
	case '?':
		l.addToken(TokenQuestion)
	case '~':
		l.addToken(TokenTilde)
	case ':':
		if l.match(':') {
			l.addToken(TokenColonColon)
		} else {
			l.addToken(TokenColon)
		}
	case '.':
		if isDigit(l.peek()) {
			l.number()
		} else {
			l.addToken(TokenDot)
		}
	case '+':
		switch {
		case l.match('+'):
			l.addToken(TokenPlusPlus)
		case l.match('='):
			l.addToken(TokenPlusEqual)
		default:
			l.addToken(TokenPlus)
		}
	case '-':
		switch {
		case l.match('-'):
			l.addToken(TokenMinusMinus)
		case l.match('='):
			l.addToken(TokenMinusEqual)
		default:
			l.addToken(TokenMinus)
		}
	case '*':
		l.addOrAssign(TokenStar, TokenStarEqual)
	case '/':
		l.addOrAssign(TokenSlash, TokenSlashEqual)
	case '%':
		l.addOrAssign(TokenPercent, TokenPercentEqual)
	case '^':
		l.addOrAssign(TokenCaret, TokenCaretEqual)
	case '=':
		l.addOrAssign(TokenEqual, TokenEqualEqual)
	case '!':
		l.addOrAssign(TokenBang, TokenBangEqual)
	case '&':
		switch {
		case l.match('&'):
			l.addToken(TokenAmpAmp)
		case l.match('='):
			l.addToken(TokenAmpEqual)
		default:
			l.addToken(TokenAmpersand)
		}
	case '|':
		switch {
		case l.match('|'):
			l.addToken(TokenPipePipe)
		case l.match('='):
			l.addToken(TokenPipeEqual)
		default:
			l.addToken(TokenPipe)
		}
	case '<':
		switch {
		case l.match('<'):
			l.addOrAssign(TokenLessLess, TokenLessLessEqual)
		case l.match('='):
			l.addToken(TokenLessEqual)
		default:
			l.addToken(TokenLess)
		}
	case '>':
		switch {
		case l.match('>'):
			l.addOrAssign(TokenGreaterGreater, TokenGreaterGreaterEqual)
		case l.match('='):
			l.addToken(TokenGreaterEqual)
		default:
			l.addToken(TokenGreater)
		}
	case '"':
		l.stringLiteral()
	default:
		switch {
		case isDigit(c):
			l.number()
		case isAlpha(c):
			l.identifier()
		default:
			l.addToken(TokenError)
		}
	}
}

// addOrAssign adds plain, or assign when the next character is '='.
func (l *Lexer) addOrAssign(plain, assign TokenKind) {
	if l.match('=') {
		l.addToken(assign)
	} else {
		l.addToken(plain)
	}
}

func (l *Lexer) skipWhitespaceAndComments() {
	for !l.isAtEnd() {
		c := l.peek()
		switch c {
		case ' ', '\t', '\r', '\f', '\v':
			l.advance()
		case '\n':
			l.advance()
			l.lineStart = true
		case '\\':
			// Line continuation
			if l.peekNext() == '\n' || (l.peekNext() == '\r' && l.peekAt(2) == '\n') {
				l.advance()
				l.match('\r')
				l.advance()
				continue
			}
			return
		case '/':
			switch l.peekNext() {
			case '/':
				for !l.isAtEnd() && l.peek() != '\n' {
					l.advance()
				}
			case '*':
				l.advance()
				l.advance()
				l.blockComment()
			default:
				return
			}
		default:
			return
		}
	}
}

func (l *Lexer) blockComment() {
	for !l.isAtEnd() {
		if l.peek() == '*' && l.peekNext() == '/' {
			l.advance()
			l.advance()
			return
		}
		l.advance()
	}
}

// directive handles a preprocessor line. #line updates the reported
// location; every other directive is skipped with a warning.
func (l *Lexer) directive() {
	l.advance() // '#'
	lineEnd := strings.IndexByte(l.source[l.pos:], '\n')
	if lineEnd < 0 {
		lineEnd = len(l.source) - l.pos
	}
	text := strings.TrimSpace(l.source[l.pos : l.pos+lineEnd])
	for i := 0; i < lineEnd; i++ {
		l.advance()
	}

	name, rest, _ := strings.Cut(text, " ")
	if name != "line" {
		l.diagnostics.Add(&Diagnostic{
			Severity: SeverityWarning,
			Code:     CodeUnknownPreprocessor,
			Message:  fmt.Sprintf("unknown preprocessor directive '#%s'", name),
			Location: l.location(),
			Source:   l.source,
		})
		return
	}

	rest = strings.TrimSpace(rest)
	number, file, _ := strings.Cut(rest, " ")
	n, err := strconv.Atoi(number)
	if err != nil || n < 1 {
		l.diagnostics.Add(&Diagnostic{
			Severity: SeverityWarning,
			Code:     CodeUnknownPreprocessor,
			Message:  fmt.Sprintf("malformed #line directive '%s'", text),
			Location: l.location(),
			Source:   l.source,
		})
		return
	}
	if file = strings.TrimSpace(file); len(file) >= 2 && file[0] == '"' && file[len(file)-1] == '"' {
		l.name = file[1 : len(file)-1]
	}
	// The newline ending the directive advances to line n.
	l.line = n - 1
}

func (l *Lexer) number() {
	l.pos = l.start
	l.column = l.startColumn

	if l.peek() == '0' && (l.peekNext() == 'x' || l.peekNext() == 'X') {
		l.advance()
		l.advance()
		for isHexDigit(l.peek()) {
			l.advance()
		}
		l.integer(l.source[l.start+2:l.pos], 16)
		return
	}

	isFloat := false
	for isDigit(l.peek()) {
		l.advance()
	}
	if l.peek() == '.' {
		isFloat = true
		l.advance()
		for isDigit(l.peek()) {
			l.advance()
		}
	}
	if c := l.peek(); c == 'e' || c == 'E' {
		next := l.peekNext()
		if isDigit(next) || ((next == '+' || next == '-') && isDigit(l.peekAt(2))) {
			isFloat = true
			l.advance()
			if next == '+' || next == '-' {
				l.advance()
			}
			for isDigit(l.peek()) {
				l.advance()
			}
		}
	}

	digits := l.source[l.start:l.pos]
	switch l.peek() {
	case 'f', 'F', 'h', 'H':
		l.advance()
		isFloat = true
	}

	if isFloat {
		v, err := strconv.ParseFloat(digits, 32)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			l.addToken(TokenError)
			return
		}
		tok := l.makeToken(TokenFloatLiteral)
		tok.Float = float32(v)
		l.tokens = append(l.tokens, tok)
		return
	}

	if len(digits) > 1 && digits[0] == '0' {
		l.integer(digits[1:], 8)
		return
	}
	l.integer(digits, 10)
}

// integer finishes an integer literal whose digits are already consumed.
func (l *Lexer) integer(digits string, base int) {
	kind := TokenIntLiteral
	if c := l.peek(); c == 'u' || c == 'U' {
		l.advance()
		kind = TokenUintLiteral
	}
	for c := l.peek(); c == 'l' || c == 'L'; c = l.peek() {
		l.advance()
	}
	if digits == "" && base != 8 {
		l.addToken(TokenError)
		return
	}
	v := uint64(0)
	if digits != "" {
		var err error
		v, err = strconv.ParseUint(digits, base, 32)
		if err != nil {
			l.addToken(TokenError)
			return
		}
	}
	tok := l.makeToken(kind)
	tok.Int = uint32(v)
	l.tokens = append(l.tokens, tok)
}

func (l *Lexer) stringLiteral() {
	var sb strings.Builder
	for !l.isAtEnd() && l.peek() != '"' {
		c := l.advance()
		if c == '\n' {
			l.addToken(TokenError)
			return
		}
		if c != '\\' || l.isAtEnd() {
			sb.WriteByte(c)
			continue
		}
		switch e := l.advance(); e {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case '0':
			sb.WriteByte(0)
		case '\n':
			// Escaped newline continues the literal.
		default:
			sb.WriteByte(e)
		}
	}
	if l.isAtEnd() {
		l.addToken(TokenError)
		return
	}
	l.advance() // closing quote

	tok := l.makeToken(TokenStringLiteral)
	tok.String = sb.String()
	l.tokens = append(l.tokens, tok)
}

func (l *Lexer) identifier() {
	for isAlphaNumeric(l.peek()) {
		l.advance()
	}

	text := l.source[l.start:l.pos]
	if kind, ok := keywords[text]; ok {
		l.addToken(kind)
		return
	}
	if _, ok := builtinType(text); ok {
		l.addToken(TokenType)
		return
	}
	l.addToken(TokenIdent)
}

func (l *Lexer) makeToken(kind TokenKind) Token {
	return Token{
		Kind:     kind,
		Lexeme:   l.source[l.start:l.pos],
		Location: l.location(),
	}
}

func (l *Lexer) addToken(kind TokenKind) {
	l.tokens = append(l.tokens, l.makeToken(kind))
}

func (l *Lexer) isAtEnd() bool {
	return l.pos >= len(l.source)
}

func (l *Lexer) advance() byte {
	c := l.source[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return c
}

func (l *Lexer) match(expected byte) bool {
	if l.isAtEnd() || l.source[l.pos] != expected {
		return false
	}
	l.advance()
	return true
}

func (l *Lexer) peek() byte {
	return l.peekAt(0)
}

func (l *Lexer) peekNext() byte {
	return l.peekAt(1)
}

func (l *Lexer) peekAt(n int) byte {
	if l.pos+n >= len(l.source) {
		return 0
	}
	return l.source[l.pos+n]
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isAlphaNumeric(c byte) bool {
	return isAlpha(c) || isDigit(c)
}

var keywords = map[string]TokenKind{
	// Literals
	"true":  TokenTrue,
	"false": TokenFalse,

	// Statements and declarations
	"break":     TokenBreak,
	"case":      TokenCase,
	"continue":  TokenContinue,
	"default":   TokenDefault,
	"discard":   TokenDiscard,
	"do":        TokenDo,
	"else":      TokenElse,
	"for":       TokenFor,
	"if":        TokenIf,
	"namespace": TokenNamespace,
	"pass":      TokenPass,
	"return":    TokenReturn,
	"struct":    TokenStruct,
	"switch":    TokenSwitch,
	"technique": TokenTechnique,
	"while":     TokenWhile,

	// Qualifiers
	"extern":          TokenExtern,
	"static":          TokenStatic,
	"uniform":         TokenUniform,
	"volatile":        TokenVolatile,
	"precise":         TokenPrecise,
	"in":              TokenIn,
	"out":             TokenOut,
	"inout":           TokenInOut,
	"const":           TokenConst,
	"linear":          TokenLinear,
	"noperspective":   TokenNoPerspective,
	"centroid":        TokenCentroid,
	"nointerpolation": TokenNoInterpolation,
}

// builtinType resolves a built-in type name such as float3, uint2x2,
// texture2D or sampler.
func builtinType(name string) (ir.TypeInfo, bool) {
	switch name {
	case "void":
		return ir.TypeVoid, true
	case "vector":
		return ir.Vector(ir.BaseFloat, false, 4), true
	case "matrix":
		return ir.Matrix(ir.BaseFloat, false, 4, 4), true
	case "texture", "texture2D":
		return ir.TypeTexture, true
	case "sampler", "sampler2D":
		return ir.TypeSampler, true
	}

	var base ir.TypeInfo
	var rest string
	switch {
	case strings.HasPrefix(name, "bool"):
		base, rest = ir.TypeBool, name[4:]
	case strings.HasPrefix(name, "int"):
		base, rest = ir.TypeInt, name[3:]
	case strings.HasPrefix(name, "uint"):
		base, rest = ir.TypeUint, name[4:]
	case strings.HasPrefix(name, "dword"):
		base, rest = ir.TypeUint, name[5:]
	case strings.HasPrefix(name, "float"):
		base, rest = ir.TypeFloat, name[5:]
	case strings.HasPrefix(name, "half"):
		base, rest = ir.TypeFloat, name[4:]
	default:
		return ir.TypeInfo{}, false
	}

	switch len(rest) {
	case 0:
		return base, true
	case 1:
		if n := rest[0]; n >= '1' && n <= '4' {
			return base.WithShape(n-'0', 1), true
		}
	case 3:
		r, x, c := rest[0], rest[1], rest[2]
		if r >= '1' && r <= '4' && x == 'x' && c >= '1' && c <= '4' {
			return base.WithShape(r-'0', c-'0'), true
		}
	}
	return ir.TypeInfo{}, false
}
