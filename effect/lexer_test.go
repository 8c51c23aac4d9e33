package effect

import (
	"testing"
)

func tokenKinds(tokens []Token) []TokenKind {
	kinds := make([]TokenKind, len(tokens))
	for i, tok := range tokens {
		kinds[i] = tok.Kind
	}
	return kinds
}

func TestLexerBasicTokens(t *testing.T) {
	tests := []struct {
		input    string
		expected []TokenKind
	}{
		{"+ - * / %", []TokenKind{TokenPlus, TokenMinus, TokenStar, TokenSlash, TokenPercent, TokenEOF}},
		{"( ) { } [ ]", []TokenKind{TokenLeftParen, TokenRightParen, TokenLeftBrace, TokenRightBrace, TokenLeftBracket, TokenRightBracket, TokenEOF}},
		{", . : :: ; ?", []TokenKind{TokenComma, TokenDot, TokenColon, TokenColonColon, TokenSemicolon, TokenQuestion, TokenEOF}},
		{"& | ^ ~ !", []TokenKind{TokenAmpersand, TokenPipe, TokenCaret, TokenTilde, TokenBang, TokenEOF}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tokens := NewLexer("", tt.input).Tokenize()
			got := tokenKinds(tokens)
			if len(got) != len(tt.expected) {
				t.Fatalf("got %d tokens %v, want %d", len(got), got, len(tt.expected))
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("token %d: got %v, want %v", i, got[i], tt.expected[i])
				}
			}
		})
	}
}

func TestLexerOperators(t *testing.T) {
	input := "== != <= >= && || << >> ++ -- += -= *= /= %= &= |= ^= <<= >>="
	expected := []TokenKind{
		TokenEqualEqual, TokenBangEqual, TokenLessEqual, TokenGreaterEqual,
		TokenAmpAmp, TokenPipePipe, TokenLessLess, TokenGreaterGreater,
		TokenPlusPlus, TokenMinusMinus,
		TokenPlusEqual, TokenMinusEqual, TokenStarEqual, TokenSlashEqual, TokenPercentEqual,
		TokenAmpEqual, TokenPipeEqual, TokenCaretEqual, TokenLessLessEqual, TokenGreaterGreaterEqual,
		TokenEOF,
	}

	got := tokenKinds(NewLexer("", input).Tokenize())
	if len(got) != len(expected) {
		t.Fatalf("got %d tokens, want %d", len(got), len(expected))
	}
	for i := range got {
		if got[i] != expected[i] {
			t.Errorf("token %d: got %v, want %v", i, got[i], expected[i])
		}
	}
}

func TestLexerKeywordsAndTypes(t *testing.T) {
	tests := []struct {
		input string
		kind  TokenKind
	}{
		{"technique", TokenTechnique},
		{"pass", TokenPass},
		{"namespace", TokenNamespace},
		{"struct", TokenStruct},
		{"discard", TokenDiscard},
		{"uniform", TokenUniform},
		{"inout", TokenInOut},
		{"nointerpolation", TokenNoInterpolation},
		{"true", TokenTrue},
		{"float4", TokenType},
		{"float4x4", TokenType},
		{"uint2", TokenType},
		{"half3", TokenType},
		{"dword", TokenType},
		{"texture2D", TokenType},
		{"sampler", TokenType},
		{"void", TokenType},
		{"float5", TokenIdent},
		{"float4x", TokenIdent},
		{"techniques", TokenIdent},
		{"_tmp1", TokenIdent},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tokens := NewLexer("", tt.input).Tokenize()
			if len(tokens) != 2 {
				t.Fatalf("got %d tokens, want 2", len(tokens))
			}
			if tokens[0].Kind != tt.kind {
				t.Errorf("kind = %v, want %v", tokens[0].Kind, tt.kind)
			}
			if tokens[0].Lexeme != tt.input {
				t.Errorf("lexeme = %q, want %q", tokens[0].Lexeme, tt.input)
			}
		})
	}
}

func TestLexerNumbers(t *testing.T) {
	tests := []struct {
		input string
		kind  TokenKind
		i     uint32
		f     float32
	}{
		{"42", TokenIntLiteral, 42, 0},
		{"0", TokenIntLiteral, 0, 0},
		{"0x1F", TokenIntLiteral, 31, 0},
		{"010", TokenIntLiteral, 8, 0},
		{"7u", TokenUintLiteral, 7, 0},
		{"3U", TokenUintLiteral, 3, 0},
		{"5l", TokenIntLiteral, 5, 0},
		{"1.5", TokenFloatLiteral, 0, 1.5},
		{".25", TokenFloatLiteral, 0, 0.25},
		{"2.", TokenFloatLiteral, 0, 2},
		{"2f", TokenFloatLiteral, 0, 2},
		{"0.5h", TokenFloatLiteral, 0, 0.5},
		{"1e3", TokenFloatLiteral, 0, 1000},
		{"2.5e-1", TokenFloatLiteral, 0, 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tokens := NewLexer("", tt.input).Tokenize()
			if len(tokens) != 2 {
				t.Fatalf("got %d tokens %v, want 2", len(tokens), tokenKinds(tokens))
			}
			tok := tokens[0]
			if tok.Kind != tt.kind {
				t.Fatalf("kind = %v, want %v", tok.Kind, tt.kind)
			}
			if tok.Kind == TokenFloatLiteral {
				if tok.Float != tt.f {
					t.Errorf("value = %v, want %v", tok.Float, tt.f)
				}
			} else if tok.Int != tt.i {
				t.Errorf("value = %d, want %d", tok.Int, tt.i)
			}
		})
	}
}

func TestLexerInvalidNumbers(t *testing.T) {
	for _, input := range []string{"0x", "99999999999"} {
		t.Run(input, func(t *testing.T) {
			tokens := NewLexer("", input).Tokenize()
			if tokens[0].Kind != TokenError {
				t.Errorf("kind = %v, want %v", tokens[0].Kind, TokenError)
			}
		})
	}
}

func TestLexerStrings(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`"hello"`, "hello"},
		{`""`, ""},
		{`"a\tb"`, "a\tb"},
		{`"say \"hi\""`, `say "hi"`},
		{`"back\\slash"`, `back\slash`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tokens := NewLexer("", tt.input).Tokenize()
			if tokens[0].Kind != TokenStringLiteral {
				t.Fatalf("kind = %v, want string literal", tokens[0].Kind)
			}
			if tokens[0].String != tt.want {
				t.Errorf("value = %q, want %q", tokens[0].String, tt.want)
			}
		})
	}
}

func TestLexerUnterminatedString(t *testing.T) {
	for _, input := range []string{`"abc`, "\"abc\ndef\""} {
		tokens := NewLexer("", input).Tokenize()
		if tokens[0].Kind != TokenError {
			t.Errorf("%q: kind = %v, want %v", input, tokens[0].Kind, TokenError)
		}
	}
}

func TestLexerComments(t *testing.T) {
	input := `a // line comment
	/* block
	   comment */ b /**/ c`
	tokens := NewLexer("", input).Tokenize()
	want := []string{"a", "b", "c"}
	if len(tokens) != len(want)+1 {
		t.Fatalf("got %d tokens, want %d", len(tokens), len(want)+1)
	}
	for i, w := range want {
		if tokens[i].Lexeme != w {
			t.Errorf("token %d = %q, want %q", i, tokens[i].Lexeme, w)
		}
	}
	if tokens[1].Location.Line != 3 {
		t.Errorf("b on line %d, want 3", tokens[1].Location.Line)
	}
}

func TestLexerLocations(t *testing.T) {
	tokens := NewLexer("test.fx", "float x;\n  x = 1;").Tokenize()
	tests := []struct {
		index  int
		line   int
		column int
	}{
		{0, 1, 1},
		{1, 1, 7},
		{2, 1, 8},
		{3, 2, 3},
		{4, 2, 5},
	}
	for _, tt := range tests {
		loc := tokens[tt.index].Location
		if loc.Line != tt.line || loc.Column != tt.column {
			t.Errorf("token %d (%q) at %d:%d, want %d:%d",
				tt.index, tokens[tt.index].Lexeme, loc.Line, loc.Column, tt.line, tt.column)
		}
		if loc.Source != "test.fx" {
			t.Errorf("token %d source = %q", tt.index, loc.Source)
		}
	}
}

func TestLexerLineDirective(t *testing.T) {
	input := "a\n#line 100 \"other.fx\"\nb"
	l := NewLexer("main.fx", input)
	tokens := l.Tokenize()

	if tokens[0].Location.Source != "main.fx" || tokens[0].Location.Line != 1 {
		t.Errorf("a at %s", tokens[0].Location)
	}
	if tokens[1].Location.Source != "other.fx" || tokens[1].Location.Line != 100 {
		t.Errorf("b at %s, want other.fx(100, 1)", tokens[1].Location)
	}
	if len(l.Diagnostics()) != 0 {
		t.Errorf("unexpected diagnostics: %v", l.Diagnostics())
	}
}

func TestLexerUnknownDirective(t *testing.T) {
	l := NewLexer("", "#pragma once\nfloat")
	tokens := l.Tokenize()

	if tokens[0].Kind != TokenType {
		t.Errorf("first token = %v, want type", tokens[0].Kind)
	}
	diags := l.Diagnostics()
	if len(diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1", len(diags))
	}
	if diags[0].Severity != SeverityWarning || diags[0].Code != CodeUnknownPreprocessor {
		t.Errorf("diagnostic = %v", diags[0])
	}
}

func TestLexerInvalidCharacter(t *testing.T) {
	tokens := NewLexer("", "a @ b").Tokenize()
	got := tokenKinds(tokens)
	want := []TokenKind{TokenIdent, TokenError, TokenIdent, TokenEOF}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %v, want %v", i, got[i], want[i])
		}
	}
}
