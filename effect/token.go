package effect

import "github.com/gogpu/fxc/ir"

// TokenKind represents the type of token.
type TokenKind uint8

const (
	TokenEOF TokenKind = iota
	TokenError

	// Literals
	TokenIdent
	TokenIntLiteral
	TokenUintLiteral
	TokenFloatLiteral
	TokenStringLiteral
	TokenTrue
	TokenFalse

	// Built-in type name; the lexeme selects the type
	TokenType

	// Operators
	TokenPlus                // +
	TokenMinus               // -
	TokenStar                // *
	TokenSlash               // /
	TokenPercent             // %
	TokenAmpersand           // &
	TokenPipe                // |
	TokenCaret               // ^
	TokenTilde               // ~
	TokenBang                // !
	TokenEqual               // =
	TokenLess                // <
	TokenGreater             // >
	TokenDot                 // .
	TokenComma               // ,
	TokenColon               // :
	TokenColonColon          // ::
	TokenSemicolon           // ;
	TokenQuestion            // ?
	TokenPlusPlus            // ++
	TokenMinusMinus          // --
	TokenEqualEqual          // ==
	TokenBangEqual           // !=
	TokenLessEqual           // <=
	TokenGreaterEqual        // >=
	TokenAmpAmp              // &&
	TokenPipePipe            // ||
	TokenLessLess            // <<
	TokenGreaterGreater      // >>
	TokenPlusEqual           // +=
	TokenMinusEqual          // -=
	TokenStarEqual           // *=
	TokenSlashEqual          // /=
	TokenPercentEqual        // %=
	TokenAmpEqual            // &=
	TokenPipeEqual           // |=
	TokenCaretEqual          // ^=
	TokenLessLessEqual       // <<=
	TokenGreaterGreaterEqual // >>=

	// Delimiters
	TokenLeftParen    // (
	TokenRightParen   // )
	TokenLeftBrace    // {
	TokenRightBrace   // }
	TokenLeftBracket  // [
	TokenRightBracket // ]

	// Keywords
	TokenBreak
	TokenCase
	TokenContinue
	TokenDefault
	TokenDiscard
	TokenDo
	TokenElse
	TokenFor
	TokenIf
	TokenNamespace
	TokenPass
	TokenReturn
	TokenStruct
	TokenSwitch
	TokenTechnique
	TokenWhile

	// Qualifiers
	TokenExtern
	TokenStatic
	TokenUniform
	TokenVolatile
	TokenPrecise
	TokenIn
	TokenOut
	TokenInOut
	TokenConst
	TokenLinear
	TokenNoPerspective
	TokenCentroid
	TokenNoInterpolation
)

var tokenNames = map[TokenKind]string{
	TokenEOF:                 "end of file",
	TokenError:               "invalid character",
	TokenIdent:               "identifier",
	TokenIntLiteral:          "integer literal",
	TokenUintLiteral:         "integer literal",
	TokenFloatLiteral:        "floating point literal",
	TokenStringLiteral:       "string literal",
	TokenTrue:                "true",
	TokenFalse:               "false",
	TokenType:                "type",
	TokenPlus:                "+",
	TokenMinus:               "-",
	TokenStar:                "*",
	TokenSlash:               "/",
	TokenPercent:             "%",
	TokenAmpersand:           "&",
	TokenPipe:                "|",
	TokenCaret:               "^",
	TokenTilde:               "~",
	TokenBang:                "!",
	TokenEqual:               "=",
	TokenLess:                "<",
	TokenGreater:             ">",
	TokenDot:                 ".",
	TokenComma:               ",",
	TokenColon:               ":",
	TokenColonColon:          "::",
	TokenSemicolon:           ";",
	TokenQuestion:            "?",
	TokenPlusPlus:            "++",
	TokenMinusMinus:          "--",
	TokenEqualEqual:          "==",
	TokenBangEqual:           "!=",
	TokenLessEqual:           "<=",
	TokenGreaterEqual:        ">=",
	TokenAmpAmp:              "&&",
	TokenPipePipe:            "||",
	TokenLessLess:            "<<",
	TokenGreaterGreater:      ">>",
	TokenPlusEqual:           "+=",
	TokenMinusEqual:          "-=",
	TokenStarEqual:           "*=",
	TokenSlashEqual:          "/=",
	TokenPercentEqual:        "%=",
	TokenAmpEqual:            "&=",
	TokenPipeEqual:           "|=",
	TokenCaretEqual:          "^=",
	TokenLessLessEqual:       "<<=",
	TokenGreaterGreaterEqual: ">>=",
	TokenLeftParen:           "(",
	TokenRightParen:          ")",
	TokenLeftBrace:           "{",
	TokenRightBrace:          "}",
	TokenLeftBracket:         "[",
	TokenRightBracket:        "]",
	TokenBreak:               "break",
	TokenCase:                "case",
	TokenContinue:            "continue",
	TokenDefault:             "default",
	TokenDiscard:             "discard",
	TokenDo:                  "do",
	TokenElse:                "else",
	TokenFor:                 "for",
	TokenIf:                  "if",
	TokenNamespace:           "namespace",
	TokenPass:                "pass",
	TokenReturn:              "return",
	TokenStruct:              "struct",
	TokenSwitch:              "switch",
	TokenTechnique:           "technique",
	TokenWhile:               "while",
	TokenExtern:              "extern",
	TokenStatic:              "static",
	TokenUniform:             "uniform",
	TokenVolatile:            "volatile",
	TokenPrecise:             "precise",
	TokenIn:                  "in",
	TokenOut:                 "out",
	TokenInOut:               "inout",
	TokenConst:               "const",
	TokenLinear:              "linear",
	TokenNoPerspective:       "noperspective",
	TokenCentroid:            "centroid",
	TokenNoInterpolation:     "nointerpolation",
}

// String returns the string representation of the token kind.
func (k TokenKind) String() string {
	if s, ok := tokenNames[k]; ok {
		return s
	}
	return "Unknown"
}

// Token represents a lexical token.
type Token struct {
	Kind     TokenKind
	Lexeme   string
	Location ir.Location

	// Literal payload
	Int    uint32
	Float  float32
	String string
}

// IsLiteral reports whether the token is a numeric or boolean literal.
func (t Token) IsLiteral() bool {
	switch t.Kind {
	case TokenIntLiteral, TokenUintLiteral, TokenFloatLiteral, TokenTrue, TokenFalse:
		return true
	}
	return false
}
