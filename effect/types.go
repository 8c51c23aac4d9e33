package effect

import (
	"github.com/gogpu/fxc/ir"
)

var qualifierTokens = map[TokenKind]ir.Qualifier{
	TokenExtern:          ir.QualifierExtern,
	TokenStatic:          ir.QualifierStatic,
	TokenUniform:         ir.QualifierUniform,
	TokenVolatile:        ir.QualifierVolatile,
	TokenPrecise:         ir.QualifierPrecise,
	TokenIn:              ir.QualifierIn,
	TokenOut:             ir.QualifierOut,
	TokenInOut:           ir.QualifierInOut,
	TokenConst:           ir.QualifierConst,
	TokenLinear:          ir.QualifierLinear,
	TokenNoPerspective:   ir.QualifierNoPerspective,
	TokenCentroid:        ir.QualifierCentroid,
	TokenNoInterpolation: ir.QualifierNoInterpolation,
}

// parseQualifiers consumes any sequence of qualifier keywords.
func (p *Parser) parseQualifiers() ir.Qualifier {
	var q ir.Qualifier
	for {
		bit, ok := qualifierTokens[p.peek().Kind]
		if !ok {
			return q
		}
		p.advance()
		q |= bit
	}
}

// parseType parses qualifiers followed by a type name into t.
func (p *Parser) parseType(t *ir.TypeInfo) bool {
	q := p.parseQualifiers()
	if !p.parseTypeName(t) {
		return false
	}
	t.Qualifiers |= q
	return true
}

// parseTypeName parses a built-in type or a struct name.
func (p *Parser) parseTypeName(t *ir.TypeInfo) bool {
	tok := p.peek()
	switch tok.Kind {
	case TokenType:
		p.advance()
		*t, _ = builtinType(tok.Lexeme)
		return true
	case TokenIdent:
		name, loc, _ := p.parseIdentifier()
		info := p.symbols.LookupStruct(name)
		if info == nil {
			return p.errorf(loc, CodeUndeclared, "undeclared identifier '%s'", name)
		}
		if info.Definition == 0 {
			return p.errorf(loc, CodeRecursiveStruct, "struct '%s' cannot contain itself", name)
		}
		*t = structType(info)
		return true
	}
	return p.unexpected("type")
}

// peekTypeName reports whether the tokens ahead start a declaration type.
func (p *Parser) peekTypeName() bool {
	tok := p.peek()
	if _, ok := qualifierTokens[tok.Kind]; ok {
		return true
	}
	switch tok.Kind {
	case TokenType:
		return true
	case TokenIdent:
		name := tok.Lexeme
		n := 1
		for p.peekAt(n).Kind == TokenColonColon && p.peekAt(n+1).Kind == TokenIdent {
			name += "::" + p.peekAt(n+1).Lexeme
			n += 2
		}
		return p.peekAt(n).Kind == TokenIdent && p.symbols.LookupStruct(name) != nil
	}
	return false
}

func structType(info *ir.StructInfo) ir.TypeInfo {
	return ir.TypeInfo{Base: ir.BaseStruct, Rows: 1, Cols: 1, Definition: info.Definition}
}

// parseArraySuffix parses an optional "[N]" or "[]" declarator suffix.
func (p *Parser) parseArraySuffix(t *ir.TypeInfo) bool {
	if !p.check(TokenLeftBracket) {
		return true
	}
	p.advance()
	if p.match(TokenRightBracket) {
		t.ArrayLength = ir.ArrayUnsized
		return true
	}

	loc := p.peek().Location
	mark := p.b.Mark()
	e, ok := p.parseExpression()
	p.b.Truncate(mark)
	if !ok {
		return false
	}
	if e.constant == nil || !e.typ.IsScalar() || e.typ.IsBoolean() {
		return p.errorf(loc, CodeArrayNotConstant, "array dimensions must be literal scalar expressions")
	}
	n := int64(e.constant.Int(0))
	switch {
	case e.typ.IsFloatingPoint():
		n = int64(e.constant.Float(0))
	case !e.typ.Signed:
		n = int64(e.constant.Uint(0))
	}
	if n < 1 || n > 65536 {
		return p.errorf(loc, CodeArrayNotPositive, "array dimension must be between 1 and 65536")
	}
	t.ArrayLength = int32(n)
	if !p.expect(TokenRightBracket) {
		return false
	}
	if p.check(TokenLeftBracket) {
		return p.errorf(p.peek().Location, CodeInvalidSubscript, "multi-dimensional arrays are not supported")
	}
	return true
}
