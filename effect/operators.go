package effect

import (
	"github.com/gogpu/fxc/ir"
	"github.com/gogpu/fxc/spirv"
)

type binaryInfo struct {
	op         ir.BinaryOperator
	precedence int
}

// binaryOperators lists the binary operators by precedence, loosest first.
var binaryOperators = map[TokenKind]binaryInfo{
	TokenPipePipe:       {ir.BinaryLogicalOr, 1},
	TokenAmpAmp:         {ir.BinaryLogicalAnd, 2},
	TokenPipe:           {ir.BinaryInclusiveOr, 3},
	TokenCaret:          {ir.BinaryExclusiveOr, 4},
	TokenAmpersand:      {ir.BinaryAnd, 5},
	TokenEqualEqual:     {ir.BinaryEqual, 6},
	TokenBangEqual:      {ir.BinaryNotEqual, 6},
	TokenLess:           {ir.BinaryLess, 7},
	TokenGreater:        {ir.BinaryGreater, 7},
	TokenLessEqual:      {ir.BinaryLessEqual, 7},
	TokenGreaterEqual:   {ir.BinaryGreaterEqual, 7},
	TokenLessLess:       {ir.BinaryShiftLeft, 8},
	TokenGreaterGreater: {ir.BinaryShiftRight, 8},
	TokenPlus:           {ir.BinaryAdd, 9},
	TokenMinus:          {ir.BinarySubtract, 9},
	TokenStar:           {ir.BinaryMultiply, 10},
	TokenSlash:          {ir.BinaryDivide, 10},
	TokenPercent:        {ir.BinaryModulo, 10},
}

// assignmentOperators maps compound assignments to their operator.
var assignmentOperators = map[TokenKind]ir.BinaryOperator{
	TokenPlusEqual:           ir.BinaryAdd,
	TokenMinusEqual:          ir.BinarySubtract,
	TokenStarEqual:           ir.BinaryMultiply,
	TokenSlashEqual:          ir.BinaryDivide,
	TokenPercentEqual:        ir.BinaryModulo,
	TokenAmpEqual:            ir.BinaryAnd,
	TokenPipeEqual:           ir.BinaryInclusiveOr,
	TokenCaretEqual:          ir.BinaryExclusiveOr,
	TokenLessLessEqual:       ir.BinaryShiftLeft,
	TokenGreaterGreaterEqual: ir.BinaryShiftRight,
}

// parseExpression parses a full expression including the comma operator.
func (p *Parser) parseExpression() (*expression, bool) {
	e, ok := p.parseAssignment()
	for ok && p.match(TokenComma) {
		e, ok = p.parseAssignment()
	}
	return e, ok
}

// parseAssignment parses a right-associative assignment.
func (p *Parser) parseAssignment() (*expression, bool) {
	lhs, ok := p.parseTernary()
	if !ok {
		return nil, false
	}

	tok := p.peek()
	op, compound := assignmentOperators[tok.Kind]
	if !compound && tok.Kind != TokenEqual {
		return lhs, true
	}
	p.advance()
	rhs, ok := p.parseAssignment()
	if !ok {
		return nil, false
	}
	return p.assign(tok.Location, lhs, op, compound, rhs)
}

func (p *Parser) parseTernary() (*expression, bool) {
	cond, ok := p.parseBinary(1)
	if !ok || !p.check(TokenQuestion) {
		return cond, ok
	}
	loc := p.advance().Location
	a, ok := p.parseExpression()
	if !ok || !p.expect(TokenColon) {
		return nil, false
	}
	b, ok := p.parseTernary()
	if !ok {
		return nil, false
	}
	return p.conditional(loc, cond, a, b)
}

// parseBinary climbs the precedence table starting at minPrecedence.
func (p *Parser) parseBinary(minPrecedence int) (*expression, bool) {
	lhs, ok := p.parseUnary()
	if !ok {
		return nil, false
	}
	for {
		info, isBinary := binaryOperators[p.peek().Kind]
		if !isBinary || info.precedence < minPrecedence {
			return lhs, true
		}
		tok := p.advance()
		rhs, ok := p.parseBinary(info.precedence + 1)
		if !ok {
			return nil, false
		}
		if lhs, ok = p.binary(tok.Location, info.op, lhs, rhs); !ok {
			return nil, false
		}
	}
}

// parseUnary parses prefix operators, then a primary expression and its
// postfix operators.
func (p *Parser) parseUnary() (*expression, bool) {
	tok := p.peek()
	if !p.enter(tok.Location) {
		return nil, false
	}
	defer p.leave()

	var op ir.UnaryOperator
	switch tok.Kind {
	case TokenMinus:
		op = ir.UnaryNegate
	case TokenBang:
		op = ir.UnaryLogicalNot
	case TokenTilde:
		op = ir.UnaryBitwiseNot
	case TokenPlus:
		p.advance()
		e, ok := p.parseUnary()
		if !ok {
			return nil, false
		}
		if !e.typ.IsNumeric() || e.typ.IsArray() {
			return nil, p.errorf(tok.Location, CodeInvalidOperands, "unary '+': invalid operand type '%s'", e.typ)
		}
		p.rvalue(e)
		return e, true
	case TokenPlusPlus, TokenMinusMinus:
		p.advance()
		e, ok := p.parseUnary()
		if !ok {
			return nil, false
		}
		return p.increment(tok.Location, e, tok.Kind == TokenMinusMinus, false)
	default:
		e, ok := p.parsePrimary()
		if !ok {
			return nil, false
		}
		return p.parsePostfix(e)
	}

	p.advance()
	e, ok := p.parseUnary()
	if !ok {
		return nil, false
	}
	return p.unary(tok.Location, op, e)
}

func (p *Parser) parsePostfix(e *expression) (*expression, bool) {
	for {
		tok := p.peek()
		switch tok.Kind {
		case TokenDot:
			p.advance()
			name := p.peek()
			if !p.expect(TokenIdent) {
				return nil, false
			}
			if !p.member(e, name.Lexeme, name.Location) {
				return nil, false
			}
		case TokenLeftBracket:
			p.advance()
			index, ok := p.parseExpression()
			if !ok || !p.expect(TokenRightBracket) {
				return nil, false
			}
			if !p.subscript(e, index, tok.Location) {
				return nil, false
			}
		case TokenPlusPlus, TokenMinusMinus:
			p.advance()
			var ok bool
			if e, ok = p.increment(tok.Location, e, tok.Kind == TokenMinusMinus, true); !ok {
				return nil, false
			}
		default:
			return e, true
		}
	}
}

// peekCast reports whether the token after '(' starts a type.
func (p *Parser) peekCast() bool {
	tok := p.peek()
	if _, ok := qualifierTokens[tok.Kind]; ok {
		return true
	}
	switch tok.Kind {
	case TokenType:
		return true
	case TokenIdent:
		name := tok.Lexeme
		for n := 1; p.peekAt(n).Kind == TokenColonColon && p.peekAt(n+1).Kind == TokenIdent; n += 2 {
			name += "::" + p.peekAt(n+1).Lexeme
		}
		return p.symbols.LookupStruct(name) != nil && p.symbols.LookupVariable(name) == nil
	}
	return false
}

func (p *Parser) parsePrimary() (*expression, bool) {
	tok := p.peek()
	loc := tok.Location

	switch tok.Kind {
	case TokenIntLiteral:
		p.advance()
		return constantExpr(loc, ir.TypeInt, ir.IntConstant(int32(tok.Int))), true
	case TokenUintLiteral:
		p.advance()
		return constantExpr(loc, ir.TypeUint, ir.UintConstant(tok.Int)), true
	case TokenFloatLiteral:
		p.advance()
		return constantExpr(loc, ir.TypeFloat, ir.FloatConstant(tok.Float)), true
	case TokenTrue, TokenFalse:
		p.advance()
		return constantExpr(loc, ir.TypeBool, ir.BoolConstant(tok.Kind == TokenTrue)), true

	case TokenLeftParen:
		p.advance()
		if p.peekCast() {
			// "(type)" is a cast unless the type turns out to start an
			// expression such as a constructor call.
			m := p.backup()
			var t ir.TypeInfo
			if p.parseType(&t) && p.parseArraySuffix(&t) && p.match(TokenRightParen) {
				operand, ok := p.parseUnary()
				if !ok {
					return nil, false
				}
				if !p.cast(operand, t) {
					return nil, false
				}
				operand.loc = loc
				return operand, true
			}
			p.restore(m)
		}
		e, ok := p.parseExpression()
		if !ok || !p.expect(TokenRightParen) {
			return nil, false
		}
		return e, true

	case TokenType:
		p.advance()
		t, _ := builtinType(tok.Lexeme)
		args, ok := p.parseArguments()
		if !ok {
			return nil, false
		}
		return p.constructValue(loc, t, args)

	case TokenIdent:
		name, _, _ := p.parseIdentifier()
		if p.check(TokenLeftParen) {
			args, ok := p.parseArguments()
			if !ok {
				return nil, false
			}
			return p.call(loc, name, args)
		}
		return p.reference(loc, name)

	case TokenError:
		return nil, p.lexicalError(tok)
	}
	return nil, p.unexpected("expression")
}

// reference resolves a variable name to an expression.
func (p *Parser) reference(loc ir.Location, name string) (*expression, bool) {
	v := p.symbols.LookupVariable(name)
	if v == nil {
		return nil, p.errorf(loc, CodeUndeclared, "undeclared identifier '%s'", name)
	}
	switch {
	case v.Constant != nil:
		return constantExpr(loc, v.Type, *v.Constant), true
	case v.Block:
		ptr := p.r.ConvertPointerType(v.Type.Value(), v.Storage)
		id := p.emit(loc, spirv.OpAccessChain, ptr).AddIDs(v.ID, p.r.Int(0)).Result
		e := pointerExpr(loc, v.Type, id, v.Storage)
		e.readonly = true
		return e, true
	case v.Value:
		return valueExpr(loc, v.Type, v.ID), true
	}
	e := pointerExpr(loc, v.Type, v.ID, v.Storage)
	e.readonly = v.Type.Has(ir.QualifierConst) || v.Storage == spirv.StorageClassUniformConstant
	return e, true
}

// parseArguments parses a parenthesized, comma-separated argument list.
func (p *Parser) parseArguments() ([]*expression, bool) {
	if !p.expect(TokenLeftParen) {
		return nil, false
	}
	var args []*expression
	if p.match(TokenRightParen) {
		return args, true
	}
	for {
		arg, ok := p.parseAssignment()
		if !ok {
			return nil, false
		}
		args = append(args, arg)
		if !p.match(TokenComma) {
			break
		}
	}
	return args, p.expect(TokenRightParen)
}
