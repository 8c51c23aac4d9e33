package effect

import (
	"github.com/gogpu/fxc/ir"
	"github.com/gogpu/fxc/spirv"
)

// functionContext tracks the function whose body is being parsed.
type functionContext struct {
	info *ir.FunctionInfo
	// Body instructions start at this index of the scratch section.
	bodyStart  int
	terminated bool
	loops      []jumpTargets
}

// jumpTargets are the blocks break and continue branch to. Switches have
// no continue target of their own.
type jumpTargets struct {
	breakLabel    ir.ID
	continueLabel ir.ID
}

func (p *Parser) label(loc ir.Location, id ir.ID) {
	p.b.AddNodeWithID(spirv.SectionTemporary, loc, spirv.OpLabel, 0, id)
	p.fn.terminated = false
}

// branch ends the current block with a jump unless it already ended.
func (p *Parser) branch(loc ir.Location, target ir.ID) {
	if p.fn.terminated {
		return
	}
	p.emitWithoutResult(loc, spirv.OpBranch).AddIDs(target)
	p.fn.terminated = true
}

func (p *Parser) terminate(loc ir.Location, op spirv.OpCode) *spirv.Instruction {
	inst := p.emitWithoutResult(loc, op)
	p.fn.terminated = true
	return inst
}

func (p *Parser) pushLoop(breakLabel, continueLabel ir.ID) {
	p.fn.loops = append(p.fn.loops, jumpTargets{breakLabel, continueLabel})
}

func (p *Parser) popLoop() {
	p.fn.loops = p.fn.loops[:len(p.fn.loops)-1]
}

// parseStatement parses one statement of a function body.
func (p *Parser) parseStatement() bool {
	tok := p.peek()
	if !p.enter(tok.Location) {
		return false
	}
	defer p.leave()

	if !p.skipAttributes() {
		return false
	}
	tok = p.peek()
	loc := tok.Location

	// Code after a return or jump goes to an unreachable block.
	if p.fn.terminated && tok.Kind != TokenRightBrace {
		p.label(loc, p.b.AllocID())
	}

	switch tok.Kind {
	case TokenSemicolon:
		p.advance()
		return true
	case TokenLeftBrace:
		p.symbols.EnterScope()
		defer p.symbols.LeaveScope()
		return p.parseBlock()
	case TokenIf:
		return p.parseIf()
	case TokenWhile:
		return p.parseWhile()
	case TokenDo:
		return p.parseDoWhile()
	case TokenFor:
		return p.parseFor()
	case TokenSwitch:
		return p.parseSwitch()
	case TokenBreak, TokenContinue:
		p.advance()
		return p.parseJump(tok) && p.expect(TokenSemicolon)
	case TokenReturn:
		return p.parseReturn()
	case TokenDiscard:
		p.advance()
		p.terminate(loc, spirv.OpKill)
		return p.expect(TokenSemicolon)
	case TokenError:
		return p.lexicalError(tok)
	}

	if p.peekTypeName() {
		return p.parseLocalVariables()
	}
	if _, ok := p.parseExpression(); !ok {
		return false
	}
	return p.expect(TokenSemicolon)
}

// skipAttributes skips "[name]" and "[name(args)]" statement attributes.
func (p *Parser) skipAttributes() bool {
	for p.check(TokenLeftBracket) {
		p.advance()
		if !p.expect(TokenIdent) {
			return false
		}
		if p.match(TokenLeftParen) {
			for !p.check(TokenRightParen) && !p.isAtEnd() {
				p.advance()
			}
			if !p.expect(TokenRightParen) {
				return false
			}
		}
		if !p.expect(TokenRightBracket) {
			return false
		}
	}
	return true
}

// parseBlock parses "{ statements }". A failing statement is skipped to
// its semicolon and parsing continues; the errors stay recorded.
func (p *Parser) parseBlock() bool {
	if !p.expect(TokenLeftBrace) {
		return false
	}
	for !p.check(TokenRightBrace) && !p.isAtEnd() {
		if !p.parseStatement() {
			p.consumeStatement()
		}
	}
	return p.expect(TokenRightBrace)
}

// consumeStatement skips past the next semicolon at the current brace
// depth, stopping early in front of a brace that closes the block.
func (p *Parser) consumeStatement() {
	depth := 0
	for !p.isAtEnd() {
		switch p.peek().Kind {
		case TokenLeftBrace:
			depth++
		case TokenRightBrace:
			if depth == 0 {
				return
			}
			depth--
			if depth == 0 {
				p.advance()
				return
			}
		case TokenSemicolon:
			if depth == 0 {
				p.advance()
				return
			}
		}
		p.advance()
	}
}

// parseCondition parses "( expression )" and returns its bool value.
func (p *Parser) parseCondition() (ir.ID, bool) {
	if !p.expect(TokenLeftParen) {
		return 0, false
	}
	e, ok := p.parseExpression()
	if !ok || !p.expect(TokenRightParen) {
		return 0, false
	}
	return p.condition(e)
}

func (p *Parser) parseIf() bool {
	loc := p.advance().Location
	cond, ok := p.parseCondition()
	if !ok {
		return false
	}

	merge, then := p.b.AllocID(), p.b.AllocID()
	otherwise := merge
	p.emitWithoutResult(loc, spirv.OpSelectionMerge).AddIDs(merge).Add(uint32(spirv.SelectionControlNone))
	inst := p.terminate(loc, spirv.OpBranchConditional).AddIDs(cond, then)

	p.label(loc, then)
	ok = p.parseScopedStatement()
	p.branch(loc, merge)

	if p.check(TokenElse) {
		elseLoc := p.advance().Location
		otherwise = p.b.AllocID()
		p.label(elseLoc, otherwise)
		ok = p.parseScopedStatement() && ok
		p.branch(elseLoc, merge)
	}
	inst.AddIDs(otherwise)

	p.label(loc, merge)
	return ok
}

// parseScopedStatement parses a statement in its own scope, as the bodies
// of control statements are.
func (p *Parser) parseScopedStatement() bool {
	p.symbols.EnterScope()
	defer p.symbols.LeaveScope()
	return p.parseStatement()
}

// loopHeader opens a loop: the header block carrying the merge
// instruction, which branches to next.
func (p *Parser) loopHeader(loc ir.Location, header, merge, cont, next ir.ID) {
	p.branch(loc, header)
	p.label(loc, header)
	p.emitWithoutResult(loc, spirv.OpLoopMerge).AddIDs(merge, cont).Add(uint32(spirv.LoopControlNone))
	p.terminate(loc, spirv.OpBranch).AddIDs(next)
}

func (p *Parser) parseWhile() bool {
	loc := p.advance().Location
	header, check, body, cont, merge := p.b.AllocID(), p.b.AllocID(), p.b.AllocID(), p.b.AllocID(), p.b.AllocID()

	p.loopHeader(loc, header, merge, cont, check)
	p.label(loc, check)
	cond, ok := p.parseCondition()
	if !ok {
		return false
	}
	p.terminate(loc, spirv.OpBranchConditional).AddIDs(cond, body, merge)

	p.label(loc, body)
	p.pushLoop(merge, cont)
	ok = p.parseScopedStatement()
	p.popLoop()
	p.branch(loc, cont)

	p.label(loc, cont)
	p.branch(loc, header)
	p.label(loc, merge)
	return ok
}

func (p *Parser) parseDoWhile() bool {
	loc := p.advance().Location
	header, body, cont, merge := p.b.AllocID(), p.b.AllocID(), p.b.AllocID(), p.b.AllocID()

	p.loopHeader(loc, header, merge, cont, body)
	p.label(loc, body)
	p.pushLoop(merge, cont)
	ok := p.parseScopedStatement()
	p.popLoop()
	p.branch(loc, cont)

	p.label(loc, cont)
	if !ok || !p.expect(TokenWhile) {
		return false
	}
	cond, ok := p.parseCondition()
	if !ok {
		return false
	}
	p.terminate(loc, spirv.OpBranchConditional).AddIDs(cond, header, merge)
	p.label(loc, merge)
	return p.expect(TokenSemicolon)
}

// parseFor lowers "for (init; cond; iter) body". The iterator is parsed
// after the body, in the continue block, by revisiting its tokens.
func (p *Parser) parseFor() bool {
	loc := p.advance().Location
	if !p.expect(TokenLeftParen) {
		return false
	}
	p.symbols.EnterScope()
	defer p.symbols.LeaveScope()

	switch {
	case p.match(TokenSemicolon):
	case p.peekTypeName():
		if !p.parseLocalVariables() {
			return false
		}
	default:
		if _, ok := p.parseExpression(); !ok || !p.expect(TokenSemicolon) {
			return false
		}
	}

	header, check, body, cont, merge := p.b.AllocID(), p.b.AllocID(), p.b.AllocID(), p.b.AllocID(), p.b.AllocID()
	p.loopHeader(loc, header, merge, cont, check)
	p.label(loc, check)
	if p.check(TokenSemicolon) {
		p.terminate(loc, spirv.OpBranch).AddIDs(body)
	} else {
		e, ok := p.parseExpression()
		if !ok {
			return false
		}
		cond, ok := p.condition(e)
		if !ok {
			return false
		}
		p.terminate(loc, spirv.OpBranchConditional).AddIDs(cond, body, merge)
	}
	if !p.expect(TokenSemicolon) {
		return false
	}

	iterator := p.current
	for depth := 0; !p.isAtEnd(); p.advance() {
		if p.check(TokenLeftParen) {
			depth++
		} else if p.check(TokenRightParen) {
			if depth == 0 {
				break
			}
			depth--
		}
	}
	if !p.expect(TokenRightParen) {
		return false
	}

	p.label(loc, body)
	p.pushLoop(merge, cont)
	ok := p.parseScopedStatement()
	p.popLoop()
	p.branch(loc, cont)

	p.label(loc, cont)
	resume := p.current
	p.current = iterator
	if !p.check(TokenRightParen) {
		if _, iterOK := p.parseExpression(); !iterOK {
			ok = false
		}
	}
	p.current = resume
	p.branch(loc, header)
	p.label(loc, merge)
	return ok
}

func (p *Parser) parseSwitch() bool {
	loc := p.advance().Location
	if !p.expect(TokenLeftParen) {
		return false
	}
	e, ok := p.parseExpression()
	if !ok || !p.expect(TokenRightParen) {
		return false
	}
	if !e.typ.IsScalar() {
		return p.errorf(e.loc, CodeTypeMismatch, "switch selector must be a scalar, found '%s'", e.typ)
	}
	if !e.typ.IsIntegral() && !p.implicitConvert(e, ir.TypeInt) {
		return false
	}
	selector := p.load(e)

	merge := p.b.AllocID()
	p.emitWithoutResult(loc, spirv.OpSelectionMerge).AddIDs(merge).Add(uint32(spirv.SelectionControlNone))
	sw := p.terminate(loc, spirv.OpSwitch).AddIDs(selector, merge)

	// break leaves the switch; continue still targets the enclosing loop.
	cont := ir.ID(0)
	if n := len(p.fn.loops); n > 0 {
		cont = p.fn.loops[n-1].continueLabel
	}
	p.pushLoop(merge, cont)
	defer p.popLoop()

	if !p.expect(TokenLeftBrace) {
		return false
	}
	p.symbols.EnterScope()
	defer p.symbols.LeaveScope()

	seen := make(map[uint32]bool)
	hasDefault := false
	ok = true
	for !p.check(TokenRightBrace) && !p.isAtEnd() {
		tok := p.peek()
		if tok.Kind != TokenCase && tok.Kind != TokenDefault {
			if !p.parseStatement() {
				ok = false
				p.consumeStatement()
			}
			continue
		}

		p.advance()
		block := p.b.AllocID()
		if tok.Kind == TokenDefault {
			if hasDefault {
				ok = p.errorf(tok.Location, CodeRedefinition, "duplicate default label in switch statement")
			}
			hasDefault = true
			sw.Operands[1] = uint32(block)
		} else {
			value, valueOK := p.parseCaseValue()
			if !valueOK {
				ok = false
				p.consumeStatement()
				continue
			}
			if seen[value] {
				ok = p.errorf(tok.Location, CodeRedefinition, "duplicate case %d in switch statement", int32(value))
			}
			seen[value] = true
			sw.Add(value).AddIDs(block)
		}
		if !p.expect(TokenColon) {
			ok = false
		}
		// Falling through from the previous case.
		p.branch(tok.Location, block)
		p.label(tok.Location, block)
	}
	p.branch(loc, merge)
	p.label(loc, merge)
	return p.expect(TokenRightBrace) && ok
}

// parseCaseValue parses a constant case label as a 32-bit literal.
func (p *Parser) parseCaseValue() (uint32, bool) {
	mark := p.b.Mark()
	e, ok := p.parseTernary()
	p.b.Truncate(mark)
	if !ok {
		return 0, false
	}
	if e.constant == nil || !e.typ.IsScalar() {
		return 0, p.errorf(e.loc, CodeNotConstant, "case expression must be a literal scalar expression")
	}
	if !e.typ.IsIntegral() {
		p.convert(e, ir.TypeInt)
	}
	return e.constant.Uint(0), true
}

func (p *Parser) parseJump(tok Token) bool {
	for i := len(p.fn.loops) - 1; i >= 0; i-- {
		target := p.fn.loops[i]
		if tok.Kind == TokenBreak {
			p.branch(tok.Location, target.breakLabel)
			return true
		}
		if target.continueLabel != 0 {
			p.branch(tok.Location, target.continueLabel)
			return true
		}
	}
	if tok.Kind == TokenBreak {
		return p.errorf(tok.Location, CodeSyntax, "break must be inside loop or switch")
	}
	return p.errorf(tok.Location, CodeSyntax, "continue must be inside loop")
}

func (p *Parser) parseReturn() bool {
	loc := p.advance().Location
	ret := p.fn.info.ReturnType
	if p.match(TokenSemicolon) {
		if !ret.IsVoid() {
			return p.errorf(loc, CodeReturnMismatch, "function must return a value")
		}
		p.terminate(loc, spirv.OpReturn)
		return true
	}

	e, ok := p.parseExpression()
	if !ok {
		return false
	}
	if ret.IsVoid() {
		return p.errorf(e.loc, CodeReturnMismatch, "void functions cannot return a value")
	}
	if !ir.RankConversion(e.typ, ret.Value()).Convertible() {
		return p.errorf(e.loc, CodeReturnMismatch, "cannot implicitly convert return value from '%s' to '%s'", e.typ, ret.Value())
	}
	if !p.implicitConvert(e, ret) {
		return false
	}
	value := p.load(e)
	p.terminate(loc, spirv.OpReturnValue).AddIDs(value)
	return p.expect(TokenSemicolon)
}
