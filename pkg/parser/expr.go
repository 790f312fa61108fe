package parser

import (
	"math/big"

	"github.com/zexus-lang/zexus/pkg/ast"
	"github.com/zexus-lang/zexus/pkg/compiler/lexer"
)

// parseExpression is the shared Pratt loop, identical in shape and
// precedence to the production parser's (§4.2, last paragraph).
func (p *Parser) parseExpression(prec int) (ast.Expression, error) {
	prefix, ok := p.prefixFns[p.cur().Kind]
	if !ok {
		return nil, p.errf("unexpected token %s (%q) in expression position", p.cur().Kind, p.cur().Lexeme)
	}
	left, err := prefix()
	if err != nil {
		return nil, err
	}
	for prec < precedences[p.cur().Kind] {
		infix, ok := p.infixFns[p.cur().Kind]
		if !ok {
			return left, nil
		}
		left, err = infix(left)
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (p *Parser) parseIdentifier() (ast.Expression, error) {
	id := &ast.Identifier{Base: newBase(p.pos()), Name: p.cur().Lexeme}
	p.next()
	return id, nil
}

func (p *Parser) parseInteger() (ast.Expression, error) {
	v, _ := p.cur().Literal.(*big.Int)
	if v == nil {
		v = new(big.Int)
	}
	lit := &ast.IntegerLiteral{Base: newBase(p.pos()), Value: v}
	p.next()
	return lit, nil
}

func (p *Parser) parseFloat() (ast.Expression, error) {
	v, _ := p.cur().Literal.(float64)
	lit := &ast.FloatLiteral{Base: newBase(p.pos()), Value: v}
	p.next()
	return lit, nil
}

func (p *Parser) parseString() (ast.Expression, error) {
	v, _ := p.cur().Literal.(string)
	lit := &ast.StringLiteral{Base: newBase(p.pos()), Value: v}
	p.next()
	return lit, nil
}

func (p *Parser) parseBool() (ast.Expression, error) {
	lit := &ast.BoolLiteral{Base: newBase(p.pos()), Value: p.cur().Kind == lexer.True}
	p.next()
	return lit, nil
}

func (p *Parser) parseNull() (ast.Expression, error) {
	lit := &ast.NullLiteral{Base: newBase(p.pos())}
	p.next()
	return lit, nil
}

func (p *Parser) parsePrefix() (ast.Expression, error) {
	pos := p.pos()
	op := p.cur().Lexeme
	p.next()
	right, err := p.parseExpression(precPrefix)
	if err != nil {
		return nil, err
	}
	return &ast.PrefixExpression{Base: newBase(pos), Operator: op, Right: right}, nil
}

func (p *Parser) parseInfix(left ast.Expression) (ast.Expression, error) {
	pos := p.pos()
	op := p.cur().Lexeme
	prec := precedences[p.cur().Kind]
	p.next()
	right, err := p.parseExpression(prec)
	if err != nil {
		return nil, err
	}
	return &ast.InfixExpression{Base: newBase(pos), Operator: op, Left: left, Right: right}, nil
}

func (p *Parser) parseAssignment(left ast.Expression) (ast.Expression, error) {
	pos := p.pos()
	p.next() // '='
	val, err := p.parseExpression(precAssign - 1)
	if err != nil {
		return nil, err
	}
	return &ast.AssignmentExpression{Base: newBase(pos), Target: left, Value: val}, nil
}

func (p *Parser) parseGrouped() (ast.Expression, error) {
	p.next() // '('
	expr, err := p.parseExpression(precLowest)
	if err != nil {
		return nil, err
	}
	return expr, p.expect(lexer.RParen)
}

func (p *Parser) parseIfExpression() (ast.Expression, error) {
	pos := p.pos()
	p.next()
	cond, err := p.parseExpression(precLowest)
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.LBrace); err != nil {
		return nil, err
	}
	then, err := p.parseExpression(precLowest)
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.RBrace); err != nil {
		return nil, err
	}
	if err := p.expect(lexer.Else); err != nil {
		return nil, err
	}
	if err := p.expect(lexer.LBrace); err != nil {
		return nil, err
	}
	elseExpr, err := p.parseExpression(precLowest)
	if err != nil {
		return nil, err
	}
	return &ast.IfExpression{Base: newBase(pos), Condition: cond, Then: then, Else: elseExpr}, p.expect(lexer.RBrace)
}

// parseListLiteral relies on parseExpressionList's loop shape (comma
// consumed, then re-checked against the closing delimiter) to tolerate
// a bare trailing comma for free.
func (p *Parser) parseListLiteral() (ast.Expression, error) {
	pos := p.pos()
	p.next()
	elems, err := p.parseExpressionList(lexer.RBracket)
	if err != nil {
		return nil, err
	}
	return &ast.ListLiteral{Base: newBase(pos), Elements: elems}, nil
}

// parseMapLiteral implements the map-entry tolerances (§4.2): entries
// may be separated by ',' or ';', a trailing separator before the
// closing brace is accepted, and a bare identifier in key position is
// coerced to a string key rather than parsed as a variable reference.
func (p *Parser) parseMapLiteral() (ast.Expression, error) {
	pos := p.pos()
	p.next() // '{'
	p.push(ctxMapEntry)
	defer p.pop()
	var entries []ast.MapEntry
	for p.cur().Kind != lexer.RBrace && p.cur().Kind != lexer.EOF {
		var key ast.Expression
		if p.cur().Kind == lexer.Ident && p.peek().Kind == lexer.Colon {
			key = &ast.StringLiteral{Base: newBase(p.pos()), Value: p.cur().Lexeme}
			p.next()
		} else {
			k, err := p.parseExpression(precLowest)
			if err != nil {
				return nil, err
			}
			key = k
		}
		if err := p.expect(lexer.Colon); err != nil {
			return nil, err
		}
		val, err := p.parseExpression(precLowest)
		if err != nil {
			return nil, err
		}
		entries = append(entries, ast.MapEntry{Key: key, Value: val})
		if p.cur().Kind == lexer.Comma || p.cur().Kind == lexer.Semicolon {
			p.next()
			continue
		}
		break
	}
	return &ast.MapLiteral{Base: newBase(pos), Entries: entries}, p.expect(lexer.RBrace)
}

func (p *Parser) parseActionLiteral() (ast.Expression, error) {
	pos := p.pos()
	async := false
	p.next() // action
	if p.cur().Kind == lexer.Async {
		async = true
		p.next()
	}
	name := ""
	if p.cur().Kind == lexer.Ident {
		name = p.cur().Lexeme
		p.next()
	}
	params, err := p.parseActionParamList()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.ActionLiteral{Base: newBase(pos), Name: name, Params: params, Body: body, IsAsync: async}, nil
}

// parseLambdaLiteral accepts the bare-parameter tolerance (`lambda x ->
// expr`) via parseParamList, which falls back to a single identifier
// when it doesn't see an opening paren.
func (p *Parser) parseLambdaLiteral() (ast.Expression, error) {
	pos := p.pos()
	p.next() // lambda
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.Arrow); err != nil {
		return nil, err
	}
	body, err := p.parseExpression(precLowest)
	if err != nil {
		return nil, err
	}
	return &ast.LambdaLiteral{Base: newBase(pos), Params: params, Body: body}, nil
}

func (p *Parser) parseAwaitExpression() (ast.Expression, error) {
	pos := p.pos()
	p.next()
	val, err := p.parseExpression(precPrefix)
	if err != nil {
		return nil, err
	}
	return &ast.AwaitExpression{Base: newBase(pos), Value: val}, nil
}

func (p *Parser) parseEmbeddedLiteral() (ast.Expression, error) {
	pos := p.pos()
	lit, _ := p.cur().Literal.(lexer.EmbeddedLiteral)
	p.next()
	return &ast.EmbeddedLiteral{Base: newBase(pos), Language: lit.Language, Source: lit.Text}, nil
}

func (p *Parser) parseCall(callee ast.Expression) (ast.Expression, error) {
	pos := p.pos()
	p.next() // '('
	args, err := p.parseExpressionList(lexer.RParen)
	if err != nil {
		return nil, err
	}
	return &ast.CallExpression{Base: newBase(pos), Callee: callee, Args: args}, nil
}

func (p *Parser) parseDot(receiver ast.Expression) (ast.Expression, error) {
	pos := p.pos()
	p.next() // '.'
	if p.cur().Kind != lexer.Ident {
		return nil, p.errf("expected property or method name after '.'")
	}
	name := p.cur().Lexeme
	p.next()
	if p.cur().Kind == lexer.LParen {
		p.next()
		args, err := p.parseExpressionList(lexer.RParen)
		if err != nil {
			return nil, err
		}
		return &ast.MethodCallExpression{Base: newBase(pos), Receiver: receiver, Method: name, Args: args}, nil
	}
	return &ast.PropertyAccessExpression{Base: newBase(pos), Receiver: receiver, Property: name}, nil
}

func (p *Parser) parseIndex(receiver ast.Expression) (ast.Expression, error) {
	pos := p.pos()
	p.next() // '['
	idx, err := p.parseExpression(precLowest)
	if err != nil {
		return nil, err
	}
	return &ast.IndexExpression{Base: newBase(pos), Receiver: receiver, Index: idx}, p.expect(lexer.RBracket)
}
