// Package parser implements the strict production parser: a
// hand-written Pratt/recursive-descent parser that accepts exactly the
// grammar spec.md §3 defines and rejects everything else with a
// *zerr.Error{Kind: Syntax}, no recovery attempted (§4.3).
package parser

import (
	"math/big"

	"github.com/zexus-lang/zexus/pkg/compiler/ast"
	"github.com/zexus-lang/zexus/pkg/compiler/lexer"
	"github.com/zexus-lang/zexus/pkg/zerr"
)

// precedence levels, lowest to highest.
const (
	_ int = iota
	precLowest
	precAssign
	precOr
	precAnd
	precEquals
	precCompare
	precSum
	precProduct
	precPrefix
	precCall
	precIndex
)

var precedences = map[lexer.Kind]int{
	lexer.Assign:  precAssign,
	lexer.Or:      precOr,
	lexer.And:     precAnd,
	lexer.Eq:      precEquals,
	lexer.NotEq:   precEquals,
	lexer.Lt:      precCompare,
	lexer.Gt:      precCompare,
	lexer.LtEq:    precCompare,
	lexer.GtEq:    precCompare,
	lexer.Plus:    precSum,
	lexer.Minus:   precSum,
	lexer.Star:    precProduct,
	lexer.Slash:   precProduct,
	lexer.Percent: precProduct,
	lexer.LParen:  precCall,
	lexer.Dot:     precIndex,
	lexer.LBracket: precIndex,
}

// Parser produces a CA Program from a token stream, or fails on the
// first malformed construct.
type Parser struct {
	l    *lexer.Lexer
	file string

	cur  lexer.Token
	peek lexer.Token

	prefixFns map[lexer.Kind]func() (ast.Expression, error)
	infixFns  map[lexer.Kind]func(ast.Expression) (ast.Expression, error)
}

func New(src []byte, file string) *Parser {
	p := &Parser{l: lexer.New(src, file), file: file}
	p.prefixFns = map[lexer.Kind]func() (ast.Expression, error){
		lexer.Ident:         p.parseIdentifier,
		lexer.Int:           p.parseInteger,
		lexer.Float:         p.parseFloat,
		lexer.String:        p.parseString,
		lexer.True:          p.parseBool,
		lexer.False:         p.parseBool,
		lexer.Null:          p.parseNull,
		lexer.Bang:          p.parsePrefix,
		lexer.Minus:         p.parsePrefix,
		lexer.LParen:        p.parseGrouped,
		lexer.If:            p.parseIfExpression,
		lexer.LBracket:      p.parseListLiteral,
		lexer.LBrace:        p.parseMapLiteral,
		lexer.Action:        p.parseActionLiteral,
		lexer.Lambda:        p.parseLambdaLiteral,
		lexer.Await:         p.parseAwaitExpression,
		lexer.Embedded:      p.parseEmbeddedLiteral,
		lexer.RegisterEvent: p.parseIdentifier,
	}
	p.infixFns = map[lexer.Kind]func(ast.Expression) (ast.Expression, error){
		lexer.Plus:     p.parseInfix,
		lexer.Minus:    p.parseInfix,
		lexer.Star:     p.parseInfix,
		lexer.Slash:    p.parseInfix,
		lexer.Percent:  p.parseInfix,
		lexer.Eq:       p.parseInfix,
		lexer.NotEq:    p.parseInfix,
		lexer.Lt:       p.parseInfix,
		lexer.Gt:       p.parseInfix,
		lexer.LtEq:     p.parseInfix,
		lexer.GtEq:     p.parseInfix,
		lexer.And:      p.parseInfix,
		lexer.Or:       p.parseInfix,
		lexer.Assign:   p.parseAssignment,
		lexer.LParen:   p.parseCall,
		lexer.Dot:      p.parseDot,
		lexer.LBracket: p.parseIndex,
	}
	p.next()
	p.next()
	return p
}

func (p *Parser) next() {
	p.cur = p.peek
	p.peek = p.l.Next()
}

func (p *Parser) pos() zerr.Position {
	return zerr.Position{Line: p.cur.Line, Column: p.cur.Column, File: p.file}
}

func (p *Parser) errf(format string, args ...any) error {
	return zerr.New(zerr.Syntax, p.pos(), format, args...)
}

func (p *Parser) expect(k lexer.Kind) error {
	if p.cur.Kind != k {
		return p.errf("expected %s, got %s (%q)", k, p.cur.Kind, p.cur.Lexeme)
	}
	p.next()
	return nil
}

// Parse consumes the whole token stream into a Program.
func (p *Parser) Parse() (*ast.Program, error) {
	prog := &ast.Program{}
	for p.cur.Kind != lexer.EOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		prog.Statements = append(prog.Statements, stmt)
	}
	return prog, nil
}

func (p *Parser) parseBlock() (*ast.BlockStatement, error) {
	pos := p.pos()
	if err := p.expect(lexer.LBrace); err != nil {
		return nil, err
	}
	block := &ast.BlockStatement{}
	block.Position = pos
	for p.cur.Kind != lexer.RBrace {
		if p.cur.Kind == lexer.EOF {
			return nil, p.errf("unterminated block, expected }")
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		block.Statements = append(block.Statements, stmt)
	}
	return block, p.expect(lexer.RBrace)
}

func (p *Parser) parseStatement() (ast.Statement, error) {
	switch p.cur.Kind {
	case lexer.Let:
		return p.parseLet()
	case lexer.Return:
		return p.parseReturn()
	case lexer.Print:
		return p.parseArgListStatement(lexer.Print, func(pos zerr.Position, args []ast.Expression) ast.Statement {
			return &ast.PrintStatement{Base: newBase(pos), Args: args}
		})
	case lexer.Debug:
		return p.parseArgListStatement(lexer.Debug, func(pos zerr.Position, args []ast.Expression) ast.Statement {
			return &ast.DebugStatement{Base: newBase(pos), Args: args}
		})
	case lexer.For:
		return p.parseForEach()
	case lexer.If:
		return p.parseIfStatement()
	case lexer.While:
		return p.parseWhile()
	case lexer.Try:
		return p.parseTryCatch()
	case lexer.Action:
		return p.parseActionStatement()
	case lexer.Event:
		return p.parseEvent()
	case lexer.Emit:
		return p.parseEmit()
	case lexer.Enum:
		return p.parseEnum()
	case lexer.Protocol:
		return p.parseProtocol()
	case lexer.Contract:
		return p.parseContract()
	case lexer.External:
		return p.parseExternal()
	case lexer.Export:
		return p.parseExport()
	case lexer.Use:
		return p.parseUse()
	case lexer.From:
		return p.parseImportStatement()
	case lexer.RegisterEvent:
		return p.parseExpressionStatement()
	case lexer.Screen:
		return p.parseScreenDef()
	case lexer.Component:
		return p.parseComponentDef()
	case lexer.Theme:
		return p.parseThemeDef()
	default:
		return p.parseExpressionStatement()
	}
}

func newBase(pos zerr.Position) ast.Base { return ast.Base{Position: pos} }

func (p *Parser) parseArgListStatement(kw lexer.Kind, build func(zerr.Position, []ast.Expression) ast.Statement) (ast.Statement, error) {
	pos := p.pos()
	p.next() // consume keyword
	if err := p.expect(lexer.LParen); err != nil {
		return nil, err
	}
	args, err := p.parseExpressionList(lexer.RParen)
	if err != nil {
		return nil, err
	}
	return build(pos, args), nil
}

func (p *Parser) parseLet() (ast.Statement, error) {
	pos := p.pos()
	p.next()
	if p.cur.Kind != lexer.Ident {
		return nil, p.errf("expected identifier after let, got %s", p.cur.Kind)
	}
	name := p.cur.Lexeme
	p.next()
	if err := p.expect(lexer.Assign); err != nil {
		return nil, err
	}
	val, err := p.parseExpression(precLowest)
	if err != nil {
		return nil, err
	}
	return &ast.LetStatement{Base: newBase(pos), Name: name, Value: val}, nil
}

func (p *Parser) parseReturn() (ast.Statement, error) {
	pos := p.pos()
	p.next()
	if p.atStatementEnd() {
		return &ast.ReturnStatement{Base: newBase(pos)}, nil
	}
	val, err := p.parseExpression(precLowest)
	if err != nil {
		return nil, err
	}
	return &ast.ReturnStatement{Base: newBase(pos), Value: val}, nil
}

// atStatementEnd reports whether the current token cannot begin an
// expression, used by bare "return" to distinguish it from "return x".
func (p *Parser) atStatementEnd() bool {
	switch p.cur.Kind {
	case lexer.RBrace, lexer.EOF:
		return true
	default:
		return p.cur.NewlineBefore && p.prefixFns[p.cur.Kind] == nil
	}
}

func (p *Parser) parseForEach() (ast.Statement, error) {
	pos := p.pos()
	p.next() // for
	if err := p.expect(lexer.Each); err != nil {
		return nil, err
	}
	if p.cur.Kind != lexer.Ident {
		return nil, p.errf("expected identifier in for each, got %s", p.cur.Kind)
	}
	first := p.cur.Lexeme
	p.next()
	var keyName, valueName string
	if p.cur.Kind == lexer.Comma {
		p.next()
		if p.cur.Kind != lexer.Ident {
			return nil, p.errf("expected identifier after comma in for each")
		}
		keyName, valueName = first, p.cur.Lexeme
		p.next()
	} else {
		valueName = first
	}
	if err := p.expect(lexer.In); err != nil {
		return nil, err
	}
	iter, err := p.parseExpression(precLowest)
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.ForEachStatement{Base: newBase(pos), ValueName: valueName, KeyName: keyName, Iterable: iter, Body: body}, nil
}

func (p *Parser) parseIfStatement() (ast.Statement, error) {
	pos := p.pos()
	p.next()
	cond, err := p.parseExpression(precLowest)
	if err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	stmt := &ast.IfStatement{Base: newBase(pos), Condition: cond, Then: then}
	if p.cur.Kind == lexer.Else {
		p.next()
		if p.cur.Kind == lexer.If {
			elseIf, err := p.parseIfStatement()
			if err != nil {
				return nil, err
			}
			stmt.ElseIf = elseIf.(*ast.IfStatement)
			return stmt, nil
		}
		elseBlock, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		stmt.Else = elseBlock
	}
	return stmt, nil
}

func (p *Parser) parseWhile() (ast.Statement, error) {
	pos := p.pos()
	p.next()
	cond, err := p.parseExpression(precLowest)
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.WhileStatement{Base: newBase(pos), Condition: cond, Body: body}, nil
}

func (p *Parser) parseTryCatch() (ast.Statement, error) {
	pos := p.pos()
	p.next()
	tryBlock, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.Catch); err != nil {
		return nil, err
	}
	depth := 0
	for depth < 2 && p.cur.Kind == lexer.LParen {
		depth++
		p.next()
	}
	if p.cur.Kind != lexer.Ident {
		return nil, p.errf("expected identifier in catch clause")
	}
	name := p.cur.Lexeme
	p.next()
	for ; depth > 0; depth-- {
		if err := p.expect(lexer.RParen); err != nil {
			return nil, err
		}
	}
	catchBlock, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.TryCatchStatement{Base: newBase(pos), Try: tryBlock, CatchName: name, Catch: catchBlock}, nil
}

func (p *Parser) parseParamList() ([]string, error) {
	if err := p.expect(lexer.LParen); err != nil {
		return nil, err
	}
	var params []string
	for p.cur.Kind != lexer.RParen {
		if p.cur.Kind != lexer.Ident {
			return nil, p.errf("expected parameter name, got %s", p.cur.Kind)
		}
		params = append(params, p.cur.Lexeme)
		p.next()
		if p.cur.Kind == lexer.Comma {
			p.next()
		}
	}
	return params, p.expect(lexer.RParen)
}

func (p *Parser) parseActionStatement() (ast.Statement, error) {
	pos := p.pos()
	async := false
	p.next() // action
	if p.cur.Kind == lexer.Async {
		async = true
		p.next()
	}
	if p.cur.Kind != lexer.Ident {
		return nil, p.errf("expected action name, got %s", p.cur.Kind)
	}
	name := p.cur.Lexeme
	p.next()
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.ActionStatement{Base: newBase(pos), Name: name, Params: params, Body: body, IsAsync: async}, nil
}

func (p *Parser) parseEvent() (ast.Statement, error) {
	pos := p.pos()
	p.next()
	if p.cur.Kind != lexer.Ident {
		return nil, p.errf("expected event name")
	}
	name := p.cur.Lexeme
	p.next()
	fields, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	return &ast.EventStatement{Base: newBase(pos), Name: name, Fields: fields}, nil
}

func (p *Parser) parseEmit() (ast.Statement, error) {
	pos := p.pos()
	p.next()
	if p.cur.Kind != lexer.Ident {
		return nil, p.errf("expected event name after emit")
	}
	name := p.cur.Lexeme
	p.next()
	var payload ast.Expression
	if p.cur.Kind == lexer.LParen {
		p.next()
		if p.cur.Kind == lexer.RParen {
			p.next()
			return &ast.EmitStatement{Base: newBase(pos), Name: name}, nil
		}
		val, err := p.parseExpression(precLowest)
		if err != nil {
			return nil, err
		}
		payload = val
		if err := p.expect(lexer.RParen); err != nil {
			return nil, err
		}
	}
	return &ast.EmitStatement{Base: newBase(pos), Name: name, Payload: payload}, nil
}

func (p *Parser) parseEnum() (ast.Statement, error) {
	pos := p.pos()
	p.next()
	if p.cur.Kind != lexer.Ident {
		return nil, p.errf("expected enum name")
	}
	name := p.cur.Lexeme
	p.next()
	if err := p.expect(lexer.LBrace); err != nil {
		return nil, err
	}
	var variants []string
	for p.cur.Kind != lexer.RBrace {
		if p.cur.Kind != lexer.Ident {
			return nil, p.errf("expected enum variant name")
		}
		variants = append(variants, p.cur.Lexeme)
		p.next()
		if p.cur.Kind == lexer.Comma {
			p.next()
		}
	}
	return &ast.EnumStatement{Base: newBase(pos), Name: name, Variants: variants}, p.expect(lexer.RBrace)
}

func (p *Parser) parseProtocol() (ast.Statement, error) {
	pos := p.pos()
	p.next()
	if p.cur.Kind != lexer.Ident {
		return nil, p.errf("expected protocol name")
	}
	name := p.cur.Lexeme
	p.next()
	if err := p.expect(lexer.LBrace); err != nil {
		return nil, err
	}
	var methods []ast.ProtocolMethod
	for p.cur.Kind != lexer.RBrace {
		if p.cur.Kind != lexer.Ident {
			return nil, p.errf("expected method name in protocol")
		}
		mname := p.cur.Lexeme
		p.next()
		params, err := p.parseParamList()
		if err != nil {
			return nil, err
		}
		methods = append(methods, ast.ProtocolMethod{Name: mname, Arity: len(params)})
	}
	return &ast.ProtocolStatement{Base: newBase(pos), Name: name, Methods: methods}, p.expect(lexer.RBrace)
}

func (p *Parser) parseContract() (ast.Statement, error) {
	pos := p.pos()
	p.next()
	if p.cur.Kind != lexer.Ident {
		return nil, p.errf("expected contract name")
	}
	name := p.cur.Lexeme
	p.next()
	protocol := ""
	if p.cur.Kind == lexer.Colon {
		p.next()
		if p.cur.Kind != lexer.Ident {
			return nil, p.errf("expected protocol name after ':'")
		}
		protocol = p.cur.Lexeme
		p.next()
	}
	if err := p.expect(lexer.LBrace); err != nil {
		return nil, err
	}
	var requires []ast.Expression
	for p.cur.Kind != lexer.RBrace {
		if err := p.expect(lexer.Require); err != nil {
			return nil, err
		}
		expr, err := p.parseExpression(precLowest)
		if err != nil {
			return nil, err
		}
		requires = append(requires, expr)
	}
	return &ast.ContractStatement{Base: newBase(pos), Name: name, Protocol: protocol, Requires: requires}, p.expect(lexer.RBrace)
}

func (p *Parser) parseExternal() (ast.Statement, error) {
	pos := p.pos()
	p.next()
	if p.cur.Kind != lexer.Ident {
		return nil, p.errf("expected external name")
	}
	name := p.cur.Lexeme
	p.next()
	source := ""
	if p.cur.Kind == lexer.From {
		p.next()
		if p.cur.Kind != lexer.String {
			return nil, p.errf("expected string source after from")
		}
		source = p.cur.Literal.(string)
		p.next()
	}
	return &ast.ExternalStatement{Base: newBase(pos), Name: name, Source: source}, nil
}

func (p *Parser) parseExport() (ast.Statement, error) {
	pos := p.pos()
	p.next()
	var names []string
	for {
		if p.cur.Kind != lexer.Ident {
			return nil, p.errf("expected identifier in export list")
		}
		names = append(names, p.cur.Lexeme)
		p.next()
		if p.cur.Kind != lexer.Comma {
			break
		}
		p.next()
	}
	return &ast.ExportStatement{Base: newBase(pos), Names: names}, nil
}

func (p *Parser) parseUse() (ast.Statement, error) {
	pos := p.pos()
	p.next()
	if p.cur.Kind != lexer.String {
		return nil, p.errf("expected module path string after use")
	}
	path := p.cur.Literal.(string)
	p.next()
	alias := ""
	if p.cur.Kind == lexer.Ident && p.cur.Lexeme == "as" {
		p.next()
		if p.cur.Kind != lexer.Ident {
			return nil, p.errf("expected alias identifier after as")
		}
		alias = p.cur.Lexeme
		p.next()
	}
	return &ast.UseStatement{Base: newBase(pos), ModulePath: path, Alias: alias}, nil
}

func (p *Parser) parseImportStatement() (ast.Statement, error) {
	pos := p.pos()
	p.next() // from
	if p.cur.Kind != lexer.String {
		return nil, p.errf("expected module path string after from")
	}
	path := p.cur.Literal.(string)
	p.next()
	if !(p.cur.Kind == lexer.Ident && p.cur.Lexeme == "import") {
		return nil, p.errf("expected import after module path")
	}
	p.next()
	var names []string
	for {
		if p.cur.Kind != lexer.Ident {
			return nil, p.errf("expected identifier in import list")
		}
		names = append(names, p.cur.Lexeme)
		p.next()
		if p.cur.Kind != lexer.Comma {
			break
		}
		p.next()
	}
	return &ast.ImportStatement{Base: newBase(pos), Names: names, ModulePath: path}, nil
}

func (p *Parser) parseScreenDef() (ast.Statement, error) {
	pos := p.pos()
	p.next()
	if p.cur.Kind != lexer.Ident {
		return nil, p.errf("expected screen name")
	}
	name := p.cur.Lexeme
	p.next()
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.ScreenDef{Base: newBase(pos), Name: name, Body: body}, nil
}

func (p *Parser) parseComponentDef() (ast.Statement, error) {
	pos := p.pos()
	p.next()
	if p.cur.Kind != lexer.Ident {
		return nil, p.errf("expected component name")
	}
	name := p.cur.Lexeme
	p.next()
	var params []string
	if p.cur.Kind == lexer.LParen {
		var err error
		params, err = p.parseParamList()
		if err != nil {
			return nil, err
		}
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.ComponentDef{Base: newBase(pos), Name: name, Params: params, Body: body}, nil
}

func (p *Parser) parseThemeDef() (ast.Statement, error) {
	pos := p.pos()
	p.next()
	if p.cur.Kind != lexer.Ident {
		return nil, p.errf("expected theme name")
	}
	name := p.cur.Lexeme
	p.next()
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.ThemeDef{Base: newBase(pos), Name: name, Body: body}, nil
}

func (p *Parser) parseExpressionStatement() (ast.Statement, error) {
	pos := p.pos()
	expr, err := p.parseExpression(precLowest)
	if err != nil {
		return nil, err
	}
	return &ast.ExpressionStatement{Base: newBase(pos), Expr: expr}, nil
}

// ---- expressions -------------------------------------------------------

func (p *Parser) parseExpression(prec int) (ast.Expression, error) {
	prefix, ok := p.prefixFns[p.cur.Kind]
	if !ok {
		return nil, p.errf("unexpected token %s (%q) in expression position", p.cur.Kind, p.cur.Lexeme)
	}
	left, err := prefix()
	if err != nil {
		return nil, err
	}
	for prec < precedences[p.cur.Kind] {
		infix, ok := p.infixFns[p.cur.Kind]
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

func (p *Parser) parseExpressionList(end lexer.Kind) ([]ast.Expression, error) {
	var list []ast.Expression
	for p.cur.Kind != end {
		expr, err := p.parseExpression(precLowest)
		if err != nil {
			return nil, err
		}
		list = append(list, expr)
		if p.cur.Kind == lexer.Comma {
			p.next()
			continue
		}
		break
	}
	return list, p.expect(end)
}

func (p *Parser) parseIdentifier() (ast.Expression, error) {
	id := &ast.Identifier{Base: newBase(p.pos()), Name: p.cur.Lexeme}
	p.next()
	return id, nil
}

func (p *Parser) parseInteger() (ast.Expression, error) {
	lit := &ast.IntegerLiteral{Base: newBase(p.pos()), Value: p.cur.Literal.(*big.Int)}
	p.next()
	return lit, nil
}

func (p *Parser) parseFloat() (ast.Expression, error) {
	lit := &ast.FloatLiteral{Base: newBase(p.pos()), Value: p.cur.Literal.(float64)}
	p.next()
	return lit, nil
}

func (p *Parser) parseString() (ast.Expression, error) {
	lit := &ast.StringLiteral{Base: newBase(p.pos()), Value: p.cur.Literal.(string)}
	p.next()
	return lit, nil
}

func (p *Parser) parseBool() (ast.Expression, error) {
	lit := &ast.BoolLiteral{Base: newBase(p.pos()), Value: p.cur.Kind == lexer.True}
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
	op := p.cur.Lexeme
	p.next()
	right, err := p.parseExpression(precPrefix)
	if err != nil {
		return nil, err
	}
	return &ast.PrefixExpression{Base: newBase(pos), Operator: op, Right: right}, nil
}

func (p *Parser) parseInfix(left ast.Expression) (ast.Expression, error) {
	pos := p.pos()
	op := p.cur.Lexeme
	prec := precedences[p.cur.Kind]
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

func (p *Parser) parseListLiteral() (ast.Expression, error) {
	pos := p.pos()
	p.next()
	elems, err := p.parseExpressionList(lexer.RBracket)
	if err != nil {
		return nil, err
	}
	return &ast.ListLiteral{Base: newBase(pos), Elements: elems}, nil
}

func (p *Parser) parseMapLiteral() (ast.Expression, error) {
	pos := p.pos()
	p.next() // '{'
	var entries []ast.MapEntry
	for p.cur.Kind != lexer.RBrace {
		key, err := p.parseExpression(precLowest)
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.Colon); err != nil {
			return nil, err
		}
		val, err := p.parseExpression(precLowest)
		if err != nil {
			return nil, err
		}
		entries = append(entries, ast.MapEntry{Key: key, Value: val})
		if p.cur.Kind == lexer.Comma {
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
	if p.cur.Kind == lexer.Async {
		async = true
		p.next()
	}
	name := ""
	if p.cur.Kind == lexer.Ident {
		name = p.cur.Lexeme
		p.next()
	}
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.ActionLiteral{Base: newBase(pos), Name: name, Params: params, Body: body, IsAsync: async}, nil
}

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
	lit := p.cur.Literal.(lexer.EmbeddedLiteral)
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
	if p.cur.Kind != lexer.Ident {
		return nil, p.errf("expected property or method name after '.'")
	}
	name := p.cur.Lexeme
	p.next()
	if p.cur.Kind == lexer.LParen {
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
