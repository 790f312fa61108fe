// Package parser implements the tolerant multi-strategy parser: tokens
// to the interpreter AST (IA), consuming the whole stream and always
// producing a Program, with a possibly non-empty diagnostics bag
// (§2, §4.2). It is deliberately distinct from pkg/compiler/parser,
// the strict production parser that shares the same expression
// grammar but aborts on the first hard error.
//
// Strategy, in order:
//
//  1. Structural analyzer (structural.go): a brace-depth pass over the
//     whole token stream classifying every matched '{ ... }' span as a
//     map or a statement block and reporting brace_mismatch
//     diagnostics for anything unmatched.
//  2. Context-stack parser (this file and expr.go): ordinary
//     recursive descent, but every entry into a block pushes a named
//     context (statement, expression, map-entry, catch-var) so the
//     recovery engine knows what it was trying to parse when it gives
//     up on a token.
//  3. Recovery engine (recovery.go): on an unexpected token, records a
//     diagnostic, drops tokens up to a synchronization point, and
//     resumes rather than aborting.
//  4. Fallback: when config.EnableAdvancedParsing is off, or the
//     structural pass finds the brace structure too damaged to trust,
//     the structural table is simply not built or consulted and
//     parsing proceeds as plain Pratt recursive descent with the same
//     recovery engine — steps 2 and 3 alone.
package parser

import (
	"github.com/zexus-lang/zexus/pkg/ast"
	"github.com/zexus-lang/zexus/pkg/compiler/lexer"
	"github.com/zexus-lang/zexus/pkg/config"
	"github.com/zexus-lang/zexus/pkg/diagnostics"
	"github.com/zexus-lang/zexus/pkg/zerr"
)

// precedence levels, identical to the production parser (§4.2, last
// paragraph: "expression grammar precedence... identical" to §4.3).
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
	lexer.Assign:   precAssign,
	lexer.Or:       precOr,
	lexer.And:      precAnd,
	lexer.Eq:       precEquals,
	lexer.NotEq:    precEquals,
	lexer.Lt:       precCompare,
	lexer.Gt:       precCompare,
	lexer.LtEq:     precCompare,
	lexer.GtEq:     precCompare,
	lexer.Plus:     precSum,
	lexer.Minus:    precSum,
	lexer.Star:     precProduct,
	lexer.Slash:    precProduct,
	lexer.Percent:  precProduct,
	lexer.LParen:   precCall,
	lexer.Dot:      precIndex,
	lexer.LBracket: precIndex,
}

// context names what grammar position the parser currently expects, so
// the recovery engine can report it and so callers can tell a
// statement-position failure from a map-entry-position one. Pushed and
// popped around the regions §4.2.2 names.
type context string

const (
	ctxStatement context = "statement"
	ctxExpression context = "expression"
	ctxMapEntry   context = "map-entry"
	ctxCatchVar   context = "catch-var"
)

// Parser produces an IA Program from the whole of a token stream. It
// never returns a parse error to its caller; malformed regions are
// recorded in Diagnostics and skipped.
type Parser struct {
	toks []lexer.Token
	i    int
	file string
	cfg  *config.Config

	st    *structural
	diags *diagnostics.Bag

	ctxStack []context

	prefixFns map[lexer.Kind]func() (ast.Expression, error)
	infixFns  map[lexer.Kind]func(ast.Expression) (ast.Expression, error)
}

// New buffers the whole token stream up front (tolerant parsing needs
// more than one lookahead token to classify braces, and the structural
// pass is a whole-file pre-scan). cfg may be nil, meaning
// config.Default().
func New(src []byte, file string, cfg *config.Config) *Parser {
	if cfg == nil {
		cfg = config.Default()
	}
	l := lexer.New(src, file)
	var toks []lexer.Token
	for {
		t := l.Next()
		toks = append(toks, t)
		if t.Kind == lexer.EOF {
			break
		}
	}
	p := &Parser{toks: toks, file: file, cfg: cfg, diags: &diagnostics.Bag{}}
	p.buildFns()
	if cfg.EnableAdvancedParsing {
		p.st = analyzeStructure(toks, file, p.diags)
		if p.st.severelyMalformed(len(toks)/4 + 4) {
			// Step 4: deeply malformed input. Discard the structural
			// table and fall back to plain recursive descent; the
			// brace_mismatch diagnostics already collected stand.
			p.st = nil
		}
	}
	return p
}

func (p *Parser) buildFns() {
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
}

// Diagnostics returns the accumulated bag after Parse. An empty bag
// does not mean the production parser accepts the same source: colon
// blocks, for one, parse here without a diagnostic and are rejected
// by pkg/compiler/parser.
func (p *Parser) Diagnostics() *diagnostics.Bag { return p.diags }

func (p *Parser) cur() lexer.Token  { return p.toks[p.i] }
func (p *Parser) peek() lexer.Token { return p.toks[min(p.i+1, len(p.toks)-1)] }
func (p *Parser) peekAt(k int) lexer.Token {
	return p.toks[min(p.i+k, len(p.toks)-1)]
}

func (p *Parser) next() {
	if p.i < len(p.toks)-1 {
		p.i++
	}
}

func (p *Parser) pos() zerr.Position { return tokPos(p.cur(), p.file) }

func (p *Parser) push(c context) { p.ctxStack = append(p.ctxStack, c) }
func (p *Parser) pop() {
	if len(p.ctxStack) > 0 {
		p.ctxStack = p.ctxStack[:len(p.ctxStack)-1]
	}
}
func (p *Parser) topContext() context {
	if len(p.ctxStack) == 0 {
		return ctxStatement
	}
	return p.ctxStack[len(p.ctxStack)-1]
}

func (p *Parser) errf(format string, args ...any) error {
	return zerr.New(zerr.Syntax, p.pos(), format, args...)
}

func (p *Parser) expect(k lexer.Kind) error {
	if p.cur().Kind != k {
		return p.errf("expected %s, got %s (%q)", k, p.cur().Kind, p.cur().Lexeme)
	}
	p.next()
	return nil
}

func newBase(pos zerr.Position) ast.Base { return ast.Base{Position: pos} }

// Parse consumes the whole token stream into a Program. It never
// fails: statements that cannot be parsed are skipped by the recovery
// engine and noted in Diagnostics, never omitted silently.
func (p *Parser) Parse() *ast.Program {
	prog := &ast.Program{}
	p.push(ctxStatement)
	for p.cur().Kind != lexer.EOF {
		p.skipStraySeparators()
		if p.cur().Kind == lexer.EOF {
			break
		}
		if p.cur().Kind == lexer.RBrace {
			// A stray closing brace at top level: the structural pass
			// already recorded the brace_mismatch; drop it and move on.
			p.next()
			continue
		}
		stmt, err := p.parseStatement()
		if err != nil {
			p.recover(err)
			continue
		}
		if stmt != nil {
			prog.Statements = append(prog.Statements, stmt)
		}
	}
	p.pop()
	return prog
}

// skipStraySeparators drops any run of semicolons between statements,
// the first enumerated tolerance (§4.2 Tolerances accepted).
func (p *Parser) skipStraySeparators() {
	for p.cur().Kind == lexer.Semicolon {
		p.next()
	}
}

func (p *Parser) parseBlock() (*ast.BlockStatement, error) {
	pos := p.pos()
	if p.cur().Kind != lexer.LBrace {
		return p.parseColonBlock(pos)
	}
	p.next()
	block := &ast.BlockStatement{Base: newBase(pos)}
	p.parseStatementsUntil(&block.Statements, func() bool {
		return p.cur().Kind == lexer.RBrace || p.cur().Kind == lexer.EOF
	})
	if p.cur().Kind != lexer.RBrace {
		ast.AddRecovery(block, "block truncated: expected closing brace before EOF")
		return block, nil
	}
	p.next()
	return block, nil
}

// parseStatementsUntil fills dst with statements parsed one at a time,
// recovering from each failure independently, until stop() reports
// true. This is the shared body every block-bearing construct (if,
// while, for-each, try/catch, action body, colon-block) funnels
// through.
func (p *Parser) parseStatementsUntil(dst *[]ast.Statement, stop func() bool) {
	for !stop() {
		p.skipStraySeparators()
		if stop() {
			return
		}
		stmt, err := p.parseStatement()
		if err != nil {
			p.recover(err)
			continue
		}
		if stmt != nil {
			*dst = append(*dst, stmt)
		}
	}
}

// parseColonBlock implements the colon-style block tolerance: `if
// cond: stmt stmt ...`. There is no indentation contract in the token
// stream, so the end of the block is inferred per the Design Notes
// heuristic (§9 "Colon-block end rule"): the block ends at the first
// statement whose leading token starts a new line left of the column
// of the block's first statement, or at that same column when it is a
// top-level construct keyword (recorded as an ambiguity diagnostic),
// or at the enclosing block's closing brace, or at EOF — whichever
// comes first. A body that starts on the colon's own line holds only
// that one statement. Because this is an
// inference rather than an explicit terminator, the resulting node is
// marked via AddRecovery.
func (p *Parser) parseColonBlock(pos zerr.Position) (*ast.BlockStatement, error) {
	if err := p.expect(lexer.Colon); err != nil {
		return nil, err
	}
	block := &ast.BlockStatement{Base: newBase(pos)}
	if p.cur().Kind == lexer.LBrace {
		// `if cond: { ... }` — colon immediately followed by a normal
		// brace block; the end is explicit, no inference needed.
		p.next()
		p.parseStatementsUntil(&block.Statements, func() bool {
			return p.cur().Kind == lexer.RBrace || p.cur().Kind == lexer.EOF
		})
		if p.cur().Kind == lexer.RBrace {
			p.next()
		}
		return block, nil
	}
	ast.AddRecovery(block, "colon-block body inferred without explicit delimiter")
	startCol := p.cur().Column
	sameLine := !p.cur().NewlineBefore
	p.parseStatementsUntil(&block.Statements, func() bool {
		if p.cur().Kind == lexer.RBrace || p.cur().Kind == lexer.EOF {
			return true
		}
		if len(block.Statements) == 0 {
			return false
		}
		if sameLine {
			// `if cond: stmt` all on one line ends after that one
			// statement — the next token, whatever it is, starts a new
			// one (§4.2 colon-block tolerance, single-statement form).
			return true
		}
		// Multi-line form: the block continues over statements at the
		// same column and ends at the first dedent, the enclosing
		// block's own construct keywords being the ambiguous case the
		// Design Notes call out for a diagnostic.
		if p.cur().NewlineBefore && p.cur().Column < startCol {
			return true
		}
		if p.cur().NewlineBefore && p.cur().Column == startCol && topLevelConstructKeyword(p.cur().Kind) {
			p.diags.Addf(zerr.Syntax, p.pos(), "colon-block-end-ambiguous",
				"colon-block body end inferred before %s at the same indentation", p.cur().Kind)
			return true
		}
		return false
	})
	return block, nil
}

// topLevelConstructKeyword reports whether kind unambiguously starts a
// new top-level construct rather than a statement that could
// legitimately continue a colon-block body at the same indentation.
func topLevelConstructKeyword(k lexer.Kind) bool {
	switch k {
	case lexer.Action, lexer.Event, lexer.Enum, lexer.Protocol, lexer.Contract,
		lexer.External, lexer.Export, lexer.Use, lexer.From, lexer.Screen,
		lexer.Component, lexer.Theme:
		return true
	default:
		return false
	}
}

func (p *Parser) parseStatement() (ast.Statement, error) {
	switch p.cur().Kind {
	case lexer.Let:
		return p.parseLet()
	case lexer.Return:
		return p.parseReturn()
	case lexer.Print:
		return p.parseArgListStatement(func(pos zerr.Position, args []ast.Expression) ast.Statement {
			return &ast.PrintStatement{Base: newBase(pos), Args: args}
		})
	case lexer.Debug:
		return p.parseArgListStatement(func(pos zerr.Position, args []ast.Expression) ast.Statement {
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
		return p.parseImport()
	case lexer.RegisterEvent:
		return p.parseExpressionStatement()
	case lexer.Screen:
		return p.parseScreenDef()
	case lexer.Component:
		return p.parseComponentDef()
	case lexer.Theme:
		return p.parseThemeDef()
	case lexer.Exactly:
		return p.parseExactly()
	default:
		return p.parseExpressionStatement()
	}
}

// parseExactly covers the `exactly` keyword: spec.md's Open Questions
// instruct implementers not to guess its semantics, so it parses into
// a bare expression statement over its own identifier and the
// evaluator surfaces a clear SyntaxError at the node's position.
func (p *Parser) parseExactly() (ast.Statement, error) {
	pos := p.pos()
	p.next()
	return &ast.ExpressionStatement{Base: newBase(pos), Expr: &ast.Identifier{Base: newBase(pos), Name: "exactly"}}, nil
}

func (p *Parser) parseArgListStatement(build func(zerr.Position, []ast.Expression) ast.Statement) (ast.Statement, error) {
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
	if p.cur().Kind != lexer.Ident {
		return nil, p.errf("expected identifier after let, got %s", p.cur().Kind)
	}
	name := p.cur().Lexeme
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

func (p *Parser) atStatementEnd() bool {
	switch p.cur().Kind {
	case lexer.RBrace, lexer.EOF, lexer.Semicolon:
		return true
	default:
		return p.cur().NewlineBefore && p.prefixFns[p.cur().Kind] == nil
	}
}

func (p *Parser) parseForEach() (ast.Statement, error) {
	pos := p.pos()
	p.next() // for
	if err := p.expect(lexer.Each); err != nil {
		return nil, err
	}
	if p.cur().Kind != lexer.Ident {
		return nil, p.errf("expected identifier in for each, got %s", p.cur().Kind)
	}
	first := p.cur().Lexeme
	p.next()
	var keyName, valueName string
	if p.cur().Kind == lexer.Comma {
		p.next()
		if p.cur().Kind != lexer.Ident {
			return nil, p.errf("expected identifier after comma in for each")
		}
		keyName, valueName = first, p.cur().Lexeme
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
	if p.cur().Kind == lexer.Else {
		p.next()
		if p.cur().Kind == lexer.If {
			elseIf, err := p.parseIfStatement()
			if err != nil {
				return nil, err
			}
			stmt.ElseIf, _ = elseIf.(*ast.IfStatement)
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

// parseTryCatch implements the try/catch tolerances (§4.2): `catch`
// binds to the preceding `try` block regardless of intervening
// newlines (tie-break rule (b) — satisfied for free, since whitespace
// is trivia rather than a token), and the catch variable may be
// written bare, single-parenthesized or double-parenthesized.
func (p *Parser) parseTryCatch() (ast.Statement, error) {
	pos := p.pos()
	p.next()
	tryBlock, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	if p.cur().Kind != lexer.Catch {
		return nil, p.errf("expected catch after try block, got %s", p.cur().Kind)
	}
	p.next()
	p.push(ctxCatchVar)
	name, err := p.parseCatchVar()
	p.pop()
	if err != nil {
		return nil, err
	}
	catchBlock, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.TryCatchStatement{Base: newBase(pos), Try: tryBlock, CatchName: name, Catch: catchBlock}, nil
}

func (p *Parser) parseCatchVar() (string, error) {
	if p.cur().Kind != lexer.LParen {
		if p.cur().Kind != lexer.Ident {
			return "", p.errf("expected identifier after catch, got %s", p.cur().Kind)
		}
		name := p.cur().Lexeme
		p.next()
		return name, nil
	}
	p.next() // '('
	doubled := false
	if p.cur().Kind == lexer.LParen {
		doubled = true
		p.next()
	}
	if p.cur().Kind != lexer.Ident {
		return "", p.errf("expected identifier in catch clause, got %s", p.cur().Kind)
	}
	name := p.cur().Lexeme
	p.next()
	if doubled {
		if err := p.expect(lexer.RParen); err != nil {
			return "", err
		}
	}
	return name, p.expect(lexer.RParen)
}

func (p *Parser) parseParamList() ([]string, error) {
	if p.cur().Kind != lexer.LParen {
		// `lambda x -> expr`: single bare parameter, no parens (§4.2
		// Tolerances accepted).
		if p.cur().Kind == lexer.Ident {
			name := p.cur().Lexeme
			p.next()
			return []string{name}, nil
		}
		return nil, p.errf("expected parameter list, got %s", p.cur().Kind)
	}
	p.next()
	var params []string
	for p.cur().Kind != lexer.RParen {
		if p.cur().Kind != lexer.Ident {
			return nil, p.errf("expected parameter name, got %s", p.cur().Kind)
		}
		params = append(params, p.cur().Lexeme)
		p.next()
		if p.cur().Kind == lexer.Comma {
			p.next()
		}
	}
	return params, p.expect(lexer.RParen)
}

func (p *Parser) parseActionStatement() (ast.Statement, error) {
	pos := p.pos()
	async := false
	p.next() // action
	if p.cur().Kind == lexer.Async {
		async = true
		p.next()
	}
	if p.cur().Kind != lexer.Ident {
		return nil, p.errf("expected action name, got %s", p.cur().Kind)
	}
	name := p.cur().Lexeme
	p.next()
	params, err := p.parseActionParamList()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.ActionStatement{Base: newBase(pos), Name: name, Params: params, Body: body, IsAsync: async}, nil
}

// parseActionParamList requires an explicit parenthesized list (unlike
// parseParamList, used for lambdas where the bare-identifier tolerance
// applies).
func (p *Parser) parseActionParamList() ([]string, error) {
	if p.cur().Kind != lexer.LParen {
		return nil, p.errf("expected parameter list, got %s", p.cur().Kind)
	}
	p.next()
	var params []string
	for p.cur().Kind != lexer.RParen {
		if p.cur().Kind != lexer.Ident {
			return nil, p.errf("expected parameter name, got %s", p.cur().Kind)
		}
		params = append(params, p.cur().Lexeme)
		p.next()
		if p.cur().Kind == lexer.Comma {
			p.next()
		}
	}
	return params, p.expect(lexer.RParen)
}

func (p *Parser) parseEvent() (ast.Statement, error) {
	pos := p.pos()
	p.next()
	if p.cur().Kind != lexer.Ident {
		return nil, p.errf("expected event name")
	}
	name := p.cur().Lexeme
	p.next()
	fields, err := p.parseActionParamList()
	if err != nil {
		return nil, err
	}
	return &ast.EventStatement{Base: newBase(pos), Name: name, Fields: fields}, nil
}

func (p *Parser) parseEmit() (ast.Statement, error) {
	pos := p.pos()
	p.next()
	if p.cur().Kind != lexer.Ident {
		return nil, p.errf("expected event name after emit")
	}
	name := p.cur().Lexeme
	p.next()
	var payload ast.Expression
	if p.cur().Kind == lexer.LParen || p.cur().Kind == lexer.LBrace {
		wrapped := p.cur().Kind == lexer.LParen
		if wrapped {
			p.next()
		}
		val, err := p.parseExpression(precLowest)
		if err != nil {
			return nil, err
		}
		payload = val
		if wrapped {
			if err := p.expect(lexer.RParen); err != nil {
				return nil, err
			}
		}
	}
	return &ast.EmitStatement{Base: newBase(pos), Name: name, Payload: payload}, nil
}

func (p *Parser) parseEnum() (ast.Statement, error) {
	pos := p.pos()
	p.next()
	if p.cur().Kind != lexer.Ident {
		return nil, p.errf("expected enum name")
	}
	name := p.cur().Lexeme
	p.next()
	if err := p.expect(lexer.LBrace); err != nil {
		return nil, err
	}
	var variants []string
	for p.cur().Kind != lexer.RBrace {
		if p.cur().Kind != lexer.Ident {
			return nil, p.errf("expected enum variant name")
		}
		variants = append(variants, p.cur().Lexeme)
		p.next()
		if p.cur().Kind == lexer.Comma || p.cur().Kind == lexer.Semicolon {
			p.next()
		}
	}
	return &ast.EnumStatement{Base: newBase(pos), Name: name, Variants: variants}, p.expect(lexer.RBrace)
}

func (p *Parser) parseProtocol() (ast.Statement, error) {
	pos := p.pos()
	p.next()
	if p.cur().Kind != lexer.Ident {
		return nil, p.errf("expected protocol name")
	}
	name := p.cur().Lexeme
	p.next()
	if err := p.expect(lexer.LBrace); err != nil {
		return nil, err
	}
	var methods []ast.ProtocolMethod
	for p.cur().Kind != lexer.RBrace {
		if p.cur().Kind != lexer.Ident {
			return nil, p.errf("expected method name in protocol")
		}
		mname := p.cur().Lexeme
		p.next()
		params, err := p.parseActionParamList()
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
	if p.cur().Kind != lexer.Ident {
		return nil, p.errf("expected contract name")
	}
	name := p.cur().Lexeme
	p.next()
	protocol := ""
	if p.cur().Kind == lexer.Colon {
		p.next()
		if p.cur().Kind != lexer.Ident {
			return nil, p.errf("expected protocol name after ':'")
		}
		protocol = p.cur().Lexeme
		p.next()
	}
	if err := p.expect(lexer.LBrace); err != nil {
		return nil, err
	}
	var requires []ast.Expression
	for p.cur().Kind != lexer.RBrace {
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
	if p.cur().Kind != lexer.Ident {
		return nil, p.errf("expected external name")
	}
	name := p.cur().Lexeme
	p.next()
	source := ""
	if p.cur().Kind == lexer.From {
		p.next()
		if p.cur().Kind != lexer.String {
			return nil, p.errf("expected string source after from")
		}
		source, _ = p.cur().Literal.(string)
		p.next()
	}
	return &ast.ExternalStatement{Base: newBase(pos), Name: name, Source: source}, nil
}

func (p *Parser) parseExport() (ast.Statement, error) {
	pos := p.pos()
	p.next()
	var names []string
	for {
		if p.cur().Kind != lexer.Ident {
			return nil, p.errf("expected identifier in export list")
		}
		names = append(names, p.cur().Lexeme)
		p.next()
		if p.cur().Kind != lexer.Comma {
			break
		}
		p.next()
	}
	return &ast.ExportStatement{Base: newBase(pos), Names: names}, nil
}

func (p *Parser) parseUse() (ast.Statement, error) {
	pos := p.pos()
	p.next()
	if p.cur().Kind != lexer.String {
		return nil, p.errf("expected module path string after use")
	}
	path, _ := p.cur().Literal.(string)
	p.next()
	alias := ""
	if p.cur().Kind == lexer.Ident && p.cur().Lexeme == "as" {
		p.next()
		if p.cur().Kind != lexer.Ident {
			return nil, p.errf("expected alias identifier after as")
		}
		alias = p.cur().Lexeme
		p.next()
	}
	return &ast.UseStatement{Base: newBase(pos), ModulePath: path, Alias: alias}, nil
}

// parseImport implements `from "modulePath" import a, b` (SUPPLEMENTED
// FEATURES: the zpm-style named-import form; `import` is not a
// reserved keyword, so it is matched by lexeme the same way `as` is in
// parseUse).
func (p *Parser) parseImport() (ast.Statement, error) {
	pos := p.pos()
	p.next() // from
	if p.cur().Kind != lexer.String {
		return nil, p.errf("expected module path string after from")
	}
	path, _ := p.cur().Literal.(string)
	p.next()
	if !(p.cur().Kind == lexer.Ident && p.cur().Lexeme == "import") {
		return nil, p.errf("expected import after module path")
	}
	p.next()
	var names []string
	for {
		if p.cur().Kind != lexer.Ident {
			return nil, p.errf("expected identifier in import list")
		}
		names = append(names, p.cur().Lexeme)
		p.next()
		if p.cur().Kind != lexer.Comma {
			break
		}
		p.next()
	}
	return &ast.ImportStatement{Base: newBase(pos), Names: names, ModulePath: path}, nil
}

func (p *Parser) parseScreenDef() (ast.Statement, error) {
	pos := p.pos()
	p.next()
	if p.cur().Kind != lexer.Ident {
		return nil, p.errf("expected screen name")
	}
	name := p.cur().Lexeme
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
	if p.cur().Kind != lexer.Ident {
		return nil, p.errf("expected component name")
	}
	name := p.cur().Lexeme
	p.next()
	var params []string
	if p.cur().Kind == lexer.LParen {
		var err error
		params, err = p.parseActionParamList()
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
	if p.cur().Kind != lexer.Ident {
		return nil, p.errf("expected theme name")
	}
	name := p.cur().Lexeme
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

func (p *Parser) parseExpressionList(end lexer.Kind) ([]ast.Expression, error) {
	var list []ast.Expression
	for p.cur().Kind != end {
		expr, err := p.parseExpression(precLowest)
		if err != nil {
			return nil, err
		}
		list = append(list, expr)
		if p.cur().Kind == lexer.Comma {
			p.next()
			continue
		}
		break
	}
	return list, p.expect(end)
}
