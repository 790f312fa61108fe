// Package lexer turns Zexus source text into a token stream shared by both
// the tolerant interpreter parser and the strict production parser.
package lexer

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/zexus-lang/zexus/pkg/zerr"
)

// Lexer is a lazy, lookahead-1 (plus PeekAt(k)) tokenizer over UTF-8
// source. Unknown characters fail with a *zerr.Error carrying position.
type Lexer struct {
	src  []byte
	file string
	pos  int
	line int
	col  int

	prevKind Kind // used to promote "async" only right after "action"

	buf []Token // lookahead ring, filled on demand by PeekAt
}

func New(src []byte, file string) *Lexer {
	return &Lexer{src: src, file: file, line: 1, col: 1, prevKind: EOF}
}

// Next consumes and returns the next token.
func (l *Lexer) Next() Token {
	if len(l.buf) > 0 {
		t := l.buf[0]
		l.buf = l.buf[1:]
		l.prevKind = t.Kind
		return t
	}
	t := l.scan()
	l.prevKind = t.Kind
	return t
}

// Peek returns, without consuming, the next token (lookahead-1).
func (l *Lexer) Peek() Token { return l.PeekAt(0) }

// PeekAt returns the k-th upcoming token (0-based) without consuming any
// tokens. Used by the tolerant parser's structural analyzer, which needs
// more than one token of lookahead to tell a map block from a statement
// block.
func (l *Lexer) PeekAt(k int) Token {
	for len(l.buf) <= k {
		l.buf = append(l.buf, l.scan())
	}
	return l.buf[k]
}

func (l *Lexer) errTok(pos zerr.Position, format string, args ...any) Token {
	return Token{Kind: Illegal, Literal: zerr.New(zerr.Lexical, pos, format, args...), Line: pos.Line, Column: pos.Column}
}

func (l *Lexer) here() zerr.Position { return zerr.Position{Line: l.line, Column: l.col, File: l.file} }

func (l *Lexer) peekByte() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekByteAt(n int) byte {
	if l.pos+n >= len(l.src) {
		return 0
	}
	return l.src[l.pos+n]
}

func (l *Lexer) advance() byte {
	ch := l.src[l.pos]
	l.pos++
	if ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return ch
}

// skipTrivia consumes whitespace and comments, returning the raw trivia
// text and whether a newline occurred within it.
func (l *Lexer) skipTrivia() (string, bool) {
	start := l.pos
	newline := false
	for l.pos < len(l.src) {
		ch := l.peekByte()
		switch {
		case ch == '\n':
			newline = true
			l.advance()
		case ch == ' ' || ch == '\t' || ch == '\r':
			l.advance()
		case ch == '/' && l.peekByteAt(1) == '/':
			for l.pos < len(l.src) && l.peekByte() != '\n' {
				l.advance()
			}
		case ch == '/' && l.peekByteAt(1) == '*':
			l.advance()
			l.advance()
			for l.pos < len(l.src) && !(l.peekByte() == '*' && l.peekByteAt(1) == '/') {
				if l.peekByte() == '\n' {
					newline = true
				}
				l.advance()
			}
			if l.pos < len(l.src) {
				l.advance()
				l.advance()
			}
		default:
			return string(l.src[start:l.pos]), newline
		}
	}
	return string(l.src[start:l.pos]), newline
}

func (l *Lexer) scan() Token {
	trivia, newline := l.skipTrivia()

	if l.pos >= len(l.src) {
		pos := l.here()
		return Token{Kind: EOF, Line: pos.Line, Column: pos.Column, Trivia: trivia, NewlineBefore: newline}
	}

	pos := l.here()
	ch := l.peekByte()

	switch {
	case ch == '{' && l.peekByteAt(1) == '|':
		return l.scanEmbedded(pos, trivia, newline)
	case isDigit(ch):
		return l.scanNumber(pos, trivia, newline)
	case isAlpha(ch):
		return l.scanIdent(pos, trivia, newline)
	case ch == '"':
		return l.scanString(pos, trivia, newline)
	}

	// multi-char operators, greedy
	two := string(ch) + string(l.peekByteAt(1))
	switch two {
	case "==":
		l.advance()
		l.advance()
		return l.tok(Eq, two, nil, pos, trivia, newline)
	case "!=":
		l.advance()
		l.advance()
		return l.tok(NotEq, two, nil, pos, trivia, newline)
	case "<=":
		l.advance()
		l.advance()
		return l.tok(LtEq, two, nil, pos, trivia, newline)
	case ">=":
		l.advance()
		l.advance()
		return l.tok(GtEq, two, nil, pos, trivia, newline)
	case "&&":
		l.advance()
		l.advance()
		return l.tok(And, two, nil, pos, trivia, newline)
	case "||":
		l.advance()
		l.advance()
		return l.tok(Or, two, nil, pos, trivia, newline)
	case "->":
		l.advance()
		l.advance()
		return l.tok(Arrow, two, nil, pos, trivia, newline)
	}

	single := map[byte]Kind{
		'(': LParen, ')': RParen, '{': LBrace, '}': RBrace,
		'[': LBracket, ']': RBracket, ',': Comma, ';': Semicolon,
		':': Colon, '.': Dot, '=': Assign, '+': Plus, '-': Minus,
		'*': Star, '/': Slash, '%': Percent, '<': Lt, '>': Gt, '!': Bang,
	}
	if k, ok := single[ch]; ok {
		l.advance()
		return l.tok(k, string(ch), nil, pos, trivia, newline)
	}

	l.advance()
	t := l.errTok(pos, "unexpected character %q", ch)
	t.Trivia, t.NewlineBefore = trivia, newline
	return t
}

func (l *Lexer) tok(kind Kind, lexeme string, literal any, pos zerr.Position, trivia string, newline bool) Token {
	return Token{Kind: kind, Lexeme: lexeme, Literal: literal, Line: pos.Line, Column: pos.Column, Trivia: trivia, NewlineBefore: newline}
}

func (l *Lexer) scanIdent(pos zerr.Position, trivia string, newline bool) Token {
	start := l.pos
	for l.pos < len(l.src) && (isAlpha(l.peekByte()) || isDigit(l.peekByte()) || l.peekByte() == '_') {
		l.advance()
	}
	lit := string(l.src[start:l.pos])
	kind := LookupIdent(lit)
	if lit == "async" && l.prevKind == Action {
		kind = Async
	}
	return l.tok(kind, lit, nil, pos, trivia, newline)
}

func (l *Lexer) scanNumber(pos zerr.Position, trivia string, newline bool) Token {
	start := l.pos
	for l.pos < len(l.src) && isDigit(l.peekByte()) {
		l.advance()
	}
	isFloat := false
	if l.peekByte() == '.' && isDigit(l.peekByteAt(1)) {
		isFloat = true
		l.advance() // '.'
		for l.pos < len(l.src) && isDigit(l.peekByte()) {
			l.advance()
		}
	} else if l.peekByte() == '.' {
		// trailing dot with no fractional digits is rejected: stop before
		// the dot and let the parser see it as its own token.
	}
	lit := string(l.src[start:l.pos])
	if isFloat {
		var f float64
		fmt.Sscanf(lit, "%g", &f)
		return l.tok(Float, lit, f, pos, trivia, newline)
	}
	n := new(big.Int)
	n.SetString(lit, 10)
	return l.tok(Int, lit, n, pos, trivia, newline)
}

func (l *Lexer) scanString(pos zerr.Position, trivia string, newline bool) Token {
	start := l.pos
	l.advance() // opening quote
	var sb strings.Builder
	for l.pos < len(l.src) && l.peekByte() != '"' {
		ch := l.advance()
		if ch != '\\' {
			sb.WriteByte(ch)
			continue
		}
		if l.pos >= len(l.src) {
			break
		}
		esc := l.advance()
		switch esc {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case '\\':
			sb.WriteByte('\\')
		case '"':
			sb.WriteByte('"')
		case 'x':
			if l.pos+1 < len(l.src) {
				hex := string(l.src[l.pos : l.pos+2])
				var b int
				if _, err := fmt.Sscanf(hex, "%02x", &b); err == nil {
					sb.WriteByte(byte(b))
				}
				l.advance()
				l.advance()
			}
		default:
			sb.WriteByte('\\')
			sb.WriteByte(esc)
		}
	}
	if l.pos >= len(l.src) {
		t := l.errTok(pos, "unterminated string literal")
		t.Trivia, t.NewlineBefore = trivia, newline
		return t
	}
	l.advance() // closing quote
	lexeme := string(l.src[start:l.pos])
	return l.tok(String, lexeme, sb.String(), pos, trivia, newline)
}

// scanEmbedded consumes a {| ... |} block. The first line inside the
// delimiters is the language tag; the remainder is the embedded text.
func (l *Lexer) scanEmbedded(pos zerr.Position, trivia string, newline bool) Token {
	l.advance() // '{'
	l.advance() // '|'
	bodyStart := l.pos
	for l.pos < len(l.src) && !(l.peekByte() == '|' && l.peekByteAt(1) == '}') {
		l.advance()
	}
	if l.pos >= len(l.src) {
		t := l.errTok(pos, "unterminated embedded block")
		t.Trivia, t.NewlineBefore = trivia, newline
		return t
	}
	body := string(l.src[bodyStart:l.pos])
	l.advance() // '|'
	l.advance() // '}'

	lang := ""
	text := body
	if idx := strings.IndexByte(body, '\n'); idx >= 0 {
		lang = strings.TrimSpace(body[:idx])
		text = body[idx+1:]
	} else {
		lang = strings.TrimSpace(body)
		text = ""
	}
	lexeme := "{|" + body + "|}"
	return l.tok(Embedded, lexeme, EmbeddedLiteral{Language: lang, Text: text}, pos, trivia, newline)
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }
func isAlpha(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}
