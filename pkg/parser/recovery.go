package parser

import (
	"github.com/zexus-lang/zexus/pkg/compiler/lexer"
	"github.com/zexus-lang/zexus/pkg/zerr"
)

// errKind recovers the zerr.Kind carried by a parser error, defaulting
// to Syntax for anything else (there shouldn't be anything else, since
// p.errf always builds a *zerr.Error, but this keeps recover total).
func errKind(err error) zerr.Kind {
	if ze, ok := err.(*zerr.Error); ok {
		return ze.Kind
	}
	return zerr.Syntax
}

// recover implements the recovery engine (§4.2.3): record a
// diagnostic naming the context the parser was in, then synchronize by
// scanning forward from the failure point, dropping tokens, until it
// finds a safe place to resume:
//
//   - a ';' at the current block's brace depth (consumed), or
//   - a newline at the current block's brace depth (left in place), or
//   - the enclosing block's own closing brace (left in place for the
//     caller's loop to see), or
//   - EOF (left in place).
//
// Depth tracking consults the structural table, when one is available,
// so a brace the structural pass already flagged as unmatched doesn't
// make every following token look like it is nested one level deeper
// forever; an unmatched '{' is treated as if it wasn't there rather
// than as an open scope that can never close.
//
// The statement that failed to parse is simply dropped; the tolerant
// parser accepts the resulting gap rather than synthesizing a
// placeholder node.
func (p *Parser) recover(cause error) {
	p.diags.Addf(
		errKind(cause),
		p.pos(),
		"sync-to-statement-boundary",
		"%s (in %s): %s", "parse error", p.topContext(), cause,
	)
	depth := 0
	for {
		switch p.cur().Kind {
		case lexer.EOF:
			return
		case lexer.LBrace:
			if p.braceHasMatch(p.i) {
				depth++
			}
			p.next()
		case lexer.RBrace:
			if depth == 0 {
				return
			}
			depth--
			p.next()
		case lexer.Semicolon:
			p.next()
			if depth == 0 {
				return
			}
		default:
			if depth == 0 && p.cur().NewlineBefore {
				return
			}
			p.next()
		}
	}
}

// braceHasMatch reports whether the '{' at token index i has a
// corresponding '}' per the structural pass. With no structural table
// (advanced parsing disabled, or the source too damaged to trust) it
// trusts blind nesting instead, the plain recursive-descent behavior.
func (p *Parser) braceHasMatch(i int) bool {
	if p.st == nil {
		return true
	}
	_, ok := p.st.match[i]
	return ok
}
