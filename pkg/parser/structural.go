package parser

import (
	"github.com/zexus-lang/zexus/pkg/compiler/lexer"
	"github.com/zexus-lang/zexus/pkg/diagnostics"
	"github.com/zexus-lang/zexus/pkg/zerr"
)

// braceKind classifies a matched '{ ... }' span per the structural
// analyzer's tie-break rule (a): a brace immediately after '=', ':' or
// ',' opens a map block, otherwise a statement block (§4.2.1).
type braceKind uint8

const (
	braceStatement braceKind = iota
	braceMap
)

// structural is the result of the single left-to-right brace-depth pass
// over the whole token stream. It does not itself build AST; it gives
// the context-stack parser a classification table for every matched
// brace pair and reports every unmatched brace as a brace_mismatch
// diagnostic up front, independent of how far recursive descent gets
// (§4.2.1, §4.2.3(c)).
type structural struct {
	kind  map[int]braceKind
	match map[int]int // open index <-> close index, both directions
}

// analyzeStructure runs the structural analyzer. toks must end with an
// EOF token. Diagnostics for unmatched braces are appended to diags;
// parsing continues to EOF regardless (the tolerant parser never
// aborts before EOF, §4.2).
func analyzeStructure(toks []lexer.Token, file string, diags *diagnostics.Bag) *structural {
	st := &structural{kind: map[int]braceKind{}, match: map[int]int{}}
	var stack []int
	for i, t := range toks {
		switch t.Kind {
		case lexer.LBrace:
			k := braceStatement
			if i > 0 {
				switch toks[i-1].Kind {
				case lexer.Assign, lexer.Colon, lexer.Comma:
					k = braceMap
				}
			}
			st.kind[i] = k
			stack = append(stack, i)
		case lexer.RBrace:
			if len(stack) == 0 {
				diags.Addf(zerr.Syntax, tokPos(t, file), "brace_mismatch", "unmatched closing brace")
				continue
			}
			open := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			st.match[open] = i
			st.match[i] = open
		}
	}
	for _, open := range stack {
		diags.Addf(zerr.Syntax, tokPos(toks[open], file), "brace_mismatch", "unterminated block, no matching closing brace")
	}
	return st
}

func tokPos(t lexer.Token, file string) zerr.Position {
	return zerr.Position{Line: t.Line, Column: t.Column, File: file}
}

// kindOf reports the classification of the brace opened at openIdx. It
// is safe to call with an index that isn't a known open brace; it then
// reports braceStatement, the harmless default.
func (s *structural) kindOf(openIdx int) braceKind { return s.kind[openIdx] }

// severelyMalformed reports whether the pass found enough unmatched
// braces that recursive descent is unlikely to track real structure,
// the trigger for the plain-Pratt fallback (§4.2.4): more unmatched
// opening braces than threshold. Stray closing braces are not counted.
func (s *structural) severelyMalformed(threshold int) bool {
	unmatchedOpens := 0
	for open := range s.kind {
		if _, ok := s.match[open]; !ok {
			unmatchedOpens++
		}
	}
	return unmatchedOpens > threshold
}
