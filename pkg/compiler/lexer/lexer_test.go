package lexer_test

import (
	"testing"

	"github.com/zexus-lang/zexus/pkg/compiler/lexer"
)

func collect(src string) []lexer.Token {
	l := lexer.New([]byte(src), "<test>")
	var toks []lexer.Token
	for {
		t := l.Next()
		toks = append(toks, t)
		if t.Kind == lexer.EOF {
			break
		}
	}
	return toks
}

func TestRoundTrip(t *testing.T) {
	src := "let  x = 10 + 5\nprint(x)"
	toks := collect(src)
	var rebuilt string
	for _, tok := range toks {
		rebuilt += tok.Trivia + tok.Lexeme
	}
	if rebuilt != src {
		t.Fatalf("round trip mismatch:\n got: %q\nwant: %q", rebuilt, src)
	}
}

func TestKeywordsAndIdents(t *testing.T) {
	toks := collect("let action async x")
	kinds := []lexer.Kind{lexer.Let, lexer.Action, lexer.Async, lexer.Ident, lexer.EOF}
	if len(toks) != len(kinds) {
		t.Fatalf("expected %d tokens, got %d (%v)", len(kinds), len(toks), toks)
	}
	for i, k := range kinds {
		if toks[i].Kind != k {
			t.Errorf("token %d: expected %s, got %s", i, k, toks[i].Kind)
		}
	}
}

func TestAsyncOnlyAfterAction(t *testing.T) {
	toks := collect("async")
	if toks[0].Kind != lexer.Ident {
		t.Fatalf("expected bare 'async' to lex as Ident, got %s", toks[0].Kind)
	}
}

func TestNumberLiterals(t *testing.T) {
	toks := collect("10 3.14 10.")
	if toks[0].Kind != lexer.Int {
		t.Fatalf("expected Int, got %s", toks[0].Kind)
	}
	if toks[1].Kind != lexer.Float {
		t.Fatalf("expected Float, got %s", toks[1].Kind)
	}
	// "10." rejects the trailing dot: Int then a separate Dot token.
	if toks[2].Kind != lexer.Int || toks[3].Kind != lexer.Dot {
		t.Fatalf("expected Int then Dot for trailing-dot literal, got %s, %s", toks[2].Kind, toks[3].Kind)
	}
}

func TestStringEscapes(t *testing.T) {
	toks := collect(`"a\nb\t\"c\""`)
	got := toks[0].Literal.(string)
	want := "a\nb\t\"c\""
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestEmbeddedBlock(t *testing.T) {
	toks := collect("{|python\nprint('hi')\n|}")
	if toks[0].Kind != lexer.Embedded {
		t.Fatalf("expected Embedded token, got %s", toks[0].Kind)
	}
	lit := toks[0].Literal.(lexer.EmbeddedLiteral)
	if lit.Language != "python" {
		t.Fatalf("expected language 'python', got %q", lit.Language)
	}
}

func TestPeekAt(t *testing.T) {
	l := lexer.New([]byte("let x = 1"), "<t>")
	if l.PeekAt(2).Kind != lexer.Assign {
		t.Fatalf("expected PeekAt(2) to be '=', got %s", l.PeekAt(2).Kind)
	}
	if l.Next().Kind != lexer.Let {
		t.Fatal("Next() should still return the first token after PeekAt")
	}
}

func TestUnknownCharacterFails(t *testing.T) {
	toks := collect("let x = 1 § 2")
	found := false
	for _, tok := range toks {
		if tok.Kind == lexer.Illegal {
			found = true
		}
	}
	if !found {
		t.Fatal("expected an Illegal token for unknown character")
	}
}
