package parser_test

import (
	"testing"

	"github.com/zexus-lang/zexus/pkg/ast"
	"github.com/zexus-lang/zexus/pkg/config"
	"github.com/zexus-lang/zexus/pkg/parser"
)

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	p := parser.New([]byte(src), "<test>", nil)
	prog := p.Parse()
	if !p.Diagnostics().Empty() {
		t.Fatalf("unexpected diagnostics: %v", p.Diagnostics().Items())
	}
	return prog
}

func TestParsePrintOfArithmetic(t *testing.T) {
	prog := mustParse(t, `print(string(10 + 5))`)
	if len(prog.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(prog.Statements))
	}
	print, ok := prog.Statements[0].(*ast.PrintStatement)
	if !ok || len(print.Args) != 1 {
		t.Fatalf("expected print with one argument, got %#v", prog.Statements[0])
	}
	call, ok := print.Args[0].(*ast.CallExpression)
	if !ok {
		t.Fatalf("expected string(...) call, got %#v", print.Args[0])
	}
	callee, ok := call.Callee.(*ast.Identifier)
	if !ok || callee.Name != "string" {
		t.Fatalf("expected callee 'string', got %#v", call.Callee)
	}
}

func TestParseMapLiteralMixedSeparatorsAndTrailingComma(t *testing.T) {
	prog := mustParse(t, `let m = {"a": 1, "b": 2; "c": 3,}`)
	let := prog.Statements[0].(*ast.LetStatement)
	m, ok := let.Value.(*ast.MapLiteral)
	if !ok {
		t.Fatalf("expected map literal, got %#v", let.Value)
	}
	if len(m.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(m.Entries))
	}
	for i, want := range []string{"a", "b", "c"} {
		key, ok := m.Entries[i].Key.(*ast.StringLiteral)
		if !ok || key.Value != want {
			t.Fatalf("entry %d: expected key %q, got %#v", i, want, m.Entries[i].Key)
		}
	}
}

func TestParseMapLiteralBareIdentifierKey(t *testing.T) {
	prog := mustParse(t, `let m = {a: 1, b: 2}`)
	let := prog.Statements[0].(*ast.LetStatement)
	m := let.Value.(*ast.MapLiteral)
	key, ok := m.Entries[0].Key.(*ast.StringLiteral)
	if !ok || key.Value != "a" {
		t.Fatalf("expected bare key 'a' coerced to string, got %#v", m.Entries[0].Key)
	}
}

func TestParseTryCatchVariants(t *testing.T) {
	for _, src := range []string{
		`try { 1 / 0 } catch err { print(err) }`,
		`try { 1 / 0 } catch(err) { print(err) }`,
		`try { 1 / 0 } catch((err)) { print(err) }`,
	} {
		prog := mustParse(t, src)
		tc, ok := prog.Statements[0].(*ast.TryCatchStatement)
		if !ok || tc.CatchName != "err" {
			t.Fatalf("src %q: expected catch var 'err', got %#v", src, prog.Statements[0])
		}
	}
}

func TestParseMapMethodCallWithLambda(t *testing.T) {
	prog := mustParse(t, `let doubled = [1, 2, 3, 4].map(lambda x -> x * 2)`)
	let := prog.Statements[0].(*ast.LetStatement)
	call, ok := let.Value.(*ast.MethodCallExpression)
	if !ok || call.Method != "map" {
		t.Fatalf("expected .map(...) call, got %#v", let.Value)
	}
	lambda, ok := call.Args[0].(*ast.LambdaLiteral)
	if !ok || len(lambda.Params) != 1 || lambda.Params[0] != "x" {
		t.Fatalf("expected single bare-param lambda, got %#v", call.Args[0])
	}
}

func TestParseClosureCounter(t *testing.T) {
	prog := mustParse(t, `
action make_counter() {
	let count = 0
	return lambda() -> count
}
`)
	if len(prog.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(prog.Statements))
	}
	decl, ok := prog.Statements[0].(*ast.ActionStatement)
	if !ok || decl.Name != "make_counter" {
		t.Fatalf("expected make_counter action, got %#v", prog.Statements[0])
	}
}

func TestParseEventRegisterAndEmit(t *testing.T) {
	prog := mustParse(t, `
event Ping(value)
register_event
emit Ping({value: 7})
`)
	if len(prog.Statements) != 3 {
		t.Fatalf("expected 3 statements, got %d", len(prog.Statements))
	}
	if _, ok := prog.Statements[0].(*ast.EventStatement); !ok {
		t.Fatalf("expected EventStatement, got %#v", prog.Statements[0])
	}
	emit, ok := prog.Statements[2].(*ast.EmitStatement)
	if !ok || emit.Name != "Ping" {
		t.Fatalf("expected EmitStatement Ping, got %#v", prog.Statements[2])
	}
}

func TestParseColonBlockToleratesNoBraces(t *testing.T) {
	prog := mustParse(t, "if x > 0:\n\tprint(x)\n\tprint(x)\nlet done = true")
	ifStmt, ok := prog.Statements[0].(*ast.IfStatement)
	if !ok {
		t.Fatalf("expected IfStatement, got %#v", prog.Statements[0])
	}
	if len(ifStmt.Then.Statements) != 2 {
		t.Fatalf("expected 2 statements inferred into the colon-block, got %d", len(ifStmt.Then.Statements))
	}
	if len(ifStmt.Then.Recovery) == 0 {
		t.Fatal("expected colon-block inference to be noted in Recovery")
	}
	if _, ok := prog.Statements[1].(*ast.LetStatement); !ok {
		t.Fatalf("expected the colon-block to end before the trailing let, got %#v", prog.Statements[1])
	}
}

func TestParseImportStatement(t *testing.T) {
	prog := mustParse(t, `from "collections" import stack, queue`)
	imp, ok := prog.Statements[0].(*ast.ImportStatement)
	if !ok || imp.ModulePath != "collections" || len(imp.Names) != 2 {
		t.Fatalf("expected ImportStatement with 2 names, got %#v", prog.Statements[0])
	}
}

func TestUnmatchedBraceRecoversWithDiagnostic(t *testing.T) {
	p := parser.New([]byte(`action broken( { let x = 1
let y = 2`), "<test>", nil)
	prog := p.Parse()
	if p.Diagnostics().Empty() {
		t.Fatal("expected a brace_mismatch diagnostic")
	}
	found := false
	for _, d := range p.Diagnostics().Items() {
		if d.Recovery == "brace_mismatch" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a brace_mismatch diagnostic, got %v", p.Diagnostics().Items())
	}
	// Parsing still reaches EOF and recovers enough to see the trailing let.
	var sawY bool
	for _, s := range prog.Statements {
		if let, ok := s.(*ast.LetStatement); ok && let.Name == "y" {
			sawY = true
		}
	}
	if !sawY {
		t.Fatal("expected recovery to resume and parse the trailing let y = 2")
	}
}

func TestDisablingAdvancedParsingStillParsesCleanSource(t *testing.T) {
	cfg := config.New(config.WithAdvancedParsing(false))
	p := parser.New([]byte(`let x = 1 + 2`), "<test>", cfg)
	prog := p.Parse()
	if !p.Diagnostics().Empty() {
		t.Fatalf("unexpected diagnostics: %v", p.Diagnostics().Items())
	}
	if len(prog.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(prog.Statements))
	}
}
