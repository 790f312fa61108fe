package parser_test

import (
	"testing"

	"github.com/zexus-lang/zexus/pkg/compiler/ast"
	"github.com/zexus-lang/zexus/pkg/compiler/parser"
)

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	p := parser.New([]byte(src), "<test>")
	prog, err := p.Parse()
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	return prog
}

func TestParseLetAndArithmetic(t *testing.T) {
	prog := mustParse(t, "let x = 1 + 2 * 3")
	if len(prog.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(prog.Statements))
	}
	let, ok := prog.Statements[0].(*ast.LetStatement)
	if !ok {
		t.Fatalf("expected *ast.LetStatement, got %T", prog.Statements[0])
	}
	infix, ok := let.Value.(*ast.InfixExpression)
	if !ok || infix.Operator != "+" {
		t.Fatalf("expected top-level '+', got %#v", let.Value)
	}
	right, ok := infix.Right.(*ast.InfixExpression)
	if !ok || right.Operator != "*" {
		t.Fatalf("expected '*' to bind tighter than '+', got %#v", infix.Right)
	}
}

func TestParseIfElseIfChain(t *testing.T) {
	prog := mustParse(t, `if a { print(1) } else if b { print(2) } else { print(3) }`)
	stmt, ok := prog.Statements[0].(*ast.IfStatement)
	if !ok {
		t.Fatalf("expected *ast.IfStatement, got %T", prog.Statements[0])
	}
	if stmt.ElseIf == nil || stmt.ElseIf.Else == nil {
		t.Fatal("expected an else-if chain terminating in an else block")
	}
}

func TestParseActionDeclarationAndCall(t *testing.T) {
	prog := mustParse(t, `action add(a, b) { return a + b }
add(1, 2)`)
	if len(prog.Statements) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(prog.Statements))
	}
	decl, ok := prog.Statements[0].(*ast.ActionStatement)
	if !ok || decl.Name != "add" || len(decl.Params) != 2 {
		t.Fatalf("unexpected action decl: %#v", prog.Statements[0])
	}
	exprStmt, ok := prog.Statements[1].(*ast.ExpressionStatement)
	if !ok {
		t.Fatalf("expected expression statement, got %T", prog.Statements[1])
	}
	call, ok := exprStmt.Expr.(*ast.CallExpression)
	if !ok || len(call.Args) != 2 {
		t.Fatalf("expected call with 2 args, got %#v", exprStmt.Expr)
	}
}

func TestParseAsyncOnlyValidAfterAction(t *testing.T) {
	prog := mustParse(t, `action async fetch() { return 1 }`)
	decl, ok := prog.Statements[0].(*ast.ActionStatement)
	if !ok || !decl.IsAsync {
		t.Fatalf("expected async action declaration, got %#v", prog.Statements[0])
	}
}

func TestParseListAndMapLiterals(t *testing.T) {
	prog := mustParse(t, `let m = {"a": 1, "b": 2}
let l = [1, 2, 3]`)
	letMap := prog.Statements[0].(*ast.LetStatement)
	mapLit, ok := letMap.Value.(*ast.MapLiteral)
	if !ok || len(mapLit.Entries) != 2 {
		t.Fatalf("expected map literal with 2 entries, got %#v", letMap.Value)
	}
	letList := prog.Statements[1].(*ast.LetStatement)
	listLit, ok := letList.Value.(*ast.ListLiteral)
	if !ok || len(listLit.Elements) != 3 {
		t.Fatalf("expected list literal with 3 elements, got %#v", letList.Value)
	}
}

func TestParseMethodCallAndPropertyAccess(t *testing.T) {
	prog := mustParse(t, `x.push(1)
y.name`)
	call := prog.Statements[0].(*ast.ExpressionStatement).Expr.(*ast.MethodCallExpression)
	if call.Method != "push" || len(call.Args) != 1 {
		t.Fatalf("unexpected method call: %#v", call)
	}
	prop := prog.Statements[1].(*ast.ExpressionStatement).Expr.(*ast.PropertyAccessExpression)
	if prop.Property != "name" {
		t.Fatalf("unexpected property access: %#v", prop)
	}
}

func TestParseLambdaLiteral(t *testing.T) {
	prog := mustParse(t, `let sq = lambda (x) -> x * x`)
	let := prog.Statements[0].(*ast.LetStatement)
	lam, ok := let.Value.(*ast.LambdaLiteral)
	if !ok || len(lam.Params) != 1 {
		t.Fatalf("expected lambda literal, got %#v", let.Value)
	}
}

func TestParseTryCatch(t *testing.T) {
	prog := mustParse(t, `try { risky() } catch (e) { print(e) }`)
	tc, ok := prog.Statements[0].(*ast.TryCatchStatement)
	if !ok || tc.CatchName != "e" {
		t.Fatalf("expected try/catch binding 'e', got %#v", prog.Statements[0])
	}
}

func TestParseForEachWithKeyValue(t *testing.T) {
	prog := mustParse(t, `for each k, v in m { print(k) }`)
	fe, ok := prog.Statements[0].(*ast.ForEachStatement)
	if !ok || fe.KeyName != "k" || fe.ValueName != "v" {
		t.Fatalf("unexpected for-each binding: %#v", prog.Statements[0])
	}
}

func TestParseRejectsMalformedInput(t *testing.T) {
	p := parser.New([]byte("let = 1"), "<test>")
	if _, err := p.Parse(); err == nil {
		t.Fatal("expected a syntax error for a let statement missing its name")
	}
}

func TestParseEventAndEmit(t *testing.T) {
	prog := mustParse(t, `event Tick(count)
emit Tick({"count": 1})`)
	ev, ok := prog.Statements[0].(*ast.EventStatement)
	if !ok || ev.Name != "Tick" || len(ev.Fields) != 1 {
		t.Fatalf("unexpected event decl: %#v", prog.Statements[0])
	}
	em, ok := prog.Statements[1].(*ast.EmitStatement)
	if !ok || em.Name != "Tick" || em.Payload == nil {
		t.Fatalf("unexpected emit stmt: %#v", prog.Statements[1])
	}
}

func TestParseEmbeddedBlockAsExpression(t *testing.T) {
	prog := mustParse(t, "let r = {|python\nreturn 1\n|}")
	let := prog.Statements[0].(*ast.LetStatement)
	if _, ok := let.Value.(*ast.EmbeddedLiteral); !ok {
		t.Fatalf("expected embedded literal, got %#v", let.Value)
	}
}
