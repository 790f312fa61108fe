package eval_test

import (
	"math/big"
	"testing"

	iast "github.com/zexus-lang/zexus/pkg/ast"
	"github.com/zexus-lang/zexus/pkg/core/value"
	"github.com/zexus-lang/zexus/pkg/eval"
	"github.com/zexus-lang/zexus/pkg/parser"
	"github.com/zexus-lang/zexus/pkg/zerr"
)

// run evaluates a program with a fresh interpreter. Most tests here
// hand-build their IA nodes so they do not depend on the tolerant
// parser.
func run(t *testing.T, prog *iast.Program) (value.Value, error) {
	t.Helper()
	in := eval.New(&value.CallCtx{})
	return in.Run(prog)
}

func TestLetAndArithmeticPromotion(t *testing.T) {
	prog := &iast.Program{Statements: []iast.Statement{
		&iast.LetStatement{Name: "x", Value: &iast.InfixExpression{
			Operator: "+",
			Left:     intLit(1),
			Right:    &iast.FloatLiteral{Value: 0.5},
		}},
		&iast.ExpressionStatement{Expr: &iast.Identifier{Name: "x"}},
	}}
	v, err := run(t, prog)
	if err != nil {
		t.Fatal(err)
	}
	f, ok := v.(*value.Float)
	if !ok || f.Val != 1.5 {
		t.Fatalf("expected float 1.5, got %#v", v)
	}
}

func TestDivisionByZeroIsArithmeticError(t *testing.T) {
	prog := &iast.Program{Statements: []iast.Statement{
		&iast.ExpressionStatement{Expr: &iast.InfixExpression{
			Operator: "/",
			Left:     intLit(1),
			Right:    intLit(0),
		}},
	}}
	_, err := run(t, prog)
	ze, ok := err.(*zerr.Error)
	if !ok || ze.Kind != zerr.Arithmetic {
		t.Fatalf("expected ArithmeticError, got %v", err)
	}
}

func TestStringConcatOnlyForStrings(t *testing.T) {
	prog := &iast.Program{Statements: []iast.Statement{
		&iast.ExpressionStatement{Expr: &iast.InfixExpression{
			Operator: "+",
			Left:     &iast.StringLiteral{Value: "a"},
			Right:    intLit(1),
		}},
	}}
	_, err := run(t, prog)
	if err == nil {
		t.Fatal("expected a type error mixing string and integer with +")
	}
}

func TestUndefinedNameIsNameError(t *testing.T) {
	prog := &iast.Program{Statements: []iast.Statement{
		&iast.ExpressionStatement{Expr: &iast.Identifier{Name: "missing"}},
	}}
	_, err := run(t, prog)
	ze, ok := err.(*zerr.Error)
	if !ok || ze.Kind != zerr.Name {
		t.Fatalf("expected NameError, got %v", err)
	}
}

func TestActionCallAndReturn(t *testing.T) {
	prog := &iast.Program{Statements: []iast.Statement{
		&iast.ActionStatement{
			Name:   "add",
			Params: []string{"a", "b"},
			Body: &iast.BlockStatement{Statements: []iast.Statement{
				&iast.ReturnStatement{Value: &iast.InfixExpression{
					Operator: "+",
					Left:     &iast.Identifier{Name: "a"},
					Right:    &iast.Identifier{Name: "b"},
				}},
			}},
		},
		&iast.ExpressionStatement{Expr: &iast.CallExpression{
			Callee: &iast.Identifier{Name: "add"},
			Args:   []iast.Expression{intLit(2), intLit(3)},
		}},
	}}
	v, err := run(t, prog)
	if err != nil {
		t.Fatal(err)
	}
	if v.String() != "5" {
		t.Fatalf("expected 5, got %s", v.String())
	}
}

func TestClosureCapturesOuterCellByReference(t *testing.T) {
	// let counter = 0
	// action bump() { counter = counter + 1 }
	// bump(); bump()
	prog := &iast.Program{Statements: []iast.Statement{
		&iast.LetStatement{Name: "counter", Value: intLit(0)},
		&iast.ActionStatement{
			Name: "bump",
			Body: &iast.BlockStatement{Statements: []iast.Statement{
				&iast.ExpressionStatement{Expr: &iast.AssignmentExpression{
					Target: &iast.Identifier{Name: "counter"},
					Value: &iast.InfixExpression{
						Operator: "+",
						Left:     &iast.Identifier{Name: "counter"},
						Right:    intLit(1),
					},
				}},
			}},
		},
		&iast.ExpressionStatement{Expr: &iast.CallExpression{Callee: &iast.Identifier{Name: "bump"}}},
		&iast.ExpressionStatement{Expr: &iast.CallExpression{Callee: &iast.Identifier{Name: "bump"}}},
		&iast.ExpressionStatement{Expr: &iast.Identifier{Name: "counter"}},
	}}
	v, err := run(t, prog)
	if err != nil {
		t.Fatal(err)
	}
	if v.String() != "2" {
		t.Fatalf("expected counter=2 after two bumps, got %s", v.String())
	}
}

func TestTryCatchIsolatesFailure(t *testing.T) {
	prog := &iast.Program{Statements: []iast.Statement{
		&iast.TryCatchStatement{
			Try: &iast.BlockStatement{Statements: []iast.Statement{
				&iast.ExpressionStatement{Expr: &iast.InfixExpression{Operator: "/", Left: intLit(1), Right: intLit(0)}},
			}},
			CatchName: "e",
			Catch: &iast.BlockStatement{Statements: []iast.Statement{
				&iast.ExpressionStatement{Expr: &iast.Identifier{Name: "e"}},
			}},
		},
	}}
	v, err := run(t, prog)
	if err != nil {
		t.Fatal(err)
	}
	errVal, ok := v.(*value.Error)
	if !ok || errVal.ErrKind != string(zerr.Arithmetic) {
		t.Fatalf("expected caught ArithmeticError value, got %#v", v)
	}
}

func TestForEachOverList(t *testing.T) {
	prog := &iast.Program{Statements: []iast.Statement{
		&iast.LetStatement{Name: "total", Value: intLit(0)},
		&iast.ForEachStatement{
			ValueName: "x",
			Iterable:  &iast.ListLiteral{Elements: []iast.Expression{intLit(1), intLit(2), intLit(3)}},
			Body: &iast.BlockStatement{Statements: []iast.Statement{
				&iast.ExpressionStatement{Expr: &iast.AssignmentExpression{
					Target: &iast.Identifier{Name: "total"},
					Value: &iast.InfixExpression{
						Operator: "+",
						Left:     &iast.Identifier{Name: "total"},
						Right:    &iast.Identifier{Name: "x"},
					},
				}},
			}},
		},
		&iast.ExpressionStatement{Expr: &iast.Identifier{Name: "total"}},
	}}
	v, err := run(t, prog)
	if err != nil {
		t.Fatal(err)
	}
	if v.String() != "6" {
		t.Fatalf("expected 6, got %s", v.String())
	}
}

func TestExportOnlyVisibleFromDeclaringFrame(t *testing.T) {
	in := eval.New(&value.CallCtx{})
	prog := &iast.Program{Statements: []iast.Statement{
		&iast.LetStatement{Name: "a", Value: intLit(1)},
		&iast.ExportStatement{Names: []string{"a"}},
	}}
	if _, err := in.Run(prog); err != nil {
		t.Fatal(err)
	}
	exports := in.Global.Exports()
	if _, ok := exports.Get("a"); !ok {
		t.Fatal("expected 'a' to be exported from the root frame")
	}
}

func TestListMapMethodCallViaTolerantParser(t *testing.T) {
	p := parser.New([]byte(`let nums = [1, 2, 3]
let d = nums.map(lambda(n) -> n * 2)
d.join(",")`), "<test>", nil)
	prog := p.Parse()
	if !p.Diagnostics().Empty() {
		t.Fatalf("unexpected diagnostics: %v", p.Diagnostics().Items())
	}
	v, err := run(t, prog)
	if err != nil {
		t.Fatal(err)
	}
	if v.String() != "2,4,6" {
		t.Fatalf("expected 2,4,6, got %s", v.String())
	}
}

func intLit(n int64) *iast.IntegerLiteral {
	return &iast.IntegerLiteral{Value: big.NewInt(n)}
}
