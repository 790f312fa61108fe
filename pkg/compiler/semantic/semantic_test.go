package semantic_test

import (
	"testing"

	"github.com/zexus-lang/zexus/pkg/compiler/parser"
	"github.com/zexus-lang/zexus/pkg/compiler/semantic"
	"github.com/zexus-lang/zexus/pkg/zerr"
)

func analyze(t *testing.T, src string) (*semantic.Result, error) {
	t.Helper()
	p := parser.New([]byte(src), "<test>")
	prog, err := p.Parse()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return semantic.New().Analyze(prog)
}

func TestUndefinedNameIsSemanticError(t *testing.T) {
	_, err := analyze(t, "let x = y")
	ze, ok := err.(*zerr.Error)
	if !ok || ze.Kind != zerr.Name {
		t.Fatalf("expected NameError, got %v", err)
	}
}

func TestReturnOutsideActionIsRejected(t *testing.T) {
	_, err := analyze(t, "return 1")
	if err == nil {
		t.Fatal("expected an error for return outside an action")
	}
}

func TestAwaitOutsideActionIsRejected(t *testing.T) {
	_, err := analyze(t, "let x = await 1")
	if err == nil {
		t.Fatal("expected an error for await outside an action")
	}
}

func TestEmitOfUndeclaredEventIsRejected(t *testing.T) {
	_, err := analyze(t, "emit Missing()")
	ze, ok := err.(*zerr.Error)
	if !ok || ze.Kind != zerr.Event {
		t.Fatalf("expected EventError, got %v", err)
	}
}

func TestExportUndefinedNameIsRejected(t *testing.T) {
	_, err := analyze(t, "export missing")
	if err == nil {
		t.Fatal("expected an error exporting an undefined name")
	}
}

func TestValidProgramCollectsExportsAndEvents(t *testing.T) {
	res, err := analyze(t, `event Tick(n)
let x = 1
export x`)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Exports) != 1 || res.Exports[0] != "x" {
		t.Fatalf("expected exports=[x], got %v", res.Exports)
	}
	if _, ok := res.Events["Tick"]; !ok {
		t.Fatal("expected Tick event to be recorded")
	}
}

func TestActionParamsShadowOuterScope(t *testing.T) {
	_, err := analyze(t, `let x = 1
action f(x) { return x }
f(2)`)
	if err != nil {
		t.Fatal(err)
	}
}

func TestFreeVariableCapturedFromClosure(t *testing.T) {
	res, err := analyze(t, `let counter = 0
action bump() { counter = counter + 1 }`)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, vars := range res.FreeVars {
		for _, fv := range vars {
			if fv.Name == "counter" {
				found = true
			}
		}
	}
	if !found {
		t.Fatal("expected 'counter' to be recorded as a free variable of bump")
	}
}
