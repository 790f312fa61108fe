package vm_test

import (
	"testing"

	"github.com/zexus-lang/zexus/pkg/compiler/emitter"
	"github.com/zexus-lang/zexus/pkg/compiler/parser"
	"github.com/zexus-lang/zexus/pkg/compiler/semantic"
	"github.com/zexus-lang/zexus/pkg/core/value"
	"github.com/zexus-lang/zexus/pkg/vm"
	"github.com/zexus-lang/zexus/pkg/zerr"
)

func compileAndRun(t *testing.T, src string) (value.Value, error) {
	t.Helper()
	p := parser.New([]byte(src), "<test>")
	prog, err := p.Parse()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	res, err := semantic.New().Analyze(prog)
	if err != nil {
		t.Fatalf("semantic error: %v", err)
	}
	compiled, err := emitter.New(res).Emit(prog)
	if err != nil {
		t.Fatalf("emit error: %v", err)
	}
	m := vm.New(&value.CallCtx{}, compiled)
	return m.Run()
}

func TestVMArithmeticAndPromotion(t *testing.T) {
	v, err := compileAndRun(t, `let x = 1 + 0.5
x`)
	if err != nil {
		t.Fatal(err)
	}
	f, ok := v.(*value.Float)
	if !ok || f.Val != 1.5 {
		t.Fatalf("expected float 1.5, got %#v", v)
	}
}

func TestVMDivisionByZero(t *testing.T) {
	_, err := compileAndRun(t, `1 / 0`)
	ze, ok := err.(*zerr.Error)
	if !ok || ze.Kind != zerr.Arithmetic {
		t.Fatalf("expected ArithmeticError, got %v", err)
	}
}

func TestVMIfElseChain(t *testing.T) {
	v, err := compileAndRun(t, `let x = 2
let out = ""
if x == 1 {
  out = "one"
} else if x == 2 {
  out = "two"
} else {
  out = "other"
}
out`)
	if err != nil {
		t.Fatal(err)
	}
	if v.String() != "two" {
		t.Fatalf("expected two, got %s", v.String())
	}
}

func TestVMWhileLoop(t *testing.T) {
	v, err := compileAndRun(t, `let i = 0
let total = 0
while i < 5 {
  total = total + i
  i = i + 1
}
total`)
	if err != nil {
		t.Fatal(err)
	}
	if v.String() != "10" {
		t.Fatalf("expected 10, got %s", v.String())
	}
}

func TestVMActionCallAndReturn(t *testing.T) {
	v, err := compileAndRun(t, `action add(a, b) {
  return a + b
}
add(2, 3)`)
	if err != nil {
		t.Fatal(err)
	}
	if v.String() != "5" {
		t.Fatalf("expected 5, got %s", v.String())
	}
}

func TestVMClosureCapturesOuterCellByReference(t *testing.T) {
	v, err := compileAndRun(t, `let counter = 0
action bump() {
  counter = counter + 1
}
bump()
bump()
counter`)
	if err != nil {
		t.Fatal(err)
	}
	if v.String() != "2" {
		t.Fatalf("expected counter=2 after two bumps, got %s", v.String())
	}
}

func TestVMLambdaCapturesFreeVariable(t *testing.T) {
	v, err := compileAndRun(t, `let base = 10
let addBase = lambda (n) -> n + base
addBase(5)`)
	if err != nil {
		t.Fatal(err)
	}
	if v.String() != "15" {
		t.Fatalf("expected 15, got %s", v.String())
	}
}

func TestVMTryCatchIsolatesFailure(t *testing.T) {
	v, err := compileAndRun(t, `let result = ""
try {
  1 / 0
} catch e {
  result = e
}
result`)
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind() != value.KindError {
		t.Fatalf("expected result to be the caught error value, got %#v", v)
	}
}

func TestVMForEachOverList(t *testing.T) {
	v, err := compileAndRun(t, `let total = 0
for each x in [1, 2, 3] {
  total = total + x
}
total`)
	if err != nil {
		t.Fatal(err)
	}
	if v.String() != "6" {
		t.Fatalf("expected 6, got %s", v.String())
	}
}

func TestVMListMethodCall(t *testing.T) {
	v, err := compileAndRun(t, `let xs = [1, 2]
xs.push(3)
xs.len()`)
	if err != nil {
		t.Fatal(err)
	}
	if v.String() != "3" {
		t.Fatalf("expected 3, got %s", v.String())
	}
}

func TestVMListMapMethodCall(t *testing.T) {
	v, err := compileAndRun(t, `let nums = [1, 2, 3]
let d = nums.map(lambda(n) -> n * 2)
d.join(",")`)
	if err != nil {
		t.Fatal(err)
	}
	if v.String() != "2,4,6" {
		t.Fatalf("expected 2,4,6, got %s", v.String())
	}
}

func TestVMListFilterAndReduceMethodCall(t *testing.T) {
	v, err := compileAndRun(t, `let nums = [1, 2, 3, 4, 5]
let evens = nums.filter(lambda(n) -> n % 2 == 0)
evens.reduce(lambda(acc, n) -> acc + n, 0)`)
	if err != nil {
		t.Fatal(err)
	}
	if v.String() != "6" {
		t.Fatalf("expected 6, got %s", v.String())
	}
}

func TestVMIndexAssignment(t *testing.T) {
	v, err := compileAndRun(t, `let xs = [1, 2, 3]
xs[1] = 99
xs[1]`)
	if err != nil {
		t.Fatal(err)
	}
	if v.String() != "99" {
		t.Fatalf("expected 99, got %s", v.String())
	}
}

func TestVMMapLiteralAndPropertyAssign(t *testing.T) {
	v, err := compileAndRun(t, `let m = {"a": 1}
m.b = 2
m.b`)
	if err != nil {
		t.Fatal(err)
	}
	if v.String() != "2" {
		t.Fatalf("expected 2, got %s", v.String())
	}
}

func TestVMEmitOfDeclaredEventWithNoHandlersIsANoop(t *testing.T) {
	v, err := compileAndRun(t, `event Tick(n)
emit Tick({"n": 1})
"done"`)
	if err != nil {
		t.Fatal(err)
	}
	if v.String() != "done" {
		t.Fatalf("expected done, got %s", v.String())
	}
}

func TestVMExportOnlyVisibleFromDeclaringFrame(t *testing.T) {
	p := parser.New([]byte(`let a = 1
export a`), "<test>")
	prog, err := p.Parse()
	if err != nil {
		t.Fatal(err)
	}
	res, err := semantic.New().Analyze(prog)
	if err != nil {
		t.Fatal(err)
	}
	compiled, err := emitter.New(res).Emit(prog)
	if err != nil {
		t.Fatal(err)
	}
	m := vm.New(&value.CallCtx{}, compiled)
	if _, err := m.Run(); err != nil {
		t.Fatal(err)
	}
	exports := m.Global.Exports()
	if _, ok := exports.Get("a"); !ok {
		t.Fatal("expected 'a' to be exported from the root frame")
	}
}
