package env_test

import (
	"testing"

	"github.com/zexus-lang/zexus/pkg/core/env"
	"github.com/zexus-lang/zexus/pkg/core/value"
	"github.com/zexus-lang/zexus/pkg/zerr"
)

func TestChildSeesOuterBindings(t *testing.T) {
	root := env.New()
	root.Define("x", value.NewInt(1))
	child := root.Child()

	got, ok := child.Get("x")
	if !ok || got.String() != "1" {
		t.Fatalf("expected child to see outer x=1, got %v, %v", got, ok)
	}
}

func TestDefineInChildShadowsOuter(t *testing.T) {
	root := env.New()
	root.Define("x", value.NewInt(1))
	child := root.Child()
	child.Define("x", value.NewInt(2))

	if v, _ := child.Get("x"); v.String() != "2" {
		t.Fatalf("expected shadowed x=2, got %s", v.String())
	}
	if v, _ := root.Get("x"); v.String() != "1" {
		t.Fatalf("expected outer x to remain 1, got %s", v.String())
	}
}

func TestAssignMutatesNearestBindingInPlace(t *testing.T) {
	root := env.New()
	root.Define("x", value.NewInt(1))
	child := root.Child()

	if !child.Assign("x", value.NewInt(9)) {
		t.Fatal("expected assign to find outer binding")
	}
	if v, _ := root.Get("x"); v.String() != "9" {
		t.Fatalf("expected outer x mutated to 9, got %s", v.String())
	}
}

func TestAssignUndefinedNameFails(t *testing.T) {
	root := env.New()
	if root.Assign("missing", value.NewInt(1)) {
		t.Fatal("expected assign to undefined name to fail")
	}
}

func TestMustGetReturnsNameError(t *testing.T) {
	root := env.New()
	_, err := root.MustGet("missing", zerr.Position{Line: 1, Column: 1})
	if err == nil {
		t.Fatal("expected NameError")
	}
	ze, ok := err.(*zerr.Error)
	if !ok || ze.Kind != zerr.Name {
		t.Fatalf("expected *zerr.Error{Kind: Name}, got %v", err)
	}
}

func TestExportsOnlyInnermostFrame(t *testing.T) {
	root := env.New()
	root.Define("a", value.NewInt(1))
	if err := root.Export("a"); err != nil {
		t.Fatal(err)
	}

	child := root.Child()
	child.Define("b", value.NewInt(2))
	if err := child.Export("b"); err != nil {
		t.Fatal(err)
	}

	rootExports := root.Exports()
	if _, ok := rootExports.Get("b"); ok {
		t.Fatal("expected outer frame's Exports() to not see inner frame's export")
	}
	if _, ok := rootExports.Get("a"); !ok {
		t.Fatal("expected outer frame's own export to be present")
	}
}

func TestExportsPreserveDeclarationOrder(t *testing.T) {
	root := env.New()
	root.Define("z", value.NewInt(1))
	root.Define("a", value.NewInt(2))
	root.Export("z")
	root.Export("a")

	keys := root.Exports().Keys()
	if len(keys) != 2 || keys[0] != "z" || keys[1] != "a" {
		t.Fatalf("Exports().Keys() = %v, want [z a]", keys)
	}
}

func TestExportUndefinedNameErrors(t *testing.T) {
	root := env.New()
	if err := root.Export("missing"); err == nil {
		t.Fatal("expected error exporting an undefined name")
	}
}

func TestCellForSharesMutableSlotWithClosures(t *testing.T) {
	root := env.New()
	root.Define("counter", value.NewInt(0))
	cell, ok := root.CellFor("counter")
	if !ok {
		t.Fatal("expected to find cell for counter")
	}
	root.Assign("counter", value.NewInt(5))
	if cell.Val.String() != "5" {
		t.Fatalf("expected captured cell to observe mutation, got %s", cell.Val.String())
	}
}
