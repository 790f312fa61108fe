package value_test

import (
	"testing"

	"github.com/zexus-lang/zexus/pkg/core/value"
)

func TestTruthiness(t *testing.T) {
	cases := []struct {
		v    value.Value
		want bool
	}{
		{value.NewInt(0), false},
		{value.NewInt(1), true},
		{&value.Float{Val: 0}, false},
		{&value.Float{Val: 0.1}, true},
		{&value.String{Val: ""}, false},
		{&value.String{Val: "x"}, true},
		{value.False, false},
		{value.True, true},
		{value.Null, false},
		{value.NewList(), false},
		{value.NewList(value.NewInt(1)), true},
	}
	for _, c := range cases {
		if got := c.v.Truthy(); got != c.want {
			t.Errorf("%s.Truthy() = %v, want %v", c.v.Kind(), got, c.want)
		}
	}
}

func TestMapPreservesInsertionOrder(t *testing.T) {
	m := value.NewMap()
	m.Set("z", value.NewInt(1))
	m.Set("a", value.NewInt(2))
	m.Set("m", value.NewInt(3))

	got := m.Keys()
	want := []string{"z", "a", "m"}
	for i, k := range want {
		if got[i] != k {
			t.Fatalf("Keys() = %v, want %v", got, want)
		}
	}
}

func TestMapOverwritePreservesOriginalPosition(t *testing.T) {
	m := value.NewMap()
	m.Set("a", value.NewInt(1))
	m.Set("b", value.NewInt(2))
	m.Set("a", value.NewInt(99))

	got := m.Keys()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("Keys() = %v, want [a b]", got)
	}
	v, ok := m.Get("a")
	if !ok || v.String() != "99" {
		t.Fatalf("Get(a) = %v, %v, want 99, true", v, ok)
	}
}

func TestCellSharesMutationsAcrossHolders(t *testing.T) {
	c := value.NewCell(value.NewInt(1))
	other := c
	c.Val = value.NewInt(2)
	if other.Val.String() != "2" {
		t.Fatalf("expected cell mutation visible through alias, got %s", other.Val.String())
	}
}

func TestEventRegistryDeliversInRegistrationOrder(t *testing.T) {
	reg := value.NewEventRegistry()
	reg.Declare(&value.EventDescriptor{Name: "tick", Fields: []string{"n"}})

	var order []string
	h1 := &value.Builtin{Name: "h1", Fn: func(_ *value.CallCtx, _ []value.Value) (value.Value, error) {
		order = append(order, "h1")
		return value.Null, nil
	}}
	h2 := &value.Builtin{Name: "h2", Fn: func(_ *value.CallCtx, _ []value.Value) (value.Value, error) {
		order = append(order, "h2")
		return value.Null, nil
	}}
	reg.Register("tick", h1)
	reg.Register("tick", h2)

	for _, h := range reg.HandlersFor("tick") {
		b := h.(*value.Builtin)
		if _, err := b.Fn(nil, nil); err != nil {
			t.Fatal(err)
		}
	}
	if len(order) != 2 || order[0] != "h1" || order[1] != "h2" {
		t.Fatalf("handler order = %v, want [h1 h2]", order)
	}
}

func TestActionStringDistinguishesLambda(t *testing.T) {
	a := &value.Action{Name: "add", Params: []string{"a", "b"}}
	if a.String() != "<action add/2>" {
		t.Errorf("got %q", a.String())
	}
	l := &value.Action{IsLambda: true, Params: []string{"x"}}
	if l.String() != "<lambda <anonymous>/1>" {
		t.Errorf("got %q", l.String())
	}
}
