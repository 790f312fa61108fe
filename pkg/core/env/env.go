// Package env implements the lexical environment chain the evaluator
// and built-in registry bind names against: nested frames of Cells,
// with export tracking scoped to whichever frame declared the export
// (§3.3, §4.4).
package env

import (
	"github.com/zexus-lang/zexus/pkg/core/value"
	"github.com/zexus-lang/zexus/pkg/zerr"
)

// Environment is one frame in the lexical chain. The outer pointer is
// nil only for the program's root frame.
type Environment struct {
	cells   map[string]*value.Cell
	order   []string // declaration order, for Exports()
	exports map[string]bool
	outer   *Environment
}

// New creates a root environment with no parent.
func New() *Environment {
	return &Environment{cells: map[string]*value.Cell{}, exports: map[string]bool{}}
}

// Child creates a new frame nested inside e, the shape every action
// call and block scope uses.
func (e *Environment) Child() *Environment {
	return &Environment{cells: map[string]*value.Cell{}, exports: map[string]bool{}, outer: e}
}

// Define binds name to val in this frame, allocating a fresh Cell so
// any closure formed after this point captures the same mutable slot.
func (e *Environment) Define(name string, val value.Value) {
	if _, exists := e.cells[name]; !exists {
		e.order = append(e.order, name)
	}
	e.cells[name] = value.NewCell(val)
}

// CellFor returns the Cell backing name, walking outward, so a closure
// can capture it directly rather than copying the value at capture
// time (GLOSSARY: Cell).
func (e *Environment) CellFor(name string) (*value.Cell, bool) {
	for frame := e; frame != nil; frame = frame.outer {
		if c, ok := frame.cells[name]; ok {
			return c, true
		}
	}
	return nil, false
}

// Get implements value.Scope: reads name's current value, walking
// outward through enclosing frames.
func (e *Environment) Get(name string) (value.Value, bool) {
	c, ok := e.CellFor(name)
	if !ok {
		return nil, false
	}
	return c.Val, true
}

// MustGet reads name or returns a NameError, the shape the evaluator
// needs at identifier-resolution sites (§4.4, §7).
func (e *Environment) MustGet(name string, pos zerr.Position) (value.Value, error) {
	v, ok := e.Get(name)
	if !ok {
		return nil, zerr.New(zerr.Name, pos, "undefined name %q", name)
	}
	return v, nil
}

// Set implements value.Scope: defines name in the current frame,
// shadowing any outer binding of the same name.
func (e *Environment) Set(name string, val value.Value) {
	e.Define(name, val)
}

// Assign implements value.Scope: mutates the nearest existing binding
// of name in place, returning false if no such binding exists anywhere
// in the chain (the caller then reports a NameError).
func (e *Environment) Assign(name string, val value.Value) bool {
	c, ok := e.CellFor(name)
	if !ok {
		return false
	}
	c.Val = val
	return true
}

// Export marks name, which must already be bound in this exact frame,
// as part of this frame's public surface. Export is per-frame: a name
// exported in a nested call frame is not visible through an enclosing
// module frame's Exports() (§4.4 "innermost frame" rule).
func (e *Environment) Export(name string) error {
	if _, ok := e.cells[name]; !ok {
		return &value.Error{ErrKind: string(zerr.Name), Message: "cannot export undefined name " + name}
	}
	e.exports[name] = true
	return nil
}

// Exports snapshots this frame's exported bindings into an
// insertion-ordered map, the runtime shape a `use` binds to.
func (e *Environment) Exports() *value.Map {
	m := value.NewMap()
	for _, name := range e.order {
		if e.exports[name] {
			m.Set(name, e.cells[name].Val)
		}
	}
	return m
}

// Outer exposes the parent frame.
func (e *Environment) Outer() *Environment { return e.outer }
