// Package value defines the runtime object model shared by the
// tree-walking evaluator and the bytecode VM: the tagged variants a
// Zexus program can hold at runtime.
package value

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/emirpasic/gods/maps/linkedhashmap"
)

// Kind tags a runtime Value.
type Kind uint8

const (
	KindInteger Kind = iota
	KindFloat
	KindString
	KindBoolean
	KindNull
	KindList
	KindMap
	KindBuiltin
	KindAction
	KindReturnSignal
	KindError
	KindDateTime
	KindEnumValue
	KindEventDescriptor
	KindCoroutine
	KindCell
	KindModule
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBoolean:
		return "boolean"
	case KindNull:
		return "null"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindBuiltin:
		return "builtin"
	case KindAction:
		return "action"
	case KindReturnSignal:
		return "return-signal"
	case KindError:
		return "error"
	case KindDateTime:
		return "datetime"
	case KindEnumValue:
		return "enum-value"
	case KindEventDescriptor:
		return "event-descriptor"
	case KindCoroutine:
		return "coroutine"
	case KindCell:
		return "cell"
	case KindModule:
		return "module"
	default:
		return "unknown"
	}
}

// Value is any Zexus runtime object.
type Value interface {
	Kind() Kind
	String() string
	Truthy() bool
}

// ---- Integer ---------------------------------------------------------

type Integer struct{ Val *big.Int }

func NewInt(i int64) *Integer          { return &Integer{Val: big.NewInt(i)} }
func (v *Integer) Kind() Kind          { return KindInteger }
func (v *Integer) String() string      { return v.Val.String() }
func (v *Integer) Truthy() bool        { return v.Val.Sign() != 0 }

// ---- Float -------------------------------------------------------------

type Float struct{ Val float64 }

func (v *Float) Kind() Kind     { return KindFloat }
func (v *Float) Truthy() bool   { return v.Val != 0 }
func (v *Float) String() string { return formatFloat(v.Val) }

func formatFloat(f float64) string {
	s := fmt.Sprintf("%g", f)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// ---- String --------------------------------------------------------------

type String struct{ Val string }

func (v *String) Kind() Kind     { return KindString }
func (v *String) String() string { return v.Val }
func (v *String) Truthy() bool   { return v.Val != "" }

// ---- Boolean ---------------------------------------------------------

type Boolean struct{ Val bool }

var (
	True  = &Boolean{Val: true}
	False = &Boolean{Val: false}
)

func Bool(b bool) *Boolean {
	if b {
		return True
	}
	return False
}

func (v *Boolean) Kind() Kind { return KindBoolean }
func (v *Boolean) Truthy() bool {
	return v.Val
}
func (v *Boolean) String() string {
	if v.Val {
		return "true"
	}
	return "false"
}

// ---- Null --------------------------------------------------------------

type NullType struct{}

var Null = &NullType{}

func (v *NullType) Kind() Kind     { return KindNull }
func (v *NullType) String() string { return "null" }
func (v *NullType) Truthy() bool   { return false }

// ---- List (ordered, mutable) --------------------------------------------

type List struct{ Elements []Value }

func NewList(elems ...Value) *List { return &List{Elements: elems} }

func (v *List) Kind() Kind   { return KindList }
func (v *List) Truthy() bool { return len(v.Elements) > 0 }
func (v *List) String() string {
	parts := make([]string, len(v.Elements))
	for i, e := range v.Elements {
		parts[i] = quoteIfString(e)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// ---- Map (insertion-ordered, string-keyed, mutable) -----------------------

// Map wraps an insertion-ordered map so that both iteration (§4.4
// for-each) and printing (§6.2 string()) see keys in declaration order.
type Map struct{ m *linkedhashmap.Map }

func NewMap() *Map { return &Map{m: linkedhashmap.New()} }

func (v *Map) Kind() Kind   { return KindMap }
func (v *Map) Truthy() bool { return v.m.Size() > 0 }

func (v *Map) Set(key string, val Value) { v.m.Put(key, val) }

func (v *Map) Get(key string) (Value, bool) {
	raw, found := v.m.Get(key)
	if !found {
		return nil, false
	}
	return raw.(Value), true
}

func (v *Map) Delete(key string) { v.m.Remove(key) }

func (v *Map) Len() int { return v.m.Size() }

// Keys returns keys in insertion order.
func (v *Map) Keys() []string {
	raw := v.m.Keys()
	keys := make([]string, len(raw))
	for i, k := range raw {
		keys[i] = k.(string)
	}
	return keys
}

func (v *Map) String() string {
	parts := make([]string, 0, v.Len())
	for _, k := range v.Keys() {
		val, _ := v.Get(k)
		parts = append(parts, fmt.Sprintf("%q: %s", k, quoteIfString(val)))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func quoteIfString(v Value) string {
	if s, ok := v.(*String); ok {
		return fmt.Sprintf("%q", s.Val)
	}
	return v.String()
}

// ---- Builtin ---------------------------------------------------------

// BuiltinFunc is the signature every host-provided function implements.
// CallCtx carries the collaborators (renderer, scheduler, config) a
// built-in may need without importing the eval or vm packages.
type BuiltinFunc func(ctx *CallCtx, args []Value) (Value, error)

type Builtin struct {
	Name  string
	Fn    BuiltinFunc
	Arity int // -1 means variadic
}

func (v *Builtin) Kind() Kind     { return KindBuiltin }
func (v *Builtin) Truthy() bool   { return true }
func (v *Builtin) String() string { return fmt.Sprintf("<builtin %s>", v.Name) }

// Renderer is the single opaque entry point into the terminal UI
// collaborator (§4.7, §6.2). The core never inspects tag semantics.
type Renderer interface {
	Op(tag string, args []Value) (Value, error)
}

// Scheduler is the minimal surface the stdlib registry needs from the
// cooperative task scheduler, kept as an interface here to avoid value
// depending on the scheduler package.
type Scheduler interface {
	SpawnValue(co *Coroutine) *Coroutine
}

// ModuleResolver is the injectable hook `use`/`import` resolve against
// (SUPPLEMENTED FEATURES): the core never touches the filesystem
// itself, it asks its ModuleResolver for a Module by path. A host
// supplies the concrete resolver (pkg/module.Registry loads from disk
// or an in-memory table; a test can supply a stub with canned
// exports).
type ModuleResolver interface {
	Resolve(path string) (*Module, error)
}

// CallCtx is passed to every built-in invocation.
type CallCtx struct {
	Renderer  Renderer
	Scheduler Scheduler
	Modules   ModuleResolver
	Debug     bool
	Events    *EventRegistry

	// Call invokes an arbitrary callee (Action or Builtin) the way the
	// owning engine would from ordinary source, so higher-order
	// built-ins like map/filter/reduce can apply a user-supplied
	// function without either engine's call machinery living in this
	// package.
	Call func(fn Value, args []Value) (Value, error)
}

// ---- Action (user-defined function; closure over an environment) -------

// Scope is the subset of environment behavior a closure needs. Defined
// here (rather than importing pkg/core/env) to keep this package free of
// a dependency cycle: env implements Scope.
type Scope interface {
	Get(name string) (Value, bool)
	Set(name string, val Value)
	Assign(name string, val Value) bool
}

// Action is a user function: captured environment, parameter list and a
// body. Body is `any` because the interpreter and the VM each supply
// their own statement representation (interpreter AST statements, or a
// bytecode function index) — both satisfy this one runtime shape.
type Action struct {
	Name    string
	Params  []string
	Body    any
	Env     Scope
	IsAsync bool
	IsLambda bool
}

func (v *Action) Kind() Kind   { return KindAction }
func (v *Action) Truthy() bool { return true }
func (v *Action) String() string {
	name := v.Name
	if name == "" {
		name = "<anonymous>"
	}
	kind := "action"
	if v.IsLambda {
		kind = "lambda"
	}
	return fmt.Sprintf("<%s %s/%d>", kind, name, len(v.Params))
}

// ---- ReturnSignal --------------------------------------------------------

// ReturnSignal unwinds the evaluator up to the nearest Action frame. It
// is a Value only so it can flow through the same (Value, error)
// evaluation shape as everything else.
type ReturnSignal struct{ Value Value }

func (v *ReturnSignal) Kind() Kind     { return KindReturnSignal }
func (v *ReturnSignal) Truthy() bool   { return v.Value.Truthy() }
func (v *ReturnSignal) String() string { return v.Value.String() }

// ---- Error -----------------------------------------------------------

// Error is both a runtime Value (bindable to a catch variable) and a Go
// error (so it can also be returned/wrapped along ordinary Go error
// paths inside the evaluator and VM).
type Error struct {
	ErrKind string
	Message string
	Node    any // originating AST node, for diagnostics; may be nil
}

func (v *Error) Kind() Kind     { return KindError }
func (v *Error) Truthy() bool   { return true }
func (v *Error) String() string { return fmt.Sprintf("%s: %s", v.ErrKind, v.Message) }
func (v *Error) Error() string  { return v.String() }

// ---- DateTime ------------------------------------------------------------

type DateTime struct{ Val int64 } // unix nanoseconds; kept dependency-free of time.Time in this package's exported shape

func (v *DateTime) Kind() Kind     { return KindDateTime }
func (v *DateTime) Truthy() bool   { return true }
func (v *DateTime) String() string { return fmt.Sprintf("datetime(%d)", v.Val) }

// ---- EnumValue -----------------------------------------------------------

type EnumValue struct {
	Enum    string
	Variant string
}

func (v *EnumValue) Kind() Kind     { return KindEnumValue }
func (v *EnumValue) Truthy() bool   { return true }
func (v *EnumValue) String() string { return fmt.Sprintf("%s.%s", v.Enum, v.Variant) }

// ---- EventDescriptor -------------------------------------------------

type EventDescriptor struct {
	Name   string
	Fields []string
}

func (v *EventDescriptor) Kind() Kind     { return KindEventDescriptor }
func (v *EventDescriptor) Truthy() bool   { return true }
func (v *EventDescriptor) String() string { return fmt.Sprintf("<event %s>", v.Name) }

// EventHandler is a registered listener: an Action (or Builtin) value
// invocable with one argument, the emitted payload map.
type EventHandler = Value

// EventRegistry is the process-wide table register_event appends to and
// emit walks in registration order (§4.4, §5).
type EventRegistry struct {
	descriptors map[string]*EventDescriptor
	handlers    map[string][]EventHandler
	order       []string
}

func NewEventRegistry() *EventRegistry {
	return &EventRegistry{descriptors: map[string]*EventDescriptor{}, handlers: map[string][]EventHandler{}}
}

func (r *EventRegistry) Declare(d *EventDescriptor) {
	if _, ok := r.descriptors[d.Name]; !ok {
		r.order = append(r.order, d.Name)
	}
	r.descriptors[d.Name] = d
}

func (r *EventRegistry) Descriptor(name string) (*EventDescriptor, bool) {
	d, ok := r.descriptors[name]
	return d, ok
}

func (r *EventRegistry) Register(name string, h EventHandler) {
	r.handlers[name] = append(r.handlers[name], h)
}

func (r *EventRegistry) HandlersFor(name string) []EventHandler {
	return r.handlers[name]
}

func (r *EventRegistry) DescriptorNames() []string {
	names := append([]string(nil), r.order...)
	sort.Strings(names) // deterministic snapshot ordering for header collection (§4.5.6)
	return names
}

// ---- Coroutine -----------------------------------------------------------

// CoroutineState tracks where a cooperative task sits in its lifecycle.
type CoroutineState uint8

const (
	CoroutinePending CoroutineState = iota
	CoroutineRunning
	CoroutineDone
	CoroutineFailed
)

// Coroutine is a paused frame resumable by the scheduler (§4.4, §4.7,
// §5, GLOSSARY). The actual suspension mechanics live in
// pkg/scheduler; this struct is the Value-shaped handle that flows
// through the evaluator/VM stacks and environments.
type Coroutine struct {
	ID     int
	State  CoroutineState
	Result Value
	Err    error

	// Driver is set by whichever engine (evaluator or VM) created the
	// coroutine; the scheduler calls it to advance the task by one
	// scheduling step.
	Driver any
}

func (v *Coroutine) Kind() Kind   { return KindCoroutine }
func (v *Coroutine) Truthy() bool { return true }
func (v *Coroutine) String() string {
	return fmt.Sprintf("<coroutine #%d>", v.ID)
}

// ---- Cell ------------------------------------------------------------

// Cell is a single mutable slot shared between an environment entry and
// any closure that captured it (GLOSSARY: Cell). It is itself a Value so
// STORE_FUNC-style closure snapshotting can treat cells uniformly.
type Cell struct{ Val Value }

func NewCell(v Value) *Cell { return &Cell{Val: v} }

func (c *Cell) Kind() Kind     { return KindCell }
func (c *Cell) Truthy() bool   { return c.Val.Truthy() }
func (c *Cell) String() string { return c.Val.String() }

// ---- Module ----------------------------------------------------------

// Module is the runtime shape a `use`/`import` binds to: a snapshot of
// the exported bindings of another program.
type Module struct {
	Name     string
	Exports  *Map
}

func (v *Module) Kind() Kind     { return KindModule }
func (v *Module) Truthy() bool   { return true }
func (v *Module) String() string { return fmt.Sprintf("<module %s>", v.Name) }
