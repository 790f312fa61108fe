// Package eval implements the tree-walking evaluator: direct execution
// of the interpreter AST against an environment/cell model (§4.4).
package eval

import (
	"fmt"
	"math/big"

	iast "github.com/zexus-lang/zexus/pkg/ast"
	"github.com/zexus-lang/zexus/pkg/core/env"
	"github.com/zexus-lang/zexus/pkg/core/value"
	"github.com/zexus-lang/zexus/pkg/module"
	"github.com/zexus-lang/zexus/pkg/pyembed"
	"github.com/zexus-lang/zexus/pkg/scheduler"
	"github.com/zexus-lang/zexus/pkg/stdlib"
	"github.com/zexus-lang/zexus/pkg/zerr"
)

// Interpreter walks the interpreter AST. It owns the root environment,
// the event registry and the scheduler that every spawn/await passes
// through.
type Interpreter struct {
	Global *env.Environment
	Ctx    *value.CallCtx
	Sched  *scheduler.Scheduler
}

func New(ctx *value.CallCtx) *Interpreter {
	sched := scheduler.New()
	in := &Interpreter{Global: env.New(), Ctx: ctx, Sched: sched}
	stdlib.Install(in.Global)
	if ctx != nil {
		ctx.Scheduler = sched
		ctx.Call = func(fn value.Value, args []value.Value) (value.Value, error) {
			return in.callValue(fn, args, zerr.Position{})
		}
		if ctx.Modules == nil {
			ctx.Modules = module.New()
		}
	}
	return in
}

// Run evaluates every top-level statement in program order and drains
// the scheduler before returning, so no spawned task outlives the run
// (§5).
func (in *Interpreter) Run(prog *iast.Program) (value.Value, error) {
	last, err := in.evalStatements(prog.Statements, in.Global)
	in.Sched.Drain()
	return last, err
}

func (in *Interpreter) evalStatements(stmts []iast.Statement, e *env.Environment) (value.Value, error) {
	var result value.Value = value.Null
	for _, stmt := range stmts {
		v, err := in.evalStatement(stmt, e)
		if err != nil {
			return nil, err
		}
		if rs, ok := v.(*value.ReturnSignal); ok {
			return rs, nil
		}
		result = v
	}
	return result, nil
}

func (in *Interpreter) evalStatement(stmt iast.Statement, e *env.Environment) (value.Value, error) {
	switch s := stmt.(type) {
	case *iast.LetStatement:
		v, err := in.evalExpr(s.Value, e)
		if err != nil {
			return nil, err
		}
		e.Define(s.Name, v)
		return v, nil

	case *iast.ReturnStatement:
		if s.Value == nil {
			return &value.ReturnSignal{Value: value.Null}, nil
		}
		v, err := in.evalExpr(s.Value, e)
		if err != nil {
			return nil, err
		}
		return &value.ReturnSignal{Value: v}, nil

	case *iast.ExpressionStatement:
		return in.evalExpr(s.Expr, e)

	case *iast.BlockStatement:
		return in.evalStatements(s.Statements, e.Child())

	case *iast.PrintStatement:
		return in.evalArgListStatement(s.Args, e, func(args []value.Value) {
			in.printValues(args)
		})

	case *iast.DebugStatement:
		return in.evalArgListStatement(s.Args, e, func(args []value.Value) {
			if in.Ctx != nil && in.Ctx.Debug {
				in.printValues(args)
			}
		})

	case *iast.ForEachStatement:
		return in.evalForEach(s, e)

	case *iast.IfStatement:
		return in.evalIfStatement(s, e)

	case *iast.WhileStatement:
		return in.evalWhile(s, e)

	case *iast.TryCatchStatement:
		return in.evalTryCatch(s, e)

	case *iast.ActionStatement:
		action := &value.Action{Name: s.Name, Params: s.Params, Body: s.Body, Env: e, IsAsync: s.IsAsync}
		e.Define(s.Name, action)
		return action, nil

	case *iast.EventStatement:
		if in.Ctx.Events == nil {
			in.Ctx.Events = value.NewEventRegistry()
		}
		in.Ctx.Events.Declare(&value.EventDescriptor{Name: s.Name, Fields: s.Fields})
		return value.Null, nil

	case *iast.EmitStatement:
		return in.evalEmit(s, e)

	case *iast.EnumStatement:
		e.Define(s.Name, enumNamespace(s.Name, s.Variants))
		return value.Null, nil

	case *iast.ExportStatement:
		for _, name := range s.Names {
			if err := e.Export(name); err != nil {
				return nil, err
			}
		}
		return value.Null, nil

	case *iast.ExternalStatement:
		// Declaring an external binding only reserves the name: it is
		// bound to Null, and nothing resolves it later.
		e.Define(s.Name, value.Null)
		return value.Null, nil

	case *iast.UseStatement, *iast.ImportStatement, *iast.ProtocolStatement,
		*iast.ContractStatement, *iast.ScreenDef, *iast.ComponentDef, *iast.ThemeDef:
		return in.evalDeclarative(stmt, e)

	default:
		return nil, zerr.New(zerr.Internal, stmt.Pos(), "eval: unhandled statement %T", stmt)
	}
}

func (in *Interpreter) evalArgListStatement(args []iast.Expression, e *env.Environment, sink func([]value.Value)) (value.Value, error) {
	vals := make([]value.Value, len(args))
	for i, a := range args {
		v, err := in.evalExpr(a, e)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	sink(vals)
	return value.Null, nil
}

func (in *Interpreter) printValues(vals []value.Value) {
	if in.Ctx != nil && in.Ctx.Renderer != nil {
		args := make([]value.Value, len(vals))
		copy(args, vals)
		in.Ctx.Renderer.Op("print", args)
		return
	}
	for _, v := range vals {
		fmt.Println(v.String())
	}
}

func enumNamespace(name string, variants []string) *value.Map {
	m := value.NewMap()
	for _, v := range variants {
		m.Set(v, &value.EnumValue{Enum: name, Variant: v})
	}
	return m
}

func (in *Interpreter) evalForEach(s *iast.ForEachStatement, e *env.Environment) (value.Value, error) {
	iterable, err := in.evalExpr(s.Iterable, e)
	if err != nil {
		return nil, err
	}
	switch it := iterable.(type) {
	case *value.List:
		for i, el := range it.Elements {
			child := e.Child()
			if s.KeyName != "" {
				child.Define(s.KeyName, value.NewInt(int64(i)))
			}
			child.Define(s.ValueName, el)
			v, err := in.evalStatements(s.Body.Statements, child)
			if err != nil {
				return nil, err
			}
			if rs, ok := v.(*value.ReturnSignal); ok {
				return rs, nil
			}
		}
	case *value.Map:
		for _, k := range it.Keys() {
			val, _ := it.Get(k)
			child := e.Child()
			if s.KeyName != "" {
				child.Define(s.KeyName, &value.String{Val: k})
				child.Define(s.ValueName, val)
			} else {
				child.Define(s.ValueName, val)
			}
			v, err := in.evalStatements(s.Body.Statements, child)
			if err != nil {
				return nil, err
			}
			if rs, ok := v.(*value.ReturnSignal); ok {
				return rs, nil
			}
		}
	default:
		return nil, zerr.New(zerr.Type, s.Pos(), "cannot iterate over %s", iterable.Kind())
	}
	return value.Null, nil
}

func (in *Interpreter) evalIfStatement(s *iast.IfStatement, e *env.Environment) (value.Value, error) {
	cond, err := in.evalExpr(s.Condition, e)
	if err != nil {
		return nil, err
	}
	if cond.Truthy() {
		return in.evalStatements(s.Then.Statements, e.Child())
	}
	if s.ElseIf != nil {
		return in.evalIfStatement(s.ElseIf, e)
	}
	if s.Else != nil {
		return in.evalStatements(s.Else.Statements, e.Child())
	}
	return value.Null, nil
}

func (in *Interpreter) evalWhile(s *iast.WhileStatement, e *env.Environment) (value.Value, error) {
	for {
		cond, err := in.evalExpr(s.Condition, e)
		if err != nil {
			return nil, err
		}
		if !cond.Truthy() {
			return value.Null, nil
		}
		v, err := in.evalStatements(s.Body.Statements, e.Child())
		if err != nil {
			return nil, err
		}
		if rs, ok := v.(*value.ReturnSignal); ok {
			return rs, nil
		}
	}
}

func (in *Interpreter) evalTryCatch(s *iast.TryCatchStatement, e *env.Environment) (value.Value, error) {
	v, err := in.evalStatements(s.Try.Statements, e.Child())
	if err == nil {
		return v, nil
	}
	child := e.Child()
	child.Define(s.CatchName, ToErrorValue(err))
	return in.evalStatements(s.Catch.Statements, child)
}

// ToErrorValue converts any Go error into the catchable runtime shape,
// shared with the VM's try/catch unwinding.
func ToErrorValue(err error) *value.Error {
	if ev, ok := err.(*value.Error); ok {
		return ev
	}
	if ze, ok := err.(*zerr.Error); ok {
		return &value.Error{ErrKind: string(ze.Kind), Message: ze.Message}
	}
	return &value.Error{ErrKind: string(zerr.Internal), Message: err.Error()}
}

func (in *Interpreter) evalEmit(s *iast.EmitStatement, e *env.Environment) (value.Value, error) {
	var payload value.Value = value.NewMap()
	if s.Payload != nil {
		v, err := in.evalExpr(s.Payload, e)
		if err != nil {
			return nil, err
		}
		payload = v
	}
	if in.Ctx.Events == nil {
		return value.Null, nil
	}
	for _, h := range in.Ctx.Events.HandlersFor(s.Name) {
		if _, err := in.callValue(h, []value.Value{payload}, s.Pos()); err != nil {
			return nil, err
		}
	}
	return value.Null, nil
}

// evalDeclarative handles the declarative surface: a protocol binds a
// map of method name to arity, a contract checks its requirements,
// screen/component/theme delegate to the renderer as an opaque op,
// keeping this package ignorant of UI rendering; use/import resolve
// through the ModuleResolver collaborator instead (SUPPLEMENTED
// FEATURES), so this package still never touches the filesystem
// itself.
func (in *Interpreter) evalDeclarative(stmt iast.Statement, e *env.Environment) (value.Value, error) {
	switch s := stmt.(type) {
	case *iast.ProtocolStatement:
		methods := value.NewMap()
		for _, m := range s.Methods {
			methods.Set(m.Name, value.NewInt(int64(m.Arity)))
		}
		e.Define(s.Name, methods)
		return value.Null, nil
	case *iast.ContractStatement:
		for _, req := range s.Requires {
			v, err := in.evalExpr(req, e)
			if err != nil {
				return nil, err
			}
			if !v.Truthy() {
				return nil, zerr.New(zerr.Protocol, s.Pos(), "contract %q requirement failed", s.Name)
			}
		}
		return value.Null, nil
	case *iast.ScreenDef:
		return in.renderDeclaration("screen", s.Name, s.Body, e)
	case *iast.ComponentDef:
		return in.renderDeclaration("component", s.Name, s.Body, e)
	case *iast.ThemeDef:
		return in.renderDeclaration("theme", s.Name, s.Body, e)
	case *iast.UseStatement:
		mod, err := in.resolveModule(s.ModulePath, s.Pos())
		if err != nil {
			return nil, err
		}
		name := s.Alias
		if name == "" {
			name = s.ModulePath
		}
		e.Define(name, mod.Exports)
		return value.Null, nil
	case *iast.ImportStatement:
		mod, err := in.resolveModule(s.ModulePath, s.Pos())
		if err != nil {
			return nil, err
		}
		for _, name := range s.Names {
			v, ok := mod.Exports.Get(name)
			if !ok {
				return nil, zerr.New(zerr.Name, s.Pos(), "module %q has no export %q", s.ModulePath, name)
			}
			e.Define(name, v)
		}
		return value.Null, nil
	default:
		return value.Null, nil
	}
}

// resolveModule asks the call context's ModuleResolver for a module by
// path (SUPPLEMENTED FEATURES): the evaluator never touches the
// filesystem itself.
func (in *Interpreter) resolveModule(path string, pos zerr.Position) (*value.Module, error) {
	if in.Ctx == nil || in.Ctx.Modules == nil {
		return nil, zerr.New(zerr.IO, pos, "no module resolver configured, cannot resolve %q", path)
	}
	return in.Ctx.Modules.Resolve(path)
}

func (in *Interpreter) renderDeclaration(tag, name string, body *iast.BlockStatement, e *env.Environment) (value.Value, error) {
	if _, err := in.evalStatements(body.Statements, e.Child()); err != nil {
		return nil, err
	}
	if in.Ctx.Renderer == nil {
		return value.Null, nil
	}
	return in.Ctx.Renderer.Op(tag, []value.Value{&value.String{Val: name}})
}

// ---- Expressions ------------------------------------------------------

func (in *Interpreter) evalExpr(expr iast.Expression, e *env.Environment) (value.Value, error) {
	switch ex := expr.(type) {
	case *iast.Identifier:
		if ex.Name == "exactly" {
			return nil, zerr.New(zerr.Syntax, ex.Pos(), "exactly has no defined semantics")
		}
		return e.MustGet(ex.Name, ex.Pos())
	case *iast.IntegerLiteral:
		return &value.Integer{Val: ex.Value}, nil
	case *iast.FloatLiteral:
		return &value.Float{Val: ex.Value}, nil
	case *iast.StringLiteral:
		return &value.String{Val: ex.Value}, nil
	case *iast.BoolLiteral:
		return value.Bool(ex.Value), nil
	case *iast.NullLiteral:
		return value.Null, nil
	case *iast.ListLiteral:
		return in.evalListLiteral(ex, e)
	case *iast.MapLiteral:
		return in.evalMapLiteral(ex, e)
	case *iast.ActionLiteral:
		return &value.Action{Name: ex.Name, Params: ex.Params, Body: ex.Body, Env: e, IsAsync: ex.IsAsync}, nil
	case *iast.LambdaLiteral:
		return &value.Action{Params: ex.Params, Body: ex.Body, Env: e, IsLambda: true}, nil
	case *iast.CallExpression:
		return in.evalCall(ex, e)
	case *iast.MethodCallExpression:
		return in.evalMethodCall(ex, e)
	case *iast.PropertyAccessExpression:
		return in.evalPropertyAccess(ex, e)
	case *iast.IndexExpression:
		return in.evalIndex(ex, e)
	case *iast.AssignmentExpression:
		return in.evalAssignment(ex, e)
	case *iast.PrefixExpression:
		return in.evalPrefix(ex, e)
	case *iast.InfixExpression:
		return in.evalInfix(ex, e)
	case *iast.IfExpression:
		return in.evalIfExpression(ex, e)
	case *iast.AwaitExpression:
		return in.evalAwait(ex, e)
	case *iast.EmbeddedLiteral:
		return in.evalEmbedded(ex, e)
	default:
		return nil, zerr.New(zerr.Internal, expr.Pos(), "eval: unhandled expression %T", expr)
	}
}

func (in *Interpreter) evalListLiteral(ex *iast.ListLiteral, e *env.Environment) (value.Value, error) {
	elems := make([]value.Value, len(ex.Elements))
	for i, el := range ex.Elements {
		v, err := in.evalExpr(el, e)
		if err != nil {
			return nil, err
		}
		elems[i] = v
	}
	return &value.List{Elements: elems}, nil
}

func (in *Interpreter) evalMapLiteral(ex *iast.MapLiteral, e *env.Environment) (value.Value, error) {
	m := value.NewMap()
	for _, entry := range ex.Entries {
		k, err := in.evalExpr(entry.Key, e)
		if err != nil {
			return nil, err
		}
		v, err := in.evalExpr(entry.Value, e)
		if err != nil {
			return nil, err
		}
		m.Set(mapKey(k), v)
	}
	return m, nil
}

// mapKey coerces any key expression's value to its string form (Open
// Question decision: keys coerce via String(), so `{1: "a"}` and
// `{"1": "b"}` collide deliberately).
func mapKey(v value.Value) string { return v.String() }

func (in *Interpreter) evalCall(ex *iast.CallExpression, e *env.Environment) (value.Value, error) {
	callee, err := in.evalExpr(ex.Callee, e)
	if err != nil {
		return nil, err
	}
	args, err := in.evalArgs(ex.Args, e)
	if err != nil {
		return nil, err
	}
	return in.callValue(callee, args, ex.Pos())
}

func (in *Interpreter) evalArgs(exprs []iast.Expression, e *env.Environment) ([]value.Value, error) {
	args := make([]value.Value, len(exprs))
	for i, a := range exprs {
		v, err := in.evalExpr(a, e)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

func (in *Interpreter) callValue(callee value.Value, args []value.Value, pos zerr.Position) (value.Value, error) {
	switch fn := callee.(type) {
	case *value.Builtin:
		if fn.Arity >= 0 && len(args) != fn.Arity {
			return nil, zerr.New(zerr.Arity, pos, "%s expects %d argument(s), got %d", fn.Name, fn.Arity, len(args))
		}
		return fn.Fn(in.Ctx, args)
	case *value.Action:
		return in.callAction(fn, args, pos)
	default:
		return nil, zerr.New(zerr.Type, pos, "%s is not callable", callee.Kind())
	}
}

// callAction applies fn. An async action's call does not run its body:
// per §4.7's CALL_* semantics it wraps the pending call into a
// Coroutine and returns that immediately; the body only runs once the
// coroutine is spawned or awaited (§4.4, §5).
func (in *Interpreter) callAction(fn *value.Action, args []value.Value, pos zerr.Position) (value.Value, error) {
	if len(args) != len(fn.Params) {
		return nil, zerr.New(zerr.Arity, pos, "%s expects %d argument(s), got %d", displayName(fn), len(fn.Params), len(args))
	}
	if fn.IsAsync {
		return &value.Coroutine{State: value.CoroutinePending, Driver: &asyncCallDriver{in: in, fn: fn, args: args, pos: pos}}, nil
	}
	return in.runActionBody(fn, args, pos)
}

func (in *Interpreter) runActionBody(fn *value.Action, args []value.Value, pos zerr.Position) (value.Value, error) {
	scope, ok := fn.Env.(*env.Environment)
	if !ok {
		return nil, zerr.New(zerr.Internal, pos, "action closure has non-tree-walking scope")
	}
	call := scope.Child()
	for i, p := range fn.Params {
		call.Define(p, args[i])
	}
	if fn.IsLambda {
		return in.evalExpr(fn.Body.(iast.Expression), call)
	}
	body := fn.Body.(*iast.BlockStatement)
	v, err := in.evalStatements(body.Statements, call)
	if err != nil {
		return nil, err
	}
	if rs, ok := v.(*value.ReturnSignal); ok {
		return rs.Value, nil
	}
	return value.Null, nil
}

// asyncCallDriver is the scheduler.Driver behind a pending async call:
// created at call time, only advanced once spawn/await enqueues it.
type asyncCallDriver struct {
	in   *Interpreter
	fn   *value.Action
	args []value.Value
	pos  zerr.Position
}

func (d *asyncCallDriver) Advance() scheduler.Step {
	v, err := d.in.runActionBody(d.fn, d.args, d.pos)
	return scheduler.Step{Done: true, Result: v, Err: err}
}

func displayName(a *value.Action) string {
	if a.Name != "" {
		return a.Name
	}
	return "<anonymous>"
}

func (in *Interpreter) evalMethodCall(ex *iast.MethodCallExpression, e *env.Environment) (value.Value, error) {
	recv, err := in.evalExpr(ex.Receiver, e)
	if err != nil {
		return nil, err
	}
	args, err := in.evalArgs(ex.Args, e)
	if err != nil {
		return nil, err
	}
	var callFn call
	if in.Ctx != nil {
		callFn = in.Ctx.Call
	}
	return DispatchMethod(recv, ex.Method, args, ex.Pos(), callFn)
}

func (in *Interpreter) evalPropertyAccess(ex *iast.PropertyAccessExpression, e *env.Environment) (value.Value, error) {
	recv, err := in.evalExpr(ex.Receiver, e)
	if err != nil {
		return nil, err
	}
	switch r := recv.(type) {
	case *value.Map:
		if v, ok := r.Get(ex.Property); ok {
			return v, nil
		}
		return nil, zerr.New(zerr.Attribute, ex.Pos(), "no property %q", ex.Property)
	case *value.Module:
		if v, ok := r.Exports.Get(ex.Property); ok {
			return v, nil
		}
		return nil, zerr.New(zerr.Attribute, ex.Pos(), "module %s has no export %q", r.Name, ex.Property)
	default:
		return nil, zerr.New(zerr.Attribute, ex.Pos(), "%s has no property %q", recv.Kind(), ex.Property)
	}
}

func (in *Interpreter) evalIndex(ex *iast.IndexExpression, e *env.Environment) (value.Value, error) {
	recv, err := in.evalExpr(ex.Receiver, e)
	if err != nil {
		return nil, err
	}
	idx, err := in.evalExpr(ex.Index, e)
	if err != nil {
		return nil, err
	}
	return IndexValue(recv, idx, ex.Pos())
}

// IndexValue implements list/map indexing, shared with the VM's INDEX
// opcode so both engines agree on out-of-range and key-miss behavior.
func IndexValue(recv, idx value.Value, pos zerr.Position) (value.Value, error) {
	switch r := recv.(type) {
	case *value.List:
		i, ok := idx.(*value.Integer)
		if !ok {
			return nil, zerr.New(zerr.Type, pos, "list index must be an integer, got %s", idx.Kind())
		}
		n := i.Val.Int64()
		if n < 0 || n >= int64(len(r.Elements)) {
			return nil, zerr.New(zerr.Attribute, pos, "list index %d out of range (len %d)", n, len(r.Elements))
		}
		return r.Elements[n], nil
	case *value.Map:
		key := mapKey(idx)
		v, ok := r.Get(key)
		if !ok {
			return nil, zerr.New(zerr.Attribute, pos, "no key %q", key)
		}
		return v, nil
	case *value.String:
		i, ok := idx.(*value.Integer)
		if !ok {
			return nil, zerr.New(zerr.Type, pos, "string index must be an integer")
		}
		n := i.Val.Int64()
		runes := []rune(r.Val)
		if n < 0 || n >= int64(len(runes)) {
			return nil, zerr.New(zerr.Attribute, pos, "string index %d out of range", n)
		}
		return &value.String{Val: string(runes[n])}, nil
	default:
		return nil, zerr.New(zerr.Type, pos, "%s is not indexable", recv.Kind())
	}
}

func (in *Interpreter) evalAssignment(ex *iast.AssignmentExpression, e *env.Environment) (value.Value, error) {
	val, err := in.evalExpr(ex.Value, e)
	if err != nil {
		return nil, err
	}
	switch target := ex.Target.(type) {
	case *iast.Identifier:
		if !e.Assign(target.Name, val) {
			return nil, zerr.New(zerr.Name, ex.Pos(), "undefined name %q", target.Name)
		}
		return val, nil
	case *iast.IndexExpression:
		recv, err := in.evalExpr(target.Receiver, e)
		if err != nil {
			return nil, err
		}
		idx, err := in.evalExpr(target.Index, e)
		if err != nil {
			return nil, err
		}
		return val, AssignIndex(recv, idx, val, ex.Pos())
	case *iast.PropertyAccessExpression:
		recv, err := in.evalExpr(target.Receiver, e)
		if err != nil {
			return nil, err
		}
		m, ok := recv.(*value.Map)
		if !ok {
			return nil, zerr.New(zerr.Type, ex.Pos(), "cannot assign property on %s", recv.Kind())
		}
		m.Set(target.Property, val)
		return val, nil
	default:
		return nil, zerr.New(zerr.Syntax, ex.Pos(), "invalid assignment target")
	}
}

// AssignIndex implements list/map index assignment, shared with the
// VM's INDEX-assignment path.
func AssignIndex(recv, idx, val value.Value, pos zerr.Position) error {
	switch r := recv.(type) {
	case *value.List:
		i, ok := idx.(*value.Integer)
		if !ok {
			return zerr.New(zerr.Type, pos, "list index must be an integer")
		}
		n := i.Val.Int64()
		if n < 0 || n >= int64(len(r.Elements)) {
			return zerr.New(zerr.Attribute, pos, "list index %d out of range", n)
		}
		r.Elements[n] = val
		return nil
	case *value.Map:
		r.Set(mapKey(idx), val)
		return nil
	default:
		return zerr.New(zerr.Type, pos, "%s does not support index assignment", recv.Kind())
	}
}

func (in *Interpreter) evalPrefix(ex *iast.PrefixExpression, e *env.Environment) (value.Value, error) {
	right, err := in.evalExpr(ex.Right, e)
	if err != nil {
		return nil, err
	}
	return ApplyPrefix(ex.Operator, right, ex.Pos())
}

// ApplyPrefix implements unary operators, shared with the VM's UN
// opcode.
func ApplyPrefix(op string, right value.Value, pos zerr.Position) (value.Value, error) {
	switch op {
	case "!":
		return value.Bool(!right.Truthy()), nil
	case "-":
		switch r := right.(type) {
		case *value.Integer:
			return &value.Integer{Val: new(big.Int).Neg(r.Val)}, nil
		case *value.Float:
			return &value.Float{Val: -r.Val}, nil
		default:
			return nil, zerr.New(zerr.Type, pos, "cannot negate %s", right.Kind())
		}
	default:
		return nil, zerr.New(zerr.Internal, pos, "unknown prefix operator %q", op)
	}
}

func (in *Interpreter) evalInfix(ex *iast.InfixExpression, e *env.Environment) (value.Value, error) {
	// && and || short-circuit: the right operand must not be evaluated
	// unless needed.
	if ex.Operator == "&&" || ex.Operator == "||" {
		left, err := in.evalExpr(ex.Left, e)
		if err != nil {
			return nil, err
		}
		if ex.Operator == "&&" && !left.Truthy() {
			return value.False, nil
		}
		if ex.Operator == "||" && left.Truthy() {
			return value.True, nil
		}
		right, err := in.evalExpr(ex.Right, e)
		if err != nil {
			return nil, err
		}
		return value.Bool(right.Truthy()), nil
	}

	left, err := in.evalExpr(ex.Left, e)
	if err != nil {
		return nil, err
	}
	right, err := in.evalExpr(ex.Right, e)
	if err != nil {
		return nil, err
	}
	return ApplyInfix(ex.Operator, left, right, ex.Pos())
}

func (in *Interpreter) evalIfExpression(ex *iast.IfExpression, e *env.Environment) (value.Value, error) {
	cond, err := in.evalExpr(ex.Condition, e)
	if err != nil {
		return nil, err
	}
	if cond.Truthy() {
		return in.evalExpr(ex.Then, e)
	}
	return in.evalExpr(ex.Else, e)
}

func (in *Interpreter) evalAwait(ex *iast.AwaitExpression, e *env.Environment) (value.Value, error) {
	v, err := in.evalExpr(ex.Value, e)
	if err != nil {
		return nil, err
	}
	co, ok := v.(*value.Coroutine)
	if !ok {
		// Awaiting a non-coroutine value is a no-op that yields the
		// value itself (§4.4 edge case: await on an already-resolved
		// expression).
		return v, nil
	}
	live := in.Sched.SpawnValue(co)
	in.Sched.Drain()
	if live.Err != nil {
		return nil, live.Err
	}
	return live.Result, nil
}

func (in *Interpreter) evalEmbedded(ex *iast.EmbeddedLiteral, e *env.Environment) (value.Value, error) {
	if ex.Language == "python" {
		return pyembed.Run(ex.Source, ex.Pos())
	}
	if in.Ctx == nil || in.Ctx.Renderer == nil {
		return nil, zerr.New(zerr.Internal, ex.Pos(), "no embedded-language collaborator configured")
	}
	return in.Ctx.Renderer.Op("embed:"+ex.Language, []value.Value{&value.String{Val: ex.Source}})
}
