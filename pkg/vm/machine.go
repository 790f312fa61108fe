// Package vm's stack machine executes a compiled Program. It shares its
// object model, environment chain, arithmetic and method dispatch with
// the tree-walking evaluator (pkg/eval) so both engines agree on every
// observable behavior (§4.6, §4.7): variables are still resolved by
// name against an *env.Environment rather than by slot, and a
// VM-defined function is just a value.Action whose Body happens to be a
// *FunctionProto instead of an AST node.
package vm

import (
	"strings"

	"github.com/zexus-lang/zexus/pkg/core/env"
	"github.com/zexus-lang/zexus/pkg/core/value"
	"github.com/zexus-lang/zexus/pkg/eval"
	"github.com/zexus-lang/zexus/pkg/module"
	"github.com/zexus-lang/zexus/pkg/pyembed"
	"github.com/zexus-lang/zexus/pkg/scheduler"
	"github.com/zexus-lang/zexus/pkg/stdlib"
	"github.com/zexus-lang/zexus/pkg/zerr"
)

// VM executes a Program against a shared global environment and call
// context, exactly mirroring eval.Interpreter's collaborators.
type VM struct {
	Global *env.Environment
	Ctx    *value.CallCtx
	Sched  *scheduler.Scheduler
	prog   *Program
}

func New(ctx *value.CallCtx, prog *Program) *VM {
	sched := scheduler.New()
	m := &VM{Global: env.New(), Ctx: ctx, Sched: sched, prog: prog}
	stdlib.Install(m.Global)
	if ctx != nil {
		ctx.Scheduler = sched
		ctx.Call = func(fn value.Value, args []value.Value) (value.Value, error) {
			return m.callValue(fn, args, zerr.Position{})
		}
		if ctx.Modules == nil {
			ctx.Modules = module.New()
		}
	}
	return m
}

// Run executes the program's top-level function to completion and
// drains the scheduler, so no spawned task outlives the run (§5).
func (m *VM) Run() (v value.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, zerr.New(zerr.Internal, zerr.Position{}, "vm: %v", r)
		}
	}()
	v, err = m.execProto(m.prog.Main, m.Global)
	m.Sched.Drain()
	return v, err
}

// frame is one call's mutable execution state: its own operand stack,
// program counter and pending try/catch targets. The environment it
// closes over is supplied by the caller (the function's defining scope,
// child-ed for the call), not owned here.
type frame struct {
	proto *FunctionProto
	env   *env.Environment
	stack []value.Value
	pc    int
	tries []int
}

func (fr *frame) push(v value.Value) { fr.stack = append(fr.stack, v) }

func (fr *frame) pop() value.Value {
	n := len(fr.stack)
	v := fr.stack[n-1]
	fr.stack = fr.stack[:n-1]
	return v
}

func (fr *frame) peek() value.Value { return fr.stack[len(fr.stack)-1] }

func (m *VM) execProto(proto *FunctionProto, callEnv *env.Environment) (value.Value, error) {
	fr := &frame{proto: proto, env: callEnv}
	for fr.pc < len(proto.Code) {
		instr := proto.Code[fr.pc]
		fr.pc++
		result, err := m.step(fr, instr)
		if err != nil {
			if len(fr.tries) == 0 {
				return nil, err
			}
			target := fr.tries[len(fr.tries)-1]
			fr.tries = fr.tries[:len(fr.tries)-1]
			fr.push(eval.ToErrorValue(err))
			fr.pc = target
			continue
		}
		if result != nil {
			return result, nil
		}
	}
	return value.Null, nil
}

func pos(instr Instr) zerr.Position { return zerr.Position{Line: instr.Line} }

// step executes one instruction. A non-nil returned value.Value means
// the frame is done (OpReturn); a non-nil error either propagates or,
// if a try is active, is caught by execProto above.
func (m *VM) step(fr *frame, instr Instr) (value.Value, error) {
	switch instr.Op {
	case OpLoadConst:
		fr.push(fr.proto.Consts[instr.Int])
	case OpLoad:
		v, err := fr.env.MustGet(instr.Str, pos(instr))
		if err != nil {
			return nil, err
		}
		fr.push(v)
	case OpStore:
		fr.env.Define(instr.Str, fr.pop())
	case OpAssign:
		v := fr.pop()
		if !fr.env.Assign(instr.Str, v) {
			return nil, zerr.New(zerr.Name, pos(instr), "undefined name %q", instr.Str)
		}
	case OpPop:
		fr.pop()
	case OpDup:
		fr.push(fr.peek())
	case OpMakeList:
		elems := make([]value.Value, instr.Int)
		for i := instr.Int - 1; i >= 0; i-- {
			elems[i] = fr.pop()
		}
		fr.push(&value.List{Elements: elems})
	case OpMakeMap:
		pairs := make([][2]value.Value, instr.Int)
		for i := instr.Int - 1; i >= 0; i-- {
			val := fr.pop()
			key := fr.pop()
			pairs[i] = [2]value.Value{key, val}
		}
		out := value.NewMap()
		for _, p := range pairs {
			out.Set(mapKey(p[0]), p[1])
		}
		fr.push(out)
	case OpIndex:
		idx := fr.pop()
		recv := fr.pop()
		v, err := eval.IndexValue(recv, idx, pos(instr))
		if err != nil {
			return nil, err
		}
		fr.push(v)
	case OpProp:
		return nil, m.execProp(fr, instr)
	case OpBin:
		right := fr.pop()
		left := fr.pop()
		v, err := eval.ApplyInfix(instr.Str, left, right, pos(instr))
		if err != nil {
			return nil, err
		}
		fr.push(v)
	case OpUn:
		right := fr.pop()
		v, err := eval.ApplyPrefix(instr.Str, right, pos(instr))
		if err != nil {
			return nil, err
		}
		fr.push(v)
	case OpJump:
		fr.pc = instr.Int
	case OpJumpIfFalse:
		if !fr.pop().Truthy() {
			fr.pc = instr.Int
		}
	case OpCallName:
		args := popArgs(fr, instr.Int)
		callee, err := fr.env.MustGet(instr.Str, pos(instr))
		if err != nil {
			return nil, err
		}
		v, err := m.callValue(callee, args, pos(instr))
		if err != nil {
			return nil, err
		}
		fr.push(v)
	case OpCallTop:
		args := popArgs(fr, instr.Int)
		callee := fr.pop()
		v, err := m.callValue(callee, args, pos(instr))
		if err != nil {
			return nil, err
		}
		fr.push(v)
	case OpCallFuncConst:
		proto := m.prog.Functions[instr.Int]
		fr.push(m.makeClosure(proto, fr.env))
	case OpReturn:
		return fr.pop(), nil
	case OpStoreFunc:
		proto := m.prog.Functions[instr.Int]
		fr.env.Define(proto.Name, m.makeClosure(proto, fr.env))
	case OpExport:
		if err := fr.env.Export(instr.Str); err != nil {
			return nil, err
		}
	case OpSpawn:
		co, ok := fr.pop().(*value.Coroutine)
		if !ok {
			return nil, zerr.New(zerr.Type, pos(instr), "spawn expects a coroutine")
		}
		fr.push(m.Sched.SpawnValue(co))
	case OpAwait:
		v := fr.pop()
		co, ok := v.(*value.Coroutine)
		if !ok {
			fr.push(v)
			return nil, nil
		}
		live := m.Sched.SpawnValue(co)
		m.Sched.Drain()
		if live.Err != nil {
			return nil, live.Err
		}
		fr.push(live.Result)
	case OpRegisterEvent:
		if m.Ctx.Events == nil {
			m.Ctx.Events = value.NewEventRegistry()
		}
		m.Ctx.Events.Declare(&value.EventDescriptor{Name: instr.Str, Fields: instr.Names})
	case OpEmitEvent:
		payload := fr.pop()
		if m.Ctx.Events != nil {
			for _, h := range m.Ctx.Events.HandlersFor(instr.Str) {
				if _, err := m.callValue(h, []value.Value{payload}, pos(instr)); err != nil {
					return nil, err
				}
			}
		}
	case OpDefineEnum:
		fr.env.Define(instr.Str, enumNamespace(instr.Str, instr.Names))
	case OpAssertProtocol:
		if !fr.pop().Truthy() {
			return nil, zerr.New(zerr.Protocol, pos(instr), "contract %q requirement failed", instr.Str)
		}
	case OpImport:
		if m.Ctx == nil || m.Ctx.Modules == nil {
			return nil, zerr.New(zerr.IO, pos(instr), "no module resolver configured, cannot resolve %q", instr.Str)
		}
		mod, err := m.Ctx.Modules.Resolve(instr.Str)
		if err != nil {
			return nil, err
		}
		fr.push(mod)
	case OpTryPush:
		fr.tries = append(fr.tries, instr.Int)
	case OpTryPop:
		fr.tries = fr.tries[:len(fr.tries)-1]
	case OpRaise:
		v := fr.pop()
		if err, ok := v.(error); ok {
			return nil, err
		}
		return nil, zerr.New(zerr.Internal, pos(instr), "raise: %s", v.String())
	case OpRenderOp:
		args := popArgs(fr, instr.Int)
		if instr.Str == "embed:python" {
			src := ""
			if len(args) == 1 {
				src = args[0].String()
			}
			v, err := pyembed.Run(src, pos(instr))
			if err != nil {
				return nil, err
			}
			fr.push(v)
			return nil, nil
		}
		if m.Ctx == nil || m.Ctx.Renderer == nil {
			return nil, zerr.New(zerr.Internal, pos(instr), "no renderer configured for %q", instr.Str)
		}
		v, err := m.Ctx.Renderer.Op(instr.Str, args)
		if err != nil {
			return nil, err
		}
		fr.push(v)
	default:
		return nil, zerr.New(zerr.Internal, pos(instr), "vm: unhandled opcode %d", instr.Op)
	}
	return nil, nil
}

func popArgs(fr *frame, n int) []value.Value {
	args := make([]value.Value, n)
	for i := n - 1; i >= 0; i-- {
		args[i] = fr.pop()
	}
	return args
}

func mapKey(v value.Value) string { return v.String() }

func enumNamespace(name string, variants []string) *value.Map {
	m := value.NewMap()
	for _, v := range variants {
		m.Set(v, &value.EnumValue{Enum: name, Variant: v})
	}
	return m
}

// makeClosure wraps proto as a callable Action closed over defEnv. Free
// variables are not copied out at this point; they resolve lazily
// through defEnv's outward chain exactly as in the tree-walking
// evaluator (proto.Free only records which names the semantic pass
// found free, for diagnostics and future slot-based optimization).
func (m *VM) makeClosure(proto *FunctionProto, defEnv *env.Environment) *value.Action {
	return &value.Action{
		Name:     proto.Name,
		Params:   proto.Params,
		Body:     proto,
		Env:      defEnv,
		IsAsync:  proto.IsAsync,
		IsLambda: proto.Name == "<lambda>",
	}
}

func (m *VM) callValue(callee value.Value, args []value.Value, p zerr.Position) (value.Value, error) {
	switch fn := callee.(type) {
	case *value.Builtin:
		if fn.Arity >= 0 && len(args) != fn.Arity {
			return nil, zerr.New(zerr.Arity, p, "%s expects %d argument(s), got %d", fn.Name, fn.Arity, len(args))
		}
		return fn.Fn(m.Ctx, args)
	case *value.Action:
		return m.callAction(fn, args, p)
	default:
		return nil, zerr.New(zerr.Type, p, "%s is not callable", callee.Kind())
	}
}

// callAction applies fn. An async action's call does not run its body:
// per §4.7's CALL_* semantics it wraps the pending call into a
// Coroutine and returns that immediately; the body only runs once the
// coroutine is spawned or awaited (§4.4, §5).
func (m *VM) callAction(fn *value.Action, args []value.Value, p zerr.Position) (value.Value, error) {
	if len(args) != len(fn.Params) {
		name := fn.Name
		if name == "" {
			name = "<anonymous>"
		}
		return nil, zerr.New(zerr.Arity, p, "%s expects %d argument(s), got %d", name, len(fn.Params), len(args))
	}
	if fn.IsAsync {
		return &value.Coroutine{State: value.CoroutinePending, Driver: &callDriver{m: m, fn: fn, args: args, pos: p}}, nil
	}
	return m.runActionBody(fn, args, p)
}

func (m *VM) runActionBody(fn *value.Action, args []value.Value, p zerr.Position) (value.Value, error) {
	defEnv, ok := fn.Env.(*env.Environment)
	if !ok {
		return nil, zerr.New(zerr.Internal, p, "closure has non-VM scope")
	}
	proto, ok := fn.Body.(*FunctionProto)
	if !ok {
		return nil, zerr.New(zerr.Internal, p, "closure body is not compiled bytecode")
	}
	call := defEnv.Child()
	for i, param := range fn.Params {
		call.Define(param, args[i])
	}
	return m.execProto(proto, call)
}

// callDriver is the scheduler.Driver behind a pending async call:
// created at call time, only advanced once SPAWN or AWAIT enqueues it.
type callDriver struct {
	m    *VM
	fn   *value.Action
	args []value.Value
	pos  zerr.Position
}

func (d *callDriver) Advance() scheduler.Step {
	v, err := d.m.runActionBody(d.fn, d.args, d.pos)
	return scheduler.Step{Done: true, Result: v, Err: err}
}

// execProp multiplexes OpProp's overloaded encodings: a plain property
// read, a `.method(...)` dispatch, or the two assignment-target forms
// an AssignmentExpression lowers to (§4.6 desugaring choices, kept in
// the emitter rather than adding dedicated opcodes for every target
// shape).
func (m *VM) execProp(fr *frame, instr Instr) error {
	switch {
	case strings.HasPrefix(instr.Str, "method:"):
		method := strings.TrimPrefix(instr.Str, "method:")
		args := popArgs(fr, instr.Int)
		recv := fr.pop()
		var callFn func(value.Value, []value.Value) (value.Value, error)
		if m.Ctx != nil {
			callFn = m.Ctx.Call
		}
		v, err := eval.DispatchMethod(recv, method, args, pos(instr), callFn)
		if err != nil {
			return err
		}
		fr.push(v)
	case instr.Str == "__index_assign__":
		idx := fr.pop()
		recv := fr.pop()
		val := fr.pop()
		if err := eval.AssignIndex(recv, idx, val, pos(instr)); err != nil {
			return err
		}
		fr.push(val)
	case strings.HasPrefix(instr.Str, "__prop_assign__:"):
		prop := strings.TrimPrefix(instr.Str, "__prop_assign__:")
		recv := fr.pop()
		val := fr.pop()
		mp, ok := recv.(*value.Map)
		if !ok {
			return zerr.New(zerr.Type, pos(instr), "cannot assign property on %s", recv.Kind())
		}
		mp.Set(prop, val)
		fr.push(val)
	default:
		recv := fr.pop()
		switch r := recv.(type) {
		case *value.Map:
			v, ok := r.Get(instr.Str)
			if !ok {
				return zerr.New(zerr.Attribute, pos(instr), "no property %q", instr.Str)
			}
			fr.push(v)
		case *value.Module:
			v, ok := r.Exports.Get(instr.Str)
			if !ok {
				return zerr.New(zerr.Attribute, pos(instr), "module %s has no export %q", r.Name, instr.Str)
			}
			fr.push(v)
		default:
			return zerr.New(zerr.Attribute, pos(instr), "%s has no property %q", recv.Kind(), instr.Str)
		}
	}
	return nil
}
