// Package stdlib registers every host-provided function named in the
// external interfaces section: the free functions a Zexus program
// reaches by plain identifier call, shared verbatim between the
// tree-walking evaluator and the bytecode VM's CALL_NAME (§6.2). Both
// engines install the same table into their own global environment so
// neither can drift from the other's builtin surface.
package stdlib

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"math/rand"
	"os"
	"time"

	"github.com/pterm/pterm"

	"github.com/zexus-lang/zexus/pkg/core/env"
	"github.com/zexus-lang/zexus/pkg/core/value"
	"github.com/zexus-lang/zexus/pkg/zerr"
)

// renderTags lists the renderer-delegation group: each call is simply
// forwarded to the configured value.Renderer under its own name as the
// op tag, argument list untouched (§6.2, §6.4).
var renderTags = []string{
	"define_screen", "define_component", "render_screen", "add_to_screen",
	"set_theme", "mix", "create_canvas", "draw_line", "draw_circle",
	"draw_rectangle", "draw_text", "create_animation", "start_animation",
}

// Install binds every built-in name into g. Called once per engine at
// construction time (eval.New, vm.New) so both start from an identical
// global frame.
func Install(g *env.Environment) {
	def := func(name string, arity int, fn value.BuiltinFunc) {
		g.Define(name, &value.Builtin{Name: name, Arity: arity, Fn: fn})
	}

	def("string", 1, biString)
	def("len", 1, biLen)
	def("first", 1, biFirst)
	def("rest", 1, biRest)
	def("push", 2, biPush)
	def("map", 2, biMap)
	def("filter", 2, biFilter)
	def("reduce", -1, biReduce)
	def("datetime_now", 0, biDatetimeNow)
	def("random", 0, biRandom)
	def("sqrt", 1, biSqrt)
	def("to_hex", 1, biToHex)
	def("from_hex", 1, biFromHex)
	def("file_read_text", 1, biFileReadText)
	def("file_write_text", 2, biFileWriteText)
	def("read_json", 1, biReadJSON)
	def("write_json", 2, biWriteJSON)
	def("list_dir", 1, biListDir)
	def("debug_log", -1, biDebugLog)
	def("debug_trace", 1, biDebugTrace)
	def("sleep", 1, biSleep)
	def("spawn", 1, biSpawn)
	def("register_event", 2, biRegisterEvent)
	def("print", -1, biPrint)
	def("__iter__", 1, biIterNew)
	def("__next__", 1, biIterNext)

	for _, tag := range renderTags {
		tag := tag
		def(tag, -1, func(ctx *value.CallCtx, args []value.Value) (value.Value, error) {
			return renderOp(ctx, tag, args)
		})
	}
}

func typeErr(format string, a ...any) error {
	return zerr.New(zerr.Type, zerr.Position{}, format, a...)
}

func arityErr(format string, a ...any) error {
	return zerr.New(zerr.Arity, zerr.Position{}, format, a...)
}

// ---- conversion / inspection ------------------------------------------

func biString(ctx *value.CallCtx, args []value.Value) (value.Value, error) {
	return &value.String{Val: args[0].String()}, nil
}

func biLen(ctx *value.CallCtx, args []value.Value) (value.Value, error) {
	switch v := args[0].(type) {
	case *value.String:
		return value.NewInt(int64(len([]rune(v.Val)))), nil
	case *value.List:
		return value.NewInt(int64(len(v.Elements))), nil
	case *value.Map:
		return value.NewInt(int64(v.Len())), nil
	default:
		return nil, typeErr("len expects a string, list or map, got %s", v.Kind())
	}
}

// ---- list helpers, all non-mutating (§6.2: push here is the free
// function, distinct from the mutating .push() method) -----------------

func biFirst(ctx *value.CallCtx, args []value.Value) (value.Value, error) {
	l, ok := args[0].(*value.List)
	if !ok {
		return nil, typeErr("first expects a list, got %s", args[0].Kind())
	}
	if len(l.Elements) == 0 {
		return value.Null, nil
	}
	return l.Elements[0], nil
}

func biRest(ctx *value.CallCtx, args []value.Value) (value.Value, error) {
	l, ok := args[0].(*value.List)
	if !ok {
		return nil, typeErr("rest expects a list, got %s", args[0].Kind())
	}
	if len(l.Elements) == 0 {
		return &value.List{}, nil
	}
	out := make([]value.Value, len(l.Elements)-1)
	copy(out, l.Elements[1:])
	return &value.List{Elements: out}, nil
}

func biPush(ctx *value.CallCtx, args []value.Value) (value.Value, error) {
	l, ok := args[0].(*value.List)
	if !ok {
		return nil, typeErr("push expects a list, got %s", args[0].Kind())
	}
	out := make([]value.Value, len(l.Elements)+1)
	copy(out, l.Elements)
	out[len(l.Elements)] = args[1]
	return &value.List{Elements: out}, nil
}

func biMap(ctx *value.CallCtx, args []value.Value) (value.Value, error) {
	l, ok := args[0].(*value.List)
	if !ok {
		return nil, typeErr("map expects a list, got %s", args[0].Kind())
	}
	out := make([]value.Value, len(l.Elements))
	for i, el := range l.Elements {
		v, err := ctx.Call(args[1], []value.Value{el})
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return &value.List{Elements: out}, nil
}

func biFilter(ctx *value.CallCtx, args []value.Value) (value.Value, error) {
	l, ok := args[0].(*value.List)
	if !ok {
		return nil, typeErr("filter expects a list, got %s", args[0].Kind())
	}
	var out []value.Value
	for _, el := range l.Elements {
		keep, err := ctx.Call(args[1], []value.Value{el})
		if err != nil {
			return nil, err
		}
		if keep.Truthy() {
			out = append(out, el)
		}
	}
	return &value.List{Elements: out}, nil
}

func biReduce(ctx *value.CallCtx, args []value.Value) (value.Value, error) {
	if len(args) != 2 && len(args) != 3 {
		return nil, arityErr("reduce expects 2 or 3 arguments, got %d", len(args))
	}
	l, ok := args[0].(*value.List)
	if !ok {
		return nil, typeErr("reduce expects a list, got %s", args[0].Kind())
	}
	fn := args[1]

	var acc value.Value
	elems := l.Elements
	if len(args) == 3 {
		acc = args[2]
	} else {
		if len(elems) == 0 {
			return nil, typeErr("reduce of an empty list with no initial value")
		}
		acc = elems[0]
		elems = elems[1:]
	}
	for _, el := range elems {
		v, err := ctx.Call(fn, []value.Value{acc, el})
		if err != nil {
			return nil, err
		}
		acc = v
	}
	return acc, nil
}

// ---- time / math -------------------------------------------------------

func biDatetimeNow(ctx *value.CallCtx, args []value.Value) (value.Value, error) {
	return &value.DateTime{Val: time.Now().UnixNano()}, nil
}

func biRandom(ctx *value.CallCtx, args []value.Value) (value.Value, error) {
	return &value.Float{Val: rand.Float64()}, nil
}

func toFloat(v value.Value) (float64, bool) {
	switch n := v.(type) {
	case *value.Integer:
		f, _ := new(big.Float).SetInt(n.Val).Float64()
		return f, true
	case *value.Float:
		return n.Val, true
	default:
		return 0, false
	}
}

func biSqrt(ctx *value.CallCtx, args []value.Value) (value.Value, error) {
	f, ok := toFloat(args[0])
	if !ok {
		return nil, typeErr("sqrt expects a number, got %s", args[0].Kind())
	}
	if f < 0 {
		return nil, typeErr("sqrt of a negative number")
	}
	return &value.Float{Val: math.Sqrt(f)}, nil
}

func biToHex(ctx *value.CallCtx, args []value.Value) (value.Value, error) {
	i, ok := args[0].(*value.Integer)
	if !ok {
		return nil, typeErr("to_hex expects an integer, got %s", args[0].Kind())
	}
	return &value.String{Val: i.Val.Text(16)}, nil
}

func biFromHex(ctx *value.CallCtx, args []value.Value) (value.Value, error) {
	s, ok := args[0].(*value.String)
	if !ok {
		return nil, typeErr("from_hex expects a string, got %s", args[0].Kind())
	}
	n, ok := new(big.Int).SetString(s.Val, 16)
	if !ok {
		return nil, typeErr("%q is not valid hex", s.Val)
	}
	return &value.Integer{Val: n}, nil
}

// ---- filesystem, all raising IOError on failure (§6.2, §7) -------------

func ioErr(format string, a ...any) error {
	return zerr.New(zerr.IO, zerr.Position{}, format, a...)
}

func biFileReadText(ctx *value.CallCtx, args []value.Value) (value.Value, error) {
	path, ok := args[0].(*value.String)
	if !ok {
		return nil, typeErr("file_read_text expects a string path")
	}
	data, err := os.ReadFile(path.Val)
	if err != nil {
		return nil, ioErr("file_read_text: %v", err)
	}
	return &value.String{Val: string(data)}, nil
}

func biFileWriteText(ctx *value.CallCtx, args []value.Value) (value.Value, error) {
	path, ok := args[0].(*value.String)
	if !ok {
		return nil, typeErr("file_write_text expects a string path")
	}
	content, ok := args[1].(*value.String)
	if !ok {
		return nil, typeErr("file_write_text expects a string body")
	}
	if err := os.WriteFile(path.Val, []byte(content.Val), 0o644); err != nil {
		return nil, ioErr("file_write_text: %v", err)
	}
	return value.Null, nil
}

func biReadJSON(ctx *value.CallCtx, args []value.Value) (value.Value, error) {
	path, ok := args[0].(*value.String)
	if !ok {
		return nil, typeErr("read_json expects a string path")
	}
	data, err := os.ReadFile(path.Val)
	if err != nil {
		return nil, ioErr("read_json: %v", err)
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, ioErr("read_json: %v", err)
	}
	return jsonToValue(raw), nil
}

func biWriteJSON(ctx *value.CallCtx, args []value.Value) (value.Value, error) {
	path, ok := args[0].(*value.String)
	if !ok {
		return nil, typeErr("write_json expects a string path")
	}
	data, err := json.MarshalIndent(valueToJSON(args[1]), "", "  ")
	if err != nil {
		return nil, ioErr("write_json: %v", err)
	}
	if err := os.WriteFile(path.Val, data, 0o644); err != nil {
		return nil, ioErr("write_json: %v", err)
	}
	return value.Null, nil
}

func biListDir(ctx *value.CallCtx, args []value.Value) (value.Value, error) {
	path, ok := args[0].(*value.String)
	if !ok {
		return nil, typeErr("list_dir expects a string path")
	}
	entries, err := os.ReadDir(path.Val)
	if err != nil {
		return nil, ioErr("list_dir: %v", err)
	}
	out := make([]value.Value, len(entries))
	for i, e := range entries {
		out[i] = &value.String{Val: e.Name()}
	}
	return &value.List{Elements: out}, nil
}

func jsonToValue(raw any) value.Value {
	switch v := raw.(type) {
	case nil:
		return value.Null
	case bool:
		return value.Bool(v)
	case float64:
		if v == math.Trunc(v) {
			return value.NewInt(int64(v))
		}
		return &value.Float{Val: v}
	case string:
		return &value.String{Val: v}
	case []any:
		out := make([]value.Value, len(v))
		for i, el := range v {
			out[i] = jsonToValue(el)
		}
		return &value.List{Elements: out}
	case map[string]any:
		m := value.NewMap()
		for k, el := range v {
			m.Set(k, jsonToValue(el))
		}
		return m
	default:
		return value.Null
	}
}

func valueToJSON(v value.Value) any {
	switch x := v.(type) {
	case *value.NullType:
		return nil
	case *value.Boolean:
		return x.Val
	case *value.Integer:
		return x.Val
	case *value.Float:
		return x.Val
	case *value.String:
		return x.Val
	case *value.List:
		out := make([]any, len(x.Elements))
		for i, el := range x.Elements {
			out[i] = valueToJSON(el)
		}
		return out
	case *value.Map:
		out := make(map[string]any, x.Len())
		for _, k := range x.Keys() {
			el, _ := x.Get(k)
			out[k] = valueToJSON(el)
		}
		return out
	default:
		return x.String()
	}
}

// ---- diagnostics, concurrency, events -----------------------------------

func biDebugLog(ctx *value.CallCtx, args []value.Value) (value.Value, error) {
	if len(args) != 1 && len(args) != 2 {
		return nil, arityErr("debug_log expects 1 or 2 arguments, got %d", len(args))
	}
	if ctx != nil && ctx.Debug {
		if len(args) == 2 {
			pterm.Debug.Println(fmt.Sprintf("%s %s", args[0].String(), args[1].String()))
		} else {
			pterm.Debug.Println(args[0].String())
		}
	}
	return value.Null, nil
}

func biDebugTrace(ctx *value.CallCtx, args []value.Value) (value.Value, error) {
	if ctx != nil && ctx.Debug {
		pterm.Debug.Println(args[0].String())
	}
	return value.Null, nil
}

func biSleep(ctx *value.CallCtx, args []value.Value) (value.Value, error) {
	secs, ok := toFloat(args[0])
	if !ok {
		return nil, typeErr("sleep expects a number of seconds, got %s", args[0].Kind())
	}
	time.Sleep(time.Duration(secs * float64(time.Second)))
	return value.Null, nil
}

// biSpawn is the tree-walking evaluator's route to SPAWN semantics
// (§4.7): the VM's emitter recognizes the identifier "spawn" and emits
// a dedicated opcode instead, but the evaluator has no opcode-level
// fast path, so it reaches the scheduler through this ordinary builtin.
func biSpawn(ctx *value.CallCtx, args []value.Value) (value.Value, error) {
	co, ok := args[0].(*value.Coroutine)
	if !ok {
		return nil, typeErr("spawn expects a coroutine, got %s", args[0].Kind())
	}
	if ctx == nil || ctx.Scheduler == nil {
		return nil, zerr.New(zerr.Internal, zerr.Position{}, "no scheduler configured")
	}
	return ctx.Scheduler.SpawnValue(co), nil
}

func biRegisterEvent(ctx *value.CallCtx, args []value.Value) (value.Value, error) {
	name, ok := args[0].(*value.String)
	if !ok {
		return nil, typeErr("register_event expects a string event name, got %s", args[0].Kind())
	}
	if ctx.Events == nil {
		ctx.Events = value.NewEventRegistry()
	}
	ctx.Events.Register(name.Val, args[1])
	return value.Null, nil
}

// biPrint mirrors the evaluator's native `print` statement handling
// exactly, so a bare CALL_NAME "print" emitted for the VM's PRINT
// statement behaves identically under either engine.
func biPrint(ctx *value.CallCtx, args []value.Value) (value.Value, error) {
	if ctx != nil && ctx.Renderer != nil {
		return ctx.Renderer.Op("print", args)
	}
	for _, v := range args {
		fmt.Println(v.String())
	}
	return value.Null, nil
}

// ---- for-each iterator protocol (§4.6): a plain Map reused as a
// mutable iterator handle, and another as the done/key/value step
// result the emitter's desugared loop reads via OpProp. -----------------

func biIterNew(ctx *value.CallCtx, args []value.Value) (value.Value, error) {
	switch v := args[0].(type) {
	case *value.List:
		h := value.NewMap()
		h.Set("kind", &value.String{Val: "list"})
		h.Set("src", v)
		h.Set("idx", value.NewInt(0))
		return h, nil
	case *value.Map:
		keys := make([]value.Value, 0, v.Len())
		for _, k := range v.Keys() {
			keys = append(keys, &value.String{Val: k})
		}
		h := value.NewMap()
		h.Set("kind", &value.String{Val: "map"})
		h.Set("src", v)
		h.Set("keys", &value.List{Elements: keys})
		h.Set("idx", value.NewInt(0))
		return h, nil
	default:
		return nil, typeErr("%s is not iterable", v.Kind())
	}
}

func biIterNext(ctx *value.CallCtx, args []value.Value) (value.Value, error) {
	h, ok := args[0].(*value.Map)
	if !ok {
		return nil, typeErr("__next__ expects an iterator handle")
	}
	kindV, _ := h.Get("kind")
	idxV, _ := h.Get("idx")
	idx := idxV.(*value.Integer).Val.Int64()

	done := func() *value.Map {
		step := value.NewMap()
		step.Set("done", value.True)
		step.Set("key", value.Null)
		step.Set("value", value.Null)
		return step
	}
	step := func(key, val value.Value) *value.Map {
		s := value.NewMap()
		s.Set("done", value.False)
		s.Set("key", key)
		s.Set("value", val)
		return s
	}

	switch kindV.(*value.String).Val {
	case "list":
		srcV, _ := h.Get("src")
		src := srcV.(*value.List)
		if idx >= int64(len(src.Elements)) {
			return done(), nil
		}
		h.Set("idx", value.NewInt(idx+1))
		return step(value.NewInt(idx), src.Elements[idx]), nil
	case "map":
		keysV, _ := h.Get("keys")
		keys := keysV.(*value.List)
		if idx >= int64(len(keys.Elements)) {
			return done(), nil
		}
		key := keys.Elements[idx].(*value.String)
		srcV, _ := h.Get("src")
		src := srcV.(*value.Map)
		val, _ := src.Get(key.Val)
		h.Set("idx", value.NewInt(idx+1))
		return step(key, val), nil
	default:
		return nil, zerr.New(zerr.Internal, zerr.Position{}, "corrupt iterator handle")
	}
}

// ---- renderer delegation (§6.2, §6.4) -----------------------------------

func renderOp(ctx *value.CallCtx, tag string, args []value.Value) (value.Value, error) {
	if ctx == nil || ctx.Renderer == nil {
		return nil, zerr.New(zerr.Internal, zerr.Position{}, "no renderer configured for %q", tag)
	}
	return ctx.Renderer.Op(tag, args)
}
