package eval

import (
	"math/big"
	"strings"

	"github.com/zexus-lang/zexus/pkg/core/value"
	"github.com/zexus-lang/zexus/pkg/zerr"
)

// call is the shape of CallCtx.Call, threaded down to method dispatch
// so higher-order list methods (map/filter/reduce) can invoke their
// callback without this package depending on either engine's call
// machinery.
type call func(fn value.Value, args []value.Value) (value.Value, error)

// DispatchMethod resolves a `.method(...)` call against the built-in
// method table for the receiver's kind. It is shared with the VM's
// method-call site so both engines expose the identical surface (§4.4,
// §6.2). call is nil-safe for receivers/methods that never invoke it.
func DispatchMethod(recv value.Value, method string, args []value.Value, pos zerr.Position, call call) (value.Value, error) {
	switch r := recv.(type) {
	case *value.List:
		return listMethod(r, method, args, pos, call)
	case *value.Map:
		return mapMethod(r, method, args, pos)
	case *value.String:
		return stringMethod(r, method, args, pos)
	default:
		return nil, zerr.New(zerr.Attribute, pos, "%s has no method %q", recv.Kind(), method)
	}
}

func listMethod(l *value.List, method string, args []value.Value, pos zerr.Position, call call) (value.Value, error) {
	switch method {
	case "map":
		if len(args) != 1 {
			return nil, zerr.New(zerr.Arity, pos, "map expects 1 argument")
		}
		if call == nil {
			return nil, zerr.New(zerr.Internal, pos, "no call collaborator configured for map")
		}
		out := make([]value.Value, len(l.Elements))
		for i, el := range l.Elements {
			v, err := call(args[0], []value.Value{el})
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return &value.List{Elements: out}, nil
	case "filter":
		if len(args) != 1 {
			return nil, zerr.New(zerr.Arity, pos, "filter expects 1 argument")
		}
		if call == nil {
			return nil, zerr.New(zerr.Internal, pos, "no call collaborator configured for filter")
		}
		var out []value.Value
		for _, el := range l.Elements {
			keep, err := call(args[0], []value.Value{el})
			if err != nil {
				return nil, err
			}
			if keep.Truthy() {
				out = append(out, el)
			}
		}
		return &value.List{Elements: out}, nil
	case "reduce":
		if len(args) != 1 && len(args) != 2 {
			return nil, zerr.New(zerr.Arity, pos, "reduce expects 1 or 2 arguments")
		}
		if call == nil {
			return nil, zerr.New(zerr.Internal, pos, "no call collaborator configured for reduce")
		}
		fn := args[0]
		var acc value.Value
		elems := l.Elements
		if len(args) == 2 {
			acc = args[1]
		} else {
			if len(elems) == 0 {
				return nil, zerr.New(zerr.Type, pos, "reduce of an empty list with no initial value")
			}
			acc = elems[0]
			elems = elems[1:]
		}
		for _, el := range elems {
			v, err := call(fn, []value.Value{acc, el})
			if err != nil {
				return nil, err
			}
			acc = v
		}
		return acc, nil
	case "push":
		if len(args) != 1 {
			return nil, zerr.New(zerr.Arity, pos, "push expects 1 argument")
		}
		l.Elements = append(l.Elements, args[0])
		return l, nil
	case "pop":
		if len(l.Elements) == 0 {
			return nil, zerr.New(zerr.Attribute, pos, "pop on empty list")
		}
		last := l.Elements[len(l.Elements)-1]
		l.Elements = l.Elements[:len(l.Elements)-1]
		return last, nil
	case "len":
		return value.NewInt(int64(len(l.Elements))), nil
	case "first":
		if len(l.Elements) == 0 {
			return value.Null, nil
		}
		return l.Elements[0], nil
	case "rest":
		if len(l.Elements) == 0 {
			return &value.List{}, nil
		}
		out := make([]value.Value, len(l.Elements)-1)
		copy(out, l.Elements[1:])
		return &value.List{Elements: out}, nil
	case "join":
		sep := ""
		if len(args) == 1 {
			s, ok := args[0].(*value.String)
			if !ok {
				return nil, zerr.New(zerr.Type, pos, "join separator must be a string")
			}
			sep = s.Val
		}
		out := ""
		for i, el := range l.Elements {
			if i > 0 {
				out += sep
			}
			out += el.String()
		}
		return &value.String{Val: out}, nil
	default:
		return nil, zerr.New(zerr.Attribute, pos, "list has no method %q", method)
	}
}

func mapMethod(m *value.Map, method string, args []value.Value, pos zerr.Position) (value.Value, error) {
	switch method {
	case "keys":
		keys := make([]value.Value, 0, m.Len())
		for _, k := range m.Keys() {
			keys = append(keys, &value.String{Val: k})
		}
		return &value.List{Elements: keys}, nil
	case "values":
		vals := make([]value.Value, 0, m.Len())
		for _, k := range m.Keys() {
			v, _ := m.Get(k)
			vals = append(vals, v)
		}
		return &value.List{Elements: vals}, nil
	case "has":
		if len(args) != 1 {
			return nil, zerr.New(zerr.Arity, pos, "has expects 1 argument")
		}
		_, ok := m.Get(args[0].String())
		return value.Bool(ok), nil
	case "delete":
		if len(args) != 1 {
			return nil, zerr.New(zerr.Arity, pos, "delete expects 1 argument")
		}
		m.Delete(args[0].String())
		return value.Null, nil
	case "len":
		return value.NewInt(int64(m.Len())), nil
	default:
		return nil, zerr.New(zerr.Attribute, pos, "map has no method %q", method)
	}
}

func stringMethod(s *value.String, method string, args []value.Value, pos zerr.Position) (value.Value, error) {
	switch method {
	case "len":
		return value.NewInt(int64(len([]rune(s.Val)))), nil
	case "upper":
		return &value.String{Val: strings.ToUpper(s.Val)}, nil
	case "lower":
		return &value.String{Val: strings.ToLower(s.Val)}, nil
	case "split":
		sep := ""
		if len(args) == 1 {
			a, ok := args[0].(*value.String)
			if !ok {
				return nil, zerr.New(zerr.Type, pos, "split separator must be a string")
			}
			sep = a.Val
		}
		parts := strings.Split(s.Val, sep)
		out := make([]value.Value, len(parts))
		for i, p := range parts {
			out[i] = &value.String{Val: p}
		}
		return &value.List{Elements: out}, nil
	case "trim":
		return &value.String{Val: strings.TrimSpace(s.Val)}, nil
	case "contains":
		if len(args) != 1 {
			return nil, zerr.New(zerr.Arity, pos, "contains expects 1 argument")
		}
		needle, ok := args[0].(*value.String)
		if !ok {
			return nil, zerr.New(zerr.Type, pos, "contains expects a string argument")
		}
		return value.Bool(strings.Contains(s.Val, needle.Val)), nil
	case "to_int":
		n, ok := new(big.Int).SetString(s.Val, 10)
		if !ok {
			return nil, zerr.New(zerr.Type, pos, "cannot convert %q to an integer", s.Val)
		}
		return &value.Integer{Val: n}, nil
	default:
		return nil, zerr.New(zerr.Attribute, pos, "string has no method %q", method)
	}
}
