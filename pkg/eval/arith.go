package eval

import (
	"math/big"

	"github.com/zexus-lang/zexus/pkg/core/value"
	"github.com/zexus-lang/zexus/pkg/zerr"
)

// ApplyInfix implements binary operators over runtime values, shared by
// the tree-walking evaluator and the VM's BIN opcode so both engines
// agree on promotion, comparison and error behavior (§4.4, §7).
func ApplyInfix(op string, left, right value.Value, pos zerr.Position) (value.Value, error) {
	switch op {
	case "+":
		return applyPlus(left, right, pos)
	case "-", "*", "/", "%":
		return applyArith(op, left, right, pos)
	case "==":
		return value.Bool(Equal(left, right)), nil
	case "!=":
		return value.Bool(!Equal(left, right)), nil
	case "<", ">", "<=", ">=":
		return applyCompare(op, left, right, pos)
	default:
		return nil, zerr.New(zerr.Internal, pos, "unknown infix operator %q", op)
	}
}

func applyPlus(left, right value.Value, pos zerr.Position) (value.Value, error) {
	ls, lok := left.(*value.String)
	rs, rok := right.(*value.String)
	if lok && rok {
		return &value.String{Val: ls.Val + rs.Val}, nil
	}
	if lok != rok {
		return nil, zerr.New(zerr.Type, pos, "cannot add %s and %s", left.Kind(), right.Kind())
	}
	if ll, ok := left.(*value.List); ok {
		if rl, ok := right.(*value.List); ok {
			combined := make([]value.Value, 0, len(ll.Elements)+len(rl.Elements))
			combined = append(combined, ll.Elements...)
			combined = append(combined, rl.Elements...)
			return &value.List{Elements: combined}, nil
		}
	}
	return applyArith("+", left, right, pos)
}

func applyArith(op string, left, right value.Value, pos zerr.Position) (value.Value, error) {
	li, liok := left.(*value.Integer)
	ri, riok := right.(*value.Integer)
	if liok && riok {
		return intArith(op, li.Val, ri.Val, pos)
	}
	lf, lfok := numToFloat(left)
	rf, rfok := numToFloat(right)
	if !lfok || !rfok {
		return nil, zerr.New(zerr.Type, pos, "cannot apply %q to %s and %s", op, left.Kind(), right.Kind())
	}
	return floatArith(op, lf, rf, pos)
}

func numToFloat(v value.Value) (float64, bool) {
	switch n := v.(type) {
	case *value.Integer:
		f := new(big.Float).SetInt(n.Val)
		out, _ := f.Float64()
		return out, true
	case *value.Float:
		return n.Val, true
	default:
		return 0, false
	}
}

func intArith(op string, a, b *big.Int, pos zerr.Position) (value.Value, error) {
	r := new(big.Int)
	switch op {
	case "+":
		r.Add(a, b)
	case "-":
		r.Sub(a, b)
	case "*":
		r.Mul(a, b)
	case "/":
		if b.Sign() == 0 {
			return nil, zerr.New(zerr.Arithmetic, pos, "division by zero")
		}
		r.Quo(a, b)
	case "%":
		if b.Sign() == 0 {
			return nil, zerr.New(zerr.Arithmetic, pos, "division by zero")
		}
		r.Rem(a, b)
	}
	return &value.Integer{Val: r}, nil
}

func floatArith(op string, a, b float64, pos zerr.Position) (value.Value, error) {
	switch op {
	case "+":
		return &value.Float{Val: a + b}, nil
	case "-":
		return &value.Float{Val: a - b}, nil
	case "*":
		return &value.Float{Val: a * b}, nil
	case "/":
		if b == 0 {
			return nil, zerr.New(zerr.Arithmetic, pos, "division by zero")
		}
		return &value.Float{Val: a / b}, nil
	case "%":
		if b == 0 {
			return nil, zerr.New(zerr.Arithmetic, pos, "division by zero")
		}
		return &value.Float{Val: float64(int64(a) % int64(b))}, nil
	default:
		return nil, zerr.New(zerr.Internal, pos, "unknown arithmetic operator %q", op)
	}
}

func applyCompare(op string, left, right value.Value, pos zerr.Position) (value.Value, error) {
	if ls, ok := left.(*value.String); ok {
		if rs, ok := right.(*value.String); ok {
			return value.Bool(compareStrings(op, ls.Val, rs.Val)), nil
		}
	}
	lf, lfok := numToFloat(left)
	rf, rfok := numToFloat(right)
	if !lfok || !rfok {
		return nil, zerr.New(zerr.Type, pos, "cannot compare %s and %s", left.Kind(), right.Kind())
	}
	switch op {
	case "<":
		return value.Bool(lf < rf), nil
	case ">":
		return value.Bool(lf > rf), nil
	case "<=":
		return value.Bool(lf <= rf), nil
	case ">=":
		return value.Bool(lf >= rf), nil
	default:
		return nil, zerr.New(zerr.Internal, pos, "unknown comparison operator %q", op)
	}
}

func compareStrings(op, a, b string) bool {
	switch op {
	case "<":
		return a < b
	case ">":
		return a > b
	case "<=":
		return a <= b
	case ">=":
		return a >= b
	}
	return false
}

// Equal implements value equality for ==/!=, shared with the VM.
func Equal(left, right value.Value) bool {
	if left.Kind() != right.Kind() {
		lf, lok := numToFloat(left)
		rf, rok := numToFloat(right)
		if lok && rok {
			return lf == rf
		}
		return false
	}
	switch l := left.(type) {
	case *value.Integer:
		return l.Val.Cmp(right.(*value.Integer).Val) == 0
	case *value.Float:
		return l.Val == right.(*value.Float).Val
	case *value.String:
		return l.Val == right.(*value.String).Val
	case *value.Boolean:
		return l.Val == right.(*value.Boolean).Val
	case *value.NullType:
		return true
	case *value.List:
		r := right.(*value.List)
		if len(l.Elements) != len(r.Elements) {
			return false
		}
		for i := range l.Elements {
			if !Equal(l.Elements[i], r.Elements[i]) {
				return false
			}
		}
		return true
	case *value.Map:
		r := right.(*value.Map)
		if l.Len() != r.Len() {
			return false
		}
		for _, k := range l.Keys() {
			lv, _ := l.Get(k)
			rv, ok := r.Get(k)
			if !ok || !Equal(lv, rv) {
				return false
			}
		}
		return true
	case *value.EnumValue:
		r := right.(*value.EnumValue)
		return l.Enum == r.Enum && l.Variant == r.Variant
	default:
		return left == right
	}
}
