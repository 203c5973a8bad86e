package equivalency

import (
	"cmp"
	"reflect"
	"strings"
	"time"
)

// env binds the relation parameters for one evaluation.
type env struct {
	src any
	dst any
}

type evalFn func(env) (any, error)

// compile turns a validated tree into a closure. Attribute lookups are still
// resolved by name per call; the tree itself is walked once.
func compile(e Expr) evalFn {
	switch n := e.(type) {
	case *Param:
		if n.Side == Source {
			return func(en env) (any, error) { return en.src, nil }
		}
		return func(en env) (any, error) { return en.dst, nil }

	case *Field:
		base := compile(n.Base)
		return func(en env) (any, error) {
			v, err := base(en)
			if err != nil {
				return nil, err
			}
			return attribute(n, v)
		}

	case *Literal:
		v := n.Value
		return func(env) (any, error) { return v, nil }

	case *Compare:
		left, right := compile(n.Left), compile(n.Right)
		return func(en env) (any, error) {
			l, err := left(en)
			if err != nil {
				return nil, err
			}
			r, err := right(en)
			if err != nil {
				return nil, err
			}
			ok, err := compareValues(n.Op, l, r)
			if err != nil {
				return nil, newEvalError(n, "%v", err)
			}
			return ok, nil
		}

	case *Logical:
		left, right := compile(n.Left), compile(n.Right)
		return func(en env) (any, error) {
			l, err := boolOf(n.Left, left, en)
			if err != nil {
				return nil, err
			}
			// short-circuit
			if n.Op == OpAnd && !l {
				return false, nil
			}
			if n.Op == OpOr && l {
				return true, nil
			}
			return boolOf(n.Right, right, en)
		}

	case *Not:
		operand := compile(n.Operand)
		return func(en env) (any, error) {
			b, err := boolOf(n.Operand, operand, en)
			if err != nil {
				return nil, err
			}
			return !b, nil
		}

	case *Call:
		args := make([]evalFn, len(n.Args))
		for i, a := range n.Args {
			args[i] = compile(a)
		}
		return func(en env) (any, error) {
			if n.Fn == nil {
				return nil, newEvalError(n, "function %q has no implementation", n.Name)
			}
			vals := make([]any, len(args))
			for i, a := range args {
				v, err := a(en)
				if err != nil {
					return nil, err
				}
				vals[i] = v
			}
			out, err := n.Fn(vals...)
			if err != nil {
				return nil, newEvalError(n, "%v", err)
			}
			return out, nil
		}
	}

	return func(env) (any, error) {
		return nil, &EvalError{Node: "<unknown>", Message: "unsupported node"}
	}
}

func boolOf(node Expr, fn evalFn, en env) (bool, error) {
	v, err := fn(en)
	if err != nil {
		return false, err
	}
	b, ok := asBool(v)
	if !ok {
		return false, newEvalError(node, "expected bool, got %T", v)
	}
	return b, nil
}

// attribute reads f.Name from v, following pointers and interfaces.
func attribute(f *Field, v any) (any, error) {
	rv := reflect.ValueOf(v)
	for rv.IsValid() && (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return nil, newEvalError(f, "nil %s while reading %q", rv.Type(), f.Name)
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil, newEvalError(f, "nil value while reading %q", f.Name)
	}

	switch rv.Kind() {
	case reflect.Struct:
		sf, ok := rv.Type().FieldByName(f.Name)
		if !ok {
			return nil, newEvalError(f, "%s has no field %q", rv.Type(), f.Name)
		}
		if !sf.IsExported() {
			return nil, newEvalError(f, "field %q of %s is unexported", f.Name, rv.Type())
		}
		return rv.FieldByIndex(sf.Index).Interface(), nil

	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, newEvalError(f, "map key type %s is not a string kind", rv.Type().Key())
		}
		mv := rv.MapIndex(reflect.ValueOf(f.Name).Convert(rv.Type().Key()))
		if !mv.IsValid() {
			return reflect.Zero(rv.Type().Elem()).Interface(), nil
		}
		return mv.Interface(), nil

	default:
		return nil, newEvalError(f, "cannot read %q from %s", f.Name, rv.Type())
	}
}

// indirect dereferences non-nil pointers; a nil pointer becomes nil.
func indirect(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	return rv.Interface()
}

func asBool(v any) (bool, bool) {
	v = indirect(v)
	if v == nil {
		return false, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Bool {
		return false, false
	}
	return rv.Bool(), true
}

// compareValues applies op to two runtime values.
func compareValues(op CompareOp, l, r any) (bool, error) {
	l, r = indirect(l), indirect(r)

	if l == nil || r == nil {
		switch op {
		case OpEq:
			return l == nil && r == nil, nil
		case OpNe:
			return l != nil || r != nil, nil
		}
		return false, &EvalError{Node: string(op), Message: "ordering is undefined for nil"}
	}

	if lt, ok := l.(time.Time); ok {
		rt, ok := r.(time.Time)
		if !ok {
			return false, mismatch(op, l, r)
		}
		return ordered(op, lt.Compare(rt)), nil
	}

	lv, rv := reflect.ValueOf(l), reflect.ValueOf(r)
	if c, ok := compareNumbers(lv, rv); ok {
		return ordered(op, c), nil
	}

	switch {
	case lv.Kind() == reflect.String && rv.Kind() == reflect.String:
		return ordered(op, strings.Compare(lv.String(), rv.String())), nil
	case lv.Kind() == reflect.Bool && rv.Kind() == reflect.Bool:
		switch op {
		case OpEq:
			return lv.Bool() == rv.Bool(), nil
		case OpNe:
			return lv.Bool() != rv.Bool(), nil
		}
		return false, mismatch(op, l, r)
	}

	switch op {
	case OpEq:
		return reflect.DeepEqual(l, r), nil
	case OpNe:
		return !reflect.DeepEqual(l, r), nil
	}
	return false, mismatch(op, l, r)
}

func mismatch(op CompareOp, l, r any) error {
	return &EvalError{Node: string(op), Message: "cannot order " + reflect.TypeOf(l).String() + " and " + reflect.TypeOf(r).String()}
}

type numClass int

const (
	notNumeric numClass = iota
	signed
	unsigned
	floating
)

func classify(v reflect.Value) numClass {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return signed
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return unsigned
	case reflect.Float32, reflect.Float64:
		return floating
	default:
		return notNumeric
	}
}

// compareNumbers orders two numeric values regardless of width or signedness.
func compareNumbers(l, r reflect.Value) (int, bool) {
	lc, rc := classify(l), classify(r)
	if lc == notNumeric || rc == notNumeric {
		return 0, false
	}

	switch {
	case lc == floating || rc == floating:
		return cmp.Compare(toFloat(l, lc), toFloat(r, rc)), true
	case lc == signed && rc == signed:
		return cmp.Compare(l.Int(), r.Int()), true
	case lc == unsigned && rc == unsigned:
		return cmp.Compare(l.Uint(), r.Uint()), true
	case lc == signed:
		if l.Int() < 0 {
			return -1, true
		}
		return cmp.Compare(uint64(l.Int()), r.Uint()), true
	default:
		if r.Int() < 0 {
			return 1, true
		}
		return cmp.Compare(l.Uint(), uint64(r.Int())), true
	}
}

func toFloat(v reflect.Value, c numClass) float64 {
	switch c {
	case signed:
		return float64(v.Int())
	case unsigned:
		return float64(v.Uint())
	default:
		return v.Float()
	}
}

func ordered(op CompareOp, c int) bool {
	switch op {
	case OpEq:
		return c == 0
	case OpNe:
		return c != 0
	case OpLt:
		return c < 0
	case OpLe:
		return c <= 0
	case OpGt:
		return c > 0
	case OpGe:
		return c >= 0
	default:
		return false
	}
}
