package equivalency

import (
	"fmt"
	"reflect"
)

// Relation decides whether a source and a destination value represent the same
// logical object. It keeps both the expression tree, which the specializer
// decomposes, and a compiled form used for in-memory matching.
// A Relation is immutable and safe for concurrent use.
type Relation[S, D any] struct {
	expr Expr
	eval evalFn
}

// NewRelation validates expr and compiles it.
func NewRelation[S, D any](expr Expr) (*Relation[S, D], error) {
	if expr == nil {
		return nil, fmt.Errorf("%w: nil expression", ErrInvalidExpression)
	}
	if err := validate(expr, true); err != nil {
		return nil, err
	}
	return &Relation[S, D]{expr: expr, eval: compile(expr)}, nil
}

// MustRelation is like NewRelation but panics on an invalid tree.
// It is intended for package-level relation declarations.
func MustRelation[S, D any](expr Expr) *Relation[S, D] {
	r, err := NewRelation[S, D](expr)
	if err != nil {
		panic(err)
	}
	return r
}

// Expr returns the relation's expression tree.
func (r *Relation[S, D]) Expr() Expr { return r.expr }

// Pair returns the type pair the relation is declared over.
func (r *Relation[S, D]) Pair() TypePair { return PairOf[S, D]() }

func (r *Relation[S, D]) String() string {
	if r == nil {
		return "<nil relation>"
	}
	return r.expr.String()
}

// Equivalent evaluates the relation for one source and one destination value.
func (r *Relation[S, D]) Equivalent(src S, dst D) (bool, error) {
	if r == nil {
		return false, fmt.Errorf("%w: nil relation", ErrInvalidArgument)
	}
	v, err := r.eval(env{src: src, dst: dst})
	if err != nil {
		return false, err
	}
	b, ok := asBool(v)
	if !ok {
		return false, newEvalError(r.expr, "expected bool, got %T", v)
	}
	return b, nil
}

// Specialize binds the source parameter to src and returns a predicate over the
// destination alone. Every attribute chain rooted at the source is read now and
// replaced by a literal; everything else is kept as is.
//
// For every destination d, Specialize(src).Matches(d) equals Equivalent(src, d).
func (r *Relation[S, D]) Specialize(src S) (*Predicate[D], error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil relation", ErrInvalidArgument)
	}
	if isAbsent(src) {
		return nil, fmt.Errorf("%w: cannot specialize %s against an absent source", ErrInvalidArgument, r.Pair())
	}
	expr, err := specialize(r.expr, src)
	if err != nil {
		return nil, err
	}
	return &Predicate[D]{expr: expr, eval: compile(expr)}, nil
}

// Predicate is a relation with its source side folded into constants.
type Predicate[D any] struct {
	expr Expr
	eval evalFn
}

// NewPredicate builds a predicate from a tree that only references the destination.
func NewPredicate[D any](expr Expr) (*Predicate[D], error) {
	if expr == nil {
		return nil, fmt.Errorf("%w: nil expression", ErrInvalidExpression)
	}
	if References(expr, Source) {
		return nil, fmt.Errorf("%w: predicate %s references the source parameter", ErrInvalidExpression, expr)
	}
	if err := validate(expr, true); err != nil {
		return nil, err
	}
	return &Predicate[D]{expr: expr, eval: compile(expr)}, nil
}

// Expr returns the specialized tree.
func (p *Predicate[D]) Expr() Expr { return p.expr }

func (p *Predicate[D]) String() string { return p.expr.String() }

// Matches evaluates the predicate against one destination value.
func (p *Predicate[D]) Matches(dst D) (bool, error) {
	v, err := p.eval(env{dst: dst})
	if err != nil {
		return false, err
	}
	b, ok := asBool(v)
	if !ok {
		return false, newEvalError(p.expr, "expected bool, got %T", v)
	}
	return b, nil
}

// specialize rewrites e depth-first. Unchanged subtrees are returned as is.
func specialize(e Expr, src any) (Expr, error) {
	switch n := e.(type) {
	case *Param:
		if n.Side == Source {
			return nil, &NonDecomposableError{Node: n.String(), Reason: "source parameter used outside an attribute chain"}
		}
		return n, nil

	case *Field:
		if side, ok := RootSide(n); ok {
			if side == Destination {
				return n, nil
			}
			v, err := compile(n)(env{src: src})
			if err != nil {
				// Keep the failure lazy so short-circuiting matches the relation.
				return unreadable(n, err), nil
			}
			return &Literal{Value: v}, nil
		}
		base, err := specialize(n.Base, src)
		if err != nil {
			return nil, err
		}
		if base == n.Base {
			return n, nil
		}
		return &Field{Base: base, Name: n.Name}, nil

	case *Literal:
		return n, nil

	case *Compare:
		l, r, err := specializePair(n.Left, n.Right, src)
		if err != nil {
			return nil, err
		}
		if l == n.Left && r == n.Right {
			return n, nil
		}
		return &Compare{Op: n.Op, Left: l, Right: r}, nil

	case *Logical:
		l, r, err := specializePair(n.Left, n.Right, src)
		if err != nil {
			return nil, err
		}
		if l == n.Left && r == n.Right {
			return n, nil
		}
		return &Logical{Op: n.Op, Left: l, Right: r}, nil

	case *Not:
		operand, err := specialize(n.Operand, src)
		if err != nil {
			return nil, err
		}
		if operand == n.Operand {
			return n, nil
		}
		return &Not{Operand: operand}, nil

	case *Call:
		changed := false
		args := make([]Expr, len(n.Args))
		for i, a := range n.Args {
			na, err := specialize(a, src)
			if err != nil {
				return nil, err
			}
			changed = changed || na != a
			args[i] = na
		}
		if !changed {
			return n, nil
		}
		return &Call{Name: n.Name, SQL: n.SQL, Fn: n.Fn, Args: args}, nil
	}

	return nil, &NonDecomposableError{Node: fmt.Sprintf("%T", e), Reason: "unknown node type"}
}

// unreadable stands in for a source chain that could not be read; it fails
// only if evaluation actually reaches it.
func unreadable(n *Field, err error) Expr {
	return &Call{
		Name: "unreadable[" + n.String() + "]",
		Fn:   func(...any) (any, error) { return nil, err },
	}
}

func specializePair(left, right Expr, src any) (Expr, Expr, error) {
	l, err := specialize(left, src)
	if err != nil {
		return nil, nil, err
	}
	r, err := specialize(right, src)
	if err != nil {
		return nil, nil, err
	}
	return l, r, nil
}

// validate checks the static shape of a tree. boolean requests that e itself
// produces a bool where that can be decided without evaluating it.
func validate(e Expr, boolean bool) error {
	switch n := e.(type) {
	case *Param:
		if n.Side != Source && n.Side != Destination {
			return fmt.Errorf("%w: unknown parameter %s", ErrInvalidExpression, n)
		}
		if boolean {
			return fmt.Errorf("%w: parameter %s is not a boolean expression", ErrInvalidExpression, n)
		}
	case *Field:
		if n.Base == nil {
			return fmt.Errorf("%w: field %q has no base", ErrInvalidExpression, n.Name)
		}
		if !isValidIdent(n.Name) {
			return fmt.Errorf("%w: invalid attribute name %q", ErrInvalidExpression, n.Name)
		}
		return validate(n.Base, false)
	case *Literal:
		if boolean {
			if _, ok := asBool(n.Value); !ok {
				return fmt.Errorf("%w: literal %s is not a boolean expression", ErrInvalidExpression, n)
			}
		}
	case *Compare:
		switch n.Op {
		case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		default:
			return fmt.Errorf("%w: unknown comparison %q", ErrInvalidExpression, n.Op)
		}
		if n.Left == nil || n.Right == nil {
			return fmt.Errorf("%w: comparison %s is missing an operand", ErrInvalidExpression, n.Op)
		}
		if err := validate(n.Left, false); err != nil {
			return err
		}
		return validate(n.Right, false)
	case *Logical:
		if n.Op != OpAnd && n.Op != OpOr {
			return fmt.Errorf("%w: unknown connective %q", ErrInvalidExpression, n.Op)
		}
		if n.Left == nil || n.Right == nil {
			return fmt.Errorf("%w: connective %s is missing an operand", ErrInvalidExpression, n.Op)
		}
		if err := validate(n.Left, true); err != nil {
			return err
		}
		return validate(n.Right, true)
	case *Not:
		if n.Operand == nil {
			return fmt.Errorf("%w: negation is missing its operand", ErrInvalidExpression)
		}
		return validate(n.Operand, true)
	case *Call:
		if n.Fn == nil {
			return fmt.Errorf("%w: function %q has no implementation", ErrInvalidExpression, n.Name)
		}
		for _, a := range n.Args {
			if a == nil {
				return fmt.Errorf("%w: function %q has a nil argument", ErrInvalidExpression, n.Name)
			}
			if err := validate(a, false); err != nil {
				return err
			}
		}
	case nil:
		return fmt.Errorf("%w: nil node", ErrInvalidExpression)
	default:
		return fmt.Errorf("%w: unsupported node %T", ErrInvalidExpression, e)
	}
	return nil
}

// isAbsent reports whether v is a nil pointer, map, slice, interface, chan or func.
func isAbsent(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Chan, reflect.Func:
		return rv.IsNil()
	default:
		return false
	}
}

func isValidIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		letter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_'
		digit := r >= '0' && r <= '9'
		if !letter && (i == 0 || !digit) {
			return false
		}
	}
	return true
}
