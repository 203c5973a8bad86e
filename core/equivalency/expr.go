package equivalency

import (
	"fmt"
	"strings"
)

// Side identifies which parameter of a relation an expression refers to.
type Side int

const (
	// Source is the incoming value being mapped.
	Source Side = iota
	// Destination is the existing value being matched against.
	Destination
)

func (s Side) String() string {
	switch s {
	case Source:
		return "src"
	case Destination:
		return "dst"
	default:
		return fmt.Sprintf("side(%d)", int(s))
	}
}

// CompareOp is a binary comparison operator.
type CompareOp string

const (
	OpEq CompareOp = "=="
	OpNe CompareOp = "!="
	OpLt CompareOp = "<"
	OpLe CompareOp = "<="
	OpGt CompareOp = ">"
	OpGe CompareOp = ">="
)

// LogicalOp is a short-circuit boolean connective.
type LogicalOp string

const (
	OpAnd LogicalOp = "&&"
	OpOr  LogicalOp = "||"
)

// Expr is a node of a relation expression tree.
// The set of node types is closed: Param, Field, Literal, Compare, Logical, Not and Call.
type Expr interface {
	fmt.Stringer
	isExpr()
}

// Param references one of the two relation parameters.
type Param struct {
	Side Side
}

// Field reads the named attribute of Base.
type Field struct {
	Base Expr
	Name string
}

// Literal is a constant value.
type Literal struct {
	Value any
}

// Compare applies a comparison operator to two operands.
type Compare struct {
	Op          CompareOp
	Left, Right Expr
}

// Logical joins two boolean operands.
type Logical struct {
	Op          LogicalOp
	Left, Right Expr
}

// Not negates a boolean operand.
type Not struct {
	Operand Expr
}

// Call applies a pure function to its arguments.
// SQL names the equivalent single-argument SQL function, if any; an empty SQL
// keeps the call out of query push-down.
type Call struct {
	Name string
	SQL  string
	Fn   func(args ...any) (any, error)
	Args []Expr
}

func (*Param) isExpr()   {}
func (*Field) isExpr()   {}
func (*Literal) isExpr() {}
func (*Compare) isExpr() {}
func (*Logical) isExpr() {}
func (*Not) isExpr()     {}
func (*Call) isExpr()    {}

func (p *Param) String() string { return p.Side.String() }

func (f *Field) String() string { return f.Base.String() + "." + f.Name }

func (l *Literal) String() string {
	switch v := l.Value.(type) {
	case nil:
		return "nil"
	case string:
		return fmt.Sprintf("%q", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (c *Compare) String() string {
	return "(" + c.Left.String() + " " + string(c.Op) + " " + c.Right.String() + ")"
}

func (l *Logical) String() string {
	return "(" + l.Left.String() + " " + string(l.Op) + " " + l.Right.String() + ")"
}

func (n *Not) String() string { return "!" + n.Operand.String() }

func (c *Call) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	return c.Name + "(" + strings.Join(args, ", ") + ")"
}

// Src builds an attribute chain rooted at the source parameter, e.g. Src("Owner.ID").
func Src(path string) Expr { return chain(&Param{Side: Source}, path) }

// Dst builds an attribute chain rooted at the destination parameter.
func Dst(path string) Expr { return chain(&Param{Side: Destination}, path) }

func chain(base Expr, path string) Expr {
	if path == "" {
		return base
	}
	e := base
	for _, name := range strings.Split(path, ".") {
		e = &Field{Base: e, Name: name}
	}
	return e
}

// Lit wraps a constant.
func Lit(v any) Expr { return &Literal{Value: v} }

func Eq(l, r Expr) Expr { return &Compare{Op: OpEq, Left: l, Right: r} }
func Ne(l, r Expr) Expr { return &Compare{Op: OpNe, Left: l, Right: r} }
func Lt(l, r Expr) Expr { return &Compare{Op: OpLt, Left: l, Right: r} }
func Le(l, r Expr) Expr { return &Compare{Op: OpLe, Left: l, Right: r} }
func Gt(l, r Expr) Expr { return &Compare{Op: OpGt, Left: l, Right: r} }
func Ge(l, r Expr) Expr { return &Compare{Op: OpGe, Left: l, Right: r} }

// And left-folds its operands with &&. And() with no operands is the literal true.
func And(operands ...Expr) Expr { return fold(OpAnd, true, operands) }

// Or left-folds its operands with ||. Or() with no operands is the literal false.
func Or(operands ...Expr) Expr { return fold(OpOr, false, operands) }

func fold(op LogicalOp, empty bool, operands []Expr) Expr {
	if len(operands) == 0 {
		return Lit(empty)
	}
	e := operands[0]
	for _, next := range operands[1:] {
		e = &Logical{Op: op, Left: e, Right: next}
	}
	return e
}

// Negate wraps e in a Not node.
func Negate(e Expr) Expr { return &Not{Operand: e} }

// Lower lower-cases a string operand.
func Lower(e Expr) Expr {
	return &Call{Name: "lower", SQL: "LOWER", Fn: stringFunc("lower", strings.ToLower), Args: []Expr{e}}
}

// Upper upper-cases a string operand.
func Upper(e Expr) Expr {
	return &Call{Name: "upper", SQL: "UPPER", Fn: stringFunc("upper", strings.ToUpper), Args: []Expr{e}}
}

func stringFunc(name string, fn func(string) string) func(args ...any) (any, error) {
	return func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("%s: expected 1 argument, got %d", name, len(args))
		}
		s, ok := indirect(args[0]).(string)
		if !ok {
			return nil, fmt.Errorf("%s: expected string argument, got %T", name, args[0])
		}
		return fn(s), nil
	}
}

// RootSide reports the parameter a pure attribute chain is rooted at.
// ok is false when e is not a Param or a chain of Fields ending in a Param.
func RootSide(e Expr) (side Side, ok bool) {
	for {
		switch n := e.(type) {
		case *Param:
			return n.Side, true
		case *Field:
			e = n.Base
		default:
			return 0, false
		}
	}
}

// FieldPath returns the attribute names of a pure chain, outermost last.
func FieldPath(e Expr) []string {
	var names []string
	for {
		f, ok := e.(*Field)
		if !ok {
			break
		}
		names = append(names, f.Name)
		e = f.Base
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return names
}

// References reports whether e mentions the given parameter anywhere.
func References(e Expr, side Side) bool {
	switch n := e.(type) {
	case *Param:
		return n.Side == side
	case *Field:
		return References(n.Base, side)
	case *Literal:
		return false
	case *Compare:
		return References(n.Left, side) || References(n.Right, side)
	case *Logical:
		return References(n.Left, side) || References(n.Right, side)
	case *Not:
		return References(n.Operand, side)
	case *Call:
		for _, a := range n.Args {
			if References(a, side) {
				return true
			}
		}
		return false
	default:
		return false
	}
}
