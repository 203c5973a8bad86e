package persist

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"collection-mapper/core/equivalency"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// GormCollection is a Store of *E backed by a gorm table.
//
// FindFirst pushes the predicate down as a WHERE clause when every node of
// the tree has a SQL form. Otherwise it loads the table and evaluates the
// predicate in process. Both paths order rows by primary key, so they agree
// on which entity is found.
type GormCollection[E any] struct {
	db      *gorm.DB
	schema  *schema.Schema
	tracker *Tracker[E]
}

// NewGormCollection creates a collection over the table of E.
func NewGormCollection[E any](db *gorm.DB) (*GormCollection[E], error) {
	if db == nil {
		return nil, fmt.Errorf("%w: nil database", ErrInvalidArgument)
	}
	s, err := schema.Parse(new(E), &sync.Map{}, db.NamingStrategy)
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	return &GormCollection[E]{db: db, schema: s, tracker: NewTracker[E]()}, nil
}

// Table returns the table name of E.
func (c *GormCollection[E]) Table() string { return c.schema.Table }

// Tracker exposes the collection's change tracker.
func (c *GormCollection[E]) Tracker() *Tracker[E] { return c.tracker }

// FindFirst implements Collection.
func (c *GormCollection[E]) FindFirst(ctx context.Context, pred *equivalency.Predicate[*E]) (*E, bool, error) {
	if pred == nil {
		return nil, false, fmt.Errorf("%w: nil predicate", ErrInvalidArgument)
	}

	where, args, ok := c.Where(pred)
	if !ok {
		return c.scan(ctx, pred)
	}

	row := new(E)
	err := c.db.WithContext(ctx).Where(where, args...).First(row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query %s: %w", c.schema.Table, err)
	}

	c.tracker.Attach(row)
	return row, true, nil
}

func (c *GormCollection[E]) scan(ctx context.Context, pred *equivalency.Predicate[*E]) (*E, bool, error) {
	rows, err := c.load(ctx)
	if err != nil {
		return nil, false, err
	}
	for _, row := range rows {
		ok, err := pred.Matches(row)
		if err != nil {
			return nil, false, err
		}
		if ok {
			c.tracker.Attach(row)
			return row, true, nil
		}
	}
	return nil, false, nil
}

// All implements Store.
func (c *GormCollection[E]) All(ctx context.Context) ([]*E, error) {
	rows, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		c.tracker.Attach(row)
	}
	return rows, nil
}

func (c *GormCollection[E]) load(ctx context.Context) ([]*E, error) {
	var rows []*E
	q := c.db.WithContext(ctx)
	if c.schema.PrioritizedPrimaryField != nil {
		q = q.Order(clause.OrderByColumn{Column: clause.Column{Table: clause.CurrentTable, Name: c.schema.PrioritizedPrimaryField.DBName}})
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", c.schema.Table, err)
	}
	return rows, nil
}

// Add implements Collection.
func (c *GormCollection[E]) Add(e *E) { c.tracker.Add(e) }

// Remove implements Collection.
func (c *GormCollection[E]) Remove(e *E) { c.tracker.Remove(e) }

// MarkModified implements Collection.
func (c *GormCollection[E]) MarkModified(e *E) { c.tracker.MarkModified(e) }

// SaveChanges writes staged deletions, updates and insertions in one
// transaction and returns how many entities were written.
func (c *GormCollection[E]) SaveChanges(ctx context.Context) (int, error) {
	added := c.tracker.Pending(Added)
	modified := c.tracker.Pending(Modified)
	deleted := c.tracker.Pending(Deleted)

	if len(added)+len(modified)+len(deleted) == 0 {
		return 0, nil
	}

	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, e := range deleted {
			if err := tx.Delete(e).Error; err != nil {
				return fmt.Errorf("failed to delete from %s: %w", c.schema.Table, err)
			}
		}
		for _, e := range modified {
			if err := tx.Save(e).Error; err != nil {
				return fmt.Errorf("failed to update %s: %w", c.schema.Table, err)
			}
		}
		for _, e := range added {
			if err := tx.Create(e).Error; err != nil {
				return fmt.Errorf("failed to insert into %s: %w", c.schema.Table, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	c.tracker.AcceptAll()
	return len(added) + len(modified) + len(deleted), nil
}

// Where translates pred into a SQL condition with positional arguments.
// ok is false when some node has no SQL form.
//
// Every comparison is rendered two-valued: a NULL column never yields
// UNKNOWN, so negation and disjunction agree with in-process evaluation.
// On MySQL string comparisons are made with BINARY, so case, accents and
// trailing spaces matter exactly as they do for Go strings.
func (c *GormCollection[E]) Where(pred *equivalency.Predicate[*E]) (sql string, args []any, ok bool) {
	t := translator[E]{schema: c.schema, binary: c.db.Dialector.Name() == "mysql"}
	f, ok := t.cond(pred.Expr())
	if !ok {
		return "", nil, false
	}
	return f.sql, f.args, true
}

var sqlOps = map[equivalency.CompareOp]string{
	equivalency.OpEq: "=",
	equivalency.OpNe: "<>",
	equivalency.OpLt: "<",
	equivalency.OpLe: "<=",
	equivalency.OpGt: ">",
	equivalency.OpGe: ">=",
}

type fragment struct {
	sql  string
	args []any
}

func join(sep string, parts ...fragment) fragment {
	out := fragment{}
	sqls := make([]string, len(parts))
	for i, p := range parts {
		sqls[i] = p.sql
		out.args = append(out.args, p.args...)
	}
	out.sql = "(" + strings.Join(sqls, sep) + ")"
	return out
}

type translator[E any] struct {
	schema *schema.Schema
	binary bool
}

// cond renders a boolean expression.
func (t translator[E]) cond(e equivalency.Expr) (fragment, bool) {
	// Destination-free subtrees are decided here; evaluation errors are left
	// to the in-process path so they surface the same way.
	if !equivalency.References(e, equivalency.Destination) {
		p, err := equivalency.NewPredicate[*E](e)
		if err != nil {
			return fragment{}, false
		}
		v, err := p.Matches(nil)
		if err != nil {
			return fragment{}, false
		}
		if v {
			return fragment{sql: "1 = 1"}, true
		}
		return fragment{sql: "1 = 0"}, true
	}

	switch n := e.(type) {
	case *equivalency.Compare:
		return t.compare(n)
	case *equivalency.Logical:
		l, ok := t.cond(n.Left)
		if !ok {
			return fragment{}, false
		}
		r, ok := t.cond(n.Right)
		if !ok {
			return fragment{}, false
		}
		if n.Op == equivalency.OpOr {
			return join(" OR ", l, r), true
		}
		return join(" AND ", l, r), true
	case *equivalency.Not:
		inner, ok := t.cond(n.Operand)
		if !ok {
			return fragment{}, false
		}
		return fragment{sql: "NOT (" + inner.sql + ")", args: inner.args}, true
	case *equivalency.Field:
		// A boolean column.
		col, ok := t.operand(n)
		if !ok {
			return fragment{}, false
		}
		return join(" AND ",
			fragment{sql: col.sql + " = ?", args: append(append([]any{}, col.args...), true)},
			notNull(col),
		), true
	default:
		return fragment{}, false
	}
}

func (t translator[E]) compare(n *equivalency.Compare) (fragment, bool) {
	op, ok := sqlOps[n.Op]
	if !ok {
		return fragment{}, false
	}

	left, right := n.Left, n.Right
	if isNilLiteral(left) {
		left, right = right, left
	}
	if isNilLiteral(right) {
		x, ok := t.operand(left)
		if !ok {
			return fragment{}, false
		}
		switch n.Op {
		case equivalency.OpEq:
			return fragment{sql: "(" + x.sql + " IS NULL)", args: x.args}, true
		case equivalency.OpNe:
			return notNull(x), true
		default:
			return fragment{}, false
		}
	}

	l, ok := t.operand(n.Left)
	if !ok {
		return fragment{}, false
	}
	r, ok := t.operand(n.Right)
	if !ok {
		return fragment{}, false
	}
	lhs := l.sql
	if t.binary && (t.isString(n.Left) || t.isString(n.Right)) {
		lhs = "BINARY " + lhs
	}
	cmp := fragment{sql: lhs + " " + op + " " + r.sql, args: append(append([]any{}, l.args...), r.args...)}

	var nullable []fragment
	if !isLiteral(n.Left) {
		nullable = append(nullable, l)
	}
	if !isLiteral(n.Right) {
		nullable = append(nullable, r)
	}

	switch n.Op {
	case equivalency.OpEq, equivalency.OpNe:
		// Two NULL columns are equal in process; SQL has no two-valued form for that.
		if len(nullable) > 1 {
			return fragment{}, false
		}
		if n.Op == equivalency.OpNe {
			return join(" OR ", cmp, fragment{sql: nullable[0].sql + " IS NULL", args: nullable[0].args}), true
		}
	}

	parts := []fragment{cmp}
	for _, x := range nullable {
		parts = append(parts, notNull(x))
	}
	return join(" AND ", parts...), true
}

func notNull(x fragment) fragment {
	return fragment{sql: "(" + x.sql + " IS NOT NULL)", args: x.args}
}

// operand renders a scalar expression.
func (t translator[E]) operand(e equivalency.Expr) (fragment, bool) {
	switch n := e.(type) {
	case *equivalency.Literal:
		return fragment{sql: "?", args: []any{n.Value}}, true
	case *equivalency.Field:
		side, ok := equivalency.RootSide(n)
		path := equivalency.FieldPath(n)
		if !ok || side != equivalency.Destination || len(path) != 1 {
			return fragment{}, false
		}
		f := t.schema.LookUpField(path[0])
		if f == nil || f.DBName == "" {
			return fragment{}, false
		}
		return fragment{sql: "?", args: []any{clause.Column{Table: clause.CurrentTable, Name: f.DBName}}}, true
	case *equivalency.Call:
		if n.SQL == "" {
			return fragment{}, false
		}
		args := make([]fragment, len(n.Args))
		for i, a := range n.Args {
			f, ok := t.operand(a)
			if !ok {
				return fragment{}, false
			}
			args[i] = f
		}
		inner := join(", ", args...)
		return fragment{sql: n.SQL + inner.sql, args: inner.args}, true
	default:
		return fragment{}, false
	}
}

// isString reports whether e is a string literal or a string column.
func (t translator[E]) isString(e equivalency.Expr) bool {
	var typ reflect.Type
	switch n := e.(type) {
	case *equivalency.Literal:
		typ = reflect.TypeOf(n.Value)
	case *equivalency.Field:
		path := equivalency.FieldPath(n)
		if len(path) != 1 {
			return false
		}
		if f := t.schema.LookUpField(path[0]); f != nil {
			typ = f.FieldType
		}
	}
	for typ != nil && typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	return typ != nil && typ.Kind() == reflect.String
}

func isLiteral(e equivalency.Expr) bool {
	_, ok := e.(*equivalency.Literal)
	return ok
}

func isNilLiteral(e equivalency.Expr) bool {
	l, ok := e.(*equivalency.Literal)
	if !ok {
		return false
	}
	if l.Value == nil {
		return true
	}
	rv := reflect.ValueOf(l.Value)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
