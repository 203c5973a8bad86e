package mapping

import (
	"context"
	"errors"
	"fmt"
	"reflect"
)

// ErrLossyConversion is returned when a numeric field value does not survive
// conversion to the destination type, e.g. 300 into an int8 or 1.5 into an int.
var ErrLossyConversion = errors.New("lossy conversion")

// Compatibility describes how a source field reaches its destination field.
type Compatibility int

const (
	// Incompatible fields are skipped.
	Incompatible Compatibility = iota
	// Convertible fields use a Go type conversion. Numeric values that would
	// change in the conversion fail the copy with ErrLossyConversion.
	Convertible
	// Dereference copies the value behind a non-nil source pointer.
	Dereference
	// Wrap stores a copy of the source value behind a new pointer.
	Wrap
	// Assignable fields are assigned directly.
	Assignable
	// Identical fields have the same type.
	Identical
)

func (c Compatibility) String() string {
	switch c {
	case Identical:
		return "identical"
	case Assignable:
		return "assignable"
	case Convertible:
		return "convertible"
	case Dereference:
		return "dereference"
	case Wrap:
		return "wrap"
	default:
		return "incompatible"
	}
}

// FieldRule is one planned field copy.
type FieldRule struct {
	Name          string
	Compatibility Compatibility
	src, dst      int
	dstType       reflect.Type
}

// FieldCopy is a reflective Transformer that copies same-named exported fields
// between two struct types (or pointers to them). The copy plan is computed once.
type FieldCopy[S, D any] struct {
	rules   []FieldRule
	skipped []string
	dstType reflect.Type
	dstPtr  bool
}

// FieldCopyOption configures NewFieldCopy.
type FieldCopyOption func(*fieldCopyConfig)

type fieldCopyConfig struct {
	ignore map[string]struct{}
}

// Ignore leaves the named destination fields untouched.
func Ignore(names ...string) FieldCopyOption {
	return func(c *fieldCopyConfig) {
		for _, n := range names {
			c.ignore[n] = struct{}{}
		}
	}
}

// NewFieldCopy plans the field copies from S to D.
func NewFieldCopy[S, D any](opts ...FieldCopyOption) (*FieldCopy[S, D], error) {
	cfg := fieldCopyConfig{ignore: map[string]struct{}{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	srcType, _ := structType(reflect.TypeFor[S]())
	dstType, dstPtr := structType(reflect.TypeFor[D]())
	if srcType == nil || dstType == nil {
		return nil, fmt.Errorf("field copy %s -> %s: both sides must be structs or pointers to structs",
			reflect.TypeFor[S](), reflect.TypeFor[D]())
	}

	fc := &FieldCopy[S, D]{dstType: dstType, dstPtr: dstPtr}
	for i := 0; i < dstType.NumField(); i++ {
		df := dstType.Field(i)
		if !df.IsExported() || df.Anonymous {
			continue
		}
		if _, skip := cfg.ignore[df.Name]; skip {
			continue
		}
		sf, ok := srcType.FieldByName(df.Name)
		if !ok || !sf.IsExported() || len(sf.Index) != 1 {
			fc.skipped = append(fc.skipped, df.Name)
			continue
		}
		c := classify(sf.Type, df.Type)
		if c == Incompatible {
			fc.skipped = append(fc.skipped, df.Name)
			continue
		}
		fc.rules = append(fc.rules, FieldRule{
			Name:          df.Name,
			Compatibility: c,
			src:           sf.Index[0],
			dst:           i,
			dstType:       df.Type,
		})
	}
	return fc, nil
}

// MustFieldCopy is like NewFieldCopy but panics on error.
func MustFieldCopy[S, D any](opts ...FieldCopyOption) *FieldCopy[S, D] {
	fc, err := NewFieldCopy[S, D](opts...)
	if err != nil {
		panic(err)
	}
	return fc
}

// Rules returns the planned copies in destination field order.
func (fc *FieldCopy[S, D]) Rules() []FieldRule { return fc.rules }

// Skipped returns destination fields that have no compatible source field.
func (fc *FieldCopy[S, D]) Skipped() []string { return fc.skipped }

// Create implements Transformer.
func (fc *FieldCopy[S, D]) Create(_ context.Context, src S) (D, error) {
	var out D
	target := reflect.New(fc.dstType)
	if err := fc.copyInto(src, target.Elem()); err != nil {
		return out, err
	}
	if fc.dstPtr {
		return target.Interface().(D), nil
	}
	return target.Elem().Interface().(D), nil
}

// Merge implements Transformer.
func (fc *FieldCopy[S, D]) Merge(_ context.Context, src S, dst D) (D, error) {
	if fc.dstPtr {
		rv := reflect.ValueOf(dst)
		if rv.IsNil() {
			return dst, fmt.Errorf("merge into nil %s", rv.Type())
		}
		return dst, fc.copyInto(src, rv.Elem())
	}
	target := reflect.New(fc.dstType).Elem()
	target.Set(reflect.ValueOf(dst))
	if err := fc.copyInto(src, target); err != nil {
		return dst, err
	}
	return target.Interface().(D), nil
}

func (fc *FieldCopy[S, D]) copyInto(src S, target reflect.Value) error {
	sv := reflect.ValueOf(src)
	if sv.Kind() == reflect.Pointer {
		if sv.IsNil() {
			return fmt.Errorf("copy from nil %s", sv.Type())
		}
		sv = sv.Elem()
	}

	for _, r := range fc.rules {
		from := sv.Field(r.src)
		to := target.Field(r.dst)
		switch r.Compatibility {
		case Identical, Assignable:
			to.Set(from)
		case Convertible:
			v, err := convert(from, r.dstType)
			if err != nil {
				return fmt.Errorf("field %s: %w", r.Name, err)
			}
			to.Set(v)
		case Dereference:
			if from.IsNil() {
				to.SetZero()
				continue
			}
			v, err := convert(from.Elem(), r.dstType)
			if err != nil {
				return fmt.Errorf("field %s: %w", r.Name, err)
			}
			to.Set(v)
		case Wrap:
			v, err := convert(from, r.dstType.Elem())
			if err != nil {
				return fmt.Errorf("field %s: %w", r.Name, err)
			}
			p := reflect.New(r.dstType.Elem())
			p.Elem().Set(v)
			to.Set(p)
		}
	}
	return nil
}

// convert converts v to t. Numeric values must keep their sign and convert back
// to themselves, except float to float which only rejects overflow.
func convert(v reflect.Value, t reflect.Type) (reflect.Value, error) {
	out := v.Convert(t)
	if !numeric(v.Kind()) || !numeric(t.Kind()) {
		return out, nil
	}
	if isFloat(v.Kind()) && isFloat(t.Kind()) {
		f := v.Float()
		if f == f && out.OverflowFloat(f) {
			return out, fmt.Errorf("%w: %v overflows %s", ErrLossyConversion, f, t)
		}
		return out, nil
	}
	if out.Convert(v.Type()).Interface() != v.Interface() || negative(v) != negative(out) {
		return out, fmt.Errorf("%w: %v does not fit in %s", ErrLossyConversion, v, t)
	}
	return out, nil
}

func numeric(k reflect.Kind) bool {
	return (k >= reflect.Int && k <= reflect.Uint64) || isFloat(k)
}

func negative(v reflect.Value) bool {
	switch {
	case v.CanInt():
		return v.Int() < 0
	case v.CanFloat():
		return v.Float() < 0
	default:
		return false
	}
}

func isFloat(k reflect.Kind) bool { return k == reflect.Float32 || k == reflect.Float64 }

func structType(t reflect.Type) (reflect.Type, bool) {
	ptr := false
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
		ptr = true
	}
	if t.Kind() != reflect.Struct {
		return nil, false
	}
	return t, ptr
}

// classify ranks how a value of type from can be stored in a field of type to.
func classify(from, to reflect.Type) Compatibility {
	switch {
	case from == to:
		return Identical
	case from.AssignableTo(to):
		return Assignable
	case convertible(from, to):
		return Convertible
	case from.Kind() == reflect.Pointer && convertible(from.Elem(), to):
		return Dereference
	case to.Kind() == reflect.Pointer && convertible(from, to.Elem()):
		return Wrap
	default:
		return Incompatible
	}
}

// convertible excludes integer to string conversions, which produce runes.
func convertible(from, to reflect.Type) bool {
	if to.Kind() == reflect.String && from.Kind() != reflect.String {
		return false
	}
	if from == to || from.AssignableTo(to) {
		return true
	}
	switch from.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return from.ConvertibleTo(to) && to.Kind() != reflect.Slice
	default:
		return false
	}
}
