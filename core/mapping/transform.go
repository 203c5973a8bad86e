package mapping

import (
	"context"
	"fmt"
)

// Transformer turns source elements into destination elements.
// Create builds a new destination from src. Merge copies src onto an existing
// destination and returns it; for pointer destinations the value is updated in
// place and the same pointer is returned.
type Transformer[S, D any] interface {
	Create(ctx context.Context, src S) (D, error)
	Merge(ctx context.Context, src S, dst D) (D, error)
}

// Funcs adapts a pair of functions to the Transformer interface.
type Funcs[S, D any] struct {
	CreateFunc func(ctx context.Context, src S) (D, error)
	MergeFunc  func(ctx context.Context, src S, dst D) (D, error)
}

// Create implements Transformer.
func (f Funcs[S, D]) Create(ctx context.Context, src S) (D, error) {
	if f.CreateFunc == nil {
		var zero D
		return zero, fmt.Errorf("create %T: no create function configured", zero)
	}
	return f.CreateFunc(ctx, src)
}

// Merge implements Transformer.
func (f Funcs[S, D]) Merge(ctx context.Context, src S, dst D) (D, error) {
	if f.MergeFunc == nil {
		return dst, fmt.Errorf("merge %T: no merge function configured", dst)
	}
	return f.MergeFunc(ctx, src, dst)
}
