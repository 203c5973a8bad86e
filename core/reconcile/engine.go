package reconcile

import (
	"context"
	"fmt"

	"collection-mapper/core/equivalency"
	"collection-mapper/core/mapping"
)

// Engine binds a configured relation registry to a strategy chain.
// Both are read-only once the engine is built, so one Engine can serve any
// number of concurrent reconciliations.
type Engine struct {
	registry *equivalency.Registry
	chain    *Chain
}

// NewEngine creates an engine. A nil chain means DefaultChain; a registry is required.
func NewEngine(registry *equivalency.Registry, chain *Chain) (*Engine, error) {
	if registry == nil {
		return nil, fmt.Errorf("%w: nil registry", ErrInvalidArgument)
	}
	if chain == nil {
		chain = DefaultChain()
	}
	return &Engine{registry: registry, chain: chain}, nil
}

// Registry returns the engine's relation registry.
func (e *Engine) Registry() *equivalency.Registry { return e.registry }

// Chain returns the engine's strategy chain.
func (e *Engine) Chain() *Chain { return e.chain }

// Resolve returns the relation used to reconcile []S onto []D.
// The collection pair must be claimed by the equivalency strategy and the
// element pair must have a registered relation; anything else is an error.
func Resolve[S, D any](e *Engine) (*equivalency.Relation[S, D], error) {
	pair := equivalency.PairOf[[]S, []D]()

	s, err := e.chain.Resolve(pair)
	if err != nil {
		return nil, err
	}
	if _, ok := s.(CollectionStrategy); !ok {
		return nil, fmt.Errorf("%w: %s is handled by strategy %q", ErrNoStrategy, pair, s.Name())
	}

	return equivalency.Lookup[S, D](e.registry)
}

// Sync resolves the relation for (S, D), then plans and applies the
// reconciliation of source onto dest.
func Sync[S, D any](
	ctx context.Context,
	e *Engine,
	source []S,
	dest *[]D,
	t mapping.Transformer[S, D],
	opts ApplyOptions[D],
) (*Plan[S, D], int, error) {
	rel, err := Resolve[S, D](e)
	if err != nil {
		return nil, 0, err
	}
	return ReconcileAndApply(ctx, Matcher[S, D](rel), source, dest, t, opts)
}
