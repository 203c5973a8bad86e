package reconcile

import (
	"fmt"
	"reflect"
	"sync"

	"collection-mapper/core/equivalency"
)

// Strategy claims the type pairs it knows how to map.
type Strategy interface {
	// Name returns the unique name of this strategy (e.g., "equivalency").
	Name() string

	// Matches reports whether this strategy handles pair.
	Matches(pair equivalency.TypePair) bool
}

// CollectionStrategyName is the name of the equivalency based collection strategy.
const CollectionStrategyName = "equivalency"

// CollectionStrategy handles slice or array sources mapped onto slice
// destinations by reconciling their elements through the registered relation.
type CollectionStrategy struct{}

// Name implements Strategy.
func (CollectionStrategy) Name() string { return CollectionStrategyName }

// Matches implements Strategy.
func (CollectionStrategy) Matches(pair equivalency.TypePair) bool {
	if pair.Source == nil || pair.Destination == nil {
		return false
	}
	sk := pair.Source.Kind()
	return (sk == reflect.Slice || sk == reflect.Array) && pair.Destination.Kind() == reflect.Slice
}

// StrategyFunc is a named Strategy backed by a match function.
type StrategyFunc struct {
	ID    string
	Match func(pair equivalency.TypePair) bool
}

// Name implements Strategy.
func (s StrategyFunc) Name() string { return s.ID }

// Matches implements Strategy.
func (s StrategyFunc) Matches(pair equivalency.TypePair) bool { return s.Match != nil && s.Match(pair) }

// Builder assembles an ordered strategy list during configuration.
// Concurrent Append/InsertBefore calls are serialized.
type Builder struct {
	mu         sync.Mutex
	strategies []Strategy
}

// NewBuilder creates a builder seeded with strategies, in order. A nil or
// duplicate strategy fails the whole call.
func NewBuilder(strategies ...Strategy) (*Builder, error) {
	b := &Builder{}
	for i, s := range strategies {
		if err := b.Append(s); err != nil {
			return nil, fmt.Errorf("strategy %d: %w", i, err)
		}
	}
	return b, nil
}

// MustBuilder is like NewBuilder but panics on error.
func MustBuilder(strategies ...Strategy) *Builder {
	b, err := NewBuilder(strategies...)
	if err != nil {
		panic(err)
	}
	return b
}

// Append adds s at the end of the list.
func (b *Builder) Append(s Strategy) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkLocked(s); err != nil {
		return err
	}
	b.strategies = append(b.strategies, s)
	return nil
}

// InsertBefore places s immediately before the strategy named target.
// If target is not present, s goes first.
func (b *Builder) InsertBefore(target string, s Strategy) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkLocked(s); err != nil {
		return err
	}

	index := 0
	for i, existing := range b.strategies {
		if existing.Name() == target {
			index = i
			break
		}
	}

	b.strategies = append(b.strategies, nil)
	copy(b.strategies[index+1:], b.strategies[index:])
	b.strategies[index] = s
	return nil
}

func (b *Builder) checkLocked(s Strategy) error {
	if isNil(s) {
		return fmt.Errorf("%w: nil strategy", ErrInvalidArgument)
	}
	for _, existing := range b.strategies {
		if existing.Name() == s.Name() {
			return fmt.Errorf("strategy %q already registered", s.Name())
		}
	}
	return nil
}

// Build returns an immutable snapshot of the current list.
func (b *Builder) Build() *Chain {
	b.mu.Lock()
	defer b.mu.Unlock()

	strategies := make([]Strategy, len(b.strategies))
	copy(strategies, b.strategies)
	return &Chain{strategies: strategies}
}

// Chain is an immutable, ordered strategy list. The first match wins.
type Chain struct {
	strategies []Strategy
}

// DefaultChain contains only the equivalency collection strategy.
func DefaultChain() *Chain {
	return MustBuilder(CollectionStrategy{}).Build()
}

// Resolve returns the first strategy that matches pair.
func (c *Chain) Resolve(pair equivalency.TypePair) (Strategy, error) {
	for _, s := range c.strategies {
		if s.Matches(pair) {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoStrategy, pair)
}

// Names returns the strategy names in resolution order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.strategies))
	for i, s := range c.strategies {
		names[i] = s.Name()
	}
	return names
}
