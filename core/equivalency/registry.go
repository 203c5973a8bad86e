package equivalency

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// TypePair identifies a (source, destination) type combination.
type TypePair struct {
	Source      reflect.Type
	Destination reflect.Type
}

// PairOf returns the TypePair for S and D.
func PairOf[S, D any]() TypePair {
	return TypePair{Source: reflect.TypeFor[S](), Destination: reflect.TypeFor[D]()}
}

func (p TypePair) String() string {
	return fmt.Sprintf("%s -> %s", typeName(p.Source), typeName(p.Destination))
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

// Registry holds one relation per type pair.
// Registration normally happens once at startup; reads are safe from any number
// of goroutines and always observe a fully registered relation.
type Registry struct {
	mu        sync.RWMutex
	relations map[TypePair]any
	frozen    bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{relations: make(map[TypePair]any)}
}

// Register stores rel for its type pair, replacing any earlier registration.
func Register[S, D any](r *Registry, rel *Relation[S, D]) error {
	if rel == nil {
		return fmt.Errorf("%w: nil relation for %s", ErrInvalidArgument, PairOf[S, D]())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("register %s: %w", rel.Pair(), ErrRegistryFrozen)
	}
	r.relations[rel.Pair()] = rel
	return nil
}

// RegisterExpr builds a relation from expr and registers it.
func RegisterExpr[S, D any](r *Registry, expr Expr) error {
	rel, err := NewRelation[S, D](expr)
	if err != nil {
		return fmt.Errorf("register %s: %w", PairOf[S, D](), err)
	}
	return Register(r, rel)
}

// Lookup returns the relation registered for (S, D).
// A missing registration is a configuration error and yields a NotRegisteredError.
func Lookup[S, D any](r *Registry) (*Relation[S, D], error) {
	pair := PairOf[S, D]()

	r.mu.RLock()
	v, ok := r.relations[pair]
	r.mu.RUnlock()

	if !ok {
		return nil, &NotRegisteredError{Pair: pair}
	}
	return v.(*Relation[S, D]), nil
}

// Has reports whether a relation is registered for pair.
func (r *Registry) Has(pair TypePair) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.relations[pair]
	return ok
}

// Len returns the number of registered pairs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.relations)
}

// Pairs returns a snapshot of the registered pairs sorted by name.
func (r *Registry) Pairs() []TypePair {
	r.mu.RLock()
	pairs := make([]TypePair, 0, len(r.relations))
	for p := range r.relations {
		pairs = append(pairs, p)
	}
	r.mu.RUnlock()

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].String() < pairs[j].String()
	})
	return pairs
}

// Freeze seals the registry; later registrations fail with ErrRegistryFrozen.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}
