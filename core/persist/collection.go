package persist

import (
	"context"

	"collection-mapper/core/equivalency"
)

// Collection is a persistent collection of D. Queries read committed state;
// Add, Remove and MarkModified only stage changes until the store commits them.
type Collection[D any] interface {
	// FindFirst returns the first stored entity matching pred.
	// The boolean is false when nothing matches.
	FindFirst(ctx context.Context, pred *equivalency.Predicate[D]) (D, bool, error)

	// Add stages d for insertion.
	Add(d D)

	// Remove stages d for deletion.
	Remove(d D)

	// MarkModified records that a tracked entity was changed in place.
	MarkModified(d D)
}

// Store is a Collection that can also load every stored entity.
type Store[D any] interface {
	Collection[D]

	// All returns every committed entity, in storage order.
	All(ctx context.Context) ([]D, error)
}
