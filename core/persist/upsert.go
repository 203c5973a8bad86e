package persist

import (
	"context"
	"fmt"

	"collection-mapper/core/equivalency"
	"collection-mapper/core/mapping"
	"collection-mapper/core/reconcile"
)

// Outcome reports what Upsert did.
type Outcome int

const (
	// Updated means an existing entity was merged in place.
	Updated Outcome = iota + 1
	// Created means a new entity was staged for insertion.
	Created
)

func (o Outcome) String() string {
	switch o {
	case Updated:
		return "updated"
	case Created:
		return "created"
	default:
		return "unknown"
	}
}

// Upsert finds the stored counterpart of src through rel and merges src onto
// it, or creates a new entity and stages it for insertion. Nothing is
// committed; the store's own save does that.
func Upsert[S, D any](
	ctx context.Context,
	rel *equivalency.Relation[S, D],
	src S,
	coll Collection[D],
	t mapping.Transformer[S, D],
) (D, Outcome, error) {
	var zero D
	if rel == nil || coll == nil || t == nil {
		return zero, 0, fmt.Errorf("%w: upsert needs a relation, a collection and a transformer", ErrInvalidArgument)
	}

	pred, err := rel.Specialize(src)
	if err != nil {
		return zero, 0, err
	}

	found, ok, err := coll.FindFirst(ctx, pred)
	if err != nil {
		return zero, 0, fmt.Errorf("lookup %s: %w", pred, err)
	}

	if ok {
		merged, err := t.Merge(ctx, src, found)
		if err != nil {
			return zero, 0, fmt.Errorf("merge: %w", err)
		}
		coll.MarkModified(merged)
		return merged, Updated, nil
	}

	created, err := t.Create(ctx, src)
	if err != nil {
		return zero, 0, fmt.Errorf("create: %w", err)
	}
	coll.Add(created)
	return created, Created, nil
}

// UpsertRegistered is Upsert with the relation looked up in registry.
// An unregistered pair fails before the collection is touched.
func UpsertRegistered[S, D any](
	ctx context.Context,
	registry *equivalency.Registry,
	src S,
	coll Collection[D],
	t mapping.Transformer[S, D],
) (D, Outcome, error) {
	var zero D
	if registry == nil {
		return zero, 0, fmt.Errorf("%w: nil registry", ErrInvalidArgument)
	}
	rel, err := equivalency.Lookup[S, D](registry)
	if err != nil {
		return zero, 0, err
	}
	return Upsert(ctx, rel, src, coll, t)
}

// Reconcile makes the stored collection mirror source: matched entities are
// merged and marked modified, unmatched ones are staged for deletion and new
// ones for insertion. With dryRun only the plan is computed. A nil source is
// rejected; an empty one stages the deletion of every stored entity.
func Reconcile[S, D any](
	ctx context.Context,
	m reconcile.Matcher[S, D],
	source []S,
	store Store[D],
	t mapping.Transformer[S, D],
	dryRun bool,
) (*reconcile.Plan[S, D], int, error) {
	plan, current, err := Plan(ctx, m, source, store)
	if err != nil {
		return nil, 0, err
	}
	if dryRun {
		return plan, 0, nil
	}

	n, err := Apply(ctx, plan, current, store, t)
	return plan, n, err
}

// Plan loads the stored collection and plans its reconciliation with source.
// The loaded entities are returned so the plan can be applied to them later.
func Plan[S, D any](
	ctx context.Context,
	m reconcile.Matcher[S, D],
	source []S,
	store Store[D],
) (*reconcile.Plan[S, D], []D, error) {
	if store == nil {
		return nil, nil, fmt.Errorf("%w: nil store", ErrInvalidArgument)
	}
	if source == nil {
		return nil, nil, fmt.Errorf("%w: absent source sequence", ErrInvalidArgument)
	}

	current, err := store.All(ctx)
	if err != nil {
		return nil, nil, err
	}

	plan, err := reconcile.BuildPlan(m, source, current)
	if err != nil {
		return nil, nil, err
	}
	return plan, current, nil
}

// Apply stages plan on store. current must hold the entities the plan was
// built from, in the same order.
func Apply[S, D any](
	ctx context.Context,
	plan *reconcile.Plan[S, D],
	current []D,
	store Store[D],
	t mapping.Transformer[S, D],
) (int, error) {
	if store == nil {
		return 0, fmt.Errorf("%w: nil store", ErrInvalidArgument)
	}

	return reconcile.ApplyPlan(ctx, plan, t, &current, reconcile.ApplyOptions[D]{
		Observer: reconcile.Observer[D]{
			OnRemove: store.Remove,
			OnMerge:  store.MarkModified,
			OnAdd:    store.Add,
		},
	})
}
