// Package reconcile maps a source sequence onto an existing destination
// collection in place, using an equivalency relation to decide which
// destination element each source element corresponds to.
//
// # Architecture
//
// The package consists of three main components:
//
// 1. Plan: BuildPlan matches source against destination greedily and records
// matches, inserts and removals by position. It never mutates anything.
//
// 2. Apply: ApplyPlan removes unmatched destination elements, merges matched
// ones in place and appends newly created ones, notifying an optional Observer.
//
// 3. Engine: binds an equivalency.Registry to a strategy Chain so callers can
// reconcile by type pair without passing the relation around.
//
// # Usage Example
//
//	registry := equivalency.NewRegistry()
//	_ = equivalency.RegisterExpr[ThingDTO, *Thing](registry,
//	    equivalency.Eq(equivalency.Src("ID"), equivalency.Dst("ID")))
//	registry.Freeze()
//
//	engine, err := reconcile.NewEngine(registry, nil)
//	plan, n, err := reconcile.Sync(ctx, engine, dtos, &things, transformer, reconcile.ApplyOptions[*Thing]{})
//
// # Ordering
//
// After apply, surviving destination elements keep their relative order and
// new elements follow them in source order. Equivalency drives identity, not
// position.
package reconcile
