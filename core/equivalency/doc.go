// Package equivalency describes when a source value and a destination value
// stand for the same logical object.
//
// A relation is authored as an expression tree over two parameters, the source
// and the destination, rather than as an opaque function. The tree is compiled
// once for in-memory matching and can also be specialized: given one concrete
// source value, every attribute chain rooted at the source is read and replaced
// by a constant, leaving a predicate over the destination alone. That predicate
// can be evaluated in memory or translated into a store's native filter.
//
// # Authoring
//
//	rel := equivalency.MustRelation[ThingDTO, *Thing](equivalency.And(
//	    equivalency.Ne(equivalency.Src("ID"), equivalency.Lit(0)),
//	    equivalency.Eq(equivalency.Src("ID"), equivalency.Dst("ID")),
//	))
//
// Source-side references must be plain attribute chains (Src("A.B")); a bare
// source parameter cannot be folded and makes Specialize fail with
// ErrNonDecomposable.
//
// # Registry
//
// Relations are registered per TypePair during configuration and looked up by
// the reconciler and the persistence adapters. A missing registration is a
// configuration error (ErrNotRegistered); callers never fall back to reference
// or structural equality.
//
//	reg := equivalency.NewRegistry()
//	_ = equivalency.Register(reg, rel)
//	reg.Freeze()
//
//	rel, err := equivalency.Lookup[ThingDTO, *Thing](reg)
package equivalency
