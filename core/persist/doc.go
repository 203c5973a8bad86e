// Package persist connects equivalency relations to persistent collections.
//
// Upsert specializes a relation with one source value and asks the collection
// for the first stored entity matching the resulting predicate. A found
// entity is merged in place and marked modified; otherwise a new entity is
// created and staged for insertion. Reconcile does the same for a whole
// source sequence against a Store.
//
// Two stores are provided. MemoryCollection evaluates predicates in process.
// GormCollection translates them into a WHERE clause and falls back to
// in-process evaluation for trees with no SQL form. Both stage changes in a
// Tracker until SaveChanges runs.
//
// # Usage Example
//
//	things, _ := persist.NewGormCollection[Thing](db)
//	thing, outcome, err := persist.Upsert(ctx, rel, dto, things, transformer)
//	if err != nil {
//	    return err
//	}
//	_, err = things.SaveChanges(ctx)
package persist
