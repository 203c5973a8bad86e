// Package mapping defines how matched and unmatched source elements become
// destination elements.
//
// The reconciler and the persistence adapters never copy field values
// themselves; they call a Transformer once per element. Create builds a new
// destination element for an unmatched source element, Merge copies a source
// element onto the destination element it was matched with.
//
// Two implementations are provided:
//   - Funcs adapts plain functions.
//   - FieldCopy copies same-named exported fields, planned once per type pair
//     (identical, assignable or convertible types, plus pointer wrap/dereference).
//
// # Usage
//
//	t := mapping.MustFieldCopy[ThingDTO, *Thing](mapping.Ignore("CreatedAt"))
//	thing, err := t.Create(ctx, dto)
package mapping
