package things

import (
	"collection-mapper/core/equivalency"
	"collection-mapper/core/mapping"
)

// Relation matches a document to the stored thing with the same ID.
// A zero ID never matches, so new documents are always inserted.
func Relation() equivalency.Expr {
	return equivalency.And(
		equivalency.Ne(equivalency.Src("ID"), equivalency.Lit(0)),
		equivalency.Eq(equivalency.Src("ID"), equivalency.Dst("ID")),
	)
}

// Register adds the ThingDTO -> *Thing relation to r.
func Register(r *equivalency.Registry) error {
	return equivalency.RegisterExpr[ThingDTO, *Thing](r, Relation())
}

// NewTransformer copies document fields onto things.
func NewTransformer() mapping.Transformer[ThingDTO, *Thing] {
	return mapping.MustFieldCopy[ThingDTO, *Thing]()
}
