package persist

import "collection-mapper/core/equivalency"

// ErrInvalidArgument is returned when an operation is called without a
// relation, predicate, collection or transformer.
var ErrInvalidArgument = equivalency.ErrInvalidArgument
