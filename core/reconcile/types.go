package reconcile

import (
	"errors"

	"collection-mapper/core/equivalency"
)

var (
	// ErrInvalidArgument is returned when a plan is requested without a relation
	// or applied without a plan, transformer or destination.
	ErrInvalidArgument = equivalency.ErrInvalidArgument

	// ErrStalePlan is returned when a plan is applied to a destination whose
	// length no longer matches the one it was built from.
	ErrStalePlan = errors.New("plan does not match destination")

	// ErrNoStrategy is returned when no strategy in a chain handles a type pair.
	ErrNoStrategy = errors.New("no strategy for type pair")
)

// Matcher decides whether a source and a destination element are equivalent.
// *equivalency.Relation implements it.
type Matcher[S, D any] interface {
	Equivalent(src S, dst D) (bool, error)
}

// MatcherFunc adapts a function to Matcher.
type MatcherFunc[S, D any] func(src S, dst D) (bool, error)

// Equivalent implements Matcher.
func (f MatcherFunc[S, D]) Equivalent(src S, dst D) (bool, error) { return f(src, dst) }

// Match pairs a source element with the destination element it was matched to.
type Match[S, D any] struct {
	// SourceIndex is the position of Source in the source sequence.
	SourceIndex int `json:"source_index"`

	// DestinationIndex is the position of Destination in the original destination collection.
	DestinationIndex int `json:"destination_index"`

	Source      S `json:"-"`
	Destination D `json:"-"`
}

// Insert is a source element with no equivalent destination element.
type Insert[S any] struct {
	SourceIndex int `json:"source_index"`
	Source      S   `json:"-"`
}

// Removal is a destination element no source element matched.
type Removal[D any] struct {
	DestinationIndex int `json:"destination_index"`
	Destination      D   `json:"-"`
}

// Plan is the outcome of matching one source sequence against one destination
// collection. Every source element is in exactly one of Matched and Inserts;
// every destination element is in exactly one of Matched and Removals.
type Plan[S, D any] struct {
	// ID identifies this run in logs.
	ID string `json:"id"`

	Matched  []Match[S, D] `json:"matched"`
	Inserts  []Insert[S]   `json:"inserts"`
	Removals []Removal[D]  `json:"removals"`

	// SourceCount is the length of the source sequence the plan was built from.
	SourceCount int `json:"source_count"`

	// DestinationCount is the length of the destination collection the plan was built from.
	DestinationCount int `json:"destination_count"`

	// Summary provides aggregate counts.
	Summary PlanSummary `json:"summary"`
}

// PlanSummary provides aggregate statistics for a plan.
type PlanSummary struct {
	Matched  int `json:"matched"`
	Inserted int `json:"inserted"`
	Removed  int `json:"removed"`
}

// Empty reports whether applying the plan would change the collection's membership.
func (s PlanSummary) Empty() bool {
	return s.Inserted == 0 && s.Removed == 0
}

// Observer is notified as a plan is applied. Any callback may be nil.
type Observer[D any] struct {
	// OnRemove is called for each removed destination element.
	OnRemove func(D)
	// OnMerge is called with each matched destination element after the merge.
	OnMerge func(D)
	// OnAdd is called with each newly created destination element.
	OnAdd func(D)
}

// ApplyOptions controls ApplyPlan.
type ApplyOptions[D any] struct {
	// DryRun prevents any mutation; ApplyPlan returns 0.
	DryRun bool

	// Observer receives structural changes, e.g. to stage them in a store.
	Observer Observer[D]
}
