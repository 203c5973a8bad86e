package reconcile

import (
	"context"
	"fmt"
	"reflect"

	"collection-mapper/core/mapping"

	"github.com/google/uuid"
)

// BuildPlan matches source against destination and returns the plan.
// It does NOT mutate either collection; use ApplyPlan for that. A nil source
// is rejected with ErrInvalidArgument; pass an empty slice to plan the
// removal of every destination element.
//
// Matching is greedy: source elements are visited in order and each takes the
// first remaining destination element the matcher accepts. A destination
// element is matched at most once. When a relation accepts several destination
// elements for one source element, the earliest in destination order wins.
func BuildPlan[S, D any](m Matcher[S, D], source []S, destination []D) (*Plan[S, D], error) {
	if isNil(m) {
		return nil, fmt.Errorf("%w: reconcile without a relation", ErrInvalidArgument)
	}
	// nil is an absent sequence; an empty slice means "remove everything"
	if source == nil {
		return nil, fmt.Errorf("%w: absent source sequence", ErrInvalidArgument)
	}

	plan := &Plan[S, D]{
		ID:               uuid.NewString(),
		Matched:          []Match[S, D]{},
		Inserts:          []Insert[S]{},
		Removals:         []Removal[D]{},
		SourceCount:      len(source),
		DestinationCount: len(destination),
	}

	// Working copy of unmatched destination positions, in destination order
	remaining := make([]int, len(destination))
	for i := range remaining {
		remaining[i] = i
	}

	for si, s := range source {
		found := -1
		for ri, di := range remaining {
			ok, err := m.Equivalent(s, destination[di])
			if err != nil {
				return nil, fmt.Errorf("compare source[%d] with destination[%d]: %w", si, di, err)
			}
			if ok {
				found = ri
				break
			}
		}

		if found < 0 {
			plan.Inserts = append(plan.Inserts, Insert[S]{SourceIndex: si, Source: s})
			continue
		}

		di := remaining[found]
		plan.Matched = append(plan.Matched, Match[S, D]{
			SourceIndex:      si,
			DestinationIndex: di,
			Source:           s,
			Destination:      destination[di],
		})
		remaining = append(remaining[:found], remaining[found+1:]...)
	}

	for _, di := range remaining {
		plan.Removals = append(plan.Removals, Removal[D]{DestinationIndex: di, Destination: destination[di]})
	}

	plan.Summary = PlanSummary{
		Matched:  len(plan.Matched),
		Inserted: len(plan.Inserts),
		Removed:  len(plan.Removals),
	}
	return plan, nil
}

// ApplyPlan executes a plan against the collection it was built from.
// Returns the number of elements removed, merged or inserted.
//
// Removals run first and surviving elements keep their relative order. Then,
// in source order, matched elements are merged into their slot and new
// elements are created and appended. On error the collection keeps every change
// made so far; callers needing atomicity must snapshot it beforehand.
func ApplyPlan[S, D any](
	ctx context.Context,
	plan *Plan[S, D],
	t mapping.Transformer[S, D],
	dest *[]D,
	opts ApplyOptions[D],
) (executed int, err error) {
	if plan == nil || isNil(t) || dest == nil {
		return 0, fmt.Errorf("%w: apply needs a plan, a transformer and a destination", ErrInvalidArgument)
	}
	if len(*dest) != plan.DestinationCount {
		return 0, fmt.Errorf("%w: built for %d elements, destination has %d", ErrStalePlan, plan.DestinationCount, len(*dest))
	}
	if opts.DryRun {
		return 0, nil
	}

	obs := opts.Observer
	current := *dest

	removed := make([]bool, len(current))
	for _, r := range plan.Removals {
		removed[r.DestinationIndex] = true
	}

	slot := make([]int, len(current))
	kept := make([]D, 0, len(current)-len(plan.Removals)+len(plan.Inserts))
	for i, d := range current {
		if removed[i] {
			if obs.OnRemove != nil {
				obs.OnRemove(d)
			}
			executed++
			continue
		}
		slot[i] = len(kept)
		kept = append(kept, d)
	}

	defer func() { *dest = kept }()

	// Matches and inserts are each in source order; walk them together.
	mi, ii := 0, 0
	for mi < len(plan.Matched) || ii < len(plan.Inserts) {
		if ii >= len(plan.Inserts) || (mi < len(plan.Matched) && plan.Matched[mi].SourceIndex < plan.Inserts[ii].SourceIndex) {
			m := plan.Matched[mi]
			mi++

			at := slot[m.DestinationIndex]
			merged, err := t.Merge(ctx, m.Source, kept[at])
			if err != nil {
				return executed, fmt.Errorf("merge source[%d] into destination[%d]: %w", m.SourceIndex, m.DestinationIndex, err)
			}
			kept[at] = merged
			if obs.OnMerge != nil {
				obs.OnMerge(merged)
			}
			executed++
			continue
		}

		in := plan.Inserts[ii]
		ii++

		created, err := t.Create(ctx, in.Source)
		if err != nil {
			return executed, fmt.Errorf("create from source[%d]: %w", in.SourceIndex, err)
		}
		kept = append(kept, created)
		if obs.OnAdd != nil {
			obs.OnAdd(created)
		}
		executed++
	}

	return executed, nil
}

// ReconcileAndApply is a convenience wrapper that plans and applies in one call.
// It returns the plan, number of changes executed, and any error.
func ReconcileAndApply[S, D any](
	ctx context.Context,
	m Matcher[S, D],
	source []S,
	dest *[]D,
	t mapping.Transformer[S, D],
	opts ApplyOptions[D],
) (*Plan[S, D], int, error) {
	if dest == nil {
		return nil, 0, fmt.Errorf("%w: nil destination", ErrInvalidArgument)
	}

	plan, err := BuildPlan(m, source, *dest)
	if err != nil {
		return nil, 0, err
	}

	executed, err := ApplyPlan(ctx, plan, t, dest, opts)
	return plan, executed, err
}

// isNil reports whether an interface value is nil or holds a nil pointer.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Map, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
