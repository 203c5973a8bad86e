package things

import (
	"collection-mapper/core/reconcile"
)

// Report is the serializable outcome of a sync plan.
type Report struct {
	PlanID   string                `json:"plan_id"`
	Summary  reconcile.PlanSummary `json:"summary"`
	Matched  []uint                `json:"matched"`
	Inserted []string              `json:"inserted"`
	Removed  []uint                `json:"removed"`
	Executed int                   `json:"executed"`
	Saved    int                   `json:"saved"`
	DryRun   bool                  `json:"dry_run"`
}

// NewReport summarizes plan by thing ID and, for new things, by title.
func NewReport(plan *reconcile.Plan[ThingDTO, *Thing]) *Report {
	r := &Report{
		PlanID:   plan.ID,
		Summary:  plan.Summary,
		Matched:  make([]uint, 0, len(plan.Matched)),
		Inserted: make([]string, 0, len(plan.Inserts)),
		Removed:  make([]uint, 0, len(plan.Removals)),
	}
	for _, m := range plan.Matched {
		r.Matched = append(r.Matched, m.Destination.ID)
	}
	for _, in := range plan.Inserts {
		r.Inserted = append(r.Inserted, in.Source.Title)
	}
	for _, rm := range plan.Removals {
		r.Removed = append(r.Removed, rm.Destination.ID)
	}
	return r
}
