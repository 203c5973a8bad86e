package persist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestTracker_Transitions tests state changes for each staging call.
func TestTracker_Transitions(t *testing.T) {
	tests := []struct {
		name  string
		setup func(tr *Tracker[record], r *record)
		want  State
	}{
		{name: "untracked", setup: func(*Tracker[record], *record) {}, want: Detached},
		{name: "attach", setup: func(tr *Tracker[record], r *record) { tr.Attach(r) }, want: Unchanged},
		{name: "add", setup: func(tr *Tracker[record], r *record) { tr.Add(r) }, want: Added},
		{name: "modify loaded", setup: func(tr *Tracker[record], r *record) {
			tr.Attach(r)
			tr.MarkModified(r)
		}, want: Modified},
		{name: "modify added stays added", setup: func(tr *Tracker[record], r *record) {
			tr.Add(r)
			tr.MarkModified(r)
		}, want: Added},
		{name: "remove loaded", setup: func(tr *Tracker[record], r *record) {
			tr.Attach(r)
			tr.Remove(r)
		}, want: Deleted},
		{name: "remove added forgets", setup: func(tr *Tracker[record], r *record) {
			tr.Add(r)
			tr.Remove(r)
		}, want: Detached},
		{name: "re-add deleted", setup: func(tr *Tracker[record], r *record) {
			tr.Attach(r)
			tr.Remove(r)
			tr.Add(r)
		}, want: Modified},
		{name: "attach keeps state", setup: func(tr *Tracker[record], r *record) {
			tr.Add(r)
			tr.Attach(r)
		}, want: Added},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker[record]()
			r := &record{ID: 1}
			tt.setup(tr, r)
			assert.Equal(t, tt.want, tr.State(r))
		})
	}
}

func TestTracker_PendingAndAccept(t *testing.T) {
	tr := NewTracker[record]()
	a, b, c, d := &record{ID: 1}, &record{ID: 2}, &record{ID: 3}, &record{}

	tr.Attach(a)
	tr.Attach(b)
	tr.Attach(c)
	tr.MarkModified(a)
	tr.Remove(b)
	tr.Add(d)
	tr.Add(nil)

	assert.True(t, tr.HasChanges())
	assert.Equal(t, []*record{a}, tr.Pending(Modified))
	assert.Equal(t, []*record{b}, tr.Pending(Deleted))
	assert.Equal(t, []*record{d}, tr.Pending(Added))
	assert.Equal(t, []*record{c}, tr.Pending(Unchanged))

	tr.AcceptAll()

	assert.False(t, tr.HasChanges())
	assert.Equal(t, Detached, tr.State(b))
	assert.Equal(t, []*record{a, c, d}, tr.Pending(Unchanged))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "detached", Detached.String())
	assert.Equal(t, "unchanged", Unchanged.String())
	assert.Equal(t, "added", Added.String())
	assert.Equal(t, "modified", Modified.String())
	assert.Equal(t, "deleted", Deleted.String())
}
