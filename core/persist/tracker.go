package persist

import (
	"slices"
	"sync"
)

// State is the change-tracking state of an entity.
type State int

const (
	// Detached entities are not tracked.
	Detached State = iota
	// Unchanged entities were loaded and not modified since.
	Unchanged
	// Added entities are pending insertion.
	Added
	// Modified entities are pending update.
	Modified
	// Deleted entities are pending deletion.
	Deleted
)

func (s State) String() string {
	switch s {
	case Unchanged:
		return "unchanged"
	case Added:
		return "added"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	default:
		return "detached"
	}
}

// Tracker records entity states by pointer identity.
type Tracker[E any] struct {
	mu     sync.Mutex
	states map[*E]State
	order  []*E
}

// NewTracker creates an empty tracker.
func NewTracker[E any]() *Tracker[E] {
	return &Tracker[E]{states: make(map[*E]State)}
}

// Attach starts tracking e as Unchanged. Tracked entities keep their state.
func (t *Tracker[E]) Attach(e *E) {
	if e == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.states[e]; !ok {
		t.setLocked(e, Unchanged)
	}
}

// Add stages e for insertion. A pending deletion becomes a modification.
func (t *Tracker[E]) Add(e *E) {
	if e == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.states[e] {
	case Detached:
		t.setLocked(e, Added)
	case Deleted:
		t.states[e] = Modified
	}
}

// Remove stages e for deletion. A pending insertion is simply forgotten.
func (t *Tracker[E]) Remove(e *E) {
	if e == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.states[e] {
	case Added:
		delete(t.states, e)
		t.order = slices.DeleteFunc(t.order, func(x *E) bool { return x == e })
	case Detached:
		t.setLocked(e, Deleted)
	default:
		t.states[e] = Deleted
	}
}

// MarkModified stages e for update. Pending insertions and deletions are kept.
func (t *Tracker[E]) MarkModified(e *E) {
	if e == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.states[e] {
	case Detached:
		t.setLocked(e, Modified)
	case Unchanged:
		t.states[e] = Modified
	}
}

// State returns the state of e.
func (t *Tracker[E]) State(e *E) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.states[e]
}

// Pending returns the entities in state s, in the order they were first tracked.
func (t *Tracker[E]) Pending(s State) []*E {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []*E
	for _, e := range t.order {
		if st, ok := t.states[e]; ok && st == s {
			out = append(out, e)
		}
	}
	return out
}

// HasChanges reports whether anything is staged.
func (t *Tracker[E]) HasChanges() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, s := range t.states {
		if s == Added || s == Modified || s == Deleted {
			return true
		}
	}
	return false
}

// AcceptAll marks staged changes as committed: added and modified entities
// become Unchanged and deleted ones are no longer tracked.
func (t *Tracker[E]) AcceptAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	order := t.order[:0]
	for _, e := range t.order {
		s, ok := t.states[e]
		if !ok {
			continue
		}
		if s == Deleted {
			delete(t.states, e)
			continue
		}
		t.states[e] = Unchanged
		order = append(order, e)
	}
	clear(t.order[len(order):])
	t.order = order
}

func (t *Tracker[E]) setLocked(e *E, s State) {
	t.states[e] = s
	t.order = append(t.order, e)
}
