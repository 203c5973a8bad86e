package persist

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"collection-mapper/core/equivalency"
)

// MemoryCollection is an in-memory Store of *E. Predicates are evaluated in
// process against committed items.
type MemoryCollection[E any] struct {
	mu      sync.RWMutex
	items   []*E
	tracker *Tracker[E]
}

// NewMemoryCollection creates a collection whose committed state is items.
func NewMemoryCollection[E any](items ...*E) *MemoryCollection[E] {
	c := &MemoryCollection[E]{tracker: NewTracker[E]()}
	for _, it := range items {
		if it == nil {
			continue
		}
		c.items = append(c.items, it)
		c.tracker.Attach(it)
	}
	return c
}

// FindFirst implements Collection.
func (c *MemoryCollection[E]) FindFirst(ctx context.Context, pred *equivalency.Predicate[*E]) (*E, bool, error) {
	if pred == nil {
		return nil, false, fmt.Errorf("%w: nil predicate", ErrInvalidArgument)
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, it := range c.items {
		ok, err := pred.Matches(it)
		if err != nil {
			return nil, false, err
		}
		if ok {
			return it, true, nil
		}
	}
	return nil, false, nil
}

// All implements Store.
func (c *MemoryCollection[E]) All(ctx context.Context) ([]*E, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.items), nil
}

// Add implements Collection.
func (c *MemoryCollection[E]) Add(e *E) { c.tracker.Add(e) }

// Remove implements Collection.
func (c *MemoryCollection[E]) Remove(e *E) { c.tracker.Remove(e) }

// MarkModified implements Collection.
func (c *MemoryCollection[E]) MarkModified(e *E) { c.tracker.MarkModified(e) }

// Tracker exposes the collection's change tracker.
func (c *MemoryCollection[E]) Tracker() *Tracker[E] { return c.tracker }

// Len returns the number of committed items.
func (c *MemoryCollection[E]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// SaveChanges commits staged changes and returns how many entities were written.
func (c *MemoryCollection[E]) SaveChanges(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	added := c.tracker.Pending(Added)
	modified := c.tracker.Pending(Modified)
	deleted := c.tracker.Pending(Deleted)

	c.mu.Lock()
	if len(deleted) > 0 {
		c.items = slices.DeleteFunc(c.items, func(it *E) bool { return slices.Contains(deleted, it) })
	}
	c.items = append(c.items, added...)
	c.mu.Unlock()

	c.tracker.AcceptAll()
	return len(added) + len(modified) + len(deleted), nil
}
