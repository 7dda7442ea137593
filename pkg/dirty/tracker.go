// Package dirty tracks whether input controls have been edited since they
// were registered.
package dirty

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/go-cmp/cmp"

	"github.com/gltn/stdm/pkg/control"
)

// Reader returns a control's current value. binding.ValueAdapter satisfies it.
type Reader interface {
	Value() any
}

type entry struct {
	control control.Control
	reader  Reader
	initial any
}

// Tracker remembers the value each control held when it was added and
// compares against it on demand. It is not safe for concurrent use; a form
// and its tracker belong to one goroutine.
type Tracker struct {
	entries []*entry
	index   map[control.Control]*entry
	dirty   mapset.Set[control.Control]
}

func NewTracker() *Tracker {
	return &Tracker{
		index: make(map[control.Control]*entry),
		dirty: mapset.NewThreadUnsafeSet[control.Control](),
	}
}

// Add registers c and snapshots its current value. Adding a control again
// replaces its snapshot.
func (t *Tracker) Add(c control.Control, r Reader) {
	e := &entry{control: c, reader: r, initial: r.Value()}
	if old, ok := t.index[c]; ok {
		*old = *e
	} else {
		t.entries = append(t.entries, e)
		t.index[c] = e
	}
	t.dirty.Remove(c)
}

// Len returns the number of registered controls.
func (t *Tracker) Len() int { return len(t.entries) }

// Refresh recomputes the dirty set and returns it.
func (t *Tracker) Refresh() mapset.Set[control.Control] {
	t.dirty.Clear()
	for _, e := range t.entries {
		if !cmp.Equal(e.initial, e.reader.Value()) {
			t.dirty.Add(e.control)
		}
	}
	return t.dirty.Clone()
}

// IsDirty reports whether any registered control differs from its snapshot.
func (t *Tracker) IsDirty() bool {
	return t.Refresh().Cardinality() > 0
}

// IsControlDirty reports whether c differs from its snapshot. Unregistered
// controls are never dirty.
func (t *Tracker) IsControlDirty(c control.Control) bool {
	e, ok := t.index[c]
	if !ok {
		return false
	}
	return !cmp.Equal(e.initial, e.reader.Value())
}

// MarkClean snapshots every control's current value.
func (t *Tracker) MarkClean() {
	for _, e := range t.entries {
		e.initial = e.reader.Value()
	}
	t.dirty.Clear()
}
