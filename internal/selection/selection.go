// Package selection tracks which rows of a table are selected.
package selection

import (
	"slices"
	"sync"
)

// HeaderState is the tri-state value of a select-all checkbox.
type HeaderState int

const (
	// None means no visible row is selected.
	None HeaderState = iota
	// Partial means some, but not all, visible rows are selected.
	Partial
	// All means every visible row is selected.
	All
)

func (h HeaderState) String() string {
	switch h {
	case Partial:
		return "partial"
	case All:
		return "all"
	default:
		return "none"
	}
}

// Set is an observable set of record IDs. It is safe for concurrent use.
type Set struct {
	mu   sync.Mutex
	ids  map[int64]struct{}
	subs map[int]func([]int64)
	next int
}

// New returns an empty selection.
func New() *Set {
	return &Set{ids: make(map[int64]struct{}), subs: make(map[int]func([]int64))}
}

// Toggle flips membership of id and reports whether it is now selected.
func (s *Set) Toggle(id int64) bool {
	s.mu.Lock()
	_, had := s.ids[id]
	if had {
		delete(s.ids, id)
	} else {
		s.ids[id] = struct{}{}
	}
	s.mu.Unlock()
	s.notify()
	return !had
}

// SelectAll replaces the selection with exactly the visible IDs.
func (s *Set) SelectAll(visible []int64) {
	s.mu.Lock()
	s.ids = make(map[int64]struct{}, len(visible))
	for _, id := range visible {
		s.ids[id] = struct{}{}
	}
	s.mu.Unlock()
	s.notify()
}

// Clear empties the selection.
func (s *Set) Clear() {
	s.mu.Lock()
	changed := len(s.ids) > 0
	s.ids = make(map[int64]struct{})
	s.mu.Unlock()
	if changed {
		s.notify()
	}
}

// Remove drops the given IDs, typically after they were deleted.
func (s *Set) Remove(ids ...int64) {
	s.mu.Lock()
	changed := false
	for _, id := range ids {
		if _, ok := s.ids[id]; ok {
			delete(s.ids, id)
			changed = true
		}
	}
	s.mu.Unlock()
	if changed {
		s.notify()
	}
}

// Prune drops every selected ID that is not visible and returns the dropped IDs
// in ascending order. Call it whenever the visible rows change.
func (s *Set) Prune(visible []int64) []int64 {
	keep := make(map[int64]struct{}, len(visible))
	for _, id := range visible {
		keep[id] = struct{}{}
	}
	s.mu.Lock()
	var dropped []int64
	for id := range s.ids {
		if _, ok := keep[id]; !ok {
			delete(s.ids, id)
			dropped = append(dropped, id)
		}
	}
	s.mu.Unlock()
	if len(dropped) > 0 {
		slices.Sort(dropped)
		s.notify()
	}
	return dropped
}

// Has reports whether id is selected.
func (s *Set) Has(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of selected IDs.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// IDs returns the selected IDs in ascending order.
func (s *Set) IDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked()
}

func (s *Set) sortedLocked() []int64 {
	out := make([]int64, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// State computes the header checkbox value for the visible rows.
func (s *Set) State(visible []int64) HeaderState {
	s.mu.Lock()
	defer s.mu.Unlock()
	selected := 0
	for _, id := range visible {
		if _, ok := s.ids[id]; ok {
			selected++
		}
	}
	switch {
	case selected == 0:
		return None
	case selected == len(visible):
		return All
	default:
		return Partial
	}
}

// Subscribe registers fn to receive the selected IDs after every change.
func (s *Set) Subscribe(fn func(ids []int64)) (cancel func()) {
	s.mu.Lock()
	s.next++
	id := s.next
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Set) notify() {
	s.mu.Lock()
	if len(s.subs) == 0 {
		s.mu.Unlock()
		return
	}
	ids := s.sortedLocked()
	fns := make([]func([]int64), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(slices.Clone(ids))
	}
}
