// Package state is the Signal State Store: the current value of every
// identifier code, updated in place as the value-change parser advances.
package state

import "vcdscan/internal/engine/signal"

// Store holds one value per slot. Set is O(1); copies are made only by
// Capture.
type Store struct {
	values []string
}

// New returns a store with every slot set to its all-'x' unknown value.
func New(widths []int) *Store {
	s := &Store{values: make([]string, len(widths))}
	for i, w := range widths {
		s.values[i] = signal.Unknown(w)
	}
	return s
}

// Set overwrites the value of slot and returns the previous value.
func (s *Store) Set(slot int, value string) string {
	old := s.values[slot]
	s.values[slot] = value
	return old
}

// Get returns the current value of slot.
func (s *Store) Get(slot int) string {
	return s.values[slot]
}

// Len returns the number of slots.
func (s *Store) Len() int { return len(s.values) }

// Current returns a read-only view of the live values. The view reflects
// later writes; call Capture to freeze it.
func (s *Store) Current() View {
	return View{store: s}
}

// Capture copies the current values into an immutable Frame.
func (s *Store) Capture() Frame {
	return s.Current().Capture()
}

// View is a read-only window onto a Store.
type View struct {
	store *Store
}

// Get returns the live value of slot.
func (v View) Get(slot int) string { return v.store.values[slot] }

// Len returns the number of slots.
func (v View) Len() int { return len(v.store.values) }

// Capture copies the values visible through v into an immutable Frame.
func (v View) Capture() Frame {
	out := make([]string, len(v.store.values))
	copy(out, v.store.values)
	return Frame{values: out}
}

// Frame is an immutable copy of every slot value at one instant.
type Frame struct {
	values []string
}

// Get returns the captured value of slot.
func (f Frame) Get(slot int) string { return f.values[slot] }

// Len returns the number of slots.
func (f Frame) Len() int { return len(f.values) }
