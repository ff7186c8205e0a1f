package sampler

import (
	"vcdscan/internal/engine/signal"
	"vcdscan/internal/engine/state"
)

// Edge is the direction of a clock transition.
type Edge int

const (
	Rising Edge = iota
	Falling
)

func (e Edge) String() string {
	if e == Falling {
		return "falling"
	}
	return "rising"
}

// Cycle is one snapshot of every signal taken at a clock edge. Cycles are
// never modified after capture.
type Cycle struct {
	Index     int
	Timestamp uint64
	Edge      Edge

	frame state.Frame
	table *signal.Table
}

// Value returns the value of the signal at path in this cycle.
func (c *Cycle) Value(path string) (string, bool) {
	sig, ok := c.table.ByPath(path)
	if !ok {
		return "", false
	}
	return c.frame.Get(sig.Slot), true
}

// SlotValue returns the captured value of a state slot.
func (c *Cycle) SlotValue(slot int) string {
	return c.frame.Get(slot)
}

// Values returns a fresh map from signal path to value covering every
// declared signal.
func (c *Cycle) Values() map[string]string {
	sigs := c.table.Signals()
	out := make(map[string]string, len(sigs))
	for _, s := range sigs {
		out[s.Path] = c.frame.Get(s.Slot)
	}
	return out
}

// History is the append-only, capture-ordered sequence of cycles.
type History struct {
	cycles []*Cycle
}

// Len returns the number of captured cycles.
func (h *History) Len() int { return len(h.cycles) }

// At returns cycle i.
func (h *History) At(i int) *Cycle { return h.cycles[i] }

// All returns every cycle in capture order. The slice is a copy; the cycles
// are shared and must not be modified.
func (h *History) All() []*Cycle {
	return append([]*Cycle(nil), h.cycles...)
}

// Edge returns the cycles captured on edge e, in capture order.
func (h *History) Edge(e Edge) []*Cycle {
	var out []*Cycle
	for _, c := range h.cycles {
		if c.Edge == e {
			out = append(out, c)
		}
	}
	return out
}

// Count returns the number of cycles captured on edge e.
func (h *History) Count(e Edge) int {
	n := 0
	for _, c := range h.cycles {
		if c.Edge == e {
			n++
		}
	}
	return n
}

func (h *History) append(c *Cycle) {
	c.Index = len(h.cycles)
	h.cycles = append(h.cycles, c)
}
