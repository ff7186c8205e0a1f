// Package sampler turns the stream of value changes into discrete cycles by
// watching a single reference clock for 0->1 and 1->0 transitions.
package sampler

import (
	"fmt"
	"strings"

	"vcdscan/internal/core/errors"
	"vcdscan/internal/engine/signal"
	"vcdscan/internal/engine/state"
)

// Mode selects when the snapshot for a detected edge is taken.
type Mode int

const (
	// Settled captures once every change at the edge's timestamp has been
	// applied, so the snapshot does not depend on dump order.
	Settled Mode = iota
	// Immediate captures at the clock record itself, in file order.
	Immediate
)

func (m Mode) String() string {
	if m == Immediate {
		return "immediate"
	}
	return "settled"
}

// ParseMode parses "settled" or "immediate". The empty string is Settled.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "settled":
		return Settled, nil
	case "immediate":
		return Immediate, nil
	}
	return Settled, fmt.Errorf("sample mode must be settled or immediate, got %q", s)
}

// Config tunes a Sampler.
type Config struct {
	Mode Mode
	// MaxCycles stops capture after this many cycles. Zero means unlimited.
	MaxCycles int
}

type pendingEdge struct {
	ts   uint64
	edge Edge
}

// Sampler detects clock edges and appends snapshots to its History.
type Sampler struct {
	table   *signal.Table
	view    state.View
	clock   *signal.Signal
	cfg     Config
	last    byte
	pending []pendingEdge
	history *History
}

// New returns a sampler watching clock through a read-only view of the state
// store. The last clock value starts unknown, so the initial value dump never
// produces a cycle on its own.
func New(table *signal.Table, view state.View, clock *signal.Signal, cfg Config) *Sampler {
	return &Sampler{
		table:   table,
		view:    view,
		clock:   clock,
		cfg:     cfg,
		last:    'x',
		history: &History{},
	}
}

// History returns the cycle history.
func (s *Sampler) History() *History { return s.history }

// BeforeChange is called before the store is updated with value for slot.
// When the clock is about to change while edges are still pending at the
// open timestamp, those edges are captured first, so each cycle sees the
// state up to the next clock change and a zero-width glitch still yields
// one distinct snapshot per transition.
func (s *Sampler) BeforeChange(slot int, value string) {
	if slot != s.clock.Slot || len(s.pending) == 0 {
		return
	}
	if s.view.Get(slot) != value {
		s.Flush()
	}
}

// Observe is called after the store has been updated with value for slot at
// timestamp ts.
func (s *Sampler) Observe(slot int, value string, ts uint64) {
	if slot != s.clock.Slot || value == "" {
		return
	}
	prev := s.last
	cur := value[len(value)-1]
	s.last = cur

	var edge Edge
	switch {
	case prev == '0' && cur == '1':
		edge = Rising
	case prev == '1' && cur == '0':
		edge = Falling
	default:
		return
	}

	if s.Done() {
		return
	}
	if s.cfg.Mode == Immediate {
		s.capture(ts, edge)
		return
	}
	s.pending = append(s.pending, pendingEdge{ts: ts, edge: edge})
}

// Flush captures every pending edge using the current store contents. The
// parser calls it when a timestamp closes.
func (s *Sampler) Flush() {
	if len(s.pending) == 0 {
		return
	}
	frame := s.view.Capture()
	for _, p := range s.pending {
		s.history.append(&Cycle{Timestamp: p.ts, Edge: p.edge, frame: frame, table: s.table})
	}
	s.pending = s.pending[:0]
}

// Discard drops pending edges without capturing them.
func (s *Sampler) Discard() {
	s.pending = s.pending[:0]
}

// Pending returns the number of edges awaiting capture.
func (s *Sampler) Pending() int { return len(s.pending) }

// Done reports whether MaxCycles has been reached, counting pending edges.
func (s *Sampler) Done() bool {
	return s.cfg.MaxCycles > 0 && s.history.Len()+len(s.pending) >= s.cfg.MaxCycles
}

func (s *Sampler) capture(ts uint64, edge Edge) {
	s.history.append(&Cycle{Timestamp: ts, Edge: edge, frame: s.view.Capture(), table: s.table})
}

// ResolveClock finds the reference clock. A non-empty name is matched
// against signal paths first and identifier codes second. Otherwise the
// first 1-bit signal whose leaf is clk or clock is used.
func ResolveClock(table *signal.Table, name string) (*signal.Signal, error) {
	name = strings.TrimSpace(name)
	if name != "" {
		sig, ok := table.ByPath(name)
		if !ok {
			for _, cand := range table.Signals() {
				if cand.ID == name {
					sig, ok = cand, true
					break
				}
			}
		}
		if !ok {
			return nil, errors.Newf(errors.CodeNoClockSignal,
				"clock %q does not match any declared signal path or identifier", name)
		}
		if sig.Width != 1 || sig.Kind.Textual() {
			return nil, errors.Newf(errors.CodeNoClockSignal,
				"clock %q must be a 1-bit signal, declared %s with width %d", sig.Path, sig.Kind, sig.Width)
		}
		return sig, nil
	}

	for _, sig := range table.Signals() {
		if sig.Width != 1 || sig.Kind.Textual() {
			continue
		}
		leaf := strings.ToLower(sig.Name)
		if leaf == "clk" || leaf == "clock" {
			return sig, nil
		}
	}
	return nil, errors.New(errors.CodeNoClockSignal,
		"no clock designated and no 1-bit signal named clk or clock is declared")
}
