// Package signal holds the Signal Table built from a VCD header: one entry
// per declared variable, the id-to-slot lookup used by the value-change
// parser, and the value normalization rules shared by the pipeline.
package signal

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"vcdscan/internal/core/errors"
)

// PathSeparator joins scope names and the leaf name into a signal path.
const PathSeparator = "."

// Kind is the declared variable type (wire, reg, integer, real, ...). It is
// carried through but only real and string kinds change how values are read.
type Kind string

// Textual reports whether values of this kind are stored as literal text
// rather than as bit vectors.
func (k Kind) Textual() bool {
	switch strings.ToLower(string(k)) {
	case "real", "realtime", "shortreal", "string":
		return true
	}
	return false
}

// Signal is one declared variable.
type Signal struct {
	ID    string
	Scope []string
	// Name is the leaf name, including a partial bit-select such as "bus[3]".
	Name string
	// Range is the bit range given after the name, if any, e.g. "[7:0]".
	Range string
	Width int
	Kind  Kind
	Path  string
	// Slot indexes the state store. Aliases of one id share a slot.
	Slot int
	// Alias is set when the id was already declared in another scope.
	Alias bool
}

// SlotInfo describes one state slot, i.e. one distinct identifier code.
type SlotInfo struct {
	ID    string
	Width int
	Kind  Kind
}

// Declaration is a parsed $var before registration.
type Declaration struct {
	Scope []string
	// Frame identifies the scope instance the $var appeared in; ids may be
	// reused across frames but not within one.
	Frame int
	Kind  Kind
	Width int
	ID    string
	Name  string
	Range string
}

type frameID struct {
	frame int
	id    string
}

// Table is the Signal Table. It is built once during declaration parsing and
// read-only afterwards.
type Table struct {
	signals  []*Signal
	byPath   map[string]*Signal
	byID     map[string]int
	slots    []SlotInfo
	declared map[frameID]bool
	aliases  []*Signal

	// StrictIDs rejects every reuse of an identifier code, including reuse
	// across scopes.
	StrictIDs bool
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{
		byPath:   make(map[string]*Signal),
		byID:     make(map[string]int),
		declared: make(map[frameID]bool),
	}
}

// Declare registers a variable and returns the resulting Signal.
func (t *Table) Declare(d Declaration) (*Signal, error) {
	if d.Width < 1 {
		return nil, errors.Newf(errors.CodeInvalidWidth,
			"width of %q must be a positive integer, got %d", d.Name, d.Width)
	}
	if d.ID == "" {
		return nil, errors.Newf(errors.CodeMalformedToken, "expected an identifier code for %q", d.Name)
	}

	leaf := leafName(d.Name, d.Range, d.Width)
	path := strings.Join(append(append([]string(nil), d.Scope...), leaf), PathSeparator)
	if prev, ok := t.byPath[path]; ok {
		return nil, errors.Newf(errors.CodeDuplicateSignalID,
			"signal path %q is already declared with id %q", path, prev.ID).
			WithContext(errors.CtxSignal, path)
	}

	key := frameID{frame: d.Frame, id: d.ID}
	if t.declared[key] {
		return nil, errors.Newf(errors.CodeDuplicateSignalID,
			"identifier %q is declared twice in scope %q", d.ID, strings.Join(d.Scope, PathSeparator)).
			WithContext(errors.CtxSignal, path)
	}

	sig := &Signal{
		ID:    d.ID,
		Scope: append([]string(nil), d.Scope...),
		Name:  leaf,
		Range: d.Range,
		Width: d.Width,
		Kind:  d.Kind,
		Path:  path,
	}

	if slot, ok := t.byID[d.ID]; ok {
		info := t.slots[slot]
		if t.StrictIDs {
			return nil, errors.Newf(errors.CodeDuplicateSignalID,
				"identifier %q is reused by %q", d.ID, path).
				WithContext(errors.CtxSignal, path)
		}
		if info.Width != d.Width {
			return nil, errors.Newf(errors.CodeDuplicateSignalID,
				"identifier %q is reused by %q with width %d, first declared with width %d",
				d.ID, path, d.Width, info.Width).
				WithContext(errors.CtxSignal, path)
		}
		sig.Slot = slot
		sig.Alias = true
		t.aliases = append(t.aliases, sig)
	} else {
		sig.Slot = len(t.slots)
		t.slots = append(t.slots, SlotInfo{ID: d.ID, Width: d.Width, Kind: d.Kind})
		t.byID[d.ID] = sig.Slot
	}

	t.declared[key] = true
	t.byPath[path] = sig
	t.signals = append(t.signals, sig)
	return sig, nil
}

// Lookup resolves an identifier code to its state slot.
func (t *Table) Lookup(id string) (int, bool) {
	slot, ok := t.byID[id]
	return slot, ok
}

// Slot returns the description of slot i.
func (t *Table) Slot(i int) SlotInfo { return t.slots[i] }

// SlotCount returns the number of distinct identifier codes.
func (t *Table) SlotCount() int { return len(t.slots) }

// Widths returns the declared width of every slot, in slot order.
func (t *Table) Widths() []int {
	out := make([]int, len(t.slots))
	for i, s := range t.slots {
		out[i] = s.Width
	}
	return out
}

// ByPath returns the signal declared at path.
func (t *Table) ByPath(path string) (*Signal, bool) {
	s, ok := t.byPath[path]
	return s, ok
}

// Signals returns every signal in declaration order.
func (t *Table) Signals() []*Signal { return t.signals }

// Len returns the number of declared signals, aliases included.
func (t *Table) Len() int { return len(t.signals) }

// Aliases returns the signals that reuse an identifier code declared in an
// earlier scope.
func (t *Table) Aliases() []*Signal { return t.aliases }

// Paths returns every signal path in declaration order.
func (t *Table) Paths() []string {
	out := make([]string, len(t.signals))
	for i, s := range t.signals {
		out[i] = s.Path
	}
	return out
}

var rangeRe = regexp.MustCompile(`^\[(-?\d+)(?::(-?\d+))?\]$`)

// leafName folds a bit-select into the name unless it spans the full width.
func leafName(name, rng string, width int) string {
	if rng == "" {
		return name
	}
	m := rangeRe.FindStringSubmatch(rng)
	if m != nil && m[2] != "" && width > 1 {
		msb, _ := strconv.Atoi(m[1])
		lsb, _ := strconv.Atoi(m[2])
		span := msb - lsb
		if span < 0 {
			span = -span
		}
		if span+1 == width {
			return name
		}
	}
	return name + rng
}

func (s *Signal) String() string {
	return fmt.Sprintf("%s (%s %d %s)", s.Path, s.Kind, s.Width, s.ID)
}
