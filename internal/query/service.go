// Package query serves read-only views over a completed cycle history.
// Every method is a pure read: repeated calls return equal results.
package query

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"vcdscan/internal/core/errors"
	"vcdscan/internal/engine/parser"
	"vcdscan/internal/engine/sampler"
	"vcdscan/internal/engine/signal"
)

// Format selects how bit vectors are rendered.
type Format string

const (
	FormatBinary Format = "binary"
	FormatHex    Format = "hex"
)

// Options narrows and formats query output.
type Options struct {
	// Include keeps only signal paths matching one of these globs. Empty
	// keeps every signal. '*' stops at scope separators, '**' does not.
	Include []string
	// Exclude drops signal paths matching any of these globs.
	Exclude []string
	Format  Format
}

// Service answers cycle queries over one parse result.
type Service struct {
	history *sampler.History
	columns []*signal.Signal
	format  Format
}

// NewService builds a query service over a parse result.
func NewService(res *parser.Result, opts Options) (*Service, error) {
	if res == nil || res.Table == nil || res.History == nil {
		return nil, errors.New(errors.CodeValidationError, "query requires a parse result")
	}

	include, err := compileGlobs(opts.Include)
	if err != nil {
		return nil, err
	}
	exclude, err := compileGlobs(opts.Exclude)
	if err != nil {
		return nil, err
	}

	format := opts.Format
	switch format {
	case "":
		format = FormatBinary
	case FormatBinary, FormatHex:
	default:
		return nil, errors.Newf(errors.CodeValidationError, "format must be binary or hex, got %q", format)
	}

	columns := make([]*signal.Signal, 0, res.Table.Len())
	for _, sig := range res.Table.Signals() {
		if len(include) > 0 && !matchAny(include, sig.Path) {
			continue
		}
		if matchAny(exclude, sig.Path) {
			continue
		}
		columns = append(columns, sig)
	}
	sort.Slice(columns, func(i, j int) bool {
		return columns[i].Path < columns[j].Path
	})

	return &Service{
		history: res.History,
		columns: columns,
		format:  format,
	}, nil
}

// FetchAllCycles returns every rising-edge cycle in pos_result and every
// falling-edge cycle in neg_result.
func (s *Service) FetchAllCycles() CycleSet {
	out := CycleSet{
		PosResult: make([]Row, 0, s.history.Count(sampler.Rising)),
		NegResult: make([]Row, 0, s.history.Count(sampler.Falling)),
	}
	for i := 0; i < s.history.Len(); i++ {
		c := s.history.At(i)
		if c.Edge == sampler.Rising {
			out.PosResult = append(out.PosResult, s.row(c))
		} else {
			out.NegResult = append(out.NegResult, s.row(c))
		}
	}
	return out
}

// GetAllCycles returns, for each signal path, its sampled values in capture
// order. Without mergeEdges only rising-edge cycles contribute; with it both
// edges do.
func (s *Service) GetAllCycles(mergeEdges bool) map[string][]string {
	cycles := s.selected(mergeEdges)
	out := make(map[string][]string, len(s.columns))
	for _, sig := range s.columns {
		values := make([]string, len(cycles))
		for i, c := range cycles {
			values[i] = s.render(c.SlotValue(sig.Slot))
		}
		out[sig.Path] = values
	}
	return out
}

// FetchRow returns cycle i in capture order, or an empty row when i is out
// of range.
func (s *Service) FetchRow(i int) Row {
	if i < 0 || i >= s.history.Len() {
		return Row{}
	}
	return s.row(s.history.At(i))
}

// Rows returns the timestamp of every cycle in capture order.
func (s *Service) Rows() []uint64 {
	out := make([]uint64, s.history.Len())
	for i := range out {
		out[i] = s.history.At(i).Timestamp
	}
	return out
}

// Columns returns the selected signal paths, sorted.
func (s *Service) Columns() []string {
	out := make([]string, len(s.columns))
	for i, sig := range s.columns {
		out[i] = sig.Path
	}
	return out
}

// Timeline returns the selected cycles with their metadata.
func (s *Service) Timeline(mergeEdges bool) []Snapshot {
	cycles := s.selected(mergeEdges)
	out := make([]Snapshot, len(cycles))
	for i, c := range cycles {
		out[i] = Snapshot{
			Index:     c.Index,
			Timestamp: c.Timestamp,
			Edge:      c.Edge.String(),
			Values:    s.row(c),
		}
	}
	return out
}

// ListSignals summarizes the selected signals whose path contains filter.
func (s *Service) ListSignals(ctx context.Context, filter string, limit int) ([]SignalSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rising := s.history.Edge(sampler.Rising)
	filter = strings.ToLower(strings.TrimSpace(filter))
	rows := make([]SignalSummary, 0, len(s.columns))
	for _, sig := range s.columns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if filter != "" && !strings.Contains(strings.ToLower(sig.Path), filter) {
			continue
		}
		toggles := 0
		for i := 1; i < len(rising); i++ {
			if rising[i].SlotValue(sig.Slot) != rising[i-1].SlotValue(sig.Slot) {
				toggles++
			}
		}
		rows = append(rows, SignalSummary{
			Path:    sig.Path,
			ID:      sig.ID,
			Kind:    string(sig.Kind),
			Width:   sig.Width,
			Alias:   sig.Alias,
			Toggles: toggles,
		})
	}

	if limit > 0 && len(rows) > limit {
		return rows[:limit], nil
	}
	return rows, nil
}

func (s *Service) selected(mergeEdges bool) []*sampler.Cycle {
	if mergeEdges {
		return s.history.All()
	}
	return s.history.Edge(sampler.Rising)
}

func (s *Service) row(c *sampler.Cycle) Row {
	out := make(Row, len(s.columns))
	for _, sig := range s.columns {
		out[sig.Path] = s.render(c.SlotValue(sig.Slot))
	}
	return out
}

func (s *Service) render(v string) string {
	if s.format == FormatHex {
		return signal.Hex(v)
	}
	return v
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		g, err := glob.Compile(pattern, '.')
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeValidationError, fmt.Sprintf("invalid signal pattern %q", pattern))
		}
		out = append(out, g)
	}
	return out, nil
}

func matchAny(globs []glob.Glob, path string) bool {
	for _, g := range globs {
		if g.Match(path) {
			return true
		}
	}
	return false
}
