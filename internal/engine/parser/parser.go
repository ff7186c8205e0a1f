// Package parser drives the VCD ingestion pipeline: the declaration parser
// builds the Signal Table, then the value-change parser streams the body
// through the state store and the cycle sampler.
package parser

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"vcdscan/internal/core/errors"
	"vcdscan/internal/engine/lexer"
	"vcdscan/internal/engine/sampler"
	"vcdscan/internal/engine/signal"
	"vcdscan/internal/engine/state"
)

const (
	defaultProgressEvery = 1 << 16
	cancelCheckEvery     = 4096
	maxDiagnosticSamples = 20
)

// Options configures a parse session.
type Options struct {
	// Clock names the reference clock by path or identifier code. Empty
	// selects the first 1-bit signal named clk or clock.
	Clock string
	// Lenient skips records with body-time errors instead of aborting.
	Lenient bool
	// MaxCycles stops ingestion once this many cycles are captured.
	MaxCycles int
	// Sample selects when edge snapshots are taken.
	Sample sampler.Mode
	// StrictIDs rejects identifier codes reused across scopes.
	StrictIDs bool
	// BufferSize is the read buffer size in bytes.
	BufferSize int

	// Progress, when set, is called every ProgressEvery value changes.
	Progress      func(Progress)
	ProgressEvery int
}

// Progress reports how far ingestion has advanced.
type Progress struct {
	Records   uint64
	Bytes     int64
	Line      int
	Timestamp uint64
	Cycles    int
}

// Header is the non-signal content of the declaration section.
type Header struct {
	Date      string
	Version   string
	Comments  []string
	Timescale signal.Timescale
}

// Diagnostics summarizes records skipped in lenient mode.
type Diagnostics struct {
	Skipped map[errors.ErrorCode]int
	// Samples holds the first few skipped-record messages.
	Samples []string
}

// Total returns the number of skipped records.
func (d Diagnostics) Total() int {
	n := 0
	for _, c := range d.Skipped {
		n += c
	}
	return n
}

// Codes returns the codes with skipped records, sorted.
func (d Diagnostics) Codes() []errors.ErrorCode {
	out := make([]errors.ErrorCode, 0, len(d.Skipped))
	for c := range d.Skipped {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (d *Diagnostics) record(code errors.ErrorCode, err error) {
	if d.Skipped == nil {
		d.Skipped = make(map[errors.ErrorCode]int)
	}
	d.Skipped[code]++
	if len(d.Samples) < maxDiagnosticSamples {
		d.Samples = append(d.Samples, err.Error())
	}
}

// Result is everything a parse session produced.
type Result struct {
	Header      Header
	Table       *signal.Table
	Clock       *signal.Signal
	History     *sampler.History
	Diagnostics Diagnostics

	// Records is the number of value changes applied.
	Records uint64
	// LastTime is the last timestamp reached.
	LastTime uint64
	// Bytes is the number of input bytes consumed.
	Bytes int64
	// Truncated is set when MaxCycles stopped ingestion early.
	Truncated bool
}

type parser struct {
	ctx  context.Context
	sc   *lexer.Scanner
	opts Options

	header  Header
	table   *signal.Table
	store   *state.Store
	sampler *sampler.Sampler
	diag    Diagnostics

	now       uint64
	records   uint64
	truncated bool
}

// Parse reads a complete VCD stream from r.
//
// Declaration-time and configuration errors return a nil Result. Body-time
// errors in strict mode return the partial Result, whose History holds every
// cycle completed before the failing record. In lenient mode body-time errors
// are counted in Result.Diagnostics and ingestion continues.
func Parse(ctx context.Context, r io.Reader, opts Options) (*Result, error) {
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = defaultProgressEvery
	}
	p := &parser{
		ctx:   ctx,
		sc:    lexer.NewSize(r, opts.BufferSize),
		opts:  opts,
		table: signal.NewTable(),
	}
	p.table.StrictIDs = opts.StrictIDs

	if err := p.parseHeader(); err != nil {
		return nil, fmt.Errorf("parse declarations: %w", err)
	}

	clock, err := sampler.ResolveClock(p.table, opts.Clock)
	if err != nil {
		return nil, err
	}
	p.store = state.New(p.table.Widths())
	p.sampler = sampler.New(p.table, p.store.Current(), clock, sampler.Config{
		Mode:      opts.Sample,
		MaxCycles: opts.MaxCycles,
	})

	slog.Debug("vcd declarations parsed",
		"signals", p.table.Len(),
		"identifiers", p.table.SlotCount(),
		"timescale", p.header.Timescale.String(),
		"clock", clock.Path)
	if aliases := p.table.Aliases(); len(aliases) > 0 {
		slog.Warn("identifier codes reused across scopes; aliases share one value",
			"count", len(aliases), "first", aliases[0].Path, "id", aliases[0].ID)
	}

	bodyErr := p.parseBody()

	res := &Result{
		Header:      p.header,
		Table:       p.table,
		Clock:       clock,
		History:     p.sampler.History(),
		Diagnostics: p.diag,
		Records:     p.records,
		LastTime:    p.now,
		Bytes:       p.sc.Offset(),
		Truncated:   p.truncated,
	}
	if bodyErr != nil {
		return res, fmt.Errorf("parse value changes: %w", bodyErr)
	}
	return res, nil
}

func (p *parser) reportProgress() {
	if p.opts.Progress == nil || p.records%uint64(p.opts.ProgressEvery) != 0 {
		return
	}
	p.opts.Progress(Progress{
		Records:   p.records,
		Bytes:     p.sc.Offset(),
		Line:      p.sc.Line(),
		Timestamp: p.now,
		Cycles:    p.sampler.History().Len(),
	})
}

// expectEnd consumes the $end closing the section opened by kw.
func (p *parser) expectEnd(kw string) error {
	tok, err := p.sc.Next()
	if err != nil {
		return err
	}
	if tok.Kind != lexer.End {
		return errors.Newf(errors.CodeMalformedToken, "unexpected %s, expected $end to close %s", tok, kw).
			WithPosition(tok.Line, tok.Offset)
	}
	return nil
}
