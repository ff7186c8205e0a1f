// Package report renders cycle tables for the command line.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"vcdscan/internal/engine/parser"
	"vcdscan/internal/query"
	"vcdscan/internal/shared/util"
)

const (
	FormatText = "text"
	FormatTSV  = "tsv"
	FormatJSON = "json"
)

// Data is everything a report shows about one session.
type Data struct {
	Source     string
	Clock      string
	Timescale  string
	MergeEdges bool
	Truncated  bool
	Columns    []string
	Timeline   []query.Snapshot
	Cycles     query.CycleSet
	AllCycles  map[string][]string
	Skipped    map[string]int
}

// Build collects report data from a parse result and its query service.
func Build(source string, res *parser.Result, svc *query.Service, mergeEdges bool) Data {
	skipped := make(map[string]int, len(res.Diagnostics.Skipped))
	for code, n := range res.Diagnostics.Skipped {
		skipped[string(code)] = n
	}
	clock := ""
	if res.Clock != nil {
		clock = res.Clock.Path
	}
	return Data{
		Source:     source,
		Clock:      clock,
		Timescale:  res.Header.Timescale.String(),
		MergeEdges: mergeEdges,
		Truncated:  res.Truncated,
		Columns:    svc.Columns(),
		Timeline:   svc.Timeline(mergeEdges),
		Cycles:     svc.FetchAllCycles(),
		AllCycles:  svc.GetAllCycles(mergeEdges),
		Skipped:    skipped,
	}
}

// Write renders data in format to w.
func Write(w io.Writer, format string, data Data) error {
	var (
		out string
		err error
	)
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatText:
		out, err = NewTextGenerator().Generate(data)
	case FormatTSV:
		out, err = NewTSVGenerator().Generate(data)
	case FormatJSON:
		out, err = NewJSONGenerator().Generate(data)
	default:
		return fmt.Errorf("unknown report format %q, expected text, tsv, or json", format)
	}
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

// WriteFile renders data in format to path, creating parent directories.
func WriteFile(path, format string, data Data) error {
	var b strings.Builder
	if err := Write(&b, format, data); err != nil {
		return err
	}
	if err := util.WriteFileAtomic(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write report %q: %w", path, err)
	}
	return nil
}

type TextGenerator struct{}

func NewTextGenerator() *TextGenerator {
	return &TextGenerator{}
}

func (g *TextGenerator) Generate(data Data) (string, error) {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("source: %s\n", data.Source))
	b.WriteString(fmt.Sprintf("clock: %s", nonEmpty(data.Clock, "-")))
	if data.Timescale != "" {
		b.WriteString(fmt.Sprintf(" (timescale %s)", data.Timescale))
	}
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("cycles: %d rising, %d falling", len(data.Cycles.PosResult), len(data.Cycles.NegResult)))
	if data.Truncated {
		b.WriteString(" (truncated)")
	}
	b.WriteString("\n")
	for _, code := range util.SortedStringKeys(data.Skipped) {
		b.WriteString(fmt.Sprintf("skipped: %s x%d\n", code, data.Skipped[code]))
	}

	if len(data.Timeline) == 0 {
		b.WriteString("no clock edges captured\n")
		return b.String(), nil
	}

	headers := append([]string{"#", "time", "edge"}, data.Columns...)
	rows := make([][]string, 0, len(data.Timeline))
	for i, snap := range data.Timeline {
		row := make([]string, 0, len(headers))
		row = append(row, strconv.Itoa(i), strconv.FormatUint(snap.Timestamp, 10), snap.Edge)
		for _, col := range data.Columns {
			row = append(row, snap.Values[col])
		}
		rows = append(rows, row)
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...)
	b.WriteString(t.String())
	b.WriteString("\n")
	return b.String(), nil
}

type TSVGenerator struct{}

func NewTSVGenerator() *TSVGenerator {
	return &TSVGenerator{}
}

// Generate writes one row per selected cycle: index, time, edge, then one
// column per signal path.
func (g *TSVGenerator) Generate(data Data) (string, error) {
	var buf strings.Builder

	buf.WriteString("Index\tTime\tEdge")
	for _, col := range data.Columns {
		buf.WriteString("\t" + col)
	}
	buf.WriteString("\n")

	for i, snap := range data.Timeline {
		buf.WriteString(fmt.Sprintf("%d\t%d\t%s", i, snap.Timestamp, snap.Edge))
		for _, col := range data.Columns {
			buf.WriteString("\t" + snap.Values[col])
		}
		buf.WriteString("\n")
	}
	return buf.String(), nil
}

type JSONGenerator struct{}

func NewJSONGenerator() *JSONGenerator {
	return &JSONGenerator{}
}

type jsonReport struct {
	Source    string              `json:"source"`
	Clock     string              `json:"clock"`
	Timescale string              `json:"timescale,omitempty"`
	Truncated bool                `json:"truncated"`
	Columns   []string            `json:"columns"`
	PosResult []query.Row         `json:"pos_result"`
	NegResult []query.Row         `json:"neg_result"`
	AllCycles map[string][]string `json:"all_cycles"`
	Skipped   map[string]int      `json:"skipped,omitempty"`
}

func (g *JSONGenerator) Generate(data Data) (string, error) {
	out, err := json.MarshalIndent(jsonReport{
		Source:    data.Source,
		Clock:     data.Clock,
		Timescale: data.Timescale,
		Truncated: data.Truncated,
		Columns:   data.Columns,
		PosResult: data.Cycles.PosResult,
		NegResult: data.Cycles.NegResult,
		AllCycles: data.AllCycles,
		Skipped:   data.Skipped,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode json report: %w", err)
	}
	return string(out) + "\n", nil
}

func nonEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
