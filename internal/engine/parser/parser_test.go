package parser

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vcdscan/internal/core/errors"
	"vcdscan/internal/engine/sampler"
	"vcdscan/internal/engine/signal"
)

const clkRstDump = `$date today $end
$version test bench 1.0 $end
$timescale 1ns $end
$var wire 1 ! clk $end
$var wire 1 " rst $end
$enddefinitions $end
#0
$dumpvars
0!
1"
$end
#5
1!
#6
0"
#10
0!
#15
1!
`

func parse(t *testing.T, src string, opts Options) (*Result, error) {
	t.Helper()
	return Parse(context.Background(), strings.NewReader(src), opts)
}

func mustParse(t *testing.T, src string, opts Options) *Result {
	t.Helper()
	res, err := parse(t, src, opts)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func TestParse_ClockAndReset(t *testing.T) {
	res := mustParse(t, clkRstDump, Options{})

	assert.Equal(t, "today", res.Header.Date)
	assert.Equal(t, "test bench 1.0", res.Header.Version)
	assert.Equal(t, signal.Timescale{Multiplier: 1, Unit: signal.Nanosecond}, res.Header.Timescale)
	assert.Equal(t, "clk", res.Clock.Path)

	pos := res.History.Edge(sampler.Rising)
	require.Len(t, pos, 2)
	assert.Equal(t, uint64(5), pos[0].Timestamp)
	assert.Equal(t, map[string]string{"clk": "1", "rst": "1"}, pos[0].Values())
	assert.Equal(t, uint64(15), pos[1].Timestamp)
	assert.Equal(t, map[string]string{"clk": "1", "rst": "0"}, pos[1].Values())

	neg := res.History.Edge(sampler.Falling)
	require.Len(t, neg, 1)
	assert.Equal(t, uint64(10), neg[0].Timestamp)

	assert.Equal(t, uint64(6), res.Records)
	assert.Equal(t, uint64(15), res.LastTime)
	assert.False(t, res.Truncated)
	assert.Zero(t, res.Diagnostics.Total())
}

func TestParse_ShortVectorIsPadded(t *testing.T) {
	src := `$scope module top $end
$var wire 1 " clk $end
$var reg 4 ! nibble $end
$upscope $end
$enddefinitions $end
#0
0"
b101 !
#1
1"
`
	res := mustParse(t, src, Options{})
	require.Equal(t, 1, res.History.Len())
	v, ok := res.History.At(0).Value("top.nibble")
	require.True(t, ok)
	assert.Equal(t, "0101", v)
}

func TestParse_UnknownSignalAborts(t *testing.T) {
	src := `$var wire 1 ! clk $end
$enddefinitions $end
#0
0!
#5
1!
#10
0!
#15
1!
1%
`
	res, err := parse(t, src, Options{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeUnknownSignalReference))
	line, ok := errors.LineOf(err)
	require.True(t, ok)
	assert.Equal(t, 11, line)

	// Cycles from closed timestamps survive; the edge at #15 shares its
	// timestamp with the bad record and is not emitted.
	require.NotNil(t, res)
	require.Equal(t, 2, res.History.Len())
	assert.Equal(t, uint64(5), res.History.At(0).Timestamp)
	assert.Equal(t, uint64(10), res.History.At(1).Timestamp)
}

func TestParse_EdgeCountMatchesTransitions(t *testing.T) {
	var b strings.Builder
	b.WriteString("$var wire 1 ! clk $end\n$var wire 8 # cnt $end\n$enddefinitions $end\n")
	seq := []string{"x", "0", "1", "1", "0", "z", "1", "0", "1", "x", "0", "1", "0"}
	want := 0
	prev := "x"
	for i, v := range seq {
		fmt.Fprintf(&b, "#%d\n%s!\nb%b #\n", i*10, v, i)
		if (prev == "0" && v == "1") || (prev == "1" && v == "0") {
			want++
		}
		prev = v
	}

	res := mustParse(t, b.String(), Options{})
	assert.Equal(t, want, res.History.Count(sampler.Rising)+res.History.Count(sampler.Falling))

	var last uint64
	for _, c := range res.History.All() {
		assert.GreaterOrEqual(t, c.Timestamp, last, "timestamps are non-decreasing")
		last = c.Timestamp
		for _, sig := range res.Table.Signals() {
			v := c.SlotValue(sig.Slot)
			assert.Len(t, v, sig.Width)
			assert.Empty(t, strings.Trim(v, "01xz"))
		}
	}
}

func TestParse_ClockWithoutTransitions(t *testing.T) {
	src := `$var wire 1 ! clk $end
$var wire 1 " d $end
$enddefinitions $end
#0
1!
0"
#10
1"
#20
1!
`
	res := mustParse(t, src, Options{})
	assert.Equal(t, 0, res.History.Len())
}

func TestParse_SettledVersusImmediate(t *testing.T) {
	// Registers update at the same timestamp as the clock, after it in file order.
	src := `$var wire 1 ! clk $end
$var reg 2 " q $end
$enddefinitions $end
#0
0!
b00 "
#5
1!
b01 "
`
	settled := mustParse(t, src, Options{Sample: sampler.Settled})
	require.Equal(t, 1, settled.History.Len())
	v, _ := settled.History.At(0).Value("q")
	assert.Equal(t, "01", v)

	immediate := mustParse(t, src, Options{Sample: sampler.Immediate})
	require.Equal(t, 1, immediate.History.Len())
	v, _ = immediate.History.At(0).Value("q")
	assert.Equal(t, "00", v)
}

func TestParse_NestedScopesAndAliases(t *testing.T) {
	src := `$scope module tb $end
$var wire 1 ! clk $end
$scope module dut $end
$var wire 1 ! clk $end
$var wire 8 " data [7:0] $end
$var wire 1 # bus [0] $end
$scope begin blk $end
$var integer 32 $ count $end
$upscope $end
$upscope $end
$upscope $end
$enddefinitions $end
#0
0!
b1010 "
1#
b101 $
#1
1!
`
	res := mustParse(t, src, Options{Clock: "tb.clk"})
	assert.Equal(t, []string{"tb.clk", "tb.dut.clk", "tb.dut.data", "tb.dut.bus[0]", "tb.dut.blk.count"}, res.Table.Paths())
	require.Len(t, res.Table.Aliases(), 1)

	require.Equal(t, 1, res.History.Len())
	values := res.History.At(0).Values()
	assert.Equal(t, "1", values["tb.dut.clk"], "aliases share the clock's value")
	assert.Equal(t, "00001010", values["tb.dut.data"])
	assert.Equal(t, strings.Repeat("0", 29)+"101", values["tb.dut.blk.count"])
}

func TestParse_ZeroWidthClockGlitch(t *testing.T) {
	src := `$var wire 1 ! clk $end
$var wire 1 " d $end
$enddefinitions $end
#0
0!
0"
#5
1!
1"
0!
#10
`
	res := mustParse(t, src, Options{})
	require.Equal(t, 2, res.History.Len())

	rising := res.History.At(0)
	assert.Equal(t, sampler.Rising, rising.Edge)
	assert.Equal(t, uint64(5), rising.Timestamp)
	assert.Equal(t, map[string]string{"clk": "1", "d": "1"}, rising.Values())

	falling := res.History.At(1)
	assert.Equal(t, sampler.Falling, falling.Edge)
	assert.Equal(t, uint64(5), falling.Timestamp)
	assert.Equal(t, map[string]string{"clk": "0", "d": "1"}, falling.Values())
}

func TestParse_RealValues(t *testing.T) {
	src := `$var wire 1 ! clk $end
$var real 64 " temp $end
$enddefinitions $end
#0
0!
r1.5 "
#1
1!
r2.25 "
`
	res := mustParse(t, src, Options{})
	require.Equal(t, 1, res.History.Len())
	v, _ := res.History.At(0).Value("temp")
	assert.Equal(t, "2.25", v)
}

func TestParse_CommentsAndBlankLines(t *testing.T) {
	src := "$comment\n multi\n line $end\n\n\n$var wire 1 ! clk $end\n\n$enddefinitions\n$end\n\n#0 0!   \n$comment in body $end\n#1\n\n1!\n\n"
	res := mustParse(t, src, Options{})
	assert.Equal(t, []string{"multi line"}, res.Header.Comments)
	assert.Equal(t, 1, res.History.Len())
}

func TestParse_DeclarationErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code errors.ErrorCode
		line int
	}{
		{
			name: "unmatched scope",
			src:  "$scope module top $end\n$var wire 1 ! clk $end\n$enddefinitions $end\n",
			code: errors.CodeScopeMismatch,
			line: 3,
		},
		{
			name: "extra upscope",
			src:  "$var wire 1 ! clk $end\n$upscope $end\n",
			code: errors.CodeScopeMismatch,
			line: 2,
		},
		{
			name: "duplicate id in scope",
			src:  "$scope module top $end\n$var wire 1 ! clk $end\n$var wire 1 ! clk2 $end\n$upscope $end\n$enddefinitions $end\n",
			code: errors.CodeDuplicateSignalID,
			line: 3,
		},
		{
			name: "zero width",
			src:  "$var wire 0 ! clk $end\n$enddefinitions $end\n",
			code: errors.CodeInvalidWidth,
			line: 1,
		},
		{
			name: "non-numeric width",
			src:  "$var wire\nwide ! clk $end\n$enddefinitions $end\n",
			code: errors.CodeInvalidWidth,
			line: 1,
		},
		{
			name: "bad timescale",
			src:  "$timescale 7 ns $end\n",
			code: errors.CodeMalformedToken,
			line: 1,
		},
		{
			name: "short var",
			src:  "$var wire 1 ! $end\n",
			code: errors.CodeMalformedToken,
			line: 1,
		},
		{
			name: "missing enddefinitions",
			src:  "$var wire 1 ! clk $end\n",
			code: errors.CodeMalformedToken,
			line: 2,
		},
		{
			name: "stray word",
			src:  "$var wire 1 ! clk $end\nclk\n",
			code: errors.CodeMalformedToken,
			line: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := parse(t, tt.src, Options{})
			require.Error(t, err)
			assert.Nil(t, res, "declaration errors leave no usable result")
			assert.True(t, errors.IsCode(err, tt.code), "got %v", err)
			line, ok := errors.LineOf(err)
			require.True(t, ok, "error carries a line: %v", err)
			assert.Equal(t, tt.line, line)
		})
	}
}

func TestParse_NoClockSignal(t *testing.T) {
	src := "$var wire 1 ! a $end\n$enddefinitions $end\n#0\n0!\n"
	_, err := parse(t, src, Options{})
	assert.True(t, errors.IsCode(err, errors.CodeNoClockSignal))

	res, err := parse(t, src, Options{Clock: "a"})
	require.NoError(t, err)
	assert.Equal(t, "a", res.Clock.Path)
}

func TestParse_BodyErrorsStrict(t *testing.T) {
	header := "$var wire 1 ! clk $end\n$var wire 4 \" v $end\n$enddefinitions $end\n"
	tests := []struct {
		name string
		body string
		code errors.ErrorCode
	}{
		{"non-monotonic", "#10\n0!\n#5\n1!\n", errors.CodeNonMonotonicTime},
		{"too wide", "#0\nb10101 \"\n", errors.CodeVectorWidthMismatch},
		{"real into wire", "#0\nr1.0 \"\n", errors.CodeVectorWidthMismatch},
		{"bad bit", "#0\nb1u \"\n", errors.CodeMalformedToken},
		{"bad timestamp", "#abc\n", errors.CodeMalformedToken},
		{"garbage", "#0\nq!\n", errors.CodeMalformedToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := parse(t, header+tt.body, Options{})
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, tt.code), "got %v", err)
			_, ok := errors.LineOf(err)
			assert.True(t, ok)
			assert.NotNil(t, res, "body errors keep the partial result")
		})
	}
}

func TestParse_Lenient(t *testing.T) {
	src := `$var wire 1 ! clk $end
$var wire 4 " v $end
$enddefinitions $end
#0
0!
b0000 "
#10
1!
1%
b11111 "
#5
0!
b1 "
#20
1!
`
	res := mustParse(t, src, Options{Lenient: true})

	assert.Equal(t, 3, res.Diagnostics.Total())
	assert.Equal(t, 1, res.Diagnostics.Skipped[errors.CodeUnknownSignalReference])
	assert.Equal(t, 1, res.Diagnostics.Skipped[errors.CodeVectorWidthMismatch])
	assert.Equal(t, 1, res.Diagnostics.Skipped[errors.CodeNonMonotonicTime])
	assert.Len(t, res.Diagnostics.Samples, 3)
	assert.Equal(t, []errors.ErrorCode{
		errors.CodeNonMonotonicTime, errors.CodeUnknownSignalReference, errors.CodeVectorWidthMismatch,
	}, res.Diagnostics.Codes())

	// The ignored #5 leaves the falling edge at #10.
	require.Equal(t, 3, res.History.Len())
	assert.Equal(t, uint64(10), res.History.At(0).Timestamp)
	assert.Equal(t, uint64(10), res.History.At(1).Timestamp)
	assert.Equal(t, sampler.Falling, res.History.At(1).Edge)
	v, _ := res.History.At(2).Value("v")
	assert.Equal(t, "0001", v)
}

func TestParse_LenientStillFailsOnLexicalErrors(t *testing.T) {
	src := "$var wire 1 ! clk $end\n$enddefinitions $end\n#0\n0\x02!\n"
	_, err := parse(t, src, Options{Lenient: true})
	assert.True(t, errors.IsCode(err, errors.CodeMalformedToken))
}

func TestParse_MaxCycles(t *testing.T) {
	var b strings.Builder
	b.WriteString("$var wire 1 ! clk $end\n$enddefinitions $end\n")
	for i := 0; i < 100; i++ {
		fmt.Fprintf(&b, "#%d\n%d!\n", i, i%2)
	}

	for _, mode := range []sampler.Mode{sampler.Settled, sampler.Immediate} {
		t.Run(mode.String(), func(t *testing.T) {
			res := mustParse(t, b.String(), Options{MaxCycles: 5, Sample: mode})
			assert.Equal(t, 5, res.History.Len())
			assert.True(t, res.Truncated)
			assert.Less(t, res.LastTime, uint64(99))
		})
	}
}

func TestParse_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := Parse(ctx, strings.NewReader(clkRstDump), Options{})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Equal(t, 0, res.History.Len())
}

func TestParse_Progress(t *testing.T) {
	var calls []Progress
	res := mustParse(t, clkRstDump, Options{
		ProgressEvery: 2,
		Progress:      func(p Progress) { calls = append(calls, p) },
	})
	require.Len(t, calls, 3)
	assert.Equal(t, uint64(2), calls[0].Records)
	assert.Equal(t, uint64(6), calls[2].Records)
	assert.Equal(t, res.LastTime, calls[2].Timestamp)
	assert.Positive(t, calls[2].Bytes)
}

func TestParse_StrictIDs(t *testing.T) {
	src := `$scope module a $end
$var wire 1 ! clk $end
$upscope $end
$scope module b $end
$var wire 1 ! clk $end
$upscope $end
$enddefinitions $end
`
	_, err := parse(t, src, Options{StrictIDs: true})
	assert.True(t, errors.IsCode(err, errors.CodeDuplicateSignalID))

	res, err := parse(t, src, Options{Clock: "a.clk"})
	require.NoError(t, err)
	assert.Len(t, res.Table.Aliases(), 1)
}
