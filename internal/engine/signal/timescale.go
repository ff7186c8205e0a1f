package signal

import (
	"fmt"
	"strconv"
	"strings"
)

// Unit is a VCD time unit.
type Unit string

const (
	Second      Unit = "s"
	Millisecond Unit = "ms"
	Microsecond Unit = "us"
	Nanosecond  Unit = "ns"
	Picosecond  Unit = "ps"
	Femtosecond Unit = "fs"
)

var validUnits = map[Unit]bool{
	Second:      true,
	Millisecond: true,
	Microsecond: true,
	Nanosecond:  true,
	Picosecond:  true,
	Femtosecond: true,
}

// Timescale is the normalized $timescale declaration. The zero value means
// the file did not declare one.
type Timescale struct {
	Multiplier int
	Unit       Unit
}

// ParseTimescale accepts "1ns", "10 ps", "100us" and the like.
func ParseTimescale(s string) (Timescale, error) {
	s = strings.ToLower(strings.Join(strings.Fields(s), ""))
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return Timescale{}, fmt.Errorf("expected 1, 10 or 100 followed by a unit, got %q", s)
	}
	mult, err := strconv.Atoi(s[:i])
	if err != nil || (mult != 1 && mult != 10 && mult != 100) {
		return Timescale{}, fmt.Errorf("timescale multiplier must be 1, 10 or 100, got %q", s[:i])
	}
	unit := Unit(s[i:])
	if !validUnits[unit] {
		return Timescale{}, fmt.Errorf("expected a unit of s, ms, us, ns, ps or fs, got %q", s[i:])
	}
	return Timescale{Multiplier: mult, Unit: unit}, nil
}

// IsZero reports whether no timescale was declared.
func (ts Timescale) IsZero() bool { return ts.Multiplier == 0 }

func (ts Timescale) String() string {
	if ts.IsZero() {
		return ""
	}
	return strconv.Itoa(ts.Multiplier) + string(ts.Unit)
}
