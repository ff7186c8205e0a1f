package signal

import (
	"errors"
	"strings"
)

var (
	// ErrTooWide is returned when a vector carries more bits than declared.
	ErrTooWide = errors.New("vector is wider than the declared width")
	// ErrBadSymbol is returned for a bit outside {0, 1, x, z}.
	ErrBadSymbol = errors.New("bit symbol outside {0, 1, x, z}")
)

// Normalize folds bits to lowercase and resizes them to width. Short vectors
// are extended on the left with '0', or with 'x'/'z' when the leftmost
// supplied bit is 'x'/'z'. An empty value is treated as a single 'x'.
//
// Zero padding therefore applies only when the leftmost supplied bit is '0'
// or '1': "b101" on width 4 is "0101", "bx1" is "xxx1" (IEEE 1364 extension).
func Normalize(bits string, width int) (string, error) {
	if bits == "" {
		bits = "x"
	}
	if len(bits) > width {
		return "", ErrTooWide
	}
	clean := true
	for i := 0; i < len(bits); i++ {
		switch bits[i] {
		case '0', '1', 'x', 'z':
		case 'X', 'Z':
			clean = false
		default:
			return "", ErrBadSymbol
		}
	}
	if !clean {
		bits = strings.ToLower(bits)
	}
	if len(bits) == width {
		return bits, nil
	}

	pad := byte('0')
	if bits[0] == 'x' || bits[0] == 'z' {
		pad = bits[0]
	}
	var b strings.Builder
	b.Grow(width)
	for i := len(bits); i < width; i++ {
		b.WriteByte(pad)
	}
	b.WriteString(bits)
	return b.String(), nil
}

// Unknown returns the all-'x' value for a signal of the given width.
func Unknown(width int) string {
	if width <= 1 {
		return "x"
	}
	return strings.Repeat("x", width)
}

const hexDigits = "0123456789abcdef"

// Hex renders a bit vector in hexadecimal. Vectors containing any 'x' render
// as "x", and otherwise vectors containing any 'z' render as "z". Values that
// are not bit vectors (real or string signals) are returned unchanged.
func Hex(bits string) string {
	if strings.IndexByte(bits, 'x') >= 0 {
		return "x"
	}
	if strings.IndexByte(bits, 'z') >= 0 {
		return "z"
	}
	for i := 0; i < len(bits); i++ {
		if bits[i] != '0' && bits[i] != '1' {
			return bits
		}
	}

	pad := (4 - len(bits)%4) % 4
	out := make([]byte, 0, (len(bits)+pad)/4)
	v, n := 0, 0
	for i := 0; i < len(bits)+pad; i++ {
		bit := 0
		if i >= pad && bits[i-pad] == '1' {
			bit = 1
		}
		v = v<<1 | bit
		n++
		if n == 4 {
			out = append(out, hexDigits[v])
			v, n = 0, 0
		}
	}
	return string(out)
}
