package msbp

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ErrColorSyntax is returned for malformed #RRGGBBAA literals.
var ErrColorSyntax = errors.New("invalid color literal")

// Color is an RGBA color table entry.
type Color struct {
	R, G, B, A uint8
}

// Bytes returns the on-disk RGBA bytes.
func (c Color) Bytes() []byte {
	return []byte{c.R, c.G, c.B, c.A}
}

// Hex returns the #RRGGBBAA form.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X%02X", c.R, c.G, c.B, c.A)
}

// String implements fmt.Stringer.
func (c Color) String() string {
	return c.Hex()
}

// ColorFromBytes builds a color from 4 RGBA bytes.
func ColorFromBytes(b []byte) Color {
	return Color{R: b[0], G: b[1], B: b[2], A: b[3]}
}

// ParseHex parses a #RRGGBBAA literal.
func ParseHex(s string) (Color, error) {
	if !strings.HasPrefix(s, "#") || len(s) != 9 {
		return Color{}, fmt.Errorf("%w: %q", ErrColorSyntax, s)
	}
	b, err := hex.DecodeString(s[1:])
	if err != nil {
		return Color{}, fmt.Errorf("%w: %q", ErrColorSyntax, s)
	}
	return ColorFromBytes(b), nil
}
