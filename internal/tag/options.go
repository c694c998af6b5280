package tag

import (
	"fmt"
	"strings"
)

// ColorMode selects how System.Color tags identify a color.
type ColorMode uint8

const (
	// ByRGBA writes colors as 4 RGBA bytes.
	ByRGBA ColorMode = iota
	// ByColorID writes colors as a signed 16-bit color table index.
	ByColorID
)

// String returns the configuration name of the mode.
func (m ColorMode) String() string {
	if m == ByColorID {
		return "byColorId"
	}
	return "byRGBA"
}

// ParseColorMode parses "byRGBA" or "byColorId", ignoring case. An empty
// string selects ByRGBA.
func ParseColorMode(s string) (ColorMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "byrgba", "rgba":
		return ByRGBA, nil
	case "bycolorid", "colorid", "id":
		return ByColorID, nil
	default:
		return ByRGBA, fmt.Errorf("unknown color mode %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m ColorMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *ColorMode) UnmarshalText(b []byte) error {
	v, err := ParseColorMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Options controls how tags are rendered. Encoding accepts every form
// regardless of these settings, except that AddLinebreakAfterPageBreak also
// makes the encoder drop the newline that follows a page break.
type Options struct {
	ShortenTags                bool
	ShortenPageBreak           bool
	AddLinebreakAfterPageBreak bool
	// SkipRuby drops Ruby tags from decoded text. This loses data.
	SkipRuby bool
	Colors   ColorMode
}
