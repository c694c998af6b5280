// Package charset maps a container's text encoding and byte order to a
// character codec.
//
// Message text is stored as a sequence of fixed-width code units: 1 byte for
// UTF-8, 2 for UTF-16 and 4 for UTF-32. Control markers and terminators are
// single code units, so callers scan text unit by unit with [Codec.Unit] and
// hand runs of ordinary text to [Codec.Decode].
package charset

import (
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
)

// Encoding is the on-disk text encoding code stored in the container header.
type Encoding uint8

// Text encodings.
const (
	UTF8  Encoding = 0
	UTF16 Encoding = 1
	UTF32 Encoding = 2
)

// ErrUnknownEncoding is returned for encoding codes other than 0, 1 and 2.
var ErrUnknownEncoding = errors.New("unknown text encoding")

// String returns the encoding name.
func (e Encoding) String() string {
	switch e {
	case UTF8:
		return "UTF-8"
	case UTF16:
		return "UTF-16"
	case UTF32:
		return "UTF-32"
	default:
		return fmt.Sprintf("Encoding(%d)", uint8(e))
	}
}

// Width returns the code unit size in bytes, or 0 for unknown encodings.
func (e Encoding) Width() int {
	switch e {
	case UTF8:
		return 1
	case UTF16:
		return 2
	case UTF32:
		return 4
	default:
		return 0
	}
}

// Codec converts between Go strings and encoded code units.
type Codec struct {
	enc   Encoding
	order binary.ByteOrder
	text  encoding.Encoding
}

// New returns the codec for enc with the given byte order. The byte order is
// ignored for UTF-8.
func New(enc Encoding, order binary.ByteOrder) (*Codec, error) {
	big := order == binary.BigEndian
	var text encoding.Encoding
	switch enc {
	case UTF8:
		text = unicode.UTF8
	case UTF16:
		if big {
			text = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
		} else {
			text = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
		}
	case UTF32:
		if big {
			text = utf32.UTF32(utf32.BigEndian, utf32.IgnoreBOM)
		} else {
			text = utf32.UTF32(utf32.LittleEndian, utf32.IgnoreBOM)
		}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownEncoding, enc)
	}
	return &Codec{enc: enc, order: order, text: text}, nil
}

// MustNew is like New but panics on an unknown encoding.
func MustNew(enc Encoding, order binary.ByteOrder) *Codec {
	c, err := New(enc, order)
	if err != nil {
		panic(err)
	}
	return c
}

// Encoding returns the codec's encoding code.
func (c *Codec) Encoding() Encoding {
	return c.enc
}

// ByteOrder returns the byte order used for multi-byte code units.
func (c *Codec) ByteOrder() binary.ByteOrder {
	return c.order
}

// Width returns the code unit size in bytes.
func (c *Codec) Width() int {
	return c.enc.Width()
}

// Decode converts encoded bytes to a string. Malformed input decodes to
// U+FFFD; use [Codec.Lossless] to detect that.
func (c *Codec) Decode(b []byte) (string, error) {
	out, err := c.text.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Encode converts a string to encoded bytes without a terminator.
func (c *Codec) Encode(s string) ([]byte, error) {
	return c.text.NewEncoder().Bytes([]byte(s))
}

// Lossless decodes b and reports whether re-encoding the result reproduces b
// exactly.
func (c *Codec) Lossless(b []byte) (string, bool) {
	s, err := c.Decode(b)
	if err != nil {
		return "", false
	}
	back, err := c.Encode(s)
	if err != nil {
		return "", false
	}
	return s, string(back) == string(b)
}

// Unit reads the code unit at the start of b. b must hold at least Width
// bytes.
func (c *Codec) Unit(b []byte) uint32 {
	switch c.Width() {
	case 1:
		return uint32(b[0])
	case 2:
		return uint32(c.order.Uint16(b))
	default:
		return c.order.Uint32(b)
	}
}

// PutUnit encodes a single code unit.
func (c *Codec) PutUnit(v uint32) []byte {
	buf := make([]byte, c.Width())
	switch len(buf) {
	case 1:
		buf[0] = byte(v)
	case 2:
		c.order.PutUint16(buf, uint16(v))
	default:
		c.order.PutUint32(buf, v)
	}
	return buf
}

// Terminator returns the NUL code unit.
func (c *Codec) Terminator() []byte {
	return make([]byte, c.Width())
}

// CharLen returns the byte length of the character starting at b: one code
// unit, a surrogate pair, or a multi-byte UTF-8 sequence. Invalid input
// counts as a single unit.
func (c *Codec) CharLen(b []byte) int {
	w := c.Width()
	if len(b) < w {
		return len(b)
	}
	switch c.enc {
	case UTF8:
		_, n := utf8.DecodeRune(b)
		return n
	case UTF16:
		u := c.order.Uint16(b)
		if u >= 0xD800 && u < 0xDC00 && len(b) >= 4 {
			if l := c.order.Uint16(b[2:]); l >= 0xDC00 && l < 0xE000 {
				return 4
			}
		}
		return 2
	default:
		return w
	}
}
