// Package section handles the chunk framing shared by every section of both
// container types.
//
// A section is a 16-byte header (4-byte magic, u32 payload size, 8 reserved
// bytes) followed by the payload, padded with 0xAB to the next 16-byte
// boundary. The padding is not counted in the payload size.
package section

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-msbt/internal/binary"
)

// Framing constants.
const (
	HeaderSize = 16
	Alignment  = 16
	Padding    = 0xAB
)

// Magic identifies a section.
type Magic string

// Message container sections.
const (
	Labels           Magic = "LBL1"
	NumericIndex     Magic = "NLI1"
	AttributeOffsets Magic = "ATO1"
	Attributes       Magic = "ATR1"
	Styles           Magic = "TSY1"
	Text             Magic = "TXT2"
)

// Project container sections.
const (
	Colors          Magic = "CLR1"
	ColorLabels     Magic = "CLB1"
	AttributeInfo   Magic = "ATI2"
	AttributeLabels Magic = "ALB1"
	AttributeLists  Magic = "ALI2"
	TagGroups       Magic = "TGG2"
	Tags            Magic = "TAG2"
	TagParams       Magic = "TGP2"
	TagLists        Magic = "TGL2"
	StyleList       Magic = "SYL3"
	StyleLabels     Magic = "SLB1"
	SourceFiles     Magic = "CTI1"
)

// Errors
var (
	ErrMalformedSection = errors.New("malformed section")
	ErrUnknownSection   = errors.New("unknown section magic")
)

// Header is a parsed section header.
type Header struct {
	Magic Magic
	Size  uint32
	// Offset is the absolute position of the magic.
	Offset int64
}

// PayloadStart returns the absolute position of the first payload byte.
func (h Header) PayloadStart() int64 {
	return h.Offset + HeaderSize
}

// PayloadEnd returns the absolute position just past the payload.
func (h Header) PayloadEnd() int64 {
	return h.PayloadStart() + int64(h.Size)
}

// Unknown returns an ErrUnknownSection error for h.
func (h Header) Unknown() error {
	return fmt.Errorf("%w %q at 0x%x", ErrUnknownSection, string(h.Magic), h.Offset)
}

// Token remembers where a section started so End can back-fill its size.
type Token struct {
	offset int64
}

// Begin writes a section header with a zero size placeholder.
func Begin(w *binary.Writer, magic Magic) (Token, error) {
	if len(magic) != 4 {
		return Token{}, fmt.Errorf("section magic %q must be 4 bytes", string(magic))
	}
	tok := Token{offset: w.Pos()}
	if err := w.WriteBytes([]byte(magic)); err != nil {
		return tok, err
	}
	if err := w.WriteUint32(0); err != nil {
		return tok, err
	}
	return tok, w.WriteZeros(8)
}

// PayloadStart returns the absolute position of the section's first payload
// byte.
func (t Token) PayloadStart() int64 {
	return t.offset + HeaderSize
}

// End patches the payload size and pads the output to the section alignment.
func End(w *binary.Writer, tok Token) error {
	size := w.Pos() - tok.PayloadStart()
	if size < 0 {
		return fmt.Errorf("%w: negative payload size", ErrMalformedSection)
	}
	if err := w.PatchUint32At(tok.offset+4, uint32(size)); err != nil {
		return err
	}
	return w.WritePadding(Alignment, Padding)
}

// Walk reads count sections starting at the reader's position. fn receives a
// reader bounded to exactly the payload; whatever fn leaves unread is skipped.
// Walk stops at the first error returned by fn.
func Walk(r *binary.Reader, count int, fn func(h Header, body *binary.Reader) error) error {
	for i := 0; i < count; i++ {
		h := Header{Offset: r.Pos()}
		if r.Remaining() < HeaderSize {
			return fmt.Errorf("%w: section %d header at 0x%x past end of data", ErrMalformedSection, i, h.Offset)
		}
		magic, err := r.ReadBytes(4)
		if err != nil {
			return err
		}
		h.Magic = Magic(magic)
		if h.Size, err = r.ReadUint32(); err != nil {
			return err
		}
		r.Skip(8)

		if h.PayloadEnd() > r.End() {
			return fmt.Errorf("%w: %s payload of %d bytes at 0x%x runs past end of data",
				ErrMalformedSection, string(h.Magic), h.Size, h.PayloadStart())
		}

		body := r.Bounded(h.PayloadStart(), h.PayloadEnd())
		if err := fn(h, body); err != nil {
			return err
		}

		r.SeekTo(h.PayloadEnd())
		r.Align(Alignment)
	}
	return nil
}
