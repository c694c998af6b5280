// Package header handles the fixed 32-byte header shared by message and
// project containers.
//
// Layout (offsets in bytes):
//
//	0x00  magic        8 bytes, "MsgStdBn" or "MsgPrjBn"
//	0x08  byte order   u16, FE FF big-endian, FF FE little-endian
//	0x0A  reserved     2 bytes
//	0x0C  encoding     u8 (0 UTF-8, 1 UTF-16, 2 UTF-32)
//	0x0D  version      u8
//	0x0E  sections     u16
//	0x10  reserved     2 bytes
//	0x12  file size    u32
//	0x16  reserved     10 bytes
package header

import (
	"encoding/binary"
	"errors"
	"fmt"

	binpkg "github.com/robert-malhotra/go-msbt/internal/binary"
	"github.com/robert-malhotra/go-msbt/internal/charset"
)

// Size is the header length in bytes.
const Size = 0x20

// Field offsets patched after compilation.
const (
	SectionCountOffset = 0x0E
	FileSizeOffset     = 0x12
)

// Kind distinguishes the two container types.
type Kind uint8

const (
	Message Kind = iota
	Project
)

// Magic signatures.
var (
	MessageMagic = []byte("MsgStdBn")
	ProjectMagic = []byte("MsgPrjBn")
)

// Errors
var (
	ErrUnknownMagic = errors.New("unknown container magic")
	ErrTruncated    = errors.New("header truncated")
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Message:
		return "message"
	case Project:
		return "project"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Magic returns the signature for the kind.
func (k Kind) Magic() []byte {
	if k == Project {
		return ProjectMagic
	}
	return MessageMagic
}

// Header holds the container metadata.
type Header struct {
	Kind         Kind
	ByteOrder    binary.ByteOrder
	Encoding     charset.Encoding
	Version      uint8
	SectionCount uint16
	FileSize     uint32
}

// Read parses the header at the reader's current position and switches the
// reader to the detected byte order.
func Read(r *binpkg.Reader) (*Header, error) {
	if r.Remaining() < Size {
		return nil, fmt.Errorf("%w: %d bytes", ErrTruncated, r.Remaining())
	}

	magic, err := r.ReadBytes(8)
	if err != nil {
		return nil, err
	}

	h := &Header{}
	switch string(magic) {
	case string(MessageMagic):
		h.Kind = Message
	case string(ProjectMagic):
		h.Kind = Project
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMagic, magic)
	}

	// The mark is always inspected big-endian.
	r.SetByteOrder(binary.BigEndian)
	bom, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	if bom == 0xFFFE {
		h.ByteOrder = binary.LittleEndian
	} else {
		h.ByteOrder = binary.BigEndian
	}
	r.SetByteOrder(h.ByteOrder)
	r.Skip(2)

	enc, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	h.Encoding = charset.Encoding(enc)

	if h.Version, err = r.ReadUint8(); err != nil {
		return nil, err
	}
	if h.SectionCount, err = r.ReadUint16(); err != nil {
		return nil, err
	}
	r.Skip(2)
	if h.FileSize, err = r.ReadUint32(); err != nil {
		return nil, err
	}
	r.Skip(10)

	return h, nil
}

// Write emits the header. SectionCount and FileSize are written as stored;
// use Patch once the body is complete.
func Write(w *binpkg.Writer, h *Header) error {
	if err := w.WriteBytes(h.Kind.Magic()); err != nil {
		return err
	}
	if err := w.WriteUint16(0xFEFF); err != nil {
		return err
	}
	if err := w.WriteZeros(2); err != nil {
		return err
	}
	if err := w.WriteUint8(uint8(h.Encoding)); err != nil {
		return err
	}
	if err := w.WriteUint8(h.Version); err != nil {
		return err
	}
	if err := w.WriteUint16(h.SectionCount); err != nil {
		return err
	}
	if err := w.WriteZeros(2); err != nil {
		return err
	}
	if err := w.WriteUint32(h.FileSize); err != nil {
		return err
	}
	return w.WriteZeros(10)
}

// Patch back-fills the section count and file size fields.
func Patch(w *binpkg.Writer, sections uint16, size uint32) error {
	if err := w.PatchUint16At(SectionCountOffset, sections); err != nil {
		return err
	}
	return w.PatchUint32At(FileSizeOffset, size)
}

// Codec returns the character codec selected by the header's encoding and
// byte order.
func (h *Header) Codec() (*charset.Codec, error) {
	return charset.New(h.Encoding, h.ByteOrder)
}

// Config returns a reader/writer configuration for this header.
func (h *Header) Config() binpkg.Config {
	return binpkg.Config{ByteOrder: h.ByteOrder}
}
