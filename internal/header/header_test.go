package header

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	binpkg "github.com/robert-malhotra/go-msbt/internal/binary"
	"github.com/robert-malhotra/go-msbt/internal/charset"
)

func TestReadLittleEndian(t *testing.T) {
	data := []byte{
		'M', 's', 'g', 'S', 't', 'd', 'B', 'n',
		0xFF, 0xFE, 0x00, 0x00,
		0x01, 0x03,
		0x05, 0x00,
		0x00, 0x00,
		0x40, 0x01, 0x00, 0x00,
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}

	r := binpkg.NewReader(data, binpkg.DefaultConfig())
	h, err := Read(r)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if h.Kind != Message {
		t.Errorf("expected message kind, got %v", h.Kind)
	}
	if h.ByteOrder != binary.LittleEndian {
		t.Errorf("expected little-endian")
	}
	if h.Encoding != charset.UTF16 {
		t.Errorf("expected UTF-16, got %v", h.Encoding)
	}
	if h.Version != 3 {
		t.Errorf("expected version 3, got %d", h.Version)
	}
	if h.SectionCount != 5 {
		t.Errorf("expected 5 sections, got %d", h.SectionCount)
	}
	if h.FileSize != 0x140 {
		t.Errorf("expected file size 0x140, got 0x%x", h.FileSize)
	}
	if r.Pos() != Size {
		t.Errorf("expected position %d, got %d", Size, r.Pos())
	}
	if r.ByteOrder() != binary.LittleEndian {
		t.Errorf("reader byte order not switched")
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	for _, order := range []binary.ByteOrder{binary.BigEndian, binary.LittleEndian} {
		h := &Header{
			Kind:      Project,
			ByteOrder: order,
			Encoding:  charset.UTF8,
			Version:   3,
		}

		buf := binpkg.NewBuffer(Size)
		w := binpkg.NewWriter(buf, h.Config())
		if err := Write(w, h); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		if err := Patch(w, 7, 0x1234); err != nil {
			t.Fatalf("Patch failed: %v", err)
		}
		if buf.Len() != Size {
			t.Fatalf("expected %d header bytes, got %d", Size, buf.Len())
		}

		got, err := Read(binpkg.NewReader(buf.Bytes(), binpkg.DefaultConfig()))
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if got.Kind != Project || got.ByteOrder != order || got.SectionCount != 7 || got.FileSize != 0x1234 {
			t.Errorf("round trip mismatch: %+v", got)
		}
	}
}

func TestWriteByteOrderMark(t *testing.T) {
	buf := binpkg.NewBuffer(Size)
	h := &Header{Kind: Message, ByteOrder: binary.LittleEndian}
	Write(binpkg.NewWriter(buf, h.Config()), h)
	if !bytes.Equal(buf.Bytes()[8:10], []byte{0xFF, 0xFE}) {
		t.Errorf("little-endian mark = %x", buf.Bytes()[8:10])
	}
}

func TestReadErrors(t *testing.T) {
	short := []byte("MsgStdBn")
	if _, err := Read(binpkg.NewReader(short, binpkg.DefaultConfig())); !errors.Is(err, ErrTruncated) {
		t.Errorf("expected ErrTruncated, got %v", err)
	}

	bad := make([]byte, Size)
	copy(bad, "NotAFile")
	if _, err := Read(binpkg.NewReader(bad, binpkg.DefaultConfig())); !errors.Is(err, ErrUnknownMagic) {
		t.Errorf("expected ErrUnknownMagic, got %v", err)
	}
}
