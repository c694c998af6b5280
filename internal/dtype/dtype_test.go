package dtype

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	binpkg "github.com/robert-malhotra/go-msbt/internal/binary"
)

func TestTypeNames(t *testing.T) {
	for code := uint8(0); code <= 9; code++ {
		typ, err := FromCode(code)
		if err != nil {
			t.Fatalf("FromCode(%d) failed: %v", code, err)
		}
		back, err := ParseType(typ.String())
		if err != nil || back != typ {
			t.Errorf("ParseType(%q) = %v, %v", typ.String(), back, err)
		}
	}

	if _, err := FromCode(10); !errors.Is(err, ErrUnknownType) {
		t.Errorf("expected ErrUnknownType, got %v", err)
	}
	if _, err := ParseType("complex"); !errors.Is(err, ErrUnknownType) {
		t.Errorf("expected ErrUnknownType, got %v", err)
	}
}

func TestTypeSize(t *testing.T) {
	tests := []struct {
		typ  Type
		size int
	}{
		{Uint8, 1}, {Uint16, 2}, {Uint32, 4},
		{Int8, 1}, {Int16, 2}, {Int32, 4},
		{Float32, 4}, {Float64, 8},
		{String, 4}, {Enum, 1},
	}
	for _, tt := range tests {
		if tt.typ.Size() != tt.size {
			t.Errorf("%s.Size() = %d, want %d", tt.typ, tt.typ.Size(), tt.size)
		}
	}
}

func TestScalarText(t *testing.T) {
	tests := []struct {
		typ  Type
		text string
		bits uint64
	}{
		{Uint8, "255", 0xFF},
		{Uint16, "4660", 0x1234},
		{Uint32, "4294967295", 0xFFFFFFFF},
		{Int8, "-1", 0xFF},
		{Int16, "-1", 0xFFFF},
		{Int16, "-32768", 0x8000},
		{Int32, "-2", 0xFFFFFFFE},
		{Float32, "1.5", 0x3FC00000},
		{Float32, "0.1", 0x3DCCCCCD},
		{Float64, "-0.25", 0xBFD0000000000000},
	}

	for _, tt := range tests {
		s, err := ParseScalar(tt.typ, tt.text)
		if err != nil {
			t.Fatalf("ParseScalar(%s, %q) failed: %v", tt.typ, tt.text, err)
		}
		if s.Bits() != tt.bits {
			t.Errorf("ParseScalar(%s, %q) bits = 0x%x, want 0x%x", tt.typ, tt.text, s.Bits(), tt.bits)
		}
		if s.String() != tt.text {
			t.Errorf("%s 0x%x String() = %q, want %q", tt.typ, tt.bits, s.String(), tt.text)
		}
	}
}

func TestParseScalarErrors(t *testing.T) {
	if _, err := ParseScalar(Uint8, "256"); err == nil {
		t.Error("expected range error for uint8 256")
	}
	if _, err := ParseScalar(Int16, "abc"); err == nil {
		t.Error("expected syntax error")
	}
	if _, err := ParseScalar(String, "x"); !errors.Is(err, ErrNotNumeric) {
		t.Errorf("expected ErrNotNumeric, got %v", err)
	}
}

func TestScalarReadWrite(t *testing.T) {
	for _, order := range []binary.ByteOrder{binary.BigEndian, binary.LittleEndian} {
		buf := binpkg.NewBuffer(32)
		w := binpkg.NewWriter(buf, binpkg.Config{ByteOrder: order})

		values := []Scalar{
			Uint(Uint8, 7),
			Int(Int16, -300),
			Uint(Uint32, 0xDEADBEEF),
			Float(Float64, 2.75),
		}
		for _, v := range values {
			if err := v.Write(w); err != nil {
				t.Fatalf("Write failed: %v", err)
			}
		}

		r := binpkg.NewReader(buf.Bytes(), binpkg.Config{ByteOrder: order})
		for _, want := range values {
			got, err := ReadScalar(r, want.Type())
			if err != nil {
				t.Fatalf("ReadScalar failed: %v", err)
			}
			if got != want {
				t.Errorf("read %v (%s), want %v", got, got.Type(), want)
			}
		}
	}
}

func TestScalarPutGet(t *testing.T) {
	buf := make([]byte, 4)
	Int(Int16, -2).Put(buf, binary.BigEndian)
	if !bytes.Equal(buf[:2], []byte{0xFF, 0xFE}) {
		t.Errorf("Put wrote %x", buf[:2])
	}
	if got := Get(buf, Int16, binary.BigEndian); got.Int64() != -2 {
		t.Errorf("Get = %d", got.Int64())
	}
}
