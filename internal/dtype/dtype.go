package dtype

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	binpkg "github.com/robert-malhotra/go-msbt/internal/binary"
)

// Type is a parameter or attribute value type.
type Type uint8

// Value types, numbered by their on-disk code.
const (
	Uint8 Type = iota
	Uint16
	Uint32
	Int8
	Int16
	Int32
	Float32
	Float64
	String
	Enum
)

// ErrUnknownType is returned for type codes outside the closed set.
var ErrUnknownType = errors.New("unknown value type")

// ErrNotNumeric is returned when a scalar operation is applied to String or
// Enum.
var ErrNotNumeric = errors.New("type is not numeric")

var typeNames = [...]string{
	Uint8:   "uint8",
	Uint16:  "uint16",
	Uint32:  "uint32",
	Int8:    "int8",
	Int16:   "int16",
	Int32:   "int32",
	Float32: "float",
	Float64: "double",
	String:  "string",
	Enum:    "list",
}

// String returns the type name.
func (t Type) String() string {
	if t.Valid() {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

// ParseType parses a type name produced by String.
func ParseType(name string) (Type, error) {
	for t, n := range typeNames {
		if strings.EqualFold(n, name) {
			return Type(t), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownType, name)
}

// FromCode validates an on-disk type code.
func FromCode(code uint8) (Type, error) {
	t := Type(code)
	if !t.Valid() {
		return 0, fmt.Errorf("%w: code %d", ErrUnknownType, code)
	}
	return t, nil
}

// Valid reports whether t is one of the defined types.
func (t Type) Valid() bool {
	return t <= Enum
}

// Numeric reports whether t is an integer or float type.
func (t Type) Numeric() bool {
	return t <= Float64
}

// Signed reports whether t is a signed integer type.
func (t Type) Signed() bool {
	return t == Int8 || t == Int16 || t == Int32
}

// Float reports whether t is a floating-point type.
func (t Type) Float() bool {
	return t == Float32 || t == Float64
}

// Size returns the fixed on-disk width of a value of type t inside an
// attribute block. String is a 4-byte offset; Enum is a single byte.
func (t Type) Size() int {
	switch t {
	case Uint8, Int8, Enum:
		return 1
	case Uint16, Int16:
		return 2
	case Uint32, Int32, Float32, String:
		return 4
	case Float64:
		return 8
	default:
		return 0
	}
}

// Scalar is a numeric value with its type. The raw bits are kept exactly as
// stored on disk, truncated to the type's width.
type Scalar struct {
	typ  Type
	bits uint64
}

func mask(t Type) uint64 {
	if t.Size() >= 8 {
		return math.MaxUint64
	}
	return 1<<(8*uint(t.Size())) - 1
}

// Uint returns an unsigned scalar of type t.
func Uint(t Type, v uint64) Scalar {
	return Scalar{typ: t, bits: v & mask(t)}
}

// Int returns a signed scalar of type t.
func Int(t Type, v int64) Scalar {
	return Scalar{typ: t, bits: uint64(v) & mask(t)}
}

// Float returns a floating-point scalar of type t.
func Float(t Type, v float64) Scalar {
	if t == Float32 {
		return Scalar{typ: t, bits: uint64(math.Float32bits(float32(v)))}
	}
	return Scalar{typ: Float64, bits: math.Float64bits(v)}
}

// FromBits returns a scalar with the given raw bits.
func FromBits(t Type, bits uint64) Scalar {
	return Scalar{typ: t, bits: bits & mask(t)}
}

// Type returns the scalar's type.
func (s Scalar) Type() Type {
	return s.typ
}

// Bits returns the raw on-disk bits.
func (s Scalar) Bits() uint64 {
	return s.bits
}

// Uint64 returns the value as an unsigned integer.
func (s Scalar) Uint64() uint64 {
	if s.typ.Signed() {
		return uint64(s.Int64())
	}
	if s.typ.Float() {
		return uint64(s.Float64())
	}
	return s.bits
}

// Int64 returns the value as a signed integer, sign-extending signed types.
func (s Scalar) Int64() int64 {
	switch s.typ {
	case Int8:
		return int64(int8(s.bits))
	case Int16:
		return int64(int16(s.bits))
	case Int32:
		return int64(int32(s.bits))
	case Float32, Float64:
		return int64(s.Float64())
	default:
		return int64(s.bits)
	}
}

// Float64 returns the value as a float.
func (s Scalar) Float64() float64 {
	switch s.typ {
	case Float32:
		return float64(math.Float32frombits(uint32(s.bits)))
	case Float64:
		return math.Float64frombits(s.bits)
	case Int8, Int16, Int32:
		return float64(s.Int64())
	default:
		return float64(s.bits)
	}
}

// String formats the value in decimal.
func (s Scalar) String() string {
	switch s.typ {
	case Int8, Int16, Int32:
		return strconv.FormatInt(s.Int64(), 10)
	case Float32:
		return strconv.FormatFloat(s.Float64(), 'g', -1, 32)
	case Float64:
		return strconv.FormatFloat(s.Float64(), 'g', -1, 64)
	default:
		return strconv.FormatUint(s.bits, 10)
	}
}

// ParseScalar parses a decimal literal as a value of type t.
func ParseScalar(t Type, text string) (Scalar, error) {
	text = strings.TrimSpace(text)
	bitSize := 8 * t.Size()
	switch t {
	case Uint8, Uint16, Uint32:
		v, err := strconv.ParseUint(text, 10, bitSize)
		if err != nil {
			return Scalar{}, fmt.Errorf("parsing %s: %w", t, err)
		}
		return Uint(t, v), nil
	case Int8, Int16, Int32:
		v, err := strconv.ParseInt(text, 10, bitSize)
		if err != nil {
			return Scalar{}, fmt.Errorf("parsing %s: %w", t, err)
		}
		return Int(t, v), nil
	case Float32, Float64:
		v, err := strconv.ParseFloat(text, bitSize)
		if err != nil {
			return Scalar{}, fmt.Errorf("parsing %s: %w", t, err)
		}
		return Float(t, v), nil
	default:
		return Scalar{}, fmt.Errorf("%w: %s", ErrNotNumeric, t)
	}
}

// ReadScalar reads a numeric value of type t.
func ReadScalar(r *binpkg.Reader, t Type) (Scalar, error) {
	if !t.Numeric() {
		return Scalar{}, fmt.Errorf("%w: %s", ErrNotNumeric, t)
	}
	v, err := r.ReadUintN(t.Size())
	if err != nil {
		return Scalar{}, err
	}
	return FromBits(t, v), nil
}

// Write emits the value at its type's width.
func (s Scalar) Write(w *binpkg.Writer) error {
	if !s.typ.Numeric() {
		return fmt.Errorf("%w: %s", ErrNotNumeric, s.typ)
	}
	return w.WriteUintN(s.bits, s.typ.Size())
}

// Get decodes a value of type t from the start of buf.
func Get(buf []byte, t Type, order binary.ByteOrder) Scalar {
	switch t.Size() {
	case 1:
		return FromBits(t, uint64(buf[0]))
	case 2:
		return FromBits(t, uint64(order.Uint16(buf)))
	case 4:
		return FromBits(t, uint64(order.Uint32(buf)))
	default:
		return FromBits(t, order.Uint64(buf))
	}
}

// Put encodes the value into the start of buf.
func (s Scalar) Put(buf []byte, order binary.ByteOrder) {
	switch s.typ.Size() {
	case 1:
		buf[0] = byte(s.bits)
	case 2:
		order.PutUint16(buf, uint16(s.bits))
	case 4:
		order.PutUint32(buf, uint32(s.bits))
	default:
		order.PutUint64(buf, s.bits)
	}
}
