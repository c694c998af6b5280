// Package attr encodes and decodes the fixed-width attribute block stored
// for every message in an ATR1 section.
package attr

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/robert-malhotra/go-msbt/internal/dtype"
	"github.com/robert-malhotra/go-msbt/msbp"
)

// Kind identifies which field of a Value is set.
type Kind uint8

// Value kinds.
const (
	KindBytes Kind = iota
	KindScalar
	KindEnum
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindBytes:
		return "bytes"
	case KindScalar:
		return "scalar"
	case KindEnum:
		return "enum"
	case KindString:
		return "string"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Value is one decoded attribute.
type Value struct {
	Kind   Kind
	Scalar dtype.Scalar
	// Text holds the literal of an enum value or the content of a string.
	Text  string
	Bytes []byte
}

// BytesValue returns a raw byte value.
func BytesValue(b []byte) Value {
	return Value{Kind: KindBytes, Bytes: b}
}

// ScalarValue returns a numeric value.
func ScalarValue(s dtype.Scalar) Value {
	return Value{Kind: KindScalar, Scalar: s}
}

// EnumValue returns a list item literal.
func EnumValue(literal string) Value {
	return Value{Kind: KindEnum, Text: literal}
}

// StringValue returns a string value.
func StringValue(s string) Value {
	return Value{Kind: KindString, Text: s}
}

// String formats the value the way Parse reads it back. Bytes print as
// uppercase hex.
func (v Value) String() string {
	switch v.Kind {
	case KindBytes:
		return strings.ToUpper(hex.EncodeToString(v.Bytes))
	case KindScalar:
		return v.Scalar.String()
	default:
		return v.Text
	}
}

// Equal reports whether two values hold the same content.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindBytes:
		return string(v.Bytes) == string(o.Bytes)
	case KindScalar:
		return v.Scalar == o.Scalar
	default:
		return v.Text == o.Text
	}
}

// Parse reads text written by [Value.String] as a value of the attribute
// def. Enum text that names no list item is accepted as a bare item id.
func Parse(def *msbp.AttributeDef, text string) (Value, error) {
	if def == nil {
		return Value{}, fmt.Errorf("%w: no definition", ErrUnresolvedAttributeName)
	}
	switch {
	case def.Type == dtype.String:
		return StringValue(text), nil
	case def.Type == dtype.Enum:
		if def.Enum != nil {
			if _, ok := def.Enum.Index(text); ok {
				return EnumValue(text), nil
			}
		}
		s, err := dtype.ParseScalar(dtype.Uint8, text)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %q for attribute %q", ErrUnresolvedEnumLiteral, text, def.Name)
		}
		return ScalarValue(s), nil
	case def.Type.Numeric():
		s, err := dtype.ParseScalar(def.Type, text)
		if err != nil {
			return Value{}, fmt.Errorf("attribute %q: %w", def.Name, err)
		}
		return ScalarValue(s), nil
	default:
		return Value{}, fmt.Errorf("attribute %q: %w: %d", def.Name, dtype.ErrUnknownType, uint8(def.Type))
	}
}

// ParseRaw reads raw-mode text for the named entry.
func ParseRaw(name, text string) (Value, error) {
	if name == RawName {
		b, err := hex.DecodeString(strings.ReplaceAll(text, " ", ""))
		if err != nil {
			return Value{}, fmt.Errorf("attribute %q: %w", name, err)
		}
		return BytesValue(b), nil
	}
	if _, ok := rawStringIndex(name); !ok {
		return Value{}, fmt.Errorf("%w: %q", ErrUnresolvedAttributeName, name)
	}
	return StringValue(text), nil
}
