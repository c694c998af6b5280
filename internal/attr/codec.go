package attr

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/elliotchance/orderedmap/v3"

	"github.com/robert-malhotra/go-msbt/internal/charset"
	"github.com/robert-malhotra/go-msbt/internal/dtype"
	"github.com/robert-malhotra/go-msbt/msbp"
)

// Raw-mode entry names. Without schema attributes a block decodes to RawName
// holding its bytes plus one StringPrefix+N entry per trailing string.
const (
	RawName      = "_raw"
	StringPrefix = "_str"
)

// Values is the attribute set of one message, in field order.
type Values = *orderedmap.OrderedMap[string, Value]

// NewValues returns an empty attribute set.
func NewValues() Values {
	return orderedmap.NewOrderedMap[string, Value]()
}

// RawStringName returns the raw-mode entry name of the i-th trailing string.
func RawStringName(i int) string {
	return StringPrefix + strconv.Itoa(i)
}

func rawStringIndex(name string) (int, bool) {
	s, ok := strings.CutPrefix(name, StringPrefix)
	if !ok || s == "" {
		return 0, false
	}
	i, err := strconv.Atoi(s)
	if err != nil || i < 0 || RawStringName(i) != name {
		return 0, false
	}
	return i, true
}

// Codec maps attribute blocks to values using a project's attribute schema
// and the file's ATO1 offsets.
type Codec struct {
	defs       []msbp.AttributeDef
	offsets    []int32
	hasOffsets bool
	text       *charset.Codec
	order      binary.ByteOrder
}

// NewCodec returns a codec for the given schema. offsets is the ATO1 list;
// nil means the file has no ATO1 section and fields are packed in
// declaration order.
func NewCodec(defs []msbp.AttributeDef, offsets []int32, text *charset.Codec) *Codec {
	return &Codec{
		defs:       defs,
		offsets:    offsets,
		hasOffsets: offsets != nil,
		text:       text,
		order:      text.ByteOrder(),
	}
}

// Raw reports whether blocks are handled without a schema.
func (c *Codec) Raw() bool {
	return len(c.defs) == 0
}

// field is a schema attribute placed in the block.
type field struct {
	def    *msbp.AttributeDef
	offset int
}

func fieldSize(t dtype.Type) int {
	switch t {
	case dtype.String:
		return 4
	case dtype.Enum:
		return 1
	default:
		return t.Size()
	}
}

// fields returns the attributes present in blocks of the given width. A
// negative width places every field.
func (c *Codec) fields(width int) []field {
	var out []field
	next := 0
	for i := range c.defs {
		def := &c.defs[i]
		size := fieldSize(def.Type)
		off := next
		if c.hasOffsets {
			if i >= len(c.offsets) || c.offsets[i] < 0 {
				continue
			}
			off = int(c.offsets[i])
		} else {
			next += size
		}
		if width >= 0 && off+size > width {
			continue
		}
		out = append(out, field{def: def, offset: off})
	}
	return out
}

// Width returns the block width a new table needs for every field.
func (c *Codec) Width() int {
	w := 0
	for _, f := range c.fields(-1) {
		w = max(w, f.offset+fieldSize(f.def.Type))
	}
	return w
}

// Names returns the attribute names present in blocks of the given width.
func (c *Codec) Names(width int) []string {
	var names []string
	for _, f := range c.fields(width) {
		names = append(names, f.def.Name)
	}
	return names
}

// pointer is a raw-mode block slot holding the offset of one of the
// message's trailing strings.
type pointer struct {
	pos int
	str int
}

// Decoder decodes the blocks of one table.
type Decoder struct {
	c      *Codec
	table  *Table
	fields []field

	strs       []regionString
	perMessage int
	pointers   []pointer
}

// NewDecoder binds a parsed table to the codec.
func (c *Codec) NewDecoder(t *Table) *Decoder {
	d := &Decoder{c: c, table: t}
	if !c.Raw() {
		d.fields = c.fields(t.Width)
		return d
	}
	if !t.HasStrings() {
		return d
	}
	d.strs = t.regionStrings(c.text)
	if len(t.Blocks) > 0 {
		d.perMessage = len(d.strs) / len(t.Blocks)
	}
	d.pointers = d.findPointers()
	return d
}

// Table returns the decoded table.
func (d *Decoder) Table() *Table {
	return d.table
}

// Len returns the number of blocks.
func (d *Decoder) Len() int {
	return len(d.table.Blocks)
}

// StringsPerMessage returns the number of trailing strings assigned to each
// message in raw mode.
func (d *Decoder) StringsPerMessage() int {
	return d.perMessage
}

// findPointers returns the 4-byte aligned slots that hold the offset of the
// same trailing string index in every block.
func (d *Decoder) findPointers() []pointer {
	k := d.perMessage
	if k == 0 {
		return nil
	}
	var out []pointer
	for pos := 0; pos+4 <= d.table.Width; pos += 4 {
		str := -1
		for i, b := range d.table.Blocks {
			v := int(d.c.order.Uint32(b[pos:]))
			j := -1
			for n, s := range d.strs[i*k : i*k+k] {
				if s.offset == v {
					j = n
					break
				}
			}
			if j < 0 || (str >= 0 && j != str) {
				str = -1
				break
			}
			str = j
		}
		if str >= 0 {
			out = append(out, pointer{pos: pos, str: str})
		}
	}
	return out
}

// Decode returns the attributes of block i.
func (d *Decoder) Decode(i int) (Values, error) {
	if i < 0 || i >= len(d.table.Blocks) {
		return nil, fmt.Errorf("%w: no block %d of %d", ErrMalformedTable, i, len(d.table.Blocks))
	}
	block := d.table.Blocks[i]
	vals := NewValues()

	if d.c.Raw() {
		raw := make([]byte, len(block))
		copy(raw, block)
		vals.Set(RawName, BytesValue(raw))
		for j := 0; j < d.perMessage; j++ {
			vals.Set(RawStringName(j), StringValue(d.strs[i*d.perMessage+j].text))
		}
		return vals, nil
	}

	for _, f := range d.fields {
		vals.Set(f.def.Name, d.decodeField(f, block))
	}
	return vals, nil
}

func (d *Decoder) decodeField(f field, block []byte) Value {
	b := block[f.offset:]
	switch f.def.Type {
	case dtype.String:
		off := d.c.order.Uint32(b)
		s, err := d.table.stringAt(int(off), d.c.text)
		if err != nil {
			return ScalarValue(dtype.Uint(dtype.Uint32, uint64(off)))
		}
		return StringValue(s)
	case dtype.Enum:
		if f.def.Enum != nil {
			if lit, ok := f.def.Enum.Decode(uint16(b[0])); ok {
				return EnumValue(lit)
			}
		}
		return ScalarValue(dtype.Uint(dtype.Uint8, uint64(b[0])))
	default:
		return ScalarValue(dtype.Get(b, f.def.Type, d.c.order))
	}
}

// rawString returns the j-th trailing string of block i as parsed.
func (d *Decoder) rawString(i, j int) string {
	return d.strs[i*d.perMessage+j].text
}
