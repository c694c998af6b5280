package attr

import (
	"fmt"
	"math"

	binpkg "github.com/robert-malhotra/go-msbt/internal/binary"
	"github.com/robert-malhotra/go-msbt/internal/dtype"
)

// fixup is a string slot patched with the final region offset.
type fixup struct {
	pos int
	rel int
}

type entry struct {
	name  string
	orig  int
	block []byte
	fix   []fixup
	strs  map[int]string
}

// Encoder builds a new table. Messages are added in file order; each starts
// from its original block so bytes outside the known fields survive.
type Encoder struct {
	c      *Codec
	orig   *Decoder
	fields []field
	pool   *pool

	width   int
	first   string
	entries []entry
}

// NewEncoder returns an encoder. orig is the decoder of the parsed table, or
// nil for a new file.
func (c *Codec) NewEncoder(orig *Decoder) *Encoder {
	e := &Encoder{c: c, orig: orig, width: -1}
	if c.Raw() {
		return e
	}
	var region []byte
	if orig != nil {
		e.width = orig.table.Width
		region = orig.table.Region()
	} else {
		e.width = c.Width()
	}
	e.fields = c.fields(e.width)
	e.pool = newPool(c.text, region)
	return e
}

// Add encodes the attributes of the next message. orig is the message's
// block index in the parsed table, or -1.
func (e *Encoder) Add(name string, vals Values, orig int) error {
	if e.orig == nil || orig >= len(e.orig.table.Blocks) {
		orig = -1
	}
	if vals == nil {
		vals = NewValues()
	}
	if e.c.Raw() {
		return e.addRaw(name, vals, orig)
	}

	ent := entry{name: name, orig: orig, block: make([]byte, e.width)}
	var origBlock []byte
	if orig >= 0 {
		origBlock = e.orig.table.Blocks[orig]
		copy(ent.block, origBlock)
	}
	for k := range vals.Keys() {
		if !e.known(k) {
			return fmt.Errorf("%w: %q", ErrUnresolvedAttributeName, k)
		}
	}
	for _, f := range e.fields {
		v, ok := vals.Get(f.def.Name)
		if !ok {
			if origBlock == nil {
				if f.def.Type != dtype.String {
					continue
				}
				v = StringValue("")
			} else {
				v = e.orig.decodeField(f, origBlock)
			}
		}
		if err := e.encodeField(&ent, f, v, origBlock); err != nil {
			return err
		}
	}
	e.entries = append(e.entries, ent)
	return nil
}

func (e *Encoder) known(name string) bool {
	for _, f := range e.fields {
		if f.def.Name == name {
			return true
		}
	}
	return false
}

func (e *Encoder) encodeField(ent *entry, f field, v Value, origBlock []byte) error {
	b := ent.block[f.offset:]
	order := e.c.order
	switch f.def.Type {
	case dtype.String:
		if v.Kind == KindScalar {
			order.PutUint32(b, uint32(v.Scalar.Uint64()))
			return nil
		}
		s := v.String()
		rel := -1
		if origBlock != nil {
			o := int(order.Uint32(origBlock[f.offset:])) - e.orig.table.RegionStart()
			if got, ok := e.pool.get(o); ok && got == s {
				rel = o
			}
		}
		if rel < 0 {
			var err error
			if rel, err = e.pool.put(s); err != nil {
				return fmt.Errorf("attribute %q: %w", f.def.Name, err)
			}
		}
		ent.fix = append(ent.fix, fixup{pos: f.offset, rel: rel})
		return nil

	case dtype.Enum:
		var id uint64
		if v.Kind == KindScalar {
			id = v.Scalar.Uint64()
		} else {
			if f.def.Enum == nil {
				return fmt.Errorf("%w: attribute %q has no list", ErrUnresolvedEnumLiteral, f.def.Name)
			}
			gid, ok := f.def.Enum.Encode(v.String())
			if !ok {
				return fmt.Errorf("%w: %q for attribute %q", ErrUnresolvedEnumLiteral, v.String(), f.def.Name)
			}
			id = uint64(gid)
		}
		if id > math.MaxUint8 {
			return fmt.Errorf("attribute %q: list item id %d does not fit a byte", f.def.Name, id)
		}
		b[0] = byte(id)
		return nil

	default:
		s := v.Scalar
		if v.Kind != KindScalar || s.Type() != f.def.Type {
			var err error
			if s, err = dtype.ParseScalar(f.def.Type, v.String()); err != nil {
				return fmt.Errorf("attribute %q: %w", f.def.Name, err)
			}
		}
		s.Put(b, order)
		return nil
	}
}

func (e *Encoder) addRaw(name string, vals Values, orig int) error {
	ent := entry{name: name, orig: orig, strs: make(map[int]string)}
	for k, v := range vals.AllFromFront() {
		if k == RawName {
			if v.Kind != KindBytes {
				var err error
				if v, err = ParseRaw(RawName, v.String()); err != nil {
					return err
				}
			}
			ent.block = append([]byte{}, v.Bytes...)
			continue
		}
		j, ok := rawStringIndex(k)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnresolvedAttributeName, k)
		}
		ent.strs[j] = v.String()
	}
	if ent.block == nil && orig >= 0 {
		ent.block = append([]byte{}, e.orig.table.Blocks[orig]...)
	}
	if orig >= 0 {
		for j := 0; j < e.orig.perMessage; j++ {
			if _, ok := ent.strs[j]; !ok {
				ent.strs[j] = e.orig.rawString(orig, j)
			}
		}
	}

	if ent.block != nil {
		switch {
		case e.width < 0:
			e.width, e.first = len(ent.block), name
		case len(ent.block) != e.width:
			return &WidthMismatchError{First: e.first, FirstWidth: e.width, Second: name, SecondWidth: len(ent.block)}
		}
	}
	e.entries = append(e.entries, ent)
	return nil
}

// Write emits the table payload.
func (e *Encoder) Write(w *binpkg.Writer) error {
	width := e.width
	if width < 0 {
		width = 0
		if e.orig != nil {
			width = e.orig.table.Width
		}
	}
	for i := range e.entries {
		if e.entries[i].block == nil {
			e.entries[i].block = make([]byte, width)
		}
	}

	start := 8 + len(e.entries)*width
	var region []byte
	if e.c.Raw() {
		var err error
		if region, err = e.rawRegion(start); err != nil {
			return err
		}
	} else {
		region = e.pool.data
		for _, ent := range e.entries {
			for _, fx := range ent.fix {
				e.c.order.PutUint32(ent.block[fx.pos:], uint32(start+fx.rel))
			}
		}
	}

	if err := w.WriteUint32(uint32(len(e.entries))); err != nil {
		return err
	}
	if err := w.WriteUint32(uint32(width)); err != nil {
		return err
	}
	for _, ent := range e.entries {
		if err := w.WriteBytes(ent.block); err != nil {
			return err
		}
	}
	return w.WriteBytes(region)
}

// perMessage returns the number of trailing strings each raw message gets.
func (e *Encoder) perMessage() int {
	k := 0
	if e.orig != nil {
		k = e.orig.perMessage
	}
	for _, ent := range e.entries {
		for j := range ent.strs {
			k = max(k, j+1)
		}
	}
	return k
}

// rawRegion returns the trailing strings of a raw table. The parsed region
// is reused when no string moved; otherwise it is rebuilt in message order
// and the detected pointer slots are patched.
func (e *Encoder) rawRegion(start int) ([]byte, error) {
	k := e.perMessage()
	if e.unchanged(k) {
		return e.orig.table.Region(), nil
	}

	p := newPool(e.c.text, nil)
	rels := make([][]int, len(e.entries))
	for i, ent := range e.entries {
		rels[i] = make([]int, k)
		for j := 0; j < k; j++ {
			rel, err := p.add(ent.strs[j])
			if err != nil {
				return nil, fmt.Errorf("message %q: %w", ent.name, err)
			}
			rels[i][j] = rel
		}
	}
	if e.orig != nil {
		for _, s := range e.orig.strs[len(e.orig.table.Blocks)*e.orig.perMessage:] {
			if _, err := p.add(s.text); err != nil {
				return nil, err
			}
		}
		for i, ent := range e.entries {
			for _, ptr := range e.orig.pointers {
				if ptr.str < k && ptr.pos+4 <= len(ent.block) {
					e.c.order.PutUint32(ent.block[ptr.pos:], uint32(start+rels[i][ptr.str]))
				}
			}
		}
	}
	return p.data, nil
}

func (e *Encoder) unchanged(k int) bool {
	if e.orig == nil || !e.orig.table.HasStrings() || k != e.orig.perMessage {
		return false
	}
	if len(e.entries) != len(e.orig.table.Blocks) {
		return false
	}
	for i, ent := range e.entries {
		if ent.orig != i {
			return false
		}
		for j := 0; j < k; j++ {
			if ent.strs[j] != e.orig.rawString(i, j) {
				return false
			}
		}
	}
	return true
}
