package attr

import (
	"fmt"

	binpkg "github.com/robert-malhotra/go-msbt/internal/binary"
	"github.com/robert-malhotra/go-msbt/internal/charset"
)

// Table is the payload of an ATR1 section: a block count, the block width,
// one block per message and an optional string region after the blocks.
// String offsets are relative to the start of the payload.
type Table struct {
	Width  int
	Blocks [][]byte

	payload []byte
}

// ReadTable reads an ATR1 payload. r must be bounded to the payload.
func ReadTable(r *binpkg.Reader) (*Table, error) {
	payload := r.Slice(r.Pos(), r.End())

	count, err := r.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("reading block count: %w", err)
	}
	width, err := r.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("reading block width: %w", err)
	}
	if width > 0 && uint64(count)*uint64(width) > uint64(r.Remaining()) {
		return nil, fmt.Errorf("%w: %d blocks of %d bytes in %d", ErrMalformedTable, count, width, r.Remaining())
	}

	t := &Table{Width: int(width), payload: payload}
	t.Blocks = make([][]byte, count)
	for i := range t.Blocks {
		t.Blocks[i], err = r.ReadBytes(int(width))
		if err != nil {
			return nil, fmt.Errorf("reading block %d: %w", i, err)
		}
	}
	return t, nil
}

// RegionStart returns the payload offset of the string region.
func (t *Table) RegionStart() int {
	return 8 + len(t.Blocks)*t.Width
}

// Region returns the bytes following the blocks.
func (t *Table) Region() []byte {
	if t.RegionStart() >= len(t.payload) {
		return nil
	}
	return t.payload[t.RegionStart():]
}

// HasStrings reports whether the payload extends past the blocks.
func (t *Table) HasStrings() bool {
	return len(t.Region()) > 0
}

// stringAt reads the terminated string at payload offset off.
func (t *Table) stringAt(off int, text *charset.Codec) (string, error) {
	r := binpkg.NewReader(t.payload, binpkg.DefaultConfig())
	raw, err := r.ReadTerminatedAt(int64(off), text.Width())
	if err != nil {
		return "", err
	}
	return text.Decode(raw)
}

// regionString is one string found by walking the region from its start.
type regionString struct {
	offset int
	text   string
}

// regionStrings walks the region as consecutive terminated strings. A
// trailing unterminated run is ignored.
func (t *Table) regionStrings(text *charset.Codec) []regionString {
	var out []regionString
	r := binpkg.NewReader(t.payload, binpkg.DefaultConfig())
	r.SeekTo(int64(t.RegionStart()))
	for r.Remaining() > 0 {
		off := int(r.Pos())
		raw, err := r.ReadTerminated(text.Width())
		if err != nil {
			break
		}
		s, err := text.Decode(raw)
		if err != nil {
			break
		}
		out = append(out, regionString{offset: off, text: s})
	}
	return out
}

// pool lays out the string region of a table being written. It starts from
// the original region so unchanged strings keep their offsets; new strings
// are appended once each. Offsets are relative to the region start.
type pool struct {
	text  *charset.Codec
	data  []byte
	added map[string]int
}

func newPool(text *charset.Codec, region []byte) *pool {
	data := make([]byte, len(region))
	copy(data, region)
	return &pool{text: text, data: data, added: make(map[string]int)}
}

// get reads the string at rel.
func (p *pool) get(rel int) (string, bool) {
	if rel < 0 || rel >= len(p.data) {
		return "", false
	}
	r := binpkg.NewReader(p.data, binpkg.DefaultConfig())
	raw, err := r.ReadTerminatedAt(int64(rel), p.text.Width())
	if err != nil {
		return "", false
	}
	s, err := p.text.Decode(raw)
	return s, err == nil
}

// put returns the offset of s, appending it when it is new.
func (p *pool) put(s string) (int, error) {
	if rel, ok := p.added[s]; ok {
		return rel, nil
	}
	rel, err := p.add(s)
	if err != nil {
		return 0, err
	}
	p.added[s] = rel
	return rel, nil
}

// add appends s without reusing an earlier copy.
func (p *pool) add(s string) (int, error) {
	b, err := p.text.Encode(s)
	if err != nil {
		return 0, fmt.Errorf("encoding %q: %w", s, err)
	}
	rel := len(p.data)
	p.data = append(p.data, b...)
	p.data = append(p.data, p.text.Terminator()...)
	return rel, nil
}
