package msbt

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/elliotchance/orderedmap/v3"

	"github.com/robert-malhotra/go-msbt/internal/attr"
	"github.com/robert-malhotra/go-msbt/internal/binary"
	"github.com/robert-malhotra/go-msbt/internal/header"
	"github.com/robert-malhotra/go-msbt/internal/label"
	"github.com/robert-malhotra/go-msbt/internal/section"
)

// numEntry is one NLI1 record.
type numEntry struct {
	id    uint32
	index uint32
}

// raw holds section contents before they are joined into messages.
type raw struct {
	labels  *label.Table
	numbers []numEntry
	table   *attr.Table
	styles  []int32
	texts   [][]byte
	offsets []int64
}

// Parse parses a message container.
func Parse(data []byte, opts ...Option) (*File, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	log := o.logger

	r := binary.NewReader(data, binary.DefaultConfig())
	h, err := header.Read(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotMessageFile, err)
	}
	if h.Kind != header.Message {
		return nil, fmt.Errorf("%w: found %s container", ErrNotMessageFile, h.Kind)
	}

	f := &File{
		Header:   *h,
		Messages: orderedmap.NewOrderedMap[string, *Message](),
		numbered: map[string]bool{},
		unkeyed:  map[string]bool{},
	}
	rw := &raw{}

	err = section.Walk(r, int(h.SectionCount), func(sh section.Header, body *binary.Reader) error {
		log.Debug("reading section", "magic", string(sh.Magic), "offset", sh.Offset, "size", sh.Size)
		f.sections = append(f.sections, sh.Magic)

		var err error
		switch sh.Magic {
		case section.Labels:
			rw.labels, err = label.Read(body)
		case section.NumericIndex:
			rw.numbers, err = readNumbers(body)
		case section.AttributeOffsets:
			f.offsets, err = readInt32s(body)
		case section.Attributes:
			rw.table, err = attr.ReadTable(body)
		case section.Styles:
			rw.styles, err = readInt32s(body)
		case section.Text:
			rw.texts, rw.offsets, err = readTexts(body)
		default:
			return sh.Unknown()
		}
		if err != nil {
			return fmt.Errorf("%s: %w", string(sh.Magic), err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := f.bind(o); err != nil {
		return nil, err
	}
	if err := f.assemble(rw); err != nil {
		return nil, err
	}
	log.Debug("parsed message file", "messages", f.Messages.Len(), "encoding", f.Header.Encoding,
		"sections", len(f.sections), "attributes", f.AttributeCount())
	return f, nil
}

func (f *File) assemble(rw *raw) error {
	if rw.table != nil {
		f.table = f.attrs.NewDecoder(rw.table)
	}
	f.styleCount = len(rw.styles)

	msgs := make([]*Message, len(rw.texts))
	for i, data := range rw.texts {
		text, terminated := f.text.Decode(data)
		m := &Message{
			Text:       text,
			StyleID:    NoStyle,
			Attributes: attr.NewValues(),
			orig: &origin{
				index:      i,
				offset:     rw.offsets[i],
				text:       text,
				raw:        slices.Clone(data),
				terminated: terminated,
			},
		}
		if i < len(rw.styles) {
			m.StyleID = rw.styles[i]
		}
		if f.table != nil && i < f.table.Len() {
			vals, err := f.table.Decode(i)
			if err != nil {
				return fmt.Errorf("%s: %w", string(section.Attributes), err)
			}
			m.Attributes = vals
		}
		msgs[i] = m
	}

	keys, err := f.messageKeys(rw, len(msgs))
	if err != nil {
		return err
	}
	for i, m := range msgs {
		if f.Messages.Has(keys[i]) {
			return fmt.Errorf("%w: %q", ErrDuplicateKey, keys[i])
		}
		f.Messages.Set(keys[i], m)
	}
	return nil
}

// messageKeys names the n messages by label, by numeric id or by position.
// Messages without a label or id are keyed by position, prefixed with '#'
// until the key collides with no label or id.
func (f *File) messageKeys(rw *raw, n int) ([]string, error) {
	keys := make([]string, n)
	switch {
	case rw.labels != nil:
		f.keys = byLabel
		f.labelSlots = rw.labels.SlotCount
		names, err := rw.labels.Labels(n)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrMalformedSection, string(section.Labels), err)
		}
		for _, e := range rw.labels.Entries {
			f.labelOrder = append(f.labelOrder, e.Label)
		}
		copy(keys, names)
		f.numbers = rw.numbers

	case rw.numbers != nil:
		f.keys = byNumber
		for _, e := range rw.numbers {
			if int64(e.index) >= int64(n) {
				return nil, fmt.Errorf("%w: %s: id %d points at message %d of %d",
					ErrMalformedSection, string(section.NumericIndex), e.id, e.index, n)
			}
			key := strconv.FormatUint(uint64(e.id), 10)
			if f.numbered[key] || keys[e.index] != "" {
				return nil, fmt.Errorf("%w: %s: id %d", ErrDuplicateKey, string(section.NumericIndex), e.id)
			}
			keys[e.index] = key
			f.numbered[key] = true
			f.numOrder = append(f.numOrder, key)
		}

	default:
		f.keys = byPosition
	}

	if f.keys == byPosition {
		for i := range keys {
			keys[i] = positionKey(i)
		}
		return keys, nil
	}

	taken := make(map[string]bool, n)
	for _, k := range keys {
		if k != "" {
			taken[k] = true
		}
	}
	for i := range keys {
		if keys[i] != "" {
			continue
		}
		key := positionKey(i)
		for taken[key] {
			key = "#" + key
		}
		taken[key] = true
		keys[i] = key
		f.unkeyed[key] = true
	}
	return keys, nil
}

func readNumbers(r *binary.Reader) ([]numEntry, error) {
	count, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	if int64(count)*8 > r.Remaining() {
		return nil, fmt.Errorf("%w: %d entries in %d bytes", ErrMalformedSection, count, r.Remaining())
	}
	out := make([]numEntry, count)
	for i := range out {
		if out[i].id, err = r.ReadUint32(); err != nil {
			return nil, err
		}
		if out[i].index, err = r.ReadUint32(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func readInt32s(r *binary.Reader) ([]int32, error) {
	out := make([]int32, 0, r.Remaining()/4)
	for r.Remaining() >= 4 {
		v, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// readTexts returns the bytes of each message, from its offset to the next
// greater offset or the end of the section.
func readTexts(r *binary.Reader) ([][]byte, []int64, error) {
	base := r.Pos()
	size := r.End() - base
	count, err := r.ReadUint32()
	if err != nil {
		return nil, nil, err
	}
	if int64(count)*4 > r.Remaining() {
		return nil, nil, fmt.Errorf("%w: %d offsets in %d bytes", ErrMalformedSection, count, r.Remaining())
	}

	offsets := make([]int64, count)
	for i := range offsets {
		v, err := r.ReadUint32()
		if err != nil {
			return nil, nil, err
		}
		if int64(v) > size {
			return nil, nil, fmt.Errorf("%w: message %d at offset %d past end of section", ErrMalformedSection, i, v)
		}
		offsets[i] = int64(v)
	}

	sorted := slices.Clone(offsets)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	texts := make([][]byte, count)
	for i, off := range offsets {
		end := size
		j, _ := slices.BinarySearch(sorted, off)
		if j+1 < len(sorted) {
			end = sorted[j+1]
		}
		texts[i] = r.Slice(base+off, base+end)
	}
	return texts, offsets, nil
}
