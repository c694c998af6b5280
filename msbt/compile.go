package msbt

import (
	"bytes"
	"fmt"
	"slices"
	"strconv"

	"github.com/robert-malhotra/go-msbt/internal/binary"
	"github.com/robert-malhotra/go-msbt/internal/header"
	"github.com/robert-malhotra/go-msbt/internal/label"
	"github.com/robert-malhotra/go-msbt/internal/section"
)

// entry is a message in compile order.
type entry struct {
	key string
	msg *Message
}

// Compile serializes the file. Parsed files keep their section order; every
// size, offset, count and label hash is recomputed.
func (f *File) Compile() ([]byte, error) {
	entries := make([]entry, 0, f.Messages.Len())
	for key, m := range f.Messages.AllFromFront() {
		if m == nil {
			return nil, &MessageError{Key: key, Err: fmt.Errorf("nil message")}
		}
		entries = append(entries, entry{key: key, msg: m})
	}
	order := f.sectionOrder()

	buf := binary.NewBuffer(4096)
	w := binary.NewWriter(buf, f.Header.Config())

	h := f.Header
	h.Kind = header.Message
	if err := header.Write(w, &h); err != nil {
		return nil, err
	}

	for _, magic := range order {
		tok, err := section.Begin(w, magic)
		if err != nil {
			return nil, err
		}
		if err := f.writeSection(w, magic, entries); err != nil {
			return nil, fmt.Errorf("%s: %w", string(magic), err)
		}
		if err := section.End(w, tok); err != nil {
			return nil, err
		}
	}

	if err := header.Patch(w, uint16(len(order)), uint32(buf.Len())); err != nil {
		return nil, err
	}
	f.log.Debug("compiled message file", "messages", len(entries), "sections", len(order), "size", buf.Len())
	return buf.Bytes(), nil
}

// sectionOrder returns the parsed section order, adding the attribute, style
// and text sections when messages need them. New files get LBL1, ATR1, TSY1
// and TXT2 as needed.
func (f *File) sectionOrder() []section.Magic {
	if len(f.sections) == 0 {
		var order []section.Magic
		switch f.keys {
		case byLabel:
			order = append(order, section.Labels)
		case byNumber:
			order = append(order, section.NumericIndex)
		}
		if f.hasAttributes() || (f.project != nil && len(f.project.Attributes) > 0) {
			order = append(order, section.Attributes)
		}
		if f.hasStyles() {
			order = append(order, section.Styles)
		}
		return append(order, section.Text)
	}

	order := slices.Clone(f.sections)
	insertBefore := func(m section.Magic, before ...section.Magic) {
		if slices.Contains(order, m) {
			return
		}
		for i, s := range order {
			if slices.Contains(before, s) {
				order = slices.Insert(order, i, m)
				return
			}
		}
		order = append(order, m)
	}
	if !slices.Contains(order, section.Text) {
		order = append(order, section.Text)
	}
	if f.hasAttributes() {
		insertBefore(section.Attributes, section.Styles, section.Text)
	}
	if f.hasStyles() {
		insertBefore(section.Styles, section.Text)
	}
	return order
}

func (f *File) hasAttributes() bool {
	for _, m := range f.Messages.AllFromFront() {
		if m != nil && m.Attributes != nil && m.Attributes.Len() > 0 {
			return true
		}
	}
	return false
}

func (f *File) hasStyles() bool {
	for _, m := range f.Messages.AllFromFront() {
		if m != nil && m.StyleID != NoStyle {
			return true
		}
	}
	return false
}

func (f *File) writeSection(w *binary.Writer, magic section.Magic, entries []entry) error {
	switch magic {
	case section.Labels:
		return f.writeLabels(w, entries)
	case section.NumericIndex:
		return f.writeNumbers(w, entries)
	case section.AttributeOffsets:
		for _, v := range f.offsets {
			if err := w.WriteInt32(v); err != nil {
				return err
			}
		}
		return nil
	case section.Attributes:
		return f.writeAttributes(w, entries)
	case section.Styles:
		return f.writeStyles(w, entries)
	case section.Text:
		return f.writeText(w, entries)
	default:
		return fmt.Errorf("%w %q", ErrUnknownSection, string(magic))
	}
}

// writeLabels keeps parsed labels in their disk order and appends new ones.
// Parsed messages that had no label stay unlabelled.
func (f *File) writeLabels(w *binary.Writer, entries []entry) error {
	pos := make(map[string]int, len(entries))
	for i, e := range entries {
		pos[e.key] = i
	}

	recs := make([]label.Entry, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, l := range f.labelOrder {
		if i, ok := pos[l]; ok && !seen[l] {
			recs = append(recs, label.Entry{Label: l, Index: uint32(i)})
			seen[l] = true
		}
	}
	for i, e := range entries {
		if seen[e.key] || (e.msg.orig != nil && f.unkeyed[e.key]) {
			continue
		}
		recs = append(recs, label.Entry{Label: e.key, Index: uint32(i)})
	}

	slots := f.labelSlots
	if slots == 0 {
		slots = label.DefaultSlotCount
	}
	t, err := label.Build(recs, slots)
	if err != nil {
		return err
	}
	return t.Write(w)
}

// writeNumbers writes NLI1. Keys of a numerically indexed file are the ids;
// parsed ids keep their order and new keys are appended. A labelled file
// writes its parsed records unchanged.
func (f *File) writeNumbers(w *binary.Writer, entries []entry) error {
	var recs []numEntry
	if f.keys != byNumber {
		recs = f.numbers
	} else {
		pos := make(map[string]int, len(entries))
		for i, e := range entries {
			pos[e.key] = i
		}
		for _, key := range f.numOrder {
			if i, ok := pos[key]; ok {
				id, _ := strconv.ParseUint(key, 10, 32)
				recs = append(recs, numEntry{id: uint32(id), index: uint32(i)})
			}
		}
		for i, e := range entries {
			if f.numbered[e.key] || e.msg.orig != nil {
				continue
			}
			id, err := strconv.ParseUint(e.key, 10, 32)
			if err != nil {
				return &MessageError{Key: e.key, Err: ErrInvalidKey}
			}
			recs = append(recs, numEntry{id: uint32(id), index: uint32(i)})
		}
	}

	if err := w.WriteUint32(uint32(len(recs))); err != nil {
		return err
	}
	for _, r := range recs {
		if err := w.WriteUint32(r.id); err != nil {
			return err
		}
		if err := w.WriteUint32(r.index); err != nil {
			return err
		}
	}
	return nil
}

func (f *File) writeAttributes(w *binary.Writer, entries []entry) error {
	enc := f.attrs.NewEncoder(f.table)
	for _, e := range entries {
		orig := -1
		if e.msg.orig != nil {
			orig = e.msg.orig.index
		}
		if err := enc.Add(e.key, e.msg.Attributes, orig); err != nil {
			return &MessageError{Key: e.key, Err: err}
		}
	}
	return enc.Write(w)
}

// writeStyles writes one style id per message. A parsed table that was
// shorter than the message list stays short while the uncovered messages
// have no style.
func (f *File) writeStyles(w *binary.Writer, entries []entry) error {
	n := len(entries)
	if len(f.sections) > 0 {
		for n > f.styleCount && entries[n-1].msg.StyleID == NoStyle {
			n--
		}
	}
	for _, e := range entries[:n] {
		if err := w.WriteInt32(e.msg.StyleID); err != nil {
			return err
		}
	}
	return nil
}

// writeText writes the offset table and the message texts. Unedited parsed
// messages that shared a text offset share it again.
func (f *File) writeText(w *binary.Writer, entries []entry) error {
	base := w.Pos()
	if err := w.WriteUint32(uint32(len(entries))); err != nil {
		return err
	}
	if err := w.WriteZeros(4 * len(entries)); err != nil {
		return err
	}

	type written struct {
		orig *origin
		rel  int64
	}
	shared := map[int64]written{}
	for i, e := range entries {
		slot := base + 4 + 4*int64(i)
		o := e.msg.orig
		unedited := o != nil && e.msg.Text == o.text
		if unedited {
			if prev, ok := shared[o.offset]; ok && bytes.Equal(prev.orig.raw, o.raw) {
				if err := w.PatchUint32At(slot, uint32(prev.rel)); err != nil {
					return err
				}
				continue
			}
		}

		b, err := f.encodeText(e.msg)
		if err != nil {
			return &MessageError{Key: e.key, Err: err}
		}
		rel := w.Pos() - base
		if err := w.PatchUint32At(slot, uint32(rel)); err != nil {
			return err
		}
		if err := w.WriteBytes(b); err != nil {
			return err
		}
		if unedited {
			if _, ok := shared[o.offset]; !ok {
				shared[o.offset] = written{orig: o, rel: rel}
			}
		}
	}
	return nil
}

// encodeText returns the stored form of a message. Unedited parsed messages
// keep their original bytes; edited ones keep whether they were terminated.
func (f *File) encodeText(m *Message) ([]byte, error) {
	if m.orig != nil && m.Text == m.orig.text {
		return m.orig.raw, nil
	}
	terminate := m.orig == nil || m.orig.terminated
	return f.text.Encode(m.Text, terminate)
}
