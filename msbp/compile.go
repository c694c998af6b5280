package msbp

import (
	"fmt"
	"os"

	"github.com/robert-malhotra/go-msbt/internal/binary"
	"github.com/robert-malhotra/go-msbt/internal/header"
	"github.com/robert-malhotra/go-msbt/internal/label"
	"github.com/robert-malhotra/go-msbt/internal/section"
)

var defaultSectionOrder = []section.Magic{
	section.Colors,
	section.ColorLabels,
	section.AttributeInfo,
	section.AttributeLabels,
	section.AttributeLists,
	section.TagGroups,
	section.Tags,
	section.TagParams,
	section.TagLists,
	section.StyleList,
	section.StyleLabels,
	section.SourceFiles,
}

// Save compiles the project and writes it to path.
func (p *Project) Save(path string) error {
	data, err := p.Compile()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Compile serializes the project. Parsed projects keep their section order;
// tag vocabulary ids are renumbered sequentially.
func (p *Project) Compile() ([]byte, error) {
	order := p.sections
	if len(order) == 0 {
		order = p.presentSections()
	}

	buf := binary.NewBuffer(1024)
	w := binary.NewWriter(buf, p.Header.Config())

	h := p.Header
	h.Kind = header.Project
	if err := header.Write(w, &h); err != nil {
		return nil, err
	}

	vocab, err := p.vocabulary()
	if err != nil {
		return nil, err
	}

	for _, magic := range order {
		tok, err := section.Begin(w, magic)
		if err != nil {
			return nil, err
		}
		if err := p.writeSection(w, magic, vocab); err != nil {
			return nil, fmt.Errorf("%s: %w", string(magic), err)
		}
		if err := section.End(w, tok); err != nil {
			return nil, err
		}
	}

	if err := header.Patch(w, uint16(len(order)), uint32(buf.Len())); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (p *Project) presentSections() []section.Magic {
	var out []section.Magic
	for _, m := range defaultSectionOrder {
		switch m {
		case section.Colors, section.ColorLabels:
			if p.Colors != nil && p.Colors.Len() > 0 {
				out = append(out, m)
			}
		case section.AttributeInfo, section.AttributeLabels:
			if len(p.Attributes) > 0 {
				out = append(out, m)
			}
		case section.AttributeLists:
			if len(p.attributeLists()) > 0 {
				out = append(out, m)
			}
		case section.TagGroups, section.Tags, section.TagParams, section.TagLists:
			if len(p.TagGroups) > 0 && !p.baseTags {
				out = append(out, m)
			}
		case section.StyleList, section.StyleLabels:
			if len(p.Styles) > 0 {
				out = append(out, m)
			}
		case section.SourceFiles:
			if len(p.SourceFiles) > 0 {
				out = append(out, m)
			}
		}
	}
	return out
}

func (p *Project) slots(magic section.Magic) uint32 {
	if n, ok := p.labelSlots[magic]; ok && n > 0 {
		return n
	}
	return label.DefaultSlotCount
}

func (p *Project) writeSection(w *binary.Writer, magic section.Magic, v *vocabulary) error {
	switch magic {
	case section.Colors:
		return p.writeColors(w)
	case section.ColorLabels:
		var names []string
		if p.Colors != nil {
			for name := range p.Colors.AllFromFront() {
				names = append(names, name)
			}
		}
		return writeLabels(w, names, p.slots(magic))
	case section.AttributeInfo:
		return p.writeAttributeInfo(w)
	case section.AttributeLabels:
		names := make([]string, len(p.Attributes))
		for i, a := range p.Attributes {
			names[i] = a.Name
		}
		return writeLabels(w, names, p.slots(magic))
	case section.AttributeLists:
		return p.writeAttributeLists(w)
	case section.TagGroups:
		return v.writeGroups(w, p.GroupIDs)
	case section.Tags:
		return v.writeTags(w)
	case section.TagParams:
		return v.writeParams(w)
	case section.TagLists:
		return writeOffsetStrings16(w, v.listItems)
	case section.StyleList:
		return p.writeStyles(w)
	case section.StyleLabels:
		names := make([]string, len(p.Styles))
		for i, s := range p.Styles {
			names[i] = s.Name
		}
		return writeLabels(w, names, p.slots(magic))
	case section.SourceFiles:
		return writeOffsetStrings32(w, p.SourceFiles)
	default:
		return fmt.Errorf("%w %q", ErrUnknownSection, string(magic))
	}
}

func writeLabels(w *binary.Writer, names []string, slots uint32) error {
	t, err := label.BuildLabels(names, slots)
	if err != nil {
		return err
	}
	return t.Write(w)
}

func (p *Project) writeColors(w *binary.Writer) error {
	n := 0
	if p.Colors != nil {
		n = p.Colors.Len()
	}
	if err := w.WriteUint32(uint32(n)); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	for _, c := range p.Colors.AllFromFront() {
		if err := w.WriteBytes(c.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

// attributeLists returns the ALI2 lists: parsed lists first, then any list
// referenced by an attribute definition but not yet present.
func (p *Project) attributeLists() []*EnumList {
	lists := append([]*EnumList(nil), p.AttributeLists...)
	for _, a := range p.Attributes {
		if a.Enum == nil || listIndex(lists, a.Enum) >= 0 {
			continue
		}
		lists = append(lists, a.Enum)
	}
	return lists
}

func listIndex(lists []*EnumList, l *EnumList) int {
	for i, x := range lists {
		if x == l {
			return i
		}
	}
	return -1
}

func (p *Project) writeAttributeInfo(w *binary.Writer) error {
	lists := p.attributeLists()
	if err := w.WriteUint32(uint32(len(p.Attributes))); err != nil {
		return err
	}
	for _, a := range p.Attributes {
		listID := a.ListID
		if a.Enum != nil {
			listID = uint16(listIndex(lists, a.Enum))
		}
		if err := w.WriteUint8(uint8(a.Type)); err != nil {
			return err
		}
		if err := w.WriteUint8(0); err != nil {
			return err
		}
		if err := w.WriteUint16(listID); err != nil {
			return err
		}
		if err := w.WriteUint32(a.Offset); err != nil {
			return err
		}
	}
	return nil
}

func (p *Project) writeAttributeLists(w *binary.Writer) error {
	lists := p.attributeLists()
	base := w.Pos()
	if err := w.WriteUint32(uint32(len(lists))); err != nil {
		return err
	}
	table := w.Pos()
	if err := w.WriteZeros(4 * len(lists)); err != nil {
		return err
	}

	for i, l := range lists {
		listStart := w.Pos()
		if err := w.PatchUint32At(table+int64(4*i), uint32(listStart-base)); err != nil {
			return err
		}
		items := l.Items()
		if err := w.WriteUint32(uint32(len(items))); err != nil {
			return err
		}
		itemTable := w.Pos()
		if err := w.WriteZeros(4 * len(items)); err != nil {
			return err
		}
		for j, item := range items {
			if err := w.PatchUint32At(itemTable+int64(4*j), uint32(w.Pos()-listStart)); err != nil {
				return err
			}
			if err := writeCString(w, item); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Project) writeStyles(w *binary.Writer) error {
	if err := w.WriteUint32(uint32(len(p.Styles))); err != nil {
		return err
	}
	for _, s := range p.Styles {
		for _, v := range []int32{s.RegionWidth, s.LineCount, s.FontID, s.BaseColorID} {
			if err := w.WriteInt32(v); err != nil {
				return err
			}
		}
	}
	return nil
}

// vocabulary is the flattened TGG2/TAG2/TGP2/TGL2 view of the tag groups.
type vocabulary struct {
	groups    []vocabGroup
	tags      []vocabTag
	params    []vocabParam
	listItems []string
}

type vocabGroup struct {
	id   uint16
	name string
	tags []uint16
}

type vocabTag struct {
	name   string
	params []uint16
}

type vocabParam struct {
	name  string
	typ   Type
	items []uint16
}

func (p *Project) vocabulary() (*vocabulary, error) {
	// Readers tell the two TGG2 record layouts apart by the first u16 of the
	// first record, so that field must be zero exactly when ids are present.
	if len(p.TagGroups) > 0 && !p.baseTags {
		first := p.TagGroups[0]
		if p.GroupIDs && first.ID != 0 {
			return nil, fmt.Errorf("%w: first group %q has id %d", ErrGroupLayout, first.Name, first.ID)
		}
		if !p.GroupIDs && len(first.Tags) == 0 {
			return nil, fmt.Errorf("%w: first group %q has no tags", ErrGroupLayout, first.Name)
		}
	}

	v := &vocabulary{}
	assigned := map[uint16]bool{}
	for _, g := range p.TagGroups {
		vg := vocabGroup{id: g.ID, name: g.Name}
		for _, t := range g.Tags {
			vt := vocabTag{name: t.Name}
			for _, pd := range t.Params {
				vp := vocabParam{name: pd.Name, typ: pd.Type}
				if pd.Type == Enum && pd.Enum != nil {
					for k := 0; k < pd.Enum.Len(); k++ {
						id, lit := pd.Enum.GlobalID(k), pd.Enum.Literal(k)
						for int(id) >= len(v.listItems) {
							v.listItems = append(v.listItems, "")
						}
						if assigned[id] && v.listItems[id] != lit {
							return nil, fmt.Errorf("%w: id %d is both %q and %q", ErrListConflict, id, v.listItems[id], lit)
						}
						v.listItems[id] = lit
						assigned[id] = true
						vp.items = append(vp.items, id)
					}
				}
				vt.params = append(vt.params, uint16(len(v.params)))
				v.params = append(v.params, vp)
			}
			vg.tags = append(vg.tags, uint16(len(v.tags)))
			v.tags = append(v.tags, vt)
		}
		v.groups = append(v.groups, vg)
	}
	return v, nil
}

// offsetTable16 writes a u16 count, 2 pad bytes and a zeroed u32 offset
// table. The returned func records the current position as entry i.
func offsetTable16(w *binary.Writer, n int) (func(i int) error, error) {
	base := w.Pos()
	if err := w.WriteUint16(uint16(n)); err != nil {
		return nil, err
	}
	if err := w.WriteZeros(2); err != nil {
		return nil, err
	}
	table := w.Pos()
	if err := w.WriteZeros(4 * n); err != nil {
		return nil, err
	}
	return func(i int) error {
		return w.PatchUint32At(table+int64(4*i), uint32(w.Pos()-base))
	}, nil
}

func (v *vocabulary) writeGroups(w *binary.Writer, withIDs bool) error {
	mark, err := offsetTable16(w, len(v.groups))
	if err != nil {
		return err
	}
	for i, g := range v.groups {
		if err := mark(i); err != nil {
			return err
		}
		if withIDs {
			if err := w.WriteUint16(g.id); err != nil {
				return err
			}
		}
		if err := writeUint16s(w, g.tags); err != nil {
			return err
		}
		if err := writeCString(w, g.name); err != nil {
			return err
		}
	}
	return nil
}

func (v *vocabulary) writeTags(w *binary.Writer) error {
	mark, err := offsetTable16(w, len(v.tags))
	if err != nil {
		return err
	}
	for i, t := range v.tags {
		if err := mark(i); err != nil {
			return err
		}
		if err := writeUint16s(w, t.params); err != nil {
			return err
		}
		if err := writeCString(w, t.name); err != nil {
			return err
		}
	}
	return nil
}

func (v *vocabulary) writeParams(w *binary.Writer) error {
	mark, err := offsetTable16(w, len(v.params))
	if err != nil {
		return err
	}
	for i, p := range v.params {
		if err := mark(i); err != nil {
			return err
		}
		if err := w.WriteUint8(uint8(p.typ)); err != nil {
			return err
		}
		if p.typ == Enum {
			if err := w.WriteUint8(0); err != nil {
				return err
			}
			if err := writeUint16s(w, p.items); err != nil {
				return err
			}
		}
		if err := writeCString(w, p.name); err != nil {
			return err
		}
	}
	return nil
}

func writeOffsetStrings16(w *binary.Writer, items []string) error {
	mark, err := offsetTable16(w, len(items))
	if err != nil {
		return err
	}
	for i, s := range items {
		if err := mark(i); err != nil {
			return err
		}
		if err := writeCString(w, s); err != nil {
			return err
		}
	}
	return nil
}

func writeOffsetStrings32(w *binary.Writer, items []string) error {
	base := w.Pos()
	if err := w.WriteUint32(uint32(len(items))); err != nil {
		return err
	}
	table := w.Pos()
	if err := w.WriteZeros(4 * len(items)); err != nil {
		return err
	}
	for i, s := range items {
		if err := w.PatchUint32At(table+int64(4*i), uint32(w.Pos()-base)); err != nil {
			return err
		}
		if err := writeCString(w, s); err != nil {
			return err
		}
	}
	return nil
}

// writeUint16s writes a u16 count followed by the values.
func writeUint16s(w *binary.Writer, vals []uint16) error {
	if err := w.WriteUint16(uint16(len(vals))); err != nil {
		return err
	}
	for _, v := range vals {
		if err := w.WriteUint16(v); err != nil {
			return err
		}
	}
	return nil
}

func writeCString(w *binary.Writer, s string) error {
	if err := w.WriteBytes([]byte(s)); err != nil {
		return err
	}
	return w.WriteUint8(0)
}
