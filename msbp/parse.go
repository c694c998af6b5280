package msbp

import (
	"fmt"
	"os"

	"github.com/robert-malhotra/go-msbt/internal/binary"
	"github.com/robert-malhotra/go-msbt/internal/dtype"
	"github.com/robert-malhotra/go-msbt/internal/header"
	"github.com/robert-malhotra/go-msbt/internal/label"
	"github.com/robert-malhotra/go-msbt/internal/section"
)

// raw holds section contents before they are joined into a Project.
type raw struct {
	colors      []Color
	colorLabels []string
	attrInfo    []attrInfo
	attrLabels  []string
	attrLists   [][]string
	groups      []rawGroup
	tags        []rawTag
	params      []rawParam
	listItems   []string
	styles      []Style
	styleLabels []string
	groupIDs    bool
	has         map[section.Magic]bool
}

type attrInfo struct {
	typ    uint8
	listID uint16
	offset uint32
}

type rawGroup struct {
	id   uint16
	name string
	tags []uint16
}

type rawTag struct {
	name   string
	params []uint16
}

type rawParam struct {
	name  string
	typ   uint8
	items []uint16
}

// Open reads and parses a project file. The file is read fully into memory
// and closed before parsing.
func Open(path string, opts ...Option) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading project: %w", err)
	}
	return Parse(data, opts...)
}

// Parse parses a project container.
func Parse(data []byte, opts ...Option) (*Project, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	log := o.logger

	r := binary.NewReader(data, binary.DefaultConfig())
	h, err := header.Read(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotProjectFile, err)
	}
	if h.Kind != header.Project {
		return nil, fmt.Errorf("%w: found %s container", ErrNotProjectFile, h.Kind)
	}

	p := New(h.ByteOrder)
	p.Header = *h
	rw := &raw{has: map[section.Magic]bool{}}

	err = section.Walk(r, int(h.SectionCount), func(sh section.Header, body *binary.Reader) error {
		log.Debug("reading section", "magic", string(sh.Magic), "offset", sh.Offset, "size", sh.Size)
		p.sections = append(p.sections, sh.Magic)
		rw.has[sh.Magic] = true

		var err error
		switch sh.Magic {
		case section.Colors:
			rw.colors, err = readColors(body)
		case section.ColorLabels:
			rw.colorLabels, err = readLabels(p, sh.Magic, body)
		case section.AttributeInfo:
			rw.attrInfo, err = readAttributeInfo(body)
		case section.AttributeLabels:
			rw.attrLabels, err = readLabels(p, sh.Magic, body)
		case section.AttributeLists:
			rw.attrLists, err = readAttributeLists(body)
		case section.TagGroups:
			rw.groups, rw.groupIDs, err = readTagGroups(body)
		case section.Tags:
			rw.tags, err = readTags(body)
		case section.TagParams:
			rw.params, err = readTagParams(body)
		case section.TagLists:
			rw.listItems, err = readOffsetStrings16(body)
		case section.StyleList:
			rw.styles, err = readStyles(body)
		case section.StyleLabels:
			rw.styleLabels, err = readLabels(p, sh.Magic, body)
		case section.SourceFiles:
			p.SourceFiles, err = readOffsetStrings32(body)
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

	if err := p.assemble(rw); err != nil {
		return nil, err
	}
	if p.baseTags {
		log.Trace("project has no tag groups, using base tags")
	}
	return p, nil
}

func (p *Project) assemble(rw *raw) error {
	for i, c := range rw.colors {
		name := indexName(i)
		if i < len(rw.colorLabels) && rw.colorLabels[i] != "" {
			name = rw.colorLabels[i]
		}
		p.Colors.Set(name, c)
	}

	for _, items := range rw.attrLists {
		l, err := NewEnumList(items, nil)
		if err != nil {
			return err
		}
		p.AttributeLists = append(p.AttributeLists, l)
	}

	for i, info := range rw.attrInfo {
		typ, err := dtype.FromCode(info.typ)
		if err != nil {
			return fmt.Errorf("%w: attribute %d: %w", ErrMalformedSection, i, err)
		}
		def := AttributeDef{
			Name:   indexName(i),
			Type:   typ,
			Offset: info.offset,
			ListID: info.listID,
		}
		if i < len(rw.attrLabels) && rw.attrLabels[i] != "" {
			def.Name = rw.attrLabels[i]
		}
		if typ == Enum {
			if int(info.listID) >= len(p.AttributeLists) {
				return fmt.Errorf("%w: attribute %q references missing list %d", ErrMalformedSection, def.Name, info.listID)
			}
			def.Enum = p.AttributeLists[info.listID]
		}
		p.Attributes = append(p.Attributes, def)
	}

	if rw.has[section.TagGroups] {
		groups, err := rw.tagGroups()
		if err != nil {
			return err
		}
		p.TagGroups = groups
		p.GroupIDs = len(rw.groups) > 0 && rw.groupIDs
	}
	if len(p.TagGroups) == 0 {
		p.TagGroups = baseTagGroups()
		p.GroupIDs = false
		p.baseTags = true
	}

	for i, s := range rw.styles {
		s.Name = indexName(i)
		if i < len(rw.styleLabels) && rw.styleLabels[i] != "" {
			s.Name = rw.styleLabels[i]
		}
		p.Styles = append(p.Styles, s)
	}
	return nil
}

func (rw *raw) tagGroups() ([]TagGroup, error) {
	groups := make([]TagGroup, 0, len(rw.groups))
	for _, rg := range rw.groups {
		g := TagGroup{ID: rg.id, Name: rg.name}
		for _, tid := range rg.tags {
			if int(tid) >= len(rw.tags) {
				return nil, fmt.Errorf("%w: group %q references missing tag %d", ErrMalformedSection, rg.name, tid)
			}
			rt := rw.tags[tid]
			td := TagDef{Name: rt.name}
			for _, pid := range rt.params {
				if int(pid) >= len(rw.params) {
					return nil, fmt.Errorf("%w: tag %q references missing parameter %d", ErrMalformedSection, rt.name, pid)
				}
				rp := rw.params[pid]
				typ, err := dtype.FromCode(rp.typ)
				if err != nil {
					return nil, fmt.Errorf("%w: parameter %q: %w", ErrMalformedSection, rp.name, err)
				}
				pd := ParamDef{Name: rp.name, Type: typ}
				if typ == Enum {
					items := make([]string, len(rp.items))
					for k, id := range rp.items {
						if int(id) >= len(rw.listItems) {
							return nil, fmt.Errorf("%w: parameter %q references missing list item %d", ErrMalformedSection, rp.name, id)
						}
						items[k] = rw.listItems[id]
					}
					l, err := NewEnumList(items, rp.items)
					if err != nil {
						return nil, fmt.Errorf("parameter %q: %w", rp.name, err)
					}
					pd.Enum = l
				}
				td.Params = append(td.Params, pd)
			}
			g.Tags = append(g.Tags, td)
		}
		groups = append(groups, g)
	}
	return groups, nil
}

func readColors(r *binary.Reader) ([]Color, error) {
	n, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	colors := make([]Color, 0)
	for i := uint32(0); i < n; i++ {
		b, err := r.ReadBytes(4)
		if err != nil {
			return nil, err
		}
		colors = append(colors, ColorFromBytes(b))
	}
	return colors, nil
}

func readLabels(p *Project, magic section.Magic, r *binary.Reader) ([]string, error) {
	t, err := label.Read(r)
	if err != nil {
		return nil, err
	}
	p.labelSlots[magic] = t.SlotCount
	return t.Labels(len(t.Entries))
}

func readAttributeInfo(r *binary.Reader) ([]attrInfo, error) {
	n, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	infos := make([]attrInfo, 0)
	for i := uint32(0); i < n; i++ {
		var info attrInfo
		if info.typ, err = r.ReadUint8(); err != nil {
			return nil, err
		}
		r.Skip(1)
		if info.listID, err = r.ReadUint16(); err != nil {
			return nil, err
		}
		if info.offset, err = r.ReadUint32(); err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func readAttributeLists(r *binary.Reader) ([][]string, error) {
	base := r.Pos()
	n, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	offsets, err := readUint32s(r, int(n))
	if err != nil {
		return nil, err
	}

	lists := make([][]string, 0)
	for _, off := range offsets {
		listStart := base + int64(off)
		lr := r.At(listStart)
		count, err := lr.ReadUint32()
		if err != nil {
			return nil, err
		}
		itemOffsets, err := readUint32s(lr, int(count))
		if err != nil {
			return nil, err
		}
		items := make([]string, 0)
		for _, itemOff := range itemOffsets {
			s, err := r.ReadTerminatedAt(listStart+int64(itemOff), 1)
			if err != nil {
				return nil, err
			}
			items = append(items, string(s))
		}
		lists = append(lists, items)
	}
	return lists, nil
}

// readOffsetTable16 reads the u16 count, 2 pad bytes and u32 offsets that
// start the TGG2, TAG2, TGP2 and TGL2 sections.
func readOffsetTable16(r *binary.Reader) (int64, []uint32, error) {
	base := r.Pos()
	n, err := r.ReadUint16()
	if err != nil {
		return 0, nil, err
	}
	r.Skip(2)
	offsets, err := readUint32s(r, int(n))
	return base, offsets, err
}

// readTagGroups also reports whether records carry explicit group ids,
// detected from a zero first field in the first record.
func readTagGroups(r *binary.Reader) ([]rawGroup, bool, error) {
	base, offsets, err := readOffsetTable16(r)
	if err != nil {
		return nil, false, err
	}

	groups := make([]rawGroup, 0, len(offsets))
	withIDs := false
	for i, off := range offsets {
		gr := r.At(base + int64(off))
		first, err := gr.ReadUint16()
		if err != nil {
			return nil, false, err
		}
		if i == 0 {
			withIDs = first == 0
		}

		g := rawGroup{id: uint16(i)}
		count := first
		if withIDs {
			g.id = first
			if count, err = gr.ReadUint16(); err != nil {
				return nil, false, err
			}
		}
		if g.tags, err = readUint16s(gr, int(count)); err != nil {
			return nil, false, err
		}
		name, err := gr.ReadTerminated(1)
		if err != nil {
			return nil, false, err
		}
		g.name = string(name)
		groups = append(groups, g)
	}
	return groups, withIDs, nil
}

func readTags(r *binary.Reader) ([]rawTag, error) {
	base, offsets, err := readOffsetTable16(r)
	if err != nil {
		return nil, err
	}
	tags := make([]rawTag, 0, len(offsets))
	for _, off := range offsets {
		tr := r.At(base + int64(off))
		n, err := tr.ReadUint16()
		if err != nil {
			return nil, err
		}
		var t rawTag
		if t.params, err = readUint16s(tr, int(n)); err != nil {
			return nil, err
		}
		name, err := tr.ReadTerminated(1)
		if err != nil {
			return nil, err
		}
		t.name = string(name)
		tags = append(tags, t)
	}
	return tags, nil
}

func readTagParams(r *binary.Reader) ([]rawParam, error) {
	base, offsets, err := readOffsetTable16(r)
	if err != nil {
		return nil, err
	}
	params := make([]rawParam, 0, len(offsets))
	for _, off := range offsets {
		pr := r.At(base + int64(off))
		var p rawParam
		if p.typ, err = pr.ReadUint8(); err != nil {
			return nil, err
		}
		if dtype.Type(p.typ) == dtype.Enum {
			pr.Skip(1)
			n, err := pr.ReadUint16()
			if err != nil {
				return nil, err
			}
			if p.items, err = readUint16s(pr, int(n)); err != nil {
				return nil, err
			}
		}
		name, err := pr.ReadTerminated(1)
		if err != nil {
			return nil, err
		}
		p.name = string(name)
		params = append(params, p)
	}
	return params, nil
}

func readOffsetStrings16(r *binary.Reader) ([]string, error) {
	base, offsets, err := readOffsetTable16(r)
	if err != nil {
		return nil, err
	}
	return readStringsAt(r, base, offsets)
}

func readOffsetStrings32(r *binary.Reader) ([]string, error) {
	base := r.Pos()
	n, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	offsets, err := readUint32s(r, int(n))
	if err != nil {
		return nil, err
	}
	return readStringsAt(r, base, offsets)
}

func readStringsAt(r *binary.Reader, base int64, offsets []uint32) ([]string, error) {
	out := make([]string, 0, len(offsets))
	for _, off := range offsets {
		s, err := r.ReadTerminatedAt(base+int64(off), 1)
		if err != nil {
			return nil, err
		}
		out = append(out, string(s))
	}
	return out, nil
}

func readStyles(r *binary.Reader) ([]Style, error) {
	n, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	styles := make([]Style, 0)
	for i := uint32(0); i < n; i++ {
		var s Style
		for _, dst := range []*int32{&s.RegionWidth, &s.LineCount, &s.FontID, &s.BaseColorID} {
			if *dst, err = r.ReadInt32(); err != nil {
				return nil, err
			}
		}
		styles = append(styles, s)
	}
	return styles, nil
}

func readUint32s(r *binary.Reader, n int) ([]uint32, error) {
	if int64(n)*4 > r.Remaining() {
		return nil, fmt.Errorf("%d u32 values at 0x%x: %w", n, r.Pos(), binary.ErrUnexpectedEnd)
	}
	out := make([]uint32, n)
	for i := range out {
		v, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func readUint16s(r *binary.Reader, n int) ([]uint16, error) {
	if int64(n)*2 > r.Remaining() {
		return nil, fmt.Errorf("%d u16 values at 0x%x: %w", n, r.Pos(), binary.ErrUnexpectedEnd)
	}
	out := make([]uint16, n)
	for i := range out {
		v, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
