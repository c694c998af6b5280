// Package msbp reads and writes project containers ("MsgPrjBn"), the schema
// companion of message containers.
//
// A project declares the tag vocabulary used inside message text, the color
// table, the typed layout of per-message attribute blocks and the style
// table. Message files are decoded against a *Project; when no project file
// is available [Base] supplies the minimal system tag vocabulary.
//
// A *Project is treated as read-only once parsed or built and may be shared
// by any number of message files.
package msbp

import (
	"encoding/binary"
	"errors"
	"strconv"

	"github.com/elliotchance/orderedmap/v3"
	"github.com/hashicorp/go-hclog"

	"github.com/robert-malhotra/go-msbt/internal/charset"
	"github.com/robert-malhotra/go-msbt/internal/dtype"
	"github.com/robert-malhotra/go-msbt/internal/header"
	"github.com/robert-malhotra/go-msbt/internal/section"
)

// Type is a tag parameter or attribute value type.
type Type = dtype.Type

// Value types.
const (
	Uint8   = dtype.Uint8
	Uint16  = dtype.Uint16
	Uint32  = dtype.Uint32
	Int8    = dtype.Int8
	Int16   = dtype.Int16
	Int32   = dtype.Int32
	Float32 = dtype.Float32
	Float64 = dtype.Float64
	String  = dtype.String
	Enum    = dtype.Enum
)

// Errors
var (
	ErrNotProjectFile   = errors.New("not a project file")
	ErrMalformedSection = section.ErrMalformedSection
	ErrUnknownSection   = section.ErrUnknownSection
	ErrListConflict     = errors.New("conflicting list item ids")
	ErrGroupLayout      = errors.New("tag group records cannot be read back unambiguously")

	// ErrUnresolvedEnumLiteral is returned when a literal names no item of
	// an enum list or color table.
	ErrUnresolvedEnumLiteral = errors.New("unresolved enum literal")
)

// System tag coordinates shared by every schema.
const (
	SystemGroup   = 0
	TagRuby       = 0
	TagFont       = 1
	TagSize       = 2
	TagColor      = 3
	TagPageBreak  = 4
	TagReference  = 5
	SystemName    = "System"
	RubyName      = "Ruby"
	FontName      = "Font"
	ColorName     = "Color"
	PageBreakName = "PageBreak"
)

// ParamDef declares one tag parameter.
type ParamDef struct {
	Name string
	Type Type
	// Enum is set when Type is Enum.
	Enum *EnumList
}

// TagDef declares a tag and its parameters in encoding order.
type TagDef struct {
	Name   string
	Params []ParamDef
}

// TagGroup is a named set of tags. ID is the group code used on disk when
// the project carries explicit group ids.
type TagGroup struct {
	ID   uint16
	Name string
	Tags []TagDef
}

// AttributeDef declares one field of the per-message attribute block.
type AttributeDef struct {
	Name   string
	Type   Type
	Offset uint32
	// ListID is the ALI2 list index stored for this attribute.
	ListID uint16
	// Enum is set when Type is Enum.
	Enum *EnumList
}

// Style is a text style entry.
type Style struct {
	Name        string
	RegionWidth int32
	LineCount   int32
	FontID      int32
	BaseColorID int32
}

// Project is a parsed or constructed project schema.
type Project struct {
	Header header.Header

	// Colors maps color names to RGBA values in table order. Without a
	// CLB1 section colors are named by their decimal index.
	Colors *orderedmap.OrderedMap[string, Color]

	Attributes []AttributeDef
	TagGroups  []TagGroup
	// GroupIDs selects explicit group ids (TagGroup.ID) as the on-disk group
	// code instead of the group's position.
	GroupIDs bool

	Styles      []Style
	SourceFiles []string

	// AttributeLists holds the ALI2 lists in file order.
	AttributeLists []*EnumList

	sections   []section.Magic
	labelSlots map[section.Magic]uint32
	baseTags   bool
}

// New returns an empty project with the given byte order.
func New(order binary.ByteOrder) *Project {
	return &Project{
		Header: header.Header{
			Kind:      header.Project,
			ByteOrder: order,
			Encoding:  charset.UTF8,
			Version:   3,
		},
		Colors:     orderedmap.NewOrderedMap[string, Color](),
		labelSlots: map[section.Magic]uint32{},
	}
}

var base = newBase()

// Base returns the default schema used when no project file is supplied:
// a single "System" group with Ruby, Font, Size, Color, PageBreak and
// Reference. The returned value is shared and must not be modified.
func Base() *Project {
	return base
}

func newBase() *Project {
	p := New(binary.LittleEndian)
	p.TagGroups = baseTagGroups()
	return p
}

func baseTagGroups() []TagGroup {
	return []TagGroup{{
		ID:   SystemGroup,
		Name: SystemName,
		Tags: []TagDef{
			{Name: RubyName, Params: []ParamDef{{Name: "rt", Type: String}}},
			{Name: FontName, Params: []ParamDef{{Name: "face", Type: String}}},
			{Name: "Size", Params: []ParamDef{
				{Name: "percent", Type: Uint16},
				{Name: "size", Type: String},
			}},
			{Name: ColorName, Params: []ParamDef{
				{Name: "r", Type: Uint8},
				{Name: "g", Type: Uint8},
				{Name: "b", Type: Uint8},
				{Name: "a", Type: Uint8},
				{Name: "name", Type: String},
			}},
			{Name: PageBreakName},
			{Name: "Reference", Params: []ParamDef{
				{Name: "mstxt", Type: String},
				{Name: "label", Type: String},
				{Name: "lang", Type: String},
			}},
		},
	}}
}

// UsesBaseTags reports whether the tag vocabulary came from Base because the
// project file had no TGG2 section.
func (p *Project) UsesBaseTags() bool {
	return p.baseTags
}

// Sections returns the section order of a parsed project.
func (p *Project) Sections() []section.Magic {
	return append([]section.Magic(nil), p.sections...)
}

// GroupCode returns the on-disk group number of the group at position gi.
func (p *Project) GroupCode(gi int) uint16 {
	if p.GroupIDs {
		return p.TagGroups[gi].ID
	}
	return uint16(gi)
}

// Tag resolves an on-disk (group, type) pair.
func (p *Project) Tag(group, typ uint16) (*TagGroup, *TagDef, bool) {
	gi := -1
	if p.GroupIDs {
		for i := range p.TagGroups {
			if p.TagGroups[i].ID == group {
				gi = i
				break
			}
		}
	} else if int(group) < len(p.TagGroups) {
		gi = int(group)
	}
	if gi < 0 {
		return nil, nil, false
	}
	g := &p.TagGroups[gi]
	if int(typ) >= len(g.Tags) {
		return nil, nil, false
	}
	return g, &g.Tags[typ], true
}

// FindTag resolves a group and tag name to their positions.
func (p *Project) FindTag(group, name string) (gi, ti int, ok bool) {
	for i := range p.TagGroups {
		if p.TagGroups[i].Name != group {
			continue
		}
		for j := range p.TagGroups[i].Tags {
			if p.TagGroups[i].Tags[j].Name == name {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

// FindShortTag resolves a bare tag name to the first group declaring it.
func (p *Project) FindShortTag(name string) (gi, ti int, ok bool) {
	for i := range p.TagGroups {
		for j := range p.TagGroups[i].Tags {
			if p.TagGroups[i].Tags[j].Name == name {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

// UniqueTagName reports whether exactly one group declares a tag called
// name.
func (p *Project) UniqueTagName(name string) bool {
	n := 0
	for i := range p.TagGroups {
		for j := range p.TagGroups[i].Tags {
			if p.TagGroups[i].Tags[j].Name == name {
				n++
			}
		}
	}
	return n == 1
}

// ColorAt returns the name and value of the color at table position i.
func (p *Project) ColorAt(i int) (string, Color, bool) {
	if p.Colors == nil || i < 0 {
		return "", Color{}, false
	}
	n := 0
	for name, c := range p.Colors.AllFromFront() {
		if n == i {
			return name, c, true
		}
		n++
	}
	return "", Color{}, false
}

// ColorIndex returns the table position and value of a named color.
func (p *Project) ColorIndex(name string) (int, Color, bool) {
	if p.Colors == nil {
		return 0, Color{}, false
	}
	n := 0
	for k, c := range p.Colors.AllFromFront() {
		if k == name {
			return n, c, true
		}
		n++
	}
	return 0, Color{}, false
}

// ColorName returns the name of the first table entry equal to c.
func (p *Project) ColorName(c Color) (string, bool) {
	if p.Colors == nil {
		return "", false
	}
	for name, v := range p.Colors.AllFromFront() {
		if v == c {
			return name, true
		}
	}
	return "", false
}

// Attribute returns the attribute definition with the given name.
func (p *Project) Attribute(name string) (*AttributeDef, bool) {
	for i := range p.Attributes {
		if p.Attributes[i].Name == name {
			return &p.Attributes[i], true
		}
	}
	return nil, false
}

// Style returns the style at index id.
func (p *Project) Style(id int32) (*Style, bool) {
	if id < 0 || int(id) >= len(p.Styles) {
		return nil, false
	}
	return &p.Styles[id], true
}

// Option configures parsing.
type Option func(*options)

type options struct {
	logger hclog.Logger
}

func defaultOptions() *options {
	return &options{logger: hclog.NewNullLogger()}
}

// WithLogger sets the logger used while parsing and compiling.
func WithLogger(l hclog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func indexName(i int) string {
	return strconv.Itoa(i)
}
