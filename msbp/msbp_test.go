package msbp

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	binpkg "github.com/robert-malhotra/go-msbt/internal/binary"
	"github.com/robert-malhotra/go-msbt/internal/header"
	"github.com/robert-malhotra/go-msbt/internal/section"
)

func moodProject(t *testing.T, order binary.ByteOrder) *Project {
	t.Helper()
	p := New(order)
	p.Colors.Set("White", Color{0xFF, 0xFF, 0xFF, 0xFF})
	p.Colors.Set("Red", Color{0xFF, 0x00, 0x00, 0xFF})

	mood := MustEnumList([]string{"Happy", "Sad"}, []uint16{5, 9})
	sound := MustEnumList([]string{"None", "Beep"}, nil)

	p.TagGroups = baseTagGroups()
	p.TagGroups = append(p.TagGroups, TagGroup{
		ID:   1,
		Name: "Face",
		Tags: []TagDef{
			{Name: "Expr", Params: []ParamDef{
				{Name: "mood", Type: Enum, Enum: mood},
				{Name: "speed", Type: Float32},
			}},
		},
	})
	p.Attributes = []AttributeDef{
		{Name: "Sound", Type: Enum, Offset: 0, Enum: sound},
		{Name: "Speaker", Type: String, Offset: 4},
		{Name: "Wait", Type: Int16, Offset: 8},
	}
	p.Styles = []Style{
		{Name: "Default", RegionWidth: 640, LineCount: 3, FontID: 0, BaseColorID: -1},
	}
	p.SourceFiles = []string{"Msg/Common.mstxt"}
	return p
}

func TestEnumList(t *testing.T) {
	l := MustEnumList([]string{"Happy", "Sad"}, []uint16{5, 9})

	lit, ok := l.Decode(9)
	require.True(t, ok)
	assert.Equal(t, "Sad", lit)

	id, ok := l.Encode("Sad")
	require.True(t, ok)
	assert.Equal(t, uint16(9), id)

	local, ok := l.Local(5)
	require.True(t, ok)
	assert.Equal(t, 0, local)

	_, ok = l.Decode(1)
	assert.False(t, ok)
	_, ok = l.Encode("Angry")
	assert.False(t, ok)

	_, err := NewEnumList([]string{"a", "b"}, []uint16{1, 1})
	assert.ErrorIs(t, err, ErrEnumIDs)
	_, err = NewEnumList([]string{"a", "b"}, []uint16{1})
	assert.ErrorIs(t, err, ErrEnumIDs)

	var empty *EnumList
	assert.Equal(t, 0, empty.Len())
}

func TestColorHex(t *testing.T) {
	c, err := ParseHex("#FF8000C0")
	require.NoError(t, err)
	assert.Equal(t, Color{0xFF, 0x80, 0x00, 0xC0}, c)
	assert.Equal(t, "#FF8000C0", c.Hex())

	for _, bad := range []string{"FF8000C0", "#FF80", "#GG8000C0"} {
		_, err := ParseHex(bad)
		assert.ErrorIs(t, err, ErrColorSyntax, bad)
	}
}

func TestCompileParse(t *testing.T) {
	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		t.Run(order.String(), func(t *testing.T) {
			data, err := moodProject(t, order).Compile()
			require.NoError(t, err)
			require.Equal(t, "MsgPrjBn", string(data[:8]))

			p, err := Parse(data)
			require.NoError(t, err)

			assert.Equal(t, order, p.Header.ByteOrder)
			assert.Equal(t, uint32(len(data)), p.Header.FileSize)
			assert.False(t, p.UsesBaseTags())

			name, c, ok := p.ColorAt(1)
			require.True(t, ok)
			assert.Equal(t, "Red", name)
			assert.Equal(t, Color{0xFF, 0, 0, 0xFF}, c)

			gi, ti, ok := p.FindTag("Face", "Expr")
			require.True(t, ok)
			assert.Equal(t, 1, gi)
			assert.Equal(t, 0, ti)
			mood := p.TagGroups[gi].Tags[ti].Params[0]
			assert.Equal(t, Enum, mood.Type)
			lit, ok := mood.Enum.Decode(9)
			require.True(t, ok)
			assert.Equal(t, "Sad", lit)
			assert.Equal(t, Float32, p.TagGroups[gi].Tags[ti].Params[1].Type)

			sound, ok := p.Attribute("Sound")
			require.True(t, ok)
			assert.Equal(t, []string{"None", "Beep"}, sound.Enum.Items())
			wait, ok := p.Attribute("Wait")
			require.True(t, ok)
			assert.Equal(t, Int16, wait.Type)
			assert.Equal(t, uint32(8), wait.Offset)

			require.Len(t, p.Styles, 1)
			assert.Equal(t, Style{Name: "Default", RegionWidth: 640, LineCount: 3, BaseColorID: -1}, p.Styles[0])
			assert.Equal(t, []string{"Msg/Common.mstxt"}, p.SourceFiles)

			again, err := p.Compile()
			require.NoError(t, err)
			assert.Equal(t, data, again)
		})
	}
}

func TestSectionFraming(t *testing.T) {
	data, err := moodProject(t, binary.LittleEndian).Compile()
	require.NoError(t, err)

	assert.Zero(t, len(data)%section.Alignment)
	r := binpkg.NewReader(data, binpkg.DefaultConfig())
	h, err := header.Read(r)
	require.NoError(t, err)

	var magics []section.Magic
	err = section.Walk(r, int(h.SectionCount), func(sh section.Header, _ *binpkg.Reader) error {
		assert.Zero(t, sh.Offset%section.Alignment, string(sh.Magic))
		magics = append(magics, sh.Magic)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, defaultSectionOrder, magics)
}

func TestBaseFallback(t *testing.T) {
	p := New(binary.LittleEndian)
	p.Colors.Set("Black", Color{0, 0, 0, 0xFF})
	data, err := p.Compile()
	require.NoError(t, err)

	parsed, err := Parse(data)
	require.NoError(t, err)
	assert.True(t, parsed.UsesBaseTags())
	require.Len(t, parsed.TagGroups, 1)
	assert.Equal(t, SystemName, parsed.TagGroups[0].Name)

	_, def, ok := parsed.Tag(SystemGroup, TagColor)
	require.True(t, ok)
	assert.Equal(t, ColorName, def.Name)
	assert.Equal(t, []section.Magic{section.Colors, section.ColorLabels}, parsed.Sections())
}

func TestColorsWithoutLabels(t *testing.T) {
	p := New(binary.BigEndian)
	p.Colors.Set("White", Color{0xFF, 0xFF, 0xFF, 0xFF})
	p.Colors.Set("Black", Color{0, 0, 0, 0xFF})
	p.sections = []section.Magic{section.Colors}

	data, err := p.Compile()
	require.NoError(t, err)
	parsed, err := Parse(data)
	require.NoError(t, err)

	name, _, ok := parsed.ColorAt(1)
	require.True(t, ok)
	assert.Equal(t, "1", name)
	idx, _, ok := parsed.ColorIndex("0")
	require.True(t, ok)
	assert.Equal(t, 0, idx)
}

func TestListConflict(t *testing.T) {
	p := New(binary.LittleEndian)
	p.TagGroups = []TagGroup{{
		Name: "Game",
		Tags: []TagDef{{Name: "A", Params: []ParamDef{
			{Name: "x", Type: Enum, Enum: MustEnumList([]string{"On"}, []uint16{2})},
			{Name: "y", Type: Enum, Enum: MustEnumList([]string{"Off"}, []uint16{2})},
		}}},
	}}
	_, err := p.Compile()
	assert.ErrorIs(t, err, ErrListConflict)
}

func TestGroupLayout(t *testing.T) {
	p := New(binary.LittleEndian)
	p.GroupIDs = true
	p.TagGroups = []TagGroup{{ID: 3, Name: "Game", Tags: []TagDef{{Name: "A"}}}}
	_, err := p.Compile()
	assert.ErrorIs(t, err, ErrGroupLayout)

	p.TagGroups[0].ID = 0
	data, err := p.Compile()
	require.NoError(t, err)
	parsed, err := Parse(data)
	require.NoError(t, err)
	assert.True(t, parsed.GroupIDs)
}

func TestParseErrors(t *testing.T) {
	msg := make([]byte, header.Size)
	copy(msg, header.MessageMagic)
	_, err := Parse(msg)
	assert.ErrorIs(t, err, ErrNotProjectFile)

	_, err = Parse([]byte("MsgPrjBn"))
	assert.ErrorIs(t, err, ErrNotProjectFile)

	buf := binpkg.NewBuffer(64)
	w := binpkg.NewWriter(buf, binpkg.DefaultConfig())
	require.NoError(t, header.Write(w, &header.Header{Kind: header.Project, ByteOrder: binary.BigEndian, SectionCount: 1}))
	tok, err := section.Begin(w, "XYZ1")
	require.NoError(t, err)
	require.NoError(t, section.End(w, tok))

	_, err = Parse(buf.Bytes())
	assert.ErrorIs(t, err, ErrUnknownSection)
	assert.False(t, errors.Is(err, ErrNotProjectFile))
}

func TestSaveOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Project.msbp")
	require.NoError(t, moodProject(t, binary.LittleEndian).Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())

	p, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Colors.Len())

	_, err = Open(filepath.Join(t.TempDir(), "missing.msbp"))
	assert.Error(t, err)
}
