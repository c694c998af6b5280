package attr

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	binpkg "github.com/robert-malhotra/go-msbt/internal/binary"
	"github.com/robert-malhotra/go-msbt/internal/charset"
	"github.com/robert-malhotra/go-msbt/internal/dtype"
	"github.com/robert-malhotra/go-msbt/msbp"
)

var le = binpkg.Config{ByteOrder: binary.LittleEndian}

func speechDefs() []msbp.AttributeDef {
	return []msbp.AttributeDef{
		{Name: "kind", Type: msbp.Enum, Enum: msbp.MustEnumList([]string{"Talk", "Shout"}, []uint16{3, 7})},
		{Name: "count", Type: msbp.Uint16},
		{Name: "speaker", Type: msbp.String},
	}
}

func values(kv ...any) Values {
	v := NewValues()
	for i := 0; i < len(kv); i += 2 {
		v.Set(kv[i].(string), kv[i+1].(Value))
	}
	return v
}

func write(t *testing.T, enc *Encoder) []byte {
	t.Helper()
	buf := binpkg.NewBuffer(64)
	require.NoError(t, enc.Write(binpkg.NewWriter(buf, le)))
	return buf.Bytes()
}

func read(t *testing.T, data []byte) *Table {
	t.Helper()
	tbl, err := ReadTable(binpkg.NewReader(data, le))
	require.NoError(t, err)
	return tbl
}

// reencode writes every block of dec back, replacing the values of the
// messages listed in edits.
func reencode(t *testing.T, c *Codec, dec *Decoder, edits map[int]Values) []byte {
	t.Helper()
	enc := c.NewEncoder(dec)
	for i := 0; i < dec.Len(); i++ {
		vals, ok := edits[i]
		if !ok {
			var err error
			vals, err = dec.Decode(i)
			require.NoError(t, err)
		}
		require.NoError(t, enc.Add("m"+string(rune('0'+i)), vals, i))
	}
	return write(t, enc)
}

func TestSchemaRoundTrip(t *testing.T) {
	text := charset.MustNew(charset.UTF8, binary.LittleEndian)
	c := NewCodec(speechDefs(), nil, text)
	require.Equal(t, 7, c.Width())

	enc := c.NewEncoder(nil)
	require.NoError(t, enc.Add("intro", values(
		"kind", EnumValue("Shout"),
		"count", ScalarValue(dtype.Uint(dtype.Uint16, 12)),
		"speaker", StringValue("Link"),
	), -1))
	require.NoError(t, enc.Add("outro", values(
		"kind", EnumValue("Talk"),
		"count", ScalarValue(dtype.Uint(dtype.Uint16, 1)),
		"speaker", StringValue("Zelda"),
	), -1))
	data := write(t, enc)

	require.Len(t, data, 22+5+6)
	assert.Equal(t, []byte{2, 0, 0, 0, 7, 0, 0, 0}, data[:8])
	assert.Equal(t, []byte{7, 12, 0, 22, 0, 0, 0}, data[8:15])
	assert.Equal(t, []byte{3, 1, 0, 27, 0, 0, 0}, data[15:22])
	assert.Equal(t, "Link\x00Zelda\x00", string(data[22:]))

	dec := c.NewDecoder(read(t, data))
	got, err := dec.Decode(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"kind", "count", "speaker"}, keys(got))
	v, _ := got.Get("kind")
	assert.Equal(t, EnumValue("Shout"), v)
	v, _ = got.Get("count")
	assert.Equal(t, ScalarValue(dtype.Uint(dtype.Uint16, 12)), v)
	v, _ = got.Get("speaker")
	assert.Equal(t, StringValue("Link"), v)

	assert.Equal(t, data, reencode(t, c, dec, nil))

	edited := reencode(t, c, dec, map[int]Values{1: values("speaker", StringValue("Ganon"))})
	require.Len(t, edited, 22+11+6)
	assert.Equal(t, data[:22-4], edited[:22-4], "first block and untouched fields keep their bytes")
	assert.Equal(t, uint32(33), binary.LittleEndian.Uint32(edited[18:]))

	dec = c.NewDecoder(read(t, edited))
	got, err = dec.Decode(1)
	require.NoError(t, err)
	v, _ = got.Get("speaker")
	assert.Equal(t, StringValue("Ganon"), v)
	v, _ = got.Get("kind")
	assert.Equal(t, EnumValue("Talk"), v)
}

func keys(v Values) []string {
	var out []string
	for k := range v.Keys() {
		out = append(out, k)
	}
	return out
}

func TestSharedNewStrings(t *testing.T) {
	c := NewCodec(speechDefs(), nil, charset.MustNew(charset.UTF8, binary.LittleEndian))
	enc := c.NewEncoder(nil)
	for _, name := range []string{"a", "b"} {
		require.NoError(t, enc.Add(name, values("speaker", StringValue("Same")), -1))
	}
	data := write(t, enc)
	assert.Equal(t, "Same\x00", string(data[22:]))
	assert.Equal(t, data[11:15], data[18:22])
}

func TestOffsetLayout(t *testing.T) {
	text := charset.MustNew(charset.UTF8, binary.LittleEndian)
	defs := speechDefs()

	c := NewCodec(defs, []int32{4, -1, 0}, text)
	assert.Equal(t, []string{"kind", "speaker"}, c.Names(8))
	assert.Equal(t, 5, c.Width())

	c = NewCodec(defs, []int32{0, 6}, text)
	assert.Equal(t, []string{"kind"}, c.Names(7), "count does not fit and speaker has no offset")

	c = NewCodec(defs, nil, text)
	assert.Equal(t, []string{"kind", "count"}, c.Names(5))
}

func TestGapsSurvive(t *testing.T) {
	text := charset.MustNew(charset.UTF8, binary.LittleEndian)
	c := NewCodec(speechDefs(), nil, text)

	data := []byte{
		1, 0, 0, 0, 8, 0, 0, 0,
		7, 12, 0, 16, 0, 0, 0, 0xEE,
		'H', 'i', 0,
	}
	dec := c.NewDecoder(read(t, data))
	got, err := dec.Decode(0)
	require.NoError(t, err)
	v, _ := got.Get("speaker")
	assert.Equal(t, StringValue("Hi"), v)

	assert.Equal(t, data, reencode(t, c, dec, nil))

	out := reencode(t, c, dec, map[int]Values{0: values("count", ScalarValue(dtype.Uint(dtype.Uint16, 13)))})
	assert.Equal(t, byte(13), out[9])
	assert.Equal(t, byte(0xEE), out[15])
	assert.Equal(t, "Hi\x00", string(out[16:]))
}

func TestUnresolvedNames(t *testing.T) {
	c := NewCodec(speechDefs(), nil, charset.MustNew(charset.UTF8, binary.LittleEndian))

	err := c.NewEncoder(nil).Add("m", values("mood", EnumValue("Sad")), -1)
	assert.ErrorIs(t, err, ErrUnresolvedAttributeName)

	err = c.NewEncoder(nil).Add("m", values("kind", EnumValue("Whisper")), -1)
	assert.ErrorIs(t, err, ErrUnresolvedEnumLiteral)
	assert.ErrorIs(t, err, msbp.ErrUnresolvedEnumLiteral)

	raw := NewCodec(nil, nil, charset.MustNew(charset.UTF8, binary.LittleEndian))
	err = raw.NewEncoder(nil).Add("m", values("kind", EnumValue("Talk")), -1)
	assert.ErrorIs(t, err, ErrUnresolvedAttributeName)
}

func TestUnknownEnumIDSurvives(t *testing.T) {
	c := NewCodec(speechDefs()[:1], nil, charset.MustNew(charset.UTF8, binary.LittleEndian))
	data := []byte{1, 0, 0, 0, 1, 0, 0, 0, 42}
	dec := c.NewDecoder(read(t, data))
	got, err := dec.Decode(0)
	require.NoError(t, err)
	v, _ := got.Get("kind")
	assert.Equal(t, ScalarValue(dtype.Uint(dtype.Uint8, 42)), v)
	assert.Equal(t, data, reencode(t, c, dec, nil))
}

func TestRawStrings(t *testing.T) {
	c := NewCodec(nil, nil, charset.MustNew(charset.UTF8, binary.LittleEndian))
	data := []byte{
		2, 0, 0, 0, 4, 0, 0, 0,
		16, 0, 0, 0,
		19, 0, 0, 0,
		'a', 'b', 0,
		'c', 'd', 0,
	}
	dec := c.NewDecoder(read(t, data))
	require.Equal(t, 1, dec.StringsPerMessage())

	got, err := dec.Decode(1)
	require.NoError(t, err)
	assert.Equal(t, []string{RawName, "_str0"}, keys(got))
	v, _ := got.Get(RawName)
	assert.Equal(t, "13000000", v.String())
	v, _ = got.Get(RawStringName(0))
	assert.Equal(t, StringValue("cd"), v)

	assert.Equal(t, data, reencode(t, c, dec, nil))

	first, err := dec.Decode(0)
	require.NoError(t, err)
	first.Set(RawStringName(0), StringValue("xyz"))
	out := reencode(t, c, dec, map[int]Values{0: first})
	assert.Equal(t, []byte{16, 0, 0, 0, 20, 0, 0, 0}, out[8:16])
	assert.Equal(t, "xyz\x00cd\x00", string(out[16:]))

	dec = c.NewDecoder(read(t, out))
	got, err = dec.Decode(1)
	require.NoError(t, err)
	v, _ = got.Get(RawStringName(0))
	assert.Equal(t, StringValue("cd"), v)
}

func TestRawWithoutStrings(t *testing.T) {
	c := NewCodec(nil, nil, charset.MustNew(charset.UTF16, binary.LittleEndian))
	data := []byte{1, 0, 0, 0, 3, 0, 0, 0, 0xAA, 0xBB, 0xCC}
	dec := c.NewDecoder(read(t, data))
	assert.Equal(t, 0, dec.StringsPerMessage())
	got, err := dec.Decode(0)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Len())
	assert.Equal(t, data, reencode(t, c, dec, nil))
}

func TestWidthMismatch(t *testing.T) {
	c := NewCodec(nil, nil, charset.MustNew(charset.UTF8, binary.LittleEndian))
	enc := c.NewEncoder(nil)
	require.NoError(t, enc.Add("first", values(RawName, BytesValue([]byte{1, 2})), -1))
	err := enc.Add("second", values(RawName, BytesValue([]byte{1, 2, 3})), -1)

	var wm *WidthMismatchError
	require.True(t, errors.As(err, &wm))
	assert.Equal(t, &WidthMismatchError{First: "first", FirstWidth: 2, Second: "second", SecondWidth: 3}, wm)
	assert.ErrorIs(t, err, ErrAttributeWidthMismatch)
}

func TestMalformedTable(t *testing.T) {
	_, err := ReadTable(binpkg.NewReader([]byte{4, 0, 0, 0, 8, 0, 0, 0, 1, 2}, le))
	assert.ErrorIs(t, err, ErrMalformedTable)

	c := NewCodec(nil, nil, charset.MustNew(charset.UTF8, binary.LittleEndian))
	dec := c.NewDecoder(read(t, []byte{0, 0, 0, 0, 0, 0, 0, 0}))
	_, err = dec.Decode(0)
	assert.ErrorIs(t, err, ErrMalformedTable)
}

func TestParse(t *testing.T) {
	defs := speechDefs()
	tests := []struct {
		name string
		def  *msbp.AttributeDef
		text string
		want Value
	}{
		{"literal", &defs[0], "Shout", EnumValue("Shout")},
		{"item id", &defs[0], "9", ScalarValue(dtype.Uint(dtype.Uint8, 9))},
		{"number", &defs[1], "300", ScalarValue(dtype.Uint(dtype.Uint16, 300))},
		{"string", &defs[2], "Impa", StringValue("Impa")},
		{"signed", &msbp.AttributeDef{Name: "d", Type: msbp.Int16}, "-3", ScalarValue(dtype.Int(dtype.Int16, -3))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.def, tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.text, got.String())
		})
	}

	_, err := Parse(&defs[0], "Whisper")
	assert.ErrorIs(t, err, ErrUnresolvedEnumLiteral)
	_, err = Parse(&defs[1], "-1")
	assert.Error(t, err)

	v, err := ParseRaw(RawName, "0aff")
	require.NoError(t, err)
	assert.Equal(t, BytesValue([]byte{0x0A, 0xFF}), v)
	assert.Equal(t, "0AFF", v.String())

	_, err = ParseRaw("_strx", "a")
	assert.ErrorIs(t, err, ErrUnresolvedAttributeName)
	_, err = ParseRaw("_str01", "a")
	assert.ErrorIs(t, err, ErrUnresolvedAttributeName)
}
