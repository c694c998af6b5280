package tag

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"

	binpkg "github.com/robert-malhotra/go-msbt/internal/binary"
	"github.com/robert-malhotra/go-msbt/internal/charset"
	"github.com/robert-malhotra/go-msbt/msbp"
)

// Control units.
const (
	MarkerStart = 0x0E
	MarkerEnd   = 0x0F

	// enumMarker follows the id byte of an enum parameter.
	enumMarker = 0xCD
)

// Transcoder converts message text for one text encoding and schema. It
// holds no per-message state and may be reused.
type Transcoder struct {
	schema *msbp.Project
	codec  *charset.Codec
	order  binary.ByteOrder
	opts   Options
	log    hclog.Logger
}

// New returns a transcoder. schema may be nil, in which case every tag is
// rendered positionally and only positional tags can be encoded.
func New(schema *msbp.Project, codec *charset.Codec, opts Options, logger hclog.Logger) *Transcoder {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Transcoder{
		schema: schema,
		codec:  codec,
		order:  codec.ByteOrder(),
		opts:   opts,
		log:    logger,
	}
}

// Options returns the rendering options.
func (t *Transcoder) Options() Options {
	return t.opts
}

// Schema returns the project schema, or nil.
func (t *Transcoder) Schema() *msbp.Project {
	return t.schema
}

// rawTag is one control code as stored.
type rawTag struct {
	group  uint16
	typ    uint16
	params []byte
	end    bool
}

func (rt rawTag) pageBreak() bool {
	return !rt.end && rt.group == msbp.SystemGroup && rt.typ == msbp.TagPageBreak
}

// positional renders the schema-free form.
func (rt rawTag) positional() string {
	switch {
	case rt.end:
		return fmt.Sprintf("</%d.%d>", rt.group, rt.typ)
	case len(rt.params) == 0:
		return fmt.Sprintf("<%d.%d>", rt.group, rt.typ)
	default:
		return fmt.Sprintf("<%d.%d:%s>", rt.group, rt.typ, hexParams(rt.params))
	}
}

// hexParams formats parameter bytes as dash-separated uppercase hex pairs.
func hexParams(b []byte) string {
	pairs := make([]string, len(b))
	for i, v := range b {
		pairs[i] = fmt.Sprintf("%02X", v)
	}
	return strings.Join(pairs, "-")
}

// bytes returns the stored form of rt.
func (t *Transcoder) bytes(rt rawTag) []byte {
	buf := binpkg.NewBuffer(t.codec.Width() + 6 + len(rt.params))
	w := binpkg.NewWriter(buf, binpkg.Config{ByteOrder: t.order})

	marker := uint32(MarkerStart)
	if rt.end {
		marker = MarkerEnd
	}
	// Writes to a Buffer cannot fail.
	_ = w.WriteBytes(t.codec.PutUnit(marker))
	_ = w.WriteUint16(rt.group)
	_ = w.WriteUint16(rt.typ)
	if !rt.end {
		_ = w.WriteUint16(uint16(len(rt.params)))
		_ = w.WriteBytes(rt.params)
	}
	return buf.Bytes()
}

// readTag reads the control code at the start of b. Running out of bytes is
// reported as binary.ErrUnexpectedEnd.
func (t *Transcoder) readTag(b []byte) (rawTag, int, error) {
	r := binpkg.NewReader(b, binpkg.Config{ByteOrder: t.order})
	rt := rawTag{end: t.codec.Unit(b) == MarkerEnd}
	r.Skip(int64(t.codec.Width()))

	var err error
	if rt.group, err = r.ReadUint16(); err != nil {
		return rt, 0, err
	}
	if rt.typ, err = r.ReadUint16(); err != nil {
		return rt, 0, err
	}
	if !rt.end {
		n, err := r.ReadUint16()
		if err != nil {
			return rt, 0, err
		}
		if rt.params, err = r.ReadBytes(int(n)); err != nil {
			return rt, 0, err
		}
	}
	return rt, int(r.Pos()), nil
}
