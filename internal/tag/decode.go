package tag

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/robert-malhotra/go-msbt/internal/dtype"
	"github.com/robert-malhotra/go-msbt/msbp"
)

var textEscaper = strings.NewReplacer(`\`, `\\`, `<`, `\<`, `>`, `\>`)

// Decode converts one message to text. data runs from the start of the
// message to the next message boundary; terminated reports whether a NUL
// unit ended the text before that boundary.
func (t *Transcoder) Decode(data []byte) (text string, terminated bool) {
	var sb strings.Builder
	w := t.codec.Width()
	runStart, pos := 0, 0
	for {
		if pos+w > len(data) {
			t.writeText(&sb, data[runStart:pos])
			writeHex(&sb, data[pos:])
			return sb.String(), false
		}
		switch t.codec.Unit(data[pos:]) {
		case 0:
			t.writeText(&sb, data[runStart:pos])
			return sb.String(), true
		case MarkerStart, MarkerEnd:
			t.writeText(&sb, data[runStart:pos])
			pos += t.decodeTag(&sb, data[pos:])
			runStart = pos
		default:
			pos += w
		}
	}
}

// writeText escapes a run of ordinary text. Characters that do not survive a
// decode/encode cycle are written as \xHH.
func (t *Transcoder) writeText(sb *strings.Builder, b []byte) {
	if len(b) == 0 {
		return
	}
	if s, ok := t.codec.Lossless(b); ok {
		textEscaper.WriteString(sb, s)
		return
	}
	for len(b) > 0 {
		n := t.codec.CharLen(b)
		if s, ok := t.codec.Lossless(b[:n]); ok && n >= t.codec.Width() {
			textEscaper.WriteString(sb, s)
		} else {
			writeHex(sb, b[:n])
		}
		b = b[n:]
	}
}

func writeHex(sb *strings.Builder, b []byte) {
	for _, c := range b {
		fmt.Fprintf(sb, `\x%02X`, c)
	}
}

// decodeTag renders the control code at the start of b and returns the
// number of bytes consumed.
func (t *Transcoder) decodeTag(sb *strings.Builder, b []byte) int {
	rt, n, err := t.readTag(b)
	if err != nil {
		t.log.Trace("control code crosses message boundary, escaping", "bytes", len(b), "error", err)
		writeHex(sb, b)
		return len(b)
	}

	sb.WriteString(t.render(rt, b[:n]))
	if rt.pageBreak() && t.opts.AddLinebreakAfterPageBreak {
		sb.WriteByte('\n')
	}
	return n
}

// render returns the named form of rt when it encodes back to raw, and the
// positional form otherwise.
func (t *Transcoder) render(rt rawTag, raw []byte) string {
	if t.schema == nil {
		return rt.positional()
	}
	s, err := t.named(rt)
	if err != nil {
		t.log.Trace("rendering tag positionally", "tag", rt.positional(), "reason", err)
		return rt.positional()
	}
	if s == "" {
		return s
	}
	back, err := t.parseTag(s)
	if err != nil || !bytes.Equal(t.bytes(back), raw) {
		t.log.Trace("named tag does not encode back, rendering positionally", "tag", s, "error", err)
		return rt.positional()
	}
	return s
}

func (t *Transcoder) named(rt rawTag) (string, error) {
	g, def, ok := t.schema.Tag(rt.group, rt.typ)
	if !ok {
		return "", fmt.Errorf("no tag %d.%d in schema", rt.group, rt.typ)
	}
	if t.opts.SkipRuby && rt.group == msbp.SystemGroup && rt.typ == msbp.TagRuby {
		return "", nil
	}

	name := def.Name
	short := t.opts.ShortenTags && t.schema.UniqueTagName(def.Name)
	if !short {
		name = g.Name + "." + def.Name
	}

	switch {
	case rt.end:
		return "</" + name + ">", nil
	case rt.pageBreak() && len(rt.params) == 0 && t.opts.ShortenPageBreak:
		return "<p>", nil
	case len(rt.params) == 0:
		return "<" + name + ">", nil
	}

	if rt.group == msbp.SystemGroup && rt.typ == msbp.TagColor && (len(rt.params) == 2 || len(rt.params) == 4) {
		return "<" + name + " " + t.colorValue(rt.params) + ">", nil
	}

	params := effectiveParams(def)
	values, err := t.decodeParams(params, rt.params)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString("<" + name)
	for i, v := range values {
		sb.WriteByte(' ')
		if !short {
			sb.WriteString(params[i].Name + "=")
		}
		sb.WriteString(v)
	}
	sb.WriteByte('>')
	return sb.String(), nil
}

// colorValue renders a 2-byte color id or 4-byte RGBA parameter block.
func (t *Transcoder) colorValue(b []byte) string {
	if len(b) == 2 {
		id := int16(t.order.Uint16(b))
		if t.opts.Colors == ByColorID {
			if name, _, ok := t.schema.ColorAt(int(id)); ok {
				return colorLiteral(name)
			}
		}
		return strconv.Itoa(int(id))
	}
	c := msbp.ColorFromBytes(b)
	if t.opts.Colors == ByRGBA {
		if name, ok := t.schema.ColorName(c); ok {
			return colorLiteral(name)
		}
	}
	return c.Hex()
}

// colorLiteral quotes color names that would otherwise read as an id or an
// RGBA literal.
func colorLiteral(name string) string {
	if _, err := strconv.ParseInt(name, 10, 64); err == nil || strings.HasPrefix(name, "#") {
		return quote(name)
	}
	return literal(name)
}

func (t *Transcoder) decodeParams(params []msbp.ParamDef, b []byte) ([]string, error) {
	var values []string
	pos := 0
	for _, p := range params {
		if pos == len(b) {
			break
		}
		v, n, err := t.decodeParam(p, b[pos:])
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", p.Name, err)
		}
		values = append(values, v)
		pos += n
	}
	if pos != len(b) {
		return nil, fmt.Errorf("%d unread parameter bytes", len(b)-pos)
	}
	return values, nil
}

func (t *Transcoder) decodeParam(p msbp.ParamDef, b []byte) (string, int, error) {
	switch {
	case p.Type.Numeric():
		n := p.Type.Size()
		if len(b) < n {
			return "", 0, errShortParam
		}
		return dtype.Get(b, p.Type, t.order).String(), n, nil

	case p.Type == dtype.String:
		if len(b) < 2 {
			return "", 0, errShortParam
		}
		n := 2 + int(t.order.Uint16(b))
		if len(b) < n {
			return "", 0, errShortParam
		}
		s, ok := t.codec.Lossless(b[2:n])
		if !ok {
			return "", 0, fmt.Errorf("string does not decode cleanly")
		}
		return quote(s), n, nil

	case p.Type == dtype.Enum:
		if p.Enum == nil {
			return "", 0, fmt.Errorf("enum parameter has no list")
		}
		lit, ok := p.Enum.Decode(uint16(b[0]))
		if !ok {
			return "", 0, fmt.Errorf("no list item with id %d", b[0])
		}
		n := 1
		if len(b) > 1 && b[1] == enumMarker {
			n = 2
		}
		return literal(lit), n, nil

	default:
		return "", 0, fmt.Errorf("%w: %d", dtype.ErrUnknownType, uint8(p.Type))
	}
}
