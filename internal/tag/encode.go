package tag

import (
	"encoding/hex"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	binpkg "github.com/robert-malhotra/go-msbt/internal/binary"
	"github.com/robert-malhotra/go-msbt/internal/dtype"
	"github.com/robert-malhotra/go-msbt/msbp"
)

var positionalTag = regexp.MustCompile(`^<(/?)(\d+)\.(\d+)(?::([0-9A-Fa-f]{2}(?:-?[0-9A-Fa-f]{2})*))?>$`)

// Encode converts text back to the stored form, appending a NUL unit when
// terminate is set. Errors are *Error values naming the offending tag.
func (t *Transcoder) Encode(text string, terminate bool) ([]byte, error) {
	buf := binpkg.NewBuffer(len(text)*t.codec.Width() + t.codec.Width())
	w := binpkg.NewWriter(buf, binpkg.Config{ByteOrder: t.order})

	var run strings.Builder
	flush := func() error {
		if run.Len() == 0 {
			return nil
		}
		b, err := t.codec.Encode(run.String())
		if err != nil {
			return &Error{Tag: run.String(), Err: fmt.Errorf("encoding text: %w", err)}
		}
		run.Reset()
		return w.WriteBytes(b)
	}

	for i := 0; i < len(text); {
		c := text[i]
		switch c {
		case '\\':
			if i+1 < len(text) {
				switch text[i+1] {
				case '<', '>', '\\':
					run.WriteByte(text[i+1])
					i += 2
					continue
				case 'x':
					if i+4 <= len(text) {
						if b, err := hex.DecodeString(text[i+2 : i+4]); err == nil {
							if err := flush(); err != nil {
								return nil, err
							}
							if err := w.WriteBytes(b); err != nil {
								return nil, err
							}
							i += 4
							continue
						}
					}
				}
			}
			run.WriteByte(c)
			i++

		case '<':
			end, err := tagEnd(text, i)
			if err != nil {
				return nil, &Error{Tag: text[i:], Err: err}
			}
			src := text[i : end+1]
			rt, err := t.parseTag(src)
			if err != nil {
				return nil, &Error{Tag: src, Err: err}
			}
			if err := flush(); err != nil {
				return nil, err
			}
			if err := w.WriteBytes(t.bytes(rt)); err != nil {
				return nil, err
			}
			i = end + 1
			if rt.pageBreak() && t.opts.AddLinebreakAfterPageBreak && i < len(text) && text[i] == '\n' {
				i++
			}

		default:
			run.WriteByte(c)
			i++
		}
	}

	if err := flush(); err != nil {
		return nil, err
	}
	if terminate {
		if err := w.WriteBytes(t.codec.Terminator()); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// parseTag resolves one tag in text form, including its brackets.
func (t *Transcoder) parseTag(src string) (rawTag, error) {
	if src == "<p>" {
		return rawTag{group: msbp.SystemGroup, typ: msbp.TagPageBreak}, nil
	}
	if m := positionalTag.FindStringSubmatch(src); m != nil {
		return parsePositional(m)
	}
	if len(src) < 3 || src[0] != '<' || src[len(src)-1] != '>' {
		return rawTag{}, ErrTagSyntax
	}

	body := src[1 : len(src)-1]
	var rt rawTag
	if strings.HasPrefix(body, "/") {
		rt.end = true
		body = body[1:]
	}
	head, rest, _ := strings.Cut(body, " ")
	if head == "" {
		return rawTag{}, fmt.Errorf("%w: empty tag name", ErrTagSyntax)
	}
	if t.schema == nil {
		return rawTag{}, fmt.Errorf("%w: %q (no project loaded)", ErrUnresolvedTagName, head)
	}

	var gi, ti int
	var ok bool
	if group, name, dotted := strings.Cut(head, "."); dotted {
		gi, ti, ok = t.schema.FindTag(group, name)
	} else {
		gi, ti, ok = t.schema.FindShortTag(head)
	}
	if !ok {
		return rawTag{}, fmt.Errorf("%w: %q", ErrUnresolvedTagName, head)
	}
	rt.group = t.schema.GroupCode(gi)
	rt.typ = uint16(ti)
	def := &t.schema.TagGroups[gi].Tags[ti]

	toks, err := tokenize(rest)
	if err != nil {
		return rawTag{}, err
	}
	if rt.end {
		if len(toks) > 0 {
			return rawTag{}, fmt.Errorf("%w: end tag with parameters", ErrTagSyntax)
		}
		return rt, nil
	}

	if rt.group == msbp.SystemGroup && rt.typ == msbp.TagColor && len(toks) == 1 && toks[0].name == "" {
		rt.params, err = t.encodeColor(toks[0])
	} else {
		rt.params, err = t.encodeParams(effectiveParams(def), toks)
	}
	if err != nil {
		return rawTag{}, err
	}
	if len(rt.params) > math.MaxUint16 {
		return rawTag{}, fmt.Errorf("%w: %d parameter bytes", ErrTagSyntax, len(rt.params))
	}
	return rt, nil
}

func parsePositional(m []string) (rawTag, error) {
	rt := rawTag{end: m[1] == "/"}
	group, err := strconv.ParseUint(m[2], 10, 16)
	if err != nil {
		return rawTag{}, fmt.Errorf("%w: group %s", ErrTagSyntax, m[2])
	}
	typ, err := strconv.ParseUint(m[3], 10, 16)
	if err != nil {
		return rawTag{}, fmt.Errorf("%w: type %s", ErrTagSyntax, m[3])
	}
	rt.group, rt.typ = uint16(group), uint16(typ)
	if m[4] != "" {
		if rt.end {
			return rawTag{}, fmt.Errorf("%w: end tag with parameters", ErrTagSyntax)
		}
		b, err := hex.DecodeString(strings.ReplaceAll(m[4], "-", ""))
		if err != nil {
			return rawTag{}, fmt.Errorf("%w: %w", ErrTagSyntax, err)
		}
		if len(b) > math.MaxUint16 {
			return rawTag{}, fmt.Errorf("%w: %d parameter bytes", ErrTagSyntax, len(b))
		}
		rt.params = b
	}
	return rt, nil
}

// encodeColor encodes the single value of a System.Color tag: a bare integer
// is a color id, #RRGGBBAA is RGBA, anything else is a color table name.
func (t *Transcoder) encodeColor(tok token) ([]byte, error) {
	if !tok.quoted {
		if id, err := strconv.ParseInt(tok.value, 10, 16); err == nil {
			return t.colorID(int16(id)), nil
		}
		if strings.HasPrefix(tok.value, "#") {
			c, err := msbp.ParseHex(tok.value)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrTagSyntax, err)
			}
			return c.Bytes(), nil
		}
	}

	idx, c, ok := t.schema.ColorIndex(tok.value)
	if !ok {
		return nil, fmt.Errorf("%w: color %q", ErrUnresolvedEnumLiteral, tok.value)
	}
	if t.opts.Colors == ByColorID {
		if idx > math.MaxInt16 {
			return nil, fmt.Errorf("%w: color index %d", ErrTagSyntax, idx)
		}
		return t.colorID(int16(idx)), nil
	}
	return c.Bytes(), nil
}

func (t *Transcoder) colorID(id int16) []byte {
	b := make([]byte, 2)
	t.order.PutUint16(b, uint16(id))
	return b
}

func (t *Transcoder) encodeParams(params []msbp.ParamDef, toks []token) ([]byte, error) {
	if len(toks) > len(params) {
		return nil, fmt.Errorf("%w: %d parameters, tag declares %d", ErrTagSyntax, len(toks), len(params))
	}

	buf := binpkg.NewBuffer(16)
	w := binpkg.NewWriter(buf, binpkg.Config{ByteOrder: t.order})
	for i, tok := range toks {
		p := params[i]
		if tok.name != "" && tok.name != p.Name {
			return nil, fmt.Errorf("%w: parameter %d is %q, not %q", ErrTagSyntax, i, p.Name, tok.name)
		}
		if err := t.encodeParam(w, p, tok.value); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func (t *Transcoder) encodeParam(w *binpkg.Writer, p msbp.ParamDef, value string) error {
	switch {
	case p.Type.Numeric():
		s, err := dtype.ParseScalar(p.Type, value)
		if err != nil {
			return fmt.Errorf("%w: parameter %q: %w", ErrTagSyntax, p.Name, err)
		}
		return s.Write(w)

	case p.Type == dtype.String:
		b, err := t.codec.Encode(value)
		if err != nil {
			return fmt.Errorf("parameter %q: %w", p.Name, err)
		}
		if len(b) > math.MaxUint16 {
			return fmt.Errorf("%w: parameter %q is %d bytes", ErrTagSyntax, p.Name, len(b))
		}
		if err := w.WriteUint16(uint16(len(b))); err != nil {
			return err
		}
		return w.WriteBytes(b)

	case p.Type == dtype.Enum:
		if p.Enum == nil {
			return fmt.Errorf("%w: parameter %q has no list", ErrUnresolvedEnumLiteral, p.Name)
		}
		id, ok := p.Enum.Encode(value)
		if !ok {
			return fmt.Errorf("%w: %q for parameter %q", ErrUnresolvedEnumLiteral, value, p.Name)
		}
		if id > math.MaxUint8 {
			return fmt.Errorf("%w: list item id %d does not fit a byte", ErrTagSyntax, id)
		}
		if err := w.WriteUint8(uint8(id)); err != nil {
			return err
		}
		return w.WriteUint8(enumMarker)

	default:
		return fmt.Errorf("%w: %d", dtype.ErrUnknownType, uint8(p.Type))
	}
}
