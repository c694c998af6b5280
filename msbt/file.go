// Package msbt reads and writes message containers ("MsgStdBn"): ordered,
// keyed strings with inline control codes, per-message styles and attribute
// blocks.
//
// Parsing renders every message into human-editable text and typed
// attributes. Compiling writes the messages back; a file that was parsed and
// not modified compiles to the bytes it was parsed from.
//
// Basic usage:
//
//	p, err := msbp.Open("Project.msbp")
//	f, err := msbt.Open("Talk.msbt", msbt.WithProject(p))
//	m, _ := f.Messages.Get("Greeting")
//	m.Text = "Hello <System.Color Red>there</System.Color>"
//	err = f.Save("Talk.msbt")
package msbt

import (
	"encoding/binary"
	"fmt"
	"os"
	"strconv"

	"github.com/elliotchance/orderedmap/v3"
	"github.com/hashicorp/go-hclog"

	"github.com/robert-malhotra/go-msbt/internal/attr"
	"github.com/robert-malhotra/go-msbt/internal/charset"
	"github.com/robert-malhotra/go-msbt/internal/header"
	"github.com/robert-malhotra/go-msbt/internal/section"
	"github.com/robert-malhotra/go-msbt/internal/tag"
	"github.com/robert-malhotra/go-msbt/msbp"
)

// Encoding is a text encoding code.
type Encoding = charset.Encoding

// Text encodings.
const (
	UTF8  = charset.UTF8
	UTF16 = charset.UTF16
	UTF32 = charset.UTF32
)

// Value is one decoded attribute.
type Value = attr.Value

// Attributes is the ordered attribute set of a message.
type Attributes = attr.Values

// NoStyle is the style id of messages without a style.
const NoStyle = -1

// Message is one entry of a message file.
type Message struct {
	Text       string
	StyleID    int32
	Attributes Attributes

	orig *origin
}

// origin is the parse-time state of a message.
type origin struct {
	index      int
	offset     int64
	text       string
	raw        []byte
	terminated bool
}

// NewMessage returns a message with no style and no attributes.
func NewMessage(text string) *Message {
	return &Message{Text: text, StyleID: NoStyle, Attributes: attr.NewValues()}
}

// keying records what the message keys stand for.
type keying uint8

const (
	byPosition keying = iota
	byLabel
	byNumber
)

// File is a parsed or constructed message file. Messages is keyed by label,
// by numeric id in decimal, or by message position, and iterates in text
// order.
type File struct {
	Header   header.Header
	Messages *orderedmap.OrderedMap[string, *Message]

	project *msbp.Project
	text    *tag.Transcoder
	codec   *charset.Codec
	attrs   *attr.Codec
	log     hclog.Logger

	sections   []section.Magic
	keys       keying
	labelSlots uint32
	labelOrder []string
	numbered   map[string]bool
	unkeyed    map[string]bool
	numOrder   []string
	numbers    []numEntry
	offsets    []int32
	table      *attr.Decoder
	styleCount int
}

// New returns an empty labelled message file.
func New(enc Encoding, order binary.ByteOrder, opts ...Option) (*File, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	h := header.Header{
		Kind:      header.Message,
		ByteOrder: order,
		Encoding:  enc,
		Version:   3,
	}
	f := &File{
		Header:   h,
		Messages: orderedmap.NewOrderedMap[string, *Message](),
		keys:     byLabel,
		numbered: map[string]bool{},
		unkeyed:  map[string]bool{},
	}
	if err := f.bind(o); err != nil {
		return nil, err
	}
	return f, nil
}

// bind sets up the codecs for the header's encoding and the options.
func (f *File) bind(o *options) error {
	codec, err := f.Header.Codec()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotMessageFile, err)
	}
	f.codec = codec
	f.project = o.project
	f.log = o.logger
	f.text = tag.New(o.project, codec, o.text, o.logger.Named("tag"))

	var defs []msbp.AttributeDef
	if o.project != nil {
		defs = o.project.Attributes
	}
	f.attrs = attr.NewCodec(defs, f.offsets, codec)
	return nil
}

// Open reads and parses a message file. The file is read fully into memory
// and closed before parsing.
func Open(path string, opts ...Option) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading message file: %w", err)
	}
	return Parse(data, opts...)
}

// Save compiles the file and writes it to path.
func (f *File) Save(path string) error {
	data, err := f.Compile()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Project returns the project the file was decoded against, or nil.
func (f *File) Project() *msbp.Project {
	return f.project
}

// TextOptions returns the tag rendering options.
func (f *File) TextOptions() TextOptions {
	return f.text.Options()
}

// Sections returns the section order used when compiling.
func (f *File) Sections() []section.Magic {
	return f.sectionOrder()
}

// Strings returns one "[key] text" line per message.
func (f *File) Strings() []string {
	out := make([]string, 0, f.Messages.Len())
	for key, m := range f.Messages.AllFromFront() {
		out = append(out, "["+key+"] "+m.Text)
	}
	return out
}

// AttributeNames returns the attribute names a message of this file can
// carry, in block order.
func (f *File) AttributeNames() []string {
	if !f.attrs.Raw() {
		width := f.attrs.Width()
		if f.table != nil {
			width = f.table.Table().Width
		}
		return f.attrs.Names(width)
	}
	if f.table == nil {
		return nil
	}
	names := []string{attr.RawName}
	for j := 0; j < f.table.StringsPerMessage(); j++ {
		names = append(names, attr.RawStringName(j))
	}
	return names
}

// AttributeCount estimates the number of attributes per message. The project
// schema is authoritative; otherwise the ATO1 entry count, the shape of a
// raw attribute block, or the largest attribute set is used.
func (f *File) AttributeCount() int {
	switch {
	case f.project != nil && len(f.project.Attributes) > 0:
		return len(f.project.Attributes)
	case f.offsets != nil:
		return len(f.offsets)
	case f.table != nil:
		return 1 + f.table.StringsPerMessage()
	}
	n := 0
	for _, m := range f.Messages.AllFromFront() {
		if m.Attributes != nil {
			n = max(n, m.Attributes.Len())
		}
	}
	return n
}

func positionKey(i int) string {
	return strconv.Itoa(i)
}

// ParseAttribute reads the text form of the named attribute. Files decoded
// against a project schema use its definitions; others accept the raw
// entries returned by AttributeNames.
func (f *File) ParseAttribute(name, text string) (Value, error) {
	if f.attrs.Raw() {
		return attr.ParseRaw(name, text)
	}
	def, ok := f.project.Attribute(name)
	if !ok {
		return Value{}, fmt.Errorf("%w: %q", ErrUnresolvedAttributeName, name)
	}
	return attr.Parse(def, text)
}
