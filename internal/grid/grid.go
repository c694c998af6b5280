// Package grid converts message files to and from a tab-separated sheet for
// translation work. Files whose name ends in ".zst" are zstd-compressed.
//
// Each row carries a digest of the exported text. Apply only rewrites the
// text of rows whose content no longer matches that digest, so re-importing
// an untouched sheet leaves the message file byte-identical.
package grid

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/elliotchance/orderedmap/v3"
	"github.com/klauspost/compress/zstd"

	"github.com/robert-malhotra/go-msbt/msbt"
)

// Fixed leading columns.
var columns = []string{"label", "style", "digest", "text"}

var (
	// ErrMalformedGrid is returned when a sheet's header or rows do not have
	// the expected shape.
	ErrMalformedGrid = errors.New("malformed grid")
)

// Row is one message of a sheet.
type Row struct {
	Label  string
	Style  int32
	Digest string
	Text   string
	// Attributes holds one cell per Grid.Attributes entry.
	Attributes []string
}

// Grid is a sheet of messages with one column per attribute name.
type Grid struct {
	Attributes []string
	Rows       []Row
}

// Digest returns the digest stored for a message text.
func Digest(text string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(text))
}

// Export builds a sheet holding every message of f.
func Export(f *msbt.File) *Grid {
	g := &Grid{Attributes: attributeColumns(f)}
	for key, m := range f.Messages.AllFromFront() {
		row := Row{
			Label:      key,
			Style:      m.StyleID,
			Digest:     Digest(m.Text),
			Text:       m.Text,
			Attributes: make([]string, len(g.Attributes)),
		}
		for i, name := range g.Attributes {
			if m.Attributes == nil {
				break
			}
			if v, ok := m.Attributes.Get(name); ok {
				row.Attributes[i] = v.String()
			}
		}
		g.Rows = append(g.Rows, row)
	}
	return g
}

// attributeColumns returns the file's attribute names, or the names used by
// its messages in first-seen order.
func attributeColumns(f *msbt.File) []string {
	if names := f.AttributeNames(); len(names) > 0 {
		return names
	}
	var names []string
	seen := map[string]bool{}
	for _, m := range f.Messages.AllFromFront() {
		if m.Attributes == nil {
			continue
		}
		for name := range m.Attributes.Keys() {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}

// Apply writes the sheet back into f and returns how many messages were
// added or changed. Rows naming unknown labels become new messages.
func Apply(g *Grid, f *msbt.File) (int, error) {
	changed := 0
	for _, row := range g.Rows {
		if len(row.Attributes) != len(g.Attributes) {
			return changed, fmt.Errorf("%w: row %q has %d attribute cells, want %d",
				ErrMalformedGrid, row.Label, len(row.Attributes), len(g.Attributes))
		}

		m, ok := f.Messages.Get(row.Label)
		if !ok {
			m = msbt.NewMessage(row.Text)
			m.StyleID = row.Style
			if err := setAttributes(f, m, g.Attributes, row); err != nil {
				return changed, err
			}
			f.Messages.Set(row.Label, m)
			changed++
			continue
		}

		if m.Attributes == nil {
			m.Attributes = orderedmap.NewOrderedMap[string, msbt.Value]()
		}
		edited := false
		if textEdited(row, m.Text) {
			m.Text = row.Text
			edited = true
		}
		if row.Style != m.StyleID {
			m.StyleID = row.Style
			edited = true
		}
		before := attributeCells(m, g.Attributes)
		if err := setAttributes(f, m, g.Attributes, row); err != nil {
			return changed, err
		}
		if attributeCells(m, g.Attributes) != before {
			edited = true
		}
		if edited {
			changed++
		}
	}
	return changed, nil
}

// textEdited reports whether the row text should replace current. A row
// still matching its digest was not edited in the sheet.
func textEdited(row Row, current string) bool {
	if row.Digest != "" && Digest(row.Text) == row.Digest {
		return false
	}
	if row.Text == current {
		return false
	}
	// The sheet reader folds CRLF into LF.
	return row.Text != strings.ReplaceAll(current, "\r\n", "\n")
}

// setAttributes stores every cell that differs from the message's current
// value.
func setAttributes(f *msbt.File, m *msbt.Message, names []string, row Row) error {
	for i, name := range names {
		cell := row.Attributes[i]
		cur, ok := m.Attributes.Get(name)
		if ok && cur.String() == cell {
			continue
		}
		if !ok && cell == "" {
			continue
		}
		v, err := f.ParseAttribute(name, cell)
		if err != nil {
			return &msbt.MessageError{Key: row.Label, Err: err}
		}
		m.Attributes.Set(name, v)
	}
	return nil
}

func attributeCells(m *msbt.Message, names []string) string {
	var sb strings.Builder
	for _, name := range names {
		if v, ok := m.Attributes.Get(name); ok {
			sb.WriteString(v.String())
		}
		sb.WriteByte(0)
	}
	return sb.String()
}

// Write writes the sheet as tab-separated values with a header row.
func Write(w io.Writer, g *Grid) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	if err := cw.Write(append(append([]string{}, columns...), g.Attributes...)); err != nil {
		return err
	}
	for _, row := range g.Rows {
		rec := []string{row.Label, strconv.FormatInt(int64(row.Style), 10), row.Digest, row.Text}
		if err := cw.Write(append(rec, row.Attributes...)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read reads a sheet written by Write.
func Read(r io.Reader) (*Grid, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'

	head, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%w: missing header", ErrMalformedGrid)
		}
		return nil, fmt.Errorf("%w: %w", ErrMalformedGrid, err)
	}
	if len(head) < len(columns) {
		return nil, fmt.Errorf("%w: header has %d columns", ErrMalformedGrid, len(head))
	}
	for i, name := range columns {
		if head[i] != name {
			return nil, fmt.Errorf("%w: column %d is %q, want %q", ErrMalformedGrid, i+1, head[i], name)
		}
	}

	g := &Grid{Attributes: head[len(columns):]}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedGrid, err)
		}
		style, err := strconv.ParseInt(rec[1], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: row %q: style %q", ErrMalformedGrid, rec[0], rec[1])
		}
		g.Rows = append(g.Rows, Row{
			Label:      rec[0],
			Style:      int32(style),
			Digest:     rec[2],
			Text:       rec[3],
			Attributes: rec[len(columns):],
		})
	}
	return g, nil
}

// Save writes the sheet to path, compressing it when the name ends in ".zst".
func Save(path string, g *Grid) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating grid: %w", err)
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	if !compressed(path) {
		return Write(out, g)
	}
	enc, err := zstd.NewWriter(out, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	if err := Write(enc, g); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// Load reads a sheet from path.
func Load(path string) (*Grid, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening grid: %w", err)
	}
	defer in.Close()

	if !compressed(path) {
		return Read(in)
	}
	dec, err := zstd.NewReader(in)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return Read(dec)
}

func compressed(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".zst")
}
