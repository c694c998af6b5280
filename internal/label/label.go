// Package label implements the hash-bucketed label directory used by the
// LBL1 section of message containers and the CLB1, ALB1 and SLB1 sections of
// project containers.
//
// # Layout
//
// All offsets are relative to the start of the section payload:
//
//	u32 slotCount
//	slotCount x { u32 labelCount, u32 offsetOfFirstRecord }
//	records   { u8 length, length bytes of label, u32 index }
//
// Slots are written in ascending bucket order. Records of one bucket are
// contiguous, in the order they were supplied to [Build]. Empty slots point
// at the offset where the next record would start.
package label

import (
	"errors"
	"fmt"
	"sort"

	"github.com/robert-malhotra/go-msbt/internal/binary"
)

// DefaultSlotCount is the slot count used for newly created tables.
const DefaultSlotCount = 101

// Errors
var (
	ErrZeroSlots    = errors.New("label table has zero slots")
	ErrLabelTooLong = errors.New("label longer than 255 bytes")
	ErrIndexRange   = errors.New("label index out of range")
	ErrBucketOrder  = errors.New("labels not in bucket order")
)

// Entry is a single label record.
type Entry struct {
	Label string
	Index uint32
}

// Table is a parsed or built label directory. Entries are in on-disk order.
type Table struct {
	SlotCount uint32
	Entries   []Entry
}

// Build lays out entries into slotCount buckets. Within a bucket the relative
// order of entries is preserved.
func Build(entries []Entry, slotCount uint32) (*Table, error) {
	if slotCount == 0 {
		return nil, ErrZeroSlots
	}
	type keyed struct {
		bucket uint32
		Entry
	}
	sorted := make([]keyed, len(entries))
	for i, e := range entries {
		if len(e.Label) > 0xFF {
			return nil, fmt.Errorf("%w: %q", ErrLabelTooLong, e.Label)
		}
		sorted[i] = keyed{bucket: Hash(e.Label, slotCount), Entry: e}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].bucket < sorted[j].bucket
	})

	t := &Table{SlotCount: slotCount, Entries: make([]Entry, len(sorted))}
	for i, k := range sorted {
		t.Entries[i] = k.Entry
	}
	return t, nil
}

// BuildLabels builds a table where each label's index is its position.
func BuildLabels(labels []string, slotCount uint32) (*Table, error) {
	entries := make([]Entry, len(labels))
	for i, l := range labels {
		entries[i] = Entry{Label: l, Index: uint32(i)}
	}
	return Build(entries, slotCount)
}

// Read parses a label directory from a reader positioned at the start of the
// payload.
func Read(r *binary.Reader) (*Table, error) {
	base := r.Pos()
	slots, err := r.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("reading slot count: %w", err)
	}

	t := &Table{SlotCount: slots}
	for i := uint32(0); i < slots; i++ {
		count, err := r.ReadUint32()
		if err != nil {
			return nil, fmt.Errorf("reading slot %d: %w", i, err)
		}
		offset, err := r.ReadUint32()
		if err != nil {
			return nil, fmt.Errorf("reading slot %d: %w", i, err)
		}

		rec := r.At(base + int64(offset))
		for j := uint32(0); j < count; j++ {
			n, err := rec.ReadUint8()
			if err != nil {
				return nil, fmt.Errorf("reading label %d of slot %d: %w", j, i, err)
			}
			raw, err := rec.ReadBytes(int(n))
			if err != nil {
				return nil, fmt.Errorf("reading label %d of slot %d: %w", j, i, err)
			}
			index, err := rec.ReadUint32()
			if err != nil {
				return nil, fmt.Errorf("reading label %d of slot %d: %w", j, i, err)
			}
			t.Entries = append(t.Entries, Entry{Label: string(raw), Index: index})
		}
	}
	return t, nil
}

// Write emits the directory at the writer's position.
func (t *Table) Write(w *binary.Writer) error {
	if t.SlotCount == 0 {
		return ErrZeroSlots
	}

	counts := make([]uint32, t.SlotCount)
	for _, e := range t.Entries {
		counts[Hash(e.Label, t.SlotCount)]++
	}

	if err := w.WriteUint32(t.SlotCount); err != nil {
		return err
	}
	offset := uint32(4 + 8*t.SlotCount)
	next := 0
	for slot := uint32(0); slot < t.SlotCount; slot++ {
		if err := w.WriteUint32(counts[slot]); err != nil {
			return err
		}
		if err := w.WriteUint32(offset); err != nil {
			return err
		}
		for k := uint32(0); k < counts[slot]; k++ {
			offset += 1 + uint32(len(t.Entries[next].Label)) + 4
			next++
		}
	}

	prev := uint32(0)
	for _, e := range t.Entries {
		bucket := Hash(e.Label, t.SlotCount)
		if bucket < prev {
			return fmt.Errorf("%w: %q in bucket %d after bucket %d", ErrBucketOrder, e.Label, bucket, prev)
		}
		prev = bucket
		if len(e.Label) > 0xFF {
			return fmt.Errorf("%w: %q", ErrLabelTooLong, e.Label)
		}
		if err := w.WriteUint8(uint8(len(e.Label))); err != nil {
			return err
		}
		if err := w.WriteBytes([]byte(e.Label)); err != nil {
			return err
		}
		if err := w.WriteUint32(e.Index); err != nil {
			return err
		}
	}
	return nil
}

// Labels returns the labels indexed by their record index. n is the expected
// number of indexed items; an index outside [0, n) is an error. Unlabelled
// positions are empty strings.
func (t *Table) Labels(n int) ([]string, error) {
	out := make([]string, n)
	for _, e := range t.Entries {
		if int64(e.Index) >= int64(n) {
			return nil, fmt.Errorf("%w: %q has index %d of %d", ErrIndexRange, e.Label, e.Index, n)
		}
		out[e.Index] = e.Label
	}
	return out, nil
}

// Lookup returns the index stored for label.
func (t *Table) Lookup(label string) (uint32, bool) {
	for _, e := range t.Entries {
		if e.Label == label {
			return e.Index, true
		}
	}
	return 0, false
}
